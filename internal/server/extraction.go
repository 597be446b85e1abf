package server

import (
	"context"
	"encoding/base64"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core"
	"github.com/joseph-ayodele/docfields/internal/core/engine"
	"github.com/joseph-ayodele/docfields/internal/core/format"
)

// Method names of the Extraction service.
const (
	ExtractionServiceName = "docfields.v1.Extraction"
	ExtractMethod         = "/" + ExtractionServiceName + "/Extract"
	StatusMethod          = "/" + ExtractionServiceName + "/Status"
)

// Extractor is the part of core.Processor the RPC layer needs.
type Extractor interface {
	Process(ctx context.Context, req core.ProcessingRequest) (*format.Response, error)
	Status() engine.StatusReport
}

// ExtractionService exposes Extract and Status over gRPC. Messages are
// google.protobuf.Struct so no generated stubs are needed; Extract expects
// {request_id?, source_base64, kind?, document_type?, requested_fields?}.
type ExtractionService struct {
	ext    Extractor
	logger *slog.Logger
}

func NewExtractionService(ext Extractor, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{ext: ext, logger: logger}
}

func (s *ExtractionService) Extract(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return nil, err
	}
	resp, err := s.ext.Process(ctx, req)
	if err != nil {
		s.logger.Warn("extract failed", "error", err)
		return nil, common.ToStatus(err)
	}
	out, err := format.ToStruct(*resp)
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

func (s *ExtractionService) Status(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	rep := s.ext.Status()
	backends := make([]any, 0, len(rep.Backends))
	for _, b := range rep.Backends {
		backends = append(backends, map[string]any{
			"engine":    b.Engine,
			"available": b.Available,
			"reason":    b.Reason,
			"fallback":  b.Fallback,
		})
	}
	return structpb.NewStruct(map[string]any{
		"backends":  backends,
		"available": rep.Available,
		"total":     rep.Total,
		"degraded":  rep.Degraded(),
	})
}

func decodeRequest(in *structpb.Struct) (core.ProcessingRequest, error) {
	f := in.GetFields()
	str := func(key string) string { return f[key].GetStringValue() }

	src, err := base64.StdEncoding.DecodeString(str("source_base64"))
	if err != nil {
		return core.ProcessingRequest{}, common.InvalidArgumentErrorf("source_base64: %v", err)
	}
	req := core.ProcessingRequest{
		RequestID:        str("request_id"),
		Source:           src,
		DocumentTypeHint: str("document_type"),
	}
	if k := str("kind"); k != "" {
		kind, ok := constants.ParseSourceKind(k)
		if !ok {
			return core.ProcessingRequest{}, common.InvalidArgumentErrorf("kind must be pdf or image, got %q", k)
		}
		req.Kind = kind
	}
	for _, v := range f["requested_fields"].GetListValue().GetValues() {
		if name := v.GetStringValue(); name != "" {
			req.RequestedFields = append(req.RequestedFields, name)
		}
	}
	return req, nil
}

type extractionServer interface {
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(extractionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(extractionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(extractionServer), ctx, req.(*structpb.Struct))
		})
	}
}

var extractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ExtractionServiceName,
	HandlerType: (*extractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: unaryHandler(ExtractMethod, extractionServer.Extract)},
		{MethodName: "Status", Handler: unaryHandler(StatusMethod, extractionServer.Status)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: ExtractionProtoFile,
}

// RegisterExtractionService registers svc on s.
func RegisterExtractionService(s grpc.ServiceRegistrar, svc *ExtractionService) {
	s.RegisterService(&extractionServiceDesc, svc)
}
