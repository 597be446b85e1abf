package server

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core"
	"github.com/joseph-ayodele/docfields/internal/core/engine"
	"github.com/joseph-ayodele/docfields/internal/core/format"
)

type fakeExtractor struct {
	last core.ProcessingRequest
}

func (f *fakeExtractor) Process(_ context.Context, req core.ProcessingRequest) (*format.Response, error) {
	f.last = req
	if string(req.Source) == "garbage" {
		return nil, common.UnreadableSourceError("decode image", nil)
	}
	return &format.Response{
		RequestID:      "r-1",
		Success:        true,
		Routing:        constants.RoutingReview,
		SelectedEngine: "tesseract",
		Fields:         map[string]string{"name": "ASHA RAO"},
	}, nil
}

func (f *fakeExtractor) Status() engine.StatusReport {
	return engine.StatusReport{
		Backends: []engine.Status{
			{Engine: "tesseract", Available: true},
			{Engine: "gemini", Reason: "no api key"},
			{Engine: constants.EngineFallback, Available: true, Fallback: true},
		},
		Available: 2,
		Total:     3,
	}
}

func dial(t *testing.T, ext Extractor) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs, _ := New(ext, slog.New(slog.DiscardHandler))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHealthPerBackend(t *testing.T) {
	conn := dial(t, &fakeExtractor{})
	hc := healthpb.NewHealthClient(conn)
	tests := []struct {
		service string
		want    healthpb.HealthCheckResponse_ServingStatus
	}{
		{"", healthpb.HealthCheckResponse_SERVING},
		{EngineServicePrefix + "tesseract", healthpb.HealthCheckResponse_SERVING},
		{EngineServicePrefix + "gemini", healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: tt.service})
		if err != nil {
			t.Fatalf("Check(%q): %v", tt.service, err)
		}
		if resp.GetStatus() != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.service, resp.GetStatus(), tt.want)
		}
	}
}

func TestExtract(t *testing.T) {
	ext := &fakeExtractor{}
	conn := dial(t, ext)

	in, err := structpb.NewStruct(map[string]any{
		"source_base64":    base64.StdEncoding.EncodeToString([]byte("png")),
		"kind":             "image",
		"document_type":    "id_card",
		"requested_fields": []any{"name", "dob"},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(context.Background(), ExtractMethod, in, out); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	m := out.AsMap()
	if m["routing"] != "REVIEW" || m["fields"].(map[string]any)["name"] != "ASHA RAO" {
		t.Fatalf("response = %v", m)
	}
	if ext.last.Kind != constants.IMAGE || string(ext.last.Source) != "png" || len(ext.last.RequestedFields) != 2 {
		t.Fatalf("decoded request = %+v", ext.last)
	}
}

func TestExtractErrors(t *testing.T) {
	conn := dial(t, &fakeExtractor{})
	tests := []struct {
		name string
		in   map[string]any
	}{
		{"bad base64", map[string]any{"source_base64": "%%%"}},
		{"bad kind", map[string]any{"source_base64": "", "kind": "docx"}},
		{"unreadable", map[string]any{"source_base64": base64.StdEncoding.EncodeToString([]byte("garbage"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := structpb.NewStruct(tt.in)
			err := conn.Invoke(context.Background(), ExtractMethod, in, new(structpb.Struct))
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("code = %v (%v), want InvalidArgument", status.Code(err), err)
			}
		})
	}
}

func TestStatusMethod(t *testing.T) {
	conn := dial(t, &fakeExtractor{})
	out := new(structpb.Struct)
	if err := conn.Invoke(context.Background(), StatusMethod, &structpb.Struct{}, out); err != nil {
		t.Fatalf("Status: %v", err)
	}
	m := out.AsMap()
	if m["available"] != 2.0 || m["total"] != 3.0 || m["degraded"] != true {
		t.Fatalf("status = %v", m)
	}
	if len(m["backends"].([]any)) != 3 {
		t.Fatalf("backends = %v", m["backends"])
	}
}

func TestReflectionDescribesExtraction(t *testing.T) {
	conn := dial(t, &fakeExtractor{})
	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(context.Background())
	if err != nil {
		t.Fatalf("ServerReflectionInfo: %v", err)
	}
	req := &reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: ExtractionServiceName},
	}
	if err := stream.Send(req); err != nil {
		t.Fatalf("Send: %v", err)
	}
	resp, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if e := resp.GetErrorResponse(); e != nil {
		t.Fatalf("reflection error: %s", e.GetErrorMessage())
	}

	var methods []string
	for _, raw := range resp.GetFileDescriptorResponse().GetFileDescriptorProto() {
		var fdp descriptorpb.FileDescriptorProto
		if err := proto.Unmarshal(raw, &fdp); err != nil {
			t.Fatalf("unmarshal descriptor: %v", err)
		}
		if fdp.GetName() != ExtractionProtoFile {
			continue
		}
		for _, m := range fdp.GetService()[0].GetMethod() {
			methods = append(methods, m.GetName())
		}
	}
	if len(methods) != 2 || methods[0] != "Extract" || methods[1] != "Status" {
		t.Fatalf("methods = %v, want [Extract Status]", methods)
	}
}
