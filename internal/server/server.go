// Package server hosts the gRPC surface: health per backend, reflection and
// the Extraction service.
package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// New builds a gRPC server with every service registered and health
// published from ext.Status().
func New(ext Extractor, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	gs := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	PublishStatus(hs, ext.Status(), logger)

	RegisterExtractionService(gs, NewExtractionService(ext, logger))
	reflection.Register(gs)
	return gs, hs
}

// Serve listens on addr until ctx is cancelled, then stops gracefully.
func Serve(ctx context.Context, addr string, gs *grpc.Server, hs *health.Server, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Info("gRPC serving", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down...")
	hs.Shutdown()
	gs.GracefulStop()
	return nil
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("rpc failed", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		} else {
			logger.Debug("rpc ok", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds())
		}
		return resp, err
	}
}
