package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docfields/internal/server"
)

func newServeCmd(g *globalOpts) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve extraction and backend health over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			proc, cfg, logger, err := g.processor(ctx)
			if err != nil {
				return err
			}
			defer closeProcessor(proc, logger)
			if addr == "" {
				addr = cfg.Server.GRPCAddr
			}
			gs, hs := server.New(proc, logger)
			return server.Serve(ctx, addr, gs, hs, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from GRPC_ADDR / config)")
	return cmd
}
