package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core"
)

type globalOpts struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if _, werr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); werr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOpts{}
	root := &cobra.Command{
		Use:           "docfields",
		Short:         "Extract identity and tax fields from scanned documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file (overrides DOCFIELDS_CONFIG)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug|info|warn|error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "json|text")

	root.AddCommand(
		newExtractCmd(g),
		newBatchCmd(g),
		newWatchCmd(g),
		newStatusCmd(g),
		newServeCmd(g),
	)
	return root
}

// setup loads config and builds the process logger. Logs go to stderr so
// stdout carries only command output.
func (g *globalOpts) setup() (*common.Config, *slog.Logger, error) {
	if g.configPath != "" {
		if err := os.Setenv("DOCFIELDS_CONFIG", g.configPath); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func (g *globalOpts) processor(ctx context.Context) (*core.Processor, *common.Config, *slog.Logger, error) {
	cfg, logger, err := g.setup()
	if err != nil {
		return nil, nil, nil, err
	}
	client := &http.Client{Timeout: cfg.Engines.OpenAI.Timeout}
	return core.NewProcessorFromConfig(ctx, cfg, nil, client, logger), cfg, logger, nil
}

func closeProcessor(p *core.Processor, logger *slog.Logger) {
	if err := p.Close(); err != nil {
		logger.Warn("failed to close backends", "error", err)
	}
}
