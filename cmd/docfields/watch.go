package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docfields/internal/ingest"
)

func newWatchCmd(g *globalOpts) *cobra.Command {
	var (
		ro          requestOpts
		exts        []string
		initialScan bool
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Process documents as they appear under directories, printing one JSON response per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			proc, _, logger, err := g.processor(ctx)
			if err != nil {
				return err
			}
			defer closeProcessor(proc, logger)

			events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				IncludeExts: exts,
				InitialScan: initialScan,
				Debounce:    debounce,
				SkipHidden:  true,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			logger.Info("watching", "roots", args)

			enc := json.NewEncoder(cmd.OutOrStdout())
			for {
				select {
				case path, ok := <-events:
					if !ok {
						return nil
					}
					req, err := ingest.LoadRequest(path, ro.docType, ro.fields)
					if err != nil {
						logger.Warn("skipping file", "path", path, "error", err)
						continue
					}
					resp, err := proc.Process(ctx, req)
					if err != nil {
						logger.Error("processing failed", "path", path, "error", err)
						continue
					}
					if err := enc.Encode(map[string]any{"source": path, "response": resp}); err != nil {
						return err
					}
				case err, ok := <-errs:
					if ok {
						logger.Warn("watch error", "error", err)
					}
				}
			}
		},
	}
	ro.bind(cmd)
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "file extensions to include (default: all supported)")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", false, "also process files already present")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "coalesce bursts of writes to the same file")
	return cmd
}
