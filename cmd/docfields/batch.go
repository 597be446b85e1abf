package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docfields/internal/core/async"
	"github.com/joseph-ayodele/docfields/internal/export"
	"github.com/joseph-ayodele/docfields/internal/ingest"
)

func newBatchCmd(g *globalOpts) *cobra.Command {
	var (
		ro            requestOpts
		out           string
		workers       int
		exts          []string
		includeHidden bool
		timeout       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Process every document under a directory and write an XLSX report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := args[0]
			if out == "" {
				out = filepath.Join(filepath.Dir(filepath.Clean(dir)), "docfields.xlsx")
			}
			proc, _, logger, err := g.processor(ctx)
			if err != nil {
				return err
			}
			defer closeProcessor(proc, logger)

			files, stats, err := ingest.NewFSDiscoverer(exts, !includeHidden, logger).Discover(ctx, dir)
			if err != nil {
				return err
			}
			logger.Info("discovery complete",
				"scanned", stats.Scanned,
				"matched", stats.Matched,
				"deduplicated", stats.Deduplicated,
				"failed", stats.Failed)

			rc := &rowCollector{}
			q := async.NewProcessorQueue(proc, rc.addResult, logger,
				async.WithWorkers(workers), async.WithProcessTimeout(timeout))

			for _, f := range files {
				if f.Err != "" {
					rc.add(export.Row{Source: f.Path, Err: f.Err})
					continue
				}
				if f.Deduplicated {
					continue
				}
				req, err := ingest.LoadRequest(f.Path, ro.docType, ro.fields)
				if err != nil {
					rc.add(export.Row{Source: f.Path, Err: err.Error()})
					continue
				}
				if err := q.Enqueue(ctx, async.Job{Request: req}); err != nil {
					rc.add(export.Row{Source: f.Path, Err: err.Error()})
				}
			}
			q.Shutdown(context.WithoutCancel(ctx))

			rows := rc.sorted()
			data, err := export.NewService(logger).ResultsXLSX(rows)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			failures := 0
			for _, r := range rows {
				if r.Response == nil || !r.Response.Success {
					failures++
				}
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Batch processing complete!\n")
			fmt.Fprintf(w, "- Files matched: %d\n", stats.Matched)
			fmt.Fprintf(w, "- Files processed: %d\n", len(rows))
			fmt.Fprintf(w, "- Without usable text: %d\n", failures)
			fmt.Fprintf(w, "- Output: %s\n", out)
			return nil
		},
	}
	ro.bind(cmd)
	cmd.Flags().StringVar(&out, "out", "", "output XLSX path (default: <dir>/../docfields.xlsx)")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent documents")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "file extensions to include (default: all supported)")
	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "walk hidden files and directories")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "per-document processing timeout")
	return cmd
}

// rowCollector gathers report rows from concurrent workers.
type rowCollector struct {
	mu   sync.Mutex
	rows []export.Row
}

func (c *rowCollector) add(r export.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, r)
}

func (c *rowCollector) addResult(r async.JobResult) {
	row := export.Row{Source: r.Job.Request.SourceName, Response: r.Response}
	if r.Err != nil {
		row.Err = r.Err.Error()
	}
	c.add(row)
}

// sorted returns rows ordered by source path so reports are stable across runs.
func (c *rowCollector) sorted() []export.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.Clone(c.rows)
	slices.SortFunc(out, func(a, b export.Row) int { return strings.Compare(a.Source, b.Source) })
	return out
}
