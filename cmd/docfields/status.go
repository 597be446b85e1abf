package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
)

func newStatusCmd(g *globalOpts) *cobra.Command {
	var failDegraded bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report which OCR backends are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			proc, _, logger, err := g.processor(cmd.Context())
			if err != nil {
				return err
			}
			defer closeProcessor(proc, logger)

			rep := proc.Status()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if rep.Available == 0 {
				return errors.New("no OCR backend is available")
			}
			if failDegraded && rep.Degraded() {
				return errors.New("extraction is degraded")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failDegraded, "fail-degraded", false, "exit non-zero when any backend is unavailable")
	return cmd
}
