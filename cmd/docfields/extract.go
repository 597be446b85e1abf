package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/core"
	"github.com/joseph-ayodele/docfields/internal/ingest"
)

type requestOpts struct {
	docType string
	fields  []string
}

func (o *requestOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.docType, "doc-type", "", "document type hint (id_card, tax_form)")
	cmd.Flags().StringSliceVar(&o.fields, "fields", nil, "fields to extract (default: the document type's profile)")
}

func newExtractCmd(g *globalOpts) *cobra.Command {
	var (
		ro   requestOpts
		kind string
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract fields from one document and print the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			proc, _, logger, err := g.processor(ctx)
			if err != nil {
				return err
			}
			defer closeProcessor(proc, logger)

			var req core.ProcessingRequest
			if kind != "" {
				k, ok := constants.ParseSourceKind(kind)
				if !ok {
					return fmt.Errorf("--kind must be pdf or image, got %q", kind)
				}
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				req = core.ProcessingRequest{Source: data, Kind: k, DocumentTypeHint: ro.docType, RequestedFields: ro.fields, SourceName: args[0]}
			} else if req, err = ingest.LoadRequest(args[0], ro.docType, ro.fields); err != nil {
				return err
			}

			resp, err := proc.Process(ctx, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	ro.bind(cmd)
	cmd.Flags().StringVar(&kind, "kind", "", "force source kind (pdf|image) instead of using the extension")
	return cmd
}
