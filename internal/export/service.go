// Package export writes batch extraction results to an XLSX workbook.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/core/format"
)

const (
	resultsSheet  = "Results"
	backendsSheet = "Backends"
)

// Row is one processed (or failed) document.
type Row struct {
	Source   string
	Response *format.Response // nil when the request failed
	Err      string
}

type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ResultsXLSX returns a workbook with one row per document on "Results"
// (routing, confidences, one column per field) and one row per backend call
// on "Backends".
func (s *Service) ResultsXLSX(rows []Row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close workbook", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(backendsSheet); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(resultsSheet)
	f.SetActiveSheet(idx)

	fieldNames := constants.AllFieldNames()
	headers := []any{"Source", "Request ID", "Routing", "Success", "Selected Engine", "Selected Confidence", "Overall Confidence"}
	for _, n := range fieldNames {
		headers = append(headers, n)
	}
	headers = append(headers, "Pages", "Error")
	if err := f.SetSheetRow(resultsSheet, "A1", &headers); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(backendsSheet, "A1", &[]any{"Source", "Engine", "Success", "Confidence", "Estimated", "Words", "Duration (ms)", "Error"}); err != nil {
		return nil, err
	}

	row, brow := 2, 2
	for _, r := range rows {
		values := []any{r.Source}
		if resp := r.Response; resp != nil {
			values = append(values, resp.RequestID, string(resp.Routing), resp.Success, resp.SelectedEngine,
				round3(resp.SelectedConfidence), round3(resp.OverallConfidence))
			for _, n := range fieldNames {
				values = append(values, resp.Fields[n])
			}
			pages := ""
			if resp.Metadata.TotalPages > 0 {
				pages = fmt.Sprintf("%d/%d", resp.Metadata.PagesProcessed, resp.Metadata.TotalPages)
			}
			values = append(values, pages, r.Err)

			for _, b := range resp.Backends {
				cell, _ := excelize.CoordinatesToCellName(1, brow)
				if err := f.SetSheetRow(backendsSheet, cell, &[]any{
					r.Source, b.Engine, b.Success, round3(b.Confidence), b.Estimated, b.WordCount, b.DurationMS, truncate(b.Error, 200),
				}); err != nil {
					return nil, err
				}
				brow++
			}
		} else {
			values = append(values, "", string(constants.RoutingReject), false, "", 0.0, 0.0)
			for range fieldNames {
				values = append(values, "")
			}
			values = append(values, "", truncate(r.Err, 200))
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return nil, err
		}
		row++
	}

	_ = f.SetColWidth(resultsSheet, "A", "A", 48)
	_ = f.SetColWidth(resultsSheet, "B", "B", 38)
	_ = f.SetColWidth(resultsSheet, "C", "G", 14)
	_ = f.SetColWidth(backendsSheet, "A", "A", 48)
	_ = f.SetColWidth(backendsSheet, "H", "H", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "rows", len(rows), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
