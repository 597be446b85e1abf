//go:build !gosseract

package engine

import (
	"log/slog"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
)

// NewGosseract reports the in-process engine as unavailable in builds without
// the gosseract tag (it needs cgo and libtesseract headers).
func NewGosseract(_ common.TesseractConfig, _ *slog.Logger) (Backend, error) {
	return nil, common.BackendUnavailableError(constants.EngineGosseract, "built without the gosseract tag")
}
