//go:build gosseract

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/imaging"
	"github.com/joseph-ayodele/docfields/internal/core/ocr"
)

// Gosseract runs libtesseract in-process on the binarized variant.
// A gosseract.Client is not safe for concurrent use, so one is made per call.
type Gosseract struct {
	cfg           common.TesseractConfig
	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

// NewGosseract probes the linked library once; a client that cannot report a
// version means libtesseract is missing or broken.
func NewGosseract(cfg common.TesseractConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	probe := gosseract.NewClient()
	defer probe.Close()
	if v := probe.Version(); v == "" {
		return nil, common.BackendUnavailableError(constants.EngineGosseract, "libtesseract did not report a version")
	}
	return &Gosseract{cfg: cfg, clientFactory: gosseract.NewClient, logger: logger}, nil
}

func (g *Gosseract) Name() string { return constants.EngineGosseract }

func (g *Gosseract) Recognize(ctx context.Context, img *imaging.NormalizedImage) (Result, error) {
	if img.Processed == nil {
		return Result{}, fmt.Errorf("no processed variant")
	}
	data, err := encodePNG(img.Processed)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	c := g.clientFactory()
	defer c.Close()
	if g.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(g.cfg.TessdataDir); err != nil {
			return Result{}, fmt.Errorf("set tessdata: %w", err)
		}
	}
	if err := c.SetLanguage(strings.Split(g.cfg.Lang, "+")...); err != nil {
		return Result{}, fmt.Errorf("set languages: %w", err)
	}
	if g.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
			return Result{}, fmt.Errorf("set psm: %w", err)
		}
	}
	if img.SourceDPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(img.SourceDPI)); err != nil {
			return Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}

	var mean float64
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD); err == nil && len(boxes) > 0 {
		var sum float64
		for _, b := range boxes {
			sum += b.Confidence / 100.0
		}
		mean = sum / float64(len(boxes))
	}
	return Result{
		Text:       text,
		Confidence: ocr.BlendConfidence(mean, ocr.Normalize(text)),
		Estimated:  mean <= 0,
		Variant:    VariantProcessed,
	}, nil
}
