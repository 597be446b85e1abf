package engine

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/imaging"
	"github.com/joseph-ayodele/docfields/internal/core/ocr"
)

// Tesseract shells out to the tesseract CLI. The full backend reads hOCR for
// per-word confidences; the basic variant (the fallback) reads plain stdout
// and estimates confidence from the text.
type Tesseract struct {
	name    string
	cfg     common.TesseractConfig
	basic   bool
	runner  ocr.Runner
	logger  *slog.Logger
	variant Variant
}

// NewTesseract returns the hOCR-based backend reading the DPI-scaled variant.
func NewTesseract(cfg common.TesseractConfig, runner ocr.Runner, logger *slog.Logger) (*Tesseract, error) {
	return newTesseract(constants.EngineTesseract, cfg, false, VariantScaled, runner, logger)
}

// NewTesseractBasic returns the dependency-light fallback: page segmentation
// mode 6 on the grayscale variant, no hOCR.
func NewTesseractBasic(cfg common.TesseractConfig, runner ocr.Runner, logger *slog.Logger) (*Tesseract, error) {
	cfg.PSM = 6
	return newTesseract(constants.EngineFallback, cfg, true, VariantGrayscale, runner, logger)
}

func newTesseract(name string, cfg common.TesseractConfig, basic bool, v Variant, runner ocr.Runner, logger *slog.Logger) (*Tesseract, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	if _, isExec := runner.(ocr.ExecRunner); isExec {
		if err := ocr.LookPath(cfg.Binary); err != nil {
			return nil, common.BackendUnavailableError(name, fmt.Sprintf("%s not found: %v", cfg.Binary, err))
		}
	}
	return &Tesseract{name: name, cfg: cfg, basic: basic, runner: runner, logger: logger, variant: v}, nil
}

func (t *Tesseract) Name() string { return t.name }

func (t *Tesseract) Recognize(ctx context.Context, img *imaging.NormalizedImage) (Result, error) {
	var src image.Image
	switch t.variant {
	case VariantGrayscale:
		if img.Grayscale != nil {
			src = img.Grayscale
		}
	default:
		if img.Scaled != nil {
			src = img.Scaled
		}
	}
	data, err := encodePNG(src)
	if err != nil {
		return Result{}, err
	}

	tmpDir, err := os.MkdirTemp("", "df-tess-*")
	if err != nil {
		return Result{}, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			t.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)
	in := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return Result{}, err
	}

	// tesseract <file> stdout -l <lang> [--psm N] [--tessdata-dir D] [hocr]
	args := []string{in, "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if !t.basic {
		args = append(args, "hocr")
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, t.logger, args...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: %w: %s", err, string(errb))
	}

	res := Result{Variant: t.variant}
	if t.basic {
		res.Text = string(out)
		res.Confidence = ocr.EstimateConfidence(ocr.Normalize(res.Text))
		res.Estimated = true
		return res, nil
	}

	page, err := parseHOCR(out)
	if err != nil {
		return Result{}, fmt.Errorf("parse hocr: %w", err)
	}
	res.Text = page.Text
	res.Confidence = ocr.BlendConfidence(page.MeanConf, ocr.Normalize(page.Text))
	res.Estimated = page.MeanConf <= 0
	res.Diagnostics = map[string]string{
		"words":          strconv.Itoa(page.Words),
		"mean_word_conf": strconv.FormatFloat(page.MeanConf, 'f', 3, 64),
	}
	return res, nil
}
