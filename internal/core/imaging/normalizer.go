package imaging

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/ocr"
)

// NormalizedImage is the request-scoped set of pixel variants handed to backends.
// Original, RGB, Grayscale and Processed share the same dimensions; Scaled is the
// processed variant resampled to the target DPI.
type NormalizedImage struct {
	Original  *image.RGBA // decoded source (composited canvas for PDFs), before deskew
	RGB       *image.RGBA // deskewed colour
	Grayscale *image.Gray // deskewed luminance
	Processed *image.Gray // denoised and binarized
	Scaled    *image.Gray // Processed at TargetDPI

	SkewDegrees float64
	SourceDPI   int
	ScaleFactor float64
	Kind        constants.SourceKind
	PDF         *PDFInfo // nil for image sources
}

// Bounds is the shared size of the unscaled variants.
func (n *NormalizedImage) Bounds() image.Rectangle {
	return n.RGB.Bounds()
}

type Normalizer struct {
	cfg    common.ImagingConfig
	runner ocr.Runner
	logger *slog.Logger
}

func NewNormalizer(cfg common.ImagingConfig, runner ocr.Runner, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.PDFZoom <= 0 {
		cfg.PDFZoom = 2.0
	}
	return &Normalizer{cfg: cfg, runner: runner, logger: logger}
}

// Normalize decodes bytes (an image, or a PDF rasterized to one canvas) and
// derives the variants. Any decode failure is an UnreadableSource error.
// An empty kind is sniffed from the bytes.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, kind constants.SourceKind) (*NormalizedImage, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, n.logger)
	if len(data) == 0 {
		return nil, common.UnreadableSourceError("empty source", nil)
	}
	if IsPDF(data) {
		if kind == constants.IMAGE {
			logger.Warn("source declared as image but has a pdf header; treating as pdf")
		}
		kind = constants.PDF
	} else if kind == "" {
		kind = constants.IMAGE
	}

	out := &NormalizedImage{Kind: kind}
	switch kind {
	case constants.PDF:
		canvas, info, dpi, err := n.rasterizePDF(ctx, data)
		if err != nil {
			return nil, err
		}
		out.Original, out.PDF, out.SourceDPI = canvas, &info, dpi
	default:
		if ocr.IsHEIC(data) {
			png, _, err := ocr.ConvertHEICToPNG(ctx, n.runner, logger, n.cfg.HeicConverter, data)
			if err != nil {
				return nil, common.UnreadableSourceError("heic conversion failed", err)
			}
			data = png
		}
		img, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, common.UnreadableSourceError("image decode failed", err)
		}
		if b := img.Bounds(); b.Empty() {
			return nil, common.UnreadableSourceError("image has no pixels", nil)
		}
		logger.Debug("decoded image", "format", format)
		out.Original = toRGBA(img)
		out.SourceDPI = n.cfg.DefaultSourceDPI
	}

	// deskew first so every variant shares one geometry
	gray := toGray(out.Original)
	out.SkewDegrees = estimateSkew(gray, n.cfg.MaxSkewDegrees)
	out.RGB = out.Original
	if math.Abs(out.SkewDegrees) >= 0.1 {
		out.RGB = rotate(out.Original, out.SkewDegrees)
		gray = toGray(out.RGB)
	}
	out.Grayscale = gray

	denoised := denoiseNLM(gray, n.cfg.DenoiseStrength, n.cfg.DenoiseSearchRadius)
	out.Processed = adaptiveThreshold(denoised, n.cfg.ThresholdBlockSize, n.cfg.ThresholdOffset)

	b := out.Processed.Bounds()
	// a pdf canvas is capped per page; the page bound limits its total size
	capH := b.Dy()
	if out.PDF != nil && out.PDF.MaxPageHeight > 0 {
		capH = min(capH, out.PDF.MaxPageHeight)
	}
	out.ScaleFactor = rescaleFactor(b.Dx(), capH, out.SourceDPI, n.cfg.TargetDPI, n.cfg.MaxDimension)
	out.Scaled = rescale(out.Processed, out.ScaleFactor)

	attrs := []any{
		"kind", kind,
		"width", b.Dx(),
		"height", b.Dy(),
		"skew_degrees", out.SkewDegrees,
		"scale_factor", out.ScaleFactor,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if out.PDF != nil {
		attrs = append(attrs, "pages_processed", out.PDF.PagesProcessed, "total_pages", out.PDF.TotalPages)
	}
	logger.Info("normalized source", attrs...)
	return out, nil
}
