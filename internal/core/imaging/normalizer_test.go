package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"strconv"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
)

func testConfig() common.ImagingConfig {
	cfg := common.DefaultConfig().Imaging
	cfg.DenoiseStrength = 0 // keep tests fast; covered separately
	return cfg
}

func renderText(t *testing.T, w, h int, lines ...string) *image.RGBA {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: basicfont.Face7x13}
	for i, ln := range lines {
		d.Dot = fixed.P(10, 20+i*18)
		d.DrawString(ln)
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeImage(t *testing.T) {
	src := renderText(t, 320, 120, "GOVERNMENT OF INDIA", "Name: RAVI KUMAR", "DOB: 12-04-1999")
	n := NewNormalizer(testConfig(), nil, slog.New(slog.DiscardHandler))

	got, err := n.Normalize(context.Background(), encodePNG(t, src), constants.IMAGE)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.PDF != nil {
		t.Fatal("image source must not carry pdf info")
	}
	want := got.Original.Bounds()
	for name, b := range map[string]image.Rectangle{
		"rgb":       got.RGB.Bounds(),
		"grayscale": got.Grayscale.Bounds(),
		"processed": got.Processed.Bounds(),
	} {
		if b != want {
			t.Errorf("%s bounds = %v, want %v", name, b, want)
		}
	}
	// 150 -> 300 dpi doubles each side
	if sb := got.Scaled.Bounds(); sb.Dx() != 640 || sb.Dy() != 240 {
		t.Errorf("scaled bounds = %v, want 640x240", sb)
	}
	for _, p := range got.Processed.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("processed variant is not binary: found %d", p)
		}
	}
}

func TestNormalizeUnreadable(t *testing.T) {
	n := NewNormalizer(testConfig(), nil, nil)
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not an image"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(context.Background(), data, constants.IMAGE)
			if !errors.Is(err, common.ErrUnreadableSource) {
				t.Fatalf("expected ErrUnreadableSource, got %v", err)
			}
		})
	}
}

// popplerStub stands in for pdftoppm/pdfinfo.
type popplerStub struct {
	pages int
	w, h  int
	calls []string
}

func (p *popplerStub) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	p.calls = append(p.calls, name)
	switch name {
	case "pdfinfo":
		return []byte(fmt.Sprintf("Producer: test\nPages:          %d\nEncrypted: no\n", p.pages)), nil, nil
	case "pdftoppm":
		first, last := 1, p.pages
		for i := 0; i < len(args)-1; i++ {
			switch args[i] {
			case "-f":
				first, _ = strconv.Atoi(args[i+1])
			case "-l":
				last, _ = strconv.Atoi(args[i+1])
			}
		}
		prefix := args[len(args)-1]
		page := image.NewGray(image.Rect(0, 0, p.w, p.h))
		for i := range page.Pix {
			page.Pix[i] = 0xff
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, page); err != nil {
			return nil, nil, err
		}
		for i := first; i <= min(last, p.pages); i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%02d.png", prefix, i), buf.Bytes(), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	}
	return nil, []byte("unexpected command"), errors.New("unexpected command " + name)
}

func fixturePDF(t *testing.T, pages int) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 1; i <= pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, fmt.Sprintf("Page %d", i))
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizePDFTruncation(t *testing.T) {
	stub := &popplerStub{pages: 15, w: 60, h: 80}
	cfg := testConfig()
	cfg.MaxPDFPages = 10
	n := NewNormalizer(cfg, stub, nil)

	got, err := n.Normalize(context.Background(), fixturePDF(t, 15), constants.PDF)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.PDF == nil {
		t.Fatal("expected pdf info")
	}
	if got.PDF.PagesProcessed != 10 || got.PDF.TotalPages != 15 {
		t.Fatalf("pages = %d/%d, want 10/15", got.PDF.PagesProcessed, got.PDF.TotalPages)
	}
	if !got.PDF.Truncated() {
		t.Fatal("expected truncation to be reported")
	}
	wantH := 10*80 + 9*cfg.PageSpacerPx
	if b := got.Original.Bounds(); b.Dx() != 60 || b.Dy() != wantH {
		t.Fatalf("canvas = %v, want 60x%d", b, wantH)
	}
	if got.SourceDPI != 144 {
		t.Fatalf("source dpi = %d, want 144", got.SourceDPI)
	}
}

func TestNormalizePDFUnderBound(t *testing.T) {
	stub := &popplerStub{pages: 3, w: 40, h: 50}
	n := NewNormalizer(testConfig(), stub, nil)

	got, err := n.Normalize(context.Background(), fixturePDF(t, 3), "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.Kind != constants.PDF {
		t.Fatalf("kind = %s, want sniffed PDF", got.Kind)
	}
	if got.PDF.PagesProcessed != 3 || got.PDF.TotalPages != 3 || got.PDF.Truncated() {
		t.Fatalf("unexpected pdf info %+v", *got.PDF)
	}
}

func TestNormalizePDFKeepsTargetDPI(t *testing.T) {
	tests := []struct {
		name  string
		pages int
	}{
		{"single page", 1},
		{"three pages", 3},
		{"ten pages", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// one page fits under the cap at target dpi; the stacked canvas does not
			stub := &popplerStub{pages: tt.pages, w: 60, h: 80}
			cfg := testConfig()
			cfg.MaxDimension = 200
			n := NewNormalizer(cfg, stub, nil)

			got, err := n.Normalize(context.Background(), fixturePDF(t, tt.pages), constants.PDF)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got.PDF.MaxPageHeight != 80 {
				t.Fatalf("max page height = %d, want 80", got.PDF.MaxPageHeight)
			}
			dpi := float64(got.SourceDPI) * got.ScaleFactor
			if math.Abs(dpi-float64(cfg.TargetDPI)) > 1 {
				t.Fatalf("effective dpi = %.1f, want %d", dpi, cfg.TargetDPI)
			}
			if sb := got.Scaled.Bounds(); sb.Dy() <= got.Original.Bounds().Dy() {
				t.Fatalf("scaled canvas %v not upscaled from %v", sb, got.Original.Bounds())
			}
		})
	}
}

func TestParsePdfinfoPages(t *testing.T) {
	if got := parsePdfinfoPages([]byte("Title: x\nPages:   42\n")); got != 42 {
		t.Fatalf("parsePdfinfoPages = %d, want 42", got)
	}
	if got := parsePdfinfoPages([]byte("nothing here")); got != 0 {
		t.Fatalf("parsePdfinfoPages = %d, want 0", got)
	}
}
