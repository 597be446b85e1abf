package imaging

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"rsc.io/pdf"

	"github.com/joseph-ayodele/docfields/internal/common"
)

var pdfMagic = []byte("%PDF-")

// IsPDF sniffs the PDF header within the first KiB (some producers prepend junk).
func IsPDF(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, pdfMagic)
}

// PDFInfo reports page truncation for PDF sources.
type PDFInfo struct {
	PagesProcessed int
	TotalPages     int
	// MaxPageHeight is the tallest rendered page in pixels.
	MaxPageHeight int
}

// Truncated reports whether pages beyond the bound were dropped.
func (p PDFInfo) Truncated() bool { return p.PagesProcessed < p.TotalPages }

// countPages reads the page tree with rsc.io/pdf and falls back to pdfinfo.
// Returns 0 when neither can tell.
func (n *Normalizer) countPages(ctx context.Context, path string, data []byte) int {
	if c := numPages(data); c > 0 {
		return c
	}
	out, _, err := n.runner.Run(ctx, n.cfg.Pdfinfo, n.logger, path)
	if err != nil {
		n.logger.Warn("pdfinfo failed; total page count unknown", "error", err)
		return 0
	}
	return parsePdfinfoPages(out)
}

func numPages(data []byte) (count int) {
	// the parser panics on some malformed xref tables
	defer func() {
		if recover() != nil {
			count = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}

func parsePdfinfoPages(out []byte) int {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "Pages:"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}

// rasterizePDF renders up to MaxPDFPages pages at 72*PDFZoom DPI and stacks them
// vertically with white spacer bands between pages.
func (n *Normalizer) rasterizePDF(ctx context.Context, data []byte) (*image.RGBA, PDFInfo, int, error) {
	tmpDir, err := os.MkdirTemp("", "df-pp-*")
	if err != nil {
		return nil, PDFInfo{}, 0, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			n.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	in := filepath.Join(tmpDir, "source.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, PDFInfo{}, 0, err
	}

	total := n.countPages(ctx, in, data)
	bound := n.cfg.MaxPDFPages
	if total > 0 && (bound <= 0 || total < bound) {
		bound = total
	}

	dpi := int(math.Round(72 * n.cfg.PDFZoom))
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png -f 1 -l <bound> <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if bound > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(bound))
	}
	args = append(args, in, prefix)
	if _, errb, err := n.runner.Run(ctx, n.cfg.Pdftoppm, n.logger, args...); err != nil {
		return nil, PDFInfo{}, 0, common.UnreadableSourceError("pdf rasterization failed: "+strings.TrimSpace(string(errb)), err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(matches, func(i, j int) bool { return pageNumber(matches[i]) < pageNumber(matches[j]) })
	if bound > 0 && len(matches) > bound {
		matches = matches[:bound]
	}
	if len(matches) == 0 {
		return nil, PDFInfo{}, 0, common.UnreadableSourceError("pdf rendered no pages", nil)
	}

	pages := make([]image.Image, 0, len(matches))
	for _, p := range matches {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, PDFInfo{}, 0, err
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, PDFInfo{}, 0, common.UnreadableSourceError(fmt.Sprintf("decode rendered page %s", filepath.Base(p)), err)
		}
		pages = append(pages, img)
	}

	if total < len(pages) {
		total = len(pages)
	}
	info := PDFInfo{PagesProcessed: len(pages), TotalPages: total}
	for _, p := range pages {
		info.MaxPageHeight = max(info.MaxPageHeight, p.Bounds().Dy())
	}
	if info.Truncated() {
		n.logger.Info("pdf truncated to page bound", "pages_processed", info.PagesProcessed, "total_pages", info.TotalPages)
	}
	return composite(pages, n.cfg.PageSpacerPx), info, dpi, nil
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndexByte(base, '-')
	v, _ := strconv.Atoi(base[i+1:])
	return v
}

// composite stacks pages top to bottom, left-aligned, on a white canvas as wide
// as the widest page.
func composite(pages []image.Image, spacer int) *image.RGBA {
	if len(pages) == 1 {
		return toRGBA(pages[0])
	}
	spacer = max(spacer, 0)
	width, height := 0, spacer*(len(pages)-1)
	for _, p := range pages {
		b := p.Bounds()
		width = max(width, b.Dx())
		height += b.Dy()
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	y := 0
	for _, p := range pages {
		b := p.Bounds()
		draw.Draw(canvas, image.Rect(0, y, b.Dx(), y+b.Dy()), p, b.Min, draw.Over)
		y += b.Dy() + spacer
	}
	return canvas
}
