package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

var heicBrands = [][]byte{
	[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("heim"),
	[]byte("heis"), []byte("mif1"), []byte("msf1"),
}

// IsHEIC sniffs the ISO-BMFF ftyp box for a HEIC/HEIF brand.
func IsHEIC(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	brand := data[8:12]
	for _, b := range heicBrands {
		if bytes.Equal(brand, b) {
			return true
		}
	}
	return false
}

// ConvertHEICToPNG converts HEIC/HEIF bytes to PNG bytes with an external converter.
// converter: "heif-convert" | "magick" | "sips"
//
// Scratch files live in a private temp dir removed before returning; nothing is cached.
func ConvertHEICToPNG(ctx context.Context, r Runner, logger *slog.Logger, converter string, data []byte) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpDir, err := os.MkdirTemp("", "df-heic-*")
	if err != nil {
		return nil, nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to remove heic temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	in := filepath.Join(tmpDir, "source.heic")
	out := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, nil, err
	}

	switch converter {
	case "heif-convert":
		if _, errb, err2 := r.Run(ctx, "heif-convert", logger, in, out); err2 != nil {
			return nil, []string{string(errb)}, fmt.Errorf("heif-convert failed: %w", err2)
		}
	case "magick":
		if _, errb, err2 := r.Run(ctx, "magick", logger, in, out); err2 != nil {
			return nil, []string{string(errb)}, fmt.Errorf("magick convert failed: %w", err2)
		}
	case "sips":
		if _, errb, err2 := r.Run(ctx, "sips", logger, "-s", "format", "png", in, "--out", out); err2 != nil {
			return nil, []string{string(errb)}, fmt.Errorf("sips convert failed: %w", err2)
		}
	default:
		return nil, nil, fmt.Errorf("HEIC not supported: set imaging.heic_converter to one of: heif-convert | magick | sips")
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	logger.Debug("converted heic to png", "converter", converter, "in_bytes", len(data), "out_bytes", len(png))
	return png, nil, nil
}
