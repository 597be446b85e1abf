package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/core"
)

// FSDiscoverer walks the local filesystem.
type FSDiscoverer struct {
	exts       map[string]struct{}
	skipHidden bool
	logger     *slog.Logger
}

// NewFSDiscoverer filters by includeExts (default: every supported extension).
func NewFSDiscoverer(includeExts []string, skipHidden bool, logger *slog.Logger) *FSDiscoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSDiscoverer{exts: extSet(includeExts), skipHidden: skipHidden, logger: logger}
}

// Discover walks root and returns every matching file in walk order. Files
// whose content hash was already seen are marked Deduplicated. Per-file errors
// are recorded on the File and the walk continues.
func (d *FSDiscoverer) Discover(ctx context.Context, root string) ([]File, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []File
	var stats DirStats
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, de fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, File{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if d.skipHidden && path != root && IsHidden(path) {
			if de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if de.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := d.exts[ext]; !ok {
			return nil
		}
		stats.Matched++

		f, err := describe(path)
		if err != nil {
			d.logger.Warn("skipping unreadable file", "path", path, "error", err)
			results = append(results, File{Path: path, Ext: ext, Err: err.Error()})
			stats.Failed++
			return nil
		}
		if first, dup := seen[f.HashHex]; dup {
			d.logger.Info("duplicate content", "path", path, "same_as", first)
			f.Deduplicated = true
			stats.Deduplicated++
		} else {
			seen[f.HashHex] = path
		}
		results = append(results, f)
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func describe(path string) (File, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return File{}, fmt.Errorf("hash: %w", err)
	}
	return File{
		Path:    path,
		Ext:     ext,
		Kind:    constants.MapExtToKind(ext),
		Size:    n,
		HashHex: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// LoadRequest reads path into a ProcessingRequest. The source kind comes from
// the extension.
func LoadRequest(path, documentType string, requested []string) (core.ProcessingRequest, error) {
	kind := constants.MapExtToKind(filepath.Ext(path))
	if kind == "" {
		return core.ProcessingRequest{}, fmt.Errorf("unsupported extension: %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.ProcessingRequest{}, fmt.Errorf("read %s: %w", path, err)
	}
	return core.ProcessingRequest{
		Source:           data,
		Kind:             kind,
		DocumentTypeHint: documentType,
		RequestedFields:  requested,
		SourceName:       path,
	}, nil
}
