// Package ingest discovers document files for batch and watch runs and turns
// them into processing requests.
package ingest

import (
	"context"

	"github.com/joseph-ayodele/docfields/constants"
)

// File is one discovered document.
type File struct {
	Path         string
	Ext          string
	Kind         constants.SourceKind
	Size         int64
	HashHex      string
	Deduplicated bool // same content as an earlier file in this walk
	Err          string
}

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Discoverer is the behavior batch runs depend on.
type Discoverer interface {
	Discover(ctx context.Context, root string) ([]File, DirStats, error)
}
