// Package decktree converts PowerPoint presentations into a
// hierarchical, semantically typed content tree: sections containing
// slides containing an ordered list of typed content blocks. The tree
// and its extracted media are written as a json/ + media/ output layout
// that downstream consumers (storage, AI conversion) depend on.
package decktree

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jsvoboda/decktree/extract"
	"github.com/jsvoboda/decktree/model"
	"github.com/jsvoboda/decktree/opc"
)

// Converter turns presentation documents into extracted trees under
// the configured output directory.
type Converter struct {
	cfg Config

	// now is swappable so tests can pin the processing timestamp; the
	// tree is otherwise deterministic for identical input bytes.
	now func() time.Time
}

// Result reports one successful document conversion.
type Result struct {
	Presentation *model.Presentation
	JSONPath     string
	// Warnings lists recovered degradations (failed slides, malformed
	// section metadata). They never change the success status.
	Warnings []string
}

// New creates a Converter.
func New(cfg Config) (*Converter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Converter{cfg: cfg, now: time.Now}, nil
}

// Convert processes a single .pptx document: the full output layout is
// committed atomically, or the document fails and nothing is written.
func (c *Converter) Convert(ctx context.Context, path string) (*Result, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pptx") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	slog.Info("convert: processing document", "path", path, "id", id)

	pkg, err := opc.Open(path)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	sink := newOutputSink(c.cfg.OutputDir, id)
	defer sink.discard()

	ext, err := extract.New(pkg, sink).Run(ctx, extract.Options{
		Concurrency: c.cfg.SlideConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}

	pres := &model.Presentation{
		Metadata: model.Metadata{
			ID:          id,
			SourceFile:  filepath.Base(path),
			ProcessedAt: c.now().Format(time.RFC3339),
			Stats:       ext.Stats,
		},
		Sections: ext.Sections,
	}

	if err := checkPartition(pres); err != nil {
		return nil, err
	}

	jsonPath, err := sink.commit(pres)
	if err != nil {
		return nil, err
	}

	for _, w := range ext.Warnings {
		slog.Warn("convert: degraded", "id", id, "warning", w)
	}
	slog.Info("convert: document done", "id", id, "json", jsonPath,
		"slides", ext.Stats.SlideCount, "warnings", len(ext.Warnings))

	return &Result{Presentation: pres, JSONPath: jsonPath, Warnings: ext.Warnings}, nil
}

// ConvertAll processes every .pptx file in a directory, continuing
// past per-document failures. It returns the successful results; the
// error is non-nil only when no documents were found or none
// succeeded.
func (c *Converter) ConvertAll(ctx context.Context, dir string) ([]*Result, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pptx"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, dir)
	}
	sort.Strings(matches)

	var results []*Result
	var firstErr error
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := c.Convert(ctx, m)
		if err != nil {
			slog.Error("convert: document failed", "path", m, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, res)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("all %d documents failed: %w", len(matches), firstErr)
	}
	return results, nil
}
