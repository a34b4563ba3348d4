// Package extract converts an opened presentation package into the
// section/slide/block tree. Slides are independent of each other, so
// extraction can optionally fan out over a bounded worker pool; results
// are reassembled into document order before sections are assigned,
// because content order is an observable contract.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsvoboda/decktree/model"
	"github.com/jsvoboda/decktree/opc"
)

// ErrNoSlides is returned when the presentation contains no slides or
// every slide failed to extract.
var ErrNoSlides = errors.New("extract: no slides extracted")

// AssetWriter stores extracted media payloads. The tag already carries
// the slide namespace ("3_17", "3_sa_<modelID>"); implementations add
// the presentation namespace and return the src path recorded on
// blocks.
type AssetWriter interface {
	WriteAsset(tag, ext string, data []byte) (string, error)
}

// Options tune a single extraction run.
type Options struct {
	// Concurrency bounds the slide worker pool. Values below 2 keep
	// extraction strictly sequential.
	Concurrency int
}

// Result is the outcome of one document extraction.
type Result struct {
	Sections []model.Section
	Stats    model.Stats
	Warnings []string
}

// Extractor walks one opened package.
type Extractor struct {
	pkg    *opc.Package
	assets AssetWriter
}

// New returns an Extractor over an opened package.
func New(pkg *opc.Package, assets AssetWriter) *Extractor {
	return &Extractor{pkg: pkg, assets: assets}
}

// Run extracts every slide in document order and groups them into
// sections. Slide-level failures become warnings; the run fails only
// when no slide survives.
func (e *Extractor) Run(ctx context.Context, opts Options) (*Result, error) {
	refs, pres, err := e.slideOrder()
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, ErrNoSlides
	}

	start := time.Now()
	results, warnings := e.extractSlides(ctx, refs, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Reassemble in document order with contiguous 1-based numbering,
	// dropping failed slides. slideIDs stays parallel to slides so
	// section metadata can still find the survivors.
	var slides []model.Slide
	var slideIDs []string
	images := 0
	for i, r := range results {
		if r == nil {
			continue
		}
		s := r.slide
		s.Order = len(slides) + 1
		slides = append(slides, s)
		slideIDs = append(slideIDs, refs[i].id)
		images += r.images
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: all %d slides failed", ErrNoSlides, len(refs))
	}

	sections, sectionWarnings := assignSections(pres, slideIDs, slides)
	warnings = append(warnings, sectionWarnings...)

	slog.Info("extract: document processed",
		"slides", len(slides), "failed", len(refs)-len(slides),
		"sections", len(sections), "images", images,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		Sections: sections,
		Stats:    model.Stats{SlideCount: len(slides), ImageCount: images},
		Warnings: warnings,
	}, nil
}

// extractSlides runs per-slide extraction, sequentially or over a
// semaphore-bounded pool. results[i] is nil when slide i failed.
func (e *Extractor) extractSlides(ctx context.Context, refs []slideRef, opts Options) ([]*slideResult, []string) {
	results := make([]*slideResult, len(refs))

	if opts.Concurrency < 2 {
		var warnings []string
		for i, ref := range refs {
			if ctx.Err() != nil {
				return results, warnings
			}
			res, err := e.extractSlide(ref.part, i+1)
			if err != nil {
				slog.Warn("extract: slide failed", "part", ref.part, "error", err)
				warnings = append(warnings, fmt.Sprintf("slide %d (%s): %v", i+1, ref.part, err))
				continue
			}
			results[i] = &res
		}
		return results, warnings
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, opts.Concurrency)
		warnings []string
	)

	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref slideRef) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			res, err := e.extractSlide(ref.part, i+1)
			if err != nil {
				slog.Warn("extract: slide failed", "part", ref.part, "error", err)
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("slide %d (%s): %v", i+1, ref.part, err))
				mu.Unlock()
				return
			}
			mu.Lock()
			results[i] = &res
			mu.Unlock()
		}(i, ref)
	}

	wg.Wait()
	return results, warnings
}
