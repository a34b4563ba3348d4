package decktree

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jsvoboda/decktree/model"
)

// outputSink stages one document's output and commits it atomically:
// media assets accumulate in a temp directory and the JSON tree in a
// temp file, both renamed into place only when the whole document
// succeeded. A failed or cancelled run leaves no partial output.
type outputSink struct {
	root string // output directory holding json/ and media/
	id   string // presentation ID (source file basename)

	mu      sync.Mutex // slide workers may write assets concurrently
	staging string     // temp dir accumulating media, lazily created
	wrote   bool
}

func newOutputSink(root, id string) *outputSink {
	return &outputSink{root: root, id: id}
}

// WriteAsset stores one media payload in the staging area and returns
// the src path the final layout will serve it under:
// media/<id>/<tag><ext>.
func (s *outputSink) WriteAsset(tag, ext string, data []byte) (string, error) {
	if ext == "" {
		ext = ".bin"
	}
	name := tag + ext

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staging == "" {
		dir, err := os.MkdirTemp(s.root, ".media-"+s.id+"-")
		if err != nil {
			return "", fmt.Errorf("creating media staging dir: %w", err)
		}
		s.staging = dir
	}

	if err := os.WriteFile(filepath.Join(s.staging, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing media asset %s: %w", name, err)
	}
	s.wrote = true

	return filepath.ToSlash(filepath.Join("media", s.id, name)), nil
}

// commit serializes the tree and moves staged output into the final
// layout. On error the staging area is discarded.
func (s *outputSink) commit(p *model.Presentation) (jsonPath string, err error) {
	defer func() {
		if err != nil {
			s.discard()
		}
	}()

	jsonDir := filepath.Join(s.root, "json")
	if err := os.MkdirAll(jsonDir, 0o755); err != nil {
		return "", fmt.Errorf("creating json dir: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing presentation %s: %w", s.id, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(jsonDir, "."+s.id+"-*.json")
	if err != nil {
		return "", fmt.Errorf("staging json: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing json: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("writing json: %w", err)
	}

	// Media first: once the JSON is visible, every src it references
	// must resolve.
	if s.wrote {
		mediaDir := filepath.Join(s.root, "media", s.id)
		if err := os.MkdirAll(filepath.Dir(mediaDir), 0o755); err != nil {
			os.Remove(tmpName)
			return "", fmt.Errorf("creating media dir: %w", err)
		}
		if err := os.RemoveAll(mediaDir); err != nil {
			os.Remove(tmpName)
			return "", fmt.Errorf("replacing media dir: %w", err)
		}
		if err := os.Rename(s.staging, mediaDir); err != nil {
			os.Remove(tmpName)
			return "", fmt.Errorf("committing media dir: %w", err)
		}
		s.staging = ""
	}

	jsonPath = filepath.Join(jsonDir, s.id+".json")
	if err := os.Rename(tmpName, jsonPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("committing json: %w", err)
	}
	return jsonPath, nil
}

// discard drops any staged output.
func (s *outputSink) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staging != "" {
		os.RemoveAll(s.staging)
		s.staging = ""
	}
}

// checkPartition enforces the serializer's hard invariant: section
// slide counts sum to the total and orders are contiguous from 1.
func checkPartition(p *model.Presentation) error {
	seen := make(map[int]bool)
	total := 0
	for _, sec := range p.Sections {
		for _, s := range sec.Slides {
			if seen[s.Order] {
				return fmt.Errorf("%w: slide %d appears twice", ErrPartitionViolated, s.Order)
			}
			seen[s.Order] = true
			total++
		}
	}
	if total != p.Metadata.Stats.SlideCount {
		return fmt.Errorf("%w: %d slides in sections, %d counted",
			ErrPartitionViolated, total, p.Metadata.Stats.SlideCount)
	}
	for i := 1; i <= total; i++ {
		if !seen[i] {
			return fmt.Errorf("%w: slide order %d missing", ErrPartitionViolated, i)
		}
	}
	return nil
}
