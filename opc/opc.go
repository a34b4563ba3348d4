// Package opc reads Open Packaging Convention containers: the zipped
// bundle of XML parts that .pptx files are made of. It exposes parts by
// name and the relationship tables that connect them. Parts are read on
// demand; nothing is parsed eagerly.
package opc

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	// ErrCorruptArchive is returned when the container cannot be opened
	// as a zip archive. Always fatal for the whole document.
	ErrCorruptArchive = errors.New("opc: corrupt archive")

	// ErrPartNotFound is returned when a named part is absent from the
	// container. Callers degrade locally.
	ErrPartNotFound = errors.New("opc: part not found")
)

// Relationship is one entry of a part's .rels table.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// External reports whether the relationship points outside the package
// (e.g. a linked video URL).
func (r Relationship) External() bool { return r.TargetMode == "External" }

type relationships struct {
	XMLName xml.Name       `xml:"Relationships"`
	Rels    []Relationship `xml:"Relationship"`
}

// Package is an opened OPC container.
type Package struct {
	reader *zip.ReadCloser
	index  map[string]*zip.File
}

// Open opens the container at path.
func Open(name string) (*Package, error) {
	r, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, name, err)
	}

	index := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		index[f.Name] = f
	}

	return &Package{reader: r, index: index}, nil
}

// Close releases the underlying archive.
func (p *Package) Close() error { return p.reader.Close() }

// Has reports whether the package contains a part with the given name.
func (p *Package) Has(name string) bool {
	_, ok := p.index[name]
	return ok
}

// Names returns all part names in archive order.
func (p *Package) Names() []string {
	names := make([]string, 0, len(p.reader.File))
	for _, f := range p.reader.File {
		names = append(names, f.Name)
	}
	return names
}

// Part returns the raw bytes of the named part.
func (p *Package) Part(name string) ([]byte, error) {
	zf := p.index[name]
	if zf == nil {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading part %s: %w", name, err)
	}
	return data, nil
}

// Relationships returns the relationship table of the named part, keyed
// by relationship ID. A part with no .rels file has an empty table, not
// an error.
func (p *Package) Relationships(partName string) (map[string]Relationship, error) {
	relsName := relsPath(partName)
	zf := p.index[relsName]
	if zf == nil {
		return map[string]Relationship{}, nil
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", relsName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", relsName, err)
	}

	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relsName, err)
	}

	table := make(map[string]Relationship, len(rels.Rels))
	for _, rel := range rels.Rels {
		table[rel.ID] = rel
	}
	return table, nil
}

// ResolveTarget resolves a relationship target against the directory of
// the source part. Internal targets are relative to the part that owns
// the .rels file ("../media/image1.png" from "ppt/slides/slide1.xml"
// resolves to "ppt/media/image1.png"). External targets are returned
// unchanged.
func ResolveTarget(partName string, rel Relationship) string {
	if rel.External() {
		return rel.Target
	}
	target := strings.ReplaceAll(rel.Target, "\\", "/")
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(partName), target))
}

// relsPath maps "ppt/slides/slide1.xml" to "ppt/slides/_rels/slide1.xml.rels".
func relsPath(partName string) string {
	dir := path.Dir(partName)
	base := path.Base(partName)
	if dir == "." {
		return "_rels/" + base + ".rels"
	}
	return dir + "/_rels/" + base + ".rels"
}
