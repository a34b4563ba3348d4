package opc

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// createTestPackage builds a zip with the given name->content parts.
func createTestPackage(t *testing.T, parts map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pptx")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating package file: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range parts {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
	return path
}

func TestOpenAndPart(t *testing.T) {
	path := createTestPackage(t, map[string]string{
		"ppt/presentation.xml":  "<presentation/>",
		"ppt/slides/slide1.xml": "<sld/>",
	})

	pkg, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pkg.Close()

	data, err := pkg.Part("ppt/slides/slide1.xml")
	if err != nil {
		t.Fatalf("Part: %v", err)
	}
	if string(data) != "<sld/>" {
		t.Errorf("Part content = %q, want %q", data, "<sld/>")
	}

	if !pkg.Has("ppt/presentation.xml") {
		t.Error("Has(ppt/presentation.xml) = false, want true")
	}
	if pkg.Has("ppt/slides/slide2.xml") {
		t.Error("Has(ppt/slides/slide2.xml) = true, want false")
	}
}

func TestPartNotFound(t *testing.T) {
	path := createTestPackage(t, map[string]string{"a.xml": "<a/>"})

	pkg, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pkg.Close()

	_, err = pkg.Part("missing.xml")
	if !errors.Is(err, ErrPartNotFound) {
		t.Errorf("Part(missing) error = %v, want ErrPartNotFound", err)
	}
}

func TestCorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pptx")
	if err := os.WriteFile(path, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrCorruptArchive) {
		t.Errorf("Open(broken) error = %v, want ErrCorruptArchive", err)
	}
}

func TestRelationships(t *testing.T) {
	path := createTestPackage(t, map[string]string{
		"ppt/slides/slide1.xml": "<sld/>",
		"ppt/slides/_rels/slide1.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/video" Target="https://example.com/v.mp4" TargetMode="External"/>
</Relationships>`,
	})

	pkg, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pkg.Close()

	rels, err := pkg.Relationships("ppt/slides/slide1.xml")
	if err != nil {
		t.Fatalf("Relationships: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("got %d relationships, want 2", len(rels))
	}

	img := rels["rId1"]
	if img.Target != "../media/image1.png" {
		t.Errorf("rId1 target = %q", img.Target)
	}
	if img.External() {
		t.Error("rId1 should not be external")
	}

	vid := rels["rId2"]
	if !vid.External() {
		t.Error("rId2 should be external")
	}
}

func TestRelationshipsMissingRelsFile(t *testing.T) {
	path := createTestPackage(t, map[string]string{"ppt/slides/slide1.xml": "<sld/>"})

	pkg, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pkg.Close()

	rels, err := pkg.Relationships("ppt/slides/slide1.xml")
	if err != nil {
		t.Fatalf("Relationships: %v", err)
	}
	if len(rels) != 0 {
		t.Errorf("got %d relationships for part without .rels, want 0", len(rels))
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		part   string
		rel    Relationship
		want   string
	}{
		{"ppt/slides/slide1.xml", Relationship{Target: "../media/image1.png"}, "ppt/media/image1.png"},
		{"ppt/slides/slide1.xml", Relationship{Target: "../diagrams/data1.xml"}, "ppt/diagrams/data1.xml"},
		{"ppt/presentation.xml", Relationship{Target: "slides/slide1.xml"}, "ppt/slides/slide1.xml"},
		{"ppt/slides/slide1.xml", Relationship{Target: "/ppt/media/a.png"}, "ppt/media/a.png"},
		{"ppt/slides/slide1.xml", Relationship{Target: `..\media\b.png`}, "ppt/media/b.png"},
		{"ppt/slides/slide1.xml", Relationship{Target: "https://example.com/v.mp4", TargetMode: "External"}, "https://example.com/v.mp4"},
	}

	for _, tt := range tests {
		got := ResolveTarget(tt.part, tt.rel)
		if got != tt.want {
			t.Errorf("ResolveTarget(%q, %q) = %q, want %q", tt.part, tt.rel.Target, got, tt.want)
		}
	}
}

func TestRelsPath(t *testing.T) {
	tests := []struct{ part, want string }{
		{"ppt/slides/slide1.xml", "ppt/slides/_rels/slide1.xml.rels"},
		{"ppt/presentation.xml", "ppt/_rels/presentation.xml.rels"},
		{"presentation.xml", "_rels/presentation.xml.rels"},
	}
	for _, tt := range tests {
		if got := relsPath(tt.part); got != tt.want {
			t.Errorf("relsPath(%q) = %q, want %q", tt.part, got, tt.want)
		}
	}
}
