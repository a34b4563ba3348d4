package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"log/slog"
	"path"
	"strings"

	"github.com/jsvoboda/decktree/model"
	"github.com/jsvoboda/decktree/opc"
	"github.com/jsvoboda/decktree/smartart"

	// Extend image sniffing beyond the stdlib formats; presentations
	// routinely embed bmp and tiff media.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const tableURI = "http://schemas.openxmlformats.org/drawingml/2006/table"

// slideResult pairs an extracted slide with its media tally.
type slideResult struct {
	slide  model.Slide
	images int
}

// extractSlide converts one slide part into a model.Slide. Shape- and
// block-level failures degrade locally; only an unreadable or
// unparsable slide part returns an error.
func (e *Extractor) extractSlide(partName string, order int) (slideResult, error) {
	res := slideResult{slide: model.Slide{Order: order, Content: []model.Block{}}}

	data, err := e.pkg.Part(partName)
	if err != nil {
		return res, fmt.Errorf("reading slide part: %w", err)
	}

	shapes, err := collectShapes(data)
	if err != nil {
		return res, fmt.Errorf("slide %d: %w", order, err)
	}
	sortReadingOrder(shapes)

	res.slide.Layout = e.layoutName(partName)
	res.slide.Notes = e.notesText(partName)

	// Diagram resolutions are cached per relationship ID for the
	// duration of this slide: a data part referenced by two shapes is
	// parsed once.
	diagramCache := map[string]*smartart.Diagram{}

	for _, s := range shapes {
		blocks, images := e.classifyShape(partName, order, s, diagramCache)
		res.slide.Content = append(res.slide.Content, blocks...)
		res.images += images

		if res.slide.Title == "" {
			if h, ok := titleHeading(s); ok {
				res.slide.Title = h
			}
		}
	}

	return res, nil
}

// titleHeading returns the shape's text when it is a title placeholder.
func titleHeading(s shape) (string, bool) {
	if s.kind != kindShape || s.sp == nil {
		return "", false
	}
	ph := s.sp.NvSpPr.NvPr.Ph
	if ph == nil {
		return "", false
	}
	switch ph.Type {
	case "title", "ctrTitle":
		text := bodyText(s.sp.TxBody)
		return text, text != ""
	}
	return "", false
}

// classifyShape converts one sorted shape into zero or more content
// blocks. Unrecognized shapes are dropped, never fatal.
func (e *Extractor) classifyShape(partName string, order int, s shape, cache map[string]*smartart.Diagram) ([]model.Block, int) {
	switch s.kind {
	case kindFrame:
		return e.classifyFrame(partName, order, s, cache)
	case kindPicture:
		return e.classifyPicture(partName, order, s)
	case kindShape:
		return e.classifyTextShape(partName, order, s)
	}
	return nil, 0
}

// classifyFrame handles graphic frames: tables, diagrams, and anything
// else (charts, OLE objects) which is skipped.
func (e *Extractor) classifyFrame(partName string, order int, s shape, cache map[string]*smartart.Diagram) ([]model.Block, int) {
	gd := s.frame.Graphic.GraphicData

	switch {
	case gd.Tbl != nil || gd.URI == tableURI:
		if gd.Tbl == nil {
			return nil, 0
		}
		return []model.Block{tableBlock(gd.Tbl)}, 0

	case gd.URI == smartart.DiagramURI:
		return e.resolveDiagram(partName, order, s, cache), 0
	}

	slog.Debug("extract: skipping graphic frame", "uri", gd.URI, "slide", order)
	return nil, 0
}

// resolveDiagram delegates to the smartart package and downgrades any
// failure to a paragraph holding whatever text the shape carries.
func (e *Extractor) resolveDiagram(partName string, order int, s shape, cache map[string]*smartart.Diagram) []model.Block {
	ids := smartart.RelIDs{}
	if r := s.frame.Graphic.GraphicData.RelIDs; r != nil {
		ids = smartart.RelIDs{Data: r.DM, Layout: r.LO}
	}

	diagram, ok := cache[ids.Data]
	if !ok {
		var err error
		diagram, err = smartart.Resolve(e.pkg, partName, ids, e.assets, fmt.Sprintf("%d", order))
		if err != nil {
			slog.Warn("extract: diagram downgraded to paragraph",
				"slide", order, "rId", ids.Data, "error", err)
			return []model.Block{model.Paragraph(smartart.SalvageText(s.raw))}
		}
		cache[ids.Data] = diagram
	}

	return []model.Block{model.SmartArt(diagram.Layout, diagram.Nodes)}
}

// classifyPicture handles p:pic shapes: embedded video/audio first,
// then plain images.
func (e *Extractor) classifyPicture(partName string, order int, s shape) ([]model.Block, int) {
	nv := s.pic.NvPicPr
	if blocks := e.mediaBlocks(partName, order, nv.CNvPr, nv.NvPr); blocks != nil {
		return blocks, 0
	}

	if s.pic.BlipFill.Blip == nil || s.pic.BlipFill.Blip.Embed == "" {
		return nil, 0
	}

	src := e.writeImage(partName, order, nv.CNvPr.ID, s.pic.BlipFill.Blip.Embed)
	if src == "" {
		return nil, 0
	}

	alt := nv.CNvPr.Descr
	if alt == "" {
		alt = nv.CNvPr.Name
	}
	return []model.Block{model.Image(src, alt)}, 1
}

// classifyTextShape handles p:sp shapes: placeholder headings, embedded
// media markers, and text bodies.
func (e *Extractor) classifyTextShape(partName string, order int, s shape) ([]model.Block, int) {
	nv := s.sp.NvSpPr
	if blocks := e.mediaBlocks(partName, order, nv.CNvPr, nv.NvPr); blocks != nil {
		return blocks, 0
	}

	if ph := nv.NvPr.Ph; ph != nil {
		switch ph.Type {
		case "title", "ctrTitle":
			if text := bodyText(s.sp.TxBody); text != "" {
				return []model.Block{model.Heading(text, 1)}, 0
			}
			return nil, 0
		case "subTitle":
			if text := bodyText(s.sp.TxBody); text != "" {
				return []model.Block{model.Heading(text, 2)}, 0
			}
			return nil, 0
		case "sldNum", "dt", "ftr", "hdr":
			// Chrome placeholders carry no slide content.
			return nil, 0
		}
	}

	return classifyTextBody(s.sp.TxBody), 0
}

// mediaBlocks emits video/audio blocks for shapes carrying a
// videoFile/audioFile marker. External links become a video block with
// the URL as src; embedded media parts are extracted to the slide's
// namespace. Returns nil when the shape carries no media marker.
func (e *Extractor) mediaBlocks(partName string, order int, id cNvPr, nv nvPr) []model.Block {
	title := id.Name
	if title == "" {
		title = "Media"
	}

	marker := nv.VideoFile
	build := func(src, title string) model.Block { return model.Video(src, title) }
	if marker == nil && nv.AudioFile != nil {
		marker = nv.AudioFile
		build = func(src, title string) model.Block { return model.Audio(src, title) }
	}
	if marker == nil {
		return nil
	}

	// External URL (streamed video) takes precedence.
	if marker.Link != "" {
		if rels, err := e.pkg.Relationships(partName); err == nil {
			if rel, ok := rels[marker.Link]; ok && rel.External() &&
				(strings.HasPrefix(rel.Target, "http://") || strings.HasPrefix(rel.Target, "https://")) {
				return []model.Block{build(rel.Target, title)}
			}
		}
	}

	// Embedded media rides on the p14:media extension.
	if nv.Media == nil || nv.Media.Embed == "" {
		slog.Debug("extract: media marker without embedded part", "slide", order, "shape", id.ID)
		return nil
	}

	rels, err := e.pkg.Relationships(partName)
	if err != nil {
		return nil
	}
	rel, ok := rels[nv.Media.Embed]
	if !ok {
		slog.Debug("extract: media relationship unresolved", "rId", nv.Media.Embed, "slide", order)
		return nil
	}

	mediaPart := opc.ResolveTarget(partName, rel)
	data, err := e.pkg.Part(mediaPart)
	if err != nil {
		slog.Debug("extract: media part unreadable", "part", mediaPart, "error", err)
		return nil
	}

	tag := fmt.Sprintf("%d_%s", order, id.ID)
	src, err := e.assets.WriteAsset(tag, path.Ext(mediaPart), data)
	if err != nil {
		slog.Debug("extract: writing media asset failed", "tag", tag, "error", err)
		return nil
	}
	return []model.Block{build(src, title)}
}

// writeImage resolves a blip relationship and writes the payload as a
// media asset, returning its src path ("" on any failure).
func (e *Extractor) writeImage(partName string, order int, shapeID, embed string) string {
	rels, err := e.pkg.Relationships(partName)
	if err != nil {
		return ""
	}
	rel, ok := rels[embed]
	if !ok {
		slog.Debug("extract: image relationship unresolved", "rId", embed, "slide", order)
		return ""
	}

	mediaPart := opc.ResolveTarget(partName, rel)
	data, err := e.pkg.Part(mediaPart)
	if err != nil {
		slog.Debug("extract: image part unreadable", "part", mediaPart, "error", err)
		return ""
	}

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		slog.Debug("extract: image", "slide", order, "format", format,
			"width", cfg.Width, "height", cfg.Height)
	}

	tag := fmt.Sprintf("%d_%s", order, shapeID)
	src, err := e.assets.WriteAsset(tag, path.Ext(mediaPart), data)
	if err != nil {
		slog.Debug("extract: writing image asset failed", "tag", tag, "error", err)
		return ""
	}
	return src
}

// tableBlock flattens a DrawingML table to string cells; cell
// paragraphs join with newlines.
func tableBlock(t *tbl) model.TableBlock {
	rows := make([][]string, 0, len(t.Rows))
	for _, tr := range t.Rows {
		cells := make([]string, 0, len(tr.Cells))
		for _, tc := range tr.Cells {
			cells = append(cells, bodyText(tc.TxBody))
		}
		rows = append(rows, cells)
	}
	return model.Table(rows)
}

// layoutName resolves the slide's layout part and returns its display
// name; best effort.
func (e *Extractor) layoutName(partName string) string {
	data, ok := e.relatedPart(partName, "/slideLayout")
	if !ok {
		return ""
	}
	var layout struct {
		CSld struct {
			Name string `xml:"name,attr"`
		} `xml:"cSld"`
	}
	if err := xml.Unmarshal(data, &layout); err != nil {
		return ""
	}
	return layout.CSld.Name
}

// notesText resolves the slide's notes part and returns its plain text.
func (e *Extractor) notesText(partName string) string {
	data, ok := e.relatedPart(partName, "/notesSlide")
	if !ok {
		return ""
	}

	shapes, err := collectShapes(data)
	if err != nil {
		return ""
	}

	var parts []string
	for _, s := range shapes {
		if s.kind != kindShape || s.sp == nil {
			continue
		}
		// Slide-number and header/footer placeholders are chrome.
		if ph := s.sp.NvSpPr.NvPr.Ph; ph != nil && ph.Type != "body" {
			continue
		}
		if t := bodyText(s.sp.TxBody); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// relatedPart returns the first related part whose relationship type
// ends with the given suffix.
func (e *Extractor) relatedPart(partName, typeSuffix string) ([]byte, bool) {
	rels, err := e.pkg.Relationships(partName)
	if err != nil {
		return nil, false
	}
	for _, rel := range rels {
		if strings.HasSuffix(rel.Type, typeSuffix) && !rel.External() {
			data, err := e.pkg.Part(opc.ResolveTarget(partName, rel))
			if err != nil {
				return nil, false
			}
			return data, true
		}
	}
	return nil, false
}
