// Package smartart resolves SmartArt diagrams into node trees. A
// diagram's geometry and its semantic content live in separate XML
// parts: the slide's graphic frame carries relationship IDs pointing at
// a data part (dgm:dataModel) holding the point list and connection
// list, and a layout part holding the layout title. The data part mixes
// layout-only presentation points with content points; only content
// points become nodes.
package smartart

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/jsvoboda/decktree/model"
	"github.com/jsvoboda/decktree/opc"
)

// DiagramURI is the graphicData namespace URI that marks a graphic
// frame as a SmartArt diagram.
const DiagramURI = "http://schemas.openxmlformats.org/drawingml/2006/diagram"

// ErrDiagramDataMissing is returned when the shape's data-part
// relationship cannot be resolved. Callers downgrade the block, the
// slide survives.
var ErrDiagramDataMissing = errors.New("smartart: diagram data part missing")

// AssetWriter stores an extracted icon payload and returns the src path
// to record on the node.
type AssetWriter interface {
	WriteAsset(tag, ext string, data []byte) (string, error)
}

// RelIDs are the relationship IDs found on a diagram graphic frame.
type RelIDs struct {
	Data   string // r:dm, the data part with points and connections
	Layout string // r:lo, the layout part with the diagram title
}

// Diagram is a resolved SmartArt object.
type Diagram struct {
	Layout string
	Nodes  []model.SmartArtNode
}

// dataModel is the dgm:dataModel root of a diagram data part.
type dataModel struct {
	PtLst struct {
		Pts []point `xml:"pt"`
	} `xml:"ptLst"`
	CxnLst struct {
		Cxns []connection `xml:"cxn"`
	} `xml:"cxnLst"`
}

// point is one dgm:pt. Text, icon references and accessibility
// attributes are serialized at varying nesting depths depending on the
// diagram layout, so the inner XML is kept raw and scanned.
type point struct {
	ModelID string `xml:"modelId,attr"`
	Type    string `xml:"type,attr"`
	Inner   []byte `xml:",innerxml"`
}

type connection struct {
	Type   string `xml:"type,attr"`
	SrcID  string `xml:"srcId,attr"`
	DestID string `xml:"destId,attr"`
}

// Resolve follows the data-part relationship of a diagram shape through
// the slide's relationship table, parses the point and connection
// lists, and builds the pruned node tree. Icon payloads are written
// through assets with a "sa_<modelID>" tag. The tagPrefix (typically
// the slide number) namespaces icon assets within the presentation.
func Resolve(pkg *opc.Package, slidePart string, ids RelIDs, assets AssetWriter, tagPrefix string) (*Diagram, error) {
	if ids.Data == "" {
		return nil, fmt.Errorf("%w: no data relationship on shape", ErrDiagramDataMissing)
	}

	rels, err := pkg.Relationships(slidePart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiagramDataMissing, err)
	}

	rel, ok := rels[ids.Data]
	if !ok {
		return nil, fmt.Errorf("%w: relationship %s unresolved", ErrDiagramDataMissing, ids.Data)
	}

	dataPart := opc.ResolveTarget(slidePart, rel)
	data, err := pkg.Part(dataPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiagramDataMissing, err)
	}

	nodes, err := buildTree(pkg, dataPart, data, assets, tagPrefix)
	if err != nil {
		return nil, err
	}

	return &Diagram{
		Layout: layoutTitle(pkg, slidePart, ids.Layout),
		Nodes:  nodes,
	}, nil
}

// buildTree parses a diagram data part into a pruned node forest.
func buildTree(pkg *opc.Package, dataPart string, data []byte, assets AssetWriter, tagPrefix string) ([]model.SmartArtNode, error) {
	var dm dataModel
	if err := xml.Unmarshal(data, &dm); err != nil {
		return nil, fmt.Errorf("parsing diagram data part %s: %w", dataPart, err)
	}

	// Presentation points carry geometry only. Exclude them before any
	// text search: the destination of every presOf/presParOf connection
	// plus points explicitly typed "pres".
	presPoints := make(map[string]bool)
	for _, cxn := range dm.CxnLst.Cxns {
		switch cxn.Type {
		case "presOf", "presParOf":
			presPoints[cxn.DestID] = true
		}
	}
	for _, pt := range dm.PtLst.Pts {
		if pt.Type == "pres" {
			presPoints[pt.ModelID] = true
		}
	}

	// Arena of candidate nodes indexed by model ID; the owned tree is
	// assembled only after all edges are known.
	type arenaNode struct {
		node     model.SmartArtNode
		children []string
	}
	arena := make(map[string]*arenaNode)
	var order []string // point-list order, for deterministic orphan placement
	docRoot := ""

	dataRels, err := pkg.Relationships(dataPart)
	if err != nil {
		slog.Debug("smartart: no relationships for data part", "part", dataPart, "error", err)
		dataRels = map[string]opc.Relationship{}
	}

	for _, pt := range dm.PtLst.Pts {
		if pt.ModelID == "" || presPoints[pt.ModelID] {
			continue
		}
		if pt.Type == "doc" && docRoot == "" {
			docRoot = pt.ModelID
		}

		n := model.SmartArtNode{ID: pt.ModelID, Text: pointText(pt.Inner)}
		n.Icon, n.IconAlt = pointIcon(pkg, dataPart, dataRels, pt, assets, tagPrefix)

		arena[pt.ModelID] = &arenaNode{node: n}
		order = append(order, pt.ModelID)
	}

	// parOf connections define parent→child edges, in connection order.
	hasParent := make(map[string]bool)
	for _, cxn := range dm.CxnLst.Cxns {
		if cxn.Type != "" && cxn.Type != "parOf" {
			continue
		}
		parent, child := arena[cxn.SrcID], arena[cxn.DestID]
		if parent == nil || child == nil {
			continue
		}
		parent.children = append(parent.children, cxn.DestID)
		hasParent[cxn.DestID] = true
	}

	// Convert the arena to an owned tree. Points never referenced as a
	// child and not the doc root are orphans: they become top-level
	// nodes in point-list order, never dropped. A visited guard keeps
	// malformed cyclic connection lists from recursing forever.
	visited := make(map[string]bool)
	var build func(id string, level int) model.SmartArtNode
	build = func(id string, level int) model.SmartArtNode {
		visited[id] = true
		an := arena[id]
		n := an.node
		n.Level = level
		n.Children = nil
		for _, cid := range an.children {
			if visited[cid] {
				continue
			}
			n.Children = append(n.Children, build(cid, level+1))
		}
		return n
	}

	var roots []model.SmartArtNode
	for _, id := range order {
		if hasParent[id] || visited[id] {
			continue
		}
		roots = append(roots, build(id, 0))
	}

	// The emitted forest hangs off the diagram's top-level layout, not
	// any single point: a textless, iconless doc root is dissolved and
	// its children promoted.
	var forest []model.SmartArtNode
	for _, r := range roots {
		if r.ID == docRoot && strings.TrimSpace(r.Text) == "" && r.Icon == "" && len(r.Children) > 0 {
			forest = append(forest, r.Children...)
		} else {
			forest = append(forest, r)
		}
	}
	renumber(forest, 0)

	return Prune(forest), nil
}

// renumber rewrites levels from zero at the emitted roots after doc
// root promotion.
func renumber(nodes []model.SmartArtNode, level int) {
	for i := range nodes {
		nodes[i].Level = level
		renumber(nodes[i].Children, level+1)
	}
}

// Prune removes nodes that have no text, no icon and no remaining
// children, bottom-up. Removing a node can empty its parent, so
// children are pruned first; a single bottom-up pass reaches the fixed
// point and the operation is idempotent.
func Prune(nodes []model.SmartArtNode) []model.SmartArtNode {
	var kept []model.SmartArtNode
	for _, n := range nodes {
		n.Children = Prune(n.Children)
		if strings.TrimSpace(n.Text) != "" || n.Icon != "" || len(n.Children) > 0 {
			kept = append(kept, n)
		}
	}
	return kept
}

// textStrategy is one candidate location for a point's text. Different
// diagram layouts serialize text at different nesting depths, so the
// strategies are an ordered contract: first non-empty match wins.
type textStrategy struct {
	name      string
	container string // dgm element under the point holding a:p paragraphs
}

var textStrategies = []textStrategy{
	{name: "data-text", container: "t"},
	{name: "text-body", container: "txBody"},
}

// pointText extracts a point's text by trying each strategy in order.
func pointText(inner []byte) string {
	for _, s := range textStrategies {
		if txt := containerText(inner, s.container); txt != "" {
			return txt
		}
	}
	return ""
}

// diagramNS reports whether an element name is in the diagram
// namespace. Inner-XML fragments lack the root's xmlns declarations, so
// the decoder surfaces the raw "dgm" prefix for them; both spellings
// are accepted.
func diagramNS(name xml.Name) bool {
	return name.Space == DiagramURI || name.Space == "dgm"
}

// containerText collects run text inside the named dgm container
// element (dgm:t or dgm:txBody): paragraphs joined by newlines, runs
// within a paragraph concatenated. The namespace check matters: the
// dgm:t container and the a:t run element share a local name.
func containerText(inner []byte, container string) string {
	dec := xml.NewDecoder(bytes.NewReader(inner))

	depth := 0      // element nesting inside the container (0 = outside)
	inPara := false // inside an a:p
	inRun := false  // inside an a:t
	var paras []string
	var cur strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case depth == 0:
				if t.Name.Local == container && diagramNS(t.Name) {
					depth = 1
				}
			default:
				depth++
				switch t.Name.Local {
				case "p":
					inPara = true
					cur.Reset()
				case "t":
					inRun = inPara
				}
			}
		case xml.CharData:
			if inRun {
				cur.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				continue
			}
			depth--
			switch t.Name.Local {
			case "t":
				if depth > 0 {
					inRun = false
				}
			case "p":
				if inPara {
					paras = append(paras, cur.String())
					inPara = false
				}
			}
			if depth == 0 && len(paras) > 0 {
				return strings.Join(paras, "\n")
			}
		}
	}
	return strings.Join(paras, "\n")
}

// pointIcon extracts an embedded image reference from a point's shape
// properties: the first a:blip r:embed is resolved through the data
// part's relationships and the payload written as a media asset. Alt
// text comes from the point's cNvPr descr (or title).
func pointIcon(pkg *opc.Package, dataPart string, rels map[string]opc.Relationship, pt point, assets AssetWriter, tagPrefix string) (icon, alt string) {
	alt = scanAttr(pt.Inner, "cNvPr", "descr")
	if alt == "" {
		alt = scanAttr(pt.Inner, "cNvPr", "title")
	}

	embed := scanAttr(pt.Inner, "blip", "embed")
	if embed == "" {
		return "", alt
	}

	rel, ok := rels[embed]
	if !ok {
		slog.Debug("smartart: icon relationship unresolved", "rId", embed, "point", pt.ModelID)
		return "", alt
	}

	mediaPart := opc.ResolveTarget(dataPart, rel)
	data, err := pkg.Part(mediaPart)
	if err != nil {
		slog.Debug("smartart: icon part unreadable", "part", mediaPart, "error", err)
		return "", alt
	}

	tag := tagPrefix + "_sa_" + sanitizeModelID(pt.ModelID)
	src, err := assets.WriteAsset(tag, path.Ext(mediaPart), data)
	if err != nil {
		slog.Debug("smartart: writing icon asset failed", "tag", tag, "error", err)
		return "", alt
	}
	return src, alt
}

// sanitizeModelID strips GUID punctuation so a model ID is usable in a
// file name.
func sanitizeModelID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '{', '}', '-':
			return -1
		}
		return r
	}, id)
}

// scanAttr returns the given attribute of the first matching element
// anywhere in the fragment.
func scanAttr(inner []byte, element, attr string) string {
	dec := xml.NewDecoder(bytes.NewReader(inner))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != element {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Local == attr {
				return a.Value
			}
		}
		return ""
	}
	return ""
}

// layoutTitle resolves the diagram's layout part and returns its title.
// Best effort: a missing layout is an empty name, never an error.
func layoutTitle(pkg *opc.Package, slidePart, layoutRelID string) string {
	if layoutRelID == "" {
		return ""
	}
	rels, err := pkg.Relationships(slidePart)
	if err != nil {
		return ""
	}
	rel, ok := rels[layoutRelID]
	if !ok {
		return ""
	}
	data, err := pkg.Part(opc.ResolveTarget(slidePart, rel))
	if err != nil {
		return ""
	}

	var layout struct {
		Title struct {
			Val string `xml:"val,attr"`
		} `xml:"title"`
	}
	if err := xml.Unmarshal(data, &layout); err != nil {
		return ""
	}
	return layout.Title.Val
}

// SalvageText collects whatever plain run text a shape fragment
// carries, for the paragraph downgrade when a diagram cannot be
// resolved.
func SalvageText(shapeXML []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(shapeXML))
	var parts []string
	inT := false
	var cur strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inT = true
				cur.Reset()
			}
		case xml.CharData:
			if inT {
				cur.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "t" && inT {
				if s := strings.TrimSpace(cur.String()); s != "" {
					parts = append(parts, s)
				}
				inT = false
			}
		}
	}
	return strings.Join(parts, "\n")
}
