package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
)

// shapeKind discriminates the slide-level shape elements the classifier
// understands. Anything else in the shape tree is skipped at collection
// time: a single unrecognized shape never aborts slide processing.
type shapeKind int

const (
	kindShape shapeKind = iota // p:sp, text containers and placeholders
	kindPicture                // p:pic, images and embedded media
	kindFrame                  // p:graphicFrame, tables and diagrams
)

// shape is one collected shape with its sort key and decoded payload.
type shape struct {
	kind  shapeKind
	top   int64 // EMU y of the shape transform offset, 0 when inherited
	left  int64 // EMU x
	index int   // original document order, the stable tie-break
	raw   []byte

	sp    *spElement
	pic   *picElement
	frame *frameElement
}

// cNvPr carries a shape's non-visual identity: numeric id, name and
// accessibility text.
type cNvPr struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Descr string `xml:"descr,attr"`
	Title string `xml:"title,attr"`
}

// placeholder is p:ph inside nvPr.
type placeholder struct {
	Type string `xml:"type,attr"`
	Idx  string `xml:"idx,attr"`
}

// mediaFile is a:videoFile / a:audioFile; the r:link attribute points
// at a relationship (external URL or legacy media reference).
type mediaFile struct {
	Link string `xml:"link,attr"`
}

// nvPr holds placeholder and media markers. Embedded modern media
// (p14:media) hides inside the extension list.
type nvPr struct {
	Ph        *placeholder `xml:"ph"`
	VideoFile *mediaFile   `xml:"videoFile"`
	AudioFile *mediaFile   `xml:"audioFile"`
	Media     *struct {
		Embed string `xml:"embed,attr"`
	} `xml:"extLst>ext>media"`
}

type offset struct {
	X int64 `xml:"x,attr"`
	Y int64 `xml:"y,attr"`
}

type xfrm struct {
	Off *offset `xml:"off"`
}

type spPr struct {
	Xfrm *xfrm `xml:"xfrm"`
}

// spElement is p:sp.
type spElement struct {
	NvSpPr struct {
		CNvPr cNvPr `xml:"cNvPr"`
		NvPr  nvPr  `xml:"nvPr"`
	} `xml:"nvSpPr"`
	SpPr   spPr    `xml:"spPr"`
	TxBody *txBody `xml:"txBody"`
}

// picElement is p:pic.
type picElement struct {
	NvPicPr struct {
		CNvPr cNvPr `xml:"cNvPr"`
		NvPr  nvPr  `xml:"nvPr"`
	} `xml:"nvPicPr"`
	BlipFill struct {
		Blip *struct {
			Embed string `xml:"embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
	SpPr spPr `xml:"spPr"`
}

// relIDs is dgm:relIds on a diagram graphic frame.
type relIDs struct {
	DM string `xml:"dm,attr"`
	LO string `xml:"lo,attr"`
}

// graphicData discriminates a graphic frame's payload by namespace URI.
type graphicData struct {
	URI    string   `xml:"uri,attr"`
	Tbl    *tbl     `xml:"tbl"`
	RelIDs *relIDs  `xml:"relIds"`
}

// frameElement is p:graphicFrame. Inner keeps the raw markup so the
// diagram fallback can salvage whatever plain text the frame carries.
type frameElement struct {
	NvGraphicFramePr struct {
		CNvPr cNvPr `xml:"cNvPr"`
		NvPr  nvPr  `xml:"nvPr"`
	} `xml:"nvGraphicFramePr"`
	Xfrm    *xfrm `xml:"xfrm"`
	Graphic struct {
		GraphicData graphicData `xml:"graphicData"`
	} `xml:"graphic"`
	Inner []byte `xml:",innerxml"`
}

// tbl is a:tbl inside a table graphic frame.
type tbl struct {
	Rows []tblRow `xml:"tr"`
}

type tblRow struct {
	Cells []tblCell `xml:"tc"`
}

type tblCell struct {
	TxBody *txBody `xml:"txBody"`
}

// txBody is a DrawingML text body: an ordered list of paragraphs.
type txBody struct {
	Paras []textPara `xml:"p"`
}

// textPara is a:p with its paragraph properties and runs.
type textPara struct {
	PPr  *paraProps `xml:"pPr"`
	Runs []textRun  `xml:"r"`
}

type textRun struct {
	T string `xml:"t"`
}

// paraProps carries the bullet/numbering markers that drive list
// classification.
type paraProps struct {
	Lvl       int       `xml:"lvl,attr"`
	BuNone    *struct{} `xml:"buNone"`
	BuChar    *struct {
		Char string `xml:"char,attr"`
	} `xml:"buChar"`
	BuAutoNum *struct {
		Type string `xml:"type,attr"`
	} `xml:"buAutoNum"`
}

// collectShapes walks a slide part's shape tree and returns the direct
// children of p:spTree that the classifier understands, in document
// order, each with its raw XML retained for diagram salvage.
func collectShapes(slideXML []byte) ([]shape, error) {
	dec := xml.NewDecoder(bytes.NewReader(slideXML))

	var shapes []shape
	inTree := 0 // depth relative to spTree; 1 = direct children

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing slide shape tree: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if inTree == 0 {
				if t.Name.Local == "spTree" {
					inTree = 1
				}
				continue
			}
			if inTree > 1 {
				inTree++
				continue
			}

			s := shape{index: len(shapes)}
			switch t.Name.Local {
			case "sp":
				var el spElement
				if err := dec.DecodeElement(&el, &t); err != nil {
					return nil, fmt.Errorf("decoding <sp>: %w", err)
				}
				s.kind, s.sp = kindShape, &el
				setSortKey(&s, el.SpPr.Xfrm)
			case "pic":
				var el picElement
				if err := dec.DecodeElement(&el, &t); err != nil {
					return nil, fmt.Errorf("decoding <pic>: %w", err)
				}
				s.kind, s.pic = kindPicture, &el
				setSortKey(&s, el.SpPr.Xfrm)
			case "graphicFrame":
				var el frameElement
				if err := dec.DecodeElement(&el, &t); err != nil {
					return nil, fmt.Errorf("decoding <graphicFrame>: %w", err)
				}
				s.kind, s.frame, s.raw = kindFrame, &el, el.Inner
				setSortKey(&s, el.Xfrm)
			default:
				// grpSp, cxnSp, contentPart: skipped silently.
				inTree++
				continue
			}
			shapes = append(shapes, s)

		case xml.EndElement:
			if inTree > 0 {
				inTree--
			}
		}
	}
	return shapes, nil
}

func setSortKey(s *shape, x *xfrm) {
	if x != nil && x.Off != nil {
		s.top, s.left = x.Off.Y, x.Off.X
	}
}

// sortReadingOrder orders shapes top-then-left as an approximation of
// human reading order. The sort is stable: shapes sharing coordinates
// (a full-bleed background behind foreground text) keep document order.
// Rotated, overlapping and multi-column layouts get no special
// handling; that limitation is deliberate.
func sortReadingOrder(shapes []shape) {
	sort.SliceStable(shapes, func(i, j int) bool {
		if shapes[i].top != shapes[j].top {
			return shapes[i].top < shapes[j].top
		}
		return shapes[i].left < shapes[j].left
	})
}
