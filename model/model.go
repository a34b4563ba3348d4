// Package model defines the extracted presentation tree: sections of
// slides, each slide an ordered list of typed content blocks. This is
// the JSON boundary contract other components consume, so field names
// and the block-type vocabulary are fixed.
package model

import (
	"encoding/json"
	"fmt"
)

// Block type discriminators. The set is closed; unrecognized source
// shapes are dropped during extraction, never serialized.
const (
	TypeHeading   = "heading"
	TypeParagraph = "paragraph"
	TypeList      = "list"
	TypeImage     = "image"
	TypeTable     = "table"
	TypeSmartArt  = "smart_art"
	TypeVideo     = "video"
	TypeAudio     = "audio"
)

// Block is one typed content block of a slide.
type Block interface {
	BlockType() string
}

// HeadingBlock is a slide title (level 1) or subtitle (level 2).
type HeadingBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

func (b HeadingBlock) BlockType() string { return TypeHeading }

// ParagraphBlock is a non-bulleted run of text. Also the downgrade
// target for diagrams whose data part cannot be resolved.
type ParagraphBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (b ParagraphBlock) BlockType() string { return TypeParagraph }

// ListItem is one bullet. Level is zero-based depth; deeper bullets
// nest under Children, so a list is an ordered tree.
type ListItem struct {
	Text     string     `json:"text"`
	Level    int        `json:"level"`
	Children []ListItem `json:"children"`
}

// ListBlock groups consecutive bulleted paragraphs.
type ListBlock struct {
	Type  string     `json:"type"`
	Style string     `json:"style"` // "bullet" or "numbered"
	Items []ListItem `json:"items"`
}

func (b ListBlock) BlockType() string { return TypeList }

// ImageBlock references an extracted media asset.
type ImageBlock struct {
	Type    string `json:"type"`
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

func (b ImageBlock) BlockType() string { return TypeImage }

// TableBlock holds cell text row by row. Header rows are not
// distinguished here; that is a presentation concern.
type TableBlock struct {
	Type string     `json:"type"`
	Rows [][]string `json:"rows"`
}

func (b TableBlock) BlockType() string { return TypeTable }

// SmartArtNode is one node of a resolved diagram tree. After pruning no
// node is simultaneously textless, iconless and childless.
type SmartArtNode struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Children []SmartArtNode `json:"children"`
	Level    int            `json:"level"`
	Icon     string         `json:"icon,omitempty"`
	IconAlt  string         `json:"icon_alt,omitempty"`
}

// SmartArtBlock is a resolved diagram: the layout name and the pruned
// node forest under the diagram's top-level layout.
type SmartArtBlock struct {
	Type   string         `json:"type"`
	Layout string         `json:"layout"`
	Nodes  []SmartArtNode `json:"nodes"`
}

func (b SmartArtBlock) BlockType() string { return TypeSmartArt }

// VideoBlock references an extracted video asset or, for linked media,
// an external URL.
type VideoBlock struct {
	Type  string `json:"type"`
	Src   string `json:"src"`
	Title string `json:"title"`
}

func (b VideoBlock) BlockType() string { return TypeVideo }

// AudioBlock references an extracted audio asset.
type AudioBlock struct {
	Type  string `json:"type"`
	Src   string `json:"src"`
	Title string `json:"title"`
}

func (b AudioBlock) BlockType() string { return TypeAudio }

// Slide is one slide: 1-based contiguous order, optional title, layout
// name, plain-text notes, and content blocks in reading order.
type Slide struct {
	Order   int     `json:"order"`
	Title   string  `json:"title"`
	Layout  string  `json:"layout"`
	Notes   string  `json:"notes"`
	Content []Block `json:"content"`
}

// Section is an ordered group of slides. Sections are a flat partition:
// every slide belongs to exactly one section.
type Section struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Stats are the root-level counters.
type Stats struct {
	SlideCount int `json:"slide_count"`
	ImageCount int `json:"image_count"`
}

// Metadata identifies the source document and the run that produced
// the tree.
type Metadata struct {
	ID          string `json:"id"`
	SourceFile  string `json:"source_file"`
	ProcessedAt string `json:"processed_at"`
	Stats       Stats  `json:"stats"`
}

// Presentation is the root of the extracted tree. Immutable once
// produced; reprocessing regenerates it wholesale.
type Presentation struct {
	Metadata Metadata  `json:"metadata"`
	Sections []Section `json:"sections"`
}

// SlideCount returns the total number of slides across all sections.
func (p *Presentation) SlideCount() int {
	n := 0
	for _, sec := range p.Sections {
		n += len(sec.Slides)
	}
	return n
}

// UnmarshalJSON decodes the polymorphic content array by its "type"
// discriminator so a serialized tree round-trips into the same concrete
// block types.
func (s *Slide) UnmarshalJSON(data []byte) error {
	type slideAlias struct {
		Order   int               `json:"order"`
		Title   string            `json:"title"`
		Layout  string            `json:"layout"`
		Notes   string            `json:"notes"`
		Content []json.RawMessage `json:"content"`
	}

	var alias slideAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	s.Order = alias.Order
	s.Title = alias.Title
	s.Layout = alias.Layout
	s.Notes = alias.Notes
	s.Content = nil

	for i, raw := range alias.Content {
		block, err := UnmarshalBlock(raw)
		if err != nil {
			return fmt.Errorf("slide %d content[%d]: %w", alias.Order, i, err)
		}
		s.Content = append(s.Content, block)
	}
	return nil
}

// UnmarshalBlock decodes one content block by its "type" field.
func UnmarshalBlock(data []byte) (Block, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch probe.Type {
	case TypeHeading:
		var b HeadingBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TypeParagraph:
		var b ParagraphBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TypeList:
		var b ListBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TypeImage:
		var b ImageBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TypeTable:
		var b TableBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TypeSmartArt:
		var b SmartArtBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TypeVideo:
		var b VideoBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TypeAudio:
		var b AudioBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown block type %q", probe.Type)
	}
}

// Heading builds a heading block.
func Heading(text string, level int) HeadingBlock {
	return HeadingBlock{Type: TypeHeading, Text: text, Level: level}
}

// Paragraph builds a paragraph block.
func Paragraph(text string) ParagraphBlock {
	return ParagraphBlock{Type: TypeParagraph, Text: text}
}

// List builds a list block.
func List(style string, items []ListItem) ListBlock {
	return ListBlock{Type: TypeList, Style: style, Items: items}
}

// Image builds an image block.
func Image(src, alt string) ImageBlock {
	return ImageBlock{Type: TypeImage, Src: src, Alt: alt}
}

// Table builds a table block.
func Table(rows [][]string) TableBlock {
	return TableBlock{Type: TypeTable, Rows: rows}
}

// SmartArt builds a smart_art block.
func SmartArt(layout string, nodes []SmartArtNode) SmartArtBlock {
	return SmartArtBlock{Type: TypeSmartArt, Layout: layout, Nodes: nodes}
}

// Video builds a video block.
func Video(src, title string) VideoBlock {
	return VideoBlock{Type: TypeVideo, Src: src, Title: title}
}

// Audio builds an audio block.
func Audio(src, title string) AudioBlock {
	return AudioBlock{Type: TypeAudio, Src: src, Title: title}
}
