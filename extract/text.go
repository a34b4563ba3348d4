package extract

import (
	"strings"

	"github.com/jsvoboda/decktree/model"
)

// paraText concatenates a paragraph's run text.
func paraText(p textPara) string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

// bodyText joins all non-empty paragraphs of a text body, for headings
// and notes.
func bodyText(tb *txBody) string {
	if tb == nil {
		return ""
	}
	var parts []string
	for _, p := range tb.Paras {
		if t := strings.TrimSpace(paraText(p)); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// isListItem reports whether a paragraph is a bullet/numbered item.
// Explicit buNone forces plain text; an explicit bullet marker or a
// nonzero indent level marks a list item.
func isListItem(p textPara) bool {
	if p.PPr == nil {
		return false
	}
	if p.PPr.BuNone != nil {
		return false
	}
	return p.PPr.BuChar != nil || p.PPr.BuAutoNum != nil || p.PPr.Lvl > 0
}

func paraLevel(p textPara) int {
	if p.PPr == nil {
		return 0
	}
	return p.PPr.Lvl
}

// classifyTextBody converts a text body's paragraphs into content
// blocks: consecutive list-item paragraphs merge into one list block
// with items nested by level, everything else becomes a standalone
// paragraph.
func classifyTextBody(tb *txBody) []model.Block {
	if tb == nil {
		return nil
	}

	var blocks []model.Block
	var run []textPara // current run of consecutive list items

	flush := func() {
		if len(run) == 0 {
			return
		}
		blocks = append(blocks, buildList(run))
		run = nil
	}

	for _, p := range tb.Paras {
		text := strings.TrimSpace(paraText(p))
		if text == "" {
			continue
		}
		if isListItem(p) {
			run = append(run, p)
			continue
		}
		flush()
		blocks = append(blocks, model.Paragraph(text))
	}
	flush()

	return blocks
}

// buildList turns a run of list-item paragraphs into a list block whose
// items form an ordered tree: an item one level deeper than its
// predecessor becomes that predecessor's child.
func buildList(paras []textPara) model.ListBlock {
	style := "bullet"
	if paras[0].PPr != nil && paras[0].PPr.BuAutoNum != nil {
		style = "numbered"
	}

	var items []model.ListItem
	// Stack of pointers into the tree under construction, one per
	// depth. stack[i] owns the children at depth i+1.
	var stack []*model.ListItem

	for _, p := range paras {
		item := model.ListItem{
			Text:     strings.TrimSpace(paraText(p)),
			Level:    paraLevel(p),
			Children: []model.ListItem{},
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= item.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			items = append(items, item)
			stack = append(stack, &items[len(items)-1])
			continue
		}

		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, item)
		stack = append(stack, &parent.Children[len(parent.Children)-1])
	}

	return model.List(style, items)
}
