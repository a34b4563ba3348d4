package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsvoboda/decktree/model"
	"github.com/jsvoboda/decktree/opc"
)

// ErrMalformedSection is reported (as a warning) when section metadata
// exists but cannot be applied; extraction falls back to a synthesized
// Default section.
var ErrMalformedSection = errors.New("extract: malformed section metadata")

const presentationPart = "ppt/presentation.xml"

// sectionListURI is the registered extension URI for the PowerPoint
// section list.
const sectionListURI = "{521415D9-36F7-43E2-AB2F-B90AF26B5E84}"

// slideRef names one slide in document order.
type slideRef struct {
	id   string // presentation-scope slide ID, referenced by sections
	part string // resolved part name, e.g. ppt/slides/slide1.xml
}

// presentationXML is the subset of ppt/presentation.xml the extractor
// needs: the slide ID list and the extension list that may carry
// section groupings.
type presentationXML struct {
	SldIDLst struct {
		IDs []sldID `xml:"sldId"`
	} `xml:"sldIdLst"`
	ExtLst struct {
		Exts []presExt `xml:"ext"`
	} `xml:"extLst"`
}

// sldID carries two attributes that share the local name "id" (plain
// id and r:id), so attributes are captured wholesale and picked apart
// by namespace.
type sldID struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

const relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

func (s sldID) slideID() string { return attrValue(s.Attrs, "", "id") }
func (s sldID) relID() string   { return attrValue(s.Attrs, relNS, "id") }

func attrValue(attrs []xml.Attr, space, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local && a.Name.Space == space {
			return a.Value
		}
	}
	return ""
}

type presExt struct {
	URI        string      `xml:"uri,attr"`
	SectionLst *sectionLst `xml:"sectionLst"`
}

type sectionLst struct {
	Sections []sectionXML `xml:"section"`
}

type sectionXML struct {
	Name   string `xml:"name,attr"`
	SldIDs []struct {
		ID string `xml:"id,attr"`
	} `xml:"sldIdLst>sldId"`
}

// slideOrder reads the presentation part and resolves the document
// order of slides through its relationship table.
func (e *Extractor) slideOrder() ([]slideRef, *presentationXML, error) {
	data, err := e.pkg.Part(presentationPart)
	if err != nil {
		return nil, nil, fmt.Errorf("locating presentation part: %w", err)
	}

	var pres presentationXML
	if err := xml.Unmarshal(data, &pres); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", presentationPart, err)
	}

	rels, err := e.pkg.Relationships(presentationPart)
	if err != nil {
		return nil, nil, fmt.Errorf("reading presentation relationships: %w", err)
	}

	var refs []slideRef
	for _, id := range pres.SldIDLst.IDs {
		rid := id.relID()
		rel, ok := rels[rid]
		if !ok {
			slog.Warn("extract: slide relationship unresolved", "rId", rid)
			continue
		}
		refs = append(refs, slideRef{
			id:   id.slideID(),
			part: opc.ResolveTarget(presentationPart, rel),
		})
	}
	return refs, &pres, nil
}

// assignSections groups extracted slides into sections. Three paths,
// in order: the registered section-list extension, a structural scan of
// all extensions, and a synthesized "Default" section. Every slide
// lands in exactly one section under all paths; slides the metadata
// does not claim are appended as a trailing section so the partition
// stays total.
func assignSections(pres *presentationXML, slideIDs []string, slides []model.Slide) ([]model.Section, []string) {
	list := findSectionList(pres)
	if list == nil {
		return defaultSection(slides), nil
	}

	byID := make(map[string]int, len(slideIDs)) // slide ID -> index into slides
	for i, id := range slideIDs {
		byID[id] = i
	}

	var warnings []string
	var sections []model.Section
	claimed := make(map[int]bool)

	for _, sec := range list.Sections {
		var members []model.Slide
		for _, sid := range sec.SldIDs {
			idx, ok := byID[sid.ID]
			if !ok || claimed[idx] {
				warnings = append(warnings,
					fmt.Sprintf("section %q references unknown or duplicate slide id %s", sec.Name, sid.ID))
				continue
			}
			claimed[idx] = true
			members = append(members, slides[idx])
		}
		if len(members) == 0 {
			continue
		}
		title := strings.TrimSpace(sec.Name)
		if title == "" {
			title = "Untitled Section"
		}
		sections = append(sections, model.Section{Title: title, Slides: members})
	}

	if len(sections) == 0 {
		warnings = append(warnings, fmt.Sprintf("%v: section list yielded no slides", ErrMalformedSection))
		return defaultSection(slides), warnings
	}

	// Slides no section claimed keep document order in a trailing
	// synthesized section.
	var unclaimed []model.Slide
	for i, s := range slides {
		if !claimed[i] {
			unclaimed = append(unclaimed, s)
		}
	}
	if len(unclaimed) > 0 {
		warnings = append(warnings,
			fmt.Sprintf("%d slide(s) not claimed by any section", len(unclaimed)))
		sections = append(sections, model.Section{Title: "Default", Slides: unclaimed})
	}

	return sections, warnings
}

// findSectionList prefers the extension with the registered section
// list URI, then falls back to any extension carrying a sectionLst.
func findSectionList(pres *presentationXML) *sectionLst {
	for _, ext := range pres.ExtLst.Exts {
		if strings.EqualFold(ext.URI, sectionListURI) && ext.SectionLst != nil {
			return ext.SectionLst
		}
	}
	for _, ext := range pres.ExtLst.Exts {
		if ext.SectionLst != nil && len(ext.SectionLst.Sections) > 0 {
			return ext.SectionLst
		}
	}
	return nil
}

func defaultSection(slides []model.Slide) []model.Section {
	return []model.Section{{Title: "Default", Slides: slides}}
}
