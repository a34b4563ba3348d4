package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

// samplePresentation exercises every block variant.
func samplePresentation() *Presentation {
	return &Presentation{
		Metadata: Metadata{
			ID:          "deck",
			SourceFile:  "deck.pptx",
			ProcessedAt: "2026-08-23T10:00:00Z",
			Stats:       Stats{SlideCount: 2, ImageCount: 1},
		},
		Sections: []Section{
			{
				Title: "Intro",
				Slides: []Slide{
					{
						Order:  1,
						Title:  "Welcome",
						Layout: "Title Slide",
						Notes:  "greet the audience",
						Content: []Block{
							Heading("Welcome", 1),
							Paragraph("A short opener."),
							List("bullet", []ListItem{
								{Text: "first", Level: 0, Children: []ListItem{
									{Text: "nested", Level: 1, Children: []ListItem{}},
								}},
								{Text: "second", Level: 0, Children: []ListItem{}},
							}),
						},
					},
				},
			},
			{
				Title: "Body",
				Slides: []Slide{
					{
						Order:  2,
						Layout: "Content",
						Content: []Block{
							Image("media/deck/2_4.png", "diagram photo"),
							Table([][]string{{"h1", "h2"}, {"a", "b"}}),
							SmartArt("Basic Process", []SmartArtNode{
								{ID: "{1}", Text: "Plan", Level: 0, Children: []SmartArtNode{
									{ID: "{2}", Text: "Do", Level: 1, Icon: "media/deck/2_sa_2.png"},
								}},
							}),
							Video("media/deck/2_7.mp4", "Demo"),
							Audio("media/deck/2_8.m4a", "Jingle"),
						},
					},
				},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	orig := samplePresentation()

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed Presentation
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(orig, &parsed) {
		again, _ := json.Marshal(&parsed)
		t.Errorf("round trip not structurally identical\n orig: %s\nagain: %s", data, again)
	}
}

func TestSlideCount(t *testing.T) {
	p := samplePresentation()
	if got := p.SlideCount(); got != 2 {
		t.Errorf("SlideCount() = %d, want 2", got)
	}
}

func TestBlockTypeDiscriminators(t *testing.T) {
	tests := []struct {
		block Block
		want  string
	}{
		{Heading("t", 1), TypeHeading},
		{Paragraph("t"), TypeParagraph},
		{List("bullet", nil), TypeList},
		{Image("s", "a"), TypeImage},
		{Table(nil), TypeTable},
		{SmartArt("", nil), TypeSmartArt},
		{Video("s", "t"), TypeVideo},
		{Audio("s", "t"), TypeAudio},
	}
	for _, tt := range tests {
		if got := tt.block.BlockType(); got != tt.want {
			t.Errorf("BlockType() = %q, want %q", got, tt.want)
		}
		data, err := json.Marshal(tt.block)
		if err != nil {
			t.Fatalf("marshal %s: %v", tt.want, err)
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			t.Fatal(err)
		}
		if probe.Type != tt.want {
			t.Errorf("serialized type = %q, want %q", probe.Type, tt.want)
		}
	}
}

func TestUnmarshalBlockUnknownType(t *testing.T) {
	_, err := UnmarshalBlock([]byte(`{"type":"hologram"}`))
	if err == nil {
		t.Fatal("expected error for unknown block type")
	}
}

func TestUnmarshalBlockPreservesOrder(t *testing.T) {
	raw := `{"order":3,"title":"","layout":"","notes":"","content":[
	  {"type":"heading","text":"A","level":1},
	  {"type":"paragraph","text":"B"},
	  {"type":"paragraph","text":"C"}
	]}`

	var s Slide
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(s.Content) != 3 {
		t.Fatalf("got %d blocks, want 3", len(s.Content))
	}
	if h, ok := s.Content[0].(HeadingBlock); !ok || h.Text != "A" {
		t.Errorf("content[0] = %#v, want heading A", s.Content[0])
	}
	if p, ok := s.Content[2].(ParagraphBlock); !ok || p.Text != "C" {
		t.Errorf("content[2] = %#v, want paragraph C", s.Content[2])
	}
}
