package extract

import (
	"encoding/xml"
	"reflect"
	"testing"

	"github.com/jsvoboda/decktree/model"
)

func parseBody(t *testing.T, s string) *txBody {
	t.Helper()
	var tb txBody
	if err := xml.Unmarshal([]byte(s), &tb); err != nil {
		t.Fatalf("parsing text body fixture: %v", err)
	}
	return &tb
}

func TestClassifyTextBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []model.Block
	}{
		{
			name: "plain paragraphs",
			body: `<txBody xmlns:a="a">
				<a:p><a:r><a:t>one</a:t></a:r></a:p>
				<a:p><a:r><a:t>two</a:t></a:r></a:p>
			</txBody>`,
			want: []model.Block{model.Paragraph("one"), model.Paragraph("two")},
		},
		{
			name: "consecutive bullets merge into one list",
			body: `<txBody xmlns:a="a">
				<a:p><a:pPr><a:buChar char="-"/></a:pPr><a:r><a:t>first</a:t></a:r></a:p>
				<a:p><a:pPr><a:buChar char="-"/></a:pPr><a:r><a:t>second</a:t></a:r></a:p>
			</txBody>`,
			want: []model.Block{model.List("bullet", []model.ListItem{
				{Text: "first", Level: 0, Children: []model.ListItem{}},
				{Text: "second", Level: 0, Children: []model.ListItem{}},
			})},
		},
		{
			name: "explicit buNone forces plain text",
			body: `<txBody xmlns:a="a">
				<a:p><a:pPr lvl="1"><a:buNone/></a:pPr><a:r><a:t>not a bullet</a:t></a:r></a:p>
			</txBody>`,
			want: []model.Block{model.Paragraph("not a bullet")},
		},
		{
			name: "numbered style from first item",
			body: `<txBody xmlns:a="a">
				<a:p><a:pPr><a:buAutoNum type="arabicPeriod"/></a:pPr><a:r><a:t>step 1</a:t></a:r></a:p>
				<a:p><a:pPr><a:buAutoNum type="arabicPeriod"/></a:pPr><a:r><a:t>step 2</a:t></a:r></a:p>
			</txBody>`,
			want: []model.Block{model.List("numbered", []model.ListItem{
				{Text: "step 1", Level: 0, Children: []model.ListItem{}},
				{Text: "step 2", Level: 0, Children: []model.ListItem{}},
			})},
		},
		{
			name: "list run broken by a paragraph yields two lists",
			body: `<txBody xmlns:a="a">
				<a:p><a:pPr><a:buChar char="-"/></a:pPr><a:r><a:t>a</a:t></a:r></a:p>
				<a:p><a:r><a:t>interlude</a:t></a:r></a:p>
				<a:p><a:pPr><a:buChar char="-"/></a:pPr><a:r><a:t>b</a:t></a:r></a:p>
			</txBody>`,
			want: []model.Block{
				model.List("bullet", []model.ListItem{{Text: "a", Level: 0, Children: []model.ListItem{}}}),
				model.Paragraph("interlude"),
				model.List("bullet", []model.ListItem{{Text: "b", Level: 0, Children: []model.ListItem{}}}),
			},
		},
		{
			name: "empty and whitespace paragraphs dropped",
			body: `<txBody xmlns:a="a">
				<a:p/>
				<a:p><a:r><a:t>   </a:t></a:r></a:p>
				<a:p><a:r><a:t>kept</a:t></a:r></a:p>
			</txBody>`,
			want: []model.Block{model.Paragraph("kept")},
		},
		{
			name: "runs concatenate within a paragraph",
			body: `<txBody xmlns:a="a">
				<a:p><a:r><a:t>hello </a:t></a:r><a:r><a:t>world</a:t></a:r></a:p>
			</txBody>`,
			want: []model.Block{model.Paragraph("hello world")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyTextBody(parseBody(t, tt.body))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("classifyTextBody =\n  %#v\nwant\n  %#v", got, tt.want)
			}
		})
	}
}

func TestBuildListNesting(t *testing.T) {
	body := parseBody(t, `<txBody xmlns:a="a">
		<a:p><a:pPr><a:buChar char="-"/></a:pPr><a:r><a:t>alpha</a:t></a:r></a:p>
		<a:p><a:pPr lvl="1"><a:buChar char="-"/></a:pPr><a:r><a:t>alpha one</a:t></a:r></a:p>
		<a:p><a:pPr lvl="2"><a:buChar char="-"/></a:pPr><a:r><a:t>alpha one a</a:t></a:r></a:p>
		<a:p><a:pPr lvl="1"><a:buChar char="-"/></a:pPr><a:r><a:t>alpha two</a:t></a:r></a:p>
		<a:p><a:pPr><a:buChar char="-"/></a:pPr><a:r><a:t>beta</a:t></a:r></a:p>
	</txBody>`)

	blocks := classifyTextBody(body)
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1 list", len(blocks))
	}
	list, ok := blocks[0].(model.ListBlock)
	if !ok {
		t.Fatalf("block is %T, want ListBlock", blocks[0])
	}

	want := []model.ListItem{
		{Text: "alpha", Level: 0, Children: []model.ListItem{
			{Text: "alpha one", Level: 1, Children: []model.ListItem{
				{Text: "alpha one a", Level: 2, Children: []model.ListItem{}},
			}},
			{Text: "alpha two", Level: 1, Children: []model.ListItem{}},
		}},
		{Text: "beta", Level: 0, Children: []model.ListItem{}},
	}
	if !reflect.DeepEqual(list.Items, want) {
		t.Errorf("items =\n  %#v\nwant\n  %#v", list.Items, want)
	}
}

func TestIsListItem(t *testing.T) {
	tests := []struct {
		name string
		para string
		want bool
	}{
		{"no properties", `<txBody xmlns:a="a"><a:p><a:r><a:t>x</a:t></a:r></a:p></txBody>`, false},
		{"buChar", `<txBody xmlns:a="a"><a:p><a:pPr><a:buChar char="-"/></a:pPr></a:p></txBody>`, true},
		{"buAutoNum", `<txBody xmlns:a="a"><a:p><a:pPr><a:buAutoNum type="arabicPeriod"/></a:pPr></a:p></txBody>`, true},
		{"indent level only", `<txBody xmlns:a="a"><a:p><a:pPr lvl="2"/></a:p></txBody>`, true},
		{"buNone wins over level", `<txBody xmlns:a="a"><a:p><a:pPr lvl="2"><a:buNone/></a:pPr></a:p></txBody>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := parseBody(t, tt.para)
			if got := isListItem(tb.Paras[0]); got != tt.want {
				t.Errorf("isListItem = %v, want %v", got, tt.want)
			}
		})
	}
}
