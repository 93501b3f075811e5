package markdown

import (
	"testing"

	"github.com/dshills/livemark/internal/doc"
	"github.com/dshills/livemark/internal/syntax"
)

// kindTexts returns the source text of every construct of the given kind.
func kindTexts(tr *Tree, d *doc.Document, kind syntax.NodeKind) []string {
	var out []string
	for _, n := range tr.Nodes(0, d.Len()) {
		if n.Kind == kind {
			out = append(out, d.Slice(n.From, n.To))
		}
	}
	return out
}

func kindNodes(tr *Tree, d *doc.Document, kind syntax.NodeKind) []syntax.Node {
	var out []syntax.Node
	for _, n := range tr.Nodes(0, d.Len()) {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestParseHeadingMark(t *testing.T) {
	d := doc.New("# Title\nbody\n")
	tr := Parse(d)

	got := kindTexts(tr, d, syntax.KindHeadingMark)
	if len(got) != 1 || got[0] != "# " {
		t.Errorf("heading marks = %q, want [%q]", got, "# ")
	}
}

func TestParseHeadingMarkDeep(t *testing.T) {
	d := doc.New("### Sub  Head\n")
	tr := Parse(d)

	got := kindTexts(tr, d, syntax.KindHeadingMark)
	if len(got) != 1 || got[0] != "### " {
		t.Errorf("heading marks = %q, want [%q]", got, "### ")
	}
}

func TestParseSetextHeadingHasNoMark(t *testing.T) {
	d := doc.New("Title\n=====\n")
	tr := Parse(d)

	if got := kindTexts(tr, d, syntax.KindHeadingMark); len(got) != 0 {
		t.Errorf("setext heading marks = %q, want none", got)
	}
}

func TestParseInlineSpans(t *testing.T) {
	d := doc.New("a *em* and **strong** and ~~gone~~ and `code`\n")
	tr := Parse(d)

	tests := []struct {
		name string
		kind syntax.NodeKind
		want string
	}{
		{"emphasis", syntax.KindEmphasis, "*em*"},
		{"strong", syntax.KindStrong, "**strong**"},
		{"strike", syntax.KindStrike, "~~gone~~"},
		{"inline code", syntax.KindInlineCode, "`code`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kindTexts(tr, d, tt.kind)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("%s spans = %q, want [%q]", tt.kind, got, tt.want)
			}
		})
	}
}

func TestParseUnderscoreEmphasis(t *testing.T) {
	d := doc.New("an _aside_ here\n")
	tr := Parse(d)

	got := kindTexts(tr, d, syntax.KindEmphasis)
	if len(got) != 1 || got[0] != "_aside_" {
		t.Errorf("emphasis spans = %q, want [%q]", got, "_aside_")
	}
}

func TestParseNestedEmphasis(t *testing.T) {
	d := doc.New("***x***\n")
	tr := Parse(d)

	strong := kindTexts(tr, d, syntax.KindStrong)
	em := kindTexts(tr, d, syntax.KindEmphasis)
	if len(strong) != 1 || len(em) != 1 {
		t.Fatalf("got strong=%q em=%q, want one of each", strong, em)
	}
	if strong[0] != "**x**" && em[0] != "*x*" {
		t.Errorf("nested spans strong=%q em=%q", strong[0], em[0])
	}
}

func TestParseMultiBacktickCode(t *testing.T) {
	d := doc.New("run ``a ` b`` now\n")
	tr := Parse(d)

	got := kindTexts(tr, d, syntax.KindInlineCode)
	if len(got) != 1 || got[0] != "``a ` b``" {
		t.Errorf("inline code spans = %q, want [%q]", got, "``a ` b``")
	}
}

func TestParseLink(t *testing.T) {
	d := doc.New("see [docs](https://example.com) now\n")
	tr := Parse(d)

	got := kindTexts(tr, d, syntax.KindLink)
	if len(got) != 1 || got[0] != "[docs](https://example.com)" {
		t.Errorf("link spans = %q, want [%q]", got, "[docs](https://example.com)")
	}
}

func TestParseLinkWithStyledLabel(t *testing.T) {
	d := doc.New("[*a*](u)\n")
	tr := Parse(d)

	got := kindTexts(tr, d, syntax.KindLink)
	if len(got) != 1 || got[0] != "[*a*](u)" {
		t.Errorf("link spans = %q, want [%q]", got, "[*a*](u)")
	}
}

func TestParseReferenceLinkSkipped(t *testing.T) {
	d := doc.New("[a][ref]\n\n[ref]: https://example.com\n")
	tr := Parse(d)

	if got := kindTexts(tr, d, syntax.KindLink); len(got) != 0 {
		t.Errorf("reference link spans = %q, want none", got)
	}
}

func TestParseQuote(t *testing.T) {
	d := doc.New("> quoted\n> more\n")
	tr := Parse(d)

	marks := kindTexts(tr, d, syntax.KindQuoteMark)
	if len(marks) != 2 {
		t.Fatalf("quote marks = %q, want 2", marks)
	}
	for _, m := range marks {
		if m != "> " {
			t.Errorf("quote mark = %q, want %q", m, "> ")
		}
	}

	lines := kindTexts(tr, d, syntax.KindQuoteLine)
	want := []string{"> quoted", "> more"}
	if len(lines) != len(want) {
		t.Fatalf("quote lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("quote line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestParseNestedQuote(t *testing.T) {
	d := doc.New("> > deep\n")
	tr := Parse(d)

	marks := kindNodes(tr, d, syntax.KindQuoteMark)
	if len(marks) != 2 {
		t.Fatalf("quote marks = %v, want 2", marks)
	}
	if marks[0].From != 0 || marks[1].From != 2 {
		t.Errorf("quote mark offsets = %d, %d, want 0, 2", marks[0].From, marks[1].From)
	}
	if lines := kindTexts(tr, d, syntax.KindQuoteLine); len(lines) != 1 {
		t.Errorf("quote lines = %q, want 1", lines)
	}
}

func TestParseListMarkers(t *testing.T) {
	d := doc.New("- one\n- two\n\n1. ordered\n")
	tr := Parse(d)

	marks := kindTexts(tr, d, syntax.KindListMark)
	if len(marks) != 2 {
		t.Fatalf("list marks = %q, want 2", marks)
	}
	for _, m := range marks {
		if m != "-" {
			t.Errorf("list mark = %q, want %q", m, "-")
		}
	}
}

func TestParseTaskMarkers(t *testing.T) {
	d := doc.New("- [ ] open\n- [x] done\n")
	tr := Parse(d)

	got := kindTexts(tr, d, syntax.KindTaskMark)
	want := []string{"[ ]", "[x]"}
	if len(got) != len(want) {
		t.Fatalf("task marks = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("task mark %d = %q, want %q", i, got[i], want[i])
		}
	}

	if marks := kindTexts(tr, d, syntax.KindListMark); len(marks) != 2 {
		t.Errorf("list marks = %q, want 2", marks)
	}
}

func TestParseThematicBreak(t *testing.T) {
	d := doc.New("a\n\n---\n\nb\n")
	tr := Parse(d)

	got := kindTexts(tr, d, syntax.KindRule)
	if len(got) != 1 || got[0] != "---" {
		t.Errorf("rules = %q, want [%q]", got, "---")
	}
}

func TestParseSetextUnderlineIsNotRule(t *testing.T) {
	d := doc.New("Title\n---\n\n---\n")
	tr := Parse(d)

	rules := kindNodes(tr, d, syntax.KindRule)
	if len(rules) != 1 {
		t.Fatalf("rules = %v, want 1", rules)
	}
	if got, want := rules[0].From, 11; got != want {
		t.Errorf("rule offset = %d, want %d", got, want)
	}
}

func TestParseAdjacentBreaks(t *testing.T) {
	d := doc.New("---\n\n---\n")
	tr := Parse(d)

	rules := kindNodes(tr, d, syntax.KindRule)
	if len(rules) != 2 {
		t.Fatalf("rules = %v, want 2", rules)
	}
	if rules[0].From == rules[1].From {
		t.Errorf("both rules claimed offset %d", rules[0].From)
	}
}

func TestParseFence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"tagged", "```go\ncode()\n```\n", "```go\ncode()\n```"},
		{"untagged", "```\nx\n```\n", "```\nx\n```"},
		{"unterminated", "```go\ncode()\n", "```go\ncode()"},
		{"empty tagged", "```mermaid\n```\n", "```mermaid\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := doc.New(tt.text)
			tr := Parse(d)
			got := kindTexts(tr, d, syntax.KindFence)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("fence spans = %q, want [%q]", got, tt.want)
			}
		})
	}
}

func TestParseFenceContentNotScanned(t *testing.T) {
	d := doc.New("```\n# not a heading\n- not a list\n```\n")
	tr := Parse(d)

	if got := kindTexts(tr, d, syntax.KindHeadingMark); len(got) != 0 {
		t.Errorf("heading marks inside fence = %q, want none", got)
	}
	if got := kindTexts(tr, d, syntax.KindListMark); len(got) != 0 {
		t.Errorf("list marks inside fence = %q, want none", got)
	}
}

func TestNodesRange(t *testing.T) {
	d := doc.New("# Title\n\nSome **bold** text.\n")
	tr := Parse(d)

	if got := tr.Nodes(0, 7); len(got) != 1 || got[0].Kind != syntax.KindHeadingMark {
		t.Errorf("Nodes(0,7) = %v, want only the heading mark", got)
	}
	if got := tr.Nodes(9, d.Len()); len(got) != 1 || got[0].Kind != syntax.KindStrong {
		t.Errorf("Nodes(9,len) = %v, want only the strong span", got)
	}
	if got := tr.Nodes(7, 9); len(got) != 0 {
		t.Errorf("Nodes(7,9) = %v, want none", got)
	}
}

func TestNodesOrdered(t *testing.T) {
	d := doc.New("# H\n\n> q *e*\n\n- [x] t\n\n---\n")
	tr := Parse(d)

	nodes := tr.Nodes(0, d.Len())
	if len(nodes) < 6 {
		t.Fatalf("got %d nodes, want at least 6", len(nodes))
	}
	for i := 1; i < len(nodes); i++ {
		if nodes[i].From < nodes[i-1].From {
			t.Errorf("node %d (%v) starts before node %d (%v)", i, nodes[i], i-1, nodes[i-1])
		}
	}
}

func TestParseEmptyDocument(t *testing.T) {
	d := doc.New("")
	tr := Parse(d)

	if got := tr.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}
