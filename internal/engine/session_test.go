package engine

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"

	"github.com/dshills/livemark/internal/decor"
	"github.com/dshills/livemark/internal/diagram"
	"github.com/dshills/livemark/internal/doc"
	"github.com/dshills/livemark/internal/event"
	"github.com/dshills/livemark/internal/markdown"
	"github.com/dshills/livemark/internal/selection"
	"github.com/dshills/livemark/internal/style"
	"github.com/dshills/livemark/internal/syntax"
	"github.com/dshills/livemark/internal/widget"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubRenderer struct {
	err error
}

func (r *stubRenderer) Name() string     { return "stub" }
func (r *stubRenderer) Available() error { return nil }

func (r *stubRenderer) Render(context.Context, string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("<svg/>"), nil
}

func newSession(opts ...Option) *Session {
	base := []Option{
		WithScanner(diagram.NewScanner(diagram.WithLanguages("mermaid"))),
		WithPipeline(diagram.NewPipeline(&stubRenderer{})),
	}
	return New(append(base, opts...)...)
}

// snapshot builds a rebuild input with a caret selection and a parsed tree.
func snapshot(d *doc.Document, caret int) Input {
	return Input{
		Doc:  d,
		Tree: markdown.Parse(d),
		Sel:  selection.NewSet(selection.Caret(caret)),
	}
}

func kindInstrs(set *decor.Set, k decor.Kind) []decor.Instruction {
	var out []decor.Instruction
	for _, in := range set.Instructions() {
		if in.Kind == k {
			out = append(out, in)
		}
	}
	return out
}

func TestRebuildEndToEnd(t *testing.T) {
	d := doc.New("# Title\n\nSome **bold** text.\n")
	s := newSession()

	// Caret on the heading line: the heading stays raw, the strong span on
	// line 3 is decorated with shared hide/style boundaries.
	set := s.Rebuild(snapshot(d, 0))
	want := []decor.Instruction{
		decor.Hide(14, 16),
		decor.Style(16, 20, style.ClassStrong),
		decor.Hide(20, 22),
	}
	got := set.Instructions()
	if len(got) != len(want) {
		t.Fatalf("instructions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %v, want %v", i, got[i], want[i])
		}
	}

	// Caret on the text line: the roles swap.
	set = s.Rebuild(snapshot(d, 9))
	want = []decor.Instruction{
		decor.Line(0, style.ClassHeading),
		decor.Hide(0, 2),
	}
	got = set.Instructions()
	if len(got) != len(want) {
		t.Fatalf("instructions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRebuildOrdered(t *testing.T) {
	d := doc.New("# Title\n\n> quote\n\n- item\n\nSome **bold** and *em* text.\n\n---\n")
	s := newSession()
	set := s.Rebuild(snapshot(d, d.Len()))
	instrs := set.Instructions()
	if len(instrs) == 0 {
		t.Fatal("no instructions")
	}
	for i := 1; i < len(instrs); i++ {
		prev, cur := instrs[i-1], instrs[i]
		if cur.From < prev.From || (cur.From == prev.From && cur.To < prev.To) {
			t.Errorf("instruction %d (%v) sorts before %d (%v)", i, cur, i-1, prev)
		}
	}
}

func TestRebuildSameShape(t *testing.T) {
	d := doc.New("# Title\n\nSome **bold** text.\n\n```mermaid\ngraph TD\n```\n")
	s := newSession()
	in := snapshot(d, d.Len())
	if a, b := s.Rebuild(in), s.Rebuild(in); !a.SameShape(b) {
		t.Errorf("identical inputs produced different shapes:\n%v\n%v",
			a.Instructions(), b.Instructions())
	}
}

func TestRebuildNestedEmphasisDropped(t *testing.T) {
	bus := event.NewBus()
	var drops []Drop
	if _, err := bus.Subscribe(event.TopicDecorationDrop, func(ev event.Event) {
		if d, ok := ev.Payload.(Drop); ok {
			drops = append(drops, d)
		}
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	s := newSession(WithBus(bus))
	d := doc.New("***x***\n\ny\n")
	set := s.Rebuild(snapshot(d, 9))

	if set.Len() != 3 {
		t.Fatalf("instructions = %v, want the outer construct only", set.Instructions())
	}
	if set.Instructions()[1].Class != style.ClassStrong {
		t.Errorf("surviving style class = %q, want %q", set.Instructions()[1].Class, style.ClassStrong)
	}
	if set.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", set.Dropped())
	}
	if len(drops) != 3 {
		t.Errorf("drop events = %d, want 3", len(drops))
	}
	for _, dr := range drops {
		if dr.Reason == "" {
			t.Errorf("drop event for %v has no reason", dr.Instruction)
		}
	}
}

func TestRebuildMalformedLink(t *testing.T) {
	s := newSession()
	d := doc.New("[abc](\n\nx\n")
	tree := syntax.QuerierFunc(func(from, to int) []syntax.Node {
		return []syntax.Node{{Kind: syntax.KindLink, From: 0, To: 6}}
	})
	set := s.Rebuild(Input{Doc: d, Tree: tree, Sel: selection.NewSet(selection.Caret(8))})
	if set.Len() != 0 {
		t.Errorf("malformed link produced %v, want nothing", set.Instructions())
	}
}

func TestRebuildUnknownKindIgnored(t *testing.T) {
	s := newSession()
	d := doc.New("plain text\n\nx\n")
	tree := syntax.QuerierFunc(func(from, to int) []syntax.Node {
		return []syntax.Node{
			{Kind: syntax.KindNone, From: 0, To: 5},
			{Kind: syntax.NodeKind(200), From: 6, To: 10},
		}
	})
	set := s.Rebuild(Input{Doc: d, Tree: tree, Sel: selection.NewSet(selection.Caret(12))})
	if set.Len() != 0 {
		t.Errorf("unknown kinds produced %v, want nothing", set.Instructions())
	}
}

func TestRebuildViewportBounds(t *testing.T) {
	d := doc.New("# A\n\n# B\n")
	s := newSession()
	in := snapshot(d, 4)
	in.Viewport = Viewport{From: 0, To: 4}

	set := s.Rebuild(in)
	if got := set.Len(); got != 2 {
		t.Fatalf("viewport-limited instructions = %v, want first heading only", set.Instructions())
	}
	for _, instr := range set.Instructions() {
		if instr.To > 4 {
			t.Errorf("instruction %v extends past the viewport", instr)
		}
	}

	in.Viewport = Viewport{}
	if got := s.Rebuild(in).Len(); got != 4 {
		t.Errorf("full-document instructions = %d, want 4", got)
	}
}

func TestRebuildDiagramPreview(t *testing.T) {
	d := doc.New("```mermaid\ngraph TD\n```\nx\n")
	s := newSession()
	set := s.Rebuild(snapshot(d, 24))

	reps := kindInstrs(set, decor.KindReplace)
	if len(reps) != 1 {
		t.Fatalf("replace instructions = %v, want one", reps)
	}
	rep := reps[0]
	if rep.From != 0 || rep.To != 0 {
		t.Errorf("widget anchored at [%d,%d), want [0,0)", rep.From, rep.To)
	}
	w := rep.Widget
	if w.Kind() != widget.KindDiagram {
		t.Fatalf("widget kind = %v, want diagram", w.Kind())
	}
	if w.Code() != "graph TD\n" {
		t.Errorf("widget code = %q, want %q", w.Code(), "graph TD\n")
	}
	if w.Task() == nil {
		t.Error("widget has no render task")
	}

	var collapsed []int
	for _, in := range kindInstrs(set, decor.KindLine) {
		if in.Class == style.ClassCollapsed {
			collapsed = append(collapsed, in.From)
		}
	}
	wantLines := []int{0, 11, 20}
	if len(collapsed) != len(wantLines) {
		t.Fatalf("collapsed line anchors = %v, want %v", collapsed, wantLines)
	}
	for i, at := range wantLines {
		if collapsed[i] != at {
			t.Errorf("collapsed anchor %d = %d, want %d", i, collapsed[i], at)
		}
	}

	if hides := kindInstrs(set, decor.KindHide); len(hides) != 0 {
		t.Errorf("diagram fence also produced hides: %v", hides)
	}
}

func TestPreviewIgnoresSelection(t *testing.T) {
	// Without a pin, a caret inside the block does not reveal the source;
	// only the explicit edit action does.
	d := doc.New("```mermaid\ngraph TD\n```\nx\n")
	s := newSession()
	set := s.Rebuild(snapshot(d, 12))

	if reps := kindInstrs(set, decor.KindReplace); len(reps) != 1 {
		t.Errorf("replace instructions = %v, want one diagram widget", reps)
	}
}

func TestPinLifecycle(t *testing.T) {
	bus := event.NewBus()
	var topics []event.Topic
	if _, err := bus.Subscribe(event.Topic("preview.**"), func(ev event.Event) {
		topics = append(topics, ev.Topic)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	s := newSession(WithBus(bus))
	d := doc.New("```mermaid\ngraph TD\n```\nx\n")

	blocks := s.Scanner().Blocks(d, 0, d.Len())
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
	id := blocks[0].ID

	off, err := s.EditBlock(snapshot(d, 12), id)
	if err != nil {
		t.Fatalf("EditBlock: %v", err)
	}
	if off != 0 {
		t.Errorf("edit offset = %d, want 0", off)
	}

	// Caret inside the pinned block: raw source, nothing decorated.
	if set := s.Rebuild(snapshot(d, 12)); set.Len() != 0 {
		t.Errorf("pinned block produced %v", set.Instructions())
	}
	if s.Pins().Len() != 1 {
		t.Fatalf("pins = %d, want 1", s.Pins().Len())
	}

	// The block end boundary is inclusive; the pin holds there.
	if set := s.Rebuild(snapshot(d, 23)); set.Len() != 0 {
		t.Errorf("boundary caret produced %v", set.Instructions())
	}

	// Caret left the block: unpin and preview in the same rebuild.
	set := s.Rebuild(snapshot(d, 24))
	if s.Pins().Len() != 0 {
		t.Errorf("pins = %d after leaving the block, want 0", s.Pins().Len())
	}
	reps := kindInstrs(set, decor.KindReplace)
	if len(reps) != 1 || reps[0].Widget.Kind() != widget.KindDiagram {
		t.Fatalf("replace instructions = %v, want one diagram widget", reps)
	}

	want := []event.Topic{event.TopicBlockPin, event.TopicBlockEdit, event.TopicBlockUnpin}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Errorf("topic %d = %s, want %s", i, topics[i], want[i])
		}
	}
}

func TestPinSurvivesCodeEdit(t *testing.T) {
	s := newSession()
	d := doc.New("```mermaid\ngraph TD\n```\nx\n")
	id := s.Scanner().Blocks(d, 0, d.Len())[0].ID
	if _, err := s.EditBlock(snapshot(d, 12), id); err != nil {
		t.Fatalf("EditBlock: %v", err)
	}

	// Type inside the pinned block's code.
	d2, err := d.Replace(19, 19, "X")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	s.NoteEdit(19, 19, 1, d2.Revision())

	// The content hash changed, but the user never left the span: the pin
	// survives by span overlap and is rekeyed to the new identity.
	if set := s.Rebuild(snapshot(d2, 12)); set.Len() != 0 {
		t.Errorf("edited pinned block produced %v", set.Instructions())
	}
	if s.Pins().Len() != 1 {
		t.Fatalf("pins = %d, want 1", s.Pins().Len())
	}

	id2 := s.Scanner().Blocks(d2, 0, d2.Len())[0].ID
	if id2 == id {
		t.Fatal("block identity unchanged after a code edit")
	}
	if !s.Pins().IsPinned(id2) {
		t.Errorf("pin not rekeyed to the new identity %s", id2)
	}
}

func TestNoteEditShiftsPinSpan(t *testing.T) {
	s := newSession()
	d := doc.New("x\n```mermaid\ngraph TD\n```\n")
	id := s.Scanner().Blocks(d, 0, d.Len())[0].ID
	if _, err := s.EditBlock(snapshot(d, 14), id); err != nil {
		t.Fatalf("EditBlock: %v", err)
	}

	// Insert two bytes on the line above the block.
	s.NoteEdit(0, 0, 2, 2)

	from, to, ok := s.Pins().Span(id)
	if !ok || from != 4 || to != 27 {
		t.Errorf("pin span = (%d, %d, %v), want (4, 27, true)", from, to, ok)
	}
}

func TestEditBlockNotFound(t *testing.T) {
	s := newSession()
	d := doc.New("plain\n")
	if _, err := s.EditBlock(snapshot(d, 0), diagram.BlockID("missing")); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("err = %v, want ErrBlockNotFound", err)
	}
}

func TestRebuildEmptyDocument(t *testing.T) {
	s := newSession()
	d := doc.New("")
	if set := s.Rebuild(snapshot(d, 0)); set.Len() != 0 {
		t.Errorf("empty document produced %v", set.Instructions())
	}
}
