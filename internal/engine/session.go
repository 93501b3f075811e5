package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dshills/livemark/internal/decor"
	"github.com/dshills/livemark/internal/diagram"
	"github.com/dshills/livemark/internal/doc"
	"github.com/dshills/livemark/internal/editmode"
	"github.com/dshills/livemark/internal/event"
	"github.com/dshills/livemark/internal/selection"
	"github.com/dshills/livemark/internal/style"
	"github.com/dshills/livemark/internal/syntax"
	"github.com/dshills/livemark/internal/widget"
)

// ErrBlockNotFound is returned by EditBlock when no scanned block carries
// the requested ID.
var ErrBlockNotFound = errors.New("diagram block not found")

// Viewport is the visible byte-offset range. The zero value means the whole
// document.
type Viewport struct {
	From int
	To   int
}

// Input is the snapshot a rebuild works from. Tree must describe Doc's
// current text; Sel offsets are interpreted against Doc.
type Input struct {
	Doc      *doc.Document
	Tree     syntax.Querier
	Sel      selection.Set
	Viewport Viewport
}

// BlockEdit is the payload published on TopicBlockEdit: the block that was
// pinned and the offset the host should move the cursor to.
type BlockEdit struct {
	ID     diagram.BlockID
	Offset int
}

// Drop is the payload published on TopicDecorationDrop when the assembler
// rejects an instruction that overlaps an earlier one.
type Drop struct {
	Instruction decor.Instruction
	Reason      string
}

// Session drives decoration rebuilds for one open document. It is not safe
// for concurrent use; hosts call it from their update loop.
type Session struct {
	scanner   *diagram.Scanner
	pipeline  *diagram.Pipeline
	pins      *editmode.Store
	bus       *event.Bus
	log       *zap.Logger
	highlight bool
	langs     map[string]struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithScanner supplies a configured diagram block scanner. The default
// scanner recognizes mermaid fences with the default margin.
func WithScanner(sc *diagram.Scanner) Option {
	return func(s *Session) { s.scanner = sc }
}

// WithPipeline supplies the render pipeline used for diagram previews. The
// default pipeline has no renderer command and fails every render fast,
// which the diagram widget surfaces as an error placeholder.
func WithPipeline(p *diagram.Pipeline) Option {
	return func(s *Session) { s.pipeline = p }
}

// WithBus attaches an event bus. When present the session publishes pin,
// unpin, edit, and decoration-drop events on it.
func WithBus(b *event.Bus) Option {
	return func(s *Session) { s.bus = b }
}

// WithLogger sets the session logger. Defaults to a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithHighlight toggles code fence syntax highlighting. On by default.
func WithHighlight(enabled bool) Option {
	return func(s *Session) { s.highlight = enabled }
}

// New builds a Session.
func New(opts ...Option) *Session {
	s := &Session{
		pins:      editmode.NewStore(),
		log:       zap.NewNop(),
		highlight: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scanner == nil {
		s.scanner = diagram.NewScanner(diagram.WithScannerLogger(s.log))
	}
	if s.pipeline == nil {
		s.pipeline = diagram.NewPipeline(&diagram.CommandRenderer{}, diagram.WithPipelineLogger(s.log))
	}
	s.langs = make(map[string]struct{}, len(s.scanner.Languages()))
	for _, l := range s.scanner.Languages() {
		s.langs[l] = struct{}{}
	}
	return s
}

// Pins exposes the edit-mode pin store.
func (s *Session) Pins() *editmode.Store { return s.pins }

// Scanner exposes the diagram block scanner.
func (s *Session) Scanner() *diagram.Scanner { return s.scanner }

// Rebuild computes the decoration set for one snapshot. It walks the
// constructs overlapping the viewport, then overlays diagram block state:
// pinned blocks stay raw, everything else gets a preview widget. The
// returned set is ordered and overlap-free.
func (s *Session) Rebuild(in Input) *decor.Set {
	d := in.Doc
	vp := clampViewport(d, in.Viewport)
	active := activeLines(d, in.Sel)

	opts := []decor.BuilderOption{decor.WithLogger(s.log)}
	if s.bus != nil {
		opts = append(opts, decor.WithDropHook(s.dropHook))
	}
	b := decor.NewBuilder(opts...)

	for _, n := range in.Tree.Nodes(vp.From, vp.To) {
		s.decorateNode(b, d, n, active)
	}
	for _, blk := range s.scanner.Blocks(d, vp.From, vp.To) {
		s.decorateBlock(b, d, blk, in.Sel)
	}
	return b.Finish()
}

// decorateBlock applies the edit-mode state machine to one diagram block.
// A pinned block whose span the selection touches stays raw and has its pin
// refreshed to the block's current identity. A pinned block the selection
// has left is unpinned and previewed in the same rebuild.
func (s *Session) decorateBlock(b *decor.Builder, d *doc.Document, blk diagram.Block, sel selection.Set) {
	if key, ok := s.pins.Match(blk.ID, blk.Start, blk.End); ok {
		if sel.Intersects(blk.Start, blk.End) {
			s.pins.Refresh(key, blk.ID, blk.Start, blk.End)
			return
		}
		s.pins.Unpin(key)
		s.publish(event.TopicBlockUnpin, blk.ID)
	}
	s.preview(b, d, blk)
}

// preview anchors a diagram widget at the block's start and collapses every
// line the block spans. Rendering starts immediately on the pipeline; the
// widget observes the task.
func (s *Session) preview(b *decor.Builder, d *doc.Document, blk diagram.Block) {
	task := s.pipeline.Render(context.Background(), blk.Code)
	b.Add(decor.Replace(blk.Start, blk.Start, widget.NewDiagram(blk.Code, blk.ID, task)))

	end := d.LineNumberAt(blk.End - 1)
	for num := d.LineNumberAt(blk.Start); num <= end; num++ {
		line, err := d.Line(num)
		if err != nil {
			break
		}
		b.Add(decor.Line(line.From, style.ClassCollapsed))
	}
}

// EditBlock pins the identified block so the next rebuild shows its source,
// and reports the offset the host should move the cursor to. The block must
// be scannable from the given snapshot.
func (s *Session) EditBlock(in Input, id diagram.BlockID) (int, error) {
	d := in.Doc
	vp := clampViewport(d, in.Viewport)
	for _, blk := range s.scanner.Blocks(d, vp.From, vp.To) {
		if blk.ID != id {
			continue
		}
		s.pins.Pin(blk.ID, blk.Start, blk.End)
		s.publish(event.TopicBlockPin, blk.ID)
		s.publish(event.TopicBlockEdit, BlockEdit{ID: blk.ID, Offset: blk.Start})
		s.log.Debug("diagram block pinned",
			zap.String("block", string(blk.ID)),
			zap.Int("offset", blk.Start))
		return blk.Start, nil
	}
	return 0, ErrBlockNotFound
}

// NoteEdit records a text edit that replaced [from, to) with delta length
// change, producing the given document revision. It keeps cached block
// spans and pinned spans aligned with the new offsets; call it before
// rebuilding against the edited document.
func (s *Session) NoteEdit(from, to, delta int, revision uint64) {
	s.scanner.ApplyEdit(from, to, delta, revision)
	s.pins.Shift(from, to-from, delta)
}

func (s *Session) publish(topic event.Topic, payload any) {
	if s.bus != nil {
		s.bus.Publish(topic, payload)
	}
}

func (s *Session) dropHook(in decor.Instruction, err error) {
	s.bus.Publish(event.TopicDecorationDrop, Drop{Instruction: in, Reason: err.Error()})
}

func (s *Session) diagramLang(lang string) bool {
	if lang == "" {
		return false
	}
	_, ok := s.langs[lang]
	return ok
}

func clampViewport(d *doc.Document, vp Viewport) Viewport {
	if vp.From < 0 {
		vp.From = 0
	}
	if vp.To > d.Len() {
		vp.To = d.Len()
	}
	if vp.To <= vp.From {
		return Viewport{From: 0, To: d.Len()}
	}
	return vp
}
