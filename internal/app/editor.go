package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/rivo/uniseg"
	"go.uber.org/zap"

	"github.com/dshills/livemark/internal/doc"
	"github.com/dshills/livemark/internal/engine"
	"github.com/dshills/livemark/internal/event"
	"github.com/dshills/livemark/internal/markdown"
	"github.com/dshills/livemark/internal/selection"
)

// ErrReadOnly is returned by edit operations on a read-only buffer.
var ErrReadOnly = errors.New("buffer is read-only")

// Editor is the single open buffer: document, syntax tree, caret, and
// scroll position. Edits re-parse the tree and notify the decoration
// session before the next rebuild.
type Editor struct {
	doc     *doc.Document
	tree    *markdown.Tree
	caret   int
	top     int // first visible line, 1-based
	goalCol int // preferred column for vertical movement, -1 when unset

	path     string
	dirty    bool
	readOnly bool

	session *engine.Session
	bus     *event.Bus
	log     *zap.Logger
}

// openEditor loads path into a fresh editor. An empty path or a missing
// file starts an empty buffer.
func openEditor(path string, readOnly bool, session *engine.Session, bus *event.Bus, log *zap.Logger) (*Editor, error) {
	text := ""
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		text = string(data)
	}
	e := &Editor{
		doc:      doc.New(text),
		top:      1,
		goalCol:  -1,
		path:     path,
		readOnly: readOnly,
		session:  session,
		bus:      bus,
		log:      log,
	}
	e.tree = markdown.Parse(e.doc)
	return e, nil
}

// Doc returns the current document snapshot.
func (e *Editor) Doc() *doc.Document { return e.doc }

// Caret returns the caret offset.
func (e *Editor) Caret() int { return e.caret }

// Dirty reports unsaved changes.
func (e *Editor) Dirty() bool { return e.dirty }

// Path returns the backing file path, empty for an unnamed buffer.
func (e *Editor) Path() string { return e.path }

// Snapshot assembles the rebuild input for the current state.
func (e *Editor) Snapshot(vp engine.Viewport) engine.Input {
	return engine.Input{
		Doc:      e.doc,
		Tree:     e.tree,
		Sel:      selection.NewSet(selection.Caret(e.caret)),
		Viewport: vp,
	}
}

// replace applies one text edit and refreshes the derived state: document
// snapshot, syntax tree, session offset tracking, caret.
func (e *Editor) replace(from, to int, text string) error {
	if e.readOnly {
		return ErrReadOnly
	}
	d2, err := e.doc.Replace(from, to, text)
	if err != nil {
		return err
	}
	e.session.NoteEdit(from, to, len(text)-(to-from), d2.Revision())
	e.doc = d2
	e.tree = markdown.Parse(d2)
	e.caret = from + len(text)
	e.goalCol = -1
	e.dirty = true
	e.bus.Publish(event.TopicDocChanged, d2.Revision())
	return nil
}

// Insert types text at the caret.
func (e *Editor) Insert(text string) error {
	return e.replace(e.caret, e.caret, text)
}

// DeleteBack removes the grapheme cluster before the caret.
func (e *Editor) DeleteBack() error {
	if e.caret == 0 {
		return nil
	}
	return e.replace(e.prevBoundary(e.caret), e.caret, "")
}

// DeleteForward removes the grapheme cluster after the caret.
func (e *Editor) DeleteForward() error {
	if e.caret >= e.doc.Len() {
		return nil
	}
	return e.replace(e.caret, e.nextBoundary(e.caret), "")
}

// Save writes the buffer back to its file.
func (e *Editor) Save() error {
	if e.readOnly {
		return ErrReadOnly
	}
	if e.path == "" {
		return errors.New("buffer has no file name")
	}
	if err := os.WriteFile(e.path, []byte(e.doc.Text()), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", e.path, err)
	}
	e.dirty = false
	e.log.Info("buffer saved", zap.String("path", e.path), zap.Int("bytes", e.doc.Len()))
	return nil
}

// MoveTo places the caret at offset, clamped into the document.
func (e *Editor) MoveTo(off int) {
	if off < 0 {
		off = 0
	}
	if off > e.doc.Len() {
		off = e.doc.Len()
	}
	e.caret = off
	e.goalCol = -1
	e.publishCaret()
}

// MoveLeft moves the caret one grapheme cluster back.
func (e *Editor) MoveLeft() {
	if e.caret > 0 {
		e.caret = e.prevBoundary(e.caret)
	}
	e.goalCol = -1
	e.publishCaret()
}

// MoveRight moves the caret one grapheme cluster forward.
func (e *Editor) MoveRight() {
	if e.caret < e.doc.Len() {
		e.caret = e.nextBoundary(e.caret)
	}
	e.goalCol = -1
	e.publishCaret()
}

// MoveUp moves the caret to the previous line, keeping the visual column
// across consecutive vertical moves.
func (e *Editor) MoveUp() { e.moveVertical(-1) }

// MoveDown moves the caret to the next line.
func (e *Editor) MoveDown() { e.moveVertical(1) }

// MovePage moves the caret by delta lines, negative for up.
func (e *Editor) MovePage(delta int) { e.moveVertical(delta) }

func (e *Editor) moveVertical(delta int) {
	line := e.doc.LineAt(e.caret)
	if e.goalCol < 0 {
		e.goalCol = uniseg.StringWidth(e.doc.Slice(line.From, e.caret))
	}
	num := line.Number + delta
	if num < 1 {
		num = 1
	}
	if max := e.doc.LineCount(); num > max {
		num = max
	}
	target, err := e.doc.Line(num)
	if err != nil {
		return
	}
	e.caret = e.offsetAtCol(target, e.goalCol)
	e.publishCaret()
}

// MoveLineStart moves the caret to the start of its line.
func (e *Editor) MoveLineStart() {
	e.caret = e.doc.LineAt(e.caret).From
	e.goalCol = -1
	e.publishCaret()
}

// MoveLineEnd moves the caret to the end of its line.
func (e *Editor) MoveLineEnd() {
	e.caret = e.doc.LineAt(e.caret).To
	e.goalCol = -1
	e.publishCaret()
}

// Column returns the caret's 0-based visual column.
func (e *Editor) Column() int {
	line := e.doc.LineAt(e.caret)
	return uniseg.StringWidth(e.doc.Slice(line.From, e.caret))
}

func (e *Editor) publishCaret() {
	e.bus.Publish(event.TopicSelectionChanged, e.caret)
}

// nextBoundary returns the offset after the grapheme cluster at off.
func (e *Editor) nextBoundary(off int) int {
	text := e.doc.Text()
	if off >= len(text) {
		return len(text)
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(text[off:], -1)
	return off + len(cluster)
}

// prevBoundary returns the offset of the grapheme cluster ending at off.
func (e *Editor) prevBoundary(off int) int {
	if off <= 0 {
		return 0
	}
	line := e.doc.LineAt(off)
	if off == line.From {
		// Step over the newline onto the previous line.
		return off - 1
	}
	s := e.doc.Slice(line.From, off)
	pos := line.From
	prev := pos
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		prev = pos
		pos += len(cluster)
	}
	return prev
}

// offsetAtCol returns the offset on line closest to the visual column.
func (e *Editor) offsetAtCol(line doc.Line, col int) int {
	s := e.doc.Slice(line.From, line.To)
	off := line.From
	width := 0
	state := -1
	for len(s) > 0 && width < col {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		width += w
		off += len(cluster)
	}
	return off
}
