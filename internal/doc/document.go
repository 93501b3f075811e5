package doc

import (
	"errors"
	"sort"
	"strings"
)

// Common document errors.
var (
	// ErrOffsetOutOfRange is returned when an offset is outside the document.
	ErrOffsetOutOfRange = errors.New("offset out of range")
	// ErrRangeInvalid is returned when a range has From > To.
	ErrRangeInvalid = errors.New("invalid range")
)

// Line describes one document line. From and To are byte offsets into the
// document text; To excludes the trailing newline, so Slice(From, To) is the
// line's text. Number is 1-based.
type Line struct {
	From   int
	To     int
	Number int
}

// Len returns the line's length in bytes, excluding the newline.
func (l Line) Len() int { return l.To - l.From }

// Document is an immutable text snapshot with a line index and a revision
// counter. All read methods are safe for concurrent use because nothing
// mutates a Document after construction.
type Document struct {
	text       string
	lineStarts []int
	revision   uint64
}

// Option configures a Document at construction time.
type Option func(*Document)

// WithRevision sets the revision counter, for hosts that track their own.
func WithRevision(rev uint64) Option {
	return func(d *Document) {
		d.revision = rev
	}
}

// New creates a Document from text. Line endings are normalized to LF so
// offsets agree between the engine and pattern-based scanners regardless of
// the source file's convention.
func New(text string, opts ...Option) *Document {
	d := &Document{
		text:     normalizeLineEndings(text),
		revision: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.lineStarts = indexLines(d.text)
	return d
}

// normalizeLineEndings converts CRLF and lone CR to LF.
func normalizeLineEndings(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// indexLines records the starting offset of every line.
func indexLines(s string) []int {
	starts := make([]int, 1, 16)
	starts[0] = 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Text returns the full document text.
func (d *Document) Text() string { return d.text }

// Len returns the document length in bytes.
func (d *Document) Len() int { return len(d.text) }

// Revision returns the snapshot's revision counter.
func (d *Document) Revision() uint64 { return d.revision }

// LineCount returns the number of lines. The empty document has one line.
func (d *Document) LineCount() int { return len(d.lineStarts) }

// LineAt returns the line containing offset. Offsets are clamped into
// [0, Len()] so read paths never fail; a clamped lookup on the document end
// returns the last line.
func (d *Document) LineAt(offset int) Line {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	// Greatest line start <= offset.
	idx := sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1
	return d.line(idx)
}

// LineNumberAt returns the 1-based line number containing offset.
func (d *Document) LineNumberAt(offset int) int {
	return d.LineAt(offset).Number
}

// Line returns the line with the given 1-based number.
func (d *Document) Line(number int) (Line, error) {
	if number < 1 || number > len(d.lineStarts) {
		return Line{}, ErrOffsetOutOfRange
	}
	return d.line(number - 1), nil
}

func (d *Document) line(idx int) Line {
	from := d.lineStarts[idx]
	to := len(d.text)
	if idx+1 < len(d.lineStarts) {
		to = d.lineStarts[idx+1] - 1
	}
	return Line{From: from, To: to, Number: idx + 1}
}

// Slice returns the text in [from, to). Bounds are clamped into the
// document; an inverted range yields the empty string.
func (d *Document) Slice(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(d.text) {
		to = len(d.text)
	}
	if from >= to {
		return ""
	}
	return d.text[from:to]
}

// Replace returns a new snapshot with [from, to) replaced by text and the
// revision advanced. The receiver is unchanged.
func (d *Document) Replace(from, to int, text string) (*Document, error) {
	if from > to {
		return nil, ErrRangeInvalid
	}
	if from < 0 || to > len(d.text) {
		return nil, ErrOffsetOutOfRange
	}
	next := New(d.text[:from]+text+d.text[to:], WithRevision(d.revision+1))
	return next, nil
}
