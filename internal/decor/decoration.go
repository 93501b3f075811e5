// Package decor models decoration instructions and the ordered set a host
// consumes. Instructions are ephemeral: the engine rebuilds the whole set on
// every document, selection, or viewport change, and nothing here is
// persisted.
package decor

import (
	"fmt"

	"github.com/dshills/livemark/internal/widget"
)

// Kind identifies what an instruction does to its range.
type Kind uint8

const (
	// KindHide removes the range from display.
	KindHide Kind = iota
	// KindStyle applies a style class to the range.
	KindStyle
	// KindLine applies a style class to the whole line the instruction is
	// anchored on. Line instructions are empty ranges at a line start.
	KindLine
	// KindReplace substitutes a widget for the range. The range may be
	// empty, anchoring a widget at a position.
	KindReplace
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindHide:
		return "hide"
	case KindStyle:
		return "style"
	case KindLine:
		return "line"
	case KindReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Instruction is one decoration: a byte-offset range plus what to do with
// it. Class is set for KindStyle and KindLine; Widget for KindReplace.
type Instruction struct {
	From   int
	To     int
	Kind   Kind
	Class  string
	Widget *widget.Widget
}

// Hide builds a hide instruction over [from, to).
func Hide(from, to int) Instruction {
	return Instruction{From: from, To: to, Kind: KindHide}
}

// Style builds a style instruction over [from, to) with the given class.
func Style(from, to int, class string) Instruction {
	return Instruction{From: from, To: to, Kind: KindStyle, Class: class}
}

// Line builds a line-level instruction anchored at a line start offset.
func Line(at int, class string) Instruction {
	return Instruction{From: at, To: at, Kind: KindLine, Class: class}
}

// Replace builds a widget instruction over [from, to). Use from == to to
// anchor a widget at a position without consuming text.
func Replace(from, to int, w *widget.Widget) Instruction {
	return Instruction{From: from, To: to, Kind: KindReplace, Widget: w}
}

// IsEmpty reports whether the instruction covers no text.
func (in Instruction) IsEmpty() bool { return in.From == in.To }

// String renders the instruction for logs and test failure messages.
func (in Instruction) String() string {
	switch in.Kind {
	case KindStyle, KindLine:
		return fmt.Sprintf("%s[%d,%d)/%s", in.Kind, in.From, in.To, in.Class)
	default:
		return fmt.Sprintf("%s[%d,%d)", in.Kind, in.From, in.To)
	}
}
