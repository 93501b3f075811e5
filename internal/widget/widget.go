// Package widget defines the replacement visuals substituted for spans of
// raw source: the horizontal-rule separator, list bullets, task checkboxes,
// and rendered diagrams. The set is a closed union so the construct-to-
// visual mapping stays exhaustive; Fragment is the one place a widget turns
// into host-paintable output.
package widget

import (
	"github.com/google/uuid"

	"github.com/dshills/livemark/internal/diagram"
)

// Kind tags the widget union.
type Kind uint8

const (
	// KindRule is a block separator replacing a thematic break.
	KindRule Kind = iota
	// KindBullet is the glyph replacing an unordered list marker.
	KindBullet
	// KindCheckbox is the glyph replacing a task marker.
	KindCheckbox
	// KindDiagram is a rendered diagram block.
	KindDiagram
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindRule:
		return "rule"
	case KindBullet:
		return "bullet"
	case KindCheckbox:
		return "checkbox"
	case KindDiagram:
		return "diagram"
	default:
		return "unknown"
	}
}

// Widget is one replacement visual. Construct through the New functions;
// the zero value is not a valid widget.
type Widget struct {
	kind    Kind
	checked bool
	code    string
	blockID diagram.BlockID
	task    *diagram.Task
	key     string
}

// NewRule creates a block-separator widget.
func NewRule() *Widget {
	return &Widget{kind: KindRule, key: uuid.NewString()}
}

// NewBullet creates a list-bullet widget.
func NewBullet() *Widget {
	return &Widget{kind: KindBullet, key: uuid.NewString()}
}

// NewCheckbox creates a task-checkbox widget.
func NewCheckbox(checked bool) *Widget {
	return &Widget{kind: KindCheckbox, checked: checked, key: uuid.NewString()}
}

// NewDiagram creates a diagram widget owning the given render task.
func NewDiagram(code string, id diagram.BlockID, task *diagram.Task) *Widget {
	return &Widget{
		kind:    KindDiagram,
		code:    code,
		blockID: id,
		task:    task,
		key:     uuid.NewString(),
	}
}

// Kind returns the union tag.
func (w *Widget) Kind() Kind { return w.kind }

// Key returns the instance key. Keys are randomized per instance, so a
// rebuild that recreates a widget re-renders from scratch.
func (w *Widget) Key() string { return w.key }

// Checked reports a checkbox widget's state.
func (w *Widget) Checked() bool { return w.checked }

// Code returns a diagram widget's source.
func (w *Widget) Code() string { return w.code }

// BlockID returns a diagram widget's block identity.
func (w *Widget) BlockID() diagram.BlockID { return w.blockID }

// Task returns a diagram widget's render task, nil for other kinds.
func (w *Widget) Task() *diagram.Task { return w.task }

// Equal reports whether a host may keep its existing visual instead of
// recreating. Stable glyphs compare by kind and payload; diagrams compare
// by instance key, so a recreated diagram widget never matches and its
// replacement render runs again.
func (w *Widget) Equal(o *Widget) bool {
	if o == nil || w.kind != o.kind {
		return false
	}
	switch w.kind {
	case KindRule, KindBullet:
		return true
	case KindCheckbox:
		return w.checked == o.checked
	case KindDiagram:
		return w.key == o.key
	default:
		return false
	}
}

// PassThroughEvents reports whether the host should handle input events on
// the widget natively. Always true: this engine never intercepts events.
func (w *Widget) PassThroughEvents() bool { return true }

// Teardown releases the widget's resources. For diagram widgets this
// cancels the render task so a slow render never mutates a discarded
// fragment. Safe to call more than once.
func (w *Widget) Teardown() {
	if w.task != nil {
		w.task.Cancel()
	}
}

// glyphs used by Fragment. Chosen to be single-cell in terminals.
const (
	glyphBullet    = "•"
	glyphUnchecked = "☐"
	glyphChecked   = "☑"
	glyphRule      = "─"
)
