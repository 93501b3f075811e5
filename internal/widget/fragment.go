package widget

import (
	"strings"

	"github.com/rivo/uniseg"

	"github.com/dshills/livemark/internal/diagram"
	"github.com/dshills/livemark/internal/style"
)

// Line is one row of a fragment: text plus the style class the host paints
// it with. An empty class means the host default.
type Line struct {
	Text  string
	Class string
}

// Fragment is a widget's paintable output.
type Fragment struct {
	Lines []Line
}

// Height returns the fragment's line count.
func (f Fragment) Height() int { return len(f.Lines) }

// Fragment builds the widget's current visual, clamped to width cells.
// This is the single rendering function over the widget union: every kind
// is handled here, and a diagram widget's output follows its task state —
// placeholder while pending, rendered lines on success, an inline error on
// failure.
func (w *Widget) Fragment(width int) Fragment {
	if width < 1 {
		width = 1
	}
	switch w.kind {
	case KindRule:
		return Fragment{Lines: []Line{{
			Text:  strings.Repeat(glyphRule, width),
			Class: style.ClassRule,
		}}}
	case KindBullet:
		return Fragment{Lines: []Line{{Text: glyphBullet, Class: style.ClassBullet}}}
	case KindCheckbox:
		glyph := glyphUnchecked
		if w.checked {
			glyph = glyphChecked
		}
		return Fragment{Lines: []Line{{Text: glyph, Class: style.ClassCheckbox}}}
	case KindDiagram:
		return w.diagramFragment(width)
	default:
		return Fragment{}
	}
}

func (w *Widget) diagramFragment(width int) Fragment {
	if w.task == nil {
		return Fragment{Lines: []Line{{Text: "rendering diagram…", Class: style.ClassPlaceholder}}}
	}
	res := w.task.Result()
	switch res.State {
	case diagram.StateRendered:
		lines := make([]Line, len(res.Lines))
		for i, text := range res.Lines {
			lines[i] = Line{Text: clampWidth(text, width)}
		}
		if len(lines) == 0 {
			lines = []Line{{Text: "(empty diagram)", Class: style.ClassPlaceholder}}
		}
		return Fragment{Lines: lines}
	case diagram.StateFailed:
		return Fragment{Lines: []Line{{
			Text:  clampWidth("diagram error: "+res.Err, width),
			Class: style.ClassError,
		}}}
	default:
		return Fragment{Lines: []Line{{Text: "rendering diagram…", Class: style.ClassPlaceholder}}}
	}
}

// clampWidth truncates s to at most width terminal cells, breaking on
// grapheme cluster boundaries and marking the cut with an ellipsis.
func clampWidth(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}

	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		gw := g.Width()
		if used+gw > width-1 {
			break
		}
		b.WriteString(g.Str())
		used += gw
	}
	b.WriteString("…")
	return b.String()
}
