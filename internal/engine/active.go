package engine

import (
	"github.com/dshills/livemark/internal/doc"
	"github.com/dshills/livemark/internal/selection"
	"github.com/dshills/livemark/internal/syntax"
)

// activeLines returns the 1-based line numbers touched by the selection.
// A line is touched when a selection endpoint falls on it or a range spans
// it. Constructs on touched lines are left raw so the user edits source,
// not decorated text.
func activeLines(d *doc.Document, sel selection.Set) map[int]struct{} {
	lines := make(map[int]struct{})
	for _, r := range sel.Ranges() {
		r = r.Normalize()
		start := d.LineNumberAt(r.From)
		end := d.LineNumberAt(r.To)
		for n := start; n <= end; n++ {
			lines[n] = struct{}{}
		}
	}
	return lines
}

// nodeActive reports whether any line spanned by the node is active.
func nodeActive(d *doc.Document, n syntax.Node, active map[int]struct{}) bool {
	return spanActive(d, n.From, n.To, active)
}

// spanActive reports whether any line of [from, to) is active. Empty spans
// check only the line holding from.
func spanActive(d *doc.Document, from, to int, active map[int]struct{}) bool {
	last := to - 1
	if last < from {
		last = from
	}
	start := d.LineNumberAt(from)
	end := d.LineNumberAt(last)
	for n := start; n <= end; n++ {
		if _, ok := active[n]; ok {
			return true
		}
	}
	return false
}
