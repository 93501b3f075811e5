// Package selection models the host's selection state as ordered byte-offset
// ranges. A caret is an empty range. The engine only reads selections; the
// host owns them.
package selection

import "sort"

// Range is a selection span in byte offsets. From is the anchor, To the
// active end; they may arrive inverted and are ordered by Normalize.
type Range struct {
	From int
	To   int
}

// Caret returns an empty range at offset.
func Caret(offset int) Range {
	return Range{From: offset, To: offset}
}

// IsEmpty reports whether the range selects nothing.
func (r Range) IsEmpty() bool { return r.From == r.To }

// Normalize returns the range with From <= To.
func (r Range) Normalize() Range {
	if r.From > r.To {
		return Range{From: r.To, To: r.From}
	}
	return r
}

// Intersects reports whether the range touches [from, to]. Both ends are
// inclusive: a caret sitting exactly on a block boundary counts as inside,
// which is what keeps a block raw while the cursor is on its fence line.
func (r Range) Intersects(from, to int) bool {
	n := r.Normalize()
	return n.From <= to && n.To >= from
}

// Set is an ordered list of selection ranges. The first range is primary.
type Set struct {
	ranges []Range
}

// NewSet builds a Set from ranges, normalized and ordered by From.
func NewSet(ranges ...Range) Set {
	rs := make([]Range, len(ranges))
	for i, r := range ranges {
		rs[i] = r.Normalize()
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].From != rs[j].From {
			return rs[i].From < rs[j].From
		}
		return rs[i].To < rs[j].To
	})
	return Set{ranges: rs}
}

// Single builds a Set holding one range.
func Single(from, to int) Set {
	return NewSet(Range{From: from, To: to})
}

// Ranges returns the ordered ranges. The slice is shared; callers must not
// mutate it.
func (s Set) Ranges() []Range { return s.ranges }

// Len returns the number of ranges.
func (s Set) Len() int { return len(s.ranges) }

// IsEmpty reports whether the set holds no ranges at all.
func (s Set) IsEmpty() bool { return len(s.ranges) == 0 }

// Intersects reports whether any range touches [from, to], inclusive.
func (s Set) Intersects(from, to int) bool {
	for _, r := range s.ranges {
		if r.Intersects(from, to) {
			return true
		}
	}
	return false
}

// Merged returns the set with overlapping or adjacent ranges collapsed.
func (s Set) Merged() Set {
	if len(s.ranges) <= 1 {
		return s
	}
	out := make([]Range, 0, len(s.ranges))
	cur := s.ranges[0]
	for _, next := range s.ranges[1:] {
		if next.From <= cur.To {
			if next.To > cur.To {
				cur.To = next.To
			}
			continue
		}
		out = append(out, cur)
		cur = next
	}
	out = append(out, cur)
	return Set{ranges: out}
}
