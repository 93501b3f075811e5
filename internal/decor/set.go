package decor

import "errors"

// Insertion errors. The set enforces the same contract as a host editor's
// incremental range structure: insertions arrive ordered and never overlap.
var (
	// ErrRangeInvalid is returned for a negative or inverted range.
	ErrRangeInvalid = errors.New("invalid decoration range")
	// ErrOutOfOrder is returned when an insertion would break (From, To)
	// ordering.
	ErrOutOfOrder = errors.New("decoration out of order")
	// ErrOverlap is returned when a non-empty range overlaps an earlier one.
	ErrOverlap = errors.New("decoration overlaps earlier range")
)

// Set is an ordered, non-overlapping decoration list. Build one through a
// Builder; hosts read it. The zero Set is empty and usable.
type Set struct {
	instrs []Instruction

	lastFrom int
	lastTo   int
	end      int // max To over non-empty instructions
	dropped  int
}

// Insert appends an instruction, enforcing the ordering and overlap
// contract. Instructions must arrive sorted by (From asc, To asc); empty
// ranges never count as overlapping.
func (s *Set) Insert(in Instruction) error {
	if in.From < 0 || in.From > in.To {
		return ErrRangeInvalid
	}
	if len(s.instrs) > 0 {
		if in.From < s.lastFrom || (in.From == s.lastFrom && in.To < s.lastTo) {
			return ErrOutOfOrder
		}
	}
	if !in.IsEmpty() && in.From < s.end {
		return ErrOverlap
	}

	s.instrs = append(s.instrs, in)
	s.lastFrom, s.lastTo = in.From, in.To
	if in.To > s.end && !in.IsEmpty() {
		s.end = in.To
	}
	return nil
}

// Instructions returns the ordered instructions. The slice is shared;
// callers must not mutate it.
func (s *Set) Instructions() []Instruction { return s.instrs }

// Len returns the number of instructions.
func (s *Set) Len() int { return len(s.instrs) }

// Dropped returns how many instructions the builder discarded.
func (s *Set) Dropped() int { return s.dropped }

// Overlapping returns the instructions touching [from, to). Empty
// instructions anchored inside the range are included.
func (s *Set) Overlapping(from, to int) []Instruction {
	var out []Instruction
	for _, in := range s.instrs {
		if in.From >= to {
			break
		}
		if in.To > from || (in.IsEmpty() && in.From >= from) {
			out = append(out, in)
		}
	}
	return out
}

// SameShape reports whether two sets hold the same ranges, kinds, and
// classes in the same order. Widget identity is ignored, since widget keys
// are randomized per instance.
func (s *Set) SameShape(o *Set) bool {
	if len(s.instrs) != len(o.instrs) {
		return false
	}
	for i, in := range s.instrs {
		other := o.instrs[i]
		if in.From != other.From || in.To != other.To ||
			in.Kind != other.Kind || in.Class != other.Class {
			return false
		}
	}
	return true
}
