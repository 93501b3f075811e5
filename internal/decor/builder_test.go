package decor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuilderSorts(t *testing.T) {
	b := NewBuilder()
	b.Add(Hide(9, 11))
	b.Add(Style(2, 6, "strong"))
	b.Add(Hide(0, 2))
	b.Add(Line(9, "quote"))

	set := b.Finish()

	want := []Instruction{
		Hide(0, 2),
		Style(2, 6, "strong"),
		Line(9, "quote"),
		Hide(9, 11),
	}
	if diff := cmp.Diff(want, set.Instructions()); diff != "" {
		t.Errorf("Instructions() mismatch (-want +got):\n%s", diff)
	}
	if set.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", set.Dropped())
	}
}

func TestBuilderDropsOverlapping(t *testing.T) {
	var dropped []Instruction
	var dropErr error
	b := NewBuilder(WithDropHook(func(in Instruction, err error) {
		dropped = append(dropped, in)
		dropErr = err
	}))

	b.Add(Style(2, 10, "strong"))
	b.Add(Hide(4, 5)) // nested inside the style span
	b.Add(Hide(12, 14))

	set := b.Finish()

	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}
	if set.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", set.Dropped())
	}
	if len(dropped) != 1 || dropped[0].From != 4 {
		t.Fatalf("drop hook saw %v, want the nested hide", dropped)
	}
	if !errors.Is(dropErr, ErrOverlap) {
		t.Errorf("drop hook error = %v, want ErrOverlap", dropErr)
	}
}

func TestBuilderNeverFails(t *testing.T) {
	b := NewBuilder()
	b.Add(Hide(5, 3)) // inverted
	b.Add(Hide(0, 1))

	set := b.Finish()
	if set.Len() != 1 {
		t.Errorf("Len() = %d, want 1", set.Len())
	}
	if set.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", set.Dropped())
	}
}

func TestBuilderResetsAfterFinish(t *testing.T) {
	b := NewBuilder()
	b.Add(Hide(0, 1))
	first := b.Finish()

	second := b.Finish()
	if first.Len() != 1 || second.Len() != 0 {
		t.Errorf("Finish() lens = %d, %d, want 1, 0", first.Len(), second.Len())
	}
}

func TestSortInvariant(t *testing.T) {
	b := NewBuilder()
	// Deliberately shuffled, with equal Froms differing in To.
	b.Add(Style(7, 12, "em"))
	b.Add(Hide(7, 8))
	b.Add(Line(7, "quote"))
	b.Add(Hide(0, 3))

	set := b.Finish()

	instrs := set.Instructions()
	for i := 1; i < len(instrs); i++ {
		prev, cur := instrs[i-1], instrs[i]
		if cur.From < prev.From {
			t.Fatalf("From ordering violated at %d: %v before %v", i, prev, cur)
		}
		if cur.From == prev.From && cur.To < prev.To {
			t.Fatalf("To ordering violated at %d: %v before %v", i, prev, cur)
		}
	}
}
