// Package editmode tracks which diagram blocks are pinned to raw source
// view. A pin is created by an explicit user action and cleared by the
// engine the first time a rebuild finds no selection touching the block.
// This is the only state in the engine that survives across rebuilds.
package editmode

import "github.com/dshills/livemark/internal/diagram"

// pin records a pinned block's identity and its last observed span.
type pin struct {
	id   diagram.BlockID
	from int
	to   int
}

// Store holds the pinned blocks for one editor session. It is owned by the
// session goroutine: read and conditionally written once per rebuild, never
// concurrently, so it carries no lock.
type Store struct {
	pins map[diagram.BlockID]pin
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{pins: make(map[diagram.BlockID]pin)}
}

// Pin marks the block as raw until the selection leaves [from, to].
func (s *Store) Pin(id diagram.BlockID, from, to int) {
	s.pins[id] = pin{id: id, from: from, to: to}
}

// Match finds the pin covering a scanned block. An exact identity match
// wins; otherwise a pin whose recorded span overlaps [from, to] matches,
// which is how a pin survives edits inside the pinned block (the content
// hash changed but the user never left the span). The returned key
// identifies the pin for Refresh or Unpin.
func (s *Store) Match(id diagram.BlockID, from, to int) (diagram.BlockID, bool) {
	if _, ok := s.pins[id]; ok {
		return id, true
	}
	for key, p := range s.pins {
		if p.from <= to && p.to >= from {
			return key, true
		}
	}
	return "", false
}

// IsPinned reports whether the exact identity is pinned.
func (s *Store) IsPinned(id diagram.BlockID) bool {
	_, ok := s.pins[id]
	return ok
}

// Refresh re-keys a matched pin to the block's current identity and span.
func (s *Store) Refresh(key, id diagram.BlockID, from, to int) {
	if _, ok := s.pins[key]; !ok {
		return
	}
	if key != id {
		delete(s.pins, key)
	}
	s.pins[id] = pin{id: id, from: from, to: to}
}

// Unpin removes a pin. Called during rebuilds when no selection range
// intersects the block any longer.
func (s *Store) Unpin(key diagram.BlockID) {
	delete(s.pins, key)
}

// Shift adjusts recorded spans for an edit at [at, at+removed) replaced by
// removed+delta bytes, keeping pins aligned with the document between
// rebuilds.
func (s *Store) Shift(at, removed, delta int) {
	end := at + removed
	for key, p := range s.pins {
		switch {
		case p.to < at:
			// Entirely before the edit.
		case p.from > end:
			p.from += delta
			p.to += delta
			s.pins[key] = p
		default:
			// Edit touches the span: stretch the end.
			p.to += delta
			if p.to < p.from {
				p.to = p.from
			}
			s.pins[key] = p
		}
	}
}

// Span returns a pin's recorded span.
func (s *Store) Span(id diagram.BlockID) (from, to int, ok bool) {
	p, ok := s.pins[id]
	return p.from, p.to, ok
}

// Len returns the number of pinned blocks.
func (s *Store) Len() int { return len(s.pins) }

// Clear removes every pin.
func (s *Store) Clear() {
	s.pins = make(map[diagram.BlockID]pin)
}
