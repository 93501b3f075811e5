// Package diagram finds fenced diagram blocks in a document and renders
// their source through an external renderer. Scanning is synchronous and
// cached; rendering is the engine's one asynchronous operation, modeled as
// tasks the owning widget polls.
package diagram

import (
	"fmt"
	"hash/fnv"
)

// BlockID identifies a diagram block stably across rebuilds: an FNV-64a
// hash of the block's normalized source plus the ordinal of that hash's
// occurrence in scan order. Unlike a raw offset, the identity survives
// edits elsewhere in the document.
type BlockID string

// Block is one fenced diagram block. Start and End are byte offsets
// covering the whole block including both fence lines; Code is the inner
// source as written.
type Block struct {
	ID    BlockID
	Lang  string
	Start int
	End   int
	Code  string
}

// Span returns the block's inclusive offset span.
func (b Block) Span() (from, to int) { return b.Start, b.End }

func blockID(normalized string, ordinal int) BlockID {
	h := fnv.New64a()
	h.Write([]byte(normalized))
	return BlockID(fmt.Sprintf("%016x:%d", h.Sum64(), ordinal))
}
