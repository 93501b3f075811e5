// Package engine builds the decoration overlay for a Markdown document.
//
// A Session owns the per-editor state that survives across rebuilds: the
// diagram block scanner's cache, the edit-mode pin store, and the render
// pipeline handle. Everything else is recomputed by Rebuild, which maps a
// document snapshot, syntax tree, selection, and viewport to an ordered
// decoration set. Rebuild is synchronous and never performs I/O; diagram
// rendering happens on pipeline goroutines and is observed through widget
// tasks.
//
// The engine consumes the syntax tree only through syntax.Querier, so hosts
// may plug in any tree source; internal/markdown provides the shipped one.
package engine
