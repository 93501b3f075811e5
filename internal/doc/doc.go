// Package doc provides the document view consumed by the decoration
// engine: an immutable-per-revision text snapshot with line-indexed
// access. The engine only ever reads a Document; hosts that edit text
// produce a new snapshot (and a new revision) per change.
package doc
