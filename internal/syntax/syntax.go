// Package syntax defines the tree-query contract between the decoration
// engine and whatever parses the document. The engine never parses Markdown
// itself; it consumes Nodes from a Querier supplied by the host (the
// goldmark-backed adapter in internal/markdown is the stock implementation).
package syntax

// NodeKind identifies a recognized Markdown construct. Kinds outside this
// set are legal input and simply produce no decorations.
type NodeKind uint8

const (
	// KindNone is an unrecognized construct.
	KindNone NodeKind = iota
	// KindHeadingMark is an ATX heading's leading hashes plus the following
	// space.
	KindHeadingMark
	// KindQuoteMark is a blockquote's leading ">" plus the following space.
	KindQuoteMark
	// KindQuoteLine spans one line inside a blockquote, newline excluded.
	KindQuoteLine
	// KindListMark is an unordered list item's bullet marker.
	KindListMark
	// KindTaskMark is a task list item's checkbox marker, "[ ]" or "[x]".
	KindTaskMark
	// KindEmphasis is emphasis delimited by a single "*" or "_".
	KindEmphasis
	// KindStrong is strong emphasis delimited by "**" or "__".
	KindStrong
	// KindStrike is strikethrough delimited by "~~".
	KindStrike
	// KindInlineCode is an inline code span including its backticks.
	KindInlineCode
	// KindLink is a full inline link, "[label](url)".
	KindLink
	// KindRule is a thematic break line.
	KindRule
	// KindFence is a fenced code block including both fence lines.
	KindFence
)

var kindNames = map[NodeKind]string{
	KindNone:        "none",
	KindHeadingMark: "heading-mark",
	KindQuoteMark:   "quote-mark",
	KindQuoteLine:   "quote-line",
	KindListMark:    "list-mark",
	KindTaskMark:    "task-mark",
	KindEmphasis:    "emphasis",
	KindStrong:      "strong",
	KindStrike:      "strike",
	KindInlineCode:  "inline-code",
	KindLink:        "link",
	KindRule:        "rule",
	KindFence:       "fence",
}

// String returns the kind's name, or "none" for unknown values.
func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "none"
}

// Node is one construct reported by a Querier: a kind plus the byte-offset
// span it covers in the document.
type Node struct {
	Kind NodeKind
	From int
	To   int
}

// Querier supplies the constructs overlapping an offset range, ordered by
// From ascending. Implementations may return nodes that extend past the
// requested bounds when a construct straddles them.
type Querier interface {
	Nodes(from, to int) []Node
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(from, to int) []Node

// Nodes implements Querier.
func (f QuerierFunc) Nodes(from, to int) []Node { return f(from, to) }
