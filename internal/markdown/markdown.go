// Package markdown implements the syntax.Querier contract over goldmark.
// Parsing happens once per document revision; queries filter the resulting
// construct list by range. The engine consumes only the Querier interface,
// so hosts may substitute any other tree source.
package markdown

import (
	"regexp"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/livemark/internal/doc"
	"github.com/dshills/livemark/internal/syntax"
)

// Tree is a parsed document's construct list, ordered by start offset.
type Tree struct {
	nodes []syntax.Node
}

var _ syntax.Querier = (*Tree)(nil)

// Parse builds a Tree for the document snapshot.
func Parse(d *doc.Document) *Tree {
	source := []byte(d.Text())
	md := goldmark.New(goldmark.WithExtensions(
		extension.Strikethrough,
		extension.TaskList,
	))
	root := md.Parser().Parse(text.NewReader(source))

	c := &collector{
		d:          d,
		source:     source,
		quoteMarks: make(map[int]struct{}),
		quoteLines: make(map[int]struct{}),
		listMarks:  make(map[int]struct{}),
		ruleLines:  make(map[int]struct{}),
	}
	c.walk(root)

	sort.SliceStable(c.nodes, func(i, j int) bool {
		if c.nodes[i].From != c.nodes[j].From {
			return c.nodes[i].From < c.nodes[j].From
		}
		return c.nodes[i].To < c.nodes[j].To
	})
	return &Tree{nodes: c.nodes}
}

// Nodes returns constructs overlapping [from, to), ordered by From.
func (t *Tree) Nodes(from, to int) []syntax.Node {
	var out []syntax.Node
	for _, n := range t.nodes {
		if n.From >= to {
			break
		}
		if n.To > from {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the total construct count.
func (t *Tree) Len() int { return len(t.nodes) }

// listMarkerPattern matches a list item's leading marker and optional task
// checkbox: indent, marker, spacing, then "[ ]" or "[x]" followed by space
// or end of line.
var listMarkerPattern = regexp.MustCompile(`^( *)([-*+]|[0-9]{1,9}[.)])( +)(?:(\[[ xX]\])(?: +|$))?`)

// collector walks the goldmark AST and derives construct spans. goldmark
// tracks segments for text content but not for every delimiter, so marker
// spans are recovered from the source around the content segments.
type collector struct {
	d      *doc.Document
	source []byte
	nodes  []syntax.Node

	// Container blocks revisit lines during the walk; these dedupe the
	// derived marks.
	quoteMarks map[int]struct{}
	quoteLines map[int]struct{}
	listMarks  map[int]struct{}
	ruleLines  map[int]struct{}
}

func (c *collector) emit(kind syntax.NodeKind, from, to int) {
	if from < 0 || to > len(c.source) || from >= to {
		return
	}
	c.nodes = append(c.nodes, syntax.Node{Kind: kind, From: from, To: to})
}

func (c *collector) walk(root ast.Node) {
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			c.heading(n)
		case *ast.Blockquote:
			c.blockquote(n)
		case *ast.ListItem:
			c.listItem(n)
		case *ast.Emphasis:
			c.emphasis(n)
		case *east.Strikethrough:
			c.strikethrough(n)
		case *ast.CodeSpan:
			c.codeSpan(n)
		case *ast.Link:
			c.link(n)
		case *ast.ThematicBreak:
			c.thematicBreak(n)
		case *ast.FencedCodeBlock:
			c.fence(n)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

// heading emits the hash mark of an ATX heading. Setext headings have no
// leading mark and stay undecorated.
func (c *collector) heading(n *ast.Heading) {
	if n.Lines().Len() == 0 {
		return
	}
	seg := n.Lines().At(0)
	line := c.d.LineAt(seg.Start)

	p := line.From
	for p < seg.Start && p-line.From < 3 && c.source[p] == ' ' {
		p++
	}
	if p >= len(c.source) || c.source[p] != '#' {
		return // setext
	}
	c.emit(syntax.KindHeadingMark, line.From, seg.Start)
}

// blockquote emits one mark per ">" in the quote prefix and one line node
// per spanned line.
func (c *collector) blockquote(n *ast.Blockquote) {
	from, to, ok := c.blockSpan(n)
	if !ok {
		return
	}
	startLine := c.d.LineAt(from).Number
	endLine := startLine
	if to > from {
		endLine = c.d.LineAt(to - 1).Number
	}

	for ln := startLine; ln <= endLine; ln++ {
		line, err := c.d.Line(ln)
		if err != nil {
			return
		}
		if _, seen := c.quoteLines[line.From]; !seen {
			c.quoteLines[line.From] = struct{}{}
			c.emit(syntax.KindQuoteLine, line.From, line.To)
		}
		c.quotePrefix(line)
	}
}

// quotePrefix scans a line's leading quote markers. Each ">" plus one
// following space is a mark of its own so nesting levels hide separately.
func (c *collector) quotePrefix(line doc.Line) {
	p := line.From
	for {
		indent := 0
		for p < line.To && c.source[p] == ' ' && indent < 3 {
			p++
			indent++
		}
		if p >= line.To || c.source[p] != '>' {
			return
		}
		markFrom := p
		p++
		if p < line.To && c.source[p] == ' ' {
			p++
		}
		if _, seen := c.quoteMarks[markFrom]; !seen {
			c.quoteMarks[markFrom] = struct{}{}
			c.emit(syntax.KindQuoteMark, markFrom, p)
		}
	}
}

// listItem emits the marker of an unordered item as a list mark and the
// checkbox of a task item as a task mark. Ordered markers carry meaning a
// bullet glyph would erase, so they stay undecorated.
func (c *collector) listItem(n *ast.ListItem) {
	from, _, ok := c.blockSpan(n)
	if !ok {
		return
	}
	line := c.d.LineAt(from)
	m := listMarkerPattern.FindStringSubmatchIndex(c.d.Slice(line.From, line.To))
	if m == nil {
		return
	}

	markFrom := line.From + m[4]
	markTo := line.From + m[5]
	if ch := c.source[markFrom]; ch == '-' || ch == '*' || ch == '+' {
		if _, seen := c.listMarks[markFrom]; !seen {
			c.listMarks[markFrom] = struct{}{}
			c.emit(syntax.KindListMark, markFrom, markTo)
		}
	}
	if m[8] >= 0 {
		c.emit(syntax.KindTaskMark, line.From+m[8], line.From+m[9])
	}
}

func (c *collector) emphasis(n *ast.Emphasis) {
	from, to, ok := c.inlineSpan(n)
	if !ok {
		return
	}
	level := n.Level
	if level < 1 || level > 2 {
		return
	}
	open := from - level
	closing := to + level
	if open < 0 || closing > len(c.source) {
		return
	}
	if !delimiterRun(c.source[open:from], '*', '_') ||
		!delimiterRun(c.source[to:closing], '*', '_') {
		return
	}
	kind := syntax.KindEmphasis
	if level == 2 {
		kind = syntax.KindStrong
	}
	c.emit(kind, open, closing)
}

func (c *collector) strikethrough(n *east.Strikethrough) {
	from, to, ok := c.inlineSpan(n)
	if !ok {
		return
	}
	open := from - 2
	closing := to + 2
	if open < 0 || closing > len(c.source) {
		return
	}
	if !delimiterRun(c.source[open:from], '~') || !delimiterRun(c.source[to:closing], '~') {
		return
	}
	c.emit(syntax.KindStrike, open, closing)
}

// codeSpan widens the content span over the backtick runs. One space of
// padding may sit between content and delimiter when the parser stripped it.
func (c *collector) codeSpan(n *ast.CodeSpan) {
	from, to, ok := c.inlineSpan(n)
	if !ok {
		return
	}
	open := from
	if open > 1 && c.source[open-1] == ' ' && c.source[open-2] == '`' {
		open--
	}
	for open > 0 && c.source[open-1] == '`' {
		open--
	}
	closing := to
	if closing+1 < len(c.source) && c.source[closing] == ' ' && c.source[closing+1] == '`' {
		closing++
	}
	for closing < len(c.source) && c.source[closing] == '`' {
		closing++
	}
	if closing <= open || c.source[open] != '`' || c.source[closing-1] != '`' {
		return
	}
	c.emit(syntax.KindInlineCode, open, closing)
}

// link derives the full "[label](destination)" span. The label may contain
// delimiter characters that carry no text segment, so the brackets are found
// by scanning outward from the label content. Reference-style and shortcut
// links don't fit that shape and stay undecorated.
func (c *collector) link(n *ast.Link) {
	from, to, ok := c.inlineSpan(n)
	if !ok {
		return
	}
	open := from - 1
	for open >= 0 && c.source[open] != '[' {
		if c.source[open] == '\n' {
			return
		}
		open--
	}
	if open < 0 {
		return
	}
	p := to
	for p < len(c.source) && c.source[p] != ']' {
		if c.source[p] == '\n' {
			return
		}
		p++
	}
	p++
	if p >= len(c.source) || c.source[p] != '(' {
		return
	}
	depth := 0
	for ; p < len(c.source); p++ {
		switch c.source[p] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				c.emit(syntax.KindLink, open, p+1)
				return
			}
		case '\n':
			return
		}
	}
}

// thematicBreak finds the break's line in the gap between its siblings.
// goldmark records no segment for thematic breaks, so the line is recovered
// from the source. The gap holds only blank lines, possibly a setext
// underline belonging to the previous heading, and the break itself;
// ruleLines keeps adjacent breaks from claiming the same line.
func (c *collector) thematicBreak(n *ast.ThematicBreak) {
	gapFrom := 0
	if prev := n.PreviousSibling(); prev != nil {
		if _, to, ok := c.blockSpan(prev); ok {
			gapFrom = to
		}
	}
	gapTo := len(c.source)
	if next := n.NextSibling(); next != nil {
		if from, _, ok := c.blockSpan(next); ok {
			gapTo = from
		}
	}

	skipSetext := false
	if h, ok := n.PreviousSibling().(*ast.Heading); ok && h.Lines().Len() > 0 {
		seg := h.Lines().At(0)
		line := c.d.LineAt(seg.Start)
		p := line.From
		for p < seg.Start && c.source[p] == ' ' {
			p++
		}
		skipSetext = p < len(c.source) && c.source[p] != '#'
	}

	startLine := c.d.LineAt(gapFrom).Number
	endLine := c.d.LineAt(gapTo).Number
	for ln := startLine; ln <= endLine; ln++ {
		line, err := c.d.Line(ln)
		if err != nil {
			return
		}
		if line.From < gapFrom {
			continue
		}
		if _, claimed := c.ruleLines[line.From]; claimed {
			continue
		}
		if !breakLine(c.d.Slice(line.From, line.To)) {
			continue
		}
		if skipSetext {
			skipSetext = false
			continue
		}
		c.ruleLines[line.From] = struct{}{}
		c.emit(syntax.KindRule, line.From, line.To)
		return
	}
}

// fence spans a fenced code block from its opening fence line through its
// closing fence line, or through the last content line when unterminated.
func (c *collector) fence(n *ast.FencedCodeBlock) {
	var anchor int
	switch {
	case n.Info != nil:
		anchor = n.Info.Segment.Start
	case n.Lines().Len() > 0:
		first := c.d.LineAt(n.Lines().At(0).Start)
		open, err := c.d.Line(first.Number - 1)
		if err != nil {
			return
		}
		anchor = open.From
	default:
		return
	}
	openLine := c.d.LineAt(anchor)

	lastContent := openLine
	if n.Lines().Len() > 0 {
		stop := n.Lines().At(n.Lines().Len() - 1).Stop
		lastContent = c.d.LineAt(stop - 1)
	}
	if closing, err := c.d.Line(lastContent.Number + 1); err == nil &&
		fenceLine(c.d.Slice(closing.From, closing.To)) {
		c.emit(syntax.KindFence, openLine.From, closing.To)
		return
	}
	c.emit(syntax.KindFence, openLine.From, lastContent.To)
}

// blockSpan returns the offsets covered by a block node's content lines,
// recursing into containers that carry no lines of their own.
func (c *collector) blockSpan(n ast.Node) (int, int, bool) {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return n.Lines().At(0).Start, n.Lines().At(n.Lines().Len() - 1).Stop, true
	}
	from, to := -1, -1
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		cf, ct, ok := c.blockSpan(child)
		if !ok {
			continue
		}
		if from < 0 || cf < from {
			from = cf
		}
		if ct > to {
			to = ct
		}
	}
	if from < 0 {
		return 0, 0, false
	}
	return from, to, true
}

// inlineSpan returns the offsets covered by an inline node's text content.
func (c *collector) inlineSpan(n ast.Node) (int, int, bool) {
	from, to := -1, -1
	var visit func(ast.Node)
	visit = func(m ast.Node) {
		if t, ok := m.(*ast.Text); ok {
			if from < 0 || t.Segment.Start < from {
				from = t.Segment.Start
			}
			if t.Segment.Stop > to {
				to = t.Segment.Stop
			}
		}
		for child := m.FirstChild(); child != nil; child = child.NextSibling() {
			visit(child)
		}
	}
	visit(n)
	if from < 0 {
		return 0, 0, false
	}
	return from, to, true
}

func delimiterRun(b []byte, chars ...byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, ch := range chars {
		all := true
		for _, c := range b {
			if c != ch {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// breakLine reports whether a line is a thematic break: at most three
// spaces of indent, then three or more of the same break character
// separated only by spaces and tabs.
func breakLine(s string) bool {
	i := 0
	for i < len(s) && i < 3 && s[i] == ' ' {
		i++
	}
	if i >= len(s) {
		return false
	}
	ch := s[i]
	if ch != '-' && ch != '_' && ch != '*' {
		return false
	}
	count := 0
	for ; i < len(s); i++ {
		switch s[i] {
		case ch:
			count++
		case ' ', '\t':
		default:
			return false
		}
	}
	return count >= 3
}

// fenceLine reports whether a line closes a fenced code block: at most
// three spaces of indent, then a run of at least three backticks or tildes
// and nothing but trailing whitespace.
func fenceLine(s string) bool {
	i := 0
	for i < len(s) && i < 3 && s[i] == ' ' {
		i++
	}
	if i >= len(s) {
		return false
	}
	ch := s[i]
	if ch != '`' && ch != '~' {
		return false
	}
	count := 0
	for ; i < len(s) && s[i] == ch; i++ {
		count++
	}
	if count < 3 {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return false
		}
	}
	return true
}
