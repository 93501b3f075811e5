package engine

import (
	"regexp"
	"strings"

	"github.com/dshills/livemark/internal/decor"
	"github.com/dshills/livemark/internal/doc"
	"github.com/dshills/livemark/internal/highlight"
	"github.com/dshills/livemark/internal/style"
	"github.com/dshills/livemark/internal/syntax"
	"github.com/dshills/livemark/internal/widget"
)

// linkPattern must cover the node text exactly; anything else (reference
// links, bare brackets, multi-line labels) produces no decorations.
var linkPattern = regexp.MustCompile(`^\[([^\]]*)\]\(([^)]*)\)$`)

// pairClasses maps the delimiter-paired inline kinds to their style class.
var pairClasses = map[syntax.NodeKind]string{
	syntax.KindEmphasis:   style.ClassEmphasis,
	syntax.KindStrong:     style.ClassStrong,
	syntax.KindStrike:     style.ClassStrike,
	syntax.KindInlineCode: style.ClassCode,
}

// decorateNode emits the decorations for one construct. Nodes touching an
// active line emit nothing, except fences, which degrade line by line.
func (s *Session) decorateNode(b *decor.Builder, d *doc.Document, n syntax.Node, active map[int]struct{}) {
	if n.Kind == syntax.KindFence {
		s.fence(b, d, n, active)
		return
	}
	if nodeActive(d, n, active) {
		return
	}
	switch n.Kind {
	case syntax.KindHeadingMark:
		b.Add(decor.Line(n.From, style.ClassHeading))
		b.Add(decor.Hide(n.From, n.To))
	case syntax.KindQuoteMark:
		b.Add(decor.Hide(n.From, n.To))
	case syntax.KindQuoteLine:
		b.Add(decor.Line(n.From, style.ClassQuote))
	case syntax.KindListMark:
		b.Add(decor.Replace(n.From, n.To, widget.NewBullet()))
	case syntax.KindTaskMark:
		checked := strings.ContainsAny(d.Slice(n.From, n.To), "xX")
		b.Add(decor.Replace(n.From, n.To, widget.NewCheckbox(checked)))
	case syntax.KindEmphasis, syntax.KindStrong, syntax.KindStrike, syntax.KindInlineCode:
		pairedMarks(b, d, n, pairClasses[n.Kind])
	case syntax.KindLink:
		linkMarks(b, d, n)
	case syntax.KindRule:
		b.Add(decor.Replace(n.From, n.To, widget.NewRule()))
	}
}

// pairedMarks hides a construct's delimiter runs and styles the interior.
// The three instructions share boundaries, so the styled span starts where
// the opening hide ends and ends where the closing hide starts.
func pairedMarks(b *decor.Builder, d *doc.Document, n syntax.Node, class string) {
	text := d.Slice(n.From, n.To)
	delim := delimRun(text)
	if delim == 0 || len(text) < 2*delim+1 {
		return
	}
	ch := text[0]
	for i := len(text) - delim; i < len(text); i++ {
		if text[i] != ch {
			return
		}
	}
	innerFrom := n.From + delim
	innerTo := n.To - delim
	b.Add(decor.Hide(n.From, innerFrom))
	b.Add(decor.Style(innerFrom, innerTo, class))
	b.Add(decor.Hide(innerTo, n.To))
}

// delimRun returns the length of the leading delimiter run, or 0 when the
// text does not start with a recognized delimiter or is delimiters only.
func delimRun(s string) int {
	if s == "" {
		return 0
	}
	ch := s[0]
	switch ch {
	case '*', '_', '~', '`':
	default:
		return 0
	}
	n := 1
	for n < len(s) && s[n] == ch {
		n++
	}
	if n == len(s) {
		return 0
	}
	return n
}

// linkMarks hides the bracket and URL portions of an inline link and styles
// the label. A node whose text does not match the expected shape exactly is
// left untouched.
func linkMarks(b *decor.Builder, d *doc.Document, n syntax.Node) {
	text := d.Slice(n.From, n.To)
	m := linkPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return
	}
	labelFrom := n.From + m[2]
	labelTo := n.From + m[3]
	b.Add(decor.Hide(n.From, labelFrom))
	b.Add(decor.Style(labelFrom, labelTo, style.ClassLink))
	b.Add(decor.Hide(labelTo, n.To))
}

// fence decorates a fenced code block: both fence lines hidden, interior
// lines given the code line class, and the interior tokenized when syntax
// highlighting is on. Active lines opt out individually rather than
// reverting the whole block. Blocks in a diagram language are skipped here;
// the preview pass owns them.
func (s *Session) fence(b *decor.Builder, d *doc.Document, n syntax.Node, active map[int]struct{}) {
	open := d.LineAt(n.From)
	lang := fenceInfo(d.Slice(open.From, open.To))
	if s.diagramLang(lang) {
		return
	}

	last := d.LineAt(n.To - 1)
	contentFrom := open.To + 1
	contentTo := n.To
	closed := false
	if last.Number > open.Number && closingFence(d.Slice(last.From, last.To)) {
		closed = true
		contentTo = last.From
	}

	if _, on := active[open.Number]; !on && open.Len() > 0 {
		b.Add(decor.Hide(open.From, open.To))
	}
	if closed && last.Len() > 0 {
		if _, on := active[last.Number]; !on {
			b.Add(decor.Hide(last.From, last.To))
		}
	}

	if contentFrom >= contentTo {
		return
	}
	for num := open.Number + 1; ; num++ {
		line, err := d.Line(num)
		if err != nil || line.From >= contentTo {
			break
		}
		if _, on := active[num]; !on {
			b.Add(decor.Line(line.From, style.ClassCode))
		}
	}
	if !s.highlight || lang == "" {
		return
	}
	for _, sp := range highlight.Spans(lang, d.Slice(contentFrom, contentTo), contentFrom) {
		if sp.From >= sp.To || spanActive(d, sp.From, sp.To, active) {
			continue
		}
		b.Add(decor.Style(sp.From, sp.To, sp.Class))
	}
}

// fenceInfo extracts the language word from an opening fence line.
func fenceInfo(line string) string {
	s := strings.TrimLeft(line, " ")
	if s == "" {
		return ""
	}
	ch := s[0]
	if ch != '`' && ch != '~' {
		return ""
	}
	s = strings.TrimLeft(s, string(ch))
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		s = s[:i]
	}
	return s
}

// closingFence reports whether a line is a bare closing fence: up to three
// spaces of indent, a run of at least three backticks or tildes, and
// nothing else but whitespace.
func closingFence(s string) bool {
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
