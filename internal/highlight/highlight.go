// Package highlight tokenizes fenced code block content into style-classed
// spans using chroma. Only token families with a visual mapping in the theme
// produce spans; everything else stays unstyled.
package highlight

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/dshills/livemark/internal/style"
)

// Span is a half-open styled range in document offsets.
type Span struct {
	From  int
	To    int
	Class string
}

// Supported reports whether a lexer exists for the language tag.
func Supported(lang string) bool {
	return lang != "" && lexers.Get(lang) != nil
}

// Spans tokenizes code and returns classed spans with offsets shifted by
// base, the document offset of the code's first byte. Unknown languages and
// lexer errors yield no spans; the block then renders unstyled, which is
// never an error.
func Spans(lang, code string, base int) []Span {
	if lang == "" || code == "" {
		return nil
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return nil
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil
	}

	var spans []Span
	offset := base
	for tok := it(); tok != chroma.EOF; tok = it() {
		n := len(tok.Value)
		if class := classFor(tok.Type); class != "" && n > 0 {
			spans = append(spans, Span{From: offset, To: offset + n, Class: class})
		}
		offset += n
	}
	return spans
}

// classFor maps a chroma token family to a theme style class. The mapping is
// deliberately coarse: five classes cover what a preview pane can usefully
// distinguish.
func classFor(t chroma.TokenType) string {
	switch {
	case t.InCategory(chroma.Keyword):
		return style.ClassCodeKeyword
	case t.InSubCategory(chroma.LiteralString):
		return style.ClassCodeString
	case t.InSubCategory(chroma.LiteralNumber):
		return style.ClassCodeNumber
	case t.InCategory(chroma.Comment):
		return style.ClassCodeComment
	case t == chroma.NameFunction || t == chroma.NameClass ||
		t == chroma.NameBuiltin || t == chroma.NameDecorator || t == chroma.NameTag:
		return style.ClassCodeName
	default:
		return ""
	}
}
