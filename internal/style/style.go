// Package style maps decoration style classes to visual rules. The engine
// emits class names; hosts resolve them through a Theme at paint time. Theme
// contents are static at load apart from optional hot reload.
package style

// Style classes the engine emits. Hosts may define more in theme files.
const (
	ClassHeading     = "heading"
	ClassStrong      = "strong"
	ClassEmphasis    = "em"
	ClassStrike      = "strike"
	ClassCode        = "code"
	ClassLink        = "link"
	ClassQuote       = "quote"
	ClassCollapsed   = "collapsed"
	ClassPlaceholder = "placeholder"
	ClassError       = "error"
	ClassRule        = "hr"
	ClassBullet      = "bullet"
	ClassCheckbox    = "checkbox"

	ClassCodeKeyword = "code-keyword"
	ClassCodeString  = "code-string"
	ClassCodeComment = "code-comment"
	ClassCodeNumber  = "code-number"
	ClassCodeName    = "code-name"
)

// Attr is a bitmask of text attributes.
type Attr uint8

const (
	// AttrBold renders bold text.
	AttrBold Attr = 1 << iota
	// AttrItalic renders italic text.
	AttrItalic
	// AttrUnderline renders underlined text.
	AttrUnderline
	// AttrStrike renders struck-through text.
	AttrStrike
	// AttrDim renders dimmed text.
	AttrDim
	// AttrReverse swaps foreground and background.
	AttrReverse
)

// Has reports whether the given flag is set.
func (a Attr) Has(flag Attr) bool { return a&flag != 0 }

// Style is one visual rule: optional colors plus attributes.
type Style struct {
	Fg    Color
	Bg    Color
	Attrs Attr
}

// Bold returns the style with AttrBold set.
func (s Style) Bold() Style { s.Attrs |= AttrBold; return s }

// Italic returns the style with AttrItalic set.
func (s Style) Italic() Style { s.Attrs |= AttrItalic; return s }

// Underline returns the style with AttrUnderline set.
func (s Style) Underline() Style { s.Attrs |= AttrUnderline; return s }

// Strike returns the style with AttrStrike set.
func (s Style) Strike() Style { s.Attrs |= AttrStrike; return s }

// Dim returns the style with AttrDim set.
func (s Style) Dim() Style { s.Attrs |= AttrDim; return s }

// Reverse returns the style with AttrReverse set.
func (s Style) Reverse() Style { s.Attrs |= AttrReverse; return s }

// WithFg returns the style with the foreground color set.
func (s Style) WithFg(c Color) Style { s.Fg = c; return s }

// WithBg returns the style with the background color set.
func (s Style) WithBg(c Color) Style { s.Bg = c; return s }

// Merge returns the receiver overridden by o's set colors and combined
// attributes.
func (s Style) Merge(o Style) Style {
	out := s
	if o.Fg.IsSet() {
		out.Fg = o.Fg
	}
	if o.Bg.IsSet() {
		out.Bg = o.Bg
	}
	out.Attrs |= o.Attrs
	return out
}

// Equal reports whether two styles are identical.
func (s Style) Equal(o Style) bool {
	return s.Fg == o.Fg && s.Bg == o.Bg && s.Attrs == o.Attrs
}

// IsZero reports whether the style carries no color and no attributes.
func (s Style) IsZero() bool {
	return !s.Fg.IsSet() && !s.Bg.IsSet() && s.Attrs == 0
}
