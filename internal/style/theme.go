package style

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// ErrUnknownColor is returned when a theme file names an unparseable color.
var ErrUnknownColor = errors.New("unknown color")

// Theme resolves style classes to visual rules. Safe for concurrent use;
// hot reload swaps entries while hosts paint.
type Theme struct {
	mu     sync.RWMutex
	styles map[string]Style
}

// NewTheme returns a theme preloaded with the default class rules.
func NewTheme() *Theme {
	t := &Theme{styles: make(map[string]Style)}
	t.Apply(defaultStyles())
	return t
}

func defaultStyles() map[string]Style {
	fg := MustHex("#d8dee9")
	accent := MustHex("#88c0d0")
	muted := MustHex("#616e88")

	return map[string]Style{
		ClassHeading:     Style{}.WithFg(MustHex("#eceff4")).Bold(),
		ClassStrong:      Style{}.Bold(),
		ClassEmphasis:    Style{}.Italic(),
		ClassStrike:      Style{}.Strike(),
		ClassCode:        Style{}.WithFg(MustHex("#a3be8c")),
		ClassLink:        Style{}.WithFg(accent).Underline(),
		ClassQuote:       Style{}.WithFg(muted).Italic(),
		ClassCollapsed:   Style{}.WithFg(fg.Dim(0.7)).Dim(),
		ClassPlaceholder: Style{}.WithFg(muted).Italic(),
		ClassError:       Style{}.WithFg(MustHex("#bf616a")),
		ClassRule:        Style{}.WithFg(muted),
		ClassBullet:      Style{}.WithFg(accent),
		ClassCheckbox:    Style{}.WithFg(accent),
		ClassCodeKeyword: Style{}.WithFg(MustHex("#81a1c1")).Bold(),
		ClassCodeString:  Style{}.WithFg(MustHex("#a3be8c")),
		ClassCodeComment: Style{}.WithFg(muted).Italic(),
		ClassCodeNumber:  Style{}.WithFg(MustHex("#b48ead")),
		ClassCodeName:    Style{}.WithFg(MustHex("#8fbcbb")),
	}
}

// Style resolves a class. Unknown classes resolve to the zero Style, which
// hosts render with their defaults.
func (t *Theme) Style(class string) Style {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.styles[class]
}

// Set assigns a single class rule.
func (t *Theme) Set(class string, s Style) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.styles[class] = s
}

// Apply merges the given rules over the current ones.
func (t *Theme) Apply(styles map[string]Style) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for class, s := range styles {
		t.styles[class] = s
	}
}

// Classes returns the defined class names, sorted.
func (t *Theme) Classes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.styles))
	for class := range t.styles {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

// classSpec is the TOML shape of one class rule.
type classSpec struct {
	Fg        string `toml:"fg"`
	Bg        string `toml:"bg"`
	Bold      bool   `toml:"bold"`
	Italic    bool   `toml:"italic"`
	Underline bool   `toml:"underline"`
	Strike    bool   `toml:"strike"`
	Dim       bool   `toml:"dim"`
}

type themeFile struct {
	Classes map[string]classSpec `toml:"classes"`
}

// ParseTheme decodes theme TOML into class rules.
func ParseTheme(data []byte) (map[string]Style, error) {
	var file themeFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse theme: %w", err)
	}

	out := make(map[string]Style, len(file.Classes))
	for class, spec := range file.Classes {
		s, err := spec.style()
		if err != nil {
			return nil, fmt.Errorf("theme class %q: %w", class, err)
		}
		out[class] = s
	}
	return out, nil
}

func (spec classSpec) style() (Style, error) {
	var s Style
	if spec.Fg != "" {
		c, err := Hex(spec.Fg)
		if err != nil {
			return Style{}, fmt.Errorf("%w: %v", ErrUnknownColor, err)
		}
		s.Fg = c
	}
	if spec.Bg != "" {
		c, err := Hex(spec.Bg)
		if err != nil {
			return Style{}, fmt.Errorf("%w: %v", ErrUnknownColor, err)
		}
		s.Bg = c
	}
	if spec.Bold {
		s = s.Bold()
	}
	if spec.Italic {
		s = s.Italic()
	}
	if spec.Underline {
		s = s.Underline()
	}
	if spec.Strike {
		s = s.Strike()
	}
	if spec.Dim {
		s = s.Dim()
	}
	return s, nil
}

// LoadTheme reads a TOML theme file and returns the defaults overridden by
// its rules.
func LoadTheme(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme: %w", err)
	}
	styles, err := ParseTheme(data)
	if err != nil {
		return nil, err
	}
	t := NewTheme()
	t.Apply(styles)
	return t, nil
}

// Reload re-reads a theme file into an existing theme.
func (t *Theme) Reload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read theme: %w", err)
	}
	styles, err := ParseTheme(data)
	if err != nil {
		return err
	}
	t.Apply(styles)
	return nil
}
