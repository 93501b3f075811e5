package diagram

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/livemark/internal/doc"
)

const defaultMargin = 100

// Scanner finds fenced diagram blocks by pattern matching over the visible
// range plus a margin of surrounding lines. Results are cached against the
// document revision; edit notifications that miss every cached block shift
// the cache instead of invalidating it, so scrolling and unrelated typing
// do not rescan.
//
// Scanner is owned by a single session goroutine and is not safe for
// concurrent use.
type Scanner struct {
	re     *regexp.Regexp
	langs  []string
	margin int
	log    *zap.Logger

	cache scanCache
}

type scanCache struct {
	valid    bool
	revision uint64
	from, to int
	blocks   []Block
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithLanguages sets the fence info-strings recognized as diagram source.
// Defaults to mermaid only.
func WithLanguages(langs ...string) ScannerOption {
	return func(s *Scanner) {
		if len(langs) > 0 {
			s.langs = langs
		}
	}
}

// WithMargin sets how many lines beyond the visible range are scanned on
// each side.
func WithMargin(lines int) ScannerOption {
	return func(s *Scanner) {
		if lines >= 0 {
			s.margin = lines
		}
	}
}

// WithScannerLogger sets the scanner's logger.
func WithScannerLogger(log *zap.Logger) ScannerOption {
	return func(s *Scanner) {
		if log != nil {
			s.log = log
		}
	}
}

// NewScanner creates a Scanner.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		langs:  []string{"mermaid"},
		margin: defaultMargin,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.re = compileFencePattern(s.langs)
	return s
}

// compileFencePattern builds the fence regexp: a three-backtick fence at a
// line start whose info-string names a diagram language, through the next
// closing fence at a line start.
func compileFencePattern(langs []string) *regexp.Regexp {
	quoted := make([]string, len(langs))
	for i, l := range langs {
		quoted[i] = regexp.QuoteMeta(l)
	}
	pat := fmt.Sprintf("(?m)^```(%s)[ \t]*\n(?s:(.*?))^```[ \t]*$", strings.Join(quoted, "|"))
	return regexp.MustCompile(pat)
}

// Languages returns the recognized fence info-strings.
func (s *Scanner) Languages() []string { return s.langs }

// Blocks returns the diagram blocks in the scan window around [from, to).
// The cache is reused when the document revision and window still match.
func (s *Scanner) Blocks(d *doc.Document, from, to int) []Block {
	scanFrom, scanTo := s.window(d, from, to)

	if s.cache.valid && s.cache.revision == d.Revision() &&
		s.cache.from <= scanFrom && s.cache.to >= scanTo {
		return s.cache.blocks
	}

	blocks := s.scan(d, scanFrom, scanTo)
	s.cache = scanCache{
		valid:    true,
		revision: d.Revision(),
		from:     scanFrom,
		to:       scanTo,
		blocks:   blocks,
	}
	s.log.Debug("diagram scan",
		zap.Int("from", scanFrom),
		zap.Int("to", scanTo),
		zap.Int("blocks", len(blocks)),
	)
	return blocks
}

// window expands [from, to) to line boundaries plus the margin.
func (s *Scanner) window(d *doc.Document, from, to int) (int, int) {
	startLine := d.LineAt(from).Number - s.margin
	if startLine < 1 {
		startLine = 1
	}
	endLine := d.LineAt(to).Number + s.margin
	if endLine > d.LineCount() {
		endLine = d.LineCount()
	}

	start, err := d.Line(startLine)
	if err != nil {
		return 0, d.Len()
	}
	end, err := d.Line(endLine)
	if err != nil {
		return start.From, d.Len()
	}
	return start.From, end.To
}

func (s *Scanner) scan(d *doc.Document, from, to int) []Block {
	text := d.Slice(from, to)
	matches := s.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	blocks := make([]Block, 0, len(matches))
	ordinals := make(map[string]int)
	for _, m := range matches {
		lang := text[m[2]:m[3]]
		code := text[m[4]:m[5]]
		norm := NormalizeSource(code)
		ord := ordinals[norm]
		ordinals[norm] = ord + 1

		blocks = append(blocks, Block{
			ID:    blockID(norm, ord),
			Lang:  lang,
			Start: from + m[0],
			End:   from + m[1],
			Code:  code,
		})
	}
	return blocks
}

// ApplyEdit tells the scanner that [from, to) was replaced by text of
// length to-from+delta, producing the given new revision. An edit that
// intersects a cached block invalidates the cache; any other edit shifts
// cached spans so the next Blocks call can reuse them.
func (s *Scanner) ApplyEdit(from, to, delta int, revision uint64) {
	if !s.cache.valid {
		return
	}
	for _, b := range s.cache.blocks {
		if from <= b.End && to >= b.Start {
			s.cache.valid = false
			return
		}
	}
	// Shift spans at or past the edit.
	for i := range s.cache.blocks {
		if s.cache.blocks[i].Start >= to {
			s.cache.blocks[i].Start += delta
			s.cache.blocks[i].End += delta
		}
	}
	if s.cache.from >= to {
		s.cache.from += delta
	}
	if s.cache.to >= to {
		s.cache.to += delta
	}
	s.cache.revision = revision
}

// Invalidate drops the cache unconditionally.
func (s *Scanner) Invalidate() {
	s.cache.valid = false
}
