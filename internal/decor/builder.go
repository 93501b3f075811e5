package decor

import (
	"sort"

	"go.uber.org/zap"
)

// DropHook observes instructions the builder discards, for diagnostics.
type DropHook func(in Instruction, err error)

// Builder collects instructions in any order and assembles them into a Set:
// sort by (From asc, To asc), then insert one by one with each insertion
// individually guarded. A rejected instruction is dropped and reported to
// the debug hook; it never fails the build, so one malformed span cannot
// blank the document's decorations.
type Builder struct {
	pending []Instruction
	log     *zap.Logger
	onDrop  DropHook
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used for drop diagnostics.
func WithLogger(log *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if log != nil {
			b.log = log
		}
	}
}

// WithDropHook registers a hook invoked for every dropped instruction.
func WithDropHook(hook DropHook) BuilderOption {
	return func(b *Builder) {
		b.onDrop = hook
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add collects an instruction for the next Finish.
func (b *Builder) Add(in Instruction) {
	b.pending = append(b.pending, in)
}

// Len returns the number of collected instructions.
func (b *Builder) Len() int { return len(b.pending) }

// Finish sorts the collected instructions and inserts them into a fresh
// Set. The builder is reset for reuse.
func (b *Builder) Finish() *Set {
	sort.SliceStable(b.pending, func(i, j int) bool {
		if b.pending[i].From != b.pending[j].From {
			return b.pending[i].From < b.pending[j].From
		}
		return b.pending[i].To < b.pending[j].To
	})

	set := &Set{}
	for _, in := range b.pending {
		if err := set.Insert(in); err != nil {
			set.dropped++
			b.log.Debug("decoration dropped",
				zap.Int("from", in.From),
				zap.Int("to", in.To),
				zap.Stringer("kind", in.Kind),
				zap.Error(err),
			)
			if b.onDrop != nil {
				b.onDrop(in, err)
			}
		}
	}
	b.pending = b.pending[:0]
	return set
}
