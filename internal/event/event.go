// Package event is a small synchronous bus with hierarchical dot-notation
// topics. The engine publishes here so hosts can observe rebuild triggers,
// pin transitions, theme reloads, and dropped decorations without coupling
// to engine internals. Delivery happens on the publisher's goroutine.
package event

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Topic is a hierarchical event type using dot notation, for example
// "preview.block.edit".
type Topic string

// Topics published by the engine and the demo host.
const (
	TopicDocChanged       Topic = "doc.changed"
	TopicSelectionChanged Topic = "selection.changed"
	TopicViewportChanged  Topic = "viewport.changed"
	TopicBlockEdit        Topic = "preview.block.edit"
	TopicBlockPin         Topic = "preview.block.pin"
	TopicBlockUnpin       Topic = "preview.block.unpin"
	TopicThemeChanged     Topic = "theme.changed"
	TopicDecorationDrop   Topic = "decoration.dropped"
)

// Wildcard constants for subscription patterns.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"
	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"
	// Separator separates topic segments.
	Separator = "."
)

// Bus errors.
var (
	ErrNilHandler           = errors.New("nil handler")
	ErrInvalidTopic         = errors.New("invalid topic")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// String returns the topic as a string.
func (t Topic) String() string { return string(t) }

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// IsValid reports whether the topic is non-empty with no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Matches reports whether the topic matches a pattern. "*" matches exactly
// one segment, "**" zero or more.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.Segments(), pattern.Segments())
}

func matchSegments(topic, pattern []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == WildcardMulti {
			for skip := 0; skip <= len(topic); skip++ {
				if matchSegments(topic[skip:], pattern[1:]) {
					return true
				}
			}
			return false
		}
		if len(topic) == 0 {
			return false
		}
		if pattern[0] != WildcardSingle && pattern[0] != topic[0] {
			return false
		}
		topic = topic[1:]
		pattern = pattern[1:]
	}
	return len(topic) == 0
}

// Event is a published occurrence with an optional payload.
type Event struct {
	Topic   Topic
	Payload any
	Time    time.Time
}

// Handler receives events matching a subscription's pattern.
type Handler func(Event)

// SubID identifies a subscription for Unsubscribe.
type SubID uint64

type subscription struct {
	id      SubID
	pattern Topic
	fn      Handler
}

// Bus delivers events synchronously to matching subscribers in subscription
// order. Safe for concurrent use; handlers run on the publisher's goroutine,
// so they must not block.
type Bus struct {
	mu     sync.RWMutex
	nextID SubID
	subs   []subscription

	log *zap.Logger

	published atomic.Uint64
	delivered atomic.Uint64
	panics    atomic.Uint64
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used to report handler panics.
func WithLogger(log *zap.Logger) BusOption {
	return func(b *Bus) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for topics matching pattern.
func (b *Bus) Subscribe(pattern Topic, fn Handler) (SubID, error) {
	if fn == nil {
		return 0, ErrNilHandler
	}
	if !patternValid(pattern) {
		return 0, ErrInvalidTopic
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, pattern: pattern, fn: fn})
	return id, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(id SubID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Publish delivers an event to every matching subscriber and returns the
// delivery count. A panicking handler is recovered, logged, and skipped so
// one subscriber cannot break the publisher.
func (b *Bus) Publish(topic Topic, payload any) int {
	if !topic.IsValid() {
		return 0
	}
	ev := Event{Topic: topic, Payload: payload, Time: time.Now()}

	b.mu.RLock()
	matched := make([]subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if topic.Matches(sub.pattern) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	b.published.Add(1)
	delivered := 0
	for _, sub := range matched {
		if b.deliver(sub, ev) {
			delivered++
		}
	}
	b.delivered.Add(uint64(delivered))
	return delivered
}

func (b *Bus) deliver(sub subscription, ev Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			b.panics.Add(1)
			b.log.Error("event handler panic",
				zap.String("topic", ev.Topic.String()),
				zap.String("pattern", sub.pattern.String()),
				zap.Any("panic", r))
		}
	}()
	sub.fn(ev)
	return true
}

// Stats is a snapshot of bus counters.
type Stats struct {
	Published   uint64
	Delivered   uint64
	Panics      uint64
	Subscribers int
}

// Stats returns current counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return Stats{
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Panics:      b.panics.Load(),
		Subscribers: n,
	}
}

// patternValid allows wildcard segments where plain topics do not need them.
func patternValid(pattern Topic) bool {
	if pattern == "" {
		return false
	}
	for _, seg := range pattern.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}
