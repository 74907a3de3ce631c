// Package bus provides a small typed in-process event bus. Publishers and
// subscribers are wired explicitly; there is no package-level instance.
package bus

import "sync"

// Topic names a class of change events.
type Topic string

const (
	TopicCostItemsChanged Topic = "cost_items_changed"
	TopicBonusChanged     Topic = "bonus_changed"
	TopicPlanChanged      Topic = "plan_changed"
	TopicAssetsChanged    Topic = "assets_changed"
	TopicMenuChanged      Topic = "menu_changed"
)

// Event describes one change to a business's data.
type Event struct {
	Topic      Topic
	BusinessID string
	EntityID   string
}

// Bus dispatches events synchronously to subscribed handlers. A zero Bus is
// not usable; construct with New.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic]map[int]func(Event)
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic]map[int]func(Event))}
}

// Subscribe registers fn for events on topic and returns the function that
// removes the subscription. Callers own the unsubscribe lifetime; handlers
// registered for a component must be removed when the component goes away.
func (b *Bus) Subscribe(topic Topic, fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func(Event))
	}
	b.subs[topic][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish delivers ev to every handler subscribed to its topic, on the
// caller's goroutine. Handlers must not block.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs[ev.Topic]))
	for _, fn := range b.subs[ev.Topic] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
