package rpc

import (
	"sync"

	"claimchain/core/events"
	"claimchain/core/types"
)

const defaultSubscriberBuffer = 64

// Broker fans committed events out to websocket subscribers. It implements
// events.Emitter. Slow subscribers lose events instead of blocking the node.
type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan types.Event
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]chan types.Event)}
}

// Emit implements events.Emitter.
func (b *Broker) Emit(evt events.Event) {
	rendered := events.Render(evt)
	if rendered == nil || rendered.Type == "" {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- *rendered.Clone():
		default:
		}
	}
}

// Subscribe registers a subscriber. The returned cancel function must be
// called to release it.
func (b *Broker) Subscribe(buffer int) (<-chan types.Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan types.Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers reports the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
