// Package events publishes post-commit ledger domain events.
//
// The ledger engine emits one event per committed mutation, keyed by a
// room (the relationship or group id). Delivery to live clients is the
// transport's responsibility; this package only fans out in-process.
package events

import (
	"sync"

	"github.com/splitledger/splitledger/internal/money"
)

// Type identifies what happened.
type Type string

const (
	EntryAdded        Type = "ENTRY_ADDED"
	EntryUpdated      Type = "ENTRY_UPDATED"
	EntryDeleted      Type = "ENTRY_DELETED"
	SettlementApplied Type = "SETTLEMENT_APPLIED"
)

// Event describes one committed ledger mutation.
type Event struct {
	Type Type

	// Room is the relationship or group id the event belongs to.
	Room string

	// EntryID is the entry or settlement affected.
	EntryID string

	// Balances carries the post-commit balance per touched pair. For
	// two-party events the key is the relationship id; for group events
	// it is "lesser:greater".
	Balances map[string]money.Cents
}

// Publisher receives events after a ledger transaction commits.
type Publisher interface {
	Publish(e Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Publish(Event) {}

// Bus is an in-process Publisher with per-room subscribers.
// Slow subscribers drop events rather than blocking the publisher: the
// ledger must never stall on a consumer.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe returns a channel of events for one room and a cancel func.
func (b *Bus) Subscribe(room string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[room] = append(b.subs[room], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[room]
		for i, c := range chans {
			if c == ch {
				b.subs[room] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Publish delivers e to every subscriber of its room.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e.Room] {
		select {
		case ch <- e:
		default: // subscriber is behind, drop
		}
	}
}
