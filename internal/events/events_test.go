package events

import (
	"testing"

	"github.com/splitledger/splitledger/internal/money"
)

func TestBusDeliversToRoomSubscribers(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe("rel-1")
	defer cancel()

	other, cancelOther := bus.Subscribe("rel-2")
	defer cancelOther()

	bus.Publish(Event{
		Type:     EntryAdded,
		Room:     "rel-1",
		EntryID:  "e1",
		Balances: map[string]money.Cents{"rel-1": 5000},
	})

	select {
	case e := <-ch:
		if e.Type != EntryAdded || e.EntryID != "e1" {
			t.Errorf("unexpected event %+v", e)
		}
		if e.Balances["rel-1"] != 5000 {
			t.Errorf("balance = %d, want 5000", e.Balances["rel-1"])
		}
	default:
		t.Fatal("expected event for rel-1 subscriber")
	}

	select {
	case e := <-other:
		t.Fatalf("rel-2 subscriber received foreign event %+v", e)
	default:
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe("room")
	defer cancel()

	// Publish far more than the buffer; must not block.
	for i := 0; i < 100; i++ {
		bus.Publish(Event{Type: EntryAdded, Room: "room"})
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("room")
	cancel()

	bus.Publish(Event{Type: EntryDeleted, Room: "room"})

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
}
