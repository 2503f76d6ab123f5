package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/splitledger/splitledger/internal/events"
	"github.com/splitledger/splitledger/internal/money"
)

type eventPayload struct {
	Type     string                 `json:"type"`
	Room     string                 `json:"room"`
	EntryID  string                 `json:"entry_id"`
	Balances map[string]money.Cents `json:"balances"`
}

// handleEventStream streams ledger events for one room (a relationship or
// group id) as server-sent events. The stream ends when the client goes
// away; a slow client misses events rather than stalling the ledger.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "event stream disabled", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, cancel := s.bus.Subscribe(r.PathValue("id"))
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, e)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, e events.Event) {
	data, err := json.Marshal(eventPayload{
		Type:     string(e.Type),
		Room:     e.Room,
		EntryID:  e.EntryID,
		Balances: e.Balances,
	})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
}
