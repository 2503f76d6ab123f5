// Package server exposes the ledger over a JSON HTTP API. Every route
// requires an authenticated user; the authenticated id is the actor for
// authorization checks and the viewpoint for balances.
package server

import (
	"net/http"

	"github.com/splitledger/splitledger/internal/events"
	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/storage"
)

// Server holds the handlers' dependencies.
type Server struct {
	store    storage.Store
	pairwise *ledger.Pairwise
	graph    *ledger.Graph
	bus      *events.Bus
}

// New creates a Server. bus may be nil to disable the event stream.
func New(store storage.Store, pairwise *ledger.Pairwise, graph *ledger.Graph, bus *events.Bus) *Server {
	return &Server{store: store, pairwise: pairwise, graph: graph, bus: bus}
}

// Routes registers every API route on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Relationships.
	mux.HandleFunc("POST /api/relationships", s.handleSendRequest)
	mux.HandleFunc("GET /api/relationships", s.handleListRelationships)
	mux.HandleFunc("GET /api/relationships/{id}", s.handleGetRelationship)
	mux.HandleFunc("POST /api/relationships/{id}/accept", s.handleAccept)
	mux.HandleFunc("POST /api/relationships/{id}/reject", s.handleReject)
	mux.HandleFunc("PUT /api/relationships/{id}/flags", s.handleSetFlags)
	mux.HandleFunc("GET /api/relationships/{id}/balance", s.handleRelationshipBalance)

	// Two-party entries.
	mux.HandleFunc("POST /api/relationships/{id}/entries", s.handleAddEntry)
	mux.HandleFunc("GET /api/relationships/{id}/entries", s.handleListEntries)
	mux.HandleFunc("PUT /api/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)

	// Groups.
	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("POST /api/groups/{id}/members", s.handleAddMember)
	mux.HandleFunc("GET /api/groups/{id}/members", s.handleListMembers)
	mux.HandleFunc("DELETE /api/groups/{id}/members/{memberID}", s.handleRevokeMember)

	// Group expenses and settlements.
	mux.HandleFunc("POST /api/groups/{id}/expenses", s.handleAddExpense)
	mux.HandleFunc("GET /api/groups/{id}/expenses", s.handleListExpenses)
	mux.HandleFunc("PUT /api/group-entries/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/group-entries/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /api/groups/{id}/settlements", s.handleSettle)
	mux.HandleFunc("GET /api/groups/{id}/settlements", s.handleListSettlements)
	mux.HandleFunc("DELETE /api/settlements/{id}", s.handleDeleteSettlement)

	// Group balances.
	mux.HandleFunc("GET /api/groups/{id}/balances", s.handleGroupBalances)
	mux.HandleFunc("GET /api/groups/{id}/members/{memberID}/balance", s.handleMemberBalance)

	// Live event stream.
	mux.HandleFunc("GET /api/rooms/{id}/events", s.handleEventStream)

	return mux
}
