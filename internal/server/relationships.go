package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/middleware"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

type relationshipResponse struct {
	ID        string      `json:"id"`
	PartyA    string      `json:"party_a"`
	PartyB    string      `json:"party_b"`
	Status    string      `json:"status"`
	Balance   money.Cents `json:"balance"`
	Archived  bool        `json:"archived"`
	Blocked   bool        `json:"blocked"`
	CreatedAt int64       `json:"created_at"`
}

func toRelationshipResponse(r *models.Relationship) relationshipResponse {
	return relationshipResponse{
		ID:        r.ID,
		PartyA:    r.PartyA,
		PartyB:    r.PartyB,
		Status:    string(r.Status),
		Balance:   r.Balance,
		Archived:  r.ArchivedByA || r.ArchivedByB,
		Blocked:   r.BlockedByA || r.BlockedByB,
		CreatedAt: r.CreatedAt,
	}
}

func (s *Server) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserID(r.Context())

	var req struct {
		RecipientID string `json:"recipient_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RecipientID == "" {
		writeError(w, fmt.Errorf("%w: recipient_id is required", errBadRequest))
		return
	}

	rel, err := s.pairwise.SendRequest(r.Context(), actor, req.RecipientID)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("Relationship requested", "relationship_id", rel.ID, "requester", actor)
	writeJSON(w, http.StatusCreated, toRelationshipResponse(rel))
}

func (s *Server) handleListRelationships(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserID(r.Context())

	rels, err := s.store.ListRelationships(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]relationshipResponse, len(rels))
	for i, rel := range rels {
		out[i] = toRelationshipResponse(rel)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRelationship(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserID(r.Context())

	rel, err := s.store.GetRelationship(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !rel.Party(actor) {
		writeError(w, fmt.Errorf("%w: %s", ledger.ErrNotParticipant, actor))
		return
	}
	writeJSON(w, http.StatusOK, toRelationshipResponse(rel))
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserID(r.Context())
	id := r.PathValue("id")

	if err := s.pairwise.Accept(r.Context(), id, actor); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("Relationship accepted", "relationship_id", id, "actor", actor)
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserID(r.Context())
	id := r.PathValue("id")

	if err := s.pairwise.Reject(r.Context(), id, actor); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("Relationship rejected", "relationship_id", id, "actor", actor)
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleSetFlags(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserID(r.Context())

	var req struct {
		Archived bool `json:"archived"`
		Blocked  bool `json:"blocked"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.pairwise.SetFlags(r.Context(), r.PathValue("id"), actor, req.Archived, req.Blocked); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleRelationshipBalance(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserID(r.Context())

	balance, err := s.pairwise.Balance(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]money.Cents{"balance": balance})
}

type entryRequest struct {
	Description   string          `json:"description"`
	Total         money.Cents     `json:"total"`
	Strategy      string          `json:"strategy"`
	PayerID       string          `json:"payer_id"`
	DebtorID      string          `json:"debtor_id"`
	PayerShare    money.Cents     `json:"payer_share"`
	DebtorShare   money.Cents     `json:"debtor_share"`
	PayerPercent  decimal.Decimal `json:"payer_percent"`
	DebtorPercent decimal.Decimal `json:"debtor_percent"`
	Note          string          `json:"note"`
}

func (req entryRequest) toInput() ledger.EntryInput {
	return ledger.EntryInput{
		Description:   req.Description,
		Total:         req.Total,
		Strategy:      models.SplitStrategy(req.Strategy),
		PayerID:       req.PayerID,
		DebtorID:      req.DebtorID,
		PayerShare:    req.PayerShare,
		DebtorShare:   req.DebtorShare,
		PayerPercent:  req.PayerPercent,
		DebtorPercent: req.DebtorPercent,
		Note:          req.Note,
	}
}

type entryResponse struct {
	ID             string      `json:"id"`
	RelationshipID string      `json:"relationship_id"`
	Description    string      `json:"description"`
	Total          money.Cents `json:"total"`
	Strategy       string      `json:"strategy"`
	PayerID        string      `json:"payer_id"`
	DebtorID       string      `json:"debtor_id"`
	DebtorAmount   money.Cents `json:"debtor_amount"`
	Note           string      `json:"note,omitempty"`
	CreatedAt      int64       `json:"created_at"`
	Deleted        bool        `json:"deleted,omitempty"`
}

func toEntryResponse(e *models.Entry) entryResponse {
	return entryResponse{
		ID:             e.ID,
		RelationshipID: e.RelationshipID,
		Description:    e.Description,
		Total:          e.TotalAmount,
		Strategy:       string(e.Strategy),
		PayerID:        e.PayerID,
		DebtorID:       e.DebtorID,
		DebtorAmount:   e.DebtorAmount,
		Note:           e.Note,
		CreatedAt:      e.CreatedAt,
		Deleted:        e.Deleted(),
	}
}

type addEntryResponse struct {
	Entry          *entryResponse `json:"entry,omitempty"`
	Balance        money.Cents    `json:"balance"`
	AlreadySettled bool           `json:"already_settled,omitempty"`
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserID(r.Context())

	var req entryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if actor != req.PayerID && actor != req.DebtorID {
		writeError(w, fmt.Errorf("%w: %s", ledger.ErrNotParticipant, actor))
		return
	}

	res, err := s.pairwise.AddEntry(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}

	out := addEntryResponse{Balance: res.Balance, AlreadySettled: res.AlreadySettled}
	if res.Entry != nil {
		e := toEntryResponse(res.Entry)
		out.Entry = &e
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListEntries(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	entry, balance, err := s.pairwise.UpdateEntry(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	e := toEntryResponse(entry)
	writeJSON(w, http.StatusOK, addEntryResponse{Entry: &e, Balance: balance})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	balance, err := s.pairwise.DeleteEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]money.Cents{"balance": balance})
}
