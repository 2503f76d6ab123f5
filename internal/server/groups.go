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
	"github.com/splitledger/splitledger/internal/split"
)

type groupResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatorID string `json:"creator_id"`
	CreatedAt int64  `json:"created_at"`
}

func toGroupResponse(g *models.Group) groupResponse {
	return groupResponse{ID: g.ID, Name: g.Name, CreatorID: g.CreatorID, CreatedAt: g.CreatedAt}
}

type memberResponse struct {
	ID       string `json:"id"`
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	Active   bool   `json:"active"`
	JoinedAt int64  `json:"joined_at"`
}

func toMemberResponse(m *models.GroupMember) memberResponse {
	return memberResponse{ID: m.ID, GroupID: m.GroupID, UserID: m.UserID, Active: m.Active, JoinedAt: m.JoinedAt}
}

type groupEntryResponse struct {
	ID          string        `json:"id"`
	GroupID     string        `json:"group_id"`
	Description string        `json:"description"`
	Total       money.Cents   `json:"total"`
	Strategy    string        `json:"strategy"`
	PayerID     string        `json:"payer_id"`
	Debtors     []debtorOwed  `json:"debtors"`
	Note        string        `json:"note,omitempty"`
	CreatedAt   int64         `json:"created_at"`
}

type debtorOwed struct {
	MemberID string      `json:"member_id"`
	Amount   money.Cents `json:"amount"`
}

func toGroupEntryResponse(e *models.GroupEntry) groupEntryResponse {
	debtors := make([]debtorOwed, len(e.Debtors))
	for i, d := range e.Debtors {
		debtors[i] = debtorOwed{MemberID: d.MemberID, Amount: d.Amount}
	}
	return groupEntryResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Total:       e.TotalAmount,
		Strategy:    string(e.Strategy),
		PayerID:     e.PayerID,
		Debtors:     debtors,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
	}
}

type settlementResponse struct {
	ID          string      `json:"id"`
	GroupID     string      `json:"group_id"`
	PayerID     string      `json:"payer_id"`
	RecipientID string      `json:"recipient_id"`
	Amount      money.Cents `json:"amount"`
	Note        string      `json:"note,omitempty"`
	CreatedAt   int64       `json:"created_at"`
}

func toSettlementResponse(st *models.GroupSettlement) settlementResponse {
	return settlementResponse{
		ID:          st.ID,
		GroupID:     st.GroupID,
		PayerID:     st.PayerID,
		RecipientID: st.RecipientID,
		Amount:      st.Amount,
		Note:        st.Note,
		CreatedAt:   st.CreatedAt,
	}
}

type edgeResponse struct {
	LesserID  string      `json:"lesser_id"`
	GreaterID string      `json:"greater_id"`
	Balance   money.Cents `json:"balance"`
}

// requireMember rejects actors without an active membership in the
// group. Group existence is checked first so a missing group reads as
// not-found rather than forbidden.
func (s *Server) requireMember(r *http.Request, groupID string) error {
	if _, err := s.store.GetGroup(r.Context(), groupID); err != nil {
		return err
	}
	actor := middleware.GetUserID(r.Context())
	members, err := s.store.ListGroupMembers(r.Context(), groupID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.UserID == actor && m.Active {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ledger.ErrNotParticipant, actor)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserID(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, fmt.Errorf("%w: name is required", errBadRequest))
		return
	}

	group := &models.Group{Name: req.Name, CreatorID: actor}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		writeError(w, err)
		return
	}

	// The creator joins immediately.
	member := &models.GroupMember{GroupID: group.ID, UserID: actor, Active: true}
	if err := s.store.AddGroupMember(r.Context(), member); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Group created", "group_id", group.ID, "creator", actor)
	writeJSON(w, http.StatusCreated, map[string]any{
		"group":  toGroupResponse(group),
		"member": toMemberResponse(member),
	})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if err := s.requireMember(r, groupID); err != nil {
		writeError(w, err)
		return
	}
	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID == "" {
		writeError(w, fmt.Errorf("%w: user_id is required", errBadRequest))
		return
	}

	groupID := r.PathValue("id")
	if err := s.requireMember(r, groupID); err != nil {
		writeError(w, err)
		return
	}

	member := &models.GroupMember{GroupID: groupID, UserID: req.UserID, Active: true}
	if err := s.store.AddGroupMember(r.Context(), member); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("Member added", "group_id", groupID, "member_id", member.ID, "user_id", req.UserID)
	writeJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	if err := s.requireMember(r, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	members, err := s.store.ListGroupMembers(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]memberResponse, len(members))
	for i, m := range members {
		out[i] = toMemberResponse(m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRevokeMember(w http.ResponseWriter, r *http.Request) {
	groupID, memberID := r.PathValue("id"), r.PathValue("memberID")
	if err := s.requireMember(r, groupID); err != nil {
		writeError(w, err)
		return
	}

	member, err := s.store.GetGroupMember(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	if member.GroupID != groupID {
		writeError(w, fmt.Errorf("%w: %s", ledger.ErrMemberNotFound, memberID))
		return
	}
	if err := s.store.RevokeGroupMember(r.Context(), memberID); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("Member revoked", "group_id", groupID, "member_id", memberID)
	writeJSON(w, http.StatusOK, nil)
}

type debtorShare struct {
	MemberID string          `json:"member_id"`
	Share    money.Cents     `json:"share,omitempty"`
	Percent  decimal.Decimal `json:"percent,omitempty"`
}

type expenseRequest struct {
	Description  string          `json:"description"`
	Total        money.Cents     `json:"total"`
	Strategy     string          `json:"strategy"`
	PayerID      string          `json:"payer_id"`
	PayerShare   money.Cents     `json:"payer_share"`
	PayerPercent decimal.Decimal `json:"payer_percent"`
	Debtors      []debtorShare   `json:"debtors"`
	Note         string          `json:"note"`
}

func (req expenseRequest) toInput() ledger.ExpenseInput {
	debtors := make([]split.DebtorInput, len(req.Debtors))
	for i, d := range req.Debtors {
		debtors[i] = split.DebtorInput{MemberID: d.MemberID, Share: d.Share, Percent: d.Percent}
	}
	return ledger.ExpenseInput{
		Description:  req.Description,
		Total:        req.Total,
		Strategy:     models.SplitStrategy(req.Strategy),
		PayerID:      req.PayerID,
		PayerShare:   req.PayerShare,
		PayerPercent: req.PayerPercent,
		Debtors:      debtors,
		Note:         req.Note,
	}
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.requireMember(r, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	entry, err := s.graph.AddExpense(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupEntryResponse(entry))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	if err := s.requireMember(r, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.store.ListGroupEntries(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]groupEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toGroupEntryResponse(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	existing, err := s.store.GetGroupEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.requireMember(r, existing.GroupID); err != nil {
		writeError(w, err)
		return
	}

	entry, err := s.graph.UpdateExpense(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupEntryResponse(entry))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	existing, err := s.store.GetGroupEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.requireMember(r, existing.GroupID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.graph.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PayerID     string      `json:"payer_id"`
		RecipientID string      `json:"recipient_id"`
		Amount      money.Cents `json:"amount"`
		Note        string      `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.requireMember(r, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	settlement, err := s.graph.Settle(r.Context(), r.PathValue("id"), ledger.SettlementInput{
		PayerID:     req.PayerID,
		RecipientID: req.RecipientID,
		Amount:      req.Amount,
		Note:        req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementResponse(settlement))
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	if err := s.requireMember(r, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	settlements, err := s.store.ListGroupSettlements(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]settlementResponse, len(settlements))
	for i, st := range settlements {
		out[i] = toSettlementResponse(st)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSettlement(w http.ResponseWriter, r *http.Request) {
	existing, err := s.store.GetGroupSettlement(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.requireMember(r, existing.GroupID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.graph.DeleteSettlement(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if err := s.requireMember(r, groupID); err != nil {
		writeError(w, err)
		return
	}
	edges, err := s.store.ListEdges(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]edgeResponse, len(edges))
	for i, e := range edges {
		out[i] = edgeResponse{LesserID: e.LesserID, GreaterID: e.GreaterID, Balance: e.Balance}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMemberBalance(w http.ResponseWriter, r *http.Request) {
	groupID, memberID := r.PathValue("id"), r.PathValue("memberID")
	if err := s.requireMember(r, groupID); err != nil {
		writeError(w, err)
		return
	}

	total, err := s.graph.TotalBalance(r.Context(), groupID, memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]money.Cents{"balance": total})
}
