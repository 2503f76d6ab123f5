package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

// GetEdge retrieves the canonical edge between two memberships; the
// arguments may be in either order.
func (s *SQLiteStore) GetEdge(ctx context.Context, groupID, memberA, memberB string) (*models.GroupBalanceEdge, error) {
	lesser, greater := models.EdgeKey(memberA, memberB)
	e := &models.GroupBalanceEdge{}
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT group_id, lesser_id, greater_id, balance FROM group_edges
		 WHERE group_id = ? AND lesser_id = ? AND greater_id = ?`,
		groupID, lesser, greater,
	).Scan(&e.GroupID, &e.LesserID, &e.GreaterID, &balance)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get edge: %w", err)
	}
	e.Balance = money.Cents(balance)
	return e, nil
}

func scanEdges(rows *sql.Rows) ([]*models.GroupBalanceEdge, error) {
	defer rows.Close()
	var out []*models.GroupBalanceEdge
	for rows.Next() {
		e := &models.GroupBalanceEdge{}
		var balance int64
		if err := rows.Scan(&e.GroupID, &e.LesserID, &e.GreaterID, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Balance = money.Cents(balance)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}
	return out, nil
}

// ListEdges returns every edge of a group in canonical key order.
func (s *SQLiteStore) ListEdges(ctx context.Context, groupID string) ([]*models.GroupBalanceEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, lesser_id, greater_id, balance FROM group_edges
		 WHERE group_id = ? ORDER BY lesser_id, greater_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	return scanEdges(rows)
}

// ListEdgesFor returns every edge touching one membership.
func (s *SQLiteStore) ListEdgesFor(ctx context.Context, groupID, memberID string) ([]*models.GroupBalanceEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, lesser_id, greater_id, balance FROM group_edges
		 WHERE group_id = ? AND (lesser_id = ? OR greater_id = ?)
		 ORDER BY lesser_id, greater_id`, groupID, memberID, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	return scanEdges(rows)
}

// EdgeForUpdate gets or creates the canonical edge within the transaction.
// INSERT OR IGNORE keeps first contact idempotent under concurrency: the
// primary key guarantees at most one edge per unordered pair.
func (t *sqlTx) EdgeForUpdate(ctx context.Context, groupID, lesser, greater string) (*models.GroupBalanceEdge, error) {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_edges (group_id, lesser_id, greater_id, balance)
		 VALUES (?, ?, ?, 0)`, groupID, lesser, greater)
	if err != nil {
		return nil, fmt.Errorf("failed to create edge: %w", err)
	}

	e := &models.GroupBalanceEdge{}
	var balance int64
	err = t.tx.QueryRowContext(ctx,
		`SELECT group_id, lesser_id, greater_id, balance FROM group_edges
		 WHERE group_id = ? AND lesser_id = ? AND greater_id = ?`,
		groupID, lesser, greater,
	).Scan(&e.GroupID, &e.LesserID, &e.GreaterID, &balance)
	if err != nil {
		return nil, fmt.Errorf("failed to get edge: %w", err)
	}
	e.Balance = money.Cents(balance)
	return e, nil
}

// SetEdgeBalance writes an edge balance. Only the ledger engine calls
// this.
func (t *sqlTx) SetEdgeBalance(ctx context.Context, groupID, lesser, greater string, balance money.Cents) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE group_edges SET balance = ?
		 WHERE group_id = ? AND lesser_id = ? AND greater_id = ?`,
		int64(balance), groupID, lesser, greater)
	if err != nil {
		return fmt.Errorf("failed to update edge balance: %w", err)
	}
	return requireRowAffected(res)
}

const groupEntryCols = `id, group_id, description, total_amount, strategy, payer_id, note, created_at, deleted_at`

func scanGroupEntry(row rowScanner) (*models.GroupEntry, error) {
	e := &models.GroupEntry{}
	var total int64
	var note sql.NullString
	err := row.Scan(&e.ID, &e.GroupID, &e.Description, &total, &e.Strategy,
		&e.PayerID, &note, &e.CreatedAt, &e.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan group entry: %w", err)
	}
	e.TotalAmount = money.Cents(total)
	if note.Valid {
		e.Note = note.String
	}
	return e, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadDebtors(ctx context.Context, q querier, entryID string) ([]models.GroupEntryDebtor, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT member_id, amount FROM group_entry_debtors WHERE entry_id = ? ORDER BY member_id`,
		entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get debtors: %w", err)
	}
	defer rows.Close()

	var out []models.GroupEntryDebtor
	for rows.Next() {
		var d models.GroupEntryDebtor
		var amount int64
		if err := rows.Scan(&d.MemberID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan debtor: %w", err)
		}
		d.Amount = money.Cents(amount)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debtors: %w", err)
	}
	return out, nil
}

// GetGroupEntry retrieves a group entry with its debtor shares,
// soft-deleted ones included so history stays queryable.
func (s *SQLiteStore) GetGroupEntry(ctx context.Context, id string) (*models.GroupEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupEntryCols+` FROM group_entries WHERE id = ?`, id)
	e, err := scanGroupEntry(row)
	if err != nil {
		return nil, err
	}
	e.Debtors, err = loadDebtors(ctx, s.db, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListGroupEntries returns all live entries of a group, newest first.
func (s *SQLiteStore) ListGroupEntries(ctx context.Context, groupID string) ([]*models.GroupEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupEntryCols+` FROM group_entries
		 WHERE group_id = ? AND deleted_at = 0
		 ORDER BY created_at DESC, id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group entries: %w", err)
	}
	defer rows.Close()

	var out []*models.GroupEntry
	for rows.Next() {
		e, err := scanGroupEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group entries: %w", err)
	}

	for _, e := range out {
		e.Debtors, err = loadDebtors(ctx, s.db, e.ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GroupEntryForUpdate loads a group entry with debtors inside the
// transaction.
func (t *sqlTx) GroupEntryForUpdate(ctx context.Context, id string) (*models.GroupEntry, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+groupEntryCols+` FROM group_entries WHERE id = ?`, id)
	e, err := scanGroupEntry(row)
	if err != nil {
		return nil, err
	}
	e.Debtors, err = loadDebtors(ctx, t.tx, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// InsertGroupEntry persists a group entry and its debtor shares.
func (t *sqlTx) InsertGroupEntry(ctx context.Context, e *models.GroupEntry) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO group_entries (id, group_id, description, total_amount, strategy, payer_id, note, created_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		e.ID, e.GroupID, e.Description, int64(e.TotalAmount), e.Strategy,
		e.PayerID, nullable(e.Note), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group entry: %w", err)
	}
	return t.insertDebtors(ctx, e)
}

// UpdateGroupEntry rewrites a group entry and replaces its debtor shares.
func (t *sqlTx) UpdateGroupEntry(ctx context.Context, e *models.GroupEntry) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE group_entries SET description = ?, total_amount = ?, strategy = ?, payer_id = ?, note = ?
		 WHERE id = ? AND deleted_at = 0`,
		e.Description, int64(e.TotalAmount), e.Strategy, e.PayerID, nullable(e.Note), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group entry: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM group_entry_debtors WHERE entry_id = ?`, e.ID); err != nil {
		return fmt.Errorf("failed to clear debtors: %w", err)
	}
	return t.insertDebtors(ctx, e)
}

func (t *sqlTx) insertDebtors(ctx context.Context, e *models.GroupEntry) error {
	for _, d := range e.Debtors {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO group_entry_debtors (entry_id, member_id, amount) VALUES (?, ?, ?)`,
			e.ID, d.MemberID, int64(d.Amount)); err != nil {
			return fmt.Errorf("failed to insert debtor: %w", err)
		}
	}
	return nil
}

// SoftDeleteGroupEntry marks a group entry deleted; debtor rows remain as
// history.
func (t *sqlTx) SoftDeleteGroupEntry(ctx context.Context, id string, deletedAt int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE group_entries SET deleted_at = ? WHERE id = ? AND deleted_at = 0`, deletedAt, id)
	if err != nil {
		return fmt.Errorf("failed to delete group entry: %w", err)
	}
	return requireRowAffected(res)
}

const settlementCols = `id, group_id, payer_id, recipient_id, amount, note, created_at, deleted_at`

func scanSettlement(row rowScanner) (*models.GroupSettlement, error) {
	s := &models.GroupSettlement{}
	var amount int64
	var note sql.NullString
	err := row.Scan(&s.ID, &s.GroupID, &s.PayerID, &s.RecipientID, &amount,
		&note, &s.CreatedAt, &s.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan settlement: %w", err)
	}
	s.Amount = money.Cents(amount)
	if note.Valid {
		s.Note = note.String
	}
	return s, nil
}

// GetGroupSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetGroupSettlement(ctx context.Context, id string) (*models.GroupSettlement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+settlementCols+` FROM group_settlements WHERE id = ?`, id)
	return scanSettlement(row)
}

// ListGroupSettlements returns all live settlements of a group, newest
// first.
func (s *SQLiteStore) ListGroupSettlements(ctx context.Context, groupID string) ([]*models.GroupSettlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+settlementCols+` FROM group_settlements
		 WHERE group_id = ? AND deleted_at = 0
		 ORDER BY created_at DESC, id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var out []*models.GroupSettlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return out, nil
}

// GroupSettlementForUpdate loads a settlement inside the transaction.
func (t *sqlTx) GroupSettlementForUpdate(ctx context.Context, id string) (*models.GroupSettlement, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+settlementCols+` FROM group_settlements WHERE id = ?`, id)
	return scanSettlement(row)
}

// InsertGroupSettlement persists a settlement.
func (t *sqlTx) InsertGroupSettlement(ctx context.Context, s *models.GroupSettlement) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO group_settlements (id, group_id, payer_id, recipient_id, amount, note, created_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		s.ID, s.GroupID, s.PayerID, s.RecipientID, int64(s.Amount), nullable(s.Note), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// SoftDeleteGroupSettlement marks a settlement deleted.
func (t *sqlTx) SoftDeleteGroupSettlement(ctx context.Context, id string, deletedAt int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE group_settlements SET deleted_at = ? WHERE id = ? AND deleted_at = 0`, deletedAt, id)
	if err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	return requireRowAffected(res)
}
