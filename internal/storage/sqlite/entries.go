package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

const entryCols = `id, relationship_id, description, total_amount, strategy,
	payer_id, debtor_id, debtor_amount, note, created_at, deleted_at`

func scanEntry(row rowScanner) (*models.Entry, error) {
	e := &models.Entry{}
	var total, debtorAmount int64
	var note sql.NullString
	err := row.Scan(&e.ID, &e.RelationshipID, &e.Description, &total, &e.Strategy,
		&e.PayerID, &e.DebtorID, &debtorAmount, &note, &e.CreatedAt, &e.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}
	e.TotalAmount = money.Cents(total)
	e.DebtorAmount = money.Cents(debtorAmount)
	if note.Valid {
		e.Note = note.String
	}
	return e, nil
}

// GetEntry retrieves an entry by ID, soft-deleted ones included so history
// stays queryable.
func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryCols+` FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// ListEntries returns all live entries of a relationship, newest first.
func (s *SQLiteStore) ListEntries(ctx context.Context, relationshipID string) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryCols+` FROM entries
		 WHERE relationship_id = ? AND deleted_at = 0
		 ORDER BY created_at DESC, id`, relationshipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return out, nil
}

// EntryForUpdate loads an entry inside the transaction.
func (t *sqlTx) EntryForUpdate(ctx context.Context, id string) (*models.Entry, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+entryCols+` FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// InsertEntry persists a new entry.
func (t *sqlTx) InsertEntry(ctx context.Context, e *models.Entry) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO entries (id, relationship_id, description, total_amount, strategy,
			payer_id, debtor_id, debtor_amount, note, created_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		e.ID, e.RelationshipID, e.Description, int64(e.TotalAmount), e.Strategy,
		e.PayerID, e.DebtorID, int64(e.DebtorAmount), nullable(e.Note), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// UpdateEntry rewrites an entry's mutable fields.
func (t *sqlTx) UpdateEntry(ctx context.Context, e *models.Entry) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE entries SET description = ?, total_amount = ?, strategy = ?,
			payer_id = ?, debtor_id = ?, debtor_amount = ?, note = ?
		 WHERE id = ? AND deleted_at = 0`,
		e.Description, int64(e.TotalAmount), e.Strategy,
		e.PayerID, e.DebtorID, int64(e.DebtorAmount), nullable(e.Note), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return requireRowAffected(res)
}

// SoftDeleteEntry marks an entry deleted; the row remains as history.
func (t *sqlTx) SoftDeleteEntry(ctx context.Context, id string, deletedAt int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE entries SET deleted_at = ? WHERE id = ? AND deleted_at = 0`, deletedAt, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return requireRowAffected(res)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
