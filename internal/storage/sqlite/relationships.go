package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

const relationshipCols = `id, party_a, party_b, status, balance,
	archived_by_a, archived_by_b, blocked_by_a, blocked_by_b, created_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRelationship(row rowScanner) (*models.Relationship, error) {
	r := &models.Relationship{}
	var balance int64
	err := row.Scan(&r.ID, &r.PartyA, &r.PartyB, &r.Status, &balance,
		&r.ArchivedByA, &r.ArchivedByB, &r.BlockedByA, &r.BlockedByB,
		&r.CreatedAt, &r.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan relationship: %w", err)
	}
	r.Balance = money.Cents(balance)
	return r, nil
}

// CreateRelationship persists a new relationship. The pair_key unique
// index rejects a second relationship for the same unordered pair.
func (s *SQLiteStore) CreateRelationship(ctx context.Context, r *models.Relationship) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().Unix()
	}
	lesser, greater := models.EdgeKey(r.PartyA, r.PartyB)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relationships (id, party_a, party_b, pair_key, status, balance,
			archived_by_a, archived_by_b, blocked_by_a, blocked_by_b, created_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		r.ID, r.PartyA, r.PartyB, lesser+":"+greater, r.Status, int64(r.Balance),
		r.ArchivedByA, r.ArchivedByB, r.BlockedByA, r.BlockedByB, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

// GetRelationship retrieves a live relationship by ID.
func (s *SQLiteStore) GetRelationship(ctx context.Context, id string) (*models.Relationship, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+relationshipCols+` FROM relationships WHERE id = ? AND deleted_at = 0`, id)
	return scanRelationship(row)
}

// GetRelationshipByParties retrieves the relationship for an unordered
// pair of parties, whichever side sent the request.
func (s *SQLiteStore) GetRelationshipByParties(ctx context.Context, partyA, partyB string) (*models.Relationship, error) {
	lesser, greater := models.EdgeKey(partyA, partyB)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+relationshipCols+` FROM relationships WHERE pair_key = ? AND deleted_at = 0`,
		lesser+":"+greater)
	return scanRelationship(row)
}

// SetRelationshipStatus updates the lifecycle state.
func (s *SQLiteStore) SetRelationshipStatus(ctx context.Context, id string, status models.RelationshipStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE relationships SET status = ? WHERE id = ? AND deleted_at = 0`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update relationship status: %w", err)
	}
	return requireRowAffected(res)
}

// SetRelationshipFlags sets one party's archive and block flags.
func (s *SQLiteStore) SetRelationshipFlags(ctx context.Context, id string, party string, archived, blocked bool) error {
	r, err := s.GetRelationship(ctx, id)
	if err != nil {
		return err
	}

	var query string
	switch party {
	case r.PartyA:
		query = `UPDATE relationships SET archived_by_a = ?, blocked_by_a = ? WHERE id = ?`
	case r.PartyB:
		query = `UPDATE relationships SET archived_by_b = ?, blocked_by_b = ? WHERE id = ?`
	default:
		return storage.ErrNotFound
	}

	if _, err := s.db.ExecContext(ctx, query, archived, blocked, id); err != nil {
		return fmt.Errorf("failed to update relationship flags: %w", err)
	}
	return nil
}

// ListRelationships returns all live relationships involving a party.
func (s *SQLiteStore) ListRelationships(ctx context.Context, party string) ([]*models.Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+relationshipCols+` FROM relationships
		 WHERE (party_a = ? OR party_b = ?) AND deleted_at = 0
		 ORDER BY created_at DESC`, party, party)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	var out []*models.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relationships: %w", err)
	}
	return out, nil
}

// RelationshipForUpdate loads a relationship inside the transaction. The
// transaction holds the write lock until commit or rollback.
func (t *sqlTx) RelationshipForUpdate(ctx context.Context, id string) (*models.Relationship, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+relationshipCols+` FROM relationships WHERE id = ? AND deleted_at = 0`, id)
	return scanRelationship(row)
}

// SetRelationshipBalance writes the running balance. Only the ledger
// engine calls this.
func (t *sqlTx) SetRelationshipBalance(ctx context.Context, id string, balance money.Cents) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE relationships SET balance = ? WHERE id = ? AND deleted_at = 0`,
		int64(balance), id)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return requireRowAffected(res)
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
