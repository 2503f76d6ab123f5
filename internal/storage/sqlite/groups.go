package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

// CreateGroup persists a new group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, creator_id, created_at, deleted_at) VALUES (?, ?, ?, ?, 0)`,
		g.ID, g.Name, g.CreatorID, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// GetGroup retrieves a live group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	g := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, creator_id, created_at, deleted_at FROM groups
		 WHERE id = ? AND deleted_at = 0`, id,
	).Scan(&g.ID, &g.Name, &g.CreatorID, &g.CreatedAt, &g.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// AddGroupMember persists a new membership. Rejoining after revocation
// creates a fresh membership id so old edges keep their meaning.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, m *models.GroupMember) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.JoinedAt == 0 {
		m.JoinedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (id, group_id, user_id, active, joined_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.GroupID, m.UserID, m.Active, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group member: %w", err)
	}
	return nil
}

// GetGroupMember retrieves a membership by its id, revoked ones included.
func (s *SQLiteStore) GetGroupMember(ctx context.Context, id string) (*models.GroupMember, error) {
	m := &models.GroupMember{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, user_id, active, joined_at FROM group_members WHERE id = ?`, id,
	).Scan(&m.ID, &m.GroupID, &m.UserID, &m.Active, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group member: %w", err)
	}
	return m, nil
}

// ListGroupMembers returns every membership of a group, revoked included.
func (s *SQLiteStore) ListGroupMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, user_id, active, joined_at FROM group_members
		 WHERE group_id = ? ORDER BY joined_at, id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var out []*models.GroupMember
	for rows.Next() {
		m := &models.GroupMember{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Active, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return out, nil
}

// GroupForUpdate reads a live group inside the transaction.
func (t *sqlTx) GroupForUpdate(ctx context.Context, id string) (*models.Group, error) {
	g := &models.Group{}
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, name, creator_id, created_at, deleted_at FROM groups
		 WHERE id = ? AND deleted_at = 0`, id,
	).Scan(&g.ID, &g.Name, &g.CreatorID, &g.CreatedAt, &g.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// GroupMemberForUpdate reads a membership inside the transaction,
// revoked ones included.
func (t *sqlTx) GroupMemberForUpdate(ctx context.Context, id string) (*models.GroupMember, error) {
	m := &models.GroupMember{}
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, group_id, user_id, active, joined_at FROM group_members WHERE id = ?`, id,
	).Scan(&m.ID, &m.GroupID, &m.UserID, &m.Active, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group member: %w", err)
	}
	return m, nil
}

// RevokeGroupMember deactivates a membership. History referencing the
// membership id stays intact.
func (s *SQLiteStore) RevokeGroupMember(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE group_members SET active = 0 WHERE id = ? AND active = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke group member: %w", err)
	}
	return requireRowAffected(res)
}
