// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// ErrNotFound is returned by lookups when no live record matches.
// Callers map it to their own domain errors.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when the store aborts a transaction due to a
// concurrent writer; the whole operation is safe to retry from scratch.
var ErrConflict = errors.New("transaction conflict")

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the ledger engine.
//
// The ledger engine is the only caller of InTx; calculators and validators
// never manage transactions themselves, keeping the atomicity contract in
// one place.
type Store interface {
	// InTx runs fn inside a single transaction. If fn returns an error,
	// every write it performed is rolled back and the error is returned
	// unchanged. No automatic retry: financial mutations must not be
	// silently repeated.
	InTx(ctx context.Context, fn func(Tx) error) error

	// Relationship admin and reads.
	CreateRelationship(ctx context.Context, r *models.Relationship) error
	GetRelationship(ctx context.Context, id string) (*models.Relationship, error)
	GetRelationshipByParties(ctx context.Context, partyA, partyB string) (*models.Relationship, error)
	SetRelationshipStatus(ctx context.Context, id string, status models.RelationshipStatus) error
	SetRelationshipFlags(ctx context.Context, id string, party string, archived, blocked bool) error
	ListRelationships(ctx context.Context, party string) ([]*models.Relationship, error)

	// Entry reads.
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	ListEntries(ctx context.Context, relationshipID string) ([]*models.Entry, error)

	// Group admin and reads.
	CreateGroup(ctx context.Context, g *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	AddGroupMember(ctx context.Context, m *models.GroupMember) error
	GetGroupMember(ctx context.Context, id string) (*models.GroupMember, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error)
	RevokeGroupMember(ctx context.Context, id string) error

	// Group ledger reads.
	GetGroupEntry(ctx context.Context, id string) (*models.GroupEntry, error)
	ListGroupEntries(ctx context.Context, groupID string) ([]*models.GroupEntry, error)
	GetGroupSettlement(ctx context.Context, id string) (*models.GroupSettlement, error)
	ListGroupSettlements(ctx context.Context, groupID string) ([]*models.GroupSettlement, error)
	GetEdge(ctx context.Context, groupID, memberA, memberB string) (*models.GroupBalanceEdge, error)
	ListEdges(ctx context.Context, groupID string) ([]*models.GroupBalanceEdge, error)
	ListEdgesFor(ctx context.Context, groupID, memberID string) ([]*models.GroupBalanceEdge, error)

	// Close releases any resources held by the store.
	Close() error
}

// Tx is the write surface available inside a transaction. ForUpdate reads
// take row-level locks where the backend supports them, so two concurrent
// operations on the same relationship or edge serialize instead of losing
// an update.
type Tx interface {
	// Two-party ledger writes.
	RelationshipForUpdate(ctx context.Context, id string) (*models.Relationship, error)
	SetRelationshipBalance(ctx context.Context, id string, balance money.Cents) error
	EntryForUpdate(ctx context.Context, id string) (*models.Entry, error)
	InsertEntry(ctx context.Context, e *models.Entry) error
	UpdateEntry(ctx context.Context, e *models.Entry) error
	SoftDeleteEntry(ctx context.Context, id string, deletedAt int64) error

	// Group reads inside the transaction, for membership checks that
	// must be atomic with the writes they gate.
	GroupForUpdate(ctx context.Context, id string) (*models.Group, error)
	GroupMemberForUpdate(ctx context.Context, id string) (*models.GroupMember, error)

	// Group ledger writes. EdgeForUpdate gets or creates the canonical
	// edge for the pair, locked for the rest of the transaction; the
	// arguments must already be in canonical order.
	EdgeForUpdate(ctx context.Context, groupID, lesser, greater string) (*models.GroupBalanceEdge, error)
	SetEdgeBalance(ctx context.Context, groupID, lesser, greater string, balance money.Cents) error
	GroupEntryForUpdate(ctx context.Context, id string) (*models.GroupEntry, error)
	InsertGroupEntry(ctx context.Context, e *models.GroupEntry) error
	UpdateGroupEntry(ctx context.Context, e *models.GroupEntry) error
	SoftDeleteGroupEntry(ctx context.Context, id string, deletedAt int64) error
	GroupSettlementForUpdate(ctx context.Context, id string) (*models.GroupSettlement, error)
	InsertGroupSettlement(ctx context.Context, s *models.GroupSettlement) error
	SoftDeleteGroupSettlement(ctx context.Context, id string, deletedAt int64) error
}
