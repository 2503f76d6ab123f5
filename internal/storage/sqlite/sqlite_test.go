package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "splitledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	t.Run("CreateRelationship generates ID and timestamp", func(t *testing.T) {
		r := &models.Relationship{
			PartyA: "alice",
			PartyB: "bob",
			Status: models.StatusPending,
		}
		if err := store.CreateRelationship(ctx, r); err != nil {
			t.Fatalf("CreateRelationship failed: %v", err)
		}
		if r.ID == "" {
			t.Error("Expected relationship ID to be generated")
		}
		if r.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetRelationship(ctx, r.ID)
		if err != nil {
			t.Fatalf("GetRelationship failed: %v", err)
		}
		if got.PartyA != "alice" || got.PartyB != "bob" {
			t.Errorf("Party mismatch: got %s/%s", got.PartyA, got.PartyB)
		}
		if got.Status != models.StatusPending {
			t.Errorf("Status mismatch: got %s", got.Status)
		}
	})

	t.Run("CreateRelationship rejects duplicate pair", func(t *testing.T) {
		// Reversed order still hits the same pair_key.
		dup := &models.Relationship{
			PartyA: "bob",
			PartyB: "alice",
			Status: models.StatusPending,
		}
		if err := store.CreateRelationship(ctx, dup); err == nil {
			t.Error("Expected error for duplicate pair, got nil")
		}
	})

	t.Run("GetRelationshipByParties is order-independent", func(t *testing.T) {
		r1, err := store.GetRelationshipByParties(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("GetRelationshipByParties failed: %v", err)
		}
		r2, err := store.GetRelationshipByParties(ctx, "bob", "alice")
		if err != nil {
			t.Fatalf("GetRelationshipByParties (reversed) failed: %v", err)
		}
		if r1.ID != r2.ID {
			t.Errorf("Expected same relationship, got %s and %s", r1.ID, r2.ID)
		}
	})

	t.Run("SetRelationshipStatus and flags", func(t *testing.T) {
		r, err := store.GetRelationshipByParties(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("GetRelationshipByParties failed: %v", err)
		}
		if err := store.SetRelationshipStatus(ctx, r.ID, models.StatusAccepted); err != nil {
			t.Fatalf("SetRelationshipStatus failed: %v", err)
		}
		if err := store.SetRelationshipFlags(ctx, r.ID, "bob", true, false); err != nil {
			t.Fatalf("SetRelationshipFlags failed: %v", err)
		}

		got, err := store.GetRelationship(ctx, r.ID)
		if err != nil {
			t.Fatalf("GetRelationship failed: %v", err)
		}
		if got.Status != models.StatusAccepted {
			t.Errorf("Status mismatch: got %s", got.Status)
		}
		if !got.ArchivedByB || got.ArchivedByA || got.BlockedByB {
			t.Errorf("Flag mismatch: %+v", got)
		}

		// Clear the flag again for later subtests.
		if err := store.SetRelationshipFlags(ctx, r.ID, "bob", false, false); err != nil {
			t.Fatalf("SetRelationshipFlags failed: %v", err)
		}
	})

	t.Run("Entry insert, balance write and rollback", func(t *testing.T) {
		r, err := store.GetRelationshipByParties(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("GetRelationshipByParties failed: %v", err)
		}

		entry := &models.Entry{
			ID:             "entry-1",
			RelationshipID: r.ID,
			Description:    "Dinner",
			TotalAmount:    10000,
			Strategy:       models.SplitEqual,
			PayerID:        "alice",
			DebtorID:       "bob",
			DebtorAmount:   5000,
			Note:           "tapas",
			CreatedAt:      1700000000,
		}
		err = store.InTx(ctx, func(tx storage.Tx) error {
			if err := tx.InsertEntry(ctx, entry); err != nil {
				return err
			}
			return tx.SetRelationshipBalance(ctx, r.ID, 5000)
		})
		if err != nil {
			t.Fatalf("InTx failed: %v", err)
		}

		got, err := store.GetEntry(ctx, "entry-1")
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if got.DebtorAmount != 5000 || got.Note != "tapas" {
			t.Errorf("Entry mismatch: %+v", got)
		}

		// A failing function must roll every write back.
		boom := errors.New("boom")
		err = store.InTx(ctx, func(tx storage.Tx) error {
			if err := tx.SetRelationshipBalance(ctx, r.ID, 999); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Expected fn error back, got %v", err)
		}
		after, err := store.GetRelationship(ctx, r.ID)
		if err != nil {
			t.Fatalf("GetRelationship failed: %v", err)
		}
		if after.Balance != 5000 {
			t.Errorf("Expected balance 5000 after rollback, got %d", after.Balance)
		}
	})

	t.Run("SoftDeleteEntry keeps history readable", func(t *testing.T) {
		err := store.InTx(ctx, func(tx storage.Tx) error {
			return tx.SoftDeleteEntry(ctx, "entry-1", 1700000100)
		})
		if err != nil {
			t.Fatalf("SoftDeleteEntry failed: %v", err)
		}

		got, err := store.GetEntry(ctx, "entry-1")
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if !got.Deleted() {
			t.Error("Expected entry to be soft-deleted")
		}

		r, _ := store.GetRelationshipByParties(ctx, "alice", "bob")
		live, err := store.ListEntries(ctx, r.ID)
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(live) != 0 {
			t.Errorf("Expected 0 live entries, got %d", len(live))
		}

		// Double delete hits no live row.
		err = store.InTx(ctx, func(tx storage.Tx) error {
			return tx.SoftDeleteEntry(ctx, "entry-1", 1700000200)
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("Lookups return ErrNotFound", func(t *testing.T) {
		if _, err := store.GetRelationship(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetRelationship: expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetEntry(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetEntry: expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetGroup(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetGroup: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Group, members and revocation", func(t *testing.T) {
		g := &models.Group{Name: "Roommates", CreatorID: "alice"}
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if g.ID == "" {
			t.Error("Expected group ID to be generated")
		}

		m1 := &models.GroupMember{GroupID: g.ID, UserID: "alice", Active: true}
		m2 := &models.GroupMember{GroupID: g.ID, UserID: "bob", Active: true}
		for _, m := range []*models.GroupMember{m1, m2} {
			if err := store.AddGroupMember(ctx, m); err != nil {
				t.Fatalf("AddGroupMember failed: %v", err)
			}
		}

		members, err := store.ListGroupMembers(ctx, g.ID)
		if err != nil {
			t.Fatalf("ListGroupMembers failed: %v", err)
		}
		if len(members) != 2 {
			t.Fatalf("Expected 2 members, got %d", len(members))
		}

		if err := store.RevokeGroupMember(ctx, m2.ID); err != nil {
			t.Fatalf("RevokeGroupMember failed: %v", err)
		}
		got, err := store.GetGroupMember(ctx, m2.ID)
		if err != nil {
			t.Fatalf("GetGroupMember failed: %v", err)
		}
		if got.Active {
			t.Error("Expected member to be inactive after revocation")
		}
		if err := store.RevokeGroupMember(ctx, m2.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on double revoke, got %v", err)
		}

		// In-transaction reads see the same rows as the store-level ones.
		err = store.InTx(ctx, func(tx storage.Tx) error {
			if _, err := tx.GroupForUpdate(ctx, g.ID); err != nil {
				t.Errorf("GroupForUpdate failed: %v", err)
			}
			if _, err := tx.GroupForUpdate(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("GroupForUpdate: expected ErrNotFound, got %v", err)
			}
			m, err := tx.GroupMemberForUpdate(ctx, m2.ID)
			if err != nil {
				t.Errorf("GroupMemberForUpdate failed: %v", err)
			} else if m.Active {
				t.Error("Expected revoked member to read inactive inside tx")
			}
			if _, err := tx.GroupMemberForUpdate(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("GroupMemberForUpdate: expected ErrNotFound, got %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("InTx failed: %v", err)
		}
	})

	t.Run("EdgeForUpdate creates once per pair", func(t *testing.T) {
		g := &models.Group{Name: "Trip", CreatorID: "alice"}
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		lesser, greater := models.EdgeKey("m-b", "m-a")
		err := store.InTx(ctx, func(tx storage.Tx) error {
			e, err := tx.EdgeForUpdate(ctx, g.ID, lesser, greater)
			if err != nil {
				return err
			}
			if e.Balance != 0 {
				t.Errorf("Expected fresh edge balance 0, got %d", e.Balance)
			}
			return tx.SetEdgeBalance(ctx, g.ID, lesser, greater, 250)
		})
		if err != nil {
			t.Fatalf("InTx failed: %v", err)
		}

		// Second ForUpdate finds the same edge, not a fresh one.
		err = store.InTx(ctx, func(tx storage.Tx) error {
			e, err := tx.EdgeForUpdate(ctx, g.ID, lesser, greater)
			if err != nil {
				return err
			}
			if e.Balance != 250 {
				t.Errorf("Expected balance 250, got %d", e.Balance)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("InTx failed: %v", err)
		}

		// Order-independent outside-tx read.
		edge, err := store.GetEdge(ctx, g.ID, "m-b", "m-a")
		if err != nil {
			t.Fatalf("GetEdge failed: %v", err)
		}
		if edge.Balance != 250 {
			t.Errorf("Expected balance 250, got %d", edge.Balance)
		}

		edges, err := store.ListEdgesFor(ctx, g.ID, "m-a")
		if err != nil {
			t.Fatalf("ListEdgesFor failed: %v", err)
		}
		if len(edges) != 1 {
			t.Errorf("Expected 1 edge, got %d", len(edges))
		}
	})

	t.Run("Group entry round-trips debtors", func(t *testing.T) {
		g := &models.Group{Name: "Dinner club", CreatorID: "alice"}
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		entry := &models.GroupEntry{
			ID:          "gentry-1",
			GroupID:     g.ID,
			Description: "Groceries",
			TotalAmount: 9000,
			Strategy:    models.SplitEqual,
			PayerID:     "m-p",
			Debtors: []models.GroupEntryDebtor{
				{MemberID: "m-x", Amount: 3000},
				{MemberID: "m-y", Amount: 3000},
			},
			CreatedAt: 1700000000,
		}
		err := store.InTx(ctx, func(tx storage.Tx) error {
			return tx.InsertGroupEntry(ctx, entry)
		})
		if err != nil {
			t.Fatalf("InsertGroupEntry failed: %v", err)
		}

		got, err := store.GetGroupEntry(ctx, "gentry-1")
		if err != nil {
			t.Fatalf("GetGroupEntry failed: %v", err)
		}
		if len(got.Debtors) != 2 {
			t.Fatalf("Expected 2 debtors, got %d", len(got.Debtors))
		}
		if got.Debtors[0].MemberID != "m-x" || got.Debtors[0].Amount != 3000 {
			t.Errorf("Debtor mismatch: %+v", got.Debtors[0])
		}

		// Update replaces the debtor set.
		entry.TotalAmount = 6000
		entry.Debtors = []models.GroupEntryDebtor{{MemberID: "m-x", Amount: 2000}}
		err = store.InTx(ctx, func(tx storage.Tx) error {
			return tx.UpdateGroupEntry(ctx, entry)
		})
		if err != nil {
			t.Fatalf("UpdateGroupEntry failed: %v", err)
		}
		got, err = store.GetGroupEntry(ctx, "gentry-1")
		if err != nil {
			t.Fatalf("GetGroupEntry failed: %v", err)
		}
		if got.TotalAmount != 6000 || len(got.Debtors) != 1 {
			t.Errorf("Expected updated entry with 1 debtor, got %+v", got)
		}

		err = store.InTx(ctx, func(tx storage.Tx) error {
			return tx.SoftDeleteGroupEntry(ctx, "gentry-1", 1700000300)
		})
		if err != nil {
			t.Fatalf("SoftDeleteGroupEntry failed: %v", err)
		}
		live, err := store.ListGroupEntries(ctx, g.ID)
		if err != nil {
			t.Fatalf("ListGroupEntries failed: %v", err)
		}
		if len(live) != 0 {
			t.Errorf("Expected 0 live entries, got %d", len(live))
		}
	})

	t.Run("Group settlement round-trips", func(t *testing.T) {
		g := &models.Group{Name: "Ski house", CreatorID: "bob"}
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		s := &models.GroupSettlement{
			ID:          "settle-1",
			GroupID:     g.ID,
			PayerID:     "m-a",
			RecipientID: "m-b",
			Amount:      1500,
			CreatedAt:   1700000000,
		}
		err := store.InTx(ctx, func(tx storage.Tx) error {
			return tx.InsertGroupSettlement(ctx, s)
		})
		if err != nil {
			t.Fatalf("InsertGroupSettlement failed: %v", err)
		}

		got, err := store.GetGroupSettlement(ctx, "settle-1")
		if err != nil {
			t.Fatalf("GetGroupSettlement failed: %v", err)
		}
		if got.Amount != 1500 || got.PayerID != "m-a" {
			t.Errorf("Settlement mismatch: %+v", got)
		}

		list, err := store.ListGroupSettlements(ctx, g.ID)
		if err != nil {
			t.Fatalf("ListGroupSettlements failed: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("Expected 1 settlement, got %d", len(list))
		}

		err = store.InTx(ctx, func(tx storage.Tx) error {
			return tx.SoftDeleteGroupSettlement(ctx, "settle-1", 1700000400)
		})
		if err != nil {
			t.Fatalf("SoftDeleteGroupSettlement failed: %v", err)
		}
		list, err = store.ListGroupSettlements(ctx, g.ID)
		if err != nil {
			t.Fatalf("ListGroupSettlements failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("Expected 0 settlements after delete, got %d", len(list))
		}
	})
}
