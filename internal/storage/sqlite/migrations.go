package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// Ledger facts are soft-deleted (deleted_at = 0 means live) and are never
// physically removed while a balance references their history. Balances
// are integer minor units. The pair_key column gives relationships the
// same single-row-per-unordered-pair guarantee the edge table gets from
// its primary key.
const schema = `
CREATE TABLE IF NOT EXISTS relationships (
    id TEXT PRIMARY KEY,
    party_a TEXT NOT NULL,
    party_b TEXT NOT NULL,
    pair_key TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL,
    balance INTEGER NOT NULL DEFAULT 0,
    archived_by_a INTEGER NOT NULL DEFAULT 0,
    archived_by_b INTEGER NOT NULL DEFAULT 0,
    blocked_by_a INTEGER NOT NULL DEFAULT 0,
    blocked_by_b INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    deleted_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    relationship_id TEXT NOT NULL,
    description TEXT NOT NULL,
    total_amount INTEGER NOT NULL,
    strategy TEXT NOT NULL,
    payer_id TEXT NOT NULL,
    debtor_id TEXT NOT NULL,
    debtor_amount INTEGER NOT NULL,
    note TEXT,
    created_at INTEGER NOT NULL,
    deleted_at INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (relationship_id) REFERENCES relationships(id)
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    creator_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    deleted_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS group_members (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    joined_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS group_edges (
    group_id TEXT NOT NULL,
    lesser_id TEXT NOT NULL,
    greater_id TEXT NOT NULL,
    balance INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (group_id, lesser_id, greater_id),
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS group_entries (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    description TEXT NOT NULL,
    total_amount INTEGER NOT NULL,
    strategy TEXT NOT NULL,
    payer_id TEXT NOT NULL,
    note TEXT,
    created_at INTEGER NOT NULL,
    deleted_at INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS group_entry_debtors (
    entry_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    PRIMARY KEY (entry_id, member_id),
    FOREIGN KEY (entry_id) REFERENCES group_entries(id)
);

CREATE TABLE IF NOT EXISTS group_settlements (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    payer_id TEXT NOT NULL,
    recipient_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    note TEXT,
    created_at INTEGER NOT NULL,
    deleted_at INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE INDEX IF NOT EXISTS idx_entries_relationship_id ON entries(relationship_id);
CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id);
CREATE INDEX IF NOT EXISTS idx_group_entries_group_id ON group_entries(group_id);
CREATE INDEX IF NOT EXISTS idx_group_entry_debtors_entry_id ON group_entry_debtors(entry_id);
CREATE INDEX IF NOT EXISTS idx_group_settlements_group_id ON group_settlements(group_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
