package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Monetary columns are TEXT holding canonical decimal strings; balances are
// never stored as floats.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    balance_primary TEXT NOT NULL DEFAULT '0',
    balance_secondary TEXT NOT NULL DEFAULT '0',
    rank TEXT NOT NULL DEFAULT 'unranked',
    activated INTEGER NOT NULL DEFAULT 0,
    team_volume TEXT NOT NULL DEFAULT '0',
    active_descendants INTEGER NOT NULL DEFAULT 0,
    pool_income TEXT NOT NULL DEFAULT '0',
    sponsor_id INTEGER,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS deposits (
    id TEXT PRIMARY KEY,
    account_id INTEGER NOT NULL,
    amount TEXT NOT NULL,
    external_ref TEXT,
    report TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS transfers (
    id TEXT PRIMARY KEY,
    account_id INTEGER NOT NULL,
    amount TEXT NOT NULL,
    currency TEXT NOT NULL,
    type TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS referral_events (
    id TEXT PRIMARY KEY,
    from_account INTEGER NOT NULL,
    to_account INTEGER NOT NULL,
    amount TEXT NOT NULL,
    note TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_sponsor ON accounts(sponsor_id);
CREATE INDEX IF NOT EXISTS idx_accounts_rank ON accounts(activated, rank);
CREATE UNIQUE INDEX IF NOT EXISTS idx_deposits_external_ref ON deposits(external_ref) WHERE external_ref IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_transfers_account ON transfers(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_referral_events_to ON referral_events(to_account, created_at);
CREATE INDEX IF NOT EXISTS idx_referral_events_from ON referral_events(from_account, created_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
