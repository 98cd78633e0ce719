// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mstclabs/mstc-miniapp/internal/models"
)

var (
	// ErrNotFound is returned when a requested account or receipt does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBusy is returned when the store could not acquire the write lock.
	// Callers may retry with backoff.
	ErrBusy = errors.New("storage busy")

	// ErrCycle is returned when a sponsor-chain walk revisits an account.
	// The sponsor relation must be a forest; a cycle means the data is
	// corrupted and the operation must abort.
	ErrCycle = errors.New("sponsor chain contains a cycle")
)

// Tx exposes the account and audit operations available inside one
// transaction. A deposit distribution uses exactly one Tx for its snapshot
// reads, its balance mutations, and its audit trail, so either everything
// commits or nothing does.
type Tx interface {
	// GetAccount retrieves an account by id. Returns ErrNotFound if absent.
	GetAccount(ctx context.Context, id int64) (*models.Account, error)

	// GetOrCreateAccount returns the existing account or creates a default
	// one (unactivated, zero balances, no sponsor).
	GetOrCreateAccount(ctx context.Context, id int64, username, firstName string) (*models.Account, error)

	// UpdateAccount persists all mutable fields of the account.
	UpdateAccount(ctx context.Context, account *models.Account) error

	// LinkSponsor sets the sponsor only if currently unset, the sponsor
	// exists, and sponsorID != accountID. Anything else is a no-op, not an
	// error: sponsor links are immutable once set.
	LinkSponsor(ctx context.Context, accountID, sponsorID int64) error

	// SponsorChain returns the ancestors of accountID starting at the
	// direct sponsor, walking upward until the root or maxDepth levels
	// (0 = unbounded). The walk carries a visited set seeded with
	// accountID and returns ErrCycle on any repeat.
	SponsorChain(ctx context.Context, accountID int64, maxDepth int) ([]*models.Account, error)

	// Achievers returns every activated account ranked minRank or higher,
	// excluding the company pool account.
	Achievers(ctx context.Context, minRank models.Rank) ([]*models.Account, error)

	// FindDepositByRef returns the receipt recorded under the external
	// reference, or ErrNotFound.
	FindDepositByRef(ctx context.Context, externalRef string) (*models.DepositReceipt, error)

	// InsertDeposit appends a deposit receipt. A duplicate external
	// reference violates the unique index and fails the transaction.
	InsertDeposit(ctx context.Context, receipt *models.DepositReceipt) error

	// AppendTransfer and AppendReferralEvent write append-only audit rows.
	AppendTransfer(ctx context.Context, transfer *models.Transfer) error
	AppendReferralEvent(ctx context.Context, event *models.ReferralEvent) error

	// TransfersForAccount returns the account's transfer rows in insertion
	// order, for reconciliation against its balances.
	TransfersForAccount(ctx context.Context, accountID int64) ([]*models.Transfer, error)

	// ReferralEventsFrom returns the distribution lines recorded for the
	// account's deposits, in insertion order.
	ReferralEventsFrom(ctx context.Context, accountID int64) ([]*models.ReferralEvent, error)
}

// Store defines the interface for referral-ledger persistence. This
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// Transact runs fn inside a single transaction, committed when fn
	// returns nil and rolled back otherwise. Returns ErrBusy when the
	// underlying store is write-locked.
	Transact(ctx context.Context, fn func(tx Tx) error) error

	// GetAccount reads a single account snapshot outside any transaction.
	// Returns ErrNotFound if absent.
	GetAccount(ctx context.Context, id int64) (*models.Account, error)

	// Close releases any resources held by the store.
	Close() error
}
