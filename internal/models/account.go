package models

import "github.com/shopspring/decimal"

// CompanyAccountID is the reserved id of the company pool account. It never
// collides with a real Telegram user id and absorbs every unqualified or
// leftover distribution amount.
const CompanyAccountID int64 = 1000000000001

// Account represents one participant of the referral program, including the
// reserved company pool account.
type Account struct {
	// ID is the external platform identity (Telegram user id).
	ID int64 `json:"id"`

	// Username and FirstName mirror the Telegram profile at first contact.
	Username  string `json:"username"`
	FirstName string `json:"first_name"`

	// BalancePrimary is the MUSD ledger (stable-value balance).
	BalancePrimary decimal.Decimal `json:"balance_musd"`

	// BalanceSecondary is the MSTC ledger (reward-token balance).
	BalanceSecondary decimal.Decimal `json:"balance_mstc"`

	// Rank is recomputed from scratch on every relevant event; it is
	// effectively non-decreasing because TeamVolume never decreases.
	Rank Rank `json:"rank"`

	// Activated marks the account as eligible for first-tier commissions.
	// One-way transition: set once, never cleared by normal flow.
	Activated bool `json:"activated"`

	// TeamVolume is the cumulative deposit volume of the account's entire
	// downstream subtree, plus the account's own deposits. Monotonically
	// non-decreasing.
	TeamVolume decimal.Decimal `json:"team_volume"`

	// ActiveDescendants counts downstream accounts that have ever become
	// activated. Incremented at most once per descendant.
	ActiveDescendants int `json:"active_descendants"`

	// PoolIncome is the cumulative amount received through equal-split pool
	// bonuses, distinct from commission income.
	PoolIncome decimal.Decimal `json:"pool_income"`

	// SponsorID references the single upstream account, 0 when unset.
	// Once set it is never overwritten.
	SponsorID int64 `json:"sponsor_id"`

	// CreatedAt is the Unix timestamp when the account was first seen.
	CreatedAt int64 `json:"created_at"`
}

// IsCompany reports whether the account is the reserved company pool.
func (a *Account) IsCompany() bool {
	return a.ID == CompanyAccountID
}
