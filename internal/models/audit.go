package models

import "github.com/shopspring/decimal"

// Currency names for the two internal ledgers.
const (
	CurrencyMUSD = "MUSD"
	CurrencyMSTC = "MSTC"
)

// Transfer categories.
const (
	TransferDeposit    = "deposit"     // depositor's primary-ledger credit
	TransferCreditMSTC = "credit_mstc" // depositor's secondary-ledger credit
	TransferCommission = "commission"  // referral commission credit
	TransferPoolBonus  = "pool_bonus"  // achiever pool-bonus credit
)

// Transfer is an append-only record of a single balance credit.
type Transfer struct {
	ID        string          `json:"id"`
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Type      string          `json:"type"`
	CreatedAt int64           `json:"created_at"`
}

// ReferralEvent is an append-only record of one distribution line: a
// commission, a pool-bonus share, or an amount absorbed by the company pool.
// ToAccount is CompanyAccountID for pool-routed lines.
type ReferralEvent struct {
	ID          string          `json:"id"`
	FromAccount int64           `json:"from_account"`
	ToAccount   int64           `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note"`
	CreatedAt   int64           `json:"created_at"`
}

// DepositReceipt records a processed deposit. When ExternalRef is set it is
// unique, and the stored report is returned unchanged on duplicate
// submissions with the same reference.
type DepositReceipt struct {
	ID          string              `json:"id"`
	AccountID   int64               `json:"account_id"`
	Amount      decimal.Decimal     `json:"amount"`
	ExternalRef string              `json:"external_ref,omitempty"`
	Report      *DistributionReport `json:"report"`
	CreatedAt   int64               `json:"created_at"`
}
