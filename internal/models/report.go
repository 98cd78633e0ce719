package models

import "github.com/shopspring/decimal"

// Distribution line notes, mirrored into ReferralEvent audit rows.
const (
	NoteLevelReferral = "level_%d_referral" // fmt template, level 1..3
	NotePoolBonus     = "pool_bonus"
	NotePoolResidual  = "pool_residual"
	NotePoolRemainder = "company_pool_remainder"
)

// DistributionLine is one line item of a deposit distribution. Commission
// levels 1..3 each produce exactly one line when the ancestor exists; pool
// bonus and remainder lines carry Level 0.
type DistributionLine struct {
	// Level is the referral depth (1 = direct sponsor), 0 for pool lines.
	Level int `json:"level"`

	// Recipient is the credited account; CompanyAccountID when the amount
	// was routed to the pool.
	Recipient int64 `json:"recipient"`

	// Pool reports whether the amount went to the company pool instead of a
	// qualified participant.
	Pool bool `json:"pool"`

	// Amount is the credited value, rounded to 2 decimal places.
	Amount decimal.Decimal `json:"amount"`

	// Note classifies the line for auditing (level_N_referral, pool_bonus,
	// pool_residual, company_pool_remainder).
	Note string `json:"note"`
}

// DistributionReport is the structured result of processing one deposit.
// The line amounts always sum to exactly the deposit amount; the depositor's
// own split (CreditedPrimary + CreditedSecondary) independently sums to the
// deposit amount.
type DistributionReport struct {
	AccountID    int64           `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	BecameActive bool            `json:"became_active"`
	NewRank      Rank            `json:"new_rank"`

	// CreditedPrimary / CreditedSecondary are the depositor's own 70/30
	// split of the deposit.
	CreditedPrimary   decimal.Decimal `json:"credited_musd"`
	CreditedSecondary decimal.Decimal `json:"credited_mstc"`

	Lines []DistributionLine `json:"distribution"`

	// Duplicate is true when this report was replayed from a previous
	// submission with the same external reference.
	Duplicate bool `json:"duplicate,omitempty"`
}

// TotalDistributed returns the sum of all line amounts.
func (r *DistributionReport) TotalDistributed() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Amount)
	}
	return total
}
