// Package models defines the core domain models for the referral ledger.
//
// # Models
//
//   - Account: one participant of the referral program (balances, rank,
//     activation state, sponsor link, team counters)
//   - Rank: ordered tier enumeration derived from team metrics
//   - DistributionReport / DistributionLine: result of applying one deposit
//   - Transfer / ReferralEvent: append-only audit records
//   - DepositReceipt: persisted deposit outcome, keyed by external reference
//     for idempotent replay
//
// # Design Principles
//
//  1. **Money is decimal**: all monetary values use shopspring/decimal and are
//     rounded to 2 decimal places at distribution boundaries. Floats never
//     touch balances.
//  2. **Avoid circular references**: accounts reference their sponsor by ID,
//     never by pointer. The sponsor relation forms a forest; traversals carry
//     a visited set and never trust the data to be acyclic.
//  3. **Audit records are append-only**: Transfer and ReferralEvent rows are
//     written once per distribution step and never mutated.
package models
