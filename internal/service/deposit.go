// Package service implements the referral ledger engine: the single
// process-deposit contract the boundary layer calls, plus account snapshot
// and administrative reset operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mstclabs/mstc-miniapp/internal/commission"
	"github.com/mstclabs/mstc-miniapp/internal/models"
	"github.com/mstclabs/mstc-miniapp/internal/storage"
)

const (
	busyRetries = 3
	busyBackoff = 50 * time.Millisecond
)

// DepositService applies deposits to the account store: activation, team
// volume propagation, rank updates, tiered commissions, the achiever pool
// bonus, and the company-pool remainder. Every deposit runs inside one
// storage transaction; there is no observable partial state.
type DepositService struct {
	store  storage.Store
	policy commission.Policy
}

// NewDepositService creates a DepositService over the given store and policy.
func NewDepositService(store storage.Store, policy commission.Policy) *DepositService {
	return &DepositService{store: store, policy: policy}
}

// DepositInput is the validated request for one deposit.
type DepositInput struct {
	AccountID   int64
	Username    string
	FirstName   string
	Amount      decimal.Decimal
	ExternalRef string
	// SponsorHint links the sponsor if the account has none yet. Ignored
	// when the account is already linked or the hint is the account itself.
	SponsorHint int64
}

// ProcessDeposit applies one deposit and returns the distribution report.
// Submissions repeating a previously seen ExternalRef return the original
// report with Duplicate set and change nothing. Lock contention is retried
// with bounded backoff before storage.ErrBusy reaches the caller.
func (s *DepositService) ProcessDeposit(ctx context.Context, in DepositInput) (*models.DistributionReport, error) {
	if in.AccountID <= 0 || in.AccountID == models.CompanyAccountID {
		return nil, fmt.Errorf("%w: bad account id %d", ErrInvalidInput, in.AccountID)
	}
	if reason, ok := s.policy.ValidateAmount(in.Amount); !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, reason)
	}

	var (
		report *models.DistributionReport
		err    error
	)
	for attempt := 0; ; attempt++ {
		report, err = s.processOnce(ctx, in)
		if !errors.Is(err, storage.ErrBusy) || attempt >= busyRetries {
			break
		}
		backoff := busyBackoff << attempt
		slog.Warn("deposit hit storage contention, retrying",
			"account_id", in.AccountID, "attempt", attempt+1, "backoff", backoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if errors.Is(err, storage.ErrCycle) {
		slog.Error("sponsor chain corruption detected",
			"account_id", in.AccountID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDataIntegrity, err)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("deposit processed",
		"account_id", in.AccountID,
		"amount", in.Amount,
		"became_active", report.BecameActive,
		"rank", report.NewRank,
		"lines", len(report.Lines),
		"duplicate", report.Duplicate,
	)
	return report, nil
}

func (s *DepositService) processOnce(ctx context.Context, in DepositInput) (*models.DistributionReport, error) {
	var report *models.DistributionReport
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		// Idempotency: a known external reference replays the stored
		// report without touching any balance.
		if in.ExternalRef != "" {
			receipt, err := tx.FindDepositByRef(ctx, in.ExternalRef)
			if err == nil {
				report = receipt.Report
				report.Duplicate = true
				return nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		depositor, err := tx.GetOrCreateAccount(ctx, in.AccountID, in.Username, in.FirstName)
		if err != nil {
			return err
		}
		if in.SponsorHint != 0 && depositor.SponsorID == 0 {
			if err := tx.LinkSponsor(ctx, in.AccountID, in.SponsorHint); err != nil {
				return err
			}
			if depositor, err = tx.GetAccount(ctx, in.AccountID); err != nil {
				return err
			}
		}

		// One-way activation; never re-evaluated once set.
		becameActive := false
		if !depositor.Activated && in.Amount.GreaterThanOrEqual(s.policy.ActivationThreshold) {
			depositor.Activated = true
			becameActive = true
		}

		// An account's own deposits count toward its own volume baseline.
		depositor.TeamVolume = depositor.TeamVolume.Add(in.Amount)
		depositor.Rank = commission.EvaluateRank(depositor.TeamVolume, depositor.ActiveDescendants, depositor.Activated)
		if err := tx.UpdateAccount(ctx, depositor); err != nil {
			return err
		}

		// Upstream propagation over the full chain: volume, first-activation
		// counters, rank recomputed from scratch for every ancestor.
		chain, err := tx.SponsorChain(ctx, in.AccountID, 0)
		if err != nil {
			return err
		}
		for _, anc := range chain {
			anc.TeamVolume = anc.TeamVolume.Add(in.Amount)
			if becameActive {
				anc.ActiveDescendants++
			}
			anc.Rank = commission.EvaluateRank(anc.TeamVolume, anc.ActiveDescendants, anc.Activated)
			if err := tx.UpdateAccount(ctx, anc); err != nil {
				return err
			}
		}

		// Achievers are read after the rank updates above so the pool bonus
		// sees the ranks this very deposit produced.
		achievers, err := tx.Achievers(ctx, s.policy.PoolMinRank)
		if err != nil {
			return err
		}

		ancestors := make([]commission.Ancestor, 0, s.policy.MaxLevels)
		for i, anc := range chain {
			if i >= s.policy.MaxLevels {
				break
			}
			ancestors = append(ancestors, commission.Ancestor{ID: anc.ID, Rank: anc.Rank, Activated: anc.Activated})
		}
		achieverIDs := make([]int64, len(achievers))
		for i, a := range achievers {
			achieverIDs[i] = a.ID
		}

		plan, err := commission.BuildPlan(s.policy, in.Amount, ancestors, achieverIDs)
		if err != nil {
			return err
		}

		// All loaded accounts, keyed by id, so an account touched twice
		// (ancestor and achiever, say) is mutated once and written once.
		loaded := map[int64]*models.Account{depositor.ID: depositor}
		for _, a := range chain {
			loaded[a.ID] = a
		}
		for _, a := range achievers {
			if _, ok := loaded[a.ID]; !ok {
				loaded[a.ID] = a
			}
		}
		credited := map[int64]bool{}
		credit := func(id int64, amount decimal.Decimal, poolBonus bool) error {
			if amount.IsZero() {
				return nil
			}
			acct, ok := loaded[id]
			if !ok {
				// Company pool account is created lazily on first use.
				if acct, err = tx.GetOrCreateAccount(ctx, id, "company", "company"); err != nil {
					return err
				}
				loaded[id] = acct
			}
			acct.BalancePrimary = acct.BalancePrimary.Add(amount)
			if poolBonus && !acct.IsCompany() {
				acct.PoolIncome = acct.PoolIncome.Add(amount)
			}
			credited[id] = true
			return nil
		}

		// Own-deposit split credits the depositor in both currencies.
		depositor.BalancePrimary = depositor.BalancePrimary.Add(plan.SelfPrimary)
		depositor.BalanceSecondary = depositor.BalanceSecondary.Add(plan.SelfSecondary)
		credited[depositor.ID] = true
		if err := tx.AppendTransfer(ctx, &models.Transfer{
			AccountID: depositor.ID, Amount: plan.SelfPrimary,
			Currency: models.CurrencyMUSD, Type: models.TransferDeposit,
		}); err != nil {
			return err
		}
		if err := tx.AppendTransfer(ctx, &models.Transfer{
			AccountID: depositor.ID, Amount: plan.SelfSecondary,
			Currency: models.CurrencyMSTC, Type: models.TransferCreditMSTC,
		}); err != nil {
			return err
		}

		// Distribution lines: credit balances and write the audit pair
		// (transfer + referral event) for each. Zero-amount lines still get
		// their referral event for auditability.
		for _, line := range plan.Lines {
			if err := credit(line.Recipient, line.Amount, line.Note == models.NotePoolBonus); err != nil {
				return err
			}
			if !line.Amount.IsZero() {
				transferType := models.TransferCommission
				if line.Level == 0 {
					transferType = models.TransferPoolBonus
				}
				if err := tx.AppendTransfer(ctx, &models.Transfer{
					AccountID: line.Recipient, Amount: line.Amount,
					Currency: models.CurrencyMUSD, Type: transferType,
				}); err != nil {
					return err
				}
			}
			if err := tx.AppendReferralEvent(ctx, &models.ReferralEvent{
				FromAccount: depositor.ID, ToAccount: line.Recipient,
				Amount: line.Amount, Note: line.Note,
			}); err != nil {
				return err
			}
		}

		for id := range credited {
			if err := tx.UpdateAccount(ctx, loaded[id]); err != nil {
				return err
			}
		}

		report = &models.DistributionReport{
			AccountID:         depositor.ID,
			Amount:            in.Amount,
			BecameActive:      becameActive,
			NewRank:           depositor.Rank,
			CreditedPrimary:   plan.SelfPrimary,
			CreditedSecondary: plan.SelfSecondary,
			Lines:             plan.Lines,
		}
		return tx.InsertDeposit(ctx, &models.DepositReceipt{
			AccountID:   depositor.ID,
			Amount:      in.Amount,
			ExternalRef: in.ExternalRef,
			Report:      report,
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// AccountSnapshot returns the account for the given identity, creating a
// default one on first contact.
func (s *DepositService) AccountSnapshot(ctx context.Context, id int64, username, firstName string) (*models.Account, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: bad account id %d", ErrInvalidInput, id)
	}
	var acct *models.Account
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		acct, err = tx.GetOrCreateAccount(ctx, id, username, firstName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// ResetAccount clears an account's balances, rank, activation state and team
// counters. The sponsor link survives: it is immutable by design and the
// surrounding tree still references the account. Admin-only escape hatch.
func (s *DepositService) ResetAccount(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: bad account id %d", ErrInvalidInput, id)
	}
	return s.store.Transact(ctx, func(tx storage.Tx) error {
		acct, err := tx.GetAccount(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: account %d does not exist", ErrInvalidInput, id)
		}
		if err != nil {
			return err
		}
		acct.BalancePrimary = decimal.Zero
		acct.BalanceSecondary = decimal.Zero
		acct.TeamVolume = decimal.Zero
		acct.PoolIncome = decimal.Zero
		acct.ActiveDescendants = 0
		acct.Activated = false
		acct.Rank = models.RankUnranked
		if err := tx.UpdateAccount(ctx, acct); err != nil {
			return err
		}
		slog.Warn("account reset by administrator", "account_id", id)
		return nil
	})
}
