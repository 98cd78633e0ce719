package commission

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mstclabs/mstc-miniapp/internal/models"
)

// ErrPolicyOverflow is returned when the configured percentages allocate more
// than the deposit amount. A correct policy can never trigger it; it guards
// against a misconfigured table silently minting money.
var ErrPolicyOverflow = errors.New("commission policy allocates more than the deposit amount")

// Ancestor is the snapshot of one upstream account at planning time,
// ordered level 1 (direct sponsor) outward.
type Ancestor struct {
	ID        int64
	Rank      models.Rank
	Activated bool
}

// Plan is the full, conservation-checked outcome of one deposit before any
// balance is touched. Line amounts sum to exactly the deposit amount; the
// own split (SelfPrimary + SelfSecondary) independently sums to the amount.
type Plan struct {
	// SelfPrimary / SelfSecondary are the depositor's own 70/30 split.
	SelfPrimary   decimal.Decimal
	SelfSecondary decimal.Decimal

	// Lines are the distribution line items: up to MaxLevels commission
	// lines, pool-bonus shares, and the company-pool remainder.
	Lines []models.DistributionLine
}

// BuildPlan computes the complete distribution for one deposit: the
// depositor's currency split, the tiered commissions for up to MaxLevels
// ancestors, the equal-split achiever pool bonus, and the company-pool
// remainder that makes the lines sum to exactly the amount.
//
// chain holds the sponsor ancestry starting at the direct sponsor; achievers
// holds the ids of every activated account ranked life_changer or higher
// (company excluded). Both are snapshots taken inside the same transaction
// that will apply the plan.
func BuildPlan(p Policy, amount decimal.Decimal, chain []Ancestor, achievers []int64) (*Plan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("non-positive amount %s", amount)
	}

	plan := &Plan{}

	// Own-deposit split: secondary is rounded, primary absorbs the rounding
	// so the two always sum to the amount.
	plan.SelfSecondary = amount.Mul(p.SecondaryShare).Round(2)
	plan.SelfPrimary = amount.Sub(plan.SelfSecondary)

	// Tiered commissions. A missing ancestor produces no line; an existing
	// but unqualified ancestor produces a line routed to the pool.
	allocated := decimal.Zero
	for level := 1; level <= p.MaxLevels && level <= len(chain); level++ {
		line := p.levelLine(level, chain[level-1], amount)
		allocated = allocated.Add(line.Amount)
		plan.Lines = append(plan.Lines, line)
	}

	// Achiever pool bonus: fixed share split equally, truncated to cents.
	// Shares that truncate to zero, and any residual, go to the pool.
	poolTotal := amount.Mul(p.PoolBonusShare).Round(2)
	allocated = allocated.Add(poolTotal)
	plan.Lines = append(plan.Lines, poolBonusLines(poolTotal, achievers)...)

	remainder := amount.Sub(allocated)
	if remainder.IsNegative() {
		return nil, fmt.Errorf("%w: amount=%s allocated=%s", ErrPolicyOverflow, amount, allocated)
	}
	if remainder.IsPositive() {
		plan.Lines = append(plan.Lines, models.DistributionLine{
			Level:     0,
			Recipient: models.CompanyAccountID,
			Pool:      true,
			Amount:    remainder,
			Note:      models.NotePoolRemainder,
		})
	}

	return plan, nil
}

// levelLine computes the line item for one commission level. Level 1 pays by
// the sponsor's current rank and requires activation; deeper levels pay a
// fixed fraction gated by a minimum rank.
func (p Policy) levelLine(level int, anc Ancestor, amount decimal.Decimal) models.DistributionLine {
	var (
		pct       decimal.Decimal
		qualified bool
	)
	switch level {
	case 1:
		pct = p.LevelOnePercents[anc.Rank]
		qualified = anc.Activated
	case 2:
		pct = p.LevelTwoPercent
		qualified = anc.Rank.AtLeast(p.LevelTwoMinRank)
	case 3:
		pct = p.LevelThreePercent
		qualified = anc.Rank.AtLeast(p.LevelThreeMinRank)
	}

	line := models.DistributionLine{
		Level:  level,
		Amount: amount.Mul(pct).Round(2),
		Note:   fmt.Sprintf(models.NoteLevelReferral, level),
	}
	if qualified {
		line.Recipient = anc.ID
	} else {
		line.Recipient = models.CompanyAccountID
		line.Pool = true
	}
	return line
}

// poolBonusLines splits poolTotal equally among achievers. With no achievers,
// or shares that truncate to zero, the whole bonus is one pool line; otherwise
// each achiever gets a share line and the truncation residual becomes a pool
// line of its own.
func poolBonusLines(poolTotal decimal.Decimal, achievers []int64) []models.DistributionLine {
	if poolTotal.IsZero() {
		return nil
	}

	n := int64(len(achievers))
	var share decimal.Decimal
	if n > 0 {
		share = poolTotal.Div(decimal.NewFromInt(n)).Truncate(2)
	}

	if n == 0 || share.IsZero() {
		return []models.DistributionLine{{
			Level:     0,
			Recipient: models.CompanyAccountID,
			Pool:      true,
			Amount:    poolTotal,
			Note:      models.NotePoolBonus,
		}}
	}

	lines := make([]models.DistributionLine, 0, len(achievers)+1)
	for _, id := range achievers {
		lines = append(lines, models.DistributionLine{
			Level:     0,
			Recipient: id,
			Amount:    share,
			Note:      models.NotePoolBonus,
		})
	}
	if residual := poolTotal.Sub(share.Mul(decimal.NewFromInt(n))); residual.IsPositive() {
		lines = append(lines, models.DistributionLine{
			Level:     0,
			Recipient: models.CompanyAccountID,
			Pool:      true,
			Amount:    residual,
			Note:      models.NotePoolResidual,
		})
	}
	return lines
}
