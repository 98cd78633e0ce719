package commission

import (
	"github.com/shopspring/decimal"

	"github.com/mstclabs/mstc-miniapp/internal/models"
)

// Policy holds every tunable of the distribution: percentage tables,
// activation threshold, deposit constraints, and the own-deposit split ratio.
// The percentage table is configuration, not law; the business changed it
// more than once, so nothing in the planner hard-codes these values.
type Policy struct {
	// ActivationThreshold is the minimum single deposit that flips an
	// account to activated.
	ActivationThreshold decimal.Decimal

	// MinDeposit and DepositStep constrain accepted amounts: at least
	// MinDeposit, and above it only in DepositStep increments.
	MinDeposit  decimal.Decimal
	DepositStep decimal.Decimal

	// SecondaryShare is the fraction of a deposit converted to the
	// secondary (MSTC) balance; the rest stays primary (MUSD).
	SecondaryShare decimal.Decimal

	// PoolBonusShare is the fraction split equally among achievers:
	// activated accounts ranked PoolMinRank or higher.
	PoolBonusShare decimal.Decimal
	PoolMinRank    models.Rank

	// LevelOnePercents maps the direct sponsor's current rank to their
	// commission fraction. Ranks absent from the map earn nothing.
	LevelOnePercents map[models.Rank]decimal.Decimal

	// LevelTwoPercent applies at depth 2 for sponsors ranked at or above
	// LevelTwoMinRank; LevelThreePercent likewise at depth 3.
	LevelTwoPercent   decimal.Decimal
	LevelTwoMinRank   models.Rank
	LevelThreePercent decimal.Decimal
	LevelThreeMinRank models.Rank

	// MaxLevels bounds the commission walk (level 1 = direct sponsor).
	MaxLevels int
}

// DefaultPolicy returns the production percentage table.
func DefaultPolicy() Policy {
	return Policy{
		ActivationThreshold: decimal.NewFromInt(20),
		MinDeposit:          decimal.NewFromInt(20),
		DepositStep:         decimal.NewFromInt(10),
		SecondaryShare:      decimal.NewFromFloat(0.30),
		PoolBonusShare:      decimal.NewFromFloat(0.02),
		PoolMinRank:         models.RankLifeChanger,
		LevelOnePercents: map[models.Rank]decimal.Decimal{
			models.RankOrigin:      decimal.NewFromFloat(0.05),
			models.RankLifeChanger: decimal.NewFromFloat(0.10),
			models.RankAdvisor:     decimal.NewFromFloat(0.15),
			models.RankVisionary:   decimal.NewFromFloat(0.20),
			models.RankCreator:     decimal.NewFromFloat(0.25),
		},
		LevelTwoPercent:   decimal.NewFromFloat(0.03),
		LevelTwoMinRank:   models.RankLifeChanger,
		LevelThreePercent: decimal.NewFromFloat(0.02),
		LevelThreeMinRank: models.RankAdvisor,
		MaxLevels:         3,
	}
}

// ValidateAmount checks a requested deposit amount against the policy.
// It returns a short machine-readable reason when the amount is rejected.
func (p Policy) ValidateAmount(amount decimal.Decimal) (string, bool) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return "invalid_amount", false
	}
	if amount.LessThan(p.MinDeposit) {
		return "min_deposit", false
	}
	if p.DepositStep.IsPositive() {
		if rem := amount.Sub(p.MinDeposit).Mod(p.DepositStep); !rem.IsZero() {
			return "invalid_step", false
		}
	}
	return "", true
}
