// Package commission contains the pure computation core of the referral
// ledger: rank evaluation and deposit distribution planning. Nothing in this
// package touches storage; callers feed it snapshots and apply the returned
// plan transactionally.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/mstclabs/mstc-miniapp/internal/models"
)

// Rank promotion thresholds. Evaluated highest-first, first match wins.
var (
	creatorVolume     = decimal.NewFromInt(100000)
	visionaryVolume   = decimal.NewFromInt(25000)
	advisorVolume     = decimal.NewFromInt(5000)
	lifeChangerVolume = decimal.NewFromInt(1000)
)

const lifeChangerDescendants = 10

// EvaluateRank maps an account's metrics to its rank tier. The rank is always
// recomputed from scratch rather than patched incrementally, so there is no
// drift between the stored rank and the metrics it derives from. Team volume
// never decreases, which makes the result non-decreasing across a deposit
// history.
func EvaluateRank(teamVolume decimal.Decimal, activeDescendants int, activated bool) models.Rank {
	switch {
	case teamVolume.GreaterThanOrEqual(creatorVolume):
		return models.RankCreator
	case teamVolume.GreaterThanOrEqual(visionaryVolume):
		return models.RankVisionary
	case teamVolume.GreaterThanOrEqual(advisorVolume):
		return models.RankAdvisor
	case teamVolume.GreaterThanOrEqual(lifeChangerVolume) && activeDescendants >= lifeChangerDescendants:
		return models.RankLifeChanger
	case activated:
		return models.RankOrigin
	default:
		return models.RankUnranked
	}
}
