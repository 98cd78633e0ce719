package commission

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mstclabs/mstc-miniapp/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func findLine(lines []models.DistributionLine, level int, note string) *models.DistributionLine {
	for i := range lines {
		if lines[i].Level == level && lines[i].Note == note {
			return &lines[i]
		}
	}
	return nil
}

func TestBuildPlan(t *testing.T) {
	tests := []struct {
		name         string
		amount       string
		chain        []Ancestor
		achievers    []int64
		validateFunc func(t *testing.T, plan *Plan)
	}{
		{
			name:   "fresh depositor with no sponsors",
			amount: "20",
			validateFunc: func(t *testing.T, plan *Plan) {
				if !plan.SelfPrimary.Equal(dec("14")) {
					t.Errorf("SelfPrimary = %s, want 14", plan.SelfPrimary)
				}
				if !plan.SelfSecondary.Equal(dec("6")) {
					t.Errorf("SelfSecondary = %s, want 6", plan.SelfSecondary)
				}
				// No ancestors: no commission lines at all, only the 2%
				// pool bonus (no achievers, so it goes to the pool) and
				// the remainder.
				if got := len(plan.Lines); got != 2 {
					t.Fatalf("len(Lines) = %d, want 2", got)
				}
				bonus := findLine(plan.Lines, 0, models.NotePoolBonus)
				if bonus == nil || !bonus.Pool || !bonus.Amount.Equal(dec("0.4")) {
					t.Errorf("pool bonus line = %+v, want 0.40 to pool", bonus)
				}
				rem := findLine(plan.Lines, 0, models.NotePoolRemainder)
				if rem == nil || !rem.Amount.Equal(dec("19.6")) {
					t.Errorf("remainder line = %+v, want 19.60", rem)
				}
			},
		},
		{
			name:   "two-level chain, level two unqualified",
			amount: "100",
			chain: []Ancestor{
				{ID: 345, Rank: models.RankOrigin, Activated: true},
				{ID: 234, Rank: models.RankOrigin, Activated: true},
			},
			validateFunc: func(t *testing.T, plan *Plan) {
				l1 := findLine(plan.Lines, 1, "level_1_referral")
				if l1 == nil || l1.Pool || l1.Recipient != 345 || !l1.Amount.Equal(dec("5")) {
					t.Errorf("level 1 = %+v, want 5.00 to 345", l1)
				}
				l2 := findLine(plan.Lines, 2, "level_2_referral")
				if l2 == nil || !l2.Pool || !l2.Amount.Equal(dec("3")) {
					t.Errorf("level 2 = %+v, want 3.00 to pool", l2)
				}
				if l3 := findLine(plan.Lines, 3, "level_3_referral"); l3 != nil {
					t.Errorf("unexpected level 3 line for 2-hop chain: %+v", l3)
				}
			},
		},
		{
			name:   "qualified deep chain",
			amount: "100",
			chain: []Ancestor{
				{ID: 1, Rank: models.RankCreator, Activated: true},
				{ID: 2, Rank: models.RankLifeChanger, Activated: true},
				{ID: 3, Rank: models.RankAdvisor, Activated: true},
			},
			validateFunc: func(t *testing.T, plan *Plan) {
				l1 := findLine(plan.Lines, 1, "level_1_referral")
				if l1 == nil || l1.Recipient != 1 || !l1.Amount.Equal(dec("25")) {
					t.Errorf("level 1 = %+v, want 25.00 to 1", l1)
				}
				l2 := findLine(plan.Lines, 2, "level_2_referral")
				if l2 == nil || l2.Recipient != 2 || l2.Pool || !l2.Amount.Equal(dec("3")) {
					t.Errorf("level 2 = %+v, want 3.00 to 2", l2)
				}
				l3 := findLine(plan.Lines, 3, "level_3_referral")
				if l3 == nil || l3.Recipient != 3 || l3.Pool || !l3.Amount.Equal(dec("2")) {
					t.Errorf("level 3 = %+v, want 2.00 to 3", l3)
				}
			},
		},
		{
			name:   "unactivated sponsor routes rank percentage to pool",
			amount: "100",
			chain: []Ancestor{
				{ID: 345, Rank: models.RankAdvisor, Activated: false},
			},
			validateFunc: func(t *testing.T, plan *Plan) {
				l1 := findLine(plan.Lines, 1, "level_1_referral")
				if l1 == nil || !l1.Pool || !l1.Amount.Equal(dec("15")) {
					t.Errorf("level 1 = %+v, want 15.00 to pool", l1)
				}
			},
		},
		{
			name:      "pool bonus splits equally with residual to pool",
			amount:    "100",
			achievers: []int64{11, 22, 33},
			validateFunc: func(t *testing.T, plan *Plan) {
				// 2% of 100 = 2.00, 3 achievers: 0.66 each, 0.02 residual.
				var shares int
				for _, line := range plan.Lines {
					if line.Note == models.NotePoolBonus {
						shares++
						if !line.Amount.Equal(dec("0.66")) {
							t.Errorf("share = %s, want 0.66", line.Amount)
						}
					}
				}
				if shares != 3 {
					t.Errorf("achiever share lines = %d, want 3", shares)
				}
				res := findLine(plan.Lines, 0, models.NotePoolResidual)
				if res == nil || !res.Pool || !res.Amount.Equal(dec("0.02")) {
					t.Errorf("residual = %+v, want 0.02 to pool", res)
				}
			},
		},
		{
			name:      "pool bonus share truncating to zero goes entirely to pool",
			amount:    "20",
			achievers: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45},
			validateFunc: func(t *testing.T, plan *Plan) {
				// 0.40 / 45 truncates to 0.00 per head.
				bonus := findLine(plan.Lines, 0, models.NotePoolBonus)
				if bonus == nil || !bonus.Pool || !bonus.Amount.Equal(dec("0.4")) {
					t.Errorf("pool bonus = %+v, want full 0.40 to pool", bonus)
				}
				for _, line := range plan.Lines {
					if line.Note == models.NotePoolBonus && !line.Pool {
						t.Errorf("unexpected achiever share line: %+v", line)
					}
				}
			},
		},
	}

	policy := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := dec(tt.amount)
			plan, err := BuildPlan(policy, amount, tt.chain, tt.achievers)
			if err != nil {
				t.Fatalf("BuildPlan failed: %v", err)
			}

			// Conservation holds for every case: the line items always sum
			// to exactly the deposit amount, and so does the own split.
			total := decimal.Zero
			for _, line := range plan.Lines {
				if line.Amount.IsNegative() {
					t.Errorf("negative line amount: %+v", line)
				}
				total = total.Add(line.Amount)
			}
			if !total.Equal(amount) {
				t.Errorf("line total = %s, want %s", total, amount)
			}
			if own := plan.SelfPrimary.Add(plan.SelfSecondary); !own.Equal(amount) {
				t.Errorf("own split total = %s, want %s", own, amount)
			}

			if tt.validateFunc != nil {
				tt.validateFunc(t, plan)
			}
		})
	}
}

func TestBuildPlanRejectsNonPositiveAmount(t *testing.T) {
	if _, err := BuildPlan(DefaultPolicy(), decimal.Zero, nil, nil); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := BuildPlan(DefaultPolicy(), dec("-5"), nil, nil); err == nil {
		t.Error("expected error for negative amount")
	}
}

func TestBuildPlanPolicyOverflow(t *testing.T) {
	policy := DefaultPolicy()
	policy.LevelOnePercents[models.RankCreator] = dec("0.99")

	chain := []Ancestor{{ID: 1, Rank: models.RankCreator, Activated: true}}
	_, err := BuildPlan(policy, dec("100"), chain, nil)
	if !errors.Is(err, ErrPolicyOverflow) {
		t.Errorf("err = %v, want ErrPolicyOverflow", err)
	}
}

func TestValidateAmount(t *testing.T) {
	policy := DefaultPolicy()
	tests := []struct {
		amount     string
		wantReason string
	}{
		{"20", ""},
		{"30", ""},
		{"100", ""},
		{"0", "invalid_amount"},
		{"-20", "invalid_amount"},
		{"10", "min_deposit"},
		{"19.99", "min_deposit"},
		{"25", "invalid_step"},
		{"20.01", "invalid_step"},
	}
	for _, tt := range tests {
		reason, ok := policy.ValidateAmount(dec(tt.amount))
		if tt.wantReason == "" && !ok {
			t.Errorf("ValidateAmount(%s) rejected with %q, want accepted", tt.amount, reason)
		}
		if tt.wantReason != "" && (ok || reason != tt.wantReason) {
			t.Errorf("ValidateAmount(%s) = (%q, %v), want %q", tt.amount, reason, ok, tt.wantReason)
		}
	}
}
