package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mstclabs/mstc-miniapp/internal/models"
	"github.com/mstclabs/mstc-miniapp/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "refledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func inTx(t *testing.T, store *SQLiteStore, fn func(tx storage.Tx) error) {
	t.Helper()
	if err := store.Transact(context.Background(), fn); err != nil {
		t.Fatalf("Transact failed: %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("GetOrCreateAccount creates default account", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			acct, err := tx.GetOrCreateAccount(ctx, 123456, "test", "Test")
			if err != nil {
				return err
			}
			if acct.Activated {
				t.Error("new account should not be activated")
			}
			if acct.Rank != models.RankUnranked {
				t.Errorf("new account rank = %s, want unranked", acct.Rank)
			}
			if !acct.BalancePrimary.IsZero() || !acct.BalanceSecondary.IsZero() {
				t.Error("new account should have zero balances")
			}
			if acct.SponsorID != 0 {
				t.Errorf("new account sponsor = %d, want none", acct.SponsorID)
			}
			if acct.CreatedAt == 0 {
				t.Error("expected CreatedAt to be set")
			}
			return nil
		})

		// Second call returns the same row, not a fresh one.
		inTx(t, store, func(tx storage.Tx) error {
			acct, err := tx.GetOrCreateAccount(ctx, 123456, "other", "Other")
			if err != nil {
				return err
			}
			if acct.Username != "test" {
				t.Errorf("username = %q, want original %q", acct.Username, "test")
			}
			return nil
		})
	})

	t.Run("UpdateAccount round-trips decimals and rank", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			acct, err := tx.GetOrCreateAccount(ctx, 777, "dec", "Dec")
			if err != nil {
				return err
			}
			acct.BalancePrimary = decimal.RequireFromString("14.70")
			acct.BalanceSecondary = decimal.RequireFromString("6.30")
			acct.TeamVolume = decimal.RequireFromString("1250.55")
			acct.PoolIncome = decimal.RequireFromString("0.66")
			acct.Rank = models.RankAdvisor
			acct.Activated = true
			acct.ActiveDescendants = 4
			return tx.UpdateAccount(ctx, acct)
		})

		acct, err := store.GetAccount(ctx, 777)
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if !acct.BalancePrimary.Equal(decimal.RequireFromString("14.70")) {
			t.Errorf("BalancePrimary = %s, want 14.70", acct.BalancePrimary)
		}
		if !acct.TeamVolume.Equal(decimal.RequireFromString("1250.55")) {
			t.Errorf("TeamVolume = %s, want 1250.55", acct.TeamVolume)
		}
		if acct.Rank != models.RankAdvisor || !acct.Activated || acct.ActiveDescendants != 4 {
			t.Errorf("unexpected account state: %+v", acct)
		}
	})

	t.Run("GetAccount missing id returns ErrNotFound", func(t *testing.T) {
		if _, err := store.GetAccount(ctx, 999999); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestLinkSponsor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inTx(t, store, func(tx storage.Tx) error {
		for _, id := range []int64{234, 345, 456} {
			if _, err := tx.GetOrCreateAccount(ctx, id, fmt.Sprintf("u%d", id), ""); err != nil {
				return err
			}
		}
		return nil
	})

	t.Run("sets sponsor when unset", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			return tx.LinkSponsor(ctx, 345, 234)
		})
		acct, _ := store.GetAccount(ctx, 345)
		if acct.SponsorID != 234 {
			t.Errorf("sponsor = %d, want 234", acct.SponsorID)
		}
	})

	t.Run("existing link is immutable", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			return tx.LinkSponsor(ctx, 345, 456)
		})
		acct, _ := store.GetAccount(ctx, 345)
		if acct.SponsorID != 234 {
			t.Errorf("sponsor = %d, want unchanged 234", acct.SponsorID)
		}
	})

	t.Run("self link is a no-op", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			return tx.LinkSponsor(ctx, 456, 456)
		})
		acct, _ := store.GetAccount(ctx, 456)
		if acct.SponsorID != 0 {
			t.Errorf("sponsor = %d, want none", acct.SponsorID)
		}
	})

	t.Run("missing sponsor is a no-op", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			return tx.LinkSponsor(ctx, 456, 888888)
		})
		acct, _ := store.GetAccount(ctx, 456)
		if acct.SponsorID != 0 {
			t.Errorf("sponsor = %d, want none", acct.SponsorID)
		}
	})
}

func TestSponsorChain(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// 123456 -> 345 -> 234
	inTx(t, store, func(tx storage.Tx) error {
		for _, id := range []int64{234, 345, 123456} {
			if _, err := tx.GetOrCreateAccount(ctx, id, "", ""); err != nil {
				return err
			}
		}
		if err := tx.LinkSponsor(ctx, 123456, 345); err != nil {
			return err
		}
		return tx.LinkSponsor(ctx, 345, 234)
	})

	t.Run("returns ancestors direct sponsor first", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			chain, err := tx.SponsorChain(ctx, 123456, 0)
			if err != nil {
				return err
			}
			if len(chain) != 2 || chain[0].ID != 345 || chain[1].ID != 234 {
				t.Errorf("chain = %v, want [345 234]", chainIDs(chain))
			}
			return nil
		})
	})

	t.Run("maxDepth bounds the walk", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			chain, err := tx.SponsorChain(ctx, 123456, 1)
			if err != nil {
				return err
			}
			if len(chain) != 1 || chain[0].ID != 345 {
				t.Errorf("chain = %v, want [345]", chainIDs(chain))
			}
			return nil
		})
	})

	t.Run("root account has empty chain", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			chain, err := tx.SponsorChain(ctx, 234, 0)
			if err != nil {
				return err
			}
			if len(chain) != 0 {
				t.Errorf("chain = %v, want empty", chainIDs(chain))
			}
			return nil
		})
	})

	t.Run("cycle aborts with ErrCycle", func(t *testing.T) {
		// Force a cycle behind LinkSponsor's back: 234 -> 123456.
		inTx(t, store, func(tx storage.Tx) error {
			acct, err := tx.GetAccount(ctx, 234)
			if err != nil {
				return err
			}
			acct.SponsorID = 123456
			return tx.UpdateAccount(ctx, acct)
		})

		err := store.Transact(ctx, func(tx storage.Tx) error {
			_, err := tx.SponsorChain(ctx, 123456, 0)
			return err
		})
		if !errors.Is(err, storage.ErrCycle) {
			t.Errorf("err = %v, want ErrCycle", err)
		}
	})
}

func TestAchievers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []struct {
		id        int64
		rank      models.Rank
		activated bool
	}{
		{1, models.RankOrigin, true},
		{2, models.RankLifeChanger, true},
		{3, models.RankAdvisor, true},
		{4, models.RankCreator, false}, // not activated: excluded
		{5, models.RankVisionary, true},
		{models.CompanyAccountID, models.RankCreator, true}, // company: excluded
	}
	inTx(t, store, func(tx storage.Tx) error {
		for _, s := range seed {
			acct, err := tx.GetOrCreateAccount(ctx, s.id, "", "")
			if err != nil {
				return err
			}
			acct.Rank = s.rank
			acct.Activated = s.activated
			if err := tx.UpdateAccount(ctx, acct); err != nil {
				return err
			}
		}
		return nil
	})

	inTx(t, store, func(tx storage.Tx) error {
		achievers, err := tx.Achievers(ctx, models.RankLifeChanger)
		if err != nil {
			return err
		}
		got := chainIDs(achievers)
		want := []int64{2, 3, 5}
		if len(got) != len(want) {
			t.Fatalf("achievers = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("achievers = %v, want %v", got, want)
				break
			}
		}
		return nil
	})
}

func TestDepositReceipts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := &models.DistributionReport{
		AccountID:         123456,
		Amount:            decimal.RequireFromString("20"),
		BecameActive:      true,
		NewRank:           models.RankOrigin,
		CreditedPrimary:   decimal.RequireFromString("14"),
		CreditedSecondary: decimal.RequireFromString("6"),
		Lines: []models.DistributionLine{
			{Level: 0, Recipient: models.CompanyAccountID, Pool: true, Amount: decimal.RequireFromString("0.4"), Note: models.NotePoolBonus},
			{Level: 0, Recipient: models.CompanyAccountID, Pool: true, Amount: decimal.RequireFromString("19.6"), Note: models.NotePoolRemainder},
		},
	}

	inTx(t, store, func(tx storage.Tx) error {
		if _, err := tx.GetOrCreateAccount(ctx, 123456, "", ""); err != nil {
			return err
		}
		return tx.InsertDeposit(ctx, &models.DepositReceipt{
			AccountID:   123456,
			Amount:      report.Amount,
			ExternalRef: "TX1",
			Report:      report,
		})
	})

	t.Run("FindDepositByRef rehydrates the report", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			receipt, err := tx.FindDepositByRef(ctx, "TX1")
			if err != nil {
				return err
			}
			if receipt.AccountID != 123456 || !receipt.Amount.Equal(report.Amount) {
				t.Errorf("receipt = %+v", receipt)
			}
			if receipt.Report == nil || len(receipt.Report.Lines) != 2 {
				t.Fatalf("report not rehydrated: %+v", receipt.Report)
			}
			if !receipt.Report.Lines[1].Amount.Equal(decimal.RequireFromString("19.6")) {
				t.Errorf("line amount = %s, want 19.6", receipt.Report.Lines[1].Amount)
			}
			return nil
		})
	})

	t.Run("unknown ref returns ErrNotFound", func(t *testing.T) {
		inTx(t, store, func(tx storage.Tx) error {
			_, err := tx.FindDepositByRef(ctx, "TX-UNKNOWN")
			if !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
			return nil
		})
	})

	t.Run("duplicate ref fails the transaction", func(t *testing.T) {
		err := store.Transact(ctx, func(tx storage.Tx) error {
			return tx.InsertDeposit(ctx, &models.DepositReceipt{
				AccountID:   123456,
				Amount:      report.Amount,
				ExternalRef: "TX1",
				Report:      report,
			})
		})
		if err == nil {
			t.Error("expected unique-index violation for duplicate ref")
		}
	})
}

func TestTransactRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := store.Transact(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetOrCreateAccount(ctx, 42, "ghost", ""); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}

	if _, err := store.GetAccount(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("account 42 survived a rolled-back transaction: err = %v", err)
	}
}

func chainIDs(accounts []*models.Account) []int64 {
	ids := make([]int64, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return ids
}
