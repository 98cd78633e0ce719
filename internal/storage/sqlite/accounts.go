package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mstclabs/mstc-miniapp/internal/models"
	"github.com/mstclabs/mstc-miniapp/internal/storage"
)

const selectAccount = `SELECT id, username, first_name, balance_primary, balance_secondary,
rank, activated, team_volume, active_descendants, pool_income, sponsor_id, created_at
FROM accounts`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acct                               models.Account
		primary, secondary, volume, income string
		rank                               string
		sponsor                            sql.NullInt64
	)
	err := row.Scan(&acct.ID, &acct.Username, &acct.FirstName, &primary, &secondary,
		&rank, &acct.Activated, &volume, &acct.ActiveDescendants, &income, &sponsor, &acct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	if acct.BalancePrimary, err = decimal.NewFromString(primary); err != nil {
		return nil, fmt.Errorf("corrupt balance_primary for account %d: %w", acct.ID, err)
	}
	if acct.BalanceSecondary, err = decimal.NewFromString(secondary); err != nil {
		return nil, fmt.Errorf("corrupt balance_secondary for account %d: %w", acct.ID, err)
	}
	if acct.TeamVolume, err = decimal.NewFromString(volume); err != nil {
		return nil, fmt.Errorf("corrupt team_volume for account %d: %w", acct.ID, err)
	}
	if acct.PoolIncome, err = decimal.NewFromString(income); err != nil {
		return nil, fmt.Errorf("corrupt pool_income for account %d: %w", acct.ID, err)
	}
	if acct.Rank, err = models.ParseRank(rank); err != nil {
		return nil, fmt.Errorf("corrupt rank for account %d: %w", acct.ID, err)
	}
	if sponsor.Valid {
		acct.SponsorID = sponsor.Int64
	}
	return &acct, nil
}

// GetAccount retrieves an account by id within the transaction.
func (t *sqliteTx) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return scanAccount(t.tx.QueryRowContext(ctx, selectAccount+" WHERE id = ?", id))
}

// GetOrCreateAccount returns the existing account or inserts a default one:
// unactivated, unranked, zero balances, no sponsor.
func (t *sqliteTx) GetOrCreateAccount(ctx context.Context, id int64, username, firstName string) (*models.Account, error) {
	acct, err := t.GetAccount(ctx, id)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	acct = &models.Account{
		ID:               id,
		Username:         username,
		FirstName:        firstName,
		BalancePrimary:   decimal.Zero,
		BalanceSecondary: decimal.Zero,
		TeamVolume:       decimal.Zero,
		PoolIncome:       decimal.Zero,
		CreatedAt:        time.Now().Unix(),
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO accounts (id, username, first_name, rank, created_at) VALUES (?, ?, ?, ?, ?)`,
		acct.ID, acct.Username, acct.FirstName, acct.Rank.String(), acct.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account %d: %w", id, err)
	}
	return acct, nil
}

// UpdateAccount persists all mutable fields of the account.
func (t *sqliteTx) UpdateAccount(ctx context.Context, acct *models.Account) error {
	sponsor := sql.NullInt64{Int64: acct.SponsorID, Valid: acct.SponsorID != 0}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET username = ?, first_name = ?, balance_primary = ?, balance_secondary = ?,
rank = ?, activated = ?, team_volume = ?, active_descendants = ?, pool_income = ?, sponsor_id = ?
WHERE id = ?`,
		acct.Username, acct.FirstName, acct.BalancePrimary.String(), acct.BalanceSecondary.String(),
		acct.Rank.String(), acct.Activated, acct.TeamVolume.String(), acct.ActiveDescendants,
		acct.PoolIncome.String(), sponsor, acct.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account %d: %w", acct.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// LinkSponsor sets the sponsor link only when it is currently unset, the
// sponsor account exists, and the link is not self-referential. Every other
// case is a silent no-op: sponsor links are immutable once set.
func (t *sqliteTx) LinkSponsor(ctx context.Context, accountID, sponsorID int64) error {
	if accountID == sponsorID || sponsorID == 0 {
		return nil
	}
	if _, err := t.GetAccount(ctx, sponsorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	// The WHERE guard makes repeated calls no-ops without a read-check race.
	_, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET sponsor_id = ? WHERE id = ? AND sponsor_id IS NULL`,
		sponsorID, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to link sponsor %d -> %d: %w", accountID, sponsorID, err)
	}
	return nil
}

// SponsorChain walks the sponsor links upward from accountID, returning the
// ancestors in order (direct sponsor first). The visited set is seeded with
// accountID itself; revisiting any id aborts with storage.ErrCycle rather
// than trusting the data to be acyclic.
func (t *sqliteTx) SponsorChain(ctx context.Context, accountID int64, maxDepth int) ([]*models.Account, error) {
	start, err := t.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	visited := map[int64]bool{accountID: true}
	var chain []*models.Account

	next := start.SponsorID
	for next != 0 {
		if maxDepth > 0 && len(chain) >= maxDepth {
			break
		}
		if visited[next] {
			return nil, fmt.Errorf("%w: account %d revisited walking up from %d", storage.ErrCycle, next, accountID)
		}
		visited[next] = true

		parent, err := t.GetAccount(ctx, next)
		if errors.Is(err, storage.ErrNotFound) {
			// Dangling sponsor reference: treat as root rather than failing
			// the whole deposit.
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, parent)
		next = parent.SponsorID
	}
	return chain, nil
}

// Achievers returns every activated account ranked minRank or higher, company
// pool excluded, ordered by id for deterministic pool-bonus line ordering.
func (t *sqliteTx) Achievers(ctx context.Context, minRank models.Rank) ([]*models.Account, error) {
	names := make([]any, 0, 4)
	placeholders := ""
	for r := minRank; r <= models.RankCreator; r++ {
		if placeholders != "" {
			placeholders += ", "
		}
		placeholders += "?"
		names = append(names, r.String())
	}

	query := selectAccount + ` WHERE activated = 1 AND rank IN (` + placeholders + `) AND id != ? ORDER BY id`
	args := append(names, models.CompanyAccountID)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievers: %w", err)
	}
	defer rows.Close()

	var achievers []*models.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		achievers = append(achievers, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate achievers: %w", err)
	}
	return achievers, nil
}
