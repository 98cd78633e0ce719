package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mstclabs/mstc-miniapp/internal/models"
	"github.com/mstclabs/mstc-miniapp/internal/storage"
)

// FindDepositByRef looks up a prior deposit by its external reference and
// rehydrates the stored distribution report for idempotent replay.
func (t *sqliteTx) FindDepositByRef(ctx context.Context, externalRef string) (*models.DepositReceipt, error) {
	var (
		receipt    models.DepositReceipt
		amount     string
		reportJSON string
	)
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, account_id, amount, external_ref, report, created_at FROM deposits WHERE external_ref = ?`,
		externalRef,
	).Scan(&receipt.ID, &receipt.AccountID, &amount, &receipt.ExternalRef, &reportJSON, &receipt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up deposit %q: %w", externalRef, err)
	}

	if receipt.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount for deposit %q: %w", externalRef, err)
	}
	receipt.Report = &models.DistributionReport{}
	if err := json.Unmarshal([]byte(reportJSON), receipt.Report); err != nil {
		return nil, fmt.Errorf("corrupt report for deposit %q: %w", externalRef, err)
	}
	return &receipt, nil
}

// InsertDeposit appends the deposit receipt. The partial unique index on
// external_ref rejects duplicate references at commit time, closing the race
// between two concurrent submissions of the same reference.
func (t *sqliteTx) InsertDeposit(ctx context.Context, receipt *models.DepositReceipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CreatedAt == 0 {
		receipt.CreatedAt = time.Now().Unix()
	}

	reportJSON, err := json.Marshal(receipt.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	ref := sql.NullString{String: receipt.ExternalRef, Valid: receipt.ExternalRef != ""}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO deposits (id, account_id, amount, external_ref, report, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		receipt.ID, receipt.AccountID, receipt.Amount.String(), ref, string(reportJSON), receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deposit: %w", err)
	}
	return nil
}

// AppendTransfer writes one append-only balance-credit record.
func (t *sqliteTx) AppendTransfer(ctx context.Context, transfer *models.Transfer) error {
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	if transfer.CreatedAt == 0 {
		transfer.CreatedAt = time.Now().Unix()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO transfers (id, account_id, amount, currency, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		transfer.ID, transfer.AccountID, transfer.Amount.String(), transfer.Currency, transfer.Type, transfer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

// TransfersForAccount returns the account's transfer rows in insertion order.
func (t *sqliteTx) TransfersForAccount(ctx context.Context, accountID int64) ([]*models.Transfer, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, account_id, amount, currency, type, created_at FROM transfers WHERE account_id = ? ORDER BY rowid`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		var (
			transfer models.Transfer
			amount   string
		)
		if err := rows.Scan(&transfer.ID, &transfer.AccountID, &amount,
			&transfer.Currency, &transfer.Type, &transfer.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		if transfer.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount for transfer %s: %w", transfer.ID, err)
		}
		transfers = append(transfers, &transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}

// ReferralEventsFrom returns the distribution lines recorded for the
// account's deposits, in insertion order.
func (t *sqliteTx) ReferralEventsFrom(ctx context.Context, accountID int64) ([]*models.ReferralEvent, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, from_account, to_account, amount, note, created_at FROM referral_events WHERE from_account = ? ORDER BY rowid`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query referral events: %w", err)
	}
	defer rows.Close()

	var events []*models.ReferralEvent
	for rows.Next() {
		var (
			event  models.ReferralEvent
			amount string
		)
		if err := rows.Scan(&event.ID, &event.FromAccount, &event.ToAccount,
			&amount, &event.Note, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral event: %w", err)
		}
		if event.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount for referral event %s: %w", event.ID, err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referral events: %w", err)
	}
	return events, nil
}

// AppendReferralEvent writes one append-only distribution-line record.
func (t *sqliteTx) AppendReferralEvent(ctx context.Context, event *models.ReferralEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt == 0 {
		event.CreatedAt = time.Now().Unix()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO referral_events (id, from_account, to_account, amount, note, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.FromAccount, event.ToAccount, event.Amount.String(), event.Note, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert referral event: %w", err)
	}
	return nil
}
