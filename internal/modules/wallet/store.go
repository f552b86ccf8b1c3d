// README: Wallet store. Balance mutation and its ledger entry always travel
// in the same transaction; callers hand in the pgx.Tx they opened.
package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"raahi/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Pool() *pgxpool.Pool { return s.db }

// CreditTx adds amount to the owner's balance, lazily creating the wallet row.
func (s *Store) CreditTx(ctx context.Context, tx pgx.Tx, owner types.ID, amount int64, currency string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (owner_id, balance, currency, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner_id)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()`,
		string(owner), amount, currency,
	)
	return err
}

// DebitTx subtracts amount. With allowDebt the balance may go negative
// (drivers carrying unpaid commission); without it the conditional update
// fails when funds are short and the caller sees zero rows.
func (s *Store) DebitTx(ctx context.Context, tx pgx.Tx, owner types.ID, amount int64, currency string, allowDebt bool) (bool, error) {
	if allowDebt {
		_, err := tx.Exec(ctx, `
			INSERT INTO wallets (owner_id, balance, currency, updated_at)
			VALUES ($1, -$2::bigint, $3, NOW())
			ON CONFLICT (owner_id)
			DO UPDATE SET balance = wallets.balance - $2, updated_at = NOW()`,
			string(owner), amount, currency,
		)
		return err == nil, err
	}
	// Lazy-create so a never-used wallet fails on funds, not on a missing row.
	if _, err := tx.Exec(ctx, `
		INSERT INTO wallets (owner_id, balance, currency, updated_at)
		VALUES ($1, 0, $2, NOW())
		ON CONFLICT (owner_id) DO NOTHING`,
		string(owner), currency,
	); err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance = balance - $2, updated_at = NOW()
		WHERE owner_id = $1 AND balance >= $2`,
		string(owner), amount,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// InsertEntryTx records the audit entry paired with a balance delta.
func (s *Store) InsertEntryTx(ctx context.Context, tx pgx.Tx, e *LedgerEntry) error {
	var bookingID *string
	if e.BookingID != nil {
		v := string(*e.BookingID)
		bookingID = &v
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (
			id, owner_id, amount, currency, kind, status, sender_id, receiver_id,
			booking_id, external_ref, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(e.ID), string(e.OwnerID), e.Amount.Amount, e.Amount.Currency,
		string(e.Kind), string(e.Status),
		string(e.SenderID), string(e.ReceiverID), bookingID, e.ExternalRef, e.Note, e.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, owner types.ID) (*Wallet, error) {
	row := s.db.QueryRow(ctx, `
		SELECT owner_id, balance, currency, updated_at
		FROM wallets WHERE owner_id = $1`,
		string(owner),
	)
	var w Wallet
	var currency string
	err := row.Scan(&w.OwnerID, &w.Balance.Amount, &currency, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// A wallet that was never mutated reads as zero.
		return &Wallet{OwnerID: owner, Balance: types.Paise(0), UpdatedAt: time.Time{}}, nil
	}
	if err != nil {
		return nil, err
	}
	w.Balance.Currency = currency
	return &w, nil
}

// SignedSum is the owner's ledger total over completed entries. It must
// always equal the wallet balance.
func (s *Store) SignedSum(ctx context.Context, owner types.ID) (int64, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE owner_id = $1 AND status = 'completed'`,
		string(owner),
	)
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (s *Store) ListEntries(ctx context.Context, owner types.ID, limit int) ([]*LedgerEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, amount, currency, kind, status, sender_id, receiver_id,
		       booking_id, external_ref, note, created_at
		FROM ledger_entries
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		string(owner), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var currency string
		var bookingID *string
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.Amount.Amount, &currency, &e.Kind, &e.Status,
			&e.SenderID, &e.ReceiverID, &bookingID, &e.ExternalRef, &e.Note, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Amount.Currency = currency
		if bookingID != nil {
			id := types.ID(*bookingID)
			e.BookingID = &id
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CommissionPaid reports a completed upfront commission entry from the driver
// for this booking. The claim arbiter checks it for vendor-brokered products.
func (s *Store) CommissionPaid(ctx context.Context, bookingID, driverID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ledger_entries
			WHERE booking_id = $1 AND sender_id = $2
			  AND kind = 'commission' AND status = 'completed'
		)`,
		string(bookingID), string(driverID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
