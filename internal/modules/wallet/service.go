// README: Wallet service. Public mutations open their own transaction; the
// Tx variants let settlement and cancellation join a wider atomic unit.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"raahi/internal/types"
)

var ErrInsufficientFunds = errors.New("insufficient wallet balance")

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Store() *Store { return s.store }

// Mutation describes one wallet movement plus its mandatory audit entry.
type Mutation struct {
	Owner       types.ID
	Amount      types.Money
	Kind        EntryKind
	Sender      types.ID
	Receiver    types.ID
	BookingID   *types.ID
	ExternalRef *string
	Note        string
	// AllowDebt permits the balance to go negative (driver commission debt).
	AllowDebt bool
}

// CreditTx applies a credit inside the caller's transaction.
func (s *Service) CreditTx(ctx context.Context, tx pgx.Tx, m Mutation) error {
	if err := s.store.CreditTx(ctx, tx, m.Owner, m.Amount.Amount, m.Amount.Currency); err != nil {
		return fmt.Errorf("credit %s: %w", m.Owner, err)
	}
	return s.store.InsertEntryTx(ctx, tx, s.entry(m, m.Amount.Amount))
}

// DebitTx applies a debit inside the caller's transaction. Without AllowDebt
// a short balance returns ErrInsufficientFunds and nothing is written.
func (s *Service) DebitTx(ctx context.Context, tx pgx.Tx, m Mutation) error {
	ok, err := s.store.DebitTx(ctx, tx, m.Owner, m.Amount.Amount, m.Amount.Currency, m.AllowDebt)
	if err != nil {
		return fmt.Errorf("debit %s: %w", m.Owner, err)
	}
	if !ok {
		return ErrInsufficientFunds
	}
	return s.store.InsertEntryTx(ctx, tx, s.entry(m, -m.Amount.Amount))
}

// Credit runs a single credit as its own atomic unit.
func (s *Service) Credit(ctx context.Context, m Mutation) error {
	return s.inTx(ctx, func(tx pgx.Tx) error { return s.CreditTx(ctx, tx, m) })
}

// Debit runs a single debit as its own atomic unit.
func (s *Service) Debit(ctx context.Context, m Mutation) error {
	return s.inTx(ctx, func(tx pgx.Tx) error { return s.DebitTx(ctx, tx, m) })
}

// ManualAdjust moves the balance by a signed delta with a manual-adjustment
// audit entry. Admin surface only.
func (s *Service) ManualAdjust(ctx context.Context, owner types.ID, delta types.Money, note string) error {
	m := Mutation{
		Owner:     owner,
		Kind:      KindManualAdjustment,
		Note:      note,
		AllowDebt: true,
	}
	if delta.Amount >= 0 {
		m.Amount = delta
		m.Sender = PlatformAccount
		m.Receiver = owner
		return s.Credit(ctx, m)
	}
	m.Amount = types.Money{Amount: -delta.Amount, Currency: delta.Currency}
	m.Sender = owner
	m.Receiver = PlatformAccount
	return s.Debit(ctx, m)
}

func (s *Service) Balance(ctx context.Context, owner types.ID) (*Wallet, error) {
	return s.store.Get(ctx, owner)
}

func (s *Service) Entries(ctx context.Context, owner types.ID, limit int) ([]*LedgerEntry, error) {
	return s.store.ListEntries(ctx, owner, limit)
}

// ThresholdOf evaluates the live balance against the policy floors.
func (s *Service) ThresholdOf(ctx context.Context, owner types.ID) (Threshold, error) {
	w, err := s.store.Get(ctx, owner)
	if err != nil {
		return ThresholdOK, err
	}
	return ThresholdFor(w.Balance.Amount), nil
}

// Blocked implements the claim gate: a driver past the blocked floor may not
// accept further bookings.
func (s *Service) Blocked(ctx context.Context, owner types.ID) (bool, error) {
	th, err := s.ThresholdOf(ctx, owner)
	if err != nil {
		return false, err
	}
	return th == ThresholdBlocked, nil
}

// CommissionPaid satisfies the booking arbiter's prepayment check.
func (s *Service) CommissionPaid(ctx context.Context, bookingID, driverID types.ID) (bool, error) {
	return s.store.CommissionPaid(ctx, bookingID, driverID)
}

func (s *Service) entry(m Mutation, signedAmount int64) *LedgerEntry {
	return &LedgerEntry{
		ID:          types.ID(uuid.NewString()),
		OwnerID:     m.Owner,
		Amount:      types.Money{Amount: signedAmount, Currency: m.Amount.Currency},
		Kind:        m.Kind,
		Status:      StatusCompleted,
		SenderID:    m.Sender,
		ReceiverID:  m.Receiver,
		BookingID:   m.BookingID,
		ExternalRef: m.ExternalRef,
		Note:        m.Note,
		CreatedAt:   time.Now().UTC(),
	}
}

func (s *Service) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.store.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
