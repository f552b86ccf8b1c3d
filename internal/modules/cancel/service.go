// README: Cancellation service. The status change and the fee legs share one
// transaction; an uncollectable fee downgrades to a fee-less cancellation
// instead of blocking it.
package cancel

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wb-go/wbf/logger"

	"raahi/internal/modules/booking"
	"raahi/internal/modules/wallet"
	"raahi/internal/notify"
	"raahi/internal/types"
)

type Service struct {
	pool     *pgxpool.Pool
	store    *booking.Store
	wallets  *wallet.Service
	notifier *notify.Publisher
	log      logger.Logger
}

func NewService(pool *pgxpool.Pool, store *booking.Store, wallets *wallet.Service, notifier *notify.Publisher, log logger.Logger) *Service {
	return &Service{pool: pool, store: store, wallets: wallets, notifier: notifier, log: log}
}

type Command struct {
	BookingID types.ID
	Actor     types.ID
	// Admin marks an operator-initiated cancellation; it bypasses ownership
	// checks and never charges a fee.
	Admin  bool
	Reason string
}

// Result reports the fee outcome separately from the cancellation itself:
// the booking can be cancelled even when the fee could not be collected.
type Result struct {
	Booking      *booking.Booking
	FeeAssessed  types.Money
	FeeCollected bool
}

// Cancel moves any non-terminal booking to CANCELLED with attribution.
func (s *Service) Cancel(ctx context.Context, cmd Command) (*Result, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, booking.ErrInvalidState
	}

	actor, counterparty, err := s.attribution(b, cmd)
	if err != nil {
		return nil, err
	}

	verdict := Assess(b, actor, time.Now().UTC())
	collected := false
	if verdict.FeeDue {
		err = s.cancelTx(ctx, b, actor, cmd.Reason, verdict.Fee, cmd.Actor, counterparty)
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			// The fee is uncollectable; the cancellation still goes through.
			s.log.Warn("cancellation fee not collected",
				logger.String("booking_id", string(b.ID)),
				logger.String("payer", string(cmd.Actor)),
			)
			err = s.cancelTx(ctx, b, actor, cmd.Reason, types.Paise(0), "", "")
		} else if err == nil {
			collected = true
		}
	} else {
		err = s.cancelTx(ctx, b, actor, cmd.Reason, types.Paise(0), "", "")
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Get(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated)
	return &Result{Booking: updated, FeeAssessed: verdict.Fee, FeeCollected: collected}, nil
}

// attribution resolves who is cancelling and who receives any fee.
func (s *Service) attribution(b *booking.Booking, cmd Command) (actor string, counterparty types.ID, err error) {
	switch {
	case cmd.Admin:
		return booking.ActorSystem, "", nil
	case cmd.Actor == b.OwnerID:
		if b.DriverID != nil {
			counterparty = *b.DriverID
		}
		return b.OwnerRole, counterparty, nil
	case b.DriverID != nil && cmd.Actor == *b.DriverID:
		return booking.ActorDriver, b.OwnerID, nil
	default:
		return "", "", booking.ErrUnauthorized
	}
}

// cancelTx runs the guarded status update and, when a fee applies, both fee
// legs in one transaction. Payer and payee are empty for fee-less cancels.
func (s *Service) cancelTx(ctx context.Context, b *booking.Booking, actor, reason string, fee types.Money, payer, payee types.ID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ok, err := s.store.CancelTx(ctx, tx, b.ID, b.Status, actor, reason, fee.Amount)
	if err != nil {
		return err
	}
	if !ok {
		return booking.ErrConflict
	}

	if fee.Amount > 0 && payer != "" && payee != "" {
		if err := s.feeLegsTx(ctx, tx, b.ID, payer, payee, fee); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Service) feeLegsTx(ctx context.Context, tx pgx.Tx, bookingID types.ID, payer, payee types.ID, fee types.Money) error {
	if err := s.wallets.DebitTx(ctx, tx, wallet.Mutation{
		Owner: payer, Amount: fee,
		Kind: wallet.KindCancellationFee, Sender: payer, Receiver: payee,
		BookingID: &bookingID,
	}); err != nil {
		return err
	}
	return s.wallets.CreditTx(ctx, tx, wallet.Mutation{
		Owner: payee, Amount: fee,
		Kind: wallet.KindCancellationFee, Sender: payer, Receiver: payee,
		BookingID: &bookingID,
	})
}

func (s *Service) publish(ctx context.Context, b *booking.Booking) {
	if s.notifier == nil {
		return
	}
	ev := notify.Event{
		Kind:       notify.KindBookingCancelled,
		IdentityID: b.OwnerID,
		BookingID:  b.ID,
		At:         time.Now().UTC(),
	}
	s.notifier.Publish(ctx, ev)
	if b.DriverID != nil {
		ev.IdentityID = *b.DriverID
		s.notifier.Publish(ctx, ev)
	}
}
