// README: Payment verification and settlement. Signature checks fail closed;
// final settlement is one transaction covering the status change, every
// ledger leg, and the wallet balances it touches.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wb-go/wbf/logger"

	"raahi/internal/modules/booking"
	"raahi/internal/modules/driver"
	"raahi/internal/modules/fare"
	"raahi/internal/modules/wallet"
	"raahi/internal/notify"
	"raahi/internal/types"
)

var (
	ErrPaymentIntegrity = errors.New("payment signature or amount mismatch")
	ErrWrongPaymentMode = errors.New("operation does not match payment mode")
)

// RegistrationFee is the one-time driver onboarding fee in paise.
const RegistrationFee = 200000

type Service struct {
	gateway  Gateway
	signer   *Signer
	pool     *pgxpool.Pool
	bookings *booking.Service
	store    *booking.Store
	wallets  *wallet.Service
	drivers  *driver.Service
	notifier *notify.Publisher
	log      logger.Logger
}

func NewService(
	gateway Gateway,
	signer *Signer,
	pool *pgxpool.Pool,
	bookings *booking.Service,
	store *booking.Store,
	wallets *wallet.Service,
	drivers *driver.Service,
	notifier *notify.Publisher,
	log logger.Logger,
) *Service {
	return &Service{
		gateway:  gateway,
		signer:   signer,
		pool:     pool,
		bookings: bookings,
		store:    store,
		wallets:  wallets,
		drivers:  drivers,
		notifier: notifier,
		log:      log,
	}
}

// OrderRef is handed to the client to drive the gateway checkout.
type OrderRef struct {
	OrderID string
	Amount  types.Money
}

// VerifyCommand is the gateway callback payload for any payment kind.
type VerifyCommand struct {
	BookingID types.ID
	Actor     types.ID
	OrderID   string
	PaymentID string
	Signature string
}

// CreateAdvanceOrder opens a gateway order for a direct booking's advance.
func (s *Service) CreateAdvanceOrder(ctx context.Context, bookingID, actor types.ID) (OrderRef, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return OrderRef{}, err
	}
	if b.OwnerID != actor {
		return OrderRef{}, booking.ErrUnauthorized
	}
	if b.Product == fare.ProductVendorBrokered {
		return OrderRef{}, booking.ErrInvalidState
	}
	if b.Status != booking.StatusPending {
		return OrderRef{}, booking.ErrConflict
	}
	orderID, err := s.gateway.CreateOrder(ctx, b.Price.AdvanceAmount, "adv-"+string(b.ID))
	if err != nil {
		return OrderRef{}, err
	}
	return OrderRef{OrderID: orderID, Amount: b.Price.AdvanceAmount}, nil
}

// VerifyAdvance confirms the advance payment. The ADVANCE_PAID transition is
// the idempotency barrier: a duplicate callback conflicts there and never
// writes a second ledger entry. The transition and the advance ledger credit
// run in one transaction so neither ever exists without the other.
func (s *Service) VerifyAdvance(ctx context.Context, cmd VerifyCommand) (*booking.Booking, error) {
	b, err := s.bookings.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != cmd.Actor {
		return nil, booking.ErrUnauthorized
	}
	if b.Product == fare.ProductVendorBrokered {
		return nil, booking.ErrInvalidState
	}
	if !s.signer.Verify(cmd.OrderID, cmd.PaymentID, cmd.Signature) {
		return nil, ErrPaymentIntegrity
	}
	if b.Status != booking.StatusPending {
		return nil, booking.ErrConflict
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	expiresAt := time.Now().UTC().Add(booking.ClaimWindow(b.Product))
	ok, err := s.store.MarkAdvancePaidTx(ctx, tx, b.ID, expiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, booking.ErrConflict
	}

	ref := cmd.PaymentID
	if err := s.wallets.CreditTx(ctx, tx, wallet.Mutation{
		Owner:       wallet.PlatformAccount,
		Amount:      b.Price.AdvanceAmount,
		Kind:        wallet.KindAdvance,
		Sender:      b.OwnerID,
		Receiver:    wallet.PlatformAccount,
		BookingID:   &b.ID,
		ExternalRef: &ref,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	updated, err := s.bookings.Get(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notify.KindPaymentStatus, updated.OwnerID, updated.ID)
	return updated, nil
}

// CreateCommissionOrder opens the upfront commission order a driver must pay
// before claiming a vendor-brokered booking.
func (s *Service) CreateCommissionOrder(ctx context.Context, bookingID, driverID types.ID) (OrderRef, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return OrderRef{}, err
	}
	if b.Product != fare.ProductVendorBrokered {
		return OrderRef{}, booking.ErrInvalidState
	}
	if b.Status != booking.StatusPending {
		return OrderRef{}, booking.ErrConflict
	}
	orderID, err := s.gateway.CreateOrder(ctx, b.Price.Commission, "com-"+string(b.ID)+"-"+string(driverID))
	if err != nil {
		return OrderRef{}, err
	}
	return OrderRef{OrderID: orderID, Amount: b.Price.Commission}, nil
}

// VerifyCommission records the driver's upfront commission; the claim
// arbiter checks for the resulting completed ledger entry.
func (s *Service) VerifyCommission(ctx context.Context, cmd VerifyCommand) error {
	b, err := s.bookings.Get(ctx, cmd.BookingID)
	if err != nil {
		return err
	}
	if b.Product != fare.ProductVendorBrokered {
		return booking.ErrInvalidState
	}
	if !s.signer.Verify(cmd.OrderID, cmd.PaymentID, cmd.Signature) {
		return ErrPaymentIntegrity
	}
	paid, err := s.wallets.CommissionPaid(ctx, b.ID, cmd.Actor)
	if err != nil {
		return err
	}
	if paid {
		return booking.ErrConflict
	}
	ref := cmd.PaymentID
	return s.wallets.Credit(ctx, wallet.Mutation{
		Owner:       wallet.PlatformAccount,
		Amount:      b.Price.Commission,
		Kind:        wallet.KindCommission,
		Sender:      cmd.Actor,
		Receiver:    wallet.PlatformAccount,
		BookingID:   &b.ID,
		ExternalRef: &ref,
		Note:        "upfront vendor-booking commission",
	})
}

// CreateRegistrationOrder opens the one-time driver registration fee order.
func (s *Service) CreateRegistrationOrder(ctx context.Context, driverID types.ID) (OrderRef, error) {
	if _, err := s.drivers.Get(ctx, driverID); err != nil {
		return OrderRef{}, err
	}
	amount := types.Paise(RegistrationFee)
	orderID, err := s.gateway.CreateOrder(ctx, amount, "reg-"+string(driverID))
	if err != nil {
		return OrderRef{}, err
	}
	return OrderRef{OrderID: orderID, Amount: amount}, nil
}

// VerifyRegistration confirms the fee and unlocks fee-gated products.
func (s *Service) VerifyRegistration(ctx context.Context, driverID types.ID, orderID, paymentID, signature string) error {
	if !s.signer.Verify(orderID, paymentID, signature) {
		return ErrPaymentIntegrity
	}
	d, err := s.drivers.Get(ctx, driverID)
	if err != nil {
		return err
	}
	if d.RegistrationFeePaid {
		return booking.ErrConflict
	}
	ref := paymentID
	if err := s.wallets.Credit(ctx, wallet.Mutation{
		Owner:       wallet.PlatformAccount,
		Amount:      types.Paise(RegistrationFee),
		Kind:        wallet.KindCommission,
		Sender:      driverID,
		Receiver:    wallet.PlatformAccount,
		ExternalRef: &ref,
		Note:        "driver registration fee",
	}); err != nil {
		return err
	}
	return s.drivers.ConfirmRegistrationFee(ctx, driverID)
}

// CreateSettlementOrder opens the gateway order for the remaining fare once
// the driver has requested settlement.
func (s *Service) CreateSettlementOrder(ctx context.Context, bookingID, actor types.ID) (OrderRef, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return OrderRef{}, err
	}
	if b.OwnerID != actor {
		return OrderRef{}, booking.ErrUnauthorized
	}
	if b.Status != booking.StatusSettlementPending {
		return OrderRef{}, booking.ErrConflict
	}
	if b.PaymentMode == booking.PaymentModeCash {
		return OrderRef{}, ErrWrongPaymentMode
	}
	orderID, err := s.gateway.CreateOrder(ctx, b.Price.RemainingAmount, "stl-"+string(b.ID))
	if err != nil {
		return OrderRef{}, err
	}
	return OrderRef{OrderID: orderID, Amount: b.Price.RemainingAmount}, nil
}

type SettleCommand struct {
	BookingID types.ID
	Actor     types.ID
	OrderID   string
	PaymentID string
	Signature string
}

// Settle executes final settlement as one atomic unit: the COMPLETED
// transition, a ledger entry per payout leg, and the wallet balances. Any
// failure rolls back every leg; a half-applied settlement never commits.
func (s *Service) Settle(ctx context.Context, cmd SettleCommand) error {
	b, err := s.bookings.Get(ctx, cmd.BookingID)
	if err != nil {
		return err
	}
	if b.Status != booking.StatusSettlementPending {
		return booking.ErrConflict
	}

	cash := b.PaymentMode == booking.PaymentModeCash
	if cash {
		if b.Product == fare.ProductVendorBrokered {
			return ErrWrongPaymentMode
		}
		if b.DriverID == nil || *b.DriverID != cmd.Actor {
			return booking.ErrUnauthorized
		}
	} else {
		if b.OwnerID != cmd.Actor {
			return booking.ErrUnauthorized
		}
		if !s.signer.Verify(cmd.OrderID, cmd.PaymentID, cmd.Signature) {
			return ErrPaymentIntegrity
		}
		// The final payment amount is always cross-checked against the
		// gateway's record, not just the signature.
		info, err := s.gateway.FetchPayment(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		if info.Amount.Amount != b.Price.RemainingAmount.Amount {
			return ErrPaymentIntegrity
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ok, err := s.store.CompleteTx(ctx, tx, b.ID)
	if err != nil {
		return err
	}
	if !ok {
		return booking.ErrConflict
	}

	if cash {
		err = s.settleCashTx(ctx, tx, b)
	} else {
		err = s.settleOnlineTx(ctx, tx, b, cmd.PaymentID)
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.log.Info("booking settled",
		logger.String("booking_id", string(b.ID)),
		logger.String("mode", b.PaymentMode),
	)
	s.publish(ctx, notify.KindRideCompleted, b.OwnerID, b.ID)
	if b.DriverID != nil {
		s.publish(ctx, notify.KindRideCompleted, *b.DriverID, b.ID)
	}
	return nil
}

// settleOnlineTx books the gateway inflow and pays every party out of the
// platform wallet. The inflow is split into its commission and settlement
// portions so the commission leg has its own audit entry.
func (s *Service) settleOnlineTx(ctx context.Context, tx pgx.Tx, b *booking.Booking, paymentID string) error {
	ref := paymentID
	remaining := b.Price.RemainingAmount
	commission := b.Price.Commission
	driverPayout := b.Price.DriverPayout

	// A driver who prepaid the commission at claim time gets it back inside
	// the payout; otherwise the platform would retain it twice.
	if b.DriverID != nil && commission.Amount > 0 {
		prepaid, err := s.wallets.CommissionPaid(ctx, b.ID, *b.DriverID)
		if err != nil {
			return err
		}
		if prepaid {
			driverPayout = driverPayout.Add(commission)
			commission = types.Paise(0)
		}
	}

	// The split entries only ever subdivide the actual inflow; a commission
	// exceeding it (zero-remaining settlement) is retained from the advance.
	commissionPortion := commission
	if commissionPortion.Amount > remaining.Amount {
		commissionPortion = remaining
	}
	settlementPortion := remaining.Sub(commissionPortion)
	if settlementPortion.Amount > 0 {
		if err := s.wallets.CreditTx(ctx, tx, wallet.Mutation{
			Owner: wallet.PlatformAccount, Amount: settlementPortion,
			Kind: wallet.KindFinalSettlement, Sender: b.OwnerID, Receiver: wallet.PlatformAccount,
			BookingID: &b.ID, ExternalRef: &ref,
		}); err != nil {
			return err
		}
	}
	if commissionPortion.Amount > 0 {
		if err := s.wallets.CreditTx(ctx, tx, wallet.Mutation{
			Owner: wallet.PlatformAccount, Amount: commissionPortion,
			Kind: wallet.KindCommission, Sender: b.OwnerID, Receiver: wallet.PlatformAccount,
			BookingID: &b.ID, ExternalRef: &ref,
		}); err != nil {
			return err
		}
	}

	if b.DriverID != nil && driverPayout.Amount > 0 {
		if err := s.transferTx(ctx, tx, b, wallet.PlatformAccount, *b.DriverID, driverPayout); err != nil {
			return err
		}
	}
	if b.Price.VendorPayout.Amount > 0 {
		if err := s.transferTx(ctx, tx, b, wallet.PlatformAccount, b.OwnerID, b.Price.VendorPayout); err != nil {
			return err
		}
	}
	return nil
}

// settleCashTx reconciles a cash-collected ride: the driver holds the
// remaining fare, so only the difference against their payout moves.
func (s *Service) settleCashTx(ctx context.Context, tx pgx.Tx, b *booking.Booking) error {
	driverID := *b.DriverID
	diff := b.Price.DriverPayout.Sub(b.Price.RemainingAmount)
	switch {
	case diff.Amount > 0:
		// platform still owes the driver part of the payout
		return s.transferTx(ctx, tx, b, wallet.PlatformAccount, driverID, diff)
	case diff.Amount < 0:
		// driver collected more than their payout and owes the difference
		owed := types.Money{Amount: -diff.Amount, Currency: diff.Currency}
		if err := s.wallets.DebitTx(ctx, tx, wallet.Mutation{
			Owner: driverID, Amount: owed,
			Kind: wallet.KindCommission, Sender: driverID, Receiver: wallet.PlatformAccount,
			BookingID: &b.ID, AllowDebt: true, Note: "cash settlement commission",
		}); err != nil {
			return err
		}
		return s.wallets.CreditTx(ctx, tx, wallet.Mutation{
			Owner: wallet.PlatformAccount, Amount: owed,
			Kind: wallet.KindCommission, Sender: driverID, Receiver: wallet.PlatformAccount,
			BookingID: &b.ID, Note: "cash settlement commission",
		})
	}
	return nil
}

// transferTx moves money between two wallets, one debit leg and one credit
// leg, each with its own ledger entry.
func (s *Service) transferTx(ctx context.Context, tx pgx.Tx, b *booking.Booking, from, to types.ID, amount types.Money) error {
	if err := s.wallets.DebitTx(ctx, tx, wallet.Mutation{
		Owner: from, Amount: amount,
		Kind: wallet.KindPayout, Sender: from, Receiver: to,
		BookingID: &b.ID, AllowDebt: true,
	}); err != nil {
		return fmt.Errorf("payout debit: %w", err)
	}
	if err := s.wallets.CreditTx(ctx, tx, wallet.Mutation{
		Owner: to, Amount: amount,
		Kind: wallet.KindPayout, Sender: from, Receiver: to,
		BookingID: &b.ID,
	}); err != nil {
		return fmt.Errorf("payout credit: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, kind string, identity, bookingID types.ID) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, notify.Event{
		Kind:       kind,
		IdentityID: identity,
		BookingID:  bookingID,
		At:         time.Now().UTC(),
	})
}
