// README: Booking service implements the lifecycle state machine on top of
// the store's conditional updates. It never mutates a booking any other way.
package booking

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/logger"

	"raahi/internal/modules/fare"
	"raahi/internal/notify"
	"raahi/internal/types"
)

var (
	ErrNotFound             = errors.New("booking not found")
	ErrConflict             = errors.New("booking state conflict")
	ErrInvalidState         = errors.New("invalid state transition")
	ErrValidation           = errors.New("invalid booking request")
	ErrUnauthorized         = errors.New("actor not allowed")
	ErrWalletBlocked        = errors.New("driver wallet blocked")
	ErrPrepaymentRequired   = errors.New("driver prepayment not confirmed")
	ErrInvalidCode          = errors.New("pickup code mismatch")
	ErrCodeAttemptsExceeded = errors.New("pickup code attempts exceeded")
)

// DriverInfo is what the arbiter needs to know about a driver.
type DriverInfo struct {
	VehicleClass        fare.VehicleClass
	RegistrationFeePaid bool
}

type DriverDirectory interface {
	Info(ctx context.Context, id types.ID) (DriverInfo, error)
}

// WalletGate gates claiming on the driver's balance threshold.
type WalletGate interface {
	Blocked(ctx context.Context, owner types.ID) (bool, error)
}

// CommissionCheck reports whether a driver's upfront per-booking commission
// has a completed ledger entry. Vendor-brokered bookings require it.
type CommissionCheck interface {
	CommissionPaid(ctx context.Context, bookingID, driverID types.ID) (bool, error)
}

type Estimator interface {
	Estimate(ctx context.Context, origin, dest types.Point) (distanceKm float64, durationMin float64, err error)
}

type Service struct {
	store       *Store
	drivers     DriverDirectory
	wallets     WalletGate
	commissions CommissionCheck
	estimator   Estimator
	notifier    *notify.Publisher
	log         logger.Logger
}

func NewService(store *Store, drivers DriverDirectory, wallets WalletGate, commissions CommissionCheck, estimator Estimator, notifier *notify.Publisher, log logger.Logger) *Service {
	return &Service{
		store:       store,
		drivers:     drivers,
		wallets:     wallets,
		commissions: commissions,
		estimator:   estimator,
		notifier:    notifier,
		log:         log,
	}
}

type CreateCommand struct {
	OwnerID      types.ID
	OwnerRole    string
	Product      fare.ProductType
	Trip         fare.TripType
	VehicleClass fare.VehicleClass
	Pickup       types.Point
	Drop         types.Point
	PickupAt     time.Time
	DropAt       time.Time
	VendorPrice  *types.Money
	PaymentMode  string
}

type ClaimCommand struct {
	BookingID types.ID
	DriverID  types.ID
}

type StartPickupCommand struct {
	BookingID types.ID
	DriverID  types.ID
}

type ArriveCommand struct {
	BookingID types.ID
	DriverID  types.ID
}

type StartRideCommand struct {
	BookingID types.ID
	DriverID  types.ID
	Code      string
}

type SettlementRequestCommand struct {
	BookingID types.ID
	DriverID  types.ID
	// ActualKm is the odometer-confirmed total distance. Zero means the
	// estimate stands.
	ActualKm int64
}

// Create validates the request, prices the trip, and persists a PENDING
// booking. Validation failures leave no row behind.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	if cmd.OwnerID == "" || !cmd.Product.Valid() || !cmd.Trip.Valid() {
		return nil, ErrValidation
	}
	if cmd.Product == fare.ProductVendorBrokered && cmd.OwnerRole != ActorVendor {
		return nil, ErrUnauthorized
	}
	switch cmd.PaymentMode {
	case "":
		cmd.PaymentMode = PaymentModeOnline
	case PaymentModeOnline:
	case PaymentModeCash:
		if cmd.Product == fare.ProductVendorBrokered {
			return nil, ErrValidation
		}
	default:
		return nil, ErrValidation
	}

	distKm, durMin, err := s.estimator.Estimate(ctx, cmd.Pickup, cmd.Drop)
	if err != nil {
		return nil, err
	}
	oneWayKm := int64(distKm + 0.5)

	breakdown, err := fare.Quote(fare.QuoteRequest{
		Product:      cmd.Product,
		Trip:         cmd.Trip,
		VehicleClass: cmd.VehicleClass,
		OneWayKm:     oneWayKm,
		PickupAt:     cmd.PickupAt,
		DropAt:       cmd.DropAt,
		VendorPrice:  cmd.VendorPrice,
	})
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ID:           types.ID(uuid.NewString()),
		Product:      cmd.Product,
		Trip:         cmd.Trip,
		Status:       StatusPending,
		OwnerID:      cmd.OwnerID,
		OwnerRole:    cmd.OwnerRole,
		VehicleClass: cmd.VehicleClass,
		Pickup:       cmd.Pickup,
		Drop:         cmd.Drop,
		DistanceKm:   oneWayKm,
		DurationMin:  int64(durMin + 0.5),
		TotalDays:    breakdown.Days,
		Price:        breakdown,
		VendorPrice:  cmd.VendorPrice,
		PaymentMode:  cmd.PaymentMode,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListClaimable(ctx context.Context, class fare.VehicleClass, limit int) ([]*Booking, error) {
	return s.store.ListClaimable(ctx, string(class), limit)
}

func (s *Service) ListByOwner(ctx context.Context, owner types.ID, limit int) ([]*Booking, error) {
	return s.store.ListByOwner(ctx, owner, limit)
}

// Claim is the assignment arbiter. Eligibility checks run first and mutate
// nothing; the claim itself is a single guarded UPDATE, so under N racing
// drivers exactly one wins and the rest see ErrConflict.
func (s *Service) Claim(ctx context.Context, cmd ClaimCommand) error {
	info, err := s.drivers.Info(ctx, cmd.DriverID)
	if err != nil {
		return err
	}
	blocked, err := s.wallets.Blocked(ctx, cmd.DriverID)
	if err != nil {
		return err
	}
	if blocked {
		return ErrWalletBlocked
	}

	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return err
	}
	if RequiresRegistrationFee(b.Product) && !info.RegistrationFeePaid {
		return ErrPrepaymentRequired
	}
	if b.Product == fare.ProductVendorBrokered {
		paid, err := s.commissions.CommissionPaid(ctx, b.ID, cmd.DriverID)
		if err != nil {
			return err
		}
		if !paid {
			return ErrPrepaymentRequired
		}
	}

	from := ClaimFrom(b.Product)
	if !CanTransition(b.Product, from, StatusAssigned) {
		return ErrInvalidState
	}
	ok, err := s.store.Claim(ctx, b.ID, cmd.DriverID, from, string(info.VehicleClass))
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.publish(ctx, notify.KindDriverAssigned, b.OwnerID, b.ID)
	return nil
}

// MarkAdvancePaid is invoked by payment verification after the signature
// check. It arms the per-product claim window.
func (s *Service) MarkAdvancePaid(ctx context.Context, id types.ID) (*Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Product, StatusPending, StatusAdvancePaid) || b.Status != StatusPending {
		return nil, ErrConflict
	}
	expiresAt := time.Now().UTC().Add(ClaimWindow(b.Product))
	ok, err := s.store.MarkAdvancePaid(ctx, id, expiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	return s.store.Get(ctx, id)
}

func (s *Service) StartPickup(ctx context.Context, cmd StartPickupCommand) error {
	b, err := s.authorizedDriverBooking(ctx, cmd.BookingID, cmd.DriverID)
	if err != nil {
		return err
	}
	if !CanTransition(b.Product, StatusAssigned, StatusPickupStarted) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, b.ID, StatusAssigned, StatusPickupStarted)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// Arrive generates the one-time pickup code. Generation happens exactly once
// because the conditional update only matches the pickup_started status.
func (s *Service) Arrive(ctx context.Context, cmd ArriveCommand) error {
	b, err := s.authorizedDriverBooking(ctx, cmd.BookingID, cmd.DriverID)
	if err != nil {
		return err
	}
	if !CanTransition(b.Product, StatusPickupStarted, StatusArrived) {
		return ErrInvalidState
	}
	code, err := newPickupCode()
	if err != nil {
		return err
	}
	ok, err := s.store.Arrive(ctx, b.ID, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.publish(ctx, notify.KindDriverArrived, b.OwnerID, b.ID)
	return nil
}

// StartRide consumes the pickup code. A mismatch fails without a state change
// and may be retried up to MaxCodeAttempts; a second correct attempt after
// success conflicts because the booking left ARRIVED.
func (s *Service) StartRide(ctx context.Context, cmd StartRideCommand) error {
	b, err := s.authorizedDriverBooking(ctx, cmd.BookingID, cmd.DriverID)
	if err != nil {
		return err
	}
	if b.Status != StatusArrived {
		return ErrConflict
	}
	if b.CodeAttempts >= MaxCodeAttempts {
		return ErrCodeAttemptsExceeded
	}
	if b.PickupCode == nil || cmd.Code != *b.PickupCode {
		counted, err := s.store.BumpCodeAttempts(ctx, b.ID, MaxCodeAttempts)
		if err != nil {
			return err
		}
		if !counted {
			return ErrCodeAttemptsExceeded
		}
		return ErrInvalidCode
	}
	ok, err := s.store.UpdateStatus(ctx, b.ID, StatusArrived, StatusStarted)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// RequestSettlement moves the ride into SETTLEMENT_PENDING. For multi-day
// products an odometer-confirmed distance recomputes the final amounts; the
// already-paid advance never changes.
func (s *Service) RequestSettlement(ctx context.Context, cmd SettlementRequestCommand) error {
	b, err := s.authorizedDriverBooking(ctx, cmd.BookingID, cmd.DriverID)
	if err != nil {
		return err
	}
	if !CanTransition(b.Product, StatusStarted, StatusSettlementPending) {
		return ErrInvalidState
	}

	total := b.Price.TotalAmount.Amount
	commission := b.Price.Commission.Amount
	driverPayout := b.Price.DriverPayout.Amount
	var actualKm *int64

	if cmd.ActualKm > 0 && b.Product.MultiDay() {
		rq := fare.QuoteRequest{
			Product:      b.Product,
			Trip:         fare.TripOneWay, // ActualKm is the full driven distance
			VehicleClass: b.VehicleClass,
			OneWayKm:     cmd.ActualKm,
		}
		if b.StartedAt != nil {
			rq.PickupAt = *b.StartedAt
			rq.DropAt = time.Now().UTC()
		}
		recomputed, err := fare.Quote(rq)
		if err != nil {
			return err
		}
		total = recomputed.TotalAmount.Amount
		commission = recomputed.Commission.Amount
		driverPayout = recomputed.DriverPayout.Amount
		actualKm = &cmd.ActualKm
	}
	// The advance is non-refundable: a confirmed distance that prices below
	// the already-paid advance floors the total at the advance and leaves
	// nothing to collect. remaining_amount never goes negative.
	advance := b.Price.AdvanceAmount.Amount
	if total < advance {
		total = advance
	}
	remaining := total - advance

	ok, err := s.store.RequestSettlement(ctx, b.ID, actualKm, total, remaining, commission, driverPayout)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// RunExpirySweeper cancels unclaimed advance-paid bookings whose window has
// lapsed. The due time lives in the bookings row, so a restart loses nothing
// and a late tick re-validates through the UPDATE guard.
func (s *Service) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.store.ExpireUnclaimed(ctx, time.Now().UTC())
			if err != nil {
				s.log.Error("expiry sweep failed", logger.String("error", err.Error()))
				continue
			}
			for _, b := range expired {
				s.log.Info("booking expired unclaimed",
					logger.String("booking_id", string(b.ID)),
					logger.String("product", string(b.Product)),
				)
				s.publish(ctx, notify.KindBookingExpired, b.OwnerID, b.ID)
			}
		}
	}
}

func (s *Service) authorizedDriverBooking(ctx context.Context, bookingID, driverID types.ID) (*Booking, error) {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.DriverID == nil || *b.DriverID != driverID {
		return nil, ErrUnauthorized
	}
	return b, nil
}

func (s *Service) publish(ctx context.Context, kind string, identity, bookingID types.ID) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, notify.Event{Kind: kind, IdentityID: identity, BookingID: bookingID})
}

// newPickupCode returns a four-digit numeric code from crypto/rand.
func newPickupCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	code := n.Int64()
	return string([]byte{
		byte('0' + code/1000%10),
		byte('0' + code/100%10),
		byte('0' + code/10%10),
		byte('0' + code%10),
	}), nil
}
