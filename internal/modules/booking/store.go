// README: Booking store backed by PostgreSQL. Every transition is one
// conditional UPDATE guarded by the expected status; RowsAffected==0 means
// another actor got there first and the caller sees a conflict.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const bookingColumns = `
	id, product, trip_type, status, owner_id, owner_role, driver_id, vehicle_class,
	pickup_lat, pickup_lng, drop_lat, drop_lng,
	distance_km, duration_min, total_days, actual_km,
	base_amount, total_amount, advance_amount, remaining_amount,
	commission, driver_payout, vendor_payout, vendor_price, currency, payment_mode,
	pickup_code, code_attempts, expires_at,
	cancel_reason, cancelled_by, cancellation_fee,
	created_at, advance_paid_at, assigned_at, pickup_started_at, arrived_at,
	started_at, settlement_pending_at, completed_at, cancelled_at`

func (s *Store) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, product, trip_type, status, owner_id, owner_role, vehicle_class,
			pickup_lat, pickup_lng, drop_lat, drop_lng,
			distance_km, duration_min, total_days,
			base_amount, total_amount, advance_amount, remaining_amount,
			commission, driver_payout, vendor_payout, vendor_price, currency,
			payment_mode, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21, $22, $23,
			$24, $25
		)`,
		string(b.ID), string(b.Product), string(b.Trip), string(b.Status),
		string(b.OwnerID), b.OwnerRole, string(b.VehicleClass),
		b.Pickup.Lat, b.Pickup.Lng, b.Drop.Lat, b.Drop.Lng,
		b.DistanceKm, b.DurationMin, b.TotalDays,
		b.Price.BaseAmount.Amount, b.Price.TotalAmount.Amount,
		b.Price.AdvanceAmount.Amount, b.Price.RemainingAmount.Amount,
		b.Price.Commission.Amount, b.Price.DriverPayout.Amount, b.Price.VendorPayout.Amount,
		moneyPtr(b.VendorPrice), b.Price.TotalAmount.Currency,
		b.PaymentMode, b.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	return scanBooking(row)
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b            Booking
		driverID     *string
		vendorPrice  *int64
		actualKm     *int64
		currency     string
		cancelFee    int64
		pickupCode   *string
		cancelReason *string
		cancelledBy  *string
	)
	err := row.Scan(
		&b.ID, &b.Product, &b.Trip, &b.Status, &b.OwnerID, &b.OwnerRole, &driverID, &b.VehicleClass,
		&b.Pickup.Lat, &b.Pickup.Lng, &b.Drop.Lat, &b.Drop.Lng,
		&b.DistanceKm, &b.DurationMin, &b.TotalDays, &actualKm,
		&b.Price.BaseAmount.Amount, &b.Price.TotalAmount.Amount,
		&b.Price.AdvanceAmount.Amount, &b.Price.RemainingAmount.Amount,
		&b.Price.Commission.Amount, &b.Price.DriverPayout.Amount, &b.Price.VendorPayout.Amount,
		&vendorPrice, &currency, &b.PaymentMode,
		&pickupCode, &b.CodeAttempts, &b.ExpiresAt,
		&cancelReason, &cancelledBy, &cancelFee,
		&b.CreatedAt, &b.AdvancePaidAt, &b.AssignedAt, &b.PickupStartedAt, &b.ArrivedAt,
		&b.StartedAt, &b.SettlementPendingAt, &b.CompletedAt, &b.CancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if driverID != nil {
		d := types.ID(*driverID)
		b.DriverID = &d
	}
	if vendorPrice != nil {
		v := types.Money{Amount: *vendorPrice, Currency: currency}
		b.VendorPrice = &v
	}
	b.ActualKm = actualKm
	b.PickupCode = pickupCode
	b.CancelReason = cancelReason
	b.CancelledBy = cancelledBy
	for _, m := range []*types.Money{
		&b.Price.BaseAmount, &b.Price.TotalAmount, &b.Price.AdvanceAmount,
		&b.Price.RemainingAmount, &b.Price.Commission, &b.Price.DriverPayout,
		&b.Price.VendorPayout,
	} {
		m.Currency = currency
	}
	b.CancellationFee = types.Money{Amount: cancelFee, Currency: currency}
	b.Price.Days = b.TotalDays
	return &b, nil
}

// UpdateStatus is the plain expected-status/new-status conditional update for
// transitions that carry no extra columns.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    pickup_started_at = CASE WHEN $1 = 'pickup_started' THEN NOW() ELSE pickup_started_at END,
		    started_at = CASE WHEN $1 = 'started' THEN NOW() ELSE started_at END
		WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkAdvancePaid fires the PENDING -> ADVANCE_PAID transition and arms the
// unclaimed-expiry window in the same statement.
func (s *Store) MarkAdvancePaid(ctx context.Context, id types.ID, expiresAt time.Time) (bool, error) {
	return s.markAdvancePaid(ctx, s.db, id, expiresAt)
}

// MarkAdvancePaidTx is MarkAdvancePaid inside the caller's transaction, so
// the status change commits or rolls back with the advance ledger entry.
func (s *Store) MarkAdvancePaidTx(ctx context.Context, tx pgx.Tx, id types.ID, expiresAt time.Time) (bool, error) {
	return s.markAdvancePaid(ctx, tx, id, expiresAt)
}

func (s *Store) markAdvancePaid(ctx context.Context, db execer, id types.ID, expiresAt time.Time) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE bookings
		SET status = 'advance_paid', advance_paid_at = NOW(), expires_at = $2
		WHERE id = $1 AND status = 'pending'`,
		string(id), expiresAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Claim atomically assigns a driver. The guard checks expected status,
// driver-is-none, and vehicle-class compatibility in one statement so no
// interleaving can hand the booking to a second or incompatible driver.
func (s *Store) Claim(ctx context.Context, id, driverID types.ID, from Status, class string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'assigned', driver_id = $2, assigned_at = NOW()
		WHERE id = $1 AND status = $3 AND driver_id IS NULL AND vehicle_class = $4`,
		string(id), string(driverID), string(from), class,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Arrive transitions PICKUP_STARTED -> ARRIVED and stores the freshly
// generated pickup code. The code is written exactly once because the guard
// only matches the pickup_started status.
func (s *Store) Arrive(ctx context.Context, id types.ID, code string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'arrived', pickup_code = $2, arrived_at = NOW()
		WHERE id = $1 AND status = 'pickup_started'`,
		string(id), code,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// BumpCodeAttempts counts a failed pickup-code try. The guard checks the
// arrived status and the attempt bound in the same statement, so concurrent
// wrong submissions can never push the counter past max.
func (s *Store) BumpCodeAttempts(ctx context.Context, id types.ID, max int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET code_attempts = code_attempts + 1
		WHERE id = $1 AND status = 'arrived' AND code_attempts < $2`,
		string(id), max,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RequestSettlement moves STARTED -> SETTLEMENT_PENDING, recording the
// odometer-confirmed distance and any recomputed money fields.
func (s *Store) RequestSettlement(ctx context.Context, id types.ID, actualKm *int64, total, remaining, commission, driverPayout int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'settlement_pending', settlement_pending_at = NOW(),
		    actual_km = COALESCE($2, actual_km),
		    total_amount = $3, remaining_amount = $4,
		    commission = $5, driver_payout = $6
		WHERE id = $1 AND status = 'started'`,
		string(id), actualKm, total, remaining, commission, driverPayout,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteTx fires SETTLEMENT_PENDING -> COMPLETED inside the settlement
// transaction so the status change commits or rolls back with its ledger legs.
func (s *Store) CompleteTx(ctx context.Context, tx pgx.Tx, id types.ID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = 'completed', completed_at = NOW()
		WHERE id = $1 AND status = 'settlement_pending'`,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel transitions any expected non-terminal status to CANCELLED with
// attribution. The expected status keeps it a compare-and-set like every
// other transition.
func (s *Store) Cancel(ctx context.Context, id types.ID, from Status, actor, reason string, fee int64) (bool, error) {
	return s.cancel(ctx, s.db, id, from, actor, reason, fee)
}

// CancelTx is Cancel inside the caller's transaction, so the fee ledger legs
// commit or roll back with the status change.
func (s *Store) CancelTx(ctx context.Context, tx pgx.Tx, id types.ID, from Status, actor, reason string, fee int64) (bool, error) {
	return s.cancel(ctx, tx, id, from, actor, reason, fee)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) cancel(ctx context.Context, db execer, id types.ID, from Status, actor, reason string, fee int64) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = NOW(),
		    cancelled_by = $3, cancel_reason = $4, cancellation_fee = $5
		WHERE id = $1 AND status = $2 AND status NOT IN ('completed', 'cancelled')`,
		string(id), string(from), actor, reason, fee,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireUnclaimed cancels every advance-paid booking whose claim window has
// lapsed with no driver. The WHERE clause is the revalidation: a booking
// claimed between scheduling and firing no longer matches.
func (s *Store) ExpireUnclaimed(ctx context.Context, now time.Time) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = NOW(),
		    cancelled_by = 'system', cancel_reason = $2
		WHERE status = 'advance_paid' AND driver_id IS NULL AND expires_at <= $1
		RETURNING `+bookingColumns,
		now, ReasonUnclaimedExpired,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, b)
	}
	return expired, rows.Err()
}

// ListClaimable returns open bookings a driver of the given class may claim.
// Listing is a convenience filter only; the claim guard re-checks the class.
func (s *Store) ListClaimable(ctx context.Context, class string, limit int) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE driver_id IS NULL
		  AND vehicle_class = $1
		  AND ((product = 'vendor_brokered' AND status = 'pending')
		       OR (product <> 'vendor_brokered' AND status = 'advance_paid'))
		ORDER BY created_at
		LIMIT $2`,
		class, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListByOwner returns an owner's bookings, newest first.
func (s *Store) ListByOwner(ctx context.Context, owner types.ID, limit int) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		string(owner), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func moneyPtr(m *types.Money) *int64 {
	if m == nil {
		return nil
	}
	v := m.Amount
	return &v
}
