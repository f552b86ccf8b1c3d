// README: Booking aggregate, status graph, and per-product lifecycle policy.
package booking

import (
	"time"

	"raahi/internal/modules/fare"
	"raahi/internal/types"
)

type Status string

const (
	StatusNone              Status = "none"
	StatusPending           Status = "pending"
	StatusAdvancePaid       Status = "advance_paid"
	StatusAssigned          Status = "assigned"
	StatusPickupStarted     Status = "pickup_started"
	StatusArrived           Status = "arrived"
	StatusStarted           Status = "started"
	StatusSettlementPending Status = "settlement_pending"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Actor attribution for cancellations.
const (
	ActorRider  = "rider"
	ActorDriver = "driver"
	ActorVendor = "vendor"
	ActorSystem = "system"
)

const ReasonUnclaimedExpired = "unclaimed_expired"

// Payment mode chosen by the rider at booking time.
const (
	PaymentModeOnline = "online"
	PaymentModeCash   = "cash"
)

// MaxCodeAttempts bounds pickup-code retries. The source behavior left this
// unbounded; five attempts is generous for a mistyped four-digit code.
const MaxCodeAttempts = 5

type Booking struct {
	ID           types.ID
	Product      fare.ProductType
	Trip         fare.TripType
	Status       Status
	OwnerID      types.ID
	OwnerRole    string // rider or vendor
	DriverID     *types.ID
	VehicleClass fare.VehicleClass
	Pickup       types.Point
	Drop         types.Point
	DistanceKm   int64 // one-way
	DurationMin  int64
	TotalDays    int64
	ActualKm     *int64 // odometer-confirmed total, set at settlement request

	Price       fare.Breakdown
	VendorPrice *types.Money
	PaymentMode string

	PickupCode   *string
	CodeAttempts int
	ExpiresAt    *time.Time

	CancelReason    *string
	CancelledBy     *string
	CancellationFee types.Money

	CreatedAt           time.Time
	AdvancePaidAt       *time.Time
	AssignedAt          *time.Time
	PickupStartedAt     *time.Time
	ArrivedAt           *time.Time
	StartedAt           *time.Time
	SettlementPendingAt *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
}

// directTransitions is the canonical graph for rider-owned products.
// CANCELLED is reachable from every non-terminal state.
var directTransitions = map[Status][]Status{
	StatusPending:           {StatusAdvancePaid, StatusCancelled},
	StatusAdvancePaid:       {StatusAssigned, StatusCancelled},
	StatusAssigned:          {StatusPickupStarted, StatusCancelled},
	StatusPickupStarted:     {StatusArrived, StatusCancelled},
	StatusArrived:           {StatusStarted, StatusCancelled},
	StatusStarted:           {StatusSettlementPending, StatusCancelled},
	StatusSettlementPending: {StatusCompleted, StatusCancelled},
}

// vendorTransitions omits the advance step: a vendor booking is claimed
// straight from PENDING once the driver's upfront commission is confirmed.
var vendorTransitions = map[Status][]Status{
	StatusPending:           {StatusAssigned, StatusCancelled},
	StatusAssigned:          {StatusPickupStarted, StatusCancelled},
	StatusPickupStarted:     {StatusArrived, StatusCancelled},
	StatusArrived:           {StatusStarted, StatusCancelled},
	StatusStarted:           {StatusSettlementPending, StatusCancelled},
	StatusSettlementPending: {StatusCompleted, StatusCancelled},
}

func transitions(p fare.ProductType) map[Status][]Status {
	if p == fare.ProductVendorBrokered {
		return vendorTransitions
	}
	return directTransitions
}

// CanTransition checks the product's transition table. The table is advisory;
// the store's conditional update is the authoritative guard.
func CanTransition(p fare.ProductType, from, to Status) bool {
	for _, s := range transitions(p)[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ClaimFrom is the status a driver claims a booking out of.
func ClaimFrom(p fare.ProductType) Status {
	if p == fare.ProductVendorBrokered {
		return StatusPending
	}
	return StatusAdvancePaid
}

// ClaimWindow is how long an advance-paid booking stays claimable before the
// sweeper cancels it. Per-product policy, not a global constant.
func ClaimWindow(p fare.ProductType) time.Duration {
	switch p {
	case fare.ProductMultiDayTour, fare.ProductPilgrimageCircuit:
		return 4 * time.Hour
	default:
		return 60 * time.Minute
	}
}

// RequiresRegistrationFee reports whether a driver must have the one-time
// registration fee confirmed before claiming this product.
func RequiresRegistrationFee(p fare.ProductType) bool {
	switch p {
	case fare.ProductHillRoute, fare.ProductMultiDayTour, fare.ProductPilgrimageCircuit:
		return true
	}
	return false
}
