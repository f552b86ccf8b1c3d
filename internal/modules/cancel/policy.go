// README: Cancellation policy. Pure functions: grace windows and fees are
// per-product tables, assessment never touches storage.
package cancel

import (
	"time"

	"raahi/internal/modules/booking"
	"raahi/internal/modules/fare"
	"raahi/internal/types"
)

// GracePeriod is how long after driver assignment a cancellation stays free.
func GracePeriod(p fare.ProductType) time.Duration {
	switch p {
	case fare.ProductMultiDayTour, fare.ProductPilgrimageCircuit:
		return 15 * time.Minute
	case fare.ProductVendorBrokered:
		return 10 * time.Minute
	default:
		return 5 * time.Minute
	}
}

// Fee is the flat cancellation fee charged outside the grace window.
func Fee(p fare.ProductType) types.Money {
	switch p {
	case fare.ProductMultiDayTour, fare.ProductPilgrimageCircuit:
		return types.Paise(50000)
	case fare.ProductVendorBrokered:
		return types.Paise(25000)
	case fare.ProductHillRoute:
		return types.Paise(20000)
	default:
		return types.Paise(10000)
	}
}

// Assessment is the policy verdict for one cancellation attempt.
type Assessment struct {
	FeeDue bool
	Fee    types.Money
}

// Assess applies the fee policy. A fee is due only when a driver is already
// assigned, the ride has not started, and the grace window since assignment
// has lapsed. System-initiated cancellations are always free.
func Assess(b *booking.Booking, actor string, now time.Time) Assessment {
	free := Assessment{Fee: types.Paise(0)}
	if actor == booking.ActorSystem {
		return free
	}
	if b.DriverID == nil || b.AssignedAt == nil {
		return free
	}
	switch b.Status {
	case booking.StatusAssigned, booking.StatusPickupStarted, booking.StatusArrived:
	default:
		return free
	}
	if now.Sub(*b.AssignedAt) <= GracePeriod(b.Product) {
		return free
	}
	return Assessment{FeeDue: true, Fee: Fee(b.Product)}
}
