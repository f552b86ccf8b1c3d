// README: Pure fare and commission calculator. No clocks, no stores: the
// breakdown persisted at booking creation must equal a fresh recompute.
package fare

import (
	"errors"
	"time"

	"raahi/internal/types"
)

var (
	ErrUnknownRate          = errors.New("no rate for product and vehicle class")
	ErrInvalidDistance      = errors.New("distance must be positive")
	ErrInvalidTripDays      = errors.New("multi-day trip requires pickup and drop dates")
	ErrVendorPriceRequired  = errors.New("vendor booking requires a vendor price")
	ErrVendorPriceBelowBase = errors.New("vendor price below computed base price")
)

// Quote computes the full price breakdown for a trip. It is deterministic:
// all arithmetic is integer paise and every input is explicit in the request.
func Quote(req QuoteRequest) (Breakdown, error) {
	rate, ok := LookupRate(req.Product, req.VehicleClass)
	if !ok {
		return Breakdown{}, ErrUnknownRate
	}
	if req.OneWayKm <= 0 {
		return Breakdown{}, ErrInvalidDistance
	}

	chargeKm := req.OneWayKm
	if req.Trip == TripRoundTrip {
		chargeKm *= 2
	}

	var b Breakdown
	b.ChargeableKm = chargeKm

	switch rate.Kind {
	case KindBandedPerKm:
		perKm := rate.ShortPerKm
		if chargeKm > rate.BandKm {
			perKm = rate.LongPerKm
		}
		b.BaseAmount = types.Paise(chargeKm * perKm)

	case KindFixedBase:
		fixed := rate.FixedPrice
		included := rate.IncludedKm
		if req.Trip == TripRoundTrip && rate.DoubleOnRoundTrip {
			fixed *= 2
			included *= 2
		}
		b.AllowedKm = included
		if extra := chargeKm - included; extra > 0 {
			b.ExtraKm = extra
			b.BaseAmount = types.Paise(fixed + extra*rate.OveragePerKm)
		} else {
			b.BaseAmount = types.Paise(fixed)
		}

	case KindPerDay:
		days := TripDays(req.PickupAt, req.DropAt)
		if days < 1 {
			return Breakdown{}, ErrInvalidTripDays
		}
		b.Days = days
		b.AllowedKm = rate.DailyAllowanceKm * days
		base := rate.PerDay * days
		if extra := chargeKm - b.AllowedKm; extra > 0 {
			b.ExtraKm = extra
			base += overageCharge(extra, rate)
		}
		b.BaseAmount = types.Paise(base)
	}

	if req.Product == ProductVendorBrokered {
		return vendorSplit(b, req.VendorPrice)
	}
	return directSplit(b), nil
}

// overageCharge settles extra distance in OverageBlockKm blocks. Each full
// block is billed as one extra day; the final remainder is billed per-km
// below RemainderFullDayKm and as one extra day at or above it. The same
// remainder is never billed twice.
func overageCharge(extraKm int64, rate Rate) int64 {
	blocks := extraKm / OverageBlockKm
	rem := extraKm % OverageBlockKm
	charge := blocks * rate.PerDay
	if rem >= RemainderFullDayKm {
		charge += rate.PerDay
	} else {
		charge += rem * rate.OveragePerKm
	}
	return charge
}

// directSplit applies the fixed advance/remaining split and the platform
// commission for rider-owned bookings.
func directSplit(b Breakdown) Breakdown {
	b.TotalAmount = b.BaseAmount
	b.AdvanceAmount = b.TotalAmount.Percent(AdvancePct)
	b.RemainingAmount = b.TotalAmount.Sub(b.AdvanceAmount)
	b.Commission = b.BaseAmount.Percent(BaseCommissionPct)
	b.DriverPayout = b.BaseAmount.Sub(b.Commission)
	b.VendorPayout = types.Paise(0)
	return b
}

// vendorSplit computes the three-way split for vendor-brokered bookings. A
// vendor price below the computed base is a validation failure, not a clamp.
func vendorSplit(b Breakdown, vendorPrice *types.Money) (Breakdown, error) {
	if vendorPrice == nil {
		return Breakdown{}, ErrVendorPriceRequired
	}
	if vendorPrice.Amount < b.BaseAmount.Amount {
		return Breakdown{}, ErrVendorPriceBelowBase
	}
	markup := vendorPrice.Sub(b.BaseAmount)
	baseCut := b.BaseAmount.Percent(BaseCommissionPct)
	markupCut := markup.Percent(MarkupCommissionPct)

	b.TotalAmount = *vendorPrice
	b.AdvanceAmount = types.Paise(0) // vendor chain has no advance step
	b.RemainingAmount = b.TotalAmount
	b.Commission = baseCut.Add(markupCut)
	b.DriverPayout = b.BaseAmount.Sub(baseCut)
	b.VendorPayout = markup.Sub(markupCut)
	return b, nil
}

// TripDays counts trip days inclusively after normalizing both instants to
// their calendar dates, so a 23:00 pickup and an 01:00 drop two nights later
// still count three days. Integer date arithmetic only.
func TripDays(pickup, drop time.Time) int64 {
	p := time.Date(pickup.Year(), pickup.Month(), pickup.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(drop.Year(), drop.Month(), drop.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(p) {
		return 0
	}
	return int64(d.Sub(p)/(24*time.Hour)) + 1
}
