// README: Trip product enums, rate definitions, and the price breakdown value object.
package fare

import (
	"time"

	"raahi/internal/types"
)

type ProductType string

const (
	ProductLocal             ProductType = "local"
	ProductMultiDayTour      ProductType = "multi_day_tour"
	ProductHillRoute         ProductType = "hill_route"
	ProductPilgrimageCircuit ProductType = "pilgrimage_circuit"
	ProductVendorBrokered    ProductType = "vendor_brokered"
)

func (p ProductType) Valid() bool {
	switch p {
	case ProductLocal, ProductMultiDayTour, ProductHillRoute, ProductPilgrimageCircuit, ProductVendorBrokered:
		return true
	}
	return false
}

// MultiDay reports whether the product bills per day rather than per trip.
func (p ProductType) MultiDay() bool {
	return p == ProductMultiDayTour || p == ProductPilgrimageCircuit
}

type TripType string

const (
	TripOneWay    TripType = "one_way"
	TripRoundTrip TripType = "round_trip"
)

func (t TripType) Valid() bool {
	return t == TripOneWay || t == TripRoundTrip
}

type VehicleClass string

const (
	ClassHatchback      VehicleClass = "hatchback"
	ClassSedan          VehicleClass = "sedan"
	ClassSUV            VehicleClass = "suv"
	ClassTempoTraveller VehicleClass = "tempo_traveller"
)

type RateKind int

const (
	// KindBandedPerKm charges a flat per-km rate picked from a short/long
	// distance band.
	KindBandedPerKm RateKind = iota
	// KindFixedBase charges a fixed price covering IncludedKm, with per-km
	// overage beyond the allowance. Used by large vehicle classes.
	KindFixedBase
	// KindPerDay charges per trip day with a daily km allowance; overage is
	// settled in allowance-sized blocks.
	KindPerDay
)

// Rate is one row of the unified rate table, keyed by (product, vehicle class).
type Rate struct {
	Kind RateKind

	// banded per-km
	ShortPerKm int64
	LongPerKm  int64
	BandKm     int64

	// fixed base
	FixedPrice int64
	IncludedKm int64
	// DoubleOnRoundTrip is an explicit table column: it is true only when the
	// fixed price represents a one-way rate. Never inferred from the price.
	DoubleOnRoundTrip bool

	// per-day
	PerDay           int64
	DailyAllowanceKm int64

	// per-km overage rate shared by fixed-base and per-day kinds
	OveragePerKm int64
}

// QuoteRequest carries every input the calculator needs. The calculator never
// reads clocks, stores, or globals, so identical requests produce identical
// breakdowns.
type QuoteRequest struct {
	Product      ProductType
	Trip         TripType
	VehicleClass VehicleClass
	OneWayKm     int64
	PickupAt     time.Time // multi-day products only
	DropAt       time.Time // multi-day products only
	VendorPrice  *types.Money
}

// Breakdown is the persisted price breakdown for a booking.
type Breakdown struct {
	BaseAmount      types.Money
	TotalAmount     types.Money
	AdvanceAmount   types.Money
	RemainingAmount types.Money
	Commission      types.Money
	DriverPayout    types.Money
	VendorPayout    types.Money

	// audit fields
	ChargeableKm int64
	AllowedKm    int64
	ExtraKm      int64
	Days         int64
}
