// README: The canonical rate table and commission policy constants.
// One table for all products; the per-product controller copies of the old
// system carried drifted duplicates of these numbers.
package fare

// Commission and split policy. Percentages apply to integer paise amounts
// with truncation toward zero.
const (
	AdvancePct          = 25 // direct bookings: advance share of total
	BaseCommissionPct   = 10 // platform share of the computed base price
	MarkupCommissionPct = 20 // platform share of a vendor's markup

	// Per-day overage settlement: each full block counts as one extra day;
	// a final remainder at or above RemainderFullDayKm is billed as one
	// extra day instead of per-km.
	OverageBlockKm     = 250
	RemainderFullDayKm = 200
)

type rateKey struct {
	Product ProductType
	Class   VehicleClass
}

// Amounts are paise. Per-km rates are paise per kilometre.
var rateTable = map[rateKey]Rate{
	// local point-to-point trips
	{ProductLocal, ClassHatchback}: {Kind: KindBandedPerKm, ShortPerKm: 1200, LongPerKm: 1100, BandKm: 50},
	{ProductLocal, ClassSedan}:     {Kind: KindBandedPerKm, ShortPerKm: 1400, LongPerKm: 1300, BandKm: 50},
	{ProductLocal, ClassSUV}:       {Kind: KindBandedPerKm, ShortPerKm: 1800, LongPerKm: 1600, BandKm: 50},
	{ProductLocal, ClassTempoTraveller}: {
		Kind: KindFixedBase, FixedPrice: 550000, IncludedKm: 100, OveragePerKm: 2200,
		DoubleOnRoundTrip: true,
	},

	// hill routes carry a terrain premium
	{ProductHillRoute, ClassHatchback}: {Kind: KindBandedPerKm, ShortPerKm: 1500, LongPerKm: 1400, BandKm: 80},
	{ProductHillRoute, ClassSedan}:     {Kind: KindBandedPerKm, ShortPerKm: 1700, LongPerKm: 1600, BandKm: 80},
	{ProductHillRoute, ClassSUV}:       {Kind: KindBandedPerKm, ShortPerKm: 2100, LongPerKm: 1900, BandKm: 80},
	{ProductHillRoute, ClassTempoTraveller}: {
		Kind: KindFixedBase, FixedPrice: 750000, IncludedKm: 150, OveragePerKm: 2500,
		DoubleOnRoundTrip: true,
	},

	// multi-day tours: per-day with 250 km/day allowance
	{ProductMultiDayTour, ClassHatchback}:      {Kind: KindPerDay, PerDay: 220000, DailyAllowanceKm: 250, OveragePerKm: 1100},
	{ProductMultiDayTour, ClassSedan}:          {Kind: KindPerDay, PerDay: 250000, DailyAllowanceKm: 250, OveragePerKm: 1200},
	{ProductMultiDayTour, ClassSUV}:            {Kind: KindPerDay, PerDay: 350000, DailyAllowanceKm: 250, OveragePerKm: 1500},
	{ProductMultiDayTour, ClassTempoTraveller}: {Kind: KindPerDay, PerDay: 600000, DailyAllowanceKm: 250, OveragePerKm: 2400},

	// pilgrimage circuits price like tours with a slightly higher day rate
	{ProductPilgrimageCircuit, ClassHatchback}:      {Kind: KindPerDay, PerDay: 240000, DailyAllowanceKm: 250, OveragePerKm: 1100},
	{ProductPilgrimageCircuit, ClassSedan}:          {Kind: KindPerDay, PerDay: 270000, DailyAllowanceKm: 250, OveragePerKm: 1200},
	{ProductPilgrimageCircuit, ClassSUV}:            {Kind: KindPerDay, PerDay: 370000, DailyAllowanceKm: 250, OveragePerKm: 1500},
	{ProductPilgrimageCircuit, ClassTempoTraveller}: {Kind: KindPerDay, PerDay: 650000, DailyAllowanceKm: 250, OveragePerKm: 2400},

	// vendor-brokered trips use the local banded rates to compute the fair
	// base price the vendor's quote is measured against
	{ProductVendorBrokered, ClassHatchback}: {Kind: KindBandedPerKm, ShortPerKm: 1200, LongPerKm: 1100, BandKm: 50},
	{ProductVendorBrokered, ClassSedan}:     {Kind: KindBandedPerKm, ShortPerKm: 1400, LongPerKm: 1300, BandKm: 50},
	{ProductVendorBrokered, ClassSUV}:       {Kind: KindBandedPerKm, ShortPerKm: 1800, LongPerKm: 1600, BandKm: 50},
	{ProductVendorBrokered, ClassTempoTraveller}: {
		Kind: KindFixedBase, FixedPrice: 550000, IncludedKm: 100, OveragePerKm: 2200,
		DoubleOnRoundTrip: true,
	},
}

// LookupRate returns the rate row for a product and vehicle class.
func LookupRate(p ProductType, c VehicleClass) (Rate, bool) {
	r, ok := rateTable[rateKey{p, c}]
	return r, ok
}
