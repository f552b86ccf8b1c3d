// README: Wallet and ledger-entry definitions plus balance threshold policy.
package wallet

import (
	"time"

	"raahi/internal/types"
)

type EntryKind string

const (
	KindAdvance          EntryKind = "advance"
	KindFinalSettlement  EntryKind = "final_settlement"
	KindCommission       EntryKind = "commission"
	KindPayout           EntryKind = "payout"
	KindCancellationFee  EntryKind = "cancellation_fee"
	KindManualAdjustment EntryKind = "manual_adjustment"
)

type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusCompleted EntryStatus = "completed"
	StatusFailed    EntryStatus = "failed"
)

// PlatformAccount is the ledger identity for the app's own commission wallet.
const PlatformAccount types.ID = "platform"

type Wallet struct {
	OwnerID   types.ID
	Balance   types.Money // signed; drivers may carry commission debt
	UpdatedAt time.Time
}

// LedgerEntry is the immutable audit record paired with every balance delta.
// OwnerID names the wallet the delta applied to and Amount carries its sign
// (positive credit, negative debit), so an owner's completed-entry sum always
// equals their balance. Sender and receiver attribute the money flow itself;
// a two-legged transfer writes one entry per wallet touched.
type LedgerEntry struct {
	ID          types.ID
	OwnerID     types.ID
	Amount      types.Money // signed
	Kind        EntryKind
	Status      EntryStatus
	SenderID    types.ID
	ReceiverID  types.ID
	BookingID   *types.ID
	ExternalRef *string
	Note        string
	CreatedAt   time.Time
}

// Threshold levels evaluated from the live balance. Crossing Blocked stops
// the driver from claiming further bookings until the debt is cleared.
type Threshold string

const (
	ThresholdOK       Threshold = "ok"
	ThresholdWarning  Threshold = "warning"
	ThresholdCritical Threshold = "critical"
	ThresholdBlocked  Threshold = "blocked"
)

// Balance floors in paise.
const (
	WarningBalance  = -100000 // Rs 1,000 of debt
	CriticalBalance = -300000
	BlockedBalance  = -500000
)

func ThresholdFor(balance int64) Threshold {
	switch {
	case balance <= BlockedBalance:
		return ThresholdBlocked
	case balance <= CriticalBalance:
		return ThresholdCritical
	case balance <= WarningBalance:
		return ThresholdWarning
	}
	return ThresholdOK
}
