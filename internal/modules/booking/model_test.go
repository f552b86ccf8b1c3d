package booking

import (
	"testing"
	"time"

	"raahi/internal/modules/fare"
)

func TestCanTransitionDirectChain(t *testing.T) {
	chain := []Status{
		StatusPending, StatusAdvancePaid, StatusAssigned, StatusPickupStarted,
		StatusArrived, StatusStarted, StatusSettlementPending, StatusCompleted,
	}
	for i := 0; i < len(chain)-1; i++ {
		if !CanTransition(fare.ProductLocal, chain[i], chain[i+1]) {
			t.Errorf("%s -> %s should be allowed", chain[i], chain[i+1])
		}
	}
	// no skipping
	for i := 0; i < len(chain); i++ {
		for j := i + 2; j < len(chain); j++ {
			if CanTransition(fare.ProductLocal, chain[i], chain[j]) {
				t.Errorf("%s -> %s should not skip states", chain[i], chain[j])
			}
		}
	}
	// no going backwards
	if CanTransition(fare.ProductLocal, StatusStarted, StatusArrived) {
		t.Error("backward transition allowed")
	}
}

func TestCanTransitionVendorSkipsAdvance(t *testing.T) {
	if !CanTransition(fare.ProductVendorBrokered, StatusPending, StatusAssigned) {
		t.Error("vendor booking must be claimable straight from pending")
	}
	if CanTransition(fare.ProductVendorBrokered, StatusPending, StatusAdvancePaid) {
		t.Error("vendor booking has no advance step")
	}
	if CanTransition(fare.ProductLocal, StatusPending, StatusAssigned) {
		t.Error("direct booking must pass through advance_paid")
	}
}

func TestCancellableFromEveryNonTerminalState(t *testing.T) {
	nonTerminal := []Status{
		StatusPending, StatusAdvancePaid, StatusAssigned, StatusPickupStarted,
		StatusArrived, StatusStarted, StatusSettlementPending,
	}
	for _, from := range nonTerminal {
		if from == StatusAdvancePaid {
			// vendor graph has no advance_paid node
			if !CanTransition(fare.ProductLocal, from, StatusCancelled) {
				t.Errorf("cancel from %s rejected", from)
			}
			continue
		}
		for _, p := range []fare.ProductType{fare.ProductLocal, fare.ProductVendorBrokered} {
			if !CanTransition(p, from, StatusCancelled) {
				t.Errorf("cancel from %s rejected for %s", from, p)
			}
		}
	}
}

func TestTerminalStatesAreDeadEnds(t *testing.T) {
	all := []Status{
		StatusPending, StatusAdvancePaid, StatusAssigned, StatusPickupStarted,
		StatusArrived, StatusStarted, StatusSettlementPending, StatusCompleted, StatusCancelled,
	}
	for _, from := range []Status{StatusCompleted, StatusCancelled} {
		if !from.Terminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range all {
			if CanTransition(fare.ProductLocal, from, to) {
				t.Errorf("transition out of terminal %s to %s allowed", from, to)
			}
		}
	}
}

func TestClaimFrom(t *testing.T) {
	if ClaimFrom(fare.ProductLocal) != StatusAdvancePaid {
		t.Error("direct products are claimed from advance_paid")
	}
	if ClaimFrom(fare.ProductVendorBrokered) != StatusPending {
		t.Error("vendor products are claimed from pending")
	}
}

func TestClaimWindowPerProduct(t *testing.T) {
	if ClaimWindow(fare.ProductLocal) != 60*time.Minute {
		t.Error("local claim window changed")
	}
	if ClaimWindow(fare.ProductMultiDayTour) != 4*time.Hour {
		t.Error("tour claim window changed")
	}
}

func TestRequiresRegistrationFee(t *testing.T) {
	tests := map[fare.ProductType]bool{
		fare.ProductLocal:             false,
		fare.ProductVendorBrokered:    false,
		fare.ProductHillRoute:         true,
		fare.ProductMultiDayTour:      true,
		fare.ProductPilgrimageCircuit: true,
	}
	for p, want := range tests {
		if RequiresRegistrationFee(p) != want {
			t.Errorf("RequiresRegistrationFee(%s) = %v, want %v", p, !want, want)
		}
	}
}
