// README: Concurrency tests for booking transitions (run with -race).
package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"raahi/internal/types"
)

func TestConcurrentClaimSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := newTestService(t, store, sedanDirectory(), stubWalletGate{}, stubCommissionCheck{})

	b := createLocalBooking(t, svc)
	if _, err := svc.MarkAdvancePaid(ctx, b.ID); err != nil {
		t.Fatalf("mark advance paid: %v", err)
	}

	const drivers = 8
	var wg sync.WaitGroup
	errs := make(chan error, drivers)

	for i := 0; i < drivers; i++ {
		driverID := types.ID(fmt.Sprintf("drv-%d", i))
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			errs <- svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: did})
		}(driverID)
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 winning claim, got %d", success)
	}

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusAssigned {
		t.Fatalf("status = %s, want assigned", got.Status)
	}
	if got.DriverID == nil || *got.DriverID == "" {
		t.Fatal("expected driver_id to be set")
	}
}

func TestConcurrentCodeSingleConsumption(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := newTestService(t, store, sedanDirectory(), stubWalletGate{}, stubCommissionCheck{})

	b := createLocalBooking(t, svc)
	if _, err := svc.MarkAdvancePaid(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "drv-1"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartPickup(ctx, StartPickupCommand{BookingID: b.ID, DriverID: "drv-1"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Arrive(ctx, ArriveCommand{BookingID: b.ID, DriverID: "drv-1"}); err != nil {
		t.Fatal(err)
	}
	cur, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}

	const attempts = 4
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.StartRide(ctx, StartRideCommand{
				BookingID: b.ID, DriverID: "drv-1", Code: *cur.PickupCode,
			})
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected the code to be consumed exactly once, got %d successes", success)
	}

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusStarted {
		t.Fatalf("status = %s, want started", got.Status)
	}
}

func TestConcurrentWrongCodeBoundedAttempts(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := newTestService(t, store, sedanDirectory(), stubWalletGate{}, stubCommissionCheck{})

	b := createLocalBooking(t, svc)
	if _, err := svc.MarkAdvancePaid(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "drv-1"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartPickup(ctx, StartPickupCommand{BookingID: b.ID, DriverID: "drv-1"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Arrive(ctx, ArriveCommand{BookingID: b.ID, DriverID: "drv-1"}); err != nil {
		t.Fatal(err)
	}

	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.StartRide(ctx, StartRideCommand{
				BookingID: b.ID, DriverID: "drv-1", Code: "nope",
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != ErrInvalidCode && err != ErrCodeAttemptsExceeded {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// the counter is bounded by the update guard, not the racing readers
	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CodeAttempts != MaxCodeAttempts {
		t.Fatalf("code_attempts = %d, want exactly %d", got.CodeAttempts, MaxCodeAttempts)
	}
}

func TestConcurrentClaimVsExpiry(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := newTestService(t, store, sedanDirectory(), stubWalletGate{}, stubCommissionCheck{})

	b := createLocalBooking(t, svc)
	if _, err := svc.MarkAdvancePaid(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.Exec(ctx,
		`UPDATE bookings SET expires_at = NOW() - INTERVAL '1 second' WHERE id = $1`,
		string(b.ID),
	); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	claimErr := make(chan error, 1)
	wg.Add(2)
	go func() {
		defer wg.Done()
		claimErr <- svc.Claim(ctx, ClaimCommand{BookingID: b.ID, DriverID: "drv-1"})
	}()
	go func() {
		defer wg.Done()
		if _, err := store.ExpireUnclaimed(ctx, time.Now().UTC()); err != nil {
			t.Errorf("expire: %v", err)
		}
	}()
	wg.Wait()
	close(claimErr)

	got, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	cerr := <-claimErr
	switch got.Status {
	case StatusAssigned:
		if cerr != nil {
			t.Fatalf("assigned booking but claim failed: %v", cerr)
		}
	case StatusCancelled:
		if cerr == nil {
			t.Fatal("cancelled booking but claim reported success")
		}
	default:
		t.Fatalf("unexpected final status %s", got.Status)
	}
}
