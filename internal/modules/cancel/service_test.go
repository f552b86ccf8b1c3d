// README: DB-backed cancellation tests. Set RAAHI_TEST_DSN to run them.
package cancel

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wb-go/wbf/logger"

	"raahi/internal/modules/booking"
	"raahi/internal/modules/fare"
	"raahi/internal/modules/wallet"
	"raahi/internal/types"
)

func TestCancelBeforeAssignmentIsFree(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	b := env.newBooking(t, booking.StatusPending, nil)
	res, err := env.svc.Cancel(ctx, Command{BookingID: b.ID, Actor: b.OwnerID, Reason: "changed plans"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.FeeCollected || res.FeeAssessed.Amount != 0 {
		t.Fatalf("unexpected fee: %+v", res)
	}
	if res.Booking.Status != booking.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", res.Booking.Status)
	}
	if res.Booking.CancelledBy == nil || *res.Booking.CancelledBy != booking.ActorRider {
		t.Fatalf("cancelled_by = %v, want rider", res.Booking.CancelledBy)
	}
}

func TestCancelPastGraceChargesFee(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	assignedAt := time.Now().UTC().Add(-30 * time.Minute)
	b := env.newBooking(t, booking.StatusAssigned, &assignedAt)

	// the rider can cover the fee
	if err := env.wallets.Credit(ctx, wallet.Mutation{
		Owner: b.OwnerID, Amount: types.Paise(50000),
		Kind: wallet.KindManualAdjustment, Sender: wallet.PlatformAccount, Receiver: b.OwnerID,
	}); err != nil {
		t.Fatal(err)
	}

	res, err := env.svc.Cancel(ctx, Command{BookingID: b.ID, Actor: b.OwnerID, Reason: "late driver"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !res.FeeCollected || res.FeeAssessed.Amount != 10000 {
		t.Fatalf("fee outcome: %+v", res)
	}
	if res.Booking.CancellationFee.Amount != 10000 {
		t.Fatalf("persisted fee = %d", res.Booking.CancellationFee.Amount)
	}

	driverWallet, err := env.wallets.Balance(ctx, "drv-1")
	if err != nil {
		t.Fatal(err)
	}
	if driverWallet.Balance.Amount != 10000 {
		t.Fatalf("driver received %d, want 10000", driverWallet.Balance.Amount)
	}
}

func TestCancelSucceedsWhenFeeUncollectable(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	assignedAt := time.Now().UTC().Add(-30 * time.Minute)
	b := env.newBooking(t, booking.StatusAssigned, &assignedAt)

	// empty rider wallet: the fee fails, the cancellation must not
	res, err := env.svc.Cancel(ctx, Command{BookingID: b.ID, Actor: b.OwnerID, Reason: "no show"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.FeeCollected {
		t.Fatal("fee reported collected from an empty wallet")
	}
	if res.Booking.Status != booking.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", res.Booking.Status)
	}
	if res.Booking.CancellationFee.Amount != 0 {
		t.Fatalf("persisted fee = %d, want 0", res.Booking.CancellationFee.Amount)
	}
}

func TestCancelByStranger(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	b := env.newBooking(t, booking.StatusPending, nil)
	_, err := env.svc.Cancel(ctx, Command{BookingID: b.ID, Actor: "someone-else", Reason: "nope"})
	if err != booking.ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestCancelTerminalBooking(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	b := env.newBooking(t, booking.StatusPending, nil)
	if _, err := env.svc.Cancel(ctx, Command{BookingID: b.ID, Actor: b.OwnerID}); err != nil {
		t.Fatal(err)
	}
	_, err := env.svc.Cancel(ctx, Command{BookingID: b.ID, Actor: b.OwnerID})
	if err != booking.ErrInvalidState {
		t.Fatalf("second cancel: got %v, want ErrInvalidState", err)
	}
}

type testEnv struct {
	pool    *pgxpool.Pool
	store   *booking.Store
	wallets *wallet.Service
	svc     *Service
}

// newBooking inserts a local booking directly and pushes it to the wanted
// status with raw SQL; the lifecycle itself is covered by the booking tests.
func (e *testEnv) newBooking(t *testing.T, status booking.Status, assignedAt *time.Time) *booking.Booking {
	t.Helper()
	ctx := context.Background()

	b := &booking.Booking{
		ID:           types.ID("bk-" + t.Name()),
		Product:      fare.ProductLocal,
		Trip:         fare.TripOneWay,
		Status:       booking.StatusPending,
		OwnerID:      "rider-1",
		OwnerRole:    booking.ActorRider,
		VehicleClass: fare.ClassSedan,
		Pickup:       types.Point{Lat: 28.6, Lng: 77.2},
		Drop:         types.Point{Lat: 28.5, Lng: 77.4},
		DistanceKm:   12,
		PaymentMode:  booking.PaymentModeOnline,
		CreatedAt:    time.Now().UTC(),
	}
	b.Price.TotalAmount = types.Paise(100000)
	b.Price.AdvanceAmount = types.Paise(25000)
	b.Price.RemainingAmount = types.Paise(75000)
	if err := e.store.Create(ctx, b); err != nil {
		t.Fatalf("create booking: %v", err)
	}

	if status != booking.StatusPending {
		_, err := e.pool.Exec(ctx, `
			UPDATE bookings SET status = $2, driver_id = 'drv-1', assigned_at = $3
			WHERE id = $1`,
			string(b.ID), string(status), assignedAt,
		)
		if err != nil {
			t.Fatalf("force status: %v", err)
		}
	}

	got, err := e.store.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	return got
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("RAAHI_TEST_DSN")
	if dsn == "" {
		t.Skip("RAAHI_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE ledger_entries, wallets, bookings"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	log, err := logger.InitLogger("slog", "test", "test", logger.WithLevel(logger.ErrorLevel))
	if err != nil {
		t.Fatalf("init test logger: %v", err)
	}

	store := booking.NewStore(db)
	wallets := wallet.NewService(wallet.NewStore(db))
	return &testEnv{
		pool:    db,
		store:   store,
		wallets: wallets,
		svc:     NewService(db, store, wallets, nil, log),
	}
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
