// README: Wallet tests. Threshold policy is pure; ledger and balance tests
// need RAAHI_TEST_DSN.
package wallet

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"raahi/internal/types"
)

func TestThresholdFor(t *testing.T) {
	tests := []struct {
		balance int64
		want    Threshold
	}{
		{100000, ThresholdOK},
		{0, ThresholdOK},
		{-99999, ThresholdOK},
		{-100000, ThresholdWarning},
		{-299999, ThresholdWarning},
		{-300000, ThresholdCritical},
		{-499999, ThresholdCritical},
		{-500000, ThresholdBlocked},
		{-900000, ThresholdBlocked},
	}
	for _, tc := range tests {
		if got := ThresholdFor(tc.balance); got != tc.want {
			t.Errorf("ThresholdFor(%d) = %s, want %s", tc.balance, got, tc.want)
		}
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc := setupTestWallets(t)

	if err := svc.Credit(ctx, Mutation{
		Owner: "drv-1", Amount: types.Paise(5000),
		Kind: KindPayout, Sender: PlatformAccount, Receiver: "drv-1",
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	err := svc.Debit(ctx, Mutation{
		Owner: "drv-1", Amount: types.Paise(8000),
		Kind: KindCancellationFee, Sender: "drv-1", Receiver: "rider-1",
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraw: got %v, want ErrInsufficientFunds", err)
	}

	// a failed debit writes nothing
	w, err := svc.Balance(ctx, "drv-1")
	if err != nil {
		t.Fatal(err)
	}
	if w.Balance.Amount != 5000 {
		t.Fatalf("balance = %d, want 5000", w.Balance.Amount)
	}
	entries, err := svc.Entries(ctx, "drv-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestDebitAllowDebt(t *testing.T) {
	ctx := context.Background()
	svc := setupTestWallets(t)

	if err := svc.Debit(ctx, Mutation{
		Owner: "drv-2", Amount: types.Paise(120000),
		Kind: KindCommission, Sender: "drv-2", Receiver: PlatformAccount,
		AllowDebt: true,
	}); err != nil {
		t.Fatalf("debt debit: %v", err)
	}

	th, err := svc.ThresholdOf(ctx, "drv-2")
	if err != nil {
		t.Fatal(err)
	}
	if th != ThresholdWarning {
		t.Fatalf("threshold = %s, want warning", th)
	}
}

// Conservation: every wallet's balance equals the signed sum of its completed
// ledger entries, no matter how money moved.
func TestLedgerConservation(t *testing.T) {
	ctx := context.Background()
	svc := setupTestWallets(t)

	bookingID := types.ID("bk-1")
	muts := []Mutation{
		{Owner: PlatformAccount, Amount: types.Paise(62500), Kind: KindAdvance,
			Sender: "rider-1", Receiver: PlatformAccount, BookingID: &bookingID},
		{Owner: PlatformAccount, Amount: types.Paise(162500), Kind: KindFinalSettlement,
			Sender: "rider-1", Receiver: PlatformAccount, BookingID: &bookingID},
		{Owner: PlatformAccount, Amount: types.Paise(25000), Kind: KindCommission,
			Sender: "rider-1", Receiver: PlatformAccount, BookingID: &bookingID},
	}
	for _, m := range muts {
		if err := svc.Credit(ctx, m); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	// payout transfer, one debit leg and one credit leg
	payout := Mutation{
		Owner: PlatformAccount, Amount: types.Paise(225000), Kind: KindPayout,
		Sender: PlatformAccount, Receiver: "drv-1", BookingID: &bookingID, AllowDebt: true,
	}
	if err := svc.Debit(ctx, payout); err != nil {
		t.Fatalf("payout debit: %v", err)
	}
	payout.Owner = "drv-1"
	if err := svc.Credit(ctx, payout); err != nil {
		t.Fatalf("payout credit: %v", err)
	}

	for _, owner := range []types.ID{PlatformAccount, "drv-1"} {
		w, err := svc.Balance(ctx, owner)
		if err != nil {
			t.Fatal(err)
		}
		sum, err := svc.Store().SignedSum(ctx, owner)
		if err != nil {
			t.Fatal(err)
		}
		if w.Balance.Amount != sum {
			t.Errorf("%s: balance %d != signed entry sum %d", owner, w.Balance.Amount, sum)
		}
	}

	// platform keeps exactly the commission
	w, err := svc.Balance(ctx, PlatformAccount)
	if err != nil {
		t.Fatal(err)
	}
	if w.Balance.Amount != 25000 {
		t.Errorf("platform balance = %d, want 25000", w.Balance.Amount)
	}
}

func TestManualAdjust(t *testing.T) {
	ctx := context.Background()
	svc := setupTestWallets(t)

	if err := svc.ManualAdjust(ctx, "drv-3", types.Paise(-40000), "lost-ride goodwill reversal"); err != nil {
		t.Fatalf("adjust down: %v", err)
	}
	if err := svc.ManualAdjust(ctx, "drv-3", types.Paise(15000), "support credit"); err != nil {
		t.Fatalf("adjust up: %v", err)
	}

	w, err := svc.Balance(ctx, "drv-3")
	if err != nil {
		t.Fatal(err)
	}
	if w.Balance.Amount != -25000 {
		t.Fatalf("balance = %d, want -25000", w.Balance.Amount)
	}
	sum, err := svc.Store().SignedSum(ctx, "drv-3")
	if err != nil {
		t.Fatal(err)
	}
	if sum != -25000 {
		t.Fatalf("signed sum = %d, want -25000", sum)
	}
}

func setupTestWallets(t *testing.T) *Service {
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
	if _, err := db.Exec(ctx, "TRUNCATE TABLE ledger_entries, wallets"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewService(NewStore(db))
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
