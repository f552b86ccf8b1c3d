// README: Driver store backed by PostgreSQL.
package driver

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"raahi/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (id, name, vehicle_class, registration_fee_paid, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(d.ID), d.Name, string(d.VehicleClass), d.RegistrationFeePaid, d.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, vehicle_class, registration_fee_paid, created_at
		FROM drivers WHERE id = $1`,
		string(id),
	)
	var d Driver
	err := row.Scan(&d.ID, &d.Name, &d.VehicleClass, &d.RegistrationFeePaid, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) SetVehicleClass(ctx context.Context, id types.ID, class string) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE drivers SET vehicle_class = $2 WHERE id = $1`, string(id), class)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ConfirmRegistrationFee flips the prepayment flag once the fee's ledger
// entry is recorded. Idempotent.
func (s *Store) ConfirmRegistrationFee(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE drivers SET registration_fee_paid = TRUE WHERE id = $1`, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
