// README: Driver service; also adapts the profile for the booking arbiter.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"raahi/internal/modules/booking"
	"raahi/internal/modules/fare"
	"raahi/internal/types"
)

var (
	ErrNotFound     = errors.New("driver not found")
	ErrUnknownClass = errors.New("unknown vehicle class")
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

type RegisterCommand struct {
	// ID is the caller's identity id; generated when empty (tooling, tests).
	ID           types.ID
	Name         string
	VehicleClass fare.VehicleClass
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Driver, error) {
	if !validClass(cmd.VehicleClass) {
		return nil, ErrUnknownClass
	}
	if cmd.ID == "" {
		cmd.ID = types.ID(uuid.NewString())
	}
	d := &Driver{
		ID:           cmd.ID,
		Name:         cmd.Name,
		VehicleClass: cmd.VehicleClass,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) SetVehicleClass(ctx context.Context, id types.ID, class fare.VehicleClass) error {
	if !validClass(class) {
		return ErrUnknownClass
	}
	ok, err := s.store.SetVehicleClass(ctx, id, string(class))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ConfirmRegistrationFee(ctx context.Context, id types.ID) error {
	ok, err := s.store.ConfirmRegistrationFee(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Info implements booking.DriverDirectory.
func (s *Service) Info(ctx context.Context, id types.ID) (booking.DriverInfo, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return booking.DriverInfo{}, err
	}
	return booking.DriverInfo{
		VehicleClass:        d.VehicleClass,
		RegistrationFeePaid: d.RegistrationFeePaid,
	}, nil
}

func validClass(c fare.VehicleClass) bool {
	switch c {
	case fare.ClassHatchback, fare.ClassSedan, fare.ClassSUV, fare.ClassTempoTraveller:
		return true
	}
	return false
}
