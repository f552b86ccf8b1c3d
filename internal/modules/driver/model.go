// README: Driver profile as the booking lifecycle sees it.
package driver

import (
	"time"

	"raahi/internal/modules/fare"
	"raahi/internal/types"
)

type Driver struct {
	ID                  types.ID
	Name                string
	VehicleClass        fare.VehicleClass
	RegistrationFeePaid bool
	CreatedAt           time.Time
}
