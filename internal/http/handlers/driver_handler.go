// README: Driver profile handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"raahi/internal/http/middleware"
	"raahi/internal/modules/driver"
	"raahi/internal/modules/fare"
)

type DriverHandler struct {
	drivers *driver.Service
}

func NewDriverHandler(drivers *driver.Service) *DriverHandler {
	return &DriverHandler{drivers: drivers}
}

type registerDriverReq struct {
	Name         string `json:"name"`
	VehicleClass string `json:"vehicle_class"`
}

type driverView struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	VehicleClass        string `json:"vehicle_class"`
	RegistrationFeePaid bool   `json:"registration_fee_paid"`
}

func toDriverView(d *driver.Driver) driverView {
	return driverView{
		ID:                  string(d.ID),
		Name:                d.Name,
		VehicleClass:        string(d.VehicleClass),
		RegistrationFeePaid: d.RegistrationFeePaid,
	}
}

func (h *DriverHandler) Register(c *gin.Context) {
	var req registerDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeError(c, http.StatusBadRequest, "missing name")
		return
	}
	d, err := h.drivers.Register(c.Request.Context(), driver.RegisterCommand{
		ID:           middleware.CallerID(c),
		Name:         req.Name,
		VehicleClass: fare.VehicleClass(req.VehicleClass),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toDriverView(d))
}

func (h *DriverHandler) Me(c *gin.Context) {
	d, err := h.drivers.Get(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverView(d))
}

type vehicleClassReq struct {
	VehicleClass string `json:"vehicle_class"`
}

func (h *DriverHandler) SetVehicleClass(c *gin.Context) {
	var req vehicleClassReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.drivers.SetVehicleClass(c.Request.Context(), middleware.CallerID(c), fare.VehicleClass(req.VehicleClass))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"vehicle_class": req.VehicleClass})
}
