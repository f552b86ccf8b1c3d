// README: Booking lifecycle handlers. The pickup code is only ever shown to
// the booking owner, and only while the driver is waiting at the pickup.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"raahi/internal/http/middleware"
	"raahi/internal/identity"
	"raahi/internal/modules/booking"
	"raahi/internal/modules/cancel"
	"raahi/internal/modules/fare"
	"raahi/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
	cancels  *cancel.Service
}

func NewBookingHandler(bookings *booking.Service, cancels *cancel.Service) *BookingHandler {
	return &BookingHandler{bookings: bookings, cancels: cancels}
}

type createBookingReq struct {
	Product      string  `json:"product"`
	TripType     string  `json:"trip_type"`
	VehicleClass string  `json:"vehicle_class"`
	PickupLat    float64 `json:"pickup_lat"`
	PickupLng    float64 `json:"pickup_lng"`
	DropLat      float64 `json:"drop_lat"`
	DropLng      float64 `json:"drop_lng"`
	PickupAt     string  `json:"pickup_at"` // RFC 3339
	DropAt       string  `json:"drop_at"`
	VendorPrice  *int64  `json:"vendor_price,omitempty"` // paise
	PaymentMode  string  `json:"payment_mode,omitempty"`
}

type bookingView struct {
	ID              types.ID `json:"id"`
	Product         string   `json:"product"`
	TripType        string   `json:"trip_type"`
	Status          string   `json:"status"`
	OwnerID         types.ID `json:"owner_id"`
	DriverID        *string  `json:"driver_id,omitempty"`
	VehicleClass    string   `json:"vehicle_class"`
	DistanceKm      int64    `json:"distance_km"`
	TotalDays       int64    `json:"total_days,omitempty"`
	TotalAmount     int64    `json:"total_amount"`
	AdvanceAmount   int64    `json:"advance_amount"`
	RemainingAmount int64    `json:"remaining_amount"`
	Currency        string   `json:"currency"`
	PaymentMode     string   `json:"payment_mode"`
	PickupCode      *string  `json:"pickup_code,omitempty"`
	CancellationFee int64    `json:"cancellation_fee,omitempty"`
	CancelledBy     *string  `json:"cancelled_by,omitempty"`
	CancelReason    *string  `json:"cancel_reason,omitempty"`
}

// view renders a booking for the given caller. The pickup code is redacted
// unless the caller owns the booking and the driver has arrived.
func view(b *booking.Booking, caller types.ID) bookingView {
	v := bookingView{
		ID:              b.ID,
		Product:         string(b.Product),
		TripType:        string(b.Trip),
		Status:          string(b.Status),
		OwnerID:         b.OwnerID,
		VehicleClass:    string(b.VehicleClass),
		DistanceKm:      b.DistanceKm,
		TotalDays:       b.TotalDays,
		TotalAmount:     b.Price.TotalAmount.Amount,
		AdvanceAmount:   b.Price.AdvanceAmount.Amount,
		RemainingAmount: b.Price.RemainingAmount.Amount,
		Currency:        b.Price.TotalAmount.Currency,
		PaymentMode:     b.PaymentMode,
		CancellationFee: b.CancellationFee.Amount,
		CancelledBy:     b.CancelledBy,
		CancelReason:    b.CancelReason,
	}
	if b.DriverID != nil {
		d := string(*b.DriverID)
		v.DriverID = &d
	}
	if caller == b.OwnerID && b.Status == booking.StatusArrived {
		v.PickupCode = b.PickupCode
	}
	return v
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	cmd := booking.CreateCommand{
		OwnerID:      middleware.CallerID(c),
		OwnerRole:    string(middleware.CallerRole(c)),
		Product:      fare.ProductType(req.Product),
		Trip:         fare.TripType(req.TripType),
		VehicleClass: fare.VehicleClass(req.VehicleClass),
		Pickup:       types.Point{Lat: req.PickupLat, Lng: req.PickupLng},
		Drop:         types.Point{Lat: req.DropLat, Lng: req.DropLng},
		PaymentMode:  req.PaymentMode,
	}
	if req.PickupAt != "" {
		t, err := time.Parse(time.RFC3339, req.PickupAt)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid pickup_at")
			return
		}
		cmd.PickupAt = t
	}
	if req.DropAt != "" {
		t, err := time.Parse(time.RFC3339, req.DropAt)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid drop_at")
			return
		}
		cmd.DropAt = t
	}
	if req.VendorPrice != nil {
		p := types.Paise(*req.VendorPrice)
		cmd.VendorPrice = &p
	}

	b, err := h.bookings.Create(c.Request.Context(), cmd)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, view(b, middleware.CallerID(c)))
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	caller := middleware.CallerID(c)
	owner := caller == b.OwnerID
	assigned := b.DriverID != nil && caller == *b.DriverID
	if !owner && !assigned && middleware.CallerRole(c) != identity.RoleAdmin {
		writeError(c, http.StatusForbidden, "not your booking")
		return
	}
	writeJSON(c, http.StatusOK, view(b, caller))
}

func (h *BookingHandler) ListMine(c *gin.Context) {
	list, err := h.bookings.ListByOwner(c.Request.Context(), middleware.CallerID(c), 50)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, view(b, middleware.CallerID(c)))
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": out})
}

func (h *BookingHandler) ListClaimable(c *gin.Context) {
	class := fare.VehicleClass(c.Query("vehicle_class"))
	list, err := h.bookings.ListClaimable(c.Request.Context(), class, 50)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, view(b, ""))
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": out})
}

func (h *BookingHandler) Claim(c *gin.Context) {
	err := h.bookings.Claim(c.Request.Context(), booking.ClaimCommand{
		BookingID: types.ID(c.Param("id")),
		DriverID:  middleware.CallerID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": booking.StatusAssigned})
}

func (h *BookingHandler) StartPickup(c *gin.Context) {
	err := h.bookings.StartPickup(c.Request.Context(), booking.StartPickupCommand{
		BookingID: types.ID(c.Param("id")),
		DriverID:  middleware.CallerID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": booking.StatusPickupStarted})
}

func (h *BookingHandler) Arrive(c *gin.Context) {
	err := h.bookings.Arrive(c.Request.Context(), booking.ArriveCommand{
		BookingID: types.ID(c.Param("id")),
		DriverID:  middleware.CallerID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": booking.StatusArrived})
}

type startRideReq struct {
	Code string `json:"code"`
}

func (h *BookingHandler) StartRide(c *gin.Context) {
	var req startRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.bookings.StartRide(c.Request.Context(), booking.StartRideCommand{
		BookingID: types.ID(c.Param("id")),
		DriverID:  middleware.CallerID(c),
		Code:      req.Code,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": booking.StatusStarted})
}

type settlementReq struct {
	ActualKm int64 `json:"actual_km"`
}

func (h *BookingHandler) RequestSettlement(c *gin.Context) {
	var req settlementReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.bookings.RequestSettlement(c.Request.Context(), booking.SettlementRequestCommand{
		BookingID: types.ID(c.Param("id")),
		DriverID:  middleware.CallerID(c),
		ActualKm:  req.ActualKm,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": booking.StatusSettlementPending})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.cancels.Cancel(c.Request.Context(), cancel.Command{
		BookingID: types.ID(c.Param("id")),
		Actor:     middleware.CallerID(c),
		Admin:     middleware.CallerRole(c) == identity.RoleAdmin,
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"status":        booking.StatusCancelled,
		"fee_assessed":  res.FeeAssessed.Amount,
		"fee_collected": res.FeeCollected,
	})
}
