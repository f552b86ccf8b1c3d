// README: Payment order and verification handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"raahi/internal/http/middleware"
	"raahi/internal/modules/payment"
	"raahi/internal/types"
)

type PaymentHandler struct {
	payments *payment.Service
}

func NewPaymentHandler(payments *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type verifyReq struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (r verifyReq) valid() bool {
	return r.OrderID != "" && r.PaymentID != "" && r.Signature != ""
}

func orderRefView(ref payment.OrderRef) gin.H {
	return gin.H{
		"order_id": ref.OrderID,
		"amount":   ref.Amount.Amount,
		"currency": ref.Amount.Currency,
	}
}

func (h *PaymentHandler) CreateAdvanceOrder(c *gin.Context) {
	ref, err := h.payments.CreateAdvanceOrder(c.Request.Context(),
		types.ID(c.Param("id")), middleware.CallerID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, orderRefView(ref))
}

func (h *PaymentHandler) VerifyAdvance(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		writeError(c, http.StatusBadRequest, "missing payment fields")
		return
	}
	b, err := h.payments.VerifyAdvance(c.Request.Context(), payment.VerifyCommand{
		BookingID: types.ID(c.Param("id")),
		Actor:     middleware.CallerID(c),
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": b.Status})
}

func (h *PaymentHandler) CreateCommissionOrder(c *gin.Context) {
	ref, err := h.payments.CreateCommissionOrder(c.Request.Context(),
		types.ID(c.Param("id")), middleware.CallerID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, orderRefView(ref))
}

func (h *PaymentHandler) VerifyCommission(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		writeError(c, http.StatusBadRequest, "missing payment fields")
		return
	}
	err := h.payments.VerifyCommission(c.Request.Context(), payment.VerifyCommand{
		BookingID: types.ID(c.Param("id")),
		Actor:     middleware.CallerID(c),
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"commission_paid": true})
}

func (h *PaymentHandler) CreateRegistrationOrder(c *gin.Context) {
	ref, err := h.payments.CreateRegistrationOrder(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, orderRefView(ref))
}

func (h *PaymentHandler) VerifyRegistration(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		writeError(c, http.StatusBadRequest, "missing payment fields")
		return
	}
	err := h.payments.VerifyRegistration(c.Request.Context(), middleware.CallerID(c),
		req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"registration_fee_paid": true})
}

func (h *PaymentHandler) CreateSettlementOrder(c *gin.Context) {
	ref, err := h.payments.CreateSettlementOrder(c.Request.Context(),
		types.ID(c.Param("id")), middleware.CallerID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, orderRefView(ref))
}

// Settle closes the booking. For online settlements the body carries the
// gateway callback fields; cash settlements send an empty body.
func (h *PaymentHandler) Settle(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.payments.Settle(c.Request.Context(), payment.SettleCommand{
		BookingID: types.ID(c.Param("id")),
		Actor:     middleware.CallerID(c),
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "completed"})
}
