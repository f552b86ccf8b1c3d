// README: Wallet handlers: balance with threshold, ledger history, and the
// admin-only manual adjustment.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"raahi/internal/http/middleware"
	"raahi/internal/modules/wallet"
	"raahi/internal/types"
)

type WalletHandler struct {
	wallets *wallet.Service
}

func NewWalletHandler(wallets *wallet.Service) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

func (h *WalletHandler) Balance(c *gin.Context) {
	owner := middleware.CallerID(c)
	w, err := h.wallets.Balance(c.Request.Context(), owner)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	th, err := h.wallets.ThresholdOf(c.Request.Context(), owner)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"owner_id":  w.OwnerID,
		"balance":   w.Balance.Amount,
		"currency":  w.Balance.Currency,
		"threshold": th,
	})
}

type entryView struct {
	ID          string  `json:"id"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Kind        string  `json:"kind"`
	Status      string  `json:"status"`
	SenderID    string  `json:"sender_id"`
	ReceiverID  string  `json:"receiver_id"`
	BookingID   *string `json:"booking_id,omitempty"`
	ExternalRef *string `json:"external_ref,omitempty"`
	Note        string  `json:"note,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func (h *WalletHandler) Entries(c *gin.Context) {
	limit := 50
	if q := c.Query("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	entries, err := h.wallets.Entries(c.Request.Context(), middleware.CallerID(c), limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		v := entryView{
			ID:          string(e.ID),
			Amount:      e.Amount.Amount,
			Currency:    e.Amount.Currency,
			Kind:        string(e.Kind),
			Status:      string(e.Status),
			SenderID:    string(e.SenderID),
			ReceiverID:  string(e.ReceiverID),
			ExternalRef: e.ExternalRef,
			Note:        e.Note,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		}
		if e.BookingID != nil {
			b := string(*e.BookingID)
			v.BookingID = &b
		}
		out = append(out, v)
	}
	writeJSON(c, http.StatusOK, gin.H{"entries": out})
}

type adjustReq struct {
	OwnerID string `json:"owner_id"`
	Amount  int64  `json:"amount"` // signed paise
	Note    string `json:"note"`
}

func (h *WalletHandler) Adjust(c *gin.Context) {
	var req adjustReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.OwnerID == "" || req.Amount == 0 || req.Note == "" {
		writeError(c, http.StatusBadRequest, "owner_id, amount and note are required")
		return
	}
	err := h.wallets.ManualAdjust(c.Request.Context(), types.ID(req.OwnerID), types.Paise(req.Amount), req.Note)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"adjusted": true})
}
