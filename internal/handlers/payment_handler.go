package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
	timeout  time.Duration
}

func NewPaymentHandler(payments *services.PaymentService, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{payments: payments, timeout: timeout}
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePaymentIntentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.payments.CreateIntent(ctx, callerEmail(r), &req)
	if err != nil {
		writeError(w, r, "CreatePaymentIntent", err, "Failed to create payment intent")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(resp))
}

// Save records a completed payment for the caller and upgrades their badge.
func (h *PaymentHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SavePaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	email := callerEmail(r)
	p, err := h.payments.Save(ctx, email, &req)
	if err != nil {
		writeError(w, r, "SavePayment", err, "Failed to save payment")
		return
	}

	slog.InfoContext(ctx, "payment recorded", "email", email, "transaction_id", p.TransactionID)
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(p))
}
