package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ooovooo/backend/internal/services"
	"go.uber.org/zap"
)

// Stripe recommends capping webhook bodies at 64KB.
const maxWebhookBody = 65536

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type CheckoutResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	URL     string `json:"url"`
}

// AddOrder records a pending order without payment.
func (h *Handler) AddOrder(w http.ResponseWriter, r *http.Request) {
	var req services.CreateOrderInput
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.svc.Orders.CreateOrder(r.Context(), currentUser(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "order": order})
}

// CreateCheckoutSession turns the cart into pending orders and a Stripe session.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req services.CheckoutInput
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Orders.Checkout(r.Context(), currentUser(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckoutResponse{Success: true, ID: sess.ID, URL: sess.URL})
}

// StripeWebhook verifies the raw body against Stripe-Signature. Processing
// errors answer 500 so Stripe redelivers.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Error reading request body")
		return
	}
	if err := h.svc.Orders.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			h.log.Warn("webhook signature rejected", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Webhook Error: " + err.Error()))
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.svc.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "order": order})
}

// AdminListOrders accepts an optional status filter.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListAll(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListMine(r.Context(), currentUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "orders": orders})
}
