package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sokoide/order-saga/pkg/domain"
	"github.com/sokoide/order-saga/pkg/usecase"
)

// Handler exposes the order CRUD surface. Creating an order is the single
// inbound mutation of the saga; reads go through the order cache.
type Handler struct {
	orders *usecase.OrderUsecase
	logger *zap.Logger
}

func NewHandler(orders *usecase.OrderUsecase, logger *zap.Logger) *Handler {
	return &Handler{orders: orders, logger: logger}
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), usecase.CreateOrderInput{
		CustomerID:  req.CustomerID,
		Items:       req.Items,
		TotalAmount: req.TotalAmount,
	})
	if errors.Is(err, usecase.ErrInvalidOrder) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("create order failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := h.orders.GetOrder(r.Context(), id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "order_not_found", "")
		return
	}
	if err != nil {
		h.logger.Error("get order failed", zap.String("order_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		h.logger.Error("list orders failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	out := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
