package httpapi

import (
	"time"

	"github.com/sokoide/order-saga/pkg/domain"
)

type CreateOrderRequest struct {
	CustomerID  string             `json:"customer_id"`
	Items       []domain.OrderItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
}

type OrderResponse struct {
	ID          string             `json:"id"`
	CustomerID  string             `json:"customer_id"`
	Items       []domain.OrderItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}
