package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Order struct {
	ID                string        `json:"id"`
	OrderNumber       string        `json:"order_number"`
	TransactionNumber string        `json:"transaction_number,omitempty"`
	Status            OrderStatus   `json:"status"`
	TotalAmount       float64       `json:"total_amount"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	DeliveryNotes     string        `json:"delivery_notes,omitempty"`
	Items             []OrderItem   `json:"items,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

type OrderList struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Size   int     `json:"size"`
}
