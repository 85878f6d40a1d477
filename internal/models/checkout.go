package models

// CheckoutItem carries only what the server needs to reprice the line itself.
type CheckoutItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"   validate:"required,min=1"`
}

// CheckoutRequest deliberately omits prices, discounts and totals; the server
// is the source of truth for all pricing.
type CheckoutRequest struct {
	Items                    []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	PaymentMethod            PaymentMethod  `json:"payment_method" validate:"required,oneof=cash mobile_money account"`
	DeliveryNotes            string         `json:"delivery_notes"`
	PointsToRedeem           *int           `json:"points_to_redeem,omitempty"`
	MobileMoneyPhone         string         `json:"mobile_money_phone,omitempty"`
	MobileMoneyTransactionID string         `json:"mobile_money_transaction_id,omitempty"`
	CreditReason             string         `json:"credit_reason,omitempty"`
	ExpectedPaymentDate      string         `json:"expected_payment_date,omitempty"`
}

type CheckoutResponse struct {
	OrderID           string      `json:"order_id"`
	OrderNumber       string      `json:"order_number"`
	TransactionNumber string      `json:"transaction_number"`
	Status            OrderStatus `json:"status"`
	PointsEarned      int         `json:"points_earned"`
}

// OrderSummary is the reactive client-side pricing preview. Delivery is free
// by policy, so the fee is always zero.
type OrderSummary struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}
