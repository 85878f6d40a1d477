package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
	PaymentMethodAccount     PaymentMethod = "account"
)

// How long a customer paying on account gets by default before payment is expected.
const DefaultCreditTerm = 7 * 24 * time.Hour

type CartLineItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Category  string  `json:"category"`
	ImageURL  string  `json:"image_url,omitempty"`
	Subtotal  float64 `json:"subtotal"`
}

// PaymentDetails holds the extra fields required by the non-cash payment methods.
type PaymentDetails struct {
	MobileMoneyPhone         string    `json:"mobile_money_phone,omitempty"`
	MobileMoneyTransactionID string    `json:"mobile_money_transaction_id,omitempty"`
	CreditReason             string    `json:"credit_reason,omitempty"`
	ExpectedPaymentDate      time.Time `json:"expected_payment_date"`
}

type CartState struct {
	Items          []CartLineItem `json:"items"`
	PaymentMethod  PaymentMethod  `json:"payment_method"`
	PaymentDetails PaymentDetails `json:"payment_details"`
}

// DefaultCartState is the state a fresh or just-cleared cart carries.
func DefaultCartState(now time.Time) CartState {
	return CartState{
		Items:         []CartLineItem{},
		PaymentMethod: PaymentMethodCash,
		PaymentDetails: PaymentDetails{
			ExpectedPaymentDate: now.Add(DefaultCreditTerm),
		},
	}
}

func NewCartLineItem(p *Product, quantity int) CartLineItem {
	return CartLineItem{
		ID:        uuid.NewString(),
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		Category:  p.Category,
		ImageURL:  p.ImageURL,
		Subtotal:  p.Price * float64(quantity),
	}
}
