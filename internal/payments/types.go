package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/avalogan/silkstrands-backend/pkg/types"
)

// Provider tags which payment rail produced a result. The tag is decided
// once at the flow boundary; downstream code never re-derives it by
// inspecting payload shapes.
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderPayPal Provider = "paypal"
)

// Customer identifies the buyer on a payment.
type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// LineItem is the payment-facing snapshot of a cart line.
type LineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Shade    string          `json:"color,omitempty"`
	Length   string          `json:"length,omitempty"`
}

// Shipping carries the recipient name and destination address.
type Shipping struct {
	Name    string        `json:"name"`
	Address types.Address `json:"address"`
}

// IntentRequest asks the gateway to create a provider payment intent.
// Amount is in major currency units; the gateway converts to minor units
// exactly once.
type IntentRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	Customer Customer
	Items    []LineItem
	Shipping Shipping
}

// IntentResult is the successful outcome of intent creation.
type IntentResult struct {
	IntentID     string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret"`
}

// IntentStatus is a read-only view of a provider intent.
type IntentStatus struct {
	IntentID    string `json:"payment_intent_id"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// PaymentRecord is the normalized provider-native result attached to a
// successful outcome.
type PaymentRecord struct {
	Provider      Provider  `json:"provider"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	MethodLabel   string    `json:"method_label"`
	CompletedAt   time.Time `json:"completed_at"`
}

// OrderData is the snapshot of customer, items and total taken at the
// moment of confirmation. Downstream effects consume this snapshot, never
// live cart state, because the cart is cleared immediately after success.
type OrderData struct {
	OrderID       string          `json:"order_id"`
	Customer      Customer        `json:"customer"`
	Items         []LineItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Shipping      Shipping        `json:"shipping"`
	MethodLabel   string          `json:"payment_method"`
	TransactionID string          `json:"transaction_id"`
	CompletedAt   time.Time       `json:"completed_at"`
}

// OutcomeType is the terminal classification of a checkout attempt.
type OutcomeType string

const (
	OutcomeSuccess OutcomeType = "success"
	OutcomeError   OutcomeType = "error"
)

// Outcome is the provider-agnostic result both payment flows funnel into.
type Outcome struct {
	Type     OutcomeType    `json:"type"`
	Provider Provider       `json:"provider"`
	Message  string         `json:"message,omitempty"`
	Payment  *PaymentRecord `json:"payment_data,omitempty"`
	Order    *OrderData     `json:"order_data,omitempty"`
}

// Succeeded reports whether the outcome is terminal success.
func (o *Outcome) Succeeded() bool {
	return o != nil && o.Type == OutcomeSuccess
}
