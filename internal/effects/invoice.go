package effects

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avalogan/silkstrands-backend/internal/payments"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/money"
)

// InvoiceLine is one billed row.
type InvoiceLine struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// Invoice is the rendered invoice for a completed order.
type Invoice struct {
	Number        string          `json:"number"`
	OrderID       string          `json:"order_id"`
	IssuedAt      time.Time       `json:"issued_at"`
	BillTo        string          `json:"bill_to"`
	BillToEmail   string          `json:"bill_to_email"`
	ShipTo        string          `json:"ship_to"`
	Lines         []InvoiceLine   `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	TransactionID string          `json:"transaction_id"`
}

// InvoiceStore keeps completed-order snapshots and renders invoices on
// demand. Nothing is rendered until someone asks: most orders never have
// their invoice viewed.
type InvoiceStore struct {
	mu     sync.RWMutex
	orders map[string]payments.OrderData
}

// NewInvoiceStore builds an empty invoice store.
func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{orders: map[string]payments.OrderData{}}
}

// Record stores the order snapshot an invoice can later be built from.
func (s *InvoiceStore) Record(order payments.OrderData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.OrderID] = order
}

// Generate renders the invoice for an order, lazily, from its snapshot.
func (s *InvoiceStore) Generate(orderID string) (*Invoice, error) {
	s.mu.RLock()
	order, ok := s.orders[orderID]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	lines := make([]InvoiceLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, InvoiceLine{
			Description: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			Amount:      money.LineTotal(item.Price, item.Quantity),
		})
	}

	return &Invoice{
		Number:        "INV-" + order.OrderID,
		OrderID:       order.OrderID,
		IssuedAt:      order.CompletedAt,
		BillTo:        order.Customer.Name,
		BillToEmail:   order.Customer.Email,
		ShipTo:        order.Shipping.Name + ", " + order.Shipping.Address.Flatten(),
		Lines:         lines,
		Total:         order.Total,
		PaymentMethod: order.MethodLabel,
		TransactionID: order.TransactionID,
	}, nil
}
