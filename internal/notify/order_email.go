package notify

import (
	"fmt"
	"strings"

	"github.com/avalogan/silkstrands-backend/internal/payments"
	"github.com/avalogan/silkstrands-backend/pkg/money"
)

// ConfirmationEmail builds the customer-facing order confirmation.
func ConfirmationEmail(order payments.OrderData) Message {
	var lines strings.Builder
	for _, item := range order.Items {
		variant := itemVariant(item)
		fmt.Fprintf(&lines, "<tr><td>%s%s</td><td>%d</td><td>$%s</td></tr>",
			item.Name, variant, item.Quantity, money.FixedMajor(money.LineTotal(item.Price, item.Quantity)))
	}

	html := fmt.Sprintf(`<h2>Thank you for your order, %s!</h2>
<p>Order <strong>%s</strong> is confirmed and will ship to:</p>
<p>%s<br>%s</p>
<table><tr><th>Item</th><th>Qty</th><th>Total</th></tr>%s</table>
<p><strong>Order total: $%s</strong></p>
<p>Paid with %s (transaction %s).</p>`,
		order.Customer.Name,
		order.OrderID,
		order.Shipping.Name,
		order.Shipping.Address.Flatten(),
		lines.String(),
		money.FixedMajor(order.Total),
		order.MethodLabel,
		order.TransactionID,
	)

	return Message{
		To:      order.Customer.Email,
		ToName:  order.Customer.Name,
		Subject: fmt.Sprintf("Your Silk Strands order %s is confirmed", order.OrderID),
		HTML:    html,
		Text: fmt.Sprintf("Thank you for your order, %s! Order %s for $%s is confirmed.",
			order.Customer.Name, order.OrderID, money.FixedMajor(order.Total)),
	}
}

// BusinessEmail builds the internal new-order notification.
func BusinessEmail(order payments.OrderData, businessAddress string) Message {
	var lines strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&lines, "- %s%s x%d @ $%s\n",
			item.Name, itemVariant(item), item.Quantity, money.FixedMajor(item.Price))
	}

	text := fmt.Sprintf(`New order %s for $%s.

Customer: %s <%s>
Ship to: %s, %s
Payment: %s (%s)

Items:
%s`,
		order.OrderID,
		money.FixedMajor(order.Total),
		order.Customer.Name,
		order.Customer.Email,
		order.Shipping.Name,
		order.Shipping.Address.Flatten(),
		order.MethodLabel,
		order.TransactionID,
		lines.String(),
	)

	return Message{
		To:      businessAddress,
		Subject: fmt.Sprintf("New order %s ($%s)", order.OrderID, money.FixedMajor(order.Total)),
		Text:    text,
	}
}

func itemVariant(item payments.LineItem) string {
	parts := make([]string, 0, 2)
	if item.Shade != "" {
		parts = append(parts, item.Shade)
	}
	if item.Length != "" {
		parts = append(parts, item.Length)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
