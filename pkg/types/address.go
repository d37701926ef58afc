package types

import "strings"

// Address is the shipping/billing address shape shared across the checkout
// surface and the payment providers.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Flatten renders the address as a single line for provider metadata blocks.
func (a Address) Flatten() string {
	parts := make([]string, 0, 6)
	for _, part := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, strings.TrimSpace(part))
		}
	}
	return strings.Join(parts, ", ")
}

// Complete reports whether the fields the payment gateway requires are set.
func (a Address) Complete() bool {
	return strings.TrimSpace(a.Line1) != "" && strings.TrimSpace(a.City) != ""
}
