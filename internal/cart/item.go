package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Item is a single cart line. Price is a major-unit amount; the optional
// pricing fields are presentation metadata and never enter payment math.
type Item struct {
	ID       string          `json:"id"`
	Slug     string          `json:"slug"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Shade    string          `json:"shade,omitempty"`
	Length   string          `json:"length,omitempty"`
	PackSize string          `json:"pack_size,omitempty"`
	Quantity int             `json:"quantity"`

	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	Savings       *decimal.Decimal `json:"savings,omitempty"`
}

// LineKey derives the deterministic composite identity for a cart line. Two
// additions of the same catalog variant always merge into one entry, unlike
// a timestamp-based identity which can collide or never merge.
func LineKey(slug, shade, length, packSize string) string {
	parts := []string{slug, shade, length, packSize}
	for i, part := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(part))
	}
	return strings.Join(parts, "|")
}

// key resolves item identity: an explicit caller-supplied ID wins, otherwise
// the composite variant key is used.
func (i Item) key() string {
	if strings.TrimSpace(i.ID) != "" {
		return i.ID
	}
	return LineKey(i.Slug, i.Shade, i.Length, i.PackSize)
}
