package domain

import "github.com/shopspring/decimal"

// CartLineItem is a product snapshot taken when it was added to the bag.
// Name, image and price are not re-synced if the catalog changes later.
type CartLineItem struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	Variant      *string         `json:"variant"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

// Matches reports whether the item is identified by (productID, variant).
// A nil variant only matches a nil variant.
func (i CartLineItem) Matches(productID string, variant *string) bool {
	if i.ProductID != productID {
		return false
	}
	if i.Variant == nil || variant == nil {
		return i.Variant == nil && variant == nil
	}
	return *i.Variant == *variant
}

// LineTotal is price × quantity.
func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
