package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// the shop backend reads and writes money as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type ProductImage struct {
	URL       string `json:"url"`
	Alt       string `json:"alt"`
	IsPrimary bool   `json:"is_primary"`
}

type ProductVariant struct {
	Name          string          `json:"name"`
	Value         string          `json:"value"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

type Product struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	Description      string           `json:"description"`
	ShortDescription string           `json:"short_description"`
	Price            decimal.Decimal  `json:"price"`
	CompareAtPrice   *decimal.Decimal `json:"compare_at_price,omitempty"`
	Category         string           `json:"category"`
	Images           []ProductImage   `json:"images"`
	Variants         []ProductVariant `json:"variants"`
	Benefits         []string         `json:"benefits"`
	HowToUse         string           `json:"how_to_use"`
	WhyLoveIt        []string         `json:"why_love_it"`
	InStock          bool             `json:"in_stock"`
	Featured         bool             `json:"featured"`
	MetaTitle        *string          `json:"meta_title,omitempty"`
	MetaDescription  *string          `json:"meta_description,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// PrimaryImageURL returns the image flagged as primary, falling back to the
// first image, or "" when the product has none.
func (p *Product) PrimaryImageURL() string {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// PriceModifier looks up the modifier of the variant with the given value.
// Unknown variants and a nil variant cost nothing extra.
func (p *Product) PriceModifier(variant *string) decimal.Decimal {
	if variant == nil {
		return decimal.Zero
	}
	for _, v := range p.Variants {
		if v.Value == *variant {
			return v.PriceModifier
		}
	}
	return decimal.Zero
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Review struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	AuthorName       string    `json:"author_name"`
	Rating           int       `json:"rating"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	CreatedAt        time.Time `json:"created_at"`
}
