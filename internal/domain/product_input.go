package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	Description      string           `json:"description"`
	ShortDescription string           `json:"short_description"`
	Price            decimal.Decimal  `json:"price"`
	CompareAtPrice   *decimal.Decimal `json:"compare_at_price"`
	Category         string           `json:"category"`
	Images           []ProductImage   `json:"images"`
	Variants         []ProductVariant `json:"variants"`
	Benefits         []string         `json:"benefits"`
	HowToUse         string           `json:"how_to_use"`
	WhyLoveIt        []string         `json:"why_love_it"`
	InStock          bool             `json:"in_stock"`
	Featured         bool             `json:"featured"`
	MetaTitle        *string          `json:"meta_title"`
	MetaDescription  *string          `json:"meta_description"`
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug lowercases name and collapses every run of other characters
// into a single dash.
func GenerateSlug(name string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// Normalize fills a missing slug from the name and drops blank list entries
// and images without a URL.
func (in *ProductInput) Normalize() {
	if strings.TrimSpace(in.Slug) == "" {
		in.Slug = GenerateSlug(in.Name)
	}
	in.Benefits = dropBlank(in.Benefits)
	in.WhyLoveIt = dropBlank(in.WhyLoveIt)

	images := make([]ProductImage, 0, len(in.Images))
	for _, img := range in.Images {
		if strings.TrimSpace(img.URL) != "" {
			images = append(images, img)
		}
	}
	in.Images = images
	if in.Variants == nil {
		in.Variants = []ProductVariant{}
	}
}

func dropBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
