package domain

import "strings"

const PlaceholderImage = "/placeholder.svg"

// defaultMaxQuantity caps add-to-cart quantity when the product reports no stock figure.
const defaultMaxQuantity = 999

type Product struct {
	ID                string    `bson:"_id" json:"id"`
	ProductName       string    `bson:"productName" json:"product_name"`
	Description       string    `bson:"description" json:"description"`
	UnitPrice         float64   `bson:"price" json:"unit_price"`
	Images            []string  `bson:"images" json:"images"`
	AvailableQuantity int       `bson:"quantity" json:"available_quantity"`
	Variants          []Variant `bson:"variants,omitempty" json:"variants,omitempty"`
}

// CoverImage is the first image, or the placeholder when the product has none.
func (p Product) CoverImage() string {
	if len(p.Images) > 0 && p.Images[0] != "" {
		return p.Images[0]
	}
	return PlaceholderImage
}

// ClampQuantity normalizes a requested quantity to [1, AvailableQuantity].
func (p Product) ClampQuantity(requested int) int {
	limit := p.AvailableQuantity
	if limit <= 0 {
		limit = defaultMaxQuantity
	}
	if requested > limit {
		requested = limit
	}
	if requested < 1 {
		requested = 1
	}
	return requested
}

// HasVariant reports whether v is one of the product's variants.
func (p Product) HasVariant(v Variant) bool {
	for _, pv := range p.Variants {
		if pv == v {
			return true
		}
	}
	return false
}

// Matches is the catalog search predicate: case-insensitive substring of name or description.
func (p Product) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.ProductName), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}

// ToCartLine copies the product's current price into a cart line.
func (p Product) ToCartLine(quantity int, variant *Variant) CartLine {
	return CartLine{
		ProductID:       p.ID,
		ProductName:     p.ProductName,
		UnitPrice:       p.UnitPrice,
		Quantity:        p.ClampQuantity(quantity),
		SelectedVariant: variant,
		ImageRef:        p.CoverImage(),
	}
}
