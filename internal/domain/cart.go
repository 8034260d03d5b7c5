package domain

import "github.com/shopspring/decimal"

// Variant is a product option picked on the product page, e.g. {Size, XL}.
type Variant struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// CartLine is one entry of the local cart, keyed by ProductID.
type CartLine struct {
	ProductID       string   `json:"product_id"`
	ProductName     string   `json:"product_name"`
	UnitPrice       float64  `json:"unit_price"`
	Quantity        int      `json:"quantity"`
	SelectedVariant *Variant `json:"selected_variant,omitempty"`
	ImageRef        string   `json:"image_ref"`
}

// LineTotal returns UnitPrice x Quantity.
func (l CartLine) LineTotal() float64 {
	return lineTotal(l.UnitPrice, l.Quantity).InexactFloat64()
}

// CartTotal sums price x quantity over lines.
func CartTotal(lines []CartLine) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(lineTotal(l.UnitPrice, l.Quantity))
	}
	return sum.InexactFloat64()
}

// ItemCount sums quantities over lines.
func ItemCount(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func lineTotal(price float64, qty int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))
}
