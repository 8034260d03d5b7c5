package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
)

type Customer struct {
	FullName    string `bson:"fullName" json:"full_name"`
	CompanyName string `bson:"companyName" json:"company_name,omitempty"`
	Phone       string `bson:"phone" json:"phone"`
	Email       string `bson:"email" json:"email"`
	Address     string `bson:"address" json:"address"`
}

// Validate checks presence of the required fields. Whitespace counts as blank.
func (c Customer) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"full_name", c.FullName},
		{"phone", c.Phone},
		{"email", c.Email},
		{"address", c.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

type OrderLine struct {
	ProductID       string   `bson:"productId" json:"product_id"`
	ProductName     string   `bson:"productName" json:"product_name"`
	UnitPrice       float64  `bson:"price" json:"unit_price"`
	Quantity        int      `bson:"quantity" json:"quantity"`
	SelectedVariant *Variant `bson:"selectedVariant" json:"selected_variant,omitempty"`
	LineTotal       float64  `bson:"finalPrice" json:"line_total"`
}

// Order is a placed order as read back from the document store.
type Order struct {
	ID          string      `bson:"_id" json:"id"`
	Lines       []OrderLine `bson:"items" json:"items"`
	TotalAmount float64     `bson:"totalAmount" json:"total_amount"`
	Customer    Customer    `bson:"customerDetails" json:"customer"`
	Notes       string      `bson:"notes" json:"notes"`
	Status      OrderStatus `bson:"status" json:"status"`
	CreatedAt   time.Time   `bson:"createdAt" json:"created_at"`
}

// OrderDraft is the frozen snapshot of a cart taken at checkout submission.
// Fields are unexported so nothing can alter it between validation and persistence;
// accessors hand out copies.
type OrderDraft struct {
	lines    []OrderLine
	total    float64
	customer Customer
	notes    string
}

// NewOrderDraft copies lines (price and quantity as they are in the cart right now),
// trims the customer fields and computes the total.
func NewOrderDraft(lines []CartLine, customer Customer, notes string) (OrderDraft, error) {
	if len(lines) == 0 {
		return OrderDraft{}, ErrEmptyCart
	}
	customer = Customer{
		FullName:    strings.TrimSpace(customer.FullName),
		CompanyName: strings.TrimSpace(customer.CompanyName),
		Phone:       strings.TrimSpace(customer.Phone),
		Email:       strings.TrimSpace(customer.Email),
		Address:     strings.TrimSpace(customer.Address),
	}
	if err := customer.Validate(); err != nil {
		return OrderDraft{}, err
	}

	sum := decimal.Zero
	out := make([]OrderLine, len(lines))
	for i, l := range lines {
		lt := lineTotal(l.UnitPrice, l.Quantity)
		sum = sum.Add(lt)
		var variant *Variant
		if l.SelectedVariant != nil {
			v := *l.SelectedVariant
			variant = &v
		}
		out[i] = OrderLine{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			UnitPrice:       l.UnitPrice,
			Quantity:        l.Quantity,
			SelectedVariant: variant,
			LineTotal:       lt.InexactFloat64(),
		}
	}

	return OrderDraft{
		lines:    out,
		total:    sum.InexactFloat64(),
		customer: customer,
		notes:    strings.TrimSpace(notes),
	}, nil
}

func (d OrderDraft) Lines() []OrderLine {
	out := make([]OrderLine, len(d.lines))
	for i, l := range d.lines {
		if l.SelectedVariant != nil {
			v := *l.SelectedVariant
			l.SelectedVariant = &v
		}
		out[i] = l
	}
	return out
}

func (d OrderDraft) TotalAmount() float64 { return d.total }
func (d OrderDraft) Customer() Customer   { return d.customer }
func (d OrderDraft) Notes() string        { return d.notes }
func (d OrderDraft) Status() OrderStatus  { return OrderStatusPending }

// ItemCount sums quantities over the draft lines.
func (d OrderDraft) ItemCount() int {
	n := 0
	for _, l := range d.lines {
		n += l.Quantity
	}
	return n
}
