package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

const (
	CopyTargetOrderID     = "order_id"
	CopyTargetBankAccount = "bank_account"
)

// BankDetails are the static transfer instructions shown with every order.
type BankDetails struct {
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

type ContactConfig struct {
	// URL is the deep link base, e.g. https://wa.me/+23481292785
	URL string
	// Message is the text template. Every {order_id} is replaced with the order id.
	Message string
}

// OrderConfirmation is the rendered order summary page.
type OrderConfirmation struct {
	Order          *domain.Order `json:"order"`
	FormattedTotal string        `json:"formatted_total"`
	Payment        BankDetails   `json:"payment"`
	ContactURL     string        `json:"contact_url"`
}

type ConfirmationService struct {
	orders  repository.OrderRepository
	bank    BankDetails
	contact ContactConfig
}

func NewConfirmationService(orders repository.OrderRepository, bank BankDetails, contact ContactConfig) *ConfirmationService {
	return &ConfirmationService{orders: orders, bank: bank, contact: contact}
}

// GetOrder fetches the order once. A missing order is returned as domain.ErrNotFound.
func (s *ConfirmationService) GetOrder(ctx context.Context, id string) (*OrderConfirmation, error) {
	o, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderConfirmation{
		Order:          o,
		FormattedTotal: domain.FormatNaira(o.TotalAmount),
		Payment:        s.bank,
		ContactURL:     s.ContactLink(o.ID),
	}, nil
}

// CopyValue returns the text placed on the clipboard for target. It reads and writes nothing.
func (s *ConfirmationService) CopyValue(orderID, target string) (string, error) {
	switch target {
	case CopyTargetOrderID:
		return orderID, nil
	case CopyTargetBankAccount:
		return s.bank.AccountNumber, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCopyTarget, target)
	}
}

// ContactLink builds the external chat deep link with the order id embedded in the message.
func (s *ConfirmationService) ContactLink(orderID string) string {
	msg := strings.ReplaceAll(s.contact.Message, "{order_id}", orderID)
	// spaces as %20, not +
	text := strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
	return s.contact.URL + "?text=" + text
}
