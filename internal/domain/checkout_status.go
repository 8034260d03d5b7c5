package domain

type CheckoutStatus string

const (
	CheckoutStatusLoading      CheckoutStatus = "LOADING"
	CheckoutStatusReady        CheckoutStatus = "READY"
	CheckoutStatusSubmitting   CheckoutStatus = "SUBMITTING"
	CheckoutStatusRedirectCart CheckoutStatus = "REDIRECT_CART"
	CheckoutStatusConfirmed    CheckoutStatus = "REDIRECT_CONFIRMATION"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusLoading:    {CheckoutStatusReady, CheckoutStatusRedirectCart},
	CheckoutStatusReady:      {CheckoutStatusSubmitting},
	CheckoutStatusSubmitting: {CheckoutStatusConfirmed, CheckoutStatusReady},
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusRedirectCart || s == CheckoutStatusConfirmed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
