package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var nairaPrinter = message.NewPrinter(language.English)

// FormatNaira renders an amount as ₦1,234.50.
func FormatNaira(amount float64) string {
	return "₦" + nairaPrinter.Sprintf("%.2f", amount)
}
