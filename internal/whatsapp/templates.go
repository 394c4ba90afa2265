package whatsapp

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CartShareLine is one cart line rendered into a share message.
type CartShareLine struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// CartShareMessage renders the default cart sharing text.
func CartShareMessage(lines []CartShareLine, total decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("Hello! I'm interested in these items from AFORSEV:\n\n")
	for i, line := range lines {
		fmt.Fprintf(&b, "%d. %s - $%s x %d\n", i+1, line.Name, line.Price.StringFixed(2), line.Quantity)
	}
	fmt.Fprintf(&b, "\nTotal: $%s\n\nCan you help me with this order?", total.StringFixed(2))
	return b.String()
}

// ProductInquiryMessage renders the default product inquiry text.
func ProductInquiryMessage(name string, price decimal.Decimal, description *string) string {
	var b strings.Builder
	b.WriteString("I'm interested in this product from AFORSEV:\n\n")
	fmt.Fprintf(&b, "%s\n$%s\n", name, price.StringFixed(2))
	if description != nil && *description != "" {
		b.WriteString(*description)
		b.WriteString("\n")
	}
	b.WriteString("\nCan you tell me more about this item?")
	return b.String()
}

// OrderConfirmationMessage renders the order confirmation text.
func OrderConfirmationMessage(orderID string, total decimal.Decimal, status string) string {
	return fmt.Sprintf(
		"Your AFORSEV order #%s has been confirmed!\n\nTotal: $%s\nStatus: %s\n\nThank you for your purchase!",
		orderID, total.StringFixed(2), status,
	)
}

// WelcomeMessage renders the post-registration greeting.
func WelcomeMessage(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Welcome to AFORSEV, %s!\n\nThank you for registering. We're excited to have you as a customer.\n\n"+
			"Here's what you can do:\n"+
			"- Browse our latest tech products\n"+
			"- Get help via WhatsApp anytime\n"+
			"- Track your orders\n"+
			"- Enjoy secure shopping\n\n"+
			"Need help? Just reply to this message!",
		name,
	)
}
