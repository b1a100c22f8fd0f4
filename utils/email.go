package utils

import (
	"fmt"
	"strings"

	"go-storefront/models"

	"github.com/keighl/postmark"
)

// EmailService handles sending emails using Postmark
type EmailService struct {
	client *postmark.Client
	sender string
}

// NewEmailService initializes and returns a new EmailService instance
func NewEmailService(apiToken, sender string) (*EmailService, error) {
	if apiToken == "" {
		return nil, fmt.Errorf("postmark api token is not set")
	}
	return &EmailService{
		client: postmark.NewClient(apiToken, ""),
		sender: sender,
	}, nil
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(toEmail, subject, htmlContent string) error {
	_, err := es.client.SendEmail(postmark.Email{
		From:     es.sender,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendOrderConfirmation sends an order confirmation email to the customer
func (es *EmailService) SendOrderConfirmation(order models.Order) error {
	return es.SendEmail(order.Customer.Email, "Order Confirmation", OrderConfirmationHTML(order))
}

// OrderConfirmationHTML renders the body of the order confirmation email
func OrderConfirmationHTML(order models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<strong>Dear %s,</strong><br><br>Thank you for your purchase! Your order (ID: %s) has been placed successfully.<br><br>",
		order.Customer.FullName(), order.ID)
	b.WriteString("<ul>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<li>%d &times; %s &mdash; %s TND</li>", item.Quantity, item.Name, item.UnitPrice.StringFixed(3))
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "Subtotal: %s TND<br>Shipping: %s TND<br>Fiscal stamp: %s TND<br>",
		order.Subtotal.StringFixed(3), order.ShippingCost.StringFixed(3), order.FiscalStamp.StringFixed(3))
	fmt.Fprintf(&b, "Total Amount: <strong>%s TND</strong><br>Delivery: <strong>%s</strong><br>Payment Method: <strong>%s</strong><br><br>Thank you for shopping with us!",
		order.TotalAmount.StringFixed(3), order.Fulfillment, order.PaymentMethod)
	return b.String()
}
