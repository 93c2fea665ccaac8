// internal/adapters/out/mail/tracking_mailer.go
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	orderdom "ayyooya/internal/domain/order"
)

// EmailClient is the low level transport (SendGrid, a test recorder).
type EmailClient interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// EmailLookup resolves a customer's address from their user id.
type EmailLookup interface {
	EmailOf(ctx context.Context, userID string) (string, error)
}

var ErrNoRecipient = errors.New("mail: customer has no email address")

// TrackingMailer tells a customer that their parcel has a tracking number.
type TrackingMailer struct {
	client      EmailClient
	users       EmailLookup
	fromAddress string
	shopBaseURL string
}

func NewTrackingMailer(client EmailClient, users EmailLookup, fromAddress, shopBaseURL string) *TrackingMailer {
	return &TrackingMailer{
		client:      client,
		users:       users,
		fromAddress: strings.TrimSpace(fromAddress),
		shopBaseURL: strings.TrimRight(strings.TrimSpace(shopBaseURL), "/"),
	}
}

func (m *TrackingMailer) NotifyTrackingAttached(ctx context.Context, o orderdom.Order) error {
	if !o.HasTracking() {
		return orderdom.ErrInvalidTrackingNumber
	}
	to, err := m.users.EmailOf(ctx, o.UserID)
	if err != nil {
		return fmt.Errorf("mail: lookup %s: %w", o.UserID, err)
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}
	subject, body := trackingMessage(o, m.shopBaseURL)
	return m.client.Send(ctx, m.fromAddress, to, subject, body)
}

func trackingMessage(o orderdom.Order, baseURL string) (string, string) {
	subject := fmt.Sprintf("Your order #%s has shipped", o.ID)

	var b strings.Builder
	name := strings.TrimSpace(o.CustomerName)
	if name == "" {
		name = "customer"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Your order #%s is on its way.\n\n", o.ID)
	fmt.Fprintf(&b, "  Tracking number: %s\n", *o.TrackingNumber)
	fmt.Fprintf(&b, "  Ship to        : %s\n\n", strings.TrimSpace(o.Address))
	b.WriteString("Items:\n")
	for _, it := range o.Items {
		line := "  - " + it.Name
		if it.Size != "" {
			line += " (" + it.Size + ")"
		}
		fmt.Fprintf(&b, "%s  %d\n", line, it.Price)
	}
	fmt.Fprintf(&b, "\nTotal: %d\n", o.TotalPrice)
	if baseURL != "" {
		fmt.Fprintf(&b, "\nSee your orders: %s/orders\n", baseURL)
	}
	b.WriteString("\n-- \nAyyooya")
	return subject, b.String()
}
