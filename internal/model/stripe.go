package model

import (
	"encoding/json"
	"strings"
)

const EventCheckoutSessionCompleted = "checkout.session.completed"

const (
	MetadataCartID = "cart_id"
	MetadataUserID = "user_id"
)

// StripeEvent is a verified webhook envelope. Object holds the raw
// data.object payload, decoded by the handler for the event type.
type StripeEvent struct {
	ID     string
	Type   string
	Object json.RawMessage
}

type CustomerDetails struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

type TotalDetails struct {
	AmountDiscount *int64 `json:"amount_discount"`
}

// PaymentIntentRef accepts either the bare id or the expanded object.
type PaymentIntentRef struct {
	ID string `json:"id"`
}

func (r *PaymentIntentRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	type alias PaymentIntentRef
	return json.Unmarshal(b, (*alias)(r))
}

// InvoiceRef accepts either the bare id or the expanded object.
type InvoiceRef struct {
	ID               string  `json:"id"`
	HostedInvoiceURL *string `json:"hosted_invoice_url"`
	InvoicePDF       *string `json:"invoice_pdf"`
}

func (r *InvoiceRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	type alias InvoiceRef
	return json.Unmarshal(b, (*alias)(r))
}

type CheckoutSession struct {
	ID                string            `json:"id"`
	Metadata          map[string]string `json:"metadata"`
	ClientReferenceID *string           `json:"client_reference_id"`
	CustomerEmail     *string           `json:"customer_email"`
	CustomerDetails   *CustomerDetails  `json:"customer_details"`
	AmountTotal       *int64            `json:"amount_total"`
	Currency          *string           `json:"currency"`
	PaymentIntent     *PaymentIntentRef `json:"payment_intent"`
	Invoice           *InvoiceRef       `json:"invoice"`
	TotalDetails      *TotalDetails     `json:"total_details"`
}

func (s *CheckoutSession) CartID() string {
	return s.Metadata[MetadataCartID]
}

func (s *CheckoutSession) UserID() string {
	return s.Metadata[MetadataUserID]
}

// BuyerEmail prefers the email collected on the Stripe page over the one we prefilled.
func (s *CheckoutSession) BuyerEmail() string {
	if s.CustomerDetails != nil && s.CustomerDetails.Email != nil && *s.CustomerDetails.Email != "" {
		return *s.CustomerDetails.Email
	}
	if s.CustomerEmail != nil {
		return *s.CustomerEmail
	}
	return ""
}

func (s *CheckoutSession) BuyerName() string {
	if s.CustomerDetails != nil && s.CustomerDetails.Name != nil {
		return *s.CustomerDetails.Name
	}
	return ""
}

func (s *CheckoutSession) DiscountCents() int64 {
	if s.TotalDetails != nil && s.TotalDetails.AmountDiscount != nil {
		return *s.TotalDetails.AmountDiscount
	}
	return 0
}

func (s *CheckoutSession) PaymentIntentID() *string {
	if s.PaymentIntent == nil || s.PaymentIntent.ID == "" {
		return nil
	}
	id := s.PaymentIntent.ID
	return &id
}

// ReceiptURL is only known when the invoice was expanded in the event.
func (s *CheckoutSession) ReceiptURL() *string {
	if s.Invoice == nil {
		return nil
	}
	if s.Invoice.HostedInvoiceURL != nil {
		return s.Invoice.HostedInvoiceURL
	}
	return s.Invoice.InvoicePDF
}

func (s *CheckoutSession) UpperCurrency() string {
	if s.Currency == nil {
		return ""
	}
	return strings.ToUpper(*s.Currency)
}
