package service

import (
	"bytes"
	"context"
	"coursecart/internal/client"
	"coursecart/internal/currency"
	"coursecart/internal/metrics"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/receipt.html
var templateFS embed.FS

var receiptTemplate = template.Must(template.ParseFS(templateFS, "templates/receipt.html"))

type ReceiptItem struct {
	Name           string
	Description    string
	AccessURL      string
	Quantity       int32
	UnitPriceCents int64
}

type Receipt struct {
	OrderID      string
	To           string
	BuyerName    string
	Currency     string
	Locale       string // empty picks en-US for USD, es-ES otherwise
	SupportEmail string
	// optional note appended below the totals
	CustomMessage string

	Items         []ReceiptItem
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
}

type ReceiptService interface {
	Render(receipt *Receipt) (string, error)
	Send(ctx context.Context, receipt *Receipt) error
}

type receiptServiceImpl struct {
	mailClient   client.MailClient
	supportEmail string
	message      string
	metrics      *metrics.Metrics
}

// NewReceiptService renders message below the totals of every receipt that
// carries no CustomMessage of its own.
func NewReceiptService(mailClient client.MailClient, supportEmail, message string, m *metrics.Metrics) ReceiptService {
	return &receiptServiceImpl{
		mailClient:   mailClient,
		supportEmail: supportEmail,
		message:      message,
		metrics:      m,
	}
}

type receiptView struct {
	OrderID       string
	BuyerName     string
	SupportEmail  string
	CustomMessage string
	Items         []receiptItemView
	Subtotal      string
	Discount      string
	Total         string
}

type receiptItemView struct {
	Name        string
	Description string
	AccessURL   string
	Quantity    int32
	Price       string
}

func (s *receiptServiceImpl) Render(receipt *Receipt) (string, error) {
	locale := receipt.Locale
	if locale == "" {
		locale = currency.LocaleFor(receipt.Currency)
	}
	format := func(cents int64) string {
		return currency.MustFormat(cents, receipt.Currency, locale)
	}

	view := receiptView{
		OrderID:       receipt.OrderID,
		BuyerName:     receipt.BuyerName,
		SupportEmail:  receipt.SupportEmail,
		CustomMessage: receipt.CustomMessage,
		Subtotal:      format(receipt.SubtotalCents),
		Total:         format(receipt.TotalCents),
	}
	if view.SupportEmail == "" {
		view.SupportEmail = s.supportEmail
	}
	if view.CustomMessage == "" {
		view.CustomMessage = s.message
	}
	if receipt.DiscountCents > 0 {
		view.Discount = format(receipt.DiscountCents)
	}
	for _, item := range receipt.Items {
		accessURL := item.AccessURL
		if accessURL == "" {
			accessURL = "#"
		}
		view.Items = append(view.Items, receiptItemView{
			Name:        item.Name,
			Description: item.Description,
			AccessURL:   accessURL,
			Quantity:    item.Quantity,
			Price:       format(int64(item.Quantity) * item.UnitPriceCents),
		})
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}

func (s *receiptServiceImpl) Send(ctx context.Context, receipt *Receipt) error {
	html, err := s.Render(receipt)
	if err != nil {
		s.metrics.ReceiptsSent.WithLabelValues("render_failed").Inc()
		return err
	}

	_, err = s.mailClient.Send(ctx, &client.Email{
		To:      receipt.To,
		Subject: ReceiptSubject(receipt.OrderID),
		HTML:    html,
	})
	if err != nil {
		s.metrics.ReceiptsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: send receipt: %v", ErrUpstreamProvider, err)
	}

	s.metrics.ReceiptsSent.WithLabelValues("sent").Inc()
	return nil
}

func ReceiptSubject(orderID string) string {
	return fmt.Sprintf("Tu recibo #%s", orderID)
}
