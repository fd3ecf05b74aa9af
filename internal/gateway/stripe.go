package gateway

import (
	"context"
	"encoding/json"
	"os"

	"backend/pkg/apperr"
	"backend/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/webhook"
)

// CheckoutParams describes a one-off payment to collect.
type CheckoutParams struct {
	ClientEmail string
	Description string
	Amount      decimal.Decimal // Major currency units
	Currency    string
	Reference   string // Pending payment id, carried through metadata
	InvoiceNo   string // Optional invoice linkage
}

// CheckoutSession is the provider-issued redirect target for a checkout.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentEvent is a verified, normalized webhook notification.
type PaymentEvent struct {
	Type        string
	SessionID   string
	ClientEmail string
	Reference   string
	InvoiceNo   string
}

// Payment event types surfaced to callers
const (
	EventCheckoutCompleted = "checkout.session.completed"
)

// Gateway adapts the payment processor: checkout session creation and
// webhook event verification.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*PaymentEvent, error)
}

// Config holds payment provider credentials.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// ConfigFromEnv reads Stripe settings from the environment.
func ConfigFromEnv() Config {
	cfg := Config{
		SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SuccessURL:    os.Getenv("STRIPE_SUCCESS_URL"),
		CancelURL:     os.Getenv("STRIPE_CANCEL_URL"),
	}
	if cfg.SuccessURL == "" {
		cfg.SuccessURL = "http://localhost:5173/payment/success"
	}
	if cfg.CancelURL == "" {
		cfg.CancelURL = "http://localhost:5173/payment/cancelled"
	}
	return cfg
}

type stripeGateway struct {
	cfg Config
	log zerolog.Logger
}

// NewStripeGateway configures the Stripe client and returns the adapter.
func NewStripeGateway(cfg Config) Gateway {
	stripe.Key = cfg.SecretKey
	return &stripeGateway{cfg: cfg, log: logger.WithComponent("gateway")}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}

	cents := params.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(params.ClientEmail),
		SuccessURL:    stripe.String(g.cfg.SuccessURL),
		CancelURL:     stripe.String(g.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(cents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(params.Description),
					},
				},
			},
		},
	}
	sessionParams.Context = ctx
	sessionParams.AddMetadata("reference", params.Reference)
	if params.InvoiceNo != "" {
		sessionParams.AddMetadata("invoice_no", params.InvoiceNo)
	}

	s, err := session.New(sessionParams)
	if err != nil {
		g.log.Error().Err(err).Str("client_email", params.ClientEmail).Msg("checkout session creation failed")
		return nil, apperr.Wrap(apperr.Delivery, err, "failed to create checkout session")
	}

	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *stripeGateway) ParseWebhook(payload []byte, signature string) (*PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.cfg.WebhookSecret)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "invalid webhook signature")
	}

	switch event.Type {
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, apperr.Wrap(apperr.Validation, err, "malformed checkout session payload")
		}
		pe := &PaymentEvent{
			Type:      EventCheckoutCompleted,
			SessionID: cs.ID,
			Reference: cs.Metadata["reference"],
			InvoiceNo: cs.Metadata["invoice_no"],
		}
		if cs.CustomerDetails != nil {
			pe.ClientEmail = cs.CustomerDetails.Email
		}
		return pe, nil
	default:
		// Other event types are acknowledged but not acted on.
		return &PaymentEvent{Type: string(event.Type)}, nil
	}
}
