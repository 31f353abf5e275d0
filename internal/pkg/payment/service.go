package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"github.com/NalimovStudio/TraumaBot/app/repository"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/env"
)

const providerStripe = "stripe"

var (
	// ErrNotConfigured means STRIPE_SECRET_KEY is missing; checkout is
	// disabled but the rest of the bot keeps working.
	ErrNotConfigured = errors.New("payment: stripe not configured")
	// ErrUnknownPlan marks a purchase request for a tier/term combination
	// the bot does not sell.
	ErrUnknownPlan = errors.New("payment: unknown plan")
	// ErrInvalidSignature marks a webhook whose signature did not verify.
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
)

// Confirmer is the subscription-lifecycle surface the webhook needs.
type Confirmer interface {
	ApplyPaymentConfirmation(purchaseID string) (*models.User, error)
}

// Service creates checkout sessions and processes provider webhooks.
// Webhook handling is idempotent twice over: a dedup row per provider
// event id, and the purchase-status gate inside the lifecycle service.
type Service struct {
	payments      repository.PaymentRepository
	lifecycle     Confirmer
	sc            *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewService wires the payment service against an initialized Stripe
// client. sc may be nil when checkout is disabled.
func NewService(payments repository.PaymentRepository, lifecycle Confirmer, sc *client.API, webhookSecret, successURL, cancelURL string) *Service {
	return &Service{
		payments:      payments,
		lifecycle:     lifecycle,
		sc:            sc,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

// NewServiceFromEnv builds the service from STRIPE_* env vars. Returns
// a service with checkout disabled when no secret key is set.
func NewServiceFromEnv(payments repository.PaymentRepository, lifecycle Confirmer) *Service {
	key := env.GetEnv("STRIPE_SECRET_KEY", "")
	var sc *client.API
	if key != "" {
		sc = &client.API{}
		sc.Init(key, nil)
	} else {
		log.Warn("payment: STRIPE_SECRET_KEY not set, checkout disabled")
	}
	return NewService(
		payments,
		lifecycle,
		sc,
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		env.GetEnv("STRIPE_SUCCESS_URL", "https://t.me/"+env.GetEnv("TELEGRAM_BOT_USERNAME", "")),
		env.GetEnv("STRIPE_CANCEL_URL", "https://t.me/"+env.GetEnv("TELEGRAM_BOT_USERNAME", "")),
	)
}

// Enabled reports whether checkout creation is available.
func (s *Service) Enabled() bool {
	return s.sc != nil
}

// CreateCharge opens a checkout session for a plan and records a
// pending payment keyed by the session id. The returned log row carries
// the payment URL for the user and the purchase id the webhook will
// confirm against.
func (s *Service) CreateCharge(telegramID, username, tier string, months int) (*models.PaymentLog, error) {
	if s.sc == nil {
		return nil, ErrNotConfigured
	}
	plan, ok := PlanFor(tier, months)
	if !ok {
		return nil, fmt.Errorf("%w: %s for %d month(s)", ErrUnknownPlan, tier, months)
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("rub"),
				UnitAmount: stripe.Int64(plan.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(plan.Description()),
				},
			},
		}},
		Metadata: map[string]string{
			"telegram_id":  telegramID,
			"subscription": plan.Tier,
			"months":       fmt.Sprintf("%d", plan.Months),
		},
	}

	sess, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	payment := &models.PaymentLog{
		PurchaseID:   sess.ID,
		TelegramID:   telegramID,
		Username:     username,
		Amount:       plan.Amount,
		Currency:     "rub",
		MonthsSub:    plan.Months,
		Subscription: plan.Tier,
		Status:       models.PAYMENT_STATUS_PENDING,
		Link:         sess.URL,
		Description:  plan.Description(),
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, fmt.Errorf("record pending payment %s: %w", sess.ID, err)
	}

	log.Infof("payment: checkout %s opened for user %s (%s, %d months)",
		sess.ID, telegramID, plan.Tier, plan.Months)
	return payment, nil
}

// ProcessWebhook verifies, deduplicates and applies one provider event.
// At-least-once delivery is expected: a replay of a successfully
// processed event id is a logged no-op, a replay after a processing
// failure retries, and the confirmation itself is additionally gated
// by the purchase status.
func (s *Service) ProcessWebhook(payload []byte, signature string) error {
	var event stripe.Event
	if s.webhookSecret != "" {
		verified, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		event = verified
	} else if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("parse webhook payload: %w", err)
	}

	created, record, err := s.payments.CreateWebhookEventIfNotExists(&models.PaymentWebhookEvent{
		Provider:        providerStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  s.webhookSecret != "",
	})
	if err != nil {
		return fmt.Errorf("record webhook event %s: %w", event.ID, err)
	}
	if !created {
		// Skip only events that finished cleanly. A redelivery of an
		// event whose processing failed (or never completed) runs
		// again; the purchase-status gate keeps the re-run idempotent.
		if record.ProcessedAt != nil && record.ProcessingError == "" {
			log.Infof("payment: webhook event %s already processed, skipping", event.ID)
			return nil
		}
		log.Warnf("payment: webhook event %s redelivered after incomplete processing, retrying", event.ID)
	}

	processingErr := s.applyEvent(event)

	errText := ""
	if processingErr != nil {
		errText = processingErr.Error()
	}
	if err := s.payments.MarkWebhookProcessed(record.ID, errText); err != nil {
		log.Errorf("payment: mark webhook %s processed failed: %v", event.ID, err)
	}
	return processingErr
}

func (s *Service) applyEvent(event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("parse checkout session from event %s: %w", event.ID, err)
		}
		if _, err := s.lifecycle.ApplyPaymentConfirmation(sess.ID); err != nil {
			return fmt.Errorf("apply confirmation for purchase %s: %w", sess.ID, err)
		}
		return nil

	case "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("parse checkout session from event %s: %w", event.ID, err)
		}
		return s.cancelPending(sess.ID)

	default:
		log.Debugf("payment: ignoring webhook event type %s", event.Type)
		return nil
	}
}

func (s *Service) cancelPending(purchaseID string) error {
	payment, err := s.payments.GetByPurchaseID(purchaseID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", purchaseID, err)
	}
	if payment.Status != models.PAYMENT_STATUS_PENDING {
		return nil
	}
	payment.Status = models.PAYMENT_STATUS_CANCELED
	if err := s.payments.Update(payment); err != nil {
		return fmt.Errorf("cancel payment %s: %w", purchaseID, err)
	}
	log.Infof("payment: checkout %s expired, marked canceled", purchaseID)
	return nil
}
