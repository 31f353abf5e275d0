package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"github.com/NalimovStudio/TraumaBot/app/repository"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/quota"
)

// ErrUserNotFound is returned when a quota operation targets a Telegram
// account that has never contacted the bot.
var ErrUserNotFound = errors.New("subscription: user not found")

// Service owns the lifecycle of a user's subscription state: lazy
// counter resets, admission checks, usage accounting and payment
// confirmations. All billing-relevant writes fail closed: an error
// from this service means the message must be denied, never waved
// through on stale state.
type Service struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	policy   *quota.Policy
	now      func() time.Time
}

// NewService creates a lifecycle service from injected repositories and
// the quota policy.
func NewService(users repository.UserRepository, payments repository.PaymentRepository, policy *quota.Policy) *Service {
	return &Service{
		users:    users,
		payments: payments,
		policy:   policy,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Test seam.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Policy exposes the quota policy for callers that need limit values
// when rendering quota-exceeded responses.
func (s *Service) Policy() *quota.Policy {
	return s.policy
}

// EnsureUser fetches or lazily creates the record for a Telegram
// account. Called by the transport on first contact.
func (s *Service) EnsureUser(telegramID, username, firstName, lastName string) (*models.User, error) {
	return s.users.GetOrCreate(telegramID, username, firstName, lastName)
}

// GetAndNormalize fetches the user, applies stale-counter resets and
// persists the record iff it changed. This is the single entry point
// before any quota decision: checking limits against a record that has
// not passed through here risks deciding on stale counters.
func (s *Service) GetAndNormalize(telegramID string) (*models.User, error) {
	user, err := s.users.GetByTelegramID(telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("fetch user %s: %w", telegramID, err)
	}

	normalized, changed := s.policy.Normalize(*user, s.now())
	if changed {
		if err := s.users.Update(&normalized); err != nil {
			return nil, fmt.Errorf("persist normalized user %s: %w", telegramID, err)
		}
	}
	return &normalized, nil
}

// CheckMessageLimit normalizes the user and runs the admission check.
// The returned user record is the freshly normalized one so callers can
// reuse it without another read.
func (s *Service) CheckMessageLimit(telegramID string) (bool, *models.User, error) {
	user, err := s.GetAndNormalize(telegramID)
	if err != nil {
		return false, nil, err
	}

	if user.Subscription == models.SUBSCRIPTION_STANDARD && !user.HasSubscriptionWindow() {
		log.Warnf("subscription: user %s has standard tier without a term window, denying", telegramID)
		return false, user, nil
	}

	return s.policy.WithinLimit(*user), user, nil
}

// RecordUsage increments the tier-appropriate counter with an atomic
// column update, so concurrent messages from the same account never
// overwrite each other's count. A persistence failure is surfaced; the
// caller decides whether the reply already went out.
func (s *Service) RecordUsage(telegramID string) error {
	user, err := s.users.GetByTelegramID(telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("fetch user %s: %w", telegramID, err)
	}

	switch user.Subscription {
	case models.SUBSCRIPTION_STANDARD:
		err = s.users.IncrementMessagesUsed(telegramID)
	case models.SUBSCRIPTION_FREE:
		err = s.users.IncrementDailyMessagesUsed(telegramID)
	default:
		// Pro is unmetered; nothing to count.
		return nil
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("persist usage for user %s: %w", telegramID, err)
	}
	return nil
}

// ApplyPaymentConfirmation grants the purchased tier: subscription
// start = now, end = now + term months, both counters zeroed. Keyed by
// purchase id and idempotent under at-least-once delivery: a
// confirmation for an already-succeeded purchase is a logged no-op.
func (s *Service) ApplyPaymentConfirmation(purchaseID string) (*models.User, error) {
	payment, err := s.payments.GetByPurchaseID(purchaseID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", purchaseID, err)
	}

	if payment.Status == models.PAYMENT_STATUS_SUCCEEDED {
		log.Infof("subscription: payment %s already applied, skipping", purchaseID)
		return s.users.GetByTelegramID(payment.TelegramID)
	}

	user, err := s.users.GetOrCreate(payment.TelegramID, payment.Username, "", "")
	if err != nil {
		return nil, fmt.Errorf("fetch user %s for payment %s: %w", payment.TelegramID, purchaseID, err)
	}

	now := s.now()
	end := now.AddDate(0, payment.MonthsSub, 0)
	user.Subscription = payment.Subscription
	user.SubscriptionStart = &now
	user.SubscriptionDateEnd = &end
	user.MessagesUsed = 0
	user.DailyMessagesUsed = 0
	user.LastDailyReset = &now

	if err := s.users.Update(user); err != nil {
		return nil, fmt.Errorf("persist subscription grant for user %s: %w", payment.TelegramID, err)
	}

	payment.Status = models.PAYMENT_STATUS_SUCCEEDED
	if err := s.payments.Update(payment); err != nil {
		// The grant itself is durable; a replayed confirmation will
		// re-run the grant from scratch rather than extend it.
		return nil, fmt.Errorf("mark payment %s succeeded: %w", purchaseID, err)
	}

	log.Infof("subscription: payment %s applied, user %s now %s until %s",
		purchaseID, payment.TelegramID, user.Subscription, end.Format(time.RFC3339))
	return user, nil
}

// CompleteDialog bumps the dialogs-completed counters when a support
// session is explicitly closed.
func (s *Service) CompleteDialog(telegramID string) error {
	user, err := s.users.GetByTelegramID(telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	user.DialogsCompleted++
	user.DialogsCompletedToday++
	return s.users.Update(user)
}
