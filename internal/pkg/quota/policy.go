package quota

import (
	"time"

	"github.com/NalimovStudio/TraumaBot/app/models"
)

// Limits carries the configured quota bounds. FreeDaily caps messages
// per UTC day on the free tier; StandardMonthly caps messages per
// subscription month on the standard tier. Pro is unlimited.
type Limits struct {
	FreeDaily       int
	StandardMonthly int
}

// Policy is the pure admission-control core. It never touches storage:
// Normalize and RecordUsage return updated copies and the caller
// decides whether to persist them.
type Policy struct {
	limits Limits
}

// NewPolicy creates a quota policy with the given limits.
func NewPolicy(limits Limits) *Policy {
	return &Policy{limits: limits}
}

// Limits returns the configured bounds.
func (p *Policy) Limits() Limits {
	return p.limits
}

// Normalize applies lazy resets to stale counter state: an expired paid
// subscription collapses to the free tier with zeroed counters, and a
// free user's daily counter resets once a day has passed since the last
// reset. The returned flag tells the caller whether the record changed
// and needs persisting.
func (p *Policy) Normalize(user models.User, now time.Time) (models.User, bool) {
	changed := false

	if user.IsPaid() && user.SubscriptionDateEnd != nil && now.After(*user.SubscriptionDateEnd) {
		user.Subscription = models.SUBSCRIPTION_FREE
		user.SubscriptionStart = nil
		user.SubscriptionDateEnd = nil
		user.MessagesUsed = 0
		user.DailyMessagesUsed = 0
		reset := now
		user.LastDailyReset = &reset
		changed = true
	}

	if !user.IsPaid() {
		if user.LastDailyReset == nil || now.Sub(*user.LastDailyReset) >= 24*time.Hour {
			user.DailyMessagesUsed = 0
			reset := now
			user.LastDailyReset = &reset
			changed = true
		}
	}

	return user, changed
}

// WithinLimit reports whether the user may send another message. The
// caller must Normalize first; checking a stale record admits messages
// against counters that should already have been reset.
func (p *Policy) WithinLimit(user models.User) bool {
	switch user.Subscription {
	case models.SUBSCRIPTION_PRO:
		return true
	case models.SUBSCRIPTION_STANDARD:
		// A standard tier without a recorded term is a data-integrity
		// bug; fail closed rather than hand out quota.
		if !user.HasSubscriptionWindow() {
			return false
		}
		return user.MessagesUsed < p.StandardLimit(user)
	default:
		return user.DailyMessagesUsed < p.limits.FreeDaily
	}
}

// StandardLimit returns the message cap for a standard user's whole
// term: the monthly limit times the term length in months, partial
// months rounding up, never less than one month.
func (p *Policy) StandardLimit(user models.User) int {
	if !user.HasSubscriptionWindow() {
		return 0
	}
	months := monthsInTerm(*user.SubscriptionStart, *user.SubscriptionDateEnd)
	if months < 1 {
		months = 1
	}
	return p.limits.StandardMonthly * months
}

// RecordUsage increments the counter the user's tier is billed against.
// Pro has no counter and passes through untouched.
func (p *Policy) RecordUsage(user models.User) models.User {
	switch user.Subscription {
	case models.SUBSCRIPTION_STANDARD:
		user.MessagesUsed++
	case models.SUBSCRIPTION_FREE:
		user.DailyMessagesUsed++
	}
	return user
}

// monthsInTerm counts the calendar months between start and end,
// rounding any partial trailing month up.
func monthsInTerm(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	months := 0
	cursor := start
	for {
		next := cursor.AddDate(0, 1, 0)
		if next.After(end) {
			break
		}
		months++
		cursor = next
	}
	if cursor.Before(end) {
		months++
	}
	return months
}
