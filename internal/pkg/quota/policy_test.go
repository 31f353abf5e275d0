package quota

import (
	"testing"
	"time"

	"github.com/NalimovStudio/TraumaBot/app/models"
)

var testLimits = Limits{FreeDaily: 5, StandardMonthly: 1000}

func freeUser(daily int, lastReset *time.Time) models.User {
	return models.User{
		TelegramID:        "42",
		Subscription:      models.SUBSCRIPTION_FREE,
		DailyMessagesUsed: daily,
		LastDailyReset:    lastReset,
	}
}

func standardUser(used int, start, end time.Time) models.User {
	return models.User{
		TelegramID:          "42",
		Subscription:        models.SUBSCRIPTION_STANDARD,
		MessagesUsed:        used,
		SubscriptionStart:   &start,
		SubscriptionDateEnd: &end,
	}
}

func TestRecordUsageMonotonic(t *testing.T) {
	p := NewPolicy(testLimits)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := freeUser(0, &now)
	for i := 0; i < 7; i++ {
		user = p.RecordUsage(user)
	}
	if user.DailyMessagesUsed != 7 {
		t.Fatalf("daily counter = %d after 7 increments, want 7", user.DailyMessagesUsed)
	}

	std := standardUser(0, now, now.AddDate(0, 1, 0))
	for i := 0; i < 3; i++ {
		std = p.RecordUsage(std)
	}
	if std.MessagesUsed != 3 {
		t.Fatalf("period counter = %d after 3 increments, want 3", std.MessagesUsed)
	}

	pro := models.User{Subscription: models.SUBSCRIPTION_PRO}
	pro = p.RecordUsage(pro)
	if pro.MessagesUsed != 0 || pro.DailyMessagesUsed != 0 {
		t.Fatalf("pro counters moved: %+v", pro)
	}
}

func TestNormalizeDailyResetIdempotent(t *testing.T) {
	p := NewPolicy(testLimits)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	user := freeUser(3, nil)
	user, changed := p.Normalize(user, now)
	if !changed {
		t.Fatal("expected first normalize to reset the unset daily counter")
	}
	if user.DailyMessagesUsed != 0 {
		t.Fatalf("daily counter = %d, want 0", user.DailyMessagesUsed)
	}
	if user.LastDailyReset == nil || !user.LastDailyReset.Equal(now) {
		t.Fatalf("last daily reset = %v, want %v", user.LastDailyReset, now)
	}

	// Same instant again: nothing to do.
	user.DailyMessagesUsed = 2
	again, changed := p.Normalize(user, now)
	if changed {
		t.Fatal("expected second normalize within the same day to be a no-op")
	}
	if again.DailyMessagesUsed != 2 {
		t.Fatalf("daily counter = %d, want 2", again.DailyMessagesUsed)
	}
	if !again.LastDailyReset.Equal(now) {
		t.Fatalf("last daily reset moved to %v", again.LastDailyReset)
	}
}

func TestNormalizeDailyResetAfterOneDay(t *testing.T) {
	p := NewPolicy(testLimits)
	yesterday := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := yesterday.Add(24 * time.Hour)

	user := freeUser(5, &yesterday)
	user, changed := p.Normalize(user, now)
	if !changed {
		t.Fatal("expected normalize to reset after a full day")
	}
	if user.DailyMessagesUsed != 0 {
		t.Fatalf("daily counter = %d, want 0", user.DailyMessagesUsed)
	}
}

func TestNormalizeExpiredTierResets(t *testing.T) {
	p := NewPolicy(testLimits)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)

	for _, tier := range []string{models.SUBSCRIPTION_STANDARD, models.SUBSCRIPTION_PRO} {
		user := models.User{
			Subscription:        tier,
			SubscriptionStart:   &start,
			SubscriptionDateEnd: &end,
			MessagesUsed:        2999,
			DailyMessagesUsed:   4,
		}
		user, changed := p.Normalize(user, now)
		if !changed {
			t.Fatalf("tier %s: expected expiry to mark the record changed", tier)
		}
		if user.Subscription != models.SUBSCRIPTION_FREE {
			t.Fatalf("tier %s: subscription = %s, want free", tier, user.Subscription)
		}
		if user.SubscriptionStart != nil || user.SubscriptionDateEnd != nil {
			t.Fatalf("tier %s: term boundaries not cleared", tier)
		}
		if user.MessagesUsed != 0 || user.DailyMessagesUsed != 0 {
			t.Fatalf("tier %s: counters not zeroed: %+v", tier, user)
		}
	}
}

func TestNormalizeActiveSubscriptionUntouched(t *testing.T) {
	p := NewPolicy(testLimits)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

	user := standardUser(500, start, end)
	got, changed := p.Normalize(user, now)
	if changed {
		t.Fatal("active subscription should not be modified")
	}
	if got.MessagesUsed != 500 || got.Subscription != models.SUBSCRIPTION_STANDARD {
		t.Fatalf("record changed unexpectedly: %+v", got)
	}
}

func TestWithinLimitFreeDaily(t *testing.T) {
	p := NewPolicy(testLimits)
	now := time.Now().UTC()

	// Scenario: five allowed, sixth denied, next day allowed again.
	user := freeUser(0, &now)
	for i := 0; i < testLimits.FreeDaily; i++ {
		if !p.WithinLimit(user) {
			t.Fatalf("message %d should be admitted", i+1)
		}
		user = p.RecordUsage(user)
	}
	if p.WithinLimit(user) {
		t.Fatal("sixth message of the day should be denied")
	}

	nextDay := now.Add(25 * time.Hour)
	user, _ = p.Normalize(user, nextDay)
	if !p.WithinLimit(user) {
		t.Fatal("first message of the next day should be admitted")
	}
}

func TestWithinLimitStandardTerm(t *testing.T) {
	p := NewPolicy(testLimits)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	user := standardUser(2999, start, end)
	if got := p.StandardLimit(user); got != 3000 {
		t.Fatalf("limit = %d, want 3000 for a three-month term", got)
	}
	if !p.WithinLimit(user) {
		t.Fatal("user at 2999/3000 should be admitted")
	}

	user.MessagesUsed = 3000
	if p.WithinLimit(user) {
		t.Fatal("user at 3000/3000 should be denied")
	}
}

func TestWithinLimitStandardMissingTermFailsClosed(t *testing.T) {
	p := NewPolicy(testLimits)

	user := models.User{Subscription: models.SUBSCRIPTION_STANDARD, MessagesUsed: 0}
	if p.WithinLimit(user) {
		t.Fatal("standard user without a recorded term must be denied")
	}
}

func TestWithinLimitProUnlimited(t *testing.T) {
	p := NewPolicy(testLimits)

	user := models.User{Subscription: models.SUBSCRIPTION_PRO, MessagesUsed: 1 << 20}
	if !p.WithinLimit(user) {
		t.Fatal("pro tier must always be admitted")
	}
}

func TestMonthsInTerm(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{
			name:  "exact three months",
			start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			want:  3,
		},
		{
			name:  "one month",
			start: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "partial month rounds up",
			start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
			want:  2,
		},
		{
			name:  "less than a month",
			start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "year term",
			start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  12,
		},
		{
			name:  "end before start",
			start: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  0,
		},
	}

	for _, tt := range tests {
		if got := monthsInTerm(tt.start, tt.end); got != tt.want {
			t.Fatalf("%s: monthsInTerm = %d, want %d", tt.name, got, tt.want)
		}
	}
}
