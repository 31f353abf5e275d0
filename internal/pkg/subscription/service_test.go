package subscription

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/quota"
)

type fakeUserRepo struct {
	users     map[string]*models.User
	updateErr error
	updates   int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		copied := *u
		repo.users[u.TelegramID] = &copied
	}
	return repo
}

func (r *fakeUserRepo) Create(user *models.User) error {
	copied := *user
	r.users[user.TelegramID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByTelegramID(telegramID string) (*models.User, error) {
	u, ok := r.users[telegramID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetOrCreate(telegramID, username, firstName, lastName string) (*models.User, error) {
	if u, ok := r.users[telegramID]; ok {
		copied := *u
		return &copied, nil
	}
	u, err := models.NewUser(telegramID, username, firstName, lastName)
	if err != nil {
		return nil, err
	}
	copied := *u
	r.users[telegramID] = &copied
	return u, nil
}

func (r *fakeUserRepo) Update(user *models.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	copied := *user
	r.users[user.TelegramID] = &copied
	r.updates++
	return nil
}

func (r *fakeUserRepo) IncrementDailyMessagesUsed(telegramID string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.users[telegramID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.DailyMessagesUsed++
	return nil
}

func (r *fakeUserRepo) IncrementMessagesUsed(telegramID string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.users[telegramID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.MessagesUsed++
	return nil
}

func (r *fakeUserRepo) List(offset, limit int) ([]models.User, error) { return nil, nil }
func (r *fakeUserRepo) Count() (int64, error)                         { return int64(len(r.users)), nil }

type fakePaymentRepo struct {
	payments map[string]*models.PaymentLog
}

func newFakePaymentRepo(payments ...*models.PaymentLog) *fakePaymentRepo {
	repo := &fakePaymentRepo{payments: make(map[string]*models.PaymentLog)}
	for _, p := range payments {
		copied := *p
		repo.payments[p.PurchaseID] = &copied
	}
	return repo
}

func (r *fakePaymentRepo) Create(payment *models.PaymentLog) error {
	copied := *payment
	r.payments[payment.PurchaseID] = &copied
	return nil
}

func (r *fakePaymentRepo) GetByPurchaseID(purchaseID string) (*models.PaymentLog, error) {
	p, ok := r.payments[purchaseID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePaymentRepo) Update(payment *models.PaymentLog) error {
	copied := *payment
	r.payments[payment.PurchaseID] = &copied
	return nil
}

func (r *fakePaymentRepo) ListByTelegramID(telegramID string) ([]models.PaymentLog, error) {
	return nil, nil
}

func (r *fakePaymentRepo) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	return true, event, nil
}

func (r *fakePaymentRepo) MarkWebhookProcessed(id uint, processingError string) error { return nil }

func testService(users *fakeUserRepo, payments *fakePaymentRepo, now time.Time) *Service {
	policy := quota.NewPolicy(quota.Limits{FreeDaily: 5, StandardMonthly: 1000})
	return NewService(users, payments, policy).WithClock(func() time.Time { return now })
}

func TestGetAndNormalizePersistsOnlyWhenChanged(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := newFakeUserRepo(&models.User{
		TelegramID:        "42",
		Subscription:      models.SUBSCRIPTION_FREE,
		DailyMessagesUsed: 3,
	})
	svc := testService(users, newFakePaymentRepo(), now)

	user, err := svc.GetAndNormalize("42")
	require.NoError(t, err)
	assert.Equal(t, 0, user.DailyMessagesUsed)
	assert.Equal(t, 1, users.updates, "unset daily reset must be persisted")

	_, err = svc.GetAndNormalize("42")
	require.NoError(t, err)
	assert.Equal(t, 1, users.updates, "unchanged record must not be re-persisted")
}

func TestGetAndNormalizeUnknownUser(t *testing.T) {
	svc := testService(newFakeUserRepo(), newFakePaymentRepo(), time.Now())

	_, err := svc.GetAndNormalize("404")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetAndNormalizeFailsClosedOnWriteError(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := newFakeUserRepo(&models.User{
		TelegramID:   "42",
		Subscription: models.SUBSCRIPTION_FREE,
	})
	users.updateErr = errors.New("connection reset")
	svc := testService(users, newFakePaymentRepo(), now)

	_, err := svc.GetAndNormalize("42")
	assert.Error(t, err, "a failed quota-state write must not let the message through")
}

func TestCheckMessageLimitDeniesStandardWithoutTerm(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := newFakeUserRepo(&models.User{
		TelegramID:   "42",
		Subscription: models.SUBSCRIPTION_STANDARD,
	})
	svc := testService(users, newFakePaymentRepo(), now)

	ok, _, err := svc.CheckMessageLimit("42")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordUsageIncrementsTierCounter(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	start := now.AddDate(0, -1, 0)
	end := now.AddDate(0, 2, 0)
	users := newFakeUserRepo(
		&models.User{TelegramID: "free", Subscription: models.SUBSCRIPTION_FREE, LastDailyReset: &now},
		&models.User{TelegramID: "std", Subscription: models.SUBSCRIPTION_STANDARD, SubscriptionStart: &start, SubscriptionDateEnd: &end},
		&models.User{TelegramID: "pro", Subscription: models.SUBSCRIPTION_PRO},
	)
	svc := testService(users, newFakePaymentRepo(), now)

	require.NoError(t, svc.RecordUsage("free"))
	require.NoError(t, svc.RecordUsage("std"))
	require.NoError(t, svc.RecordUsage("pro"))

	free, _ := users.GetByTelegramID("free")
	std, _ := users.GetByTelegramID("std")
	pro, _ := users.GetByTelegramID("pro")
	assert.Equal(t, 1, free.DailyMessagesUsed)
	assert.Equal(t, 0, free.MessagesUsed)
	assert.Equal(t, 1, std.MessagesUsed)
	assert.Equal(t, 0, std.DailyMessagesUsed)
	assert.Equal(t, 0, pro.MessagesUsed, "pro usage is unmetered")
	assert.Equal(t, 0, users.updates,
		"usage accounting must go through the atomic increments, not a full-record save")
}

func TestApplyPaymentConfirmationGrantsTier(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := newFakeUserRepo(&models.User{
		TelegramID:        "42",
		Subscription:      models.SUBSCRIPTION_FREE,
		DailyMessagesUsed: 4,
	})
	payments := newFakePaymentRepo(&models.PaymentLog{
		PurchaseID:   "pay-1",
		TelegramID:   "42",
		MonthsSub:    3,
		Subscription: models.SUBSCRIPTION_STANDARD,
		Status:       models.PAYMENT_STATUS_PENDING,
	})
	svc := testService(users, payments, now)

	user, err := svc.ApplyPaymentConfirmation("pay-1")
	require.NoError(t, err)

	assert.Equal(t, models.SUBSCRIPTION_STANDARD, user.Subscription)
	require.NotNil(t, user.SubscriptionStart)
	require.NotNil(t, user.SubscriptionDateEnd)
	assert.True(t, user.SubscriptionStart.Equal(now))
	assert.True(t, user.SubscriptionDateEnd.Equal(now.AddDate(0, 3, 0)))
	assert.Equal(t, 0, user.MessagesUsed)
	assert.Equal(t, 0, user.DailyMessagesUsed)

	stored, err := payments.GetByPurchaseID("pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_STATUS_SUCCEEDED, stored.Status)
}

func TestApplyPaymentConfirmationIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := newFakeUserRepo(&models.User{TelegramID: "42", Subscription: models.SUBSCRIPTION_FREE})
	payments := newFakePaymentRepo(&models.PaymentLog{
		PurchaseID:   "pay-1",
		TelegramID:   "42",
		MonthsSub:    1,
		Subscription: models.SUBSCRIPTION_PRO,
		Status:       models.PAYMENT_STATUS_PENDING,
	})
	svc := testService(users, payments, now)

	first, err := svc.ApplyPaymentConfirmation("pay-1")
	require.NoError(t, err)

	// Simulate at-least-once delivery: the same confirmation arrives
	// again later. The term must not be extended.
	later := testService(users, payments, now.Add(48*time.Hour))
	second, err := later.ApplyPaymentConfirmation("pay-1")
	require.NoError(t, err)

	assert.Equal(t, first.Subscription, second.Subscription)
	assert.True(t, second.SubscriptionDateEnd.Equal(*first.SubscriptionDateEnd),
		"replayed confirmation must not move the subscription end")
	assert.Equal(t, 0, second.MessagesUsed)
}

func TestCompleteDialogBumpsCounters(t *testing.T) {
	users := newFakeUserRepo(&models.User{TelegramID: "42", DialogsCompleted: 5, DialogsCompletedToday: 1})
	svc := testService(users, newFakePaymentRepo(), time.Now())

	require.NoError(t, svc.CompleteDialog("42"))

	user, _ := users.GetByTelegramID("42")
	assert.Equal(t, 6, user.DialogsCompleted)
	assert.Equal(t, 2, user.DialogsCompletedToday)
}
