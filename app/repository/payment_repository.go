package repository

import (
	"errors"
	"time"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create stores a new pending payment log
func (r *paymentRepository) Create(payment *models.PaymentLog) error {
	return r.db.Create(payment).Error
}

// GetByPurchaseID retrieves a payment log by the provider's payment id
func (r *paymentRepository) GetByPurchaseID(purchaseID string) (*models.PaymentLog, error) {
	var payment models.PaymentLog
	err := r.db.Where("purchase_id = ?", purchaseID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Update updates an existing payment log
func (r *paymentRepository) Update(payment *models.PaymentLog) error {
	return r.db.Save(payment).Error
}

// ListByTelegramID returns all payment logs of a Telegram account,
// newest first
func (r *paymentRepository) ListByTelegramID(telegramID string) ([]models.PaymentLog, error) {
	var payments []models.PaymentLog
	err := r.db.Where("telegram_id = ?", telegramID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// CreateWebhookEventIfNotExists inserts the event unless one with the
// same (provider, provider_event_id) already exists. Returns whether
// the event was newly created along with the stored row.
func (r *paymentRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if res.Error != nil {
		return false, nil, res.Error
	}

	if res.RowsAffected == 0 {
		var existing models.PaymentWebhookEvent
		err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
			First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Conflict row vanished between insert and read; treat
				// the incoming event as the stored one.
				return true, event, nil
			}
			return false, nil, err
		}
		return false, &existing, nil
	}

	return true, event, nil
}

// MarkWebhookProcessed stamps the event with the processing outcome
func (r *paymentRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	return r.db.Model(&models.PaymentWebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at":     &now,
			"processing_error": processingError,
		}).Error
}
