package repository

import (
	"time"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByTelegramID(telegramID string) (*models.User, error)
	GetOrCreate(telegramID, username, firstName, lastName string) (*models.User, error)
	Update(user *models.User) error
	IncrementDailyMessagesUsed(telegramID string) error
	IncrementMessagesUsed(telegramID string) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// DialogLogRepository defines the interface for the append-only dialog
// log. Records are never updated or deleted.
type DialogLogRepository interface {
	Append(log *models.DialogLog) error
	ListBySession(sessionID string) ([]models.DialogLog, error)
	ListByUser(userID uint, offset, limit int) ([]models.DialogLog, error)
	ListByUserSince(userID uint, since time.Time) ([]models.DialogLog, error)
	CountByUser(userID uint) (int64, error)
}

// PaymentRepository defines the interface for payment logs and webhook
// event deduplication.
type PaymentRepository interface {
	Create(payment *models.PaymentLog) error
	GetByPurchaseID(purchaseID string) (*models.PaymentLog, error)
	Update(payment *models.PaymentLog) error
	ListByTelegramID(telegramID string) ([]models.PaymentLog, error)
	CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

// ProfileRepository defines the interface for mood check-ins and
// generated user characteristics.
type ProfileRepository interface {
	CreateMood(mood *models.UserMood) error
	IsMoodSetToday(userID uint, now time.Time) (bool, error)
	ListRecentMoods(userID uint, limit int) ([]models.UserMood, error)
	CreateCharacteristic(c *models.UserCharacteristic) error
	LatestCharacteristic(userID uint) (*models.UserCharacteristic, error)
	ListCharacteristics(userID uint, limit int) ([]models.UserCharacteristic, error)
}

// Repositories aggregates all repository interfaces for dependency injection
type Repositories struct {
	User      UserRepository
	DialogLog DialogLogRepository
	Payment   PaymentRepository
	Profile   ProfileRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		DialogLog: NewDialogLogRepository(db),
		Payment:   NewPaymentRepository(db),
		Profile:   NewProfileRepository(db),
	}
}
