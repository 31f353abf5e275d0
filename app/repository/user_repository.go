package repository

import (
	"errors"
	"strings"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their internal ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByTelegramID retrieves a user by their Telegram account id
func (r *userRepository) GetByTelegramID(telegramID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("telegram_id = ?", strings.TrimSpace(telegramID)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreate fetches the user for a Telegram account, creating a
// free-tier record on first contact.
func (r *userRepository) GetOrCreate(telegramID, username, firstName, lastName string) (*models.User, error) {
	user, err := r.GetByTelegramID(telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err = models.NewUser(telegramID, username, firstName, lastName)
	if err != nil {
		return nil, err
	}
	if err := r.db.Create(user).Error; err != nil {
		// Lost a create race against a concurrent first message; the
		// row exists now.
		if existing, getErr := r.GetByTelegramID(telegramID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// IncrementDailyMessagesUsed bumps the free-tier daily counter in one
// statement so concurrent messages from the same account cannot lose
// an increment to a stale read.
func (r *userRepository) IncrementDailyMessagesUsed(telegramID string) error {
	res := r.db.Model(&models.User{}).
		Where("telegram_id = ?", strings.TrimSpace(telegramID)).
		UpdateColumn("daily_messages_used", gorm.Expr("daily_messages_used + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementMessagesUsed bumps the standard-tier term counter atomically.
func (r *userRepository) IncrementMessagesUsed(telegramID string) error {
	res := r.db.Model(&models.User{}).
		Where("telegram_id = ?", strings.TrimSpace(telegramID)).
		UpdateColumn("messages_used", gorm.Expr("messages_used + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List retrieves a paginated list of users
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
