package repository

import (
	"time"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"gorm.io/gorm"
)

// profileRepository implements the ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// CreateMood stores a mood check-in after range validation
func (r *profileRepository) CreateMood(mood *models.UserMood) error {
	if err := mood.Validate(); err != nil {
		return err
	}
	return r.db.Create(mood).Error
}

// IsMoodSetToday reports whether the user already checked in within the
// current UTC day.
func (r *profileRepository) IsMoodSetToday(userID uint, now time.Time) (bool, error) {
	nowUTC := now.UTC()
	startOfDay := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.Add(24 * time.Hour)

	var count int64
	err := r.db.Model(&models.UserMood{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, startOfDay, endOfDay).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRecentMoods returns the user's latest mood entries, newest first.
// A non-positive limit returns all entries.
func (r *profileRepository) ListRecentMoods(userID uint, limit int) ([]models.UserMood, error) {
	var moods []models.UserMood
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&moods).Error
	return moods, err
}

// CreateCharacteristic stores a generated characteristic snapshot
func (r *profileRepository) CreateCharacteristic(c *models.UserCharacteristic) error {
	return r.db.Create(c).Error
}

// LatestCharacteristic returns the most recent characteristic.
// Returns gorm.ErrRecordNotFound when none has been generated yet;
// callers branch on it for the first-timer path.
func (r *profileRepository) LatestCharacteristic(userID uint) (*models.UserCharacteristic, error) {
	var c models.UserCharacteristic
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCharacteristics returns characteristic snapshots, newest first
func (r *profileRepository) ListCharacteristics(userID uint, limit int) ([]models.UserCharacteristic, error) {
	var cs []models.UserCharacteristic
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&cs).Error
	return cs, err
}
