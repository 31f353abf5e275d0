package repository

import (
	"time"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"gorm.io/gorm"
)

// dialogLogRepository implements the DialogLogRepository interface
type dialogLogRepository struct {
	db *gorm.DB
}

// NewDialogLogRepository creates a new dialog log repository instance
func NewDialogLogRepository(db *gorm.DB) DialogLogRepository {
	return &dialogLogRepository{db: db}
}

// Append writes one immutable turn record
func (r *dialogLogRepository) Append(log *models.DialogLog) error {
	return r.db.Create(log).Error
}

// ListBySession returns all turns of a session in chronological order
func (r *dialogLogRepository) ListBySession(sessionID string) ([]models.DialogLog, error) {
	var logs []models.DialogLog
	err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC, id ASC").Find(&logs).Error
	return logs, err
}

// ListByUser returns a page of a user's turns, oldest first
func (r *dialogLogRepository) ListByUser(userID uint, offset, limit int) ([]models.DialogLog, error) {
	var logs []models.DialogLog
	err := r.db.Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&logs).Error
	return logs, err
}

// ListByUserSince returns a user's turns newer than the given time,
// oldest first. Used to assemble characteristic-generation input.
func (r *dialogLogRepository) ListByUserSince(userID uint, since time.Time) ([]models.DialogLog, error) {
	var logs []models.DialogLog
	err := r.db.Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC, id ASC").
		Find(&logs).Error
	return logs, err
}

// CountByUser returns the number of logged turns for a user
func (r *dialogLogRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.DialogLog{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
