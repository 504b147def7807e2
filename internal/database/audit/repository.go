// Package audit provides database operations for the authentication audit
// trail.
package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/abushop/shopfront/internal/entities"
)

// Repository handles all audit trail database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new audit repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event.
func (r *Repository) LogEvent(event *entities.AuthEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetRecentEvents retrieves events since a specific time, most recent first.
// An empty identifier matches all identifiers.
func (r *Repository) GetRecentEvents(identifier string, since time.Time) ([]entities.AuthEvent, error) {
	var events []entities.AuthEvent
	query := r.db.Where("created_at > ?", since).Order("created_at DESC")
	if identifier != "" {
		query = query.Where("identifier = ?", identifier)
	}
	err := query.Find(&events).Error
	return events, err
}

// DeleteOldEvents removes events older than the specified time and returns
// the number deleted.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuthEvent{})
	return result.RowsAffected, result.Error
}
