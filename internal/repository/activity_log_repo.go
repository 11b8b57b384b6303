package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/models"
)

// ActivityLogFilter narrows activity log queries. Zero values are ignored.
type ActivityLogFilter struct {
	Page       int
	PageSize   int
	ClassID    uint
	ActorID    uint
	Action     string
	EntityType string
	EntityID   uint
	Since      time.Time
}

func (f ActivityLogFilter) scope(db *gorm.DB) *gorm.DB {
	db = inClass(f.ClassID)(db)
	if f.ActorID != 0 {
		db = db.Where("actor_id = ?", f.ActorID)
	}
	if f.Action != "" {
		db = db.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		db = db.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		db = db.Where("entity_id = ?", f.EntityID)
	}
	if !f.Since.IsZero() {
		db = db.Where("created_at >= ?", f.Since)
	}
	return db
}

// ActivityLogRepository persists the staff audit trail. Entries are never updated.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns newest entries first.
func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Scopes(filter.scope)
	return countAndFind[models.ActivityLog](query, "created_at DESC, id DESC", paginate(filter.Page, filter.PageSize))
}
