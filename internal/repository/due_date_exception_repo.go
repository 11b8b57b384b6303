package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/models"
)

// DueDateExceptionFilter narrows exception queries. StudentID and GroupID are
// combined with OR so a student's personal and group grants come back together.
type DueDateExceptionFilter struct {
	ClassID      uint
	AssignmentID uint
	StudentID    *uint
	GroupIDs     []uint
}

// DueDateExceptionRepository persists due date exception grants.
type DueDateExceptionRepository interface {
	Create(ctx context.Context, exception *models.DueDateException) error
	GetByID(ctx context.Context, id uint) (models.DueDateException, error)
	List(ctx context.Context, filter DueDateExceptionFilter) ([]models.DueDateException, error)
	Delete(ctx context.Context, id uint) error
}

type dueDateExceptionRepository struct {
	db *gorm.DB
}

// NewDueDateExceptionRepository constructs the exception repository.
func NewDueDateExceptionRepository(db *gorm.DB) DueDateExceptionRepository {
	return &dueDateExceptionRepository{db: db}
}

func (r *dueDateExceptionRepository) Create(ctx context.Context, exception *models.DueDateException) error {
	return r.db.WithContext(ctx).Create(exception).Error
}

func (r *dueDateExceptionRepository) GetByID(ctx context.Context, id uint) (models.DueDateException, error) {
	var exception models.DueDateException
	if err := r.db.WithContext(ctx).First(&exception, id).Error; err != nil {
		return models.DueDateException{}, err
	}
	return exception, nil
}

func (r *dueDateExceptionRepository) List(ctx context.Context, filter DueDateExceptionFilter) ([]models.DueDateException, error) {
	query := r.db.WithContext(ctx).Model(&models.DueDateException{})

	if filter.ClassID != 0 {
		query = query.Where("class_id = ?", filter.ClassID)
	}
	if filter.AssignmentID != 0 {
		query = query.Where("assignment_id = ?", filter.AssignmentID)
	}

	switch {
	case filter.StudentID != nil && len(filter.GroupIDs) > 0:
		query = query.Where("student_id = ? OR assignment_group_id IN ?", *filter.StudentID, filter.GroupIDs)
	case filter.StudentID != nil:
		query = query.Where("student_id = ?", *filter.StudentID)
	case len(filter.GroupIDs) > 0:
		query = query.Where("assignment_group_id IN ?", filter.GroupIDs)
	}

	var exceptions []models.DueDateException
	if err := query.Order("created_at ASC, id ASC").Find(&exceptions).Error; err != nil {
		return nil, err
	}
	return exceptions, nil
}

func (r *dueDateExceptionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.DueDateException{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
