package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/models"
)

// ClassRepository persists classes and enrollments.
type ClassRepository interface {
	Create(ctx context.Context, class *models.Class) error
	GetByID(ctx context.Context, id uint) (models.Class, error)
	GetBySlug(ctx context.Context, slug string) (models.Class, error)
	Enroll(ctx context.Context, enrollment *models.ClassEnrollment) error
	GetEnrollment(ctx context.Context, classID, studentID uint) (models.ClassEnrollment, error)
	IsEnrolled(ctx context.Context, classID, studentID uint) (bool, error)
	ListEnrollments(ctx context.Context, classID uint, role string) ([]models.ClassEnrollment, error)
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository constructs the class repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) Create(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepository) GetByID(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.Class{}, err
	}
	return class, nil
}

func (r *classRepository) GetBySlug(ctx context.Context, slug string) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).Take(&class).Error; err != nil {
		return models.Class{}, err
	}
	return class, nil
}

func (r *classRepository) Enroll(ctx context.Context, enrollment *models.ClassEnrollment) error {
	return r.db.WithContext(ctx).Omit("Student").Create(enrollment).Error
}

func (r *classRepository) GetEnrollment(ctx context.Context, classID, studentID uint) (models.ClassEnrollment, error) {
	var enrollment models.ClassEnrollment
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		First(&enrollment).Error
	if err != nil {
		return models.ClassEnrollment{}, err
	}
	return enrollment, nil
}

func (r *classRepository) IsEnrolled(ctx context.Context, classID, studentID uint) (bool, error) {
	_, err := r.GetEnrollment(ctx, classID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *classRepository) ListEnrollments(ctx context.Context, classID uint, role string) ([]models.ClassEnrollment, error) {
	query := r.db.WithContext(ctx).Preload("Student").Where("class_id = ?", classID)
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var enrollments []models.ClassEnrollment
	if err := query.Order("student_id ASC").Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}
