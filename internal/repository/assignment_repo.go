package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/models"
)

// AssignmentFilter describes pagination, search and sort options for one class.
type AssignmentFilter struct {
	ClassID  uint
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	ListByClass(ctx context.Context, classID uint) ([]models.Assignment, error)
	ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) ListByClass(ctx context.Context, classID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).Scopes(inClass(classID)).Order("due_date ASC, id ASC").Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepository) ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Scopes(inClass(filter.ClassID), matching(filter.Search, "title", "description"))

	return countAndFind[models.Assignment](query, assignmentOrder(filter.Sort), paginate(filter.Page, filter.PageSize))
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit("Class").Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit("Class").Save(assignment).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Assignment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

var assignmentSorts = map[string]string{
	"due_date":    "due_date ASC, id ASC",
	"-due_date":   "due_date DESC, id DESC",
	"title":       "title ASC, id ASC",
	"-title":      "title DESC, id DESC",
	"updated_at":  "updated_at ASC, id ASC",
	"-updated_at": "updated_at DESC, id DESC",
}

// assignmentOrder accepts "field", "-field", "field:desc" and "field.desc".
func assignmentOrder(sort string) string {
	key := strings.ToLower(strings.TrimSpace(sort))
	for _, suffix := range []string{":desc", ".desc"} {
		if strings.HasSuffix(key, suffix) {
			key = "-" + strings.TrimSuffix(key, suffix)
		}
	}
	for _, suffix := range []string{":asc", ".asc"} {
		key = strings.TrimSuffix(key, suffix)
	}
	if order, ok := assignmentSorts[key]; ok {
		return order
	}
	return assignmentSorts["due_date"]
}
