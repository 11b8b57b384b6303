package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/models"
)

// AssignmentGroupRepository persists assignment groups and their members.
type AssignmentGroupRepository interface {
	Create(ctx context.Context, group *models.AssignmentGroup) error
	CreateWithMembers(ctx context.Context, group *models.AssignmentGroup, studentIDs []uint) error
	GetByID(ctx context.Context, id uint) (models.AssignmentGroup, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignmentGroup, error)
	AddMember(ctx context.Context, member *models.AssignmentGroupMember) error
	GroupIDForStudent(ctx context.Context, assignmentID, studentID uint) (*uint, error)
	GroupIDsForStudentInClass(ctx context.Context, classID, studentID uint) ([]uint, error)
}

type assignmentGroupRepository struct {
	db *gorm.DB
}

// NewAssignmentGroupRepository constructs the group repository.
func NewAssignmentGroupRepository(db *gorm.DB) AssignmentGroupRepository {
	return &assignmentGroupRepository{db: db}
}

func (r *assignmentGroupRepository) Create(ctx context.Context, group *models.AssignmentGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

// CreateWithMembers inserts the group and its members atomically. Nothing is
// written when any member insert fails.
func (r *assignmentGroupRepository) CreateWithMembers(ctx context.Context, group *models.AssignmentGroup, studentIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Create(group).Error; err != nil {
			return err
		}

		members := make([]models.AssignmentGroupMember, 0, len(studentIDs))
		for _, studentID := range studentIDs {
			members = append(members, models.AssignmentGroupMember{GroupID: group.ID, AssignmentID: group.AssignmentID, StudentID: studentID})
		}
		if len(members) > 0 {
			if err := tx.Create(&members).Error; err != nil {
				return err
			}
		}
		group.Members = members
		return nil
	})
}

func (r *assignmentGroupRepository) GetByID(ctx context.Context, id uint) (models.AssignmentGroup, error) {
	var group models.AssignmentGroup
	if err := r.db.WithContext(ctx).Preload("Members").First(&group, id).Error; err != nil {
		return models.AssignmentGroup{}, err
	}
	return group, nil
}

func (r *assignmentGroupRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignmentGroup, error) {
	var groups []models.AssignmentGroup
	if err := r.db.WithContext(ctx).Preload("Members").Where("assignment_id = ?", assignmentID).Order("id ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *assignmentGroupRepository) AddMember(ctx context.Context, member *models.AssignmentGroupMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GroupIDForStudent returns nil when the student is not in a group for the assignment.
func (r *assignmentGroupRepository) GroupIDForStudent(ctx context.Context, assignmentID, studentID uint) (*uint, error) {
	var member models.AssignmentGroupMember
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	groupID := member.GroupID
	return &groupID, nil
}

func (r *assignmentGroupRepository) GroupIDsForStudentInClass(ctx context.Context, classID, studentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.AssignmentGroupMember{}).
		Joins("JOIN assignments ON assignments.id = assignment_group_members.assignment_id").
		Where("assignments.class_id = ? AND assignment_group_members.student_id = ?", classID, studentID).
		Pluck("assignment_group_members.group_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
