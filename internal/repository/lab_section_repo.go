package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pawtograder/platform-sub009/internal/models"
)

// LabSectionRepository persists lab sections, their members and meetings.
type LabSectionRepository interface {
	Create(ctx context.Context, section *models.LabSection) error
	GetByID(ctx context.Context, id uint) (models.LabSection, error)
	ListByClass(ctx context.Context, classID uint) ([]models.LabSection, error)
	AssignMember(ctx context.Context, member *models.LabSectionMember) error
	SectionForStudent(ctx context.Context, classID, studentID uint) (models.LabSection, error)
	CreateMeeting(ctx context.Context, meeting *models.LabSectionMeeting) error
	GetMeeting(ctx context.Context, id uint) (models.LabSectionMeeting, error)
	UpdateMeeting(ctx context.Context, meeting *models.LabSectionMeeting) error
	ListMeetings(ctx context.Context, sectionID uint, includeCancelled bool) ([]models.LabSectionMeeting, error)
}

type labSectionRepository struct {
	db *gorm.DB
}

// NewLabSectionRepository constructs the lab section repository.
func NewLabSectionRepository(db *gorm.DB) LabSectionRepository {
	return &labSectionRepository{db: db}
}

func (r *labSectionRepository) Create(ctx context.Context, section *models.LabSection) error {
	return r.db.WithContext(ctx).Create(section).Error
}

func (r *labSectionRepository) GetByID(ctx context.Context, id uint) (models.LabSection, error) {
	var section models.LabSection
	if err := r.db.WithContext(ctx).First(&section, id).Error; err != nil {
		return models.LabSection{}, err
	}
	return section, nil
}

func (r *labSectionRepository) ListByClass(ctx context.Context, classID uint) ([]models.LabSection, error) {
	var sections []models.LabSection
	if err := r.db.WithContext(ctx).Where("class_id = ?", classID).Order("day_of_week ASC, start_time ASC").Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

// AssignMember moves the student into the section, replacing any previous
// section in the same class.
func (r *labSectionRepository) AssignMember(ctx context.Context, member *models.LabSectionMember) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "class_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"lab_section_id"}),
	}).Create(member).Error
}

// SectionForStudent returns gorm.ErrRecordNotFound when the student has no section.
func (r *labSectionRepository) SectionForStudent(ctx context.Context, classID, studentID uint) (models.LabSection, error) {
	var section models.LabSection
	err := r.db.WithContext(ctx).
		Joins("JOIN lab_section_members ON lab_section_members.lab_section_id = lab_sections.id").
		Where("lab_section_members.class_id = ? AND lab_section_members.student_id = ?", classID, studentID).
		First(&section).Error
	if err != nil {
		return models.LabSection{}, err
	}
	return section, nil
}

func (r *labSectionRepository) CreateMeeting(ctx context.Context, meeting *models.LabSectionMeeting) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

func (r *labSectionRepository) GetMeeting(ctx context.Context, id uint) (models.LabSectionMeeting, error) {
	var meeting models.LabSectionMeeting
	if err := r.db.WithContext(ctx).First(&meeting, id).Error; err != nil {
		return models.LabSectionMeeting{}, err
	}
	return meeting, nil
}

func (r *labSectionRepository) UpdateMeeting(ctx context.Context, meeting *models.LabSectionMeeting) error {
	return r.db.WithContext(ctx).Save(meeting).Error
}

func (r *labSectionRepository) ListMeetings(ctx context.Context, sectionID uint, includeCancelled bool) ([]models.LabSectionMeeting, error) {
	query := r.db.WithContext(ctx).Where("lab_section_id = ?", sectionID)
	if !includeCancelled {
		query = query.Where("cancelled = ?", false)
	}

	var meetings []models.LabSectionMeeting
	if err := query.Order("starts_at ASC").Find(&meetings).Error; err != nil {
		return nil, err
	}
	return meetings, nil
}
