package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/models"
	"github.com/pawtograder/platform-sub009/internal/repository"
)

var (
	// ErrClassNotFound indicates the class does not exist.
	ErrClassNotFound = errors.New("class not found")
	// ErrStudentNotFound indicates the student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrStudentNotEnrolled indicates the student is not on the class roster.
	ErrStudentNotEnrolled = errors.New("student is not enrolled in this class")
	// ErrNotGroupAssignment indicates groups were requested for an individual assignment.
	ErrNotGroupAssignment = errors.New("assignment does not accept groups")
	// ErrClassSlugTaken indicates another class already uses the slug.
	ErrClassSlugTaken = errors.New("class slug already in use")
	// ErrStudentEmailTaken indicates another student already uses the email.
	ErrStudentEmailTaken = errors.New("student email already in use")
	// ErrAlreadyEnrolled indicates the student is already on the class roster.
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this class")
	// ErrStudentAlreadyGrouped indicates a student already belongs to a group for the assignment.
	ErrStudentAlreadyGrouped = errors.New("student already belongs to a group for this assignment")
)

// ClassService exposes class, roster and assignment group use cases.
type ClassService interface {
	CreateClass(ctx context.Context, payload dto.ClassCreateRequest) (dto.ClassResponse, error)
	GetClass(ctx context.Context, id uint) (dto.ClassResponse, error)
	CreateStudent(ctx context.Context, payload dto.StudentCreateRequest) (dto.StudentResponse, error)
	Enroll(ctx context.Context, classID uint, payload dto.EnrollmentRequest) (dto.EnrollmentResponse, error)
	ListEnrollments(ctx context.Context, classID uint, role string) ([]dto.EnrollmentResponse, error)
	CreateGroup(ctx context.Context, classID, assignmentID uint, payload dto.AssignmentGroupCreateRequest) (dto.AssignmentGroupResponse, error)
	ListGroups(ctx context.Context, classID, assignmentID uint) ([]dto.AssignmentGroupResponse, error)
}

type classService struct {
	classes         repository.ClassRepository
	students        repository.StudentRepository
	assignments     repository.AssignmentRepository
	groups          repository.AssignmentGroupRepository
	validator       *validator.Validate
	invalidator     SummaryInvalidator
	defaultTimezone string
	logger          zerolog.Logger
}

// NewClassService builds the class service. defaultTimezone is stored on classes created without one.
func NewClassService(classes repository.ClassRepository, students repository.StudentRepository, assignments repository.AssignmentRepository, groups repository.AssignmentGroupRepository, validate *validator.Validate, invalidator SummaryInvalidator, defaultTimezone string, logger zerolog.Logger) ClassService {
	if strings.TrimSpace(defaultTimezone) == "" {
		defaultTimezone = "UTC"
	}
	return &classService{
		classes:         classes,
		students:        students,
		assignments:     assignments,
		groups:          groups,
		validator:       validate,
		invalidator:     invalidator,
		defaultTimezone: defaultTimezone,
		logger:          logger.With().Str("component", "class_service").Logger(),
	}
}

func (s *classService) CreateClass(ctx context.Context, payload dto.ClassCreateRequest) (dto.ClassResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassResponse{}, err
	}

	class := models.Class{
		Name:                 strings.TrimSpace(payload.Name),
		Slug:                 strings.ToLower(strings.TrimSpace(payload.Slug)),
		LateTokensPerStudent: payload.LateTokensPerStudent,
		Timezone:             strings.TrimSpace(payload.Timezone),
	}
	if class.Timezone == "" {
		class.Timezone = s.defaultTimezone
	}

	if _, err := s.classes.GetBySlug(ctx, class.Slug); err == nil {
		return dto.ClassResponse{}, ErrClassSlugTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ClassResponse{}, err
	}
	if err := s.classes.Create(ctx, &class); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.ClassResponse{}, ErrClassSlugTaken
		}
		return dto.ClassResponse{}, err
	}

	s.logger.Info().Uint("class_id", class.ID).Str("slug", class.Slug).Msg("class created")
	return dto.NewClassResponse(class), nil
}

func (s *classService) GetClass(ctx context.Context, id uint) (dto.ClassResponse, error) {
	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassResponse{}, ErrClassNotFound
		}
		return dto.ClassResponse{}, err
	}
	return dto.NewClassResponse(class), nil
}

func (s *classService) CreateStudent(ctx context.Context, payload dto.StudentCreateRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StudentResponse{}, err
	}

	student := models.Student{
		Name:  strings.TrimSpace(payload.Name),
		Email: strings.ToLower(strings.TrimSpace(payload.Email)),
	}
	if _, err := s.students.GetByEmail(ctx, student.Email); err == nil {
		return dto.StudentResponse{}, ErrStudentEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.StudentResponse{}, err
	}
	if err := s.students.Create(ctx, &student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.StudentResponse{}, ErrStudentEmailTaken
		}
		return dto.StudentResponse{}, err
	}

	return dto.NewStudentResponse(student), nil
}

func (s *classService) Enroll(ctx context.Context, classID uint, payload dto.EnrollmentRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EnrollmentResponse{}, err
	}
	if _, err := s.GetClass(ctx, classID); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	student, err := s.students.GetByID(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrStudentNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	role := payload.Role
	if role == "" {
		role = models.EnrollmentRoleStudent
	}
	enrolled, err := s.classes.IsEnrolled(ctx, classID, student.ID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}
	if enrolled {
		return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
	}

	enrollment := models.ClassEnrollment{ClassID: classID, StudentID: student.ID, Role: role}
	if err := s.classes.Enroll(ctx, &enrollment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
		}
		return dto.EnrollmentResponse{}, err
	}
	enrollment.Student = student

	s.logger.Info().Uint("class_id", classID).Uint("student_id", student.ID).Str("role", role).Msg("student enrolled")
	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *classService) ListEnrollments(ctx context.Context, classID uint, role string) ([]dto.EnrollmentResponse, error) {
	enrollments, err := s.classes.ListEnrollments(ctx, classID, strings.ToLower(strings.TrimSpace(role)))
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, dto.NewEnrollmentResponse(enrollment))
	}
	return responses, nil
}

func (s *classService) CreateGroup(ctx context.Context, classID, assignmentID uint, payload dto.AssignmentGroupCreateRequest) (dto.AssignmentGroupResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentGroupResponse{}, err
	}

	assignment, err := loadClassAssignment(ctx, s.assignments, classID, assignmentID)
	if err != nil {
		return dto.AssignmentGroupResponse{}, err
	}
	if !assignment.GroupAssignment {
		return dto.AssignmentGroupResponse{}, ErrNotGroupAssignment
	}

	seen := make(map[uint]struct{}, len(payload.StudentIDs))
	for _, studentID := range payload.StudentIDs {
		if _, dup := seen[studentID]; dup {
			return dto.AssignmentGroupResponse{}, fmt.Errorf("%w: student %d listed twice", ErrStudentAlreadyGrouped, studentID)
		}
		seen[studentID] = struct{}{}

		enrolled, err := s.classes.IsEnrolled(ctx, classID, studentID)
		if err != nil {
			return dto.AssignmentGroupResponse{}, err
		}
		if !enrolled {
			return dto.AssignmentGroupResponse{}, ErrStudentNotEnrolled
		}

		existing, err := s.groups.GroupIDForStudent(ctx, assignment.ID, studentID)
		if err != nil {
			return dto.AssignmentGroupResponse{}, err
		}
		if existing != nil {
			return dto.AssignmentGroupResponse{}, fmt.Errorf("%w: student %d is in group %d", ErrStudentAlreadyGrouped, studentID, *existing)
		}
	}

	group := models.AssignmentGroup{AssignmentID: assignment.ID, Name: strings.TrimSpace(payload.Name)}
	if err := s.groups.CreateWithMembers(ctx, &group, payload.StudentIDs); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AssignmentGroupResponse{}, ErrStudentAlreadyGrouped
		}
		return dto.AssignmentGroupResponse{}, err
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, classID, payload.StudentIDs...); err != nil {
			s.logger.Warn().Err(err).Uint("class_id", classID).Msg("failed to invalidate due date summaries")
		}
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("group_id", group.ID).Int("members", len(group.Members)).Msg("assignment group created")
	return dto.NewAssignmentGroupResponse(group), nil
}

func (s *classService) ListGroups(ctx context.Context, classID, assignmentID uint) ([]dto.AssignmentGroupResponse, error) {
	if _, err := loadClassAssignment(ctx, s.assignments, classID, assignmentID); err != nil {
		return nil, err
	}

	groups, err := s.groups.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssignmentGroupResponse, 0, len(groups))
	for _, group := range groups {
		responses = append(responses, dto.NewAssignmentGroupResponse(group))
	}
	return responses, nil
}
