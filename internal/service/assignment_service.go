package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/models"
	"github.com/pawtograder/platform-sub009/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrDueDateInPast rejects new due dates that are not in the future.
	ErrDueDateInPast = errors.New("due date must be in the future")
)

// AssignmentService exposes assignment domain use cases scoped to a class.
type AssignmentService interface {
	List(ctx context.Context, classID uint, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, classID, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, classID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, classID, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, classID, id uint) error
}

type assignmentService struct {
	repo        repository.AssignmentRepository
	classes     repository.ClassRepository
	validator   *validator.Validate
	invalidator SummaryInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, classes repository.ClassRepository, validate *validator.Validate, invalidator SummaryInvalidator, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:        repo,
		classes:     classes,
		validator:   validate,
		invalidator: invalidator,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context, classID uint, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	assignments, total, err := s.repo.ListWithFilter(ctx, repository.AssignmentFilter{
		ClassID:  classID,
		Search:   strings.TrimSpace(req.Search),
		Sort:     req.Sort,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	return dto.AssignmentListResponse{
		Items:      dto.NewAssignmentResponseSlice(assignments),
		Pagination: paginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *assignmentService) Get(ctx context.Context, classID, id uint) (dto.AssignmentResponse, error) {
	assignment, err := loadClassAssignment(ctx, s.repo, classID, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, classID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrClassNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	dueDate, err := s.parseDueDate(payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		ClassID:            classID,
		Title:              strings.TrimSpace(payload.Title),
		Description:        payload.Description,
		DueDate:            dueDate,
		MinutesDueAfterLab: payload.MinutesDueAfterLab,
		MaxLateTokens:      payload.MaxLateTokens,
		GroupAssignment:    payload.GroupAssignment,
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("class_id", classID).Uint("assignment_id", assignment.ID).Bool("lab_scheduled", assignment.HasLabScheduling()).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, classID, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := loadClassAssignment(ctx, s.repo, classID, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = strings.TrimSpace(*payload.Title)
	}

	if payload.Description != nil {
		assignment.Description = *payload.Description
	}

	if payload.DueDate != nil {
		dueDate, err := s.parseDueDate(*payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.DueDate = dueDate
	}

	switch {
	case payload.ClearLabOffset:
		assignment.MinutesDueAfterLab = nil
	case payload.MinutesDueAfterLab != nil:
		offset := *payload.MinutesDueAfterLab
		assignment.MinutesDueAfterLab = &offset
	}

	if payload.MaxLateTokens != nil {
		assignment.MaxLateTokens = *payload.MaxLateTokens
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateClass(ctx, classID); err != nil {
			s.logger.Warn().Err(err).Uint("class_id", classID).Msg("failed to invalidate due date summaries")
		}
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment updated")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, classID, id uint) error {
	if _, err := loadClassAssignment(ctx, s.repo, classID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateClass(ctx, classID); err != nil {
			s.logger.Warn().Err(err).Uint("class_id", classID).Msg("failed to invalidate due date summaries")
		}
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

func (s *assignmentService) parseDueDate(value string) (time.Time, error) {
	dueDate, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date: %w", err)
	}

	if !dueDate.After(s.now()) {
		return time.Time{}, ErrDueDateInPast
	}

	return dueDate.UTC(), nil
}

// loadClassAssignment fetches an assignment and hides assignments of other classes.
func loadClassAssignment(ctx context.Context, repo repository.AssignmentRepository, classID, id uint) (models.Assignment, error) {
	assignment, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	if assignment.ClassID != classID {
		return models.Assignment{}, ErrAssignmentNotFound
	}
	return assignment, nil
}
