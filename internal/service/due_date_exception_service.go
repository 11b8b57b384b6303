package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/duedate"
	"github.com/pawtograder/platform-sub009/internal/models"
	"github.com/pawtograder/platform-sub009/internal/observability"
	"github.com/pawtograder/platform-sub009/internal/repository"
)

var (
	// ErrExceptionNotFound indicates the grant does not exist on the assignment.
	ErrExceptionNotFound = errors.New("due date exception not found")
	// ErrInvalidExceptionTarget indicates a grant names both or neither of student and group.
	ErrInvalidExceptionTarget = errors.New("exactly one of student_id or assignment_group_id is required")
	// ErrAssignmentGroupNotFound indicates the group does not belong to the assignment.
	ErrAssignmentGroupNotFound = errors.New("assignment group not found")
)

// DueDateExceptionService grants and revokes extensions and reports the resulting
// due dates and late token balances.
type DueDateExceptionService interface {
	Create(ctx context.Context, classID, assignmentID uint, actor ActivityActor, payload dto.DueDateExceptionCreateRequest) (dto.DueDateExceptionCreateResponse, error)
	Delete(ctx context.Context, classID, assignmentID, exceptionID uint, actor ActivityActor) error
	List(ctx context.Context, classID, assignmentID uint, req dto.DueDateExceptionListRequest) ([]dto.DueDateExceptionResponse, error)
	EffectiveDueDate(ctx context.Context, classID, assignmentID, studentID uint) (dto.EffectiveDueDateResponse, error)
	Roster(ctx context.Context, classID, assignmentID uint) (dto.RosterDueDateResponse, error)
	TokenBalance(ctx context.Context, classID, studentID uint) (dto.TokenBalanceResponse, error)
}

// DueDateExceptionServiceConfig carries the collaborators of the exception service.
// Activity, Events and Cache are optional.
type DueDateExceptionServiceConfig struct {
	Exceptions  repository.DueDateExceptionRepository
	Assignments repository.AssignmentRepository
	Classes     repository.ClassRepository
	Groups      repository.AssignmentGroupRepository
	Resolver    DueDateResolver
	Activity    ActivityRecorder
	Events      EventPublisher
	Cache       SummaryInvalidator
	Validator   *validator.Validate
	Logger      zerolog.Logger
}

type dueDateExceptionService struct {
	exceptions  repository.DueDateExceptionRepository
	assignments repository.AssignmentRepository
	classes     repository.ClassRepository
	groups      repository.AssignmentGroupRepository
	resolver    DueDateResolver
	activity    ActivityRecorder
	events      EventPublisher
	cache       SummaryInvalidator
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewDueDateExceptionService constructs the exception service.
func NewDueDateExceptionService(cfg DueDateExceptionServiceConfig) DueDateExceptionService {
	return &dueDateExceptionService{
		exceptions:  cfg.Exceptions,
		assignments: cfg.Assignments,
		classes:     cfg.Classes,
		groups:      cfg.Groups,
		resolver:    cfg.Resolver,
		activity:    cfg.Activity,
		events:      cfg.Events,
		cache:       cfg.Cache,
		validator:   cfg.Validator,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      cfg.Logger.With().Str("component", "due_date_exception_service").Logger(),
		tracer:      otel.Tracer("github.com/pawtograder/platform-sub009/internal/service/exceptions"),
	}
}

func (s *dueDateExceptionService) Create(ctx context.Context, classID, assignmentID uint, actor ActivityActor, payload dto.DueDateExceptionCreateRequest) (dto.DueDateExceptionCreateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.DueDateExceptionCreateResponse{}, err
	}
	if (payload.StudentID == nil) == (payload.AssignmentGroupID == nil) {
		return dto.DueDateExceptionCreateResponse{}, ErrInvalidExceptionTarget
	}

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return dto.DueDateExceptionCreateResponse{}, err
	}
	assignment, err := loadClassAssignment(ctx, s.assignments, classID, assignmentID)
	if err != nil {
		return dto.DueDateExceptionCreateResponse{}, err
	}

	affected, err := s.targetStudents(ctx, class.ID, assignment.ID, payload.StudentID, payload.AssignmentGroupID)
	if err != nil {
		return dto.DueDateExceptionCreateResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "due_date_exceptions.create", trace.WithAttributes(
		attribute.Int64("assignment.id", int64(assignment.ID)),
		attribute.Int("exception.hours", payload.Hours),
		attribute.Int("exception.minutes", payload.Minutes),
		attribute.Int("exception.tokens", payload.TokensConsumed),
	))
	defer span.End()

	exception := models.DueDateException{
		ClassID:           class.ID,
		AssignmentID:      assignment.ID,
		StudentID:         payload.StudentID,
		AssignmentGroupID: payload.AssignmentGroupID,
		Hours:             payload.Hours,
		Minutes:           payload.Minutes,
		TokensConsumed:    payload.TokensConsumed,
		CreatorID:         actor.ID,
		Note:              strings.TrimSpace(s.sanitizer.Sanitize(payload.Note)),
	}
	if err := s.exceptions.Create(ctx, &exception); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.DueDateExceptionCreateResponse{}, err
	}

	response := dto.DueDateExceptionCreateResponse{
		Exception:          dto.NewDueDateExceptionResponse(exception),
		TokenBalances:      make([]dto.TokenBalanceResponse, 0, len(affected)),
		AssignmentTokenCap: assignment.MaxLateTokens,
	}

	for _, studentID := range affected {
		balance, err := classTokenBalance(ctx, s.groups, s.exceptions, class, studentID)
		if err != nil {
			span.RecordError(err)
			return dto.DueDateExceptionCreateResponse{}, err
		}
		response.TokenBalances = append(response.TokenBalances, balance)
		if balance.OverBudget && exception.TokensConsumed > 0 {
			response.ExceedsClassAllowance = true
			observability.TokenOverdrafts().Inc()
			s.logger.Warn().
				Uint("class_id", class.ID).
				Uint("student_id", studentID).
				Int("allowance", balance.Allowance).
				Int("consumed", balance.Consumed).
				Int("remaining", balance.Remaining).
				Msg("late token allowance exceeded")
		}

		used, err := s.assignmentTokensUsed(ctx, assignment.ID, studentID)
		if err != nil {
			span.RecordError(err)
			return dto.DueDateExceptionCreateResponse{}, err
		}
		if used > response.AssignmentTokensUsed {
			response.AssignmentTokensUsed = used
		}
	}
	response.ExceedsAssignmentCap = response.AssignmentTokensUsed > assignment.MaxLateTokens
	if response.ExceedsAssignmentCap {
		s.logger.Warn().
			Uint("assignment_id", assignment.ID).
			Int("tokens_used", response.AssignmentTokensUsed).
			Int("max_late_tokens", assignment.MaxLateTokens).
			Msg("assignment late token cap exceeded")
	}

	s.afterWrite(ctx, class.ID, affected, actor, EventDueDateExceptionCreated, exception)
	observability.DueDateExceptions().WithLabelValues("created").Inc()

	s.logger.Info().
		Uint("exception_id", exception.ID).
		Uint("assignment_id", assignment.ID).
		Int("hours", exception.Hours).
		Int("minutes", exception.Minutes).
		Msg("due date exception granted")

	return response, nil
}

func (s *dueDateExceptionService) Delete(ctx context.Context, classID, assignmentID, exceptionID uint, actor ActivityActor) error {
	exception, err := s.exceptions.GetByID(ctx, exceptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExceptionNotFound
		}
		return err
	}
	if exception.ClassID != classID || exception.AssignmentID != assignmentID {
		return ErrExceptionNotFound
	}

	affected, err := s.targetStudents(ctx, classID, assignmentID, exception.StudentID, exception.AssignmentGroupID)
	if err != nil && !errors.Is(err, ErrStudentNotEnrolled) && !errors.Is(err, ErrAssignmentGroupNotFound) {
		return err
	}
	if exception.StudentID != nil && len(affected) == 0 {
		affected = []uint{*exception.StudentID}
	}

	if err := s.exceptions.Delete(ctx, exceptionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExceptionNotFound
		}
		return err
	}

	s.afterWrite(ctx, classID, affected, actor, EventDueDateExceptionDeleted, exception)
	observability.DueDateExceptions().WithLabelValues("deleted").Inc()

	s.logger.Info().Uint("exception_id", exceptionID).Uint("assignment_id", assignmentID).Msg("due date exception revoked")
	return nil
}

func (s *dueDateExceptionService) List(ctx context.Context, classID, assignmentID uint, req dto.DueDateExceptionListRequest) ([]dto.DueDateExceptionResponse, error) {
	assignment, err := loadClassAssignment(ctx, s.assignments, classID, assignmentID)
	if err != nil {
		return nil, err
	}

	filter := repository.DueDateExceptionFilter{ClassID: classID, AssignmentID: assignment.ID}
	if req.StudentID > 0 {
		studentID := req.StudentID
		filter.StudentID = &studentID
		groupID, err := s.groups.GroupIDForStudent(ctx, assignment.ID, studentID)
		if err != nil {
			return nil, err
		}
		if groupID != nil {
			filter.GroupIDs = append(filter.GroupIDs, *groupID)
		}
	}
	if req.AssignmentGroupID > 0 {
		filter.GroupIDs = append(filter.GroupIDs, req.AssignmentGroupID)
	}

	exceptions, err := s.exceptions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return dto.NewDueDateExceptionResponseSlice(exceptions), nil
}

func (s *dueDateExceptionService) EffectiveDueDate(ctx context.Context, classID, assignmentID, studentID uint) (dto.EffectiveDueDateResponse, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return dto.EffectiveDueDateResponse{}, err
	}
	assignment, err := loadClassAssignment(ctx, s.assignments, classID, assignmentID)
	if err != nil {
		return dto.EffectiveDueDateResponse{}, err
	}

	enrolled, err := s.classes.IsEnrolled(ctx, classID, studentID)
	if err != nil {
		return dto.EffectiveDueDateResponse{}, err
	}
	if !enrolled {
		return dto.EffectiveDueDateResponse{}, ErrStudentNotEnrolled
	}

	return s.resolver.Resolve(ctx, class, assignment, studentID)
}

func (s *dueDateExceptionService) Roster(ctx context.Context, classID, assignmentID uint) (dto.RosterDueDateResponse, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return dto.RosterDueDateResponse{}, err
	}
	assignment, err := loadClassAssignment(ctx, s.assignments, classID, assignmentID)
	if err != nil {
		return dto.RosterDueDateResponse{}, err
	}

	enrollments, err := s.classes.ListEnrollments(ctx, classID, models.EnrollmentRoleStudent)
	if err != nil {
		return dto.RosterDueDateResponse{}, err
	}

	items := make([]dto.EffectiveDueDateResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		resolved, err := s.resolver.Resolve(ctx, class, assignment, enrollment.StudentID)
		if err != nil {
			return dto.RosterDueDateResponse{}, err
		}
		items = append(items, resolved)
	}

	return dto.RosterDueDateResponse{AssignmentID: assignment.ID, Items: items}, nil
}

func (s *dueDateExceptionService) TokenBalance(ctx context.Context, classID, studentID uint) (dto.TokenBalanceResponse, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return dto.TokenBalanceResponse{}, err
	}

	enrolled, err := s.classes.IsEnrolled(ctx, classID, studentID)
	if err != nil {
		return dto.TokenBalanceResponse{}, err
	}
	if !enrolled {
		return dto.TokenBalanceResponse{}, ErrStudentNotEnrolled
	}

	return classTokenBalance(ctx, s.groups, s.exceptions, class, studentID)
}

func (s *dueDateExceptionService) assignmentTokensUsed(ctx context.Context, assignmentID, studentID uint) (int, error) {
	groupID, err := s.groups.GroupIDForStudent(ctx, assignmentID, studentID)
	if err != nil {
		return 0, err
	}

	filter := repository.DueDateExceptionFilter{AssignmentID: assignmentID, StudentID: &studentID}
	if groupID != nil {
		filter.GroupIDs = []uint{*groupID}
	}
	exceptions, err := s.exceptions.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	grants := duedate.FilterForStudent(models.Grants(exceptions), studentID, groupID)
	return duedate.Aggregate(grants).TokensConsumed, nil
}

func (s *dueDateExceptionService) targetStudents(ctx context.Context, classID, assignmentID uint, studentID, groupID *uint) ([]uint, error) {
	if studentID != nil {
		enrolled, err := s.classes.IsEnrolled(ctx, classID, *studentID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, ErrStudentNotEnrolled
		}
		return []uint{*studentID}, nil
	}

	group, err := s.groups.GetByID(ctx, *groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentGroupNotFound
		}
		return nil, err
	}
	if group.AssignmentID != assignmentID {
		return nil, ErrAssignmentGroupNotFound
	}

	members := make([]uint, 0, len(group.Members))
	for _, member := range group.Members {
		members = append(members, member.StudentID)
	}
	return members, nil
}

func (s *dueDateExceptionService) afterWrite(ctx context.Context, classID uint, affected []uint, actor ActivityActor, eventType string, exception models.DueDateException) {
	if s.cache != nil && len(affected) > 0 {
		if err := s.cache.Invalidate(ctx, classID, affected...); err != nil {
			s.logger.Warn().Err(err).Uint("class_id", classID).Msg("failed to invalidate due date summaries")
		}
	}

	if s.activity != nil {
		entityID := exception.ID
		_, err := s.activity.Record(ctx, ActivityEntry{
			ClassID:    &classID,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     eventType,
			EntityType: "due_date_exception",
			EntityID:   &entityID,
			Metadata: map[string]interface{}{
				"assignment_id":       exception.AssignmentID,
				"student_id":          exception.StudentID,
				"assignment_group_id": exception.AssignmentGroupID,
				"hours":               exception.Hours,
				"minutes":             exception.Minutes,
				"tokens_consumed":     exception.TokensConsumed,
			},
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to record due date exception activity")
		}
	}

	if s.events != nil {
		payload := struct {
			Exception        dto.DueDateExceptionResponse `json:"exception"`
			AffectedStudents []uint                       `json:"affected_students"`
		}{
			Exception:        dto.NewDueDateExceptionResponse(exception),
			AffectedStudents: affected,
		}
		if err := s.events.Publish(ctx, eventType, payload); err != nil {
			s.logger.Warn().Err(err).Str("type", eventType).Msg("failed to publish due date exception event")
		}
	}
}

func (s *dueDateExceptionService) loadClass(ctx context.Context, classID uint) (models.Class, error) {
	class, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Class{}, ErrClassNotFound
		}
		return models.Class{}, err
	}
	return class, nil
}

// classTokenBalance reports the class allowance against tokens consumed by every
// grant of the class that reaches the student, directly or through a group.
func classTokenBalance(ctx context.Context, groups repository.AssignmentGroupRepository, exceptions repository.DueDateExceptionRepository, class models.Class, studentID uint) (dto.TokenBalanceResponse, error) {
	groupIDs, err := groups.GroupIDsForStudentInClass(ctx, class.ID, studentID)
	if err != nil {
		return dto.TokenBalanceResponse{}, err
	}

	filter := repository.DueDateExceptionFilter{ClassID: class.ID, StudentID: &studentID, GroupIDs: groupIDs}
	rows, err := exceptions.List(ctx, filter)
	if err != nil {
		return dto.TokenBalanceResponse{}, err
	}

	consumed := duedate.Aggregate(models.Grants(rows)).TokensConsumed
	return dto.NewTokenBalanceResponse(class.ID, studentID, class.LateTokensPerStudent, consumed), nil
}
