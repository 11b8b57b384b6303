package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/models"
	"github.com/pawtograder/platform-sub009/internal/observability"
	"github.com/pawtograder/platform-sub009/internal/repository"
)

const calendarProductID = "-//classops//due dates//EN"

// StudentSummaryService produces a student's due date overview for one class.
type StudentSummaryService interface {
	Summary(ctx context.Context, classID, studentID uint) (dto.StudentSummaryResponse, error)
	CalendarFeed(ctx context.Context, classID, studentID uint) (string, error)
}

type studentSummaryService struct {
	classes     repository.ClassRepository
	assignments repository.AssignmentRepository
	groups      repository.AssignmentGroupRepository
	exceptions  repository.DueDateExceptionRepository
	resolver    DueDateResolver
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentSummaryService builds the summary aggregator. A nil cache disables caching.
func NewStudentSummaryService(classes repository.ClassRepository, assignments repository.AssignmentRepository, groups repository.AssignmentGroupRepository, exceptions repository.DueDateExceptionRepository, resolver DueDateResolver, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentSummaryService {
	return &studentSummaryService{
		classes:     classes,
		assignments: assignments,
		groups:      groups,
		exceptions:  exceptions,
		resolver:    resolver,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_summary_service").Logger(),
		now:         time.Now,
	}
}

func summaryCacheKey(classID, studentID uint) string {
	return fmt.Sprintf("due_dates:class:%d:student:%d", classID, studentID)
}

func (s *studentSummaryService) Summary(ctx context.Context, classID, studentID uint) (dto.StudentSummaryResponse, error) {
	class, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentSummaryResponse{}, ErrClassNotFound
		}
		return dto.StudentSummaryResponse{}, err
	}

	enrolled, err := s.classes.IsEnrolled(ctx, classID, studentID)
	if err != nil {
		return dto.StudentSummaryResponse{}, err
	}
	if !enrolled {
		return dto.StudentSummaryResponse{}, ErrStudentNotEnrolled
	}

	cacheKey := summaryCacheKey(classID, studentID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.SummaryCache().WithLabelValues("hit").Inc()
				s.logger.Debug().Uint("class_id", classID).Uint("student_id", studentID).Msg("summary cache hit")
				response.CacheHit = true
				s.markPastDue(response.Assignments)
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read summary cache")
		}
		observability.SummaryCache().WithLabelValues("miss").Inc()
	}

	response, err := s.build(ctx, class, studentID)
	if err != nil {
		return dto.StudentSummaryResponse{}, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store summary cache")
			}
		}
	}

	return response, nil
}

func (s *studentSummaryService) build(ctx context.Context, class models.Class, studentID uint) (dto.StudentSummaryResponse, error) {
	assignments, err := s.assignments.ListByClass(ctx, class.ID)
	if err != nil {
		return dto.StudentSummaryResponse{}, err
	}

	items := make([]dto.AssignmentDueSummary, 0, len(assignments))
	for _, assignment := range assignments {
		resolved, err := s.resolver.Resolve(ctx, class, assignment, studentID)
		if err != nil {
			return dto.StudentSummaryResponse{}, err
		}
		items = append(items, dto.AssignmentDueSummary{
			AssignmentID:     assignment.ID,
			Title:            assignment.Title,
			NominalDueDate:   resolved.NominalDueDate,
			EffectiveDueDate: resolved.EffectiveDueDate,
			LabAnchored:      resolved.LabAnchored,
			Extensions:       resolved.Extensions,
			MaxLateTokens:    assignment.MaxLateTokens,
		})
	}
	s.markPastDue(items)

	tokens, err := classTokenBalance(ctx, s.groups, s.exceptions, class, studentID)
	if err != nil {
		return dto.StudentSummaryResponse{}, err
	}

	return dto.StudentSummaryResponse{
		ClassID:     class.ID,
		StudentID:   studentID,
		Tokens:      tokens,
		Assignments: items,
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *studentSummaryService) markPastDue(items []dto.AssignmentDueSummary) {
	now := s.now()
	for i := range items {
		items[i].PastDue = now.After(items[i].EffectiveDueDate)
	}
}

func (s *studentSummaryService) CalendarFeed(ctx context.Context, classID, studentID uint) (string, error) {
	summary, err := s.Summary(ctx, classID, studentID)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)

	stamp := summary.GeneratedAt
	for _, item := range summary.Assignments {
		event := cal.AddEvent(fmt.Sprintf("class-%d-assignment-%d-student-%d", classID, item.AssignmentID, studentID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(item.EffectiveDueDate)
		event.SetEndAt(item.EffectiveDueDate)
		event.SetSummary(fmt.Sprintf("%s due", item.Title))
		event.SetDescription(describeExtension(item))
	}

	return cal.Serialize(), nil
}

func describeExtension(item dto.AssignmentDueSummary) string {
	if item.Extensions.Hours == 0 && item.Extensions.Minutes == 0 {
		return "No extension"
	}
	return fmt.Sprintf("Extended by %dh %dm", item.Extensions.DisplayHours, item.Extensions.DisplayMinutes)
}

type summaryCacheInvalidator struct {
	cache *redis.Client
}

// NewSummaryCacheInvalidator drops cached student summaries. A nil client makes it a no-op.
func NewSummaryCacheInvalidator(cache *redis.Client) SummaryInvalidator {
	return &summaryCacheInvalidator{cache: cache}
}

func (i *summaryCacheInvalidator) Invalidate(ctx context.Context, classID uint, studentIDs ...uint) error {
	if i.cache == nil || len(studentIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		keys = append(keys, summaryCacheKey(classID, studentID))
	}
	return i.cache.Del(ctx, keys...).Err()
}

func (i *summaryCacheInvalidator) InvalidateClass(ctx context.Context, classID uint) error {
	if i.cache == nil {
		return nil
	}

	pattern := fmt.Sprintf("due_dates:class:%d:*", classID)
	iter := i.cache.Scan(ctx, 0, pattern, 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return i.cache.Del(ctx, keys...).Err()
}
