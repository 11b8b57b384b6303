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
	"github.com/pawtograder/platform-sub009/internal/duedate"
	"github.com/pawtograder/platform-sub009/internal/models"
	"github.com/pawtograder/platform-sub009/internal/observability"
	"github.com/pawtograder/platform-sub009/internal/repository"
)

var (
	// ErrLabSectionNotFound indicates the section does not exist in the class.
	ErrLabSectionNotFound = errors.New("lab section not found")
	// ErrLabMeetingNotFound indicates the meeting does not exist in the section.
	ErrLabMeetingNotFound = errors.New("lab meeting not found")
	// ErrInvalidLabSchedule indicates malformed section times or timezone.
	ErrInvalidLabSchedule = errors.New("invalid lab schedule")
)

// SummaryInvalidator drops cached due date summaries after a schedule or grant change.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, classID uint, studentIDs ...uint) error
	InvalidateClass(ctx context.Context, classID uint) error
}

// LabScheduleService manages lab sections and answers lab meeting lookups.
type LabScheduleService interface {
	CreateSection(ctx context.Context, classID uint, payload dto.LabSectionCreateRequest) (dto.LabSectionResponse, error)
	ListSections(ctx context.Context, classID uint) ([]dto.LabSectionResponse, error)
	AssignStudent(ctx context.Context, classID, sectionID uint, payload dto.LabSectionMemberRequest) error
	CreateMeeting(ctx context.Context, classID, sectionID uint, payload dto.LabMeetingCreateRequest) (dto.LabMeetingResponse, error)
	CancelMeeting(ctx context.Context, classID, sectionID, meetingID uint) (dto.LabMeetingResponse, error)
	ListMeetings(ctx context.Context, classID, sectionID uint) ([]dto.LabMeetingResponse, error)
	LookupForClass(class models.Class) duedate.LabMeetingLookup
}

type labScheduleService struct {
	labs        repository.LabSectionRepository
	classes     repository.ClassRepository
	validator   *validator.Validate
	invalidator SummaryInvalidator
	defaultLoc  *time.Location
	logger      zerolog.Logger
}

// NewLabScheduleService builds the lab schedule service. A nil defaultLoc means UTC.
func NewLabScheduleService(labs repository.LabSectionRepository, classes repository.ClassRepository, validate *validator.Validate, invalidator SummaryInvalidator, defaultLoc *time.Location, logger zerolog.Logger) LabScheduleService {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &labScheduleService{
		labs:        labs,
		classes:     classes,
		validator:   validate,
		invalidator: invalidator,
		defaultLoc:  defaultLoc,
		logger:      logger.With().Str("component", "lab_schedule_service").Logger(),
	}
}

func (s *labScheduleService) CreateSection(ctx context.Context, classID uint, payload dto.LabSectionCreateRequest) (dto.LabSectionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LabSectionResponse{}, err
	}
	if _, err := s.loadClass(ctx, classID); err != nil {
		return dto.LabSectionResponse{}, err
	}

	start, err := duedate.ParseClock(payload.StartTime)
	if err != nil {
		return dto.LabSectionResponse{}, fmt.Errorf("%w: %v", ErrInvalidLabSchedule, err)
	}
	section := models.LabSection{
		ClassID:   classID,
		Name:      strings.TrimSpace(payload.Name),
		DayOfWeek: payload.DayOfWeek,
		StartTime: start.String(),
		Timezone:  strings.TrimSpace(payload.Timezone),
	}
	if strings.TrimSpace(payload.EndTime) != "" {
		end, err := duedate.ParseClock(payload.EndTime)
		if err != nil {
			return dto.LabSectionResponse{}, fmt.Errorf("%w: %v", ErrInvalidLabSchedule, err)
		}
		section.EndTime = end.String()
	}

	if err := s.labs.Create(ctx, &section); err != nil {
		return dto.LabSectionResponse{}, err
	}

	s.logger.Info().Uint("class_id", classID).Uint("lab_section_id", section.ID).Msg("lab section created")
	return dto.NewLabSectionResponse(section), nil
}

func (s *labScheduleService) ListSections(ctx context.Context, classID uint) ([]dto.LabSectionResponse, error) {
	sections, err := s.labs.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.LabSectionResponse, 0, len(sections))
	for _, section := range sections {
		responses = append(responses, dto.NewLabSectionResponse(section))
	}
	return responses, nil
}

func (s *labScheduleService) AssignStudent(ctx context.Context, classID, sectionID uint, payload dto.LabSectionMemberRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}
	if _, err := s.loadSection(ctx, classID, sectionID); err != nil {
		return err
	}

	enrolled, err := s.classes.IsEnrolled(ctx, classID, payload.StudentID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrStudentNotEnrolled
	}

	member := models.LabSectionMember{ClassID: classID, StudentID: payload.StudentID, LabSectionID: sectionID}
	if err := s.labs.AssignMember(ctx, &member); err != nil {
		return err
	}

	s.invalidate(ctx, classID, payload.StudentID)
	s.logger.Info().Uint("class_id", classID).Uint("lab_section_id", sectionID).Uint("student_id", payload.StudentID).Msg("student assigned to lab section")
	return nil
}

func (s *labScheduleService) CreateMeeting(ctx context.Context, classID, sectionID uint, payload dto.LabMeetingCreateRequest) (dto.LabMeetingResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LabMeetingResponse{}, err
	}
	if _, err := s.loadSection(ctx, classID, sectionID); err != nil {
		return dto.LabMeetingResponse{}, err
	}

	startsAt, err := time.Parse(time.RFC3339, payload.StartsAt)
	if err != nil {
		return dto.LabMeetingResponse{}, fmt.Errorf("%w: invalid start: %v", ErrInvalidLabSchedule, err)
	}
	meeting := models.LabSectionMeeting{LabSectionID: sectionID, StartsAt: startsAt.UTC()}
	if payload.EndsAt != nil {
		endsAt, err := time.Parse(time.RFC3339, *payload.EndsAt)
		if err != nil {
			return dto.LabMeetingResponse{}, fmt.Errorf("%w: invalid end: %v", ErrInvalidLabSchedule, err)
		}
		if !endsAt.After(startsAt) {
			return dto.LabMeetingResponse{}, fmt.Errorf("%w: meeting must end after it starts", ErrInvalidLabSchedule)
		}
		endsAt = endsAt.UTC()
		meeting.EndsAt = &endsAt
	}

	if err := s.labs.CreateMeeting(ctx, &meeting); err != nil {
		return dto.LabMeetingResponse{}, err
	}

	s.invalidateClass(ctx, classID)
	return dto.NewLabMeetingResponse(meeting), nil
}

func (s *labScheduleService) CancelMeeting(ctx context.Context, classID, sectionID, meetingID uint) (dto.LabMeetingResponse, error) {
	if _, err := s.loadSection(ctx, classID, sectionID); err != nil {
		return dto.LabMeetingResponse{}, err
	}

	meeting, err := s.labs.GetMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LabMeetingResponse{}, ErrLabMeetingNotFound
		}
		return dto.LabMeetingResponse{}, err
	}
	if meeting.LabSectionID != sectionID {
		return dto.LabMeetingResponse{}, ErrLabMeetingNotFound
	}
	if meeting.Cancelled {
		return dto.NewLabMeetingResponse(meeting), nil
	}

	meeting.Cancelled = true
	if err := s.labs.UpdateMeeting(ctx, &meeting); err != nil {
		return dto.LabMeetingResponse{}, err
	}

	s.invalidateClass(ctx, classID)
	s.logger.Info().Uint("lab_section_id", sectionID).Uint("meeting_id", meetingID).Msg("lab meeting cancelled")
	return dto.NewLabMeetingResponse(meeting), nil
}

func (s *labScheduleService) ListMeetings(ctx context.Context, classID, sectionID uint) ([]dto.LabMeetingResponse, error) {
	if _, err := s.loadSection(ctx, classID, sectionID); err != nil {
		return nil, err
	}

	meetings, err := s.labs.ListMeetings(ctx, sectionID, true)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.LabMeetingResponse, 0, len(meetings))
	for _, meeting := range meetings {
		responses = append(responses, dto.NewLabMeetingResponse(meeting))
	}
	return responses, nil
}

// LookupForClass resolves lab meetings of students in the class. Explicit meeting
// rows take precedence; sections without rows fall back to their weekly slot.
func (s *labScheduleService) LookupForClass(class models.Class) duedate.LabMeetingLookup {
	return duedate.LabMeetingLookupFunc(func(ctx context.Context, studentID uint, before time.Time) (time.Time, bool, error) {
		section, err := s.labs.SectionForStudent(ctx, class.ID, studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				observability.LabResolutions().WithLabelValues("none").Inc()
				s.logger.Debug().Uint("class_id", class.ID).Uint("student_id", studentID).Msg("student has no lab section")
				return time.Time{}, false, nil
			}
			return time.Time{}, false, err
		}

		meetings, err := s.labs.ListMeetings(ctx, section.ID, true)
		if err != nil {
			return time.Time{}, false, err
		}
		if len(meetings) > 0 {
			starts := make([]time.Time, 0, len(meetings))
			for _, meeting := range meetings {
				if meeting.Cancelled {
					continue
				}
				starts = append(starts, meeting.StartsAt)
			}
			start, ok := duedate.LatestBefore(starts, before)
			if ok {
				observability.LabResolutions().WithLabelValues("meeting").Inc()
			} else {
				observability.LabResolutions().WithLabelValues("none").Inc()
				s.logger.Debug().Uint("lab_section_id", section.ID).Time("before", before).Msg("no lab meeting before due date")
			}
			return start, ok, nil
		}

		clock, err := duedate.ParseClock(section.StartTime)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: section %d: %v", ErrInvalidLabSchedule, section.ID, err)
		}
		loc := s.location(section.Timezone, class.Timezone)
		observability.LabResolutions().WithLabelValues("recurrence").Inc()
		return duedate.MostRecentWeeklyOccurrence(before, time.Weekday(section.DayOfWeek), clock, loc), true, nil
	})
}

func (s *labScheduleService) location(names ...string) *time.Location {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			s.logger.Warn().Str("timezone", name).Err(err).Msg("unknown timezone, trying fallback")
			continue
		}
		return loc
	}
	return s.defaultLoc
}

func (s *labScheduleService) loadClass(ctx context.Context, classID uint) (models.Class, error) {
	class, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Class{}, ErrClassNotFound
		}
		return models.Class{}, err
	}
	return class, nil
}

func (s *labScheduleService) loadSection(ctx context.Context, classID, sectionID uint) (models.LabSection, error) {
	section, err := s.labs.GetByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.LabSection{}, ErrLabSectionNotFound
		}
		return models.LabSection{}, err
	}
	if section.ClassID != classID {
		return models.LabSection{}, ErrLabSectionNotFound
	}
	return section, nil
}

func (s *labScheduleService) invalidate(ctx context.Context, classID uint, studentIDs ...uint) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, classID, studentIDs...); err != nil {
		s.logger.Warn().Err(err).Uint("class_id", classID).Msg("failed to invalidate due date summaries")
	}
}

func (s *labScheduleService) invalidateClass(ctx context.Context, classID uint) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateClass(ctx, classID); err != nil {
		s.logger.Warn().Err(err).Uint("class_id", classID).Msg("failed to invalidate due date summaries")
	}
}
