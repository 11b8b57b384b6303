package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/duedate"
	"github.com/pawtograder/platform-sub009/internal/models"
	"github.com/pawtograder/platform-sub009/internal/observability"
	"github.com/pawtograder/platform-sub009/internal/repository"
)

// ErrDueDateUnavailable indicates the assignment lacks the input needed to compute a due date.
var ErrDueDateUnavailable = errors.New("could not compute due date")

// LabLookupProvider hands out the lab meeting lookup of a class.
type LabLookupProvider interface {
	LookupForClass(class models.Class) duedate.LabMeetingLookup
}

// DueDateResolver computes the effective due date of one student on one assignment.
// Staff and student views both go through it.
type DueDateResolver interface {
	Resolve(ctx context.Context, class models.Class, assignment models.Assignment, studentID uint) (dto.EffectiveDueDateResponse, error)
}

type dueDateResolver struct {
	groups     repository.AssignmentGroupRepository
	exceptions repository.DueDateExceptionRepository
	labs       LabLookupProvider
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewDueDateResolver wires the resolver. A nil labs provider disables lab anchoring.
func NewDueDateResolver(groups repository.AssignmentGroupRepository, exceptions repository.DueDateExceptionRepository, labs LabLookupProvider, logger zerolog.Logger) DueDateResolver {
	return &dueDateResolver{
		groups:     groups,
		exceptions: exceptions,
		labs:       labs,
		logger:     logger.With().Str("component", "due_date_resolver").Logger(),
		tracer:     otel.Tracer("github.com/pawtograder/platform-sub009/internal/service/duedate"),
	}
}

func (r *dueDateResolver) Resolve(ctx context.Context, class models.Class, assignment models.Assignment, studentID uint) (dto.EffectiveDueDateResponse, error) {
	ctx, span := r.tracer.Start(ctx, "duedate.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("assignment.id", int64(assignment.ID)),
		attribute.Int64("student.id", int64(studentID)),
	)

	started := time.Now()
	defer func() {
		observability.DueDateCompute().Observe(time.Since(started).Seconds())
	}()

	groupID, err := r.groups.GroupIDForStudent(ctx, assignment.ID, studentID)
	if err != nil {
		span.RecordError(err)
		return dto.EffectiveDueDateResponse{}, fmt.Errorf("load group: %w", err)
	}

	filter := repository.DueDateExceptionFilter{AssignmentID: assignment.ID, StudentID: &studentID}
	if groupID != nil {
		filter.GroupIDs = []uint{*groupID}
	}
	exceptions, err := r.exceptions.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return dto.EffectiveDueDateResponse{}, fmt.Errorf("load exceptions: %w", err)
	}

	var lookup duedate.LabMeetingLookup = duedate.NoLabMeetings
	if r.labs != nil {
		lookup = r.labs.LookupForClass(class)
	}

	grants := duedate.FilterForStudent(models.Grants(exceptions), studentID, groupID)
	resolution, err := duedate.Resolve(ctx, assignment.DueDateInput(), studentID, grants, lookup)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		if errors.Is(err, duedate.ErrMissingDueDate) {
			return dto.EffectiveDueDateResponse{}, fmt.Errorf("%w: %w", ErrDueDateUnavailable, err)
		}
		return dto.EffectiveDueDateResponse{}, err
	}

	if assignment.HasLabScheduling() && !resolution.LabAnchored {
		r.logger.Debug().
			Uint("assignment_id", assignment.ID).
			Uint("student_id", studentID).
			Msg("no lab meeting before due date, using nominal due date")
	}

	return dto.EffectiveDueDateResponse{
		AssignmentID:       assignment.ID,
		StudentID:          studentID,
		AssignmentGroupID:  groupID,
		NominalDueDate:     resolution.NominalDueDate,
		BaseDueDate:        resolution.BaseDueDate,
		EffectiveDueDate:   resolution.EffectiveDueDate,
		LabAnchored:        resolution.LabAnchored,
		MinutesDueAfterLab: assignment.MinutesDueAfterLab,
		Extensions:         dto.NewExtensionTotals(resolution.Totals),
		MaxLateTokens:      assignment.MaxLateTokens,
		Exceptions:         dto.NewDueDateExceptionResponseSlice(exceptions),
	}, nil
}
