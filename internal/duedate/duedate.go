// Package duedate resolves the effective deadline of one student on one assignment.
//
// The effective due date is the nominal due date, optionally re-anchored to the
// student's most recent lab meeting, plus the sum of every extension granted to the
// student or their assignment group. All arithmetic is done on absolute instants.
package duedate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMissingDueDate indicates an assignment without a nominal due date was passed in.
var ErrMissingDueDate = errors.New("assignment due date is required")

// Assignment is the read-only view of an assignment the calculator needs.
type Assignment struct {
	DueDate            time.Time
	MinutesDueAfterLab *int
	MaxLateTokens      int
}

// LabScheduled reports whether the assignment is due relative to lab meetings.
func (a Assignment) LabScheduled() bool {
	return a.MinutesDueAfterLab != nil
}

// ValidateAssignment checks the preconditions of the calculator.
func ValidateAssignment(a Assignment) error {
	if a.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	return nil
}

// LabMeetingLookup answers when a student's most recent lab meeting started.
// Implementations return ok=false when the student has no meeting strictly before
// the given instant, including when the student is not in any lab section.
type LabMeetingLookup interface {
	MostRecentLabMeetingBefore(ctx context.Context, studentID uint, before time.Time) (start time.Time, ok bool, err error)
}

// LabMeetingLookupFunc adapts a function into a LabMeetingLookup.
type LabMeetingLookupFunc func(ctx context.Context, studentID uint, before time.Time) (time.Time, bool, error)

// MostRecentLabMeetingBefore calls f.
func (f LabMeetingLookupFunc) MostRecentLabMeetingBefore(ctx context.Context, studentID uint, before time.Time) (time.Time, bool, error) {
	return f(ctx, studentID, before)
}

// NoLabMeetings is a lookup that never finds a meeting.
var NoLabMeetings LabMeetingLookup = LabMeetingLookupFunc(func(context.Context, uint, time.Time) (time.Time, bool, error) {
	return time.Time{}, false, nil
})

// Grant is one due date exception as seen by the calculator.
type Grant struct {
	StudentID      *uint
	GroupID        *uint
	Hours          int
	Minutes        int
	TokensConsumed int
}

// Totals is the plain sum of a set of grants. Minutes are not carried into hours.
type Totals struct {
	Hours          int `json:"hours"`
	Minutes        int `json:"minutes"`
	TokensConsumed int `json:"tokens_consumed"`
}

// Extension converts the totals into a fixed duration.
func (t Totals) Extension() time.Duration {
	return time.Duration(t.Hours)*time.Hour + time.Duration(t.Minutes)*time.Minute
}

// Normalized carries whole hours out of the minute total for display.
func (t Totals) Normalized() (hours, minutes int) {
	total := t.Hours*60 + t.Minutes
	return total / 60, total % 60
}

// Resolution carries every intermediate value of a due date computation.
type Resolution struct {
	NominalDueDate   time.Time `json:"nominal_due_date"`
	BaseDueDate      time.Time `json:"base_due_date"`
	EffectiveDueDate time.Time `json:"effective_due_date"`
	LabAnchored      bool      `json:"lab_anchored"`
	Totals           Totals    `json:"totals"`
}

// ResolveBaseDueDate returns the lab-resolved base date for a student. Without a lab
// offset, or when no meeting precedes the nominal due date, the nominal date is used.
func ResolveBaseDueDate(ctx context.Context, a Assignment, studentID uint, labs LabMeetingLookup) (time.Time, error) {
	base, _, err := resolveBase(ctx, a, studentID, labs)
	return base, err
}

func resolveBase(ctx context.Context, a Assignment, studentID uint, labs LabMeetingLookup) (time.Time, bool, error) {
	if err := ValidateAssignment(a); err != nil {
		return time.Time{}, false, err
	}
	if !a.LabScheduled() || labs == nil {
		return a.DueDate, false, nil
	}

	start, ok, err := labs.MostRecentLabMeetingBefore(ctx, studentID, a.DueDate)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("lookup lab meeting: %w", err)
	}
	if !ok || !start.Before(a.DueDate) {
		return a.DueDate, false, nil
	}

	return start.Add(time.Duration(*a.MinutesDueAfterLab) * time.Minute), true, nil
}

// Aggregate sums hours, minutes and tokens across grants. The caller filters the
// grants down to one target beforehand.
func Aggregate(grants []Grant) Totals {
	var totals Totals
	for _, grant := range grants {
		totals.Hours += grant.Hours
		totals.Minutes += grant.Minutes
		totals.TokensConsumed += grant.TokensConsumed
	}
	return totals
}

// Resolve computes the effective due date together with its intermediate values.
func Resolve(ctx context.Context, a Assignment, studentID uint, grants []Grant, labs LabMeetingLookup) (Resolution, error) {
	base, anchored, err := resolveBase(ctx, a, studentID, labs)
	if err != nil {
		return Resolution{}, err
	}

	totals := Aggregate(grants)
	effective := base.Add(time.Duration(totals.Hours) * time.Hour).Add(time.Duration(totals.Minutes) * time.Minute)

	return Resolution{
		NominalDueDate:   a.DueDate,
		BaseDueDate:      base,
		EffectiveDueDate: effective,
		LabAnchored:      anchored,
		Totals:           totals,
	}, nil
}

// EffectiveDueDate returns the final deadline of a student on an assignment.
func EffectiveDueDate(ctx context.Context, a Assignment, studentID uint, grants []Grant, labs LabMeetingLookup) (time.Time, error) {
	resolution, err := Resolve(ctx, a, studentID, grants, labs)
	if err != nil {
		return time.Time{}, err
	}
	return resolution.EffectiveDueDate, nil
}

// FilterForStudent keeps the grants that target the student directly or the
// student's assignment group. A nil groupID matches no group grant.
func FilterForStudent(grants []Grant, studentID uint, groupID *uint) []Grant {
	relevant := make([]Grant, 0, len(grants))
	for _, grant := range grants {
		switch {
		case grant.StudentID != nil && *grant.StudentID == studentID:
			relevant = append(relevant, grant)
		case grant.GroupID != nil && groupID != nil && *grant.GroupID == *groupID:
			relevant = append(relevant, grant)
		}
	}
	return relevant
}

// RemainingTokens is the class allowance minus tokens already consumed. The result
// may be negative when staff granted past the allowance.
func RemainingTokens(classAllowance, consumed int) int {
	return classAllowance - consumed
}
