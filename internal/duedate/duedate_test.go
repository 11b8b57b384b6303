package duedate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }

func fixedLab(start time.Time) LabMeetingLookup {
	return LabMeetingLookupFunc(func(_ context.Context, _ uint, before time.Time) (time.Time, bool, error) {
		if !start.Before(before) {
			return time.Time{}, false, nil
		}
		return start, true, nil
	})
}

func TestResolveBaseDueDateWithoutLabOffset(t *testing.T) {
	due := mustParse(t, "2024-04-10T23:59:00Z")
	called := false
	labs := LabMeetingLookupFunc(func(context.Context, uint, time.Time) (time.Time, bool, error) {
		called = true
		return due.Add(-time.Hour), true, nil
	})

	base, err := ResolveBaseDueDate(context.Background(), Assignment{DueDate: due}, 7, labs)
	require.NoError(t, err)
	require.True(t, base.Equal(due))
	require.False(t, called, "lookup must not run without a lab offset")
}

func TestResolveBaseDueDateAddsLabOffset(t *testing.T) {
	meeting := mustParse(t, "2024-03-01T10:00:00Z")
	assignment := Assignment{DueDate: mustParse(t, "2024-03-05T23:59:00Z"), MinutesDueAfterLab: intPtr(90)}

	base, err := ResolveBaseDueDate(context.Background(), assignment, 1, fixedLab(meeting))
	require.NoError(t, err)
	require.Equal(t, mustParse(t, "2024-03-01T11:30:00Z"), base.UTC())
}

func TestResolveBaseDueDateFallsBackWithoutMeeting(t *testing.T) {
	due := mustParse(t, "2024-04-10T23:59:00Z")
	assignment := Assignment{DueDate: due, MinutesDueAfterLab: intPtr(60)}

	base, err := ResolveBaseDueDate(context.Background(), assignment, 1, NoLabMeetings)
	require.NoError(t, err)
	require.True(t, base.Equal(due))

	passthrough, err := ResolveBaseDueDate(context.Background(), Assignment{DueDate: due}, 1, NoLabMeetings)
	require.NoError(t, err)
	require.True(t, base.Equal(passthrough))

	nilLookup, err := ResolveBaseDueDate(context.Background(), assignment, 1, nil)
	require.NoError(t, err)
	require.True(t, nilLookup.Equal(due))
}

func TestResolveBaseDueDateIgnoresMeetingAtOrAfterDueDate(t *testing.T) {
	due := mustParse(t, "2024-04-10T23:59:00Z")
	labs := LabMeetingLookupFunc(func(context.Context, uint, time.Time) (time.Time, bool, error) {
		return due, true, nil
	})

	base, err := ResolveBaseDueDate(context.Background(), Assignment{DueDate: due, MinutesDueAfterLab: intPtr(30)}, 1, labs)
	require.NoError(t, err)
	require.True(t, base.Equal(due))
}

func TestResolveBaseDueDatePropagatesLookupErrors(t *testing.T) {
	boom := errors.New("lab store unavailable")
	labs := LabMeetingLookupFunc(func(context.Context, uint, time.Time) (time.Time, bool, error) {
		return time.Time{}, false, boom
	})

	_, err := ResolveBaseDueDate(context.Background(), Assignment{DueDate: time.Now(), MinutesDueAfterLab: intPtr(10)}, 1, labs)
	require.ErrorIs(t, err, boom)
}

func TestMissingDueDateIsRejected(t *testing.T) {
	_, err := EffectiveDueDate(context.Background(), Assignment{}, 1, nil, NoLabMeetings)
	require.ErrorIs(t, err, ErrMissingDueDate)

	_, err = ResolveBaseDueDate(context.Background(), Assignment{MinutesDueAfterLab: intPtr(5)}, 1, NoLabMeetings)
	require.ErrorIs(t, err, ErrMissingDueDate)
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	grants := []Grant{
		{Hours: 24, Minutes: 0, TokensConsumed: 1},
		{Hours: 0, Minutes: 45, TokensConsumed: 0},
		{Hours: 3, Minutes: 15, TokensConsumed: 2},
	}
	expected := Totals{Hours: 27, Minutes: 60, TokensConsumed: 3}

	permutations := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, order := range permutations {
		shuffled := make([]Grant, 0, len(order))
		for _, idx := range order {
			shuffled = append(shuffled, grants[idx])
		}
		require.Equal(t, expected, Aggregate(shuffled))
	}
}

func TestAggregateEmpty(t *testing.T) {
	require.Equal(t, Totals{}, Aggregate(nil))
	require.Equal(t, Totals{}, Aggregate([]Grant{}))
}

func TestAggregateDoesNotCarryMinutes(t *testing.T) {
	totals := Aggregate([]Grant{{Minutes: 45}, {Minutes: 45}})
	require.Equal(t, 0, totals.Hours)
	require.Equal(t, 90, totals.Minutes)

	hours, minutes := totals.Normalized()
	require.Equal(t, 1, hours)
	require.Equal(t, 30, minutes)
	require.Equal(t, 90*time.Minute, totals.Extension())
}

func TestAggregateKeepsNegativeValues(t *testing.T) {
	totals := Aggregate([]Grant{{Hours: 5}, {Hours: -7, Minutes: -10, TokensConsumed: -1}})
	require.Equal(t, Totals{Hours: -2, Minutes: -10, TokensConsumed: -1}, totals)

	due := mustParse(t, "2024-04-10T12:00:00Z")
	effective, err := EffectiveDueDate(context.Background(), Assignment{DueDate: due}, 1, []Grant{{Hours: -1}}, NoLabMeetings)
	require.NoError(t, err)
	require.Equal(t, mustParse(t, "2024-04-10T11:00:00Z"), effective.UTC())
}

func TestEffectiveDueDateWithoutGrantsEqualsBase(t *testing.T) {
	meeting := mustParse(t, "2024-04-08T14:00:00Z")
	assignment := Assignment{DueDate: mustParse(t, "2024-04-10T23:59:00Z"), MinutesDueAfterLab: intPtr(60)}

	base, err := ResolveBaseDueDate(context.Background(), assignment, 3, fixedLab(meeting))
	require.NoError(t, err)
	effective, err := EffectiveDueDate(context.Background(), assignment, 3, nil, fixedLab(meeting))
	require.NoError(t, err)
	require.True(t, base.Equal(effective))
}

func TestEffectiveDueDateCumulativeExtensions(t *testing.T) {
	assignment := Assignment{DueDate: mustParse(t, "2024-03-01T00:00:00Z")}
	grants := []Grant{{Hours: 24}, {Minutes: 90}}

	effective, err := EffectiveDueDate(context.Background(), assignment, 1, grants, NoLabMeetings)
	require.NoError(t, err)
	require.Equal(t, mustParse(t, "2024-03-02T01:30:00Z"), effective.UTC())
}

func TestEffectiveDueDateScenarios(t *testing.T) {
	due := mustParse(t, "2024-04-10T23:59:00Z")
	meeting := mustParse(t, "2024-04-08T14:00:00Z")

	cases := []struct {
		name       string
		assignment Assignment
		grants     []Grant
		labs       LabMeetingLookup
		expected   string
		anchored   bool
	}{
		{
			name:       "nominal due date with one day extension",
			assignment: Assignment{DueDate: due},
			grants:     []Grant{{Hours: 24}},
			labs:       fixedLab(meeting),
			expected:   "2024-04-11T23:59:00Z",
		},
		{
			name:       "lab anchored without grants",
			assignment: Assignment{DueDate: due, MinutesDueAfterLab: intPtr(60)},
			labs:       fixedLab(meeting),
			expected:   "2024-04-08T15:00:00Z",
			anchored:   true,
		},
		{
			name:       "lab anchored with thirty minute grant",
			assignment: Assignment{DueDate: due, MinutesDueAfterLab: intPtr(60)},
			grants:     []Grant{{Minutes: 30}},
			labs:       fixedLab(meeting),
			expected:   "2024-04-08T15:30:00Z",
			anchored:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolution, err := Resolve(context.Background(), tc.assignment, 9, tc.grants, tc.labs)
			require.NoError(t, err)
			require.Equal(t, mustParse(t, tc.expected), resolution.EffectiveDueDate.UTC())
			require.Equal(t, tc.anchored, resolution.LabAnchored)
			require.True(t, resolution.NominalDueDate.Equal(due))

			again, err := EffectiveDueDate(context.Background(), tc.assignment, 9, tc.grants, tc.labs)
			require.NoError(t, err)
			require.True(t, again.Equal(resolution.EffectiveDueDate))
		})
	}
}

func TestFilterForStudentIncludesPersonalAndGroupGrants(t *testing.T) {
	grants := []Grant{
		{StudentID: uintPtr(1), Hours: 1},
		{StudentID: uintPtr(2), Hours: 2},
		{GroupID: uintPtr(10), Hours: 4},
		{GroupID: uintPtr(11), Hours: 8},
	}

	relevant := FilterForStudent(grants, 1, uintPtr(10))
	require.Len(t, relevant, 2)
	require.Equal(t, 5, Aggregate(relevant).Hours)

	withoutGroup := FilterForStudent(grants, 1, nil)
	require.Len(t, withoutGroup, 1)
}

func TestRemainingTokensMayGoNegative(t *testing.T) {
	require.Equal(t, 3, RemainingTokens(5, 2))
	require.Equal(t, 0, RemainingTokens(2, 2))
	require.Equal(t, -1, RemainingTokens(2, 3))
}
