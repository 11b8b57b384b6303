package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/models"
)

func TestClassServiceRosterAndGroups(t *testing.T) {
	invalidator := &recordingInvalidator{}
	f := newFixture(t, invalidator)
	svc := NewClassService(f.classes, f.students, f.assignments, f.groups, f.validate, invalidator, "America/Chicago", testLogger())
	ctx := context.Background()

	class, err := svc.CreateClass(ctx, dto.ClassCreateRequest{Name: "Operating Systems", Slug: "CS-3650", LateTokensPerStudent: 4})
	require.NoError(t, err)
	require.Equal(t, "cs-3650", class.Slug)
	require.Equal(t, "America/Chicago", class.Timezone)

	alice, err := svc.CreateStudent(ctx, dto.StudentCreateRequest{Name: "Alice", Email: "Alice@Example.com"})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", alice.Email)
	bob, err := svc.CreateStudent(ctx, dto.StudentCreateRequest{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)
	grader, err := svc.CreateStudent(ctx, dto.StudentCreateRequest{Name: "Grace", Email: "grace@example.com"})
	require.NoError(t, err)

	enrollment, err := svc.Enroll(ctx, class.ID, dto.EnrollmentRequest{StudentID: alice.ID})
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentRoleStudent, enrollment.Role)
	require.Equal(t, "Alice", enrollment.Student.Name)
	_, err = svc.Enroll(ctx, class.ID, dto.EnrollmentRequest{StudentID: bob.ID})
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, class.ID, dto.EnrollmentRequest{StudentID: grader.ID, Role: models.EnrollmentRoleGrader})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, class.ID, dto.EnrollmentRequest{StudentID: 999})
	require.ErrorIs(t, err, ErrStudentNotFound)

	roster, err := svc.ListEnrollments(ctx, class.ID, models.EnrollmentRoleStudent)
	require.NoError(t, err)
	require.Len(t, roster, 2)

	individual := models.Assignment{ClassID: class.ID, Title: "Solo", DueDate: time.Now().Add(time.Hour)}
	require.NoError(t, f.assignments.Create(ctx, &individual))
	_, err = svc.CreateGroup(ctx, class.ID, individual.ID, dto.AssignmentGroupCreateRequest{Name: "Team", StudentIDs: []uint{alice.ID}})
	require.ErrorIs(t, err, ErrNotGroupAssignment)

	team := models.Assignment{ClassID: class.ID, Title: "Team", DueDate: time.Now().Add(time.Hour), GroupAssignment: true}
	require.NoError(t, f.assignments.Create(ctx, &team))

	_, err = svc.CreateGroup(ctx, class.ID, team.ID, dto.AssignmentGroupCreateRequest{Name: "Team", StudentIDs: []uint{alice.ID, 777}})
	require.ErrorIs(t, err, ErrStudentNotEnrolled)

	group, err := svc.CreateGroup(ctx, class.ID, team.ID, dto.AssignmentGroupCreateRequest{Name: "Team A", StudentIDs: []uint{alice.ID, bob.ID}})
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{alice.ID, bob.ID}, group.StudentIDs)
	require.ElementsMatch(t, []uint{alice.ID, bob.ID}, invalidator.students)

	groups, err := svc.ListGroups(ctx, class.ID, team.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].StudentIDs, 2)

	_, err = svc.ListGroups(ctx, class.ID+1, team.ID)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestClassServiceGetMissing(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewClassService(f.classes, f.students, f.assignments, f.groups, f.validate, nil, "", testLogger())

	_, err := svc.GetClass(context.Background(), 5)
	require.ErrorIs(t, err, ErrClassNotFound)

	_, err = svc.CreateClass(context.Background(), dto.ClassCreateRequest{Name: "X", Slug: "x"})
	require.Error(t, err)
}

func TestClassServiceRejectsDuplicates(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewClassService(f.classes, f.students, f.assignments, f.groups, f.validate, nil, "UTC", testLogger())
	ctx := context.Background()

	_, err := svc.CreateClass(ctx, dto.ClassCreateRequest{Name: "Networks", Slug: "cs-4700"})
	require.NoError(t, err)
	_, err = svc.CreateClass(ctx, dto.ClassCreateRequest{Name: "Networks II", Slug: " CS-4700 "})
	require.ErrorIs(t, err, ErrClassSlugTaken)

	_, err = svc.CreateStudent(ctx, dto.StudentCreateRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = svc.CreateStudent(ctx, dto.StudentCreateRequest{Name: "Alice Again", Email: "ALICE@example.com"})
	require.ErrorIs(t, err, ErrStudentEmailTaken)
}

func TestClassServiceCreateGroupLeavesNothingBehindOnConflict(t *testing.T) {
	invalidator := &recordingInvalidator{}
	f := newFixture(t, invalidator)
	svc := NewClassService(f.classes, f.students, f.assignments, f.groups, f.validate, invalidator, "UTC", testLogger())
	ctx := context.Background()

	class := f.class(t, 3)
	alice := f.student(t, class, "Alice")
	bob := f.student(t, class, "Bob")
	team := models.Assignment{ClassID: class.ID, Title: "Team", DueDate: time.Now().Add(time.Hour), GroupAssignment: true}
	require.NoError(t, f.assignments.Create(ctx, &team))

	_, err := svc.CreateGroup(ctx, class.ID, team.ID, dto.AssignmentGroupCreateRequest{Name: "A", StudentIDs: []uint{alice.ID}})
	require.NoError(t, err)
	invalidator.students = nil

	_, err = svc.CreateGroup(ctx, class.ID, team.ID, dto.AssignmentGroupCreateRequest{Name: "B", StudentIDs: []uint{bob.ID, alice.ID}})
	require.ErrorIs(t, err, ErrStudentAlreadyGrouped)

	_, err = svc.CreateGroup(ctx, class.ID, team.ID, dto.AssignmentGroupCreateRequest{Name: "C", StudentIDs: []uint{bob.ID, bob.ID}})
	require.ErrorIs(t, err, ErrStudentAlreadyGrouped)

	groups, err := svc.ListGroups(ctx, class.ID, team.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "A", groups[0].Name)

	groupID, err := f.groups.GroupIDForStudent(ctx, team.ID, bob.ID)
	require.NoError(t, err)
	require.Nil(t, groupID)
	require.Empty(t, invalidator.students)
}

func TestClassServiceRejectsDuplicateEnrollment(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewClassService(f.classes, f.students, f.assignments, f.groups, f.validate, nil, "UTC", testLogger())
	ctx := context.Background()

	class := f.class(t, 3)
	alice := f.student(t, class, "Alice")

	_, err := svc.Enroll(ctx, class.ID, dto.EnrollmentRequest{StudentID: alice.ID})
	require.ErrorIs(t, err, ErrAlreadyEnrolled)

	roster, err := svc.ListEnrollments(ctx, class.ID, "")
	require.NoError(t, err)
	require.Len(t, roster, 1)
}
