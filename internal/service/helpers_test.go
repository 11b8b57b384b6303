package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/models"
	"github.com/pawtograder/platform-sub009/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func ptrUint(v uint) *uint {
	return &v
}

func ptrInt(v int) *int {
	return &v
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

var classSeq atomic.Int64

// fixture bundles repositories and services over one sqlite database.
type fixture struct {
	db          *gorm.DB
	validate    *validator.Validate
	classes     repository.ClassRepository
	students    repository.StudentRepository
	assignments repository.AssignmentRepository
	groups      repository.AssignmentGroupRepository
	labs        repository.LabSectionRepository
	exceptions  repository.DueDateExceptionRepository
	activity    repository.ActivityLogRepository
	labService  LabScheduleService
	resolver    DueDateResolver
}

func newFixture(t *testing.T, invalidator SummaryInvalidator) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:          db,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		classes:     repository.NewClassRepository(db),
		students:    repository.NewStudentRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		groups:      repository.NewAssignmentGroupRepository(db),
		labs:        repository.NewLabSectionRepository(db),
		exceptions:  repository.NewDueDateExceptionRepository(db),
		activity:    repository.NewActivityLogRepository(db),
	}
	f.labService = NewLabScheduleService(f.labs, f.classes, f.validate, invalidator, time.UTC, testLogger())
	f.resolver = NewDueDateResolver(f.groups, f.exceptions, f.labService, testLogger())
	return f
}

func (f *fixture) class(t *testing.T, allowance int) models.Class {
	t.Helper()
	class := models.Class{Name: "Systems", Slug: fmt.Sprintf("systems-%d", classSeq.Add(1)), LateTokensPerStudent: allowance, Timezone: "UTC"}
	require.NoError(t, f.classes.Create(context.Background(), &class))
	return class
}

func (f *fixture) student(t *testing.T, class models.Class, name string) models.Student {
	t.Helper()
	student := models.Student{Name: name, Email: strings.ToLower(name) + "@example.com"}
	require.NoError(t, f.students.Create(context.Background(), &student))
	require.NoError(t, f.classes.Enroll(context.Background(), &models.ClassEnrollment{ClassID: class.ID, StudentID: student.ID, Role: models.EnrollmentRoleStudent}))
	return student
}

func (f *fixture) assignment(t *testing.T, class models.Class, due time.Time, offset *int, maxTokens int) models.Assignment {
	t.Helper()
	assignment := models.Assignment{ClassID: class.ID, Title: "Project", DueDate: due, MinutesDueAfterLab: offset, MaxLateTokens: maxTokens}
	require.NoError(t, f.assignments.Create(context.Background(), &assignment))
	return assignment
}

func (f *fixture) grant(t *testing.T, exception models.DueDateException) models.DueDateException {
	t.Helper()
	require.NoError(t, f.exceptions.Create(context.Background(), &exception))
	return exception
}
