package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawtograder/platform-sub009/internal/config"
	"github.com/pawtograder/platform-sub009/internal/handler"
	"github.com/pawtograder/platform-sub009/internal/middleware"
	"github.com/pawtograder/platform-sub009/internal/models"
	"github.com/pawtograder/platform-sub009/internal/repository"
	"github.com/pawtograder/platform-sub009/internal/router"
	"github.com/pawtograder/platform-sub009/internal/service"
)

const (
	userHeader       = "X-Test-User"
	roleHeader       = "X-Test-Role"
)

type testAPI struct {
	app   *fiber.App
	db    *gorm.DB
	redis *miniredis.Miniredis
}

// testIdentity stands in for the JWT middleware: the caller is whoever the
// test headers name.
func testIdentity(c *fiber.Ctx) error {
	if id, err := strconv.ParseUint(c.Get(userHeader), 10, 64); err == nil {
		c.Locals("user_id", uint(id))
	}
	if role := c.Get(roleHeader); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	groupRepo := repository.NewAssignmentGroupRepository(db)
	labRepo := repository.NewLabSectionRepository(db)
	exceptionRepo := repository.NewDueDateExceptionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	invalidator := service.NewSummaryCacheInvalidator(redisClient)
	activityService := service.NewActivityService(activityRepo, logger)
	classService := service.NewClassService(classRepo, studentRepo, assignmentRepo, groupRepo, validate, invalidator, "UTC", logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, classRepo, validate, invalidator, logger)
	labService := service.NewLabScheduleService(labRepo, classRepo, validate, invalidator, time.UTC, logger)
	resolver := service.NewDueDateResolver(groupRepo, exceptionRepo, labService, logger)
	exceptionService := service.NewDueDateExceptionService(service.DueDateExceptionServiceConfig{
		Exceptions:  exceptionRepo,
		Assignments: assignmentRepo,
		Classes:     classRepo,
		Groups:      groupRepo,
		Resolver:    resolver,
		Activity:    activityService,
		Events:      service.NewEventPublisher(redisClient, "classops", nil, logger),
		Cache:       invalidator,
		Validator:   validate,
		Logger:      logger,
	})
	summaryService := service.NewStudentSummaryService(classRepo, assignmentRepo, groupRepo, exceptionRepo, resolver, redisClient, time.Minute, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: "secret"}, router.Dependencies{
		ClassHandler:            handler.NewClassHandler(classService, logger),
		AssignmentHandler:       handler.NewAssignmentHandler(assignmentService, logger),
		LabScheduleHandler:      handler.NewLabScheduleHandler(labService, logger),
		DueDateExceptionHandler: handler.NewDueDateExceptionHandler(exceptionService, nil, logger),
		ActivityHandler:         handler.NewActivityHandler(activityService, logger),
		StudentDueDateHandler:   handler.NewStudentDueDateHandler(summaryService, exceptionService, logger),
		JWTMiddleware:           testIdentity,
	})

	return &testAPI{app: app, db: db, redis: mini}
}

type envelope[T any] struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    T                 `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

// do sends a request as the given user and role; a zero user sends no identity.
func (a *testAPI) do(t *testing.T, method, path string, userID uint, role string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set(userHeader, strconv.FormatUint(uint64(userID), 10))
	}
	if role != "" {
		req.Header.Set(roleHeader, role)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (a *testAPI) staff(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	return a.do(t, method, path, 500, "instructor", body)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target), string(data))
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		data, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.Equalf(t, status, resp.StatusCode, "body: %s", data)
	}
}

func ptrInt(v int) *int {
	return &v
}

func ptrUint(v uint) *uint {
	return &v
}
