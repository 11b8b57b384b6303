package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pawtograder/platform-sub009/internal/config"
	"github.com/pawtograder/platform-sub009/internal/handler"
	"github.com/pawtograder/platform-sub009/internal/middleware"
	"github.com/pawtograder/platform-sub009/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ClassHandler            *handler.ClassHandler
	AssignmentHandler       *handler.AssignmentHandler
	LabScheduleHandler      *handler.LabScheduleHandler
	DueDateExceptionHandler *handler.DueDateExceptionHandler
	ActivityHandler         *handler.ActivityHandler
	StudentDueDateHandler   *handler.StudentDueDateHandler
	JWTMiddleware           fiber.Handler
	HealthProbes            []handler.Probe
	// StaffMiddleware gates instructor routes; defaults to RequireRole(middleware.StaffRoles...).
	StaffMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	staffMiddleware := deps.StaffMiddleware
	if staffMiddleware == nil {
		staffMiddleware = middleware.RequireRole(middleware.StaffRoles...)
	}

	// Instructor and grader surface
	directory := app.Group("/api/v2/directory", jwtMiddleware, staffMiddleware)
	if deps.ClassHandler != nil {
		deps.ClassHandler.RegisterStudents(directory.Group("/students"))
	}

	classes := app.Group("/api/v2/classes", jwtMiddleware, staffMiddleware)
	if deps.ClassHandler != nil {
		deps.ClassHandler.Register(classes)
	}
	class := classes.Group("/:classId")
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(class.Group("/assignments"))
	}
	if deps.LabScheduleHandler != nil {
		deps.LabScheduleHandler.Register(class.Group("/lab-sections"))
	}
	if deps.DueDateExceptionHandler != nil {
		deps.DueDateExceptionHandler.Register(class)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(class)
	}

	// Student self-service surface
	if deps.StudentDueDateHandler != nil {
		student := app.Group("/api/v2/student", jwtMiddleware, middleware.RequireSubject(middleware.RoleStudent))
		deps.StudentDueDateHandler.Register(student)
	}
}
