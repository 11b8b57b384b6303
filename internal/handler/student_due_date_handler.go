package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pawtograder/platform-sub009/internal/service"
	"github.com/pawtograder/platform-sub009/internal/utils"
)

// StudentDueDateHandler exposes a student's own due dates. The student is the
// authenticated subject; no student id is accepted from the path.
type StudentDueDateHandler struct {
	summaries  service.StudentSummaryService
	exceptions service.DueDateExceptionService
	logger     zerolog.Logger
}

// NewStudentDueDateHandler creates a new handler instance.
func NewStudentDueDateHandler(summaries service.StudentSummaryService, exceptions service.DueDateExceptionService, logger zerolog.Logger) *StudentDueDateHandler {
	return &StudentDueDateHandler{
		summaries:  summaries,
		exceptions: exceptions,
		logger:     logger.With().Str("component", "student_due_date_handler").Logger(),
	}
}

// Register attaches the student endpoints.
func (h *StudentDueDateHandler) Register(router fiber.Router) {
	router.Get("/classes/:classId/summary", h.summary)
	router.Get("/classes/:classId/calendar.ics", h.calendar)
	router.Get("/classes/:classId/tokens", h.tokens)
	router.Get("/classes/:classId/assignments/:assignmentId/due-date", h.effective)
}

func (h *StudentDueDateHandler) summary(c *fiber.Ctx) error {
	studentID, err := extractUserID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.summaries.Summary(c.UserContext(), classID, studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, summary, "due date summary retrieved", fiber.Map{"cache_hit": summary.CacheHit})
}

func (h *StudentDueDateHandler) calendar(c *fiber.Ctx) error {
	studentID, err := extractUserID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	feed, err := h.summaries.CalendarFeed(c.UserContext(), classID, studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="class-%d.ics"`, classID))
	return c.SendString(feed)
}

func (h *StudentDueDateHandler) tokens(c *fiber.Ctx) error {
	studentID, err := extractUserID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	balance, err := h.exceptions.TokenBalance(c.UserContext(), classID, studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "token balance retrieved", balance)
}

func (h *StudentDueDateHandler) effective(c *fiber.Ctx) error {
	studentID, err := extractUserID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}
	classID, assignmentID, err := classAssignmentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.exceptions.EffectiveDueDate(c.UserContext(), classID, assignmentID, studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "effective due date retrieved", result)
}
