package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/service"
	"github.com/pawtograder/platform-sub009/internal/utils"
)

// DueDateExceptionHandler serves the instructor due date editor: grants,
// per-student effective dates, the roster view and token balances.
type DueDateExceptionHandler struct {
	service      service.DueDateExceptionService
	writeLimiter fiber.Handler
	logger       zerolog.Logger
}

// NewDueDateExceptionHandler constructs the handler. writeLimiter guards grant
// writes and may be nil.
func NewDueDateExceptionHandler(service service.DueDateExceptionService, writeLimiter fiber.Handler, logger zerolog.Logger) *DueDateExceptionHandler {
	if writeLimiter == nil {
		writeLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &DueDateExceptionHandler{
		service:      service,
		writeLimiter: writeLimiter,
		logger:       logger.With().Str("component", "due_date_exception_handler").Logger(),
	}
}

// Register attaches routes to a /classes/:classId group.
func (h *DueDateExceptionHandler) Register(router fiber.Router) {
	router.Get("/assignments/:assignmentId/due-date-exceptions", h.list)
	router.Post("/assignments/:assignmentId/due-date-exceptions", h.writeLimiter, h.create)
	router.Delete("/assignments/:assignmentId/due-date-exceptions/:exceptionId", h.writeLimiter, h.delete)
	router.Get("/assignments/:assignmentId/due-dates", h.roster)
	router.Get("/assignments/:assignmentId/students/:studentId/due-date", h.effective)
	router.Get("/students/:studentId/tokens", h.tokens)
}

func (h *DueDateExceptionHandler) create(c *fiber.Ctx) error {
	classID, assignmentID, err := classAssignmentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.DueDateExceptionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Create(c.UserContext(), classID, assignmentID, activityActorFromContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "due date exception created", result)
}

func (h *DueDateExceptionHandler) delete(c *fiber.Ctx) error {
	classID, assignmentID, err := classAssignmentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	exceptionID, err := parseUintParam(c, "exceptionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), classID, assignmentID, exceptionID, activityActorFromContext(c)); err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "due date exception deleted", fiber.Map{"id": exceptionID})
}

func (h *DueDateExceptionHandler) list(c *fiber.Ctx) error {
	classID, assignmentID, err := classAssignmentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	groupID, err := parseQueryUint(c, "assignment_group_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	items, err := h.service.List(c.UserContext(), classID, assignmentID, dto.DueDateExceptionListRequest{
		StudentID:         studentID,
		AssignmentGroupID: groupID,
	})
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "due date exceptions retrieved", items)
}

func (h *DueDateExceptionHandler) roster(c *fiber.Ctx) error {
	classID, assignmentID, err := classAssignmentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	roster, err := h.service.Roster(c.UserContext(), classID, assignmentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "due dates retrieved", roster)
}

func (h *DueDateExceptionHandler) effective(c *fiber.Ctx) error {
	classID, assignmentID, err := classAssignmentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.EffectiveDueDate(c.UserContext(), classID, assignmentID, studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "effective due date retrieved", result)
}

func (h *DueDateExceptionHandler) tokens(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	balance, err := h.service.TokenBalance(c.UserContext(), classID, studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "token balance retrieved", balance)
}
