package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/service"
	"github.com/pawtograder/platform-sub009/internal/utils"
)

// ClassHandler exposes classes, rosters and assignment groups.
type ClassHandler struct {
	service service.ClassService
	logger  zerolog.Logger
}

// NewClassHandler constructs the handler.
func NewClassHandler(service service.ClassService, logger zerolog.Logger) *ClassHandler {
	return &ClassHandler{
		service: service,
		logger:  logger.With().Str("component", "class_handler").Logger(),
	}
}

// Register attaches class routes to the /classes group.
func (h *ClassHandler) Register(router fiber.Router) {
	router.Post("", h.createClass)
	router.Get("/:classId", h.getClass)
	router.Get("/:classId/enrollments", h.listEnrollments)
	router.Post("/:classId/enrollments", h.enroll)
	router.Get("/:classId/assignments/:assignmentId/groups", h.listGroups)
	router.Post("/:classId/assignments/:assignmentId/groups", h.createGroup)
}

// RegisterStudents attaches student record routes to the /students group.
func (h *ClassHandler) RegisterStudents(router fiber.Router) {
	router.Post("", h.createStudent)
}

func (h *ClassHandler) createClass(c *fiber.Ctx) error {
	var payload dto.ClassCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	class, err := h.service.CreateClass(c.UserContext(), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "class created", class)
}

func (h *ClassHandler) getClass(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	class, err := h.service.GetClass(c.UserContext(), classID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "class retrieved", class)
}

func (h *ClassHandler) createStudent(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.CreateStudent(c.UserContext(), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *ClassHandler) enroll(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.EnrollmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	enrollment, err := h.service.Enroll(c.UserContext(), classID, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student enrolled", enrollment)
}

func (h *ClassHandler) listEnrollments(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	enrollments, err := h.service.ListEnrollments(c.UserContext(), classID, c.Query("role"))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "enrollments retrieved", enrollments)
}

func (h *ClassHandler) createGroup(c *fiber.Ctx) error {
	classID, assignmentID, err := classAssignmentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentGroupCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	group, err := h.service.CreateGroup(c.UserContext(), classID, assignmentID, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment group created", group)
}

func (h *ClassHandler) listGroups(c *fiber.Ctx) error {
	classID, assignmentID, err := classAssignmentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	groups, err := h.service.ListGroups(c.UserContext(), classID, assignmentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment groups retrieved", groups)
}
