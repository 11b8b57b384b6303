package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/service"
	"github.com/pawtograder/platform-sub009/internal/utils"
)

// LabScheduleHandler manages lab sections, their members and meetings.
type LabScheduleHandler struct {
	service service.LabScheduleService
	logger  zerolog.Logger
}

// NewLabScheduleHandler constructs the handler.
func NewLabScheduleHandler(service service.LabScheduleService, logger zerolog.Logger) *LabScheduleHandler {
	return &LabScheduleHandler{
		service: service,
		logger:  logger.With().Str("component", "lab_schedule_handler").Logger(),
	}
}

// Register attaches routes to a /classes/:classId/lab-sections group.
func (h *LabScheduleHandler) Register(router fiber.Router) {
	router.Get("", h.listSections)
	router.Post("", h.createSection)
	router.Post("/:sectionId/members", h.assignStudent)
	router.Get("/:sectionId/meetings", h.listMeetings)
	router.Post("/:sectionId/meetings", h.createMeeting)
	router.Post("/:sectionId/meetings/:meetingId/cancel", h.cancelMeeting)
}

func (h *LabScheduleHandler) listSections(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	sections, err := h.service.ListSections(c.UserContext(), classID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "lab sections retrieved", sections)
}

func (h *LabScheduleHandler) createSection(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LabSectionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	section, err := h.service.CreateSection(c.UserContext(), classID, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "lab section created", section)
}

func (h *LabScheduleHandler) assignStudent(c *fiber.Ctx) error {
	classID, sectionID, err := h.sectionParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LabSectionMemberRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.AssignStudent(c.UserContext(), classID, sectionID, payload); err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "student assigned to lab section", fiber.Map{
		"lab_section_id": sectionID,
		"student_id":     payload.StudentID,
	})
}

func (h *LabScheduleHandler) listMeetings(c *fiber.Ctx) error {
	classID, sectionID, err := h.sectionParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	meetings, err := h.service.ListMeetings(c.UserContext(), classID, sectionID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "lab meetings retrieved", meetings)
}

func (h *LabScheduleHandler) createMeeting(c *fiber.Ctx) error {
	classID, sectionID, err := h.sectionParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LabMeetingCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	meeting, err := h.service.CreateMeeting(c.UserContext(), classID, sectionID, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "lab meeting created", meeting)
}

func (h *LabScheduleHandler) cancelMeeting(c *fiber.Ctx) error {
	classID, sectionID, err := h.sectionParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	meetingID, err := parseUintParam(c, "meetingId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	meeting, err := h.service.CancelMeeting(c.UserContext(), classID, sectionID, meetingID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "lab meeting cancelled", meeting)
}

func (h *LabScheduleHandler) sectionParams(c *fiber.Ctx) (uint, uint, error) {
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return 0, 0, err
	}
	sectionID, err := parseUintParam(c, "sectionId")
	if err != nil {
		return 0, 0, err
	}
	return classID, sectionID, nil
}
