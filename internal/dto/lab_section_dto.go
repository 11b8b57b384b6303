package dto

import (
	"time"

	"github.com/pawtograder/platform-sub009/internal/models"
)

// LabSectionCreateRequest creates a weekly lab section.
type LabSectionCreateRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone" validate:"omitempty,timezone"`
}

// LabSectionMemberRequest puts a student in a section.
type LabSectionMemberRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
}

// LabMeetingCreateRequest records a concrete meeting of a section.
type LabMeetingCreateRequest struct {
	StartsAt string  `json:"starts_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndsAt   *string `json:"ends_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// LabSectionResponse serializes a lab section.
type LabSectionResponse struct {
	ID        uint   `json:"id"`
	ClassID   uint   `json:"class_id"`
	Name      string `json:"name"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
}

// NewLabSectionResponse converts a lab section model.
func NewLabSectionResponse(model models.LabSection) LabSectionResponse {
	return LabSectionResponse{
		ID:        model.ID,
		ClassID:   model.ClassID,
		Name:      model.Name,
		DayOfWeek: model.DayOfWeek,
		StartTime: model.StartTime,
		EndTime:   model.EndTime,
		Timezone:  model.Timezone,
	}
}

// LabMeetingResponse serializes a lab meeting.
type LabMeetingResponse struct {
	ID           uint       `json:"id"`
	LabSectionID uint       `json:"lab_section_id"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at"`
	Cancelled    bool       `json:"cancelled"`
}

// NewLabMeetingResponse converts a meeting model.
func NewLabMeetingResponse(model models.LabSectionMeeting) LabMeetingResponse {
	return LabMeetingResponse{
		ID:           model.ID,
		LabSectionID: model.LabSectionID,
		StartsAt:     model.StartsAt,
		EndsAt:       model.EndsAt,
		Cancelled:    model.Cancelled,
	}
}
