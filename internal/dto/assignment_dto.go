package dto

import (
	"time"

	"github.com/pawtograder/platform-sub009/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title              string `json:"title" validate:"required,min=3"`
	Description        string `json:"description" validate:"omitempty,max=10000"`
	DueDate            string `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	MinutesDueAfterLab *int   `json:"minutes_due_after_lab" validate:"omitempty,gte=0"`
	MaxLateTokens      int    `json:"max_late_tokens" validate:"gte=0"`
	GroupAssignment    bool   `json:"group_assignment"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
// ClearLabOffset turns lab-relative scheduling off.
type AssignmentUpdateRequest struct {
	Title              *string `json:"title" validate:"omitempty,min=3"`
	Description        *string `json:"description" validate:"omitempty,max=10000"`
	DueDate            *string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	MinutesDueAfterLab *int    `json:"minutes_due_after_lab" validate:"omitempty,gte=0"`
	ClearLabOffset     bool    `json:"clear_lab_offset"`
	MaxLateTokens      *int    `json:"max_late_tokens" validate:"omitempty,gte=0"`
}

// AssignmentListRequest captures list filters from the query string.
type AssignmentListRequest struct {
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID                 uint      `json:"id"`
	ClassID            uint      `json:"class_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	DueDate            time.Time `json:"due_date"`
	MinutesDueAfterLab *int      `json:"minutes_due_after_lab"`
	MaxLateTokens      int       `json:"max_late_tokens"`
	GroupAssignment    bool      `json:"group_assignment"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                 model.ID,
		ClassID:            model.ClassID,
		Title:              model.Title,
		Description:        model.Description,
		DueDate:            model.DueDate,
		MinutesDueAfterLab: model.MinutesDueAfterLab,
		MaxLateTokens:      model.MaxLateTokens,
		GroupAssignment:    model.GroupAssignment,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
