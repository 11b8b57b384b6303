package dto

import (
	"time"

	"github.com/pawtograder/platform-sub009/internal/duedate"
	"github.com/pawtograder/platform-sub009/internal/models"
)

// DueDateExceptionCreateRequest grants extra time to exactly one student or group.
type DueDateExceptionCreateRequest struct {
	StudentID         *uint  `json:"student_id" validate:"omitempty,gt=0"`
	AssignmentGroupID *uint  `json:"assignment_group_id" validate:"omitempty,gt=0"`
	Hours             int    `json:"hours" validate:"gte=0"`
	Minutes           int    `json:"minutes" validate:"gte=0,lte=59"`
	TokensConsumed    int    `json:"tokens_consumed" validate:"gte=0"`
	Note              string `json:"note" validate:"max=2000"`
}

// DueDateExceptionListRequest narrows an assignment's grants to one student or group.
// A student filter also returns grants of the student's group.
type DueDateExceptionListRequest struct {
	StudentID         uint
	AssignmentGroupID uint
}

// DueDateExceptionResponse serializes one grant.
type DueDateExceptionResponse struct {
	ID                uint      `json:"id"`
	ClassID           uint      `json:"class_id"`
	AssignmentID      uint      `json:"assignment_id"`
	StudentID         *uint     `json:"student_id"`
	AssignmentGroupID *uint     `json:"assignment_group_id"`
	Hours             int       `json:"hours"`
	Minutes           int       `json:"minutes"`
	TokensConsumed    int       `json:"tokens_consumed"`
	CreatorID         uint      `json:"creator_id"`
	Note              string    `json:"note"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewDueDateExceptionResponse converts an exception model.
func NewDueDateExceptionResponse(model models.DueDateException) DueDateExceptionResponse {
	return DueDateExceptionResponse{
		ID:                model.ID,
		ClassID:           model.ClassID,
		AssignmentID:      model.AssignmentID,
		StudentID:         model.StudentID,
		AssignmentGroupID: model.AssignmentGroupID,
		Hours:             model.Hours,
		Minutes:           model.Minutes,
		TokensConsumed:    model.TokensConsumed,
		CreatorID:         model.CreatorID,
		Note:              model.Note,
		CreatedAt:         model.CreatedAt,
	}
}

// NewDueDateExceptionResponseSlice converts a slice of exception models.
func NewDueDateExceptionResponseSlice(items []models.DueDateException) []DueDateExceptionResponse {
	responses := make([]DueDateExceptionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewDueDateExceptionResponse(item))
	}
	return responses
}

// TokenBalanceResponse reports a student's late token budget in a class.
// Remaining may be negative; OverBudget is informational only.
type TokenBalanceResponse struct {
	ClassID    uint `json:"class_id"`
	StudentID  uint `json:"student_id"`
	Allowance  int  `json:"allowance"`
	Consumed   int  `json:"consumed"`
	Remaining  int  `json:"remaining"`
	OverBudget bool `json:"over_budget"`
}

// NewTokenBalanceResponse assembles a balance from the allowance and consumption.
func NewTokenBalanceResponse(classID, studentID uint, allowance, consumed int) TokenBalanceResponse {
	remaining := duedate.RemainingTokens(allowance, consumed)
	return TokenBalanceResponse{
		ClassID:    classID,
		StudentID:  studentID,
		Allowance:  allowance,
		Consumed:   consumed,
		Remaining:  remaining,
		OverBudget: remaining < 0,
	}
}

// DueDateExceptionCreateResponse returns the stored grant and the advisory balances.
type DueDateExceptionCreateResponse struct {
	Exception             DueDateExceptionResponse `json:"exception"`
	TokenBalances         []TokenBalanceResponse   `json:"token_balances"`
	AssignmentTokensUsed  int                      `json:"assignment_tokens_used"`
	AssignmentTokenCap    int                      `json:"assignment_token_cap"`
	ExceedsAssignmentCap  bool                     `json:"exceeds_assignment_cap"`
	ExceedsClassAllowance bool                     `json:"exceeds_class_allowance"`
}

// ExtensionTotals exposes summed extensions. Hours and Minutes are the raw sums;
// DisplayHours and DisplayMinutes carry minutes into hours for rendering.
type ExtensionTotals struct {
	Hours          int `json:"hours"`
	Minutes        int `json:"minutes"`
	TokensConsumed int `json:"tokens_consumed"`
	DisplayHours   int `json:"display_hours"`
	DisplayMinutes int `json:"display_minutes"`
}

// NewExtensionTotals converts calculator totals.
func NewExtensionTotals(totals duedate.Totals) ExtensionTotals {
	hours, minutes := totals.Normalized()
	return ExtensionTotals{
		Hours:          totals.Hours,
		Minutes:        totals.Minutes,
		TokensConsumed: totals.TokensConsumed,
		DisplayHours:   hours,
		DisplayMinutes: minutes,
	}
}

// EffectiveDueDateResponse is the due date breakdown shared by staff and student views.
type EffectiveDueDateResponse struct {
	AssignmentID       uint                       `json:"assignment_id"`
	StudentID          uint                       `json:"student_id"`
	AssignmentGroupID  *uint                      `json:"assignment_group_id"`
	NominalDueDate     time.Time                  `json:"nominal_due_date"`
	BaseDueDate        time.Time                  `json:"base_due_date"`
	EffectiveDueDate   time.Time                  `json:"effective_due_date"`
	LabAnchored        bool                       `json:"lab_anchored"`
	MinutesDueAfterLab *int                       `json:"minutes_due_after_lab"`
	Extensions         ExtensionTotals            `json:"extensions"`
	MaxLateTokens      int                        `json:"max_late_tokens"`
	Exceptions         []DueDateExceptionResponse `json:"exceptions"`
}
