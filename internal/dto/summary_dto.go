package dto

import "time"

// AssignmentDueSummary is one row of a student's due date overview.
type AssignmentDueSummary struct {
	AssignmentID     uint            `json:"assignment_id"`
	Title            string          `json:"title"`
	NominalDueDate   time.Time       `json:"nominal_due_date"`
	EffectiveDueDate time.Time       `json:"effective_due_date"`
	LabAnchored      bool            `json:"lab_anchored"`
	Extensions       ExtensionTotals `json:"extensions"`
	MaxLateTokens    int             `json:"max_late_tokens"`
	PastDue          bool            `json:"past_due"`
}

// StudentSummaryResponse lists every assignment of a class with the student's
// effective due dates and token balance.
type StudentSummaryResponse struct {
	ClassID     uint                   `json:"class_id"`
	StudentID   uint                   `json:"student_id"`
	Tokens      TokenBalanceResponse   `json:"tokens"`
	Assignments []AssignmentDueSummary `json:"assignments"`
	GeneratedAt time.Time              `json:"generated_at"`
	CacheHit    bool                   `json:"cache_hit"`
}

// RosterDueDateResponse lists effective due dates for every student of an assignment.
type RosterDueDateResponse struct {
	AssignmentID uint                       `json:"assignment_id"`
	Items        []EffectiveDueDateResponse `json:"items"`
}
