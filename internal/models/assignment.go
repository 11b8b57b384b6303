package models

import (
	"time"

	"github.com/pawtograder/platform-sub009/internal/duedate"
)

// Assignment represents a graded assignment within a class.
type Assignment struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	ClassID            uint      `gorm:"not null;index" json:"class_id"`
	Title              string    `gorm:"size:255;not null" json:"title"`
	Description        string    `gorm:"type:text" json:"description"`
	DueDate            time.Time `gorm:"not null" json:"due_date"`
	MinutesDueAfterLab *int      `json:"minutes_due_after_lab"`
	MaxLateTokens      int       `gorm:"not null;default:0" json:"max_late_tokens"`
	GroupAssignment    bool      `gorm:"not null;default:false" json:"group_assignment"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Class              Class     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// HasLabScheduling reports whether the due date is relative to lab meetings.
func (a Assignment) HasLabScheduling() bool {
	return a.MinutesDueAfterLab != nil
}

// DueDateInput converts the model into the calculator view.
func (a Assignment) DueDateInput() duedate.Assignment {
	return duedate.Assignment{
		DueDate:            a.DueDate,
		MinutesDueAfterLab: a.MinutesDueAfterLab,
		MaxLateTokens:      a.MaxLateTokens,
	}
}

// AssignmentGroup is a team of students submitting together.
type AssignmentGroup struct {
	ID           uint                    `gorm:"primaryKey" json:"id"`
	AssignmentID uint                    `gorm:"not null;index" json:"assignment_id"`
	Name         string                  `gorm:"size:255;not null" json:"name"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	Members      []AssignmentGroupMember `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members"`
}

// AssignmentGroupMember links a student to one group of an assignment.
type AssignmentGroupMember struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	GroupID      uint      `gorm:"not null;index" json:"group_id"`
	AssignmentID uint      `gorm:"not null;uniqueIndex:idx_group_member_assignment_student" json:"assignment_id"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_group_member_assignment_student" json:"student_id"`
	CreatedAt    time.Time `json:"created_at"`
}
