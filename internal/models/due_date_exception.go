package models

import (
	"time"

	"github.com/pawtograder/platform-sub009/internal/duedate"
)

// DueDateException grants extra time to a student or an assignment group.
// Rows are never updated after creation; staff may delete them.
type DueDateException struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ClassID           uint      `gorm:"not null;index" json:"class_id"`
	AssignmentID      uint      `gorm:"not null;index" json:"assignment_id"`
	StudentID         *uint     `gorm:"index" json:"student_id"`
	AssignmentGroupID *uint     `gorm:"index" json:"assignment_group_id"`
	Hours             int       `gorm:"not null" json:"hours"`
	Minutes           int       `gorm:"not null;default:0" json:"minutes"`
	TokensConsumed    int       `gorm:"not null;default:0" json:"tokens_consumed"`
	CreatorID         uint      `gorm:"not null" json:"creator_id"`
	Note              string    `gorm:"type:text" json:"note"`
	CreatedAt         time.Time `gorm:"autoCreateTime;<-:create" json:"created_at"`
}

// Grant converts the row into the calculator view.
func (e DueDateException) Grant() duedate.Grant {
	return duedate.Grant{
		StudentID:      e.StudentID,
		GroupID:        e.AssignmentGroupID,
		Hours:          e.Hours,
		Minutes:        e.Minutes,
		TokensConsumed: e.TokensConsumed,
	}
}

// Grants converts a slice of rows.
func Grants(exceptions []DueDateException) []duedate.Grant {
	grants := make([]duedate.Grant, 0, len(exceptions))
	for _, exception := range exceptions {
		grants = append(grants, exception.Grant())
	}
	return grants
}
