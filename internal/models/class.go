package models

import "time"

// Class is a course offering that owns assignments, lab sections and the late token budget.
type Class struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"size:255;not null" json:"name"`
	Slug                 string    `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	LateTokensPerStudent int       `gorm:"not null;default:0" json:"late_tokens_per_student"`
	Timezone             string    `gorm:"size:64;not null" json:"timezone"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Enrollment roles.
const (
	EnrollmentRoleStudent    = "student"
	EnrollmentRoleGrader     = "grader"
	EnrollmentRoleInstructor = "instructor"
)

// ClassEnrollment links a student record to a class.
type ClassEnrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_class_student" json:"class_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_enrollment_class_student" json:"student_id"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Student   Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}
