package dto

import (
	"time"

	"github.com/pawtograder/platform-sub009/internal/models"
)

// ClassCreateRequest creates a class.
type ClassCreateRequest struct {
	Name                 string `json:"name" validate:"required,min=2"`
	Slug                 string `json:"slug" validate:"required,min=2,max=128"`
	LateTokensPerStudent int    `json:"late_tokens_per_student" validate:"gte=0"`
	Timezone             string `json:"timezone" validate:"omitempty,timezone"`
}

// ClassResponse serializes a class.
type ClassResponse struct {
	ID                   uint      `json:"id"`
	Name                 string    `json:"name"`
	Slug                 string    `json:"slug"`
	LateTokensPerStudent int       `json:"late_tokens_per_student"`
	Timezone             string    `json:"timezone"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewClassResponse converts a class model.
func NewClassResponse(model models.Class) ClassResponse {
	return ClassResponse{
		ID:                   model.ID,
		Name:                 model.Name,
		Slug:                 model.Slug,
		LateTokensPerStudent: model.LateTokensPerStudent,
		Timezone:             model.Timezone,
		CreatedAt:            model.CreatedAt,
	}
}

// StudentCreateRequest registers a student record.
type StudentCreateRequest struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
}

// StudentResponse serializes a student.
type StudentResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewStudentResponse converts a student model.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{ID: model.ID, Name: model.Name, Email: model.Email}
}

// EnrollmentRequest enrolls an existing student into a class.
type EnrollmentRequest struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Role      string `json:"role" validate:"omitempty,oneof=student grader instructor"`
}

// EnrollmentResponse serializes an enrollment.
type EnrollmentResponse struct {
	ClassID   uint            `json:"class_id"`
	StudentID uint            `json:"student_id"`
	Role      string          `json:"role"`
	Student   StudentResponse `json:"student"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEnrollmentResponse converts an enrollment model.
func NewEnrollmentResponse(model models.ClassEnrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ClassID:   model.ClassID,
		StudentID: model.StudentID,
		Role:      model.Role,
		Student:   NewStudentResponse(model.Student),
		CreatedAt: model.CreatedAt,
	}
}

// AssignmentGroupCreateRequest creates a group with its members.
type AssignmentGroupCreateRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=255"`
	StudentIDs []uint `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

// AssignmentGroupResponse serializes a group.
type AssignmentGroupResponse struct {
	ID           uint   `json:"id"`
	AssignmentID uint   `json:"assignment_id"`
	Name         string `json:"name"`
	StudentIDs   []uint `json:"student_ids"`
}

// NewAssignmentGroupResponse converts a group model.
func NewAssignmentGroupResponse(model models.AssignmentGroup) AssignmentGroupResponse {
	ids := make([]uint, 0, len(model.Members))
	for _, member := range model.Members {
		ids = append(ids, member.StudentID)
	}
	return AssignmentGroupResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		Name:         model.Name,
		StudentIDs:   ids,
	}
}
