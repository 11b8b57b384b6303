package models

import "time"

// LabSection is a recurring weekly lab meeting slot.
type LabSection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;index" json:"class_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	DayOfWeek int       `gorm:"not null" json:"day_of_week"`
	StartTime string    `gorm:"size:8;not null" json:"start_time"`
	EndTime   string    `gorm:"size:8" json:"end_time"`
	Timezone  string    `gorm:"size:64" json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LabSectionMember places a student in a lab section. A student belongs to at most
// one section per class.
type LabSectionMember struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ClassID      uint      `gorm:"not null;uniqueIndex:idx_lab_member_class_student" json:"class_id"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_lab_member_class_student" json:"student_id"`
	LabSectionID uint      `gorm:"not null;index" json:"lab_section_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// LabSectionMeeting is one concrete meeting of a section. Sections that have
// meeting rows are resolved from them instead of from the weekly recurrence.
type LabSectionMeeting struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	LabSectionID uint       `gorm:"not null;index" json:"lab_section_id"`
	StartsAt     time.Time  `gorm:"not null;index" json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at"`
	Cancelled    bool       `gorm:"not null;default:false" json:"cancelled"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
