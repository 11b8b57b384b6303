package models

// All lists every persisted model in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Class{},
		&Student{},
		&ClassEnrollment{},
		&Assignment{},
		&AssignmentGroup{},
		&AssignmentGroupMember{},
		&LabSection{},
		&LabSectionMember{},
		&LabSectionMeeting{},
		&DueDateException{},
		&ActivityLog{},
	}
}
