package models

// StaffAssignment records the facilitator responsible for a subject.
type StaffAssignment struct {
	Name          string `json:"name" validate:"required"`
	Role          string `json:"role"`
	EnrolledID    string `json:"enrolled_id" validate:"required"`
	TaughtSubject string `json:"taught_subject" validate:"required"`
	Invigilations int    `json:"invigilations"`
	Marking       int    `json:"marking"`
}

// Facilitators maps subject name to its assignment.
type Facilitators map[string]StaffAssignment

// BySubject returns the facilitator name for a subject, or an empty string.
func (f Facilitators) BySubject(subject string) string {
	if f == nil {
		return ""
	}
	return f[subject].Name
}

// FindByEnrolledID returns the assignment for a staff id.
func (f Facilitators) FindByEnrolledID(id string) (StaffAssignment, bool) {
	for _, a := range f {
		if a.EnrolledID == id {
			return a, true
		}
	}
	return StaffAssignment{}, false
}
