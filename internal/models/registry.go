package models

import "time"

// InstitutionStatus captures the lifecycle of a registered hub.
type InstitutionStatus string

const (
	InstitutionActive    InstitutionStatus = "active"
	InstitutionSuspended InstitutionStatus = "suspended"
)

// PerformancePoint summarises one committed series for an institution.
type PerformancePoint struct {
	Series       string    `json:"series"`
	AvgAggregate float64   `json:"avg_aggregate"`
	AvgComposite float64   `json:"avg_composite"`
	StudentCount int       `json:"student_count"`
	CommittedAt  time.Time `json:"committed_at"`
}

// RegistryEntry is the network registry record for a hub.
type RegistryEntry struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Registrant         string             `json:"registrant"`
	RegistrantEmail    string             `json:"registrant_email,omitempty"`
	Location           string             `json:"location,omitempty"`
	AccessKeyHash      string             `json:"access_key_hash,omitempty"`
	EnrollmentDate     time.Time          `json:"enrollment_date"`
	StudentCount       int                `json:"student_count"`
	AvgAggregate       float64            `json:"avg_aggregate"`
	PerformanceHistory []PerformancePoint `json:"performance_history"`
	Status             InstitutionStatus  `json:"status"`
	LastActivity       time.Time          `json:"last_activity"`
}

// Public returns a copy safe to expose over the API.
func (e RegistryEntry) Public() RegistryEntry {
	e.AccessKeyHash = ""
	return e
}

// RegistrationRequest registers a new institution.
type RegistrationRequest struct {
	SchoolName      string `json:"school_name" validate:"required,min=3"`
	Registrant      string `json:"registrant" validate:"required"`
	RegistrantEmail string `json:"registrant_email" validate:"omitempty,email"`
	Location        string `json:"location"`
}

// RegistrationResponse returns the credentials for a newly registered hub.
// AccessKey is only ever returned here.
type RegistrationResponse struct {
	HubID     string        `json:"hub_id"`
	AccessKey string        `json:"access_key"`
	Entry     RegistryEntry `json:"entry"`
}

// StatusUpdateRequest changes an institution's status.
type StatusUpdateRequest struct {
	Status InstitutionStatus `json:"status" validate:"required,oneof=active suspended"`
}
