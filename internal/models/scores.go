package models

// EnrollStudentRequest adds a pupil to a hub.
type EnrollStudentRequest struct {
	Name          string `json:"name" validate:"required,min=2"`
	Gender        string `json:"gender" validate:"omitempty,oneof=M F"`
	ParentContact string `json:"parent_contact"`
}

// ScoreEntryRequest records one subject score for one student.
type ScoreEntryRequest struct {
	StudentID int      `json:"student_id" validate:"required,min=1"`
	Series    string   `json:"series"`
	Subject   string   `json:"subject" validate:"required"`
	SectionA  float64  `json:"section_a"`
	SectionB  float64  `json:"section_b"`
	SBA       *float64 `json:"sba"`
	Remark    string   `json:"remark"`
}

// BulkScoreRequest records many scores at once. With Atomic set, one invalid
// entry rejects the whole batch.
type BulkScoreRequest struct {
	Series  string              `json:"series"`
	Atomic  bool                `json:"atomic"`
	Entries []ScoreEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

// ClampEvent reports a raw value adjusted into its allowed range.
type ClampEvent struct {
	StudentID int     `json:"student_id,omitempty"`
	Subject   string  `json:"subject,omitempty"`
	Field     string  `json:"field"`
	Raw       float64 `json:"raw"`
	Applied   float64 `json:"applied"`
}

// ScoreEntryResult reports the outcome of a score write.
type ScoreEntryResult struct {
	Saved   int               `json:"saved"`
	Clamped []ClampEvent      `json:"clamped,omitempty"`
	Failed  []ScoreEntryError `json:"failed,omitempty"`
}

// ScoreEntryError describes one rejected entry of a bulk request.
type ScoreEntryError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ConductUpdateRequest records attendance, conduct and observations for a series.
type ConductUpdateRequest struct {
	Series        string       `json:"series"`
	Attendance    int          `json:"attendance" validate:"min=0"`
	ConductRemark string       `json:"conduct_remark"`
	Observations  Observations `json:"observations"`
}

// RemarkUpdateRequest records a facilitator remark for a subject.
type RemarkUpdateRequest struct {
	Series  string `json:"series"`
	Subject string `json:"subject" validate:"required"`
	Remark  string `json:"remark"`
}

// BeceEntryRequest records final external examination grades for a year.
type BeceEntryRequest struct {
	Year   string         `json:"year" validate:"required,len=4,numeric"`
	Grades map[string]int `json:"grades" validate:"required,dive,min=1,max=9"`
}
