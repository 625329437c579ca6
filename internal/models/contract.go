package models

import "time"

// Contract records a student's agreement to enrollment terms for a period.
// A contract with null file fields is a reenrollment acceptance record, not
// a downloadable document. Rows are never mutated after creation except to
// set AcceptedAt once.
type Contract struct {
	ID           string     `db:"id" json:"id"`
	EnrollmentID *string    `db:"enrollment_id" json:"enrollment_id,omitempty"`
	StudentID    string     `db:"student_id" json:"student_id"`
	Semester     int        `db:"semester" json:"semester"`
	Year         int        `db:"year" json:"year"`
	FilePath     *string    `db:"file_path" json:"file_path,omitempty"`
	FileName     *string    `db:"file_name" json:"file_name,omitempty"`
	AcceptedAt   *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// ContractTemplate is a named HTML document containing {{token}} placeholders.
// Read-only at runtime; the first active template is the one rendered.
type ContractTemplate struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Content   string    `db:"content" json:"content"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ContractFilter provides filters for listing contracts.
type ContractFilter struct {
	StudentID    string
	EnrollmentID string
	Year         int
	Page         int
	PageSize     int
}
