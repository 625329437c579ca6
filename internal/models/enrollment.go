package models

import (
	"fmt"
	"strings"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending      EnrollmentStatus = "PENDING"
	EnrollmentStatusActive       EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCancelled    EnrollmentStatus = "CANCELLED"
	EnrollmentStatusReenrollment EnrollmentStatus = "REENROLLMENT"
	EnrollmentStatusCompleted    EnrollmentStatus = "COMPLETED"
)

// enrollmentTransitions maps each status to the statuses reachable from it.
// CANCELLED and COMPLETED are terminal.
var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentStatusPending: {EnrollmentStatusActive, EnrollmentStatusCancelled},
	EnrollmentStatusActive: {
		EnrollmentStatusCancelled,
		EnrollmentStatusReenrollment,
		EnrollmentStatusCompleted,
		EnrollmentStatusPending,
	},
	EnrollmentStatusReenrollment: {EnrollmentStatusActive, EnrollmentStatusCancelled},
}

// ParseEnrollmentStatus normalises a raw status string.
func ParseEnrollmentStatus(raw string) (EnrollmentStatus, error) {
	status := EnrollmentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case EnrollmentStatusPending, EnrollmentStatusActive, EnrollmentStatusCancelled,
		EnrollmentStatusReenrollment, EnrollmentStatusCompleted:
		return status, nil
	}
	return "", fmt.Errorf("unknown enrollment status %q", raw)
}

// CanTransitionTo reports whether the status machine allows moving to next.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	for _, allowed := range enrollmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are modeled.
func (s EnrollmentStatus) Terminal() bool {
	return len(enrollmentTransitions[s]) == 0
}

// Enrollment tracks a student's registration in a course. Cancellation by
// deletion is a soft delete: DeletedAt is set and the row is hidden from
// default queries, never physically erased.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Semester   *int             `db:"semester" json:"semester,omitempty"`
	DeletedAt  *time.Time       `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// Deleted reports whether the enrollment has been soft deleted.
func (e *Enrollment) Deleted() bool {
	return e.DeletedAt != nil
}

// EnrollmentDetail enriches Enrollment with student and course info used by
// listings and contract rendering.
type EnrollmentDetail struct {
	Enrollment
	StudentName     string `db:"student_name" json:"student_name"`
	StudentRegistry string `db:"student_registry" json:"student_registry"`
	StudentCPF      string `db:"student_cpf" json:"student_cpf"`
	CourseName      string `db:"course_name" json:"course_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
