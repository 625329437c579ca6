package models

import "time"

// Class represents a discipline offering taught by a teacher in a period.
type Class struct {
	ID           string    `db:"id" json:"id"`
	DisciplineID string    `db:"discipline_id" json:"discipline_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	Semester     int       `db:"semester" json:"semester"`
	Year         int       `db:"year" json:"year"`
	Schedule     string    `db:"schedule" json:"schedule"`
	Capacity     int       `db:"capacity" json:"capacity"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail enriches Class with discipline and teacher names.
type ClassDetail struct {
	Class
	DisciplineName string `db:"discipline_name" json:"discipline_name"`
	CourseID       string `db:"course_id" json:"course_id"`
	TeacherName    string `db:"teacher_name" json:"teacher_name"`
}

// ClassFilter provides filters for listing classes.
type ClassFilter struct {
	DisciplineID string
	TeacherID    string
	Semester     int
	Year         int
	Page         int
	PageSize     int
}
