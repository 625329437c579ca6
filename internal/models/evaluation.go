package models

import "time"

// Evaluation represents an assessment applied to a class.
type Evaluation struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Name      string    `db:"name" json:"name"`
	Weight    float64   `db:"weight" json:"weight"`
	AppliedAt time.Time `db:"applied_at" json:"applied_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Grade records a student's score on an evaluation. Scores range 0 to 10.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	EvaluationID string    `db:"evaluation_id" json:"evaluation_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Score        float64   `db:"score" json:"score"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeDetail enriches Grade with the student name for class listings.
type GradeDetail struct {
	Grade
	StudentName string `db:"student_name" json:"student_name"`
}
