package models

import "time"

// Student represents a learner's profile, distinct from their User identity.
type Student struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Registry  string    `db:"registry" json:"registry"`
	FullName  string    `db:"full_name" json:"full_name"`
	CPF       string    `db:"cpf" json:"cpf"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	Address   string    `db:"address" json:"address"`
	Phone     string    `db:"phone" json:"phone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	CourseID  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
