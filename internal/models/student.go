package models

import (
	"time"

	"github.com/noah-isme/agape-api/internal/forms"
)

// Student is a registered beneficiary. Identity columns are promoted from the
// intake document so they can be searched and checked for duplicates.
type Student struct {
	ID               string         `db:"id" json:"id"`
	FullName         string         `db:"full_name" json:"full_name"`
	BirthDate        time.Time      `db:"birth_date" json:"birth_date"`
	RG               string         `db:"rg" json:"rg"`
	CPF              string         `db:"cpf" json:"cpf"`
	Active           bool           `db:"active" json:"active"`
	RegistrationData forms.Document `db:"registration_data" json:"registration_data"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentHistoryEntry is one enrollment of a student seen from the profile.
type StudentHistoryEntry struct {
	EnrollmentID    string    `db:"enrollment_id" json:"enrollment_id"`
	SchoolYear      int       `db:"school_year" json:"school_year"`
	ProjectName     string    `db:"project_name" json:"project_name"`
	ProjectLocation string    `db:"project_location" json:"project_location"`
	ClassName       string    `db:"class_name" json:"class_name"`
	InstructorName  string    `db:"instructor_name" json:"instructor_name"`
	Schedule        string    `db:"schedule" json:"schedule"`
	EnrolledOn      time.Time `db:"enrolled_on" json:"enrolled_on"`
}
