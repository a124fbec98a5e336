package models

import (
	"time"

	"github.com/noah-isme/agape-api/internal/forms"
)

// Class is one yearly offering of a project. The instructor belongs to the class.
type Class struct {
	ID                     string     `db:"id" json:"id"`
	ProjectID              string     `db:"project_id" json:"project_id"`
	Name                   string     `db:"name" json:"name"`
	SchoolYear             int        `db:"school_year" json:"school_year"`
	Schedule               string     `db:"schedule" json:"schedule"`
	TotalSlots             int        `db:"total_slots" json:"total_slots"`
	InstructorName         string     `db:"instructor_name" json:"instructor_name"`
	InstructorCPF          string     `db:"instructor_cpf" json:"instructor_cpf"`
	InstructorRG           string     `db:"instructor_rg" json:"instructor_rg"`
	InstructorBirthDate    *time.Time `db:"instructor_birth_date" json:"instructor_birth_date,omitempty"`
	InstructorPaid         bool       `db:"instructor_paid" json:"instructor_paid"`
	InstructorCompensation *float64   `db:"instructor_compensation" json:"instructor_compensation,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// InstructorAge returns the instructor's age in whole years on the given day.
func (c Class) InstructorAge(on time.Time) *int {
	if c.InstructorBirthDate == nil {
		return nil
	}
	birth := *c.InstructorBirthDate
	age := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		age--
	}
	return &age
}

// ClassDetail extends Class with its project and occupancy.
type ClassDetail struct {
	Class
	ProjectName        string `db:"project_name" json:"project_name"`
	ProjectDescription string `db:"project_description" json:"project_description"`
	ProjectLocation    string `db:"project_location" json:"project_location"`
	Enrolled           int    `db:"enrolled" json:"enrolled"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	ProjectID  string
	SchoolYear *int
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// RosterRow is one enrolled student of a class with the stored intake document.
type RosterRow struct {
	EnrollmentID     string         `db:"enrollment_id"`
	ClassID          string         `db:"class_id"`
	StudentID        string         `db:"student_id"`
	StudentName      string         `db:"student_name"`
	Active           bool           `db:"active"`
	EnrolledOn       time.Time      `db:"enrolled_on"`
	RegistrationData forms.Document `db:"registration_data"`
}
