package dto

import (
	"time"

	"github.com/noah-isme/agape-api/internal/models"
)

// InstructorInput describes who teaches a class. BirthDate uses YYYY-MM-DD.
type InstructorInput struct {
	Name         string   `json:"name"`
	CPF          string   `json:"cpf"`
	RG           string   `json:"rg"`
	BirthDate    string   `json:"birth_date"`
	Paid         bool     `json:"paid"`
	Compensation *float64 `json:"compensation" validate:"omitempty,gte=0"`
}

// ClassInput is one class of a project creation or a single class opening.
// Missing instructor data falls back to the project-level instructor.
type ClassInput struct {
	Name       string           `json:"name"`
	SchoolYear int              `json:"school_year"`
	Schedule   string           `json:"schedule"`
	TotalSlots *int             `json:"total_slots"`
	Instructor *InstructorInput `json:"instructor"`
}

// ProjectCreateRequest creates a project together with its first classes.
type ProjectCreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	SchoolYear  int             `json:"school_year"`
	Instructor  InstructorInput `json:"instructor"`
	Classes     []ClassInput    `json:"classes"`
}

// ProjectUpdateRequest edits a project in place.
type ProjectUpdateRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Location    string `json:"location" validate:"required"`
}

// ClassUpdateRequest edits a class in place.
type ClassUpdateRequest struct {
	Name       string          `json:"name" validate:"required"`
	SchoolYear int             `json:"school_year" validate:"required,gte=2000,lte=2100"`
	Schedule   string          `json:"schedule" validate:"required"`
	TotalSlots int             `json:"total_slots" validate:"required,gte=1"`
	Instructor InstructorInput `json:"instructor"`
}

// ReofferRequest copies a project's classes from one school year to another.
type ReofferRequest struct {
	FromYear int `json:"from_year" validate:"required,gte=2000,lte=2100"`
	ToYear   int `json:"to_year" validate:"required,gte=2000,lte=2100,nefield=FromYear"`
}

// ProjectOverview is the search view of one project.
type ProjectOverview struct {
	Project models.Project   `json:"project"`
	Classes []ClassSituation `json:"classes"`
}

// ClassSituation reports the occupancy of one class.
type ClassSituation struct {
	ClassID        string `json:"class_id"`
	SchoolYear     int    `json:"school_year"`
	ClassName      string `json:"class_name"`
	Schedule       string `json:"schedule"`
	InstructorName string `json:"instructor_name"`
	InstructorAge  *int   `json:"instructor_age,omitempty"`
	Total          int    `json:"total"`
	Enrolled       int    `json:"enrolled"`
	Available      int    `json:"available"`
	Status         string `json:"status"`
}

// Occupancy labels.
const (
	ClassStatusFull = "Lotada"
	ClassStatusOpen = "Vagas Abertas"
)

// RosterEntry is one line of a class roll call.
type RosterEntry struct {
	EnrollmentID    string    `json:"enrollment_id"`
	StudentID       string    `json:"student_id"`
	StudentName     string    `json:"student_name"`
	Status          string    `json:"status"`
	GuardianName    string    `json:"guardian_name"`
	GuardianContact string    `json:"guardian_contact"`
	EnrolledOn      time.Time `json:"enrolled_on"`
}

// ClassRoster is the roll call of a class with its header data.
type ClassRoster struct {
	Class    models.ClassDetail `json:"class"`
	Students []RosterEntry      `json:"students"`
}
