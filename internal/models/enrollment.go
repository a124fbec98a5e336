package models

import "time"

// Enrollment links a student to a class.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	EnrolledOn time.Time `db:"enrolled_on" json:"enrolled_on"`
}

// EnrollmentDetail enriches Enrollment with student, class and project info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	ClassName   string `db:"class_name" json:"class_name"`
	ProjectID   string `db:"project_id" json:"project_id"`
	ProjectName string `db:"project_name" json:"project_name"`
	SchoolYear  int    `db:"school_year" json:"school_year"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID  string
	ClassID    string
	ProjectID  string
	SchoolYear *int
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// EnrollmentOutcome labels the result of an enrollment attempt.
type EnrollmentOutcome string

const (
	EnrollmentCreated   EnrollmentOutcome = "created"
	EnrollmentDuplicate EnrollmentOutcome = "duplicate"
	EnrollmentFull      EnrollmentOutcome = "full"
)

// ClassAvailability is the occupancy of a class.
type ClassAvailability struct {
	ClassID   string `json:"class_id"`
	Total     int    `json:"total"`
	Enrolled  int    `json:"enrolled"`
	Available int    `json:"available"`
	Full      bool   `json:"full"`
}
