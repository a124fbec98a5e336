package models

import "time"

// Project is a social program run by the organisation, offered yearly through classes.
type Project struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProjectSummary adds class counters to a project for list views.
type ProjectSummary struct {
	Project
	ClassCount      int `db:"class_count" json:"class_count"`
	EnrollmentCount int `db:"enrollment_count" json:"enrollment_count"`
}

// ProjectFilter defines filter criteria for listing projects.
type ProjectFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
