package dto

import (
	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/models"
)

// StudentRequest carries the intake form answers keyed by field name.
type StudentRequest struct {
	Answers map[string]interface{} `json:"answers" validate:"required"`
}

// StudentStatusRequest toggles the active flag of a student.
type StudentStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// StudentProfile is the search view of one student.
type StudentProfile struct {
	Student models.Student               `json:"student"`
	Entries []forms.Entry                `json:"entries"`
	History []models.StudentHistoryEntry `json:"history"`
}

// StudentForm pairs the intake schema with the values to edit.
type StudentForm struct {
	StudentID string          `json:"student_id"`
	Schema    *forms.Schema   `json:"schema"`
	Values    *forms.Document `json:"values"`
}
