package dto

import (
	"time"

	"github.com/noah-isme/agape-api/internal/models"
)

// AnnualReport is the content of the yearly report before rendering.
type AnnualReport struct {
	Year        int                 `json:"year"`
	GeneratedAt time.Time           `json:"generated_at"`
	Totals      models.AnnualTotals `json:"totals"`
	Sections    []ReportSection     `json:"sections"`
	Sheets      []StudentSheet      `json:"sheets"`
}

// ReportSection is one class of the year with its roll call.
type ReportSection struct {
	ProjectName        string     `json:"project_name"`
	ProjectDescription string     `json:"project_description"`
	ProjectLocation    string     `json:"project_location"`
	ClassName          string     `json:"class_name"`
	Schedule           string     `json:"schedule"`
	InstructorName     string     `json:"instructor_name"`
	Roll               []RollLine `json:"roll"`
}

// RollLine is one numbered entry of a roll call.
type RollLine struct {
	StudentName     string `json:"student_name"`
	GuardianName    string `json:"guardian_name"`
	GuardianContact string `json:"guardian_contact"`
}

// StudentSheet is the registration summary of an active student.
type StudentSheet struct {
	Name            string `json:"name"`
	BirthDate       string `json:"birth_date"`
	CPF             string `json:"cpf"`
	Address         string `json:"address"`
	School          string `json:"school"`
	Vulnerabilities string `json:"vulnerabilities"`
	Medication      string `json:"medication"`
}

// ArchivedReport points at a stored report through a signed link.
type ArchivedReport struct {
	FileName  string    `json:"file_name"`
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
