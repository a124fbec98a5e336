package dto

// EnrollmentRequest enrolls a student in a class.
type EnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
}
