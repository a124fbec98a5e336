package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/agape-api/internal/models"
)

// ReportRepository runs the aggregate queries of the annual report.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// AnnualTotals counts active students plus the students, classes and
// enrollments of one school year.
func (r *ReportRepository) AnnualTotals(ctx context.Context, year int) (models.AnnualTotals, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students WHERE active = TRUE) AS active_students,
        (SELECT COUNT(DISTINCT e.student_id) FROM enrollments e JOIN classes c ON c.id = e.class_id WHERE c.school_year = $1) AS students_enrolled,
        (SELECT COUNT(*) FROM classes WHERE school_year = $1) AS classes_opened,
        (SELECT COUNT(*) FROM enrollments e JOIN classes c ON c.id = e.class_id WHERE c.school_year = $1) AS enrollments`
	var totals models.AnnualTotals
	if err := r.db.GetContext(ctx, &totals, query, year); err != nil {
		return models.AnnualTotals{}, fmt.Errorf("annual totals: %w", err)
	}
	return totals, nil
}
