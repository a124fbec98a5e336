package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/agape-api/internal/models"
)

// DashboardRepository exposes the aggregate queries behind the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository instantiates the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Totals counts the records shown on the dashboard. Classes, enrollments and
// payroll are scoped to the school year.
func (r *DashboardRepository) Totals(ctx context.Context, year int) (models.DashboardTotals, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students) AS students,
        (SELECT COUNT(*) FROM students WHERE active = TRUE) AS active_students,
        (SELECT COUNT(*) FROM projects) AS projects,
        (SELECT COUNT(*) FROM classes WHERE school_year = $1) AS classes,
        (SELECT COUNT(*) FROM enrollments e JOIN classes c ON c.id = e.class_id WHERE c.school_year = $1) AS enrollments,
        (SELECT COALESCE(SUM(instructor_compensation), 0) FROM classes WHERE school_year = $1 AND instructor_paid = TRUE) AS monthly_payroll`
	var totals models.DashboardTotals
	if err := r.db.GetContext(ctx, &totals, query, year); err != nil {
		return models.DashboardTotals{}, fmt.Errorf("dashboard totals: %w", err)
	}
	return totals, nil
}

// RegistrationDocuments returns the raw intake documents of every student.
func (r *DashboardRepository) RegistrationDocuments(ctx context.Context) ([]string, error) {
	var docs []string
	if err := r.db.SelectContext(ctx, &docs, `SELECT registration_data FROM students`); err != nil {
		return nil, fmt.Errorf("dashboard documents: %w", err)
	}
	return docs, nil
}
