package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRepositoryAnnualTotals(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(DISTINCT e.student_id)")).
		WithArgs(2025).
		WillReturnRows(sqlmock.NewRows([]string{"active_students", "students_enrolled", "classes_opened", "enrollments"}).AddRow(30, 22, 4, 41))

	totals, err := repo.AnnualTotals(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 22, totals.StudentsEnrolled)
	assert.Equal(t, 41, totals.Enrollments)
}

func TestReportRepositoryAnnualTotalsWrapsErrors(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(DISTINCT e.student_id)")).
		WithArgs(2024).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.AnnualTotals(context.Background(), 2024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
