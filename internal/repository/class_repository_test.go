package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agape-api/internal/models"
)

var classColumnNames = []string{"id", "project_id", "name", "school_year", "schedule", "total_slots",
	"instructor_name", "instructor_cpf", "instructor_rg", "instructor_birth_date", "instructor_paid", "instructor_compensation",
	"created_at", "updated_at"}

func TestClassRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(append(append([]string{}, classColumnNames...), "project_name", "project_location", "enrolled")).
		AddRow("c1", "p1", "Turma A", 2025, "Ter 14h", 15, "Carlos", "111", "", nil, true, "850.00", now, now, "Futebol", "Quadra", 15)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN projects p ON p.id = c.project_id WHERE c.id = $1")).
		WithArgs("c1").
		WillReturnRows(rows)

	class, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 15, class.Enrolled)
	assert.Equal(t, "Futebol", class.ProjectName)
	require.NotNil(t, class.InstructorCompensation)
	assert.InDelta(t, 850.0, *class.InstructorCompensation, 0.001)
	assert.Nil(t, class.InstructorBirthDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	year := 2025
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.project_id = $1 AND c.school_year = $2 ORDER BY c.school_year DESC LIMIT 20 OFFSET 0")).
		WithArgs("p1", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes c JOIN projects p ON p.id = c.project_id WHERE c.project_id = $1 AND c.school_year = $2")).
		WithArgs("p1", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	classes, total, err := repo.List(context.Background(), models.ClassFilter{ProjectID: "p1", SchoolYear: &year})
	require.NoError(t, err)
	assert.Empty(t, classes)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteCascade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE class_id = $1")).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE id = $1")).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCopyYearSkipsEnrollments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	pay := 500.0
	rows := sqlmock.NewRows(classColumnNames).
		AddRow("c1", "p1", "Turma A", 2024, "Ter 14h", 15, "Carlos", "111", "", nil, true, pay, now, now).
		AddRow("c2", "p1", "Turma B", 2024, "Qui 14h", 20, "Bia", "222", "", nil, false, nil, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE project_id = $1 AND school_year = $2 ORDER BY name")).
		WithArgs("p1", 2024).
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO classes").
		WithArgs(sqlmock.AnyArg(), "p1", "Turma A", 2025, "Ter 14h", 15, "Carlos", "111", "", nil, true, pay, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO classes").
		WithArgs(sqlmock.AnyArg(), "p1", "Turma B", 2025, "Qui 14h", 20, "Bia", "222", "", nil, false, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	copies, err := repo.CopyYear(context.Background(), "p1", 2024, 2025)
	require.NoError(t, err)
	require.Len(t, copies, 2)
	assert.NotEqual(t, "c1", copies[0].ID)
	assert.Equal(t, 2025, copies[1].SchoolYear)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"enrollment_id", "class_id", "student_id", "student_name", "active", "enrolled_on", "registration_data"}).
		AddRow("e1", "c1", "s1", "Ana", true, time.Now(), `{"nome_resp1":"Maria","contato_resp1":"9999"}`)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.class_id = $1 ORDER BY s.full_name")).
		WithArgs("c1").
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Maria", roster[0].RegistrationData.Text("nome_resp1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
