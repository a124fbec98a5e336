package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/agape-api/internal/models"
)

const studentColumns = `s.id, s.full_name, s.birth_date, s.rg, s.cpf, s.active, s.registration_data, s.created_at, s.updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR s.cpf LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	base := "FROM students s" + whereClause(conditions)

	window := newListWindow(filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder, map[string]string{
		"full_name":  "s.full_name",
		"birth_date": "s.birth_date",
		"created_at": "s.created_at",
	}, "full_name", "ASC")

	query := "SELECT " + studentColumns + " " + base + window.String()
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student ordered by name, optionally only the active ones.
func (r *StudentRepository) ListAll(ctx context.Context, activeOnly bool) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students s"
	if activeOnly {
		query += " WHERE s.active = TRUE"
	}
	query += " ORDER BY s.full_name"
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students s WHERE s.id = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindByCPF returns the student holding cpf, optionally excluding an ID.
func (r *StudentRepository) FindByCPF(ctx context.Context, cpf, excludeID string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students s WHERE s.cpf = $1"
	args := []interface{}{cpf}
	if excludeID != "" {
		query += " AND s.id <> $2"
		args = append(args, excludeID)
	}
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by cpf: %w", err)
	}
	return &student, nil
}

// FindByNameAndBirthDate returns the student with the exact name and birth date.
func (r *StudentRepository) FindByNameAndBirthDate(ctx context.Context, name string, birth time.Time, excludeID string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students s WHERE s.full_name = $1 AND s.birth_date = $2"
	args := []interface{}{name, birth}
	if excludeID != "" {
		query += " AND s.id <> $3"
		args = append(args, excludeID)
	}
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by name and birth date: %w", err)
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, full_name, birth_date, rg, cpf, active, registration_data, created_at, updated_at)
        VALUES (:id, :full_name, :birth_date, :rg, :cpf, :active, :registration_data, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update replaces identity columns and the registration document.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, birth_date = :birth_date, rg = :rg, cpf = :cpf,
        registration_data = :registration_data, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return mustAffect(res)
}

// SetActive toggles the active flag.
func (r *StudentRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE students SET active = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set student status: %w", err)
	}
	return mustAffect(res)
}

// DeleteCascade removes the student's enrollments and then the student in one transaction.
func (r *StudentRepository) DeleteCascade(ctx context.Context, id string) error {
	return inTx(ctx, r.db, "delete student", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1`, id); err != nil {
			return fmt.Errorf("delete student enrollments: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
		return mustAffect(res)
	})
}

// History lists the student's enrollments, newest school year first.
func (r *StudentRepository) History(ctx context.Context, id string) ([]models.StudentHistoryEntry, error) {
	const query = `SELECT e.id AS enrollment_id, c.school_year, p.name AS project_name, p.location AS project_location,
        c.name AS class_name, c.instructor_name, c.schedule, e.enrolled_on
        FROM enrollments e
        JOIN classes c ON c.id = e.class_id
        JOIN projects p ON p.id = c.project_id
        WHERE e.student_id = $1
        ORDER BY c.school_year DESC, e.enrolled_on DESC`
	var history []models.StudentHistoryEntry
	if err := r.db.SelectContext(ctx, &history, query, id); err != nil {
		return nil, fmt.Errorf("student history: %w", err)
	}
	return history, nil
}
