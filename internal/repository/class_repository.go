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

const classDetailSelect = `SELECT c.id, c.project_id, c.name, c.school_year, c.schedule, c.total_slots,
        c.instructor_name, c.instructor_cpf, c.instructor_rg, c.instructor_birth_date, c.instructor_paid, c.instructor_compensation,
        c.created_at, c.updated_at, p.name AS project_name, p.description AS project_description, p.location AS project_location,
        (SELECT COUNT(*) FROM enrollments e WHERE e.class_id = c.id) AS enrolled
        FROM classes c
        JOIN projects p ON p.id = c.project_id`

const insertClassQuery = `INSERT INTO classes (id, project_id, name, school_year, schedule, total_slots,
        instructor_name, instructor_cpf, instructor_rg, instructor_birth_date, instructor_paid, instructor_compensation, created_at, updated_at)
        VALUES (:id, :project_id, :name, :school_year, :schedule, :total_slots,
        :instructor_name, :instructor_cpf, :instructor_rg, :instructor_birth_date, :instructor_paid, :instructor_compensation, :created_at, :updated_at)`

const rosterSelect = `SELECT e.id AS enrollment_id, e.class_id, s.id AS student_id, s.full_name AS student_name, s.active,
        e.enrolled_on, s.registration_data
        FROM enrollments e
        JOIN students s ON s.id = e.student_id`

// ClassRepository handles persistence of yearly classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes with their project and occupancy.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ProjectID != "" {
		conditions = append(conditions, fmt.Sprintf("c.project_id = $%d", len(args)+1))
		args = append(args, filter.ProjectID)
	}
	if filter.SchoolYear != nil {
		conditions = append(conditions, fmt.Sprintf("c.school_year = $%d", len(args)+1))
		args = append(args, *filter.SchoolYear)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.name) LIKE $%d OR LOWER(p.name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	clause := whereClause(conditions)

	window := newListWindow(filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder, map[string]string{
		"school_year":  "c.school_year",
		"name":         "c.name",
		"project_name": "p.name",
		"created_at":   "c.created_at",
	}, "school_year", "DESC")

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, classDetailSelect+clause+window.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM classes c JOIN projects p ON p.id = c.project_id" + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class with its project and occupancy.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	var class models.ClassDetail
	if err := r.db.GetContext(ctx, &class, classDetailSelect+" WHERE c.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// ListByProject returns a project's classes, newest school year first.
func (r *ClassRepository) ListByProject(ctx context.Context, projectID string) ([]models.ClassDetail, error) {
	var classes []models.ClassDetail
	query := classDetailSelect + " WHERE c.project_id = $1 ORDER BY c.school_year DESC, c.name"
	if err := r.db.SelectContext(ctx, &classes, query, projectID); err != nil {
		return nil, fmt.Errorf("list project classes: %w", err)
	}
	return classes, nil
}

// ListByYear returns every class of a school year grouped by project name.
func (r *ClassRepository) ListByYear(ctx context.Context, year int) ([]models.ClassDetail, error) {
	var classes []models.ClassDetail
	query := classDetailSelect + " WHERE c.school_year = $1 ORDER BY p.name, c.name"
	if err := r.db.SelectContext(ctx, &classes, query, year); err != nil {
		return nil, fmt.Errorf("list classes by year: %w", err)
	}
	return classes, nil
}

// CountByProjectYear counts a project's classes in a school year.
func (r *ClassRepository) CountByProjectYear(ctx context.Context, projectID string, year int) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM classes WHERE project_id = $1 AND school_year = $2`
	if err := r.db.GetContext(ctx, &count, query, projectID, year); err != nil {
		return 0, fmt.Errorf("count project classes: %w", err)
	}
	return count, nil
}

func stampClass(class *models.Class, now time.Time) {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	stampClass(class, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertClassQuery, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update edits a class in place.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, school_year = :school_year, schedule = :schedule, total_slots = :total_slots,
        instructor_name = :instructor_name, instructor_cpf = :instructor_cpf, instructor_rg = :instructor_rg,
        instructor_birth_date = :instructor_birth_date, instructor_paid = :instructor_paid,
        instructor_compensation = :instructor_compensation, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return mustAffect(res)
}

// DeleteCascade removes the class's enrollments and then the class in one transaction.
func (r *ClassRepository) DeleteCascade(ctx context.Context, id string) error {
	return inTx(ctx, r.db, "delete class", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE class_id = $1`, id); err != nil {
			return fmt.Errorf("delete class enrollments: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete class: %w", err)
		}
		return mustAffect(res)
	})
}

// CopyYear offers again every class a project ran in one year, without its
// enrollments, and returns the new classes.
func (r *ClassRepository) CopyYear(ctx context.Context, projectID string, fromYear, toYear int) ([]models.Class, error) {
	var copies []models.Class
	err := inTx(ctx, r.db, "copy classes", func(tx *sqlx.Tx) error {
		const query = `SELECT id, project_id, name, school_year, schedule, total_slots, instructor_name, instructor_cpf, instructor_rg,
        instructor_birth_date, instructor_paid, instructor_compensation, created_at, updated_at
        FROM classes WHERE project_id = $1 AND school_year = $2 ORDER BY name`
		var sources []models.Class
		if err := tx.SelectContext(ctx, &sources, query, projectID, fromYear); err != nil {
			return fmt.Errorf("load classes to copy: %w", err)
		}
		now := time.Now().UTC()
		for _, src := range sources {
			clone := src
			clone.ID = ""
			clone.CreatedAt = time.Time{}
			clone.SchoolYear = toYear
			stampClass(&clone, now)
			if _, err := tx.NamedExecContext(ctx, insertClassQuery, &clone); err != nil {
				return fmt.Errorf("copy class: %w", err)
			}
			copies = append(copies, clone)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copies, nil
}

// Roster lists the students enrolled in a class by name.
func (r *ClassRepository) Roster(ctx context.Context, classID string) ([]models.RosterRow, error) {
	var rows []models.RosterRow
	if err := r.db.SelectContext(ctx, &rows, rosterSelect+" WHERE e.class_id = $1 ORDER BY s.full_name", classID); err != nil {
		return nil, fmt.Errorf("class roster: %w", err)
	}
	return rows, nil
}

// RostersByYear lists the enrollments of every class of a school year.
func (r *ClassRepository) RostersByYear(ctx context.Context, year int) ([]models.RosterRow, error) {
	query := rosterSelect + ` JOIN classes c ON c.id = e.class_id WHERE c.school_year = $1 ORDER BY e.class_id, e.enrolled_on, s.full_name`
	var rows []models.RosterRow
	if err := r.db.SelectContext(ctx, &rows, query, year); err != nil {
		return nil, fmt.Errorf("rosters by year: %w", err)
	}
	return rows, nil
}
