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

// ProjectRepository handles persistence of projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs a ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// List returns projects with class and enrollment counters.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectSummary, int, error) {
	var conditions []string
	var args []interface{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.name) LIKE $%d OR LOWER(p.location) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	base := "FROM projects p" + whereClause(conditions)

	window := newListWindow(filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder, map[string]string{
		"name":       "p.name",
		"created_at": "p.created_at",
	}, "name", "ASC")

	query := `SELECT p.id, p.name, p.description, p.location, p.created_at, p.updated_at,
        (SELECT COUNT(*) FROM classes c WHERE c.project_id = p.id) AS class_count,
        (SELECT COUNT(*) FROM enrollments e JOIN classes c ON c.id = e.class_id WHERE c.project_id = p.id) AS enrollment_count
        ` + base + window.String()
	var projects []models.ProjectSummary
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}
	return projects, total, nil
}

// FindByID returns a project by ID.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	const query = `SELECT id, name, description, location, created_at, updated_at FROM projects WHERE id = $1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &project, nil
}

// ExistsByName checks whether another project already uses name.
func (r *ProjectRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM projects WHERE name = $1"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check project name: %w", err)
	}
	return true, nil
}

// CreateWithClasses inserts a project and its first classes in one transaction.
func (r *ProjectRepository) CreateWithClasses(ctx context.Context, project *models.Project, classes []models.Class) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	return inTx(ctx, r.db, "create project", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO projects (id, name, description, location, created_at, updated_at)
        VALUES (:id, :name, :description, :location, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, project); err != nil {
			return fmt.Errorf("create project: %w", translateUnique(err))
		}
		for i := range classes {
			classes[i].ProjectID = project.ID
			stampClass(&classes[i], now)
			if _, err := tx.NamedExecContext(ctx, insertClassQuery, &classes[i]); err != nil {
				return fmt.Errorf("create project class: %w", err)
			}
		}
		return nil
	})
}

// Update edits a project in place.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE projects SET name = :name, description = :description, location = :location, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, project)
	if err != nil {
		return fmt.Errorf("update project: %w", translateUnique(err))
	}
	return mustAffect(res)
}

// DeleteCascade removes the enrollments of every class of the project, the
// classes and then the project, all in one transaction.
func (r *ProjectRepository) DeleteCascade(ctx context.Context, id string) error {
	return inTx(ctx, r.db, "delete project", func(tx *sqlx.Tx) error {
		var classIDs []string
		if err := tx.SelectContext(ctx, &classIDs, `SELECT id FROM classes WHERE project_id = $1`, id); err != nil {
			return fmt.Errorf("resolve project classes: %w", err)
		}
		if len(classIDs) > 0 {
			query, args, err := sqlx.In(`DELETE FROM enrollments WHERE class_id IN (?)`, classIDs)
			if err != nil {
				return fmt.Errorf("build enrollment purge: %w", err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				return fmt.Errorf("delete project enrollments: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE project_id = $1`, id); err != nil {
				return fmt.Errorf("delete project classes: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return mustAffect(res)
	})
}
