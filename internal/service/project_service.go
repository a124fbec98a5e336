package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/models"
	"github.com/noah-isme/agape-api/internal/repository"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

type projectRepository interface {
	List(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.Project, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	CreateWithClasses(ctx context.Context, project *models.Project, classes []models.Class) error
	Update(ctx context.Context, project *models.Project) error
	DeleteCascade(ctx context.Context, id string) error
}

type projectClassLister interface {
	ListByProject(ctx context.Context, projectID string) ([]models.ClassDetail, error)
}

// ProjectService manages projects and their overview.
type ProjectService struct {
	repo      projectRepository
	classes   projectClassLister
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewProjectService constructs the project service.
func NewProjectService(repo projectRepository, classes projectClassLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{repo: repo, classes: classes, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// List returns projects with class and enrollment counters.
func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectSummary, *models.Pagination, error) {
	projects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "list projects")
	}
	return projects, paginate(filter.Page, filter.PageSize, total), nil
}

// Create registers a project with its first classes in one transaction.
func (s *ProjectService) Create(ctx context.Context, req dto.ProjectCreateRequest) (*dto.ProjectOverview, error) {
	project := &models.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
	}

	var problems []string
	if project.Name == "" {
		problems = append(problems, "name")
	}
	if project.Location == "" {
		problems = append(problems, "location")
	}
	if len(req.Classes) == 0 {
		problems = append(problems, "classes")
	}
	defaultYear := req.SchoolYear
	if defaultYear == 0 {
		defaultYear = s.now().Year()
	}
	classes := make([]models.Class, 0, len(req.Classes))
	for i, input := range req.Classes {
		class, classProblems := buildClass(input, req.Instructor, fmt.Sprintf("classes[%d].", i), i+1, defaultYear, s.now())
		problems = append(problems, classProblems...)
		classes = append(classes, class)
	}
	if len(problems) > 0 {
		return nil, appErrors.Validation(missingFieldsPrefix, problems)
	}

	taken, err := s.repo.ExistsByName(ctx, project.Name, "")
	if err != nil {
		return nil, appErrors.Internal(err, "check project name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrProjectNameTaken, fmt.Sprintf("project %q already exists", project.Name))
	}

	if err := s.repo.CreateWithClasses(ctx, project, classes); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrProjectNameTaken, fmt.Sprintf("project %q already exists", project.Name))
		}
		return nil, appErrors.Internal(err, "create project")
	}
	s.logger.Info("project created", zap.String("project_id", project.ID), zap.Int("classes", len(classes)))
	dropDashboard(ctx, s.cache, s.logger)
	return s.Get(ctx, project.ID)
}

// Update edits the project fields. The name stays unique.
func (s *ProjectService) Update(ctx context.Context, id string, req dto.ProjectUpdateRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid project payload")
	}
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailure(err, "project", "load project")
	}
	name := strings.TrimSpace(req.Name)
	taken, err := s.repo.ExistsByName(ctx, name, id)
	if err != nil {
		return nil, appErrors.Internal(err, "check project name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrProjectNameTaken, fmt.Sprintf("project %q already exists", name))
	}

	project.Name = name
	project.Description = strings.TrimSpace(req.Description)
	project.Location = strings.TrimSpace(req.Location)
	if err := s.repo.Update(ctx, project); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrProjectNameTaken, fmt.Sprintf("project %q already exists", name))
		}
		return nil, lookupFailure(err, "project", "update project")
	}
	return project, nil
}

// Delete removes the project with its classes and their enrollments.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return lookupFailure(err, "project", "delete project")
	}
	s.logger.Info("project deleted", zap.String("project_id", id))
	dropDashboard(ctx, s.cache, s.logger)
	return nil
}

// Get returns the project overview: every class with its occupancy, newest
// school year first.
func (s *ProjectService) Get(ctx context.Context, id string) (*dto.ProjectOverview, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailure(err, "project", "load project")
	}
	classes, err := s.classes.ListByProject(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "load project classes")
	}
	today := s.now()
	overview := &dto.ProjectOverview{Project: *project, Classes: make([]dto.ClassSituation, 0, len(classes))}
	for _, c := range classes {
		available := c.TotalSlots - c.Enrolled
		if available < 0 {
			available = 0
		}
		status := dto.ClassStatusOpen
		if available == 0 {
			status = dto.ClassStatusFull
		}
		overview.Classes = append(overview.Classes, dto.ClassSituation{
			ClassID:        c.ID,
			SchoolYear:     c.SchoolYear,
			ClassName:      c.Name,
			Schedule:       c.Schedule,
			InstructorName: c.InstructorName,
			InstructorAge:  c.InstructorAge(today),
			Total:          c.TotalSlots,
			Enrolled:       c.Enrolled,
			Available:      available,
			Status:         status,
		})
	}
	return overview, nil
}
