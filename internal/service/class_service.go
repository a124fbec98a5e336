package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/models"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
	"github.com/noah-isme/agape-api/pkg/export"
)

const (
	defaultClassSlots = 15
	notAvailable      = "N/A"
	guardianNameKey   = "nome_resp1"
	guardianPhoneKey  = "contato_resp1"
)

var oldestInstructorBirth = time.Date(1920, time.January, 1, 0, 0, 0, 0, time.UTC)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassDetail, error)
	CountByProjectYear(ctx context.Context, projectID string, year int) (int, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	DeleteCascade(ctx context.Context, id string) error
	CopyYear(ctx context.Context, projectID string, fromYear, toYear int) ([]models.Class, error)
	Roster(ctx context.Context, classID string) ([]models.RosterRow, error)
}

type projectReader interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
}

// ClassService manages the yearly classes of projects.
type ClassService struct {
	repo      classRepository
	projects  projectReader
	cache     *CacheService
	csv       *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs the class service.
func NewClassService(repo classRepository, projects projectReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		repo:      repo,
		projects:  projects,
		cache:     cache,
		csv:       export.NewCSVExporter(),
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns classes with pagination.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "list classes")
	}
	return classes, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns one class with its occupancy.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailure(err, "class", "load class")
	}
	return class, nil
}

// Open adds a class to an existing project.
func (s *ClassService) Open(ctx context.Context, projectID string, req dto.ClassInput) (*models.ClassDetail, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, lookupFailure(err, "project", "load project")
	}
	class, problems := buildClass(req, dto.InstructorInput{}, "", 1, s.now().Year(), s.now())
	if len(problems) > 0 {
		return nil, appErrors.Validation(missingFieldsPrefix, problems)
	}
	class.ProjectID = projectID
	if err := s.repo.Create(ctx, &class); err != nil {
		return nil, appErrors.Internal(err, "create class")
	}
	dropDashboard(ctx, s.cache, s.logger)
	return s.Get(ctx, class.ID)
}

// Update edits a class. Capacity cannot drop below the current enrollments.
func (s *ClassService) Update(ctx context.Context, id string, req dto.ClassUpdateRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid class payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.TotalSlots < current.Enrolled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("class already has %d enrollments", current.Enrolled))
	}

	slots := req.TotalSlots
	class, problems := buildClass(dto.ClassInput{
		Name:       req.Name,
		SchoolYear: req.SchoolYear,
		Schedule:   req.Schedule,
		TotalSlots: &slots,
		Instructor: &req.Instructor,
	}, dto.InstructorInput{}, "", 1, current.SchoolYear, s.now())
	if len(problems) > 0 {
		return nil, appErrors.Validation(missingFieldsPrefix, problems)
	}
	class.ID = current.ID
	class.ProjectID = current.ProjectID
	class.CreatedAt = current.CreatedAt
	if err := s.repo.Update(ctx, &class); err != nil {
		return nil, lookupFailure(err, "class", "update class")
	}
	dropDashboard(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Delete removes a class and its enrollments.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return lookupFailure(err, "class", "delete class")
	}
	s.logger.Info("class deleted", zap.String("class_id", id))
	dropDashboard(ctx, s.cache, s.logger)
	return nil
}

// Reoffer copies a project's classes from one school year into another
// without their enrollments.
func (s *ClassService) Reoffer(ctx context.Context, projectID string, req dto.ReofferRequest) ([]models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid reoffer payload")
	}
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, lookupFailure(err, "project", "load project")
	}
	source, err := s.repo.CountByProjectYear(ctx, projectID, req.FromYear)
	if err != nil {
		return nil, appErrors.Internal(err, "count source classes")
	}
	if source == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("project has no classes in %d", req.FromYear))
	}
	target, err := s.repo.CountByProjectYear(ctx, projectID, req.ToYear)
	if err != nil {
		return nil, appErrors.Internal(err, "count target classes")
	}
	if target > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("project already has classes in %d", req.ToYear))
	}

	copies, err := s.repo.CopyYear(ctx, projectID, req.FromYear, req.ToYear)
	if err != nil {
		return nil, appErrors.Internal(err, "copy classes")
	}
	s.logger.Info("classes reoffered",
		zap.String("project_id", projectID),
		zap.Int("from_year", req.FromYear),
		zap.Int("to_year", req.ToYear),
		zap.Int("classes", len(copies)),
	)
	dropDashboard(ctx, s.cache, s.logger)
	return copies, nil
}

// Roster returns the roll call of a class.
func (s *ClassService) Roster(ctx context.Context, classID string) (*dto.ClassRoster, error) {
	class, err := s.Get(ctx, classID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Roster(ctx, classID)
	if err != nil {
		return nil, appErrors.Internal(err, "load roster")
	}
	entries := make([]dto.RosterEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, dto.RosterEntry{
			EnrollmentID:    row.EnrollmentID,
			StudentID:       row.StudentID,
			StudentName:     row.StudentName,
			Status:          activeLabel(row.Active),
			GuardianName:    orDefault(row.RegistrationData.Text(guardianNameKey), notAvailable),
			GuardianContact: orDefault(row.RegistrationData.Text(guardianPhoneKey), notAvailable),
			EnrolledOn:      row.EnrolledOn,
		})
	}
	return &dto.ClassRoster{Class: *class, Students: entries}, nil
}

// RosterCSV renders the roll call as a spreadsheet-friendly CSV file.
func (s *ClassService) RosterCSV(ctx context.Context, classID string) ([]byte, string, error) {
	roster, err := s.Roster(ctx, classID)
	if err != nil {
		return nil, "", err
	}
	headers := []string{"Aluno", "Status", "Responsável", "Contato", "Matriculado em"}
	data := export.Dataset{Headers: headers}
	for _, entry := range roster.Students {
		data.Rows = append(data.Rows, map[string]string{
			"Aluno":          entry.StudentName,
			"Status":         entry.Status,
			"Responsável":    entry.GuardianName,
			"Contato":        entry.GuardianContact,
			"Matriculado em": entry.EnrolledOn.Format("02/01/2006"),
		})
	}
	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, "", appErrors.Internal(err, "render roster csv")
	}
	name := fmt.Sprintf("chamada_%s_%d.csv", slug(roster.Class.ProjectName+" "+roster.Class.Name), roster.Class.SchoolYear)
	return payload, name, nil
}

// buildClass resolves defaults and collects every problem of one class input.
// Instructor data missing on the class falls back to the project instructor.
func buildClass(in dto.ClassInput, fallback dto.InstructorInput, prefix string, position, defaultYear int, today time.Time) (models.Class, []string) {
	var problems []string
	field := func(name string) string { return prefix + name }

	class := models.Class{
		Name:       strings.TrimSpace(in.Name),
		SchoolYear: in.SchoolYear,
		Schedule:   strings.TrimSpace(in.Schedule),
		TotalSlots: defaultClassSlots,
	}
	if class.Name == "" {
		class.Name = fmt.Sprintf("Turma %d", position)
	}
	if class.SchoolYear == 0 {
		class.SchoolYear = defaultYear
	}
	if class.SchoolYear < 2000 || class.SchoolYear > 2100 {
		problems = append(problems, field("school_year"))
	}
	if class.Schedule == "" {
		problems = append(problems, field("schedule"))
	}
	if in.TotalSlots != nil {
		class.TotalSlots = *in.TotalSlots
	}
	if class.TotalSlots < 1 {
		problems = append(problems, field("total_slots"))
	}

	instructor := fallback
	if in.Instructor != nil {
		instructor = mergeInstructor(*in.Instructor, fallback)
	}
	class.InstructorName = strings.TrimSpace(instructor.Name)
	class.InstructorCPF = strings.TrimSpace(instructor.CPF)
	class.InstructorRG = strings.TrimSpace(instructor.RG)
	if class.InstructorName == "" {
		problems = append(problems, field("instructor.name"))
	}
	if class.InstructorCPF == "" {
		problems = append(problems, field("instructor.cpf"))
	}
	if raw := strings.TrimSpace(instructor.BirthDate); raw != "" {
		birth, err := time.Parse("2006-01-02", raw)
		if err != nil || birth.Before(oldestInstructorBirth) || birth.After(today) {
			problems = append(problems, field("instructor.birth_date"))
		} else {
			class.InstructorBirthDate = &birth
		}
	}
	class.InstructorPaid = instructor.Paid
	if instructor.Paid {
		switch {
		case instructor.Compensation == nil:
			problems = append(problems, field("instructor.compensation"))
		case *instructor.Compensation < 0:
			problems = append(problems, field("instructor.compensation"))
		default:
			amount := *instructor.Compensation
			class.InstructorCompensation = &amount
		}
	}
	return class, problems
}

func mergeInstructor(own, fallback dto.InstructorInput) dto.InstructorInput {
	if strings.TrimSpace(own.Name) == "" {
		own.Name = fallback.Name
	}
	if strings.TrimSpace(own.CPF) == "" {
		own.CPF = fallback.CPF
	}
	if strings.TrimSpace(own.RG) == "" {
		own.RG = fallback.RG
	}
	if strings.TrimSpace(own.BirthDate) == "" {
		own.BirthDate = fallback.BirthDate
	}
	if !own.Paid && fallback.Paid && own.Compensation == nil {
		own.Paid = true
		own.Compensation = fallback.Compensation
	}
	return own
}

func activeLabel(active bool) string {
	if active {
		return "Ativo"
	}
	return "Inativo"
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	return b.String()
}
