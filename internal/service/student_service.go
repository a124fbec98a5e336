package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/models"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

// Intake keys promoted into the students table.
const (
	keyFullName  = "nome_completo"
	keyBirthDate = "data_nascimento"
	keyRG        = "rg"
	keyCPF       = "cpf"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCPF(ctx context.Context, cpf, excludeID string) (*models.Student, error)
	FindByNameAndBirthDate(ctx context.Context, name string, birth time.Time, excludeID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetActive(ctx context.Context, id string, active bool) error
	DeleteCascade(ctx context.Context, id string) error
	History(ctx context.Context, id string) ([]models.StudentHistoryEntry, error)
}

// StudentService handles registration, search and lifecycle of students.
type StudentService struct {
	repo      studentRepository
	schema    *forms.Schema
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, schema *forms.Schema, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, schema: schema, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// Schema returns the intake form schema.
func (s *StudentService) Schema() *forms.Schema {
	return s.schema
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "list students")
	}
	return students, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailure(err, "student", "load student")
	}
	return student, nil
}

// Register validates the intake answers and inserts an active student unless
// the same person is already on file.
func (s *StudentService) Register(ctx context.Context, req dto.StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid student payload")
	}
	student, err := s.buildStudent(req.Answers)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotRegistered(ctx, student, ""); err != nil {
		return nil, err
	}
	student.Active = true
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "create student")
	}
	s.logger.Info("student registered", zap.String("student_id", student.ID))
	dropDashboard(ctx, s.cache, s.logger)
	return student, nil
}

// Update replaces the intake document of a student.
func (s *StudentService) Update(ctx context.Context, id string, req dto.StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid student payload")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailure(err, "student", "load student")
	}
	student, err := s.buildStudent(req.Answers)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotRegistered(ctx, student, id); err != nil {
		return nil, err
	}
	student.ID = current.ID
	student.Active = current.Active
	student.CreatedAt = current.CreatedAt
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, lookupFailure(err, "student", "update student")
	}
	dropDashboard(ctx, s.cache, s.logger)
	return student, nil
}

// SetStatus toggles whether the student takes part in the current cycle.
func (s *StudentService) SetStatus(ctx context.Context, id string, req dto.StudentStatusRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid status payload")
	}
	if err := s.repo.SetActive(ctx, id, *req.Active); err != nil {
		return nil, lookupFailure(err, "student", "update student status")
	}
	dropDashboard(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Delete removes a student together with every enrollment.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return lookupFailure(err, "student", "delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	dropDashboard(ctx, s.cache, s.logger)
	return nil
}

// Profile renders the stored document and the enrollment history of a student.
func (s *StudentService) Profile(ctx context.Context, id string) (*dto.StudentProfile, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "load student history")
	}
	if history == nil {
		history = []models.StudentHistoryEntry{}
	}
	return &dto.StudentProfile{
		Student: *student,
		Entries: s.schema.Entries(&student.RegistrationData),
		History: history,
	}, nil
}

// Form returns the schema and the stored answers converted back to form values.
func (s *StudentService) Form(ctx context.Context, id string) (*dto.StudentForm, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.StudentForm{
		StudentID: student.ID,
		Schema:    s.schema,
		Values:    s.schema.Prefill(&student.RegistrationData, s.now()),
	}, nil
}

func (s *StudentService) buildStudent(answers map[string]interface{}) (*models.Student, error) {
	doc, err := s.schema.Compose(answers)
	if err != nil {
		return nil, formFailure(err)
	}
	if err := s.schema.Validate(doc, s.now()); err != nil {
		return nil, formFailure(err)
	}

	name, _ := doc.Get(keyFullName)
	birth, _ := doc.Get(keyBirthDate)
	var missing []string
	if strings.TrimSpace(name.AsText()) == "" {
		missing = append(missing, s.label(keyFullName))
	}
	if birth.Kind() != forms.ValueDate || birth.AsDate().IsZero() {
		missing = append(missing, s.label(keyBirthDate))
	}
	if len(missing) > 0 {
		return nil, appErrors.Validation(missingFieldsPrefix, missing)
	}

	return &models.Student{
		FullName:         strings.TrimSpace(name.AsText()),
		BirthDate:        birth.AsDate(),
		RG:               strings.TrimSpace(doc.Text(keyRG)),
		CPF:              strings.TrimSpace(doc.Text(keyCPF)),
		RegistrationData: *doc,
	}, nil
}

// ensureNotRegistered matches by CPF first and falls back to name plus birth date.
func (s *StudentService) ensureNotRegistered(ctx context.Context, student *models.Student, excludeID string) error {
	if student.CPF != "" {
		match, err := s.repo.FindByCPF(ctx, student.CPF, excludeID)
		if err == nil && match != nil {
			return appErrors.Clone(appErrors.ErrStudentAlreadyRegistered, "a student with this CPF is already registered")
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Internal(err, "check student cpf")
		}
	}
	match, err := s.repo.FindByNameAndBirthDate(ctx, student.FullName, student.BirthDate, excludeID)
	if err == nil && match != nil {
		return appErrors.Clone(appErrors.ErrStudentAlreadyRegistered, "a student with this name and birth date is already registered")
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "check student identity")
	}
	return nil
}

func (s *StudentService) label(key string) string {
	if f, ok := s.schema.Field(key); ok {
		return f.Label
	}
	return forms.Prettify(key)
}
