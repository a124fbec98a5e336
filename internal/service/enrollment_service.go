package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/models"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	CountByClass(ctx context.Context, classID string) (int, error)
	ExistsInProject(ctx context.Context, studentID, projectID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

// decideEnrollment applies the enrollment rules in their fixed order: a
// student enrolled anywhere in the project is rejected before capacity is
// considered.
func decideEnrollment(alreadyInProject bool, remaining int) models.EnrollmentOutcome {
	switch {
	case alreadyInProject:
		return models.EnrollmentDuplicate
	case remaining <= 0:
		return models.EnrollmentFull
	default:
		return models.EnrollmentCreated
	}
}

// EnrollmentService enforces capacity and one-class-per-project rules.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	classes   classReader
	metrics   *MetricsService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, classes classReader, metrics *MetricsService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		classes:   classes,
		metrics:   metrics,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns enrollments with pagination.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "list enrollments")
	}
	return enrollments, paginate(filter.Page, filter.PageSize, total), nil
}

// Enroll places an active student in a class dated today.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid enrollment payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, lookupFailure(err, "student", "load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only active students can be enrolled")
	}
	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		return nil, lookupFailure(err, "class", "load class")
	}

	count, err := s.repo.CountByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "count class enrollments")
	}
	duplicate, err := s.repo.ExistsInProject(ctx, student.ID, class.ProjectID)
	if err != nil {
		return nil, appErrors.Internal(err, "check project enrollment")
	}

	outcome := decideEnrollment(duplicate, class.TotalSlots-count)
	s.metrics.RecordEnrollment(outcome)
	switch outcome {
	case models.EnrollmentDuplicate:
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolledInProject, "student is already enrolled in a class of "+class.ProjectName)
	case models.EnrollmentFull:
		return nil, appErrors.Clone(appErrors.ErrClassFull, "class "+class.Name+" has no remaining slots")
	}

	enrollment := &models.Enrollment{
		StudentID:  student.ID,
		ClassID:    class.ID,
		EnrolledOn: startOfDay(s.now()),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Internal(err, "create enrollment")
	}
	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("class_id", class.ID),
		zap.Int("remaining", class.TotalSlots-count-1),
	)
	dropDashboard(ctx, s.cache, s.logger)
	return enrollment, nil
}

// Availability reports the occupancy of a class.
func (s *EnrollmentService) Availability(ctx context.Context, classID string) (*models.ClassAvailability, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, lookupFailure(err, "class", "load class")
	}
	count, err := s.repo.CountByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "count class enrollments")
	}
	available := class.TotalSlots - count
	if available < 0 {
		available = 0
	}
	return &models.ClassAvailability{
		ClassID:   class.ID,
		Total:     class.TotalSlots,
		Enrolled:  count,
		Available: available,
		Full:      available == 0,
	}, nil
}

// Cancel removes an enrollment.
func (s *EnrollmentService) Cancel(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupFailure(err, "enrollment", "delete enrollment")
	}
	s.logger.Info("enrollment cancelled", zap.String("enrollment_id", id))
	dropDashboard(ctx, s.cache, s.logger)
	return nil
}
