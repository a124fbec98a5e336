package service

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/models"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

// DashboardCachePattern matches every cached dashboard summary.
const DashboardCachePattern = "dash:summary:*"

const (
	missingFieldsPrefix = "Por favor, preencha os seguintes campos obrigatórios"
	invalidFieldsPrefix = "Por favor, revise os seguintes campos"
)

// NewValidator returns a validator that reports fields by their JSON name.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// invalidPayload turns validator output into one aggregated validation error.
func invalidPayload(err error, prefix string) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return appErrors.Validation(prefix, fields)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, prefix)
}

// formFailure maps a form validation error onto the API error taxonomy.
func formFailure(err error) error {
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid form answers")
	}
	prefix := missingFieldsPrefix
	if len(verr.Invalid) > 0 {
		prefix = invalidFieldsPrefix
	}
	return appErrors.Validation(prefix, verr.Labels())
}

// lookupFailure reports sql.ErrNoRows as a not-found error and anything else
// as an internal failure of op.
func lookupFailure(err error, what, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Internal(err, op)
}

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dropDashboard clears cached dashboard summaries after a mutation. Failures
// only cost freshness until the TTL expires.
func dropDashboard(ctx context.Context, cache *CacheService, logger *zap.Logger) {
	if err := cache.Invalidate(ctx, DashboardCachePattern); err != nil {
		logger.Debug("dashboard cache not invalidated", zap.Error(err))
	}
}
