package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/models"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

const (
	genderKey          = "genero"
	periodKey          = "periodo"
	vulnerabilitiesKey = "vulnerabilidades"
	notInformedLabel   = "Não Informado"
	noVulnerability    = "Nenhuma"
)

type dashboardRepository interface {
	Totals(ctx context.Context, year int) (models.DashboardTotals, error)
	RegistrationDocuments(ctx context.Context) ([]string, error)
}

// DashboardService composes the indicators panel.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService constructs a DashboardService. A zero ttl uses the cache default.
func NewDashboardService(repo dashboardRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Summary returns the dashboard of a school year and whether it came from cache.
// A zero year means the current one.
func (s *DashboardService) Summary(ctx context.Context, year int) (*dto.DashboardSummary, bool, error) {
	if year == 0 {
		year = s.now().Year()
	}
	key := CacheKey("dash", "summary", strconv.Itoa(year))

	var cached dto.DashboardSummary
	if s.cache.Lookup(ctx, key, &cached) {
		return &cached, true, nil
	}

	totals, err := s.repo.Totals(ctx, year)
	if err != nil {
		return nil, false, appErrors.Internal(err, "load dashboard totals")
	}
	docs, err := s.repo.RegistrationDocuments(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "load registration documents")
	}

	summary := &dto.DashboardSummary{Year: year, Totals: totals, GeneratedAt: s.now().UTC()}
	genders, periods, vulnerabilities := newTally(), newTally(), newTally()
	for _, raw := range docs {
		doc, err := forms.ParseDocument(raw)
		if err != nil {
			s.logger.Warn("skipping unreadable registration document", zap.Error(err))
			doc = forms.NewDocument()
		}
		genders.add(textOr(doc, genderKey, notInformedLabel))
		periods.add(textOr(doc, periodKey, notInformedLabel))
		if v, ok := doc.Get(vulnerabilitiesKey); ok {
			for _, item := range v.AsList() {
				if item != noVulnerability && item != "" {
					vulnerabilities.add(item)
				}
			}
		}
	}
	summary.ByGender = genders.buckets()
	summary.ByPeriod = periods.buckets()
	summary.Vulnerabilities = vulnerabilities.buckets()

	if err := s.cache.Set(ctx, key, summary, s.ttl); err != nil {
		s.logger.Warn("failed to cache dashboard", zap.Int("year", year), zap.Error(err))
	}
	return summary, false, nil
}

func textOr(doc *forms.Document, key, fallback string) string {
	v, ok := doc.Get(key)
	if !ok || v.IsEmpty() {
		return fallback
	}
	return v.Display()
}

// tally counts labels keeping first-seen order for ties.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: map[string]int{}}
}

func (t *tally) add(label string) {
	if _, ok := t.counts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.counts[label]++
}

func (t *tally) buckets() []dto.Bucket {
	out := make([]dto.Bucket, 0, len(t.order))
	for _, label := range t.order {
		out = append(out, dto.Bucket{Label: label, Count: t.counts[label]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
