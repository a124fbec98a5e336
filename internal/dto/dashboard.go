package dto

import (
	"time"

	"github.com/noah-isme/agape-api/internal/models"
)

// DashboardSummary is the aggregated dashboard payload for one school year.
type DashboardSummary struct {
	Year            int                    `json:"year"`
	Totals          models.DashboardTotals `json:"totals"`
	ByGender        []Bucket               `json:"by_gender"`
	ByPeriod        []Bucket               `json:"by_period"`
	Vulnerabilities []Bucket               `json:"vulnerabilities"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// Bucket is one bar of a distribution.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}
