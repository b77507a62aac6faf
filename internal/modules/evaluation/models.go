// Package evaluation runs the per-domain decision pipeline: score, classify, trend,
// forecast, eligibility and recommendations, persisted as immutable records.
package evaluation

import (
	"time"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// Evaluation is one immutable pipeline result for an entity in a domain
type Evaluation struct {
	ComputedAt      time.Time                   `json:"computed_at" msgpack:"-"`
	ValidUntil      time.Time                   `json:"valid_until" msgpack:"-"`
	Trend           *domain.TrendAnalysis       `json:"trend,omitempty" msgpack:"trend,omitempty"`
	Forecast        *domain.Forecast            `json:"forecast,omitempty" msgpack:"forecast,omitempty"`
	Eligibility     *domain.EligibilityDecision `json:"eligibility,omitempty" msgpack:"eligibility,omitempty"`
	Flags           map[string]bool             `json:"flags,omitempty" msgpack:"flags,omitempty"`
	Score           domain.CompositeScore       `json:"score" msgpack:"score"`
	Recommendations []domain.Recommendation     `json:"recommendations" msgpack:"recommendations"`
	ID              string                      `json:"id" msgpack:"-"`
	Domain          string                      `json:"domain" msgpack:"-"`
	EntityID        string                      `json:"entity_id" msgpack:"-"`
}

// Rejected reports whether the eligibility gate stopped the pipeline
func (e *Evaluation) Rejected() bool {
	return e.Eligibility != nil && !e.Eligibility.Eligible
}

// Expired reports whether the evaluation is past its validity window at now
func (e *Evaluation) Expired(now time.Time) bool {
	return !now.Before(e.ValidUntil)
}
