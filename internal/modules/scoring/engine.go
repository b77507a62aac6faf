// Package scoring provides the factor extractor, weighted scorer and threshold classifier.
package scoring

import (
	"time"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// Config is the immutable scoring part of a domain configuration
type Config struct {
	Domain     string
	Categories RuleTable
	Thresholds Thresholds
	DomainMax  float64
	TTL        time.Duration
}

// Validate checks rule table, thresholds and validity window
func (c Config) Validate() error {
	if c.Domain == "" {
		return domain.NewInputError("domain", "domain key is empty")
	}
	if c.DomainMax <= 0 {
		return domain.NewInputError("domain_max", "must be positive, got %v", c.DomainMax)
	}
	if c.TTL <= 0 {
		return domain.NewInputError("ttl", "validity window must be positive")
	}
	if err := c.Categories.Validate(); err != nil {
		return err
	}
	return c.Thresholds.Validate(c.DomainMax)
}

// ScoreEntity runs extractor, scorer and classifier for one entity.
// now stamps ComputedAt; ValidUntil is now + TTL.
func ScoreEntity(entityID string, snapshot domain.Snapshot, cfg Config, now time.Time) (domain.CompositeScore, error) {
	factors, err := Extract(snapshot, cfg.Categories)
	if err != nil {
		return domain.CompositeScore{}, err
	}

	agg, err := Score(factors, cfg.Categories.Maxima(), cfg.DomainMax)
	if err != nil {
		return domain.CompositeScore{}, err
	}

	return domain.CompositeScore{
		EntityID:   entityID,
		Domain:     cfg.Domain,
		TotalScore: agg.TotalScore,
		Breakdown:  agg.Breakdown,
		Rating:     Classify(agg.TotalScore, cfg.Thresholds),
		ComputedAt: now,
		ValidUntil: now.Add(cfg.TTL),
		Factors:    factors,
	}, nil
}
