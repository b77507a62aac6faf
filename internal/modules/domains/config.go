// Package domains provides the immutable per-domain configurations consumed by the
// shared scoring, trend and recommendation engine, and the registry that loads them.
package domains

import (
	"strings"
	"time"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/claims"
	"github.com/agrisentinel/agrisentinel/internal/modules/lending"
	"github.com/agrisentinel/agrisentinel/internal/modules/recommendations"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
	"github.com/agrisentinel/agrisentinel/internal/modules/trends"
)

// Kind tags a configuration with the domain variant it implements
type Kind string

const (
	KindCredit      Kind = "credit"
	KindCropHealth  Kind = "crop_health"
	KindYield       Kind = "yield"
	KindMarketPrice Kind = "market_price"
	KindWeatherRisk Kind = "weather_risk"
	KindClaims      Kind = "claims"
)

// Config is one domain's full configuration. Treat it as read-only once loaded;
// the same value is shared by every concurrent evaluation.
type Config struct {
	Eligibility  *recommendations.Gate      `yaml:"eligibility,omitempty" json:"eligibility,omitempty"`
	Trend        *trends.Settings           `yaml:"trend,omitempty" json:"trend,omitempty"`
	Lending      *lending.Params            `yaml:"lending,omitempty" json:"lending,omitempty"`
	Claims       *claims.Params             `yaml:"claims,omitempty" json:"claims,omitempty"`
	Key          string                     `yaml:"key" json:"key"`
	Kind         Kind                       `yaml:"kind" json:"kind"`
	Name         string                     `yaml:"name" json:"name"`
	Description  string                     `yaml:"description" json:"description"`
	Series       string                     `yaml:"series,omitempty" json:"series,omitempty"`
	Categories   scoring.RuleTable          `yaml:"categories" json:"categories"`
	Thresholds   scoring.Thresholds         `yaml:"thresholds" json:"thresholds"`
	Flags        []recommendations.FlagRule `yaml:"flags,omitempty" json:"flags,omitempty"`
	Rules        recommendations.RuleTable  `yaml:"rules" json:"rules"`
	DomainMax    float64                    `yaml:"domain_max" json:"domain_max"`
	ValidityDays int                        `yaml:"validity_days" json:"validity_days"`
}

// TTL is the validity window stamped on every evaluation
func (c *Config) TTL() time.Duration {
	return time.Duration(c.ValidityDays) * 24 * time.Hour
}

// Scoring returns the scoring part of the configuration
func (c *Config) Scoring() scoring.Config {
	domainMax := c.DomainMax
	if domainMax == 0 {
		domainMax = scoring.DefaultDomainMax
	}
	return scoring.Config{
		Domain:     c.Key,
		Categories: c.Categories,
		Thresholds: c.Thresholds,
		DomainMax:  domainMax,
		TTL:        c.TTL(),
	}
}

// Gated reports whether evaluations pass an eligibility gate first
func (c *Config) Gated() bool {
	return c.Eligibility != nil
}

// HasTrend reports whether the domain analyzes a time series
func (c *Config) HasTrend() bool {
	return c.Trend != nil
}

// LendingPolicy returns the loan decision policy of a credit domain
func (c *Config) LendingPolicy() (lending.Policy, error) {
	if c.Lending == nil || c.Eligibility == nil {
		return lending.Policy{}, domain.NewInputError("domain", "%q has no lending policy", c.Key)
	}
	return lending.Policy{Scoring: c.Scoring(), Gate: *c.Eligibility, Params: *c.Lending}, nil
}

// ClaimsPolicy returns the assessment policy of a claims domain
func (c *Config) ClaimsPolicy() (claims.Policy, error) {
	if c.Claims == nil || c.Eligibility == nil {
		return claims.Policy{}, domain.NewInputError("domain", "%q has no claims policy", c.Key)
	}
	return claims.Policy{Scoring: c.Scoring(), Gate: *c.Eligibility, Params: *c.Claims}, nil
}

// kindRequirements are the sections each variant must carry
var kindRequirements = map[Kind]func(c *Config) error{
	KindCredit: func(c *Config) error {
		if c.Eligibility == nil || c.Lending == nil {
			return domain.NewInputError(c.Key, "credit domains need eligibility and lending sections")
		}
		return c.Lending.Validate()
	},
	KindCropHealth:  requireTrend,
	KindYield:       requireTrend,
	KindMarketPrice: requireTrend,
	KindWeatherRisk: requireTrend,
	KindClaims: func(c *Config) error {
		if c.Eligibility == nil || c.Claims == nil {
			return domain.NewInputError(c.Key, "claims domains need eligibility and claims sections")
		}
		return c.Claims.Validate()
	},
}

func requireTrend(c *Config) error {
	if c.Trend == nil || c.Series == "" {
		return domain.NewInputError(c.Key, "%s domains need a series and trend settings", c.Kind)
	}
	return nil
}

// Validate checks the whole configuration; any failure is an InputError
func (c *Config) Validate() error {
	if c.Key == "" {
		return domain.NewInputError("key", "domain key is empty")
	}
	requirements, ok := kindRequirements[c.Kind]
	if !ok {
		return domain.NewInputError(c.Key, "unknown domain kind %q", c.Kind)
	}
	if c.ValidityDays <= 0 {
		return domain.NewInputError(c.Key, "validity_days must be positive")
	}
	if err := c.Scoring().Validate(); err != nil {
		return err
	}
	if err := requirements(c); err != nil {
		return err
	}
	if c.Trend != nil {
		if err := c.Trend.Validate(); err != nil {
			return err
		}
	}
	if c.Eligibility != nil && (c.Eligibility.MinimumScore < 0 || c.Eligibility.MinimumScore > c.Scoring().DomainMax) {
		return domain.NewInputError(c.Key, "eligibility minimum must be within [0, domain_max]")
	}
	for _, f := range c.Flags {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	return c.validateReferences()
}

// validateReferences checks that rules only name declared factors and flags
func (c *Config) validateReferences() error {
	factors := make(map[string]bool)
	for _, cat := range c.Categories {
		for _, f := range cat.Factors {
			factors[f.Name] = true
		}
	}
	flags := make(map[string]bool, len(c.Flags))
	for _, f := range c.Flags {
		flags[f.Name] = true
	}

	for _, r := range c.Rules {
		for _, cond := range r.When {
			switch {
			case strings.HasPrefix(cond.Field, "factor.") && !factors[strings.TrimPrefix(cond.Field, "factor.")]:
				return domain.NewInputError(c.Key, "rule %q references unknown factor %q", r.TriggeredBy(), cond.Field)
			case strings.HasPrefix(cond.Field, "flag.") && !flags[strings.TrimPrefix(cond.Field, "flag.")]:
				return domain.NewInputError(c.Key, "rule %q references unknown flag %q", r.TriggeredBy(), cond.Field)
			}
		}
	}
	return nil
}
