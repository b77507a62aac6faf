package trends

import "github.com/agrisentinel/agrisentinel/internal/domain"

// Direction thresholds, in percent change over the window
const (
	RisingThreshold  = 5.0
	FallingThreshold = -5.0
)

// Confidence heuristic constants
const (
	BaseConfidence       = 50.0
	LargeSampleSize      = 30
	LargeSampleBonus     = 20.0
	MediumSampleSize     = 15
	MediumSampleBonus    = 10.0
	StableSlopeBonus     = 15.0
	DefaultModerateBonus = 5.0
	MovingAverageLength  = 7
)

// MaxHorizonDays bounds forecast length
const MaxHorizonDays = 365

// Settings holds the domain-specific trend/forecast parameters
type Settings struct {
	// StableSlope is the |slope| below which a series counts as stable
	StableSlope float64 `yaml:"stable_slope" json:"stable_slope"`
	// ModerateSlope is the |slope| below which a series counts as moderately stable
	ModerateSlope float64 `yaml:"moderate_slope" json:"moderate_slope"`
	ModerateBonus float64 `yaml:"moderate_bonus" json:"moderate_bonus"`
	// Ceiling caps the confidence (90-95 for the built-in domains)
	Ceiling     float64 `yaml:"confidence_ceiling" json:"confidence_ceiling"`
	WindowDays  int     `yaml:"window_days" json:"window_days"`
	HorizonDays int     `yaml:"horizon_days" json:"horizon_days"`
}

// DefaultSettings returns the market-price defaults
func DefaultSettings() Settings {
	return Settings{
		StableSlope:   0.5,
		ModerateSlope: 2.0,
		ModerateBonus: DefaultModerateBonus,
		Ceiling:       95,
		WindowDays:    30,
		HorizonDays:   7,
	}
}

// Validate checks the slope bands and ceiling
func (s Settings) Validate() error {
	if s.StableSlope < 0 || s.ModerateSlope < s.StableSlope {
		return domain.NewInputError("trend", "slope bands must satisfy 0 <= stable_slope <= moderate_slope")
	}
	if s.ModerateBonus < 0 || s.ModerateBonus > StableSlopeBonus {
		return domain.NewInputError("trend", "moderate_bonus must be within [0, %v]", StableSlopeBonus)
	}
	if s.Ceiling <= 0 || s.Ceiling > 100 {
		return domain.NewInputError("trend", "confidence_ceiling must be within (0, 100]")
	}
	if s.WindowDays < 0 || s.HorizonDays < 0 {
		return domain.NewInputError("trend", "window and horizon must not be negative")
	}
	if s.HorizonDays > MaxHorizonDays {
		return domain.NewInputError("trend", "horizon_days must not exceed %d", MaxHorizonDays)
	}
	return nil
}
