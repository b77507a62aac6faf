package scoring

// Scoring Constants - bounds and unit conversions shared by every domain

const (
	// DefaultDomainMax is the overall score ceiling when a domain does not set one
	DefaultDomainMax = 100.0

	// Duration unit conversions (days per unit)
	DaysPerMonth = 30.0
	DaysPerYear  = 365.0

	// HoursPerDay converts a time.Duration into days
	HoursPerDay = 24.0
)

// RuleKind selects how a raw attribute is mapped onto a sub-score
type RuleKind string

const (
	// RuleScale interpolates linearly between ordered (at, score) points
	RuleScale RuleKind = "scale"
	// RuleBuckets picks the score of the highest bucket whose lower bound is <= value
	RuleBuckets RuleKind = "buckets"
	// RuleEnum looks the value up in a level table
	RuleEnum RuleKind = "enum"
	// RuleBoolean scores true/false attributes
	RuleBoolean RuleKind = "boolean"
)

// Duration units accepted by numeric rules
const (
	UnitDays   = "days"
	UnitMonths = "months"
	UnitYears  = "years"
)
