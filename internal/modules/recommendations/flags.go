package recommendations

import (
	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
)

// FlagRule derives a boolean flag from a numeric attribute.
// The flag is set when the value is below Below or above Above.
type FlagRule struct {
	Below     *float64 `yaml:"below,omitempty" json:"below,omitempty"`
	Above     *float64 `yaml:"above,omitempty" json:"above,omitempty"`
	Name      string   `yaml:"name" json:"name"`
	Attribute string   `yaml:"attribute" json:"attribute"`
}

// Validate checks that the flag has a name, an attribute and at least one bound
func (f FlagRule) Validate() error {
	if f.Name == "" || f.Attribute == "" {
		return domain.NewInputError("flags", "flag name and attribute are required")
	}
	if f.Below == nil && f.Above == nil {
		return domain.NewInputError("flags."+f.Name, "needs below and/or above")
	}
	if f.Below != nil && f.Above != nil && *f.Below > *f.Above {
		return domain.NewInputError("flags."+f.Name, "below %v is greater than above %v", *f.Below, *f.Above)
	}
	return nil
}

// DeriveFlags evaluates flag rules against a snapshot. Flags whose attribute is
// missing are left out so rules testing them do not fire.
func DeriveFlags(snapshot domain.Snapshot, rules []FlagRule) (map[string]bool, error) {
	flags := make(map[string]bool, len(rules))
	for _, r := range rules {
		raw, ok := snapshot[r.Attribute]
		if !ok || raw == nil {
			continue
		}
		v, err := scoring.NumericValue(raw, "")
		if err != nil {
			return nil, err
		}
		flags[r.Name] = (r.Below != nil && v < *r.Below) || (r.Above != nil && v > *r.Above)
	}
	return flags, nil
}
