package recommendations

import (
	"fmt"
	"strings"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
)

// Operators accepted in rule conditions
const (
	OpEq    = "eq"
	OpNe    = "ne"
	OpLt    = "lt"
	OpLte   = "lte"
	OpGt    = "gt"
	OpGte   = "gte"
	OpIn    = "in"
	OpNotIn = "not_in"
)

var opAliases = map[string]string{
	"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLte, ">": OpGt, ">=": OpGte,
}

// Plain input fields; factor., raw. and flag. are prefixes
var plainFields = map[string]bool{
	"score":               true,
	"rating":              true,
	"direction":           true,
	"change_percent":      true,
	"volatility":          true,
	"average":             true,
	"min":                 true,
	"max":                 true,
	"moving_average":      true,
	"forecast_delta":      true,
	"forecast_confidence": true,
}

var fieldPrefixes = []string{"factor.", "raw.", "flag."}

// Condition is one `field op value` test
type Condition struct {
	Value interface{} `yaml:"value" json:"value"`
	Field string      `yaml:"field" json:"field"`
	Op    string      `yaml:"op" json:"op"`
}

func (c Condition) operator() string {
	if alias, ok := opAliases[c.Op]; ok {
		return alias
	}
	return c.Op
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Validate checks field, operator and value shape
func (c Condition) Validate() error {
	if !knownField(c.Field) {
		return domain.NewInputError("rules.when", "unknown field %q", c.Field)
	}
	switch c.operator() {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		if c.Value == nil {
			return domain.NewInputError("rules.when", "condition on %q has no value", c.Field)
		}
	case OpIn, OpNotIn:
		if _, ok := c.Value.([]interface{}); !ok {
			return domain.NewInputError("rules.when", "operator %q on %q needs a list value", c.Op, c.Field)
		}
	default:
		return domain.NewInputError("rules.when", "unknown operator %q", c.Op)
	}
	return nil
}

func knownField(field string) bool {
	if plainFields[field] {
		return true
	}
	for _, p := range fieldPrefixes {
		if strings.HasPrefix(field, p) && len(field) > len(p) {
			return true
		}
	}
	return false
}

// Holds reports whether the condition is satisfied by inputs.
// An unavailable input or incomparable types make it false.
func (c Condition) Holds(in Inputs) bool {
	actual, ok := in.lookup(c.Field)
	if !ok {
		return false
	}

	switch c.operator() {
	case OpIn:
		return contains(c.Value, actual)
	case OpNotIn:
		return !contains(c.Value, actual)
	case OpEq:
		return equal(actual, c.Value)
	case OpNe:
		return !equal(actual, c.Value)
	}

	a, aok := number(actual)
	b, bok := number(c.Value)
	if !aok || !bok {
		return false
	}
	switch c.operator() {
	case OpLt:
		return a < b
	case OpLte:
		return a <= b
	case OpGt:
		return a > b
	case OpGte:
		return a >= b
	}
	return false
}

func contains(list interface{}, actual interface{}) bool {
	items, ok := list.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if equal(actual, item) {
			return true
		}
	}
	return false
}

func equal(a, b interface{}) bool {
	if an, ok := number(a); ok {
		if bn, ok := number(b); ok {
			return an == bn
		}
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && strings.EqualFold(av, bv)
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func number(v interface{}) (float64, bool) {
	switch v.(type) {
	case string, bool, nil:
		return 0, false
	}
	f, err := scoring.NumericValue(v, "")
	if err != nil {
		return 0, false
	}
	return f, true
}
