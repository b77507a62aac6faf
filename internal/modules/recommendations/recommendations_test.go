package recommendations

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func cropRules() RuleTable {
	return RuleTable{
		{
			Name: "low_health", Type: "crop_health", Severity: domain.SeverityHigh,
			Message: "Crop health score {score} is {rating}", Action: "Schedule a field inspection",
			When: []Condition{{Field: "score", Op: "<", Value: 50}},
		},
		{
			Name: "soil_ph", Type: "soil", Severity: domain.SeverityMedium,
			Message: "Soil pH outside the optimal range", Action: "Apply lime or sulfur amendment",
			When: []Condition{{Field: "flag.soil_ph_out_of_range", Op: "eq", Value: true}},
		},
		{
			Name: "ndvi_falling", Type: "vegetation", Severity: domain.SeverityMedium,
			Message: "Vegetation index is {direction} ({change_percent}%)", Action: "Check irrigation",
			When: []Condition{
				{Field: "direction", Op: "eq", Value: "falling"},
				{Field: "change_percent", Op: "lt", Value: -10},
			},
		},
		{
			Name: "pest_pressure", Type: "pest", Severity: domain.SeverityLow,
			Message: "Pest pressure reported", Action: "Monitor traps",
			When: []Condition{{Field: "raw.pest_level", Op: "in", Value: []interface{}{"medium", "high"}}},
		},
	}
}

func TestRecommend_MultipleRulesFireInDefinitionOrder(t *testing.T) {
	flags, err := DeriveFlags(domain.Snapshot{"soil_ph": 8.1}, []FlagRule{
		{Name: "soil_ph_out_of_range", Attribute: "soil_ph", Below: ptr(5.5), Above: ptr(7.5)},
	})
	require.NoError(t, err)

	in := Inputs{
		Score:    &domain.CompositeScore{TotalScore: 42, Rating: "poor"},
		Trend:    &domain.TrendAnalysis{Direction: domain.DirectionFalling, ChangePercent: -18, Points: 10},
		Snapshot: domain.Snapshot{"pest_level": "High"},
		Flags:    flags,
	}

	got := Recommend(in, cropRules())
	want := []domain.Recommendation{
		{Type: "crop_health", Severity: domain.SeverityHigh, Message: "Crop health score 42.0 is poor", Action: "Schedule a field inspection", TriggeredBy: "low_health"},
		{Type: "soil", Severity: domain.SeverityMedium, Message: "Soil pH outside the optimal range", Action: "Apply lime or sulfur amendment", TriggeredBy: "soil_ph"},
		{Type: "vegetation", Severity: domain.SeverityMedium, Message: "Vegetation index is falling (-18.0%)", Action: "Check irrigation", TriggeredBy: "ndvi_falling"},
		{Type: "pest", Severity: domain.SeverityLow, Message: "Pest pressure reported", Action: "Monitor traps", TriggeredBy: "pest_pressure"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recommend() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	in := Inputs{
		Score:    &domain.CompositeScore{TotalScore: 30, Rating: "poor"},
		Trend:    &domain.TrendAnalysis{Direction: domain.DirectionFalling, ChangePercent: -25, Points: 4},
		Snapshot: domain.Snapshot{"pest_level": "medium"},
		Flags:    map[string]bool{"soil_ph_out_of_range": true},
	}

	first := Recommend(in, cropRules())
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Recommend(in, cropRules())); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestRecommend_UnavailableInputsDoNotFire(t *testing.T) {
	got := Recommend(Inputs{}, cropRules())
	assert.NotNil(t, got)
	assert.Empty(t, got)

	// insufficient_data has no change_percent
	in := Inputs{Trend: &domain.TrendAnalysis{Direction: domain.DirectionInsufficientData}}
	rules := RuleTable{{Type: "t", Severity: domain.SeverityLow, Message: "m",
		When: []Condition{{Field: "change_percent", Op: "lte", Value: 0}}}}
	assert.Empty(t, Recommend(in, rules))
}

func TestRecommend_UnconditionalRule(t *testing.T) {
	rules := RuleTable{{Type: "advisory", Severity: domain.SeverityLow, Message: "Always review weather bulletins"}}
	got := Recommend(Inputs{}, rules)
	require.Len(t, got, 1)
	assert.Equal(t, "advisory", got[0].TriggeredBy)
}

func TestCondition_Holds(t *testing.T) {
	in := Inputs{
		Score: &domain.CompositeScore{TotalScore: 70, Rating: "good", Factors: []domain.ScoreFactor{
			{Name: "rainfall", NormalizedScore: 4},
		}},
		ForecastDelta: ptr(-3),
		Forecast:      &domain.Forecast{PredictedValues: []float64{1}, Confidence: 75},
		Snapshot:      domain.Snapshot{"crop": "wheat", "insured": true, "area": 12},
	}

	tests := []struct {
		cond Condition
		want bool
	}{
		{Condition{Field: "score", Op: "gte", Value: 70}, true},
		{Condition{Field: "score", Op: ">", Value: 70}, false},
		{Condition{Field: "rating", Op: "eq", Value: "GOOD"}, true},
		{Condition{Field: "rating", Op: "not_in", Value: []interface{}{"poor", "very_poor"}}, true},
		{Condition{Field: "rating", Op: "lt", Value: 3}, false},
		{Condition{Field: "factor.rainfall", Op: "<=", Value: 5}, true},
		{Condition{Field: "factor.unknown", Op: "<=", Value: 5}, false},
		{Condition{Field: "forecast_delta", Op: "lt", Value: 0}, true},
		{Condition{Field: "forecast_confidence", Op: "gte", Value: 75}, true},
		{Condition{Field: "raw.crop", Op: "ne", Value: "rice"}, true},
		{Condition{Field: "raw.insured", Op: "eq", Value: true}, true},
		{Condition{Field: "raw.area", Op: "gt", Value: 10.5}, true},
		{Condition{Field: "raw.missing", Op: "ne", Value: 1}, false},
		{Condition{Field: "direction", Op: "eq", Value: "rising"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.cond.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Holds(in))
		})
	}
}

func TestRuleTable_Validate(t *testing.T) {
	assert.NoError(t, cropRules().Validate())

	tests := []struct {
		name string
		rule Rule
	}{
		{name: "unknown field", rule: Rule{Type: "t", Severity: domain.SeverityLow, Message: "m", When: []Condition{{Field: "humidity", Op: "gt", Value: 1}}}},
		{name: "unknown op", rule: Rule{Type: "t", Severity: domain.SeverityLow, Message: "m", When: []Condition{{Field: "score", Op: "approx", Value: 1}}}},
		{name: "in without list", rule: Rule{Type: "t", Severity: domain.SeverityLow, Message: "m", When: []Condition{{Field: "rating", Op: "in", Value: "good"}}}},
		{name: "bad severity", rule: Rule{Type: "t", Severity: "urgent", Message: "m"}},
		{name: "no message", rule: Rule{Type: "t", Severity: domain.SeverityLow}},
		{name: "empty prefix", rule: Rule{Type: "t", Severity: domain.SeverityLow, Message: "m", When: []Condition{{Field: "flag.", Op: "eq", Value: true}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RuleTable{tt.rule}.Validate()
			assert.True(t, errors.Is(err, domain.ErrInput), "got %v", err)
		})
	}

	dup := RuleTable{cropRules()[0], cropRules()[0]}
	assert.True(t, errors.Is(dup.Validate(), domain.ErrInput))
}

func TestDeriveFlags(t *testing.T) {
	rules := []FlagRule{
		{Name: "soil_ph_out_of_range", Attribute: "soil_ph", Below: ptr(5.5), Above: ptr(7.5)},
		{Name: "drought", Attribute: "rainfall_mm", Below: ptr(20)},
	}

	tests := []struct {
		name     string
		snapshot domain.Snapshot
		want     map[string]bool
	}{
		{name: "in range", snapshot: domain.Snapshot{"soil_ph": 6.5, "rainfall_mm": 40}, want: map[string]bool{"soil_ph_out_of_range": false, "drought": false}},
		{name: "acidic", snapshot: domain.Snapshot{"soil_ph": 5.2}, want: map[string]bool{"soil_ph_out_of_range": true}},
		{name: "alkaline dry", snapshot: domain.Snapshot{"soil_ph": 7.6, "rainfall_mm": 3}, want: map[string]bool{"soil_ph_out_of_range": true, "drought": true}},
		{name: "edges", snapshot: domain.Snapshot{"soil_ph": 7.5}, want: map[string]bool{"soil_ph_out_of_range": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveFlags(tt.snapshot, rules)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DeriveFlags(domain.Snapshot{"soil_ph": "acidic"}, rules)
	assert.True(t, errors.Is(err, domain.ErrInput))

	assert.Error(t, FlagRule{Name: "x", Attribute: "y"}.Validate())
	assert.Error(t, FlagRule{Name: "x", Attribute: "y", Below: ptr(9), Above: ptr(1)}.Validate())
}

func TestCheckEligibility(t *testing.T) {
	gate := Gate{MinimumScore: 30, Reason: "Credit score too low"}

	d := gate.Check(25)
	assert.False(t, d.Eligible)
	assert.Equal(t, "Credit score too low", d.Reason)
	assert.Equal(t, 30.0, d.MinimumThreshold)

	d = gate.Check(30)
	assert.True(t, d.Eligible)

	d = CheckEligibility(10, 20)
	assert.False(t, d.Eligible)
	assert.Equal(t, DefaultRejectionReason, d.Reason)

	d = CheckEligibility(25, 30)
	assert.False(t, d.Eligible)
	assert.Equal(t, "Credit score too low", d.Reason)
	assert.Equal(t, 30.0, d.MinimumThreshold)

	d = Gate{MinimumScore: 30}.Check(25)
	assert.Equal(t, DefaultRejectionReason, d.Reason)
}

func TestDecide_RejectionShortCircuits(t *testing.T) {
	gate := &Gate{MinimumScore: 30, Reason: "Credit score too low"}
	rules := RuleTable{{Type: "credit", Severity: domain.SeverityLow, Message: "Always fires"}}

	out := Decide(gate, Inputs{Score: &domain.CompositeScore{TotalScore: 25}}, rules)
	require.NotNil(t, out.Eligibility)
	assert.True(t, out.Rejected())
	assert.Equal(t, "Credit score too low", out.Eligibility.Reason)
	assert.Nil(t, out.Recommendations)

	out = Decide(gate, Inputs{Score: &domain.CompositeScore{TotalScore: 55}}, rules)
	assert.False(t, out.Rejected())
	assert.Len(t, out.Recommendations, 1)

	out = Decide(nil, Inputs{}, rules)
	assert.Nil(t, out.Eligibility)
	assert.Len(t, out.Recommendations, 1)
}
