package scoring

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

func creditThresholds() Thresholds {
	return Thresholds{
		{Label: "excellent", LowerBound: 80},
		{Label: "good", LowerBound: 65},
		{Label: "fair", LowerBound: 50},
		{Label: "poor", LowerBound: 30},
		{Label: "very_poor", LowerBound: 0},
	}
}

func creditTable() RuleTable {
	return RuleTable{
		{Name: "personal", Max: 20, Factors: []FactorRule{
			{Name: "age", Attribute: "age", Kind: RuleBuckets, Buckets: []Bucket{{Min: 18, Score: 4}, {Min: 25, Score: 8}, {Min: 35, Score: 10}, {Min: 60, Score: 6}}},
			{Name: "farming_experience", Attribute: "farming_experience", Kind: RuleScale, Unit: UnitYears, Scale: []ScalePoint{{At: 0, Score: 0}, {At: 10, Score: 10}}},
		}},
		{Name: "financial", Max: 30, Factors: []FactorRule{
			{Name: "annual_income", Attribute: "annual_income", Kind: RuleScale, Scale: []ScalePoint{{At: 0, Score: 0}, {At: 100000, Score: 10}, {At: 500000, Score: 20}}},
			{Name: "existing_loans", Attribute: "has_existing_loans", Kind: RuleBoolean, TrueScore: 0, FalseScore: 10},
		}},
		{Name: "agricultural", Max: 30, Factors: []FactorRule{
			{Name: "land_size", Attribute: "land_size", Kind: RuleBuckets, Buckets: []Bucket{{Min: 0, Score: 2}, {Min: 1, Score: 5}, {Min: 5, Score: 10}, {Min: 10, Score: 15}}},
			{Name: "irrigation", Attribute: "irrigation", Kind: RuleEnum, Levels: map[string]float64{"drip": 15, "canal": 10, "rainfed": 5}, Default: 0},
		}},
		{Name: "behavioral", Max: 20, Factors: []FactorRule{
			{Name: "repayment_history", Attribute: "repayment_history", Kind: RuleEnum, Levels: map[string]float64{"excellent": 20, "good": 15, "poor": 5}, Default: 0},
		}},
	}
}

func creditConfig() Config {
	return Config{
		Domain:     "credit",
		Categories: creditTable(),
		Thresholds: creditThresholds(),
		DomainMax:  100,
		TTL:        90 * 24 * time.Hour,
	}
}

func TestScoreEntity_CreditScenario(t *testing.T) {
	// personal 10+8=18, financial 15+10=25, agricultural 10+10=20, behavioral 15
	snapshot := domain.Snapshot{
		"age":                40,
		"farming_experience": 8.0,
		"annual_income":      300000.0,
		"has_existing_loans": false,
		"land_size":          7.5,
		"irrigation":         "Canal",
		"repayment_history":  "good",
	}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	score, err := ScoreEntity("farmer-1", snapshot, creditConfig(), now)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"personal":     18,
		"financial":    25,
		"agricultural": 20,
		"behavioral":   15,
	}, score.Breakdown)
	assert.Equal(t, 78.0, score.TotalScore)
	assert.Equal(t, "good", score.Rating)
	assert.Equal(t, "farmer-1", score.EntityID)
	assert.Equal(t, "credit", score.Domain)
	assert.Equal(t, now, score.ComputedAt)
	assert.True(t, score.ValidUntil.After(score.ComputedAt))
	assert.Len(t, score.Factors, 7)
}

func TestExtract_MissingAttributeUsesDefault(t *testing.T) {
	table := RuleTable{{Name: "soil", Max: 50, Factors: []FactorRule{
		{Name: "ph", Attribute: "soil_ph", Kind: RuleScale, Default: 7, Scale: []ScalePoint{{At: 4, Score: 0}, {At: 6.5, Score: 25}, {At: 9, Score: 0}}},
		{Name: "organic", Attribute: "organic_matter", Kind: RuleBuckets, Buckets: []Bucket{{Min: 0, Score: 5}}},
	}}}

	factors, err := Extract(domain.Snapshot{"organic_matter": nil}, table)
	require.NoError(t, err)
	require.Len(t, factors, 2)
	assert.Equal(t, 7.0, factors[0].NormalizedScore)
	assert.Nil(t, factors[0].RawValue)
	assert.Equal(t, 0.0, factors[1].NormalizedScore)
	assert.Equal(t, 50.0, factors[1].CategoryMax)
}

func TestExtract_ClampsOutOfRange(t *testing.T) {
	rule := FactorRule{Name: "rain", Attribute: "rain", Kind: RuleScale, Scale: []ScalePoint{{At: 0, Score: 0}, {At: 100, Score: 10}}}
	buckets := FactorRule{Name: "temp", Attribute: "temp", Kind: RuleBuckets, Buckets: []Bucket{{Min: 10, Score: 3}, {Min: 20, Score: 8}}}
	table := RuleTable{{Name: "weather", Max: 20, Factors: []FactorRule{rule, buckets}}}

	tests := []struct {
		name     string
		rain     float64
		temp     float64
		wantRain float64
		wantTemp float64
	}{
		{name: "below range", rain: -50, temp: -5, wantRain: 0, wantTemp: 3},
		{name: "above range", rain: 5000, temp: 45, wantRain: 10, wantTemp: 8},
		{name: "interpolated", rain: 25, temp: 15, wantRain: 2.5, wantTemp: 3},
		{name: "exact edge", rain: 100, temp: 20, wantRain: 10, wantTemp: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factors, err := Extract(domain.Snapshot{"rain": tt.rain, "temp": tt.temp}, table)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantRain, factors[0].NormalizedScore, 1e-9)
			assert.InDelta(t, tt.wantTemp, factors[1].NormalizedScore, 1e-9)
		})
	}
}

func TestExtract_Durations(t *testing.T) {
	rule := FactorRule{Name: "tenure", Attribute: "tenure", Kind: RuleScale, Unit: UnitMonths, Scale: []ScalePoint{{At: 0, Score: 0}, {At: 12, Score: 12}}}
	table := RuleTable{{Name: "behavioral", Max: 20, Factors: []FactorRule{rule}}}

	tests := []struct {
		name string
		raw  interface{}
		want float64
	}{
		{name: "numeric in unit", raw: 6, want: 6},
		{name: "time.Duration", raw: 90 * 24 * time.Hour, want: 3},
		{name: "duration string", raw: "1440h", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factors, err := Extract(domain.Snapshot{"tenure": tt.raw}, table)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, factors[0].NormalizedScore, 1e-9)
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	table := RuleTable{{Name: "c", Max: 10, Factors: []FactorRule{
		{Name: "n", Attribute: "n", Kind: RuleScale, Scale: []ScalePoint{{At: 0, Score: 0}, {At: 1, Score: 1}}},
		{Name: "b", Attribute: "b", Kind: RuleBoolean, TrueScore: 1},
		{Name: "e", Attribute: "e", Kind: RuleEnum, Levels: map[string]float64{"x": 1}},
	}}}

	_, err := Extract(domain.Snapshot{"n": "not-a-number"}, table)
	assert.True(t, errors.Is(err, domain.ErrInput))

	_, err = Extract(domain.Snapshot{"b": 3.5}, table)
	assert.True(t, errors.Is(err, domain.ErrInput))

	_, err = Extract(domain.Snapshot{"e": 42}, table)
	assert.True(t, errors.Is(err, domain.ErrInput))

	_, err = Extract(domain.Snapshot{"n": math.NaN()}, table)
	assert.True(t, errors.Is(err, domain.ErrComputation))

	factors, err := Extract(domain.Snapshot{"e": "unknown-level", "b": "true"}, table)
	require.NoError(t, err)
	assert.Equal(t, 1.0, factors[1].NormalizedScore)
	assert.Equal(t, 0.0, factors[2].NormalizedScore)
}

func TestScore_ClampsCategoriesIndependently(t *testing.T) {
	maxima := map[string]float64{"a": 10, "b": 10}
	factors := []domain.ScoreFactor{
		{Name: "a1", Category: "a", NormalizedScore: 8},
		{Name: "a2", Category: "a", NormalizedScore: 8},
		{Name: "b1", Category: "b", NormalizedScore: 2},
	}

	agg, err := Score(factors, maxima, 100)
	require.NoError(t, err)
	assert.Equal(t, 10.0, agg.Breakdown["a"])
	assert.Equal(t, 2.0, agg.Breakdown["b"])
	assert.Equal(t, 12.0, agg.TotalScore)
}

func TestScore_TotalClampedToDomainMax(t *testing.T) {
	maxima := map[string]float64{"a": 80, "b": 80}
	factors := []domain.ScoreFactor{
		{Name: "a1", Category: "a", NormalizedScore: 80},
		{Name: "b1", Category: "b", NormalizedScore: 80},
		{Name: "neg", Category: "b", NormalizedScore: -200},
	}

	agg, err := Score(factors[:2], maxima, 100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, agg.TotalScore)

	agg, err = Score(factors, maxima, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, agg.Breakdown["b"])
	assert.Equal(t, 80.0, agg.TotalScore)
}

func TestScore_EmptyFactors(t *testing.T) {
	agg, err := Score(nil, map[string]float64{"a": 10, "b": 20}, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, agg.TotalScore)
	assert.Equal(t, map[string]float64{"a": 0, "b": 0}, agg.Breakdown)
}

func TestScore_Errors(t *testing.T) {
	_, err := Score([]domain.ScoreFactor{{Name: "x", Category: "missing", NormalizedScore: 1}}, map[string]float64{"a": 1}, 100)
	assert.True(t, errors.Is(err, domain.ErrInput))

	_, err = Score([]domain.ScoreFactor{{Name: "x", Category: "a", NormalizedScore: math.Inf(1)}}, map[string]float64{"a": 1}, 100)
	assert.True(t, errors.Is(err, domain.ErrComputation))

	_, err = Score(nil, map[string]float64{"a": 1}, 0)
	assert.True(t, errors.Is(err, domain.ErrInput))
}

func TestScore_RepeatableAcrossCalls(t *testing.T) {
	maxima := map[string]float64{}
	var factors []domain.ScoreFactor
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("c%02d", i)
		maxima[name] = 10
		factors = append(factors, domain.ScoreFactor{Name: name, Category: name, NormalizedScore: 0.1 + float64(i)*1e-3 + 1e-9})
	}

	first, err := Score(factors, maxima, 100)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Score(factors, maxima, 100)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScore_BoundedForArbitraryFactors(t *testing.T) {
	maxima := creditTable().Maxima()
	for seed := -50; seed <= 150; seed += 7 {
		factors := []domain.ScoreFactor{
			{Name: "p", Category: "personal", NormalizedScore: float64(seed)},
			{Name: "f", Category: "financial", NormalizedScore: float64(seed) * 1.5},
			{Name: "a", Category: "agricultural", NormalizedScore: float64(-seed)},
			{Name: "b", Category: "behavioral", NormalizedScore: float64(seed) / 3},
		}
		agg, err := Score(factors, maxima, 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, agg.TotalScore, 0.0)
		assert.LessOrEqual(t, agg.TotalScore, 100.0)
	}
}

func TestClassify(t *testing.T) {
	th := creditThresholds()

	tests := []struct {
		score float64
		want  string
	}{
		{score: 100, want: "excellent"},
		{score: 80, want: "excellent"},
		{score: 79.99, want: "good"},
		{score: 78, want: "good"},
		{score: 65, want: "good"},
		{score: 50, want: "fair"},
		{score: 30, want: "poor"},
		{score: 29.5, want: "very_poor"},
		{score: 0, want: "very_poor"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score, th), "score %v", tt.score)
	}
}

func TestClassify_TotalAndMonotonic(t *testing.T) {
	th := creditThresholds()
	prevRank := len(th)
	for s := 0.0; s <= 100.0; s += 0.25 {
		label := Classify(s, th)
		rank := th.Rank(label)
		require.NotEqual(t, -1, rank, "score %v produced unknown label", s)
		assert.LessOrEqual(t, rank, prevRank, "rating got worse at %v", s)
		prevRank = rank
	}
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name    string
		th      Thresholds
		wantErr bool
	}{
		{name: "valid", th: creditThresholds()},
		{name: "empty", th: Thresholds{}, wantErr: true},
		{name: "gap at bottom", th: Thresholds{{Label: "high", LowerBound: 50}, {Label: "low", LowerBound: 10}}, wantErr: true},
		{name: "ascending", th: Thresholds{{Label: "low", LowerBound: 0}, {Label: "high", LowerBound: 50}}, wantErr: true},
		{name: "above max", th: Thresholds{{Label: "high", LowerBound: 150}, {Label: "low", LowerBound: 0}}, wantErr: true},
		{name: "duplicate label", th: Thresholds{{Label: "x", LowerBound: 50}, {Label: "x", LowerBound: 0}}, wantErr: true},
		{name: "empty label", th: Thresholds{{Label: "", LowerBound: 0}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate(100)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRuleTable_Validate(t *testing.T) {
	assert.NoError(t, creditTable().Validate())

	bad := creditTable()
	bad[0].Factors[0].Buckets = []Bucket{{Min: 30, Score: 1}, {Min: 10, Score: 2}}
	assert.True(t, errors.Is(bad.Validate(), domain.ErrInput))

	bad = creditTable()
	bad[1].Factors[0].Kind = "sigmoid"
	assert.True(t, errors.Is(bad.Validate(), domain.ErrInput))

	bad = creditTable()
	bad[2].Name = "personal"
	assert.True(t, errors.Is(bad.Validate(), domain.ErrInput))

	bad = creditTable()
	bad[0].Factors[1].Unit = "fortnights"
	assert.True(t, errors.Is(bad.Validate(), domain.ErrInput))

	assert.NoError(t, creditConfig().Validate())
	cfg := creditConfig()
	cfg.TTL = 0
	assert.True(t, errors.Is(cfg.Validate(), domain.ErrInput))
}
