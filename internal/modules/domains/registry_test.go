package domains

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
)

func TestLoadDefault_BuiltInDomains(t *testing.T) {
	reg, err := LoadDefault("")
	require.NoError(t, err)

	assert.Equal(t, []string{"claims", "credit", "crop_health", "market_price", "weather_risk", "yield"}, reg.Keys())

	for _, c := range reg.All() {
		assert.NoError(t, c.Validate(), c.Key)
		assert.Greater(t, c.TTL(), time.Duration(0), c.Key)
	}

	credit, err := reg.Get("credit")
	require.NoError(t, err)
	assert.True(t, credit.Gated())
	assert.False(t, credit.HasTrend())
	assert.Equal(t, 90*24*time.Hour, credit.TTL())
	assert.Equal(t, "Credit score too low", credit.Eligibility.Reason)
	assert.Equal(t, 30.0, credit.Eligibility.MinimumScore)
	assert.Equal(t, map[string]float64{"personal": 20, "financial": 30, "agricultural": 30, "behavioral": 20}, credit.Categories.Maxima())

	market, err := reg.Get("market_price")
	require.NoError(t, err)
	assert.True(t, market.HasTrend())
	assert.Equal(t, 7*24*time.Hour, market.TTL())
}

func TestRegistry_UnsupportedDomain(t *testing.T) {
	reg, err := LoadDefault("")
	require.NoError(t, err)

	_, err = reg.Get("forestry")
	assert.True(t, errors.Is(err, domain.ErrInput))

	_, err = reg.FirstOfKind(KindCredit)
	assert.NoError(t, err)
}

func TestCreditConfig_ScoresBalancedFarmer(t *testing.T) {
	reg, err := LoadDefault("")
	require.NoError(t, err)
	credit, err := reg.Get("credit")
	require.NoError(t, err)

	snapshot := domain.Snapshot{
		"age":                 30,
		"farming_experience":  11,
		"annual_income":       450000,
		"existing_debt_ratio": 0.2,
		"land_size_acres":     5,
		"irrigation":          "borewell",
		"repayment_history":   "good",
		"cooperative_member":  true,
		"years_with_bank":     2.5,
	}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	score, err := scoring.ScoreEntity("farmer-7", snapshot, credit.Scoring(), now)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"personal": 18, "financial": 25, "agricultural": 20, "behavioral": 15}, score.Breakdown)
	assert.Equal(t, 78.0, score.TotalScore)
	assert.Equal(t, "good", score.Rating)
	assert.Equal(t, now.Add(90*24*time.Hour), score.ValidUntil)
}

func TestLendingAndClaimsPolicies(t *testing.T) {
	reg, err := LoadDefault("")
	require.NoError(t, err)

	credit, _ := reg.Get("credit")
	policy, err := credit.LendingPolicy()
	require.NoError(t, err)
	assert.Equal(t, "annual_income", policy.Params.IncomeAttribute)
	assert.Equal(t, 8.5, policy.Params.RateFor("good"))

	claimsCfg, _ := reg.Get("claims")
	cp, err := claimsCfg.ClaimsPolicy()
	require.NoError(t, err)
	assert.Equal(t, 70.0, cp.Params.ApproveAtOrAbove)

	_, err = claimsCfg.LendingPolicy()
	assert.True(t, errors.Is(err, domain.ErrInput))
}

const overrideYAML = `
key: market_price
kind: market_price
name: Regional price override
domain_max: 100
validity_days: 3
series: modal_price
categories:
  - name: price
    max: 100
    factors:
      - name: ratio
        attribute: price_to_msp_ratio
        kind: scale
        scale:
          - {at: 0, score: 0}
          - {at: 2, score: 100}
thresholds:
  - {label: up, min: 50}
  - {label: down, min: 0}
trend:
  stable_slope: 1
  moderate_slope: 2
  confidence_ceiling: 92
rules: []
`

func TestLoadDefault_OverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "market.yaml"), []byte(overrideYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg, err := LoadDefault(dir)
	require.NoError(t, err)

	market, err := reg.Get("market_price")
	require.NoError(t, err)
	assert.Equal(t, "Regional price override", market.Name)
	assert.Equal(t, 3, market.ValidityDays)
	assert.Len(t, reg.Keys(), 6)
}

func TestParse_RejectsMalformedConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown field", yaml: strings.Replace(overrideYAML, "validity_days: 3", "validity_days: 3\nweights: {}", 1)},
		{name: "threshold gap", yaml: strings.Replace(overrideYAML, "{label: down, min: 0}", "{label: down, min: 10}", 1)},
		{name: "unknown kind", yaml: strings.Replace(overrideYAML, "kind: market_price", "kind: forestry", 1)},
		{name: "missing trend", yaml: strings.Replace(overrideYAML, "series: modal_price", "", 1)},
		{name: "zero validity", yaml: strings.Replace(overrideYAML, "validity_days: 3", "validity_days: 0", 1)},
		{name: "unknown flag reference", yaml: strings.Replace(overrideYAML, "rules: []",
			"rules:\n  - {type: t, severity: low, message: m, when: [{field: flag.hail, op: eq, value: true}]}", 1)},
		{name: "unknown factor reference", yaml: strings.Replace(overrideYAML, "rules: []",
			"rules:\n  - {type: t, severity: low, message: m, when: [{field: factor.grade, op: gt, value: 1}]}", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(strings.NewReader(tt.yaml))
			if err == nil {
				err = c.Validate()
			}
			assert.True(t, errors.Is(err, domain.ErrInput), "got %v", err)
		})
	}

	_, err := Parse(strings.NewReader(""))
	assert.True(t, errors.Is(err, domain.ErrInput))
}

func TestNewRegistry_DuplicateKey(t *testing.T) {
	a, err := Parse(strings.NewReader(overrideYAML))
	require.NoError(t, err)
	b, err := Parse(strings.NewReader(overrideYAML))
	require.NoError(t, err)

	_, err = NewRegistry(a, b)
	assert.True(t, errors.Is(err, domain.ErrInput))
}
