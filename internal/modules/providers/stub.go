package providers

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/claims"
	"github.com/agrisentinel/agrisentinel/internal/modules/domains"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
	"github.com/agrisentinel/agrisentinel/pkg/formulas"
)

// StubSeriesLength is the number of daily points a stand-in series carries
const StubSeriesLength = 30

// The stand-ins below replace weather, market, bureau and imagery sources that have
// no live integration. Every value derives from (seed, domain, entity) so repeated
// calls agree with each other and with the tests.

func entityRand(seed int64, parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}

// StubSnapshotProvider invents a plausible attribute snapshot for any configured domain
type StubSnapshotProvider struct {
	registry *domains.Registry
	seed     int64
}

// NewStubSnapshotProvider creates a snapshot stand-in
func NewStubSnapshotProvider(registry *domains.Registry, seed int64) *StubSnapshotProvider {
	return &StubSnapshotProvider{registry: registry, seed: seed}
}

// Snapshot implements domain.SnapshotProvider
func (p *StubSnapshotProvider) Snapshot(_ context.Context, domainKey, entityID string) (domain.Snapshot, error) {
	cfg, err := p.registry.Get(domainKey)
	if err != nil {
		return nil, err
	}
	rng := entityRand(p.seed, "snapshot", domainKey, entityID)

	snapshot := domain.Snapshot{}
	for _, c := range cfg.Categories {
		for _, f := range c.Factors {
			snapshot[f.Attribute] = stubValue(rng, f)
		}
	}
	for _, flag := range cfg.Flags {
		if _, ok := snapshot[flag.Attribute]; ok {
			continue
		}
		lo, hi := 0.0, 100.0
		if flag.Below != nil {
			lo = *flag.Below * 0.9
			hi = *flag.Below * 1.5
		}
		if flag.Above != nil {
			hi = *flag.Above * 1.1
			if flag.Below == nil {
				lo = *flag.Above * 0.5
			}
		}
		snapshot[flag.Attribute] = formulas.Round(lo+rng.Float64()*(hi-lo), 2)
	}
	return snapshot, nil
}

func stubValue(rng *rand.Rand, f scoring.FactorRule) interface{} {
	switch f.Kind {
	case scoring.RuleScale:
		lo, hi := f.Scale[0].At, f.Scale[len(f.Scale)-1].At
		return formulas.Round(lo+rng.Float64()*(hi-lo), 2)
	case scoring.RuleBuckets:
		lo := f.Buckets[0].Min
		hi := f.Buckets[len(f.Buckets)-1].Min
		hi += math.Max(hi-lo, 1) * 0.25
		return formulas.Round(lo+rng.Float64()*(hi-lo), 2)
	case scoring.RuleEnum:
		labels := make([]string, 0, len(f.Levels))
		for label := range f.Levels {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		return labels[rng.Intn(len(labels))]
	case scoring.RuleBoolean:
		return rng.Intn(2) == 1
	}
	return nil
}

// StubSeriesProvider invents a daily random walk ending today
type StubSeriesProvider struct {
	now  func() time.Time
	seed int64
}

// NewStubSeriesProvider creates a series stand-in
func NewStubSeriesProvider(seed int64) *StubSeriesProvider {
	return &StubSeriesProvider{seed: seed, now: time.Now}
}

// Series implements domain.SeriesProvider
func (p *StubSeriesProvider) Series(_ context.Context, domainKey, entityID string) ([]domain.TimeSeriesPoint, error) {
	rng := entityRand(p.seed, "series", domainKey, entityID)
	end := p.now().UTC().Truncate(24 * time.Hour)

	value := 50 + rng.Float64()*100
	drift := (rng.Float64() - 0.5) * 2
	points := make([]domain.TimeSeriesPoint, StubSeriesLength)
	for i := range points {
		points[i] = domain.TimeSeriesPoint{
			Timestamp: end.AddDate(0, 0, i-StubSeriesLength+1),
			Value:     formulas.Round(value, 2),
		}
		value = math.Max(0.01, value+drift+rng.NormFloat64()*value*0.02)
	}
	return points, nil
}

// RandomDamageAssessor stands in for the automated (e.g. imagery-based) damage assessment.
// It returns a score in [0, 100] that is stable per claim.
type RandomDamageAssessor struct {
	seed int64
}

// NewRandomDamageAssessor creates the assessment stand-in
func NewRandomDamageAssessor(seed int64) *RandomDamageAssessor {
	return &RandomDamageAssessor{seed: seed}
}

// Assess implements claims.DamageAssessor
func (a *RandomDamageAssessor) Assess(_ context.Context, claim *claims.Claim) (float64, error) {
	rng := entityRand(a.seed, "assessment", claim.ID)
	return formulas.Round(rng.Float64()*100, 2), nil
}
