package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumAndCat(t *testing.T) {
	r := &FeatureRecord{
		Numeric:     map[string]float64{AttrVolatility: 0.4},
		Categorical: map[string]string{AttrMarketRegime: "sideways", AttrRiskLevel: ""},
	}

	v, ok := r.Num(AttrVolatility)
	assert.True(t, ok)
	assert.Equal(t, 0.4, v)

	_, ok = r.Num(AttrMomentum)
	assert.False(t, ok)

	c, ok := r.Cat(AttrMarketRegime)
	assert.True(t, ok)
	assert.Equal(t, "sideways", c)

	// Empty categorical values read as absent
	_, ok = r.Cat(AttrRiskLevel)
	assert.False(t, ok)

	var nilRecord *FeatureRecord
	_, ok = nilRecord.Num(AttrVolatility)
	assert.False(t, ok)
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	r := &FeatureRecord{Timestamp: now.AddDate(0, 0, -30)}
	assert.InDelta(t, 30, r.AgeDays(now), 1e-9)

	// Future timestamps and missing timestamps report zero age
	r = &FeatureRecord{Timestamp: now.AddDate(0, 0, 5)}
	assert.Zero(t, r.AgeDays(now))
	assert.Zero(t, (&FeatureRecord{}).AgeDays(now))
}

func TestQuality(t *testing.T) {
	assert.Equal(t, 0.5, (&FeatureRecord{}).Quality())
	assert.Equal(t, 0.9, (&FeatureRecord{DataQuality: 0.9}).Quality())
	assert.Equal(t, 1.0, (&FeatureRecord{DataQuality: 3}).Quality())
}
