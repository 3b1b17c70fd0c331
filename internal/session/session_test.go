package session_test

import (
	"testing"

	"github.com/cigdist/huoyuan-allocator/internal/cache"
	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/cigdist/huoyuan-allocator/internal/obslog"
	"github.com/cigdist/huoyuan-allocator/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRequiresUploadBeforeSolve(t *testing.T) {
	s := session.New()
	_, err := s.Solve(obslog.NewNop())
	require.Error(t, err)

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSessionUploadThenSolve(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		Fixed:           map[string]decimal.Decimal{},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(100)},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)

	s := session.New()
	cfg := config.Default()
	cfg.Solve.TimeLimitSeconds = 5
	cfg.Constraints.EnablePriceBased = false
	cfg.Constraints.EnableCType = false
	cfg.Constraints.EnableDemandBased = false
	cfg.Constraints.EnableBalance = false
	require.NoError(t, s.Upload("sess_test", ds, cfg))

	snap, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "sess_test", snap.ID)
	assert.Nil(t, snap.LastResult)

	result, err := s.Solve(obslog.NewNop())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, result.Allocation.ProductTotal("SKU1"), 0.01)

	last, ok := s.LastResult()
	require.True(t, ok)
	assert.Same(t, result, last)
}

func TestSessionWithCacheReusesMergedParams(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		Fixed:           map[string]decimal.Decimal{},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(100)},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)

	s := session.NewWithCache(cache.New(nil))
	cfg := config.Default()
	require.NoError(t, s.Upload("sess_cache", ds, cfg))
	first, ok := s.Current()
	require.True(t, ok)

	// re-configuring with the same record hits the cache, a different
	// record recomputes
	require.NoError(t, s.Configure(cfg))
	second, ok := s.Current()
	require.True(t, ok)
	assert.Same(t, first.Params, second.Params)

	cfg.Constraints.VolumeLimits = map[string]float64{"第一轮": 120}
	require.NoError(t, s.Configure(cfg))
	third, ok := s.Current()
	require.True(t, ok)
	assert.NotSame(t, first.Params, third.Params)
	assert.Equal(t, 120.0, third.Params.ByRound["第一轮"].VolumeTarget)
}
