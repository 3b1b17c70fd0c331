package cache_test

import (
	"context"
	"testing"

	"github.com/cigdist/huoyuan-allocator/internal/cache"
	"github.com/cigdist/huoyuan-allocator/internal/constraints"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsCacheLocalOnlyRoundTrip(t *testing.T) {
	c := cache.New(nil)
	ctx := context.Background()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	want := &constraints.Params{
		Rounds: []string{"第一轮"},
		ByRound: map[string]constraints.RoundParams{
			"第一轮": {PriceUpper: 50050, PriceLower: 49950, VolumeTarget: 100, VolumeUpper: 100.5, VolumeLower: 99.5},
		},
	}
	require.NoError(t, c.Set(ctx, "key1", want))

	got, ok := c.Get(ctx, "key1")
	require.True(t, ok)
	assert.Equal(t, want, got)

	c.Invalidate(ctx, "key1")
	_, ok = c.Get(ctx, "key1")
	assert.False(t, ok)
}
