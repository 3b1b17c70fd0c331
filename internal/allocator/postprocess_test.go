package allocator_test

import (
	"testing"

	"github.com/cigdist/huoyuan-allocator/internal/allocator"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcessCoalescesResiduesIntoMainRound(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromFloat(80.07),
		AvailableSupply: decimal.NewFromInt(100),
		Fixed:           map[string]decimal.Decimal{},
	}
	ds := threeRoundDataset(t, []*facade.Product{p}, 30)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 80)
	alloc.Set("SKU1", "第二轮", 0.03)
	alloc.Set("SKU1", "第三轮", 0.04)

	adjustments := allocator.PostProcess(ds, alloc, 0.005)
	assert.NotEmpty(t, adjustments)

	assert.InDelta(t, 80.07, alloc.Get("SKU1", "第一轮"), 1e-9)
	assert.Zero(t, alloc.Get("SKU1", "第二轮"))
	assert.Zero(t, alloc.Get("SKU1", "第三轮"))
}

func TestPostProcessZeroesResiduesBelowThresholdWithNoMainRound(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		Fixed:           map[string]decimal.Decimal{},
	}
	ds := threeRoundDataset(t, []*facade.Product{p}, 30)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 0.02)
	alloc.Set("SKU1", "第二轮", 0.03)

	allocator.PostProcess(ds, alloc, 0.005)
	assert.Zero(t, alloc.Get("SKU1", "第一轮"))
	assert.Zero(t, alloc.Get("SKU1", "第二轮"))
}

func TestPostProcessMergesSubThresholdValuesWhenSumReachesThreshold(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		Fixed:           map[string]decimal.Decimal{},
	}
	ds := threeRoundDataset(t, []*facade.Product{p}, 30)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 0.06)
	alloc.Set("SKU1", "第二轮", 0.07)

	allocator.PostProcess(ds, alloc, 0.005)
	assert.InDelta(t, 0.13, alloc.Get("SKU1", "第一轮"), 1e-9)
	assert.Zero(t, alloc.Get("SKU1", "第二轮"))
}

func TestPostProcessAbsorbsTinyUnmetDemand(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		Fixed:           map[string]decimal.Decimal{},
	}
	ds := threeRoundDataset(t, []*facade.Product{p}, 50)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 60)
	alloc.Set("SKU1", "第二轮", 39.995)

	allocator.PostProcess(ds, alloc, 0.005)
	assert.InDelta(t, 100.0, alloc.ProductTotal("SKU1"), 1e-9)
	// the residue lands in the largest already-positive round
	assert.InDelta(t, 60.005, alloc.Get("SKU1", "第一轮"), 1e-9)
}

func TestSummarizeDerivesTotalsAndRates(t *testing.T) {
	zeroDemand := &facade.Product{
		Code:            "SKU0",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.Zero,
		AvailableSupply: decimal.NewFromInt(10),
		Fixed:           map[string]decimal.Decimal{},
	}
	half := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		Fixed:           map[string]decimal.Decimal{},
	}
	ds := threeRoundDataset(t, []*facade.Product{zeroDemand, half}, 30)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 50)

	summary := allocator.Summarize(ds, alloc)
	require.Len(t, summary, 2)
	assert.Equal(t, "SKU0", summary[0].Code)
	assert.Zero(t, summary[0].TotalAllocated)
	assert.Equal(t, 1.0, summary[0].FulfilmentRate)
	assert.InDelta(t, 50.0, summary[1].TotalAllocated, 1e-9)
	assert.InDelta(t, 0.5, summary[1].FulfilmentRate, 1e-9)
}
