package constraints_test

import (
	"testing"

	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/constraints"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleRoundDataset(t *testing.T, demand, wholesale, priceUpper, priceLower, volumeTarget float64) *facade.Dataset {
	t.Helper()
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromFloat(wholesale),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromFloat(demand),
		AvailableSupply: decimal.NewFromFloat(demand),
		Fixed:           map[string]decimal.Decimal{},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {
			Round:        "第一轮",
			PriceUpper:   decimal.NewFromFloat(priceUpper),
			PriceLower:   decimal.NewFromFloat(priceLower),
			VolumeTarget: decimal.NewFromFloat(volumeTarget),
		},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)
	return ds
}

func TestEvaluateDemandPassesAtExactAllocation(t *testing.T) {
	ds := singleRoundDataset(t, 100, 200, 50050, 49950, 100)
	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 100)
	res := constraints.EvaluateDemand(ds, alloc)
	assert.True(t, res.OK)
}

func TestEvaluateDemandFailsOnShortfall(t *testing.T) {
	ds := singleRoundDataset(t, 100, 200, 50050, 49950, 100)
	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 80)
	res := constraints.EvaluateDemand(ds, alloc)
	assert.False(t, res.OK)
	assert.Len(t, res.Violations, 1)
}

func TestEvaluateFixedCellsDetectsMismatch(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		Fixed:           map[string]decimal.Decimal{"第二轮": decimal.NewFromInt(40)},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(50)},
		"第二轮": {Round: "第二轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(50)},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第二轮", 30)
	res := constraints.EvaluateFixedCells(ds, alloc)
	assert.False(t, res.OK)

	alloc.Set("SKU1", "第二轮", 40)
	res = constraints.EvaluateFixedCells(ds, alloc)
	assert.True(t, res.OK)
}

func TestEvaluateSupplyCapFailsWhenFirstRoundExceedsSupply(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(50),
		Fixed:           map[string]decimal.Decimal{},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(100)},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 60)
	res := constraints.EvaluateSupplyCap(ds, alloc)
	assert.False(t, res.OK)
}

func TestEvaluateDemandSplitReproducesHardCapForLowDemandBand(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(30),
		AvailableSupply: decimal.NewFromInt(30),
		Fixed:           map[string]decimal.Decimal{},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(10)},
		"第二轮": {Round: "第二轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(10)},
		"第三轮": {Round: "第三轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(10)},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 10)
	alloc.Set("SKU1", "第二轮", 10)
	alloc.Set("SKU1", "第三轮", 10)
	res := constraints.EvaluateDemandSplit(ds, alloc)
	assert.False(t, res.OK, "demand under 50 still carries the hard rounds-used<=2 cap")
}

func TestEvaluatePriceFlagsOutOfBandAverage(t *testing.T) {
	ds := singleRoundDataset(t, 100, 200, 49000, 40000, 100) // unit box price 50000 > upper 49000
	cfg := config.DefaultConstraints()
	params, err := constraints.MergeParameters(ds, cfg)
	require.NoError(t, err)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 100)
	res := constraints.EvaluatePrice(ds, params, alloc)
	assert.False(t, res.OK)

	// an empty round is not a price violation
	empty := facade.Allocation{}
	res = constraints.EvaluatePrice(ds, params, empty)
	assert.True(t, res.OK)
}

func TestEvaluateDemandPriorityFlagsLateAllocation(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		DemandTag:       "按需",
		Fixed:           map[string]decimal.Decimal{},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(40)},
		"第二轮": {Round: "第二轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(40)},
		"第三轮": {Round: "第三轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(20)},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 40)
	alloc.Set("SKU1", "第二轮", 40)
	alloc.Set("SKU1", "第三轮", 20)
	res := constraints.EvaluateDemandPriority(ds, alloc)
	assert.False(t, res.OK)

	alloc.Set("SKU1", "第二轮", 60)
	alloc.Set("SKU1", "第三轮", 0)
	res = constraints.EvaluateDemandPriority(ds, alloc)
	assert.True(t, res.OK)
}

func TestEvaluateBalanceFlagsBandExcursion(t *testing.T) {
	p := &facade.Product{
		Code:            "SKU1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(130),
		AvailableSupply: decimal.NewFromInt(130),
		Fixed:           map[string]decimal.Decimal{},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(30)},
		"第二轮": {Round: "第二轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(100)},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 30)  // 30 < 0.8*100
	alloc.Set("SKU1", "第二轮", 100)
	res := constraints.EvaluateBalance(ds, alloc)
	assert.False(t, res.OK)

	alloc.Set("SKU1", "第一轮", 90) // within [80, 120]
	res = constraints.EvaluateBalance(ds, alloc)
	assert.True(t, res.OK)
}

func TestValidateSkipsDisabledFamiliesButNeverHardOnes(t *testing.T) {
	ds := singleRoundDataset(t, 100, 200, 50050, 49950, 100)
	cfg := config.DefaultConstraints()
	cfg.EnableBalance = false
	cfg.EnablePriceBased = false
	params, err := constraints.MergeParameters(ds, cfg)
	require.NoError(t, err)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 100)
	report := constraints.Validate(ds, params, cfg, alloc)

	assert.Contains(t, report.Skipped, constraints.FamilyBalance)
	assert.Contains(t, report.Skipped, constraints.FamilyPricePriority)
	assert.Contains(t, report.Families, constraints.FamilyDemand)
	assert.Contains(t, report.Families, constraints.FamilyFixedCells)
	assert.Contains(t, report.Families, constraints.FamilySupplyCap)
	assert.True(t, report.OverallValid)
}

func TestEvaluateCTypeEnforcesAbsoluteCap(t *testing.T) {
	mkProduct := func(code string, isC bool, demand float64) *facade.Product {
		cFlag := ""
		if isC {
			cFlag = "C"
		}
		return &facade.Product{
			Code:            code,
			WholesalePrice:  decimal.NewFromInt(200),
			SticksPerBundle: decimal.NewFromInt(200),
			Demand:          decimal.NewFromFloat(demand),
			AvailableSupply: decimal.NewFromFloat(demand),
			CFlag:           cFlag,
			Fixed:           map[string]decimal.Decimal{},
		}
	}
	products := []*facade.Product{
		mkProduct("C1", true, 3000),
		mkProduct("C2", true, 3000),
		mkProduct("N1", false, 3000),
		mkProduct("N2", false, 3000),
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(12000)},
	}
	ds, err := facade.NewDataset(products, rc, true)
	require.NoError(t, err)

	alloc := facade.Allocation{}
	alloc.Set("C1", "第一轮", 3000)
	alloc.Set("C2", "第一轮", 3000)
	alloc.Set("N1", "第一轮", 3000)
	alloc.Set("N2", "第一轮", 3000)

	cfg := config.DefaultConstraints()
	cfg.CTypeVolumeLimit = 4000
	cfg.CTypeRatio = 1.0
	res := constraints.EvaluateCType(ds, cfg, alloc)
	assert.False(t, res.OK)
}

func TestEvaluateCTypeFlagsSpreadFangSubtype(t *testing.T) {
	p := &facade.Product{
		Code:            "F1",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		CFlag:           "C",
		RawSubtype:      "方",
		Fixed:           map[string]decimal.Decimal{},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(50)},
		"第二轮": {Round: "第二轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(50)},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)

	cfg := config.DefaultConstraints()
	cfg.CTypeRatio = 1.0

	alloc := facade.Allocation{}
	alloc.Set("F1", "第一轮", 50)
	alloc.Set("F1", "第二轮", 50)
	res := constraints.EvaluateCType(ds, cfg, alloc)
	assert.False(t, res.OK, "方-subtype allocation spread across two rounds must be flagged")

	alloc.Set("F1", "第二轮", 0)
	alloc.Set("F1", "第一轮", 100)
	res = constraints.EvaluateCType(ds, cfg, alloc)
	assert.True(t, res.OK)
}
