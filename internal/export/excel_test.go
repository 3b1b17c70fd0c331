package export_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cigdist/huoyuan-allocator/internal/allocator"
	"github.com/cigdist/huoyuan-allocator/internal/export"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportFixture(t *testing.T) (*facade.Dataset, *allocator.Result) {
	t.Helper()
	p := &facade.Product{
		Code:            "SKU1",
		Name:            "测试烟",
		WholesalePrice:  decimal.NewFromInt(200),
		SticksPerBundle: decimal.NewFromInt(200),
		Demand:          decimal.NewFromInt(100),
		AvailableSupply: decimal.NewFromInt(100),
		Fixed:           map[string]decimal.Decimal{},
	}
	rc := map[string]facade.RoundConstraint{
		"第一轮": {Round: "第一轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(60)},
		"第二轮": {Round: "第二轮", PriceUpper: decimal.NewFromInt(50050), PriceLower: decimal.NewFromInt(49950), VolumeTarget: decimal.NewFromInt(40)},
	}
	ds, err := facade.NewDataset([]*facade.Product{p}, rc, true)
	require.NoError(t, err)

	alloc := facade.Allocation{}
	alloc.Set("SKU1", "第一轮", 60)
	alloc.Set("SKU1", "第二轮", 40)
	result := &allocator.Result{
		Allocation: alloc,
		Summary:    allocator.Summarize(ds, alloc),
		Status:     allocator.StatusOptimal,
	}
	return ds, result
}

func TestWriteWorkbookRoundTripsDerivedColumns(t *testing.T) {
	ds, result := exportFixture(t)
	path := filepath.Join(t.TempDir(), "result.xlsx")
	require.NoError(t, export.WriteWorkbook(path, ds, result))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("分配结果")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Contains(t, header, "总分配量")
	assert.Contains(t, header, "分配率")
	assert.Contains(t, header, "第一轮")

	row := rows[1]
	assert.Equal(t, "SKU1", row[0])
	assert.Equal(t, "100", row[len(row)-2])
	assert.Equal(t, "1", row[len(row)-1])
}

func TestWriteCSVProducesHeaderAndDataRow(t *testing.T) {
	ds, result := exportFixture(t)
	path := filepath.Join(t.TempDir(), "result.csv")
	require.NoError(t, export.WriteCSV(path, ds, result))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "总分配量")
	assert.Contains(t, content, "SKU1")
	assert.Contains(t, content, "测试烟")
}
