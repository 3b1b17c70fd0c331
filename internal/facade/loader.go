package facade

import (
	"strings"

	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Required and optional product-table column headers. Required columns
// missing from the sheet fail with a ConfigError; optional columns
// fall back to their documented defaults.
const (
	colCode            = "代码"
	colWholesalePrice  = "批发价"
	colName            = "卷烟名称"
	colCategory        = "类"
	colDemand          = "需求"
	colAvailableSupply = "可用货源"
	colSticksPerBundle = "条支比"
	colCFlag           = "C"
	colCSubtype        = "C类"
	colDemandTag       = "按需"
	colPriceTag        = "按价"
	colBrand           = "品牌"
)

var requiredProductColumns = []string{colCode, colWholesalePrice, colName, colCategory, colDemand, colAvailableSupply}

// Round-constraint table row labels (Sheet2, row-indexed).
const (
	rowPriceUpper   = "单箱均价上限"
	rowPriceLower   = "单箱均价下限"
	rowVolumeTarget = "总量"
)

// Load reads an uploaded workbook (Sheet1 = products, Sheet2 = round
// constraints) and assembles a Dataset. The core pipeline itself never
// touches files — this entrypoint exists so the module is runnable
// end-to-end rather than needing a caller to hand-construct a Dataset.
func Load(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, allocerr.NewConfigError("Load", "failed to open workbook: "+err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) < 2 {
		return nil, allocerr.NewConfigError("Load", "workbook must contain at least two sheets")
	}

	products, roundLabels, sticksPresent, err := loadProducts(f, sheets[0])
	if err != nil {
		return nil, err
	}
	constraints, err := loadRoundConstraints(f, sheets[1], roundLabels)
	if err != nil {
		return nil, err
	}

	return NewDataset(products, constraints, sticksPresent)
}

func loadProducts(f *excelize.File, sheet string) ([]*Product, []string, bool, error) {
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		return nil, nil, false, allocerr.NewConfigError("loadProducts", "product sheet is empty or unreadable")
	}

	header := rows[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range requiredProductColumns {
		if _, ok := col[required]; !ok {
			return nil, nil, false, allocerr.NewConfigError("loadProducts", "missing required column: "+required)
		}
	}

	_, sticksPresent := col[colSticksPerBundle]

	var roundLabels []string
	for name := range col {
		if _, rankErr := RoundRank(name); rankErr == nil {
			roundLabels = append(roundLabels, name)
		}
	}
	if len(roundLabels) == 0 {
		return nil, nil, false, allocerr.NewConfigError("loadProducts", "no round columns found in product sheet")
	}
	roundLabels, err = SortRounds(roundLabels)
	if err != nil {
		return nil, nil, false, err
	}

	products := make([]*Product, 0, len(rows)-1)
	for _, row := range rows[1:] {
		p := &Product{
			Code:            cell(row, col, colCode),
			Name:            cell(row, col, colName),
			Category:        cell(row, col, colCategory),
			Brand:           cell(row, col, colBrand),
			WholesalePrice:  numericCell(row, col, colWholesalePrice),
			Demand:          numericCell(row, col, colDemand),
			AvailableSupply: numericCell(row, col, colAvailableSupply),
			CFlag:           cell(row, col, colCFlag),
			RawSubtype:      cell(row, col, colCSubtype),
			DemandTag:       cell(row, col, colDemandTag),
			PriceTag:        cell(row, col, colPriceTag),
			Fixed:           make(map[string]decimal.Decimal),
		}
		if sticksPresent {
			p.SticksPerBundle = numericCell(row, col, colSticksPerBundle)
		}
		for _, r := range roundLabels {
			v := numericCell(row, col, r)
			if v.IsPositive() {
				p.Fixed[r] = v
			}
		}
		if p.Code == "" {
			continue
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		return nil, nil, false, allocerr.NewConfigError("loadProducts", "product sheet has no data rows")
	}
	return products, roundLabels, sticksPresent, nil
}

func loadRoundConstraints(f *excelize.File, sheet string, roundLabels []string) (map[string]RoundConstraint, error) {
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		return nil, allocerr.NewConfigError("loadRoundConstraints", "round-constraint sheet is empty or unreadable")
	}

	header := rows[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	values := make(map[string]map[string]decimal.Decimal) // row label -> round -> value
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		label := strings.TrimSpace(row[0])
		values[label] = make(map[string]decimal.Decimal, len(roundLabels))
		for _, r := range roundLabels {
			values[label][r] = numericCell(row, col, r)
		}
	}

	for _, required := range []string{rowPriceUpper, rowPriceLower, rowVolumeTarget} {
		if _, ok := values[required]; !ok {
			return nil, allocerr.NewConfigError("loadRoundConstraints", "missing required round-constraint row: "+required)
		}
	}

	out := make(map[string]RoundConstraint, len(roundLabels))
	for _, r := range roundLabels {
		out[r] = RoundConstraint{
			Round:        r,
			PriceUpper:   values[rowPriceUpper][r],
			PriceLower:   values[rowPriceLower][r],
			VolumeTarget: values[rowVolumeTarget][r],
		}
	}
	return out, nil
}

func cell(row []string, col map[string]int, name string) string {
	idx, ok := col[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// numericCell coerces a cell to a decimal, defaulting blank or
// non-numeric values to zero.
func numericCell(row []string, col map[string]int, name string) decimal.Decimal {
	raw := cell(row, col, name)
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return v
}
