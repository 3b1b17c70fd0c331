// Package export renders a solved allocation back to tabular form: the
// product table joined with the per-round allocation columns and the
// derived 总分配量/分配率 columns, written as an Excel workbook or CSV.
// This is the read-direction loader's mirror image, built on the same
// excelize dependency.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/cigdist/huoyuan-allocator/internal/allocator"
	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/xuri/excelize/v2"
)

const (
	headerCode           = "代码"
	headerName           = "卷烟名称"
	headerCategory       = "类"
	headerBrand          = "品牌"
	headerWholesalePrice = "批发价"
	headerDemand         = "需求"
	headerTotal          = "总分配量"
	headerRate           = "分配率"

	resultSheet = "分配结果"
)

// rows flattens the dataset, allocation, and summary into one header
// row plus one row per product, shared by the xlsx and csv writers.
func rows(ds *facade.Dataset, result *allocator.Result) [][]string {
	rounds := ds.Rounds()

	header := []string{headerCode, headerName, headerCategory, headerBrand, headerWholesalePrice, headerDemand}
	header = append(header, rounds...)
	header = append(header, headerTotal, headerRate)

	summaryByCode := make(map[string]allocator.ProductSummary, len(result.Summary))
	for _, s := range result.Summary {
		summaryByCode[s.Code] = s
	}

	out := make([][]string, 0, len(ds.ProductTable())+1)
	out = append(out, header)
	for _, p := range ds.ProductTable() {
		row := []string{
			p.Code,
			p.Name,
			p.Category,
			p.Brand,
			p.WholesalePrice.String(),
			p.Demand.String(),
		}
		for _, r := range rounds {
			row = append(row, formatCell(result.Allocation.Get(p.Code, r)))
		}
		s := summaryByCode[p.Code]
		row = append(row, formatCell(s.TotalAllocated), formatCell(s.FulfilmentRate))
		out = append(out, row)
	}
	return out
}

func formatCell(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteWorkbook writes the result table as a single-sheet .xlsx file.
func WriteWorkbook(path string, ds *facade.Dataset, result *allocator.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(resultSheet)
	if err != nil {
		return allocerr.NewConfigError("WriteWorkbook", "failed to create result sheet: "+err.Error())
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, row := range rows(ds, result) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return allocerr.NewConfigError("WriteWorkbook", "bad cell coordinate: "+err.Error())
		}
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		if err := f.SetSheetRow(resultSheet, cell, &cells); err != nil {
			return allocerr.NewConfigError("WriteWorkbook", "failed to write row: "+err.Error())
		}
	}

	if err := f.SaveAs(path); err != nil {
		return allocerr.NewConfigError("WriteWorkbook", "failed to save workbook: "+err.Error())
	}
	return nil
}

// WriteCSV writes the same table as UTF-8 CSV with a BOM so spreadsheet
// tools render the Chinese headers correctly.
func WriteCSV(path string, ds *facade.Dataset, result *allocator.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return allocerr.NewConfigError("WriteCSV", "failed to create file: "+err.Error())
	}
	defer f.Close()

	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return allocerr.NewConfigError("WriteCSV", "failed to write BOM: "+err.Error())
	}

	w := csv.NewWriter(f)
	for _, row := range rows(ds, result) {
		if err := w.Write(row); err != nil {
			return allocerr.NewConfigError("WriteCSV", "failed to write row: "+err.Error())
		}
	}
	w.Flush()
	return w.Error()
}
