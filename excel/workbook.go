// Package excel renders parsed log results as a multi-sheet workbook.
package excel

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"kastelo.dev/etslog"
)

const (
	SheetResults      = "Results"
	SheetRuns         = "Runs"
	SheetRequirements = "Requirements"
)

// configColumns is the number of leading columns describing a requirement
// on the results sheet.
const configColumns = 5

// Options carries the workbook styling. It is passed in explicitly by the
// caller, usually from the configuration file.
type Options struct {
	// Formats overrides the named cell formats. Properties left unset keep
	// their default.
	Formats          map[string]Format `yaml:"formats"`
	NameColumnWidth  float64           `yaml:"name_column_width"`
	ValueColumnWidth float64           `yaml:"value_column_width"`
}

func DefaultOptions() Options {
	return Options{
		NameColumnWidth:  32,
		ValueColumnWidth: 10,
	}
}

// WorkbookXLSX renders res as an XLSX workbook. The layout must have been
// derived from res.
func WorkbookXLSX(res *etslog.Results, lay etslog.Layout, opts Options) ([]byte, error) {
	def := DefaultOptions()
	if opts.NameColumnWidth <= 0 {
		opts.NameColumnWidth = def.NameColumnWidth
	}
	if opts.ValueColumnWidth <= 0 {
		opts.ValueColumnWidth = def.ValueColumnWidth
	}

	xlsx := excelize.NewFile()
	defer xlsx.Close()

	_ = xlsx.SetAppProps(&excelize.AppProperties{
		Application: "kastelo.dev/etslog",
		Company:     "Kastelo AB",
		DocSecurity: 2,
	})
	_ = xlsx.SetDocProps(&excelize.DocProperties{
		Title:       filepath.Base(res.Path),
		Description: fmt.Sprintf("%d sites, %d tests, %d requirements", lay.SiteCount, lay.TestCount, lay.RequirementCount),
	})

	st := newStyler(xlsx, opts.Formats)

	sheet := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())
	if err := xlsx.SetSheetName(sheet, SheetResults); err != nil {
		return nil, err
	}
	writeResultsSheet(xlsx, st, SheetResults, res, lay, opts)

	if _, err := xlsx.NewSheet(SheetRuns); err != nil {
		return nil, err
	}
	writeRunsSheet(xlsx, st, SheetRuns, res, lay)

	if _, err := xlsx.NewSheet(SheetRequirements); err != nil {
		return nil, err
	}
	writeRequirementsSheet(xlsx, st, SheetRequirements, res, lay, opts)

	xlsx.SetActiveSheet(0)

	// Increase size of window
	for i := range xlsx.WorkBook.BookViews.WorkBookView {
		xlsx.WorkBook.BookViews.WorkBookView[i].XWindow = "1000"
		xlsx.WorkBook.BookViews.WorkBookView[i].YWindow = "1000"
		xlsx.WorkBook.BookViews.WorkBookView[i].WindowWidth = 25000
		xlsx.WorkBook.BookViews.WorkBookView[i].WindowHeight = 25000 / 3 * 2
	}

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders res to the named file.
func WriteFile(path string, res *etslog.Results, lay etslog.Layout, opts Options) error {
	slog.Info("Writing workbook", "path", path, "requirements", lay.RequirementCount, "runs", lay.Runs)

	bs, err := WorkbookXLSX(res, lay, opts)
	if err != nil {
		return fmt.Errorf("failed to render workbook: %w", err)
	}
	if err := os.WriteFile(path, bs, 0o644); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

// runColumn is the value column of a run on the results sheet; the pass/fail
// column follows it.
func runColumn(run int) int {
	return configColumns + 1 + 2*run
}

func writeResultsSheet(xlsx *excelize.File, st *styler, sheet string, res *etslog.Results, lay etslog.Layout, opts Options) {
	lastCol := runColumn(lay.Runs) - 1
	if lastCol < configColumns {
		lastCol = configColumns
	}

	_ = xlsx.SetColWidth(sheet, "A", "A", 10)
	_ = xlsx.SetColWidth(sheet, "B", "B", opts.NameColumnWidth)
	_ = xlsx.SetColWidth(sheet, "C", "E", 8)
	for run := 0; run < lay.Runs; run++ {
		_ = xlsx.SetColWidth(sheet, colName(runColumn(run)), colName(runColumn(run)), opts.ValueColumnWidth)
		_ = xlsx.SetColWidth(sheet, colName(runColumn(run)+1), colName(runColumn(run)+1), 5)
	}

	// Test header

	row := 1
	_ = xlsx.SetCellValue(sheet, cell(1, row), "Config Information")
	_ = xlsx.MergeCell(sheet, cell(1, row), cell(configColumns, row))
	for t := 0; t < lay.TestCount; t++ {
		start := runColumn(t * lay.SiteCount)
		end := start + 2*lay.SiteCount - 1
		_ = xlsx.SetCellValue(sheet, cell(start, row), fmt.Sprintf("Test #%d", t+1))
		_ = xlsx.MergeCell(sheet, cell(start, row), cell(end, row))
	}
	st.apply(sheet, cell(1, row), cell(lastCol, row), "", FormatHeader)

	// Site header

	row++
	for run, sum := range res.Summaries {
		col := runColumn(run)
		_ = xlsx.SetCellValue(sheet, cell(col, row), fmt.Sprintf("Site %d", sum.SiteNumber))
		_ = xlsx.MergeCell(sheet, cell(col, row), cell(col+1, row))
	}
	st.apply(sheet, cell(1, row), cell(lastCol, row), "", FormatSubheader)

	// Column names

	row++
	for col, name := range []string{"#", "Name", "Min", "Max", "Unit"} {
		_ = xlsx.SetCellValue(sheet, cell(col+1, row), name)
	}
	for run := range res.Summaries {
		_ = xlsx.SetCellValue(sheet, cell(runColumn(run), row), "Value")
		_ = xlsx.SetCellValue(sheet, cell(runColumn(run)+1, row), "P/F")
	}
	st.apply(sheet, cell(1, row), cell(lastCol, row), "", FormatSubheader)

	_ = xlsx.SetPanes(sheet, &excelize.Panes{
		ActivePane:  "bottomRight",
		Freeze:      true,
		XSplit:      configColumns,
		YSplit:      row,
		TopLeftCell: cell(configColumns+1, row+1),
	})

	// One row per requirement

	for i, cfg := range res.Configs {
		row++
		numFmt := decimalFormat(cfg.DecimalPosition)

		_ = xlsx.SetCellValue(sheet, cell(1, row), cfg.RequirementID)
		_ = xlsx.SetCellValue(sheet, cell(2, row), cfg.Name)
		setLimit(xlsx, sheet, cell(3, row), cfg.Min)
		setLimit(xlsx, sheet, cell(4, row), cfg.Max)
		_ = xlsx.SetCellValue(sheet, cell(5, row), cfg.Unit)
		st.apply(sheet, cell(1, row), cell(2, row), "", FormatValue)
		st.apply(sheet, cell(3, row), cell(4, row), numFmt, FormatValue)
		st.apply(sheet, cell(5, row), cell(5, row), "", FormatValue)

		for run := range res.Summaries {
			m := res.Blocks[run][i]
			col := runColumn(run)
			_ = xlsx.SetCellValue(sheet, cell(col, row), m.Value)
			_ = xlsx.SetCellValue(sheet, cell(col+1, row), etslog.FormatPassFail(m.Passed))
			st.apply(sheet, cell(col, row), cell(col, row), numFmt, FormatValue)
			st.apply(sheet, cell(col+1, row), cell(col+1, row), "", passFailFormat(m.Passed))
		}
	}

	// Overall result per run

	row++
	_ = xlsx.SetCellValue(sheet, cell(1, row), "Overall")
	st.apply(sheet, cell(1, row), cell(lastCol, row), "", FormatOverall)
	for run, sum := range res.Summaries {
		col := runColumn(run) + 1
		_ = xlsx.SetCellValue(sheet, cell(col, row), etslog.FormatPassFail(sum.Passed))
		st.apply(sheet, cell(col, row), cell(col, row), "", FormatOverall, passFailFormat(sum.Passed))
	}
}

func setLimit(xlsx *excelize.File, sheet, axis string, l etslog.Limit) {
	if l.Valid {
		_ = xlsx.SetCellValue(sheet, axis, l.Value)
	}
}

func passFailFormat(passed bool) string {
	if passed {
		return FormatPass
	}
	return FormatFail
}

func writeRunsSheet(xlsx *excelize.File, st *styler, sheet string, res *etslog.Results, lay etslog.Layout) {
	headers := []string{"Run", "Test", "Site", "Time completed", "Serial number", "P/F", "Bin", "Unknown 1", "Unknown 2", "Unknown 3", "Unknown 4"}

	_ = xlsx.SetColWidth(sheet, "A", "C", 6)
	_ = xlsx.SetColWidth(sheet, "D", "E", 22)
	_ = xlsx.SetColWidth(sheet, "F", "K", 10)

	for col, hdr := range headers {
		_ = xlsx.SetCellValue(sheet, cell(col+1, 1), hdr)
	}
	st.apply(sheet, cell(1, 1), cell(len(headers), 1), "", FormatHeader)

	for run, sum := range res.Summaries {
		row := run + 2
		values := []any{
			run + 1,
			lay.TestIndex(run) + 1,
			sum.SiteNumber,
			sum.TimeCompleted,
			sum.SerialNumber,
			etslog.FormatPassFail(sum.Passed),
			sum.BinNumber,
			sum.Unknown1,
			sum.Unknown2,
			sum.Unknown3,
			sum.Unknown4,
		}
		for col, v := range values {
			_ = xlsx.SetCellValue(sheet, cell(col+1, row), v)
		}
		st.apply(sheet, cell(1, row), cell(len(headers), row), "", FormatValue)
		st.apply(sheet, cell(6, row), cell(6, row), "", passFailFormat(sum.Passed))
	}

	if len(res.Summaries) > 0 {
		_ = xlsx.AutoFilter(sheet, fmt.Sprintf("A1:%s", cell(len(headers), len(res.Summaries)+1)), nil)
	}
	_ = xlsx.SetPanes(sheet, &excelize.Panes{
		ActivePane:  "bottomLeft",
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
	})
}

func writeRequirementsSheet(xlsx *excelize.File, st *styler, sheet string, res *etslog.Results, lay etslog.Layout, opts Options) {
	headers := []string{"#", "Name", "Min", "Max", "Unit", "Decimals", "Passed", "Failed", "Yield"}

	_ = xlsx.SetColWidth(sheet, "A", "A", 10)
	_ = xlsx.SetColWidth(sheet, "B", "B", opts.NameColumnWidth)
	_ = xlsx.SetColWidth(sheet, "C", "I", 9)

	for col, hdr := range headers {
		_ = xlsx.SetCellValue(sheet, cell(col+1, 1), hdr)
	}
	st.apply(sheet, cell(1, 1), cell(len(headers), 1), "", FormatHeader)

	for i, cfg := range res.Configs {
		row := i + 2
		passed := 0
		for run := 0; run < lay.Runs; run++ {
			if res.Blocks[run][i].Passed {
				passed++
			}
		}

		_ = xlsx.SetCellValue(sheet, cell(1, row), cfg.RequirementID)
		_ = xlsx.SetCellValue(sheet, cell(2, row), cfg.Name)
		setLimit(xlsx, sheet, cell(3, row), cfg.Min)
		setLimit(xlsx, sheet, cell(4, row), cfg.Max)
		_ = xlsx.SetCellValue(sheet, cell(5, row), cfg.Unit)
		_ = xlsx.SetCellValue(sheet, cell(6, row), cfg.DecimalPosition)
		_ = xlsx.SetCellValue(sheet, cell(7, row), passed)
		_ = xlsx.SetCellValue(sheet, cell(8, row), lay.Runs-passed)
		if lay.Runs > 0 {
			_ = xlsx.SetCellValue(sheet, cell(9, row), float64(passed)/float64(lay.Runs))
		}

		st.apply(sheet, cell(1, row), cell(8, row), "", FormatValue)
		st.apply(sheet, cell(3, row), cell(4, row), decimalFormat(cfg.DecimalPosition), FormatValue)
		yield := FormatPass
		if passed < lay.Runs {
			yield = FormatFail
		}
		st.apply(sheet, cell(9, row), cell(9, row), "0.0%", FormatValue, yield)
	}
}
