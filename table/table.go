// Package table renders parsed log results as a flat comma separated table.
//
// The table has three header rows (tests, sites, column names), one row per
// requirement with a value and pass/fail column pair per run, and a final row
// with the overall result of each run.
package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	diffpatch "github.com/sourcegraph/go-diff-patch"
	"kastelo.dev/etslog"
)

// configColumns is the number of leading columns describing a requirement.
const configColumns = 5

type Options struct {
	// BOM prefixes the output with a UTF-8 byte order mark, which makes
	// spreadsheet applications detect the encoding.
	BOM bool
}

// Rows lays out res as table rows. The layout must have been derived from
// res.
func Rows(res *etslog.Results, lay etslog.Layout) [][]string {
	var rows [][]string

	row := []string{"Config Information", "", "", "", ""}
	for t := 0; t < lay.TestCount; t++ {
		row = append(row, fmt.Sprintf("Test #%d", t+1), "")
		for s := 1; s < lay.SiteCount; s++ {
			row = append(row, "", "")
		}
	}
	rows = append(rows, row)

	row = make([]string, configColumns)
	for _, sum := range res.Summaries {
		row = append(row, fmt.Sprintf("Site %d", sum.SiteNumber), "")
	}
	rows = append(rows, row)

	row = []string{"#", "Name", "Min", "Max", "Unit"}
	for range res.Summaries {
		row = append(row, "Value", "P/F")
	}
	rows = append(rows, row)

	for i, cfg := range res.Configs {
		row = []string{cfg.RequirementID, cfg.Name, formatLimit(cfg.Min), formatLimit(cfg.Max), cfg.Unit}
		for run := range res.Summaries {
			m := res.Blocks[run][i]
			row = append(row, formatNumber(m.Value), etslog.FormatPassFail(m.Passed))
		}
		rows = append(rows, row)
	}

	row = []string{"Overall", "", "", "", ""}
	for _, sum := range res.Summaries {
		row = append(row, "", etslog.FormatPassFail(sum.Passed))
	}
	rows = append(rows, row)

	return rows
}

// formatNumber writes v the way the fixture software and its spreadsheets
// expect: the shortest exact digits, always with a decimal point, switching
// to exponent form below 1e-4 and from 1e16.
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatLimit(l etslog.Limit) string {
	if !l.Valid {
		return ""
	}
	return formatNumber(l.Value)
}

// Write renders res to w.
func Write(w io.Writer, res *etslog.Results, lay etslog.Layout, opts Options) error {
	if opts.BOM {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	for i, row := range Rows(res, lay) {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile renders res to the named file. The file is removed again if
// writing fails.
func WriteFile(path string, res *etslog.Results, lay etslog.Layout, opts Options) error {
	slog.Info("Writing table", "path", path, "requirements", lay.RequirementCount, "runs", lay.Runs)

	fd, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	if err := Write(fd, res, lay, opts); err != nil {
		fd.Close()
		os.Remove(path)
		return err
	}
	if err := fd.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close table: %w", err)
	}
	return nil
}

// Diff returns a unified diff between two rendered tables, labelled with
// name. Identical tables give an empty string.
func Diff(name string, a, b [][]string) (string, error) {
	as, err := encode(a)
	if err != nil {
		return "", err
	}
	bs, err := encode(b)
	if err != nil {
		return "", err
	}
	if as == bs {
		return "", nil
	}
	return diffpatch.GeneratePatch(name, as, bs), nil
}

func encode(rows [][]string) (string, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}
