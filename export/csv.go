// Package export serializes simulation populations, summaries and run
// reports to CSV and JSON files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/bcdannyboy/stochsim/errs"
	"github.com/bcdannyboy/stochsim/simulation"
	"github.com/bcdannyboy/stochsim/stats"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// createFile makes the parent directory as needed and opens path for
// writing.
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

// WriteVectorCSV writes one value per row under a single column header.
func WriteVectorCSV(values []float64, header, path string) error {
	if len(values) == 0 {
		return errs.Invalidf("no values to write")
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{header})
	for _, v := range values {
		w.Write([]string{formatFloat(v)})
	}
	w.Flush()
	return w.Error()
}

// WriteCSV writes rows of numbers with optional column headers.
func WriteCSV(data [][]float64, headers []string, path string) error {
	if len(data) == 0 {
		return errs.Invalidf("no rows to write")
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(headers) > 0 {
		w.Write(headers)
	}
	for _, row := range data {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatFloat(v)
		}
		w.Write(record)
	}
	w.Flush()
	return w.Error()
}

// WritePathsCSV writes one trajectory per row. With includeIndex the first
// column is the path index and a Step_<n> header row is emitted.
func WritePathsCSV(paths [][]float64, path string, includeIndex bool) error {
	if len(paths) == 0 {
		return errs.Invalidf("no paths to write")
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if includeIndex {
		header := make([]string, 0, len(paths[0])+1)
		header = append(header, "Path")
		for step := range paths[0] {
			header = append(header, fmt.Sprintf("Step_%d", step))
		}
		w.Write(header)
	}
	for i, p := range paths {
		record := make([]string, 0, len(p)+1)
		if includeIndex {
			record = append(record, strconv.Itoa(i))
		}
		for _, v := range p {
			record = append(record, formatFloat(v))
		}
		w.Write(record)
	}
	w.Flush()
	return w.Error()
}

// WriteSummaryCSV writes a Statistic,Value table for one population summary.
func WriteSummaryCSV(summary stats.Summary, path string) error {
	if summary.Count == 0 {
		return errs.Invalidf("summary describes an empty population")
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows := [][]string{
		{"Statistic", "Value"},
		{"Count", strconv.Itoa(summary.Count)},
		{"Mean", formatFloat(summary.Mean)},
		{"Median", formatFloat(summary.Median)},
		{"Variance", formatFloat(summary.Variance)},
		{"StdDev", formatFloat(summary.StdDev)},
		{"Min", formatFloat(summary.Min)},
		{"Max", formatFloat(summary.Max)},
		{"Skewness", formatFloat(summary.Skewness)},
		{"ExcessKurtosis", formatFloat(summary.ExcessKurtosis)},
		{"Q25", formatFloat(summary.Q25)},
		{"Q50", formatFloat(summary.Q50)},
		{"Q75", formatFloat(summary.Q75)},
		{"CI95Lower", formatFloat(summary.CI95.Lower)},
		{"CI95Upper", formatFloat(summary.CI95.Upper)},
	}

	w := csv.NewWriter(f)
	w.WriteAll(rows)
	return w.Error()
}

// WriteParametersCSV writes a Parameter,Value table in key order.
func WriteParametersCSV(params map[string]string, path string) error {
	if len(params) == 0 {
		return errs.Invalidf("no parameters to write")
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := csv.NewWriter(f)
	w.Write([]string{"Parameter", "Value"})
	for _, k := range keys {
		w.Write([]string{k, params[k]})
	}
	w.Flush()
	return w.Error()
}

// ExportResult writes the standard CSV set for one run under the given file
// prefix and returns the paths written.
func ExportResult(res *simulation.Result, prefix string) ([]string, error) {
	if res == nil {
		return nil, errs.Invalidf("result must not be nil")
	}
	if prefix == "" {
		return nil, errs.Invalidf("output prefix must not be empty")
	}

	var written []string

	name := prefix + "_terminal_values.csv"
	if err := WriteVectorCSV(res.TerminalValues, "TerminalValue", name); err != nil {
		return written, err
	}
	written = append(written, name)

	if res.Returns != nil {
		name = prefix + "_returns.csv"
		if err := WriteVectorCSV(res.Returns, "Return", name); err != nil {
			return written, err
		}
		written = append(written, name)
	}

	if len(res.Paths) > 0 {
		name = prefix + "_paths.csv"
		if err := WritePathsCSV(res.Paths, name, true); err != nil {
			return written, err
		}
		written = append(written, name)
	}

	name = prefix + "_summary.csv"
	if err := WriteSummaryCSV(res.TerminalSummary, name); err != nil {
		return written, err
	}
	written = append(written, name)

	return written, nil
}
