package result

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ledgerHeader is the column order shared by the CSV and XLSX ledger exports.
var ledgerHeader = []string{"url", "platform", "kind", "reason", "category", "canonical", "detail"}

// WriteLines writes one canonical URL per line.
func WriteLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write line %q: %w", line, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush lines: %w", err)
	}
	return nil
}

// WriteJSON writes the report as formatted JSON.
func WriteJSON(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return nil
}

// WriteCSV writes every recorded result as CSV.
// Always includes a header row, even if there are no results.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ledgerHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, res := range results {
		if err := cw.Write(ledgerRow(res)); err != nil {
			return fmt.Errorf("write csv record for %s: %w", res.Original, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with one sheet per outcome plus a report sheet.
func WriteXLSX(w io.Writer, ledger *Ledger, rep Report) error {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	sheets := []struct {
		name string
		rows []Result
	}{
		{"canonical", filterKind(ledger.Results(), KindCanonical)},
		{"garbage", ledger.Garbage()},
		{"errors", ledger.Errors()},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := book.SetSheetName("Sheet1", sheet.name); err != nil {
				return fmt.Errorf("rename first sheet: %w", err)
			}
		} else if _, err := book.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet.name, err)
		}

		if err := setRow(book, sheet.name, 1, toCells(ledgerHeader)); err != nil {
			return err
		}
		for rowIdx, res := range sheet.rows {
			if err := setRow(book, sheet.name, rowIdx+2, toCells(ledgerRow(res))); err != nil {
				return err
			}
		}
	}

	if _, err := book.NewSheet("report"); err != nil {
		return fmt.Errorf("create sheet report: %w", err)
	}
	summary := [][]any{
		{"bucket", "count"},
		{"input", rep.Input},
		{"canonical", rep.Canonical},
		{"distinct_canonical", rep.DistinctCanonical},
		{"garbage", rep.Garbage},
		{"errors", rep.Errors},
	}
	for _, bucket := range rep.Buckets {
		summary = append(summary, []any{bucket.Bucket, bucket.Count})
	}
	for i, row := range summary {
		if err := setRow(book, "report", i+1, row); err != nil {
			return err
		}
	}

	if err := book.Write(w); err != nil {
		return fmt.Errorf("write xlsx output: %w", err)
	}
	return nil
}

func setRow(book *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := book.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func ledgerRow(res Result) []string {
	return []string{
		res.Original,
		string(res.Platform),
		string(res.Kind),
		string(res.Reason),
		string(res.Category),
		res.Canonical,
		res.Detail,
	}
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func filterKind(results []Result, kind Kind) []Result {
	var out []Result
	for _, r := range results {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
