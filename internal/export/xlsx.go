package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/accuracy"
)

// EvaluationRow is one line of the evaluations report.
type EvaluationRow struct {
	Filename    string
	Status      string
	Model       string
	Accuracy    float64
	Correct     int
	Total       int
	Mismatches  []string
	EvaluatedAt time.Time
}

const (
	evaluationsSheet = "Evaluations"
	summarySheet     = "Summary"
)

// BuildEvaluationsWorkbook renders rows into an XLSX workbook with a summary sheet.
func BuildEvaluationsWorkbook(rows []EvaluationRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default sheet becomes the evaluations sheet.
	if err := f.SetSheetName("Sheet1", evaluationsSheet); err != nil {
		return nil, err
	}
	headers := []string{
		"File",
		"Status",
		"Accuracy (%)",
		"Correct",
		"Total",
		"Mismatched Words",
		"Model",
		"Evaluated At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(evaluationsSheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(evaluationsSheet, "A1", "H1", style)
	}

	var sum float64
	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(evaluationsSheet, cell, v)
		}
		write(1, r.Filename)
		write(2, r.Status)
		write(3, r.Accuracy)
		write(4, r.Correct)
		write(5, r.Total)
		write(6, truncate(strings.Join(r.Mismatches, ", "), 32000))
		write(7, r.Model)
		write(8, r.EvaluatedAt.UTC().Format(time.RFC3339))
		sum += r.Accuracy
	}

	_ = f.SetColWidth(evaluationsSheet, "A", "A", 32) // file
	_ = f.SetColWidth(evaluationsSheet, "B", "B", 10) // status
	_ = f.SetColWidth(evaluationsSheet, "C", "E", 12) // numbers
	_ = f.SetColWidth(evaluationsSheet, "F", "F", 60) // mismatches
	_ = f.SetColWidth(evaluationsSheet, "G", "G", 32) // model
	_ = f.SetColWidth(evaluationsSheet, "H", "H", 22) // time

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	mean := 0.0
	if len(rows) > 0 {
		mean = accuracy.Round2(sum / float64(len(rows)))
	}
	_ = f.SetCellValue(summarySheet, "A1", "Evaluations")
	_ = f.SetCellValue(summarySheet, "B1", len(rows))
	_ = f.SetCellValue(summarySheet, "A2", "Mean Accuracy (%)")
	_ = f.SetCellValue(summarySheet, "B2", mean)
	_ = f.SetColWidth(summarySheet, "A", "A", 20)

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
