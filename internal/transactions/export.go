package transactions

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"carbon-scribe/project-portal/dapp-portal-backend/pkg/pdf"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

// ExportFormat is a history download format.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat defaults to CSV.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return ExportCSV, nil
	case "xlsx", "excel":
		return ExportXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

var exportColumns = []string{
	"Date", "Operation", "Status", "Amount (SUI)", "Recipient", "Sender", "Digest", "Checkpoint", "Failure Reason",
}

const exportTimeFormat = "2006-01-02T15:04:05Z07:00"

func exportRow(r *Record) []string {
	checkpoint := ""
	if r.Checkpoint != nil {
		checkpoint = fmt.Sprintf("%d", *r.Checkpoint)
	}
	reason := ""
	if r.FailureReason != nil {
		reason = *r.FailureReason
	}
	return []string{
		r.CreatedAt.UTC().Format(exportTimeFormat),
		string(r.Operation),
		string(r.Status),
		sui.FormatSUI(r.AmountMist, 4),
		r.Recipient,
		r.Sender,
		r.Digest,
		checkpoint,
		reason,
	}
}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range records {
		if err := writer.Write(exportRow(&records[i])); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes records as a single-sheet workbook with a frozen,
// styled header.
func WriteXLSX(w io.Writer, records []Record) error {
	const sheet = "Transactions"

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
		file.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	widths := make([]int, len(exportColumns))
	for i, col := range exportColumns {
		widths[i] = len(col)
	}

	for rowIdx := range records {
		row := exportRow(&records[rowIdx])
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := file.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
			if len(val) > widths[colIdx] {
				widths[colIdx] = len(val)
			}
		}
	}

	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		w := float64(width) * 1.2
		if w < 10 {
			w = 10
		}
		if w > 70 {
			w = 70
		}
		file.SetColWidth(sheet, col, col, w)
	}

	file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return file.Write(w)
}

// WriteReceipt renders one record as a single-page PDF receipt. Records
// that are not confirmed carry their status as a watermark.
func WriteReceipt(w io.Writer, r *Record, generatedAt time.Time) error {
	rows := []pdf.Row{
		{Label: "Operation", Value: string(r.Operation)},
		{Label: "Status", Value: string(r.Status)},
		{Label: "Amount", Value: sui.FormatSUI(r.AmountMist, 4) + " SUI"},
		{Label: "From", Value: r.Sender},
	}
	if r.Recipient != "" {
		rows = append(rows, pdf.Row{Label: "To", Value: r.Recipient})
	}
	rows = append(rows,
		pdf.Row{Label: "Digest", Value: r.Digest},
		pdf.Row{Label: "Submitted", Value: r.CreatedAt.UTC().Format(receiptTimeLayout)},
	)
	if r.ConfirmedAt != nil {
		rows = append(rows, pdf.Row{Label: "Confirmed", Value: r.ConfirmedAt.UTC().Format(receiptTimeLayout)})
	}
	if r.Checkpoint != nil {
		rows = append(rows, pdf.Row{Label: "Checkpoint", Value: fmt.Sprintf("%d", *r.Checkpoint)})
	}
	if r.FailureReason != nil {
		rows = append(rows, pdf.Row{Label: "Failure Reason", Value: *r.FailureReason})
	}

	doc := pdf.Document{
		Title:    "Transaction Receipt",
		Subtitle: "Generated: " + generatedAt.UTC().Format(receiptTimeLayout),
		Rows:     rows,
	}
	if r.Status != StatusConfirmed {
		doc.Watermark = strings.ToUpper(string(r.Status))
	}
	return pdf.Render(w, doc)
}

const receiptTimeLayout = "2006-01-02 15:04:05 MST"
