// Package pdf renders single-page key/value documents such as transaction
// receipts.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// Row is one labelled line of a document.
type Row struct {
	Label string
	Value string
}

// Document describes what to render. Watermark, when set, is stamped
// diagonally across the page.
type Document struct {
	Title     string
	Subtitle  string
	Rows      []Row
	Watermark string
}

type Generator interface {
	Generate(ctx context.Context, doc Document) (io.ReadSeeker, error)
}

type gofpdfGenerator struct{}

func NewGenerator() Generator {
	return &gofpdfGenerator{}
}

func (g *gofpdfGenerator) Generate(ctx context.Context, doc Document) (io.ReadSeeker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf.Bytes()), nil
}

// Render writes doc as an A4 PDF to w.
func Render(w io.Writer, doc Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	if doc.Watermark != "" {
		addWatermark(pdf, doc.Watermark)
	}

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, doc.Subtitle, "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(242, 242, 242)
	for i, row := range doc.Rows {
		fill := i%2 == 1
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(40, 8, row.Label, "1", 0, "L", fill, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 8, row.Value, "1", 1, "L", fill, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render %q: %w", doc.Title, err)
	}
	return pdf.Output(w)
}

func addWatermark(pdf *gofpdf.Fpdf, text string) {
	w, h := pdf.GetPageSize()
	pdf.SetFont("Arial", "B", 60)
	pdf.SetTextColor(230, 230, 230)
	pdf.TransformBegin()
	pdf.TransformRotate(45, w/2, h/2)
	tw := pdf.GetStringWidth(text)
	pdf.Text(w/2-tw/2, h/2, text)
	pdf.TransformEnd()
	pdf.SetTextColor(0, 0, 0)
}
