package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 190.0
	lineHeight = 6.0
	fontFamily = "Arial"
)

// PDFDocument is a small page-oriented builder over gofpdf. Every page carries
// the document title, the generation timestamp and a page-number footer.
// Text is translated to cp1252 so accented Portuguese renders with core fonts.
type PDFDocument struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// NewPDFDocument starts an A4 portrait document.
func NewPDFDocument(title string, generatedAt time.Time) *PDFDocument {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(title, true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	stamp := generatedAt.Format("02/01/2006 15:04")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont(fontFamily, "B", 13)
		pdf.CellFormat(0, 8, tr(title), "", 1, "C", false, 0, "")
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 5, tr("Gerado em "+stamp), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	return &PDFDocument{pdf: pdf, tr: tr}
}

// AddPage starts a new page.
func (d *PDFDocument) AddPage() {
	d.pdf.AddPage()
}

// Heading writes a bold section title.
func (d *PDFDocument) Heading(text string) {
	d.pdf.SetFont(fontFamily, "B", 12)
	d.pdf.MultiCell(pageWidth, 7, d.tr(text), "", "L", false)
	d.pdf.Ln(1)
}

// Subheading writes a smaller bold title.
func (d *PDFDocument) Subheading(text string) {
	d.pdf.SetFont(fontFamily, "B", 10)
	d.pdf.MultiCell(pageWidth, lineHeight, d.tr(text), "", "L", false)
}

// Paragraph writes wrapped body text.
func (d *PDFDocument) Paragraph(text string) {
	d.pdf.SetFont(fontFamily, "", 10)
	d.pdf.MultiCell(pageWidth, lineHeight, d.tr(text), "", "L", false)
}

// Field writes a "label: value" line with a bold label.
func (d *PDFDocument) Field(label, value string) {
	d.pdf.SetFont(fontFamily, "B", 10)
	labelText := d.tr(label + ": ")
	d.pdf.CellFormat(d.pdf.GetStringWidth(labelText)+1, lineHeight, labelText, "", 0, "L", false, 0, "")
	d.pdf.SetFont(fontFamily, "", 10)
	d.pdf.MultiCell(0, lineHeight, d.tr(value), "", "L", false)
}

// Numbered writes a 1-based numbered list.
func (d *PDFDocument) Numbered(items []string) {
	d.pdf.SetFont(fontFamily, "", 9)
	for i, item := range items {
		d.pdf.MultiCell(pageWidth, 5, d.tr(fmt.Sprintf("%d. %s", i+1, item)), "", "L", false)
	}
}

// Table renders a bordered table with evenly sized columns.
func (d *PDFDocument) Table(data Dataset) {
	if len(data.Headers) == 0 {
		return
	}
	colWidth := pageWidth / float64(len(data.Headers))
	d.pdf.SetFont(fontFamily, "B", 9)
	for _, header := range data.Headers {
		d.pdf.CellFormat(colWidth, 7, d.tr(header), "1", 0, "C", false, 0, "")
	}
	d.pdf.Ln(-1)
	d.pdf.SetFont(fontFamily, "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			d.pdf.CellFormat(colWidth, 7, d.tr(row[header]), "1", 0, "", false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

// Spacer adds vertical whitespace in millimetres.
func (d *PDFDocument) Spacer(mm float64) {
	d.pdf.Ln(mm)
}

// Divider draws a thin horizontal rule.
func (d *PDFDocument) Divider() {
	x, y := d.pdf.GetXY()
	d.pdf.Line(x, y+1, x+pageWidth, y+1)
	d.pdf.Ln(3)
}

// Bytes finalises the document.
func (d *PDFDocument) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := d.pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// JoinOr joins non-empty values or returns fallback when nothing is left.
func JoinOr(values []string, sep, fallback string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return fallback
	}
	return strings.Join(kept, sep)
}
