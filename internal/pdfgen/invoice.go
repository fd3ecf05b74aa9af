package pdfgen

import (
	"bytes"
	"fmt"
	"os"

	"backend/internal/model"

	"github.com/jung-kurt/gofpdf"
)

// Renderer produces fixed-layout documents for email attachment and download.
type Renderer interface {
	RenderInvoice(inv *model.Invoice) ([]byte, error)
}

type invoiceRenderer struct {
	businessName string
}

// NewInvoiceRenderer returns the gofpdf-backed invoice renderer. The business
// name printed in the header comes from BUSINESS_NAME, with a fallback.
func NewInvoiceRenderer() Renderer {
	name := os.Getenv("BUSINESS_NAME")
	if name == "" {
		name = "Leadership Coaching"
	}
	return &invoiceRenderer{businessName: name}
}

func (r *invoiceRenderer) RenderInvoice(inv *model.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+inv.InvoiceNo, false)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(120, 12, r.businessName)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 12, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Invoice No: "+inv.InvoiceNo, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, "Issue Date: "+inv.IssueDate.Format("2006-01-02"), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, "Due Date: "+inv.DueDate.Format("2006-01-02"), "", 1, "R", false, 0, "")
	pdf.Ln(6)

	// Client block
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Billed To")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, inv.ClientName)
	pdf.Ln(5)
	pdf.Cell(0, 6, inv.ClientEmail)
	pdf.Ln(10)

	// Items table
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(100, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range inv.Items {
		pdf.CellFormat(100, 8, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, item.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals
	pdf.SetX(120)
	pdf.CellFormat(35, 7, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, inv.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetX(120)
	pdf.CellFormat(35, 7, fmt.Sprintf("Tax (%s%%)", inv.TaxRate.StringFixed(2)), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, inv.TaxAmount.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetX(120)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(35, 8, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, inv.Total.StringFixed(2), "T", 1, "R", false, 0, "")

	if inv.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, inv.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", inv.InvoiceNo, err)
	}
	return buf.Bytes(), nil
}
