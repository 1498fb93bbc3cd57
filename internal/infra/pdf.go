package infra

// pdf.go — invoice PDF generation using go-pdf/fpdf.
// Produces an A4 document with the business header, invoice number, client
// block, item table, totals per currency and the legal amount-in-words line.

import (
	"fmt"
	"os"
	"path/filepath"

	"venpos/internal/model"
	"venpos/internal/moneda"

	"github.com/go-pdf/fpdf"
)

// GenerarFacturaPDF renders an issued invoice to storagePath and returns the
// absolute path of the generated file. Draft invoices have no number and are
// rejected upstream.
func GenerarFacturaPDF(f *model.Factura, nombreNegocio, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	numero := "BORRADOR"
	if f.Numero != nil {
		numero = *f.Numero
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("factura_%s.pdf", numero))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, nombreNegocio, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, "FACTURA "+numero, "", 1, "L", false, 0, "")
	if f.EmitidaAt != nil {
		pdf.CellFormat(contentW, 5, "Emitida: "+f.EmitidaAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// ── Client block ──────────────────────────────────────────────────────────
	if f.Cliente != nil {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 5, "Cliente", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW, 5, f.Cliente.Nombre, "", 1, "L", false, 0, "")
		pdf.CellFormat(contentW, 5, f.Cliente.Documento, "", 1, "L", false, 0, "")
		pdf.Ln(3)
	}

	// ── Item table ────────────────────────────────────────────────────────────
	col1 := contentW * 0.46 // description
	col2 := contentW * 0.14 // qty
	col3 := contentW * 0.20 // unit price
	col4 := contentW * 0.20 // subtotal

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Descripción", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "P. Unit", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, it := range f.Items {
		desc := it.Descripcion
		if len(desc) > 40 {
			desc = desc[:39] + "…"
		}
		sub := moneda.Redondear(it.Cantidad.Mul(it.PrecioUnitario))
		pdf.CellFormat(col1, 6, desc, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, it.Cantidad.String(), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, it.PrecioUnitario.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 6, sub.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ────────────────────────────────────────────────────────────────
	simbolo := string(f.Moneda) + " "
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(col1+col2+col3, 6, "Subtotal:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, simbolo+f.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(col1+col2+col3, 6, "Impuesto:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, simbolo+f.Impuesto.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1+col2+col3, 8, "TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 8, simbolo+f.Total.StringFixed(2), "", 1, "R", false, 0, "")

	// Converted totals from the invoice's frozen rate snapshots.
	pdf.SetFont("Helvetica", "", 8)
	if f.Moneda == moneda.USD {
		if totalVES, err := moneda.Convertir(f.Total, f.TasaVES); err == nil {
			pdf.CellFormat(contentW, 5,
				fmt.Sprintf("Equivalente: VES %s (tasa %s)", totalVES.StringFixed(2), f.TasaVES.String()),
				"", 1, "R", false, 0, "")
		}
	}

	// ── Legal amount in words ─────────────────────────────────────────────────
	if letras, err := moneda.MontoEnLetras(f.Total, f.Moneda.EtiquetaLegal()); err == nil {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(contentW, 6, letras, "", 1, "L", false, 0, "")
	}

	if f.Estado == model.FacturaAnulada {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(200, 0, 0)
		pdf.CellFormat(contentW, 8, "ANULADA", "", 1, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
