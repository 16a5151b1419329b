package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// WriteProfitPDF renders the responsible/locality breakdown of rep as an
// A4 table followed by the period total.
func WriteProfitPDF(w io.Writer, rep Profit) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Relatório de Lucro"), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(40, 50, tr("Relatório de Lucro por Responsável e Loja"))

	cols := []struct {
		title string
		width float64
		align string
	}{
		{"Responsável", 200, "L"},
		{"Loja", 180, "L"},
		{"Lucro Total", 135, "R"},
	}

	pdf.SetXY(40, 80)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(0, 0, 0)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range cols {
		pdf.CellFormat(c.width, 22, tr(c.title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, g := range rep.Groups {
		pdf.SetX(40)
		pdf.CellFormat(cols[0].width, 20, tr(g.Responsible), "1", 0, cols[0].align, false, 0, "")
		pdf.CellFormat(cols[1].width, 20, tr(g.Locality), "1", 0, cols[1].align, false, 0, "")
		pdf.CellFormat(cols[2].width, 20, tr(FormatBRL(g.Profit)), "1", 1, cols[2].align, false, 0, "")
	}

	pdf.Ln(16)
	pdf.SetX(40)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 20, tr("Lucro Total do Mês: "+FormatBRL(rep.Profit)), "", 1, "L", false, 0, "")

	return pdf.Output(w)
}
