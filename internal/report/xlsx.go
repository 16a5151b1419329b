package report

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vinicius77777/acai-do-max/internal/db"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var profitHeaders = []string{
	"Descrição", "Responsável", "Localidade", "Quantidade",
	"Valor Unitário", "Valor Total", "Lucro Unitário", "Lucro Total", "Margem",
}

var stockHeaders = []string{
	"Código", "Descrição", "Mês", "Dia", "Qtd. Entrada", "Unidade", "Valor Total",
	"Custo Unitário", "Qtd. Estoque", "Unidade Estoque", "Preço Venda",
	"Fornecedor", "Nota Fiscal", "Vencimento",
}

var orderHeaders = []string{
	"ID", "Descrição", "Quantidade", "Responsável", "Loja", "Localidade", "Dia", "Mês",
	"Valor Unitário", "Valor Total", "Lucro Unitário", "Lucro Total", "Margem", "Desconto",
}

// sheet appends rows to the single worksheet of a new workbook.
type sheet struct {
	f    *excelize.File
	name string
	row  int
}

func newSheet(name string) (*sheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &sheet{f: f, name: name, row: 1}, nil
}

func (s *sheet) title(text string) error {
	style, err := s.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	if err := s.f.SetCellValue(s.name, "A1", text); err != nil {
		return err
	}
	if err := s.f.SetCellStyle(s.name, "A1", "A1", style); err != nil {
		return err
	}
	s.row += 2
	return nil
}

func (s *sheet) headers(cols []string) error {
	style, err := s.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"000000"}},
	})
	if err != nil {
		return err
	}
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = c
	}
	if err := s.append(vals...); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, s.row-1)
	last, _ := excelize.CoordinatesToCellName(len(cols), s.row-1)
	if err := s.f.SetCellStyle(s.name, first, last, style); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(cols))
	return s.f.SetColWidth(s.name, "A", lastCol, 18)
}

func (s *sheet) append(vals ...any) error {
	for i, v := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			return err
		}
		if err := s.f.SetCellValue(s.name, cell, v); err != nil {
			return err
		}
	}
	s.row++
	return nil
}

func (s *sheet) writeTo(w io.Writer) error {
	defer s.f.Close()
	return s.f.Write(w)
}

// WriteProfitXLSX renders rep as a workbook with one row per order and a
// totals row.
func WriteProfitXLSX(w io.Writer, rep Profit) error {
	s, err := newSheet("Lucro")
	if err != nil {
		return err
	}
	if err := s.title("Relatório de Lucro"); err != nil {
		return err
	}
	if err := s.headers(profitHeaders); err != nil {
		return err
	}
	for _, o := range rep.Orders {
		err := s.append(
			o.Description, o.Responsible, o.Locality, o.Qty,
			FormatBRL(o.UnitPrice), FormatBRL(o.TotalPrice),
			FormatBRL(o.UnitProfit), FormatBRL(o.TotalProfit), o.Margin,
		)
		if err != nil {
			return err
		}
	}
	if err := s.append("Total", "", "", rep.Quantity, "", FormatBRL(rep.Revenue), "", FormatBRL(rep.Profit), ""); err != nil {
		return err
	}
	return s.writeTo(w)
}

// WriteStockXLSX renders every stock item.
func WriteStockXLSX(w io.Writer, items []db.StockItem) error {
	s, err := newSheet("Estoque")
	if err != nil {
		return err
	}
	if err := s.headers(stockHeaders); err != nil {
		return err
	}
	for _, it := range items {
		sale := ""
		if it.SalePrice.Valid {
			sale = FormatBRL(it.SalePrice.Decimal)
		}
		due := ""
		if it.DueDate.Valid {
			due = it.DueDate.Time.Format("02/01/2006")
		}
		err := s.append(
			it.Code, it.Description, it.EntryMonth.String, int64Or(it.EntryDay.Int32, it.EntryDay.Valid),
			it.EnteredQty, it.EnteredUnit.String, FormatBRL(it.EnteredTotalCost),
			it.UnitCost.StringFixed(4), it.OnHandQty, it.StockUnit.String, sale,
			it.Supplier.String, it.Invoice.String, due,
		)
		if err != nil {
			return err
		}
	}
	return s.writeTo(w)
}

// WriteOrdersXLSX renders orders in the given order.
func WriteOrdersXLSX(w io.Writer, orders []db.Order) error {
	s, err := newSheet("Pedidos")
	if err != nil {
		return err
	}
	if err := s.headers(orderHeaders); err != nil {
		return err
	}
	for _, o := range orders {
		discount := "Não"
		if o.DiscountApplied {
			discount = "Sim"
		}
		err := s.append(
			o.ID, o.Description, o.Qty, o.Responsible, o.Store, o.Locality, o.Day, o.Month,
			FormatBRL(o.UnitPrice), FormatBRL(o.TotalPrice), FormatBRL(o.UnitProfit),
			FormatBRL(o.TotalProfit), o.Margin, discount,
		)
		if err != nil {
			return err
		}
	}
	return s.writeTo(w)
}

func int64Or(v int32, ok bool) any {
	if !ok {
		return ""
	}
	return int64(v)
}
