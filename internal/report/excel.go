// Package report renders monthly period reports as Excel workbooks.
package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"inventario/backend/internal/domain"
)

const (
	sheetSummary   = "Resumen General"
	sheetTop       = "Top Productos"
	sheetFinancial = "Detalles Financieros"

	headerFill = "366092"
)

var monthNames = [13]string{"", "Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"}

// Data carries everything the workbook needs: the aggregate figures for
// the month plus the manual ledger entries that fell inside it.
type Data struct {
	Summary     domain.PeriodSummary
	Entries     []domain.FinancialEntry
	ClosedAt    *time.Time
	GeneratedAt time.Time
}

// Filename is the download name for a monthly report.
func Filename(year int, month int) string {
	return fmt.Sprintf("reporte_%04d_%02d.xlsx", year, month)
}

func MonthName(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("Mes %d", month)
	}
	return monthNames[month]
}

// Render builds the three-sheet workbook and returns the xlsx bytes.
func Render(data Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetSummary)
	if _, err := f.NewSheet(sheetTop); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetFinancial); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("build header style: %w", err)
	}

	currencyFmt := `"$"#,##0.00`
	currencyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt})
	if err != nil {
		return nil, fmt.Errorf("build currency style: %w", err)
	}

	if err := writeSummary(f, data, headerStyle, currencyStyle); err != nil {
		return nil, err
	}
	if err := writeTopProducts(f, data.Summary.TopProducts, headerStyle, currencyStyle); err != nil {
		return nil, err
	}
	if err := writeFinancialDetails(f, data.Entries, headerStyle, currencyStyle); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, data Data, headerStyle int, currencyStyle int) error {
	s := data.Summary

	type row struct {
		label    string
		value    any
		currency bool
		header   bool
	}
	rows := []row{
		{label: fmt.Sprintf("Reporte Mensual - %s %d", MonthName(s.Month), s.Year), header: true},
		{label: "Fecha inicio", value: s.StartDate.Format("2006-01-02")},
		{label: "Fecha fin", value: s.EndDate.Format("2006-01-02")},
		{},
		{label: "INGRESOS", header: true},
		{label: "Ventas", value: decimalValue(s.TotalSales), currency: true},
		{label: "Ganancias manuales", value: decimalValue(s.ManualGains), currency: true},
		{},
		{label: "EGRESOS", header: true},
		{label: "Compras", value: decimalValue(s.TotalPurchases), currency: true},
		{label: "Inversión manual", value: decimalValue(s.ManualInvestment), currency: true},
		{label: "Gastos manuales", value: decimalValue(s.ManualExpenses), currency: true},
		{},
		{label: "GANANCIA NETA", value: decimalValue(s.NetProfit), currency: true, header: true},
		{},
		{label: "ESTADÍSTICAS", header: true},
		{label: "Productos vendidos", value: s.ProductsSold},
		{label: "Productos registrados", value: s.ProductsRegistered},
	}
	if data.ClosedAt != nil {
		rows = append(rows, row{label: "Fecha de cierre", value: data.ClosedAt.Format("2006-01-02 15:04")})
	}
	rows = append(rows, row{label: "Generado", value: data.GeneratedAt.Format("2006-01-02 15:04")})

	for i, r := range rows {
		if r.label == "" {
			continue
		}
		n := i + 1
		if err := f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", n), r.label); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		cell := fmt.Sprintf("B%d", n)
		if r.value != nil {
			if err := f.SetCellValue(sheetSummary, cell, r.value); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
		}
		if r.header {
			_ = f.SetCellStyle(sheetSummary, fmt.Sprintf("A%d", n), cell, headerStyle)
		}
		if r.currency {
			_ = f.SetCellStyle(sheetSummary, cell, cell, currencyStyle)
		}
	}

	_ = f.SetColWidth(sheetSummary, "A", "A", 26)
	_ = f.SetColWidth(sheetSummary, "B", "B", 18)
	return nil
}

func writeTopProducts(f *excelize.File, top []domain.TopProduct, headerStyle int, currencyStyle int) error {
	headers := []string{"ID", "Producto", "Cantidad vendida", "Total vendido"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetTop, cell, h); err != nil {
			return fmt.Errorf("write top products: %w", err)
		}
	}
	_ = f.SetCellStyle(sheetTop, "A1", "D1", headerStyle)

	for i, tp := range top {
		n := i + 2
		_ = f.SetCellValue(sheetTop, fmt.Sprintf("A%d", n), tp.ProductID)
		_ = f.SetCellValue(sheetTop, fmt.Sprintf("B%d", n), tp.Name)
		_ = f.SetCellValue(sheetTop, fmt.Sprintf("C%d", n), tp.QuantitySold)
		cell := fmt.Sprintf("D%d", n)
		_ = f.SetCellValue(sheetTop, cell, decimalValue(tp.Revenue))
		_ = f.SetCellStyle(sheetTop, cell, cell, currencyStyle)
	}

	_ = f.SetColWidth(sheetTop, "B", "B", 32)
	_ = f.SetColWidth(sheetTop, "C", "D", 18)
	return nil
}

func writeFinancialDetails(f *excelize.File, entries []domain.FinancialEntry, headerStyle int, currencyStyle int) error {
	headers := []string{"Fecha", "Tipo", "Concepto", "Monto", "Descripción"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetFinancial, cell, h); err != nil {
			return fmt.Errorf("write financial details: %w", err)
		}
	}
	_ = f.SetCellStyle(sheetFinancial, "A1", "E1", headerStyle)

	for i, entry := range entries {
		n := i + 2
		_ = f.SetCellValue(sheetFinancial, fmt.Sprintf("A%d", n), entry.RegisteredAt.Format("2006-01-02"))
		_ = f.SetCellValue(sheetFinancial, fmt.Sprintf("B%d", n), entry.Type)
		_ = f.SetCellValue(sheetFinancial, fmt.Sprintf("C%d", n), entry.Concept)
		cell := fmt.Sprintf("D%d", n)
		_ = f.SetCellValue(sheetFinancial, cell, decimalValue(entry.Amount))
		_ = f.SetCellStyle(sheetFinancial, cell, cell, currencyStyle)
		_ = f.SetCellValue(sheetFinancial, fmt.Sprintf("E%d", n), entry.Description)
	}

	_ = f.SetColWidth(sheetFinancial, "A", "A", 14)
	_ = f.SetColWidth(sheetFinancial, "C", "C", 28)
	_ = f.SetColWidth(sheetFinancial, "E", "E", 36)
	return nil
}

func decimalValue(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
