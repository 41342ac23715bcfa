package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"inventario/backend/internal/domain"
)

func testData() Data {
	return Data{
		Summary: domain.PeriodSummary{
			Year:           2026,
			Month:          3,
			StartDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			TotalSales:     decimal.NewFromFloat(1250.50),
			TotalPurchases: decimal.NewFromInt(400),
			ManualGains:    decimal.NewFromInt(100),
			ManualExpenses: decimal.NewFromInt(50),
			NetProfit:      decimal.NewFromFloat(900.50),
			TopProducts: []domain.TopProduct{
				{ProductID: 7, Name: "Mouse inalámbrico", QuantitySold: 12, Revenue: decimal.NewFromInt(1800)},
				{ProductID: 3, Name: "Teclado USB", QuantitySold: 12, Revenue: decimal.NewFromInt(1560)},
			},
			ProductsSold:       2,
			ProductsRegistered: 5,
		},
		Entries: []domain.FinancialEntry{
			{ID: 1, Type: domain.EntryTypeExpense, Concept: "Renta", Amount: decimal.NewFromInt(50),
				RegisteredAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
		},
		GeneratedAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRenderProducesThreeSheets(t *testing.T) {
	payload, err := Render(testData())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Resumen General", "Top Productos", "Detalles Financieros"}
	if len(sheets) != len(want) {
		t.Fatalf("expected %d sheets, got %v", len(want), sheets)
	}
	for i, name := range want {
		if sheets[i] != name {
			t.Fatalf("expected sheet %d to be %q, got %q", i, name, sheets[i])
		}
	}
}

func TestRenderSummaryContents(t *testing.T) {
	payload, err := Render(testData())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	title, err := f.GetCellValue("Resumen General", "A1")
	if err != nil {
		t.Fatalf("read title: %v", err)
	}
	if title != "Reporte Mensual - Marzo 2026" {
		t.Fatalf("unexpected title %q", title)
	}

	for cell, want := range map[string]string{
		"A5":  "INGRESOS",
		"A9":  "EGRESOS",
		"A14": "GANANCIA NETA",
	} {
		got, err := f.GetCellValue("Resumen General", cell)
		if err != nil {
			t.Fatalf("read %s: %v", cell, err)
		}
		if got != want {
			t.Fatalf("expected %s=%q, got %q", cell, want, got)
		}
	}
}

func TestRenderTopProductsTable(t *testing.T) {
	payload, err := Render(testData())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	name, err := f.GetCellValue("Top Productos", "B2")
	if err != nil {
		t.Fatalf("read B2: %v", err)
	}
	if name != "Mouse inalámbrico" {
		t.Fatalf("expected first ranked product, got %q", name)
	}

	concept, err := f.GetCellValue("Detalles Financieros", "C2")
	if err != nil {
		t.Fatalf("read C2: %v", err)
	}
	if concept != "Renta" {
		t.Fatalf("expected concepto Renta, got %q", concept)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(2026, 3); got != "reporte_2026_03.xlsx" {
		t.Fatalf("unexpected filename %q", got)
	}
}
