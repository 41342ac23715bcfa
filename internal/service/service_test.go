package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"inventario/backend/internal/cache"
	"inventario/backend/internal/domain"
	"inventario/backend/internal/store"
	"inventario/backend/internal/store/memory"
)

// fakeImages keeps uploaded files in a map so tests can assert on the
// image lifecycle without touching disk.
type fakeImages struct {
	files map[string][]byte
}

func newFakeImages() *fakeImages {
	return &fakeImages{files: make(map[string][]byte)}
}

func (f *fakeImages) Save(_ context.Context, filename string, r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "/static/images/" + filename
	f.files[url] = data
	return url, nil
}

func (f *fakeImages) Delete(_ context.Context, url string) error {
	delete(f.files, url)
	return nil
}

// recordingCache counts operations so tests can verify cache eviction
// on period close.
type recordingCache struct {
	cache.NoopSummaryCache
	deleted []string
}

func (c *recordingCache) Delete(_ context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	return nil
}

func newTestService() (*Service, *fakeImages) {
	images := newFakeImages()
	svc := New(memory.New(), images, cache.NoopSummaryCache{}, time.Second)
	return svc, images
}

func mustCreateProduct(t *testing.T, svc *Service, name string, cost, price float64, stock int) *domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), domain.ProductCreateRequest{
		Name:      name,
		Cost:      decimal.NewFromFloat(cost),
		SalePrice: decimal.NewFromFloat(price),
		Stock:     stock,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func TestCreateProductComputesMargin(t *testing.T) {
	svc, _ := newTestService()

	product := mustCreateProduct(t, svc, "Mouse inalámbrico", 100, 150, 25)

	if !product.Margin.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected margin 50, got %s", product.Margin)
	}
	if product.MarginPercent != 50.0 {
		t.Fatalf("expected margin percent 50.0, got %v", product.MarginPercent)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: "   "})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for blank name, got %v", err)
	}

	_, err = svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Negativo",
		Cost: decimal.NewFromInt(-1),
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for negative cost, got %v", err)
	}
}

func TestRegisterSaleDecrementsStockAndComputesTotal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product := mustCreateProduct(t, svc, "Teclado USB", 180, 260, 10)

	sale, err := svc.RegisterSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID,
		Quantity:  3,
	})
	if err != nil {
		t.Fatalf("register sale: %v", err)
	}

	if !sale.UnitPrice.Equal(decimal.NewFromInt(260)) {
		t.Fatalf("expected snapshotted unit price 260, got %s", sale.UnitPrice)
	}
	if !sale.Total.Equal(decimal.NewFromInt(780)) {
		t.Fatalf("expected total 780, got %s", sale.Total)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 7 {
		t.Fatalf("expected stock 7 after sale, got %d", after.Stock)
	}
}

func TestRegisterSaleExplicitPriceWins(t *testing.T) {
	svc, _ := newTestService()

	product := mustCreateProduct(t, svc, "Cable HDMI", 45, 80, 5)

	override := decimal.NewFromFloat(70.50)
	sale, err := svc.RegisterSale(context.Background(), domain.SaleCreateRequest{
		ProductID: product.ID,
		Quantity:  2,
		UnitPrice: &override,
	})
	if err != nil {
		t.Fatalf("register sale: %v", err)
	}
	if !sale.Total.Equal(decimal.NewFromFloat(141.00)) {
		t.Fatalf("expected total 141.00, got %s", sale.Total)
	}
}

func TestRegisterSaleInsufficientStockLeavesStockUnchanged(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product := mustCreateProduct(t, svc, "Cuaderno", 22, 35, 4)

	_, err := svc.RegisterSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID,
		Quantity:  5,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 4 {
		t.Fatalf("expected stock untouched at 4, got %d", after.Stock)
	}
}

func TestRegisterSaleInactiveProductRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product := mustCreateProduct(t, svc, "Descontinuado", 10, 20, 10)
	if err := svc.DeactivateProduct(ctx, product.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := svc.RegisterSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1})
	if !errors.Is(err, store.ErrProductInactive) {
		t.Fatalf("expected ErrProductInactive, got %v", err)
	}
}

func TestRegisterPurchaseIncrementsStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product := mustCreateProduct(t, svc, "Bolígrafo", 3, 7, 10)

	purchase, err := svc.RegisterPurchase(ctx, domain.PurchaseCreateRequest{
		ProductID: product.ID,
		Quantity:  40,
		UnitCost:  decimal.NewFromFloat(2.75),
	})
	if err != nil {
		t.Fatalf("register purchase: %v", err)
	}
	if !purchase.Total.Equal(decimal.NewFromFloat(110.00)) {
		t.Fatalf("expected total 110.00, got %s", purchase.Total)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 50 {
		t.Fatalf("expected stock 50, got %d", after.Stock)
	}
}

func TestFinancialEntryTypeValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateFinancialEntry(ctx, domain.FinancialEntryCreateRequest{
		Type:    "prestamo",
		Concept: "algo",
		Amount:  decimal.NewFromInt(10),
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown tipo, got %v", err)
	}

	entry, err := svc.CreateFinancialEntry(ctx, domain.FinancialEntryCreateRequest{
		Type:    "  GASTO ",
		Concept: "Renta local",
		Amount:  decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if entry.Type != domain.EntryTypeExpense {
		t.Fatalf("expected tipo normalized to gasto, got %q", entry.Type)
	}

	_, err = svc.CreateFinancialEntry(ctx, domain.FinancialEntryCreateRequest{
		Type:    domain.EntryTypeAdjustment,
		Concept: "Corrección de caja",
		Amount:  decimal.Zero,
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for zero monto, got %v", err)
	}

	adjustment, err := svc.CreateFinancialEntry(ctx, domain.FinancialEntryCreateRequest{
		Type:    domain.EntryTypeAdjustment,
		Concept: "Faltante de caja",
		Amount:  decimal.NewFromInt(-45),
	})
	if err != nil {
		t.Fatalf("create negative adjustment: %v", err)
	}
	if !adjustment.Amount.Equal(decimal.NewFromInt(-45)) {
		t.Fatalf("expected monto -45, got %s", adjustment.Amount)
	}
}

func TestClosePeriodMatchesLiveSummary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	year, month := svc.CurrentYearMonth()

	a := mustCreateProduct(t, svc, "Producto A", 10, 25, 100)
	b := mustCreateProduct(t, svc, "Producto B", 5, 12, 100)

	if _, err := svc.RegisterSale(ctx, domain.SaleCreateRequest{ProductID: a.ID, Quantity: 4}); err != nil {
		t.Fatalf("sale a: %v", err)
	}
	if _, err := svc.RegisterSale(ctx, domain.SaleCreateRequest{ProductID: b.ID, Quantity: 2}); err != nil {
		t.Fatalf("sale b: %v", err)
	}
	if _, err := svc.RegisterPurchase(ctx, domain.PurchaseCreateRequest{ProductID: a.ID, Quantity: 10, UnitCost: decimal.NewFromInt(9)}); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := svc.CreateFinancialEntry(ctx, domain.FinancialEntryCreateRequest{
		Type: domain.EntryTypeExpense, Concept: "Luz", Amount: decimal.NewFromInt(30),
	}); err != nil {
		t.Fatalf("entry: %v", err)
	}
	if _, err := svc.CreateFinancialEntry(ctx, domain.FinancialEntryCreateRequest{
		Type: domain.EntryTypeGain, Concept: "Venta de mostrador viejo", Amount: decimal.NewFromInt(80),
	}); err != nil {
		t.Fatalf("entry: %v", err)
	}

	live, err := svc.PeriodSummary(ctx, year, month)
	if err != nil {
		t.Fatalf("live summary: %v", err)
	}

	closed, err := svc.ClosePeriod(ctx, domain.PeriodCloseRequest{Year: year, Month: month, Notes: "cierre de prueba"})
	if err != nil {
		t.Fatalf("close period: %v", err)
	}

	// ventas 4*25 + 2*12 = 124; compras 90; neta = 124 - 90 + 80 - 0 - 30 = 84
	if !closed.TotalSales.Equal(decimal.NewFromInt(124)) {
		t.Fatalf("expected total sales 124, got %s", closed.TotalSales)
	}
	if !closed.NetProfit.Equal(decimal.NewFromInt(84)) {
		t.Fatalf("expected net profit 84, got %s", closed.NetProfit)
	}
	if !closed.TotalSales.Equal(live.TotalSales) || !closed.NetProfit.Equal(live.NetProfit) {
		t.Fatalf("closed snapshot diverges from live summary: %s/%s vs %s/%s",
			closed.TotalSales, closed.NetProfit, live.TotalSales, live.NetProfit)
	}
	if closed.ProductsSold != 2 {
		t.Fatalf("expected 2 distinct products sold, got %d", closed.ProductsSold)
	}
	if len(closed.TopProducts) != 2 || closed.TopProducts[0].ProductID != a.ID {
		t.Fatalf("unexpected top products ranking: %+v", closed.TopProducts)
	}

	_, err = svc.ClosePeriod(ctx, domain.PeriodCloseRequest{Year: year, Month: month})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on second close, got %v", err)
	}
}

func TestClosePeriodEmptyMonthIsAllZeros(t *testing.T) {
	svc, _ := newTestService()

	closed, err := svc.ClosePeriod(context.Background(), domain.PeriodCloseRequest{Year: 2024, Month: 2})
	if err != nil {
		t.Fatalf("close empty period: %v", err)
	}
	if !closed.TotalSales.IsZero() || !closed.NetProfit.IsZero() {
		t.Fatalf("expected zero totals, got ventas=%s neta=%s", closed.TotalSales, closed.NetProfit)
	}
	if len(closed.TopProducts) != 0 {
		t.Fatalf("expected empty top products, got %d", len(closed.TopProducts))
	}
	if closed.StartDate.Day() != 1 || closed.EndDate.Day() != 29 {
		t.Fatalf("unexpected window %s .. %s", closed.StartDate, closed.EndDate)
	}
}

func TestClosePeriodEvictsSummaryCache(t *testing.T) {
	rec := &recordingCache{}
	svc := New(memory.New(), newFakeImages(), rec, time.Second)

	if _, err := svc.ClosePeriod(context.Background(), domain.PeriodCloseRequest{Year: 2024, Month: 5}); err != nil {
		t.Fatalf("close period: %v", err)
	}
	if len(rec.deleted) != 1 || rec.deleted[0] != "ganancia:2024-05" {
		t.Fatalf("expected cache eviction for ganancia:2024-05, got %v", rec.deleted)
	}
}

func TestClosePeriodValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.ClosePeriod(ctx, domain.PeriodCloseRequest{Year: 1999, Month: 1}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for year 1999, got %v", err)
	}
	if _, err := svc.ClosePeriod(ctx, domain.PeriodCloseRequest{Year: 2024, Month: 13}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for month 13, got %v", err)
	}
}

func TestTopProductsTieBreaksByID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	year, month := svc.CurrentYearMonth()

	first := mustCreateProduct(t, svc, "Empate Uno", 1, 2, 50)
	second := mustCreateProduct(t, svc, "Empate Dos", 1, 3, 50)

	for _, id := range []int64{second.ID, first.ID} {
		if _, err := svc.RegisterSale(ctx, domain.SaleCreateRequest{ProductID: id, Quantity: 5}); err != nil {
			t.Fatalf("sale: %v", err)
		}
	}

	top, err := svc.TopProducts(ctx, year, month, 8)
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(top) != 2 || top[0].ProductID != first.ID || top[1].ProductID != second.ID {
		t.Fatalf("expected tie broken by ascending id, got %+v", top)
	}
}

func TestDeleteProductReferencedRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product := mustCreateProduct(t, svc, "Con historial", 5, 10, 10)
	if _, err := svc.RegisterSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	if err := svc.DeleteProduct(ctx, product.ID); !errors.Is(err, store.ErrProductReferenced) {
		t.Fatalf("expected ErrProductReferenced, got %v", err)
	}

	// Soft delete remains available and reversible.
	if err := svc.DeactivateProduct(ctx, product.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active := true
	restored, err := svc.UpdateProduct(ctx, product.ID, domain.ProductUpdateRequest{Active: &active})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.Active {
		t.Fatalf("expected product active after restore")
	}
}

func TestDeleteProductRemovesImage(t *testing.T) {
	svc, images := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProductWithImage(ctx, domain.ProductCreateRequest{
		Name:      "Con foto",
		Cost:      decimal.NewFromInt(1),
		SalePrice: decimal.NewFromInt(2),
	}, strings.NewReader("png-bytes"), "foto.PNG", "image/png")
	if err != nil {
		t.Fatalf("create with image: %v", err)
	}
	if product.ImageURL == "" {
		t.Fatalf("expected image url on created product")
	}
	if !strings.HasSuffix(product.ImageURL, ".png") {
		t.Fatalf("expected lowercased extension, got %s", product.ImageURL)
	}
	if len(images.files) != 1 {
		t.Fatalf("expected 1 stored file, got %d", len(images.files))
	}

	if err := svc.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if len(images.files) != 0 {
		t.Fatalf("expected image removed with product, still have %v", images.files)
	}
}

func TestCreateProductWithImageRejectsUnknownExtension(t *testing.T) {
	svc, images := newTestService()

	_, err := svc.CreateProductWithImage(context.Background(), domain.ProductCreateRequest{
		Name:      "Ejecutable",
		SalePrice: decimal.NewFromInt(1),
	}, strings.NewReader("MZ"), "malware.exe", "application/octet-stream")
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for .exe upload, got %v", err)
	}
	if len(images.files) != 0 {
		t.Fatalf("expected nothing stored, got %d files", len(images.files))
	}
}

func TestUpdateProductImageReplacesOldFile(t *testing.T) {
	svc, images := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProductWithImage(ctx, domain.ProductCreateRequest{
		Name:      "Reemplazo",
		SalePrice: decimal.NewFromInt(2),
	}, strings.NewReader("old"), "old.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("create with image: %v", err)
	}
	oldURL := product.ImageURL

	updated, err := svc.UpdateProductImage(ctx, product.ID, strings.NewReader("new"), "new.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("update image: %v", err)
	}
	if updated.ImageURL == oldURL {
		t.Fatalf("expected a new image url")
	}
	if _, ok := images.files[oldURL]; ok {
		t.Fatalf("expected old image to be deleted")
	}
	if len(images.files) != 1 {
		t.Fatalf("expected exactly 1 stored file, got %d", len(images.files))
	}
}

func TestPeriodReportRendersWorkbook(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	year, month := svc.CurrentYearMonth()

	product := mustCreateProduct(t, svc, "Para reporte", 10, 20, 10)
	if _, err := svc.RegisterSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	closed, err := svc.ClosePeriod(ctx, domain.PeriodCloseRequest{Year: year, Month: month})
	if err != nil {
		t.Fatalf("close period: %v", err)
	}

	filename, payload, err := svc.PeriodReport(ctx, closed.ID)
	if err != nil {
		t.Fatalf("period report: %v", err)
	}
	want := fmt.Sprintf("reporte_%04d_%02d.xlsx", year, month)
	if filename != want {
		t.Fatalf("expected filename %s, got %s", want, filename)
	}
	if len(payload) == 0 {
		t.Fatalf("expected non-empty workbook")
	}
}

func TestLowStockThresholdValidation(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.LowStockProducts(context.Background(), -1); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for negative threshold, got %v", err)
	}
}
