package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"inventario/backend/internal/domain"
	"inventario/backend/internal/store"
)

func TestRegisterSaleDecrementsStock(t *testing.T) {
	databaseURL := os.Getenv("INVENTARIO_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set INVENTARIO_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	name := fmt.Sprintf("Producto IT %d", time.Now().UnixNano())
	product, err := s.CreateProduct(ctx, domain.Product{
		Name:      name,
		Cost:      decimal.NewFromInt(10),
		SalePrice: decimal.NewFromInt(25),
		Stock:     5,
		Active:    true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM ventas WHERE id_producto = $1`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM productos WHERE id_producto = $1`, product.ID)
	})

	sale, err := s.RegisterSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID,
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("register sale: %v", err)
	}
	if !sale.Total.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected total 50, got %s", sale.Total)
	}
	if sale.ProductName != name {
		t.Fatalf("expected joined product name %q, got %q", name, sale.ProductName)
	}

	after, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 3 {
		t.Fatalf("expected stock 3 after sale, got %d", after.Stock)
	}

	_, err = s.RegisterSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 10})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	final, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if final.Stock != 3 {
		t.Fatalf("failed sale must not change stock, got %d", final.Stock)
	}

	// The live summary reads through its own read-only transaction and
	// must see the committed sale.
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	summary, err := s.SummarizePeriod(ctx, now.Year(), int(now.Month()), from, from.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.TotalSales.LessThan(decimal.NewFromInt(50)) {
		t.Fatalf("expected total_ventas >= 50, got %s", summary.TotalSales)
	}
}
