package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"inventario/backend/internal/domain"
	"inventario/backend/internal/store"
)

func seedProducts(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []domain.Product{
		{Name: "Mouse inalámbrico", SalePrice: decimal.NewFromInt(150), Stock: 2},
		{Name: "MOUSE alámbrico", SalePrice: decimal.NewFromInt(90), Stock: 10},
		{Name: "Teclado", SalePrice: decimal.NewFromInt(260), Stock: 1},
	} {
		if _, err := s.CreateProduct(ctx, p); err != nil {
			t.Fatalf("seed %s: %v", p.Name, err)
		}
	}
}

func TestListProductsNameFilterIsCaseInsensitive(t *testing.T) {
	s := New()
	seedProducts(t, s)

	products, err := s.ListProducts(context.Background(), store.ProductFilter{Name: "mouse"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(products))
	}
	// Order is nombre asc, case-insensitive.
	if products[0].Name != "MOUSE alámbrico" {
		t.Fatalf("unexpected order: %s first", products[0].Name)
	}
}

func TestListProductsMaxStockFilter(t *testing.T) {
	s := New()
	seedProducts(t, s)

	max := 2
	products, err := s.ListProducts(context.Background(), store.ProductFilter{MaxStock: &max})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products with stock <= 2, got %d", len(products))
	}
	for _, p := range products {
		if p.Stock > 2 {
			t.Fatalf("filter leaked product with stock %d", p.Stock)
		}
	}
}

func TestListProductsPagination(t *testing.T) {
	s := New()
	seedProducts(t, s)
	ctx := context.Background()

	page1, err := s.ListProducts(ctx, store.ProductFilter{Limit: 2})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	page2, err := s.ListProducts(ctx, store.ProductFilter{Skip: 2, Limit: 2})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page1) != 2 || len(page2) != 1 {
		t.Fatalf("unexpected page sizes %d/%d", len(page1), len(page2))
	}
	if page1[0].ID == page2[0].ID {
		t.Fatalf("pages overlap")
	}

	empty, err := s.ListProducts(ctx, store.ProductFilter{Skip: 10})
	if err != nil {
		t.Fatalf("overflow page: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(empty))
	}
}

func TestTopProductsHonorsLimitAboveEight(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		p, err := s.CreateProduct(ctx, domain.Product{
			Name:      fmt.Sprintf("Producto %02d", i+1),
			SalePrice: decimal.NewFromInt(10),
			Stock:     5,
		})
		if err != nil {
			t.Fatalf("create product %d: %v", i+1, err)
		}
		if _, err := s.RegisterSale(ctx, domain.SaleCreateRequest{ProductID: p.ID, Quantity: 1}); err != nil {
			t.Fatalf("sale %d: %v", i+1, err)
		}
	}

	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)

	top, err := s.TopProducts(ctx, from, to, 12)
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(top) != 12 {
		t.Fatalf("expected 12 ranked products for limit=12, got %d", len(top))
	}

	// The summary snapshot keeps the usual top 8.
	summary, err := s.SummarizePeriod(ctx, from.Year(), int(from.Month()), from, to)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(summary.TopProducts) != 8 {
		t.Fatalf("expected snapshot capped at 8, got %d", len(summary.TopProducts))
	}
}

func TestNewSeededHasWorkingCatalog(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) == 0 {
		t.Fatalf("expected seeded products")
	}
	for _, p := range products {
		if p.CategoryID != nil && p.CategoryName == "" {
			t.Fatalf("expected categoria_nombre populated for %s", p.Name)
		}
	}

	mouse, err := s.GetProductByBarcode(ctx, "7501031311309")
	if err != nil {
		t.Fatalf("barcode lookup: %v", err)
	}
	if !mouse.Margin.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected seeded mouse margin 50, got %s", mouse.Margin)
	}
}
