package store

import (
	"context"
	"errors"
	"time"

	"inventario/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductInactive   = errors.New("product inactive")
	ErrProductReferenced = errors.New("product has registered movements")
	ErrInvalid           = errors.New("invalid input")
)

type CategoryFilter struct {
	Active *bool
	Skip   int
	Limit  int
}

type ProductFilter struct {
	Active     *bool
	CategoryID *int64
	Name       string
	MaxStock   *int
	Skip       int
	Limit      int
}

type MovementFilter struct {
	ProductID *int64
	From      *time.Time
	To        *time.Time
	Skip      int
	Limit     int
}

type EntryFilter struct {
	Type  string
	From  *time.Time
	To    *time.Time
	Skip  int
	Limit int
}

// Repository is the persistence surface. Time windows are half-open:
// from is inclusive, to is exclusive.
type Repository interface {
	Ping(ctx context.Context) error

	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListCategories(ctx context.Context, filter CategoryFilter) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, req domain.CategoryUpdateRequest) (*domain.Category, error)
	DeactivateCategory(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, id int64) error
	// DeleteProduct removes the row permanently. It fails with
	// ErrProductReferenced when any sale or purchase references the
	// product, and returns the stored image URL so the caller can clean
	// up the file after commit.
	DeleteProduct(ctx context.Context, id int64) (imageURL string, err error)

	RegisterSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.Sale, error)
	ListSales(ctx context.Context, filter MovementFilter) ([]domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)

	RegisterPurchase(ctx context.Context, req domain.PurchaseCreateRequest) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, filter MovementFilter) ([]domain.Purchase, error)
	GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error)

	CreateFinancialEntry(ctx context.Context, entry domain.FinancialEntry) (*domain.FinancialEntry, error)
	ListFinancialEntries(ctx context.Context, filter EntryFilter) ([]domain.FinancialEntry, error)
	GetFinancialEntry(ctx context.Context, id int64) (*domain.FinancialEntry, error)
	DeleteFinancialEntry(ctx context.Context, id int64) error

	SummarizePeriod(ctx context.Context, year int, month int, from time.Time, to time.Time) (domain.PeriodSummary, error)
	ClosePeriod(ctx context.Context, year int, month int, from time.Time, to time.Time, notes string) (*domain.MonthlyPeriod, error)
	ListPeriods(ctx context.Context, skip int, limit int) ([]domain.MonthlyPeriod, error)
	GetPeriod(ctx context.Context, id int64) (*domain.MonthlyPeriod, error)

	InventoryInvestment(ctx context.Context) (domain.InventoryInvestment, error)
	SalesTotals(ctx context.Context, from time.Time, to time.Time) (domain.MovementTotals, error)
	PurchaseTotals(ctx context.Context, from time.Time, to time.Time) (domain.MovementTotals, error)
	TopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error)
	LowStockProducts(ctx context.Context, threshold int) ([]domain.Product, error)
}
