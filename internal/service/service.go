package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"inventario/backend/internal/cache"
	"inventario/backend/internal/domain"
	"inventario/backend/internal/report"
	"inventario/backend/internal/storage"
	"inventario/backend/internal/store"
	"inventario/backend/internal/xid"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type Service struct {
	repo     store.Repository
	images   storage.ImageStore
	summary  cache.SummaryCache
	cacheTTL time.Duration
	now      func() time.Time
}

func New(repo store.Repository, images storage.ImageStore, summary cache.SummaryCache, cacheTTL time.Duration) *Service {
	if summary == nil {
		summary = cache.NoopSummaryCache{}
	}
	if cacheTTL < 1 {
		cacheTTL = 60 * time.Second
	}

	return &Service{
		repo:     repo,
		images:   images,
		summary:  summary,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ---- categorias ----

func (s *Service) ListCategories(ctx context.Context, filter store.CategoryFilter) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, filter)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (*domain.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 100 {
		return nil, fmt.Errorf("%w: nombre must be 1-100 characters", store.ErrInvalid)
	}

	return s.repo.CreateCategory(ctx, domain.Category{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
	})
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, req domain.CategoryUpdateRequest) (*domain.Category, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 100 {
			return nil, fmt.Errorf("%w: nombre must be 1-100 characters", store.ErrInvalid)
		}
		req.Name = &name
	}
	return s.repo.UpdateCategory(ctx, id, req)
}

func (s *Service) DeactivateCategory(ctx context.Context, id int64) error {
	return s.repo.DeactivateCategory(ctx, id)
}

// ---- productos ----

func (s *Service) ListProducts(ctx context.Context, filter store.ProductFilter) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	if err := validateProductCreate(&req); err != nil {
		return nil, err
	}
	return s.repo.CreateProduct(ctx, productFromRequest(req))
}

// CreateProductWithImage saves the image first so the product row is
// born with its final URL. If the insert fails the orphaned file is
// removed again.
func (s *Service) CreateProductWithImage(ctx context.Context, req domain.ProductCreateRequest, image io.Reader, originalName string, contentType string) (*domain.Product, error) {
	if err := validateProductCreate(&req); err != nil {
		return nil, err
	}

	url, err := s.saveImage(ctx, image, originalName, contentType)
	if err != nil {
		return nil, err
	}
	req.ImageURL = url

	created, err := s.repo.CreateProduct(ctx, productFromRequest(req))
	if err != nil {
		if cleanupErr := s.images.Delete(ctx, url); cleanupErr != nil {
			log.Printf("[service] WARN: failed to remove orphaned image %s: %v", url, cleanupErr)
		}
		return nil, err
	}
	return created, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("%w: codigo_barras required", store.ErrInvalid)
	}
	return s.repo.GetProductByBarcode(ctx, barcode)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 100 {
			return nil, fmt.Errorf("%w: nombre must be 1-100 characters", store.ErrInvalid)
		}
		req.Name = &name
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return nil, fmt.Errorf("%w: costo cannot be negative", store.ErrInvalid)
	}
	if req.SalePrice != nil && req.SalePrice.IsNegative() {
		return nil, fmt.Errorf("%w: precio_venta cannot be negative", store.ErrInvalid)
	}
	if req.Barcode != nil {
		barcode := strings.TrimSpace(*req.Barcode)
		req.Barcode = &barcode
	}
	return s.repo.UpdateProduct(ctx, id, req)
}

// UpdateProductImage replaces the stored image. The previous file is
// deleted only after the row points at the new one.
func (s *Service) UpdateProductImage(ctx context.Context, id int64, image io.Reader, originalName string, contentType string) (*domain.Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.saveImage(ctx, image, originalName, contentType)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProduct(ctx, id, domain.ProductUpdateRequest{ImageURL: &url})
	if err != nil {
		if cleanupErr := s.images.Delete(ctx, url); cleanupErr != nil {
			log.Printf("[service] WARN: failed to remove orphaned image %s: %v", url, cleanupErr)
		}
		return nil, err
	}

	if existing.ImageURL != "" && existing.ImageURL != url {
		if err := s.images.Delete(ctx, existing.ImageURL); err != nil {
			log.Printf("[service] WARN: failed to remove replaced image %s: %v", existing.ImageURL, err)
		}
	}
	return updated, nil
}

func (s *Service) DeactivateProduct(ctx context.Context, id int64) error {
	return s.repo.DeactivateProduct(ctx, id)
}

// DeleteProduct removes the row permanently and then its image file.
// A failed file removal is logged, not surfaced: the row is already
// gone and the operation cannot be rolled back.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	imageURL, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if imageURL != "" {
		if err := s.images.Delete(ctx, imageURL); err != nil {
			log.Printf("[service] WARN: failed to remove image %s after product delete: %v", imageURL, err)
		}
	}
	return nil
}

// ---- ventas ----

func (s *Service) RegisterSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.Sale, error) {
	if req.ProductID < 1 {
		return nil, fmt.Errorf("%w: id_producto required", store.ErrInvalid)
	}
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: cantidad must be positive", store.ErrInvalid)
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: precio_unitario cannot be negative", store.ErrInvalid)
	}
	req.Notes = strings.TrimSpace(req.Notes)
	return s.repo.RegisterSale(ctx, req)
}

func (s *Service) ListSales(ctx context.Context, filter store.MovementFilter) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

func (s *Service) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ---- compras ----

func (s *Service) RegisterPurchase(ctx context.Context, req domain.PurchaseCreateRequest) (*domain.Purchase, error) {
	if req.ProductID < 1 {
		return nil, fmt.Errorf("%w: id_producto required", store.ErrInvalid)
	}
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: cantidad must be positive", store.ErrInvalid)
	}
	if req.UnitCost.IsNegative() {
		return nil, fmt.Errorf("%w: costo_unitario cannot be negative", store.ErrInvalid)
	}
	req.Notes = strings.TrimSpace(req.Notes)
	return s.repo.RegisterPurchase(ctx, req)
}

func (s *Service) ListPurchases(ctx context.Context, filter store.MovementFilter) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx, filter)
}

func (s *Service) GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// ---- registros financieros ----

func (s *Service) CreateFinancialEntry(ctx context.Context, req domain.FinancialEntryCreateRequest) (*domain.FinancialEntry, error) {
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if !domain.IsValidEntryType(req.Type) {
		return nil, fmt.Errorf("%w: tipo must be one of inversion, gasto, ganancia, ajuste", store.ErrInvalid)
	}
	req.Concept = strings.TrimSpace(req.Concept)
	if req.Concept == "" || len(req.Concept) > 200 {
		return nil, fmt.Errorf("%w: concepto must be 1-200 characters", store.ErrInvalid)
	}
	// monto is signed: a negative ajuste is a valid correction. Only a
	// zero amount is meaningless.
	if req.Amount.IsZero() {
		return nil, fmt.Errorf("%w: monto cannot be zero", store.ErrInvalid)
	}

	return s.repo.CreateFinancialEntry(ctx, domain.FinancialEntry{
		Type:        req.Type,
		Concept:     req.Concept,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
	})
}

func (s *Service) ListFinancialEntries(ctx context.Context, filter store.EntryFilter) ([]domain.FinancialEntry, error) {
	if filter.Type != "" {
		filter.Type = strings.ToLower(strings.TrimSpace(filter.Type))
		if !domain.IsValidEntryType(filter.Type) {
			return nil, fmt.Errorf("%w: tipo must be one of inversion, gasto, ganancia, ajuste", store.ErrInvalid)
		}
	}
	return s.repo.ListFinancialEntries(ctx, filter)
}

func (s *Service) GetFinancialEntry(ctx context.Context, id int64) (*domain.FinancialEntry, error) {
	return s.repo.GetFinancialEntry(ctx, id)
}

func (s *Service) DeleteFinancialEntry(ctx context.Context, id int64) error {
	return s.repo.DeleteFinancialEntry(ctx, id)
}

// ---- periodos ----

func (s *Service) CurrentPeriodSummary(ctx context.Context) (*domain.PeriodSummary, error) {
	now := s.now()
	return s.PeriodSummary(ctx, now.Year(), int(now.Month()))
}

// PeriodSummary aggregates the live figures for a month. Results go
// through the summary cache; closing the month evicts its key.
func (s *Service) PeriodSummary(ctx context.Context, year int, month int) (*domain.PeriodSummary, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	key := summaryCacheKey(year, month)
	if cached, ok, err := s.summary.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: summary cache get %s: %v", key, err)
	} else if ok {
		return cached, nil
	}

	from, to := periodWindow(year, month)
	summary, err := s.repo.SummarizePeriod(ctx, year, month, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.summary.Set(ctx, key, &summary, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: summary cache set %s: %v", key, err)
	}
	return &summary, nil
}

func (s *Service) ClosePeriod(ctx context.Context, req domain.PeriodCloseRequest) (*domain.MonthlyPeriod, error) {
	if err := validatePeriod(req.Year, req.Month); err != nil {
		return nil, err
	}

	from, to := periodWindow(req.Year, req.Month)
	period, err := s.repo.ClosePeriod(ctx, req.Year, req.Month, from, to, strings.TrimSpace(req.Notes))
	if err != nil {
		return nil, err
	}

	if err := s.summary.Delete(ctx, summaryCacheKey(req.Year, req.Month)); err != nil {
		log.Printf("[service] WARN: summary cache delete %s: %v", summaryCacheKey(req.Year, req.Month), err)
	}
	return period, nil
}

func (s *Service) ListPeriods(ctx context.Context, skip int, limit int) ([]domain.MonthlyPeriod, error) {
	return s.repo.ListPeriods(ctx, skip, limit)
}

func (s *Service) GetPeriod(ctx context.Context, id int64) (*domain.MonthlyPeriod, error) {
	return s.repo.GetPeriod(ctx, id)
}

// PeriodReport renders the workbook for a closed period from its
// snapshot figures.
func (s *Service) PeriodReport(ctx context.Context, id int64) (string, []byte, error) {
	period, err := s.repo.GetPeriod(ctx, id)
	if err != nil {
		return "", nil, err
	}

	from, to := periodWindow(period.Year, period.Month)
	entries, err := s.entriesInWindow(ctx, from, to)
	if err != nil {
		return "", nil, err
	}

	closedAt := period.ClosedAt
	payload, err := report.Render(report.Data{
		Summary: domain.PeriodSummary{
			Year:               period.Year,
			Month:              period.Month,
			StartDate:          period.StartDate,
			EndDate:            period.EndDate,
			TotalSales:         period.TotalSales,
			TotalPurchases:     period.TotalPurchases,
			ManualInvestment:   period.ManualInvestment,
			ManualExpenses:     period.ManualExpenses,
			ManualGains:        period.ManualGains,
			NetProfit:          period.NetProfit,
			TopProducts:        period.TopProducts,
			ProductsSold:       period.ProductsSold,
			ProductsRegistered: period.ProductsRegistered,
		},
		Entries:     entries,
		ClosedAt:    &closedAt,
		GeneratedAt: s.now(),
	})
	if err != nil {
		return "", nil, err
	}
	return report.Filename(period.Year, period.Month), payload, nil
}

// CurrentPeriodReport renders the workbook for the running month from
// the live aggregates.
func (s *Service) CurrentPeriodReport(ctx context.Context) (string, []byte, error) {
	now := s.now()
	year, month := now.Year(), int(now.Month())

	from, to := periodWindow(year, month)
	summary, err := s.repo.SummarizePeriod(ctx, year, month, from, to)
	if err != nil {
		return "", nil, err
	}
	entries, err := s.entriesInWindow(ctx, from, to)
	if err != nil {
		return "", nil, err
	}

	payload, err := report.Render(report.Data{
		Summary:     summary,
		Entries:     entries,
		GeneratedAt: now,
	})
	if err != nil {
		return "", nil, err
	}
	return report.Filename(year, month), payload, nil
}

// ---- reportes ----

func (s *Service) InventoryInvestment(ctx context.Context) (domain.InventoryInvestment, error) {
	return s.repo.InventoryInvestment(ctx)
}

func (s *Service) SalesReport(ctx context.Context, year int, month int) (domain.MovementTotals, error) {
	if err := validatePeriod(year, month); err != nil {
		return domain.MovementTotals{}, err
	}
	from, to := periodWindow(year, month)
	return s.repo.SalesTotals(ctx, from, to)
}

func (s *Service) PurchasesReport(ctx context.Context, year int, month int) (domain.MovementTotals, error) {
	if err := validatePeriod(year, month); err != nil {
		return domain.MovementTotals{}, err
	}
	from, to := periodWindow(year, month)
	return s.repo.PurchaseTotals(ctx, from, to)
}

func (s *Service) TopProducts(ctx context.Context, year int, month int, limit int) ([]domain.TopProduct, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 50 {
		limit = 8
	}
	from, to := periodWindow(year, month)
	return s.repo.TopProducts(ctx, from, to, limit)
}

func (s *Service) LowStockProducts(ctx context.Context, threshold int) ([]domain.Product, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: minimo cannot be negative", store.ErrInvalid)
	}
	return s.repo.LowStockProducts(ctx, threshold)
}

// CurrentYearMonth exposes the clock so handlers can default period
// parameters to the running month.
func (s *Service) CurrentYearMonth() (int, int) {
	now := s.now()
	return now.Year(), int(now.Month())
}

// CurrentMonthWindow returns the half-open window of the running month.
func (s *Service) CurrentMonthWindow() (time.Time, time.Time) {
	year, month := s.CurrentYearMonth()
	return periodWindow(year, month)
}

// ---- helpers ----

func (s *Service) entriesInWindow(ctx context.Context, from time.Time, to time.Time) ([]domain.FinancialEntry, error) {
	return s.repo.ListFinancialEntries(ctx, store.EntryFilter{From: &from, To: &to, Limit: 1000})
}

func (s *Service) saveImage(ctx context.Context, image io.Reader, originalName string, contentType string) (string, error) {
	if image == nil {
		return "", fmt.Errorf("%w: imagen required", store.ErrInvalid)
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if !imageExtensions[ext] {
		return "", fmt.Errorf("%w: unsupported image extension %q", store.ErrInvalid, ext)
	}
	return s.images.Save(ctx, xid.ImageName(ext), image, contentType)
}

func validateProductCreate(req *domain.ProductCreateRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 100 {
		return fmt.Errorf("%w: nombre must be 1-100 characters", store.ErrInvalid)
	}
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Description = strings.TrimSpace(req.Description)
	if req.Cost.IsNegative() {
		return fmt.Errorf("%w: costo cannot be negative", store.ErrInvalid)
	}
	if req.SalePrice.IsNegative() {
		return fmt.Errorf("%w: precio_venta cannot be negative", store.ErrInvalid)
	}
	if req.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", store.ErrInvalid)
	}
	return nil
}

func productFromRequest(req domain.ProductCreateRequest) domain.Product {
	return domain.Product{
		Barcode:     req.Barcode,
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Cost:        req.Cost,
		SalePrice:   req.SalePrice,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	}
}

func validatePeriod(year int, month int) error {
	if year < 2000 || year > 2100 {
		return fmt.Errorf("%w: anio must be between 2000 and 2100", store.ErrInvalid)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: mes must be between 1 and 12", store.ErrInvalid)
	}
	return nil
}

// periodWindow returns the half-open UTC window for a month: the first
// instant of the month up to (but excluding) the first instant of the
// next one.
func periodWindow(year int, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func summaryCacheKey(year int, month int) string {
	return fmt.Sprintf("ganancia:%04d-%02d", year, month)
}
