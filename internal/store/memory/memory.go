package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"inventario/backend/internal/domain"
	"inventario/backend/internal/store"
)

// Store is a mutex-guarded in-memory Repository used by the test suite
// and by DB-less development mode.
type Store struct {
	mu sync.RWMutex

	categories map[int64]domain.Category
	products   map[int64]domain.Product
	sales      map[int64]domain.Sale
	purchases  map[int64]domain.Purchase
	entries    map[int64]domain.FinancialEntry
	periods    map[int64]domain.MonthlyPeriod

	nextCategoryID int64
	nextProductID  int64
	nextSaleID     int64
	nextPurchaseID int64
	nextEntryID    int64
	nextPeriodID   int64
}

func New() *Store {
	return &Store{
		categories: make(map[int64]domain.Category),
		products:   make(map[int64]domain.Product),
		sales:      make(map[int64]domain.Sale),
		purchases:  make(map[int64]domain.Purchase),
		entries:    make(map[int64]domain.FinancialEntry),
		periods:    make(map[int64]domain.MonthlyPeriod),
	}
}

// NewSeeded returns a store pre-populated with a small demo catalog.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()

	electronics, _ := s.CreateCategory(ctx, domain.Category{Name: "Electrónica", Description: "Accesorios y periféricos"})
	stationery, _ := s.CreateCategory(ctx, domain.Category{Name: "Papelería"})

	seed := []domain.Product{
		{Barcode: "7501031311309", Name: "Mouse inalámbrico", CategoryID: &electronics.ID, Cost: decimal.NewFromInt(100), SalePrice: decimal.NewFromInt(150), Stock: 25},
		{Barcode: "7501031311316", Name: "Teclado USB", CategoryID: &electronics.ID, Cost: decimal.NewFromInt(180), SalePrice: decimal.NewFromInt(260), Stock: 15},
		{Barcode: "7501031311323", Name: "Cable HDMI 2m", CategoryID: &electronics.ID, Cost: decimal.NewFromFloat(45.50), SalePrice: decimal.NewFromFloat(80), Stock: 40},
		{Name: "Cuaderno profesional", CategoryID: &stationery.ID, Cost: decimal.NewFromFloat(22), SalePrice: decimal.NewFromFloat(35), Stock: 60},
		{Name: "Bolígrafo azul", CategoryID: &stationery.ID, Cost: decimal.NewFromFloat(3.5), SalePrice: decimal.NewFromFloat(7), Stock: 200},
	}
	for _, p := range seed {
		_, _ = s.CreateProduct(ctx, p)
	}
	return s
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

// ---- categorias ----

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, fmt.Errorf("%w: categoria %q", store.ErrDuplicate, category.Name)
		}
	}

	s.nextCategoryID++
	category.ID = s.nextCategoryID
	category.Active = true
	category.RegisteredAt = time.Now().UTC()
	s.categories[category.ID] = category

	saved := category
	return &saved, nil
}

func (s *Store) ListCategories(_ context.Context, filter store.CategoryFilter) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, category := range s.categories {
		if filter.Active != nil && category.Active != *filter.Active {
			continue
		}
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		return strings.ToLower(categories[i].Name) < strings.ToLower(categories[j].Name)
	})
	return paginate(categories, filter.Skip, filter.Limit), nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &category, nil
}

func (s *Store) UpdateCategory(_ context.Context, id int64, req domain.CategoryUpdateRequest) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if req.Name != nil {
		for otherID, other := range s.categories {
			if otherID != id && strings.EqualFold(other.Name, *req.Name) {
				return nil, fmt.Errorf("%w: categoria name", store.ErrDuplicate)
			}
		}
		category.Name = *req.Name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.Active != nil {
		category.Active = *req.Active
	}
	s.categories[id] = category

	saved := category
	return &saved, nil
}

func (s *Store) DeactivateCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[id]
	if !ok {
		return store.ErrNotFound
	}
	category.Active = false
	s.categories[id] = category
	return nil
}

// ---- productos ----

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Barcode != "" {
		for _, existing := range s.products {
			if existing.Barcode == product.Barcode {
				return nil, fmt.Errorf("%w: codigo_barras %q", store.ErrDuplicate, product.Barcode)
			}
		}
	}

	s.nextProductID++
	product.ID = s.nextProductID
	product.Active = true
	now := time.Now().UTC()
	product.RegisteredAt = now
	product.ModifiedAt = now
	s.products[product.ID] = product

	return s.decorate(product), nil
}

func (s *Store) ListProducts(_ context.Context, filter store.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		if filter.Active != nil && product.Active != *filter.Active {
			continue
		}
		if filter.CategoryID != nil && (product.CategoryID == nil || *product.CategoryID != *filter.CategoryID) {
			continue
		}
		if name := strings.TrimSpace(filter.Name); name != "" && !strings.Contains(strings.ToLower(product.Name), strings.ToLower(name)) {
			continue
		}
		if filter.MaxStock != nil && product.Stock > *filter.MaxStock {
			continue
		}
		products = append(products, *s.decorate(product))
	}
	sort.Slice(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
	return paginate(products, filter.Skip, filter.Limit), nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.decorate(product), nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, product := range s.products {
		if product.Barcode != "" && product.Barcode == barcode {
			return s.decorate(product), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateProduct(_ context.Context, id int64, req domain.ProductUpdateRequest) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if req.Barcode != nil {
		if *req.Barcode != "" {
			for otherID, other := range s.products {
				if otherID != id && other.Barcode == *req.Barcode {
					return nil, fmt.Errorf("%w: codigo_barras", store.ErrDuplicate)
				}
			}
		}
		product.Barcode = *req.Barcode
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.CategoryID != nil {
		// id_categoria 0 clears the assignment; real ids start at 1.
		if *req.CategoryID == 0 {
			product.CategoryID = nil
		} else {
			categoryID := *req.CategoryID
			product.CategoryID = &categoryID
		}
	}
	if req.Cost != nil {
		product.Cost = *req.Cost
	}
	if req.SalePrice != nil {
		product.SalePrice = *req.SalePrice
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	product.ModifiedAt = time.Now().UTC()
	s.products[id] = product

	return s.decorate(product), nil
}

func (s *Store) DeactivateProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	product.Active = false
	product.ModifiedAt = time.Now().UTC()
	s.products[id] = product
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return "", store.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.ProductID == id {
			return "", store.ErrProductReferenced
		}
	}
	for _, purchase := range s.purchases {
		if purchase.ProductID == id {
			return "", store.ErrProductReferenced
		}
	}
	delete(s.products, id)
	return product.ImageURL, nil
}

// ---- ventas ----

func (s *Store) RegisterSale(_ context.Context, req domain.SaleCreateRequest) (*domain.Sale, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: cantidad must be positive", store.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[req.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !product.Active {
		return nil, store.ErrProductInactive
	}
	if product.Stock < req.Quantity {
		return nil, store.ErrInsufficientStock
	}

	unitPrice := product.SalePrice
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}

	s.nextSaleID++
	sale := domain.Sale{
		ID:             s.nextSaleID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		Total:          unitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))),
		SoldAt:         time.Now().UTC(),
		Notes:          req.Notes,
		ProductName:    product.Name,
		ProductBarcode: product.Barcode,
	}
	s.sales[sale.ID] = sale

	product.Stock -= req.Quantity
	product.ModifiedAt = sale.SoldAt
	s.products[product.ID] = product

	saved := sale
	return &saved, nil
}

func (s *Store) ListSales(_ context.Context, filter store.MovementFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !matchMovement(filter, sale.ProductID, sale.SoldAt) {
			continue
		}
		sales = append(sales, sale)
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].SoldAt.Equal(sales[j].SoldAt) {
			return sales[i].ID > sales[j].ID
		}
		return sales[i].SoldAt.After(sales[j].SoldAt)
	})
	return paginate(sales, filter.Skip, filter.Limit), nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sale, nil
}

// ---- compras ----

func (s *Store) RegisterPurchase(_ context.Context, req domain.PurchaseCreateRequest) (*domain.Purchase, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: cantidad must be positive", store.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[req.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}

	s.nextPurchaseID++
	purchase := domain.Purchase{
		ID:             s.nextPurchaseID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		Total:          req.UnitCost.Mul(decimal.NewFromInt(int64(req.Quantity))),
		BoughtAt:       time.Now().UTC(),
		Notes:          req.Notes,
		ProductName:    product.Name,
		ProductBarcode: product.Barcode,
	}
	s.purchases[purchase.ID] = purchase

	product.Stock += req.Quantity
	product.ModifiedAt = purchase.BoughtAt
	s.products[product.ID] = product

	saved := purchase
	return &saved, nil
}

func (s *Store) ListPurchases(_ context.Context, filter store.MovementFilter) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchases := make([]domain.Purchase, 0, len(s.purchases))
	for _, purchase := range s.purchases {
		if !matchMovement(filter, purchase.ProductID, purchase.BoughtAt) {
			continue
		}
		purchases = append(purchases, purchase)
	}
	sort.Slice(purchases, func(i, j int) bool {
		if purchases[i].BoughtAt.Equal(purchases[j].BoughtAt) {
			return purchases[i].ID > purchases[j].ID
		}
		return purchases[i].BoughtAt.After(purchases[j].BoughtAt)
	})
	return paginate(purchases, filter.Skip, filter.Limit), nil
}

func (s *Store) GetPurchase(_ context.Context, id int64) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &purchase, nil
}

// ---- registros financieros ----

func (s *Store) CreateFinancialEntry(_ context.Context, entry domain.FinancialEntry) (*domain.FinancialEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEntryID++
	entry.ID = s.nextEntryID
	entry.RegisteredAt = time.Now().UTC()
	s.entries[entry.ID] = entry

	saved := entry
	return &saved, nil
}

func (s *Store) ListFinancialEntries(_ context.Context, filter store.EntryFilter) ([]domain.FinancialEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.FinancialEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if filter.Type != "" && entry.Type != filter.Type {
			continue
		}
		if filter.From != nil && entry.RegisteredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !entry.RegisteredAt.Before(*filter.To) {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RegisteredAt.Equal(entries[j].RegisteredAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].RegisteredAt.After(entries[j].RegisteredAt)
	})
	return paginate(entries, filter.Skip, filter.Limit), nil
}

func (s *Store) GetFinancialEntry(_ context.Context, id int64) (*domain.FinancialEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &entry, nil
}

func (s *Store) DeleteFinancialEntry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// ---- periodos ----

func (s *Store) SummarizePeriod(_ context.Context, year int, month int, from time.Time, to time.Time) (domain.PeriodSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summarizeLocked(year, month, from, to, 8), nil
}

func (s *Store) summarizeLocked(year int, month int, from time.Time, to time.Time, topLimit int) domain.PeriodSummary {
	summary := domain.PeriodSummary{
		Year:        year,
		Month:       month,
		StartDate:   from,
		EndDate:     to.AddDate(0, 0, -1),
		TopProducts: make([]domain.TopProduct, 0, 8),
	}

	soldProducts := make(map[int64]bool)
	byProduct := make(map[int64]*domain.TopProduct)
	for _, sale := range s.sales {
		if !inWindow(sale.SoldAt, from, to) {
			continue
		}
		summary.TotalSales = summary.TotalSales.Add(sale.Total)
		soldProducts[sale.ProductID] = true
		tp := byProduct[sale.ProductID]
		if tp == nil {
			name := sale.ProductName
			if product, ok := s.products[sale.ProductID]; ok {
				name = product.Name
			}
			tp = &domain.TopProduct{ProductID: sale.ProductID, Name: name}
			byProduct[sale.ProductID] = tp
		}
		tp.QuantitySold += sale.Quantity
		tp.Revenue = tp.Revenue.Add(sale.Total)
	}
	summary.ProductsSold = len(soldProducts)

	for _, purchase := range s.purchases {
		if !inWindow(purchase.BoughtAt, from, to) {
			continue
		}
		summary.TotalPurchases = summary.TotalPurchases.Add(purchase.Total)
	}

	for _, entry := range s.entries {
		if !inWindow(entry.RegisteredAt, from, to) {
			continue
		}
		switch entry.Type {
		case domain.EntryTypeInvestment:
			summary.ManualInvestment = summary.ManualInvestment.Add(entry.Amount)
		case domain.EntryTypeExpense:
			summary.ManualExpenses = summary.ManualExpenses.Add(entry.Amount)
		case domain.EntryTypeGain:
			summary.ManualGains = summary.ManualGains.Add(entry.Amount)
		}
	}

	for _, product := range s.products {
		if inWindow(product.RegisteredAt, from, to) {
			summary.ProductsRegistered++
		}
	}

	ranked := make([]domain.TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		ranked = append(ranked, *tp)
	}
	// Same tie-break as the SQL ranking: quantity desc, product id asc.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].QuantitySold == ranked[j].QuantitySold {
			return ranked[i].ProductID < ranked[j].ProductID
		}
		return ranked[i].QuantitySold > ranked[j].QuantitySold
	})
	if topLimit < 1 {
		topLimit = 8
	}
	if len(ranked) > topLimit {
		ranked = ranked[:topLimit]
	}
	summary.TopProducts = ranked

	summary.NetProfit = summary.TotalSales.
		Sub(summary.TotalPurchases).
		Add(summary.ManualGains).
		Sub(summary.ManualInvestment).
		Sub(summary.ManualExpenses)

	return summary
}

func (s *Store) ClosePeriod(_ context.Context, year int, month int, from time.Time, to time.Time, notes string) (*domain.MonthlyPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, period := range s.periods {
		if period.Year == year && period.Month == month {
			return nil, fmt.Errorf("%w: periodo %04d-%02d already closed", store.ErrDuplicate, year, month)
		}
	}

	summary := s.summarizeLocked(year, month, from, to, 8)

	s.nextPeriodID++
	period := domain.MonthlyPeriod{
		ID:                 s.nextPeriodID,
		Year:               summary.Year,
		Month:              summary.Month,
		StartDate:          summary.StartDate,
		EndDate:            summary.EndDate,
		TotalSales:         summary.TotalSales,
		TotalPurchases:     summary.TotalPurchases,
		ManualInvestment:   summary.ManualInvestment,
		ManualExpenses:     summary.ManualExpenses,
		ManualGains:        summary.ManualGains,
		NetProfit:          summary.NetProfit,
		TopProducts:        summary.TopProducts,
		ProductsSold:       summary.ProductsSold,
		ProductsRegistered: summary.ProductsRegistered,
		ClosedAt:           time.Now().UTC(),
		Notes:              notes,
	}
	s.periods[period.ID] = period

	saved := period
	return &saved, nil
}

func (s *Store) ListPeriods(_ context.Context, skip int, limit int) ([]domain.MonthlyPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods := make([]domain.MonthlyPeriod, 0, len(s.periods))
	for _, period := range s.periods {
		periods = append(periods, period)
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Year == periods[j].Year {
			return periods[i].Month > periods[j].Month
		}
		return periods[i].Year > periods[j].Year
	})
	return paginate(periods, skip, limit), nil
}

func (s *Store) GetPeriod(_ context.Context, id int64) (*domain.MonthlyPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	period, ok := s.periods[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &period, nil
}

// ---- reportes ----

func (s *Store) InventoryInvestment(_ context.Context) (domain.InventoryInvestment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var inv domain.InventoryInvestment
	for _, product := range s.products {
		if !product.Active {
			continue
		}
		inv.TotalInvestment = inv.TotalInvestment.Add(product.Cost.Mul(decimal.NewFromInt(int64(product.Stock))))
		inv.ProductCount++
		inv.TotalUnits += product.Stock
	}
	return inv, nil
}

func (s *Store) SalesTotals(_ context.Context, from time.Time, to time.Time) (domain.MovementTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals domain.MovementTotals
	for _, sale := range s.sales {
		if !inWindow(sale.SoldAt, from, to) {
			continue
		}
		totals.Total = totals.Total.Add(sale.Total)
		totals.Count++
		totals.Units += sale.Quantity
	}
	return totals, nil
}

func (s *Store) PurchaseTotals(_ context.Context, from time.Time, to time.Time) (domain.MovementTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals domain.MovementTotals
	for _, purchase := range s.purchases {
		if !inWindow(purchase.BoughtAt, from, to) {
			continue
		}
		totals.Total = totals.Total.Add(purchase.Total)
		totals.Count++
		totals.Units += purchase.Quantity
	}
	return totals, nil
}

func (s *Store) TopProducts(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 8
	}
	return s.summarizeLocked(0, 0, from, to, limit).TopProducts, nil
}

func (s *Store) LowStockProducts(_ context.Context, threshold int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, 16)
	for _, product := range s.products {
		if !product.Active || product.Stock > threshold {
			continue
		}
		products = append(products, *s.decorate(product))
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Stock == products[j].Stock {
			return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
		}
		return products[i].Stock < products[j].Stock
	})
	return products, nil
}

// ---- helpers ----

// decorate fills the read-side derived fields. Callers must hold the lock.
func (s *Store) decorate(product domain.Product) *domain.Product {
	if product.CategoryID != nil {
		if category, ok := s.categories[*product.CategoryID]; ok {
			product.CategoryName = category.Name
		}
	}
	product.ComputeMargin()
	return &product
}

func matchMovement(filter store.MovementFilter, productID int64, at time.Time) bool {
	if filter.ProductID != nil && productID != *filter.ProductID {
		return false
	}
	if filter.From != nil && at.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !at.Before(*filter.To) {
		return false
	}
	return true
}

func inWindow(at time.Time, from time.Time, to time.Time) bool {
	return !at.Before(from) && at.Before(to)
}

func paginate[T any](items []T, skip int, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = 100
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
