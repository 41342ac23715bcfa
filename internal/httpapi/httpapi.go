// Package httpapi exposes the inventory service over the JSON surface
// the existing frontends consume. Routes and field names are Spanish.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"inventario/backend/internal/domain"
	"inventario/backend/internal/service"
	"inventario/backend/internal/store"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxImageUploadBytes bounds multipart uploads; JSON bodies stay at 1 MiB.
const maxImageUploadBytes = 8 << 20

type API struct {
	service       *service.Service
	allowedOrigin string
	staticDir     string
}

// New builds the API. staticDir, when non-empty, is served under
// /static/images/ for locally stored product images.
func New(svc *service.Service, allowedOrigin string, staticDir string) *API {
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
		staticDir:     staticDir,
	}
}

func (a *API) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", a.handleHealth)

	mux.HandleFunc("/categorias", a.handleCategories)
	mux.HandleFunc("/categorias/", a.handleCategoryActions)
	mux.HandleFunc("/productos", a.handleProducts)
	mux.HandleFunc("/productos/", a.handleProductActions)
	mux.HandleFunc("/ventas", a.handleSales)
	mux.HandleFunc("/ventas/", a.handleSaleActions)
	mux.HandleFunc("/compras", a.handlePurchases)
	mux.HandleFunc("/compras/", a.handlePurchaseActions)
	mux.HandleFunc("/financiero", a.handleFinancialEntries)
	mux.HandleFunc("/financiero/", a.handleFinancialEntryActions)
	mux.HandleFunc("/periodos", a.handlePeriods)
	mux.HandleFunc("/periodos/", a.handlePeriodActions)

	mux.HandleFunc("/reportes/inversion-inventario", a.handleInventoryInvestment)
	mux.HandleFunc("/reportes/ventas-periodo", a.handleSalesReport)
	mux.HandleFunc("/reportes/compras-periodo", a.handlePurchasesReport)
	mux.HandleFunc("/reportes/ganancia-periodo", a.handleProfitReport)
	mux.HandleFunc("/reportes/top-productos", a.handleTopProducts)
	mux.HandleFunc("/reportes/stock-bajo", a.handleLowStock)

	if a.staticDir != "" {
		mux.Handle("/static/images/", http.StripPrefix("/static/images/", http.FileServer(http.Dir(a.staticDir))))
	}

	return a.withMiddleware(mux)
}

// ---- health ----

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.service.Ping(r.Context()); err != nil {
		log.Printf("health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}

// ---- categorias ----

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := store.CategoryFilter{
			Active: parseOptionalBool(r.URL.Query().Get("activo")),
			Skip:   parseSkip(r.URL.Query().Get("skip")),
			Limit:  parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500),
		}
		categories, err := a.service.ListCategories(r.Context(), filter)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	case http.MethodPost:
		var req domain.CategoryCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := a.service.CreateCategory(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, category)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCategoryActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/categorias/")
	if tail == "" {
		a.handleCategories(w, r)
		return
	}
	id, ok := parseID(w, tail)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		category, err := a.service.GetCategory(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, category)
	case http.MethodPut:
		var req domain.CategoryUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := a.service.UpdateCategory(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, category)
	case http.MethodDelete:
		if err := a.service.DeactivateCategory(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mensaje": "categoria desactivada"})
	default:
		writeMethodNotAllowed(w)
	}
}

// ---- productos ----

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := productFilterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		products, listErr := a.service.ListProducts(r.Context(), filter)
		if listErr != nil {
			a.writeServiceError(w, listErr)
			return
		}
		writeJSON(w, http.StatusOK, products)
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/productos/")
	switch {
	case tail == "":
		a.handleProducts(w, r)
	case tail == "con-imagen":
		a.handleProductCreateWithImage(w, r)
	case strings.HasPrefix(tail, "con-imagen/"):
		a.handleProductUpdateWithImage(w, r, strings.TrimPrefix(tail, "con-imagen/"))
	case strings.HasPrefix(tail, "barcode/"):
		a.handleProductByBarcode(w, r, strings.TrimPrefix(tail, "barcode/"))
	default:
		a.handleProductByID(w, r, tail)
	}
}

func (a *API) handleProductByID(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := a.service.GetProduct(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodPut:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		if parseFlag(r.URL.Query().Get("eliminar_fisicamente")) {
			if err := a.service.DeleteProduct(r.Context(), id); err != nil {
				a.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"mensaje": "producto eliminado permanentemente"})
			return
		}
		if err := a.service.DeactivateProduct(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mensaje": "producto desactivado"})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductByBarcode(w http.ResponseWriter, r *http.Request, barcode string) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	product, err := a.service.GetProductByBarcode(r.Context(), barcode)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleProductCreateWithImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	req, err := productCreateFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile("imagen")
	if err == http.ErrMissingFile {
		product, createErr := a.service.CreateProduct(r.Context(), req)
		if createErr != nil {
			a.writeServiceError(w, createErr)
			return
		}
		writeJSON(w, http.StatusCreated, product)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid imagen field: %w", err))
		return
	}
	defer file.Close()

	product, err := a.service.CreateProductWithImage(r.Context(), req, file, header.Filename, imageContentType(header))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (a *API) handleProductUpdateWithImage(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w)
		return
	}
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	req, err := productUpdateFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	product, err := a.service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	file, header, err := r.FormFile("imagen")
	if err == nil {
		defer file.Close()
		product, err = a.service.UpdateProductImage(r.Context(), id, file, header.Filename, imageContentType(header))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
	} else if err != http.ErrMissingFile {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid imagen field: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// ---- ventas ----

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := movementFilterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sales, listErr := a.service.ListSales(r.Context(), filter)
		if listErr != nil {
			a.writeServiceError(w, listErr)
			return
		}
		writeJSON(w, http.StatusOK, sales)
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.RegisterSale(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/ventas/")
	switch tail {
	case "":
		a.handleSales(w, r)
	case "periodo-actual":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		from, to := a.service.CurrentMonthWindow()
		sales, err := a.service.ListSales(r.Context(), store.MovementFilter{
			From:  &from,
			To:    &to,
			Limit: parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500),
		})
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sales)
	default:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		id, ok := parseID(w, tail)
		if !ok {
			return
		}
		sale, err := a.service.GetSale(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	}
}

// ---- compras ----

func (a *API) handlePurchases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := movementFilterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		purchases, listErr := a.service.ListPurchases(r.Context(), filter)
		if listErr != nil {
			a.writeServiceError(w, listErr)
			return
		}
		writeJSON(w, http.StatusOK, purchases)
	case http.MethodPost:
		var req domain.PurchaseCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		purchase, err := a.service.RegisterPurchase(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, purchase)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handlePurchaseActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/compras/")
	switch tail {
	case "":
		a.handlePurchases(w, r)
	case "periodo-actual":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		from, to := a.service.CurrentMonthWindow()
		purchases, err := a.service.ListPurchases(r.Context(), store.MovementFilter{
			From:  &from,
			To:    &to,
			Limit: parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500),
		})
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, purchases)
	default:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		id, ok := parseID(w, tail)
		if !ok {
			return
		}
		purchase, err := a.service.GetPurchase(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, purchase)
	}
}

// ---- financiero ----

func (a *API) handleFinancialEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := entryFilterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entries, listErr := a.service.ListFinancialEntries(r.Context(), filter)
		if listErr != nil {
			a.writeServiceError(w, listErr)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		var req domain.FinancialEntryCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, err := a.service.CreateFinancialEntry(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleFinancialEntryActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/financiero/")
	switch tail {
	case "":
		a.handleFinancialEntries(w, r)
	case "periodo-actual":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		from, to := a.service.CurrentMonthWindow()
		entries, err := a.service.ListFinancialEntries(r.Context(), store.EntryFilter{
			From:  &from,
			To:    &to,
			Limit: parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500),
		})
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	default:
		id, ok := parseID(w, tail)
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodGet:
			entry, err := a.service.GetFinancialEntry(r.Context(), id)
			if err != nil {
				a.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, entry)
		case http.MethodDelete:
			if err := a.service.DeleteFinancialEntry(r.Context(), id); err != nil {
				a.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"mensaje": "registro eliminado"})
		default:
			writeMethodNotAllowed(w)
		}
	}
}

// ---- periodos ----

func (a *API) handlePeriods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	periods, err := a.service.ListPeriods(r.Context(),
		parseSkip(r.URL.Query().Get("skip")),
		parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

func (a *API) handlePeriodActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/periodos/")
	switch {
	case tail == "":
		a.handlePeriods(w, r)
	case tail == "cerrar":
		a.handlePeriodClose(w, r)
	case tail == "periodo-actual":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		summary, err := a.service.CurrentPeriodSummary(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	case tail == "periodo-actual/excel":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		filename, payload, err := a.service.CurrentPeriodReport(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeExcel(w, filename, payload)
	case strings.HasSuffix(tail, "/excel"):
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		id, ok := parseID(w, strings.TrimSuffix(tail, "/excel"))
		if !ok {
			return
		}
		filename, payload, err := a.service.PeriodReport(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeExcel(w, filename, payload)
	default:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		id, ok := parseID(w, tail)
		if !ok {
			return
		}
		period, err := a.service.GetPeriod(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, period)
	}
}

func (a *API) handlePeriodClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.PeriodCloseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	period, err := a.service.ClosePeriod(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, period)
}

// ---- reportes ----

func (a *API) handleInventoryInvestment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	investment, err := a.service.InventoryInvestment(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, investment)
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	year, month := a.yearMonthFromQuery(r)
	totals, err := a.service.SalesReport(r.Context(), year, month)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (a *API) handlePurchasesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	year, month := a.yearMonthFromQuery(r)
	totals, err := a.service.PurchasesReport(r.Context(), year, month)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (a *API) handleProfitReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	year, month := a.yearMonthFromQuery(r)
	summary, err := a.service.PeriodSummary(r.Context(), year, month)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	year, month := a.yearMonthFromQuery(r)
	limit := parsePositiveLimit(r.URL.Query().Get("limite"), 8, 50)
	top, err := a.service.TopProducts(r.Context(), year, month, limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	threshold := 3
	if raw := strings.TrimSpace(r.URL.Query().Get("minimo")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid minimo %q", raw))
			return
		}
		threshold = parsed
	}
	products, err := a.service.LowStockProducts(r.Context(), threshold)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// ---- query parsing ----

func (a *API) yearMonthFromQuery(r *http.Request) (int, int) {
	year, month := a.service.CurrentYearMonth()
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("anio")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			year = parsed
		}
	}
	if raw := strings.TrimSpace(q.Get("mes")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			month = parsed
		}
	}
	return year, month
}

func productFilterFromQuery(r *http.Request) (store.ProductFilter, error) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		Active: parseOptionalBool(q.Get("activo")),
		Name:   strings.TrimSpace(q.Get("nombre")),
		Skip:   parseSkip(q.Get("skip")),
		Limit:  parsePositiveLimit(q.Get("limit"), 100, 500),
	}
	if raw := strings.TrimSpace(q.Get("id_categoria")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid id_categoria %q", raw)
		}
		filter.CategoryID = &id
	}
	if raw := strings.TrimSpace(q.Get("stock_minimo")); raw != "" {
		max, err := strconv.Atoi(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid stock_minimo %q", raw)
		}
		filter.MaxStock = &max
	}
	return filter, nil
}

func movementFilterFromQuery(r *http.Request) (store.MovementFilter, error) {
	q := r.URL.Query()
	filter := store.MovementFilter{
		Skip:  parseSkip(q.Get("skip")),
		Limit: parsePositiveLimit(q.Get("limit"), 100, 500),
	}
	if raw := strings.TrimSpace(q.Get("id_producto")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid id_producto %q", raw)
		}
		filter.ProductID = &id
	}
	var err error
	if filter.From, err = parseOptionalDate(q.Get("fecha_inicio")); err != nil {
		return filter, err
	}
	if filter.To, err = parseOptionalDate(q.Get("fecha_fin")); err != nil {
		return filter, err
	}
	return filter, nil
}

func entryFilterFromQuery(r *http.Request) (store.EntryFilter, error) {
	q := r.URL.Query()
	filter := store.EntryFilter{
		Type:  strings.TrimSpace(q.Get("tipo")),
		Skip:  parseSkip(q.Get("skip")),
		Limit: parsePositiveLimit(q.Get("limit"), 100, 500),
	}
	var err error
	if filter.From, err = parseOptionalDate(q.Get("fecha_inicio")); err != nil {
		return filter, err
	}
	if filter.To, err = parseOptionalDate(q.Get("fecha_fin")); err != nil {
		return filter, err
	}
	return filter, nil
}

// ---- multipart form parsing ----

func productCreateFromForm(r *http.Request) (domain.ProductCreateRequest, error) {
	req := domain.ProductCreateRequest{
		Barcode:     r.FormValue("codigo_barras"),
		Name:        r.FormValue("nombre"),
		Description: r.FormValue("descripcion"),
	}

	if raw := strings.TrimSpace(r.FormValue("id_categoria")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid id_categoria %q", raw)
		}
		req.CategoryID = &id
	}

	var err error
	if req.Cost, err = parseFormDecimal(r, "costo"); err != nil {
		return req, err
	}
	if req.SalePrice, err = parseFormDecimal(r, "precio_venta"); err != nil {
		return req, err
	}
	if raw := strings.TrimSpace(r.FormValue("stock")); raw != "" {
		if req.Stock, err = strconv.Atoi(raw); err != nil {
			return req, fmt.Errorf("invalid stock %q", raw)
		}
	}
	return req, nil
}

func productUpdateFromForm(r *http.Request) (domain.ProductUpdateRequest, error) {
	var req domain.ProductUpdateRequest

	if v, ok := formValue(r, "codigo_barras"); ok {
		req.Barcode = &v
	}
	if v, ok := formValue(r, "nombre"); ok {
		req.Name = &v
	}
	if v, ok := formValue(r, "descripcion"); ok {
		req.Description = &v
	}
	if v, ok := formValue(r, "id_categoria"); ok {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid id_categoria %q", v)
		}
		req.CategoryID = &id
	}
	if v, ok := formValue(r, "costo"); ok {
		cost, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return req, fmt.Errorf("invalid costo %q", v)
		}
		req.Cost = &cost
	}
	if v, ok := formValue(r, "precio_venta"); ok {
		price, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return req, fmt.Errorf("invalid precio_venta %q", v)
		}
		req.SalePrice = &price
	}
	if v, ok := formValue(r, "activo"); ok {
		active := parseFlag(v)
		req.Active = &active
	}
	return req, nil
}

func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func parseFormDecimal(r *http.Request, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", key, raw)
	}
	return value, nil
}

func imageContentType(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return header.Header.Get("Content-Type")
}

// ---- shared helpers ----

func pathTail(path string, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func parseOptionalBool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "si":
		return true
	}
	return false
}

func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", raw)
	}
	return &t, nil
}

func parseSkip(raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
		return parsed
	}
	return 0
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrProductInactive),
		errors.Is(err, store.ErrProductReferenced),
		errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeExcel(w http.ResponseWriter, filename string, payload []byte) {
	w.Header().Set("Content-Type", excelContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		contentType := strings.ToLower(r.Header.Get("Content-Type"))
		switch {
		case strings.Contains(contentType, "multipart/form-data"):
			r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadBytes)
		case r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete:
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}
