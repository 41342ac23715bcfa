package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// The API serializes money as plain JSON numbers (15.50, not "15.50"),
// matching what existing clients of the Spanish-surface API expect.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Financial entry types accepted by the manual ledger.
const (
	EntryTypeInvestment = "inversion"
	EntryTypeExpense    = "gasto"
	EntryTypeGain       = "ganancia"
	EntryTypeAdjustment = "ajuste"
)

type Category struct {
	ID           int64     `json:"id_categoria"`
	Name         string    `json:"nombre"`
	Description  string    `json:"descripcion,omitempty"`
	Active       bool      `json:"activo"`
	RegisteredAt time.Time `json:"fecha_registro"`
}

type CategoryCreateRequest struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion,omitempty"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"nombre,omitempty"`
	Description *string `json:"descripcion,omitempty"`
	Active      *bool   `json:"activo,omitempty"`
}

type Product struct {
	ID           int64           `json:"id_producto"`
	Barcode      string          `json:"codigo_barras,omitempty"`
	Name         string          `json:"nombre"`
	Description  string          `json:"descripcion,omitempty"`
	CategoryID   *int64          `json:"id_categoria"`
	Cost         decimal.Decimal `json:"costo"`
	SalePrice    decimal.Decimal `json:"precio_venta"`
	Stock        int             `json:"stock"`
	ImageURL     string          `json:"imagen_url,omitempty"`
	Active       bool            `json:"activo"`
	RegisteredAt time.Time       `json:"fecha_registro"`
	ModifiedAt   time.Time       `json:"fecha_modificacion"`

	// Derived fields, populated on read.
	CategoryName  string          `json:"categoria_nombre,omitempty"`
	Margin        decimal.Decimal `json:"margen_ganancia"`
	MarginPercent float64         `json:"porcentaje_ganancia"`
}

// ComputeMargin fills the derived margin fields from cost and sale price.
// The percentage is zero when cost is zero to avoid dividing by it.
func (p *Product) ComputeMargin() {
	p.Margin = p.SalePrice.Sub(p.Cost)
	if p.Cost.IsZero() {
		p.MarginPercent = 0
		return
	}
	p.MarginPercent, _ = p.Margin.Div(p.Cost).Mul(decimal.NewFromInt(100)).Round(2).Float64()
}

type ProductCreateRequest struct {
	Barcode     string          `json:"codigo_barras,omitempty"`
	Name        string          `json:"nombre"`
	Description string          `json:"descripcion,omitempty"`
	CategoryID  *int64          `json:"id_categoria,omitempty"`
	Cost        decimal.Decimal `json:"costo"`
	SalePrice   decimal.Decimal `json:"precio_venta"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imagen_url,omitempty"`
}

type ProductUpdateRequest struct {
	Barcode     *string          `json:"codigo_barras,omitempty"`
	Name        *string          `json:"nombre,omitempty"`
	Description *string          `json:"descripcion,omitempty"`
	CategoryID  *int64           `json:"id_categoria,omitempty"`
	Cost        *decimal.Decimal `json:"costo,omitempty"`
	SalePrice   *decimal.Decimal `json:"precio_venta,omitempty"`
	ImageURL    *string          `json:"imagen_url,omitempty"`
	Active      *bool            `json:"activo,omitempty"`
}

type Sale struct {
	ID        int64           `json:"id_venta"`
	ProductID int64           `json:"id_producto"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio_unitario"`
	Total     decimal.Decimal `json:"total"`
	SoldAt    time.Time       `json:"fecha_venta"`
	Notes     string          `json:"notas,omitempty"`

	ProductName    string `json:"producto_nombre,omitempty"`
	ProductBarcode string `json:"producto_codigo_barras,omitempty"`
}

// SaleCreateRequest registers a sale. When UnitPrice is nil the product's
// current sale price is snapshotted at registration time.
type SaleCreateRequest struct {
	ProductID int64            `json:"id_producto"`
	Quantity  int              `json:"cantidad"`
	UnitPrice *decimal.Decimal `json:"precio_unitario,omitempty"`
	Notes     string           `json:"notas,omitempty"`
}

type Purchase struct {
	ID        int64           `json:"id_compra"`
	ProductID int64           `json:"id_producto"`
	Quantity  int             `json:"cantidad"`
	UnitCost  decimal.Decimal `json:"costo_unitario"`
	Total     decimal.Decimal `json:"total"`
	BoughtAt  time.Time       `json:"fecha_compra"`
	Notes     string          `json:"notas,omitempty"`

	ProductName    string `json:"producto_nombre,omitempty"`
	ProductBarcode string `json:"producto_codigo_barras,omitempty"`
}

type PurchaseCreateRequest struct {
	ProductID int64           `json:"id_producto"`
	Quantity  int             `json:"cantidad"`
	UnitCost  decimal.Decimal `json:"costo_unitario"`
	Notes     string          `json:"notas,omitempty"`
}

type FinancialEntry struct {
	ID           int64           `json:"id_registro"`
	Type         string          `json:"tipo"`
	Concept      string          `json:"concepto"`
	Amount       decimal.Decimal `json:"monto"`
	Description  string          `json:"descripcion,omitempty"`
	RegisteredAt time.Time       `json:"fecha_registro"`
}

type FinancialEntryCreateRequest struct {
	Type        string          `json:"tipo"`
	Concept     string          `json:"concepto"`
	Amount      decimal.Decimal `json:"monto"`
	Description string          `json:"descripcion,omitempty"`
}

type TopProduct struct {
	ProductID    int64           `json:"id_producto"`
	Name         string          `json:"nombre"`
	QuantitySold int             `json:"cantidad_vendida"`
	Revenue      decimal.Decimal `json:"total_vendido"`
}

type MonthlyPeriod struct {
	ID                 int64           `json:"id_periodo"`
	Year               int             `json:"anio"`
	Month              int             `json:"mes"`
	StartDate          time.Time       `json:"fecha_inicio"`
	EndDate            time.Time       `json:"fecha_fin"`
	TotalSales         decimal.Decimal `json:"total_ventas"`
	TotalPurchases     decimal.Decimal `json:"total_compras"`
	ManualInvestment   decimal.Decimal `json:"total_inversion_manual"`
	ManualExpenses     decimal.Decimal `json:"total_gastos_manual"`
	ManualGains        decimal.Decimal `json:"total_ganancias_manual"`
	NetProfit          decimal.Decimal `json:"ganancia_neta"`
	TopProducts        []TopProduct    `json:"top_productos"`
	ProductsSold       int             `json:"cantidad_productos_vendidos"`
	ProductsRegistered int             `json:"cantidad_productos_registrados"`
	ClosedAt           time.Time       `json:"fecha_cierre"`
	Notes              string          `json:"notas,omitempty"`
}

type PeriodCloseRequest struct {
	Year  int    `json:"anio"`
	Month int    `json:"mes"`
	Notes string `json:"notas,omitempty"`
}

// PeriodSummary is the live aggregate over a month window. At close time
// the snapshot row is built from the same figures.
type PeriodSummary struct {
	Year               int             `json:"anio"`
	Month              int             `json:"mes"`
	StartDate          time.Time       `json:"fecha_inicio"`
	EndDate            time.Time       `json:"fecha_fin"`
	TotalSales         decimal.Decimal `json:"total_ventas"`
	TotalPurchases     decimal.Decimal `json:"total_compras"`
	ManualInvestment   decimal.Decimal `json:"total_inversion_manual"`
	ManualExpenses     decimal.Decimal `json:"total_gastos_manual"`
	ManualGains        decimal.Decimal `json:"total_ganancias_manual"`
	NetProfit          decimal.Decimal `json:"ganancia_neta"`
	TopProducts        []TopProduct    `json:"top_productos"`
	ProductsSold       int             `json:"cantidad_productos_vendidos"`
	ProductsRegistered int             `json:"cantidad_productos_registrados"`
}

type InventoryInvestment struct {
	TotalInvestment decimal.Decimal `json:"inversion_total"`
	ProductCount    int             `json:"cantidad_productos"`
	TotalUnits      int             `json:"unidades_totales"`
}

type MovementTotals struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"cantidad_movimientos"`
	Units int             `json:"unidades"`
}

// IsValidEntryType reports whether tipo is one of the accepted ledger types.
func IsValidEntryType(tipo string) bool {
	switch tipo {
	case EntryTypeInvestment, EntryTypeExpense, EntryTypeGain, EntryTypeAdjustment:
		return true
	}
	return false
}
