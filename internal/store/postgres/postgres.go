package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"inventario/backend/internal/domain"
	"inventario/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// querier lets the aggregate queries run either on the pool or inside an
// open transaction, so the period close uses the exact same reads as the
// live summary endpoints.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ---- categorias ----

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categorias (nombre, descripcion, activo, fecha_registro)
		VALUES ($1, $2, true, now())
		RETURNING id_categoria, activo, fecha_registro
	`, category.Name, nullIfEmpty(category.Description)).Scan(&category.ID, &category.Active, &category.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: categoria %q", store.ErrDuplicate, category.Name)
		}
		return nil, err
	}
	category.RegisteredAt = category.RegisteredAt.UTC()
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context, filter store.CategoryFilter) ([]domain.Category, error) {
	query := `
		SELECT id_categoria, nombre, descripcion, activo, fecha_registro
		FROM categorias
	`
	clauses := make([]string, 0, 1)
	args := make([]any, 0, 3)
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("activo = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY nombre ASC"
	args = append(args, normalizeLimit(filter.Limit))
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, normalizeSkip(filter.Skip))
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var category domain.Category
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id_categoria, nombre, descripcion, activo, fecha_registro
		FROM categorias
		WHERE id_categoria = $1
	`, id).Scan(&category.ID, &category.Name, &description, &category.Active, &category.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	category.Description = description.String
	category.RegisteredAt = category.RegisteredAt.UTC()
	return &category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, req domain.CategoryUpdateRequest) (*domain.Category, error) {
	set := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if req.Name != nil {
		args = append(args, *req.Name)
		set = append(set, fmt.Sprintf("nombre = $%d", len(args)))
	}
	if req.Description != nil {
		args = append(args, nullIfEmpty(*req.Description))
		set = append(set, fmt.Sprintf("descripcion = $%d", len(args)))
	}
	if req.Active != nil {
		args = append(args, *req.Active)
		set = append(set, fmt.Sprintf("activo = $%d", len(args)))
	}
	if len(set) == 0 {
		return s.GetCategory(ctx, id)
	}

	args = append(args, id)
	query := "UPDATE categorias SET " + strings.Join(set, ", ") + fmt.Sprintf(" WHERE id_categoria = $%d", len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: categoria name", store.ErrDuplicate)
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetCategory(ctx, id)
}

func (s *Store) DeactivateCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categorias SET activo = false WHERE id_categoria = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- productos ----

const productColumns = `
	p.id_producto, p.codigo_barras, p.nombre, p.descripcion, p.id_categoria,
	p.costo, p.precio_venta, p.stock, p.imagen_url, p.activo,
	p.fecha_registro, p.fecha_modificacion, c.nombre
`

const productFrom = `
	FROM productos p
	LEFT JOIN categorias c ON c.id_categoria = p.id_categoria
`

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO productos (
			codigo_barras, nombre, descripcion, id_categoria, costo, precio_venta,
			stock, imagen_url, activo, fecha_registro, fecha_modificacion
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,true,now(),now())
		RETURNING id_producto
	`, nullIfEmpty(product.Barcode), product.Name, nullIfEmpty(product.Description), product.CategoryID,
		product.Cost, product.SalePrice, product.Stock, nullIfEmpty(product.ImageURL)).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: codigo_barras %q", store.ErrDuplicate, product.Barcode)
		}
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]domain.Product, error) {
	query := "SELECT " + productColumns + productFrom
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("p.activo = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("p.id_categoria = $%d", len(args)))
	}
	if strings.TrimSpace(filter.Name) != "" {
		args = append(args, strings.TrimSpace(filter.Name))
		clauses = append(clauses, fmt.Sprintf("p.nombre ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if filter.MaxStock != nil {
		args = append(args, *filter.MaxStock)
		clauses = append(clauses, fmt.Sprintf("p.stock <= $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY p.nombre ASC"
	args = append(args, normalizeLimit(filter.Limit))
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, normalizeSkip(filter.Skip))
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+productFrom+" WHERE p.id_producto = $1", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return firstProduct(rows)
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+productFrom+" WHERE p.codigo_barras = $1", barcode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return firstProduct(rows)
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (*domain.Product, error) {
	set := make([]string, 0, 9)
	args := make([]any, 0, 9)
	if req.Barcode != nil {
		args = append(args, nullIfEmpty(*req.Barcode))
		set = append(set, fmt.Sprintf("codigo_barras = $%d", len(args)))
	}
	if req.Name != nil {
		args = append(args, *req.Name)
		set = append(set, fmt.Sprintf("nombre = $%d", len(args)))
	}
	if req.Description != nil {
		args = append(args, nullIfEmpty(*req.Description))
		set = append(set, fmt.Sprintf("descripcion = $%d", len(args)))
	}
	if req.CategoryID != nil {
		// id_categoria 0 clears the assignment; real ids start at 1.
		if *req.CategoryID == 0 {
			args = append(args, nil)
		} else {
			args = append(args, *req.CategoryID)
		}
		set = append(set, fmt.Sprintf("id_categoria = $%d", len(args)))
	}
	if req.Cost != nil {
		args = append(args, *req.Cost)
		set = append(set, fmt.Sprintf("costo = $%d", len(args)))
	}
	if req.SalePrice != nil {
		args = append(args, *req.SalePrice)
		set = append(set, fmt.Sprintf("precio_venta = $%d", len(args)))
	}
	if req.ImageURL != nil {
		args = append(args, nullIfEmpty(*req.ImageURL))
		set = append(set, fmt.Sprintf("imagen_url = $%d", len(args)))
	}
	if req.Active != nil {
		args = append(args, *req.Active)
		set = append(set, fmt.Sprintf("activo = $%d", len(args)))
	}
	if len(set) == 0 {
		return s.GetProduct(ctx, id)
	}
	set = append(set, "fecha_modificacion = now()")

	args = append(args, id)
	query := "UPDATE productos SET " + strings.Join(set, ", ") + fmt.Sprintf(" WHERE id_producto = $%d", len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: codigo_barras", store.ErrDuplicate)
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProduct(ctx, id)
}

func (s *Store) DeactivateProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE productos SET activo = false, fecha_modificacion = now() WHERE id_producto = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) (string, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var imageURL sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT imagen_url FROM productos WHERE id_producto = $1 FOR UPDATE
	`, id).Scan(&imageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", err
	}

	var referenced bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM ventas WHERE id_producto = $1)
			OR EXISTS (SELECT 1 FROM compras WHERE id_producto = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return "", err
	}
	if referenced {
		return "", store.ErrProductReferenced
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM productos WHERE id_producto = $1`, id); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return imageURL.String, nil
}

// ---- ventas ----

const saleColumns = `
	v.id_venta, v.id_producto, v.cantidad, v.precio_unitario, v.total,
	v.fecha_venta, v.notas, p.nombre, p.codigo_barras
`

const saleFrom = `
	FROM ventas v
	JOIN productos p ON p.id_producto = v.id_producto
`

func (s *Store) RegisterSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.Sale, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: cantidad must be positive", store.ErrInvalid)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var name string
	var barcode sql.NullString
	var salePrice decimal.Decimal
	var stock int
	var active bool
	err = tx.QueryRowContext(ctx, `
		SELECT nombre, codigo_barras, precio_venta, stock, activo
		FROM productos
		WHERE id_producto = $1
		FOR UPDATE
	`, req.ProductID).Scan(&name, &barcode, &salePrice, &stock, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if !active {
		return nil, store.ErrProductInactive
	}
	if stock < req.Quantity {
		return nil, store.ErrInsufficientStock
	}

	unitPrice := salePrice
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	total := unitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))

	sale := domain.Sale{
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		Total:          total,
		Notes:          req.Notes,
		ProductName:    name,
		ProductBarcode: barcode.String,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ventas (id_producto, cantidad, precio_unitario, total, fecha_venta, notas)
		VALUES ($1,$2,$3,$4,now(),$5)
		RETURNING id_venta, fecha_venta
	`, sale.ProductID, sale.Quantity, sale.UnitPrice, sale.Total, nullIfEmpty(sale.Notes)).Scan(&sale.ID, &sale.SoldAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE productos
		SET stock = stock - $1, fecha_modificacion = now()
		WHERE id_producto = $2
	`, req.Quantity, req.ProductID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	sale.SoldAt = sale.SoldAt.UTC()
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter store.MovementFilter) ([]domain.Sale, error) {
	query := "SELECT " + saleColumns + saleFrom
	clauses, args := movementClauses(filter, "v.id_producto", "v.fecha_venta")
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY v.fecha_venta DESC"
	args = append(args, normalizeLimit(filter.Limit))
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, normalizeSkip(filter.Skip))
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+saleColumns+saleFrom+" WHERE v.id_venta = $1", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, store.ErrNotFound
	}
	sale, err := scanSale(rows)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ---- compras ----

const purchaseColumns = `
	co.id_compra, co.id_producto, co.cantidad, co.costo_unitario, co.total,
	co.fecha_compra, co.notas, p.nombre, p.codigo_barras
`

const purchaseFrom = `
	FROM compras co
	JOIN productos p ON p.id_producto = co.id_producto
`

func (s *Store) RegisterPurchase(ctx context.Context, req domain.PurchaseCreateRequest) (*domain.Purchase, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: cantidad must be positive", store.ErrInvalid)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var name string
	var barcode sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT nombre, codigo_barras
		FROM productos
		WHERE id_producto = $1
		FOR UPDATE
	`, req.ProductID).Scan(&name, &barcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	total := req.UnitCost.Mul(decimal.NewFromInt(int64(req.Quantity)))
	purchase := domain.Purchase{
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		Total:          total,
		Notes:          req.Notes,
		ProductName:    name,
		ProductBarcode: barcode.String,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO compras (id_producto, cantidad, costo_unitario, total, fecha_compra, notas)
		VALUES ($1,$2,$3,$4,now(),$5)
		RETURNING id_compra, fecha_compra
	`, purchase.ProductID, purchase.Quantity, purchase.UnitCost, purchase.Total, nullIfEmpty(purchase.Notes)).Scan(&purchase.ID, &purchase.BoughtAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE productos
		SET stock = stock + $1, fecha_modificacion = now()
		WHERE id_producto = $2
	`, req.Quantity, req.ProductID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	purchase.BoughtAt = purchase.BoughtAt.UTC()
	return &purchase, nil
}

func (s *Store) ListPurchases(ctx context.Context, filter store.MovementFilter) ([]domain.Purchase, error) {
	query := "SELECT " + purchaseColumns + purchaseFrom
	clauses, args := movementClauses(filter, "co.id_producto", "co.fecha_compra")
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY co.fecha_compra DESC"
	args = append(args, normalizeLimit(filter.Limit))
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, normalizeSkip(filter.Skip))
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0, 64)
	for rows.Next() {
		purchase, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

func (s *Store) GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+purchaseColumns+purchaseFrom+" WHERE co.id_compra = $1", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, store.ErrNotFound
	}
	purchase, err := scanPurchase(rows)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// ---- registros financieros ----

func (s *Store) CreateFinancialEntry(ctx context.Context, entry domain.FinancialEntry) (*domain.FinancialEntry, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO registros_financieros (tipo, concepto, monto, descripcion, fecha_registro)
		VALUES ($1,$2,$3,$4,now())
		RETURNING id_registro, fecha_registro
	`, entry.Type, entry.Concept, entry.Amount, nullIfEmpty(entry.Description)).Scan(&entry.ID, &entry.RegisteredAt)
	if err != nil {
		return nil, err
	}
	entry.RegisteredAt = entry.RegisteredAt.UTC()
	return &entry, nil
}

func (s *Store) ListFinancialEntries(ctx context.Context, filter store.EntryFilter) ([]domain.FinancialEntry, error) {
	query := `
		SELECT id_registro, tipo, concepto, monto, descripcion, fecha_registro
		FROM registros_financieros
	`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.Type != "" {
		args = append(args, filter.Type)
		clauses = append(clauses, fmt.Sprintf("tipo = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("fecha_registro >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("fecha_registro < $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY fecha_registro DESC"
	args = append(args, normalizeLimit(filter.Limit))
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, normalizeSkip(filter.Skip))
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.FinancialEntry, 0, 64)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) GetFinancialEntry(ctx context.Context, id int64) (*domain.FinancialEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id_registro, tipo, concepto, monto, descripcion, fecha_registro
		FROM registros_financieros
		WHERE id_registro = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, store.ErrNotFound
	}
	entry, err := scanEntry(rows)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Store) DeleteFinancialEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registros_financieros WHERE id_registro = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- periodos ----

// SummarizePeriod runs all its aggregates inside one read-only
// repeatable-read transaction so the live summary sees a single
// snapshot even while sales and purchases are being registered.
func (s *Store) SummarizePeriod(ctx context.Context, year int, month int, from time.Time, to time.Time) (domain.PeriodSummary, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return domain.PeriodSummary{}, err
	}
	defer func() { _ = tx.Rollback() }()

	summary, err := summarize(ctx, tx, year, month, from, to)
	if err != nil {
		return summary, err
	}
	return summary, tx.Commit()
}

func summarize(ctx context.Context, q querier, year int, month int, from time.Time, to time.Time) (domain.PeriodSummary, error) {
	summary := domain.PeriodSummary{
		Year:      year,
		Month:     month,
		StartDate: from,
		EndDate:   to.AddDate(0, 0, -1),
	}

	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(DISTINCT id_producto)::int
		FROM ventas
		WHERE fecha_venta >= $1 AND fecha_venta < $2
	`, from, to).Scan(&summary.TotalSales, &summary.ProductsSold)
	if err != nil {
		return summary, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM compras
		WHERE fecha_compra >= $1 AND fecha_compra < $2
	`, from, to).Scan(&summary.TotalPurchases)
	if err != nil {
		return summary, err
	}

	entryRows, err := q.QueryContext(ctx, `
		SELECT tipo, COALESCE(SUM(monto), 0)
		FROM registros_financieros
		WHERE fecha_registro >= $1 AND fecha_registro < $2
		GROUP BY tipo
	`, from, to)
	if err != nil {
		return summary, err
	}
	for entryRows.Next() {
		var tipo string
		var amount decimal.Decimal
		if err := entryRows.Scan(&tipo, &amount); err != nil {
			_ = entryRows.Close()
			return summary, err
		}
		switch tipo {
		case domain.EntryTypeInvestment:
			summary.ManualInvestment = amount
		case domain.EntryTypeExpense:
			summary.ManualExpenses = amount
		case domain.EntryTypeGain:
			summary.ManualGains = amount
		}
	}
	if err := entryRows.Err(); err != nil {
		_ = entryRows.Close()
		return summary, err
	}
	_ = entryRows.Close()

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*)::int
		FROM productos
		WHERE fecha_registro >= $1 AND fecha_registro < $2
	`, from, to).Scan(&summary.ProductsRegistered)
	if err != nil {
		return summary, err
	}

	top, err := queryTopProducts(ctx, q, from, to, 8)
	if err != nil {
		return summary, err
	}
	summary.TopProducts = top

	summary.NetProfit = summary.TotalSales.
		Sub(summary.TotalPurchases).
		Add(summary.ManualGains).
		Sub(summary.ManualInvestment).
		Sub(summary.ManualExpenses)

	return summary, nil
}

func queryTopProducts(ctx context.Context, q querier, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 8
	}
	// Ties on quantity break by product id ascending so the ranking is
	// stable across repeated reads.
	rows, err := q.QueryContext(ctx, `
		SELECT v.id_producto, p.nombre, SUM(v.cantidad)::int, COALESCE(SUM(v.total), 0)
		FROM ventas v
		JOIN productos p ON p.id_producto = v.id_producto
		WHERE v.fecha_venta >= $1 AND v.fecha_venta < $2
		GROUP BY v.id_producto, p.nombre
		ORDER BY SUM(v.cantidad) DESC, v.id_producto ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	top := make([]domain.TopProduct, 0, limit)
	for rows.Next() {
		var tp domain.TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.QuantitySold, &tp.Revenue); err != nil {
			return nil, err
		}
		top = append(top, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return top, nil
}

func (s *Store) ClosePeriod(ctx context.Context, year int, month int, from time.Time, to time.Time, notes string) (*domain.MonthlyPeriod, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM periodos_mensuales WHERE anio = $1 AND mes = $2)
	`, year, month).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: periodo %04d-%02d already closed", store.ErrDuplicate, year, month)
	}

	summary, err := summarize(ctx, tx, year, month, from, to)
	if err != nil {
		return nil, err
	}

	topJSON, err := json.Marshal(summary.TopProducts)
	if err != nil {
		return nil, err
	}

	period := domain.MonthlyPeriod{
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
		Notes:              notes,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO periodos_mensuales (
			anio, mes, fecha_inicio, fecha_fin, total_ventas, total_compras,
			total_inversion_manual, total_gastos_manual, total_ganancias_manual,
			ganancia_neta, top_productos, cantidad_productos_vendidos,
			cantidad_productos_registrados, fecha_cierre, notas
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),$14)
		RETURNING id_periodo, fecha_cierre
	`, period.Year, period.Month, period.StartDate, period.EndDate, period.TotalSales,
		period.TotalPurchases, period.ManualInvestment, period.ManualExpenses, period.ManualGains,
		period.NetProfit, topJSON, period.ProductsSold, period.ProductsRegistered,
		nullIfEmpty(period.Notes)).Scan(&period.ID, &period.ClosedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: periodo %04d-%02d already closed", store.ErrDuplicate, year, month)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	period.ClosedAt = period.ClosedAt.UTC()
	return &period, nil
}

const periodColumns = `
	id_periodo, anio, mes, fecha_inicio, fecha_fin, total_ventas, total_compras,
	total_inversion_manual, total_gastos_manual, total_ganancias_manual,
	ganancia_neta, top_productos, cantidad_productos_vendidos,
	cantidad_productos_registrados, fecha_cierre, notas
`

func (s *Store) ListPeriods(ctx context.Context, skip int, limit int) ([]domain.MonthlyPeriod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+periodColumns+`
		FROM periodos_mensuales
		ORDER BY anio DESC, mes DESC
		LIMIT $1 OFFSET $2
	`, normalizeLimit(limit), normalizeSkip(skip))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]domain.MonthlyPeriod, 0, 24)
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return periods, nil
}

func (s *Store) GetPeriod(ctx context.Context, id int64) (*domain.MonthlyPeriod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+periodColumns+`
		FROM periodos_mensuales
		WHERE id_periodo = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, store.ErrNotFound
	}
	period, err := scanPeriod(rows)
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// ---- reportes ----

func (s *Store) InventoryInvestment(ctx context.Context) (domain.InventoryInvestment, error) {
	var inv domain.InventoryInvestment
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(costo * stock), 0), COUNT(*)::int, COALESCE(SUM(stock), 0)::int
		FROM productos
		WHERE activo = true
	`).Scan(&inv.TotalInvestment, &inv.ProductCount, &inv.TotalUnits)
	return inv, err
}

func (s *Store) SalesTotals(ctx context.Context, from time.Time, to time.Time) (domain.MovementTotals, error) {
	var totals domain.MovementTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(*)::int, COALESCE(SUM(cantidad), 0)::int
		FROM ventas
		WHERE fecha_venta >= $1 AND fecha_venta < $2
	`, from, to).Scan(&totals.Total, &totals.Count, &totals.Units)
	return totals, err
}

func (s *Store) PurchaseTotals(ctx context.Context, from time.Time, to time.Time) (domain.MovementTotals, error) {
	var totals domain.MovementTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(*)::int, COALESCE(SUM(cantidad), 0)::int
		FROM compras
		WHERE fecha_compra >= $1 AND fecha_compra < $2
	`, from, to).Scan(&totals.Total, &totals.Count, &totals.Units)
	return totals, err
}

func (s *Store) TopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	return queryTopProducts(ctx, s.db, from, to, limit)
}

func (s *Store) LowStockProducts(ctx context.Context, threshold int) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+productFrom+`
		WHERE p.activo = true AND p.stock <= $1
		ORDER BY p.stock ASC, p.nombre ASC
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// ---- scan helpers ----

func scanCategory(rows *sql.Rows) (domain.Category, error) {
	var category domain.Category
	var description sql.NullString
	if err := rows.Scan(&category.ID, &category.Name, &description, &category.Active, &category.RegisteredAt); err != nil {
		return category, err
	}
	category.Description = description.String
	category.RegisteredAt = category.RegisteredAt.UTC()
	return category, nil
}

func scanProduct(rows *sql.Rows) (domain.Product, error) {
	var product domain.Product
	var barcode, description, imageURL, categoryName sql.NullString
	var categoryID sql.NullInt64
	err := rows.Scan(
		&product.ID, &barcode, &product.Name, &description, &categoryID,
		&product.Cost, &product.SalePrice, &product.Stock, &imageURL, &product.Active,
		&product.RegisteredAt, &product.ModifiedAt, &categoryName,
	)
	if err != nil {
		return product, err
	}
	product.Barcode = barcode.String
	product.Description = description.String
	product.ImageURL = imageURL.String
	product.CategoryName = categoryName.String
	if categoryID.Valid {
		id := categoryID.Int64
		product.CategoryID = &id
	}
	product.RegisteredAt = product.RegisteredAt.UTC()
	product.ModifiedAt = product.ModifiedAt.UTC()
	product.ComputeMargin()
	return product, nil
}

func firstProduct(rows *sql.Rows) (*domain.Product, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, store.ErrNotFound
	}
	product, err := scanProduct(rows)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func scanSale(rows *sql.Rows) (domain.Sale, error) {
	var sale domain.Sale
	var notes, barcode sql.NullString
	err := rows.Scan(
		&sale.ID, &sale.ProductID, &sale.Quantity, &sale.UnitPrice, &sale.Total,
		&sale.SoldAt, &notes, &sale.ProductName, &barcode,
	)
	if err != nil {
		return sale, err
	}
	sale.Notes = notes.String
	sale.ProductBarcode = barcode.String
	sale.SoldAt = sale.SoldAt.UTC()
	return sale, nil
}

func scanPurchase(rows *sql.Rows) (domain.Purchase, error) {
	var purchase domain.Purchase
	var notes, barcode sql.NullString
	err := rows.Scan(
		&purchase.ID, &purchase.ProductID, &purchase.Quantity, &purchase.UnitCost, &purchase.Total,
		&purchase.BoughtAt, &notes, &purchase.ProductName, &barcode,
	)
	if err != nil {
		return purchase, err
	}
	purchase.Notes = notes.String
	purchase.ProductBarcode = barcode.String
	purchase.BoughtAt = purchase.BoughtAt.UTC()
	return purchase, nil
}

func scanEntry(rows *sql.Rows) (domain.FinancialEntry, error) {
	var entry domain.FinancialEntry
	var description sql.NullString
	err := rows.Scan(&entry.ID, &entry.Type, &entry.Concept, &entry.Amount, &description, &entry.RegisteredAt)
	if err != nil {
		return entry, err
	}
	entry.Description = description.String
	entry.RegisteredAt = entry.RegisteredAt.UTC()
	return entry, nil
}

func scanPeriod(rows *sql.Rows) (domain.MonthlyPeriod, error) {
	var period domain.MonthlyPeriod
	var topJSON []byte
	var notes sql.NullString
	err := rows.Scan(
		&period.ID, &period.Year, &period.Month, &period.StartDate, &period.EndDate,
		&period.TotalSales, &period.TotalPurchases, &period.ManualInvestment,
		&period.ManualExpenses, &period.ManualGains, &period.NetProfit, &topJSON,
		&period.ProductsSold, &period.ProductsRegistered, &period.ClosedAt, &notes,
	)
	if err != nil {
		return period, err
	}
	period.TopProducts = make([]domain.TopProduct, 0, 8)
	if len(topJSON) > 0 {
		if err := json.Unmarshal(topJSON, &period.TopProducts); err != nil {
			return period, err
		}
	}
	period.Notes = notes.String
	period.StartDate = period.StartDate.UTC()
	period.EndDate = period.EndDate.UTC()
	period.ClosedAt = period.ClosedAt.UTC()
	return period, nil
}

// ---- misc helpers ----

func movementClauses(filter store.MovementFilter, idColumn string, dateColumn string) ([]string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", idColumn, len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("%s >= $%d", dateColumn, len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("%s < $%d", dateColumn, len(args)))
	}
	return clauses, args
}

func normalizeLimit(limit int) int {
	if limit < 1 {
		return 100
	}
	return limit
}

func normalizeSkip(skip int) int {
	if skip < 0 {
		return 0
	}
	return skip
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
