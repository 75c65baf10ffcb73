package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"atelier/internal/domain"
)

// Fixed-width UTC layout so created_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const queryTimeout = 3 * time.Second

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlTxKey struct{}

// SQLiteStore хранит товары в SQLite
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore { return &SQLiteStore{db: db} }

// q returns the transaction carried by ctx, if any, else the pool.
func (s *SQLiteStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return s.db
}

var _ ProductRepository = (*SQLiteStore)(nil)

func (s *SQLiteStore) Create(ctx context.Context, p *domain.Product) error {
	if p == nil {
		return errors.New("product is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	colors, err := marshalColors(p.Colors)
	if err != nil {
		return err
	}
	res, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO products (id, title, cover_image, colors, price, created_at) VALUES (?,?,?,?,?,?)
		 ON CONFLICT(id) DO NOTHING`,
		p.ID, p.Title, p.CoverImage, colors, p.Price.String(), p.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return requireInserted(res)
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, title, cover_image, colors, price, created_at FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) Update(ctx context.Context, p *domain.Product) error {
	if p == nil {
		return errors.New("product is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	colors, err := marshalColors(p.Colors)
	if err != nil {
		return err
	}
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE products SET title = ?, cover_image = ?, colors = ?, price = ? WHERE id = ?`,
		p.Title, p.CoverImage, colors, p.Price.String(), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	var created string
	if err := s.q(ctx).QueryRowContext(ctx, `SELECT created_at FROM products WHERE id = ?`, p.ID).Scan(&created); err != nil {
		return err
	}
	p.CreatedAt, err = time.Parse(timeLayout, created)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, title, cover_image, colors, price, created_at FROM products`)
	if f.TitleSubstring != "" {
		sb.WriteString(` WHERE LOWER(title) LIKE ?`)
		args = append(args, "%"+strings.ToLower(f.TitleSubstring)+"%")
	}
	sb.WriteString(` ORDER BY title`)
	rows, err := s.q(ctx).QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		// price is stored as text; compare as decimals
		if !f.match(*p) {
			continue
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SQLiteOrders хранит заказы как документы: позиции, адрес и карты вариантов в JSON-колонках
type SQLiteOrders struct{ store *SQLiteStore }

func NewSQLiteOrders(store *SQLiteStore) *SQLiteOrders { return &SQLiteOrders{store: store} }

var _ OrderRepository = (*SQLiteOrders)(nil)

const orderColumns = `id, name, email, phone, address, line_items, total_price, is_paid, is_delivered, progress, assignments, created_at, updated_at`

func (so *SQLiteOrders) Create(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("order is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	doc, err := encodeOrder(o)
	if err != nil {
		return err
	}
	res, err := so.store.q(ctx).ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?) ON CONFLICT(id) DO NOTHING`,
		o.ID, o.Name, o.Email, o.Phone, doc.address, doc.lineItems, o.TotalPrice.String(),
		o.IsPaid, o.IsDelivered, doc.progress, doc.assignments,
		o.CreatedAt.Format(timeLayout), o.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return requireInserted(res)
}

func (so *SQLiteOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := so.store.q(ctx).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (so *SQLiteOrders) Update(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("order is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	o.UpdatedAt = time.Now().UTC()
	doc, err := encodeOrder(o)
	if err != nil {
		return err
	}
	res, err := so.store.q(ctx).ExecContext(ctx,
		`UPDATE orders SET name = ?, email = ?, phone = ?, address = ?, line_items = ?, total_price = ?,
		 is_paid = ?, is_delivered = ?, progress = ?, assignments = ?, updated_at = ? WHERE id = ?`,
		o.Name, o.Email, o.Phone, doc.address, doc.lineItems, o.TotalPrice.String(),
		o.IsPaid, o.IsDelivered, doc.progress, doc.assignments, o.UpdatedAt.Format(timeLayout), o.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return requireAffected(res)
}

func (so *SQLiteOrders) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := so.store.q(ctx).ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return requireAffected(res)
}

func (so *SQLiteOrders) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return so.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE email = ? ORDER BY created_at DESC, id DESC`, email)
}

func (so *SQLiteOrders) List(ctx context.Context) ([]domain.Order, error) {
	return so.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (so *SQLiteOrders) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := so.store.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// SQLiteTx runs fn inside BEGIN/COMMIT; repositories pick the tx up from ctx.
type SQLiteTx struct{ store *SQLiteStore }

func NewSQLiteTx(store *SQLiteStore) *SQLiteTx { return &SQLiteTx{store: store} }

func (t *SQLiteTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (*domain.Product, error) {
	var (
		p                      domain.Product
		colors, price, created string
	)
	if err := r.Scan(&p.ID, &p.Title, &p.CoverImage, &colors, &price, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(colors), &p.Colors); err != nil {
		return nil, fmt.Errorf("decode colors of product %s: %w", p.ID, err)
	}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("decode price of product %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, err
	}
	return &p, nil
}

type orderDoc struct {
	address, lineItems, progress, assignments string
}

func encodeOrder(o *domain.Order) (orderDoc, error) {
	var (
		doc orderDoc
		err error
	)
	if doc.address, err = marshalJSON(o.Address); err != nil {
		return doc, err
	}
	items := o.LineItems
	if items == nil {
		items = []domain.LineItem{}
	}
	if doc.lineItems, err = marshalJSON(items); err != nil {
		return doc, err
	}
	progress := o.ProgressByVariant
	if progress == nil {
		progress = domain.ProgressMap{}
	}
	if doc.progress, err = marshalJSON(progress); err != nil {
		return doc, err
	}
	assignments := o.AssignmentByVariant
	if assignments == nil {
		assignments = domain.AssignmentMap{}
	}
	if doc.assignments, err = marshalJSON(assignments); err != nil {
		return doc, err
	}
	return doc, nil
}

func scanOrder(r rowScanner) (*domain.Order, error) {
	var (
		o       domain.Order
		doc     orderDoc
		total   string
		created string
		updated string
	)
	err := r.Scan(&o.ID, &o.Name, &o.Email, &o.Phone, &doc.address, &doc.lineItems, &total,
		&o.IsPaid, &o.IsDelivered, &doc.progress, &doc.assignments, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(doc.address), &o.Address); err != nil {
		return nil, fmt.Errorf("decode address of order %s: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(doc.lineItems), &o.LineItems); err != nil {
		return nil, fmt.Errorf("decode line items of order %s: %w", o.ID, err)
	}
	o.ProgressByVariant = domain.ProgressMap{}
	if err := json.Unmarshal([]byte(doc.progress), &o.ProgressByVariant); err != nil {
		return nil, fmt.Errorf("decode progress of order %s: %w", o.ID, err)
	}
	o.AssignmentByVariant = domain.AssignmentMap{}
	if err := json.Unmarshal([]byte(doc.assignments), &o.AssignmentByVariant); err != nil {
		return nil, fmt.Errorf("decode assignments of order %s: %w", o.ID, err)
	}
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("decode total of order %s: %w", o.ID, err)
	}
	if o.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, err
	}
	return &o, nil
}

func marshalColors(colors []domain.Color) (string, error) {
	if colors == nil {
		colors = []domain.Color{}
	}
	return marshalJSON(colors)
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// requireInserted maps an insert skipped by ON CONFLICT DO NOTHING to ErrConflict.
func requireInserted(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
