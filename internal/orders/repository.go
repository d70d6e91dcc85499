package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galley-erp/galley-erp/internal/platform/db"
)

// RepositoryPort is the persistence boundary for orders.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	StatusHistory(ctx context.Context, id int64) ([]StatusChange, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Order, int64, error)
	CountByStatus(ctx context.Context, filter ListFilter) (map[Status]int64, error)
	SumPaidBetween(ctx context.Context, filter ListFilter, from, to time.Time) (float64, error)
}

// TxRepository exposes the write operations available inside WithTx.
type TxRepository interface {
	CreateOrder(ctx context.Context, supplier string, warehouseID int64, notes []string) (Order, error)
	InsertItem(ctx context.Context, orderID int64, item ItemInput) error
	ReplaceItems(ctx context.Context, orderID int64, items []ItemInput) error
	SetStaff(ctx context.Context, orderID, staffID int64) error
	SetReceipt(ctx context.Context, orderID int64, receiptURL string) error
	SetTotal(ctx context.Context, orderID int64, total float64) error
	AppendNote(ctx context.Context, orderID int64, note string) error
	// UpdateStatus moves the order from→to only when it is still in
	// from, returning whether the update applied.
	UpdateStatus(ctx context.Context, orderID int64, from, to Status) (bool, error)
	AppendHistory(ctx context.Context, orderID int64, to Status, actorID *int64) error
}

// PGRepository is the PostgreSQL-backed RepositoryPort.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) WithTx(ctx context.Context, fn func(TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgTxRepository{tx: tx})
	})
}

const orderColumns = `
	id, number, supplier, warehouse_id, status, total, notes, receipt_url,
	assigned_staff_id, version, created_at, updated_at,
	assigned_at, pending_review_at, verified_at, paid_at, canceled_at
`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.Supplier, &o.WarehouseID, &o.Status,
		&o.Total, &o.Notes, &o.ReceiptURL, &o.AssignedStaffID, &o.Version,
		&o.CreatedAt, &o.UpdatedAt, &o.AssignedAt, &o.PendingReviewAt,
		&o.VerifiedAt, &o.PaidAt, &o.CanceledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: scan order: %w", err)
	}
	return o, nil
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1
	`, id))
	if err != nil {
		return Order{}, err
	}

	items, err := r.itemsFor(ctx, id)
	if err != nil {
		return Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *PGRepository) itemsFor(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, expire_at
		FROM purchase_order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: list items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.ExpireAt); err != nil {
			return nil, fmt.Errorf("orders: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepository) StatusHistory(ctx context.Context, id int64) ([]StatusChange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor_id, at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY at, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("orders: status history: %w", err)
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var sc StatusChange
		if err := rows.Scan(&sc.ID, &sc.OrderID, &sc.From, &sc.To, &sc.ActorID, &sc.At); err != nil {
			return nil, fmt.Errorf("orders: scan history: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// listWhere builds the WHERE clause shared by the listing and the
// stats aggregates. It returns the clause, its arguments, and the next
// positional argument number.
func listWhere(filter ListFilter) (string, []any, int) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	addArg := func(clause string, value any) {
		where += fmt.Sprintf(clause, argNum)
		args = append(args, value)
		argNum++
	}
	if filter.Status != nil {
		addArg(" AND status = $%d", *filter.Status)
	}
	if filter.StaffID != nil {
		addArg(" AND assigned_staff_id = $%d", *filter.StaffID)
	}
	if filter.Supplier != "" {
		addArg(" AND supplier = $%d", filter.Supplier)
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (supplier ILIKE $%d OR number ILIKE $%d)", argNum, argNum)
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}
	if filter.DateFrom != nil {
		addArg(" AND created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		addArg(" AND created_at < $%d", *filter.DateTo)
	}
	return where, args, argNum
}

func (r *PGRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Order, int64, error) {
	where, args, argNum := listWhere(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM purchase_orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("orders: count list: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM purchase_orders` + where
	query += " ORDER BY " + listSortOrder(filter.SortBy, filter.Order)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("orders: list: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, order)
	}
	return out, total, rows.Err()
}

// listSortOrder maps user-supplied sort keys onto a fixed ORDER BY
// clause. Unknown keys fall back to newest first.
func listSortOrder(sortBy, order string) string {
	column := "created_at"
	switch sortBy {
	case "total":
		column = "total"
	case "updated_at":
		column = "updated_at"
	case "created_at", "":
	default:
		column = "created_at"
	}
	direction := "DESC"
	if order == "asc" {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", column, direction, direction)
}

func (r *PGRepository) CountByStatus(ctx context.Context, filter ListFilter) (map[Status]int64, error) {
	where, args, _ := listWhere(filter)
	rows, err := r.pool.Query(ctx,
		`SELECT status, count(*) FROM purchase_orders`+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("orders: count by status: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int64{}
	for rows.Next() {
		var (
			status Status
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("orders: scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *PGRepository) SumPaidBetween(ctx context.Context, filter ListFilter, from, to time.Time) (float64, error) {
	where, args, argNum := listWhere(filter)
	query := fmt.Sprintf(
		`SELECT COALESCE(sum(total), 0) FROM purchase_orders%s AND status = 'paid' AND paid_at >= $%d AND paid_at < $%d`,
		where, argNum, argNum+1)
	args = append(args, from, to)

	var sum float64
	err := r.pool.QueryRow(ctx, query, args...).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("orders: sum paid: %w", err)
	}
	return sum, nil
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) CreateOrder(ctx context.Context, supplier string, warehouseID int64, notes []string) (Order, error) {
	if notes == nil {
		notes = []string{}
	}
	return scanOrder(r.tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (number, supplier, warehouse_id, status, total, notes, version, created_at, updated_at)
		VALUES (
			'PO-' || to_char(now(), 'YYYYMMDD') || '-' || lpad(nextval('order_number_seq')::text, 4, '0'),
			$1, $2, 'not_assigned', 0, $3, 1, now(), now()
		)
		RETURNING `+orderColumns+`
	`, supplier, warehouseID, notes))
}

func (r *pgTxRepository) InsertItem(ctx context.Context, orderID int64, item ItemInput) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO purchase_order_items (order_id, product_id, quantity, unit_price, expire_at)
		VALUES ($1, $2, $3, $4, $5)
	`, orderID, item.ProductID, item.Quantity, item.UnitPrice, item.ExpireAt)
	if err != nil {
		return fmt.Errorf("orders: insert item: %w", err)
	}
	return nil
}

func (r *pgTxRepository) ReplaceItems(ctx context.Context, orderID int64, items []ItemInput) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("orders: clear items: %w", err)
	}
	for _, item := range items {
		if err := r.InsertItem(ctx, orderID, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgTxRepository) SetStaff(ctx context.Context, orderID, staffID int64) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE purchase_orders SET assigned_staff_id = $2, updated_at = now() WHERE id = $1
	`, orderID, staffID)
	if err != nil {
		return fmt.Errorf("orders: set staff: %w", err)
	}
	return nil
}

func (r *pgTxRepository) SetReceipt(ctx context.Context, orderID int64, receiptURL string) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE purchase_orders SET receipt_url = $2, updated_at = now() WHERE id = $1
	`, orderID, receiptURL)
	if err != nil {
		return fmt.Errorf("orders: set receipt: %w", err)
	}
	return nil
}

func (r *pgTxRepository) SetTotal(ctx context.Context, orderID int64, total float64) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE purchase_orders SET total = $2, updated_at = now() WHERE id = $1
	`, orderID, total)
	if err != nil {
		return fmt.Errorf("orders: set total: %w", err)
	}
	return nil
}

func (r *pgTxRepository) AppendNote(ctx context.Context, orderID int64, note string) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE purchase_orders SET notes = array_append(notes, $2), updated_at = now() WHERE id = $1
	`, orderID, note)
	if err != nil {
		return fmt.Errorf("orders: append note: %w", err)
	}
	return nil
}

// UpdateStatus is a compare-and-set: the row moves only if it is still
// in from. The stage timestamp for to is set on first entry.
func (r *pgTxRepository) UpdateStatus(ctx context.Context, orderID int64, from, to Status) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
		UPDATE purchase_orders SET
			status = $3,
			version = version + 1,
			updated_at = now(),
			assigned_at = CASE WHEN $3 = 'assigned' THEN COALESCE(assigned_at, now()) ELSE assigned_at END,
			pending_review_at = CASE WHEN $3 = 'pending_review' THEN COALESCE(pending_review_at, now()) ELSE pending_review_at END,
			verified_at = CASE WHEN $3 = 'verified' THEN COALESCE(verified_at, now()) ELSE verified_at END,
			paid_at = CASE WHEN $3 = 'paid' THEN COALESCE(paid_at, now()) ELSE paid_at END,
			canceled_at = CASE WHEN $3 = 'canceled' THEN COALESCE(canceled_at, now()) ELSE canceled_at END
		WHERE id = $1 AND status = $2
	`, orderID, from, to)
	if err != nil {
		return false, fmt.Errorf("orders: update status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AppendHistory records the transition. The first recorded entry for an
// order carries a NULL from_status; later entries record the previous
// entry's to_status.
func (r *pgTxRepository) AppendHistory(ctx context.Context, orderID int64, to Status, actorID *int64) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor_id, at)
		VALUES (
			$1,
			(SELECT to_status FROM order_status_history WHERE order_id = $1 ORDER BY at DESC, id DESC LIMIT 1),
			$2, $3, now()
		)
	`, orderID, to, actorID)
	if err != nil {
		return fmt.Errorf("orders: append history: %w", err)
	}
	return nil
}
