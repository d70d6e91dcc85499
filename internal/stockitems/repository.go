package stockitems

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galley-erp/galley-erp/internal/platform/db"
)

// RepositoryPort is the persistence boundary for stock items.
type RepositoryPort interface {
	InsertBatch(ctx context.Context, input BatchInput) ([]StockItem, error)
	DeleteByRef(ctx context.Context, refModule string, refID uuid.UUID) (int64, error)
	ListByWarehouse(ctx context.Context, warehouseID int64, limit, offset int) ([]StockItem, error)
	MarkExpired(ctx context.Context) (int64, error)
}

// PGRepository is the PostgreSQL-backed RepositoryPort.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// InsertBatch creates every item of the batch in one transaction. Either
// all rows exist afterwards or none do.
func (r *PGRepository) InsertBatch(ctx context.Context, input BatchInput) ([]StockItem, error) {
	created := make([]StockItem, 0, len(input.Items))

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, item := range input.Items {
			var si StockItem
			err := tx.QueryRow(ctx, `
				INSERT INTO stock_items
					(product_id, warehouse_id, unit_price, quantity, remaining_qty,
					 expired, expire_at, ref_module, ref_id, created_at)
				VALUES ($1, $2, $3, $4, $4, false, $5, $6, $7, now())
				RETURNING id, product_id, warehouse_id, unit_price, quantity,
					remaining_qty, expired, expire_at, ref_module, ref_id, created_at
			`, item.ProductID, input.WarehouseID, item.UnitPrice, item.Quantity,
				item.ExpireAt, input.RefModule, input.RefID).Scan(
				&si.ID, &si.ProductID, &si.WarehouseID, &si.UnitPrice, &si.Quantity,
				&si.RemainingQty, &si.Expired, &si.ExpireAt, &si.RefModule, &si.RefID, &si.CreatedAt)
			if err != nil {
				return fmt.Errorf("stockitems: insert item: %w", err)
			}
			created = append(created, si)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteByRef removes every stock item materialized by the given
// reference. Used to compensate a failed verification.
func (r *PGRepository) DeleteByRef(ctx context.Context, refModule string, refID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM stock_items WHERE ref_module = $1 AND ref_id = $2
	`, refModule, refID)
	if err != nil {
		return 0, fmt.Errorf("stockitems: delete by ref: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PGRepository) ListByWarehouse(ctx context.Context, warehouseID int64, limit, offset int) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, warehouse_id, unit_price, quantity, remaining_qty,
			expired, expire_at, ref_module, ref_id, created_at
		FROM stock_items
		WHERE warehouse_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, warehouseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("stockitems: list by warehouse: %w", err)
	}
	defer rows.Close()

	var out []StockItem
	for rows.Next() {
		var si StockItem
		if err := rows.Scan(&si.ID, &si.ProductID, &si.WarehouseID, &si.UnitPrice,
			&si.Quantity, &si.RemainingQty, &si.Expired, &si.ExpireAt,
			&si.RefModule, &si.RefID, &si.CreatedAt); err != nil {
			return nil, fmt.Errorf("stockitems: scan item: %w", err)
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

// MarkExpired flips expired on every item whose expire_at has passed.
func (r *PGRepository) MarkExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stock_items
		SET expired = true
		WHERE expired = false AND expire_at IS NOT NULL AND expire_at <= now()
	`)
	if err != nil {
		return 0, fmt.Errorf("stockitems: mark expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
