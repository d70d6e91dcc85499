package stockitems

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryStockRepo struct {
	nextID int64
	items  []StockItem
	now    time.Time
}

func (r *memoryStockRepo) InsertBatch(_ context.Context, input BatchInput) ([]StockItem, error) {
	var created []StockItem
	for _, item := range input.Items {
		r.nextID++
		created = append(created, StockItem{
			ID:           r.nextID,
			ProductID:    item.ProductID,
			WarehouseID:  input.WarehouseID,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			RemainingQty: item.Quantity,
			ExpireAt:     item.ExpireAt,
			RefModule:    input.RefModule,
			RefID:        input.RefID,
			CreatedAt:    r.now,
		})
	}
	r.items = append(r.items, created...)
	return created, nil
}

func (r *memoryStockRepo) DeleteByRef(_ context.Context, refModule string, refID uuid.UUID) (int64, error) {
	var kept []StockItem
	var removed int64
	for _, si := range r.items {
		if si.RefModule == refModule && si.RefID != nil && *si.RefID == refID {
			removed++
			continue
		}
		kept = append(kept, si)
	}
	r.items = kept
	return removed, nil
}

func (r *memoryStockRepo) ListByWarehouse(_ context.Context, warehouseID int64, limit, offset int) ([]StockItem, error) {
	var out []StockItem
	for _, si := range r.items {
		if si.WarehouseID == warehouseID {
			out = append(out, si)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryStockRepo) MarkExpired(_ context.Context) (int64, error) {
	var n int64
	for i := range r.items {
		si := &r.items[i]
		if !si.Expired && si.ExpireAt != nil && !si.ExpireAt.After(r.now) {
			si.Expired = true
			n++
		}
	}
	return n, nil
}

func newTestService(repo *memoryStockRepo) *Service {
	return NewService(repo, nil, nil)
}

func TestCreateBatch(t *testing.T) {
	repo := &memoryStockRepo{now: time.Now()}
	svc := newTestService(repo)

	created, err := svc.CreateBatch(context.Background(), nil, BatchInput{
		WarehouseID: 1,
		RefModule:   "orders",
		Items: []ItemInput{
			{ProductID: 10, UnitPrice: 2.5, Quantity: 4},
			{ProductID: 11, UnitPrice: 1.0, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, 4.0, created[0].RemainingQty)
	require.Equal(t, int64(1), created[0].WarehouseID)
}

func TestCreateBatchValidation(t *testing.T) {
	svc := newTestService(&memoryStockRepo{now: time.Now()})
	ctx := context.Background()

	_, err := svc.CreateBatch(ctx, nil, BatchInput{WarehouseID: 0, Items: []ItemInput{{ProductID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateBatch(ctx, nil, BatchInput{WarehouseID: 1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateBatch(ctx, nil, BatchInput{WarehouseID: 1, Items: []ItemInput{{ProductID: 1, Quantity: 0}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateBatch(ctx, nil, BatchInput{WarehouseID: 1, Items: []ItemInput{{ProductID: 1, UnitPrice: -1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDeleteByRefRemovesOnlyMatchingBatch(t *testing.T) {
	repo := &memoryStockRepo{now: time.Now()}
	svc := newTestService(repo)
	ctx := context.Background()

	ref := uuid.NewSHA1(uuid.Nil, []byte("ORDER:20260830-0001"))
	_, err := svc.CreateBatch(ctx, nil, BatchInput{
		WarehouseID: 1, RefModule: "orders", RefID: &ref,
		Items: []ItemInput{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)

	other := uuid.NewSHA1(uuid.Nil, []byte("ORDER:20260830-0002"))
	_, err = svc.CreateBatch(ctx, nil, BatchInput{
		WarehouseID: 1, RefModule: "orders", RefID: &other,
		Items: []ItemInput{{ProductID: 2, Quantity: 5}},
	})
	require.NoError(t, err)

	removed, err := svc.DeleteByRef(ctx, "orders", ref)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Len(t, repo.items, 1)
	require.Equal(t, int64(2), repo.items[0].ProductID)
}

func TestExpireOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	repo := &memoryStockRepo{now: now}
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.CreateBatch(ctx, nil, BatchInput{
		WarehouseID: 1,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 1, ExpireAt: &past},
			{ProductID: 2, Quantity: 1, ExpireAt: &future},
			{ProductID: 3, Quantity: 1},
		},
	})
	require.NoError(t, err)

	n, err := svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.True(t, repo.items[0].Expired)
	require.False(t, repo.items[1].Expired)
	require.False(t, repo.items[2].Expired)
}
