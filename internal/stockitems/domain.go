// Package stockitems manages inventory stock created when purchase
// orders are verified. Each stock item carries a back-reference to the
// record that materialized it, so a failed verification can remove its
// batch without touching stock from other sources.
package stockitems

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// StockItem is one priced lot of a product in a warehouse.
type StockItem struct {
	ID           int64      `json:"id"`
	ProductID    int64      `json:"productId"`
	WarehouseID  int64      `json:"warehouseId"`
	UnitPrice    float64    `json:"unitPrice"`
	Quantity     float64    `json:"quantity"`
	RemainingQty float64    `json:"remainingQty"`
	Expired      bool       `json:"expired"`
	ExpireAt     *time.Time `json:"expireAt,omitempty"`
	RefModule    string     `json:"refModule,omitempty"`
	RefID        *uuid.UUID `json:"refId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// BatchInput is the request to create several stock items atomically.
type BatchInput struct {
	WarehouseID int64
	RefModule   string
	RefID       *uuid.UUID
	Items       []ItemInput
}

// ItemInput is one stock item within a batch.
type ItemInput struct {
	ProductID int64      `json:"productId" validate:"required,gt=0"`
	UnitPrice float64    `json:"unitPrice" validate:"gte=0"`
	Quantity  float64    `json:"quantity" validate:"required,gt=0"`
	ExpireAt  *time.Time `json:"expireAt,omitempty"`
}

var (
	ErrValidation = errors.New("stockitems: validation failed")
	ErrNotFound   = errors.New("stockitems: not found")
)
