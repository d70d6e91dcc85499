// Package orders implements the purchase order lifecycle: creation,
// staff assignment, review submission, verification into stock, payment
// and cancellation. Status changes are recorded in an append-only
// history and guarded by a transition table.
package orders

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a purchase order.
type Status string

const (
	StatusNotAssigned   Status = "not_assigned"
	StatusAssigned      Status = "assigned"
	StatusPendingReview Status = "pending_review"
	StatusVerified      Status = "verified"
	StatusPaid          Status = "paid"
	StatusCanceled      Status = "canceled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotAssigned, StatusAssigned, StatusPendingReview,
		StatusVerified, StatusPaid, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCanceled
}

// Order is a purchase order and its line items.
type Order struct {
	ID              int64       `json:"id"`
	Number          string      `json:"number"`
	Supplier        string      `json:"supplier"`
	WarehouseID     int64       `json:"warehouseId"`
	Status          Status      `json:"status"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	Notes           []string    `json:"notes"`
	ReceiptURL      *string     `json:"receiptUrl,omitempty"`
	AssignedStaffID *int64      `json:"assignedStaffId,omitempty"`
	Version         int64       `json:"version"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	AssignedAt      *time.Time  `json:"assignedAt,omitempty"`
	PendingReviewAt *time.Time  `json:"pendingReviewAt,omitempty"`
	VerifiedAt      *time.Time  `json:"verifiedAt,omitempty"`
	PaidAt          *time.Time  `json:"paidAt,omitempty"`
	CanceledAt      *time.Time  `json:"canceledAt,omitempty"`
}

// OrderItem is one line of a purchase order.
type OrderItem struct {
	ID        int64      `json:"id"`
	OrderID   int64      `json:"orderId"`
	ProductID int64      `json:"productId"`
	Quantity  float64    `json:"quantity"`
	UnitPrice float64    `json:"unitPrice"`
	ExpireAt  *time.Time `json:"expireAt,omitempty"`
}

// LineTotal is the item's contribution to the order total.
func (i OrderItem) LineTotal() float64 {
	return roundMoney(i.Quantity * i.UnitPrice)
}

// StatusChange is one entry of an order's status history. From is nil
// on the first recorded transition.
type StatusChange struct {
	ID      int64     `json:"id"`
	OrderID int64     `json:"orderId"`
	From    *Status   `json:"from"`
	To      Status    `json:"to"`
	ActorID *int64    `json:"actorId,omitempty"`
	At      time.Time `json:"at"`
}

var (
	ErrNotFound          = errors.New("orders: order not found")
	ErrValidation        = errors.New("orders: validation failed")
	ErrInvalidTransition = errors.New("orders: invalid status transition")
	ErrForbidden         = errors.New("orders: actor not allowed")
	ErrPrecondition      = errors.New("orders: precondition failed")
	ErrConflict          = errors.New("orders: conflicting operation in progress")
)
