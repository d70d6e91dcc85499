package orders

import "time"

// CreateInput is the request to create a purchase order.
type CreateInput struct {
	Supplier    string      `json:"supplier" validate:"required,min=1,max=200"`
	WarehouseID int64       `json:"warehouseId" validate:"required,gt=0"`
	Items       []ItemInput `json:"items" validate:"required,min=1,dive"`
	Notes       string      `json:"notes,omitempty" validate:"max=2000"`
}

// ItemInput is one requested line item.
type ItemInput struct {
	ProductID int64      `json:"productId" validate:"required,gt=0"`
	Quantity  float64    `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64    `json:"unitPrice" validate:"gte=0"`
	ExpireAt  *time.Time `json:"expireAt,omitempty"`
}

// ReviewInput is the payload the assigned staff submits with the order
// for review. Items, when present, replace the order's line items with
// the quantities and prices actually bought.
type ReviewInput struct {
	ReceiptURL string      `json:"receiptUrl" validate:"required,url"`
	Items      []ItemInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// ListFilter narrows the order listing. Supplier matches exactly;
// Search matches supplier and order number case-insensitively.
type ListFilter struct {
	Status   *Status
	StaffID  *int64
	Supplier string
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	SortBy   string
	Order    string
}
