package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/galley-erp/galley-erp/internal/identity"
	"github.com/galley-erp/galley-erp/internal/shared"
	"github.com/galley-erp/galley-erp/internal/stockitems"
)

// StockPort materializes verified orders into warehouse stock.
type StockPort interface {
	CreateBatch(ctx context.Context, actorID *int64, input stockitems.BatchInput) ([]stockitems.StockItem, error)
	DeleteByRef(ctx context.Context, refModule string, refID uuid.UUID) (int64, error)
}

// LockPort provides per-order mutual exclusion during verification.
type LockPort interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error)
}

// IdempotencyPort guards verification against replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, operation string) error
	Delete(ctx context.Context, key, operation string) error
}

// StaffPort resolves staff accounts for assignment.
type StaffPort interface {
	FindStaff(ctx context.Context, staffID int64) (identity.Actor, error)
}

// AuditPort records state-changing actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts lifecycle transitions.
type MetricsPort interface {
	OrderTransition(to, outcome string)
}

// ServiceDeps wires the service's collaborators. Audit, Metrics and
// Invalidate are optional.
type ServiceDeps struct {
	Repo        RepositoryPort
	Stock       StockPort
	Locker      LockPort
	Idempotency IdempotencyPort
	Staff       StaffPort
	Audit       AuditPort
	Metrics     MetricsPort
	Logger      *slog.Logger
	// Invalidate is called after any successful transition so cached
	// stats do not serve stale counts past their TTL.
	Invalidate    func(ctx context.Context)
	VerifyLockTTL time.Duration
}

// Service implements the purchase order lifecycle.
type Service struct {
	deps     ServiceDeps
	validate *validator.Validate
}

func NewService(deps ServiceDeps) *Service {
	if deps.VerifyLockTTL <= 0 {
		deps.VerifyLockTTL = 30 * time.Second
	}
	return &Service{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

const stockRefModule = "orders"

// stockRef derives a stable reference id from the order number, so a
// retried verification targets the same batch it may need to undo.
func stockRef(number string) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte("ORDER:"+number))
}

// Create registers a new purchase order in not_assigned. Creation is
// not a transition, so no history entry is written.
func (s *Service) Create(ctx context.Context, actor identity.Actor, input CreateInput) (Order, error) {
	if err := s.validate.Struct(input); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var notes []string
	if input.Notes != "" {
		notes = []string{input.Notes}
	}

	var created Order
	err := s.deps.Repo.WithTx(ctx, func(tx TxRepository) error {
		order, err := tx.CreateOrder(ctx, input.Supplier, input.WarehouseID, notes)
		if err != nil {
			return err
		}
		total := 0.0
		for _, item := range input.Items {
			if err := tx.InsertItem(ctx, order.ID, item); err != nil {
				return err
			}
			total += item.Quantity * item.UnitPrice
		}
		total = roundMoney(total)
		if err := tx.SetTotal(ctx, order.ID, total); err != nil {
			return err
		}
		order.Total = total
		created = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.audit(ctx, actor, "orders.create", created, map[string]any{"supplier": created.Supplier})
	return s.deps.Repo.Get(ctx, created.ID)
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.deps.Repo.Get(ctx, id)
}

// History returns the order's status transitions, oldest first.
func (s *Service) History(ctx context.Context, id int64) ([]StatusChange, error) {
	if _, err := s.deps.Repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.deps.Repo.StatusHistory(ctx, id)
}

// List returns orders matching the filter plus the unpaginated total.
func (s *Service) List(ctx context.Context, filter ListFilter, page shared.Page) ([]Order, int64, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, *filter.Status)
	}
	return s.deps.Repo.List(ctx, filter, page.Size, page.Offset())
}

// Assign moves a not_assigned order to assigned and records the staff
// member responsible for purchasing it.
func (s *Service) Assign(ctx context.Context, actor identity.Actor, orderID, staffID int64) (Order, error) {
	order, err := s.deps.Repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if err := CanTransition(order.Status, StatusAssigned, actor.Role); err != nil {
		s.transitionMetric(StatusAssigned, "rejected")
		return Order{}, err
	}

	staff, err := s.deps.Staff.FindStaff(ctx, staffID)
	if err != nil {
		return Order{}, fmt.Errorf("%w: staff %d not found", ErrValidation, staffID)
	}

	err = s.deps.Repo.WithTx(ctx, func(tx TxRepository) error {
		if err := tx.SetStaff(ctx, orderID, staff.ID); err != nil {
			return err
		}
		return s.applyTransition(ctx, tx, orderID, order.Status, StatusAssigned, &actor.ID)
	})
	if err != nil {
		return Order{}, err
	}

	s.afterTransition(ctx, actor, order, StatusAssigned, map[string]any{"staff_id": staff.ID})
	return s.deps.Repo.Get(ctx, orderID)
}

// SubmitForReview moves an assigned order to pending_review. Only the
// assigned staff member (or an admin) may submit, and a receipt is
// required. Submitted items replace the order's lines and re-derive the
// total from what was actually bought.
func (s *Service) SubmitForReview(ctx context.Context, actor identity.Actor, orderID int64, input ReviewInput) (Order, error) {
	if err := s.validate.Struct(input); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	order, err := s.deps.Repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if err := CanTransition(order.Status, StatusPendingReview, actor.Role); err != nil {
		s.transitionMetric(StatusPendingReview, "rejected")
		return Order{}, err
	}
	if !actor.IsAdmin() {
		if order.AssignedStaffID == nil || *order.AssignedStaffID != actor.ID {
			return Order{}, fmt.Errorf("%w: order is assigned to someone else", ErrForbidden)
		}
	}

	err = s.deps.Repo.WithTx(ctx, func(tx TxRepository) error {
		if err := tx.SetReceipt(ctx, orderID, input.ReceiptURL); err != nil {
			return err
		}
		if len(input.Items) > 0 {
			if err := tx.ReplaceItems(ctx, orderID, input.Items); err != nil {
				return err
			}
			total := 0.0
			for _, item := range input.Items {
				total += item.Quantity * item.UnitPrice
			}
			if err := tx.SetTotal(ctx, orderID, roundMoney(total)); err != nil {
				return err
			}
		}
		return s.applyTransition(ctx, tx, orderID, order.Status, StatusPendingReview, &actor.ID)
	})
	if err != nil {
		return Order{}, err
	}

	s.afterTransition(ctx, actor, order, StatusPendingReview, map[string]any{"receipt_url": input.ReceiptURL})
	return s.deps.Repo.Get(ctx, orderID)
}

// Verify moves a pending_review order to verified and materializes its
// items as warehouse stock. warehouseID overrides the order's warehouse
// when positive. The whole step runs under a per-order lock and an
// idempotency key so stock is created at most once; if the final status
// update fails, the created batch is removed again.
func (s *Service) Verify(ctx context.Context, actor identity.Actor, orderID, warehouseID int64) (Order, int, error) {
	release, err := s.deps.Locker.Acquire(ctx, shared.OrderVerifyLockKey(orderID), s.deps.VerifyLockTTL)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return Order{}, 0, fmt.Errorf("%w: verification already running", ErrConflict)
		}
		return Order{}, 0, err
	}
	defer release(ctx)

	order, err := s.deps.Repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, 0, err
	}
	if err := CanTransition(order.Status, StatusVerified, actor.Role); err != nil {
		s.transitionMetric(StatusVerified, "rejected")
		return Order{}, 0, err
	}
	if order.ReceiptURL == nil || *order.ReceiptURL == "" {
		return Order{}, 0, fmt.Errorf("%w: receipt required before verification", ErrPrecondition)
	}
	if len(order.Items) == 0 {
		return Order{}, 0, fmt.Errorf("%w: order has no items", ErrPrecondition)
	}

	idemKey := "ORDER-VERIFY:" + order.Number
	if err := s.deps.Idempotency.CheckAndInsert(ctx, idemKey, "orders.verify"); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return Order{}, 0, fmt.Errorf("%w: order already verified", ErrConflict)
		}
		return Order{}, 0, err
	}

	if warehouseID <= 0 {
		warehouseID = order.WarehouseID
	}
	refID := stockRef(order.Number)
	batch := stockitems.BatchInput{
		WarehouseID: warehouseID,
		RefModule:   stockRefModule,
		RefID:       &refID,
		Items:       make([]stockitems.ItemInput, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		batch.Items = append(batch.Items, stockitems.ItemInput{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ExpireAt:  item.ExpireAt,
		})
	}

	created, err := s.deps.Stock.CreateBatch(ctx, &actor.ID, batch)
	if err != nil {
		_ = s.deps.Idempotency.Delete(ctx, idemKey, "orders.verify")
		return Order{}, 0, fmt.Errorf("orders: materialize stock: %w", err)
	}

	err = s.deps.Repo.WithTx(ctx, func(tx TxRepository) error {
		return s.applyTransition(ctx, tx, orderID, order.Status, StatusVerified, &actor.ID)
	})
	if err != nil {
		if _, derr := s.deps.Stock.DeleteByRef(ctx, stockRefModule, refID); derr != nil && s.deps.Logger != nil {
			s.deps.Logger.ErrorContext(ctx, "stock rollback failed",
				slog.String("order", order.Number), slog.Any("error", derr))
		}
		_ = s.deps.Idempotency.Delete(ctx, idemKey, "orders.verify")
		return Order{}, 0, err
	}

	s.afterTransition(ctx, actor, order, StatusVerified, map[string]any{"stock_items": len(created)})
	verified, err := s.deps.Repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, 0, err
	}
	return verified, len(created), nil
}

// MarkPaid moves a verified order to paid.
func (s *Service) MarkPaid(ctx context.Context, actor identity.Actor, orderID int64) (Order, error) {
	return s.simpleTransition(ctx, actor, orderID, StatusPaid, nil)
}

// Cancel terminates an order that has not yet been verified. The reason,
// when given, is appended to the order's notes.
func (s *Service) Cancel(ctx context.Context, actor identity.Actor, orderID int64, reason string) (Order, error) {
	var note string
	if reason != "" {
		note = "canceled: " + reason
	}
	return s.simpleTransition(ctx, actor, orderID, StatusCanceled, func(tx TxRepository) error {
		if note == "" {
			return nil
		}
		return tx.AppendNote(ctx, orderID, note)
	})
}

// AppendNote adds a free-form note without touching the status.
func (s *Service) AppendNote(ctx context.Context, actor identity.Actor, orderID int64, note string) (Order, error) {
	if note == "" {
		return Order{}, fmt.Errorf("%w: note is empty", ErrValidation)
	}
	if _, err := s.deps.Repo.Get(ctx, orderID); err != nil {
		return Order{}, err
	}
	err := s.deps.Repo.WithTx(ctx, func(tx TxRepository) error {
		return tx.AppendNote(ctx, orderID, note)
	})
	if err != nil {
		return Order{}, err
	}
	s.audit(ctx, actor, "orders.note", Order{ID: orderID}, map[string]any{"note": note})
	return s.deps.Repo.Get(ctx, orderID)
}

func (s *Service) simpleTransition(ctx context.Context, actor identity.Actor, orderID int64, to Status, extra func(TxRepository) error) (Order, error) {
	order, err := s.deps.Repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if err := CanTransition(order.Status, to, actor.Role); err != nil {
		s.transitionMetric(to, "rejected")
		return Order{}, err
	}

	err = s.deps.Repo.WithTx(ctx, func(tx TxRepository) error {
		if extra != nil {
			if err := extra(tx); err != nil {
				return err
			}
		}
		return s.applyTransition(ctx, tx, orderID, order.Status, to, &actor.ID)
	})
	if err != nil {
		return Order{}, err
	}

	s.afterTransition(ctx, actor, order, to, nil)
	return s.deps.Repo.Get(ctx, orderID)
}

// applyTransition performs the CAS status update and history append. A
// CAS miss means the order moved under us since the pre-check.
func (s *Service) applyTransition(ctx context.Context, tx TxRepository, orderID int64, from, to Status, actorID *int64) error {
	applied, err := tx.UpdateStatus(ctx, orderID, from, to)
	if err != nil {
		return err
	}
	if !applied {
		s.transitionMetric(to, "conflict")
		return fmt.Errorf("%w: order changed concurrently", ErrConflict)
	}
	return tx.AppendHistory(ctx, orderID, to, actorID)
}

func (s *Service) afterTransition(ctx context.Context, actor identity.Actor, order Order, to Status, meta map[string]any) {
	s.transitionMetric(to, "applied")
	if s.deps.Invalidate != nil {
		s.deps.Invalidate(ctx)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["from"] = string(order.Status)
	meta["to"] = string(to)
	s.audit(ctx, actor, "orders.transition", order, meta)
	if s.deps.Logger != nil {
		s.deps.Logger.InfoContext(ctx, "order transition",
			slog.String("number", order.Number),
			slog.String("from", string(order.Status)),
			slog.String("to", string(to)),
			slog.Int64("actor", actor.ID))
	}
}

func (s *Service) audit(ctx context.Context, actor identity.Actor, action string, order Order, meta map[string]any) {
	if s.deps.Audit == nil {
		return
	}
	actorID := actor.ID
	_ = s.deps.Audit.Record(ctx, shared.AuditLog{
		ActorID:  &actorID,
		Action:   action,
		Entity:   "purchase_orders",
		EntityID: fmt.Sprintf("%d", order.ID),
		Meta:     meta,
	})
}

func (s *Service) transitionMetric(to Status, outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.OrderTransition(string(to), outcome)
	}
}
