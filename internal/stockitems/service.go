package stockitems

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/galley-erp/galley-erp/internal/shared"
)

// Service coordinates stock item creation and maintenance.
type Service struct {
	repo     RepositoryPort
	audit    *shared.AuditStore
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(repo RepositoryPort, audit *shared.AuditStore, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		audit:    audit,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// CreateBatch validates and persists a batch of stock items atomically.
// Either every item in the batch is created or none are.
func (s *Service) CreateBatch(ctx context.Context, actorID *int64, input BatchInput) ([]StockItem, error) {
	if input.WarehouseID <= 0 {
		return nil, fmt.Errorf("%w: warehouse id required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", ErrValidation)
	}
	for i, item := range input.Items {
		if err := s.validate.Struct(item); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrValidation, i, err)
		}
	}

	created, err := s.repo.InsertBatch(ctx, input)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "stockitems.create_batch",
			Entity:   "stock_items",
			EntityID: fmt.Sprintf("warehouse:%d", input.WarehouseID),
			Meta: map[string]any{
				"count":      len(created),
				"ref_module": input.RefModule,
			},
		})
	}
	return created, nil
}

// DeleteByRef removes all stock items created by the given reference.
func (s *Service) DeleteByRef(ctx context.Context, refModule string, refID uuid.UUID) (int64, error) {
	if refModule == "" {
		return 0, fmt.Errorf("%w: ref module required", ErrValidation)
	}
	return s.repo.DeleteByRef(ctx, refModule, refID)
}

// ListByWarehouse returns stock items in a warehouse, newest first.
func (s *Service) ListByWarehouse(ctx context.Context, warehouseID int64, page shared.Page) ([]StockItem, error) {
	if warehouseID <= 0 {
		return nil, fmt.Errorf("%w: warehouse id required", ErrValidation)
	}
	return s.repo.ListByWarehouse(ctx, warehouseID, page.Size, page.Offset())
}

// ExpireOverdue marks items past their expire_at as expired. Invoked by
// the scheduled expiry scan.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "stock items expired", slog.Int64("count", n))
	}
	return n, nil
}
