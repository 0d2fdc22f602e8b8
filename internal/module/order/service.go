package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger provides aggregate transaction totals per order. Implemented by the
// payment module's transaction repository.
type Ledger interface {
	TotalPaid(ctx context.Context, orderID uuid.UUID) (int64, error)
	TotalAuthorized(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// Service implements order operations.
type Service struct {
	repo   Repository
	ledger Ledger
	logger *zap.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, ledger Ledger, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		logger: logger,
	}
}

// Get returns an order by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// RecomputePaidTotal pulls the order's paid and authorized totals from the
// transaction ledger and persists them. When the order's balance is covered
// it stamps the paid timestamp (once) and marks the order complete.
func (s *Service) RecomputePaidTotal(ctx context.Context, ord *Order) error {
	paid, err := s.ledger.TotalPaid(ctx, ord.ID)
	if err != nil {
		return fmt.Errorf("total paid: %w", err)
	}
	authorized, err := s.ledger.TotalAuthorized(ctx, ord.ID)
	if err != nil {
		return fmt.Errorf("total authorized: %w", err)
	}

	ord.PaidTotal = paid
	ord.AuthorizedTotal = authorized

	if ord.IsPaid() {
		stampPaid(ord)
	}

	if err := s.repo.SaveOrder(ctx, ord); err != nil {
		return err
	}

	s.logger.Info("order totals recomputed",
		zap.String("order_id", ord.ID.String()),
		zap.Int64("paid_total", paid),
		zap.Int64("authorized_total", authorized),
		zap.Bool("completed", ord.IsCompleted),
	)
	return nil
}

// MarkPaid stamps the paid timestamp and completion flag without touching the
// totals. Used by the fast path for orders whose balance is already covered.
func (s *Service) MarkPaid(ctx context.Context, ord *Order) error {
	stampPaid(ord)
	return s.repo.SaveOrder(ctx, ord)
}

// SaveWithReturnURL persists the order with its return URL repointed, so a
// gateway round trip started from an operator context lands back there.
func (s *Service) SaveWithReturnURL(ctx context.Context, ord *Order, returnURL string) error {
	ord.ReturnURL = returnURL
	return s.repo.SaveOrder(ctx, ord)
}

// stampPaid sets DatePaid once and raises IsCompleted. Both are monotonic:
// never cleared, never moved.
func stampPaid(ord *Order) {
	if ord.DatePaid == nil {
		now := time.Now()
		ord.DatePaid = &now
	}
	if !ord.IsCompleted {
		ord.IsCompleted = true
	}
}
