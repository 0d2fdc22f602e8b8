package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for transaction ledger access. The ledger
// is append-mostly: rows are created pending and updated only along forward
// status transitions.
type Repository interface {
	Save(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByHash(ctx context.Context, hash string) (*Transaction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Transaction, error)

	// TotalPaid sums successful purchase and capture amounts for an order.
	TotalPaid(ctx context.Context, orderID uuid.UUID) (int64, error)

	// TotalAuthorized sums successful authorize, purchase and capture
	// amounts for an order.
	TotalAuthorized(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new transaction repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, tx *Transaction) error {
	if err := validateTransaction(tx); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(tx).Error; err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var tx Transaction
	err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

func (r *repository) GetByHash(ctx context.Context, hash string) (*Transaction, error) {
	var tx Transaction
	err := r.db.WithContext(ctx).First(&tx, "hash = ?", hash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction by hash: %w", err)
	}
	return &tx, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Transaction, error) {
	var txs []*Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions by order: %w", err)
	}
	return txs, nil
}

func (r *repository) TotalPaid(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return r.sumAmounts(ctx, orderID, []TransactionType{TypePurchase, TypeCapture})
}

func (r *repository) TotalAuthorized(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return r.sumAmounts(ctx, orderID, []TransactionType{TypeAuthorize, TypePurchase, TypeCapture})
}

func (r *repository) sumAmounts(ctx context.Context, orderID uuid.UUID, types []TransactionType) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("order_id = ? AND status = ? AND type IN ?", orderID, StatusSuccess, types).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum transaction amounts: %w", err)
	}
	return total, nil
}

// validateTransaction rejects rows that would corrupt the ledger. A payment
// flow must never proceed on an unrecorded transaction, so callers treat
// these as fatal.
func validateTransaction(tx *Transaction) error {
	if tx.OrderID == uuid.Nil {
		return errors.New("transaction validation: missing order id")
	}
	if tx.GatewayHandle == "" {
		return errors.New("transaction validation: missing gateway handle")
	}
	if tx.Hash == "" {
		return errors.New("transaction validation: missing correlation hash")
	}
	switch tx.Type {
	case TypeAuthorize, TypePurchase, TypeCapture, TypeRefund, TypeCompleteAuthorize, TypeCompletePurchase:
	default:
		return fmt.Errorf("transaction validation: unknown type %q", tx.Type)
	}
	switch tx.Status {
	case StatusPending, StatusRedirect, StatusSuccess, StatusFailed:
	default:
		return fmt.Errorf("transaction validation: unknown status %q", tx.Status)
	}
	return nil
}
