package payment

import (
	"math"
	"time"

	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/GlideMe/commerce/internal/utils/random"
	"github.com/google/uuid"
)

// TransactionType identifies what a transaction attempted at the gateway.
type TransactionType string

const (
	TypeAuthorize         TransactionType = "authorize"
	TypePurchase          TransactionType = "purchase"
	TypeCapture           TransactionType = "capture"
	TypeRefund            TransactionType = "refund"
	TypeCompleteAuthorize TransactionType = "complete-authorize"
	TypeCompletePurchase  TransactionType = "complete-purchase"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusRedirect TransactionStatus = "redirect"
	StatusSuccess  TransactionStatus = "success"
	StatusFailed   TransactionStatus = "failed"
)

// CanTransition reports whether a status may move forward to the target.
// Transitions only move forward: pending to redirect/success/failed, and
// redirect to success/failed on completion.
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case StatusPending:
		return to == StatusRedirect || to == StatusSuccess || to == StatusFailed
	case StatusRedirect:
		return to == StatusSuccess || to == StatusFailed
	default:
		return false
	}
}

// Terminal reports whether the status is final.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Transaction records one gateway interaction attempt. Rows are immutable
// once settled; capture and refund attempts reference their originating
// transaction through ParentID, forming the order's audit trail.
type Transaction struct {
	ID       uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID  uuid.UUID  `json:"order_id" gorm:"type:uuid;not null;index"`
	ParentID *uuid.UUID `json:"parent_id,omitempty" gorm:"type:uuid;index"`

	GatewayHandle string            `json:"gateway" gorm:"not null;index"`
	Type          TransactionType   `json:"type" gorm:"not null"`
	Status        TransactionStatus `json:"status" gorm:"not null;default:pending"`

	Amount          int64   `json:"amount"` // In cents, order currency
	Currency        string  `json:"currency"`
	PaymentAmount   int64   `json:"payment_amount"` // In cents, payment currency
	PaymentCurrency string  `json:"payment_currency"`
	PaymentRate     float64 `json:"payment_rate" gorm:"default:1"`

	Response  string `json:"-" gorm:"type:jsonb"` // raw gateway payload
	Code      string `json:"code"`
	Reference string `json:"reference" gorm:"index"` // gateway's token
	Message   string `json:"message"`

	// Hash is the opaque correlation token embedded in return and notify
	// URLs; it is the only credential an unauthenticated callback carries.
	Hash string `json:"-" gorm:"uniqueIndex;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Transaction) TableName() string {
	return "transactions"
}

// IsTerminal returns true once the transaction settled either way.
func (t *Transaction) IsTerminal() bool {
	return t.Status.Terminal()
}

// CompleteType returns the completion transaction type for a redirected root
// transaction.
func (t *Transaction) CompleteType() (TransactionType, bool) {
	switch t.Type {
	case TypeAuthorize:
		return TypeCompleteAuthorize, true
	case TypePurchase:
		return TypeCompletePurchase, true
	default:
		return "", false
	}
}

// NewTransaction creates a pending root transaction for an order, copying
// the financial figures at attempt time.
func NewTransaction(ord *order.Order, txType TransactionType) (*Transaction, error) {
	hash, err := random.Hex(16)
	if err != nil {
		return nil, err
	}

	paymentCurrency := ord.PaymentCurrency
	if paymentCurrency == "" {
		paymentCurrency = ord.Currency
	}
	rate := ord.PaymentRate
	if rate == 0 {
		rate = 1
	}

	amount := ord.OutstandingBalance()
	return &Transaction{
		ID:              uuid.New(),
		OrderID:         ord.ID,
		GatewayHandle:   ord.GatewayHandle,
		Type:            txType,
		Status:          StatusPending,
		Amount:          amount,
		Currency:        ord.Currency,
		PaymentAmount:   int64(math.Round(float64(amount) * rate)),
		PaymentCurrency: paymentCurrency,
		PaymentRate:     rate,
		Hash:            hash,
	}, nil
}

// NewChildTransaction creates a pending follow-up transaction, inheriting
// the parent's gateway and financial figures exactly.
func NewChildTransaction(parent *Transaction, txType TransactionType) (*Transaction, error) {
	hash, err := random.Hex(16)
	if err != nil {
		return nil, err
	}

	parentID := parent.ID
	return &Transaction{
		ID:              uuid.New(),
		OrderID:         parent.OrderID,
		ParentID:        &parentID,
		GatewayHandle:   parent.GatewayHandle,
		Type:            txType,
		Status:          StatusPending,
		Amount:          parent.Amount,
		Currency:        parent.Currency,
		PaymentAmount:   parent.PaymentAmount,
		PaymentCurrency: parent.PaymentCurrency,
		PaymentRate:     parent.PaymentRate,
		Hash:            hash,
	}, nil
}
