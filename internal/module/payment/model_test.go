package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/google/uuid"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    TransactionStatus
		to      TransactionStatus
		allowed bool
	}{
		{StatusPending, StatusRedirect, true},
		{StatusPending, StatusSuccess, true},
		{StatusPending, StatusFailed, true},
		{StatusRedirect, StatusSuccess, true},
		{StatusRedirect, StatusFailed, true},
		{StatusRedirect, StatusPending, false},
		{StatusSuccess, StatusFailed, false},
		{StatusSuccess, StatusRedirect, false},
		{StatusFailed, StatusSuccess, false},
		{StatusFailed, StatusPending, false},
		{StatusSuccess, StatusSuccess, true},
		{StatusFailed, StatusFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRedirect.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestNewTransactionCopiesOrderFinancials(t *testing.T) {
	ord := &order.Order{
		ID:              uuid.New(),
		Number:          "3003",
		TotalPrice:      10000,
		PaidTotal:       2500,
		Currency:        "usd",
		PaymentCurrency: "eur",
		PaymentRate:     0.9,
		GatewayHandle:   "stripe",
	}

	tx, err := NewTransaction(ord, TypePurchase)
	require.NoError(t, err)

	assert.Equal(t, ord.ID, tx.OrderID)
	assert.Nil(t, tx.ParentID)
	assert.Equal(t, "stripe", tx.GatewayHandle)
	assert.Equal(t, StatusPending, tx.Status)
	assert.Equal(t, int64(7500), tx.Amount)
	assert.Equal(t, "usd", tx.Currency)
	assert.Equal(t, int64(6750), tx.PaymentAmount)
	assert.Equal(t, "eur", tx.PaymentCurrency)
	assert.Equal(t, 0.9, tx.PaymentRate)
	assert.Len(t, tx.Hash, 32)
}

func TestNewTransactionRoundsConvertedAmount(t *testing.T) {
	ord := &order.Order{
		ID:              uuid.New(),
		TotalPrice:      333,
		Currency:        "usd",
		PaymentCurrency: "eur",
		PaymentRate:     0.33,
		GatewayHandle:   "stripe",
	}

	tx, err := NewTransaction(ord, TypePurchase)
	require.NoError(t, err)

	// 333 * 0.33 = 109.89; truncation would lose a cent.
	assert.Equal(t, int64(110), tx.PaymentAmount)
}

func TestNewTransactionDefaultsPaymentCurrency(t *testing.T) {
	ord := &order.Order{
		ID:            uuid.New(),
		TotalPrice:    1000,
		Currency:      "usd",
		GatewayHandle: "stripe",
	}

	tx, err := NewTransaction(ord, TypeAuthorize)
	require.NoError(t, err)

	assert.Equal(t, "usd", tx.PaymentCurrency)
	assert.Equal(t, float64(1), tx.PaymentRate)
	assert.Equal(t, int64(1000), tx.PaymentAmount)
}

func TestNewChildTransactionInheritsParent(t *testing.T) {
	ord := &order.Order{
		ID:              uuid.New(),
		TotalPrice:      5000,
		Currency:        "usd",
		PaymentCurrency: "usd",
		PaymentRate:     1,
		GatewayHandle:   "stripe",
	}
	parent, err := NewTransaction(ord, TypeAuthorize)
	require.NoError(t, err)
	parent.Status = StatusSuccess

	child, err := NewChildTransaction(parent, TypeCapture)
	require.NoError(t, err)

	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)
	assert.Equal(t, parent.OrderID, child.OrderID)
	assert.Equal(t, parent.GatewayHandle, child.GatewayHandle)
	assert.Equal(t, TypeCapture, child.Type)
	assert.Equal(t, StatusPending, child.Status)
	assert.Equal(t, parent.Amount, child.Amount)
	assert.Equal(t, parent.Currency, child.Currency)
	assert.Equal(t, parent.PaymentAmount, child.PaymentAmount)
	assert.Equal(t, parent.PaymentCurrency, child.PaymentCurrency)
	assert.Equal(t, parent.PaymentRate, child.PaymentRate)
	assert.NotEqual(t, parent.Hash, child.Hash)
}

func TestCompleteType(t *testing.T) {
	tx := &Transaction{Type: TypeAuthorize}
	completeType, ok := tx.CompleteType()
	assert.True(t, ok)
	assert.Equal(t, TypeCompleteAuthorize, completeType)

	tx.Type = TypePurchase
	completeType, ok = tx.CompleteType()
	assert.True(t, ok)
	assert.Equal(t, TypeCompletePurchase, completeType)

	tx.Type = TypeRefund
	_, ok = tx.CompleteType()
	assert.False(t, ok)
}
