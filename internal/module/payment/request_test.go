package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/GlideMe/commerce/internal/module/payment/gateway"
	"github.com/google/uuid"
)

func builderOrder() *order.Order {
	return &order.Order{
		ID:              uuid.New(),
		Number:          "2002",
		TotalPrice:      7500,
		Currency:        "usd",
		PaymentCurrency: "usd",
		PaymentRate:     1,
		GatewayHandle:   "fake",
		CancelURL:       "/cart",
	}
}

func builderTx(t *testing.T, ord *order.Order) *Transaction {
	t.Helper()
	tx, err := NewTransaction(ord, TypePurchase)
	require.NoError(t, err)
	return tx
}

func TestBuildBaseParams(t *testing.T) {
	ord := builderOrder()
	tx := builderTx(t, ord)
	b := NewRequestBuilder("https://shop.example/", nil)

	params := b.Build(newFakeGateway(), BuildInput{
		Transaction: tx,
		Order:       ord,
		ClientIP:    "203.0.113.7",
	})

	assert.Equal(t, int64(7500), params["amount"])
	assert.Equal(t, "usd", params["currency"])
	assert.Equal(t, tx.ID.String(), params["transactionId"])
	assert.Equal(t, "Order 2002", params["description"])
	assert.Equal(t, "203.0.113.7", params["clientIp"])
	assert.Equal(t, tx.Hash, params["transactionReference"])
	assert.Equal(t, "https://shop.example/payments/complete?transactionId="+tx.ID.String()+"&hash="+tx.Hash, params["returnUrl"])
	assert.Equal(t, "https://shop.example/cart", params["cancelUrl"])
	assert.Equal(t, params["returnUrl"], params["notifyUrl"])
	assert.NotContains(t, params, "card")
	assert.NotContains(t, params, "items")
}

func TestBuildLoopbackNormalization(t *testing.T) {
	ord := builderOrder()
	tx := builderTx(t, ord)
	b := NewRequestBuilder("https://shop.example", nil)

	params := b.Build(newFakeGateway(), BuildInput{Transaction: tx, Order: ord, ClientIP: "::1"})
	assert.Equal(t, "127.0.0.1", params["clientIp"])

	params = b.Build(newFakeGateway(), BuildInput{Transaction: tx, Order: ord, ClientIP: "2001:db8::1"})
	assert.Equal(t, "2001:db8::1", params["clientIp"])
}

func TestBuildNotifyURLReplacesReturnURL(t *testing.T) {
	ord := builderOrder()
	tx := builderTx(t, ord)
	b := NewRequestBuilder("https://shop.example", nil)

	gw := newFakeGateway()
	gw.usesNotify = true

	params := b.Build(gw, BuildInput{Transaction: tx, Order: ord})
	assert.Equal(t, "https://shop.example/payments/notify?transactionId="+tx.ID.String()+"&hash="+tx.Hash, params["notifyUrl"])
	assert.NotContains(t, params, "returnUrl")
}

func TestBuildCompletionStripsNotifyURL(t *testing.T) {
	ord := builderOrder()
	tx := builderTx(t, ord)
	b := NewRequestBuilder("https://shop.example", nil)

	gw := newFakeGateway()
	gw.usesNotify = true

	params := b.Build(gw, BuildInput{Transaction: tx, Order: ord, ForCompletion: true})
	assert.NotContains(t, params, "notifyUrl")
	assert.Contains(t, params["returnUrl"], "/payments/complete")
}

func TestBuildReferenceOverride(t *testing.T) {
	ord := builderOrder()
	tx := builderTx(t, ord)
	b := NewRequestBuilder("https://shop.example", nil)

	params := b.Build(newFakeGateway(), BuildInput{Transaction: tx, Order: ord, Reference: "pi_original"})
	assert.Equal(t, "pi_original", params["transactionReference"])
}

func TestBuildHookRunsOnceAndMutates(t *testing.T) {
	ord := builderOrder()
	tx := builderTx(t, ord)

	runs := 0
	hooks := &Hooks{
		RequestBuilt: func(params gateway.Params) gateway.Params {
			runs++
			params["vendorField"] = "vendor-value"
			return params
		},
	}
	b := NewRequestBuilder("https://shop.example", hooks)

	params := b.Build(newFakeGateway(), BuildInput{Transaction: tx, Order: ord})
	assert.Equal(t, 1, runs)
	assert.Equal(t, "vendor-value", params["vendorField"])
}

func TestBuildAttachesCardAndItems(t *testing.T) {
	ord := builderOrder()
	tx := builderTx(t, ord)
	b := NewRequestBuilder("https://shop.example", nil)

	card := &gateway.Card{Number: "4242424242424242"}
	items := gateway.ItemBag{{Name: "Widget", Quantity: 2, Price: 3750}}

	params := b.Build(newFakeGateway(), BuildInput{
		Transaction: tx,
		Order:       ord,
		Card:        card,
		Items:       items,
	})
	assert.Same(t, card, params["card"])
	assert.Equal(t, items, params["items"])
}
