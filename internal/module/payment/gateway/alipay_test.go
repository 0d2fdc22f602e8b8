package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlideMe/commerce/internal/module/order"
)

func TestYuanConversion(t *testing.T) {
	assert.Equal(t, "0.00", yuan(0))
	assert.Equal(t, "0.01", yuan(1))
	assert.Equal(t, "1.00", yuan(100))
	assert.Equal(t, "75.50", yuan(7550))
	assert.Equal(t, "12345.67", yuan(1234567))
}

func TestAlipayCreateItemBag(t *testing.T) {
	g := &AlipayGateway{}
	ord := &order.Order{
		Items: []order.OrderItem{
			{Description: "Widget", Quantity: 2, UnitPrice: 2500},
			{Description: "Gadget", Quantity: 1, UnitPrice: 9900},
		},
	}

	items := g.CreateItemBag(ord)
	require.Len(t, items, 2)
	assert.Equal(t, Item{Name: "Widget", Quantity: 2, Price: 2500}, items[0])
	assert.Equal(t, Item{Name: "Gadget", Quantity: 1, Price: 9900}, items[1])
}

func TestAlipayNotificationAckBodies(t *testing.T) {
	n := &alipayNotification{}
	assert.Equal(t, "success", n.Confirm("https://shop.example/payments/complete?hash=x"))
	assert.Equal(t, "failure", n.Reject("https://shop.example/cart", "bad signature"))
}

func TestAlipayCapabilities(t *testing.T) {
	g := &AlipayGateway{}
	assert.False(t, g.SupportsAuthorize())
	assert.True(t, g.SupportsPurchase())
	assert.False(t, g.SupportsCapture())
	assert.True(t, g.SupportsRefund())
	assert.True(t, g.SupportsCompletePurchase())
	assert.True(t, g.UsesNotifyURL())
	assert.True(t, g.ForcesReferenceOnComplete())
	assert.False(t, g.RequiresSelfSubmitRedirect())
}
