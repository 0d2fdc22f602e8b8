package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionComplete(t *testing.T) {
	complete, ok := ActionAuthorize.Complete()
	assert.True(t, ok)
	assert.Equal(t, ActionCompleteAuthorize, complete)

	complete, ok = ActionPurchase.Complete()
	assert.True(t, ok)
	assert.Equal(t, ActionCompletePurchase, complete)

	for _, a := range []Action{ActionCapture, ActionRefund, ActionCompleteAuthorize, ActionCompletePurchase} {
		_, ok := a.Complete()
		assert.False(t, ok, "action %s must not have a completion", a)
	}
}

func TestParamsClone(t *testing.T) {
	p := Params{"amount": int64(100), "currency": "usd"}
	c := p.Clone()
	c["currency"] = "eur"

	assert.Equal(t, "usd", p["currency"])
	assert.Equal(t, "eur", c["currency"])
}

func TestSupportsDispatch(t *testing.T) {
	g := NewStripeGateway(&StripeConfig{})
	assert.True(t, Supports(g, ActionPurchase))
	assert.True(t, Supports(g, ActionCompleteAuthorize))
	assert.False(t, Supports(g, Action("unknown")))
}

func TestNewRequestUnknownAction(t *testing.T) {
	g := NewStripeGateway(&StripeConfig{})
	_, err := NewRequest(g, Action("unknown"), Params{})
	assert.Error(t, err)
}
