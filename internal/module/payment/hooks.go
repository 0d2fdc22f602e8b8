package payment

import (
	"github.com/GlideMe/commerce/internal/module/payment/gateway"
)

// Hooks are the orchestrator's extension points. Each hook runs synchronously
// at its documented point; a nil hook is skipped. Callers should keep hooks
// fast since they run inside the payment request path.
type Hooks struct {
	// ItemBagCreated runs after the gateway builds the cart payload and
	// may observe or replace it.
	ItemBagCreated func(ord OrderRef, items gateway.ItemBag) gateway.ItemBag

	// RequestBuilt runs exactly once per built request and may mutate the
	// final parameter map; its result is what gets sent.
	RequestBuilt func(params gateway.Params) gateway.Params

	// BeforeSend runs before any network call. Returning false vetoes the
	// send: the transaction is marked failed and no network I/O happens.
	BeforeSend func(tx *Transaction, req gateway.Request) bool

	// SendData runs just before the wire write and may substitute the
	// outgoing payload entirely. Returning substitute=false sends the
	// original payload.
	SendData func(data map[string]any) (replacement map[string]any, substitute bool)
}

// OrderRef carries the order identifiers hooks may key off without handing
// them the mutable aggregate.
type OrderRef struct {
	ID     string
	Number string
}

func (h *Hooks) itemBagCreated(ref OrderRef, items gateway.ItemBag) gateway.ItemBag {
	if h == nil || h.ItemBagCreated == nil {
		return items
	}
	return h.ItemBagCreated(ref, items)
}

func (h *Hooks) requestBuilt(params gateway.Params) gateway.Params {
	if h == nil || h.RequestBuilt == nil {
		return params
	}
	return h.RequestBuilt(params)
}

func (h *Hooks) beforeSend(tx *Transaction, req gateway.Request) bool {
	if h == nil || h.BeforeSend == nil {
		return true
	}
	return h.BeforeSend(tx, req)
}

func (h *Hooks) sendData(data map[string]any) (map[string]any, bool) {
	if h == nil || h.SendData == nil {
		return nil, false
	}
	return h.SendData(data)
}
