package payment

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/GlideMe/commerce/internal/module/payment/gateway"
)

// RequestBuilder assembles the gateway-agnostic parameter map for a
// transaction. All URLs handed to gateways are derived from the configured
// externally reachable base URL.
type RequestBuilder struct {
	baseURL string
	hooks   *Hooks
}

// NewRequestBuilder creates a request builder rooted at baseURL.
func NewRequestBuilder(baseURL string, hooks *Hooks) *RequestBuilder {
	return &RequestBuilder{
		baseURL: strings.TrimRight(baseURL, "/"),
		hooks:   hooks,
	}
}

// BuildInput carries everything a request build needs besides the gateway.
type BuildInput struct {
	Transaction *Transaction
	Order       *order.Order

	// Card and Items are attached only when present; completion rebuilds
	// usually omit the card.
	Card  *gateway.Card
	Items gateway.ItemBag

	ClientIP string

	// Reference overrides the default correlation hash, for follow-up calls
	// that must carry a previously issued gateway token.
	Reference string

	// ForCompletion strips the notify URL. Completion calls are synchronous;
	// a notify URL on them makes some gateways re-deliver.
	ForCompletion bool
}

// Build assembles the parameter map and runs the post-build hook exactly
// once. The hook's result is what gets sent.
func (b *RequestBuilder) Build(g gateway.Gateway, in BuildInput) gateway.Params {
	tx := in.Transaction

	reference := in.Reference
	if reference == "" {
		reference = tx.Hash
	}

	params := gateway.Params{
		"amount":               tx.PaymentAmount,
		"currency":             tx.PaymentCurrency,
		"transactionId":        tx.ID.String(),
		"description":          fmt.Sprintf("Order %s", in.Order.Number),
		"clientIp":             normalizeClientIP(in.ClientIP),
		"transactionReference": reference,
		"returnUrl":            b.CompleteURL(tx),
		"cancelUrl":            b.absoluteURL(in.Order.CancelURL),
	}

	if in.Card != nil {
		params["card"] = in.Card
	}
	if len(in.Items) > 0 {
		params["items"] = in.Items
	}

	if !in.ForCompletion {
		// Gateways that settle through server-to-server notifications get
		// the dedicated notify endpoint and no customer return URL; everyone
		// else sees the notify URL mirror the return URL.
		if g.UsesNotifyURL() {
			params["notifyUrl"] = b.NotifyURL(tx)
			delete(params, "returnUrl")
		} else {
			params["notifyUrl"] = params["returnUrl"]
		}
	}

	return b.hooks.requestBuilt(params)
}

// CompleteURL returns the synchronous completion endpoint for a transaction.
func (b *RequestBuilder) CompleteURL(tx *Transaction) string {
	return fmt.Sprintf("%s/payments/complete?transactionId=%s&hash=%s",
		b.baseURL, tx.ID.String(), url.QueryEscape(tx.Hash))
}

// NotifyURL returns the asynchronous notification endpoint for a transaction.
func (b *RequestBuilder) NotifyURL(tx *Transaction) string {
	return fmt.Sprintf("%s/payments/notify?transactionId=%s&hash=%s",
		b.baseURL, tx.ID.String(), url.QueryEscape(tx.Hash))
}

func (b *RequestBuilder) absoluteURL(path string) string {
	if path == "" {
		return b.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return b.baseURL + "/" + strings.TrimLeft(path, "/")
}

// normalizeClientIP maps the IPv6 loopback to its IPv4 form. Several gateway
// APIs reject "::1" as a malformed address.
func normalizeClientIP(ip string) string {
	if ip == "::1" {
		return "127.0.0.1"
	}
	return ip
}
