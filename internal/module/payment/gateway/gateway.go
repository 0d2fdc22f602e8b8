// Package gateway defines the capability-typed adapter contract between the
// payment orchestrator and concrete payment providers. Each adapter declares
// what it can do through predicates and quirk flags; the orchestrator never
// inspects provider handles.
package gateway

import (
	"context"
	"fmt"

	"github.com/GlideMe/commerce/internal/module/order"
)

// PaymentType selects the default action for a gateway's first transaction.
type PaymentType string

const (
	PaymentTypeAuthorize PaymentType = "authorize"
	PaymentTypePurchase  PaymentType = "purchase"
)

// Action identifies one gateway operation.
type Action string

const (
	ActionAuthorize         Action = "authorize"
	ActionPurchase          Action = "purchase"
	ActionCapture           Action = "capture"
	ActionRefund            Action = "refund"
	ActionCompleteAuthorize Action = "complete-authorize"
	ActionCompletePurchase  Action = "complete-purchase"
)

// Complete returns the completion action matching a root action.
func (a Action) Complete() (Action, bool) {
	switch a {
	case ActionAuthorize:
		return ActionCompleteAuthorize, true
	case ActionPurchase:
		return ActionCompletePurchase, true
	default:
		return "", false
	}
}

// Params is the gateway-agnostic request parameter map assembled by the
// payment request builder.
type Params map[string]any

// Clone returns a shallow copy of the params.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Form holds the raw fields submitted with a payment (card number, token,
// bank selection). The orchestrator never interprets them; adapters do.
type Form map[string]string

// Card is the gateway-agnostic card and address payload.
type Card struct {
	FirstName   string
	LastName    string
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
	Email       string

	BillingFirstName string
	BillingLastName  string
	BillingAddress1  string
	BillingAddress2  string
	BillingCity      string
	BillingZip       string
	BillingCountry   string
	BillingState     string
	BillingPhone     string
	BillingCompany   string

	ShippingFirstName string
	ShippingLastName  string
	ShippingAddress1  string
	ShippingAddress2  string
	ShippingCity      string
	ShippingZip       string
	ShippingCountry   string
	ShippingState     string
	ShippingPhone     string
	ShippingCompany   string

	Company string
}

// Item is one cart line handed to the gateway.
type Item struct {
	Name        string
	Description string
	Quantity    int
	Price       int64 // In cents
}

// ItemBag is the cart payload for gateways that want line items.
type ItemBag []Item

// Response is the classified result of one gateway round trip.
type Response struct {
	Success        bool
	Redirect       bool
	RedirectMethod string // GET or POST
	RedirectURL    string
	RedirectData   map[string]string // hidden form fields for POST redirects

	Code      string
	Message   string
	Reference string // gateway's token for this transaction
	Raw       string // raw provider payload, stored for audit
}

// Request is a prepared gateway call. Send performs exactly one network
// round trip; SendData does the same with a substituted outgoing payload.
type Request interface {
	// Data returns the outgoing request payload.
	Data() map[string]any

	Send(ctx context.Context) (*Response, error)
	SendData(ctx context.Context, data map[string]any) (*Response, error)
}

// NotificationStatus is the remote state reported by an asynchronous
// server-to-server notification.
type NotificationStatus string

const (
	NotificationCompleted NotificationStatus = "completed"
	NotificationPending   NotificationStatus = "pending"
	NotificationFailed    NotificationStatus = "failed"
)

// NotificationResult is the outcome of parsing and verifying a notification.
type NotificationResult struct {
	// Valid is false when the notification fails cryptographic or
	// structural verification; the transaction must be left untouched.
	Valid bool

	Status    NotificationStatus
	Code      string
	Message   string
	Reference string
	Raw       string
}

// NotificationRequest parses one inbound gateway notification. Confirm and
// Reject build the provider-specific response bodies the gateway expects; the
// HTTP layer emits them verbatim.
type NotificationRequest interface {
	// SetReference attaches the stored gateway reference before sending.
	SetReference(ref string)

	Send(ctx context.Context) (*NotificationResult, error)

	// Confirm builds the acknowledgment pointing the gateway at the
	// completion URL. Required so the gateway stops retrying.
	Confirm(completeURL string) string

	// Reject builds the refusal body addressed at the cancel URL.
	Reject(cancelURL, reason string) string
}

// Gateway is the provider adapter consumed by the payment orchestrator.
type Gateway interface {
	// Handle returns the identifying handle, e.g. "stripe".
	Handle() string

	// PaymentType returns the configured default action.
	PaymentType() PaymentType

	// Capability predicates. The orchestrator checks these before
	// dispatching the matching action.
	SupportsAuthorize() bool
	SupportsPurchase() bool
	SupportsCapture() bool
	SupportsRefund() bool
	SupportsCompleteAuthorize() bool
	SupportsCompletePurchase() bool

	// UsesNotifyURL reports whether settlement arrives through the
	// server-to-server notification endpoint instead of the customer's
	// return redirect.
	UsesNotifyURL() bool

	// ForcesReferenceOnComplete reports that completion calls must carry
	// the gateway's original authorization reference instead of the
	// generically built one.
	ForcesReferenceOnComplete() bool

	// RequiresSelfSubmitRedirect reports that the gateway POSTs back
	// directly and needs a self-submitting confirmation page instead of a
	// normal response.
	RequiresSelfSubmitRedirect() bool

	// Request factories, one per action.
	Authorize(params Params) (Request, error)
	Purchase(params Params) (Request, error)
	Capture(params Params) (Request, error)
	Refund(params Params) (Request, error)
	CompleteAuthorize(params Params) (Request, error)
	CompletePurchase(params Params) (Request, error)

	// AcceptNotification builds the notification-parsing request for the
	// inbound callback body.
	AcceptNotification(body []byte, contentType string) (NotificationRequest, error)

	// PopulateCard fills card fields from the submitted form.
	PopulateCard(card *Card, form Form)

	// PopulateRequest lets the gateway attach provider-specific request
	// parameters from the submitted form.
	PopulateRequest(params Params, form Form)

	// CreateItemBag builds the cart payload for this gateway, or nil when
	// the gateway does not use line items.
	CreateItemBag(ord *order.Order) ItemBag
}

// NewRequest dispatches an action to the matching factory.
func NewRequest(g Gateway, action Action, params Params) (Request, error) {
	switch action {
	case ActionAuthorize:
		return g.Authorize(params)
	case ActionPurchase:
		return g.Purchase(params)
	case ActionCapture:
		return g.Capture(params)
	case ActionRefund:
		return g.Refund(params)
	case ActionCompleteAuthorize:
		return g.CompleteAuthorize(params)
	case ActionCompletePurchase:
		return g.CompletePurchase(params)
	default:
		return nil, fmt.Errorf("unknown gateway action: %s", action)
	}
}

// Supports reports whether the gateway declares the capability for an action.
func Supports(g Gateway, action Action) bool {
	switch action {
	case ActionAuthorize:
		return g.SupportsAuthorize()
	case ActionPurchase:
		return g.SupportsPurchase()
	case ActionCapture:
		return g.SupportsCapture()
	case ActionRefund:
		return g.SupportsRefund()
	case ActionCompleteAuthorize:
		return g.SupportsCompleteAuthorize()
	case ActionCompletePurchase:
		return g.SupportsCompletePurchase()
	default:
		return false
	}
}
