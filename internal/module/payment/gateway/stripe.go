package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
)

// StripeConfig holds Stripe gateway configuration.
type StripeConfig struct {
	APIKey      string
	PaymentType PaymentType
}

// StripeGateway adapts Stripe PaymentIntents to the Gateway contract.
// Settlement is synchronous: the confirm call either succeeds, declines, or
// asks for a customer redirect (3-D Secure).
type StripeGateway struct {
	paymentType PaymentType
}

// NewStripeGateway creates a new Stripe gateway.
func NewStripeGateway(cfg *StripeConfig) *StripeGateway {
	stripe.Key = cfg.APIKey
	paymentType := cfg.PaymentType
	if paymentType == "" {
		paymentType = PaymentTypePurchase
	}
	return &StripeGateway{paymentType: paymentType}
}

// Handle returns the gateway handle.
func (g *StripeGateway) Handle() string {
	return "stripe"
}

// PaymentType returns the configured default action.
func (g *StripeGateway) PaymentType() PaymentType {
	return g.paymentType
}

func (g *StripeGateway) SupportsAuthorize() bool         { return true }
func (g *StripeGateway) SupportsPurchase() bool          { return true }
func (g *StripeGateway) SupportsCapture() bool           { return true }
func (g *StripeGateway) SupportsRefund() bool            { return true }
func (g *StripeGateway) SupportsCompleteAuthorize() bool { return true }
func (g *StripeGateway) SupportsCompletePurchase() bool  { return true }

func (g *StripeGateway) UsesNotifyURL() bool              { return false }
func (g *StripeGateway) ForcesReferenceOnComplete() bool  { return false }
func (g *StripeGateway) RequiresSelfSubmitRedirect() bool { return false }

func (g *StripeGateway) Authorize(params Params) (Request, error) {
	return newStripeRequest(ActionAuthorize, params), nil
}

func (g *StripeGateway) Purchase(params Params) (Request, error) {
	return newStripeRequest(ActionPurchase, params), nil
}

func (g *StripeGateway) Capture(params Params) (Request, error) {
	return newStripeRequest(ActionCapture, params), nil
}

func (g *StripeGateway) Refund(params Params) (Request, error) {
	return newStripeRequest(ActionRefund, params), nil
}

func (g *StripeGateway) CompleteAuthorize(params Params) (Request, error) {
	return newStripeRequest(ActionCompleteAuthorize, params), nil
}

func (g *StripeGateway) CompletePurchase(params Params) (Request, error) {
	return newStripeRequest(ActionCompletePurchase, params), nil
}

// AcceptNotification is unsupported: Stripe settles through the synchronous
// confirm call and the customer's return redirect.
func (g *StripeGateway) AcceptNotification(body []byte, contentType string) (NotificationRequest, error) {
	return nil, errors.New("stripe does not deliver payment notifications")
}

// PopulateCard fills card fields from the submitted form. Stripe payments
// normally carry a tokenized payment method instead of raw card data.
func (g *StripeGateway) PopulateCard(card *Card, form Form) {
	card.Number = form["number"]
	card.ExpiryMonth = form["expiry_month"]
	card.ExpiryYear = form["expiry_year"]
	card.CVV = form["cvv"]
}

// PopulateRequest attaches the tokenized payment method from the form.
func (g *StripeGateway) PopulateRequest(params Params, form Form) {
	if pm := form["payment_method"]; pm != "" {
		params["paymentMethod"] = pm
	}
	if email := form["receipt_email"]; email != "" {
		params["receiptEmail"] = email
	}
}

// CreateItemBag returns nil: Stripe PaymentIntents do not take line items.
func (g *StripeGateway) CreateItemBag(ord *order.Order) ItemBag {
	return nil
}

// stripeRequest is one prepared Stripe call.
type stripeRequest struct {
	action Action
	data   map[string]any
}

func newStripeRequest(action Action, params Params) *stripeRequest {
	return &stripeRequest{action: action, data: map[string]any(params)}
}

func (r *stripeRequest) Data() map[string]any {
	return r.data
}

func (r *stripeRequest) Send(ctx context.Context) (*Response, error) {
	return r.SendData(ctx, r.data)
}

func (r *stripeRequest) SendData(ctx context.Context, data map[string]any) (*Response, error) {
	switch r.action {
	case ActionAuthorize, ActionPurchase:
		return r.sendIntent(ctx, data, r.action == ActionAuthorize)
	case ActionCapture:
		return r.sendCapture(ctx, data)
	case ActionRefund:
		return r.sendRefund(ctx, data)
	case ActionCompleteAuthorize, ActionCompletePurchase:
		return r.sendComplete(ctx, data)
	default:
		return nil, fmt.Errorf("stripe: unsupported action %s", r.action)
	}
}

func (r *stripeRequest) sendIntent(ctx context.Context, data map[string]any, manualCapture bool) (*Response, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(paramInt64(data, "amount")),
		Currency:    stripe.String(paramString(data, "currency")),
		Description: stripe.String(paramString(data, "description")),
		Confirm:     stripe.Bool(true),
	}
	params.Context = ctx
	if pm := paramString(data, "paymentMethod"); pm != "" {
		params.PaymentMethod = stripe.String(pm)
	}
	if ret := paramString(data, "returnUrl"); ret != "" {
		params.ReturnURL = stripe.String(ret)
	}
	if email := paramString(data, "receiptEmail"); email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	if manualCapture {
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}

	pi, err := paymentintent.New(params)
	return stripeIntentResponse(pi, err)
}

func (r *stripeRequest) sendCapture(ctx context.Context, data map[string]any) (*Response, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	pi, err := paymentintent.Capture(paramString(data, "transactionReference"), params)
	return stripeIntentResponse(pi, err)
}

func (r *stripeRequest) sendRefund(ctx context.Context, data map[string]any) (*Response, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paramString(data, "transactionReference")),
	}
	params.Context = ctx
	if amount := paramInt64(data, "amount"); amount > 0 {
		params.Amount = stripe.Int64(amount)
	}

	ref, err := refund.New(params)
	if err != nil {
		return stripeErrorResponse(err)
	}

	raw, _ := json.Marshal(ref)
	return &Response{
		Success:   ref.Status == stripe.RefundStatusSucceeded || ref.Status == stripe.RefundStatusPending,
		Code:      string(ref.Status),
		Reference: ref.ID,
		Raw:       string(raw),
	}, nil
}

// sendComplete re-fetches the intent after the customer returns from a 3-D
// Secure redirect.
func (r *stripeRequest) sendComplete(ctx context.Context, data map[string]any) (*Response, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(paramString(data, "transactionReference"), params)
	return stripeIntentResponse(pi, err)
}

// stripeIntentResponse classifies a PaymentIntent outcome. Declines arrive
// as *stripe.Error and become failed responses, not transport errors.
func stripeIntentResponse(pi *stripe.PaymentIntent, err error) (*Response, error) {
	if err != nil {
		return stripeErrorResponse(err)
	}

	raw, _ := json.Marshal(pi)
	resp := &Response{
		Code:      string(pi.Status),
		Reference: pi.ID,
		Raw:       string(raw),
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		resp.Success = true
	case stripe.PaymentIntentStatusRequiresAction:
		if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil {
			resp.Redirect = true
			resp.RedirectMethod = "GET"
			resp.RedirectURL = pi.NextAction.RedirectToURL.URL
		} else {
			resp.Message = "payment requires additional action"
		}
	default:
		resp.Message = "payment not completed: " + string(pi.Status)
		if pi.LastPaymentError != nil {
			resp.Message = pi.LastPaymentError.Msg
			resp.Code = string(pi.LastPaymentError.Code)
		}
	}
	return resp, nil
}

// stripeErrorResponse turns Stripe API errors into failed responses where
// they represent declines, and real errors otherwise.
func stripeErrorResponse(err error) (*Response, error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		raw, _ := json.Marshal(stripeErr)
		return &Response{
			Success: false,
			Code:    string(stripeErr.Code),
			Message: stripeErr.Msg,
			Raw:     string(raw),
		}, nil
	}
	return nil, fmt.Errorf("stripe request: %w", err)
}

func paramString(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func paramInt64(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
