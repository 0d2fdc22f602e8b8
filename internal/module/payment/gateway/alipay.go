package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/go-pay/gopay"
	"github.com/go-pay/gopay/alipay"
)

// AlipayConfig holds Alipay gateway configuration.
type AlipayConfig struct {
	AppID           string // Application ID
	PrivateKey      string // RSA2 private key (PEM format)
	AlipayPublicKey string // Alipay public key for verification (PEM format)
	IsProd          bool   // Production environment flag
}

// AlipayGateway adapts Alipay page payments to the Gateway contract. The
// customer is redirected off-site; settlement arrives through the signed
// server-to-server notification, with the synchronous return flow falling
// back to a trade query.
type AlipayGateway struct {
	client *alipay.Client
	config *AlipayConfig
}

// NewAlipayGateway creates a new Alipay gateway.
func NewAlipayGateway(cfg *AlipayConfig) (*AlipayGateway, error) {
	client, err := alipay.NewClient(cfg.AppID, cfg.PrivateKey, cfg.IsProd)
	if err != nil {
		return nil, fmt.Errorf("create alipay client: %w", err)
	}
	client.AutoVerifySign([]byte(cfg.AlipayPublicKey))

	return &AlipayGateway{client: client, config: cfg}, nil
}

// Handle returns the gateway handle.
func (g *AlipayGateway) Handle() string {
	return "alipay"
}

// PaymentType returns the default action. Alipay has no authorize/capture
// split, every payment is a purchase.
func (g *AlipayGateway) PaymentType() PaymentType {
	return PaymentTypePurchase
}

func (g *AlipayGateway) SupportsAuthorize() bool         { return false }
func (g *AlipayGateway) SupportsPurchase() bool          { return true }
func (g *AlipayGateway) SupportsCapture() bool           { return false }
func (g *AlipayGateway) SupportsRefund() bool            { return true }
func (g *AlipayGateway) SupportsCompleteAuthorize() bool { return false }
func (g *AlipayGateway) SupportsCompletePurchase() bool  { return true }

func (g *AlipayGateway) UsesNotifyURL() bool { return true }

// ForcesReferenceOnComplete: the completion query must address the trade by
// the reference Alipay assigned, not the generically rebuilt one.
func (g *AlipayGateway) ForcesReferenceOnComplete() bool  { return true }
func (g *AlipayGateway) RequiresSelfSubmitRedirect() bool { return false }

func (g *AlipayGateway) Authorize(params Params) (Request, error) {
	return nil, errors.New("alipay does not support authorize")
}

func (g *AlipayGateway) Purchase(params Params) (Request, error) {
	return &alipayRequest{client: g.client, action: ActionPurchase, data: map[string]any(params)}, nil
}

func (g *AlipayGateway) Capture(params Params) (Request, error) {
	return nil, errors.New("alipay does not support capture")
}

func (g *AlipayGateway) Refund(params Params) (Request, error) {
	return &alipayRequest{client: g.client, action: ActionRefund, data: map[string]any(params)}, nil
}

func (g *AlipayGateway) CompleteAuthorize(params Params) (Request, error) {
	return nil, errors.New("alipay does not support complete-authorize")
}

func (g *AlipayGateway) CompletePurchase(params Params) (Request, error) {
	return &alipayRequest{client: g.client, action: ActionCompletePurchase, data: map[string]any(params)}, nil
}

// AcceptNotification builds the parser for Alipay's form-encoded callback.
func (g *AlipayGateway) AcceptNotification(body []byte, contentType string) (NotificationRequest, error) {
	return &alipayNotification{
		publicKey: g.config.AlipayPublicKey,
		body:      body,
	}, nil
}

// PopulateCard is a no-op: Alipay never sees card data.
func (g *AlipayGateway) PopulateCard(card *Card, form Form) {}

// PopulateRequest is a no-op: the page-pay request is fully described by the
// generic parameters.
func (g *AlipayGateway) PopulateRequest(params Params, form Form) {}

// CreateItemBag builds the goods detail Alipay shows on its payment page.
func (g *AlipayGateway) CreateItemBag(ord *order.Order) ItemBag {
	items := make(ItemBag, 0, len(ord.Items))
	for _, it := range ord.Items {
		items = append(items, Item{
			Name:     it.Description,
			Quantity: it.Quantity,
			Price:    it.UnitPrice,
		})
	}
	return items
}

// alipayRequest is one prepared Alipay call.
type alipayRequest struct {
	client *alipay.Client
	action Action
	data   map[string]any
}

func (r *alipayRequest) Data() map[string]any {
	return r.data
}

func (r *alipayRequest) Send(ctx context.Context) (*Response, error) {
	return r.SendData(ctx, r.data)
}

func (r *alipayRequest) SendData(ctx context.Context, data map[string]any) (*Response, error) {
	switch r.action {
	case ActionPurchase:
		return r.sendPagePay(ctx, data)
	case ActionRefund:
		return r.sendRefund(ctx, data)
	case ActionCompletePurchase:
		return r.sendQuery(ctx, data)
	default:
		return nil, fmt.Errorf("alipay: unsupported action %s", r.action)
	}
}

// sendPagePay builds the hosted payment page URL; the response is always a
// GET redirect.
func (r *alipayRequest) sendPagePay(ctx context.Context, data map[string]any) (*Response, error) {
	bm := make(gopay.BodyMap)
	bm.Set("out_trade_no", paramString(data, "transactionId"))
	bm.Set("total_amount", yuan(paramInt64(data, "amount")))
	bm.Set("subject", paramString(data, "description"))
	bm.Set("product_code", "FAST_INSTANT_TRADE_PAY")
	if ret := paramString(data, "returnUrl"); ret != "" {
		bm.Set("return_url", ret)
	}
	if notify := paramString(data, "notifyUrl"); notify != "" {
		bm.Set("notify_url", notify)
	}
	if items, ok := data["items"].(ItemBag); ok && len(items) > 0 {
		goods, _ := json.Marshal(items)
		bm.Set("goods_detail", string(goods))
	}

	payURL, err := r.client.TradePagePay(ctx, bm)
	if err != nil {
		return nil, fmt.Errorf("alipay page pay: %w", err)
	}

	raw, _ := json.Marshal(bm)
	return &Response{
		Redirect:       true,
		RedirectMethod: "GET",
		RedirectURL:    payURL,
		Reference:      paramString(data, "transactionId"),
		Raw:            string(raw),
	}, nil
}

func (r *alipayRequest) sendRefund(ctx context.Context, data map[string]any) (*Response, error) {
	bm := make(gopay.BodyMap)
	bm.Set("trade_no", paramString(data, "transactionReference"))
	bm.Set("out_request_no", paramString(data, "transactionId"))
	bm.Set("refund_amount", yuan(paramInt64(data, "amount")))

	resp, err := r.client.TradeRefund(ctx, bm)
	if err != nil {
		return nil, fmt.Errorf("alipay refund: %w", err)
	}

	raw, _ := json.Marshal(resp.Response)
	return &Response{
		Success:   resp.Response.Code == "10000",
		Code:      resp.Response.Code,
		Message:   resp.Response.Msg,
		Reference: resp.Response.TradeNo,
		Raw:       string(raw),
	}, nil
}

// sendQuery resolves a returning customer's redirect by querying the trade.
func (r *alipayRequest) sendQuery(ctx context.Context, data map[string]any) (*Response, error) {
	bm := make(gopay.BodyMap)
	if ref := paramString(data, "transactionReference"); ref != "" {
		bm.Set("out_trade_no", ref)
	} else {
		bm.Set("out_trade_no", paramString(data, "transactionId"))
	}

	resp, err := r.client.TradeQuery(ctx, bm)
	if err != nil {
		return nil, fmt.Errorf("alipay query: %w", err)
	}

	raw, _ := json.Marshal(resp.Response)
	out := &Response{
		Code:      resp.Response.Code,
		Message:   resp.Response.Msg,
		Reference: resp.Response.TradeNo,
		Raw:       string(raw),
	}
	if resp.Response.Code != "10000" {
		return out, nil
	}

	switch resp.Response.TradeStatus {
	case "TRADE_SUCCESS", "TRADE_FINISHED":
		out.Success = true
	case "WAIT_BUYER_PAY":
		out.Message = "payment pending at gateway"
	default:
		out.Message = "trade not completed: " + resp.Response.TradeStatus
	}
	return out, nil
}

// alipayNotification parses and verifies one async callback.
type alipayNotification struct {
	publicKey string
	body      []byte
	reference string
}

func (n *alipayNotification) SetReference(ref string) {
	n.reference = ref
}

func (n *alipayNotification) Send(ctx context.Context) (*NotificationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(n.body))
	if err != nil {
		return nil, fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	bm, err := alipay.ParseNotifyToBodyMap(req)
	if err != nil {
		return nil, fmt.Errorf("parse notify: %w", err)
	}

	raw, _ := json.Marshal(bm)
	result := &NotificationResult{
		Reference: bm.Get("trade_no"),
		Code:      bm.Get("trade_status"),
		Raw:       string(raw),
	}

	ok, err := alipay.VerifySign(n.publicKey, bm)
	if err != nil || !ok {
		result.Valid = false
		result.Message = "signature verification failed"
		return result, nil
	}
	result.Valid = true

	switch bm.Get("trade_status") {
	case "TRADE_SUCCESS", "TRADE_FINISHED":
		result.Status = NotificationCompleted
	case "WAIT_BUYER_PAY":
		result.Status = NotificationPending
	default:
		result.Status = NotificationFailed
	}
	result.Message = bm.Get("trade_status")
	return result, nil
}

// Confirm returns the body Alipay expects so it stops retrying.
func (n *alipayNotification) Confirm(completeURL string) string {
	return "success"
}

// Reject returns the body that tells Alipay the notification was refused.
func (n *alipayNotification) Reject(cancelURL, reason string) string {
	return "failure"
}

// yuan converts cents to Alipay's decimal yuan string.
func yuan(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}
