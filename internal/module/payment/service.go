package payment

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/GlideMe/commerce/internal/module/payment/gateway"
	"github.com/GlideMe/commerce/internal/shared/config"
	"github.com/GlideMe/commerce/internal/shared/lock"
	"github.com/GlideMe/commerce/internal/shared/metrics"
)

// Orchestrator drives the payment lifecycle: initial purchase/authorize
// attempts, capture and refund follow-ups, redirect completion and
// asynchronous notification settlement. It owns all transaction status
// transitions; gateways only classify responses.
type Orchestrator struct {
	registry *gateway.Registry
	txRepo   Repository
	orders   *order.Service
	builder  *RequestBuilder
	hooks    *Hooks
	locker   lock.Locker
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cfg      config.PaymentConfig

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker[*gateway.Response]
}

// NewOrchestrator creates a payment orchestrator. hooks may be nil.
func NewOrchestrator(
	registry *gateway.Registry,
	txRepo Repository,
	orders *order.Service,
	locker lock.Locker,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg config.PaymentConfig,
	hooks *Hooks,
) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		txRepo:   txRepo,
		orders:   orders,
		builder:  NewRequestBuilder(cfg.BaseURL, hooks),
		hooks:    hooks,
		locker:   locker,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*gateway.Response]),
	}
}

// ProcessPayment runs the initial payment attempt for an order. The chosen
// action follows the gateway's configured payment type. Fully covered orders
// short-circuit to success without a gateway call or transaction row.
func (s *Orchestrator) ProcessPayment(ctx context.Context, orderID uuid.UUID, form gateway.Form, clientIP string) (*Result, error) {
	ord, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if ord.OutstandingBalance() == 0 {
		if err := s.orders.MarkPaid(ctx, ord); err != nil {
			return nil, err
		}
		s.logger.Info("order already covered, skipping gateway",
			zap.String("order_id", ord.ID.String()))
		return &Result{Status: ResultSuccess}, nil
	}

	g, err := s.resolveGateway(ord.GatewayHandle)
	if err != nil {
		return nil, err
	}

	action := gateway.ActionPurchase
	if g.PaymentType() == gateway.PaymentTypeAuthorize {
		action = gateway.ActionAuthorize
	}
	if !gateway.Supports(g, action) {
		return nil, fmt.Errorf("%w: gateway doesn't support %s", ErrInvalidAction, action)
	}

	tx, err := NewTransaction(ord, TransactionType(action))
	if err != nil {
		return nil, err
	}
	if err := s.txRepo.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("record pending transaction: %w", err)
	}

	card := BuildCard(ord, g, form)
	items := s.hooks.itemBagCreated(orderRef(ord), g.CreateItemBag(ord))

	params := s.builder.Build(g, BuildInput{
		Transaction: tx,
		Order:       ord,
		Card:        card,
		Items:       items,
		ClientIP:    clientIP,
	})
	g.PopulateRequest(params, form)

	req, err := gateway.NewRequest(g, action, params)
	if err != nil {
		return s.failTransaction(ctx, g, tx, err.Error())
	}

	return s.sendRequest(ctx, g, ord, tx, req)
}

// CaptureTransaction captures a previously authorized transaction.
func (s *Orchestrator) CaptureTransaction(ctx context.Context, parentID uuid.UUID) (*Result, error) {
	return s.processCaptureOrRefund(ctx, parentID, gateway.ActionCapture)
}

// RefundTransaction refunds a settled purchase or capture transaction.
func (s *Orchestrator) RefundTransaction(ctx context.Context, parentID uuid.UUID) (*Result, error) {
	return s.processCaptureOrRefund(ctx, parentID, gateway.ActionRefund)
}

func (s *Orchestrator) processCaptureOrRefund(ctx context.Context, parentID uuid.UUID, action gateway.Action) (*Result, error) {
	if action != gateway.ActionCapture && action != gateway.ActionRefund {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}

	parent, err := s.txRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := canFollowUp(parent, action); err != nil {
		return nil, err
	}

	g, err := s.resolveGateway(parent.GatewayHandle)
	if err != nil {
		return nil, err
	}
	if !gateway.Supports(g, action) {
		return nil, fmt.Errorf("%w: gateway doesn't support %s", ErrInvalidAction, action)
	}

	child, err := NewChildTransaction(parent, TransactionType(action))
	if err != nil {
		return nil, err
	}
	if err := s.txRepo.Save(ctx, child); err != nil {
		return nil, fmt.Errorf("record pending transaction: %w", err)
	}

	ord, err := s.orders.Get(ctx, parent.OrderID)
	if err != nil {
		return nil, err
	}

	// Operator-initiated flows land back on the order edit view rather
	// than the storefront return page.
	editURL := fmt.Sprintf("%s/orders/%s", s.cfg.OperatorBaseURL, ord.ID.String())
	if err := s.orders.SaveWithReturnURL(ctx, ord, editURL); err != nil {
		return nil, err
	}

	params := s.builder.Build(g, BuildInput{
		Transaction: child,
		Order:       ord,
		Reference:   parent.Reference,
	})

	req, err := gateway.NewRequest(g, action, params)
	if err != nil {
		return s.failTransaction(ctx, g, child, err.Error())
	}

	return s.sendRequest(ctx, g, ord, child, req)
}

// CompletePayment resolves an in-flight redirect-based transaction after the
// customer returns from the off-site gateway. Safe to call repeatedly; a
// settled transaction returns its recorded outcome without a gateway call.
func (s *Orchestrator) CompletePayment(ctx context.Context, hash string) (*Result, error) {
	tx, err := s.txRepo.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	ord, err := s.orders.Get(ctx, tx.OrderID)
	if err != nil {
		return nil, err
	}

	if tx.Status != StatusRedirect {
		return s.settledResult(tx, ord), nil
	}

	acquired, err := s.locker.Acquire(ctx, completionLockKey(tx.Hash), s.lockTTL())
	if err != nil {
		return nil, fmt.Errorf("acquire completion lease: %w", err)
	}
	if !acquired {
		return nil, ErrCompletionInFlight
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), completionLockKey(tx.Hash)); err != nil {
			s.logger.Warn("release completion lease", zap.Error(err))
		}
	}()

	// A duplicate delivery may have settled the transaction while we waited
	// on the lease.
	tx, err = s.txRepo.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if tx.Status != StatusRedirect {
		return s.settledResult(tx, ord), nil
	}

	completeAction, ok := gateway.Action(tx.Type).Complete()
	if !ok {
		return nil, fmt.Errorf("%w: transaction type %s cannot be completed", ErrInvalidAction, tx.Type)
	}

	g, err := s.resolveGateway(tx.GatewayHandle)
	if err != nil {
		return nil, err
	}
	// Reaching a redirect state on a gateway that cannot complete it is a
	// configuration defect, not a payment failure.
	if !gateway.Supports(g, completeAction) {
		return nil, fmt.Errorf("%w: %s", ErrCompleteUnsupported, completeAction)
	}

	// Some gateways need the cart replayed on the completion call.
	items := s.hooks.itemBagCreated(orderRef(ord), g.CreateItemBag(ord))

	in := BuildInput{
		Transaction:   tx,
		Order:         ord,
		Items:         items,
		ForCompletion: true,
	}
	if g.ForcesReferenceOnComplete() {
		in.Reference = tx.Reference
	}
	params := s.builder.Build(g, in)

	req, err := gateway.NewRequest(g, completeAction, params)
	if err != nil {
		return s.failTransaction(ctx, g, tx, err.Error())
	}

	result, err := s.sendRequest(ctx, g, ord, tx, req)
	if err != nil {
		return nil, err
	}

	if g.RequiresSelfSubmitRedirect() {
		target := ord.ReturnURL
		if result.Status == ResultFailed {
			target = ord.CancelURL
		}
		html, rerr := renderSelfSubmit(target)
		if rerr != nil {
			return nil, rerr
		}
		result.Page = &RenderInstruction{HTML: html, Plain: true}
		return result, nil
	}

	switch result.Status {
	case ResultSuccess:
		result.RedirectURL = ord.ReturnURL
	case ResultFailed:
		result.RedirectURL = ord.CancelURL
	}
	return result, nil
}

// AcceptNotification settles a transaction from an asynchronous gateway
// callback. The correlation hash is the only credential the callback carries;
// an unknown hash is a hard failure with no side effects.
func (s *Orchestrator) AcceptNotification(ctx context.Context, hash string, body []byte, contentType string) (*NotificationOutcome, error) {
	tx, err := s.txRepo.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	g, err := s.resolveGateway(tx.GatewayHandle)
	if err != nil {
		return nil, err
	}

	acquired, err := s.locker.Acquire(ctx, completionLockKey(tx.Hash), s.lockTTL())
	if err != nil {
		return nil, fmt.Errorf("acquire completion lease: %w", err)
	}
	if !acquired {
		return nil, ErrCompletionInFlight
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), completionLockKey(tx.Hash)); err != nil {
			s.logger.Warn("release completion lease", zap.Error(err))
		}
	}()

	// A concurrent completion may have settled the transaction while we
	// waited on the lease.
	tx, err = s.txRepo.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	nreq, err := g.AcceptNotification(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("parse notification: %w", err)
	}
	nreq.SetReference(tx.Reference)

	// Settled transactions stay settled; acknowledge the redelivery so the
	// gateway stops retrying, but never touch the ledger again.
	if tx.IsTerminal() {
		return &NotificationOutcome{
			Ack:         nreq.Confirm(s.builder.CompleteURL(tx)),
			Transaction: tx,
		}, nil
	}

	nres, err := nreq.Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify notification: %w", err)
	}

	ord, err := s.orders.Get(ctx, tx.OrderID)
	if err != nil {
		return nil, err
	}

	if !nres.Valid {
		s.metrics.RecordNotification(g.Handle(), "invalid")
		s.logger.Warn("invalid gateway notification",
			zap.String("gateway", g.Handle()),
			zap.String("transaction_id", tx.ID.String()),
			zap.String("message", nres.Message),
		)
		return &NotificationOutcome{
			Ack:         nreq.Reject(s.builder.absoluteURL(ord.CancelURL), nres.Message),
			Rejected:    true,
			Transaction: tx,
		}, nil
	}

	tx.Response = nres.Raw
	tx.Code = nres.Code
	tx.Message = nres.Message
	if nres.Reference != "" {
		tx.Reference = nres.Reference
	}

	switch nres.Status {
	case gateway.NotificationCompleted:
		if err := s.transition(ctx, tx, StatusSuccess); err != nil {
			return nil, err
		}
		if err := s.orders.RecomputePaidTotal(ctx, ord); err != nil {
			return nil, err
		}
	case gateway.NotificationFailed:
		if err := s.transition(ctx, tx, StatusFailed); err != nil {
			return nil, err
		}
	default:
		// Pending: record the payload but keep the current non-terminal
		// status so a later notification can still settle it.
		if err := s.txRepo.Save(ctx, tx); err != nil {
			return nil, err
		}
	}

	s.metrics.RecordNotification(g.Handle(), string(nres.Status))
	s.logger.Info("gateway notification processed",
		zap.String("gateway", g.Handle()),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("remote_status", string(nres.Status)),
		zap.String("status", string(tx.Status)),
	)

	return &NotificationOutcome{
		Ack:         nreq.Confirm(s.builder.CompleteURL(tx)),
		Transaction: tx,
	}, nil
}

// ListTransactions returns the order's transaction history, oldest first.
func (s *Orchestrator) ListTransactions(ctx context.Context, orderID uuid.UUID) ([]*Transaction, error) {
	return s.txRepo.ListByOrder(ctx, orderID)
}

// sendRequest is the shared send/response path. It runs the pre-send veto,
// performs exactly one gateway round trip through the circuit breaker,
// classifies the response into the transaction and persists it. Gateway and
// transport failures settle the transaction as failed rather than erroring;
// returned errors mean the ledger itself could not be written.
func (s *Orchestrator) sendRequest(ctx context.Context, g gateway.Gateway, ord *order.Order, tx *Transaction, req gateway.Request) (*Result, error) {
	if !s.hooks.beforeSend(tx, req) {
		return s.failTransaction(ctx, g, tx, "transaction canceled before send")
	}

	start := time.Now()
	res, err := s.send(ctx, g, req)
	s.metrics.RecordGatewaySend(g.Handle(), string(tx.Type), time.Since(start))

	if err != nil {
		s.logger.Error("gateway send failed",
			zap.String("gateway", g.Handle()),
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
		return s.failTransaction(ctx, g, tx, err.Error())
	}

	tx.Response = res.Raw
	tx.Code = res.Code
	tx.Message = res.Message
	if res.Reference != "" {
		tx.Reference = res.Reference
	}

	target := StatusFailed
	switch {
	case res.Success:
		target = StatusSuccess
	case res.Redirect:
		target = StatusRedirect
	}
	if err := s.transition(ctx, tx, target); err != nil {
		return nil, err
	}

	s.metrics.RecordPaymentAttempt(g.Handle(), string(tx.Type), string(tx.Status))
	s.logger.Info("gateway response recorded",
		zap.String("gateway", g.Handle()),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("status", string(tx.Status)),
	)

	switch tx.Status {
	case StatusSuccess:
		if err := s.orders.RecomputePaidTotal(ctx, ord); err != nil {
			return nil, err
		}
		return &Result{Status: ResultSuccess, Transaction: tx}, nil

	case StatusRedirect:
		if res.RedirectMethod == http.MethodPost {
			html, rerr := renderPostRedirect(res, s.cfg.PostRedirectTemplate)
			if rerr != nil {
				return s.failTransaction(ctx, g, tx, rerr.Error())
			}
			return &Result{
				Status:      ResultRedirect,
				Page:        &RenderInstruction{HTML: html},
				Transaction: tx,
			}, nil
		}
		return &Result{
			Status:      ResultRedirect,
			RedirectURL: res.RedirectURL,
			Transaction: tx,
		}, nil

	default:
		return &Result{Status: ResultFailed, Message: tx.Message, Transaction: tx}, nil
	}
}

// send performs the single network round trip, letting the send-data hook
// substitute the outgoing payload first.
func (s *Orchestrator) send(ctx context.Context, g gateway.Gateway, req gateway.Request) (*gateway.Response, error) {
	breaker := s.breaker(g.Handle())
	return breaker.Execute(func() (*gateway.Response, error) {
		if replacement, substitute := s.hooks.sendData(req.Data()); substitute {
			return req.SendData(ctx, replacement)
		}
		return req.Send(ctx)
	})
}

// failTransaction settles a transaction as failed with the given message.
func (s *Orchestrator) failTransaction(ctx context.Context, g gateway.Gateway, tx *Transaction, message string) (*Result, error) {
	tx.Message = message
	if err := s.transition(ctx, tx, StatusFailed); err != nil {
		return nil, err
	}
	s.metrics.RecordPaymentAttempt(g.Handle(), string(tx.Type), string(StatusFailed))
	return &Result{Status: ResultFailed, Message: message, Transaction: tx}, nil
}

// transition moves a transaction's status forward and persists it.
func (s *Orchestrator) transition(ctx context.Context, tx *Transaction, to TransactionStatus) error {
	if !tx.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, tx.Status, to)
	}
	tx.Status = to
	if err := s.txRepo.Save(ctx, tx); err != nil {
		return fmt.Errorf("persist transaction: %w", err)
	}
	s.metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	return nil
}

// settledResult maps an already terminal transaction back into the outcome
// recorded for it, without contacting the gateway again.
func (s *Orchestrator) settledResult(tx *Transaction, ord *order.Order) *Result {
	if tx.Status == StatusSuccess {
		return &Result{
			Status:      ResultSuccess,
			RedirectURL: ord.ReturnURL,
			Transaction: tx,
		}
	}
	return &Result{
		Status:      ResultFailed,
		RedirectURL: ord.CancelURL,
		Message:     tx.Message,
		Transaction: tx,
	}
}

func (s *Orchestrator) resolveGateway(handle string) (gateway.Gateway, error) {
	return s.registry.Get(handle)
}

func (s *Orchestrator) breaker(handle string) *gobreaker.CircuitBreaker[*gateway.Response] {
	s.breakerMu.Lock()
	defer s.breakerMu.Unlock()
	if b, ok := s.breakers[handle]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[*gateway.Response](gobreaker.Settings{
		Name:    "gateway:" + handle,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	s.breakers[handle] = b
	return b
}

func (s *Orchestrator) lockTTL() time.Duration {
	if s.cfg.CompletionLockTTL > 0 {
		return s.cfg.CompletionLockTTL
	}
	return 30 * time.Second
}

// canFollowUp checks that a capture or refund targets an eligible parent.
func canFollowUp(parent *Transaction, action gateway.Action) error {
	if parent.Status != StatusSuccess {
		return fmt.Errorf("%w: parent transaction is %s, not success", ErrInvalidAction, parent.Status)
	}
	switch action {
	case gateway.ActionCapture:
		if parent.Type != TypeAuthorize {
			return fmt.Errorf("%w: only authorize transactions can be captured", ErrInvalidAction)
		}
	case gateway.ActionRefund:
		if parent.Type != TypePurchase && parent.Type != TypeCapture {
			return fmt.Errorf("%w: only purchase or capture transactions can be refunded", ErrInvalidAction)
		}
	}
	return nil
}

func completionLockKey(hash string) string {
	return "payment:settle:" + hash
}

func orderRef(ord *order.Order) OrderRef {
	return OrderRef{ID: ord.ID.String(), Number: ord.Number}
}
