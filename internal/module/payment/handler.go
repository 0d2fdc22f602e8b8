package payment

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/GlideMe/commerce/internal/module/payment/gateway"
	"github.com/GlideMe/commerce/internal/shared/response"
)

// Handler exposes the payment lifecycle over HTTP.
type Handler struct {
	orchestrator *Orchestrator
	logger       *zap.Logger
}

// NewHandler creates a payment handler.
func NewHandler(orchestrator *Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, logger: logger}
}

// RegisterRoutes registers the payment endpoints. The completion and
// notification endpoints are unauthenticated; the correlation hash in the
// query string is their only credential.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/orders/:id/pay", h.Pay)
		api.GET("/orders/:id/transactions", h.ListTransactions)
		api.POST("/transactions/:id/capture", h.Capture)
		api.POST("/transactions/:id/refund", h.Refund)
	}

	// Gateways differ on the verb they return and notify with.
	r.GET("/payments/complete", h.Complete)
	r.POST("/payments/complete", h.Complete)
	r.GET("/payments/notify", h.Notify)
	r.POST("/payments/notify", h.Notify)
}

type payRequest struct {
	Form gateway.Form `json:"form"`
}

// Pay starts a payment attempt for an order.
func (h *Handler) Pay(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}

	var body payRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.orchestrator.ProcessPayment(c.Request.Context(), orderID, body.Form, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderResult(c, result)
}

// Capture captures a previously authorized transaction.
func (h *Handler) Capture(c *gin.Context) {
	h.followUp(c, h.orchestrator.CaptureTransaction)
}

// Refund refunds a settled transaction.
func (h *Handler) Refund(c *gin.Context) {
	h.followUp(c, h.orchestrator.RefundTransaction)
}

func (h *Handler) followUp(c *gin.Context, op func(ctx context.Context, parentID uuid.UUID) (*Result, error)) {
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid transaction id")
		return
	}
	result, err := op(c.Request.Context(), parentID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderResult(c, result)
}

// ListTransactions returns an order's transaction history.
func (h *Handler) ListTransactions(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	txs, err := h.orchestrator.ListTransactions(c.Request.Context(), orderID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// Complete resolves a redirect-based transaction when the customer returns
// from the gateway.
func (h *Handler) Complete(c *gin.Context) {
	hash := c.Query("hash")
	if hash == "" {
		response.BadRequest(c, "missing transaction hash")
		return
	}

	result, err := h.orchestrator.CompletePayment(c.Request.Context(), hash)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if result.Page != nil {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(result.Page.HTML))
		return
	}
	if result.RedirectURL != "" {
		c.Redirect(http.StatusFound, result.RedirectURL)
		return
	}
	h.renderResult(c, result)
}

// Notify accepts an asynchronous server-to-server gateway notification. The
// response body is the gateway's own acknowledgment format, emitted verbatim.
func (h *Handler) Notify(c *gin.Context) {
	hash := c.Query("hash")
	if hash == "" {
		response.BadRequest(c, "missing transaction hash")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "unreadable notification body")
		return
	}

	outcome, err := h.orchestrator.AcceptNotification(c.Request.Context(), hash, body, c.ContentType())
	if err != nil {
		h.handleError(c, err)
		return
	}

	status := http.StatusOK
	if outcome.Rejected {
		status = http.StatusBadRequest
	}
	c.Data(status, "text/plain; charset=utf-8", []byte(outcome.Ack))
}

// renderResult maps a settled or redirecting payment result onto the wire.
func (h *Handler) renderResult(c *gin.Context, result *Result) {
	switch result.Status {
	case ResultRedirect:
		if result.Page != nil {
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(result.Page.HTML))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      result.Status,
			"redirectUrl": result.RedirectURL,
			"transaction": result.Transaction,
		})
	case ResultSuccess:
		c.JSON(http.StatusOK, gin.H{
			"status":      result.Status,
			"transaction": result.Transaction,
		})
	default:
		c.JSON(http.StatusPaymentRequired, gin.H{
			"status":      result.Status,
			"error":       result.Message,
			"transaction": result.Transaction,
		})
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.Error("payment operation failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
		{Err: order.ErrOrderNotFound, Status: http.StatusNotFound},
		{Err: ErrTransactionNotFound, Status: http.StatusNotFound},
		{Err: ErrInvalidAction, Status: http.StatusBadRequest, Message: err.Error()},
		{Err: ErrCompletionInFlight, Status: http.StatusConflict},
		{Err: ErrCompleteUnsupported, Status: http.StatusInternalServerError},
	})
}
