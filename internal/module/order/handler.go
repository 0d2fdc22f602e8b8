package order

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GlideMe/commerce/internal/shared/response"
)

// Handler exposes order reads over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an order handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the order endpoints.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/orders/:id", h.Get)
}

// Get returns an order with its items and current totals.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}

	ord, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get order failed", zap.String("order_id", id.String()), zap.Error(err))
		response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
			{Err: ErrOrderNotFound, Status: http.StatusNotFound},
		})
		return
	}
	c.JSON(http.StatusOK, ord)
}
