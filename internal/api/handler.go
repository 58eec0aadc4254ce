package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketplace-service/internal/currency"
	"marketplace-service/internal/models"
	"marketplace-service/internal/service"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	settlement *service.SettlementService
	payouts    *service.PayoutService
	ledger     *service.LedgerRecorder
	converter  *currency.Converter
}

// NewHandler creates a new HTTP handler
func NewHandler(
	settlement *service.SettlementService,
	payouts *service.PayoutService,
	ledger *service.LedgerRecorder,
	converter *currency.Converter,
) *Handler {
	return &Handler{
		settlement: settlement,
		payouts:    payouts,
		ledger:     ledger,
		converter:  converter,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:number", h.getOrder)
		v1.PUT("/orders/:number/confirm-delivery", h.confirmDelivery)

		v1.GET("/sellers/:id/wallets", h.getWallets)
		v1.GET("/sellers/:id/transactions", h.getTransactions)
		v1.POST("/sellers/:id/payouts", h.requestPayout)

		v1.GET("/rates", h.getRates)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.UserID = userID

	order, items, err := h.settlement.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
		"items": items,
	})
}

// getOrder handles get order by number
func (h *Handler) getOrder(c *gin.Context) {
	order, items, err := h.settlement.GetOrder(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err, "Failed to get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

// listOrders handles listing the requester's orders
func (h *Handler) listOrders(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	orders, err := h.settlement.ListOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// confirmDelivery handles buyer delivery confirmation and escrow release
func (h *Handler) confirmDelivery(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	order, err := h.settlement.ConfirmDelivery(
		c.Request.Context(), c.Param("number"), userID, models.ConfirmedByBuyer)
	if err != nil {
		respondError(c, err, "Failed to confirm delivery")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// getWallets handles seller wallet lookup
func (h *Handler) getWallets(c *gin.Context) {
	sellerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	wallets, err := h.payouts.Wallets(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, err, "Failed to get wallets")
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// getTransactions handles seller ledger listing
func (h *Handler) getTransactions(c *gin.Context) {
	sellerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	transactions, err := h.ledger.ListBySeller(c.Request.Context(), sellerID, limit)
	if err != nil {
		respondError(c, err, "Failed to get transactions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// payoutRequest represents a seller withdrawal request body
type payoutRequest struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Currency string  `json:"currency" binding:"required"`
}

// requestPayout handles seller payout requests
func (h *Handler) requestPayout(c *gin.Context) {
	sellerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req payoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	payout, err := h.payouts.RequestPayout(c.Request.Context(), sellerID, req.Amount, req.Currency)
	if err != nil {
		respondError(c, err, "Failed to request payout")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"payout": payout})
}

// getRates returns the current exchange rate table
func (h *Handler) getRates(c *gin.Context) {
	base, rates := h.converter.Rates()
	c.JSON(http.StatusOK, gin.H{
		"base":  base,
		"rates": rates,
	})
}

// requesterID reads the authenticated user ID set by the gateway
func requesterID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid X-User-ID header"})
		return 0, false
	}
	return userID, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors to HTTP statuses. Unexpected errors are
// logged with detail but surfaced only as a generic message.
func respondError(c *gin.Context, err error, generic string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrEscrowReleased):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInvalidAmount):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		util.GetLogger().Error(generic, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": generic})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
