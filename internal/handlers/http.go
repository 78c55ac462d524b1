package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gacha-summon/internal/auth"
	"gacha-summon/internal/catalog"
	"gacha-summon/internal/config"
	"gacha-summon/internal/database"
	"gacha-summon/internal/middleware"
	"gacha-summon/internal/models"
	"gacha-summon/internal/pulls"
	"gacha-summon/internal/sampler"
	"gacha-summon/internal/scheduler"
	"gacha-summon/internal/services/summon"
	"gacha-summon/internal/shopify"
)

// AdminStore is the read side of the order store used by the admin API.
type AdminStore interface {
	ListOrders(ctx context.Context, limit, offset int) ([]models.Order, int64, error)
	GetOrder(ctx context.Context, number shopify.OrderNumber) (*models.Order, error)
	ListPullEvents(ctx context.Context, number shopify.OrderNumber, limit, offset int) ([]models.PullEvent, int64, error)
}

type StockReporter interface {
	Latest() *scheduler.StockReport
}

type Handler struct {
	cfg     *config.Config
	summon  *summon.Service
	store   AdminStore
	catalog *catalog.Catalog
	stock   StockReporter
	jwt     *auth.Manager
	logger  *slog.Logger
}

func NewHandler(cfg *config.Config, summonSvc *summon.Service, store AdminStore, cat *catalog.Catalog, stock StockReporter, jwt *auth.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:     cfg,
		summon:  summonSvc,
		store:   store,
		catalog: cat,
		stock:   stock,
		jwt:     jwt,
		logger:  logger,
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler, jwt *auth.Manager, adminIPs []string) {
	r.GET("/api/health", h.Health)
	r.POST("/api/orders/claim", h.Claim)

	order := r.Group("/api/order")
	order.Use(middleware.JWT(jwt), middleware.RequireOrder())
	order.GET("", h.OrderState)
	order.POST("/single", h.StartSingle)
	order.POST("/bulk", h.StartBulk)
	order.POST("/reveal", h.Reveal)
	order.GET("/share", h.Share)

	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminIPWhitelist(adminIPs))
	admin.POST("/login", h.AdminLogin)

	adminProtected := admin.Group("/")
	adminProtected.Use(middleware.JWT(jwt), middleware.RequireRole(auth.RoleAdmin))
	adminProtected.GET("/orders", h.AdminListOrders)
	adminProtected.GET("/orders/:number", h.AdminGetOrder)
	adminProtected.GET("/pulls", h.AdminListPulls)
	adminProtected.GET("/distribution", h.AdminDistribution)
	adminProtected.GET("/stock", h.AdminStock)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}

type claimRequest struct {
	OrderNumber     shopify.OrderNumber `json:"orderNumber" binding:"required"`
	DiscordUserID   string              `json:"discordUserId" binding:"required"`
	DiscordUsername string              `json:"discordUsername"`
}

func (h *Handler) Claim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	user := summon.User{ID: req.DiscordUserID, Username: req.DiscordUsername}
	o, err := h.summon.Claim(c.Request.Context(), req.OrderNumber, user)
	if err != nil {
		h.writeError(c, err, "claim failed", req.OrderNumber)
		return
	}
	token, err := h.jwt.IssueToken(o.Number, o.DiscordUserID, auth.RoleOrder, h.cfg.OrderTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"orderNumber": o.Number,
		"view":        o.Pulls.View(),
	})
}

func orderUser(c *gin.Context) (shopify.OrderNumber, summon.User) {
	number, userID := middleware.OrderSession(c)
	return number, summon.User{ID: userID}
}

func (h *Handler) OrderState(c *gin.Context) {
	number, user := orderUser(c)
	o, err := h.summon.State(c.Request.Context(), number, user)
	if err != nil {
		h.writeError(c, err, "state failed", number)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderNumber": o.Number, "view": o.Pulls.View()})
}

func (h *Handler) StartSingle(c *gin.Context) {
	number, user := orderUser(c)
	o, err := h.summon.StartSingle(c.Request.Context(), number, user)
	if err != nil {
		h.writeError(c, err, "single summon failed", number)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderNumber": o.Number, "view": o.Pulls.View()})
}

func (h *Handler) StartBulk(c *gin.Context) {
	number, user := orderUser(c)
	o, err := h.summon.StartBulk(c.Request.Context(), number, user)
	if err != nil {
		h.writeError(c, err, "full summon failed", number)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderNumber": o.Number, "view": o.Pulls.View()})
}

type revealRequest struct {
	Slot *int `json:"slot" binding:"required"`
}

func (h *Handler) Reveal(c *gin.Context) {
	var req revealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	number, user := orderUser(c)
	product, o, err := h.summon.Reveal(c.Request.Context(), number, user, *req.Slot)
	if err != nil {
		h.writeError(c, err, "reveal failed", number)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orderNumber": o.Number,
		"product":     product,
		"view":        o.Pulls.View(),
	})
}

func (h *Handler) Share(c *gin.Context) {
	number, user := orderUser(c)
	share, err := h.summon.Share(c.Request.Context(), number, user)
	if err != nil {
		h.writeError(c, err, "share failed", number)
		return
	}
	c.JSON(http.StatusOK, share)
}

// writeError maps domain errors onto responses. Anything unrecognised is
// logged and reported as a 500.
func (h *Handler) writeError(c *gin.Context, err error, msg string, number shopify.OrderNumber) {
	var gqlErr *shopify.GraphQLError
	switch {
	case errors.Is(err, pulls.ErrSlotIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pulls.ErrNoQuotaRemaining),
		errors.Is(err, pulls.ErrBannerInProgress),
		errors.Is(err, pulls.ErrRerollRefused),
		errors.Is(err, pulls.ErrBannerComplete),
		errors.Is(err, pulls.ErrSlotAlreadyRevealed),
		errors.Is(err, pulls.ErrNoActiveBanner):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "order changed, please retry"})
	case errors.Is(err, database.ErrOrderNotFound), errors.Is(err, shopify.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, summon.ErrOrderOwned):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, summon.ErrNoTickets):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, sampler.ErrNoEligibleProduct):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summons are unavailable right now"})
	case errors.As(err, &gqlErr):
		h.logger.Error(msg, "error", err, "order", number.String())
		c.JSON(http.StatusBadGateway, gin.H{"error": "order lookup failed"})
	default:
		h.logger.Error(msg, "error", err, "order", number.String())
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func parsePagination(c *gin.Context, defaultLimit, defaultOffset int) (int, int) {
	limit := defaultLimit
	offset := defaultOffset
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
