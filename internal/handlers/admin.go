package handlers

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"

	"gacha-summon/internal/auth"
	"gacha-summon/internal/database"
	"gacha-summon/internal/models"
	"gacha-summon/internal/shopify"
)

type adminLoginRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Password != h.cfg.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if ok := totp.Validate(req.Code, h.cfg.AdminTOTPSecret); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp"})
		return
	}
	token, err := h.jwt.IssueToken(0, "admin", auth.RoleAdmin, 4*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func summarize(o models.Order) models.OrderSummary {
	names := slices.Collect(o.Pulls.PulledNames())
	if names == nil {
		names = []string{}
	}
	return models.OrderSummary{
		Number:           o.Number,
		DiscordUserID:    o.DiscordUserID,
		DiscordUsername:  o.DiscordUsername,
		RemainingSingles: o.Pulls.RemainingSingles(),
		RemainingBulks:   o.Pulls.RemainingBulks(),
		PulledNames:      names,
		UpdatedAt:        o.UpdatedAt,
	}
}

func (h *Handler) AdminListOrders(c *gin.Context) {
	limit, offset := parsePagination(c, 50, 0)
	orders, total, err := h.store.ListOrders(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list orders failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}
	summaries := make([]models.OrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, summarize(o))
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": summaries,
		"total":  total,
	})
}

func (h *Handler) AdminGetOrder(c *gin.Context) {
	number, err := shopify.ParseOrderNumber(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order number"})
		return
	}
	o, err := h.store.GetOrder(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.logger.Error("get order failed", "error", err, "order", number.String())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get order failed"})
		return
	}
	events, _, err := h.store.ListPullEvents(c.Request.Context(), number, 200, 0)
	if err != nil {
		h.logger.Warn("list pull events failed", "error", err, "order", number.String())
		events = []models.PullEvent{}
	}
	c.JSON(http.StatusOK, gin.H{
		"order":   o,
		"summary": summarize(*o),
		"view":    o.Pulls.View(),
		"events":  events,
	})
}

func (h *Handler) AdminListPulls(c *gin.Context) {
	limit, offset := parsePagination(c, 50, 0)
	var number shopify.OrderNumber
	if raw := c.Query("order"); raw != "" {
		parsed, err := shopify.ParseOrderNumber(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order number"})
			return
		}
		number = parsed
	}
	events, total, err := h.store.ListPullEvents(c.Request.Context(), number, limit, offset)
	if err != nil {
		h.logger.Error("list pull events failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list pulls failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
	})
}

func (h *Handler) AdminDistribution(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pools": h.catalog.Distribution()})
}

func (h *Handler) AdminStock(c *gin.Context) {
	report := h.stock.Latest()
	if report == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stock not checked yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}
