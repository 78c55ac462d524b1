package models

import (
	"time"

	"gacha-summon/internal/pulls"
	"gacha-summon/internal/shopify"
)

// Order is a claimed store order and its summon state.
type Order struct {
	Number          shopify.OrderNumber `json:"orderNumber"`
	DiscordUserID   string              `json:"discordUserId"`
	DiscordUsername string              `json:"discordUsername"`
	Pulls           *pulls.PullsData    `json:"pulls"`
	Version         int64               `json:"version"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type PullAction string

const (
	ActionStartSingle PullAction = "start_single"
	ActionStartBulk   PullAction = "start_bulk"
	ActionReveal      PullAction = "reveal"
)

// PullEvent is one audit entry for an order. Slot, SKU and ProductName are
// set on reveals only.
type PullEvent struct {
	ID          string              `json:"id"`
	OrderNumber shopify.OrderNumber `json:"orderNumber"`
	Action      PullAction          `json:"action"`
	Slot        *int                `json:"slot,omitempty"`
	SKU         *string             `json:"sku,omitempty"`
	ProductName *string             `json:"productName,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// OrderSummary is the admin list view of an order.
type OrderSummary struct {
	Number           shopify.OrderNumber `json:"orderNumber"`
	DiscordUserID    string              `json:"discordUserId"`
	DiscordUsername  string              `json:"discordUsername"`
	RemainingSingles int                 `json:"remainingSingles"`
	RemainingBulks   int                 `json:"remainingBulks"`
	PulledNames      []string            `json:"pulledNames"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}
