// Package inventory talks to the warehouse inventory service: it reads stock
// levels and records every pulled product as an order line.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const pullSource = "Discord Gacha"

// Snapshot maps sku to units on hand.
type Snapshot map[string]int

func (s Snapshot) Available(sku string) int {
	return s[sku]
}

type Item struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// PullRecord is one revealed product to log against an order.
type PullRecord struct {
	OrderNumber   uint32
	DiscordUserID string
	SKU           string
}

type orderRequest struct {
	Source string         `json:"source"`
	Items  []Item         `json:"items"`
	Data   map[string]any `json:"data"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	logPulls   bool
}

func NewClient(baseURL string, logPulls bool, logger *slog.Logger) *Client {
	if logger != nil {
		logger.Warn("inventory pull logging", "enabled", logPulls)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logPulls:   logPulls,
	}
}

// Snapshot fetches the current stock of every sku.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/google/view", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory returned status %d", resp.StatusCode)
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}
	snap := make(Snapshot, len(items))
	for _, item := range items {
		snap[item.SKU] += item.Quantity
	}
	return snap, nil
}

// LogPull records one pulled unit. It does nothing when pull logging is
// disabled.
func (c *Client) LogPull(ctx context.Context, rec PullRecord) error {
	if !c.logPulls {
		return nil
	}
	body, err := json.Marshal(orderRequest{
		Source: pullSource,
		Items:  []Item{{SKU: rec.SKU, Quantity: 1}},
		Data: map[string]any{
			"order_number":    rec.OrderNumber,
			"discord_user_id": rec.DiscordUserID,
		},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/custom/orders/create", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("inventory returned status %d", resp.StatusCode)
	}
	return nil
}
