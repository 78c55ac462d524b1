package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"gacha-summon/internal/models"
	"gacha-summon/internal/pulls"
	"gacha-summon/internal/shopify"
)

const orderColumns = `order_number, discord_user_id, discord_username, pulls, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var raw string
	if err := row.Scan(&o.Number, &o.DiscordUserID, &o.DiscordUsername, &raw, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	var p pulls.PullsData
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("order %s: %w", o.Number, err)
	}
	o.Pulls = &p
	return &o, nil
}

func encodePulls(p *pulls.PullsData) (string, string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", "", err
	}
	names := strings.Join(slices.Collect(p.PulledNames()), ", ")
	return string(data), names, nil
}

// CreateOrder inserts a new order at version 1. It fails with ErrOrderExists
// when the number is already claimed.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	raw, names, err := encodePulls(o.Pulls)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	query := s.rebind(`
INSERT INTO orders (order_number, discord_user_id, discord_username, pulls, pulled_names, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 1, ?, ?)
ON CONFLICT (order_number) DO NOTHING`)
	result, err := s.db.ExecContext(ctx, query, int64(o.Number), o.DiscordUserID, o.DiscordUsername, raw, names, now, now)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrOrderExists
	}
	o.Version = 1
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

func (s *Store) GetOrder(ctx context.Context, number shopify.OrderNumber) (*models.Order, error) {
	query := s.rebind(`SELECT ` + orderColumns + ` FROM orders WHERE order_number = ?`)
	o, err := scanOrder(s.db.QueryRowContext(ctx, query, int64(number)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// SaveOrder writes the pulls of o if the stored row is still at o.Version,
// then advances o.Version.
func (s *Store) SaveOrder(ctx context.Context, o *models.Order) error {
	raw, names, err := encodePulls(o.Pulls)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	query := s.rebind(`
UPDATE orders
SET pulls = ?, pulled_names = ?, version = version + 1, updated_at = ?
WHERE order_number = ? AND version = ?`)
	result, err := s.db.ExecContext(ctx, query, raw, names, now, int64(o.Number), o.Version)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM orders WHERE order_number = ?`), int64(o.Number)).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		return ErrVersionConflict
	}
	o.Version++
	o.UpdatedAt = now
	return nil
}

// ListOrders returns orders, most recently updated first, and the total count.
func (s *Store) ListOrders(ctx context.Context, limit, offset int) ([]models.Order, int64, error) {
	query := s.rebind(`SELECT ` + orderColumns + ` FROM orders ORDER BY updated_at DESC, order_number DESC LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// RecordPull appends an audit event, assigning its id and timestamp when unset.
func (s *Store) RecordPull(ctx context.Context, ev *models.PullEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	query := s.rebind(`
INSERT INTO pull_events (id, order_number, action, slot, sku, product_name, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, ev.ID, int64(ev.OrderNumber), string(ev.Action), ev.Slot, ev.SKU, ev.ProductName, ev.CreatedAt)
	return err
}

// ListPullEvents returns events oldest first. A zero number lists every order.
func (s *Store) ListPullEvents(ctx context.Context, number shopify.OrderNumber, limit, offset int) ([]models.PullEvent, int64, error) {
	where := ""
	var args []any
	if number != 0 {
		where = ` WHERE order_number = ?`
		args = append(args, int64(number))
	}
	query := s.rebind(`SELECT id, order_number, action, slot, sku, product_name, created_at FROM pull_events` +
		where + ` ORDER BY created_at, id LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, query, append(slices.Clone(args), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := []models.PullEvent{}
	for rows.Next() {
		var ev models.PullEvent
		var action string
		var slot sql.NullInt64
		var sku, name sql.NullString
		if err := rows.Scan(&ev.ID, &ev.OrderNumber, &action, &slot, &sku, &name, &ev.CreatedAt); err != nil {
			return nil, 0, err
		}
		ev.Action = models.PullAction(action)
		ev.Slot = nullableInt(slot)
		ev.SKU = nullableString(sku)
		ev.ProductName = nullableString(name)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	var total int64
	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM pull_events`+where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
