// Package summon runs one player interaction against a claimed order: it
// loads the order, applies a summon operation and persists the result.
package summon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"slices"
	"sync"
	"time"

	"gacha-summon/internal/catalog"
	"gacha-summon/internal/database"
	"gacha-summon/internal/inventory"
	"gacha-summon/internal/models"
	"gacha-summon/internal/pulls"
	"gacha-summon/internal/sampler"
	"gacha-summon/internal/shopify"
)

var (
	ErrNoTickets  = errors.New("order contains no summon tickets")
	ErrOrderOwned = errors.New("order was claimed by another user")
)

type OrderStore interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, number shopify.OrderNumber) (*models.Order, error)
	SaveOrder(ctx context.Context, o *models.Order) error
	RecordPull(ctx context.Context, ev *models.PullEvent) error
}

// OrderLookup fetches store orders. Invalidate drops anything it holds for a
// number once the order row exists.
type OrderLookup interface {
	Get(ctx context.Context, number shopify.OrderNumber) (shopify.Order, error)
	Invalidate(number shopify.OrderNumber)
}

type Inventory interface {
	Snapshot(ctx context.Context) (inventory.Snapshot, error)
	LogPull(ctx context.Context, rec inventory.PullRecord) error
}

// User is the Discord account acting on an order.
type User struct {
	ID       string
	Username string
}

type Service struct {
	catalog   *catalog.Catalog
	store     OrderStore
	orders    OrderLookup
	inventory Inventory
	logger    *slog.Logger
	rng       *mrand.Rand
	mu        sync.Mutex
}

func NewService(cat *catalog.Catalog, store OrderStore, orders OrderLookup, inv Inventory, logger *slog.Logger) *Service {
	src := mrand.NewSource(time.Now().UnixNano())
	return &Service{
		catalog:   cat,
		store:     store,
		orders:    orders,
		inventory: inv,
		logger:    logger,
		rng:       mrand.New(src),
	}
}

// Claim binds an order to user, creating its summon state from the tickets
// on the store order the first time the number is seen.
func (s *Service) Claim(ctx context.Context, number shopify.OrderNumber, user User) (*models.Order, error) {
	o, err := s.load(ctx, number, user)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, database.ErrOrderNotFound) {
		return nil, err
	}

	storeOrder, err := s.orders.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	singles, bulks := s.catalog.Entitlement(storeOrder.LineItems)
	if singles == 0 && bulks == 0 {
		return nil, ErrNoTickets
	}

	o = &models.Order{
		Number:          number,
		DiscordUserID:   user.ID,
		DiscordUsername: user.Username,
		Pulls:           pulls.New(singles, bulks),
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		if errors.Is(err, database.ErrOrderExists) {
			return s.load(ctx, number, user)
		}
		return nil, err
	}
	s.orders.Invalidate(number)
	s.logger.Info("order claimed", "order", number.String(), "user", user.ID, "singles", singles, "bulks", bulks)
	return o, nil
}

// State returns the order if user owns it.
func (s *Service) State(ctx context.Context, number shopify.OrderNumber, user User) (*models.Order, error) {
	return s.load(ctx, number, user)
}

func (s *Service) StartSingle(ctx context.Context, number shopify.OrderNumber, user User) (*models.Order, error) {
	return s.start(ctx, number, user, models.ActionStartSingle, (*pulls.PullsData).StartSingle)
}

func (s *Service) StartBulk(ctx context.Context, number shopify.OrderNumber, user User) (*models.Order, error) {
	return s.start(ctx, number, user, models.ActionStartBulk, (*pulls.PullsData).StartBulk)
}

func (s *Service) start(ctx context.Context, number shopify.OrderNumber, user User, action models.PullAction, op func(*pulls.PullsData, pulls.Sampler) error) (*models.Order, error) {
	o, err := s.load(ctx, number, user)
	if err != nil {
		return nil, err
	}
	snap, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory snapshot: %w", err)
	}
	pool := sampler.New(s.newRand(), s.catalog.Products, snap)
	if err := op(o.Pulls, pool); err != nil {
		if errors.Is(err, sampler.ErrNoEligibleProduct) {
			s.logger.Error("no eligible product to draw", "order", number.String(), "action", action, "error", err)
		}
		return nil, err
	}
	if err := s.store.SaveOrder(ctx, o); err != nil {
		return nil, err
	}
	s.record(ctx, &models.PullEvent{OrderNumber: number, Action: action})
	return o, nil
}

// Reveal uncovers one slot of the active banner and logs the pulled product
// with the inventory service.
func (s *Service) Reveal(ctx context.Context, number shopify.OrderNumber, user User, slot int) (catalog.Product, *models.Order, error) {
	o, err := s.load(ctx, number, user)
	if err != nil {
		return catalog.Product{}, nil, err
	}
	product, err := o.Pulls.RevealSlot(slot)
	if err != nil {
		return catalog.Product{}, nil, err
	}
	if err := s.store.SaveOrder(ctx, o); err != nil {
		return catalog.Product{}, nil, err
	}

	s.record(ctx, &models.PullEvent{
		OrderNumber: number,
		Action:      models.ActionReveal,
		Slot:        &slot,
		SKU:         &product.SKU,
		ProductName: &product.Name,
	})
	rec := inventory.PullRecord{OrderNumber: uint32(number), DiscordUserID: user.ID, SKU: product.SKU}
	if err := s.inventory.LogPull(ctx, rec); err != nil {
		s.logger.Warn("failed to log pull with inventory", "error", err, "order", number.String(), "sku", product.SKU)
	}
	return product, o, nil
}

// Share is what an order's owner can post publicly.
type Share struct {
	OrderNumber shopify.OrderNumber `json:"orderNumber"`
	Username    string              `json:"username"`
	Active      pulls.Kind          `json:"active"`
	Banner      []catalog.Product   `json:"banner"`
	PulledNames []string            `json:"pulledNames"`
}

func (s *Service) Share(ctx context.Context, number shopify.OrderNumber, user User) (Share, error) {
	o, err := s.load(ctx, number, user)
	if err != nil {
		return Share{}, err
	}
	banner, ok := o.Pulls.ActiveBanner()
	if !ok {
		return Share{}, pulls.ErrNoActiveBanner
	}
	share := Share{
		OrderNumber: o.Number,
		Username:    o.DiscordUsername,
		Active:      pulls.KindOf(o.Pulls.Active),
		Banner:      slices.Collect(banner.PulledProducts()),
		PulledNames: slices.Collect(o.Pulls.PulledNames()),
	}
	if share.PulledNames == nil {
		share.PulledNames = []string{}
	}
	if share.Banner == nil {
		share.Banner = []catalog.Product{}
	}
	return share, nil
}

func (s *Service) load(ctx context.Context, number shopify.OrderNumber, user User) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, number)
	if err != nil {
		return nil, err
	}
	if o.DiscordUserID != user.ID {
		return nil, ErrOrderOwned
	}
	return o, nil
}

func (s *Service) record(ctx context.Context, ev *models.PullEvent) {
	if err := s.store.RecordPull(ctx, ev); err != nil {
		s.logger.Warn("failed to record pull event", "error", err, "order", ev.OrderNumber.String(), "action", ev.Action)
	}
}

// newRand derives a generator for one request from the shared source.
func (s *Service) newRand() *mrand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mrand.New(mrand.NewSource(s.rng.Int63()))
}
