package summon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	mrand "math/rand"
	"sync"
	"testing"
	"time"

	"gacha-summon/internal/cache"
	"gacha-summon/internal/catalog"
	"gacha-summon/internal/database"
	"gacha-summon/internal/inventory"
	"gacha-summon/internal/models"
	"gacha-summon/internal/pulls"
	"gacha-summon/internal/sampler"
	"gacha-summon/internal/shopify"
)

type memStore struct {
	mu        sync.Mutex
	orders    map[shopify.OrderNumber]models.Order
	events    []models.PullEvent
	recordErr error
}

func newMemStore() *memStore {
	return &memStore{orders: map[shopify.OrderNumber]models.Order{}}
}

func (m *memStore) CreateOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.Number]; ok {
		return database.ErrOrderExists
	}
	o.Version = 1
	stored := *o
	stored.Pulls = o.Pulls.Clone()
	m.orders[o.Number] = stored
	return nil
}

func (m *memStore) GetOrder(_ context.Context, number shopify.OrderNumber) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[number]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	o.Pulls = o.Pulls.Clone()
	return &o, nil
}

func (m *memStore) SaveOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.Number]
	if !ok {
		return database.ErrOrderNotFound
	}
	if stored.Version != o.Version {
		return database.ErrVersionConflict
	}
	o.Version++
	stored = *o
	stored.Pulls = o.Pulls.Clone()
	m.orders[o.Number] = stored
	return nil
}

func (m *memStore) RecordPull(_ context.Context, ev *models.PullEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.events = append(m.events, *ev)
	return nil
}

type fakeLookup map[shopify.OrderNumber][]catalog.LineItem

func (f fakeLookup) Get(_ context.Context, n shopify.OrderNumber) (shopify.Order, error) {
	items, ok := f[n]
	if !ok {
		return shopify.Order{}, shopify.ErrOrderNotFound
	}
	return shopify.Order{Number: n, LineItems: items}, nil
}

func (f fakeLookup) Invalidate(shopify.OrderNumber) {}

type fakeInventory struct {
	snap   inventory.Snapshot
	logged []inventory.PullRecord
	logErr error
}

func (f *fakeInventory) Snapshot(context.Context) (inventory.Snapshot, error) {
	return f.snap, nil
}

func (f *fakeInventory) LogPull(_ context.Context, rec inventory.PullRecord) error {
	f.logged = append(f.logged, rec)
	return f.logErr
}

var testCatalog = func() *catalog.Catalog {
	c, err := catalog.New([]catalog.Product{
		{Name: "Robin", SKU: "FE-1", Pool: catalog.PoolBlue, Rarity: 1},
		{Name: "Lucina", SKU: "FE-2", Pool: catalog.PoolBlue, Rarity: 0.5},
		{Name: "Marth", SKU: "FE-3", Pool: catalog.PoolRed, Rarity: 2},
		{Name: "Lyn", SKU: "FE-4", Pool: catalog.PoolGreen, Rarity: 1},
		{Name: "Anna", SKU: "FE-5", Pool: catalog.PoolWhite, Rarity: 3},
		{Name: "Ike", SKU: "FE-6", Pool: catalog.PoolRed, Rarity: 1},
	}, []catalog.Ticket{
		{SKU: "SUMMON-SINGLE", Singles: 1},
		{SKU: "SUMMON-FULL", Bulks: 1},
	})
	if err != nil {
		panic(err)
	}
	return c
}()

func fullStock() inventory.Snapshot {
	snap := inventory.Snapshot{}
	for _, p := range testCatalog.Products {
		snap[p.SKU] = 10
	}
	return snap
}

type fixture struct {
	svc   *Service
	store *memStore
	inv   *fakeInventory
}

func newFixture() *fixture {
	store := newMemStore()
	inv := &fakeInventory{snap: fullStock()}
	lookup := fakeLookup{
		1042: {{SKU: "SUMMON-SINGLE", Quantity: 3}, {SKU: "SUMMON-FULL", Quantity: 2}, {SKU: "SHIRT", Quantity: 1}},
		1043: {{SKU: "SHIRT", Quantity: 1}},
	}
	svc := NewService(testCatalog, store, lookup, inv, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.rng = mrand.New(mrand.NewSource(1))
	return &fixture{svc: svc, store: store, inv: inv}
}

var marth = User{ID: "42", Username: "marth"}

func TestClaim(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, err := f.svc.Claim(ctx, 1042, marth)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if o.Pulls.SingleQuota != 3 || o.Pulls.BulkQuota != 2 {
		t.Fatalf("unexpected entitlement %d/%d", o.Pulls.SingleQuota, o.Pulls.BulkQuota)
	}

	again, err := f.svc.Claim(ctx, 1042, marth)
	if err != nil || again.Version != o.Version {
		t.Fatalf("reclaim by owner: %v", err)
	}

	tests := []struct {
		name    string
		number  shopify.OrderNumber
		user    User
		wantErr error
	}{
		{name: "other user", number: 1042, user: User{ID: "7"}, wantErr: ErrOrderOwned},
		{name: "no tickets", number: 1043, user: marth, wantErr: ErrNoTickets},
		{name: "unknown order", number: 9999, user: marth, wantErr: shopify.ErrOrderNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Claim(ctx, tt.number, tt.user); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClaimDropsCachedLookup(t *testing.T) {
	f := newFixture()
	lookup := fakeLookup{1042: {{SKU: "SUMMON-SINGLE", Quantity: 1}}}
	loads := 0
	orders := cache.NewOrderCache(time.Hour, func(ctx context.Context, n shopify.OrderNumber) (shopify.Order, error) {
		loads++
		return lookup.Get(ctx, n)
	})
	f.svc.orders = orders
	ctx := context.Background()

	if _, err := f.svc.Claim(ctx, 1042, marth); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if loads != 1 {
		t.Fatalf("expected one lookup, got %d", loads)
	}
	if _, err := orders.Get(ctx, 1042); err != nil {
		t.Fatal(err)
	}
	if loads != 2 {
		t.Fatal("claimed order should no longer be cached")
	}
}

func TestBulkRevealFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Claim(ctx, 1042, marth); err != nil {
		t.Fatal(err)
	}

	o, err := f.svc.StartBulk(ctx, 1042, marth)
	if err != nil {
		t.Fatalf("start bulk: %v", err)
	}
	if o.Pulls.RemainingBulks() != 1 {
		t.Fatalf("expected 1 bulk left, got %d", o.Pulls.RemainingBulks())
	}

	product, o, err := f.svc.Reveal(ctx, 1042, marth, 2)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	banner, _ := o.Pulls.ActiveBanner()
	if banner.Slots[2] != product {
		t.Fatalf("revealed %v but slot holds %v", product, banner.Slots[2])
	}

	if _, err := f.svc.StartSingle(ctx, 1042, marth); !errors.Is(err, pulls.ErrBannerInProgress) {
		t.Fatalf("expected ErrBannerInProgress, got %v", err)
	}
	if _, _, err := f.svc.Reveal(ctx, 1042, marth, 2); !errors.Is(err, pulls.ErrSlotAlreadyRevealed) {
		t.Fatalf("expected ErrSlotAlreadyRevealed, got %v", err)
	}

	stored, _ := f.store.GetOrder(ctx, 1042)
	if stored.Pulls.ConsumedBulks() != 1 || stored.Pulls.RemainingSingles() != 3 {
		t.Fatal("stored order does not reflect the bulk summon")
	}
	if len(f.store.events) != 2 || f.store.events[0].Action != models.ActionStartBulk || f.store.events[1].Action != models.ActionReveal {
		t.Fatalf("unexpected events %+v", f.store.events)
	}
	if *f.store.events[1].SKU != product.SKU || *f.store.events[1].Slot != 2 {
		t.Fatalf("reveal event does not match product %+v", f.store.events[1])
	}
	if len(f.inv.logged) != 1 || f.inv.logged[0] != (inventory.PullRecord{OrderNumber: 1042, DiscordUserID: "42", SKU: product.SKU}) {
		t.Fatalf("unexpected inventory log %+v", f.inv.logged)
	}
}

func TestStartWithoutStockLeavesOrderUnchanged(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Claim(ctx, 1042, marth); err != nil {
		t.Fatal(err)
	}
	f.inv.snap = inventory.Snapshot{"FE-1": 1, "FE-2": 1}

	if _, err := f.svc.StartBulk(ctx, 1042, marth); !errors.Is(err, sampler.ErrNoEligibleProduct) {
		t.Fatalf("expected ErrNoEligibleProduct for a bulk over two skus, got %v", err)
	}
	f.inv.snap = inventory.Snapshot{}
	if _, err := f.svc.StartSingle(ctx, 1042, marth); !errors.Is(err, sampler.ErrNoEligibleProduct) {
		t.Fatalf("expected ErrNoEligibleProduct, got %v", err)
	}

	stored, _ := f.store.GetOrder(ctx, 1042)
	if stored.Version != 1 || pulls.KindOf(stored.Pulls.Active) != pulls.KindNone {
		t.Fatalf("failed summon changed the order: %+v", stored)
	}
	if len(f.store.events) != 0 {
		t.Fatal("failed summon recorded an event")
	}
}

func TestSingleDrawsOnlyStockedProducts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Claim(ctx, 1042, marth); err != nil {
		t.Fatal(err)
	}
	f.inv.snap = inventory.Snapshot{"FE-3": 1}

	o, err := f.svc.StartSingle(ctx, 1042, marth)
	if err != nil {
		t.Fatal(err)
	}
	banner, _ := o.Pulls.ActiveBanner()
	for i, p := range banner.Slots {
		if p.SKU != "FE-3" {
			t.Fatalf("slot %d drew out of stock product %s", i, p.SKU)
		}
	}
}

func TestSideChannelFailuresDoNotFailReveal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Claim(ctx, 1042, marth); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.StartSingle(ctx, 1042, marth); err != nil {
		t.Fatal(err)
	}
	f.inv.logErr = errors.New("inventory down")
	f.store.recordErr = errors.New("disk full")

	if _, _, err := f.svc.Reveal(ctx, 1042, marth, 0); err != nil {
		t.Fatalf("reveal should succeed, got %v", err)
	}
	stored, _ := f.store.GetOrder(ctx, 1042)
	if stored.Pulls.RemainingSingles() != 2 {
		t.Fatalf("expected reveal to persist, %d singles left", stored.Pulls.RemainingSingles())
	}
}

func TestQuotaErrorsPropagate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Claim(ctx, 1042, marth); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.svc.StartBulk(ctx, 1042, marth); err != nil {
			t.Fatal(err)
		}
		for slot := 0; slot < pulls.BannerSize; slot++ {
			if _, _, err := f.svc.Reveal(ctx, 1042, marth, slot); err != nil {
				t.Fatal(err)
			}
		}
	}
	if _, err := f.svc.StartBulk(ctx, 1042, marth); !errors.Is(err, pulls.ErrNoQuotaRemaining) {
		t.Fatalf("expected ErrNoQuotaRemaining, got %v", err)
	}
	var quotaErr *pulls.QuotaError
	_, err := f.svc.StartBulk(ctx, 1042, marth)
	if !errors.As(err, &quotaErr) || quotaErr.Kind != pulls.KindBulk {
		t.Fatalf("expected a bulk quota error, got %v", err)
	}
}

func TestShare(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Claim(ctx, 1042, marth); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Share(ctx, 1042, marth); !errors.Is(err, pulls.ErrNoActiveBanner) {
		t.Fatalf("expected ErrNoActiveBanner, got %v", err)
	}
	if _, err := f.svc.StartBulk(ctx, 1042, marth); err != nil {
		t.Fatal(err)
	}
	first, _, err := f.svc.Reveal(ctx, 1042, marth, 4)
	if err != nil {
		t.Fatal(err)
	}
	share, err := f.svc.Share(ctx, 1042, marth)
	if err != nil {
		t.Fatal(err)
	}
	if share.Active != pulls.KindBulk || len(share.Banner) != 1 || share.Banner[0] != first {
		t.Fatalf("unexpected share %+v", share)
	}
	if len(share.PulledNames) != 1 || share.PulledNames[0] != first.Name || share.Username != "marth" {
		t.Fatalf("unexpected share %+v", share)
	}
	if _, err := f.svc.Share(ctx, 1042, User{ID: "7"}); !errors.Is(err, ErrOrderOwned) {
		t.Fatalf("expected ErrOrderOwned, got %v", err)
	}
}
