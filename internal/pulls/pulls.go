// Package pulls implements the summon state of an order: its quota, the
// banner being revealed and the history of replaced banners.
//
// Remaining quota is never stored. It is recomputed from the archive and the
// active banner on every query, so a reloaded aggregate can not drift.
//
// A banner is archived only when a new one is started. A fully revealed
// banner stays active until then, and the unrevealed slots of a replaced
// single banner are forfeited.
//
// Every operation validates before it mutates: a call that returns an error
// leaves the aggregate unchanged.
package pulls

import (
	"iter"

	"gacha-summon/internal/catalog"
)

// Sampler supplies the products for a new banner. Draw may repeat products;
// DrawDistinct must not repeat a sku.
type Sampler interface {
	Draw(n int) ([]catalog.Product, error)
	DrawDistinct(n int) ([]catalog.Product, error)
}

type PullsData struct {
	SingleQuota      int
	BulkQuota        int
	CompletedSingles []Banner
	CompletedBulks   []Banner
	Active           Active
}

// New creates the summon state for an order with the given entitlement.
func New(singles, bulks int) *PullsData {
	return &PullsData{
		SingleQuota:      singles,
		BulkQuota:        bulks,
		CompletedSingles: []Banner{},
		CompletedBulks:   []Banner{},
		Active:           Idle{},
	}
}

// ConsumedSingles counts every slot revealed on single banners, archived or
// active.
func (p *PullsData) ConsumedSingles() int {
	n := 0
	for _, b := range p.CompletedSingles {
		n += b.Pulled()
	}
	if a, ok := p.Active.(Single); ok {
		n += a.Banner.Pulled()
	}
	return n
}

// ConsumedBulks counts bulk banners, archived or active.
func (p *PullsData) ConsumedBulks() int {
	n := len(p.CompletedBulks)
	if _, ok := p.Active.(Bulk); ok {
		n++
	}
	return n
}

func (p *PullsData) RemainingSingles() int {
	return p.SingleQuota - p.ConsumedSingles()
}

func (p *PullsData) RemainingBulks() int {
	return p.BulkQuota - p.ConsumedBulks()
}

// StartSingle replaces the active banner with a new single banner drawn with
// replacement. An untouched single banner can not be rerolled and an
// unfinished bulk banner must be completed first.
func (p *PullsData) StartSingle(s Sampler) error {
	if p.RemainingSingles() <= 0 {
		return &QuotaError{Kind: KindSingle}
	}
	switch a := p.Active.(type) {
	case Single:
		if a.Banner.Pulled() == 0 {
			return ErrRerollRefused
		}
	case Bulk:
		if !a.Banner.Full() {
			return ErrBannerInProgress
		}
	}
	products, err := s.Draw(BannerSize)
	if err != nil {
		return err
	}
	banner, err := bannerFrom(products)
	if err != nil {
		return err
	}
	p.replaceActive(Single{Banner: banner})
	return nil
}

// StartBulk replaces the active banner with a new bulk banner of five
// distinct skus. The same banners that block StartSingle block it.
func (p *PullsData) StartBulk(s Sampler) error {
	if p.RemainingBulks() <= 0 {
		return &QuotaError{Kind: KindBulk}
	}
	switch a := p.Active.(type) {
	case Single:
		if a.Banner.Pulled() == 0 {
			return ErrBannerInProgress
		}
	case Bulk:
		if !a.Banner.Full() {
			return ErrBannerInProgress
		}
	}
	products, err := s.DrawDistinct(BannerSize)
	if err != nil {
		return err
	}
	banner, err := bannerFrom(products)
	if err != nil {
		return err
	}
	p.replaceActive(Bulk{Banner: banner})
	return nil
}

// replaceActive archives the current banner, full or not, and activates next.
func (p *PullsData) replaceActive(next Active) {
	switch a := p.Active.(type) {
	case Single:
		p.CompletedSingles = append(p.CompletedSingles, a.Banner)
	case Bulk:
		p.CompletedBulks = append(p.CompletedBulks, a.Banner)
	case Idle, nil:
	}
	p.Active = next
}

// RevealSlot reveals one slot of the active banner and returns its product.
// Revealing on a single banner consumes a single summon.
func (p *PullsData) RevealSlot(index int) (catalog.Product, error) {
	banner, ok := activeBanner(p.Active)
	if !ok {
		return catalog.Product{}, ErrNoActiveBanner
	}
	if index < 0 || index >= BannerSize {
		return catalog.Product{}, ErrSlotIndexOutOfRange
	}
	if _, single := p.Active.(Single); single && p.ConsumedSingles() >= p.SingleQuota {
		return catalog.Product{}, &QuotaError{Kind: KindSingle}
	}
	if banner.Full() {
		return catalog.Product{}, ErrBannerComplete
	}
	product, err := banner.Reveal(index)
	if err != nil {
		return catalog.Product{}, err
	}
	p.Active = withBanner(p.Active, banner)
	return product, nil
}

// ActiveBanner returns the banner being worked on, if any.
func (p *PullsData) ActiveBanner() (Banner, bool) {
	return activeBanner(p.Active)
}

// Banners yields archived bulk banners, archived single banners, then the
// active banner.
func (p *PullsData) Banners() iter.Seq[Banner] {
	return func(yield func(Banner) bool) {
		for _, b := range p.CompletedBulks {
			if !yield(b) {
				return
			}
		}
		for _, b := range p.CompletedSingles {
			if !yield(b) {
				return
			}
		}
		if b, ok := activeBanner(p.Active); ok {
			yield(b)
		}
	}
}

// PulledProducts yields every revealed product across all banners.
func (p *PullsData) PulledProducts() iter.Seq[catalog.Product] {
	return func(yield func(catalog.Product) bool) {
		for b := range p.Banners() {
			for product := range b.PulledProducts() {
				if !yield(product) {
					return
				}
			}
		}
	}
}

func (p *PullsData) PulledNames() iter.Seq[string] {
	return func(yield func(string) bool) {
		for product := range p.PulledProducts() {
			if !yield(product.Name) {
				return
			}
		}
	}
}

func (p *PullsData) PulledSKUs() iter.Seq[string] {
	return func(yield func(string) bool) {
		for product := range p.PulledProducts() {
			if !yield(product.SKU) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (p *PullsData) Clone() *PullsData {
	c := *p
	c.CompletedSingles = append([]Banner(nil), p.CompletedSingles...)
	c.CompletedBulks = append([]Banner(nil), p.CompletedBulks...)
	if p.CompletedSingles != nil && c.CompletedSingles == nil {
		c.CompletedSingles = []Banner{}
	}
	if p.CompletedBulks != nil && c.CompletedBulks == nil {
		c.CompletedBulks = []Banner{}
	}
	return &c
}
