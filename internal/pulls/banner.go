package pulls

import (
	"encoding/json"
	"fmt"
	"iter"

	"gacha-summon/internal/catalog"
)

// BannerSize is the number of slots on every banner.
const BannerSize = 5

// Banner is one five-slot summon. Slots are fixed at creation; only the
// revealed flags change.
type Banner struct {
	Slots    [BannerSize]catalog.Product `json:"slots"`
	Revealed [BannerSize]bool            `json:"revealed"`
}

func NewBanner(products [BannerSize]catalog.Product) Banner {
	return Banner{Slots: products}
}

func bannerFrom(products []catalog.Product) (Banner, error) {
	if len(products) != BannerSize {
		return Banner{}, fmt.Errorf("%w: got %d products", ErrMalformedBanner, len(products))
	}
	var slots [BannerSize]catalog.Product
	copy(slots[:], products)
	return NewBanner(slots), nil
}

// Reveal marks a slot revealed and returns its product. Whether the order may
// reveal at all is decided by PullsData.
func (b *Banner) Reveal(index int) (catalog.Product, error) {
	if index < 0 || index >= BannerSize {
		return catalog.Product{}, fmt.Errorf("%w: %d", ErrSlotIndexOutOfRange, index)
	}
	if b.Revealed[index] {
		return catalog.Product{}, ErrSlotAlreadyRevealed
	}
	b.Revealed[index] = true
	return b.Slots[index], nil
}

func (b Banner) Pulled() int {
	n := 0
	for _, r := range b.Revealed {
		if r {
			n++
		}
	}
	return n
}

func (b Banner) Full() bool {
	return b.Pulled() == BannerSize
}

// PulledProducts yields the revealed products in slot order.
func (b Banner) PulledProducts() iter.Seq[catalog.Product] {
	return func(yield func(catalog.Product) bool) {
		for i, r := range b.Revealed {
			if r && !yield(b.Slots[i]) {
				return
			}
		}
	}
}

// UnmarshalJSON rejects banners that do not have exactly BannerSize slots
// and flags, which the array fields alone would silently pad or truncate.
func (b *Banner) UnmarshalJSON(data []byte) error {
	var raw struct {
		Slots    []catalog.Product `json:"slots"`
		Revealed []bool            `json:"revealed"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Slots) != BannerSize || len(raw.Revealed) != BannerSize {
		return fmt.Errorf("%w: %d slots, %d revealed flags", ErrMalformedBanner, len(raw.Slots), len(raw.Revealed))
	}
	copy(b.Slots[:], raw.Slots)
	copy(b.Revealed[:], raw.Revealed)
	return nil
}
