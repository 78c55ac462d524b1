// Package sampler draws products for banners, weighted by rarity and limited
// to products that are in stock.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gacha-summon/internal/catalog"
)

// ErrNoEligibleProduct means inventory filtering left nothing to draw. It
// points at a catalog or stock misconfiguration, not a user error.
var ErrNoEligibleProduct = errors.New("no eligible product")

// Pool is the weighted candidate set for one sampling operation. It is not
// safe for concurrent use.
type Pool struct {
	rng        *rand.Rand
	candidates []catalog.Product
}

// New filters products down to those with stock > 0 and a positive, finite
// rarity. Products missing from stock count as zero.
func New(rng *rand.Rand, products []catalog.Product, stock map[string]int) *Pool {
	candidates := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if stock[p.SKU] <= 0 {
			continue
		}
		if !(p.Rarity > 0) || math.IsInf(p.Rarity, 0) {
			continue
		}
		candidates = append(candidates, p)
	}
	return &Pool{rng: rng, candidates: candidates}
}

// Eligible returns a copy of the candidate products.
func (p *Pool) Eligible() []catalog.Product {
	out := make([]catalog.Product, len(p.candidates))
	copy(out, p.candidates)
	return out
}

// Draw picks n products independently, with replacement.
func (p *Pool) Draw(n int) ([]catalog.Product, error) {
	if len(p.candidates) == 0 {
		return nil, ErrNoEligibleProduct
	}
	out := make([]catalog.Product, 0, n)
	for i := 0; i < n; i++ {
		idx, err := p.pick(p.candidates)
		if err != nil {
			return nil, err
		}
		out = append(out, p.candidates[idx])
	}
	return out, nil
}

// DrawDistinct picks n products without replacement: each chosen sku leaves
// the candidate set before the next draw, other weights unchanged.
func (p *Pool) DrawDistinct(n int) ([]catalog.Product, error) {
	if len(p.candidates) < n || len(p.candidates) == 0 {
		return nil, fmt.Errorf("%w: need %d distinct products, %d eligible", ErrNoEligibleProduct, n, len(p.candidates))
	}
	remaining := make([]catalog.Product, len(p.candidates))
	copy(remaining, p.candidates)

	out := make([]catalog.Product, 0, n)
	for i := 0; i < n; i++ {
		idx, err := p.pick(remaining)
		if err != nil {
			return nil, err
		}
		chosen := remaining[idx]
		out = append(out, chosen)

		next := remaining[:0:0]
		for _, c := range remaining {
			if c.SKU != chosen.SKU {
				next = append(next, c)
			}
		}
		remaining = next
	}
	return out, nil
}

// pick walks the cumulative weights of items and returns the chosen index.
func (p *Pool) pick(items []catalog.Product) (int, error) {
	var total float64
	for _, item := range items {
		total += item.Rarity
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return 0, ErrNoEligibleProduct
	}
	r := p.rng.Float64() * total
	var cumulative float64
	for i, item := range items {
		cumulative += item.Rarity
		if r < cumulative {
			return i, nil
		}
	}
	return len(items) - 1, nil
}
