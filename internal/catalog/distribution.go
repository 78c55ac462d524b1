package catalog

import (
	"fmt"
	"io"
	"math"
)

type ProductShare struct {
	Name    string  `json:"name"`
	SKU     string  `json:"sku"`
	Rarity  float64 `json:"rarity"`
	Percent float64 `json:"percent"`
}

// PoolDistribution describes the selection odds within one pool.
type PoolDistribution struct {
	Pool        Pool           `json:"pool"`
	TotalWeight float64        `json:"totalWeight"`
	Products    []ProductShare `json:"products"`
}

// Distribution groups products by pool and reports each product's share of
// its pool's total weight, rounded to a whole percent. Empty pools are omitted.
func (c *Catalog) Distribution() []PoolDistribution {
	out := make([]PoolDistribution, 0, len(Pools))
	for _, pool := range Pools {
		var total float64
		for _, p := range c.Products {
			if p.Pool == pool {
				total += p.Rarity
			}
		}
		if total == 0 {
			continue
		}
		dist := PoolDistribution{Pool: pool, TotalWeight: total}
		for _, p := range c.Products {
			if p.Pool != pool {
				continue
			}
			dist.Products = append(dist.Products, ProductShare{
				Name:    p.Name,
				SKU:     p.SKU,
				Rarity:  p.Rarity,
				Percent: math.Round(p.Rarity / total * 100),
			})
		}
		out = append(out, dist)
	}
	return out
}

// WriteDistribution prints a distribution in the operator-facing text form.
func WriteDistribution(w io.Writer, dist []PoolDistribution) error {
	for _, d := range dist {
		if _, err := fmt.Fprintf(w, "%s - Total weight: %g\n", d.Pool, d.TotalWeight); err != nil {
			return err
		}
		for _, p := range d.Products {
			if _, err := fmt.Fprintf(w, "\t(%g) %s: %g%%\n", p.Rarity, p.Name, p.Percent); err != nil {
				return err
			}
		}
	}
	return nil
}
