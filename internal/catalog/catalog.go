// Package catalog holds the products that can be summoned and the tickets
// that grant summons.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var (
	ErrDuplicateSKU  = errors.New("duplicate sku")
	ErrUnknownPool   = errors.New("unknown pool")
	ErrInvalidRarity = errors.New("rarity must be a positive number")
	ErrInvalidTicket = errors.New("ticket counts must not be negative")
	ErrEmptyCatalog  = errors.New("catalog has no products")
)

// Pool is the cosmetic tier of a product. It carries no weight.
type Pool string

const (
	PoolRed   Pool = "Red"
	PoolBlue  Pool = "Blue"
	PoolGreen Pool = "Green"
	PoolWhite Pool = "White"
)

// Pools lists every pool in display order.
var Pools = []Pool{PoolRed, PoolBlue, PoolGreen, PoolWhite}

func (p Pool) Valid() bool {
	switch p {
	case PoolRed, PoolBlue, PoolGreen, PoolWhite:
		return true
	}
	return false
}

type Product struct {
	Name   string  `json:"name" toml:"name"`
	SKU    string  `json:"sku" toml:"sku"`
	Pool   Pool    `json:"pool" toml:"pool"`
	Rarity float64 `json:"rarity" toml:"rarity"`
}

// Ticket maps a purchasable sku to the summons it grants per unit.
type Ticket struct {
	SKU     string `json:"sku" toml:"sku"`
	Singles int    `json:"singles" toml:"singles"`
	Bulks   int    `json:"bulks" toml:"bulks"`
}

// LineItem is one purchased sku on an order.
type LineItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type Catalog struct {
	Products []Product `toml:"product"`
	Tickets  []Ticket  `toml:"ticket"`

	bySKU map[string]int
}

// Load reads and validates a TOML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a TOML catalog of [[product]] and [[ticket]] tables.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds a catalog from in-memory products and tickets.
func New(products []Product, tickets []Ticket) (*Catalog, error) {
	c := &Catalog{Products: products, Tickets: tickets}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.Products) == 0 {
		return ErrEmptyCatalog
	}
	c.bySKU = make(map[string]int, len(c.Products))
	for i, p := range c.Products {
		sku := strings.TrimSpace(p.SKU)
		if sku == "" {
			return fmt.Errorf("product %q: sku is required", p.Name)
		}
		if _, ok := c.bySKU[sku]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, sku)
		}
		if !p.Pool.Valid() {
			return fmt.Errorf("%w: %q on %s", ErrUnknownPool, p.Pool, sku)
		}
		if !(p.Rarity > 0) || math.IsInf(p.Rarity, 0) {
			return fmt.Errorf("%w: %s has %v", ErrInvalidRarity, sku, p.Rarity)
		}
		c.Products[i].SKU = sku
		c.bySKU[sku] = i
	}
	seen := make(map[string]struct{}, len(c.Tickets))
	for _, t := range c.Tickets {
		if t.Singles < 0 || t.Bulks < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTicket, t.SKU)
		}
		if _, ok := seen[t.SKU]; ok {
			return fmt.Errorf("%w: ticket %s", ErrDuplicateSKU, t.SKU)
		}
		seen[t.SKU] = struct{}{}
	}
	return nil
}

// Product looks up a product by sku.
func (c *Catalog) Product(sku string) (Product, bool) {
	i, ok := c.bySKU[sku]
	if !ok {
		return Product{}, false
	}
	return c.Products[i], true
}

// Entitlement totals the summons granted by the ticket skus on an order.
// Line items that are not tickets are ignored.
func (c *Catalog) Entitlement(items []LineItem) (singles, bulks int) {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		for _, t := range c.Tickets {
			if t.SKU == item.SKU {
				singles += t.Singles * item.Quantity
				bulks += t.Bulks * item.Quantity
			}
		}
	}
	return singles, bulks
}
