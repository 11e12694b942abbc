package menu

import (
	"errors"
	"sort"

	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when an item id is not in the catalog.
var ErrItemNotFound = errors.New("menu item not found")

// Topping is a selectable option on an item. Price is added to the item's base price.
type Topping struct {
	Key   string          `json:"key"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// MenuItem is immutable catalog data.
type MenuItem struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	Category       string             `json:"category"`
	BasePrice      decimal.Decimal    `json:"base_price"`
	ToppingOptions map[string]Topping `json:"topping_options,omitempty"`
}

// RequiresTopping reports whether a topping must be chosen before the item
// can be added to a cart.
func (m MenuItem) RequiresTopping() bool {
	return len(m.ToppingOptions) > 0
}

// Topping looks up a topping option by key.
func (m MenuItem) Topping(key string) (Topping, bool) {
	t, ok := m.ToppingOptions[key]
	return t, ok
}

// ToppingKeys returns the option keys in a stable order.
func (m MenuItem) ToppingKeys() []string {
	keys := make([]string, 0, len(m.ToppingOptions))
	for k := range m.ToppingOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Catalog is an ordered, read-only set of menu items.
type Catalog struct {
	items []MenuItem
	byID  map[string]int
}

// NewCatalog builds a catalog preserving the given order.
// Later duplicates of an id replace earlier ones.
func NewCatalog(items ...MenuItem) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(items))}
	for _, it := range items {
		if idx, ok := c.byID[it.ID]; ok {
			c.items[idx] = it
			continue
		}
		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}

// Get returns the item with the given id.
func (c *Catalog) Get(id string) (MenuItem, error) {
	idx, ok := c.byID[id]
	if !ok {
		return MenuItem{}, ErrItemNotFound
	}
	return c.items[idx], nil
}

// List returns all items in catalog order.
func (c *Catalog) List() []MenuItem {
	out := make([]MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

// ByCategory returns the items in one category, in catalog order.
func (c *Catalog) ByCategory(category string) []MenuItem {
	var out []MenuItem
	for _, it := range c.items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// Item ids of the default catalog. The bundle discount policy refers to them.
const (
	ItemNasiDaunJeruk = "nasi-daun-jeruk"
	ItemPaketLengkap  = "paket-lengkap"
	ItemPaketHemat    = "paket-hemat"
	ItemExtraAyam     = "extra-ayam-suwir"
	ItemExtraKulit    = "extra-kulit-krispi"
	ItemEsJeruk       = "es-jeruk"
	ItemEsTeh         = "es-teh"
)

func rupiah(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func riceToppings() map[string]Topping {
	return map[string]Topping{
		"ayam":  {Key: "ayam", Name: "Ayam Suwir", Price: decimal.Zero},
		"kulit": {Key: "kulit", Name: "Kulit Ayam Krispi", Price: decimal.Zero},
	}
}

// Default returns the stall's standard menu.
func Default() *Catalog {
	return NewCatalog(
		MenuItem{
			ID:             ItemNasiDaunJeruk,
			Name:           "Nasi Daun Jeruk",
			Description:    "Nasi wangi daun jeruk dengan satu topping pilihan",
			Category:       enum.CategoryNasi,
			BasePrice:      rupiah(10000),
			ToppingOptions: riceToppings(),
		},
		MenuItem{
			ID:          ItemPaketLengkap,
			Name:        "Paket Lengkap",
			Description: "Nasi + Ayam Suwir + Kulit Krispi",
			Category:    enum.CategoryNasi,
			BasePrice:   rupiah(12000),
		},
		MenuItem{
			ID:             ItemPaketHemat,
			Name:           "Paket Hemat Nasi + Es Jeruk",
			Description:    "Nasi daun jeruk dengan topping pilihan dan Es Jeruk Peras",
			Category:       enum.CategoryNasi,
			BasePrice:      rupiah(13000),
			ToppingOptions: riceToppings(),
		},
		MenuItem{
			ID:        ItemExtraAyam,
			Name:      "Topping Ayam Suwir",
			Category:  enum.CategoryTopping,
			BasePrice: rupiah(2000),
		},
		MenuItem{
			ID:        ItemExtraKulit,
			Name:      "Topping Kulit Krispi",
			Category:  enum.CategoryTopping,
			BasePrice: rupiah(2000),
		},
		MenuItem{
			ID:          ItemEsJeruk,
			Name:        "Es Jeruk Peras",
			Description: "Jeruk peras asli dengan es batu",
			Category:    enum.CategoryMinuman,
			BasePrice:   rupiah(5000),
		},
		MenuItem{
			ID:        ItemEsTeh,
			Name:      "Es Teh Manis",
			Category:  enum.CategoryMinuman,
			BasePrice: rupiah(3000),
		},
	)
}
