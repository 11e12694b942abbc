package cart

import (
	"fmt"

	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/menu"
	"github.com/shopspring/decimal"
)

// DiscountPolicy computes the discount for a set of cart lines.
type DiscountPolicy interface {
	Name() string
	Discount(lines []Line) decimal.Decimal
}

// NoDiscount never discounts.
type NoDiscount struct{}

func (NoDiscount) Name() string                    { return enum.DiscountPolicyNone }
func (NoDiscount) Discount([]Line) decimal.Decimal { return decimal.Zero }

// BundlePolicy prices every complete set of Components at Price instead of
// the sum of the individual items ("paket" substitution).
type BundlePolicy struct {
	Label      string
	Components []string
	Price      decimal.Decimal
}

func (p BundlePolicy) Name() string { return p.Label }

func (p BundlePolicy) Discount(lines []Line) decimal.Decimal {
	if len(p.Components) == 0 {
		return decimal.Zero
	}

	sets := -1
	setPrice := decimal.Zero
	for _, id := range p.Components {
		qty := 0
		var cheapest decimal.Decimal
		for _, l := range lines {
			if l.ItemID != id {
				continue
			}
			if qty == 0 || l.UnitPrice.LessThan(cheapest) {
				cheapest = l.UnitPrice
			}
			qty += l.Quantity
		}
		if qty == 0 {
			return decimal.Zero
		}
		if sets < 0 || qty < sets {
			sets = qty
		}
		setPrice = setPrice.Add(cheapest)
	}

	saving := setPrice.Sub(p.Price)
	if !saving.IsPositive() {
		return decimal.Zero
	}
	return saving.Mul(decimal.NewFromInt(int64(sets)))
}

// ComboPercentPolicy takes Percent off the subtotal when the cart holds a
// rice dish, a topping and a drink. Rounded to whole rupiah.
type ComboPercentPolicy struct {
	Label   string
	Percent decimal.Decimal
}

func (p ComboPercentPolicy) Name() string { return p.Label }

func (p ComboPercentPolicy) Discount(lines []Line) decimal.Decimal {
	var rice, topping, drink bool
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
		switch l.Category {
		case enum.CategoryNasi:
			rice = true
		case enum.CategoryMinuman:
			drink = true
		case enum.CategoryTopping:
			topping = true
		}
		if l.Topping != nil {
			topping = true
		}
	}
	if !rice || !topping || !drink {
		return decimal.Zero
	}
	return subtotal.Mul(p.Percent).Div(decimal.NewFromInt(100)).Round(0)
}

// PaketHemat is the default bundle: one Nasi Daun Jeruk and one Es Jeruk
// for the Paket Hemat price.
func PaketHemat() BundlePolicy {
	return BundlePolicy{
		Label:      "Paket Hemat",
		Components: []string{menu.ItemNasiDaunJeruk, menu.ItemEsJeruk},
		Price:      decimal.NewFromInt(13000),
	}
}

// Combo10 is the 10% rice + topping + drink combo.
func Combo10() ComboPercentPolicy {
	return ComboPercentPolicy{Label: "Diskon Combo 10%", Percent: decimal.NewFromInt(10)}
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (DiscountPolicy, error) {
	switch name {
	case enum.DiscountPolicyNone, "":
		return NoDiscount{}, nil
	case enum.DiscountPolicyPaket:
		return PaketHemat(), nil
	case enum.DiscountPolicyCombo10:
		return Combo10(), nil
	}
	return nil, fmt.Errorf("unknown discount policy %q", name)
}
