package pricing

import "fmt"

// Channel identifies a sales channel. The set of channels is closed: every
// channel the engine knows is listed in DefaultPolicies.
type Channel string

const (
	ChannelMercadoLivre  Channel = "mercadolivre"
	ChannelShopee        Channel = "shopee"
	ChannelAmazon        Channel = "amazon"
	ChannelShein         Channel = "shein"
	ChannelMagalu        Channel = "magalu"
	ChannelEcommerce     Channel = "ecommerce"
	ChannelTelemarketing Channel = "telemarketing"
)

// RoundingRule selects how monetary outputs are rounded.
type RoundingRule string

const (
	// Round99 rounds down to the nearest unit and adds 0.99 (psychological
	// pricing). Prices below 1 are rounded to two decimals instead.
	Round99 RoundingRule = "99"
	// RoundNone rounds to plain two decimals.
	RoundNone RoundingRule = "none"
)

// TierDiscount is one wholesale ladder entry: buyers ordering at least
// MinQuantity units get Discount off the listing price.
type TierDiscount struct {
	MinQuantity int     `json:"min_quantity" yaml:"min_quantity"`
	Discount    float64 `json:"discount" yaml:"discount"`
}

// Policy is the immutable pricing configuration of one channel. Exactly one
// of the two families applies: markup channels carry Markup, the
// commission channel carries CommissionMin/Max plus MarketingRate and
// prices to its MinMargin. A Policy is never mutated after load; per-call
// overrides produce a derived copy.
type Policy struct {
	Channel Channel
	Name    string

	// Markup is the listing-price multiplier of markup-driven channels
	// (zero on the commission-driven channel).
	Markup float64

	// Commission bounds of the commission-driven channel. The default
	// commission is the midpoint of the two.
	CommissionMin float64
	CommissionMax float64
	// MarketingRate covers ads and levies charged on the sale price,
	// on top of the commission.
	MarketingRate float64

	TaxRate            float64
	MinMargin          float64
	AggressiveDiscount float64
	PromoDiscount      float64
	Tiers              []TierDiscount
	Rounding           RoundingRule
}

// CommissionDriven reports whether prices on this channel are solved from
// commission and fee rates instead of a markup multiplier.
func (p Policy) CommissionDriven() bool { return p.CommissionMax > 0 }

func (p Policy) defaultCommission() float64 { return (p.CommissionMin + p.CommissionMax) / 2 }

// Validate collects every problem with the policy. It returns an
// *InvalidPolicyError listing all of them, or nil.
func (p Policy) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if p.Channel == "" {
		add("channel identifier is empty")
	}
	if p.Name == "" {
		add("display name is empty")
	}

	switch {
	case p.CommissionDriven():
		if p.Markup != 0 {
			add("markup and commission bounds are mutually exclusive")
		}
		if p.CommissionMin < 0 || p.CommissionMin > p.CommissionMax {
			add("commission bounds must satisfy 0 <= min <= max, got [%v, %v]", p.CommissionMin, p.CommissionMax)
		}
		if p.CommissionMax >= 1 {
			add("commission max must be below 1, got %v", p.CommissionMax)
		}
		if p.MarketingRate < 0 || p.MarketingRate >= 1 {
			add("marketing rate must be in [0, 1), got %v", p.MarketingRate)
		}
		if sum := p.defaultCommission() + p.TaxRate + p.MarketingRate + p.MinMargin; sum >= 1 {
			add("default rates sum to %v, leaving no room for a positive price", sum)
		}
	default:
		if p.Markup < 1 {
			add("markup must be at least 1, got %v", p.Markup)
		}
		if p.MarketingRate != 0 {
			add("marketing rate only applies to the commission-driven channel")
		}
	}

	if p.TaxRate < 0 || p.TaxRate >= 1 {
		add("tax rate must be in [0, 1), got %v", p.TaxRate)
	}
	if p.MinMargin < 0 || p.MinMargin >= 1 {
		add("minimum margin must be in [0, 1), got %v", p.MinMargin)
	}
	if p.AggressiveDiscount < 0 || p.AggressiveDiscount >= 1 {
		add("aggressive discount must be in [0, 1), got %v", p.AggressiveDiscount)
	}
	if p.PromoDiscount < 0 || p.PromoDiscount >= 1 {
		add("promo discount must be in [0, 1), got %v", p.PromoDiscount)
	}

	lastQty := 1
	lastDiscount := 0.0
	for i, tier := range p.Tiers {
		if tier.MinQuantity <= lastQty {
			add("tier %d: min quantity %d must exceed %d", i+1, tier.MinQuantity, lastQty)
		}
		if tier.Discount < 0 || tier.Discount >= 1 {
			add("tier %d: discount must be in [0, 1), got %v", i+1, tier.Discount)
		}
		if tier.Discount < lastDiscount {
			add("tier %d: discount %v is below the previous tier's %v", i+1, tier.Discount, lastDiscount)
		}
		lastQty = tier.MinQuantity
		lastDiscount = tier.Discount
	}

	if p.Rounding != Round99 && p.Rounding != RoundNone {
		add("unknown rounding rule %q", p.Rounding)
	}

	if len(problems) > 0 {
		return &InvalidPolicyError{Channel: p.Channel, Problems: problems}
	}
	return nil
}

// Overrides are per-call policy adjustments. Nil fields keep the policy
// value; they never touch the shared Policy itself. Markup only applies to
// markup-driven channels and CommissionPercent only to the
// commission-driven one; an override for the other family is ignored.
type Overrides struct {
	Markup             *float64 `json:"markup,omitempty"`
	CommissionPercent  *float64 `json:"commission_percent,omitempty"`
	TaxRate            *float64 `json:"tax_rate,omitempty"`
	AggressiveDiscount *float64 `json:"aggressive_discount,omitempty"`
	PromoDiscount      *float64 `json:"promo_discount,omitempty"`
	Rounding           string   `json:"rounding,omitempty"`
	Category           string   `json:"category,omitempty"`
}

// withOverrides returns a request-scoped copy of the policy with the
// overrides applied.
func (p Policy) withOverrides(ov Overrides) Policy {
	if ov.Markup != nil && !p.CommissionDriven() {
		p.Markup = *ov.Markup
	}
	if ov.TaxRate != nil {
		p.TaxRate = *ov.TaxRate
	}
	if ov.AggressiveDiscount != nil {
		p.AggressiveDiscount = *ov.AggressiveDiscount
	}
	if ov.PromoDiscount != nil {
		p.PromoDiscount = *ov.PromoDiscount
	}
	if ov.Rounding != "" {
		p.Rounding = RoundingRule(ov.Rounding)
	}
	return p
}

// defaultTiers is the wholesale ladder shared by most channels.
func defaultTiers() []TierDiscount {
	return []TierDiscount{
		{MinQuantity: 5, Discount: 0.05},
		{MinQuantity: 10, Discount: 0.10},
		{MinQuantity: 20, Discount: 0.15},
	}
}

// DefaultPolicies returns the built-in policy table, one entry per
// supported channel. The returned map is a fresh copy on every call.
func DefaultPolicies() map[Channel]Policy {
	return map[Channel]Policy{
		ChannelMercadoLivre: {
			Channel:            ChannelMercadoLivre,
			Name:               "Mercado Livre",
			CommissionMin:      0.11,
			CommissionMax:      0.16,
			MarketingRate:      0.04,
			TaxRate:            0.08,
			MinMargin:          0.25,
			AggressiveDiscount: 0.12,
			PromoDiscount:      0.18,
			Tiers:              defaultTiers(),
			Rounding:           Round99,
		},
		ChannelShopee: {
			Channel:            ChannelShopee,
			Name:               "Shopee",
			Markup:             1.8,
			TaxRate:            0.12,
			MinMargin:          0.20,
			AggressiveDiscount: 0.15,
			PromoDiscount:      0.20,
			Tiers: []TierDiscount{
				{MinQuantity: 3, Discount: 0.05},
				{MinQuantity: 6, Discount: 0.10},
				{MinQuantity: 12, Discount: 0.15},
			},
			Rounding: Round99,
		},
		ChannelAmazon: {
			Channel:            ChannelAmazon,
			Name:               "Amazon",
			Markup:             2.5,
			TaxRate:            0.18,
			MinMargin:          0.30,
			AggressiveDiscount: 0.08,
			PromoDiscount:      0.12,
			Tiers:              defaultTiers(),
			Rounding:           Round99,
		},
		ChannelShein: {
			Channel:            ChannelShein,
			Name:               "Shein",
			Markup:             1.6,
			TaxRate:            0.10,
			MinMargin:          0.15,
			AggressiveDiscount: 0.18,
			PromoDiscount:      0.25,
			Tiers:              defaultTiers(),
			Rounding:           Round99,
		},
		ChannelMagalu: {
			Channel:            ChannelMagalu,
			Name:               "Magalu",
			Markup:             2.0,
			TaxRate:            0.14,
			MinMargin:          0.22,
			AggressiveDiscount: 0.10,
			PromoDiscount:      0.15,
			Tiers:              defaultTiers(),
			Rounding:           Round99,
		},
		ChannelEcommerce: {
			Channel:            ChannelEcommerce,
			Name:               "E-commerce Próprio",
			Markup:             2.8,
			TaxRate:            0.05,
			MinMargin:          0.35,
			AggressiveDiscount: 0.10,
			PromoDiscount:      0.20,
			Tiers:              defaultTiers(),
			Rounding:           Round99,
		},
		ChannelTelemarketing: {
			Channel:            ChannelTelemarketing,
			Name:               "Televendas",
			Markup:             3.0,
			TaxRate:            0.08,
			MinMargin:          0.40,
			AggressiveDiscount: 0.15,
			PromoDiscount:      0.25,
			Tiers:              defaultTiers(),
			Rounding:           Round99,
		},
	}
}
