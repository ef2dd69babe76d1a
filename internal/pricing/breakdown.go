package pricing

import "fmt"

// Metrics are the financial indicators recomputed for every price point.
type Metrics struct {
	MarginPercent float64 `json:"margin_percent"`
	ValueMultiple float64 `json:"value_multiple"`
	MonetaryValue float64 `json:"monetary_value"`
	Taxes         float64 `json:"taxes"`
	Commissions   float64 `json:"commissions"`
}

// PricePoint is one derived price together with its metrics.
type PricePoint struct {
	Price   float64 `json:"price"`
	Metrics Metrics `json:"metrics"`
}

// WholesaleTier is one wholesale ladder entry of the final breakdown.
type WholesaleTier struct {
	Tier        int     `json:"tier"`
	MinQuantity int     `json:"min_quantity"`
	Price       float64 `json:"price"`
	Metrics     Metrics `json:"metrics"`
}

// Step is one line of the audit trail.
type Step struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Breakdown is the complete result of a quote: every derived price, the
// wholesale ladder, the audit trail and the notes shown to the seller.
type Breakdown struct {
	Channel           string          `json:"channel"`
	ListingPrice      PricePoint      `json:"listing_price"`
	AggressivePrice   PricePoint      `json:"aggressive_price"`
	PromoPrice        PricePoint      `json:"promo_price"`
	AnnouncementPrice PricePoint      `json:"announcement_price"`
	WholesaleTiers    []WholesaleTier `json:"wholesale_tiers"`
	Steps             []Step          `json:"steps"`
	Notes             []string        `json:"notes"`
}

// Breakdown computes every price and metric for the given costs. It either
// returns a complete breakdown or an error, never a partial result.
func (c *Calculator) Breakdown(costPrice, shippingCost float64, ov Overrides) (*Breakdown, error) {
	p := c.policy.withOverrides(ov)
	total := totalCost(costPrice, shippingCost)

	d, err := c.derive(p, ov, total)
	if err != nil {
		return nil, err
	}

	listing := roundToPolicy(d.rawPrice, p.Rounding, total)
	aggressive := roundToPolicy(listing*(1-p.AggressiveDiscount), p.Rounding, 0)
	promo := roundToPolicy(listing*(1-p.PromoDiscount), p.Rounding, 0)
	announcement := roundToPolicy(promo/(1-standardListingDiscount), p.Rounding, 0)

	tiers := buildWholesaleTiers(listing, p.Tiers, p.Rounding)
	for i := range tiers {
		tiers[i].Metrics = computeMetrics(tiers[i].Price, total, p.TaxRate, d.feeRate)
	}

	steps := []Step{
		{Label: "Custo do produto", Value: round2(costPrice)},
		{Label: "Custo de frete", Value: round2(shippingCost)},
		{Label: "Custo total", Value: round2(total)},
	}
	steps = append(steps, d.steps...)
	steps = append(steps,
		Step{Label: "Preço de lista (arredondado)", Value: listing},
		Step{Label: "Preço agressivo (" + pct(p.AggressiveDiscount) + " off)", Value: aggressive},
		Step{Label: "Preço promocional (" + pct(p.PromoDiscount) + " off)", Value: promo},
		Step{Label: "Preço de anúncio sugerido", Value: announcement},
	)

	notes := []string{
		"Canal: " + p.Name,
		"Margem mínima configurada: " + pct(p.MinMargin),
	}
	notes = append(notes, d.notes...)
	if ov.Category != "" {
		notes = append(notes, "Categoria: "+ov.Category)
	}

	return &Breakdown{
		Channel:           string(p.Channel),
		ListingPrice:      PricePoint{Price: listing, Metrics: computeMetrics(listing, total, p.TaxRate, d.feeRate)},
		AggressivePrice:   PricePoint{Price: aggressive, Metrics: computeMetrics(aggressive, total, p.TaxRate, d.feeRate)},
		PromoPrice:        PricePoint{Price: promo, Metrics: computeMetrics(promo, total, p.TaxRate, d.feeRate)},
		AnnouncementPrice: PricePoint{Price: announcement, Metrics: computeMetrics(announcement, total, p.TaxRate, d.feeRate)},
		WholesaleTiers:    tiers,
		Steps:             steps,
		Notes:             notes,
	}, nil
}

// buildWholesaleTiers derives the wholesale ladder from the listing price.
// Tier prices must come out non-increasing; policy validation guarantees
// that, so a violation here is a bug.
func buildWholesaleTiers(listing float64, tiers []TierDiscount, rule RoundingRule) []WholesaleTier {
	out := make([]WholesaleTier, 0, len(tiers))
	prev := 0.0
	for i, tier := range tiers {
		price := roundToPolicy(listing*(1-tier.Discount), rule, 0)
		if i > 0 && price > prev {
			panic(fmt.Sprintf("wholesale tier %d price %v exceeds tier %d price %v", i+1, price, i, prev))
		}
		prev = price
		out = append(out, WholesaleTier{
			Tier:        i + 1,
			MinQuantity: tier.MinQuantity,
			Price:       price,
		})
	}
	return out
}

// computeMetrics derives the financial metrics of one price point. Taxes
// and commissions are shares of the price; the monetary value is what the
// seller keeps after costs, taxes and commissions.
func computeMetrics(price, total, taxRate, feeRate float64) Metrics {
	taxes := round2(price * taxRate)
	commissions := round2(price * feeRate)
	value := round2(price - total - taxes - commissions)

	m := Metrics{
		Taxes:         taxes,
		Commissions:   commissions,
		MonetaryValue: value,
	}
	if price > 0 {
		m.MarginPercent = round2(value / price * 100)
	}
	if total > 0 {
		m.ValueMultiple = round2(value / total)
	}
	return m
}
