package pricing

import (
	"fmt"
	"math"
	"strconv"
)

// standardListingDiscount is the platform-wide listing discount assumed
// when deriving the announcement price from the promo price.
const standardListingDiscount = 0.15

// Calculator prices requests for a single channel. Instances are stateless
// and safe for concurrent use; every method derives a request-scoped policy
// copy before computing.
type Calculator struct {
	policy Policy
	derive deriveFunc
}

// deriveFunc is the family-specific listing-price derivation. It receives
// the override-adjusted policy and returns the raw (unrounded) listing
// price plus the family's audit steps and notes.
type deriveFunc func(p Policy, ov Overrides, total float64) (derivation, error)

type derivation struct {
	rawPrice float64
	// feeRate is the share of the sale price paid out as commission and
	// marketing fees. Zero on markup channels.
	feeRate float64
	steps   []Step
	notes   []string
}

func newCalculator(p Policy) *Calculator {
	derive := deriveMarkup
	if p.CommissionDriven() {
		derive = deriveCommission
	}
	return &Calculator{policy: p, derive: derive}
}

// Policy returns the calculator's channel policy.
func (c *Calculator) Policy() Policy { return c.policy }

// ListingPrice computes the rounded listing price for the given costs.
func (c *Calculator) ListingPrice(costPrice, shippingCost float64, ov Overrides) (float64, error) {
	p := c.policy.withOverrides(ov)
	total := totalCost(costPrice, shippingCost)
	d, err := c.derive(p, ov, total)
	if err != nil {
		return 0, err
	}
	return roundToPolicy(d.rawPrice, p.Rounding, total), nil
}

// AggressivePrice computes the rounded aggressive price for the given costs.
func (c *Calculator) AggressivePrice(costPrice, shippingCost float64, ov Overrides) (float64, error) {
	listing, err := c.ListingPrice(costPrice, shippingCost, ov)
	if err != nil {
		return 0, err
	}
	p := c.policy.withOverrides(ov)
	return roundToPolicy(listing*(1-p.AggressiveDiscount), p.Rounding, 0), nil
}

// PromoPrice computes the rounded promotional price for the given costs.
func (c *Calculator) PromoPrice(costPrice, shippingCost float64, ov Overrides) (float64, error) {
	listing, err := c.ListingPrice(costPrice, shippingCost, ov)
	if err != nil {
		return 0, err
	}
	p := c.policy.withOverrides(ov)
	return roundToPolicy(listing*(1-p.PromoDiscount), p.Rounding, 0), nil
}

// WholesaleTiers computes the wholesale ladder from the listing price.
func (c *Calculator) WholesaleTiers(costPrice, shippingCost float64, ov Overrides) ([]WholesaleTier, error) {
	listing, err := c.ListingPrice(costPrice, shippingCost, ov)
	if err != nil {
		return nil, err
	}
	p := c.policy.withOverrides(ov)
	return buildWholesaleTiers(listing, p.Tiers, p.Rounding), nil
}

// deriveMarkup prices markup channels: total cost times the markup
// multiplier, grossed up so the channel tax is covered by the price.
func deriveMarkup(p Policy, _ Overrides, total float64) (derivation, error) {
	raw, err := basePrice(p.Channel, total, p.Markup, p.TaxRate)
	if err != nil {
		return derivation{}, err
	}
	return derivation{
		rawPrice: raw,
		steps: []Step{
			{Label: "Markup aplicado (x" + trimFloat(p.Markup) + ")", Value: round2(total * p.Markup)},
			{Label: "Impostos embutidos (" + pct(p.TaxRate) + ")", Value: round2(raw)},
		},
	}, nil
}

// deriveCommission prices the commission channel by solving
// price × (1 − commission − tax − marketing − margin) = total, so the
// seller nets the configured minimum margin after every rate is paid.
func deriveCommission(p Policy, ov Overrides, total float64) (derivation, error) {
	commission := p.defaultCommission()
	note := fmt.Sprintf("Comissão padrão de %s (ponto médio da faixa de %s a %s)",
		pct(commission), pct(p.CommissionMin), pct(p.CommissionMax))
	if ov.CommissionPercent != nil {
		commission = *ov.CommissionPercent
		note = "Comissão informada pelo vendedor: " + pct(commission)
	}

	sum := commission + p.TaxRate + p.MarketingRate + p.MinMargin
	if sum >= 1 {
		return derivation{}, &InfeasibleRatesError{Channel: p.Channel, RateSum: sum}
	}

	raw := total / (1 - sum)
	return derivation{
		rawPrice: raw,
		feeRate:  commission + p.MarketingRate,
		steps: []Step{
			{Label: "Taxas embutidas (" + pct(sum) + ")", Value: round2(raw)},
			{Label: "Comissão estimada (" + pct(commission) + ")", Value: round2(raw * commission)},
		},
		notes: []string{note},
	}, nil
}

func totalCost(costPrice, shippingCost float64) float64 {
	return costPrice + shippingCost
}

// basePrice derives the raw listing price of markup channels. The tax rate
// is grossed up into the price, so it must stay below 1.
func basePrice(channel Channel, total, markup, taxRate float64) (float64, error) {
	if taxRate >= 1 {
		return 0, &InvalidPolicyError{
			Channel:  channel,
			Problems: []string{fmt.Sprintf("tax rate %v makes the price divisor non-positive", taxRate)},
		}
	}
	return total * markup / (1 - taxRate), nil
}

// roundToPolicy applies the channel rounding rule, clamping negatives to
// zero first. The result never drops below floorPrice: if rounding would,
// the price is bumped to the next value the rule allows.
func roundToPolicy(price float64, rule RoundingRule, floorPrice float64) float64 {
	price = clampNonNegative(price)
	rounded := applyRounding(price, rule)
	if rounded < floorPrice {
		rounded = applyRounding(floorPrice, rule)
		if rounded < floorPrice {
			if rule == RoundNone {
				rounded = math.Ceil(floorPrice*100) / 100
			} else {
				rounded++
			}
		}
	}
	return rounded
}

func applyRounding(price float64, rule RoundingRule) float64 {
	if rule == RoundNone || price < 1 {
		return round2(price)
	}
	return math.Floor(price) + 0.99
}

func clampNonNegative(price float64) float64 {
	if price < 0 {
		return 0
	}
	return price
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// pct formats a rate as a percentage label, e.g. 0.135 -> "13.5%".
func pct(rate float64) string {
	return trimFloat(rate*100) + "%"
}

// trimFloat renders v without trailing zeros, squashing float noise first.
func trimFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
}
