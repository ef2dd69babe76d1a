package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(DefaultPolicies())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestQuote_ShopeeWithShipping(t *testing.T) {
	svc := newTestService(t)

	breakdown, err := svc.Quote(Request{CostPrice: 100, ShippingCost: 15, Channel: "shopee"})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	// 115 * 1.8 / (1 - 0.12) = 235.2272..., rounded to .99.
	nearlyEqual(t, "listing", breakdown.ListingPrice.Price, 235.99)
	nearlyEqual(t, "aggressive", breakdown.AggressivePrice.Price, 200.99)
	nearlyEqual(t, "promo", breakdown.PromoPrice.Price, 188.99)
	nearlyEqual(t, "announcement", breakdown.AnnouncementPrice.Price, 222.99)

	nearlyEqual(t, "listing taxes", breakdown.ListingPrice.Metrics.Taxes, 28.32)
	nearlyEqual(t, "listing commissions", breakdown.ListingPrice.Metrics.Commissions, 0)
	nearlyEqual(t, "listing value", breakdown.ListingPrice.Metrics.MonetaryValue, 92.67)
	nearlyEqual(t, "listing margin", breakdown.ListingPrice.Metrics.MarginPercent, 39.27)
	nearlyEqual(t, "listing multiple", breakdown.ListingPrice.Metrics.ValueMultiple, 0.81)

	nearlyEqual(t, "aggressive value", breakdown.AggressivePrice.Metrics.MonetaryValue, 61.87)
	nearlyEqual(t, "aggressive margin", breakdown.AggressivePrice.Metrics.MarginPercent, 30.78)
}

func TestQuote_ShopeeWholesaleLadder(t *testing.T) {
	svc := newTestService(t)

	breakdown, err := svc.Quote(Request{CostPrice: 100, Channel: "shopee"})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	tiers := breakdown.WholesaleTiers
	if len(tiers) != 3 {
		t.Fatalf("expected 3 tiers, got %d", len(tiers))
	}
	if tiers[0].MinQuantity != 3 || tiers[1].MinQuantity != 6 || tiers[2].MinQuantity != 12 {
		t.Fatalf("unexpected tier quantities: %+v", tiers)
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].MinQuantity <= tiers[i-1].MinQuantity {
			t.Fatalf("tier quantities must strictly increase: %+v", tiers)
		}
		if tiers[i].Price > tiers[i-1].Price {
			t.Fatalf("tier prices must not increase: %+v", tiers)
		}
	}
	if tiers[0].MinQuantity <= 1 {
		t.Fatalf("first tier must start above quantity 1, got %d", tiers[0].MinQuantity)
	}
	if tiers[0].Price > breakdown.ListingPrice.Price {
		t.Fatalf("tier 1 price %v exceeds listing %v", tiers[0].Price, breakdown.ListingPrice.Price)
	}
}

func TestQuote_MercadoLivreDefaultCommissionIsMidpoint(t *testing.T) {
	svc := newTestService(t)

	breakdown, err := svc.Quote(Request{CostPrice: 100, ShippingCost: 15, Channel: "mercadolivre"})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	// Midpoint commission 13.5% + tax 8% + marketing 4% + margin 25% =
	// 50.5%, so the raw price is 115 / 0.495.
	nearlyEqual(t, "listing", breakdown.ListingPrice.Price, 232.99)

	nearlyEqual(t, "listing taxes", breakdown.ListingPrice.Metrics.Taxes, 18.64)
	nearlyEqual(t, "listing commissions", breakdown.ListingPrice.Metrics.Commissions, 40.77)
	nearlyEqual(t, "listing value", breakdown.ListingPrice.Metrics.MonetaryValue, 58.58)
	nearlyEqual(t, "listing margin", breakdown.ListingPrice.Metrics.MarginPercent, 25.14)

	found := false
	for _, note := range breakdown.Notes {
		if strings.Contains(note, "Comissão padrão de 13.5%") && strings.Contains(note, "11%") && strings.Contains(note, "16%") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the default-commission note, got %v", breakdown.Notes)
	}
}

func TestQuote_MercadoLivreCommissionOverrideWins(t *testing.T) {
	svc := newTestService(t)
	commission := 0.12

	breakdown, err := svc.Quote(Request{
		CostPrice: 100,
		Channel:   "mercadolivre",
		Context:   &Overrides{CommissionPercent: &commission},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	// 100 / (1 - 0.12 - 0.08 - 0.04 - 0.25) = 196.07..., rounded to .99.
	nearlyEqual(t, "listing", breakdown.ListingPrice.Price, 196.99)

	found := false
	for _, note := range breakdown.Notes {
		if strings.Contains(note, "Comissão informada pelo vendedor: 12%") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the informed-commission note, got %v", breakdown.Notes)
	}
}

func TestQuote_MercadoLivreInfeasibleRates(t *testing.T) {
	svc := newTestService(t)
	commission := 0.7

	_, err := svc.Quote(Request{
		CostPrice: 100,
		Channel:   "mercadolivre",
		Context:   &Overrides{CommissionPercent: &commission},
	})
	if !errors.Is(err, ErrInfeasibleRates) {
		t.Fatalf("expected ErrInfeasibleRates, got %v", err)
	}

	var infeasible *InfeasibleRatesError
	if !errors.As(err, &infeasible) {
		t.Fatalf("expected *InfeasibleRatesError, got %T", err)
	}
	nearlyEqual(t, "rate sum", infeasible.RateSum, 1.07)
}

func TestQuote_UnknownChannel(t *testing.T) {
	svc := newTestService(t)

	breakdown, err := svc.Quote(Request{CostPrice: 100, Channel: "unknown_marketplace"})
	if breakdown != nil {
		t.Fatalf("expected no breakdown on unknown channel, got %+v", breakdown)
	}
	if !errors.Is(err, ErrUnsupportedChannel) {
		t.Fatalf("expected ErrUnsupportedChannel, got %v", err)
	}
}

func TestQuote_NegativeCostIsValidationErrorWhateverTheChannel(t *testing.T) {
	svc := newTestService(t)

	for _, channel := range []string{"shopee", "unknown_marketplace"} {
		_, err := svc.Quote(Request{CostPrice: -5, Channel: channel})

		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("channel %q: expected *ValidationError, got %v", channel, err)
		}
		found := false
		for _, field := range validation.Fields {
			if field.Field == "cost_price" {
				found = true
			}
		}
		if !found {
			t.Fatalf("channel %q: expected a cost_price field error, got %+v", channel, validation.Fields)
		}
	}
}

func TestQuote_MarkupAndRoundingOverrides(t *testing.T) {
	svc := newTestService(t)
	markup := 2.0

	breakdown, err := svc.Quote(Request{
		CostPrice: 100,
		Channel:   "shopee",
		Context:   &Overrides{Markup: &markup},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// 100 * 2.0 / 0.88 = 227.27..., rounded to .99.
	nearlyEqual(t, "listing with markup override", breakdown.ListingPrice.Price, 227.99)

	breakdown, err = svc.Quote(Request{
		CostPrice:    100,
		ShippingCost: 15,
		Channel:      "shopee",
		Context:      &Overrides{Rounding: "none"},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	nearlyEqual(t, "listing without psychological rounding", breakdown.ListingPrice.Price, 235.23)
}

func TestQuote_ListingNeverRoundsBelowTotalCost(t *testing.T) {
	svc := newTestService(t)
	markup := 1.0
	tax := 0.0

	breakdown, err := svc.Quote(Request{
		CostPrice: 115.995,
		Channel:   "shopee",
		Context:   &Overrides{Markup: &markup, TaxRate: &tax},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	nearlyEqual(t, "listing", breakdown.ListingPrice.Price, 116.99)
}

func TestQuote_InvariantsAcrossChannelsAndCosts(t *testing.T) {
	svc := newTestService(t)

	costs := []float64{0.5, 3.99, 10, 49.9, 100, 999.99, 12345.67}
	shippings := []float64{0, 15.5}

	for _, channel := range svc.Channels() {
		for _, cost := range costs {
			for _, shipping := range shippings {
				breakdown, err := svc.Quote(Request{CostPrice: cost, ShippingCost: shipping, Channel: channel})
				if err != nil {
					t.Fatalf("%s cost=%v shipping=%v: %v", channel, cost, shipping, err)
				}
				assertInvariants(t, breakdown, cost, shipping)
			}
		}
	}
}

func assertInvariants(t *testing.T, breakdown *Breakdown, cost, shipping float64) {
	t.Helper()
	total := cost + shipping
	listing := breakdown.ListingPrice.Price

	if listing <= 0 {
		t.Fatalf("%s: listing %v must be positive", breakdown.Channel, listing)
	}
	if listing < total {
		t.Fatalf("%s: listing %v below total cost %v", breakdown.Channel, listing, total)
	}
	if breakdown.AggressivePrice.Price > listing {
		t.Fatalf("%s: aggressive %v exceeds listing %v", breakdown.Channel, breakdown.AggressivePrice.Price, listing)
	}
	if breakdown.PromoPrice.Price > listing {
		t.Fatalf("%s: promo %v exceeds listing %v", breakdown.Channel, breakdown.PromoPrice.Price, listing)
	}

	prev := math.Inf(1)
	lastQty := 1
	for _, tier := range breakdown.WholesaleTiers {
		if tier.MinQuantity <= lastQty {
			t.Fatalf("%s: tier quantities must strictly increase above 1: %+v", breakdown.Channel, breakdown.WholesaleTiers)
		}
		if tier.Price > prev {
			t.Fatalf("%s: tier prices must not increase: %+v", breakdown.Channel, breakdown.WholesaleTiers)
		}
		lastQty = tier.MinQuantity
		prev = tier.Price
	}

	assertRounding(t, breakdown.Channel, "listing", listing)
	assertRounding(t, breakdown.Channel, "aggressive", breakdown.AggressivePrice.Price)
	assertRounding(t, breakdown.Channel, "promo", breakdown.PromoPrice.Price)
	assertRounding(t, breakdown.Channel, "announcement", breakdown.AnnouncementPrice.Price)
	for _, tier := range breakdown.WholesaleTiers {
		assertRounding(t, breakdown.Channel, "tier", tier.Price)
	}

	for _, point := range []PricePoint{breakdown.ListingPrice, breakdown.AggressivePrice, breakdown.PromoPrice, breakdown.AnnouncementPrice} {
		identity := point.Price - total - point.Metrics.Taxes - point.Metrics.Commissions
		if math.Abs(point.Metrics.MonetaryValue-identity) > 0.005+1e-9 {
			t.Fatalf("%s: monetary value %v does not match price-cost-taxes-commissions %v",
				breakdown.Channel, point.Metrics.MonetaryValue, identity)
		}
	}
}

func assertRounding(t *testing.T, channel, name string, price float64) {
	t.Helper()
	if price < 0 {
		t.Fatalf("%s: %s price %v is negative", channel, name, price)
	}
	if price < 1 {
		return
	}
	if formatted := fmt.Sprintf("%.2f", price); !strings.HasSuffix(formatted, ".99") {
		t.Fatalf("%s: %s price %s does not end in .99", channel, name, formatted)
	}
}

func TestQuote_IsIdempotent(t *testing.T) {
	svc := newTestService(t)
	commission := 0.14
	req := Request{
		CostPrice:    123.45,
		ShippingCost: 9.9,
		Channel:      "mercadolivre",
		Context:      &Overrides{CommissionPercent: &commission, Category: "casa"},
	}

	first, err := svc.Quote(req)
	if err != nil {
		t.Fatalf("first Quote: %v", err)
	}
	second, err := svc.Quote(req)
	if err != nil {
		t.Fatalf("second Quote: %v", err)
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if !bytes.Equal(firstJSON, secondJSON) {
		t.Fatalf("identical requests produced different output:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestValidate_CollectsEveryField(t *testing.T) {
	svc := newTestService(t)
	commission := 1.5

	fields := svc.Validate(Request{
		CostPrice:    -5,
		ShippingCost: -2,
		Channel:      "shopee",
		Context:      &Overrides{CommissionPercent: &commission, Rounding: "banker"},
	})

	want := []string{"cost_price", "shipping_cost", "context.commission_percent", "context.rounding"}
	if len(fields) != len(want) {
		t.Fatalf("expected %d field errors, got %d: %+v", len(want), len(fields), fields)
	}
	for i, field := range fields {
		if field.Field != want[i] {
			t.Fatalf("field %d = %q, want %q", i, field.Field, want[i])
		}
	}
}

func TestValidate_UnknownChannelIsAFieldError(t *testing.T) {
	svc := newTestService(t)

	fields := svc.Validate(Request{CostPrice: 10, Channel: "orkut"})
	if len(fields) != 1 {
		t.Fatalf("expected 1 field error, got %+v", fields)
	}
	if fields[0].Field != "channel" || !strings.Contains(fields[0].Message, "shopee") {
		t.Fatalf("expected a channel error listing the supported channels, got %+v", fields[0])
	}
}

func TestValidate_EmptyChannelReportedOnce(t *testing.T) {
	svc := newTestService(t)

	fields := svc.Validate(Request{CostPrice: 10, Channel: ""})
	count := 0
	for _, field := range fields {
		if field.Field == "channel" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one channel error, got %+v", fields)
	}
}

func TestValidate_NonFiniteNumbersAreRejected(t *testing.T) {
	svc := newTestService(t)

	fields := svc.Validate(Request{CostPrice: math.NaN(), ShippingCost: math.Inf(1), Channel: "amazon"})
	if len(fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", fields)
	}
	for _, field := range fields {
		if !strings.Contains(field.Message, "finito") {
			t.Fatalf("expected a finite-number message, got %+v", field)
		}
	}
}

func TestValidate_GoodRequestHasNoErrors(t *testing.T) {
	svc := newTestService(t)
	markup := 2.2

	fields := svc.Validate(Request{
		CostPrice:    55.5,
		ShippingCost: 0,
		Channel:      " Magalu ",
		Context:      &Overrides{Markup: &markup, Category: "brinquedos"},
	})
	if len(fields) != 0 {
		t.Fatalf("expected no field errors, got %+v", fields)
	}
}

func TestPolicies_SummariesAndFilter(t *testing.T) {
	svc := newTestService(t)

	all, err := svc.Policies("")
	if err != nil {
		t.Fatalf("Policies: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("expected 7 policies, got %d", len(all))
	}

	shopee := all["shopee"]
	if shopee.Family != "markup" || shopee.Markup != 1.8 || shopee.TaxRate != 0.12 {
		t.Fatalf("unexpected shopee summary: %+v", shopee)
	}
	if len(shopee.WholesaleTiers) != 3 || shopee.WholesaleTiers[0].MinQuantity != 3 {
		t.Fatalf("unexpected shopee tiers: %+v", shopee.WholesaleTiers)
	}

	ml := all["mercadolivre"]
	if ml.Family != "commission" || ml.CommissionMin != 0.11 || ml.CommissionMax != 0.16 {
		t.Fatalf("unexpected mercadolivre summary: %+v", ml)
	}
	nearlyEqual(t, "commission default", ml.CommissionDefault, 0.135)

	one, err := svc.Policies("Mercadolivre")
	if err != nil {
		t.Fatalf("Policies(mercadolivre): %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("expected a single policy, got %+v", one)
	}

	if _, err := svc.Policies("orkut"); !errors.Is(err, ErrUnsupportedChannel) {
		t.Fatalf("expected ErrUnsupportedChannel, got %v", err)
	}
}
