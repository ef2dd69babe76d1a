package pricing

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultPolicies_AllValid(t *testing.T) {
	for channel, policy := range DefaultPolicies() {
		if err := policy.Validate(); err != nil {
			t.Fatalf("default policy for %s is invalid: %v", channel, err)
		}
	}
}

func TestDefaultPolicies_ReturnsFreshCopies(t *testing.T) {
	first := DefaultPolicies()
	shopee := first[ChannelShopee]
	shopee.Markup = 99
	first[ChannelShopee] = shopee
	first[ChannelShopee].Tiers[0] = TierDiscount{MinQuantity: 2, Discount: 0.5}

	second := DefaultPolicies()
	if second[ChannelShopee].Markup != 1.8 {
		t.Fatalf("mutating one copy leaked into the next: markup %v", second[ChannelShopee].Markup)
	}
	if second[ChannelShopee].Tiers[0].MinQuantity != 3 {
		t.Fatalf("mutating tiers leaked into the next copy: %+v", second[ChannelShopee].Tiers)
	}
}

func TestPolicyValidate_CollectsEveryProblem(t *testing.T) {
	p := Policy{
		Channel:            "broken",
		Name:               "Broken",
		Markup:             0.5,
		TaxRate:            1.2,
		AggressiveDiscount: -0.1,
		PromoDiscount:      0.2,
		Tiers: []TierDiscount{
			{MinQuantity: 1, Discount: 0.5},
			{MinQuantity: 1, Discount: 0.2},
		},
		Rounding: "banana",
	}

	err := p.Validate()
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}

	var invalid *InvalidPolicyError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidPolicyError, got %T", err)
	}
	if len(invalid.Problems) < 6 {
		t.Fatalf("expected at least 6 problems, got %d: %v", len(invalid.Problems), invalid.Problems)
	}

	msg := err.Error()
	for _, fragment := range []string{"markup", "tax rate", "aggressive discount", "tier 1", "tier 2", "rounding"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in %q", fragment, msg)
		}
	}
}

func TestPolicyValidate_CommissionDefaultsMustBeFeasible(t *testing.T) {
	p := DefaultPolicies()[ChannelMercadoLivre]
	p.CommissionMin = 0.60
	p.CommissionMax = 0.80
	// midpoint 0.70 + tax 0.08 + marketing 0.04 + margin 0.25 = 1.07

	err := p.Validate()
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for infeasible defaults, got %v", err)
	}
	if !strings.Contains(err.Error(), "no room for a positive price") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestPolicyValidate_MarkupAndCommissionAreExclusive(t *testing.T) {
	p := DefaultPolicies()[ChannelMercadoLivre]
	p.Markup = 2.0

	err := p.Validate()
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected exclusivity problem, got %v", err)
	}
}

func TestWithOverrides_DerivesACopy(t *testing.T) {
	original := DefaultPolicies()[ChannelShopee]
	markup := 2.5
	tax := 0.0

	derived := original.withOverrides(Overrides{Markup: &markup, TaxRate: &tax, Rounding: "none"})

	if derived.Markup != 2.5 || derived.TaxRate != 0 || derived.Rounding != RoundNone {
		t.Fatalf("overrides not applied: %+v", derived)
	}
	if original.Markup != 1.8 || original.TaxRate != 0.12 || original.Rounding != Round99 {
		t.Fatalf("overrides leaked into the shared policy: %+v", original)
	}
}

func TestWithOverrides_MarkupIgnoredOnCommissionChannel(t *testing.T) {
	policy := DefaultPolicies()[ChannelMercadoLivre]
	markup := 3.0

	derived := policy.withOverrides(Overrides{Markup: &markup})
	if derived.Markup != 0 {
		t.Fatalf("markup override must not apply to the commission channel, got %v", derived.Markup)
	}
}
