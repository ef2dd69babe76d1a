package pricing

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// policyFile is the on-disk overlay format. Every field is optional; set
// fields replace the built-in value for that channel. The channel set is
// closed, so the file may only reference channels the engine already knows.
type policyFile struct {
	Channels map[string]rawPolicy `yaml:"channels"`
}

type rawPolicy struct {
	Name               *string        `yaml:"name"`
	Markup             *float64       `yaml:"markup"`
	CommissionMin      *float64       `yaml:"commission_min"`
	CommissionMax      *float64       `yaml:"commission_max"`
	MarketingRate      *float64       `yaml:"marketing_rate"`
	TaxRate            *float64       `yaml:"tax_rate"`
	MinMargin          *float64       `yaml:"min_margin"`
	AggressiveDiscount *float64       `yaml:"aggressive_discount"`
	PromoDiscount      *float64       `yaml:"promo_discount"`
	WholesaleTiers     []TierDiscount `yaml:"wholesale_tiers"`
	Rounding           *string        `yaml:"rounding"`
}

// LoadPolicies returns the built-in policy table, overlaid with the YAML
// file at path when one is given. The merged table is fully validated; on
// any problem the error describes the file, never a half-merged table.
func LoadPolicies(path string) (map[Channel]Policy, error) {
	policies := DefaultPolicies()
	if path == "" {
		return policies, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var file policyFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	for id, overlay := range file.Channels {
		channel := Normalize(id)
		policy, ok := policies[channel]
		if !ok {
			return nil, fmt.Errorf("policy file %s: unknown channel %q, known channels: %s",
				path, id, strings.Join(knownChannels(policies), ", "))
		}
		policies[channel] = mergePolicy(policy, overlay)
	}

	for _, policy := range policies {
		if err := policy.Validate(); err != nil {
			return nil, fmt.Errorf("policy file %s: %w", path, err)
		}
	}
	return policies, nil
}

func mergePolicy(base Policy, overlay rawPolicy) Policy {
	if overlay.Name != nil {
		base.Name = *overlay.Name
	}
	if overlay.Markup != nil {
		base.Markup = *overlay.Markup
	}
	if overlay.CommissionMin != nil {
		base.CommissionMin = *overlay.CommissionMin
	}
	if overlay.CommissionMax != nil {
		base.CommissionMax = *overlay.CommissionMax
	}
	if overlay.MarketingRate != nil {
		base.MarketingRate = *overlay.MarketingRate
	}
	if overlay.TaxRate != nil {
		base.TaxRate = *overlay.TaxRate
	}
	if overlay.MinMargin != nil {
		base.MinMargin = *overlay.MinMargin
	}
	if overlay.AggressiveDiscount != nil {
		base.AggressiveDiscount = *overlay.AggressiveDiscount
	}
	if overlay.PromoDiscount != nil {
		base.PromoDiscount = *overlay.PromoDiscount
	}
	if overlay.WholesaleTiers != nil {
		base.Tiers = append([]TierDiscount(nil), overlay.WholesaleTiers...)
	}
	if overlay.Rounding != nil {
		base.Rounding = RoundingRule(*overlay.Rounding)
	}
	return base
}

func knownChannels(policies map[Channel]Policy) []string {
	out := make([]string, 0, len(policies))
	for channel := range policies {
		out = append(out, string(channel))
	}
	sort.Strings(out)
	return out
}
