// Package shipping estimates the charge a seller pays on Mercado Livre
// free-shipping listings. The estimate is a pure table lookup: an assumed
// sale price picks a price band, the package weight picks a tier inside it.
package shipping

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WeightTier charges Charge for packages up to MaxWeightKG kilograms.
type WeightTier struct {
	MaxWeightKG float64 `json:"max_weight_kg" yaml:"max_weight_kg"`
	Charge      float64 `json:"charge" yaml:"charge"`
}

// PriceBand holds the weight tiers applied to sale prices between MinPrice
// and MaxPrice. MaxPrice zero means the band is unbounded above.
type PriceBand struct {
	MinPrice float64      `json:"min_price" yaml:"min_price"`
	MaxPrice float64      `json:"max_price" yaml:"max_price"`
	Tiers    []WeightTier `json:"tiers" yaml:"tiers"`
}

// Table is the full charge table. Listings whose assumed sale price stays
// at or below FreeBelow ship at the buyer's expense, so the seller pays
// nothing. SaleFactor turns a product cost into the assumed sale price.
type Table struct {
	FreeBelow  float64     `json:"free_below" yaml:"free_below"`
	SaleFactor float64     `json:"sale_factor" yaml:"sale_factor"`
	Bands      []PriceBand `json:"bands" yaml:"bands"`
}

// DefaultTable returns the built-in table. Values follow the public
// Mercado Livre charge table for new products, heaviest tier last.
func DefaultTable() *Table {
	return &Table{
		FreeBelow:  78.99,
		SaleFactor: 2.0,
		Bands: []PriceBand{
			{MinPrice: 79, MaxPrice: 99.99, Tiers: []WeightTier{
				{MaxWeightKG: 0.3, Charge: 19.90},
				{MaxWeightKG: 0.5, Charge: 21.90},
				{MaxWeightKG: 1, Charge: 22.90},
				{MaxWeightKG: 2, Charge: 23.90},
				{MaxWeightKG: 5, Charge: 27.90},
				{MaxWeightKG: 9, Charge: 44.90},
				{MaxWeightKG: 13, Charge: 75.90},
			}},
			{MinPrice: 100, MaxPrice: 119.99, Tiers: []WeightTier{
				{MaxWeightKG: 0.3, Charge: 24.90},
				{MaxWeightKG: 0.5, Charge: 26.90},
				{MaxWeightKG: 1, Charge: 27.90},
				{MaxWeightKG: 2, Charge: 29.90},
				{MaxWeightKG: 5, Charge: 35.90},
				{MaxWeightKG: 9, Charge: 55.90},
				{MaxWeightKG: 13, Charge: 94.90},
			}},
			{MinPrice: 120, MaxPrice: 149.99, Tiers: []WeightTier{
				{MaxWeightKG: 0.3, Charge: 29.90},
				{MaxWeightKG: 0.5, Charge: 31.90},
				{MaxWeightKG: 1, Charge: 33.90},
				{MaxWeightKG: 2, Charge: 34.90},
				{MaxWeightKG: 5, Charge: 42.90},
				{MaxWeightKG: 9, Charge: 66.90},
				{MaxWeightKG: 13, Charge: 113.90},
			}},
			{MinPrice: 150, MaxPrice: 199.99, Tiers: []WeightTier{
				{MaxWeightKG: 0.3, Charge: 34.90},
				{MaxWeightKG: 0.5, Charge: 37.90},
				{MaxWeightKG: 1, Charge: 39.90},
				{MaxWeightKG: 2, Charge: 41.90},
				{MaxWeightKG: 5, Charge: 49.90},
				{MaxWeightKG: 9, Charge: 77.90},
				{MaxWeightKG: 13, Charge: 132.90},
			}},
			{MinPrice: 200, MaxPrice: 0, Tiers: []WeightTier{
				{MaxWeightKG: 0.3, Charge: 39.90},
				{MaxWeightKG: 0.5, Charge: 42.90},
				{MaxWeightKG: 1, Charge: 44.90},
				{MaxWeightKG: 2, Charge: 46.90},
				{MaxWeightKG: 5, Charge: 56.90},
				{MaxWeightKG: 9, Charge: 88.90},
				{MaxWeightKG: 13, Charge: 151.90},
			}},
		},
	}
}

// Load reads a replacement table from path, or returns the built-in table
// when path is empty. The file replaces the table wholesale; unknown keys
// are rejected and the result is validated.
func Load(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shipping table: %w", err)
	}

	var table Table
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("parse shipping table %s: %w", path, err)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("shipping table %s: %w", path, err)
	}
	return &table, nil
}

// Validate collects every structural problem with the table.
func (t *Table) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if t.FreeBelow < 0 {
		add("free_below must not be negative, got %v", t.FreeBelow)
	}
	if t.SaleFactor <= 0 {
		add("sale_factor must be positive, got %v", t.SaleFactor)
	}
	if len(t.Bands) == 0 {
		add("at least one price band is required")
	}

	prevMax := 0.0
	for i, band := range t.Bands {
		if band.MaxPrice != 0 && band.MaxPrice < band.MinPrice {
			add("band %d: max_price %v below min_price %v", i+1, band.MaxPrice, band.MinPrice)
		}
		if i > 0 {
			if prevMax == 0 {
				add("band %d: only the last band may be unbounded", i)
			} else if band.MinPrice <= prevMax {
				add("band %d: min_price %v overlaps the previous band (max %v)", i+1, band.MinPrice, prevMax)
			}
		}
		prevMax = band.MaxPrice

		if len(band.Tiers) == 0 {
			add("band %d: at least one weight tier is required", i+1)
		}
		prevWeight := 0.0
		for j, tier := range band.Tiers {
			if tier.MaxWeightKG <= prevWeight {
				add("band %d tier %d: max_weight_kg %v must exceed the previous tier (%v)",
					i+1, j+1, tier.MaxWeightKG, prevWeight)
			}
			if tier.Charge < 0 {
				add("band %d tier %d: charge must not be negative, got %v", i+1, j+1, tier.Charge)
			}
			prevWeight = tier.MaxWeightKG
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid shipping table: %s", strings.Join(problems, "; "))
	}
	return nil
}

// BasePrice is the sale price assumed when only the product cost is known.
func (t *Table) BasePrice(costPrice float64) float64 {
	return costPrice * t.SaleFactor
}

// Estimate returns the seller-side shipping charge for a product with the
// given cost and weight. Below the free-shipping threshold, or when no
// band covers the assumed price, the charge is zero; a weight heavier
// than every tier pays the heaviest tier.
func (t *Table) Estimate(costPrice, weightKG float64) float64 {
	base := t.BasePrice(costPrice)
	if base <= t.FreeBelow {
		return 0
	}

	band := t.band(base)
	if band == nil || len(band.Tiers) == 0 {
		return 0
	}
	for _, tier := range band.Tiers {
		if weightKG <= tier.MaxWeightKG {
			return tier.Charge
		}
	}
	return band.Tiers[len(band.Tiers)-1].Charge
}

func (t *Table) band(base float64) *PriceBand {
	for i := range t.Bands {
		b := &t.Bands[i]
		if base < b.MinPrice {
			continue
		}
		if b.MaxPrice == 0 || base <= b.MaxPrice {
			return b
		}
	}
	return nil
}
