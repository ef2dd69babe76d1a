package shipping

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultTable_IsValid(t *testing.T) {
	if err := DefaultTable().Validate(); err != nil {
		t.Fatalf("default table must validate: %v", err)
	}
}

func TestEstimate_FreeBelowThreshold(t *testing.T) {
	table := DefaultTable()

	if got := table.Estimate(30, 1.5); got != 0 {
		t.Fatalf("cost 30 should ship free, got %v", got)
	}
	// cost 39.495 doubles to exactly the 78.99 threshold.
	if got := table.Estimate(39.495, 120); got != 0 {
		t.Fatalf("assumed price at the threshold should ship free, got %v", got)
	}
}

func TestEstimate_PicksBandAndTier(t *testing.T) {
	table := DefaultTable()

	cases := []struct {
		name     string
		cost     float64
		weightKG float64
		want     float64
	}{
		{"first band by weight ceiling", 49.995, 1, 22.90},
		{"second band, 400g package", 50, 0.4, 26.90},
		{"weight exactly on a tier ceiling", 50, 0.3, 24.90},
		{"unbounded top band", 100, 0.2, 39.90},
		{"mid band", 70, 3, 42.90},
	}
	for _, tc := range cases {
		if got := table.Estimate(tc.cost, tc.weightKG); got != tc.want {
			t.Fatalf("%s: Estimate(%v, %v) = %v, want %v", tc.name, tc.cost, tc.weightKG, got, tc.want)
		}
	}
}

func TestEstimate_HeaviestTierIsTheFallback(t *testing.T) {
	table := DefaultTable()

	if got := table.Estimate(150, 20); got != 151.90 {
		t.Fatalf("overweight package should pay the heaviest tier, got %v", got)
	}
}

func TestEstimate_ChargesGrowWithPriceAndWeight(t *testing.T) {
	table := DefaultTable()

	prevBand := 0.0
	for _, cost := range []float64{45, 55, 65, 80, 110} {
		charge := table.Estimate(cost, 0.2)
		if charge < prevBand {
			t.Fatalf("cost %v: charge %v dropped below the cheaper band's %v", cost, charge, prevBand)
		}
		prevBand = charge
	}

	prevWeight := 0.0
	for _, weight := range []float64{0.2, 0.4, 0.9, 1.5, 4, 8, 12, 30} {
		charge := table.Estimate(100, weight)
		if charge < prevWeight {
			t.Fatalf("weight %v: charge %v dropped below the lighter tier's %v", weight, charge, prevWeight)
		}
		prevWeight = charge
	}
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(table, DefaultTable()) {
		t.Fatalf("expected the built-in table, got %+v", table)
	}
}

func TestLoad_ReplacesTheWholeTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipping.yaml")
	content := `
free_below: 50
sale_factor: 2.0
bands:
  - min_price: 50.01
    max_price: 0
    tiers:
      - max_weight_kg: 1
        charge: 10
      - max_weight_kg: 5
        charge: 20
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := table.Estimate(20, 0.5); got != 0 {
		t.Fatalf("assumed price 40 should ship free, got %v", got)
	}
	if got := table.Estimate(30, 0.5); got != 10 {
		t.Fatalf("Estimate(30, 0.5) = %v, want 10", got)
	}
	if got := table.Estimate(30, 50); got != 20 {
		t.Fatalf("Estimate(30, 50) = %v, want 20", got)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipping.yaml")
	if err := os.WriteFile(path, []byte("fre_below: 10\n"), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestValidate_CollectsProblems(t *testing.T) {
	table := &Table{
		FreeBelow:  -1,
		SaleFactor: 0,
		Bands: []PriceBand{
			{MinPrice: 100, MaxPrice: 50, Tiers: []WeightTier{
				{MaxWeightKG: 2, Charge: 10},
				{MaxWeightKG: 1, Charge: -5},
			}},
			{MinPrice: 40, MaxPrice: 0, Tiers: nil},
		},
	}

	err := table.Validate()
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	for _, fragment := range []string{"free_below", "sale_factor", "max_price", "max_weight_kg", "charge", "overlaps", "weight tier is required"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in the error, got %v", fragment, err)
		}
	}
}

func TestValidate_OnlyLastBandMayBeUnbounded(t *testing.T) {
	table := DefaultTable()
	table.Bands[0].MaxPrice = 0

	err := table.Validate()
	if err == nil || !strings.Contains(err.Error(), "unbounded") {
		t.Fatalf("expected an unbounded-band error, got %v", err)
	}
}
