// Package seed loads demo products so a fresh install has a catalog to
// quote against. Existing rows are never touched.
package seed

import (
	"database/sql"
	"fmt"

	"precificador/internal/catalog"
)

var demoProducts = []catalog.Product{
	{
		SKU:        "TWS-I12-PTO",
		Title:      "Fone de Ouvido Bluetooth i12 TWS Preto",
		GTIN:       "7891001234560",
		HeightCM:   5, WidthCM: 4, LengthCM: 6,
		WeightKG:   0.12,
		CostPrice:  18.5,
		ListPrice:  79.99,
		PromoPrice: 59.99,
	},
	{
		SKU:       "GRF-TERM-1L",
		Title:     "Garrafa Térmica Inox 1L",
		GTIN:      "7891001234577",
		HeightCM:  28, WidthCM: 9, LengthCM: 9,
		WeightKG:  0.45,
		CostPrice: 24,
		ListPrice: 89.99,
	},
	{
		SKU:       "CAM-ALG-KIT5-M",
		Title:     "Kit 5 Camisetas Algodão M",
		GTIN:      "7891001234584",
		HeightCM:  10, WidthCM: 30, LengthCM: 40,
		WeightKG:  0.9,
		CostPrice: 52,
	},
	{
		SKU:       "SMART-LAMP-RGB",
		Title:     "Lâmpada Smart RGB WiFi",
		GTIN:      "7891001234591",
		HeightCM:  12, WidthCM: 7, LengthCM: 7,
		WeightKG:  0.15,
		CostPrice: 15.9,
		ListPrice: 64.99,
	},
	{
		SKU:       "PANELA-ANTI-24",
		Title:     "Panela Antiaderente 24cm",
		GTIN:      "7891001234607",
		HeightCM:  14, WidthCM: 26, LengthCM: 45,
		WeightKG:  1.1,
		CostPrice: 38,
	},
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Skipped int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	for _, p := range demoProducts {
		if err := ensureProduct(tx, p, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureProduct(tx *sql.Tx, p catalog.Product, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM products WHERE sku = ? LIMIT 1)`, p.SKU).Scan(&exists); err != nil {
		return fmt.Errorf("check product existence: %w", err)
	}
	if exists {
		stats.Skipped++
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO products (
			sku, title, gtin,
			height_cm, width_cm, length_cm, weight_kg,
			cost_price, list_price, promo_price
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.SKU, p.Title, p.GTIN,
		p.HeightCM, p.WidthCM, p.LengthCM, p.WeightKG,
		p.CostPrice, p.ListPrice, p.PromoPrice); err != nil {
		return fmt.Errorf("insert demo product %s: %w", p.SKU, err)
	}
	stats.Inserts++
	return nil
}
