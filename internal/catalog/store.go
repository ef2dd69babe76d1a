// Package catalog persists the products the pricing endpoints can quote
// from. It is a thin sqlite layer; the pricing engine itself never reads
// it and only ever receives plain numbers.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound reports that no product carries the requested SKU.
var ErrNotFound = errors.New("product not found")

// Product is one catalog entry. Dimensions are in centimeters, weight in
// kilograms. ListPrice and PromoPrice are the currently published prices
// and may be zero when the product was never priced.
type Product struct {
	ID         int64   `json:"id"`
	SKU        string  `json:"sku"`
	Title      string  `json:"title"`
	GTIN       string  `json:"gtin,omitempty"`
	HeightCM   float64 `json:"height_cm"`
	WidthCM    float64 `json:"width_cm"`
	LengthCM   float64 `json:"length_cm"`
	WeightKG   float64 `json:"weight_kg"`
	CostPrice  float64 `json:"cost_price"`
	ListPrice  float64 `json:"list_price,omitempty"`
	PromoPrice float64 `json:"promo_price,omitempty"`
}

// Store reads and writes products.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const productColumns = `
	id, sku, title, COALESCE(gtin, ''),
	height_cm, width_cm, length_cm, weight_kg,
	cost_price, COALESCE(list_price, 0), COALESCE(promo_price, 0)`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Title, &p.GTIN,
		&p.HeightCM, &p.WidthCM, &p.LengthCM, &p.WeightKG,
		&p.CostPrice, &p.ListPrice, &p.PromoPrice,
	)
	return p, err
}

// GetBySKU returns the product with the given SKU, or ErrNotFound.
func (s *Store) GetBySKU(sku string) (Product, error) {
	row := s.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

// Search lists products whose SKU, title or GTIN contains query, ordered
// by SKU. An empty query lists the whole catalog.
func (s *Store) Search(query string) ([]Product, error) {
	search := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT `+productColumns+`
		FROM products
		WHERE (? = '' OR sku LIKE ? OR title LIKE ? OR COALESCE(gtin, '') LIKE ?)
		ORDER BY sku
	`, query, search, search, search)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// Upsert inserts the product or, when the SKU already exists, replaces
// its mutable fields. It reports whether a new row was created.
func (s *Store) Upsert(p Product) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM products WHERE sku = ? LIMIT 1)`, p.SKU).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product existence: %w", err)
	}

	_, err := s.db.Exec(`
		INSERT INTO products (
			sku, title, gtin,
			height_cm, width_cm, length_cm, weight_kg,
			cost_price, list_price, promo_price
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
			title = excluded.title,
			gtin = excluded.gtin,
			height_cm = excluded.height_cm,
			width_cm = excluded.width_cm,
			length_cm = excluded.length_cm,
			weight_kg = excluded.weight_kg,
			cost_price = excluded.cost_price,
			list_price = excluded.list_price,
			promo_price = excluded.promo_price,
			updated_at = CURRENT_TIMESTAMP
	`, p.SKU, p.Title, p.GTIN,
		p.HeightCM, p.WidthCM, p.LengthCM, p.WeightKG,
		p.CostPrice, p.ListPrice, p.PromoPrice)
	if err != nil {
		return false, fmt.Errorf("upsert product: %w", err)
	}

	return !exists, nil
}
