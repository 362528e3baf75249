package db

import (
	"context"
	"fmt"
	"strings"
)

// GetOrCreateBrand resolves a brand name to its id, inserting the brand on
// first sight. Safe under concurrent callers.
func (p *Pool) GetOrCreateBrand(ctx context.Context, name string) (int64, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, fmt.Errorf("brand name is required")
	}

	var brandID int64
	err := p.QueryRow(ctx, `
		INSERT INTO brands (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING brand_id
	`, trimmed).Scan(&brandID)
	if err == nil {
		return brandID, nil
	}
	if !IsNoRows(err) {
		return 0, fmt.Errorf("insert brand: %w", err)
	}

	err = p.QueryRow(ctx, `SELECT brand_id FROM brands WHERE name = $1`, trimmed).Scan(&brandID)
	if err != nil {
		return 0, fmt.Errorf("select brand: %w", err)
	}
	return brandID, nil
}

// ListBrands returns all known brands ordered by name.
func (p *Pool) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := p.Query(ctx, `SELECT brand_id, name, created_at FROM brands ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	var brands []Brand
	for rows.Next() {
		var brand Brand
		if err := rows.Scan(&brand.BrandID, &brand.Name, &brand.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, brand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brands: %w", err)
	}
	return brands, nil
}
