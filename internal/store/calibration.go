package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/tryon/internal/jewelry"
)

// ErrInvalidScale is returned for a calibration whose scale is not positive.
var ErrInvalidScale = errors.New("calibration scale must be positive")

// Calibration overrides the base scale and offset used to place one category.
type Calibration struct {
	Category  jewelry.Category `json:"category"`
	Scale     float64          `json:"scale"`
	OffsetX   float64          `json:"offsetX"`
	OffsetY   float64          `json:"offsetY"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// CalibrationRepository stores anchor calibrations.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Get returns the calibration for a category.
func (r *CalibrationRepository) Get(category jewelry.Category) (*Calibration, error) {
	normalized, err := jewelry.ParseCategory(string(category))
	if err != nil {
		return nil, err
	}

	c := &Calibration{Category: normalized}
	err = r.db.QueryRow(
		`SELECT scale, offset_x, offset_y, updated_at FROM anchor_calibrations WHERE category = ?`,
		string(normalized),
	).Scan(&c.Scale, &c.OffsetX, &c.OffsetY, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns every stored calibration ordered by category.
func (r *CalibrationRepository) List() ([]*Calibration, error) {
	rows, err := r.db.Query(
		`SELECT category, scale, offset_x, offset_y, updated_at
		 FROM anchor_calibrations ORDER BY category`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Calibration
	for rows.Next() {
		c := &Calibration{}
		var category string
		if err := rows.Scan(&category, &c.Scale, &c.OffsetX, &c.OffsetY, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Category = jewelry.Category(category)
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts or replaces the calibration for c.Category.
func (r *CalibrationRepository) Upsert(c *Calibration) error {
	normalized, err := jewelry.ParseCategory(string(c.Category))
	if err != nil {
		return err
	}
	if c.Scale <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidScale, c.Scale)
	}

	c.Category = normalized
	c.UpdatedAt = time.Now()

	_, err = r.db.Exec(
		`INSERT INTO anchor_calibrations (category, scale, offset_x, offset_y, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(category) DO UPDATE SET
			scale = excluded.scale,
			offset_x = excluded.offset_x,
			offset_y = excluded.offset_y,
			updated_at = excluded.updated_at`,
		string(c.Category), c.Scale, c.OffsetX, c.OffsetY, c.UpdatedAt,
	)
	return err
}
