package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/tryon/internal/jewelry"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMissingImage is returned when a jewelry piece has no image location.
	ErrMissingImage = errors.New("jewelry image url is required")
)

// Jewelry represents a catalog entry stored in the database.
type Jewelry struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Category  jewelry.Category `json:"category"`
	ImageURL  string           `json:"imageUrl"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Item converts the row into the engine's catalog item.
func (j *Jewelry) Item() *jewelry.Item {
	return &jewelry.Item{
		ID:       j.ID,
		Name:     j.Name,
		Category: j.Category,
		ImageURL: j.ImageURL,
	}
}

// normalize validates the entry and rewrites its category in canonical form.
func (j *Jewelry) normalize() error {
	category, err := jewelry.ParseCategory(string(j.Category))
	if err != nil {
		return err
	}
	if j.ImageURL == "" {
		return ErrMissingImage
	}
	j.Category = category
	return nil
}

// JewelryRepository provides CRUD operations for the jewelry catalog.
type JewelryRepository struct {
	db *sql.DB
}

// Jewelry returns the jewelry repository for this store.
func (s *Store) Jewelry() *JewelryRepository {
	return &JewelryRepository{db: s.db}
}

// Create inserts a new jewelry piece. An empty ID is filled with a new UUID.
func (r *JewelryRepository) Create(j *Jewelry) error {
	if err := j.normalize(); err != nil {
		return err
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}

	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO jewelry (id, name, category, image_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.Name, string(j.Category), j.ImageURL, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

// GetByID retrieves a jewelry piece by its ID.
func (r *JewelryRepository) GetByID(id string) (*Jewelry, error) {
	return r.get(context.Background(), id)
}

// Lookup resolves a jewelry id for the asset loader.
func (r *JewelryRepository) Lookup(ctx context.Context, id string) (*jewelry.Item, error) {
	j, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return j.Item(), nil
}

func (r *JewelryRepository) get(ctx context.Context, id string) (*Jewelry, error) {
	j := &Jewelry{}
	var category string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, category, image_url, created_at, updated_at
		 FROM jewelry WHERE id = ?`,
		id,
	).Scan(&j.ID, &j.Name, &category, &j.ImageURL, &j.CreatedAt, &j.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	j.Category = jewelry.Category(category)
	return j, nil
}

// List retrieves the catalog ordered by name. A non-empty category limits
// the result to that category.
func (r *JewelryRepository) List(category jewelry.Category) ([]*Jewelry, error) {
	query := `SELECT id, name, category, image_url, created_at, updated_at FROM jewelry`
	var args []any

	if category != "" {
		normalized, err := jewelry.ParseCategory(string(category))
		if err != nil {
			return nil, err
		}
		query += ` WHERE category = ?`
		args = append(args, string(normalized))
	}
	query += ` ORDER BY name, created_at`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Jewelry
	for rows.Next() {
		j := &Jewelry{}
		var c string
		if err := rows.Scan(&j.ID, &j.Name, &c, &j.ImageURL, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		j.Category = jewelry.Category(c)
		items = append(items, j)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Update updates an existing jewelry piece.
func (r *JewelryRepository) Update(j *Jewelry) error {
	if err := j.normalize(); err != nil {
		return err
	}
	j.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE jewelry SET name = ?, category = ?, image_url = ?, updated_at = ?
		 WHERE id = ?`,
		j.Name, string(j.Category), j.ImageURL, j.UpdatedAt, j.ID,
	)
	if err != nil {
		return err
	}

	return expectOne(result)
}

// Delete removes a jewelry piece by its ID.
func (r *JewelryRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM jewelry WHERE id = ?`, id)
	if err != nil {
		return err
	}

	return expectOne(result)
}

func expectOne(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
