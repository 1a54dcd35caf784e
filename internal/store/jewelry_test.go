package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ayusman/tryon/internal/jewelry"
)

// newTestStore creates a new Store backed by a temporary database file.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestJewelryRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jewelry()

	piece := &Jewelry{
		Name:     "Gold hoop",
		Category: "earrings",
		ImageURL: "/media/hoop.png",
	}

	if err := repo.Create(piece); err != nil {
		t.Fatalf("failed to create jewelry: %v", err)
	}

	if piece.ID == "" {
		t.Fatal("ID should be generated on create")
	}
	if piece.Category != jewelry.Earring {
		t.Errorf("Category = %q, want normalized %q", piece.Category, jewelry.Earring)
	}
	if piece.CreatedAt.IsZero() || piece.UpdatedAt.IsZero() {
		t.Error("timestamps should be set after create")
	}

	got, err := repo.GetByID(piece.ID)
	if err != nil {
		t.Fatalf("failed to get jewelry: %v", err)
	}
	if got.Name != piece.Name || got.Category != piece.Category || got.ImageURL != piece.ImageURL {
		t.Errorf("GetByID() = %+v, want %+v", got, piece)
	}
}

func TestJewelryRepository_Create_Invalid(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jewelry()

	tests := []struct {
		name  string
		piece *Jewelry
		want  error
	}{
		{"unknown category", &Jewelry{Name: "Anklet", Category: "Anklet", ImageURL: "a.png"}, jewelry.ErrUnknownCategory},
		{"missing image", &Jewelry{Name: "Band", Category: jewelry.Ring}, ErrMissingImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Create(tt.piece); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJewelryRepository_PendantIsNecklace(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jewelry()

	piece := &Jewelry{Name: "Locket", Category: "Pendant", ImageURL: "locket.png"}
	if err := repo.Create(piece); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	necklaces, err := repo.List(jewelry.Necklace)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(necklaces) != 1 || necklaces[0].ID != piece.ID {
		t.Errorf("expected the pendant to be listed as a necklace, got %v", necklaces)
	}
}

func TestJewelryRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jewelry()

	pieces := []*Jewelry{
		{Name: "Solitaire", Category: jewelry.Ring, ImageURL: "r1.png"},
		{Name: "Bangle", Category: jewelry.Bracelet, ImageURL: "b1.png"},
		{Name: "Band", Category: jewelry.Ring, ImageURL: "r2.png"},
	}
	for _, p := range pieces {
		if err := repo.Create(p); err != nil {
			t.Fatalf("Create(%s) error = %v", p.Name, err)
		}
	}

	all, err := repo.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(all))
	}
	if all[0].Name != "Band" || all[1].Name != "Bangle" || all[2].Name != "Solitaire" {
		t.Errorf("expected name order, got %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}

	rings, err := repo.List("rings")
	if err != nil {
		t.Fatalf("List(rings) error = %v", err)
	}
	if len(rings) != 2 {
		t.Errorf("expected 2 rings, got %d", len(rings))
	}

	if _, err := repo.List("Anklet"); !errors.Is(err, jewelry.ErrUnknownCategory) {
		t.Errorf("List(Anklet) error = %v, want ErrUnknownCategory", err)
	}
}

func TestJewelryRepository_Update(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jewelry()

	piece := &Jewelry{Name: "Chain", Category: jewelry.Necklace, ImageURL: "chain.png"}
	if err := repo.Create(piece); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	piece.Name = "Gold chain"
	piece.ImageURL = "gold-chain.png"
	if err := repo.Update(piece); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(piece.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Gold chain" || got.ImageURL != "gold-chain.png" {
		t.Errorf("update not persisted: %+v", got)
	}

	missing := &Jewelry{ID: "missing", Name: "x", Category: jewelry.Ring, ImageURL: "x.png"}
	if err := repo.Update(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestJewelryRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jewelry()

	piece := &Jewelry{Name: "Stud", Category: jewelry.Earring, ImageURL: "stud.png"}
	if err := repo.Create(piece); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(piece.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(piece.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(piece.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestJewelryRepository_Lookup(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jewelry()

	var catalog jewelry.Catalog = repo

	piece := &Jewelry{Name: "Cuff", Category: "bracelets", ImageURL: "https://cdn.example.com/cuff.webp"}
	if err := repo.Create(piece); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	item, err := catalog.Lookup(context.Background(), piece.ID)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if item.Category != jewelry.Bracelet || item.ImageURL != piece.ImageURL {
		t.Errorf("Lookup() = %+v", item)
	}

	if _, err := catalog.Lookup(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(missing) error = %v, want ErrNotFound", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := catalog.Lookup(ctx, piece.ID); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestCalibrationRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Calibrations()

	if _, err := repo.Get(jewelry.Ring); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() before upsert error = %v, want ErrNotFound", err)
	}

	if err := repo.Upsert(&Calibration{Category: "rings", Scale: 0.12, OffsetY: 30}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(&Calibration{Category: jewelry.Ring, Scale: 0.2, OffsetX: 2, OffsetY: 20}); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if err := repo.Upsert(&Calibration{Category: jewelry.Bracelet, Scale: 1.8}); err != nil {
		t.Fatalf("Upsert(bracelet) error = %v", err)
	}

	got, err := repo.Get(jewelry.Ring)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Scale != 0.2 || got.OffsetX != 2 || got.OffsetY != 20 {
		t.Errorf("Get() = %+v, want the latest upsert", got)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].Category != jewelry.Bracelet || all[1].Category != jewelry.Ring {
		t.Errorf("List() = %v", all)
	}

	if err := repo.Upsert(&Calibration{Category: jewelry.Earring, Scale: 0}); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("Upsert(scale 0) error = %v, want ErrInvalidScale", err)
	}
	if err := repo.Upsert(&Calibration{Category: "Anklet", Scale: 1}); !errors.Is(err, jewelry.ErrUnknownCategory) {
		t.Errorf("Upsert(Anklet) error = %v, want ErrUnknownCategory", err)
	}
}
