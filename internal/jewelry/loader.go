package jewelry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Loader defaults.
const (
	DefaultCacheSize    = 32
	DefaultMaxDimension = 1024
	DefaultMaxBytes     = 20 << 20
)

var (
	// ErrEmptyImage is returned when an image decodes to zero pixels.
	ErrEmptyImage = errors.New("jewelry image is empty")

	// ErrImageTooLarge is returned when an image file exceeds MaxBytes.
	ErrImageTooLarge = errors.New("jewelry image too large")
)

// Item is a catalog entry as seen by the try-on engine.
type Item struct {
	ID       string
	Name     string
	Category Category
	ImageURL string
}

// Catalog resolves product identifiers to catalog items.
type Catalog interface {
	Lookup(ctx context.Context, id string) (*Item, error)
}

// Asset is a decoded jewelry image ready to be drawn. It is never mutated
// after the loader returns it.
type Asset struct {
	ID       string
	Category Category
	Image    image.Image
	Width    int
	Height   int
}

// NewAsset wraps an already decoded image. The image is re-based to the
// origin so that its bounds start at (0,0).
func NewAsset(id string, category Category, img image.Image) (*Asset, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	if img.Bounds().Min != (image.Point{}) {
		img = imaging.Clone(img)
	}

	b := img.Bounds()
	return &Asset{
		ID:       id,
		Category: category,
		Image:    img,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// LoaderConfig holds configuration for the asset loader.
type LoaderConfig struct {
	// BaseDir resolves relative and root-relative image paths.
	BaseDir string

	// MaxDimension caps the longer image side; larger images are downscaled.
	MaxDimension int

	// CacheSize is the number of decoded assets kept in memory.
	CacheSize int

	// MaxBytes caps the encoded image size. Defaults to DefaultMaxBytes.
	MaxBytes int64

	// Client fetches http(s) image URLs. Defaults to http.DefaultClient.
	Client *http.Client
}

// Loader resolves jewelry identifiers to decoded assets.
type Loader struct {
	catalog Catalog
	config  LoaderConfig
	cache   *lru.Cache[string, *Asset]
}

// NewLoader creates a Loader backed by the given catalog.
func NewLoader(catalog Catalog, config LoaderConfig) (*Loader, error) {
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	if config.MaxDimension <= 0 {
		config.MaxDimension = DefaultMaxDimension
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultMaxBytes
	}
	if config.Client == nil {
		config.Client = http.DefaultClient
	}

	cache, err := lru.New[string, *Asset](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create asset cache: %w", err)
	}

	return &Loader{
		catalog: catalog,
		config:  config,
		cache:   cache,
	}, nil
}

// Load returns the decoded asset for the given jewelry id.
func (l *Loader) Load(ctx context.Context, id string) (*Asset, error) {
	if asset, ok := l.cache.Get(id); ok {
		return asset, nil
	}

	item, err := l.catalog.Lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup jewelry %s: %w", id, err)
	}

	data, err := l.fetch(ctx, item.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch image for %s: %w", id, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image for %s: %w", id, err)
	}

	b := img.Bounds()
	if b.Dx() > l.config.MaxDimension || b.Dy() > l.config.MaxDimension {
		img = imaging.Fit(img, l.config.MaxDimension, l.config.MaxDimension, imaging.Lanczos)
	}

	asset, err := NewAsset(item.ID, item.Category, img)
	if err != nil {
		return nil, err
	}

	l.cache.Add(id, asset)
	return asset, nil
}

// Invalidate drops a cached asset so the next Load decodes it again.
func (l *Loader) Invalidate(id string) {
	l.cache.Remove(id)
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, errors.New("no image location")
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.config.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return l.readLimited(resp.Body)
	}

	f, err := os.Open(l.resolvePath(location))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.readLimited(f)
}

// readLimited reads r whole, failing instead of truncating past MaxBytes.
func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.config.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.config.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, l.config.MaxBytes)
	}
	return data, nil
}

// resolvePath maps catalog paths such as "/media/image1.png" into BaseDir.
func (l *Loader) resolvePath(location string) string {
	location = strings.TrimPrefix(location, "file://")
	if l.config.BaseDir == "" {
		return location
	}
	if filepath.IsAbs(location) {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return filepath.Join(l.config.BaseDir, filepath.FromSlash(strings.TrimPrefix(location, "/")))
}
