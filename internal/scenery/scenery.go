// Package scenery holds the teleport destinations and turns their background images into
// pixels sized for the viewer.
package scenery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/transform"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/04shr/petzy/internal/prefs"
)

// Defaults are the destinations offered when the config lists none. Image paths are
// relative to the assets directory.
var Defaults = []prefs.SceneAsset{
	{Name: "Meadow", Img: "scenes/meadow.png"},
	{Name: "Beach", Img: "scenes/beach.jpg"},
	{Name: "Space", Img: "scenes/space.webp"},
	{Name: "Plain"},
}

// Catalog is an ordered, name-addressed list of scenes.
type Catalog struct {
	scenes []prefs.SceneAsset
}

// NewCatalog returns a catalog of scenes; blank and duplicate names are skipped.
func NewCatalog(scenes []prefs.SceneAsset) *Catalog {
	c := &Catalog{}
	seen := make(map[string]bool)
	for _, s := range scenes {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		c.scenes = append(c.scenes, s)
	}
	return c
}

// All returns every scene in order.
func (c *Catalog) All() []prefs.SceneAsset { return append([]prefs.SceneAsset(nil), c.scenes...) }

// Find looks a scene up by name, ignoring case.
func (c *Catalog) Find(name string) (prefs.SceneAsset, bool) {
	name = strings.TrimSpace(name)
	for _, s := range c.scenes {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return prefs.SceneAsset{}, false
}

// Fetcher reads raw bytes for an image path. assets.Loader implements it.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

type cacheKey struct {
	img  string
	w, h int
}

// Backgrounds decodes scene images and fits them to the window.
type Backgrounds struct {
	fetch Fetcher
	log   *zap.Logger

	mu    sync.Mutex
	cache map[cacheKey]*image.RGBA
}

// NewBackgrounds returns a background preparer reading through fetch.
func NewBackgrounds(fetch Fetcher, log *zap.Logger) *Backgrounds {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backgrounds{fetch: fetch, log: log, cache: make(map[cacheKey]*image.RGBA)}
}

// Prepare returns the scene's background scaled to cover a w×h window and cropped to it.
// Scenes without an image return nil.
func (b *Backgrounds) Prepare(ctx context.Context, scene prefs.SceneAsset, w, h int) (*image.RGBA, error) {
	if scene.Img == "" {
		return nil, nil
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("background %s: invalid size %dx%d", scene.Name, w, h)
	}
	key := cacheKey{img: scene.Img, w: w, h: h}
	b.mu.Lock()
	cached, ok := b.cache[key]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	data, err := b.fetch.Fetch(ctx, scene.Img)
	if err != nil {
		return nil, fmt.Errorf("background %s: %w", scene.Name, err)
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("background %s: decode: %w", scene.Name, err)
	}
	out := Cover(src, w, h)
	b.log.Debug("background prepared",
		zap.String("scene", scene.Name),
		zap.String("format", format),
		zap.Int("width", w),
		zap.Int("height", h))

	b.mu.Lock()
	b.cache[key] = out
	b.mu.Unlock()
	return out, nil
}

// Cover scales src so it fills w×h and crops the overflow evenly from both sides.
func Cover(src image.Image, w, h int) *image.RGBA {
	sb := src.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	scale := math.Max(float64(w)/sw, float64(h)/sh)
	rw := max(w, int(math.Ceil(sw*scale)))
	rh := max(h, int(math.Ceil(sh*scale)))
	resized := transform.Resize(src, rw, rh, transform.Linear)

	x0 := (rw - w) / 2
	y0 := (rh - h) / 2
	out := transform.Crop(resized, image.Rect(x0, y0, x0+w, y0+h))
	out.Rect = out.Rect.Sub(out.Rect.Min)
	return out
}
