package scenery_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/04shr/petzy/internal/prefs"
	"github.com/04shr/petzy/internal/scenery"
)

type mapFetcher struct {
	files map[string][]byte
	calls int
}

func (m *mapFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	m.calls++
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCatalogFind(t *testing.T) {
	c := scenery.NewCatalog(append(scenery.Defaults, prefs.SceneAsset{Name: "beach", Img: "dup.png"}, prefs.SceneAsset{}))
	assert.Len(t, c.All(), len(scenery.Defaults))

	s, ok := c.Find(" BEACH ")
	require.True(t, ok)
	assert.Equal(t, "scenes/beach.jpg", s.Img)

	_, ok = c.Find("Moon")
	assert.False(t, ok)
}

func TestPrepareCoversWindow(t *testing.T) {
	f := &mapFetcher{files: map[string][]byte{"wide.png": pngBytes(t, 64, 16)}}
	b := scenery.NewBackgrounds(f, nil)
	scene := prefs.SceneAsset{Name: "Wide", Img: "wide.png"}

	img, err := b.Prepare(context.Background(), scene, 32, 32)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())

	_, err = b.Prepare(context.Background(), scene, 32, 32)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls, "same size must come from cache")
}

func TestPrepareWithoutImage(t *testing.T) {
	b := scenery.NewBackgrounds(&mapFetcher{}, nil)
	img, err := b.Prepare(context.Background(), prefs.SceneAsset{Name: "Plain"}, 10, 10)
	assert.NoError(t, err)
	assert.Nil(t, img)
}

func TestPrepareErrors(t *testing.T) {
	f := &mapFetcher{files: map[string][]byte{"junk.png": []byte("nope")}}
	b := scenery.NewBackgrounds(f, nil)
	ctx := context.Background()

	_, err := b.Prepare(ctx, prefs.SceneAsset{Name: "Gone", Img: "gone.png"}, 10, 10)
	assert.Error(t, err)
	_, err = b.Prepare(ctx, prefs.SceneAsset{Name: "Junk", Img: "junk.png"}, 10, 10)
	assert.Error(t, err)
	_, err = b.Prepare(ctx, prefs.SceneAsset{Name: "Junk", Img: "junk.png"}, 0, 10)
	assert.Error(t, err)
}

func TestCoverKeepsCenter(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 30, 10))
	for y := 0; y < 10; y++ {
		for x := 10; x < 20; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	out := scenery.Cover(src, 10, 10)
	assert.Equal(t, image.Rect(0, 0, 10, 10), out.Bounds())
	r, _, _, _ := out.At(5, 5).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}
