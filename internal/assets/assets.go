// Package assets loads avatar scenes from a virtual filesystem or over HTTP. Loads are
// cached by path and concurrent requests for the same path share one read.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hack-pad/hackpadfs"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/04shr/petzy/internal/scene"
)

const (
	defaultUserAgent = "petzy/1.0"
	// DefaultTimeout bounds a remote fetch.
	DefaultTimeout = 60 * time.Second
	// maxAssetSize caps what a single fetch will read.
	maxAssetSize = 256 << 20
)

// ErrUnsupported is returned for paths that are not glTF or GLB files.
var ErrUnsupported = errors.New("unsupported asset type")

// Decoder turns raw asset bytes into a scene graph.
type Decoder func(name string, data []byte) (*scene.Graph, error)

// Loader reads and decodes assets.
type Loader struct {
	fsys   hackpadfs.FS
	root   string
	client *http.Client
	decode Decoder
	log    *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*scene.Graph
}

// Option configures a Loader.
type Option func(*Loader)

// WithRoot resolves relative asset paths under dir inside the filesystem.
func WithRoot(dir string) Option {
	return func(l *Loader) { l.root = strings.Trim(path.Clean("/"+dir), "/") }
}

// WithDecoder replaces the glTF decoder.
func WithDecoder(d Decoder) Option {
	return func(l *Loader) { l.decode = d }
}

// WithHTTPClient sets the client used for http(s) paths.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// NewLoader returns a loader reading local paths from fsys.
func NewLoader(fsys hackpadfs.FS, log *zap.Logger, opts ...Option) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loader{
		fsys:   fsys,
		client: &http.Client{Timeout: DefaultTimeout},
		decode: scene.Decode,
		log:    log,
		cache:  make(map[string]*scene.Graph),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsRemote reports whether p is fetched over HTTP.
func IsRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// key normalizes p into the cache key and the filesystem path.
func (l *Loader) key(p string) string {
	p = strings.TrimSpace(p)
	if IsRemote(p) {
		return p
	}
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if l.root != "" {
		clean = path.Join(l.root, clean)
	}
	return clean
}

// Load returns a private instance of the scene at p. The decoded graph is cached; every
// caller gets its own node copies so visibility changes never leak between instances.
func (l *Loader) Load(ctx context.Context, p string) (*scene.Graph, error) {
	if !supported(p) {
		return nil, fmt.Errorf("load %s: %w", p, ErrUnsupported)
	}
	k := l.key(p)

	l.mu.RLock()
	g, ok := l.cache[k]
	l.mu.RUnlock()
	if ok {
		return g.Instance(), nil
	}

	ch := l.group.DoChan(k, func() (any, error) {
		start := time.Now()
		data, err := l.read(context.WithoutCancel(ctx), k)
		if err != nil {
			return nil, err
		}
		g, err := l.decode(path.Base(k), data)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[k] = g
		l.mu.Unlock()
		l.log.Info("asset loaded",
			zap.String("path", k),
			zap.Int("nodes", g.Len()),
			zap.Int("bytes", len(data)),
			zap.Duration("took", time.Since(start)))
		return g, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load %s: %w", p, res.Err)
		}
		return res.Val.(*scene.Graph).Instance(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch returns the raw bytes at p without caching.
func (l *Loader) Fetch(ctx context.Context, p string) ([]byte, error) {
	data, err := l.read(ctx, l.key(p))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p, err)
	}
	return data, nil
}

// Evict drops the cached graph for p so the next Load reads it again.
func (l *Loader) Evict(p string) {
	k := l.key(p)
	l.mu.Lock()
	delete(l.cache, k)
	l.mu.Unlock()
	l.group.Forget(k)
}

// Cached reports whether p is in the cache.
func (l *Loader) Cached(p string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.cache[l.key(p)]
	return ok
}

func (l *Loader) read(ctx context.Context, k string) ([]byte, error) {
	if IsRemote(k) {
		return l.download(ctx, k)
	}
	if l.fsys == nil {
		return nil, fmt.Errorf("no filesystem configured")
	}
	return hackpadfs.ReadFile(l.fsys, k)
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
}

func supported(p string) bool {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 && IsRemote(p) {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".gltf", ".glb":
		return true
	}
	return false
}
