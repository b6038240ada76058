package graphics

import (
	"context"
	"path/filepath"

	"github.com/04shr/petzy/internal/assets"
	"github.com/04shr/petzy/internal/download"
)

// Resolver maps an avatar asset path to a file raylib can open.
type Resolver interface {
	Resolve(ctx context.Context, asset string) (string, error)
}

// FileResolver joins local assets onto Dir and downloads remote ones first.
type FileResolver struct {
	Dir       string
	Downloads *download.Client
}

// Resolve implements Resolver.
func (r FileResolver) Resolve(ctx context.Context, asset string) (string, error) {
	if assets.IsRemote(asset) {
		return r.Downloads.Fetch(ctx, asset)
	}
	return filepath.Join(r.Dir, filepath.FromSlash(asset)), nil
}
