// Package download saves remote model and image files to disk for loaders that only read
// local paths.
package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	defaultUserAgent = "petzy/1.0"
	// DefaultTimeout bounds one download.
	DefaultTimeout = 60 * time.Second
)

// knownExts are the file types a download may be saved as.
var knownExts = map[string]bool{
	".glb": true, ".gltf": true, ".png": true, ".jpg": true, ".jpeg": true, ".webp": true,
}

// Client downloads files into a directory.
type Client struct {
	HTTP *http.Client
	Dir  string
}

// New returns a client saving under dir with a DefaultTimeout HTTP client.
func New(dir string) *Client {
	return &Client{HTTP: &http.Client{Timeout: DefaultTimeout}, Dir: dir}
}

// Fetch downloads rawURL into c.Dir and returns the saved path. The filename comes from
// Content-Disposition or the URL path; the extension from the URL or Content-Type. A
// partially written file is removed on error.
func (c *Client) Fetch(ctx context.Context, rawURL string) (savedPath string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: HTTP %d", rawURL, resp.StatusCode)
	}

	ext := extensionFromURL(rawURL)
	if ext == "" {
		ext = extensionFromContentType(resp.Header.Get("Content-Type"))
	}
	if ext == "" {
		ext = ".bin"
	}
	name := filenameFromContentDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = filenameFromURL(rawURL)
	}
	name = sanitizeFilename(name)
	if !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	savedPath = filepath.Join(c.Dir, name)
	out, err := os.Create(savedPath)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(savedPath)
		return "", fmt.Errorf("download: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(savedPath)
		return "", fmt.Errorf("download: %w", err)
	}
	return savedPath, nil
}

func filenameFromContentDisposition(cd string) string {
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	name := params["filename"]
	return strings.TrimSuffix(name, path.Ext(name))
}

func extensionFromContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	switch mt {
	case "model/gltf-binary":
		return ".glb"
	case "model/gltf+json":
		return ".gltf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ""
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}

func extensionFromURL(rawURL string) string {
	ext := strings.ToLower(path.Ext(urlPath(rawURL)))
	if knownExts[ext] {
		return ext
	}
	return ""
}

func filenameFromURL(rawURL string) string {
	base := path.Base(urlPath(rawURL))
	if base == "/" || base == "." {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

var safeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func sanitizeFilename(name string) string {
	name = safeNameRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, ".")
	if name == "" {
		return "download"
	}
	if len(name) > 96 {
		name = name[:96]
	}
	return name
}
