// Package fonts finds overlay fonts among the assets by loose family name.
package fonts

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/hack-pad/hackpadfs"
)

// Dir is where fonts live inside the assets directory.
const Dir = "fonts"

// ErrNotFound is returned when no font matches a search.
var ErrNotFound = errors.New("font not found")

// Exts are the file types considered fonts.
var Exts = []string{".ttf", ".otf"}

func isFont(name string) bool {
	return slices.Contains(Exts, strings.ToLower(path.Ext(name)))
}

// Scan returns the paths of every font under dir, relative to dir, sorted. A missing dir
// yields no fonts and no error.
func Scan(fsys hackpadfs.FS, dir string) ([]string, error) {
	var out []string
	var walk func(rel string) error
	walk = func(rel string) error {
		entries, err := hackpadfs.ReadDir(fsys, path.Join(dir, rel))
		if err != nil {
			return err
		}
		for _, e := range entries {
			child := path.Join(rel, e.Name())
			if e.IsDir() {
				if err := walk(child); err != nil {
					return err
				}
				continue
			}
			if isFont(e.Name()) {
				out = append(out, child)
			}
		}
		return nil
	}
	if err := walk(""); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan fonts: %w", err)
	}
	slices.Sort(out)
	return out, nil
}

// normalizeForMatch lowercases and removes spaces, dashes and underscores.
func normalizeForMatch(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(s))
}

// candidates lists search terms from most to least specific: "Inter/Inter-Bold.ttf" tries
// the whole string, then "Inter", then "Inter-Bold".
func candidates(search string) []string {
	out := []string{search}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	if i := strings.IndexAny(search, "/\\"); i > 0 {
		add(search[:i])
	}
	if i := strings.Index(search, "-"); i > 0 {
		add(search[:i])
	}
	for _, ext := range Exts {
		if strings.HasSuffix(strings.ToLower(search), ext) {
			add(search[:len(search)-len(ext)])
		}
	}
	return out
}

// Find returns the path inside fsys of the font under dir that best matches search. When
// several files match, one with "regular" in its name wins.
func Find(fsys hackpadfs.FS, dir, search string) (string, error) {
	list, err := Scan(fsys, dir)
	if err != nil {
		return "", err
	}
	for _, term := range candidates(strings.TrimSpace(search)) {
		norm := normalizeForMatch(term)
		if norm == "" {
			continue
		}
		var matches []string
		for _, rel := range list {
			if strings.Contains(normalizeForMatch(rel), norm) {
				matches = append(matches, rel)
			}
		}
		if len(matches) == 0 {
			continue
		}
		best := matches[0]
		for _, m := range matches {
			if strings.Contains(strings.ToLower(m), "regular") {
				best = m
				break
			}
		}
		return path.Join(dir, best), nil
	}
	return "", fmt.Errorf("%q: %w", search, ErrNotFound)
}
