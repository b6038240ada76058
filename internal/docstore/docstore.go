// Package docstore is the remote document store preferences and identities live in.
// Documents are JSON objects addressed by collection and id; partial updates use dotted
// field paths ("preferences.meshes") so concurrent writers of different fields never
// clobber each other.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store reads and writes JSON documents.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	// Set creates or replaces the whole document.
	Set(ctx context.Context, collection, id string, doc json.RawMessage) error
	// Update writes the given dotted paths into an existing document. It returns ErrNotFound
	// if the document does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]json.RawMessage) error
}

// ValidateKey checks a collection/id pair.
func ValidateKey(collection, id string) error {
	if strings.TrimSpace(collection) == "" {
		return fmt.Errorf("collection is required")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("document id is required")
	}
	if strings.ContainsAny(collection, "/") || strings.ContainsAny(id, "/") {
		return fmt.Errorf("document key %s/%s must not contain '/'", collection, id)
	}
	return nil
}

// ApplyFields writes every dotted path of fields into doc and returns the new document.
// Paths are applied in sorted order so the result does not depend on map iteration.
func ApplyFields(doc json.RawMessage, fields map[string]json.RawMessage) (json.RawMessage, error) {
	if len(doc) == 0 {
		doc = json.RawMessage(`{}`)
	}
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("stored document is not valid JSON")
	}
	paths := make([]string, 0, len(fields))
	for p := range fields {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	out := []byte(doc)
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("empty field path")
		}
		v := fields[p]
		if !gjson.ValidBytes(v) {
			return nil, fmt.Errorf("field %s: value is not valid JSON", p)
		}
		var err error
		out, err = sjson.SetRawBytes(out, p, v)
		if err != nil {
			return nil, fmt.Errorf("set field %s: %w", p, err)
		}
	}
	return out, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]json.RawMessage)}
}

func memKey(collection, id string) string { return collection + "/" + id }

// Get implements Store.
func (m *Memory) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateKey(collection, id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[memKey(collection, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(doc), nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, collection, id string, doc json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(collection, id); err != nil {
		return err
	}
	if !gjson.ValidBytes(doc) {
		return fmt.Errorf("document is not valid JSON")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[memKey(collection, id)] = slices.Clone(doc)
	return nil
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(collection, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(collection, id)
	doc, ok := m.docs[k]
	if !ok {
		return ErrNotFound
	}
	out, err := ApplyFields(doc, fields)
	if err != nil {
		return err
	}
	m.docs[k] = out
	return nil
}
