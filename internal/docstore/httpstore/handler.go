// Package httpstore serves a docstore.Store over HTTP and provides the matching client.
//
//	GET   /v1/docs/{collection}/{id}   -> 200 document | 404
//	PUT   /v1/docs/{collection}/{id}   body: document            -> 204
//	PATCH /v1/docs/{collection}/{id}   body: {"dotted.path": value} -> 204 | 404
package httpstore

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/docstore"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// NewHandler exposes store under /v1/docs/.
func NewHandler(store docstore.Store, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{store: store, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/docs/{collection}/{id}", h.get)
	mux.HandleFunc("PUT /v1/docs/{collection}/{id}", h.put)
	mux.HandleFunc("PATCH /v1/docs/{collection}/{id}", h.patch)
	return mux
}

type handler struct {
	store docstore.Store
	log   *zap.Logger
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	collection, id := r.PathValue("collection"), r.PathValue("id")
	doc, err := h.store.Get(r.Context(), collection, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

func (h *handler) put(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "document is not valid JSON", http.StatusBadRequest)
		return
	}
	if err := h.store.Set(r.Context(), r.PathValue("collection"), r.PathValue("id"), body); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) patch(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&fields); err != nil {
		http.Error(w, "body must be an object of field paths", http.StatusBadRequest)
		return
	}
	if len(fields) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.store.Update(r.Context(), r.PathValue("collection"), r.PathValue("id"), fields); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, docstore.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Warn("document request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	http.Error(w, err.Error(), http.StatusBadRequest)
}
