package engine

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/apimocker/apimocker/pkg/openapi"
	"github.com/apimocker/apimocker/pkg/store"
	"github.com/apimocker/apimocker/pkg/validation"
)

// listResponse is the collection-list envelope.
type listResponse struct {
	Items   []store.Record `json:"items"`
	Total   int            `json:"total"`
	Skip    int            `json:"skip"`
	Take    *int           `json:"take"`
	HasMore bool           `json:"hasMore"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}

func respondValidationErrors(w http.ResponseWriter, errs []validation.FieldError) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "Validation failed",
		"details": errs,
	})
}

// decodeRecord parses a JSON object body, preserving integer values.
func decodeRecord(r *http.Request) (store.Record, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var rec store.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return store.NormalizeRecord(rec), nil
}

// parseQueryOptions splits reserved query parameters from filters.
// Underscore-prefixed parameters are control parameters and never
// become filters.
func parseQueryOptions(q url.Values) store.QueryOptions {
	opts := store.QueryOptions{Filters: make(map[string]string)}

	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch key {
		case "_sort":
			opts.SortBy = value
		case "_order":
			opts.SortDescending = strings.EqualFold(value, "desc")
		case "_skip", "_offset":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				opts.Skip = &n
			}
		case "_take", "_limit":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				opts.Take = &n
			}
		default:
			if strings.HasPrefix(key, "_") {
				continue
			}
			opts.Filters[key] = value
		}
	}
	return opts
}

func (s *Server) handleList(ep *openapi.Endpoint, collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lazySeed(ep, collection)

		opts := parseQueryOptions(r.URL.Query())
		result := s.store.Query(collection, opts)

		skip := 0
		if opts.Skip != nil {
			skip = *opts.Skip
		}
		respondJSON(w, http.StatusOK, listResponse{
			Items:   result.Items,
			Total:   result.TotalCount,
			Skip:    skip,
			Take:    opts.Take,
			HasMore: opts.Take != nil && skip+len(result.Items) < result.TotalCount,
		})
	}
}

// lazySeed populates an empty collection with generated records the
// first time it is read, using the endpoint's response item schema.
func (s *Server) lazySeed(ep *openapi.Endpoint, collection string) {
	if s.opts.InitialDataCount <= 0 {
		return
	}
	if len(s.store.GetAll(collection)) > 0 {
		return
	}
	schema := s.doc.ItemSchema(ep)
	if schema == nil {
		return
	}

	records := s.gen.GenerateMany(schema, s.opts.InitialDataCount, 1)
	recs := make([]store.Record, len(records))
	for i, rec := range records {
		recs[i] = store.NormalizeRecord(rec)
	}
	if err := s.store.Seed(collection, recs); err != nil {
		s.log.Error("lazy seed failed", "collection", collection, "error", err)
		return
	}
	s.log.Info("collection seeded", "collection", collection, "count", len(recs))
}

func (s *Server) handleGet(collection, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, idParam)
		rec, ok := s.store.GetByID(collection, id)
		if !ok {
			respondError(w, http.StatusNotFound, "Not found")
			return
		}
		respondJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleCreate(ep *openapi.Endpoint, collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := decodeRecord(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if schema := s.doc.Resolve(ep.RequestSchema); schema != nil {
			if errs := validation.Validate(rec, schema); len(errs) > 0 {
				respondValidationErrors(w, errs)
				return
			}
		}

		created, err := s.store.Create(collection, rec)
		if err != nil {
			s.log.Error("create failed", "collection", collection, "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		location := strings.TrimSuffix(r.URL.Path, "/") + "/" + store.Stringify(created["id"])
		w.Header().Set("Location", location)
		respondJSON(w, http.StatusCreated, created)
		s.webhooks.Fire(collection+".created", created)
	}
}

func (s *Server) handleReplace(ep *openapi.Endpoint, collection, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, idParam)
		rec, err := decodeRecord(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if schema := s.doc.Resolve(ep.RequestSchema); schema != nil {
			if errs := validation.Validate(rec, schema); len(errs) > 0 {
				respondValidationErrors(w, errs)
				return
			}
		}

		updated, err := s.store.Update(collection, id, rec)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Not found")
				return
			}
			s.log.Error("update failed", "collection", collection, "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		respondJSON(w, http.StatusOK, updated)
		s.webhooks.Fire(collection+".updated", updated)
	}
}

func (s *Server) handlePatch(ep *openapi.Endpoint, collection, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, idParam)
		existing, ok := s.store.GetByID(collection, id)
		if !ok {
			respondError(w, http.StatusNotFound, "Not found")
			return
		}

		patch, err := decodeRecord(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if schema := s.doc.Resolve(ep.RequestSchema); schema != nil {
			if errs := validation.ValidatePartial(patch, schema); len(errs) > 0 {
				respondValidationErrors(w, errs)
				return
			}
		}

		merged := make(store.Record, len(existing)+len(patch))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}

		updated, err := s.store.Update(collection, id, merged)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Not found")
				return
			}
			s.log.Error("patch failed", "collection", collection, "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		respondJSON(w, http.StatusOK, updated)
		s.webhooks.Fire(collection+".updated", updated)
	}
}

func (s *Server) handleDelete(collection, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, idParam)
		if err := s.store.Delete(collection, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Not found")
				return
			}
			s.log.Error("delete failed", "collection", collection, "id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		w.WriteHeader(http.StatusNoContent)
		s.webhooks.Fire(collection+".deleted", map[string]any{"id": id})
	}
}
