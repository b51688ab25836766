package engine

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/apimocker/apimocker/pkg/openapi"
)

var versionSegment = regexp.MustCompile(`^[vV]\d+$`)

// CollectionName derives the backing collection for an endpoint path:
// the first segment that is not a brace parameter, not "api" and not a
// version token. Falls back to the first segment, then to "items".
func CollectionName(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, seg := range segments {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		if strings.EqualFold(seg, "api") || versionSegment.MatchString(seg) {
			continue
		}
		return seg
	}
	for _, seg := range segments {
		if seg != "" {
			return seg
		}
	}
	return "items"
}

// idParamName returns the name of the trailing brace parameter of a
// path, or "" when the path addresses the whole collection.
func idParamName(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	last := segments[len(segments)-1]
	if strings.HasPrefix(last, "{") && strings.HasSuffix(last, "}") {
		return strings.TrimSuffix(strings.TrimPrefix(last, "{"), "}")
	}
	return ""
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	if s.opts.EnableCORS {
		r.Use(s.corsMiddleware)
	}
	r.Use(s.authMiddleware)
	r.Use(s.customResponseMiddleware)
	r.Use(s.simulationMiddleware)
	if s.opts.Verbose {
		r.Use(s.requestLogMiddleware)
	}

	for i := range s.doc.Endpoints {
		ep := &s.doc.Endpoints[i]
		handler := s.endpointHandler(ep)
		if handler == nil {
			s.log.Warn("skipping unsupported endpoint",
				"method", ep.Method, "path", ep.Path)
			continue
		}
		r.Method(ep.Method, ep.Path, handler)
		s.log.Debug("route registered",
			"method", ep.Method,
			"path", ep.Path,
			"collection", CollectionName(ep.Path))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	return r
}

func (s *Server) endpointHandler(ep *openapi.Endpoint) http.Handler {
	collection := CollectionName(ep.Path)
	idParam := idParamName(ep.Path)

	switch strings.ToUpper(ep.Method) {
	case http.MethodGet:
		if idParam == "" {
			return s.handleList(ep, collection)
		}
		return s.handleGet(collection, idParam)
	case http.MethodPost:
		return s.handleCreate(ep, collection)
	case http.MethodPut:
		return s.handleReplace(ep, collection, idParam)
	case http.MethodPatch:
		return s.handlePatch(ep, collection, idParam)
	case http.MethodDelete:
		return s.handleDelete(collection, idParam)
	default:
		return nil
	}
}
