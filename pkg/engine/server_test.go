package engine

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apimocker/apimocker/pkg/auth"
	"github.com/apimocker/apimocker/pkg/config"
	"github.com/apimocker/apimocker/pkg/openapi"
	"github.com/apimocker/apimocker/pkg/responses"
	"github.com/apimocker/apimocker/pkg/store"
	"github.com/apimocker/apimocker/pkg/webhook"
)

func testDocument() *openapi.Document {
	userSchema := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":    {Type: "integer"},
			"name":  {Type: "string"},
			"email": {Type: "string", Format: "email"},
		},
		Required: []string{"name", "email"},
	}
	userRef := &openapi.Schema{Ref: "User"}
	listRef := &openapi.Schema{Type: "array", Items: userRef}

	return &openapi.Document{
		Title:   "Test API",
		Version: "1.0.0",
		Schemas: map[string]*openapi.Schema{"User": userSchema},
		Endpoints: []openapi.Endpoint{
			{Path: "/api/v1/users", Method: "GET", ResponseSchema: listRef},
			{Path: "/api/v1/users", Method: "POST", RequestSchema: userRef, ResponseSchema: userRef},
			{Path: "/api/v1/users/{id}", Method: "GET", ResponseSchema: userRef},
			{Path: "/api/v1/users/{id}", Method: "PUT", RequestSchema: userRef, ResponseSchema: userRef},
			{Path: "/api/v1/users/{id}", Method: "PATCH", RequestSchema: userRef, ResponseSchema: userRef},
			{Path: "/api/v1/users/{id}", Method: "DELETE"},
		},
	}
}

func newTestServer(t *testing.T, opts config.Options, options ...Option) *Server {
	t.Helper()
	return NewServer(testDocument(), mergeDefaults(opts), options...)
}

func mergeDefaults(opts config.Options) config.Options {
	base := config.Default()
	base.InitialDataCount = 0
	if opts.InitialDataCount != 0 {
		base.InitialDataCount = opts.InitialDataCount
	}
	base.EnableCORS = opts.EnableCORS
	base.Verbose = opts.Verbose
	return base
}

func doRequest(s *Server, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func seedUsers(t *testing.T, s *Server, names ...string) {
	t.Helper()
	recs := make([]store.Record, len(names))
	for i, name := range names {
		recs[i] = store.Record{"name": name, "email": strings.ToLower(name) + "@example.com"}
	}
	require.NoError(t, s.store.Seed("users", recs))
}

func TestListLazySeed(t *testing.T) {
	s := newTestServer(t, config.Options{InitialDataCount: 3})

	rec := doRequest(s, "GET", "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["total"])
	items := body["items"].([]any)
	require.Len(t, items, 3)

	first := items[0].(map[string]any)
	assert.Equal(t, float64(1), first["id"])
	assert.Contains(t, first["email"], "@")

	// A second read does not reseed.
	rec = doRequest(s, "GET", "/api/v1/users", nil)
	assert.Equal(t, float64(3), decodeBody(t, rec)["total"])
}

func TestListFilterSortPaginate(t *testing.T) {
	s := newTestServer(t, config.Options{})
	seedUsers(t, s, "Alice", "Bob", "Charlie", "Alina")

	rec := doRequest(s, "GET", "/api/v1/users?name=ali", nil)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["total"]) // Alice, Alina

	rec = doRequest(s, "GET", "/api/v1/users?_sort=name&_order=desc&_skip=1&_take=2", nil)
	body = decodeBody(t, rec)
	items := body["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "Bob", items[0].(map[string]any)["name"])
	assert.Equal(t, "Alina", items[1].(map[string]any)["name"])
	assert.Equal(t, float64(4), body["total"])
	assert.Equal(t, float64(1), body["skip"])
	assert.Equal(t, float64(2), body["take"])
	assert.Equal(t, true, body["hasMore"])
}

func TestGetByID(t *testing.T) {
	s := newTestServer(t, config.Options{})
	seedUsers(t, s, "Alice")

	rec := doRequest(s, "GET", "/api/v1/users/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", decodeBody(t, rec)["name"])

	rec = doRequest(s, "GET", "/api/v1/users/99", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decodeBody(t, rec)["error"])
}

func TestCreate(t *testing.T) {
	s := newTestServer(t, config.Options{})

	rec := doRequest(s, "POST", "/api/v1/users", map[string]any{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "/api/v1/users/1", rec.Header().Get("Location"))
}

func TestCreateValidationFailure(t *testing.T) {
	s := newTestServer(t, config.Options{})

	rec := doRequest(s, "POST", "/api/v1/users", map[string]any{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Validation failed", body["error"])
	details := body["details"].([]any)
	fields := make(map[string]string)
	for _, d := range details {
		m := d.(map[string]any)
		fields[m["field"].(string)] = m["message"].(string)
	}
	assert.Contains(t, fields["name"], "required")
	assert.Contains(t, fields["email"], "email")
}

func TestCreateMalformedBody(t *testing.T) {
	s := newTestServer(t, config.Options{})

	req := httptest.NewRequest("POST", "/api/v1/users", strings.NewReader("{oops"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decodeBody(t, rec)["error"])
}

func TestPutReplaces(t *testing.T) {
	s := newTestServer(t, config.Options{})
	seedUsers(t, s, "Alice")

	rec := doRequest(s, "PUT", "/api/v1/users/1", map[string]any{
		"id":    999,
		"name":  "Alicia",
		"email": "alicia@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["id"], "stored id must survive replacement")
	assert.Equal(t, "Alicia", body["name"])

	rec = doRequest(s, "PUT", "/api/v1/users/42", map[string]any{
		"name":  "Nobody",
		"email": "nobody@example.com",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchMerges(t *testing.T) {
	s := newTestServer(t, config.Options{})
	seedUsers(t, s, "Alice")

	// Partial body missing required fields still passes.
	rec := doRequest(s, "PATCH", "/api/v1/users/1", map[string]any{"name": "Alicia"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Alicia", body["name"])
	assert.Equal(t, "alice@example.com", body["email"], "untouched fields survive the merge")

	// Present fields are still validated.
	rec = doRequest(s, "PATCH", "/api/v1/users/1", map[string]any{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, "PATCH", "/api/v1/users/42", map[string]any{"name": "X"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelete(t *testing.T) {
	s := newTestServer(t, config.Options{})
	seedUsers(t, s, "Alice")

	rec := doRequest(s, "DELETE", "/api/v1/users/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(s, "DELETE", "/api/v1/users/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, config.Options{EnableCORS: true})

	rec := doRequest(s, "OPTIONS", "/api/v1/users", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsAllowMethods, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, corsAllowHeaders, rec.Header().Get("Access-Control-Allow-Headers"))

	// Non-preflight requests carry the headers but proceed normally.
	rec = doRequest(s, "GET", "/api/v1/users", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthGate(t *testing.T) {
	gate, err := auth.New("bearer", "secret")
	require.NoError(t, err)
	s := newTestServer(t, config.Options{}, WithAuth(gate))

	rec := doRequest(s, "GET", "/api/v1/users", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["error"])

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCustomResponseOverride(t *testing.T) {
	provider := responses.NewProvider()
	require.NoError(t, provider.Register(responses.Config{
		Method: "GET",
		Path:   "/api/v1/users/*",
		Status: 503,
		Body:   map[string]any{"error": "maintenance"},
		Headers: map[string]string{
			"Retry-After": "120",
		},
	}))
	s := newTestServer(t, config.Options{}, WithResponses(provider))
	seedUsers(t, s, "Alice")

	rec := doRequest(s, "GET", "/api/v1/users/1", nil)
	assert.Equal(t, 503, rec.Code)
	assert.Equal(t, "120", rec.Header().Get("Retry-After"))
	assert.Equal(t, "maintenance", decodeBody(t, rec)["error"])

	// The collection route is not covered by the pattern.
	rec = doRequest(s, "GET", "/api/v1/users", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForcedStatusParam(t *testing.T) {
	s := newTestServer(t, config.Options{})
	seedUsers(t, s, "Alice")

	rec := doRequest(s, "GET", "/api/v1/users?_status=418", nil)
	assert.Equal(t, 418, rec.Code)
	assert.Equal(t, "Simulated 418 error", decodeBody(t, rec)["error"])
}

func TestForcedStatusSkipsDelay(t *testing.T) {
	s := newTestServer(t, config.Options{})
	seedUsers(t, s, "Alice")

	start := time.Now()
	rec := doRequest(s, "GET", "/api/v1/users?_status=503&_delay=1500", nil)
	elapsed := time.Since(start)

	assert.Equal(t, 503, rec.Code)
	assert.Equal(t, "Simulated 503 error", decodeBody(t, rec)["error"])
	assert.Less(t, elapsed, 500*time.Millisecond, "forced status must respond before any delay")
}

func TestWebhookFiredOnCreate(t *testing.T) {
	var mu sync.Mutex
	var events []string
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var envelope struct {
			Event string `json:"event"`
		}
		_ = json.NewDecoder(r.Body).Decode(&envelope)
		mu.Lock()
		events = append(events, envelope.Event)
		mu.Unlock()
	}))
	defer receiver.Close()

	d := webhook.NewDispatcher(2*time.Second, nil)
	d.Register(webhook.Config{Event: "users.*", URL: receiver.URL})
	s := newTestServer(t, config.Options{}, WithWebhooks(d))

	rec := doRequest(s, "POST", "/api/v1/users", map[string]any{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "users.created", events[0])
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/users", "users"},
		{"/api/v1/users/{id}", "users"},
		{"/users", "users"},
		{"/v2/products/{productId}", "products"},
		{"/api/{id}", "api"},
		{"/", "items"},
		{"", "items"},
	}
	for _, tt := range tests {
		if got := CollectionName(tt.path); got != tt.want {
			t.Errorf("CollectionName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	s := newTestServer(t, config.Options{})

	rec := doRequest(s, "GET", "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decodeBody(t, rec)["error"])
}
