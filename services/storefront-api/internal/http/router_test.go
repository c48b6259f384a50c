package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/services/storefront-api/internal/auth"
	"storefront-api/services/storefront-api/internal/http/handlers"
	"storefront-api/services/storefront-api/internal/repo"
	"storefront-api/shared/pkg/models"
)

type tokens map[string]string

func (v tokens) Verify(_ context.Context, token string) (auth.Identity, error) {
	if email, ok := v[token]; ok {
		return auth.Identity{Email: email}, nil
	}
	return auth.Identity{}, auth.ErrInvalidToken
}

type brokenCollection struct{ repo.Collection }

var errDown = errors.New("server selection timeout")

func (brokenCollection) Find(context.Context, repo.Filter) ([]models.Document, error) {
	return nil, errDown
}

func (brokenCollection) FindOne(context.Context, repo.Filter) (models.Document, error) {
	return nil, errDown
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestRouter(t *testing.T, store *repo.Store) http.Handler {
	t.Helper()
	return newTestRouterWith(t, store, nil)
}

func newTestRouterWith(t *testing.T, store *repo.Store, tweak func(*Handlers)) http.Handler {
	t.Helper()
	log := zerolog.Nop()
	verifier := tokens{
		"admin-token":  "boss@hero.com",
		"editor-token": "ed@hero.com",
		"ghost-token":  "ghost@hero.com",
	}
	h := &Handlers{
		Health:       &handlers.Health{Storage: store, Log: log},
		Products:     &handlers.Products{Coll: store.Products, Log: log},
		Orders:       &handlers.Orders{Coll: store.Orders, Log: log},
		Reviews:      &handlers.Reviews{Coll: store.Reviews, Log: log},
		Users:        &handlers.Users{Coll: store.Users, Log: log},
		Identify:     auth.Identify(verifier, log),
		RequireAdmin: auth.RequireAdmin(store.Users, log),
	}
	if tweak != nil {
		tweak(h)
	}
	return NewRouter("router-test", log, h)
}

type response struct {
	code   int
	header http.Header
	body   string
}

func (r response) json(t *testing.T) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(r.body), &v), r.body)
	return v
}

func (r response) object(t *testing.T) map[string]any {
	t.Helper()
	m, ok := r.json(t).(map[string]any)
	require.True(t, ok, "not an object: %s", r.body)
	return m
}

func (r response) array(t *testing.T) []any {
	t.Helper()
	a, ok := r.json(t).([]any)
	require.True(t, ok, "not an array: %s", r.body)
	return a
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return response{code: rec.Code, header: rec.Header(), body: rec.Body.String()}
}

func insertedID(t *testing.T, r response) string {
	t.Helper()
	require.Equal(t, http.StatusOK, r.code, r.body)
	ack := r.object(t)
	assert.Equal(t, true, ack["acknowledged"])
	id, ok := ack["insertedId"].(string)
	require.True(t, ok, "insertedId missing: %s", r.body)
	return id
}

func TestRootAndHealth(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	res := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "Hello Hero Runner!", res.body)

	res = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "ok", res.body)

	res = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, res.code)
}

func TestHealthReportsStorage(t *testing.T) {
	h := newTestRouterWith(t, repo.NewMemory(), func(h *Handlers) {
		h.Health.Storage = pingFunc(func(context.Context) error { return errDown })
	})

	res := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.code)
	assert.Equal(t, "storage unavailable", res.body)
}

func TestProductRoundTrip(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	id := insertedID(t, do(t, h, http.MethodPost, "/products", `{"name":"Hero Sneaker","price":120,"tags":["run"]}`))
	assert.Len(t, id, 24)

	res := do(t, h, http.MethodGet, "/products/"+id, "")
	require.Equal(t, http.StatusOK, res.code)
	got := res.object(t)
	assert.Equal(t, id, got["_id"])
	assert.Equal(t, "Hero Sneaker", got["name"])
	assert.Equal(t, float64(120), got["price"])
	assert.Equal(t, []any{"run"}, got["tags"])

	list := do(t, h, http.MethodGet, "/products", "").array(t)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].(map[string]any)["_id"])
}

func TestProductListIsInsertedMinusDeleted(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	a := insertedID(t, do(t, h, http.MethodPost, "/products", `{"name":"a"}`))
	b := insertedID(t, do(t, h, http.MethodPost, "/products", `{"name":"b"}`))
	c := insertedID(t, do(t, h, http.MethodPost, "/products", `{"name":"c"}`))

	del := do(t, h, http.MethodDelete, "/products/"+b, "")
	require.Equal(t, http.StatusOK, del.code)
	assert.Equal(t, float64(1), del.object(t)["deletedCount"])

	var ids []any
	for _, p := range do(t, h, http.MethodGet, "/products", "").array(t) {
		ids = append(ids, p.(map[string]any)["_id"])
	}
	assert.ElementsMatch(t, []any{a, c}, ids)
}

func TestProductMissingIsNull(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	res := do(t, h, http.MethodGet, "/products/507f1f77bcf86cd799439011", "")
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "null", strings.TrimSpace(res.body))
}

func TestMalformedIdentifierIsBadRequest(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/products/not-an-id"},
		{http.MethodDelete, "/products/123"},
		{http.MethodPut, "/orders/xyz"},
		{http.MethodDelete, "/orders/a@b.com"},
	} {
		res := do(t, h, tc.method, tc.path, "")
		assert.Equal(t, http.StatusBadRequest, res.code, "%s %s", tc.method, tc.path)
		assert.Contains(t, res.object(t)["message"], "invalid identifier")
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	for _, body := range []string{`{"name":`, `not json`} {
		res := do(t, h, http.MethodPost, "/products", body)
		assert.Equal(t, http.StatusBadRequest, res.code, body)
	}
	assert.Empty(t, do(t, h, http.MethodGet, "/products", "").array(t))
}

func TestOversizedBody(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	body := `{"blob":"` + strings.Repeat("x", 200<<10) + `"}`
	res := do(t, h, http.MethodPost, "/review", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.code)
}

func TestEmptyBodyInsertsEmptyDocument(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	insertedID(t, do(t, h, http.MethodPost, "/review", ""))
	assert.Len(t, do(t, h, http.MethodGet, "/review", "").array(t), 1)
}

func TestOrdersByEmail(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	id := insertedID(t, do(t, h, http.MethodPost, "/orders", `{"email":"a@b.com","item":"sword"}`))
	insertedID(t, do(t, h, http.MethodPost, "/orders", `{"email":"x@y.com","item":"shield"}`))

	mine := do(t, h, http.MethodGet, "/orders/a@b.com", "").array(t)
	require.Len(t, mine, 1)
	order := mine[0].(map[string]any)
	assert.Equal(t, id, order["_id"])
	assert.Equal(t, "sword", order["item"])

	escaped := do(t, h, http.MethodGet, "/orders/a%40b.com", "").array(t)
	assert.Len(t, escaped, 1)

	none := do(t, h, http.MethodGet, "/orders/c@d.com", "")
	assert.Equal(t, http.StatusOK, none.code)
	assert.Empty(t, none.array(t))

	assert.Len(t, do(t, h, http.MethodGet, "/orders", "").array(t), 2)
}

func TestPathValuesAreDecodedOnce(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	literal := insertedID(t, do(t, h, http.MethodPost, "/orders", `{"email":"a%41b@x.com"}`))
	decoded := insertedID(t, do(t, h, http.MethodPost, "/orders", `{"email":"aAb@x.com"}`))
	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"aAb@x.com","role":"admin"}`))

	for path, want := range map[string]string{
		"/orders/a%2541b@x.com": literal,
		"/orders/aAb@x.com":     decoded,
		"/orders/a%41b@x.com":   decoded,
	} {
		orders := do(t, h, http.MethodGet, path, "").array(t)
		require.Len(t, orders, 1, path)
		assert.Equal(t, want, orders[0].(map[string]any)["_id"], path)
	}

	res := do(t, h, http.MethodGet, "/users/a%2541b@x.com", "")
	assert.Equal(t, map[string]any{"admin": false}, res.object(t))
	res = do(t, h, http.MethodGet, "/users/aAb@x.com", "")
	assert.Equal(t, map[string]any{"admin": true}, res.object(t))
}

func TestShipAlwaysSetsShipped(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	id := insertedID(t, do(t, h, http.MethodPost, "/orders", `{"email":"a@b.com","status":"pending"}`))

	res := do(t, h, http.MethodPut, "/orders/"+id, `{"status":"cancelled"}`)
	require.Equal(t, http.StatusOK, res.code)
	ack := res.object(t)
	assert.Equal(t, float64(1), ack["matchedCount"])
	assert.Equal(t, float64(1), ack["modifiedCount"])

	orders := do(t, h, http.MethodGet, "/orders/a@b.com", "").array(t)
	require.Len(t, orders, 1)
	assert.Equal(t, "shipped", orders[0].(map[string]any)["status"])
}

func TestShipUnknownOrderMatchesNothing(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	res := do(t, h, http.MethodPut, "/orders/507f1f77bcf86cd799439011", "")
	require.Equal(t, http.StatusOK, res.code)
	ack := res.object(t)
	assert.Equal(t, float64(0), ack["matchedCount"])
	assert.Equal(t, float64(0), ack["upsertedCount"])
	assert.Empty(t, do(t, h, http.MethodGet, "/orders", "").array(t))
}

func TestOrderDeleteIsIdempotentInEffect(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	id := insertedID(t, do(t, h, http.MethodPost, "/orders", `{"email":"a@b.com"}`))

	first := do(t, h, http.MethodDelete, "/orders/"+id, "")
	assert.Equal(t, float64(1), first.object(t)["deletedCount"])

	second := do(t, h, http.MethodDelete, "/orders/"+id, "")
	require.Equal(t, http.StatusOK, second.code)
	assert.Equal(t, true, second.object(t)["acknowledged"])
	assert.Equal(t, float64(0), second.object(t)["deletedCount"])

	assert.Empty(t, do(t, h, http.MethodGet, "/orders", "").array(t))
}

func TestReviews(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	insertedID(t, do(t, h, http.MethodPost, "/review", `{"name":"Ann","rating":5,"comment":"fast"}`))
	list := do(t, h, http.MethodGet, "/review", "").array(t)
	require.Len(t, list, 1)
	assert.Equal(t, "fast", list[0].(map[string]any)["comment"])

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodDelete, "/review", "").code)
}

func TestAdminStatus(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"boss@hero.com","role":"admin"}`))
	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"ed@hero.com","role":"editor"}`))
	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"plain@hero.com"}`))

	for email, want := range map[string]bool{
		"boss@hero.com":  true,
		"ed@hero.com":    false,
		"plain@hero.com": false,
		"ghost@hero.com": false,
	} {
		res := do(t, h, http.MethodGet, "/users/"+email, "")
		require.Equal(t, http.StatusOK, res.code)
		assert.Equal(t, map[string]any{"admin": want}, res.object(t), email)
	}
}

func storedUsers(t *testing.T, store *repo.Store) []models.Document {
	t.Helper()
	docs, err := store.Users.Find(context.Background(), repo.All)
	require.NoError(t, err)
	return docs
}

func TestMakeAdminRequiresAdminCaller(t *testing.T) {
	store := repo.NewMemory()
	h := newTestRouter(t, store)
	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"boss@hero.com","role":"admin"}`))
	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"ed@hero.com","role":"editor"}`))
	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"x@y.com"}`))
	before := storedUsers(t, store)

	for name, header := range map[string][]string{
		"no header":     nil,
		"forged token":  {"Authorization", "Bearer forged"},
		"wrong scheme":  {"Authorization", "Basic admin-token"},
		"editor caller": {"Authorization", "Bearer editor-token"},
		"unknown user":  {"Authorization", "Bearer ghost-token"},
	} {
		res := do(t, h, http.MethodPut, "/users", `{"email":"x@y.com"}`, header...)
		assert.Equal(t, http.StatusForbidden, res.code, name)
		assert.Equal(t, map[string]any{"message": "forbidden access"}, res.object(t), name)
	}

	assert.Equal(t, before, storedUsers(t, store))
	assert.Equal(t, map[string]any{"admin": false}, do(t, h, http.MethodGet, "/users/x@y.com", "").object(t))
}

func TestMakeAdmin(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())
	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"boss@hero.com","role":"admin"}`))
	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"x@y.com","name":"X"}`))

	res := do(t, h, http.MethodPut, "/users", `{"email":"x@y.com"}`, "Authorization", "Bearer admin-token")
	require.Equal(t, http.StatusOK, res.code, res.body)
	ack := res.object(t)
	assert.Equal(t, float64(1), ack["matchedCount"])
	assert.Equal(t, float64(1), ack["modifiedCount"])
	assert.Equal(t, map[string]any{"admin": true}, do(t, h, http.MethodGet, "/users/x@y.com", "").object(t))

	// unknown emails are created with the admin role
	res = do(t, h, http.MethodPut, "/users", `{"email":"new@y.com"}`, "Authorization", "Bearer admin-token")
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, float64(1), res.object(t)["upsertedCount"])
	assert.Equal(t, map[string]any{"admin": true}, do(t, h, http.MethodGet, "/users/new@y.com", "").object(t))
}

func TestMakeAdminNeedsEmail(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())
	insertedID(t, do(t, h, http.MethodPost, "/users", `{"email":"boss@hero.com","role":"admin"}`))

	for _, body := range []string{`{}`, `{"email":42}`, `{"email":""}`} {
		res := do(t, h, http.MethodPut, "/users", body, "Authorization", "Bearer admin-token")
		assert.Equal(t, http.StatusBadRequest, res.code, body)
	}
}

func TestStorageFailureIsServerError(t *testing.T) {
	store := repo.NewMemory()
	store.Products = brokenCollection{}
	store.Users = brokenCollection{}
	h := newTestRouter(t, store)

	res := do(t, h, http.MethodGet, "/products", "")
	assert.Equal(t, http.StatusInternalServerError, res.code)
	assert.Equal(t, map[string]any{"message": "internal error"}, res.object(t))

	res = do(t, h, http.MethodGet, "/users/a@b.com", "")
	assert.Equal(t, http.StatusInternalServerError, res.code)

	res = do(t, h, http.MethodPut, "/users", `{"email":"a@b.com"}`, "Authorization", "Bearer admin-token")
	assert.Equal(t, http.StatusInternalServerError, res.code)
}

func TestPanicIsRecovered(t *testing.T) {
	store := repo.NewMemory()
	// the embedded nil Collection panics on InsertOne
	store.Orders = brokenCollection{}
	h := newTestRouter(t, store)

	res := do(t, h, http.MethodPost, "/orders", `{"email":"a@b.com"}`)
	assert.Equal(t, http.StatusInternalServerError, res.code)
}

func TestCORSAndRequestID(t *testing.T) {
	h := newTestRouter(t, repo.NewMemory())

	res := do(t, h, http.MethodGet, "/products", "", "Origin", "http://localhost:3000")
	assert.Equal(t, "*", res.header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, res.header.Get("X-Request-Id"))

	res = do(t, h, http.MethodGet, "/products", "", "X-Request-Id", "req-42")
	assert.Equal(t, "req-42", res.header.Get("X-Request-Id"))
}
