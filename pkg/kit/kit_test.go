package kit_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

func TestIPRateLimiter_PerClient(t *testing.T) {
	l := kit.NewIPRateLimiter(2, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(xff string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/cart/1", nil)
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1, 192.168.0.1").Code)

	rec := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, call("10.0.0.2").Code)
}

func TestMetricsAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	cases := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"no token configured", "", "Bearer x", http.StatusForbidden},
		{"missing header", "s3cret", "", http.StatusForbidden},
		{"wrong scheme", "s3cret", "Basic s3cret", http.StatusForbidden},
		{"wrong token", "s3cret", "Bearer nope", http.StatusForbidden},
		{"match", "s3cret", "Bearer s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			kit.MetricsAuth(tc.token)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Query string `json:"query"`
	}

	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"ok", `{"query":"lamp"}`, false},
		{"unknown field", `{"q":"lamp"}`, true},
		{"trailing data", `{"query":"a"}{"query":"b"}`, true},
		{"truncated", `{"query":`, true},
		{"too large", `{"query":"` + strings.Repeat("x", 64) + `"}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/search", strings.NewReader(tc.in))
			var v body
			err := kit.DecodeJSON(httptest.NewRecorder(), req, 32, &v)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "lamp", v.Query)
		})
	}
}

func TestNewRouter_LabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := kit.NewRouter(kit.HTTPDeps{
		Log:            zap.NewNop(),
		Service:        "test",
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   "tok",
	})
	r.Get("/cart/{id}", func(w http.ResponseWriter, r *http.Request) {
		kit.WriteJSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	n, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "three ids share one series; the panic is never counted")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer tok")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/cart/{id}"`)
}

func TestNewRouter_MetricsDisabled(t *testing.T) {
	r := kit.NewRouter(kit.HTTPDeps{Log: zap.NewNop(), Registry: prometheus.NewRegistry()})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteError_CarriesRequestID(t *testing.T) {
	r := kit.NewRouter(kit.HTTPDeps{Log: zap.NewNop()})
	r.Get("/x", func(w http.ResponseWriter, r *http.Request) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": 7})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"error":"not found"`)
	assert.Contains(t, rec.Body.String(), `"request_id":"`)
}

func TestCoreMetrics_NilIsNoop(t *testing.T) {
	var m *kit.CoreMetrics
	assert.NotPanics(t, func() {
		m.CatalogLoad(kit.ResultOK)
		m.SearchSettled()
		m.CartMutation("add")
		m.CartWrite(kit.ResultError)
	})

	m = kit.NewCoreMetrics(prometheus.NewRegistry())
	m.CartWrite(kit.ResultSkipped)
	m.CartWrite(kit.ResultSkipped)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CartPersisting.WithLabelValues(kit.ResultSkipped)))
}
