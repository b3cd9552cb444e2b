package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/pkg/kit"
)

func newCatalogTS(t *testing.T, store catalog.Store) *httptest.Server {
	t.Helper()

	s := &catalog.Server{Store: store}
	h := catalog.NewHandler(s, kit.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "catalog",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTPSource_FetchesFromCatalogService(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewStore())

	got, err := catalog.NewHTTPSource(ts.URL + "/").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(catalog.SeedProducts()))

	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, "electronics", got[0].Category)
	assert.Equal(t, 320, got[0].Rating.Count)
}

func TestHTTPSource_EmptyArrayIsValid(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewMemStore())

	got, err := catalog.NewHTTPSource(ts.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHTTPSource_ErrorKinds(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    catalog.ErrorKind
	}{
		{
			name:    "bad status",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			want:    catalog.KindBadStatus,
		},
		{
			name:    "empty body",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
			want:    catalog.KindEmptyPayload,
		},
		{
			name:    "null body",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("null\n")) },
			want:    catalog.KindEmptyPayload,
		},
		{
			name:    "garbage body",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("<html>")) },
			want:    catalog.KindEmptyPayload,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(tc.handler)
			defer ts.Close()

			_, err := catalog.NewHTTPSource(ts.URL).Fetch(context.Background())
			require.Error(t, err)
			assert.Equal(t, tc.want, catalog.KindOf(err))
		})
	}
}

func TestHTTPSource_BadStatusCarriesCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := catalog.NewHTTPSource(ts.URL).Fetch(context.Background())
	require.ErrorIs(t, err, catalog.ErrBadStatus)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPSource_Transport(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := catalog.NewHTTPSource(url).Fetch(context.Background())
	require.ErrorIs(t, err, catalog.ErrTransport)
}

func TestCatalogServer_GetProduct(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewStore())

	resp, err := http.Get(ts.URL + "/products/3")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p catalog.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "books", p.Category)

	for path, want := range map[string]int{
		"/products/999": http.StatusNotFound,
		"/products/abc": http.StatusBadRequest,
		"/healthz":      http.StatusOK,
		"/readyz":       http.StatusOK,
	} {
		r, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, want, r.StatusCode, path)
	}
}
