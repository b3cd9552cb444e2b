//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

type product struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type productsResp struct {
	SearchStatus string    `json:"search_status"`
	Products     []product `json:"products"`
}

type cartResp struct {
	Count int   `json:"count"`
	IDs   []int `json:"ids"`
}

func TestSystem_E2E_BrowseSearchCart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var categories []string
	doJSON(t, http.MethodGet, baseURL+"/categories", nil, &categories, 200)
	if len(categories) == 0 {
		t.Fatalf("expected categories")
	}
	category := categories[0]

	var selected struct {
		Category string `json:"category"`
	}
	doJSON(t, http.MethodPost, baseURL+"/category", map[string]any{"category": category}, &selected, 200)
	if selected.Category != category {
		// the category was already selected and toggled off; select again
		doJSON(t, http.MethodPost, baseURL+"/category", map[string]any{"category": category}, &selected, 200)
	}

	var visible []product
	doJSON(t, http.MethodGet, baseURL+"/products/visible", nil, &visible, 200)
	if len(visible) == 0 {
		t.Fatalf("expected products in %q", category)
	}
	for _, p := range visible {
		if p.Category != category {
			t.Fatalf("product %d has category %q, want %q", p.ID, p.Category, category)
		}
	}

	query := firstWord(visible[0].Title)
	doJSON(t, http.MethodPut, baseURL+"/search", map[string]any{"query": query}, nil, 202)

	results := waitSearch(t, ctx, query)
	for _, p := range results.Products {
		if !strings.Contains(strings.ToLower(p.Title+" "+p.Description), strings.ToLower(query)) {
			t.Fatalf("product %d does not match %q", p.ID, query)
		}
	}

	pid := visible[0].ID
	var cart cartResp
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/cart/%d", baseURL, pid), nil, &cart, 200)
	if !containsID(cart.IDs, pid) {
		t.Fatalf("cart %v missing %d", cart.IDs, pid)
	}

	if os.Getenv("E2E_RESTART_STOREFRONT") == "1" {
		// give the delayed write time to land before the restart
		time.Sleep(time.Second)
		restartService(t, ctx, "storefront")
		waitReady(t, ctx, baseURL+"/readyz")

		doJSON(t, http.MethodGet, baseURL+"/cart", nil, &cart, 200)
		if !containsID(cart.IDs, pid) {
			t.Fatalf("cart %v lost %d across restart", cart.IDs, pid)
		}
	}

	doJSON(t, http.MethodDelete, fmt.Sprintf("%s/cart/%d", baseURL, pid), nil, &cart, 200)
	if containsID(cart.IDs, pid) {
		t.Fatalf("cart %v still has %d", cart.IDs, pid)
	}
}

func waitSearch(t *testing.T, ctx context.Context, query string) productsResp {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		var st struct {
			SettledQuery string `json:"settled_query"`
		}
		doJSON(t, http.MethodGet, baseURL+"/state", nil, &st, 200)
		if st.SettledQuery == query {
			var res productsResp
			doJSON(t, http.MethodGet, baseURL+"/products/search", nil, &res, 200)
			return res
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("search %q never settled", query)
	return productsResp{}
}

func firstWord(s string) string {
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) >= 3 {
			return w
		}
	}
	return s
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
