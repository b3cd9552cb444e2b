package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrorKind classifies why a catalog load failed.
type ErrorKind string

const (
	KindTransport    ErrorKind = "transport"
	KindBadStatus    ErrorKind = "badStatus"
	KindEmptyPayload ErrorKind = "emptyPayload"
)

var (
	ErrTransport    = errors.New("catalog unreachable")
	ErrBadStatus    = errors.New("catalog bad status")
	ErrEmptyPayload = errors.New("catalog returned no products")
)

// LoadError is the failure of one load attempt.
type LoadError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *LoadError) Error() string {
	var msg string
	switch e.Kind {
	case KindTransport:
		msg = "could not reach the product catalog"
	case KindBadStatus:
		msg = fmt.Sprintf("product catalog answered with status %d", e.StatusCode)
	case KindEmptyPayload:
		msg = "there are no products to show"
	default:
		msg = "catalog load failed"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches the kind sentinels, so errors.Is(err, ErrBadStatus) works on any
// wrapped *LoadError.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrBadStatus:
		return e.Kind == KindBadStatus
	case ErrEmptyPayload:
		return e.Kind == KindEmptyPayload
	}
	return false
}

// KindOf returns the kind of a load error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// Source yields the whole catalog in one call.
type Source interface {
	Fetch(ctx context.Context) ([]Product, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Product, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]Product, error) { return f(ctx) }

const maxCatalogBody = 16 << 20

// HTTPSource fetches GET {BaseURL}/products.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &HTTPSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/products", nil)
	if err != nil {
		return nil, &LoadError{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, &LoadError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &LoadError{Kind: KindBadStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBody))
	if err != nil {
		return nil, &LoadError{Kind: KindTransport, Err: err}
	}
	return decodeProducts(body)
}

func decodeProducts(body []byte) ([]Product, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, &LoadError{Kind: KindEmptyPayload}
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, &LoadError{Kind: KindEmptyPayload, Err: err}
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}
