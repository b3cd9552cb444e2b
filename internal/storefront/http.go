package storefront

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/internal/kv"
	"Storefront/pkg/kit"
)

const maxBody = 4 << 10

// Server exposes a Facade over JSON for a presentation layer running in
// another process.
type Server struct {
	Facade *Facade
	KV     kv.Store
	Log    *zap.Logger

	// CartLimiter, when set, guards the cart mutation routes.
	CartLimiter *kit.IPRateLimiter
}

type stateResp struct {
	Loading          bool     `json:"loading"`
	Error            string   `json:"error,omitempty"`
	ErrorKind        string   `json:"error_kind,omitempty"`
	Categories       []string `json:"categories"`
	SelectedCategory string   `json:"selected_category"`
	SearchText       string   `json:"search_text"`
	SettledQuery     string   `json:"settled_query"`
	SearchStatus     string   `json:"search_status"`
	CartCount        int      `json:"cart_count"`
}

type productsResp struct {
	SearchStatus string            `json:"search_status"`
	Products     []catalog.Product `json:"products"`
}

type cartResp struct {
	Count int   `json:"count"`
	IDs   []int `json:"ids"`
}

type categoryReq struct {
	Category string `json:"category"`
}

type searchReq struct {
	Query string `json:"query"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Get("/state", s.state)
	r.Get("/categories", s.categories)
	r.Get("/products", s.displayed)
	r.Get("/products/visible", s.visible)
	r.Get("/products/search", s.searchResults)

	r.Post("/category", s.selectCategory)
	r.Put("/search", s.updateSearch)

	r.Route("/cart", func(cr chi.Router) {
		cr.Get("/", s.cart)
		cr.Get("/{id}", s.inCart)
		cr.Group(func(mr chi.Router) {
			if s.CartLimiter != nil {
				mr.Use(s.CartLimiter.Middleware)
			}
			mr.Post("/{id}", s.addToCart)
			mr.Delete("/{id}", s.removeFromCart)
		})
	})

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if err := s.Facade.Err(); err != nil {
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable",
			map[string]any{"kind": string(catalog.KindOf(err))})
		return
	}
	if s.Facade.IsLoading() {
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog loading", nil)
		return
	}

	if p, ok := s.KV.(kv.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	f := s.Facade
	resp := stateResp{
		Loading:          f.IsLoading(),
		Categories:       f.Categories(),
		SelectedCategory: f.SelectedCategory(),
		SearchText:       f.SearchText(),
		SettledQuery:     f.SettledQuery(),
		SearchStatus:     f.SearchStatus().String(),
		CartCount:        f.CartCount(),
	}
	if err := f.Err(); err != nil {
		resp.Error = err.Error()
		resp.ErrorKind = string(catalog.KindOf(err))
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) categories(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Facade.Categories())
}

func (s *Server) displayed(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, productsResp{
		SearchStatus: s.Facade.SearchStatus().String(),
		Products:     s.Facade.Displayed(),
	})
}

func (s *Server) visible(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Facade.VisibleProducts())
}

func (s *Server) searchResults(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, productsResp{
		SearchStatus: s.Facade.SearchStatus().String(),
		Products:     s.Facade.SearchResults(),
	})
}

func (s *Server) selectCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := kit.DecodeJSON(w, r, maxBody, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	selected := s.Facade.SelectCategory(req.Category)
	kit.WriteJSON(w, http.StatusOK, categoryReq{Category: selected})
}

func (s *Server) updateSearch(w http.ResponseWriter, r *http.Request) {
	var req searchReq
	if err := kit.DecodeJSON(w, r, maxBody, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	s.Facade.UpdateSearchQuery(req.Query)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) cart(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, cartResp{Count: s.Facade.CartCount(), IDs: s.Facade.CartIDs()})
}

func (s *Server) inCart(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if !s.Facade.InCart(id) {
		kit.WriteError(w, r, http.StatusNotFound, "not in cart", map[string]any{"id": id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	s.Facade.AddToCart(id)
	s.cart(w, r)
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	s.Facade.RemoveFromCart(id)
	s.cart(w, r)
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}
