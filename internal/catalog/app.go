package catalog

import (
	"net/http"

	"Storefront/pkg/kit"
)

// NewHandler mounts the catalog routes behind the shared middleware stack.
func NewHandler(s *Server, deps kit.HTTPDeps) http.Handler {
	if s.Log == nil {
		s.Log = deps.Log
	}

	r := kit.NewRouter(deps)
	r.Mount("/", s.Routes())
	return r
}
