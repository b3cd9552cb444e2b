package storefront

import (
	"net/http"

	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

// NewHandler mounts the storefront routes behind the shared middleware stack.
func NewHandler(s *Server, deps kit.HTTPDeps) http.Handler {
	if s.Log == nil {
		s.Log = deps.Log
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}

	r := kit.NewRouter(deps)
	r.Mount("/", s.Routes())
	return r
}
