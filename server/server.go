// Package server exposes the snippet service over HTTP: the dashboard API
// (bearer identity + CSRF guarded) and the extension API (key authenticated).
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/clickmemory/go-snippet-server/apikeys"
	"github.com/clickmemory/go-snippet-server/auth"
	"github.com/clickmemory/go-snippet-server/internal/config"
	"github.com/clickmemory/go-snippet-server/snippets"
)

// CSRFManager issues and consumes single-use anti-forgery tokens.
type CSRFManager interface {
	Issue(ctx context.Context, userID string) (string, error)
	Validate(ctx context.Context, userID, candidate string) bool
}

// Pinger reports whether the backing store is reachable. Nil when the server
// runs on in-memory stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP surface is wired onto.
type Deps struct {
	Verifier auth.IdentityVerifier
	CSRF     CSRFManager
	Keys     *apikeys.Manager
	Snippets *snippets.Service
	Store    Pinger
}

type Server struct {
	env        string
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	deps       Deps
	guard      *auth.RequestValidator
	keyGenRate *rateLimiter
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Verifier == nil || deps.CSRF == nil {
		return nil, fmt.Errorf("[Server New] identity verifier and csrf manager are required")
	}
	if deps.Keys == nil || deps.Snippets == nil {
		return nil, fmt.Errorf("[Server New] key manager and snippet service are required")
	}

	guard, err := auth.NewRequestValidator(deps.Verifier, deps.CSRF)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create request validator: %w", err)
	}

	s := &Server{
		mux:        http.NewServeMux(),
		config:     config,
		deps:       deps,
		guard:      guard,
		keyGenRate: newRateLimiter(keyGenRateLimit, keyGenRateWindow),
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
