package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/clickmemory/go-snippet-server/apikeys"
	fakekeyrepo "github.com/clickmemory/go-snippet-server/apikeys/repofake"
	"github.com/clickmemory/go-snippet-server/csrf"
	fakecsrfrepo "github.com/clickmemory/go-snippet-server/csrf/repofake"
	"github.com/clickmemory/go-snippet-server/identity"
	"github.com/clickmemory/go-snippet-server/internal/config"
	"github.com/clickmemory/go-snippet-server/postgres"
	"github.com/clickmemory/go-snippet-server/server"
	"github.com/clickmemory/go-snippet-server/snippets"
	fakesnippetrepo "github.com/clickmemory/go-snippet-server/snippets/repofake"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, cleanup, err := buildDeps(ctx, c)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := server.New(c, deps)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	cancel() // stops the csrf sweeper
	returnError = shutdown(httpServer)
	return returnError
}

// buildDeps wires the services onto Postgres when DATABASE_URL is set, and
// onto in-memory stores otherwise. The in-memory mode loses tokens, keys and
// snippets on restart and exists for local development.
func buildDeps(ctx context.Context, c config.Config) (server.Deps, func(), error) {
	provider, err := buildProvider(ctx, c)
	if err != nil {
		return server.Deps{}, nil, err
	}

	verifier, err := identity.NewVerifier(provider)
	if err != nil {
		return server.Deps{}, nil, fmt.Errorf("identity.NewVerifier: %w", err)
	}

	var (
		csrfRepo    csrf.Repo
		keyRepo     apikeys.Repo
		snippetRepo snippets.Repo
		store       server.Pinger
		cleanup     = func() {}
	)

	if databaseURL := c.GetDatabaseURL(); databaseURL != "" {
		if err := postgres.Migrate(databaseURL); err != nil {
			return server.Deps{}, nil, fmt.Errorf("postgres.Migrate: %w", err)
		}
		pool, err := postgres.Connect(ctx, databaseURL)
		if err != nil {
			return server.Deps{}, nil, fmt.Errorf("postgres.Connect: %w", err)
		}
		csrfRepo = postgres.NewCSRFTokenRepo(pool)
		keyRepo = postgres.NewAPIKeyRepo(pool)
		snippetRepo = postgres.NewSnippetRepo(pool)
		store = pool
		cleanup = pool.Close
	} else {
		log.Printf("DATABASE_URL not set, using in-memory stores\n")
		csrfRepo = fakecsrfrepo.NewFakeTokenRepo()
		keyRepo = fakekeyrepo.NewFakeKeyRepo()
		snippetRepo = fakesnippetrepo.NewFakeSnippetRepo()
	}

	csrfManager, err := csrf.NewManager(csrfRepo)
	if err != nil {
		cleanup()
		return server.Deps{}, nil, fmt.Errorf("csrf.NewManager: %w", err)
	}
	csrfManager.StartSweeper(ctx, csrf.DefaultSweepInterval)

	keyManager, err := apikeys.NewManager(keyRepo)
	if err != nil {
		cleanup()
		return server.Deps{}, nil, fmt.Errorf("apikeys.NewManager: %w", err)
	}

	snippetService, err := snippets.NewService(snippetRepo)
	if err != nil {
		cleanup()
		return server.Deps{}, nil, fmt.Errorf("snippets.NewService: %w", err)
	}

	return server.Deps{
		Verifier: verifier,
		CSRF:     csrfManager,
		Keys:     keyManager,
		Snippets: snippetService,
		Store:    store,
	}, cleanup, nil
}

// buildProvider picks the identity resolution mode from configuration:
// OIDC discovery when an issuer is set, local HS256 verification when a JWT
// secret is set, otherwise the hosted provider's REST endpoint.
func buildProvider(ctx context.Context, c config.Config) (identity.Provider, error) {
	if issuer := c.GetOIDCIssuer(); issuer != "" {
		provider, err := identity.NewOIDCProvider(ctx, issuer, "")
		if err != nil {
			return nil, fmt.Errorf("identity.NewOIDCProvider: %w", err)
		}
		return provider, nil
	}

	if secret := c.GetIdentityJWTSecret(); secret != "" {
		provider, err := identity.NewJWTProvider(secret)
		if err != nil {
			return nil, fmt.Errorf("identity.NewJWTProvider: %w", err)
		}
		return provider, nil
	}

	if baseURL := c.GetIdentityProviderURL(); baseURL != "" {
		provider, err := identity.NewRESTProvider(baseURL, c.GetIdentityServiceKey())
		if err != nil {
			return nil, fmt.Errorf("identity.NewRESTProvider: %w", err)
		}
		return provider, nil
	}

	return nil, errors.New("no identity provider configured: set OIDC_ISSUER, IDENTITY_JWT_SECRET or IDENTITY_PROVIDER_URL")
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
