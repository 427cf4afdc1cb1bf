package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TCH93/Indico-Dev/internal/auth"
	"github.com/TCH93/Indico-Dev/internal/cache"
	"github.com/TCH93/Indico-Dev/internal/client"
	"github.com/TCH93/Indico-Dev/internal/config"
	"github.com/TCH93/Indico-Dev/internal/core"
	"github.com/TCH93/Indico-Dev/internal/handlers"
	"github.com/TCH93/Indico-Dev/internal/metrics"
	"github.com/TCH93/Indico-Dev/internal/middleware"
	"github.com/TCH93/Indico-Dev/internal/models"
	"github.com/TCH93/Indico-Dev/internal/sso"
	"github.com/TCH93/Indico-Dev/internal/store"
	"github.com/TCH93/Indico-Dev/internal/token"
	"github.com/TCH93/Indico-Dev/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("Pluggable multi-backend authentication server")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the authentication server")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.DefaultAdminPassword)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	// Build one registry per configured backend, in sign-in order.
	registries, err := buildRegistries(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize authentication backends: %v", err)
	}
	manager := auth.NewManager(registries...)
	log.Printf("Authentication backends: %v", manager.IDs())

	// The SSO reconciler is bound to the first SSO-active backend.
	var reconciler *sso.Reconciler
	var ssoBackendID string
	for _, r := range registries {
		if r.Backend().SupportsSSOLogin() {
			reconciler = sso.NewReconciler(r, db, cfg, prometheusMetrics)
			ssoBackendID = r.ID()
			log.Printf("SSO login active on backend %s", ssoBackendID)
			break
		}
	}

	userCache, err := buildUserCache(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	tokens := token.NewLocalProvider(cfg)

	authHandler := handlers.NewAuthHandler(manager, tokens, prometheusMetrics)
	userHandler := handlers.NewUserHandler(manager, userCache, cfg.CacheTTL)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	login := r.Group("/")
	if cfg.RateLimitEnabled {
		limiter, err := middleware.NewMemoryRateLimiter(cfg.RateLimitPerMinute)
		if err != nil {
			log.Fatalf("Failed to initialize rate limiter: %v", err)
		}
		login.Use(limiter)
	}
	login.POST("/login", authHandler.Login)

	if reconciler != nil {
		ssoHandler := handlers.NewSSOHandler(reconciler, ssoBackendID, tokens)
		r.GET("/sso/login", ssoHandler.Login)
		r.GET("/sso/logout", ssoHandler.Logout)
	}

	r.GET("/users/:backend/:login", userHandler.GetByLogin)

	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	m := graceful.NewManager()
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			log.Printf("Listening on %s", cfg.ServerAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}
		return nil
	})
	m.AddShutdownJob(func() error {
		return userCache.Close()
	})

	<-m.Done()
}

// buildRegistries constructs the configured backends and wraps each in its
// registry.
func buildRegistries(cfg *config.Config, db *store.Store) ([]*auth.Registry, error) {
	var registries []*auth.Registry
	for _, id := range cfg.AuthBackends {
		var backend core.Authenticator
		switch id {
		case auth.BackendLocal:
			backend = auth.NewLocalBackend(db, cfg)
		case auth.BackendHTTPDir:
			retryClient, err := client.CreateRetryClient(
				cfg.HTTPDirAuthMode,
				cfg.HTTPDirAuthSecret,
				cfg.HTTPDirTimeout,
				cfg.HTTPDirInsecureSkipVerify,
				cfg.HTTPDirMaxRetries,
				cfg.HTTPDirRetryDelay,
				cfg.HTTPDirAuthHeader,
			)
			if err != nil {
				return nil, err
			}
			backend = auth.NewHTTPDirBackend(cfg, retryClient)
		default:
			return nil, fmt.Errorf("unknown authentication backend: %s", id)
		}
		registries = append(registries, auth.NewRegistry(backend, db))
	}
	return registries, nil
}

// buildUserCache selects the cache backend for trusted user lookups.
func buildUserCache(cfg *config.Config) (core.Cache[models.User], error) {
	if cfg.CacheType == config.CacheTypeRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cache.NewRueidisCache[models.User](
			ctx,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			"auth:",
		)
	}
	return cache.NewMemoryCache[models.User](), nil
}
