package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/signpay/checkout"
	"github.com/mstgnz/signpay/handler"
	"github.com/mstgnz/signpay/infra/auth"
	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/middle"
	"github.com/mstgnz/signpay/infra/opensearch"
	"github.com/mstgnz/signpay/infra/response"
	"github.com/mstgnz/signpay/infra/validate"
	"github.com/mstgnz/signpay/provider"
	"github.com/mstgnz/signpay/router"
	v1 "github.com/mstgnz/signpay/router/v1"
	"github.com/mstgnz/signpay/session"
)

var (
	osClient         *opensearch.Client
	openSearchLogger *opensearch.Logger
)

func init() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	// init conf
	_ = config.App()
	validate.CustomValidate()

	// Initialize OpenSearch client and logger
	cfg := config.GetAppConfig()
	if cfg.EnableLogging {
		client, err := opensearch.NewClient(cfg)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch logging...")
		} else {
			osClient = client
			openSearchLogger = opensearch.NewLogger(client)
			log.Println("OpenSearch logging initialized successfully")
		}
	} else {
		log.Println("OpenSearch logging is disabled")
	}

	logger.InitGlobalLogger(openSearchLogger)
}

func main() {
	cfg := config.GetAppConfig()

	sessions, err := openSessionStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open session store", err, logger.LogContext{
			Fields: map[string]any{"backend": cfg.SessionBackend},
		})
	}
	defer sessions.Close()

	methods := config.NewMethodConfig()
	if err := methods.LoadFromEnv(); err != nil {
		logger.Fatal("Invalid payment method configuration", err)
	}

	orders := checkout.NewMemoryStore()
	if path := config.GetEnv("ORDER_FIXTURES_PATH", ""); path != "" {
		if err := orders.LoadFixtures(path); err != nil {
			logger.Fatal("Failed to load order fixtures", err, logger.LogContext{
				Fields: map[string]any{"path": path},
			})
		}
	}

	client, err := provider.InitializeProvider(cfg.Provider, cfg.ProviderSettings())
	if err != nil {
		logger.Fatal("Failed to initialize payment provider", err, logger.LogContext{Provider: cfg.Provider})
	}
	logger.Info("Payment provider initialized", logger.LogContext{Provider: cfg.Provider})

	// nil interfaces when OpenSearch is off; a typed nil would be called
	var (
		events   checkout.EventSink
		searcher handler.EventSearcher
		pinger   handler.SearchPinger
	)
	if openSearchLogger != nil {
		events = openSearchLogger
		searcher = openSearchLogger
		pinger = osClient
	}

	redirector := checkout.NewRedirector(cfg.BaseURL)
	services := handler.CheckoutServices{
		Identity: checkout.NewIdentityService(methods, cfg.DefaultCountry),
		Address:  checkout.NewAddressService(client, cfg.DefaultCountry),
		Authorizer: checkout.NewOrchestrator(orders, orders, client, methods, checkout.AssemblerSettings{
			BaseURL:     cfg.BaseURL,
			UnitMeasure: cfg.UnitMeasure,
			RiskFlags: provider.RiskFlags{
				WaitForFraudControl: cfg.WaitForFraudControl,
				AnnulIfFrozen:       cfg.AnnulIfFrozen,
				FinalizeIfBooked:    cfg.FinalizeIfBooked,
			},
		}, events, cfg.Provider),
		Redirector: redirector,
		Reconciler: checkout.NewReconciler(orders, client, cfg.RejectStatuses, events, cfg.Provider),
		Failures:   checkout.NewFailureService(orders, orders, redirector, events),
	}

	idle := time.Duration(cfg.SessionIdleHours) * time.Hour
	tokens := auth.NewJWTService()
	addressLimiter := middle.NewRateLimiter()
	defer addressLimiter.Stop()

	api := v1.Handlers{
		Checkout:       handler.NewCheckoutHandler(services, sessions, cfg.SessionPrefix, cfg.BaseURL, config.App().Validator),
		Events:         handler.NewEventsHandler(searcher),
		Auth:           handler.NewAuthHandler(tokens, config.App().Validator),
		Tokens:         tokens,
		BackOfficeIPs:  config.GetListEnv("IP_WHITELIST", nil),
		Session:        middle.SessionMiddleware(cfg.SessionCookie, strings.HasPrefix(cfg.BaseURL, "https://"), idle),
		AddressLimiter: addressLimiter,
	}

	// Chi Define Routes
	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middle.PanicRecoveryMiddleware(cfg.BaseURL + "/"))
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))

	// Security Middleware
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.RequestValidationMiddleware())

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(config.GetEnv("CORS_ALLOWED_ORIGINS", cfg.BaseURL), ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300, // Preflight cache time (second)
	}))

	health := handler.NewHealthHandler(sessions, pinger, cfg.Provider)
	if cfg.SessionBackend == "sqlite" {
		health.WithDiskPath(filepath.Dir(cfg.SessionPath))
	}
	router.Routes(r, health, api)

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = response.WriteJSON(w, http.StatusNotFound, response.Response{Code: http.StatusNotFound, Success: false, Message: "Not Found"})
	})

	// Create a context that listens for interrupt and terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeIdleSessions(ctx, sessions, idle)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	// Run your HTTP server in a goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info("API is running", logger.LogContext{Fields: map[string]any{"port": cfg.Port}})

	// Block until a signal is received
	<-ctx.Done()

	logger.Info("Shutting down gracefully...", logger.LogContext{Fields: map[string]any{"port": cfg.Port}})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
}

// openSessionStore opens the checkout session backend selected by SESSION_BACKEND
func openSessionStore(cfg *config.AppConfig) (session.Store, error) {
	switch cfg.SessionBackend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "sqlite":
		store, err := session.NewSQLiteStore(cfg.SessionPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

// purgeIdleSessions drops abandoned checkout sessions until ctx is done
func purgeIdleSessions(ctx context.Context, store session.Store, idle time.Duration) {
	if idle <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := store.PurgeIdle(idle)
			if err != nil {
				logger.Error("Failed to purge idle checkout sessions", err)
				continue
			}
			if purged > 0 {
				logger.Info("Purged idle checkout sessions", logger.LogContext{
					Fields: map[string]any{"count": purged},
				})
			}
		}
	}
}
