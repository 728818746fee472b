package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/brainshare/backend/internal/access"
	"github.com/brainshare/backend/internal/config"
	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/handlers"
	"github.com/brainshare/backend/internal/middleware"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/services"
	"github.com/brainshare/backend/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := core.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)
	logger.Info("starting BrainShare API", "environment", cfg.App.Environment, "address", cfg.Server.Address)

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	for _, u := range []struct{ collection, field string }{
		{string(query.Users), "email"},
		{string(query.Tags), "name"},
		{string(query.Payments), "transaction_id"},
	} {
		if err := store.EnsureUnique(ctx, u.collection, u.field); err != nil {
			return err
		}
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		var rdb *core.Redis
		if cfg.Redis.URL != "" {
			rdb, err = core.NewRedis(ctx, cfg.Redis)
			if err != nil {
				logger.Warn("redis unavailable, rate limiting per process", "error", err)
			} else {
				defer rdb.Close()
			}
		}
		if rdb != nil {
			rateLimiter = middleware.NewRateLimiter(rdb.Client, cfg.RateLimit)
		} else {
			rateLimiter = middleware.NewRateLimiter(nil, cfg.RateLimit)
		}
	}

	var idTokens access.IDTokenVerifier
	if cfg.Firebase.ProjectID != "" {
		verifier, err := access.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			return err
		}
		idTokens = verifier
	} else {
		logger.Warn("FIREBASE_PROJECT_ID not set, ID-token login disabled")
	}

	var payments services.PaymentProvider = unconfiguredProvider{}
	if cfg.Stripe.SecretKey != "" {
		payments = services.NewStripeProvider(cfg.Stripe.SecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payment intents disabled")
	}

	engine := query.NewEngine(store)
	tokens := access.NewJWTManager(cfg.Auth)
	guard := access.NewGuard(tokens, access.NewUserRoles(engine))

	userService := services.NewUserService(engine)
	postService := services.NewPostService(engine, cfg.Membership.BronzePostLimit)
	commentService := services.NewCommentService(engine)
	catalogService := services.NewCatalogService(engine)
	paymentService := services.NewPaymentService(engine, payments, cfg.Stripe.Currency)
	authService := services.NewAuthService(tokens, idTokens, cfg.Auth.AllowUnverifiedLogin)

	timeout := cfg.Server.RequestTimeout
	router := &handlers.Router{
		Guard:       guard,
		Pinger:      store,
		RateLimiter: rateLimiter,
		Logger:      logger,
		Auth:        handlers.NewAuthHandler(authService, cfg.Auth.CookieName, cfg.IsProduction(), timeout),
		Users:       handlers.NewUserHandler(userService, timeout),
		Posts:       handlers.NewPostHandler(postService, commentService, timeout),
		Comments:    handlers.NewCommentHandler(commentService, timeout),
		Catalog:     handlers.NewCatalogHandler(catalogService, timeout),
		Payments:    handlers.NewPaymentHandler(paymentService, timeout),
		Admin:       handlers.NewAdminHandler(userService, commentService, catalogService, services.NewAdminService(engine), timeout),
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.Handler(cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", srv.Addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

type unconfiguredProvider struct{}

func (unconfiguredProvider) CreateIntent(context.Context, int64, string, string) (string, error) {
	return "", core.Unavailable(errors.New("payment provider not configured"))
}
