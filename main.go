package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/mama165/sdk-go/logs"

	"guestbookAPI/handlers"
	"guestbookAPI/internal/config"
	"guestbookAPI/internal/entrystore"
	"guestbookAPI/internal/profanity"
	"guestbookAPI/internal/rulesprobe"
	"guestbookAPI/middleware"
	"guestbookAPI/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component, serves until SIGINT/SIGTERM and returns the
// first fatal error so deferred cleanup always runs.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.ClerkSecretKey == "" {
		log.Warn("CLERK_SECRET_KEY is not set, every moderation request will be rejected")
	} else {
		clerk.SetKey(cfg.ClerkSecretKey)
		log.Info("Clerk initialized successfully")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := entrystore.NewFirestoreClient(initCtx, entrystore.Credentials{
		ProjectID:   cfg.FirebaseProjectID,
		EncodedJSON: cfg.FirebaseCredentialsJSON,
		File:        cfg.FirebaseCredentialsFile,
	}, log)
	cancel()
	if err != nil {
		return fmt.Errorf("firestore init failed: %w", err)
	}
	defer func() {
		log.Info("Closing Firestore client...")
		_ = client.Close()
	}()
	store := entrystore.NewStore(client, cfg.Collection, log)

	filter, err := resolveFilter(cfg, log)
	if err != nil {
		return err
	}

	guestbookService := services.NewGuestbookService(store, filter, cfg.ListingLimit, log)
	moderationService := services.NewModerationService(store, newProber(ctx, cfg, log), log)

	hub := services.NewLiveHub(store, cfg.ListingLimit, log)
	go hub.Run()
	defer hub.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.CleanupVisitors(ctx)

	middleware.InitPrometheus(hub.Clients)

	router := newRouter(routerDeps{
		guestbook:    handlers.NewGuestbookHandler(guestbookService, hub, log, cfg.RequestTimeout),
		moderation:   handlers.NewModerationHandler(moderationService, log, cfg.RequestTimeout),
		limiter:      limiter,
		moderatorIDs: cfg.Moderators(),
		metricsUser:  cfg.MetricsUser,
		metricsPass:  cfg.MetricsPass,
		pprofSecret:  cfg.PprofSecret,
	})

	server := http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", "error", err)
	}
	log.Info("Server shutdown complete")
	return nil
}

// resolveFilter loads the denylist once. A broken list is fatal only when the
// filter is required; otherwise the server runs with filtering disabled and
// says so on /health.
func resolveFilter(cfg config.Config, log *slog.Logger) (*profanity.Filter, error) {
	replacement, err := cfg.Replacement()
	if err != nil {
		return nil, err
	}

	var filter *profanity.Filter
	if cfg.ProfanityDenylist != "" {
		filter, err = profanity.Load(cfg.ProfanityDenylist)
	} else {
		filter, err = profanity.Default()
	}
	if err != nil {
		if cfg.ProfanityRequired {
			return nil, fmt.Errorf("profanity filter required but unavailable: %w", err)
		}
		log.Warn("Profanity filter unavailable, submissions will not be filtered", "error", err)
		return profanity.Disabled(), nil
	}

	log.Info("Profanity filter loaded", "terms", filter.Terms())
	return filter.WithReplacement(replacement), nil
}

// newProber returns nil when the probe cannot be built; the probe endpoint
// then answers 503 instead of failing start-up.
func newProber(ctx context.Context, cfg config.Config, log *slog.Logger) services.RulesProber {
	endpoint := cfg.FirestoreRESTEndpoint
	if endpoint == "" && cfg.FirestoreEmulatorHost != "" {
		endpoint = "http://" + cfg.FirestoreEmulatorHost + "/"
	}

	probe, err := rulesprobe.New(ctx, rulesprobe.Config{
		ProjectID:  cfg.FirebaseProjectID,
		Collection: cfg.Collection,
		APIKey:     cfg.FirebaseWebAPIKey,
		Endpoint:   endpoint,
	}, log)
	if err != nil {
		log.Warn("Rules probe disabled", "error", err)
		return nil
	}
	return probe
}
