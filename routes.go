package main

import (
	"net/http"
	_ "net/http/pprof"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guestbookAPI/handlers"
	"guestbookAPI/middleware"
)

type routerDeps struct {
	guestbook    *handlers.GuestbookHandler
	moderation   *handlers.ModerationHandler
	limiter      *middleware.RateLimiter
	moderatorIDs []string
	metricsUser  string
	metricsPass  string
	pprofSecret  string
}

func newRouter(d routerDeps) http.Handler {
	r := mux.NewRouter()

	// The live socket stays outside the rate limiter: one upgrade, then a long-lived connection.
	r.HandleFunc("/api/v1/guestbook/live", d.guestbook.Live).Methods("GET")

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(d.limiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(d.metricsUser, d.metricsPass)(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(d.pprofSecret)(http.DefaultServeMux))
	standardRouter.HandleFunc("/health", d.guestbook.Health).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/guestbook", d.guestbook.List).Methods("GET")
	api.HandleFunc("/guestbook", d.guestbook.Submit).Methods("POST")

	// -------------------------------------------------------------------------
	// MODERATION (CLERK TOKEN + MODERATOR ALLOW-LIST)
	// -------------------------------------------------------------------------
	moderation := api.PathPrefix("/moderation").Subrouter()
	moderation.Use(middleware.ClerkAuthMiddleware)
	moderation.Use(middleware.RequireModerator(d.moderatorIDs))

	moderation.HandleFunc("/pending", d.moderation.ListPending).Methods("GET")
	moderation.HandleFunc("/entries/{id}/approve", d.moderation.Approve).Methods("POST")
	moderation.HandleFunc("/entries/{id}", d.moderation.Reject).Methods("DELETE")
	moderation.HandleFunc("/approve-batch", d.moderation.ApproveBatch).Methods("POST")
	moderation.HandleFunc("/auto-approve", d.moderation.AutoApprove).Methods("POST")
	moderation.HandleFunc("/probe", d.moderation.Probe).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)
	return corsHandler(r)
}
