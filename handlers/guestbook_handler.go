package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"guestbookAPI/internal/guestbook"
	"guestbookAPI/middleware"
	"guestbookAPI/services"
)

const maxSubmitBody = 4 << 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Public read-only feed; any site may embed it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type GuestbookHandler struct {
	guestbookService *services.GuestbookService
	hub              *services.LiveHub
	log              *slog.Logger
	timeout          time.Duration
}

func NewGuestbookHandler(guestbookService *services.GuestbookService, hub *services.LiveHub, log *slog.Logger, timeout time.Duration) *GuestbookHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GuestbookHandler{
		guestbookService: guestbookService,
		hub:              hub,
		log:              log,
		timeout:          timeout,
	}
}

// Submit handles POST /api/v1/guestbook.
func (h *GuestbookHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req guestbook.SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody)).Decode(&req); err != nil {
		middleware.RecordSubmission("invalid")
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.guestbookService.Submit(ctx, req)
	if err != nil {
		middleware.RecordSubmission(submissionOutcome(err))
		respondWithServiceError(w, h.log, "submit entry", err)
		return
	}

	middleware.RecordSubmission("accepted")
	respondWithJSON(w, http.StatusCreated, guestbook.SubmitResponse{
		ID:      id,
		Message: "Thanks! Your message will appear once a moderator approves it.",
	})
}

func submissionOutcome(err error) string {
	switch {
	case errors.Is(err, guestbook.ErrValidation):
		return "invalid"
	case errors.Is(err, guestbook.ErrInappropriate):
		return "inappropriate"
	default:
		return "failed"
	}
}

// List handles GET /api/v1/guestbook, the one-shot approved listing.
func (h *GuestbookHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entries, err := h.guestbookService.ListApproved(ctx)
	if err != nil {
		respondWithServiceError(w, h.log, "list approved entries", err)
		return
	}
	respondWithJSON(w, http.StatusOK, guestbook.ListResponse{Entries: entries})
}

// Live handles GET /api/v1/guestbook/live and hands the socket to the hub.
func (h *GuestbookHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("live listing: could not upgrade connection", "error", err)
		return
	}

	client := services.NewLiveClient(h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// Health handles GET /health.
func (h *GuestbookHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := h.guestbookService.Health(ctx)
	code := http.StatusOK
	if status.Store != "ok" {
		code = http.StatusServiceUnavailable
	}
	respondWithJSON(w, code, status)
}
