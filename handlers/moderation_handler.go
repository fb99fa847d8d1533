package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"guestbookAPI/internal/guestbook"
	"guestbookAPI/middleware"
	"guestbookAPI/services"
)

// The probe makes six sequential REST calls.
const probeTimeout = 30 * time.Second

type ModerationHandler struct {
	moderationService *services.ModerationService
	log               *slog.Logger
	timeout           time.Duration
}

func NewModerationHandler(moderationService *services.ModerationService, log *slog.Logger, timeout time.Duration) *ModerationHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ModerationHandler{
		moderationService: moderationService,
		log:               log,
		timeout:           timeout,
	}
}

func (h *ModerationHandler) moderator(w http.ResponseWriter, r *http.Request) (string, bool) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return "", false
	}
	return clerkID, true
}

func (h *ModerationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entries, err := h.moderationService.ListPending(ctx)
	if err != nil {
		respondWithServiceError(w, h.log, "list pending entries", err)
		return
	}
	respondWithJSON(w, http.StatusOK, guestbook.ListResponse{Entries: entries})
}

func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	moderatorID, ok := h.moderator(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.moderationService.Approve(ctx, id, moderatorID); err != nil {
		respondWithServiceError(w, h.log, "approve entry", err)
		return
	}
	middleware.RecordModeration("approve", 1)
	respondWithJSON(w, http.StatusOK, guestbook.BatchApproveResponse{Approved: []string{id}})
}

func (h *ModerationHandler) ApproveBatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	moderatorID, ok := h.moderator(w, r)
	if !ok {
		return
	}

	var req guestbook.BatchApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	approved, err := h.moderationService.ApproveBatch(ctx, req.IDs, moderatorID)
	if err != nil {
		respondWithServiceError(w, h.log, "approve batch", err)
		return
	}
	middleware.RecordModeration("approve_batch", len(approved))
	respondWithJSON(w, http.StatusOK, guestbook.BatchApproveResponse{Approved: approved})
}

func (h *ModerationHandler) AutoApprove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	moderatorID, ok := h.moderator(w, r)
	if !ok {
		return
	}

	approved, err := h.moderationService.AutoApprove(ctx, moderatorID)
	if err != nil {
		respondWithServiceError(w, h.log, "auto-approve", err)
		return
	}
	middleware.RecordModeration("auto_approve", len(approved))
	respondWithJSON(w, http.StatusOK, guestbook.BatchApproveResponse{Approved: approved})
}

func (h *ModerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	moderatorID, ok := h.moderator(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.moderationService.Reject(ctx, id, moderatorID); err != nil {
		respondWithServiceError(w, h.log, "reject entry", err)
		return
	}
	middleware.RecordModeration("reject", 1)
	respondWithJSON(w, http.StatusOK, guestbook.RejectResponse{Rejected: id})
}

func (h *ModerationHandler) Probe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	report, err := h.moderationService.Probe(ctx)
	if err != nil {
		respondWithServiceError(w, h.log, "rules probe", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}
