package services

import (
	"context"
	"fmt"
	"log/slog"

	"guestbookAPI/internal/guestbook"
)

// GuestbookStore is the public side of the entry store: create pending
// entries and read the approved listing.
type GuestbookStore interface {
	Create(ctx context.Context, username, message string) (string, error)
	ListApproved(ctx context.Context, limit int) ([]guestbook.Entry, error)
	Ping(ctx context.Context) error
}

// TextFilter is satisfied by *profanity.Filter.
type TextFilter interface {
	Available() bool
	Check(text string) bool
	Clean(text string) string
}

type GuestbookService struct {
	store        GuestbookStore
	filter       TextFilter
	listingLimit int
	log          *slog.Logger
}

func NewGuestbookService(store GuestbookStore, filter TextFilter, listingLimit int, log *slog.Logger) *GuestbookService {
	if listingLimit <= 0 {
		listingLimit = guestbook.DefaultListingLimit
	}
	return &GuestbookService{
		store:        store,
		filter:       filter,
		listingLimit: listingLimit,
		log:          log,
	}
}

// Submit validates, filters and stores one pending entry and returns its id.
// Inappropriate text is refused outright. Clean shares Check's matcher, so on
// text that passed Check it changes nothing; it stays as a second gate.
func (s *GuestbookService) Submit(ctx context.Context, req guestbook.SubmitRequest) (string, error) {
	if err := guestbook.Validate(req); err != nil {
		return "", err
	}
	req = guestbook.Normalize(req)

	if s.filter.Available() {
		if s.filter.Check(req.Username) || s.filter.Check(req.Message) {
			s.log.Info("submission refused by profanity filter", "username_len", len(req.Username))
			return "", guestbook.ErrInappropriate
		}
		req.Username = s.filter.Clean(req.Username)
		req.Message = s.filter.Clean(req.Message)
	}

	id, err := s.store.Create(ctx, req.Username, req.Message)
	if err != nil {
		return "", fmt.Errorf("submit entry: %w", err)
	}
	s.log.Info("entry submitted for review", "id", id)
	return id, nil
}

// ListApproved is the one-shot public listing.
func (s *GuestbookService) ListApproved(ctx context.Context) ([]guestbook.Entry, error) {
	entries, err := s.store.ListApproved(ctx, s.listingLimit)
	if err != nil {
		return nil, err
	}
	return guestbook.PublicView(entries), nil
}

type HealthStatus struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Filter string `json:"filter"`
}

// Health reports store connectivity and whether the profanity filter is active.
func (s *GuestbookService) Health(ctx context.Context) HealthStatus {
	h := HealthStatus{Status: "ok", Store: "ok", Filter: "enabled"}
	if !s.filter.Available() {
		h.Filter = "disabled"
		h.Status = "degraded"
	}
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("health: store ping failed", "error", err)
		h.Store = guestbook.Code(err)
		h.Status = "unavailable"
	}
	return h
}
