package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"guestbookAPI/internal/guestbook"
	"guestbookAPI/internal/rulesprobe"
)

var ErrProbeDisabled = errors.New("rules probe is not configured")

// ModerationStore is the privileged side of the entry store.
type ModerationStore interface {
	ListPending(ctx context.Context) ([]guestbook.Entry, error)
	Approve(ctx context.Context, id, moderator string) error
	ApproveBatch(ctx context.Context, ids []string, moderator string) error
	Delete(ctx context.Context, id string) error
}

type RulesProber interface {
	Run(ctx context.Context) (rulesprobe.Report, error)
}

type ModerationService struct {
	store  ModerationStore
	prober RulesProber
	log    *slog.Logger
}

// NewModerationService builds the service. prober may be nil, in which case
// Probe reports ErrProbeDisabled.
func NewModerationService(store ModerationStore, prober RulesProber, log *slog.Logger) *ModerationService {
	return &ModerationService{store: store, prober: prober, log: log}
}

func (s *ModerationService) ListPending(ctx context.Context) ([]guestbook.Entry, error) {
	entries, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return guestbook.NewPendingQueue(entries).Entries(), nil
}

func (s *ModerationService) Approve(ctx context.Context, id, moderator string) error {
	if id == "" {
		return guestbook.ErrEmptySelection
	}
	if err := s.store.Approve(ctx, id, moderator); err != nil {
		return err
	}
	s.log.Info("entry approved", "id", id, "moderator", moderator)
	return nil
}

// ApproveBatch approves all ids or none. Duplicates are collapsed first.
func (s *ModerationService) ApproveBatch(ctx context.Context, ids []string, moderator string) ([]string, error) {
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return nil, guestbook.ErrEmptySelection
	}
	if err := s.store.ApproveBatch(ctx, ids, moderator); err != nil {
		return nil, err
	}
	s.log.Info("entries approved in batch", "count", len(ids), "moderator", moderator)
	return ids, nil
}

// AutoApprove batch-approves the pending entries that pass the safety
// heuristic. No safe entries is not an error: the result is simply empty.
func (s *ModerationService) AutoApprove(ctx context.Context, moderator string) ([]string, error) {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	safe := guestbook.SafeEntries(pending)
	if len(safe) == 0 {
		return []string{}, nil
	}
	ids := lo.Map(safe, func(e guestbook.Entry, _ int) string { return e.ID })
	approved, err := s.ApproveBatch(ctx, ids, moderator)
	if err != nil {
		return nil, fmt.Errorf("auto-approve %d entries: %w", len(ids), err)
	}
	return approved, nil
}

// Reject deletes the entry from the store.
func (s *ModerationService) Reject(ctx context.Context, id, moderator string) error {
	if id == "" {
		return guestbook.ErrEmptySelection
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("entry rejected", "id", id, "moderator", moderator)
	return nil
}

func (s *ModerationService) Probe(ctx context.Context) (rulesprobe.Report, error) {
	if s.prober == nil {
		return rulesprobe.Report{}, ErrProbeDisabled
	}
	report, err := s.prober.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("run rules probe: %w", err)
	}
	s.log.Info("rules probe finished", "passed", report.Passed)
	return report, nil
}
