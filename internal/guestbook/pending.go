package guestbook

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// PendingQueue is the moderator's local view of unapproved entries.
// It only changes after the store confirmed a mutation.
type PendingQueue struct {
	entries []Entry
}

func NewPendingQueue(entries []Entry) *PendingQueue {
	q := &PendingQueue{}
	q.Replace(entries)
	return q
}

// Replace swaps the whole list, keeping only pending entries, newest first.
func (q *PendingQueue) Replace(entries []Entry) {
	pending := lo.Filter(entries, func(e Entry, _ int) bool { return !e.Approved })
	SortNewestFirst(pending)
	q.entries = pending
}

func (q *PendingQueue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *PendingQueue) Len() int { return len(q.entries) }

// At returns the entry at a 1-based position as displayed to the moderator.
func (q *PendingQueue) At(pos int) (Entry, bool) {
	if pos < 1 || pos > len(q.entries) {
		return Entry{}, false
	}
	return q.entries[pos-1], true
}

func (q *PendingQueue) IDs() []string {
	return lo.Map(q.entries, func(e Entry, _ int) string { return e.ID })
}

// Remove drops every listed id in a single update.
func (q *PendingQueue) Remove(ids ...string) {
	if len(ids) == 0 {
		return
	}
	drop := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	q.entries = lo.Reject(q.entries, func(e Entry, _ int) bool {
		_, ok := drop[e.ID]
		return ok
	})
}

// SafeForAutoApprove is the best-effort heuristic behind "auto-approve safe".
// It is a convenience filter, not a security boundary.
func SafeForAutoApprove(e Entry) bool {
	if utf8.RuneCountInString(e.Username) > MaxUsernameLength {
		return false
	}
	if utf8.RuneCountInString(e.Message) > MaxMessageLength {
		return false
	}
	lower := strings.ToLower(e.Message)
	for _, marker := range autoApproveBlockers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

var autoApproveBlockers = []string{"spam", "test hack"}

// SafeEntries selects the auto-approvable subset, preserving order.
func SafeEntries(entries []Entry) []Entry {
	return lo.Filter(entries, func(e Entry, _ int) bool { return SafeForAutoApprove(e) })
}
