package guestbook

import (
	"sort"
	"time"
)

const (
	MinUsernameLength = 2
	MaxUsernameLength = 20
	MinMessageLength  = 3
	MaxMessageLength  = 280

	// DefaultListingLimit caps the public listing query.
	DefaultListingLimit = 30
	DefaultCollection   = "guestbook"
)

// Entry is one guestbook submission as stored in the document database.
type Entry struct {
	ID          string     `json:"id" firestore:"-"`
	Username    string     `json:"username" firestore:"username"`
	Message     string     `json:"message" firestore:"message"`
	Approved    bool       `json:"approved" firestore:"approved"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
	ModeratedAt *time.Time `json:"moderatedAt,omitempty" firestore:"moderatedAt,omitempty"`
	ModeratedBy string     `json:"moderatedBy,omitempty" firestore:"moderatedBy,omitempty"`
}

// SortNewestFirst orders entries by CreatedAt descending in place.
// Ties keep their relative order.
func SortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

// PublicView is the last gate before entries leave for a public client:
// only approved entries, newest first.
func PublicView(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Approved {
			out = append(out, e)
		}
	}
	SortNewestFirst(out)
	return out
}
