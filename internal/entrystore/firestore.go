package entrystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"guestbookAPI/internal/guestbook"
)

// Store keeps guestbook entries in one Firestore collection.
// Access rules are enforced by Firestore itself for public SDK clients; this
// server uses privileged credentials, so every public path here only ever issues
// the approved==true read and the approved=false create.
type Store struct {
	client     *firestore.Client
	collection string
	log        *slog.Logger
	approved   approvedQueries
}

// approvedQueries runs the approved listing, ordered by createdAt or not.
// Errors come back untranslated.
type approvedQueries interface {
	list(ctx context.Context, ordered bool, limit int) ([]guestbook.Entry, error)
	watch(ctx context.Context, ordered bool, limit int, onSnapshot func([]guestbook.Entry)) error
}

func NewStore(client *firestore.Client, collection string, log *slog.Logger) *Store {
	if collection == "" {
		collection = guestbook.DefaultCollection
	}
	s := &Store{client: client, collection: collection, log: log}
	s.approved = firestoreQueries{store: s}
	return s
}

func (s *Store) entries() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Create stores a pending entry. createdAt is the server timestamp sentinel,
// never a client clock.
func (s *Store) Create(ctx context.Context, username, message string) (string, error) {
	ref, _, err := s.entries().Add(ctx, map[string]interface{}{
		"username":  username,
		"message":   message,
		"approved":  false,
		"createdAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return "", translate("create entry", err)
	}
	return ref.ID, nil
}

// ListApproved returns the newest approved entries. When the ordered query is
// refused because its index is not ready it falls back to the unordered one;
// both results are sorted newest first before returning.
func (s *Store) ListApproved(ctx context.Context, limit int) ([]guestbook.Entry, error) {
	entries, err := s.approved.list(ctx, true, limit)
	if err != nil {
		err = translate("list approved entries", err)
		if !errors.Is(err, guestbook.ErrIndexBuilding) {
			return nil, err
		}
		s.log.Warn("Firestore: ordered listing unavailable, using fallback query", "error", err)
		entries, err = s.approved.list(ctx, false, limit)
		if err != nil {
			return nil, translate("list approved entries (fallback)", err)
		}
	}
	return guestbook.PublicView(entries), nil
}

// WatchApproved streams the approved listing to onSnapshot until ctx is
// cancelled. It returns nil on cancellation and a translated error otherwise.
// The underlying listener is always stopped before returning.
func (s *Store) WatchApproved(ctx context.Context, limit int, onSnapshot func([]guestbook.Entry)) error {
	deliver := func(entries []guestbook.Entry) { onSnapshot(guestbook.PublicView(entries)) }

	err := translate("watch approved entries", s.approved.watch(ctx, true, limit, deliver))
	if !errors.Is(err, guestbook.ErrIndexBuilding) {
		return err
	}
	s.log.Warn("Firestore: ordered listener unavailable, using fallback query", "error", err)
	return translate("watch approved entries (fallback)", s.approved.watch(ctx, false, limit, deliver))
}

type firestoreQueries struct {
	store *Store
}

// query needs no composite index when unordered.
func (q firestoreQueries) query(ordered bool, limit int) firestore.Query {
	query := q.store.entries().Where("approved", "==", true)
	if ordered {
		query = query.OrderBy("createdAt", firestore.Desc)
	}
	return query.Limit(limit)
}

func (q firestoreQueries) list(ctx context.Context, ordered bool, limit int) ([]guestbook.Entry, error) {
	docs, err := q.query(ordered, limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeAll(docs)
}

func (q firestoreQueries) watch(ctx context.Context, ordered bool, limit int, onSnapshot func([]guestbook.Entry)) error {
	it := q.query(ordered, limit).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		entries, err := decodeAll(docs)
		if err != nil {
			return err
		}
		onSnapshot(entries)
	}
}

// ListPending is the moderators' one-shot approved==false read.
func (s *Store) ListPending(ctx context.Context) ([]guestbook.Entry, error) {
	docs, err := s.entries().Where("approved", "==", false).Documents(ctx).GetAll()
	if err != nil {
		return nil, translate("list pending entries", err)
	}
	entries, err := decodeAll(docs)
	if err != nil {
		return nil, err
	}
	guestbook.SortNewestFirst(entries)
	return entries, nil
}

func approvalUpdates(moderator string) []firestore.Update {
	return []firestore.Update{
		{Path: "approved", Value: true},
		{Path: "moderatedAt", Value: firestore.ServerTimestamp},
		{Path: "moderatedBy", Value: moderator},
	}
}

// Approve flips one pending entry to approved. It fails with ErrNotFound or
// ErrAlreadyApproved exactly like a one-element batch.
func (s *Store) Approve(ctx context.Context, id, moderator string) error {
	return s.approve(ctx, "approve entry "+id, []string{id}, moderator)
}

// ApproveBatch approves every id in one transaction or none of them.
// The transaction is attempted once; failures are reported, not retried.
func (s *Store) ApproveBatch(ctx context.Context, ids []string, moderator string) error {
	if len(ids) == 0 {
		return guestbook.ErrEmptySelection
	}
	return s.approve(ctx, "approve batch", ids, moderator)
}

func (s *Store) approve(ctx context.Context, op string, ids []string, moderator string) error {
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = s.entries().Doc(id)
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for i, snap := range snaps {
			var approved interface{}
			if snap.Exists() {
				approved, _ = snap.DataAt("approved")
			}
			if err := checkApprovable(ids[i], snap.Exists(), approved); err != nil {
				return err
			}
		}
		for _, ref := range refs {
			if err := tx.Update(ref, approvalUpdates(moderator)); err != nil {
				return err
			}
		}
		return nil
	}, firestore.MaxAttempts(1))
	if err != nil {
		if errors.Is(err, guestbook.ErrNotFound) || errors.Is(err, guestbook.ErrAlreadyApproved) {
			return err
		}
		return translate(op, err)
	}
	return nil
}

// checkApprovable is the precondition every approval shares: the entry exists
// and is still pending.
func checkApprovable(id string, exists bool, approved interface{}) error {
	if !exists {
		return fmt.Errorf("%w: %s", guestbook.ErrNotFound, id)
	}
	if approved == true {
		return fmt.Errorf("%w: %s", guestbook.ErrAlreadyApproved, id)
	}
	return nil
}

// Delete removes an entry from the store; rejecting is a real store mutation.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.entries().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return translate("delete entry "+id, err)
	}
	return nil
}

// Ping performs a cheap read to check connectivity.
func (s *Store) Ping(ctx context.Context) error {
	it := s.entries().Where("approved", "==", true).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return translate("ping", err)
	}
	return nil
}

func decode(doc *firestore.DocumentSnapshot) (guestbook.Entry, error) {
	var e guestbook.Entry
	if err := doc.DataTo(&e); err != nil {
		return guestbook.Entry{}, fmt.Errorf("decode entry %s: %w", doc.Ref.ID, err)
	}
	e.ID = doc.Ref.ID
	return e, nil
}

func decodeAll(docs []*firestore.DocumentSnapshot) ([]guestbook.Entry, error) {
	entries := make([]guestbook.Entry, 0, len(docs))
	for _, doc := range docs {
		e, err := decode(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
