package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"guestbookAPI/internal/guestbook"
)

// session is the moderator's in-memory state. queue and selected only change
// after the server confirmed the matching mutation.
type session struct {
	api      moderatorAPI
	queue    *guestbook.PendingQueue
	selected map[string]bool
}

func newSession(api moderatorAPI) *session {
	return &session{
		api:      api,
		queue:    guestbook.NewPendingQueue(nil),
		selected: map[string]bool{},
	}
}

// runREPL loads the pending queue and then reads commands until EOF, exit or
// quit. Command failures are reported and the loop keeps going.
func runREPL(ctx context.Context, api moderatorAPI, scanner *bufio.Scanner) error {
	s := newSession(api)
	if err := s.refresh(ctx); err != nil {
		printlnFn(red("✗"), hint(err))
		return err
	}
	s.show()
	printlnFn(faint("Type help for commands."))

	for {
		printlnFn(fmt.Sprintf("mod [%d pending, %d selected]> ", s.queue.Len(), len(s.selected)))
		if !scanner.Scan() {
			return scanner.Err()
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help", "h", "?":
			printlnFn(replHelp)

		case "r", "refresh":
			if err = s.refresh(ctx); err == nil {
				s.show()
			}

		case "l", "list":
			s.show()

		case "approve", "a":
			err = s.approve(ctx, args)

		case "reject", "d":
			err = s.reject(ctx, args)

		case "select", "s":
			err = s.toggle(args)

		case "bulk", "b":
			err = s.bulk(ctx)

		case "auto":
			err = s.auto(ctx)

		case "exit", "quit", "q":
			printlnFn("Bye!")
			return nil

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn(red("✗"), hint(err))
		}
	}
}

func (s *session) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, replCallTimeout)
}

func (s *session) refresh(ctx context.Context) error {
	ctx, cancel := s.call(ctx)
	defer cancel()

	entries, err := s.api.Pending(ctx)
	if err != nil {
		return err
	}
	s.queue.Replace(entries)
	ids := lo.SliceToMap(s.queue.IDs(), func(id string) (string, bool) { return id, true })
	for id := range s.selected {
		if !ids[id] {
			delete(s.selected, id)
		}
	}
	return nil
}

func (s *session) show() {
	var b strings.Builder
	renderPending(&b, s.queue.Entries(), s.selected)
	printlnFn(strings.TrimRight(b.String(), "\n"))
}

// entryAt parses a 1-based position as displayed by show.
func (s *session) entryAt(args []string) (guestbook.Entry, error) {
	if len(args) != 1 {
		return guestbook.Entry{}, guestbook.ErrEmptySelection
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return guestbook.Entry{}, guestbook.ErrEmptySelection
	}
	e, ok := s.queue.At(pos)
	if !ok {
		return guestbook.Entry{}, guestbook.ErrNotFound
	}
	return e, nil
}

func (s *session) approve(ctx context.Context, args []string) error {
	e, err := s.entryAt(args)
	if err != nil {
		return err
	}
	ctx, cancel := s.call(ctx)
	defer cancel()

	if err := s.api.Approve(ctx, e.ID); err != nil {
		return err
	}
	s.queue.Remove(e.ID)
	delete(s.selected, e.ID)
	printlnFn(green("✓"), "approved", e.Username)
	return nil
}

func (s *session) reject(ctx context.Context, args []string) error {
	e, err := s.entryAt(args)
	if err != nil {
		return err
	}
	ctx, cancel := s.call(ctx)
	defer cancel()

	if err := s.api.Reject(ctx, e.ID); err != nil {
		return err
	}
	s.queue.Remove(e.ID)
	delete(s.selected, e.ID)
	printlnFn(green("✓"), "rejected", e.Username)
	return nil
}

func (s *session) toggle(args []string) error {
	if len(args) == 0 {
		return guestbook.ErrEmptySelection
	}
	for _, a := range args {
		pos, err := strconv.Atoi(a)
		if err != nil {
			return guestbook.ErrEmptySelection
		}
		e, ok := s.queue.At(pos)
		if !ok {
			return guestbook.ErrNotFound
		}
		if s.selected[e.ID] {
			delete(s.selected, e.ID)
		} else {
			s.selected[e.ID] = true
		}
	}
	s.show()
	return nil
}

func (s *session) bulk(ctx context.Context) error {
	// Keep queue order so the request is deterministic.
	ids := lo.Filter(s.queue.IDs(), func(id string, _ int) bool { return s.selected[id] })
	if len(ids) == 0 {
		return guestbook.ErrEmptySelection
	}
	ctx, cancel := s.call(ctx)
	defer cancel()

	approved, err := s.api.ApproveBatch(ctx, ids)
	if err != nil {
		return err
	}
	s.queue.Remove(approved...)
	for _, id := range approved {
		delete(s.selected, id)
	}
	printlnFn(green("✓"), fmt.Sprintf("approved %d entries", len(approved)))
	return nil
}

func (s *session) auto(ctx context.Context) error {
	ctx, cancel := s.call(ctx)
	defer cancel()

	approved, err := s.api.AutoApprove(ctx)
	if err != nil {
		return err
	}
	if len(approved) == 0 {
		printlnFn(faint("No entries qualified for auto-approval."))
		return nil
	}
	s.queue.Remove(approved...)
	for _, id := range approved {
		delete(s.selected, id)
	}
	printlnFn(green("✓"), fmt.Sprintf("auto-approved %d entries", len(approved)))
	return nil
}
