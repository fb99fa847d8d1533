package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"guestbookAPI/internal/guestbook"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the approved listing live until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, faint("Watching the guestbook. Press Ctrl+C to stop."))
		var lastErr error
		err = api.Watch(ctx, func(msg guestbook.LiveMessage) {
			lastErr = renderLive(out, msg)
		})
		if err != nil {
			printError(cmd.ErrOrStderr(), err)
			return err
		}
		if lastErr != nil && ctx.Err() == nil {
			return lastErr
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

var errLiveFailed = errors.New("live listing failed")

// renderLive prints one live message. The server sends a full snapshot each
// time, so the screen is redrawn rather than patched.
func renderLive(w io.Writer, msg guestbook.LiveMessage) error {
	switch msg.Action {
	case guestbook.LiveActionSnapshot:
		fmt.Fprintln(w, bold("── guestbook ──"))
		printEntries(w, msg.Entries)
		return nil
	case guestbook.LiveActionError:
		fmt.Fprintln(w, red("✗"), liveErrorHint(msg.Code))
		return fmt.Errorf("%w: %s", errLiveFailed, msg.Code)
	default:
		return nil
	}
}

func liveErrorHint(code string) string {
	switch code {
	case "access_denied":
		return guestbook.Hint(guestbook.ErrAccessDenied)
	case "index_building":
		return guestbook.Hint(guestbook.ErrIndexBuilding)
	case "unavailable":
		return guestbook.Hint(guestbook.ErrUnavailable)
	default:
		return "The live listing stopped. Restart watch to try again."
	}
}
