package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"guestbookAPI/internal/client"
	"guestbookAPI/internal/cooldown"
	"guestbookAPI/internal/guestbook"
	"guestbookAPI/internal/rulesprobe"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// hint is the message shown for a failed command. Raw codes never reach the user.
func hint(err error) string {
	switch {
	case errors.Is(err, client.ErrUnreachable):
		return "Could not reach the guestbook server. Check --server and try again."
	case errors.Is(err, client.ErrUnauthorized):
		return "Not authorized. Pass a moderator session token with --token."
	case errors.Is(err, cooldown.ErrCooldown):
		return "Please " + err.Error() + " before posting again."
	default:
		return guestbook.Hint(err)
	}
}

func printError(w io.Writer, err error) {
	var verr *guestbook.ValidationError
	if errors.As(err, &verr) {
		for _, p := range verr.Problems {
			fmt.Fprintln(w, red("✗"), p)
		}
		return
	}
	fmt.Fprintln(w, red("✗"), hint(err))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "just now"
	}
	return t.Local().Format("02 Jan 06 15:04")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// printEntries renders the public listing, newest first as received.
func printEntries(w io.Writer, entries []guestbook.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, faint("No messages yet. Be the first to sign the guestbook!"))
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s\n  %s\n", bold(e.Username), faint(formatTime(e.CreatedAt)), e.Message)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

// renderPending prints the pending queue with 1-based positions. selected
// may be nil.
func renderPending(w io.Writer, entries []guestbook.Entry, selected map[string]bool) {
	if len(entries) == 0 {
		fmt.Fprintln(w, green("No pending entries."))
		return
	}
	table := newTable(w, []string{"", "#", "ID", "Username", "Message", "Created"})
	for i, e := range entries {
		mark := ""
		if selected[e.ID] {
			mark = "*"
		}
		table.Append([]string{
			mark,
			strconv.Itoa(i + 1),
			e.ID,
			e.Username,
			truncate(e.Message, 60),
			formatTime(e.CreatedAt),
		})
	}
	table.Render()
}

func renderProbe(w io.Writer, report rulesprobe.Report) {
	table := newTable(w, []string{"Check", "Expected", "Got", "Result", "Detail"})
	for _, r := range report.Results {
		got := rulesprobe.ExpectDenied
		if r.Allowed {
			got = rulesprobe.ExpectAllowed
		}
		result := green("PASS")
		if !r.Pass {
			result = red("FAIL")
		}
		table.Append([]string{r.Name, r.Expected, got, result, r.Detail})
	}
	table.Render()

	if report.Passed {
		fmt.Fprintln(w, green("Access rules behave as expected."))
	} else {
		fmt.Fprintln(w, red("Access rules do NOT behave as expected. Review firestore.rules."))
	}
	fmt.Fprintln(w, faint("The probe leaves one pending entry from "+rulesprobe.ProbeUsername+"; reject it when done."))
}
