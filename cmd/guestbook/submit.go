package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"guestbookAPI/internal/cooldown"
	"guestbookAPI/internal/guestbook"
)

type visitorAPI interface {
	Submit(ctx context.Context, req guestbook.SubmitRequest) (guestbook.SubmitResponse, error)
}

var (
	submitName          string
	submitMessage       string
	submitResetCooldown bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Sign the guestbook",
	Long: `Sign the guestbook with a name and a message.

The message is held for moderation and appears publicly once approved.
Submissions from this machine are limited to one per minute.`,
	Example: `  guestbook submit --name Ann --message "Lovely site!"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := cooldown.OpenBadgerState(resolveStateDir())
		if err != nil {
			return err
		}
		defer state.Close()

		if submitResetCooldown {
			if err := state.Delete(cooldown.LastSubmitKey); err != nil {
				return err
			}
		}

		api, err := newClient()
		if err != nil {
			return err
		}

		req := guestbook.SubmitRequest{Username: submitName, Message: submitMessage}
		return submitEntry(cmd.Context(), api, cooldown.New(state, cooldown.DefaultWindow), req, cmd.OutOrStdout())
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitName, "name", "n", "",
		fmt.Sprintf("your display name (%d-%d characters)", guestbook.MinUsernameLength, guestbook.MaxUsernameLength))
	submitCmd.Flags().StringVarP(&submitMessage, "message", "m", "",
		fmt.Sprintf("your message (%d-%d characters)", guestbook.MinMessageLength, guestbook.MaxMessageLength))
	submitCmd.Flags().BoolVar(&submitResetCooldown, "reset-cooldown", false, "forget the last local submission time")
	rootCmd.AddCommand(submitCmd)
}

// submitEntry validates locally before anything touches the network, then
// applies the client-side cooldown and posts the entry.
func submitEntry(ctx context.Context, api visitorAPI, cd *cooldown.Cooldown, req guestbook.SubmitRequest, w io.Writer) error {
	req = guestbook.Normalize(req)
	if err := guestbook.Validate(req); err != nil {
		printError(w, err)
		return err
	}

	if err := cd.Check(); err != nil {
		printError(w, err)
		return err
	}

	resp, err := api.Submit(ctx, req)
	if err != nil {
		printError(w, err)
		return err
	}

	if err := cd.Mark(); err != nil {
		fmt.Fprintln(w, yellow("!"), "could not record the cooldown:", err)
	}
	fmt.Fprintln(w, green("✓"), resp.Message)
	fmt.Fprintln(w, faint("entry id: "+resp.ID))
	return nil
}
