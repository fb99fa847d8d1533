package main

import (
	"os"

	"github.com/spf13/cobra"

	"guestbookAPI/internal/client"
	"guestbookAPI/internal/cooldown"
)

const defaultServer = "http://localhost:2333"

var (
	serverURL string
	token     string
	stateDir  string
)

var rootCmd = &cobra.Command{
	Use:   "guestbook",
	Short: "Sign, read and moderate the site guestbook",
	Long: `Sign, read and moderate the site guestbook.

Visitors submit messages that stay pending until a moderator approves them.
Only approved messages are ever listed publicly.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("GUESTBOOK_SERVER", defaultServer), "guestbook API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("GUESTBOOK_TOKEN"), "moderator session token (Clerk)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "local state directory (default: ~/.local/state/guestbook)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, token)
}

func resolveStateDir() string {
	if stateDir != "" {
		return stateDir
	}
	return cooldown.DefaultStateDir()
}
