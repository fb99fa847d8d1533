package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"guestbookAPI/internal/guestbook"
	"guestbookAPI/internal/rulesprobe"
)

type moderatorAPI interface {
	Pending(ctx context.Context) ([]guestbook.Entry, error)
	Approve(ctx context.Context, id string) error
	ApproveBatch(ctx context.Context, ids []string) ([]string, error)
	AutoApprove(ctx context.Context) ([]string, error)
	Reject(ctx context.Context, id string) error
	Probe(ctx context.Context) (rulesprobe.Report, error)
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List entries waiting for moderation",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		entries, err := api.Pending(cmd.Context())
		if err != nil {
			printError(cmd.ErrOrStderr(), err)
			return err
		}
		renderPending(cmd.OutOrStdout(), guestbook.NewPendingQueue(entries).Entries(), nil)
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve one pending entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		if err := api.Approve(cmd.Context(), args[0]); err != nil {
			printError(cmd.ErrOrStderr(), err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), green("✓"), "approved", args[0])
		return nil
	},
}

var approveBatchCmd = &cobra.Command{
	Use:   "approve-batch <id> [id...]",
	Short: "Approve several entries atomically",
	Long: `Approve several entries in one atomic write.

Either every listed entry is approved or none is.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		approved, err := api.ApproveBatch(cmd.Context(), args)
		if err != nil {
			printError(cmd.ErrOrStderr(), err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s approved %d entries\n", green("✓"), len(approved))
		return nil
	},
}

var autoApproveCmd = &cobra.Command{
	Use:   "auto-approve",
	Short: "Approve every pending entry the safety heuristic accepts",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		approved, err := api.AutoApprove(cmd.Context())
		if err != nil {
			printError(cmd.ErrOrStderr(), err)
			return err
		}
		if len(approved) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), faint("No entries qualified for auto-approval."))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s auto-approved %d entries\n", green("✓"), len(approved))
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject (delete) one pending entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		if err := api.Reject(cmd.Context(), args[0]); err != nil {
			printError(cmd.ErrOrStderr(), err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), green("✓"), "rejected", args[0])
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the store access rules behave as expected",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		report, err := api.Probe(cmd.Context())
		if err != nil {
			printError(cmd.ErrOrStderr(), err)
			return err
		}
		renderProbe(cmd.OutOrStdout(), report)
		if !report.Passed {
			return fmt.Errorf("rules probe failed")
		}
		return nil
	},
}

var moderateCmd = &cobra.Command{
	Use:   "moderate",
	Short: "Interactive moderation session",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		return runREPL(cmd.Context(), api, bufio.NewScanner(os.Stdin))
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(approveBatchCmd)
	rootCmd.AddCommand(autoApproveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(moderateCmd)
}

const replCallTimeout = 30 * time.Second

var printlnFn = fmt.Println

var replHelp = strings.TrimSpace(`
Commands:
  refresh | r        reload the pending queue
  list | l           show the pending queue
  approve N          approve entry #N
  reject N           reject (delete) entry #N
  select N [N...]    toggle entries for bulk approval
  bulk               approve all selected entries atomically
  auto               auto-approve safe entries
  help               show this help
  exit | quit        leave`)
