package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "attendd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendd",
		Short: "Offline-first attendance capture agent",
		Long: `attendd records worker attendance against a remote verification service.
Submissions taken while disconnected are queued locally and pushed as one
batch once connectivity returns.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newRunCmd(),
		newStatusCmd(),
		newSyncCmd(),
		newMarkCmd(),
		newVerifyCmd(),
		newEnrollCmd(),
		newWorkersCmd(),
		newHistoryCmd(),
	)
	return cmd
}
