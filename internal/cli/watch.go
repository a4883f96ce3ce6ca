package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/reminder"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a JSON line per user whenever reviews are due",
		Long:  "Check for due reviews every reminder.interval until interrupted. Use --all to report every user.",
		Run:   runWatch,
	}

	cmd.Flags().Duration("interval", 0, "Check interval (default: reminder.interval)")
	cmd.Flags().Bool("all", false, "Report every user, not just --user")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	interval, _ := cmd.Flags().GetDuration("interval")
	all, _ := cmd.Flags().GetBool("all")
	if interval <= 0 {
		interval = cfg.Reminder.Interval
	}
	user := cfg.Reminder.UserID
	if cmd.Flags().Changed("user") || user == "" {
		user = userID
	}
	if all {
		user = ""
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	notify := reminder.NotifierFunc(func(_ context.Context, r reminder.Reminder) error {
		return enc.Encode(r)
	})
	sched := reminder.New(s, notify,
		reminder.WithInterval(interval),
		reminder.WithUser(user),
		reminder.WithLogger(log),
	)
	if err := sched.Start(ctx); err != nil {
		exitErr("watch", err)
	}
	<-ctx.Done()
	sched.Stop()
	fmt.Fprintln(cmd.ErrOrStderr(), "stopped")
}
