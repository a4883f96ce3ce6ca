package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List reviews that are due",
		Long:  "List due reviews, oldest first. With --budget, pack as many as fit into the given study time.",
		Run:   runDue,
	}

	cmd.Flags().IntP("limit", "l", 50, "Max results")
	cmd.Flags().DurationP("budget", "b", 0, "Study time available, e.g. 10m")

	RootCmd.AddCommand(cmd)
}

func runDue(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	budget, _ := cmd.Flags().GetDuration("budget")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	now := time.Now()
	if budget > 0 {
		result, err := s.Workload(cmd.Context(), store.WorkloadParams{UserID: userID, Now: now, Budget: budget})
		if err != nil {
			exitErr("due", err)
		}
		printJSON(result)
		return
	}

	items, err := s.Due(cmd.Context(), store.DueParams{UserID: userID, Now: now, Limit: limit})
	if err != nil {
		exitErr("due", err)
	}
	if items == nil {
		items = []store.DueItem{}
	}
	printJSON(items)
}
