package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/srs"
)

func init() {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the next SM-2 interval without touching the database",
		Run:   runSchedule,
	}

	cmd.Flags().IntP("quality", "q", 0, "Answer quality 0-5 (required)")
	cmd.Flags().IntP("repetitions", "r", 0, "Consecutive successful reviews so far")
	cmd.Flags().IntP("interval", "i", 0, "Current interval in days")
	cmd.Flags().Float64P("ease", "e", model.DefaultEaseFactor, "Current ease factor")
	cmd.MarkFlagRequired("quality")

	RootCmd.AddCommand(cmd)
}

func runSchedule(cmd *cobra.Command, args []string) {
	quality, _ := cmd.Flags().GetInt("quality")
	reps, _ := cmd.Flags().GetInt("repetitions")
	interval, _ := cmd.Flags().GetInt("interval")
	ease, _ := cmd.Flags().GetFloat64("ease")

	q, err := srs.ParseQuality(quality)
	if err != nil {
		exitErr("schedule", err)
	}
	res, err := srs.Schedule(q, reps, interval, ease, time.Now().UTC())
	if err != nil {
		exitErr("schedule", err)
	}
	printJSON(res)
}
