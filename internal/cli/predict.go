package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/metadata"
	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/predictor"
)

func init() {
	cmd := &cobra.Command{
		Use:   "predict [type:id]",
		Short: "Predict recall probability and the best review time",
		Long: "Evaluate the recall model. With an item key the features come from the user's review state;\n" +
			"otherwise they are taken from the flags.",
		Args: cobra.MaximumNArgs(1),
		Run:  runPredict,
	}

	cmd.Flags().Float64("days", 1, "Days since the last review")
	cmd.Flags().Float64("ease", model.DefaultEaseFactor, "Ease factor")
	cmd.Flags().Float64("accuracy", 0.5, "Historical accuracy 0-1")
	cmd.Flags().Float64("difficulty", 0.3, "Perceived content difficulty 0-1")
	cmd.Flags().Float64("load", 0, "Daily load factor 0-1")
	cmd.Flags().Float64("target", 0, "Target recall probability (default: session.target_retention)")

	RootCmd.AddCommand(cmd)
}

func runPredict(cmd *cobra.Command, args []string) {
	target, _ := cmd.Flags().GetFloat64("target")
	if target == 0 {
		target = cfg.Session.TargetRetention
	}

	var f predictor.Features
	if len(args) == 1 {
		key, err := model.ParseItemKey(args[0])
		if err != nil {
			exitErr("predict", err)
		}
		s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer s.Close()

		ctx := cmd.Context()
		// Items never queued or never answered are predicted as new.
		review, err := s.ReviewItem(ctx, userID, key)
		if errors.Is(err, model.ErrNotFound) {
			review, err = model.NewReviewItem(userID, key), nil
		}
		if err != nil {
			exitErr("review item", err)
		}
		perf, err := s.PerformanceRecord(ctx, userID, key)
		if errors.Is(err, model.ErrNotFound) {
			perf, err = model.NewPerformanceRecord(userID, key), nil
		}
		if err != nil {
			exitErr("performance record", err)
		}
		meta, err := metadata.New(s).Lookup(ctx, key)
		if err != nil {
			exitErr("metadata", err)
		}
		f = predictor.FeaturesFor(review, perf, meta, time.Now(), 0)
	} else {
		f.TimeSinceLastReview, _ = cmd.Flags().GetFloat64("days")
		f.EaseFactor, _ = cmd.Flags().GetFloat64("ease")
		f.UserHistoricalAccuracy, _ = cmd.Flags().GetFloat64("accuracy")
		f.ContentDifficulty, _ = cmd.Flags().GetFloat64("difficulty")
		f.DailyLoadFactor, _ = cmd.Flags().GetFloat64("load")
	}

	p := predictor.New(cfg.Predictor.Weights, predictor.WithLogger(log))
	recall, err := p.PredictRecall(f)
	if err != nil {
		exitErr("predict", err)
	}
	timing, err := p.RecommendTiming(f, target)
	if err != nil {
		exitErr("recommend timing", err)
	}
	printJSON(map[string]any{
		"features": f,
		"recall":   recall,
		"target":   target,
		"timing":   timing,
	})
}
