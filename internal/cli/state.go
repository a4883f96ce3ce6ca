package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/model"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show or edit the learner profile",
}

func init() {
	get := &cobra.Command{
		Use:   "get",
		Short: "Show the learner profile",
		Run:   runStateGet,
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Edit the learner profile",
		Run:   runStateSet,
	}
	set.Flags().Bool("novelty", false, "Prefer new items when selecting")
	set.Flags().StringSlice("weakness", nil, "Category weakness 0-100, e.g. grammar=40")
	set.Flags().Float64("accuracy", -1, "Overall accuracy 0-1")

	stateCmd.AddCommand(get, set)
	RootCmd.AddCommand(stateCmd)
}

func runStateGet(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.LearningState(cmd.Context(), userID)
	if err != nil {
		exitErr("state", err)
	}
	printJSON(st)
}

func runStateSet(cmd *cobra.Command, args []string) {
	weakness, _ := cmd.Flags().GetStringSlice("weakness")
	accuracy, _ := cmd.Flags().GetFloat64("accuracy")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.LearningState(cmd.Context(), userID)
	if err != nil {
		exitErr("state", err)
	}
	if cmd.Flags().Changed("novelty") {
		st.PreferNovelty, _ = cmd.Flags().GetBool("novelty")
	}
	if accuracy >= 0 {
		st.AccuracyRate = accuracy
	}
	for _, w := range weakness {
		ct, v, err := parseWeakness(w)
		if err != nil {
			exitErr("state set", err)
		}
		st.WeaknessByCategory[ct] = v
	}

	if err := s.SaveLearningState(cmd.Context(), st); err != nil {
		exitErr("state set", err)
	}
	printJSON(st)
}

func parseWeakness(s string) (model.ContentType, float64, error) {
	name, val, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, fmt.Errorf("%w: weakness %q (want type=value)", model.ErrInvalidInput, s)
	}
	ct, err := model.ParseContentType(name)
	if err != nil {
		return "", 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil || v < 0 || v > 100 {
		return "", 0, fmt.Errorf("%w: weakness %q must be a number in [0, 100]", model.ErrInvalidInput, val)
	}
	return ct, v, nil
}
