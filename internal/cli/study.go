package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/session"
	"github.com/rcliao/nihongo-srs/internal/srs"
	"github.com/rcliao/nihongo-srs/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Run an interactive review session",
		Long: "Run a review session on stdin. Type the reading or meaning of each prompt; answers are graded by\n" +
			"correctness and speed. With --self-grade, type a quality from 0 to 5 instead. Type q to stop early.\n" +
			"Prompts go to stderr; the session summary is printed to stdout as JSON.",
		Run: runStudy,
	}

	cmd.Flags().IntP("items", "n", 0, "Items in the session (default: session.default_items)")
	cmd.Flags().Bool("self-grade", false, "Grade each answer yourself (0-5)")

	RootCmd.AddCommand(cmd)
}

func runStudy(cmd *cobra.Command, args []string) {
	n, _ := cmd.Flags().GetInt("items")
	selfGrade, _ := cmd.Flags().GetBool("self-grade")
	if n <= 0 {
		n = cfg.Session.DefaultItems
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	report, err := study(cmd.Context(), s, newCoordinator(s), studyOptions{
		userID:    userID,
		items:     n,
		selfGrade: selfGrade,
		in:        cmd.InOrStdin(),
		out:       cmd.ErrOrStderr(),
	})
	if err != nil {
		exitErr("study", err)
	}
	printJSON(report)
}

type studyOptions struct {
	userID    string
	items     int
	selfGrade bool
	in        io.Reader
	out       io.Writer
}

type studyReport struct {
	Summary *session.Summary        `json:"summary"`
	State   model.UserLearningState `json:"state"`
}

// expectedAnswerMs is the answer time that still counts as fluent.
var expectedAnswerMs = map[model.ContentType]float64{
	model.Character: 5000,
	model.Word:      8000,
	model.Grammar:   15000,
}

// study drives one session: prompt, grade, persist each answer, then fold
// the summary into the learner profile.
func study(ctx context.Context, s *store.SQLiteStore, c *session.Coordinator, o studyOptions) (*studyReport, error) {
	sess, err := c.InitializeSession(ctx, o.userID, o.items)
	if err != nil {
		return nil, err
	}
	plan := sess.Plan()
	fmt.Fprintf(o.out, "%d items, about %s\n", len(plan.Items), plan.EstimatedDuration.Round(time.Second))
	for _, r := range plan.Recommendations {
		fmt.Fprintf(o.out, "  * %s\n", r)
	}

	sc := bufio.NewScanner(o.in)
	for item := sess.NextItem(); item != nil; item = sess.NextItem() {
		fmt.Fprintf(o.out, "\n[%s] %s\n> ", item.Key.ContentType, item.Catalog.Display)
		start := time.Now()
		if !sc.Scan() {
			break
		}
		elapsed := float64(time.Since(start).Milliseconds())
		answer := strings.TrimSpace(sc.Text())
		if answer == "q" {
			break
		}

		var q srs.Quality
		if o.selfGrade {
			v, err := strconv.Atoi(answer)
			if err != nil {
				fmt.Fprintln(o.out, "enter a number from 0 to 5")
				continue
			}
			if q, err = srs.ParseQuality(v); err != nil {
				fmt.Fprintln(o.out, err)
				continue
			}
		} else {
			q = srs.QualityFromResponse(matches(item.Catalog, answer), elapsed, expectedAnswerMs[item.Key.ContentType])
		}

		res, err := c.ProcessResponse(sess, session.Response{Key: item.Key, Quality: int(q), ResponseTimeMs: elapsed})
		if err != nil {
			return nil, err
		}
		if err := s.ApplyUpdate(ctx, sess.ID, res.Update); err != nil {
			return nil, fmt.Errorf("save answer: %w", err)
		}
		fmt.Fprintf(o.out, "%s  %s  %s\n", q, item.Catalog.Reading, item.Catalog.Meaning)
		for _, f := range res.Feedback {
			fmt.Fprintf(o.out, "  %s\n", f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	sum, err := c.EndSession(sess)
	if err != nil {
		return nil, err
	}
	state, err := s.ApplySummary(ctx, sum)
	if err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}
	return &studyReport{Summary: sum, State: state}, nil
}

// matches accepts the reading or any comma separated meaning,
// ignoring case and surrounding space.
func matches(item model.CatalogItem, answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return false
	}
	candidates := append([]string{item.Reading}, strings.Split(item.Meaning, ",")...)
	for _, c := range candidates {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" && c == answer {
			return true
		}
	}
	return false
}
