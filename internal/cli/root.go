// Package cli implements the nihongo-srs CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/config"
	"github.com/rcliao/nihongo-srs/internal/metadata"
	"github.com/rcliao/nihongo-srs/internal/predictor"
	"github.com/rcliao/nihongo-srs/internal/selector"
	"github.com/rcliao/nihongo-srs/internal/session"
	"github.com/rcliao/nihongo-srs/internal/store"
)

var (
	configPath string
	dbPath     string
	userID     string

	cfg *config.Config
	log *logrus.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "nihongo-srs",
	Short: "Spaced repetition for Japanese characters, words and grammar",
	Long:  "A small CLI around an adaptive SM-2 review engine. SQLite-backed, JSON out, single binary.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			exitErr("load config", err)
		}
		if log, err = config.NewLogger(cfg); err != nil {
			exitErr("logger", err)
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./nihongo-srs.yaml or ~/.nihongo-srs/nihongo-srs.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $NIHONGO_SRS_DB_PATH or ~/.nihongo-srs/srs.db)")
	RootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "default", "Learner id")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DB.Path
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// newCoordinator wires the engine from configuration over s.
func newCoordinator(s *store.SQLiteStore) *session.Coordinator {
	return session.New(s, s, s,
		session.WithSelector(selector.New(cfg.Selector.Weights)),
		session.WithPredictor(predictor.New(cfg.Predictor.Weights, predictor.WithLogger(log))),
		session.WithEnricher(metadata.New(s)),
		session.WithLogger(log),
		session.WithTargetRetention(cfg.Session.TargetRetention),
		session.WithMaxNewItems(cfg.Session.MaxNewItems),
	)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
