package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history [type:id]",
		Short: "Show answered reviews, newest first",
		Args:  cobra.MaximumNArgs(1),
		Run:   runHistory,
	}

	cmd.Flags().IntP("limit", "l", 50, "Max results")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	p := store.HistoryParams{UserID: userID, Limit: limit}
	if len(args) == 1 {
		key, err := model.ParseItemKey(args[0])
		if err != nil {
			exitErr("history", err)
		}
		p.Key = &key
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entries, err := s.History(cmd.Context(), p)
	if err != nil {
		exitErr("history", err)
	}
	if len(entries) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(entries)
}
