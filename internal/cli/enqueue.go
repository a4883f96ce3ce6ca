package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "enqueue [type:id...]",
		Short: "Queue catalog items for review",
		Long:  "Queue items by key, or every catalog match of --type/--jlpt/--query. Already queued items are left alone.",
		Run:   runEnqueue,
	}

	cmd.Flags().StringP("type", "t", "", "Queue catalog items of this content type")
	cmd.Flags().Int("jlpt", 0, "Queue catalog items of this JLPT level")
	cmd.Flags().StringP("query", "q", "", "Queue catalog items matching this text")
	cmd.Flags().IntP("limit", "l", 50, "Max items to queue from a catalog match")

	RootCmd.AddCommand(cmd)
}

func runEnqueue(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	jlpt, _ := cmd.Flags().GetInt("jlpt")
	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")

	var keys []model.ItemKey
	for _, a := range args {
		k, err := model.ParseItemKey(a)
		if err != nil {
			exitErr("enqueue", err)
		}
		keys = append(keys, k)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if typ != "" || jlpt > 0 || query != "" {
		p := store.SearchParams{Query: query, JLPTLevel: jlpt, Limit: limit}
		if typ != "" {
			if p.ContentType, err = model.ParseContentType(typ); err != nil {
				exitErr("enqueue", err)
			}
		}
		items, err := s.Search(cmd.Context(), p)
		if err != nil {
			exitErr("enqueue", err)
		}
		for _, it := range items {
			keys = append(keys, it.Key())
		}
	}
	if len(keys) == 0 {
		exitErr("enqueue", fmt.Errorf("%w: no items given", model.ErrInvalidInput))
	}

	added, err := s.Enqueue(cmd.Context(), userID, keys)
	if err != nil {
		exitErr("enqueue", err)
	}
	fmt.Printf(`{"ok":true,"queued":%d,"requested":%d}`+"\n", added, len(keys))
}
