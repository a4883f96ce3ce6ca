package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "link [type:id]",
		Short: "Add or remove a prerequisite of a catalog item",
		Args:  cobra.ExactArgs(1),
		Run:   runLink,
	}

	cmd.Flags().StringP("prereq", "p", "", "Prerequisite content id (required)")
	cmd.Flags().Bool("rm", false, "Remove the link")
	cmd.MarkFlagRequired("prereq")

	catalogCmd.AddCommand(cmd)
}

func runLink(cmd *cobra.Command, args []string) {
	prereq, _ := cmd.Flags().GetString("prereq")
	rm, _ := cmd.Flags().GetBool("rm")

	key, err := model.ParseItemKey(args[0])
	if err != nil {
		exitErr("link", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	link, err := s.Link(cmd.Context(), store.LinkParams{
		Item:           key,
		PrerequisiteID: prereq,
		Remove:         rm,
	})
	if err != nil {
		exitErr("link", err)
	}

	printJSON(link)
}
