package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/metadata"
	"github.com/rcliao/nihongo-srs/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "metadata [type:id...]",
		Short: "Show derived metadata of catalog items",
		Args:  cobra.MinimumNArgs(1),
		Run:   runMetadata,
	}

	RootCmd.AddCommand(cmd)
}

func runMetadata(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	e := metadata.New(s)
	out := make([]model.ContentMetadata, 0, len(args))
	for _, a := range args {
		key, err := model.ParseItemKey(a)
		if err != nil {
			exitErr("metadata", err)
		}
		meta, err := e.Lookup(cmd.Context(), key)
		if err != nil {
			exitErr("metadata "+a, err)
		}
		out = append(out, meta)
	}
	if len(out) == 1 {
		printJSON(out[0])
		return
	}
	printJSON(out)
}
