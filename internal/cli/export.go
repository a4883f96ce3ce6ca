package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/store"
)

func init() {
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog and the user's learning data as JSON",
		Run:   runExport,
	}
	export.Flags().Bool("catalog-only", false, "Export the catalog without learner data")

	restore := &cobra.Command{
		Use:   "restore",
		Short: "Restore an export from stdin",
		Long:  "Restore JSON produced by export. Catalog items are upserted; review history already present is skipped.",
		Run:   runRestore,
	}

	RootCmd.AddCommand(export, restore)
}

func runExport(cmd *cobra.Command, args []string) {
	catalogOnly, _ := cmd.Flags().GetBool("catalog-only")
	user := userID
	if catalogOnly {
		user = ""
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exp, err := s.ExportAll(cmd.Context(), user)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(exp)
}

func runRestore(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		exitErr("read stdin", err)
	}

	var exp store.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), &exp)
	if err != nil {
		exitErr("restore", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
