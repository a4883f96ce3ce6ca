package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/nihongo-srs/internal/importer"
	"github.com/rcliao/nihongo-srs/internal/model"
	"github.com/rcliao/nihongo-srs/internal/store"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the content catalog",
}

func init() {
	add := &cobra.Command{
		Use:   "add",
		Short: "Add or update a catalog item",
		Run:   runCatalogAdd,
	}
	add.Flags().StringP("type", "t", "", "Content type: character, word, grammar (required)")
	add.Flags().String("id", "", "Content id (required)")
	add.Flags().String("display", "", "Display form (default: the id)")
	add.Flags().String("reading", "", "Reading")
	add.Flags().String("meaning", "", "Meaning")
	add.Flags().Int("jlpt", 0, "JLPT level 1-5")
	add.Flags().Int("difficulty", 0, "Base difficulty 0-100")
	add.Flags().Int("frequency", 0, "Frequency rank (0: unknown)")
	add.Flags().IntP("priority", "p", 0, "Curriculum priority 1-100 (0: default 50)")
	add.Flags().StringSlice("prereq", nil, "Prerequisite content ids")
	add.MarkFlagRequired("type")
	add.MarkFlagRequired("id")

	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "Import catalog items from a JSON or XLSX file",
		Long: "Import catalog items. JSON files hold an array of items; XLSX sheets need a header row with\n" +
			"type, id and optionally display, reading, meaning, jlpt, difficulty, frequency, priority, prerequisites.",
		Args: cobra.ExactArgs(1),
		Run:  runCatalogImport,
	}
	imp.Flags().String("sheet", "", "Sheet name (default: first sheet)")

	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog",
		Long:  "Search ids, display forms, readings and meanings for matching text.",
		Run:   runCatalogSearch,
	}
	search.Flags().StringP("type", "t", "", "Filter by content type")
	search.Flags().Int("jlpt", 0, "Filter by JLPT level")
	search.Flags().IntP("limit", "l", 20, "Max results")

	get := &cobra.Command{
		Use:   "get [type:id]",
		Short: "Show a catalog item and the user's review versions",
		Args:  cobra.ExactArgs(1),
		Run:   runCatalogGet,
	}

	catalogCmd.AddCommand(add, imp, search, get)
	RootCmd.AddCommand(catalogCmd)
}

func runCatalogAdd(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	id, _ := cmd.Flags().GetString("id")
	display, _ := cmd.Flags().GetString("display")
	reading, _ := cmd.Flags().GetString("reading")
	meaning, _ := cmd.Flags().GetString("meaning")
	jlpt, _ := cmd.Flags().GetInt("jlpt")
	diff, _ := cmd.Flags().GetInt("difficulty")
	freq, _ := cmd.Flags().GetInt("frequency")
	prio, _ := cmd.Flags().GetInt("priority")
	prereqs, _ := cmd.Flags().GetStringSlice("prereq")

	ct, err := model.ParseContentType(typ)
	if err != nil {
		exitErr("catalog add", err)
	}
	if display == "" {
		display = id
	}
	item := model.CatalogItem{
		ContentType:        ct,
		ContentID:          strings.TrimSpace(id),
		Display:            display,
		Reading:            reading,
		Meaning:            meaning,
		JLPTLevel:          jlpt,
		BaseDifficulty:     diff,
		FrequencyRank:      freq,
		CurriculumPriority: prio,
		PrerequisiteIDs:    prereqs,
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if _, err := s.PutCatalogItems(cmd.Context(), []model.CatalogItem{item}); err != nil {
		exitErr("catalog add", err)
	}
	saved, err := s.CatalogItem(cmd.Context(), item.Key())
	if err != nil {
		exitErr("catalog add", err)
	}
	printJSON(saved)
}

func runCatalogImport(cmd *cobra.Command, args []string) {
	sheet, _ := cmd.Flags().GetString("sheet")

	res, err := importer.ReadFile(args[0], sheet)
	if err != nil {
		exitErr("read "+args[0], err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := s.PutCatalogItems(cmd.Context(), res.Items)
	if err != nil {
		exitErr("import", err)
	}
	log.WithField("file", args[0]).WithField("imported", n).Info("catalog import")
	printJSON(map[string]any{
		"ok":       len(res.Errors) == 0,
		"imported": n,
		"read":     res.Read,
		"skipped":  res.Skipped(),
		"errors":   res.Errors,
	})
}

func runCatalogSearch(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	jlpt, _ := cmd.Flags().GetInt("jlpt")
	limit, _ := cmd.Flags().GetInt("limit")

	var ct model.ContentType
	if typ != "" {
		var err error
		if ct, err = model.ParseContentType(typ); err != nil {
			exitErr("search", err)
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		Query:       strings.Join(args, " "),
		ContentType: ct,
		JLPTLevel:   jlpt,
		Limit:       limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(results)
}

func runCatalogGet(cmd *cobra.Command, args []string) {
	key, err := model.ParseItemKey(args[0])
	if err != nil {
		exitErr("get", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	item, err := s.CatalogItem(cmd.Context(), key)
	if err != nil {
		exitErr("get", err)
	}
	versions, err := s.ReviewHistory(cmd.Context(), userID, key)
	if err != nil {
		exitErr("review history", err)
	}
	dependents, err := s.Dependents(cmd.Context(), key.ContentID)
	if err != nil {
		exitErr("dependents", err)
	}

	printJSON(map[string]any{
		"item":       item,
		"versions":   versions,
		"dependents": dependents,
	})
}
