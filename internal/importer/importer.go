// Package importer reads catalog items from JSON files and XLSX word lists.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rcliao/nihongo-srs/internal/model"
)

// Result holds the items read from a file and the rows that were rejected.
type Result struct {
	Items  []model.CatalogItem `json:"-"`
	Read   int                 `json:"read"`
	Errors []string            `json:"errors,omitempty"`
}

// Skipped is the number of rows that did not produce an item.
func (r *Result) Skipped() int {
	return r.Read - len(r.Items)
}

func (r *Result) add(row int, item model.CatalogItem, err error) {
	r.Read++
	if err == nil {
		err = item.Validate()
	}
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("row %d: %v", row, err))
		return
	}
	r.Items = append(r.Items, item)
}

// ReadFile picks the reader from the file extension: .json or .xlsx.
// sheet is only used for workbooks; empty means the first sheet.
func ReadFile(path, sheet string) (*Result, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadJSON(f)
	case ".xlsx", ".xlsm":
		wb, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer wb.Close()
		return readWorkbook(wb, sheet)
	default:
		return nil, fmt.Errorf("%w: unsupported import format %q", model.ErrInvalidInput, ext)
	}
}

// ReadJSON decodes a JSON array of catalog items.
func ReadJSON(r io.Reader) (*Result, error) {
	var items []model.CatalogItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decode catalog json: %v", model.ErrInvalidInput, err)
	}
	res := &Result{}
	for i, it := range items {
		res.add(i+1, it, nil)
	}
	return res, nil
}

// ReadXLSX reads a workbook whose first row is a header naming the columns.
func ReadXLSX(r io.Reader, sheet string) (*Result, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()
	return readWorkbook(wb, sheet)
}

// Columns recognised in the header row. Matching ignores case and
// surrounding space; unknown columns are ignored.
const (
	colType          = "type"
	colID            = "id"
	colDisplay       = "display"
	colReading       = "reading"
	colMeaning       = "meaning"
	colJLPT          = "jlpt"
	colDifficulty    = "difficulty"
	colFrequency     = "frequency"
	colPriority      = "priority"
	colPrerequisites = "prerequisites"
)

func readWorkbook(wb *excelize.File, sheet string) (*Result, error) {
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", model.ErrInvalidInput)
		}
		sheet = sheets[0]
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", model.ErrInvalidInput, sheet)
	}

	header := map[string]int{}
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colType, colID} {
		if _, ok := header[required]; !ok {
			return nil, fmt.Errorf("%w: sheet %q has no %q column", model.ErrInvalidInput, sheet, required)
		}
	}

	res := &Result{}
	for i, row := range rows[1:] {
		cell := func(name string) string {
			idx, ok := header[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if strings.Join(row, "") == "" {
			continue
		}
		item, err := parseRow(cell)
		res.add(i+2, item, err)
	}
	return res, nil
}

func parseRow(cell func(string) string) (model.CatalogItem, error) {
	ct, err := model.ParseContentType(cell(colType))
	if err != nil {
		return model.CatalogItem{}, err
	}
	item := model.CatalogItem{
		ContentType: ct,
		ContentID:   cell(colID),
		Display:     cell(colDisplay),
		Reading:     cell(colReading),
		Meaning:     cell(colMeaning),
	}
	if item.Display == "" {
		item.Display = item.ContentID
	}

	ints := []struct {
		col string
		dst *int
	}{
		{colJLPT, &item.JLPTLevel},
		{colDifficulty, &item.BaseDifficulty},
		{colFrequency, &item.FrequencyRank},
		{colPriority, &item.CurriculumPriority},
	}
	for _, f := range ints {
		v := cell(f.col)
		if v == "" {
			continue
		}
		if f.col == colJLPT {
			v = strings.TrimPrefix(strings.ToUpper(v), "N")
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return item, fmt.Errorf("%w: %s %q is not a number", model.ErrInvalidInput, f.col, v)
		}
		*f.dst = n
	}
	if item.JLPTLevel < 0 || item.JLPTLevel > 5 {
		return item, fmt.Errorf("%w: jlpt level %d outside 1..5", model.ErrInvalidInput, item.JLPTLevel)
	}

	item.PrerequisiteIDs = splitList(cell(colPrerequisites))
	return item, nil
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '、'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
