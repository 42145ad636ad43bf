package usecase

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/fekuna/ronary-inventory-service/internal/apperror"
)

// table is a CSV body with case-insensitive column lookup.
type table struct {
	index map[string]int
	rows  [][]string
}

func readTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperror.InvalidArgument("csv", err.Error())
	}
	if len(records) == 0 {
		return nil, apperror.InvalidArgument("csv", "is empty")
	}

	t := &table{index: make(map[string]int), rows: records[1:]}
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if _, dup := t.index[key]; !dup && key != "" {
			t.index[key] = i
		}
	}

	var missing []string
	for _, col := range required {
		if !t.has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperror.InvalidArgument("csv", fmt.Sprintf("missing required columns %s", strings.Join(missing, ", ")))
	}
	return t, nil
}

func (t *table) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
