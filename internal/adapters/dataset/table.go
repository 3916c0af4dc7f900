package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// table is one CSV file addressed by header name.
type table struct {
	name string
	cols map[string]int
	rows [][]string
}

func readTable(path, name string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseTable(f, name)
}

func parseTable(r io.Reader, name string) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	t := &table{name: name}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if blank(record) {
			continue
		}
		if t.cols == nil {
			t.cols = make(map[string]int, len(record))
			for i, h := range record {
				h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
				if _, dup := t.cols[h]; !dup {
					t.cols[h] = i
				}
			}
			continue
		}
		t.rows = append(t.rows, record)
	}
	if t.cols == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	return t, nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// require fails unless every column group has at least one present alias.
func (t *table) require(groups ...[]string) error {
	for _, aliases := range groups {
		if !t.has(aliases...) {
			return fmt.Errorf("%s: column %s: %w", t.name, aliases[0], ErrMissingColumn)
		}
	}
	return nil
}

func (t *table) has(aliases ...string) bool {
	for _, a := range aliases {
		if _, ok := t.cols[a]; ok {
			return true
		}
	}
	return false
}

// get returns the first non-empty trimmed value among the aliases present
// in the header. Ragged rows read as empty.
func (t *table) get(row []string, aliases ...string) string {
	for _, a := range aliases {
		i, ok := t.cols[a]
		if !ok || i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "null") {
			continue
		}
		return v
	}
	return ""
}
