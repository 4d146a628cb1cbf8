package datastore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"useeio/pkg/domain"
)

var (
	sectorColumns    = []string{"index", "id", "name", "code", "location", "description"}
	flowColumns      = []string{"index", "id", "name", "category", "subCategory", "unit", "uuid"}
	indicatorColumns = []string{"index", "id", "name", "code", "unit", "group"}
)

// table is a header-addressed CSV file. Column lookup is case-insensitive
// and columns may appear in any order.
type table struct {
	cols    map[string]int
	records [][]string
}

func readTable(r io.Reader, required ...string) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: missing header row")
	}
	t := &table{cols: make(map[string]int, len(records[0])), records: records[1:]}
	for i, name := range records[0] {
		t.cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := t.cols[strings.ToLower(name)]; !ok {
			return nil, fmt.Errorf("read csv: missing column %q", name)
		}
	}
	return t, nil
}

func (t *table) get(rec []string, name string) string {
	i, ok := t.cols[strings.ToLower(name)]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (t *table) index(line int, rec []string) (int, error) {
	raw := t.get(rec, "index")
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("row %d: invalid index %q", line+2, raw)
	}
	return idx, nil
}

func readSectors(r io.Reader) ([]domain.Sector, error) {
	t, err := readTable(r, "index", "id")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Sector, 0, len(t.records))
	for i, rec := range t.records {
		idx, err := t.index(i, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Sector{
			ID:          t.get(rec, "id"),
			Index:       idx,
			Name:        t.get(rec, "name"),
			Code:        t.get(rec, "code"),
			Location:    t.get(rec, "location"),
			Description: t.get(rec, "description"),
		})
	}
	return out, nil
}

func readFlows(r io.Reader) ([]domain.Flow, error) {
	t, err := readTable(r, "index", "id")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Flow, 0, len(t.records))
	for i, rec := range t.records {
		idx, err := t.index(i, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Flow{
			ID:          t.get(rec, "id"),
			Index:       idx,
			Name:        t.get(rec, "name"),
			Category:    t.get(rec, "category"),
			SubCategory: t.get(rec, "subCategory"),
			Unit:        t.get(rec, "unit"),
			UUID:        t.get(rec, "uuid"),
		})
	}
	return out, nil
}

func readIndicators(r io.Reader) ([]domain.Indicator, error) {
	t, err := readTable(r, "index", "id")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Indicator, 0, len(t.records))
	for i, rec := range t.records {
		idx, err := t.index(i, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Indicator{
			ID:    t.get(rec, "id"),
			Index: idx,
			Name:  t.get(rec, "name"),
			Code:  t.get(rec, "code"),
			Unit:  t.get(rec, "unit"),
			Group: t.get(rec, "group"),
		})
	}
	return out, nil
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func sectorRows(items []domain.Sector) [][]string {
	rows := make([][]string, len(items))
	for i, s := range items {
		rows[i] = []string{strconv.Itoa(s.Index), s.ID, s.Name, s.Code, s.Location, s.Description}
	}
	return rows
}

func flowRows(items []domain.Flow) [][]string {
	rows := make([][]string, len(items))
	for i, f := range items {
		rows[i] = []string{strconv.Itoa(f.Index), f.ID, f.Name, f.Category, f.SubCategory, f.Unit, f.UUID}
	}
	return rows
}

func indicatorRows(items []domain.Indicator) [][]string {
	rows := make([][]string, len(items))
	for i, ind := range items {
		rows[i] = []string{strconv.Itoa(ind.Index), ind.ID, ind.Name, ind.Code, ind.Unit, ind.Group}
	}
	return rows
}
