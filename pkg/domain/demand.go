package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// DemandVector is a list of demand entries. Its JSON form may be a list of
// {"sector","amount"} objects, an object mapping sector ids to amounts, or
// a dense array of amounts aligned to sector indices.
type DemandVector []DemandEntry

// UnmarshalJSON accepts the three demand encodings.
func (v *DemandVector) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = nil
		return nil
	}
	switch trimmed[0] {
	case '{':
		var byID map[string]float64
		if err := json.Unmarshal(trimmed, &byID); err != nil {
			return fmt.Errorf("demand object: %w", err)
		}
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out := make(DemandVector, 0, len(ids))
		for _, id := range ids {
			out = append(out, DemandEntry{Sector: id, Amount: byID[id]})
		}
		*v = out
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("demand array: %w", err)
		}
		out := make(DemandVector, 0, len(raw))
		for i, item := range raw {
			item = bytes.TrimSpace(item)
			if len(item) > 0 && item[0] == '{' {
				var entry DemandEntry
				if err := json.Unmarshal(item, &entry); err != nil {
					return fmt.Errorf("demand entry %d: %w", i, err)
				}
				out = append(out, entry)
				continue
			}
			var amount float64
			if err := json.Unmarshal(item, &amount); err != nil {
				return fmt.Errorf("demand entry %d: %w", i, err)
			}
			idx := i
			out = append(out, DemandEntry{Index: &idx, Amount: amount})
		}
		*v = out
		return nil
	default:
		return fmt.Errorf("demand must be an array or an object")
	}
}
