package meli

import (
	"encoding/json"
	"strconv"
)

// Item is one search hit. Seller search answers bare id strings, category
// search answers listing objects; Record stays nil for the bare-id shape and
// Raw keeps the element verbatim for downstream storage.
type Item struct {
	ID     string
	Record map[string]any
	Raw    json.RawMessage
}

// ExtractItems tolerates the two marketplace response shapes: a wrapped
// search payload {"results":[...]} and a bare JSON array. Anything else,
// including malformed JSON, yields an empty slice so callers proceed with
// empty data.
func ExtractItems(body []byte) []Item {
	var wrapped struct {
		Results []json.RawMessage `json:"results"`
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Results) > 0 {
		elems = wrapped.Results
	} else {
		var arr []json.RawMessage
		if err := json.Unmarshal(body, &arr); err != nil || len(arr) == 0 {
			return nil
		}
		elems = arr
	}

	out := make([]Item, 0, len(elems))
	for _, raw := range elems {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			if id != "" {
				out = append(out, Item{ID: id, Raw: raw})
			}
			continue
		}

		var rec map[string]any
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		it := Item{ID: jsonString(rec["id"]), Record: rec, Raw: raw}
		if it.ID == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Str returns a pointer to the string field, nil when absent or not a
// string. Bare-id items have no record, so every field reads nil.
func (it Item) Str(key string) *string {
	if it.Record == nil {
		return nil
	}
	if s, ok := it.Record[key].(string); ok {
		return &s
	}
	return nil
}

// Num returns a pointer to the numeric field, nil when absent.
func (it Item) Num(key string) *float64 {
	if it.Record == nil {
		return nil
	}
	if f, ok := it.Record[key].(float64); ok {
		return &f
	}
	return nil
}

// SellerID prefers the nested seller object's id and falls back to a flat
// seller_id field.
func (it Item) SellerID() *string {
	if it.Record == nil {
		return nil
	}
	if seller, ok := it.Record["seller"].(map[string]any); ok {
		if s := jsonString(seller["id"]); s != "" {
			return &s
		}
	}
	if s := jsonString(it.Record["seller_id"]); s != "" {
		return &s
	}
	return nil
}

// jsonString renders ids that arrive either as strings or numbers.
func jsonString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
