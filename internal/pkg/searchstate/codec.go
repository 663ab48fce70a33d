package searchstate

import (
	"encoding/json"
	"net/url"
)

// QueryParam is the URL query parameter holding the encoded state.
const QueryParam = "searchQueryState"

var requiredKeys = []string{"mapBounds", "filterState", "pagination"}

// Encode serializes s as JSON, stamping the current schema version.
func Encode(s State) string {
	s.Version = CurrentVersion
	b, err := json.Marshal(s)
	if err != nil {
		// State only holds plain values; Marshal cannot fail on it.
		return ""
	}
	return string(b)
}

// Decode parses an encoded state. It returns the default state and false if
// the value is malformed, lacks one of the required keys, or was written by a
// newer schema version. Payloads without a version key are the legacy
// unversioned shape and are migrated.
func Decode(encoded string) (State, bool) {
	if encoded == "" {
		return Default(), false
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil || raw == nil {
		return Default(), false
	}
	for _, key := range requiredKeys {
		if v, ok := raw[key]; !ok || string(v) == "null" {
			return Default(), false
		}
	}

	version := 0
	if v, ok := raw["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			return Default(), false
		}
	}
	if version > CurrentVersion || version < 0 {
		return Default(), false
	}

	var s State
	if err := json.Unmarshal([]byte(encoded), &s); err != nil {
		return Default(), false
	}
	return migrate(s, version), true
}

// migrate upgrades a decoded state from the given schema version.
func migrate(s State, from int) State {
	if from == 0 {
		// Unversioned URLs predate the sort default being persisted.
		if s.FilterState.Sort.Value == "" {
			s.FilterState.Sort.Value = SortRelevance
		}
	}
	s.Version = CurrentVersion
	return s
}

// FromQuery reads the state from query values, falling back to the default.
// The returned state is normalized.
func FromQuery(q url.Values) State {
	s, _ := Decode(q.Get(QueryParam))
	return s.Normalized()
}

// ApplyToQuery writes the encoded state into q, replacing any previous value.
func ApplyToQuery(q url.Values, s State) {
	q.Set(QueryParam, Encode(s))
}
