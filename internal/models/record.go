// Package models defines the data shapes shared by the local store, the sync
// queue and the sync coordinator: generic entity records, the closed sets of
// entity types and actions, and queued write operations.
package models

import "encoding/json"

// Record is a single entity as the backend serves it: a JSON object keyed by
// string field names. The local store stamps the LastUpdatedField on save;
// everything else is owned by the caller.
type Record map[string]any

// LastUpdatedField is added to every record persisted locally. It is stamped
// by the store, not by the caller.
const LastUpdatedField = "_lastUpdated"

// StringField returns the named field as a string, or "" when absent or not
// a string.
func (r Record) StringField(name string) string {
	v, ok := r[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Clone returns a shallow copy, so stamping fields does not mutate the
// caller's map.
func (r Record) Clone() Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// MarshalRecord serializes a record for storage.
func MarshalRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalRecord deserializes a stored record.
func UnmarshalRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}
