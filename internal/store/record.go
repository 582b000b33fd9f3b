package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the metadata persisted for one fingerprint.
// The fingerprint itself is the store key, never part of the value.
type Record struct {
	// Length is the length of the password the fingerprint was computed
	// from. It is the secondary match signal: a fingerprint collision
	// between passwords of different lengths is filtered out by the
	// caller before it ever reaches the store.
	Length int

	// Email is the account that last confirmed this password, or empty.
	// A record with no email is dead: it tracks nobody and is removed on
	// the next save pass. Across the whole store a given email appears on
	// at most one record; the save procedure enforces this.
	Email string

	// SavedAt is when Email last confirmed this password. Zero for dead
	// records.
	SavedAt time.Time
}

// Live reports whether the record still tracks an account.
func (r Record) Live() bool {
	return r.Email != ""
}

// recordJSON is the persisted wire form of a Record.
// The date is RFC3339 and omitted together with the email when the record
// is dead, so dead records serialize to just their length.
type recordJSON struct {
	Length  int    `json:"length"`
	Email   string `json:"email,omitempty"`
	SavedAt string `json:"date,omitempty"`
}

// EncodeRecord serializes a record to its persisted JSON form.
func EncodeRecord(r Record) ([]byte, error) {
	enc := recordJSON{
		Length: r.Length,
		Email:  r.Email,
	}
	if !r.SavedAt.IsZero() {
		enc.SavedAt = r.SavedAt.UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

// DecodeRecord parses the persisted JSON form of a record.
// Entries that fail to decode are treated as absent by callers: scans skip
// them with a logged warning rather than failing the whole operation.
func DecodeRecord(data []byte) (Record, error) {
	var dec recordJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return Record{}, fmt.Errorf("failed to decode record: %w", err)
	}

	rec := Record{
		Length: dec.Length,
		Email:  dec.Email,
	}
	if dec.SavedAt != "" {
		t, err := time.Parse(time.RFC3339, dec.SavedAt)
		if err != nil {
			return Record{}, fmt.Errorf("failed to decode record date: %w", err)
		}
		rec.SavedAt = t
	}
	return rec, nil
}
