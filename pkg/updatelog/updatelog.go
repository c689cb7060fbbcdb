// Package updatelog appends structured change entries to a record's
// history column. Histories were stored in three earlier formats (bare
// string, single JSON object, JSON array); decoding tolerates all of
// them and never fails outright.
package updatelog

import (
	"encoding/json"
	"strings"
	"time"
)

// EpochTimestamp marks synthetic entries wrapping pre-structured history.
const EpochTimestamp = "1970-01-01T00:00:00.000Z"

// timestampLayout matches the ISO-8601 millisecond format the history
// column has always used.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Entry is one decoded history record. Every entry carries a timestamp
// plus arbitrary fields describing what changed.
type Entry map[string]any

// Append decodes the previous history, appends a new timestamped entry
// and serializes the whole sequence back to a JSON array string. The
// degraded flag reports that the previous value was in a legacy or
// unparseable format and was wrapped into a synthetic entry; callers
// should log it as a warning and continue.
func Append(previous string, entry map[string]any) (string, bool, error) {
	return AppendAt(previous, entry, time.Now())
}

// AppendAt is Append with an explicit clock.
func AppendAt(previous string, entry map[string]any, now time.Time) (string, bool, error) {
	rows, degraded := coerce(previous)

	next := map[string]any{
		"timestamp": now.UTC().Format(timestampLayout),
	}
	for k, v := range entry {
		next[k] = v
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return "", degraded, err
	}
	rows = append(rows, json.RawMessage(encoded))

	serialized, err := json.Marshal(rows)
	if err != nil {
		return "", degraded, err
	}

	return string(serialized), degraded, nil
}

// Decode parses a stored history into entries, applying the same
// fallback chain as Append. It never fails: unrecognized input degrades
// to a single synthetic entry.
func Decode(previous string) ([]Entry, bool) {
	rows, degraded := coerce(previous)

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var entry Entry
		if err := json.Unmarshal(row, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, degraded
}

// coerce resolves the previous history into raw array elements. Prior
// entries are kept as raw JSON so re-serialization does not reorder or
// reformat what an earlier version wrote. Tried in order: current array
// format, single bare object, bare JSON string, anything else wrapped
// verbatim under a synthetic epoch entry.
func coerce(previous string) ([]json.RawMessage, bool) {
	if strings.TrimSpace(previous) == "" {
		return []json.RawMessage{}, false
	}

	raw := []byte(previous)

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err == nil {
		if allTimestampedObjects(rows) {
			return rows, false
		}
		return syntheticEntry(previous), true
	}

	var single map[string]json.RawMessage
	if err := json.Unmarshal(raw, &single); err == nil {
		if _, ok := single["timestamp"]; ok {
			return []json.RawMessage{json.RawMessage(strings.TrimSpace(previous))}, false
		}
		return syntheticEntry(previous), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) != "" {
			return wrapPrevious(s), true
		}
		return syntheticEntry(previous), true
	}

	return syntheticEntry(previous), true
}

func allTimestampedObjects(rows []json.RawMessage) bool {
	for _, row := range rows {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(row, &obj); err != nil {
			return false
		}
		if _, ok := obj["timestamp"]; !ok {
			return false
		}
	}
	return true
}

func syntheticEntry(previous string) []json.RawMessage {
	return wrapPrevious(previous)
}

func wrapPrevious(value string) []json.RawMessage {
	entry := map[string]any{
		"timestamp": EpochTimestamp,
		"previous":  value,
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		// map[string]string cannot fail to marshal
		return []json.RawMessage{}
	}
	return []json.RawMessage{json.RawMessage(encoded)}
}
