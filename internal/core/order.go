package core

import (
	"slices"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing an entry date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02",
}

// ParseEntryDate parses the caller-supplied date string of an entry.
// The boolean is false when no known layout matches.
func ParseEntryDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortEntries orders entries ascending by parsed date, in place.
// The sort is stable, so entries with equal dates keep their incoming
// order. Unparseable dates sort after every parseable one.
func SortEntries(entries []TimeEntry) {
	type keyed struct {
		t  time.Time
		ok bool
	}
	keys := make(map[string]keyed, len(entries))
	for _, e := range entries {
		t, ok := ParseEntryDate(e.Date)
		keys[e.ID] = keyed{t: t, ok: ok}
	}
	slices.SortStableFunc(entries, func(a, b TimeEntry) int {
		ka, kb := keys[a.ID], keys[b.ID]
		switch {
		case ka.ok && !kb.ok:
			return -1
		case !ka.ok && kb.ok:
			return 1
		case !ka.ok && !kb.ok:
			return 0
		}
		return ka.t.Compare(kb.t)
	})
}
