package discover

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholder values that never take part in ban matching. Banning
// "Unknown" would otherwise lock out every record with a defaulted field.
var sentinels = map[string]struct{}{
	"":        {},
	"unknown": {},
	"n/a":     {},
}

func normalizeValue(s string) string {
	// cases.Caser is stateful, so one per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

func isSentinel(normalized string) bool {
	_, ok := sentinels[normalized]
	return ok
}

// BanSet buckets normalized ban values per field. Buckets are disjoint.
type BanSet struct {
	buckets map[BanField]map[string]struct{}
}

func NewBanSet(entries []BanEntry) BanSet {
	buckets := make(map[BanField]map[string]struct{}, len(banFields))
	for _, field := range banFields {
		buckets[field] = make(map[string]struct{})
	}

	for _, entry := range entries {
		bucket, ok := buckets[entry.Field]
		if !ok {
			continue
		}
		value := normalizeValue(entry.Value)
		if value == "" {
			continue
		}
		bucket[value] = struct{}{}
	}

	return BanSet{buckets: buckets}
}

// Bans reports whether value is banned under field. Sentinel values are
// never banned.
func (s BanSet) Bans(field BanField, value string) bool {
	normalized := normalizeValue(value)
	if isSentinel(normalized) {
		return false
	}
	_, ok := s.buckets[field][normalized]
	return ok
}

func (s BanSet) Len() int {
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}

// BanList is the caller-owned ordered ban collection. Add and Remove return
// new slices and leave the receiver untouched.
type BanList []BanEntry

func (l BanList) Contains(entry BanEntry) bool {
	for _, existing := range l {
		if existing.Equal(entry) {
			return true
		}
	}
	return false
}

func (l BanList) Add(entry BanEntry) (BanList, bool) {
	if !entry.Field.Valid() || strings.TrimSpace(entry.Value) == "" {
		return l, false
	}
	if l.Contains(entry) {
		return l, false
	}

	next := make(BanList, 0, len(l)+1)
	next = append(next, l...)
	next = append(next, entry)
	return next, true
}

func (l BanList) Remove(entry BanEntry) (BanList, bool) {
	next := make(BanList, 0, len(l))
	removed := false
	for _, existing := range l {
		if existing.Equal(entry) {
			removed = true
			continue
		}
		next = append(next, existing)
	}
	return next, removed
}
