package discover

import (
	"github.com/lysyi3m/veni-vici/app/ham"
)

const (
	DefaultTitle = "Untitled"
	DefaultValue = "Unknown"
)

// Normalize maps a catalog record to an Item. It is total: any missing or
// null field falls back to its default.
func Normalize(record ham.Record) Item {
	item := Item{
		Title:   stringOr(record.Title, DefaultTitle),
		Artist:  DefaultValue,
		Culture: stringOr(record.Culture, DefaultValue),
		Dated:   stringOr(record.Dated, DefaultValue),
	}

	if record.ID != nil {
		id := *record.ID
		item.ID = &id
	}

	if len(record.People) > 0 {
		item.Artist = stringOr(record.People[0].Name, DefaultValue)
	}

	item.ImageURL = stringOr(record.PrimaryImageURL, "")
	if item.ImageURL == "" && len(record.Images) > 0 {
		item.ImageURL = stringOr(record.Images[0].BaseImageURL, "")
	}

	return item
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
