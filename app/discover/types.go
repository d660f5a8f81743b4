package discover

// Item is the fixed-shape artwork handed back to callers. Every string field
// has a default except ImageURL, whose absence marks the item unusable.
type Item struct {
	ID       *int64 `json:"id,omitempty"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Culture  string `json:"culture"`
	Dated    string `json:"dated"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func (i Item) HasImage() bool {
	return i.ImageURL != ""
}

type BanField string

const (
	BanFieldArtist  BanField = "artist"
	BanFieldCulture BanField = "culture"
	BanFieldDated   BanField = "dated"
)

var banFields = []BanField{BanFieldArtist, BanFieldCulture, BanFieldDated}

func (f BanField) Valid() bool {
	switch f {
	case BanFieldArtist, BanFieldCulture, BanFieldDated:
		return true
	default:
		return false
	}
}

// BanEntry excludes items whose Field equals Value. Value comparison is
// trimmed and case-insensitive; Field comparison is exact.
type BanEntry struct {
	Field BanField `json:"field" yaml:"field"`
	Value string   `json:"value" yaml:"value"`
}

func (b BanEntry) Equal(other BanEntry) bool {
	return b.Field == other.Field && normalizeValue(b.Value) == normalizeValue(other.Value)
}
