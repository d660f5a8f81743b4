package discover

// Reason names the first rule an item broke. The empty reason means the
// item is acceptable.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNoImage       Reason = "no_image"
	ReasonBannedArtist  Reason = "banned_artist"
	ReasonBannedCulture Reason = "banned_culture"
	ReasonBannedDated   Reason = "banned_dated"
	ReasonSeen          Reason = "seen"
)

var banReasons = map[BanField]Reason{
	BanFieldArtist:  ReasonBannedArtist,
	BanFieldCulture: ReasonBannedCulture,
	BanFieldDated:   ReasonBannedDated,
}

// Evaluate applies the rejection rules in order: missing image, artist ban,
// culture ban, dated ban, recently seen.
func Evaluate(item Item, bans BanSet, seen SeenSet) Reason {
	if !item.HasImage() {
		return ReasonNoImage
	}

	for _, field := range banFields {
		if bans.Bans(field, itemField(item, field)) {
			return banReasons[field]
		}
	}

	if item.ID != nil && seen.Has(*item.ID) {
		return ReasonSeen
	}

	return ReasonNone
}

func Violates(item Item, bans BanSet, seen SeenSet) bool {
	return Evaluate(item, bans, seen) != ReasonNone
}

func itemField(item Item, field BanField) string {
	switch field {
	case BanFieldArtist:
		return item.Artist
	case BanFieldCulture:
		return item.Culture
	case BanFieldDated:
		return item.Dated
	default:
		return ""
	}
}
