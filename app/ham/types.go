package ham

// Harvard Art Museums object API payloads. Every field is optional upstream,
// so scalars are pointers and nil means the key was absent or null.

type Person struct {
	Name *string `json:"name"`
}

type Image struct {
	BaseImageURL *string `json:"baseimageurl"`
}

type Record struct {
	ID              *int64   `json:"id"`
	Title           *string  `json:"title"`
	People          []Person `json:"people"`
	Culture         *string  `json:"culture"`
	Dated           *string  `json:"dated"`
	PrimaryImageURL *string  `json:"primaryimageurl"`
	Images          []Image  `json:"images"`
}

type Info struct {
	TotalRecords int `json:"totalrecords"`
	Pages        int `json:"pages"`
	Page         int `json:"page"`
}

type ObjectResponse struct {
	Info    *Info    `json:"info"`
	Records []Record `json:"records"`
}

// RecordFields is the fixed field list requested for every random draw.
const RecordFields = "id,title,primaryimageurl,images,culture,dated,people"
