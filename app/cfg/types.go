package cfg

type Cfg struct {
	// Catalog
	HAMAPIKey      string
	HAMBaseURL     string
	RequestTimeout int
	RateLimit      float64
	RateBurst      int
	BreakerEnabled bool

	// Retrieval
	MaxTries  int
	SeenLimit int
	BansFile  string

	// Application configuration
	DBPath           string
	Port             string
	APIAccessKey     string
	PageCountRefresh int
	WorkerCount      int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
