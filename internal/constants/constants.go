package constants

// Pagination constants
const (
	// DefaultItemsPerPage is the default number of items returned by the list endpoint
	DefaultItemsPerPage = 20

	// MaxItemsPerPage is the maximum number of items that can be requested per page
	MaxItemsPerPage = 100
)

// Server constants
const (
	// DefaultPort is the port the HTTP server listens on
	DefaultPort = 3001

	// MaxRequestBodyBytes limits POST/PUT/PATCH bodies (1 MB)
	MaxRequestBodyBytes = 1 << 20

	// ShutdownTimeoutSeconds is how long outstanding requests get during graceful shutdown
	ShutdownTimeoutSeconds = 30
)

// Rate limiting constants
const (
	// DefaultRequestsPerSecond is the default rate limit for API endpoints
	DefaultRequestsPerSecond = 10

	// DefaultBurstSize is the default burst size for rate limiting
	DefaultBurstSize = 20

	// LimiterCleanupIntervalSeconds is how often idle per-IP limiters are dropped
	LimiterCleanupIntervalSeconds = 3600
)

// Item store constants
const (
	// DefaultDataPath is the default location of the items file
	DefaultDataPath = "data/items.json"

	// DataFileMode is the permission used when rewriting the items file
	DataFileMode = 0644
)
