package config

import "time"

// Application constants
const (
	AppName = "qpcr-ddct"

	// EnvPrefix namespaces every environment variable: DDCT_SERVER_PORT,
	// DDCT_ANALYSIS_MIN_REPS and so on.
	EnvPrefix = "DDCT"

	// ConfigFileEnv names an explicit YAML config file.
	ConfigFileEnv = "DDCT_CONFIG_FILE"

	DefaultLogFile = "logs/ddct.log"

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Uploads larger than this are rejected before parsing
	DefaultMaxUploadBytes = 32 << 20

	DefaultRequestTimeout = 2 * time.Minute

	// Files analysed at once in batch mode
	DefaultParallel = 4
)
