package contracts

import "fmt"

const (
	// Version is the current version of the application
	Version = "0.3.0"

	// DataFormatVersion is the version of the output workbook layout
	DataFormatVersion = "v1"

	// APIVersion is the version of the HTTP API
	APIVersion = "v1"
)

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// GetVersionString returns a formatted version string
func GetVersionString() string {
	if GitCommit == "unknown" {
		return fmt.Sprintf("qPCR ddCt v%s", Version)
	}
	return fmt.Sprintf("qPCR ddCt v%s (%s)", Version, GitCommit)
}
