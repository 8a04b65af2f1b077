// Package contracts holds the types shared between the dashboard server and
// its browser clients.
package contracts

const (
	// Version is the current version of the dashboard
	Version = "0.3.0"

	// APIVersion is the version of the HTTP and push message formats
	APIVersion = "v1"
)

// Set during build with -ldflags "-X koidash/pkg/contracts.BuildTime=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)
