package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/kam-pm/kam/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/kam-pm/kam/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/kam-pm/kam/internal/version.Date={{.Date}}
)
