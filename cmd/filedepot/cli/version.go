package cli

import "fmt"

// These are set via the compiler's -ldflags at release time.
var (
	VersionName = "n/a"
	GitCommit   = "n/a"
	BuildDate   = "n/a"
)

func PrintVersion() {
	fmt.Printf("Version: %s\nCommit: %s\nDate: %s\n", VersionName, GitCommit, BuildDate)
}
