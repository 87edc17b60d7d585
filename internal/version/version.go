// ABOUTME: Version information for the player
// ABOUTME: Reported by the -version flag and logged at startup
package version

import "fmt"

const (
	// Product is the program name
	Product = "termvid"

	// Manufacturer is the publishing organization
	Manufacturer = "Resonate"

	// Version is the release version
	Version = "0.1.0"
)

// String returns the human-readable version line
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
