// ABOUTME: Version constants for the player
// ABOUTME: Single place the binary and logs identify themselves from
package version

const (
	Version      = "0.1.0"
	Product      = "ampkit"
	Manufacturer = "ampkit project"
)
