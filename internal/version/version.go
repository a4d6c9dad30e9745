// ABOUTME: Version constants for the engine
// ABOUTME: Single source of truth for product identification
package version

const (
	// Product is the product name reported in logs
	Product = "Livethru Engine"

	// Manufacturer identifies the project
	Manufacturer = "Livethru"

	// Version is the software version
	Version = "0.3.0"
)
