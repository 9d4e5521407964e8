package config

import "runtime"

const (
	// DefaultDatabasePath is the default sqlite file for saved annotations
	DefaultDatabasePath = "./klippings.db"

	// DefaultOutputPath is where the rendered notes document lands
	DefaultOutputPath = "./notes.md"

	// DefaultWindowSize is the number of context units on each side of a match
	DefaultWindowSize = 2

	// DefaultFuzzyThreshold is the minimum similarity for fuzzy matches
	DefaultFuzzyThreshold = 0.75
)

// DefaultClippingsPath returns the usual mount point of a connected Kindle's
// clippings file, when the platform has one.
func DefaultClippingsPath() string {
	if runtime.GOOS == "darwin" {
		return "/Volumes/Kindle/documents/My Clippings.txt"
	}
	return ""
}
