// Package config provides configuration management for fixturefs.
package config

// Default configuration values.
const (
	// DefaultTotalItems is the target number of emitted items.
	DefaultTotalItems = 110000

	// DefaultMinPerFolder is the per-folder file floor.
	DefaultMinPerFolder = 1000

	// DefaultOutput is the output path. "-" writes to stdout.
	DefaultOutput = "big.ndjson"

	// DefaultFormat is the record format.
	DefaultFormat = "ndjson"

	// DefaultCompression infers the codec from the output suffix.
	DefaultCompression = "auto"

	// DefaultSummary is the summary format printed after generation.
	DefaultSummary = "pretty"

	// DefaultPromoteProbability is the chance a new folder becomes a parent.
	DefaultPromoteProbability = 0.3

	// DefaultMaxActiveParents caps the active parent set.
	DefaultMaxActiveParents = 50

	// DefaultMinFileSize is the smallest synthesized file size.
	DefaultMinFileSize = "1KiB"

	// DefaultMaxFileSize is the largest synthesized file size.
	DefaultMaxFileSize = "100MiB"

	// DefaultRetentionDays is how long run history is kept.
	DefaultRetentionDays = 30

	// DefaultLogLevel is the log file level.
	DefaultLogLevel = "info"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FIXTUREFS"

	appName = "fixturefs"
)
