package tree

import "fmt"

// Defaults for Options.
const (
	DefaultTotalItems         = 110000
	DefaultMinPerFolder       = 1000
	DefaultPromoteProbability = 0.3
	DefaultMaxActiveParents   = 50
	DefaultProgressEvery      = 10000
)

// Options configures a Builder.
type Options struct {
	// TotalItems is the target number of emitted items, folders included.
	TotalItems int

	// MinPerFolder is the file floor applied to each non-root folder before
	// the remaining budget is spread at random. It also sizes the folder
	// budget: TotalItems / (MinPerFolder + 1).
	MinPerFolder int

	// PromoteProbability is the chance a new folder can itself receive
	// children.
	PromoteProbability float64

	// MaxActiveParents caps the set of folders eligible for new children.
	// The oldest is evicted first.
	MaxActiveParents int

	// ProgressEvery is the item interval between progress reports.
	// Zero disables them.
	ProgressEvery int

	// Progress, if set, receives each progress report.
	Progress func(Progress)
}

// DefaultOptions returns the stock generation settings.
func DefaultOptions() Options {
	return Options{
		TotalItems:         DefaultTotalItems,
		MinPerFolder:       DefaultMinPerFolder,
		PromoteProbability: DefaultPromoteProbability,
		MaxActiveParents:   DefaultMaxActiveParents,
		ProgressEvery:      DefaultProgressEvery,
	}
}

// Validate reports the first unusable setting wrapped in ErrInvalidConfig.
func (o Options) Validate() error {
	switch {
	case o.TotalItems <= 0:
		return fmt.Errorf("%w: total items must be positive, got %d", ErrInvalidConfig, o.TotalItems)
	case o.MinPerFolder < 0:
		return fmt.Errorf("%w: min per folder must not be negative, got %d", ErrInvalidConfig, o.MinPerFolder)
	case o.MinPerFolder >= o.TotalItems:
		return fmt.Errorf("%w: min per folder (%d) must be below total items (%d)",
			ErrInvalidConfig, o.MinPerFolder, o.TotalItems)
	case o.PromoteProbability < 0 || o.PromoteProbability > 1:
		return fmt.Errorf("%w: promote probability must be within [0, 1], got %g",
			ErrInvalidConfig, o.PromoteProbability)
	case o.MaxActiveParents <= 0:
		return fmt.Errorf("%w: max active parents must be positive, got %d", ErrInvalidConfig, o.MaxActiveParents)
	case o.ProgressEvery < 0:
		return fmt.Errorf("%w: progress interval must not be negative, got %d", ErrInvalidConfig, o.ProgressEvery)
	}
	return nil
}

// TargetFolders is the folder count the budget aims for, root included.
func (o Options) TargetFolders() int {
	return o.TotalItems / (o.MinPerFolder + 1)
}
