package core

import (
	"fmt"

	units "github.com/docker/go-units"
)

// Config mirrors the shape of the teacher's storage.SettingsT: a single
// flat struct of tunables, with defaults applied by Validate rather than
// scattered across constructors.
type Config struct {
	// ChunkSize is the minimum Byte Source read size. Accepts human sizes
	// ("64KiB") via ParseConfig; the zero value defaults to 64KiB (§4.A).
	ChunkSize int

	// DetectionBudgetBytes and DetectionBudgetLines bound the Dialect
	// Detector's prefix (§4.C): the smaller of the two limits applies.
	DetectionBudgetBytes int
	DetectionBudgetLines int

	// NProfile bounds the Type Inferencer's profiling prefix (§3, §4.E).
	NProfile int

	// ReservoirCapacity is R, the fixed reservoir size (§3).
	ReservoirCapacity int

	// QuantileEpsilon is the GK sketch's guaranteed rank error ε (§3).
	QuantileEpsilon float64

	// HeavyHitterCapacityFactor sizes the Misra-Gries/SpaceSaving mode
	// tracker as factor x 32 entries (§3, default 32, so 1024 entries). The
	// capacity is fixed per column; no expected-distinct estimate enters it.
	HeavyHitterCapacityFactor int

	// DistinctSketchError is the target relative error for the HyperLogLog
	// distinct-count estimator (§3, default ~1%).
	DistinctSketchError float64

	// MaxNumericalPairs bounds the bivariate pair selection (§4.F, default
	// covers all pairs up to TopVarianceColumns numerical columns).
	TopVarianceColumns int
	MaxNumericalPairs  int

	// ReservoirSeed seeds Algorithm R. Fixed by default for reproducibility
	// (§6 "Environment").
	ReservoirSeed int64

	// EnablePCA and EnableClusters toggle the multivariate section (§6).
	EnablePCA      bool
	EnableClusters int // k for k-means; 0 disables, negative requests elbow heuristic

	// MaxDiagnosticExamples bounds "first-K examples" retained per kind (§7).
	MaxDiagnosticExamples int
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:                 64 * 1024,
		DetectionBudgetBytes:      1024 * 1024,
		DetectionBudgetLines:      1000,
		NProfile:                  1000,
		ReservoirCapacity:         2048,
		QuantileEpsilon:           0.01,
		HeavyHitterCapacityFactor: 32,
		DistinctSketchError:       0.01,
		TopVarianceColumns:        5,
		MaxNumericalPairs:         0, // 0 = unbounded given TopVarianceColumns
		ReservoirSeed:             42,
		EnablePCA:                 true,
		EnableClusters:            -1,
		MaxDiagnosticExamples:     8,
	}
}

// ParseConfig parses human-readable size strings ("64KiB", "1MiB") for the
// size-bearing fields, matching the teacher's preference (via
// github.com/docker/go-units, present in its go.mod) for readable
// configuration surfaces over raw byte counts.
func ParseConfig(chunkSize, detectionBudget string) (Config, error) {
	cfg := DefaultConfig()
	if chunkSize != "" {
		n, err := units.RAMInBytes(chunkSize)
		if err != nil {
			return cfg, fmt.Errorf("parsing chunk size %q: %w", chunkSize, err)
		}
		cfg.ChunkSize = int(n)
	}
	if detectionBudget != "" {
		n, err := units.RAMInBytes(detectionBudget)
		if err != nil {
			return cfg, fmt.Errorf("parsing detection budget %q: %w", detectionBudget, err)
		}
		cfg.DetectionBudgetBytes = int(n)
	}
	return cfg, cfg.Validate()
}

// Validate clamps and rejects contradictory settings.
func (c *Config) Validate() error {
	if c.ChunkSize < 64*1024 {
		c.ChunkSize = 64 * 1024
	}
	if c.DetectionBudgetBytes <= 0 {
		c.DetectionBudgetBytes = 1024 * 1024
	}
	if c.DetectionBudgetLines <= 0 {
		c.DetectionBudgetLines = 1000
	}
	if c.NProfile <= 0 || c.NProfile > 1000 {
		c.NProfile = 1000
	}
	if c.ReservoirCapacity < 3 {
		return fmt.Errorf("reservoir capacity must be >= 3, got %d", c.ReservoirCapacity)
	}
	if c.QuantileEpsilon <= 0 || c.QuantileEpsilon >= 1 {
		c.QuantileEpsilon = 0.01
	}
	if c.HeavyHitterCapacityFactor <= 0 {
		c.HeavyHitterCapacityFactor = 32
	}
	if c.DistinctSketchError <= 0 {
		c.DistinctSketchError = 0.01
	}
	if c.TopVarianceColumns <= 0 {
		c.TopVarianceColumns = 5
	}
	if c.MaxDiagnosticExamples <= 0 {
		c.MaxDiagnosticExamples = 8
	}
	return nil
}
