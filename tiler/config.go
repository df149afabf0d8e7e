package tiler

import (
	"fmt"
	"runtime"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/persistence"
	"github.com/lodtiler/octiler/internal/tilererr"
)

// Quality selects which SamplingStrategy variant a run uses (§6's "quality"
// configuration entry).
type Quality string

const (
	QualityRandomSorted Quality = "RANDOM_SORTED"
	QualityGridCentered Quality = "GRID_CENTERED"
	QualityMinDistance  Quality = "MIN_DISTANCE"
)

// AlgorithmVariant selects which TilingAlgorithm the driver dispatches each
// batch to (§4.2).
type AlgorithmVariant string

const (
	AlgorithmV1 AlgorithmVariant = "V1"
	AlgorithmV2 AlgorithmVariant = "V2"
)

// Config mirrors the teacher's TilerOptions (internal/tiler/options.go):
// one flat, copyable struct holding every setting the core recognizes
// (§6's configuration table), expanded from LAS-specific fields to this
// module's attribute-schema-driven domain.
type Config struct {
	OutputDir string

	Spacing          float64
	DiagonalFraction float64
	MaxDepth         int
	MaxPointsPerNode int
	Scale            float64
	OutputFormat     string
	Attributes       []data.AttributeKind
	Quality          Quality
	Concurrency      int
	MaxMemoryUsageMiB int64
	StoreOption      persistence.StoreOption
	Algorithm        AlgorithmVariant
	// DesiredParallelism drives TilingAlgorithmV2's target_depth; ignored
	// under AlgorithmV1.
	DesiredParallelism int
	// HierarchyStepSize is carried into the tree-index sidecar verbatim
	// (§4.4); it does not affect tiling behavior.
	HierarchyStepSize int
}

// Copy deep-copies c, grounded on the teacher's TilerOptions.Copy —
// generalized from its nested-options cloning into a slice-aware copy of
// Attributes.
func (c *Config) Copy() *Config {
	cp := *c
	if c.Attributes != nil {
		cp.Attributes = make([]data.AttributeKind, len(c.Attributes))
		copy(cp.Attributes, c.Attributes)
	}
	return &cp
}

// Validate raises a ConfigurationError for any setting that would make the
// run meaningless before ingestion begins (§7 "ConfigurationError ...
// fatal before ingestion begins").
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output directory must be set", tilererr.ErrConfiguration)
	}
	if c.Spacing < 0 {
		return fmt.Errorf("%w: spacing must be >= 0, got %v", tilererr.ErrConfiguration, c.Spacing)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("%w: max_depth must be positive, got %v", tilererr.ErrConfiguration, c.MaxDepth)
	}
	if c.MaxPointsPerNode <= 0 {
		return fmt.Errorf("%w: max_points_per_node must be positive, got %v", tilererr.ErrConfiguration, c.MaxPointsPerNode)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive, got %v", tilererr.ErrConfiguration, c.Scale)
	}
	if _, err := data.NewSchema(c.Attributes); err != nil {
		return fmt.Errorf("%w: %v", tilererr.ErrConfiguration, err)
	}
	switch c.Quality {
	case QualityRandomSorted, QualityGridCentered, QualityMinDistance:
	default:
		return fmt.Errorf("%w: unknown quality %q", tilererr.ErrConfiguration, c.Quality)
	}
	switch c.Algorithm {
	case AlgorithmV1, AlgorithmV2:
	default:
		return fmt.Errorf("%w: unknown algorithm %q", tilererr.ErrConfiguration, c.Algorithm)
	}
	return nil
}

// concurrencyOrDefault returns Concurrency if set, else the hardware thread
// count (§4.7 "default = hardware thread count").
func (c *Config) concurrencyOrDefault() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return runtime.NumCPU()
}

// SpacingFor resolves the effective root spacing, honoring
// diagonal_fraction as an alternative to an explicit spacing (§6). A
// spacing of exactly 0 with no diagonal_fraction set is capacity-only
// mode (§8 scenario 3): every sampling strategy already treats spacing<=0
// as "accept until max_points_per_node", so SpacingFor returns 0 rather
// than dividing by an unset diagonal_fraction.
func (c *Config) SpacingFor(rootDiagonal float64) float64 {
	if c.Spacing > 0 {
		return c.Spacing
	}
	if c.DiagonalFraction > 0 {
		return rootDiagonal / c.DiagonalFraction
	}
	return 0
}
