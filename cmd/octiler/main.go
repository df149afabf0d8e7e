// Command octiler is the thin entrypoint around the tiler driver. Concrete
// PointReader/CoordinateTransform implementations (LAS/LAZ/PLY/PTX/XYZ
// parsing, CRS reprojection) and CLI flag parsing are explicitly out of
// scope for this module (§1); this binary exists to show how a caller wires
// one together, not to be a complete command-line tool.
package main

import (
	"context"
	"log"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/persistence"
	"github.com/lodtiler/octiler/tiler"
)

func main() {
	cfg := &tiler.Config{
		OutputDir:         "./out",
		DiagonalFraction:  32,
		MaxDepth:          10,
		MaxPointsPerNode:  20000,
		Scale:             0.001,
		Attributes:        []data.AttributeKind{data.AttrPositionCartesian, data.AttrColorPacked},
		Quality:           tiler.QualityGridCentered,
		Algorithm:         tiler.AlgorithmV2,
		StoreOption:       persistence.AbortIfExists,
		HierarchyStepSize: 4,
	}

	t, err := tiler.New(cfg)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	// t.AddSource("example.las", someConcretePointReader)

	summary, err := t.Run(context.Background())
	if err != nil {
		log.Fatalf("tiling run failed: %v", err)
	}
	log.Printf("processed=%d accepted=%d rejected=%d", summary.Processed, summary.Accepted, summary.Rejected)
}
