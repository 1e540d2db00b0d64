package weather

import (
	"context"
	"strconv"
)

// GridCache stores resolved grid references keyed by GridKey.
// Implementations must be safe for concurrent use.
type GridCache interface {
	// Get returns the cached grid reference, or false if missing or expired
	Get(ctx context.Context, key string) (*GridReference, bool)
	// Put stores the grid reference
	Put(ctx context.Context, key string, grid *GridReference) error
}

// GridKeyPrecision is the number of decimals kept in GridKey,
// about 11 meters at the equator
const GridKeyPrecision = 4

// GridKey returns the cache key of the point coarsened to GridKeyPrecision decimals
func GridKey(p Point) string {
	return strconv.FormatFloat(p.Latitude, 'f', GridKeyPrecision, 64) + "," +
		strconv.FormatFloat(p.Longitude, 'f', GridKeyPrecision, 64)
}
