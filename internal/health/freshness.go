package health

import (
	"time"

	"github.com/pharmapet/pharmapet/internal/core"
)

// DefaultStalenessThreshold is how old logged data may be before the
// tracked series count as stale.
const DefaultStalenessThreshold = 48 * time.Hour

// LatestLookup resolves the most recent data point of a series.
// The second return is false when the series has no points.
type LatestLookup func(seriesID string) (core.DataPoint, bool)

// HasRecentData reports whether at least one of the given series has a data
// point newer than now minus threshold. An empty series list is treated as
// "not applicable" and returns true: a user tracking nothing cannot be
// stale. A series whose lookup yields no point contributes nothing.
func HasRecentData(series []core.MetricSeries, latest LatestLookup, now time.Time, threshold time.Duration) bool {
	if len(series) == 0 {
		return true
	}

	cutoff := now.Add(-threshold).UnixMilli()
	for _, s := range series {
		point, ok := latest(s.ID)
		if !ok {
			continue
		}
		if point.Timestamp > cutoff {
			return true
		}
	}

	return false
}
