package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pharmapet/pharmapet/internal/core"
	"github.com/pharmapet/pharmapet/internal/logging"
	"github.com/pharmapet/pharmapet/internal/storage"
)

// DeriveMood combines the cached health status, the missed-medication list,
// and the data-freshness result into a single pet status. Rules are
// evaluated in strict priority order; the first match wins:
//
//  1. WARNING/CRITICAL cached status -> IN_PAIN
//  2. missed medications             -> SAD
//  3. tracked series but none fresh  -> CONFUSED
//  4. otherwise                      -> HAPPY
//
// Pure and idempotent: identical inputs always yield an identical result.
func DeriveMood(status core.HealthStatus, missed []string, hasRecentData bool, staleness time.Duration) core.PetStatus {
	if status == core.StatusWarning || status == core.StatusCritical {
		return core.PetStatus{
			Emotion: core.EmotionInPain,
			Reason:  "I'm not feeling well because your recent health metrics are concerning.",
		}
	}

	if len(missed) > 0 {
		return core.PetStatus{
			Emotion: core.EmotionSad,
			Reason:  fmt.Sprintf("I'm sad because you missed your dose of: %s.", strings.Join(missed, ", ")),
		}
	}

	if !hasRecentData {
		days := int(staleness.Hours() / 24)
		if days < 1 {
			days = 1
		}
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		return core.PetStatus{
			Emotion: core.EmotionConfused,
			Reason:  fmt.Sprintf("I'm confused because you haven't logged any health data in over %d %s.", days, unit),
		}
	}

	return core.PetStatus{
		Emotion: core.EmotionHappy,
		Reason:  "I'm happy because you're taking good care of yourself!",
	}
}

// Resolver derives the current pet status from live data on every call.
type Resolver struct {
	meds      *storage.MedicationStore
	metrics   *storage.MetricStore
	cache     *StatusCache
	staleness time.Duration
	log       *logging.Logger
}

// NewResolver creates a mood resolver
func NewResolver(meds *storage.MedicationStore, metrics *storage.MetricStore, cache *StatusCache, staleness time.Duration) *Resolver {
	if staleness <= 0 {
		staleness = DefaultStalenessThreshold
	}
	return &Resolver{
		meds:      meds,
		metrics:   metrics,
		cache:     cache,
		staleness: staleness,
		log:       logging.WithField("component", "mood"),
	}
}

// Current recomputes the pet status. Store failures fail closed: a
// medication list that cannot be read counts as no misses, an unreadable
// series list as fresh data, so a storage hiccup never fabricates distress.
func (r *Resolver) Current(ctx context.Context) core.PetStatus {
	now := time.Now()
	status, _ := r.cache.Current()

	var missed []string
	meds, err := r.meds.GetAll(ctx)
	if err != nil {
		r.log.Warn("reading medications failed: %v", err)
	} else {
		missed = MissedMedications(meds, now)
	}

	hasRecent := true
	series, err := r.metrics.GetVisibleSeries(ctx)
	if err != nil {
		r.log.Warn("reading metric series failed: %v", err)
	} else {
		hasRecent = HasRecentData(series, r.latestLookup(ctx), now, r.staleness)
	}

	return DeriveMood(status, missed, hasRecent, r.staleness)
}

func (r *Resolver) latestLookup(ctx context.Context) LatestLookup {
	return func(seriesID string) (core.DataPoint, bool) {
		point, err := r.metrics.LatestPoint(ctx, seriesID)
		if err != nil {
			return core.DataPoint{}, false
		}
		return *point, true
	}
}
