package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/pharmapet/pharmapet/internal/logging"
	"github.com/pharmapet/pharmapet/internal/storage"
)

// Analyzer gathers the user's conditions, medication names, and the latest
// reading of every visible metric series, then hands the bundle to the
// classifier. It is the single entry point for triggering a health analysis,
// used both by the API (after a data point is logged) and on demand.
type Analyzer struct {
	classifier *Classifier
	meds       *storage.MedicationStore
	metrics    *storage.MetricStore
	settings   *storage.SettingsStore
	log        *logging.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(classifier *Classifier, meds *storage.MedicationStore, metrics *storage.MetricStore, settings *storage.SettingsStore) *Analyzer {
	return &Analyzer{
		classifier: classifier,
		meds:       meds,
		metrics:    metrics,
		settings:   settings,
		log:        logging.WithField("component", "analyzer"),
	}
}

// Analyze runs a full classification pass. Errors are returned for logging
// but are never fatal to the caller: the cached status keeps serving.
func (a *Analyzer) Analyze(ctx context.Context) error {
	conditions, err := a.settings.Conditions(ctx)
	if err != nil {
		a.log.Warn("reading conditions failed: %v", err)
		conditions = nil
	}

	names, err := a.meds.Names(ctx)
	if err != nil {
		a.log.Warn("reading medication names failed: %v", err)
		names = nil
	}

	recentData, err := a.recentDataSummary(ctx)
	if err != nil {
		return fmt.Errorf("gathering recent data: %w", err)
	}

	_, _, err = a.classifier.Classify(ctx, conditions, names, recentData)
	return err
}

// recentDataSummary renders the latest reading per visible series as a
// compact line the classifier prompt embeds verbatim.
func (a *Analyzer) recentDataSummary(ctx context.Context) (string, error) {
	series, err := a.metrics.GetVisibleSeries(ctx)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, s := range series {
		point, err := a.metrics.LatestPoint(ctx, s.ID)
		if err != nil {
			continue
		}
		entry := fmt.Sprintf("%s: %g", s.Name, point.Value)
		if s.Unit != "" {
			entry += " " + s.Unit
		}
		parts = append(parts, entry)
	}

	if len(parts) == 0 {
		return "No recent data", nil
	}
	return strings.Join(parts, ", "), nil
}
