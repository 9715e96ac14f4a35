// Package report builds the doctor-facing health report: a deterministic
// data snapshot, optionally rewritten into prose by the reasoning service.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pharmapet/pharmapet/internal/health"
	"github.com/pharmapet/pharmapet/internal/logging"
	"github.com/pharmapet/pharmapet/internal/storage"
)

// recentPointsPerSeries caps how many readings a report includes per series.
const recentPointsPerSeries = 5

// Generator assembles health reports. Generate never fails: when the
// reasoning service is unavailable the raw data snapshot ships instead, so
// an alert escalation always has a report body to attach.
type Generator struct {
	chat     health.Chatter
	meds     *storage.MedicationStore
	metrics  *storage.MetricStore
	settings *storage.SettingsStore
	cache    *health.StatusCache
	log      *logging.Logger
}

// NewGenerator creates a report generator
func NewGenerator(chat health.Chatter, meds *storage.MedicationStore, metrics *storage.MetricStore, settings *storage.SettingsStore, cache *health.StatusCache) *Generator {
	return &Generator{
		chat:     chat,
		meds:     meds,
		metrics:  metrics,
		settings: settings,
		cache:    cache,
		log:      logging.WithField("component", "report"),
	}
}

// Generate produces the report text. The AI narrative is attempted when the
// reasoning service is configured; any failure there falls back to the
// snapshot with a header noting the report is raw data.
func (g *Generator) Generate(ctx context.Context) string {
	snapshot := g.Snapshot(ctx)

	if g.chat == nil || !g.chat.IsConfigured() {
		return rawFallback(snapshot)
	}

	narrative, err := g.narrate(ctx, snapshot)
	if err != nil {
		g.log.Warn("report narration failed, using raw snapshot: %v", err)
		return rawFallback(snapshot)
	}

	return narrative
}

// Snapshot renders the deterministic data section: generation time, cached
// status, conditions, medications, and recent readings per visible series.
func (g *Generator) Snapshot(ctx context.Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Health Report - %s\n\n", time.Now().Format("2006-01-02 15:04"))

	status, message := g.cache.Current()
	fmt.Fprintf(&b, "Current Status: %s\n%s\n\n", status, message)

	conditions, err := g.settings.Conditions(ctx)
	if err != nil {
		g.log.Warn("reading conditions failed: %v", err)
	}
	b.WriteString("Medical Conditions: ")
	if len(conditions) == 0 {
		b.WriteString("None")
	} else {
		b.WriteString(strings.Join(conditions, ", "))
	}
	b.WriteString("\n\n")

	b.WriteString("Medications:\n")
	meds, err := g.meds.GetAll(ctx)
	if err != nil {
		g.log.Warn("reading medications failed: %v", err)
	}
	if len(meds) == 0 {
		b.WriteString("  None\n")
	}
	for _, med := range meds {
		if med.Dosage != "" {
			fmt.Fprintf(&b, "  - %s (%s)\n", med.Name, med.Dosage)
		} else {
			fmt.Fprintf(&b, "  - %s\n", med.Name)
		}
	}
	b.WriteString("\n")

	b.WriteString("Recent Readings:\n")
	series, err := g.metrics.GetVisibleSeries(ctx)
	if err != nil {
		g.log.Warn("reading metric series failed: %v", err)
	}

	wrote := false
	for _, s := range series {
		points, err := g.metrics.RecentPoints(ctx, s.ID, recentPointsPerSeries)
		if err != nil || len(points) == 0 {
			continue
		}
		wrote = true
		fmt.Fprintf(&b, "  %s:\n", s.Name)
		for _, p := range points {
			entry := fmt.Sprintf("    %g", p.Value)
			if s.Unit != "" {
				entry += " " + s.Unit
			}
			fmt.Fprintf(&b, "%s at %s\n", entry, p.Time().Format("2006-01-02 15:04"))
		}
	}
	if !wrote {
		b.WriteString("  No recent data recorded.\n")
	}

	return b.String()
}

func (g *Generator) narrate(ctx context.Context, snapshot string) (string, error) {
	system := "You are a medical scribe preparing a report for a physician. Professional tone."

	user := fmt.Sprintf(`Rewrite the following patient data into a concise health report for a doctor.
Use these sections: Summary, Current Status, Medications, Recent Measurements, Recommendations.
Do not invent data that is not present below.

%s`, snapshot)

	narrative, err := g.chat.Chat(ctx, system, user)
	if err != nil {
		return "", err
	}

	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return "", fmt.Errorf("empty report narrative")
	}
	return narrative, nil
}

func rawFallback(snapshot string) string {
	return "Raw Health Data (AI summary unavailable)\n\n" + snapshot
}
