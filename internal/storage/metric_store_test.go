package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pharmapet/pharmapet/internal/core"
)

func TestSeriesVisibility(t *testing.T) {
	store := NewMetricStore(openTestDB(t))
	ctx := context.Background()

	visible := &core.MetricSeries{Name: "Heart Rate", Unit: "bpm", Visible: true}
	hidden := &core.MetricSeries{Name: "Weight", Unit: "kg", Visible: false}
	for _, s := range []*core.MetricSeries{visible, hidden} {
		if err := store.CreateSeries(ctx, s); err != nil {
			t.Fatalf("CreateSeries(%s) error = %v", s.Name, err)
		}
	}

	all, err := store.GetAllSeries(ctx)
	if err != nil {
		t.Fatalf("GetAllSeries() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetAllSeries() returned %d, want 2", len(all))
	}

	vis, err := store.GetVisibleSeries(ctx)
	if err != nil {
		t.Fatalf("GetVisibleSeries() error = %v", err)
	}
	if len(vis) != 1 || vis[0].Name != "Heart Rate" {
		t.Errorf("GetVisibleSeries() = %+v", vis)
	}
}

func TestVitalSignDefaultsToName(t *testing.T) {
	store := NewMetricStore(openTestDB(t))

	s := &core.MetricSeries{Name: "Blood Glucose", Custom: true}
	if err := store.CreateSeries(context.Background(), s); err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}
	if s.VitalSign != "Blood Glucose" {
		t.Errorf("VitalSign = %q, want the series name", s.VitalSign)
	}
}

func TestPointsNewestFirst(t *testing.T) {
	store := NewMetricStore(openTestDB(t))
	ctx := context.Background()

	series := &core.MetricSeries{Name: "Heart Rate", Visible: true}
	if err := store.CreateSeries(ctx, series); err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	base := time.Now().Add(-3 * time.Hour)
	values := []float64{60, 65, 70}
	for i, v := range values {
		p := &core.DataPoint{
			SeriesID:  series.ID,
			Value:     v,
			Timestamp: base.Add(time.Duration(i) * time.Hour).UnixMilli(),
		}
		if err := store.InsertPoint(ctx, p); err != nil {
			t.Fatalf("InsertPoint(%v) error = %v", v, err)
		}
	}

	points, err := store.RecentPoints(ctx, series.ID, 2)
	if err != nil {
		t.Fatalf("RecentPoints() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Value != 70 || points[1].Value != 65 {
		t.Errorf("points not newest first: %v, %v", points[0].Value, points[1].Value)
	}

	latest, err := store.LatestPoint(ctx, series.ID)
	if err != nil {
		t.Fatalf("LatestPoint() error = %v", err)
	}
	if latest.Value != 70 {
		t.Errorf("LatestPoint() value = %v, want 70", latest.Value)
	}
}

func TestLatestPointEmptySeries(t *testing.T) {
	store := NewMetricStore(openTestDB(t))
	ctx := context.Background()

	series := &core.MetricSeries{Name: "Empty"}
	if err := store.CreateSeries(ctx, series); err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	if _, err := store.LatestPoint(ctx, series.ID); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("LatestPoint on empty series error = %v, want ErrRecordNotFound", err)
	}
}

func TestDeleteSeriesCascades(t *testing.T) {
	store := NewMetricStore(openTestDB(t))
	ctx := context.Background()

	series := &core.MetricSeries{Name: "Heart Rate"}
	if err := store.CreateSeries(ctx, series); err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}
	if err := store.InsertPoint(ctx, &core.DataPoint{SeriesID: series.ID, Value: 72}); err != nil {
		t.Fatalf("InsertPoint() error = %v", err)
	}

	if err := store.DeleteSeries(ctx, series.ID); err != nil {
		t.Fatalf("DeleteSeries() error = %v", err)
	}

	points, err := store.RecentPoints(ctx, series.ID, 10)
	if err != nil {
		t.Fatalf("RecentPoints() error = %v", err)
	}
	if len(points) != 0 {
		t.Errorf("points survived series deletion: %d left", len(points))
	}
}

func TestInsertPointDefaultsTimestamp(t *testing.T) {
	store := NewMetricStore(openTestDB(t))
	ctx := context.Background()

	series := &core.MetricSeries{Name: "Heart Rate"}
	if err := store.CreateSeries(ctx, series); err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	before := time.Now().UnixMilli()
	p := &core.DataPoint{SeriesID: series.ID, Value: 72}
	if err := store.InsertPoint(ctx, p); err != nil {
		t.Fatalf("InsertPoint() error = %v", err)
	}

	if p.Timestamp < before || p.Timestamp > time.Now().UnixMilli() {
		t.Errorf("timestamp %d not defaulted to now", p.Timestamp)
	}
}
