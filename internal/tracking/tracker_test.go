package tracking

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"beacon-base/internal/codec"
)

func fixAt(lat, lon float64, seq int) codec.Fix {
	return codec.Fix{
		Timestamp: time.Date(2023, 6, 15, 12, 0, seq, 0, time.UTC),
		Latitude:  lat,
		Longitude: lon,
		Sequence:  seq,
	}
}

func TestIngestCreatesTracksInOrder(t *testing.T) {
	tr := NewTracker()

	eff, err := tr.Ingest("12345", fixAt(55.1, -3.2, 1))
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if !eff.NewTrack || !eff.Recenter {
		t.Errorf("first Ingest effect = %+v, want NewTrack and Recenter", eff)
	}

	eff, _ = tr.Ingest("12345", fixAt(55.2, -3.1, 2))
	if eff.NewTrack || eff.Recenter {
		t.Errorf("second Ingest effect = %+v, want none", eff)
	}

	eff, _ = tr.Ingest("67890", fixAt(10, 10, 1))
	if !eff.NewTrack || eff.Recenter {
		t.Errorf("second track effect = %+v, want NewTrack only", eff)
	}

	tracks := tr.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("Tracks() len = %d, want 2", len(tracks))
	}
	if tracks[0].ID != "12345" || tracks[0].Color != "red" {
		t.Errorf("tracks[0] = %s/%s, want 12345/red", tracks[0].ID, tracks[0].Color)
	}
	if tracks[1].ID != "67890" || tracks[1].Color != "yellow" {
		t.Errorf("tracks[1] = %s/%s, want 67890/yellow", tracks[1].ID, tracks[1].Color)
	}
	if tracks[0].Latest.Sequence != 2 || len(tracks[0].Path) != 2 {
		t.Errorf("tracks[0] latest seq %d path %d, want 2/2", tracks[0].Latest.Sequence, len(tracks[0].Path))
	}
}

func TestIngestCapacity(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < MaxTracks; i++ {
		if _, err := tr.Ingest(fmt.Sprintf("id%d", i), fixAt(1, float64(i), 1)); err != nil {
			t.Fatalf("Ingest(%d) error: %v", i, err)
		}
	}

	eff, err := tr.Ingest("ninth", fixAt(2, 2, 1))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("9th Ingest error = %v, want ErrCapacityExceeded", err)
	}
	if !eff.CapacityExceeded {
		t.Error("Effect.CapacityExceeded not set")
	}
	if tr.Len() != MaxTracks {
		t.Errorf("Len() = %d, want %d", tr.Len(), MaxTracks)
	}
	if _, ok := tr.Get("ninth"); ok {
		t.Error("rejected id was stored")
	}

	// los existentes siguen aceptando fixes
	if _, err := tr.Ingest("id0", fixAt(1, 1, 2)); err != nil {
		t.Errorf("existing id rejected: %v", err)
	}
}

func TestEvictOldest(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 200; i++ {
		tr.Ingest("a", fixAt(55+float64(i)/1000, -3, i))
	}
	before, _ := tr.Get("a")
	initial := len(before.PathParam())

	limits := []int{initial, initial - 1, 1200, 400, 60, 0}
	prev := initial
	for _, limit := range limits {
		if _, err := tr.EvictOldest("a", limit); err != nil {
			t.Fatalf("EvictOldest(%d) error: %v", limit, err)
		}
		got, _ := tr.Get("a")
		size := len(got.PathParam())
		if size > prev {
			t.Errorf("limit %d: length grew from %d to %d", limit, prev, size)
		}
		if len(got.Path) > 1 && size > limit {
			t.Errorf("limit %d: length %d still over budget", limit, size)
		}
		last := got.Path[len(got.Path)-1]
		if last.Lat() != got.Latest.Latitude || last.Lon() != got.Latest.Longitude {
			t.Errorf("limit %d: latest point %v lost", limit, last)
		}
		if len(got.Path) >= 2 && got.Path[0] != before.Path[0] {
			t.Errorf("limit %d: start anchor changed to %v", limit, got.Path[0])
		}
		prev = size
	}

	final, _ := tr.Get("a")
	if len(final.Path) != 1 {
		t.Errorf("path len = %d after limit 0, want 1", len(final.Path))
	}

	if _, err := tr.EvictOldest("missing", 10); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("EvictOldest(missing) error = %v, want ErrUnknownTrack", err)
	}
}

func TestEvictTwoPointsKeepsLatest(t *testing.T) {
	tr := NewTracker()
	tr.Ingest("a", fixAt(1, 1, 1))
	tr.Ingest("a", fixAt(2, 2, 2))

	removed, _ := tr.EvictOldest("a", 10)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	got, _ := tr.Get("a")
	if len(got.Path) != 1 || got.Path[0].Lat() != 2 {
		t.Errorf("path = %v, want only the latest point", got.Path)
	}
}

func TestNewTrackShrinksBudgetForAll(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 400; i++ {
		tr.Ingest("a", fixAt(55+float64(i)/10000, -3.123456, i))
	}
	a, _ := tr.Get("a")
	if n := len(a.PathParam()); n > MaxPathLength(1) || n < MaxPathLength(2) {
		t.Fatalf("single track length %d, want between %d and %d", n, MaxPathLength(2), MaxPathLength(1))
	}

	eff, _ := tr.Ingest("b", fixAt(10, 10, 1))
	if eff.Evicted == 0 {
		t.Error("new track did not trigger eviction")
	}
	a, _ = tr.Get("a")
	if n := len(a.PathParam()); n > MaxPathLength(2) {
		t.Errorf("track a length %d, want <= %d", n, MaxPathLength(2))
	}
}

func TestPathParam(t *testing.T) {
	tr := NewTracker()
	tr.Ingest("a", fixAt(55.866573, -2.428458, 1))
	tr.Ingest("a", fixAt(55.8, -2.4, 2))
	got, _ := tr.Get("a")

	want := "&path=color:red|weight:5|55.866573,-2.428458|55.800000,-2.400000"
	if p := got.PathParam(); p != want {
		t.Errorf("PathParam() = %q, want %q", p, want)
	}
	if !strings.HasPrefix(got.PathParam(), "&path=color:red") {
		t.Error("missing color prefix")
	}
}

func TestMaxPathLength(t *testing.T) {
	tests := map[int]int{0: 7000, 1: 7000, 2: 3400, 3: 2200, 8: 780, 12: 780, -1: 7000}
	for n, want := range tests {
		if got := MaxPathLength(n); got != want {
			t.Errorf("MaxPathLength(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestTracksReturnsCopies(t *testing.T) {
	tr := NewTracker()
	tr.Ingest("a", fixAt(1, 1, 1))
	snap := tr.Tracks()
	snap[0].Path[0][0] = 99

	again, _ := tr.Get("a")
	if again.Path[0][0] != 1 {
		t.Error("Tracks() exposed internal path")
	}
}
