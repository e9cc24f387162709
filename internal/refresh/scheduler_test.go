package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lox/clearskies/internal/forecast"
	"github.com/lox/clearskies/internal/models"
	"github.com/lox/clearskies/internal/weather"
)

type fakeLocations struct {
	prefs []models.Preference
	err   error
}

func (f *fakeLocations) SavedLocations() ([]models.Preference, error) {
	return f.prefs, f.err
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeRefresher) Refresh(_ context.Context, place models.Place, unit forecast.Unit) (weather.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, place.Name+"/"+string(unit))
	if f.fail[place.Name] {
		return weather.Snapshot{}, false
	}
	return weather.Snapshot{Seq: uint64(len(f.calls))}, true
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeJanitor struct {
	retention time.Duration
}

func (f *fakeJanitor) CleanupOldRawPayloads(retention time.Duration) (int64, error) {
	f.retention = retention
	return 3, nil
}

var (
	paris  = models.Place{Name: "Paris", Latitude: 48.85, Longitude: 2.35}
	sydney = models.Place{Name: "Sydney", Latitude: -33.87, Longitude: 151.21}
)

func TestRefreshAll(t *testing.T) {
	locs := &fakeLocations{prefs: []models.Preference{
		{Place: paris, Unit: "C"},
		{Place: paris, Unit: "F"},
		{Place: sydney, Unit: "C"},
		{Place: sydney, Unit: "kelvin"},
	}}
	ref := &fakeRefresher{fail: map[string]bool{"Sydney": true}}
	s := NewScheduler(locs, ref, nil, Config{Extra: []models.Place{paris, {Name: "Tokyo", Latitude: 35.69, Longitude: 139.69}}}, nil)

	updated := s.RefreshAll(context.Background())

	// Paris/C, Paris/F, Sydney/C, Tokyo/F; the extra Paris/F is a duplicate.
	if got := ref.count(); got != 4 {
		t.Errorf("refresh calls = %d, want 4: %v", got, ref.calls)
	}
	if updated != 3 {
		t.Errorf("updated = %d, want 3", updated)
	}
}

func TestRefreshAllListError(t *testing.T) {
	ref := &fakeRefresher{}
	s := NewScheduler(&fakeLocations{err: errors.New("db locked")}, ref, nil, Config{}, nil)

	if updated := s.RefreshAll(context.Background()); updated != 0 {
		t.Errorf("updated = %d, want 0", updated)
	}
	if ref.count() != 0 {
		t.Errorf("refresh calls = %d, want 0", ref.count())
	}
}

func TestRefreshAllCancelled(t *testing.T) {
	ref := &fakeRefresher{}
	s := NewScheduler(&fakeLocations{prefs: []models.Preference{{Place: paris, Unit: "C"}}}, ref, nil, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RefreshAll(ctx)

	if ref.count() != 0 {
		t.Errorf("refresh calls = %d, want 0 after cancel", ref.count())
	}
}

type blockingRefresher struct {
	started chan struct{}
	mu      sync.Mutex
	calls   int
}

func (f *blockingRefresher) Refresh(ctx context.Context, _ models.Place, _ forecast.Unit) (weather.Snapshot, bool) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	f.started <- struct{}{}
	<-ctx.Done()
	return weather.Snapshot{}, false
}

func TestRefreshAllStopsQueueOnCancel(t *testing.T) {
	var prefs []models.Preference
	for i := 0; i < maxConcurrent+3; i++ {
		p := models.Place{Name: fmt.Sprintf("place-%d", i), Latitude: float64(i), Longitude: float64(i)}
		prefs = append(prefs, models.Preference{Place: p, Unit: "F"})
	}
	ref := &blockingRefresher{started: make(chan struct{}, len(prefs))}
	s := NewScheduler(&fakeLocations{prefs: prefs}, ref, nil, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RefreshAll(ctx)
		close(done)
	}()

	for i := 0; i < maxConcurrent; i++ {
		<-ref.started
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RefreshAll did not return after cancel")
	}
	ref.mu.Lock()
	defer ref.mu.Unlock()
	if ref.calls != maxConcurrent {
		t.Errorf("refresh calls = %d, want %d", ref.calls, maxConcurrent)
	}
}

func TestRunRefreshesImmediatelyAndStops(t *testing.T) {
	ref := &fakeRefresher{}
	s := NewScheduler(&fakeLocations{prefs: []models.Preference{{Place: paris, Unit: "C"}}}, ref, &fakeJanitor{}, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for ref.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial refresh did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunInvalidSpec(t *testing.T) {
	s := NewScheduler(&fakeLocations{}, &fakeRefresher{}, nil, Config{Spec: "every sometimes"}, nil)
	if err := s.Run(context.Background()); err == nil {
		t.Error("expected error for invalid spec")
	}
}

func TestCleanup(t *testing.T) {
	j := &fakeJanitor{}
	s := NewScheduler(&fakeLocations{}, &fakeRefresher{}, j, Config{}, nil)
	s.Cleanup()
	if j.retention != DefaultRetention {
		t.Errorf("retention = %v, want %v", j.retention, DefaultRetention)
	}
}
