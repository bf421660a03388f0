package tests

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/orbitalview/feed"
	"github.com/signalsfoundry/orbitalview/model"
	"github.com/signalsfoundry/orbitalview/scene"
)

// ISS elements with an epoch of 2021-10-02, so propagation near the capture
// timestamp below is well inside the elements' validity range.
const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9993"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257767"

	// 2021-10-02T14:00:00Z as unix seconds.
	captureUnix = 1633183200
)

type feedScript struct {
	mu       sync.Mutex
	messages []string
	sent     int
	release  chan struct{}
	done     chan struct{}
}

func newFeedScript(messages ...string) *feedScript {
	return &feedScript{
		messages: messages,
		release:  make(chan struct{}, len(messages)),
		done:     make(chan struct{}),
	}
}

// next blocks until the test releases another scripted message or the script
// is stopped.
func (s *feedScript) next() (string, bool) {
	select {
	case <-s.release:
	case <-s.done:
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent >= len(s.messages) {
		return "", false
	}
	msg := s.messages[s.sent]
	s.sent++
	return msg, true
}

func (s *feedScript) send() { s.release <- struct{}{} }
func (s *feedScript) stop() { close(s.done) }

func newScriptedServer(t *testing.T, script *feedScript) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msg, ok := script.next()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(script.stop)
	return srv
}

func aircraftFeature(callsign string, lon, lat, alt float64) string {
	return fmt.Sprintf(`{
		"type": "Feature",
		"geometry": {"type": "Point", "coordinates": [%g, %g, %g]},
		"properties": {"callsign": %q, "icao24": "abc123", "on_ground": false}
	}`, lon, lat, alt, callsign)
}

func worldPayload(aircraft []string, tles string, ts float64) string {
	satellites := 0
	if tles != "" {
		satellites = 1
	}
	return fmt.Sprintf(`{
		"aircraft": {"type": "FeatureCollection", "features": [%s]},
		"military": {"type": "FeatureCollection", "features": []},
		"earthquakes": {"type": "FeatureCollection", "features": []},
		"tles": [%s],
		"counts": {"aircraft": %d, "satellites": %d},
		"timestamp": %f
	}`, strings.Join(aircraft, ","), tles, len(aircraft), satellites, ts)
}

func waitForGeneration(t *testing.T, s *scene.SceneState, want uint64) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if s.Generation() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("scene generation did not reach %d (now %d)", want, s.Generation())
}

// End-to-end: a live server pushes a full world broadcast, a malformed
// message, and a replacement broadcast. The scene must track the accepted
// snapshots exactly, with real orbital sampling for the satellite.
func TestLiveFeed_EndToEnd(t *testing.T) {
	issTLE := fmt.Sprintf(`{"catalogId": "25544", "name": "ISS (ZARYA)", "line1": %q, "line2": %q}`, issLine1, issLine2)

	snapshotA := worldPayload([]string{
		aircraftFeature("UAL1", -122.4, 37.6, 10500),
		aircraftFeature("DAL2", -87.9, 41.9, 3500),
		aircraftFeature("BAW3", -0.45, 51.47, 8000),
	}, issTLE, captureUnix)
	malformed := `{"aircraft": {"type": "NotACollection"}, "timestamp": "soon"}`
	snapshotB := worldPayload([]string{
		aircraftFeature("AFR4", 2.55, 49.0, 9500),
		aircraftFeature("KLM5", 4.76, 52.3, 2000),
	}, "", captureUnix+10)

	script := newFeedScript(snapshotA, malformed, snapshotB)
	srv := newScriptedServer(t, script)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	state := scene.NewSceneState()
	channel := feed.NewChannel(wsURL, feed.WithHandler(func(ctx context.Context, snap *model.Snapshot) {
		state.ApplySnapshot(ctx, snap)
	}))
	channel.Connect(context.Background())
	defer channel.Close()

	// First broadcast: three aircraft plus one satellite, all rendered.
	script.send()
	waitForGeneration(t, state, 1)
	if got := state.TotalRendered(); got != 4 {
		t.Fatalf("after snapshot A: rendered %d, want 4", got)
	}
	sats := state.Renderables(model.CategorySatellite)
	if len(sats) != 1 {
		t.Fatalf("after snapshot A: %d satellites, want 1", len(sats))
	}
	if sats[0].Trajectory == nil {
		t.Fatalf("satellite must carry a sampled trajectory")
	}
	t0 := time.Unix(captureUnix, 0).UTC()
	pos, ok := sats[0].PositionAt(t0.Add(2 * time.Minute))
	if !ok {
		t.Fatalf("satellite position must be resolvable inside the sampled window")
	}
	if pos.Altitude < 300_000 || pos.Altitude > 500_000 {
		t.Fatalf("implausible ISS altitude %f m", pos.Altitude)
	}

	// A malformed broadcast is discarded: the rendered set is untouched and
	// no new generation is applied.
	script.send()
	time.Sleep(50 * time.Millisecond)
	if got := state.Generation(); got != 1 {
		t.Fatalf("malformed message advanced the scene to generation %d", got)
	}
	if got := state.TotalRendered(); got != 4 {
		t.Fatalf("after malformed message: rendered %d, want unchanged 4", got)
	}

	// Second broadcast replaces everything: two aircraft, zero satellites.
	script.send()
	waitForGeneration(t, state, 2)
	if got := state.TotalRendered(); got != 2 {
		t.Fatalf("after snapshot B: rendered %d, want exactly 2", got)
	}
	if got := len(state.Renderables(model.CategorySatellite)); got != 0 {
		t.Fatalf("after snapshot B: %d satellites, want 0", got)
	}
	if got := len(state.Renderables(model.CategoryAircraft)); got != 2 {
		t.Fatalf("after snapshot B: %d aircraft, want 2", got)
	}
}
