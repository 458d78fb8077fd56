package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/eventbus"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/registry"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/relay"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store"
	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store/impl/memstore"
)

func setupTestApi(t *testing.T) (http.Handler, *memstore.Store, *uint64) {
	t.Helper()
	st := memstore.NewStore()
	eb, err := eventbus.New()
	if err != nil {
		t.Fatal(err)
	}
	var broadcasts uint64
	eb.Subscribe("counter", func(string, []byte) {
		atomic.AddUint64(&broadcasts, 1)
	})
	rl := relay.New(st, registry.New(), eb)
	api := NewApi(st, rl, &ApiConfig{ListenAddr: ":0"})
	return api.Handler(), st, &broadcasts
}

func doJSON(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad envelope %q: %v", w.Body.String(), err)
	}
	return env
}

func TestGetRiders(t *testing.T) {
	h, _, _ := setupTestApi(t)
	w := doJSON(h, "GET", "/api/riders", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Fatal("expected success envelope")
	}
	var riders []store.Rider
	json.Unmarshal(env.Data, &riders)
	if len(riders) != 3 {
		t.Errorf("expected 3 seeded riders, got %d", len(riders))
	}
	if riders[1].Name != "Jagdish Suthar" {
		t.Errorf("unexpected seed order: %+v", riders)
	}
}

func TestGetRiderNotFound(t *testing.T) {
	h, _, _ := setupTestApi(t)
	w := doJSON(h, "GET", "/api/riders/99", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Success || env.Error == "" {
		t.Errorf("expected error envelope, got %q", w.Body.String())
	}
}

func TestAuthByPhone(t *testing.T) {
	h, _, _ := setupTestApi(t)

	w := doJSON(h, "POST", "/api/riders/auth", `{"phone":"9829012345"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rider store.Rider
	json.Unmarshal(decodeEnvelope(t, w).Data, &rider)
	if rider.ID != 2 || rider.Name != "Jagdish Suthar" {
		t.Errorf("unexpected rider: %+v", rider)
	}

	w = doJSON(h, "POST", "/api/riders/auth", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing phone: expected 400, got %d", w.Code)
	}

	w = doJSON(h, "POST", "/api/riders/auth", `{"phone":"0000000000"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown phone: expected 404, got %d", w.Code)
	}
}

func TestPostLocation(t *testing.T) {
	h, st, broadcasts := setupTestApi(t)
	body := `{"riderId":2,"latitude":26.9,"longitude":75.8,"speed":3.5}`
	w := doJSON(h, "POST", "/api/locations", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var data map[string]int64
	json.Unmarshal(decodeEnvelope(t, w).Data, &data)
	if data["id"] == 0 {
		t.Error("expected assigned id in response")
	}
	hist, _ := st.LocationHistory(context.Background(), 2, time.Unix(0, 0), time.Now().Add(time.Hour))
	if len(hist) != 1 {
		t.Fatalf("expected one stored sample, got %d", len(hist))
	}
	if atomic.LoadUint64(broadcasts) != 1 {
		t.Errorf("one-shot insert must broadcast once, got %d", atomic.LoadUint64(broadcasts))
	}
}

func TestPostLocationMissingLongitude(t *testing.T) {
	h, st, broadcasts := setupTestApi(t)
	w := doJSON(h, "POST", "/api/locations", `{"riderId":2,"latitude":26.9}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if decodeEnvelope(t, w).Success {
		t.Error("expected error envelope")
	}
	hist, _ := st.LocationHistory(context.Background(), 2, time.Unix(0, 0), time.Now().Add(time.Hour))
	if len(hist) != 0 {
		t.Error("rejected request must not mutate the store")
	}
	if atomic.LoadUint64(broadcasts) != 0 {
		t.Error("rejected request must not broadcast")
	}
}

func TestRiderLocationsDefaultWindow(t *testing.T) {
	h, st, _ := setupTestApi(t)
	ctx := context.Background()
	now := time.Now().UTC()
	st.InsertLocation(ctx, store.LocationSample{RiderID: 2, Latitude: 26.9, Longitude: 75.8, Timestamp: now.Add(-25 * time.Hour)})
	st.InsertLocation(ctx, store.LocationSample{RiderID: 2, Latitude: 26.91, Longitude: 75.81, Timestamp: now.Add(-time.Hour)})

	w := doJSON(h, "GET", "/api/riders/2/locations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var samples []store.LocationSample
	json.Unmarshal(decodeEnvelope(t, w).Data, &samples)
	if len(samples) != 1 {
		t.Fatalf("default window must cover last 24h only, got %d samples", len(samples))
	}
	if samples[0].Latitude != 26.91 {
		t.Errorf("wrong sample survived the window: %+v", samples[0])
	}
}

func TestRiderLocationsExplicitWindow(t *testing.T) {
	h, st, _ := setupTestApi(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	st.InsertLocation(ctx, store.LocationSample{RiderID: 2, Latitude: 26.9, Longitude: 75.8, Timestamp: base})
	st.InsertLocation(ctx, store.LocationSample{RiderID: 2, Latitude: 26.91, Longitude: 75.81, Timestamp: base.Add(2 * time.Hour)})

	from := strconv.FormatInt(base.Add(-time.Hour).Unix(), 10)
	to := strconv.FormatInt(base.Add(time.Hour).Unix(), 10)
	w := doJSON(h, "GET", "/api/riders/2/locations?startTime="+from+"&endTime="+to, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var samples []store.LocationSample
	json.Unmarshal(decodeEnvelope(t, w).Data, &samples)
	if len(samples) != 1 || samples[0].Latitude != 26.9 {
		t.Errorf("window filter wrong: %+v", samples)
	}
}

func TestLatestLocations(t *testing.T) {
	h, st, _ := setupTestApi(t)
	ctx := context.Background()
	st.SetRiderStatus(ctx, 2, store.StatusActive)
	st.InsertLocation(ctx, store.LocationSample{RiderID: 2, Latitude: 26.9, Longitude: 75.8, Timestamp: time.Now().UTC()})
	// rider 1 stays inactive even with a sample
	st.InsertLocation(ctx, store.LocationSample{RiderID: 1, Latitude: 26.8, Longitude: 75.7, Timestamp: time.Now().UTC()})

	w := doJSON(h, "GET", "/api/locations/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var latest []store.LatestLocation
	json.Unmarshal(decodeEnvelope(t, w).Data, &latest)
	if len(latest) != 1 || latest[0].RiderID != 2 || latest[0].RiderName != "Jagdish Suthar" {
		t.Errorf("unexpected latest set: %+v", latest)
	}
}
