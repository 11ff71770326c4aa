package forward

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"prd_gateway/internal/adsb"
)

func sampleState() adsb.AircraftState {
	return adsb.AircraftState{
		Callsign:   "UAL123",
		Type:       "B738",
		Latitude:   40.0,
		Longitude:  -75.0,
		Altitude:   35000,
		Speed:      450,
		Heading:    270,
		Icon:       "icons/ual.svg",
		TailNumber: adsb.NoTailNumber,
	}
}

func TestHTTPSinkDeliver(t *testing.T) {
	var got adsb.AircraftState
	var gotPath, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewHTTPSinkURL(srv.URL + "/adsb")
	if err := sink.Deliver(context.Background(), sampleState()); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}

	if gotPath != "/adsb" {
		t.Errorf("path = %q, want /adsb", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q, want application/json", gotContentType)
	}
	if !reflect.DeepEqual(got, sampleState()) {
		t.Errorf("delivered state = %+v, want %+v", got, sampleState())
	}
}

func TestHTTPSinkJSONIncludesAllFields(t *testing.T) {
	body, err := json.Marshal(sampleState())
	if err != nil {
		t.Fatal(err)
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"callsign", "type", "latitude", "longitude",
		"altitude", "speed", "heading", "icon", "tail_number"} {
		if _, ok := obj[key]; !ok {
			t.Errorf("serialized state missing %q", key)
		}
	}
}

func TestHTTPSinkErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewHTTPSinkURL(srv.URL + "/adsb")
	if err := sink.Deliver(context.Background(), sampleState()); err == nil {
		t.Error("Deliver() error = nil for 502, want error")
	}
}

func TestHTTPSinkUnreachable(t *testing.T) {
	sink := NewHTTPSinkURL("http://127.0.0.1:1/adsb")
	if err := sink.Deliver(context.Background(), sampleState()); err == nil {
		t.Error("Deliver() error = nil for unreachable endpoint, want error")
	}
}

type stubSink struct {
	name  string
	err   error
	count int
}

func (s *stubSink) Name() string { return s.name }
func (s *stubSink) Deliver(context.Context, adsb.AircraftState) error {
	s.count++
	return s.err
}

func TestFanoutIsolatesFailures(t *testing.T) {
	bad := &stubSink{name: "bad", err: errors.New("down")}
	good := &stubSink{name: "good"}
	f := NewFanout(bad, nil, good)

	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}

	f.Deliver(context.Background(), sampleState())
	f.Deliver(context.Background(), sampleState())

	if bad.count != 2 || good.count != 2 {
		t.Errorf("deliveries = bad:%d good:%d, want 2 each", bad.count, good.count)
	}
}
