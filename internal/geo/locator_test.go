package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campattend/internal/model"
)

func fp(v float64) *float64 { return &v }

func ipServer(t *testing.T, handler http.HandlerFunc) *IPLocator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewIPLocator(srv.URL)
}

func TestAcquireDeviceFixWins(t *testing.T) {
	ip := ipServer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("IP fallback called even though the device fix was usable")
	})
	l := NewLocator(ip, time.Second)

	device := Static{Latitude: fp(28.6139), Longitude: fp(77.2090)}
	fix := l.Acquire(context.Background(), device, "203.0.113.7")
	if !fix.HasCoords() {
		t.Fatalf("fix = %+v, want coordinates", fix)
	}
	if fix.Source != model.SourceDevice {
		t.Errorf("source = %s, want device", fix.Source)
	}
	if *fix.Latitude != 28.6139 {
		t.Errorf("latitude = %v", *fix.Latitude)
	}
}

func TestAcquireFallsBackToIP(t *testing.T) {
	var gotPath string
	ip := ipServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"latitude": 28.7, "longitude": 77.1, "city": "Delhi"}`))
	})
	l := NewLocator(ip, time.Second)

	// A device source without coordinates does not count as a fix.
	device := Static{Message: "permission denied"}
	fix := l.Acquire(context.Background(), device, "203.0.113.7")
	if fix.Source != model.SourceIP {
		t.Fatalf("source = %s, want ip", fix.Source)
	}
	if fix.Latitude == nil || *fix.Latitude != 28.7 {
		t.Errorf("latitude = %v", fix.Latitude)
	}
	if fix.Message == "" {
		t.Error("IP estimate carries no message")
	}
	if gotPath != "/203.0.113.7/json/" {
		t.Errorf("lookup path = %s", gotPath)
	}
}

func TestAcquireNilPrimaryUsesIP(t *testing.T) {
	ip := ipServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/" {
			t.Errorf("lookup path = %s, want /json/", r.URL.Path)
		}
		w.Write([]byte(`{"latitude": 19.076, "longitude": 72.8777}`))
	})
	l := NewLocator(ip, time.Second)

	fix := l.Acquire(context.Background(), nil, "")
	if fix.Source != model.SourceIP || !fix.HasCoords() {
		t.Fatalf("fix = %+v, want IP estimate", fix)
	}
}

func TestAcquireNeverErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"ip endpoint down", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"ip endpoint malformed", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("not json"))
		}},
		{"ip endpoint no coordinates", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"error": true, "reason": "RateLimited"}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLocator(ipServer(t, tc.handler), time.Second)
			fix := l.Acquire(context.Background(), nil, "")
			if fix.HasCoords() {
				t.Fatalf("fix = %+v, want no coordinates", fix)
			}
			if fix.Source != model.SourceUnavailable {
				t.Errorf("source = %s, want unavailable", fix.Source)
			}
			if fix.Message == "" {
				t.Error("unavailable fix carries no message")
			}
		})
	}
}

func TestIPLookupWithoutServer(t *testing.T) {
	l := NewIPLocator("http://127.0.0.1:1")
	fix, err := l.Lookup(context.Background(), "")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if fix.HasCoords() {
		t.Errorf("fix = %+v, want no coordinates", fix)
	}
}
