package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/raincoat/internal/weather"
)

const forecastOK = `{
  "cod": "200",
  "message": 0,
  "cnt": 0,
  "list": [],
  "city": {"name": "Beverly Hills", "coord": {"lat": 34.0901, "lon": -118.4065}, "country": "US"}
}`

const onecallOK = `{
  "lat": 34.0901,
  "lon": -118.4065,
  "current": {
    "dt": 1700000000,
    "temp": 300,
    "feels_like": 301.2,
    "clouds": 20,
    "visibility": 10000,
    "wind_speed": 3.6,
    "weather": [{"id": 801, "main": "Clouds", "description": "few clouds", "icon": "02d"}]
  }
}`

func newOpenWeatherServer(t *testing.T, forecast string, forecastStatus int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("appid") != "test-key" {
			t.Errorf("missing appid on %s", r.URL.Path)
		}
		switch r.URL.Path {
		case "/forecast":
			if got := r.URL.Query().Get("zip"); got != "90210,us" {
				t.Errorf("unexpected zip query %q", got)
			}
			w.WriteHeader(forecastStatus)
			_, _ = w.Write([]byte(forecast))
		case "/onecall":
			if r.URL.Query().Get("lat") != "34.0901" || r.URL.Query().Get("lon") != "-118.4065" {
				t.Errorf("unexpected coordinates %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(onecallOK))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenWeatherFetch(t *testing.T) {
	srv, _ := newOpenWeatherServer(t, forecastOK, http.StatusOK)
	p := NewOpenWeatherProvider("test-key", Options{Client: srv.Client(), BaseURL: srv.URL})

	r, err := p.Fetch(context.Background(), weather.Location{Zip: "90210", Country: "us"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if r.City.Name != "Beverly Hills" || r.City.Country != "US" {
		t.Fatalf("unexpected city: %+v", r.City)
	}
	if got := r.Current.Fahrenheit(); got != 80.33 {
		t.Fatalf("expected 80.33°F, got %v", got)
	}
	if r.Current.Main != "Clouds" || r.Current.Description != "few clouds" || r.Current.Icon != "02d" {
		t.Fatalf("unexpected conditions: %+v", r.Current)
	}
	if r.Current.Condition != weather.ConditionCloudy {
		t.Fatalf("expected cloudy, got %s", r.Current.Condition)
	}
	if !r.Current.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected timestamp %v", r.Current.Timestamp)
	}
}

func TestOpenWeatherNon200Cod(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"http error", `{"cod": "404", "message": "city not found"}`, http.StatusNotFound},
		{"cod in body", `{"cod": "404", "message": "city not found"}`, http.StatusOK},
		{"numeric cod", `{"cod": 401, "message": "Invalid API key"}`, http.StatusOK},
		{"empty payload", ``, http.StatusOK},
		{"no city", `{"cod": "200"}`, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, calls := newOpenWeatherServer(t, tc.body, tc.status)
			p := NewOpenWeatherProvider("test-key", Options{Client: srv.Client(), BaseURL: srv.URL})

			_, err := p.Fetch(context.Background(), weather.Location{Zip: "90210", Country: "us"})
			if !errors.Is(err, weather.ErrUpstream) {
				t.Fatalf("expected ErrUpstream, got %v", err)
			}
			if n := atomic.LoadInt32(calls); n != 1 {
				t.Fatalf("expected a single request and no retry, got %d", n)
			}
		})
	}
}

func TestOpenWeatherRequiresKey(t *testing.T) {
	p := NewOpenWeatherProvider("", Options{})
	if _, err := p.Fetch(context.Background(), weather.Location{Zip: "90210", Country: "us"}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func newTestUpstream(srv *httptest.Server, retries int) *upstream {
	u := Options{Client: srv.Client(), MaxRetries: retries}.upstream("test")
	u.backoff = time.Millisecond
	return u
}

func TestRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	if err := newTestUpstream(srv, 1).getJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("getJSON: %v", err)
	}
	if !out.OK || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected success on second attempt, calls=%d", calls)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	u := newTestUpstream(srv, 3)
	var out struct{}
	for i := 0; i < 10; i++ {
		if err := u.getJSON(context.Background(), srv.URL, &out); !errors.Is(err, weather.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
	}
	// Unknown ZIPs neither retry nor open the breaker.
	if n := atomic.LoadInt32(&calls); n != 10 {
		t.Fatalf("expected one request per call, got %d", n)
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	u := newTestUpstream(srv, 0)
	var out struct{}
	for i := 0; i < 10; i++ {
		if err := u.getJSON(context.Background(), srv.URL, &out); !errors.Is(err, weather.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
	}
	// The default breaker trips after more than five consecutive failures.
	if n := atomic.LoadInt32(&calls); n != 6 {
		t.Fatalf("expected the breaker to stop requests after 6 failures, got %d", n)
	}
}

func TestGetJSONEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("  \n"))
	}))
	defer srv.Close()

	var out struct{}
	err := newTestUpstream(srv, 0).getJSON(context.Background(), srv.URL, &out)
	if !errors.Is(err, weather.ErrUpstream) || !strings.Contains(err.Error(), "empty payload") {
		t.Fatalf("expected empty payload error, got %v", err)
	}
}

func TestWeatherAPIFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/current.json" || r.URL.Query().Get("q") != "10001" || r.URL.Query().Get("key") != "k" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{
		  "location": {"name": "New York", "lat": 40.75, "lon": -74.0, "country": "United States of America"},
		  "current": {"last_updated_epoch": 1700000000, "temp_c": 0, "feelslike_c": -3, "cloud": 75,
		    "vis_km": 16, "wind_kph": 36, "condition": {"text": "Light rain shower", "icon": "//cdn.weatherapi.com/weather/64x64/day/353.png"}}
		}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider("k", Options{Client: srv.Client(), BaseURL: srv.URL})
	r, err := p.Fetch(context.Background(), weather.Location{Zip: "10001", Country: "us"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if r.City.Name != "New York" || r.City.Country != "US" {
		t.Fatalf("unexpected city: %+v", r.City)
	}
	if got := r.Current.Fahrenheit(); got != 32 {
		t.Fatalf("expected 32°F, got %v", got)
	}
	if r.Current.Condition != weather.ConditionRain {
		t.Fatalf("expected rain, got %s", r.Current.Condition)
	}
	if r.Current.WindSpeedMS != 10 {
		t.Fatalf("expected 10 m/s, got %v", r.Current.WindSpeedMS)
	}
	if got := r.Current.IconURL(); got != "https://cdn.weatherapi.com/weather/64x64/day/353.png" {
		t.Fatalf("unexpected icon url %q", got)
	}
}

type fakeGeocoder struct {
	city weather.City
	err  error
}

func (f fakeGeocoder) Locate(context.Context, weather.Location) (weather.City, error) {
	return f.city, f.err
}

func TestOpenMeteoFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/forecast" || q.Get("latitude") != "47.61" || q.Get("longitude") != "-122.33" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"current_weather": {"temperature": 10, "windspeed": 18, "time": "2026-01-02T15:00", "weathercode": 3}}`))
	}))
	defer srv.Close()

	geo := fakeGeocoder{city: weather.City{Name: "Seattle", Lat: 47.61, Lon: -122.33, Country: "US"}}
	p := NewOpenMeteoProvider(geo, Options{Client: srv.Client(), BaseURL: srv.URL})

	r, err := p.Fetch(context.Background(), weather.Location{Zip: "98101", Country: "us"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := r.Current.Fahrenheit(); got != 50 {
		t.Fatalf("expected 50°F, got %v", got)
	}
	if r.Current.Condition != weather.ConditionCloudy || r.Current.Description != "overcast" {
		t.Fatalf("unexpected conditions: %+v", r.Current)
	}
	want := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	if !r.Current.Timestamp.Equal(want) {
		t.Fatalf("expected %v, got %v", want, r.Current.Timestamp)
	}
}

func TestOpenMeteoGeocoderFailure(t *testing.T) {
	geoErr := errors.New("no results")
	p := NewOpenMeteoProvider(fakeGeocoder{err: geoErr}, Options{})

	if _, err := p.Fetch(context.Background(), weather.Location{Zip: "00000", Country: "us"}); !errors.Is(err, geoErr) {
		t.Fatalf("expected geocoder error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names {
		p, err := New(name, Credentials{}, Options{})
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if p.Name() != name {
			t.Fatalf("New(%q) built %q", name, p.Name())
		}
	}
	if _, err := New("darksky", Credentials{}, Options{}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
