package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/raincoat/internal/config"
	"github.com/i474232898/raincoat/internal/weather"
)

type stubProvider struct {
	err   error
	calls int
	loc   weather.Location
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(_ context.Context, loc weather.Location) (weather.Report, error) {
	p.calls++
	p.loc = loc
	if p.err != nil {
		return weather.Report{}, p.err
	}
	return weather.Report{
		City: weather.City{Name: "Beverly Hills", Country: "US", Lat: 34.09, Lon: -118.41},
		Current: weather.Conditions{
			TemperatureK: 291.483, // 65°F
			Main:         "Clear",
			Description:  "clear sky",
			Icon:         "01d",
		},
	}, nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Provider:        "openweathermap",
		CountryCode:     "us",
		HTTPTimeout:     time.Second,
		Port:            "8080",
		FetchInterval:   time.Minute,
		StoreMaxHistory: 10,
	}
}

type testDeps struct {
	cfg         *config.AppConfig
	provider    *stubProvider
	configCalls int
}

func newTestDeps(p *stubProvider) *testDeps {
	return &testDeps{cfg: testConfig(), provider: p}
}

func (td *testDeps) deps() deps {
	return deps{
		loadConfig: func() (*config.AppConfig, error) {
			td.configCalls++
			return td.cfg, nil
		},
		newProvider: func(*config.AppConfig) (weather.Provider, error) {
			return td.provider, nil
		},
	}
}

func runCLI(td *testDeps, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, td.deps())
	return code, stdout.String(), stderr.String()
}

func TestRunMissingZip(t *testing.T) {
	td := newTestDeps(&stubProvider{})

	code, out, _ := runCLI(td)
	if code != 1 {
		t.Fatalf("expected exit status 1, got %d", code)
	}
	if !strings.Contains(out, "Zip code required.  Exiting...") {
		t.Fatalf("unexpected output: %q", out)
	}
	if td.configCalls != 0 || td.provider.calls != 0 {
		t.Fatalf("missing zip must exit before any work, got %d config loads and %d fetches", td.configCalls, td.provider.calls)
	}
}

func TestRunZeroZipIsMissing(t *testing.T) {
	for _, zip := range []string{"0", "00000"} {
		td := newTestDeps(&stubProvider{})

		code, out, _ := runCLI(td, zip)
		if code != 1 {
			t.Fatalf("%q: expected exit status 1, got %d", zip, code)
		}
		if !strings.Contains(out, "Zip code required.  Exiting...") {
			t.Fatalf("%q: unexpected output: %q", zip, out)
		}
		if td.provider.calls != 0 {
			t.Fatalf("%q: zero zip must not reach the provider", zip)
		}
	}
}

func TestRunNonNumericZip(t *testing.T) {
	for _, zip := range []string{"abc", "9021a", "902.10", "90 210"} {
		td := newTestDeps(&stubProvider{})

		code, out, _ := runCLI(td, zip)
		if code != 1 {
			t.Fatalf("%q: expected exit status 1, got %d", zip, code)
		}
		if !strings.Contains(out, "Zip code must be numeric.  Exiting...") {
			t.Fatalf("%q: unexpected output: %q", zip, out)
		}
		if td.provider.calls != 0 {
			t.Fatalf("%q: invalid zip must not reach the provider", zip)
		}
	}
}

func TestRunPrintsRecommendation(t *testing.T) {
	td := newTestDeps(&stubProvider{})

	code, out, errOut := runCLI(td, "02134")
	if code != 0 {
		t.Fatalf("expected exit status 0, got %d (stderr %q)", code, errOut)
	}
	for _, want := range []string{
		"Beverly Hills (US)",
		"https://openweathermap.org/img/w/01d.png",
		"Current temp: 65.00°F",
		"Condition: Clear",
		"pants: jeans",
		"shirt: T-shirt",
		"outerwear: hoodie",
		"shoes: sneakers",
		"socks: socks",
		"gloves: unknown",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	// Leading zeros survive.
	if td.provider.loc.Zip != "02134" || td.provider.loc.Country != "us" {
		t.Fatalf("unexpected location: %+v", td.provider.loc)
	}
}

func TestRunCountryAndProviderFlags(t *testing.T) {
	td := newTestDeps(&stubProvider{})

	code, _, errOut := runCLI(td, "--country", "CA", "-p", "WeatherAPI", "12345")
	if code != 0 {
		t.Fatalf("expected exit status 0, got %d (stderr %q)", code, errOut)
	}
	if td.provider.loc.Country != "ca" {
		t.Fatalf("expected country ca, got %q", td.provider.loc.Country)
	}
	if td.cfg.Provider != "weatherapi" {
		t.Fatalf("expected provider weatherapi, got %q", td.cfg.Provider)
	}

	td = newTestDeps(&stubProvider{})
	code, _, errOut = runCLI(td, "-p", "darksky", "12345")
	if code != 1 || !strings.Contains(errOut, "invalid configuration") {
		t.Fatalf("expected configuration error, got %d %q", code, errOut)
	}
	if td.provider.calls != 0 {
		t.Fatalf("invalid configuration must not reach the provider")
	}
}

func TestRunProviderFlagOverridesBadEnvironment(t *testing.T) {
	td := newTestDeps(&stubProvider{})
	td.cfg.Provider = "darksky"

	code, _, errOut := runCLI(td, "-p", "openmeteo", "90210")
	if code != 0 {
		t.Fatalf("expected exit status 0, got %d (stderr %q)", code, errOut)
	}
	if td.provider.calls != 1 {
		t.Fatalf("expected one fetch, got %d", td.provider.calls)
	}
}

func TestRunJSON(t *testing.T) {
	td := newTestDeps(&stubProvider{})

	code, out, errOut := runCLI(td, "--json", "90210")
	if code != 0 {
		t.Fatalf("expected exit status 0, got %d (stderr %q)", code, errOut)
	}

	var decoded struct {
		TemperatureF float64           `json:"temperatureF"`
		Outfit       map[string]string `json:"outfit"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	if decoded.TemperatureF != 65 {
		t.Fatalf("expected 65°F, got %v", decoded.TemperatureF)
	}
	if decoded.Outfit["pants"] != "jeans" {
		t.Fatalf("expected jeans, got %q", decoded.Outfit["pants"])
	}
}

func TestRunUpstreamError(t *testing.T) {
	td := newTestDeps(&stubProvider{err: fmt.Errorf("%w: cod 404", weather.ErrUpstream)})

	code, out, errOut := runCLI(td, "99999")
	if code != 1 {
		t.Fatalf("expected exit status 1, got %d", code)
	}
	if !strings.Contains(out, "Error.  Exiting...") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Contains(out, "pants:") || errOut != "" {
		t.Fatalf("nothing else should be printed, got %q / %q", out, errOut)
	}
}

func TestRunMalformedTablesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.json")
	if err := os.WriteFile(path, []byte(`{"pants": {"options": [{"name": "jeans", "max": 50}]}}`), 0o600); err != nil {
		t.Fatalf("write tables: %v", err)
	}

	td := newTestDeps(&stubProvider{})
	td.cfg.OutfitTablesFile = path

	code, _, errOut := runCLI(td, "90210")
	if code != 1 || !strings.Contains(errOut, "OUTFIT_TABLES_FILE") {
		t.Fatalf("expected tables error, got %d %q", code, errOut)
	}
	if td.provider.calls != 0 {
		t.Fatalf("malformed tables must fail before fetching")
	}
}

func TestRunConfigError(t *testing.T) {
	d := deps{
		loadConfig: func() (*config.AppConfig, error) {
			return nil, errors.New("invalid HTTP_TIMEOUT")
		},
	}
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"90210"}, &stdout, &stderr, d); code != 1 {
		t.Fatalf("expected exit status 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "invalid HTTP_TIMEOUT") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestRunVersion(t *testing.T) {
	td := newTestDeps(&stubProvider{})

	code, out, _ := runCLI(td, "version")
	if code != 0 {
		t.Fatalf("expected exit status 0, got %d", code)
	}
	if !strings.Contains(out, "raincoat version "+Version) {
		t.Fatalf("unexpected output: %q", out)
	}
	if td.configCalls != 0 {
		t.Fatalf("version must not load configuration")
	}
}
