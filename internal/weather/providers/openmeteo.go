package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/raincoat/internal/weather"
)

// Geocoder resolves a postal code to city metadata.
type Geocoder interface {
	Locate(ctx context.Context, loc weather.Location) (weather.City, error)
}

// geocoderMu guards the geocoder package's global ApiKey.
var geocoderMu sync.Mutex

// GoogleGeocoder resolves postal codes through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey}
}

func (g *GoogleGeocoder) Locate(ctx context.Context, loc weather.Location) (weather.City, error) {
	if g.apiKey == "" {
		return weather.City{}, fmt.Errorf("google geocoder api key is not configured")
	}
	if err := ctx.Err(); err != nil {
		return weather.City{}, err
	}

	geocoderMu.Lock()
	defer geocoderMu.Unlock()

	geocoder.ApiKey = g.apiKey

	point, err := geocoder.Geocoding(geocoder.Address{
		PostalCode: loc.Zip,
		Country:    strings.ToUpper(loc.Country),
	})
	if err != nil {
		return weather.City{}, upstreamError("geocoding %s: %v", loc.Key(), err)
	}

	city := weather.City{
		Name:    loc.Zip,
		Lat:     point.Latitude,
		Lon:     point.Longitude,
		Country: strings.ToUpper(loc.Country),
	}

	// The forward lookup has no locality name; best effort through a reverse lookup.
	if addrs, err := geocoder.GeocodingReverse(point); err == nil {
		for _, a := range addrs {
			if a.City != "" {
				city.Name = a.City
				break
			}
		}
	}

	return city, nil
}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// Open-Meteo takes coordinates only, so postal codes go through a Geocoder first.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	api      *upstream
	geocoder Geocoder
}

func NewOpenMeteoProvider(geo Geocoder, opts Options) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  opts.baseURL("https://api.open-meteo.com/v1"),
		api:      opts.upstream("openmeteo"),
		geocoder: geo,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Report, error) {
	if p.geocoder == nil {
		return weather.Report{}, fmt.Errorf("openmeteo requires a geocoder")
	}

	city, err := p.geocoder.Locate(ctx, loc)
	if err != nil {
		return weather.Report{}, err
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(city.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(city.Lon, 'f', -1, 64))
	values.Set("current_weather", "true")

	var payload struct {
		CurrentWeather *struct {
			Temperature float64 `json:"temperature"`
			WindSpeed   float64 `json:"windspeed"` // km/h
			Time        string  `json:"time"`
			WeatherCode int     `json:"weathercode"`
		} `json:"current_weather"`
	}

	u := fmt.Sprintf("%s/forecast?%s", p.baseURL, values.Encode())
	if err := p.api.getJSON(ctx, u, &payload); err != nil {
		return weather.Report{}, err
	}

	cw := payload.CurrentWeather
	if cw == nil {
		return weather.Report{}, upstreamError("openmeteo returned no current weather")
	}

	cond := mapOpenMeteoCondition(cw.WeatherCode)

	return weather.Report{
		City: city,
		// Open-Meteo current_weather has limited fields; we fill what we can.
		Current: weather.Conditions{
			Timestamp:    parseOpenMeteoTime(cw.Time),
			TemperatureK: weather.CelsiusToKelvin(cw.Temperature),
			FeelsLikeK:   weather.CelsiusToKelvin(cw.Temperature),
			WindSpeedMS:  cw.WindSpeed / 3.6,
			Main:         string(cond),
			Description:  describeOpenMeteoCode(cw.WeatherCode),
			Condition:    cond,
		},
	}, nil
}

// parseOpenMeteoTime accepts Open-Meteo's minute-precision ISO time (GMT by
// default) as well as RFC3339. Unparseable values yield the zero time.
func parseOpenMeteoTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

var openMeteoDescriptions = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	61: "slight rain",
	63: "moderate rain",
	65: "heavy rain",
	71: "slight snow fall",
	73: "moderate snow fall",
	75: "heavy snow fall",
	80: "slight rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	95: "thunderstorm",
}

func describeOpenMeteoCode(code int) string {
	if d, ok := openMeteoDescriptions[code]; ok {
		return d
	}
	return fmt.Sprintf("weather code %d", code)
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on Open-Meteo weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}
