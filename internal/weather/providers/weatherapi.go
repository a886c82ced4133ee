package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/raincoat/internal/weather"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	api     *upstream
}

func NewWeatherAPIProvider(apiKey string, opts Options) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: opts.baseURL("https://api.weatherapi.com/v1"),
		api:     opts.upstream("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("weatherapi api key is not configured")
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI accepts US ZIP, UK and Canadian postcodes directly in "q".
	values.Set("q", loc.Zip)

	var payload struct {
		Location *struct {
			Name string  `json:"name"`
			Lat  float64 `json:"lat"`
			Lon  float64 `json:"lon"`
		} `json:"location"`
		Current struct {
			LastUpdatedEpoch int64   `json:"last_updated_epoch"`
			TempC            float64 `json:"temp_c"`
			FeelsLikeC       float64 `json:"feelslike_c"`
			Cloud            float64 `json:"cloud"`
			VisKm            float64 `json:"vis_km"`
			WindKph          float64 `json:"wind_kph"`
			Condition        struct {
				Text string `json:"text"`
				Icon string `json:"icon"`
			} `json:"condition"`
		} `json:"current"`
	}

	u := fmt.Sprintf("%s/current.json?%s", p.baseURL, values.Encode())
	if err := p.api.getJSON(ctx, u, &payload); err != nil {
		return weather.Report{}, err
	}
	if payload.Location == nil || payload.Location.Name == "" {
		return weather.Report{}, upstreamError("weatherapi returned no location for %s", loc.Key())
	}

	cond := weather.Conditions{
		TemperatureK: weather.CelsiusToKelvin(payload.Current.TempC),
		FeelsLikeK:   weather.CelsiusToKelvin(payload.Current.FeelsLikeC),
		CloudsPct:    payload.Current.Cloud,
		VisibilityM:  payload.Current.VisKm * 1000,
		// Convert wind from kph to m/s (approx).
		WindSpeedMS: payload.Current.WindKph / 3.6,
		Main:        payload.Current.Condition.Text,
		Description: strings.ToLower(payload.Current.Condition.Text),
		Icon:        payload.Current.Condition.Icon,
		Condition:   mapWeatherAPICondition(payload.Current.Condition.Text),
	}
	if payload.Current.LastUpdatedEpoch > 0 {
		cond.Timestamp = time.Unix(payload.Current.LastUpdatedEpoch, 0).UTC()
	}

	return weather.Report{
		City: weather.City{
			Name: payload.Location.Name,
			Lat:  payload.Location.Lat,
			Lon:  payload.Location.Lon,
			// WeatherAPI reports full country names; keep the requested code.
			Country: strings.ToUpper(loc.Country),
		},
		Current: cond,
	}, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case contains(text, "thunder") || contains(text, "storm"):
		return weather.ConditionStorm
	case contains(text, "rain") || contains(text, "shower") || contains(text, "drizzle"):
		return weather.ConditionRain
	case contains(text, "snow") || contains(text, "sleet") || contains(text, "blizzard"):
		return weather.ConditionSnow
	case contains(text, "mist") || contains(text, "fog"):
		return weather.ConditionMist
	case contains(text, "cloud") || contains(text, "overcast"):
		return weather.ConditionCloudy
	case contains(text, "sunny") || contains(text, "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
