package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/raincoat/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
//
// A ZIP is resolved to a city through the 5 day / 3 hour forecast endpoint,
// whose "cod" must be "200"; current conditions then come from the One Call
// endpoint for the city's coordinates.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	api     *upstream
}

func NewOpenWeatherProvider(apiKey string, opts Options) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: opts.baseURL("https://api.openweathermap.org/data/2.5"),
		api:     opts.upstream("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("openweather api key is not configured")
	}

	city, err := p.lookupCity(ctx, loc)
	if err != nil {
		return weather.Report{}, err
	}

	current, err := p.current(ctx, city.Lat, city.Lon)
	if err != nil {
		return weather.Report{}, err
	}

	return weather.Report{
		City:    city,
		Current: current,
	}, nil
}

// statusCode accepts OpenWeatherMap's "cod", which is a string on some
// endpoints and a number on others.
type statusCode string

func (c *statusCode) UnmarshalJSON(b []byte) error {
	*c = statusCode(strings.Trim(string(b), `"`))
	return nil
}

func (p *OpenWeatherProvider) lookupCity(ctx context.Context, loc weather.Location) (weather.City, error) {
	values := url.Values{}
	values.Set("zip", fmt.Sprintf("%s,%s", loc.Zip, loc.Country))
	values.Set("appid", p.apiKey)

	var payload struct {
		Cod     statusCode  `json:"cod"`
		Message interface{} `json:"message"`
		City    struct {
			Name  string `json:"name"`
			Coord struct {
				Lat float64 `json:"lat"`
				Lon float64 `json:"lon"`
			} `json:"coord"`
			Country string `json:"country"`
		} `json:"city"`
	}

	u := fmt.Sprintf("%s/forecast?%s", p.baseURL, values.Encode())
	if err := p.api.getJSON(ctx, u, &payload); err != nil {
		return weather.City{}, err
	}

	if payload.Cod != "200" {
		return weather.City{}, upstreamError("forecast returned cod %q: %v", payload.Cod, payload.Message)
	}
	if payload.City.Name == "" {
		return weather.City{}, upstreamError("forecast returned no city for %s", loc.Key())
	}

	return weather.City{
		Name:    payload.City.Name,
		Lat:     payload.City.Coord.Lat,
		Lon:     payload.City.Coord.Lon,
		Country: payload.City.Country,
	}, nil
}

func (p *OpenWeatherProvider) current(ctx context.Context, lat, lon float64) (weather.Conditions, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("exclude", "minutely,hourly,daily,alerts")
	values.Set("appid", p.apiKey)

	var payload struct {
		Current *struct {
			Dt         int64   `json:"dt"`
			Temp       float64 `json:"temp"`
			FeelsLike  float64 `json:"feels_like"`
			Clouds     float64 `json:"clouds"`
			Visibility float64 `json:"visibility"`
			WindSpeed  float64 `json:"wind_speed"`
			Weather    []struct {
				Main        string `json:"main"`
				Description string `json:"description"`
				Icon        string `json:"icon"`
			} `json:"weather"`
		} `json:"current"`
	}

	u := fmt.Sprintf("%s/onecall?%s", p.baseURL, values.Encode())
	if err := p.api.getJSON(ctx, u, &payload); err != nil {
		return weather.Conditions{}, err
	}

	c := payload.Current
	if c == nil {
		return weather.Conditions{}, upstreamError("onecall returned no current conditions")
	}

	cond := weather.Conditions{
		TemperatureK: c.Temp,
		FeelsLikeK:   c.FeelsLike,
		CloudsPct:    c.Clouds,
		VisibilityM:  c.Visibility,
		WindSpeedMS:  c.WindSpeed,
		Condition:    weather.ConditionUnknown,
	}
	if c.Dt > 0 {
		cond.Timestamp = time.Unix(c.Dt, 0).UTC()
	}
	if len(c.Weather) > 0 {
		cond.Main = c.Weather[0].Main
		cond.Description = c.Weather[0].Description
		cond.Icon = c.Weather[0].Icon
		cond.Condition = mapOpenWeatherCondition(cond.Main)
	}

	return cond, nil
}

func mapOpenWeatherCondition(main string) weather.Condition {
	switch main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
