package providers

import (
	"fmt"
	"strings"

	"github.com/i474232898/raincoat/internal/weather"
)

// Provider names accepted by New.
const (
	OpenWeatherMap = "openweathermap"
	WeatherAPI     = "weatherapi"
	OpenMeteo      = "openmeteo"
)

// Names lists the supported provider names.
var Names = []string{OpenWeatherMap, WeatherAPI, OpenMeteo}

// Credentials holds the API keys providers may need.
type Credentials struct {
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string
}

// New builds the named provider.
func New(name string, creds Credentials, opts Options) (weather.Provider, error) {
	switch strings.ToLower(name) {
	case OpenWeatherMap, "":
		return NewOpenWeatherProvider(creds.OpenWeatherAPIKey, opts), nil
	case WeatherAPI:
		return NewWeatherAPIProvider(creds.WeatherAPIKey, opts), nil
	case OpenMeteo:
		return NewOpenMeteoProvider(NewGoogleGeocoder(creds.GeocoderAPIKey), opts), nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q (want one of %s)", name, strings.Join(Names, ", "))
	}
}
