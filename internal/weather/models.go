package weather

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// IconURL is the OpenWeatherMap icon template; %s is the icon code.
const IconURL = "https://openweathermap.org/img/w/%s.png"

// Location identifies the place a report is requested for.
// Zip must be digits only; Country is a two-letter code.
type Location struct {
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return l.Zip + ":" + strings.ToLower(l.Country)
}

// City is the place metadata returned by a provider for a location.
type City struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"` // two-letter ISO code
}

// Conditions are the current conditions at a city.
type Conditions struct {
	Timestamp    time.Time `json:"timestamp"` // always UTC
	TemperatureK float64   `json:"temperatureK"`
	FeelsLikeK   float64   `json:"feelsLikeK"`
	CloudsPct    float64   `json:"cloudsPct"`
	VisibilityM  float64   `json:"visibilityM"`
	WindSpeedMS  float64   `json:"windSpeedMs"`
	Main         string    `json:"main"`        // short category, e.g. "Rain"
	Description  string    `json:"description"` // e.g. "light rain"
	Icon         string    `json:"icon"`
	Condition    Condition `json:"condition"`
}

// Fahrenheit returns the temperature in °F rounded to two decimals.
func (c Conditions) Fahrenheit() float64 {
	return KelvinToFahrenheit(c.TemperatureK)
}

// IconURL returns the image URL for the condition icon, or "" when the
// provider gave none.
func (c Conditions) IconURL() string {
	if c.Icon == "" {
		return ""
	}
	if strings.HasPrefix(c.Icon, "http://") || strings.HasPrefix(c.Icon, "https://") {
		return c.Icon
	}
	if strings.HasPrefix(c.Icon, "//") {
		return "https:" + c.Icon
	}
	return fmt.Sprintf(IconURL, c.Icon)
}

// Report is one provider answer for a location.
type Report struct {
	ID        string     `json:"id"`
	Provider  string     `json:"provider"`
	Location  Location   `json:"location"`
	City      City       `json:"city"`
	Current   Conditions `json:"current"`
	FetchedAt time.Time  `json:"fetchedAt"`
}

// KelvinToFahrenheit converts k to °F, rounded to two decimals.
func KelvinToFahrenheit(k float64) float64 {
	return round2((k-273.15)*9/5 + 32)
}

// CelsiusToKelvin converts c to Kelvin.
func CelsiusToKelvin(c float64) float64 {
	return c + 273.15
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
