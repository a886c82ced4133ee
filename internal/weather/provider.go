package weather

import (
	"context"
	"errors"
)

// ErrUpstream is returned when the weather service fails, answers with an
// error code, or returns an empty payload.
var ErrUpstream = errors.New("weather service error")

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (Report, error)
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SaveReport(loc Location, report Report)
	GetLatest(loc Location) (Report, error)
}
