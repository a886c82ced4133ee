// Package present renders recommendations for the console.
package present

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/i474232898/raincoat/internal/outfit"
	"github.com/i474232898/raincoat/internal/weather"
)

// Recommendation pairs a weather report with the outfit chosen for it.
type Recommendation struct {
	Report       weather.Report `json:"report"`
	TemperatureF float64        `json:"temperatureF"`
	Outfit       outfit.Outfit  `json:"outfit"`
}

// NewRecommendation classifies the report's current temperature.
func NewRecommendation(r weather.Report, b *outfit.Builder) Recommendation {
	f := r.Current.Fahrenheit()
	return Recommendation{
		Report:       r,
		TemperatureF: f,
		Outfit:       b.Build(f),
	}
}

// Text writes the city summary followed by one "<category>: <option>" line
// per category.
func Text(w io.Writer, rec Recommendation) error {
	city := rec.Report.City
	cur := rec.Report.Current

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n", city.Name, city.Country)
	fmt.Fprintf(&sb, "lat, lon: %v, %v\n", city.Lat, city.Lon)
	sb.WriteString("\n")
	if icon := cur.IconURL(); icon != "" {
		sb.WriteString(icon + "\n")
	}
	fmt.Fprintf(&sb, "Current temp: %.2f°F\n", rec.TemperatureF)
	fmt.Fprintf(&sb, "Condition: %s\n", cur.Main)
	fmt.Fprintf(&sb, "Description: %s\n", cur.Description)
	sb.WriteString("\n")
	sb.WriteString(rec.Outfit.String())
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// JSON writes rec as indented JSON.
func JSON(w io.Writer, rec Recommendation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
