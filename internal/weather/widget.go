package weather

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jgxilos/wdd231/internal/dom"
)

// Element IDs of the weather widget. Each one is optional; pages that omit an
// element simply do not show that reading.
const (
	CurrentTempID  = "current-temp"
	IconID         = "weather-icon"
	DescriptionID  = "weather-description"
	FeelsLikeID    = "feels-like"
	HumidityID     = "humidity"
	WindSpeedID    = "wind-speed"
	TempHighID     = "temp-high"
	TempLowID      = "temp-low"
	SunriseID      = "sunrise"
	SunsetID       = "sunset"
	LocationID     = "weather-location"
	ForecastGridID = "forecast-grid"
)

// ForecastSlotIDs receive the next three days in order.
var ForecastSlotIDs = []string{"forecast-today", "forecast-wed", "forecast-thu"}

func setText(doc *html.Node, id, text string) {
	if n := dom.FindByID(doc, id); n != nil {
		dom.SetText(n, text)
	}
}

func round(f float64) string {
	return fmt.Sprintf("%d", int(math.Round(f)))
}

func clock(t time.Time) string {
	return t.Format("3:04 PM")
}

// RenderCurrent writes current conditions into the page.
func RenderCurrent(doc *html.Node, c Conditions) {
	setText(doc, CurrentTempID, round(c.TemperatureF)+"°F")
	setText(doc, DescriptionID, c.Description)
	setText(doc, FeelsLikeID, round(c.FeelsLikeF)+"°F")
	setText(doc, HumidityID, round(c.HumidityPct)+"%")
	setText(doc, WindSpeedID, round(c.WindMPH)+" mph")
	setText(doc, TempHighID, round(c.HighF)+"°")
	setText(doc, TempLowID, round(c.LowF)+"°")
	if !c.Sunrise.IsZero() {
		setText(doc, SunriseID, clock(c.Sunrise))
	}
	if !c.Sunset.IsZero() {
		setText(doc, SunsetID, clock(c.Sunset))
	}
	if c.Location != "" {
		setText(doc, LocationID, c.Location)
	}
	if icon := dom.FindByID(doc, IconID); icon != nil && c.Icon != "" {
		dom.SetAttr(icon, "src", IconURL(c.Icon))
		dom.SetAttr(icon, "alt", c.Description)
	}
}

// RenderError resets the current-conditions readings and shows message.
func RenderError(doc *html.Node, message string) {
	setText(doc, CurrentTempID, "--°F")
	setText(doc, DescriptionID, message)
	setText(doc, FeelsLikeID, "--°F")
	setText(doc, HumidityID, "--%")
	setText(doc, WindSpeedID, "-- mph")
	if icon := dom.FindByID(doc, IconID); icon != nil {
		dom.SetAttr(icon, "src", "")
		dom.SetAttr(icon, "alt", "Weather icon not available")
	}
}

// RenderForecast fills the forecast slots. Missing days leave their slot as
// authored.
func RenderForecast(doc *html.Node, days []ForecastDay) {
	for i, id := range ForecastSlotIDs {
		if i >= len(days) {
			return
		}
		setText(doc, id, round(days[i].TemperatureF)+"°F")
	}
}

// RenderForecastError replaces the forecast grid with a notice.
func RenderForecastError(doc *html.Node) {
	if grid := dom.FindByID(doc, ForecastGridID); grid != nil {
		dom.ReplaceChildren(grid,
			dom.El("div", []html.Attribute{dom.Attr("class", "forecast-error")},
				dom.El("p", nil, dom.Text("Unable to load forecast")),
			),
		)
	}
}

// Apply fetches both readings and renders them. Failures are contained in
// the widget and logged.
func Apply(ctx context.Context, doc *html.Node, client Client, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cond, err := client.Current(ctx); err != nil {
		logger.Warn("weather widget: current conditions unavailable", zap.Error(err))
		RenderError(doc, err.Error())
	} else {
		RenderCurrent(doc, cond)
	}

	if days, err := client.Forecast(ctx); err != nil {
		logger.Warn("weather widget: forecast unavailable", zap.Error(err))
		RenderForecastError(doc)
	} else {
		RenderForecast(doc, days)
	}
}
