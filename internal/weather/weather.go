// Package weather fetches current conditions and a short forecast from
// OpenWeatherMap and renders them into the home page widget.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// ForecastDays is how many days the widget shows.
const ForecastDays = 3

var (
	ErrInvalidAPIKey    = errors.New("Invalid API key")
	ErrLocationNotFound = errors.New("Location not found")
)

// StatusError is any other non-success response.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// Conditions is a normalized current-weather reading.
type Conditions struct {
	Location     string
	TemperatureF float64
	FeelsLikeF   float64
	HighF        float64
	LowF         float64
	HumidityPct  float64
	WindMPH      float64
	Description  string
	Icon         string
	Sunrise      time.Time
	Sunset       time.Time
}

// ForecastDay is the first reading of one calendar day.
type ForecastDay struct {
	Date         time.Time
	TemperatureF float64
}

// Client is a weather data provider.
type Client interface {
	Current(ctx context.Context) (Conditions, error)
	Forecast(ctx context.Context) ([]ForecastDay, error)
}

// Options configures an OpenWeatherClient.
type Options struct {
	APIKey    string
	Latitude  string
	Longitude string
	BaseURL   string
	HTTP      *http.Client
	Now       func() time.Time
	Logger    *zap.Logger
}

// OpenWeatherClient talks to the OpenWeatherMap REST API in imperial units.
type OpenWeatherClient struct {
	opts Options
}

// NewOpenWeatherClient fills defaults and returns a client.
func NewOpenWeatherClient(opts Options) *OpenWeatherClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &OpenWeatherClient{opts: opts}
}

type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Timezone int `json:"timezone"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
	} `json:"list"`
	City struct {
		Timezone int `json:"timezone"`
	} `json:"city"`
}

func (c *OpenWeatherClient) endpoint(path string) string {
	q := url.Values{}
	q.Set("lat", c.opts.Latitude)
	q.Set("lon", c.opts.Longitude)
	q.Set("appid", c.opts.APIKey)
	q.Set("units", "imperial")
	return c.opts.BaseURL + path + "?" + q.Encode()
}

func (c *OpenWeatherClient) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return fmt.Errorf("failed to build weather request: %w", err)
	}
	resp, err := c.opts.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrInvalidAPIKey
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrLocationNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode weather response: %w", err)
	}
	return nil
}

// Current returns the current conditions.
func (c *OpenWeatherClient) Current(ctx context.Context) (Conditions, error) {
	var r currentResponse
	if err := c.get(ctx, "/weather", &r); err != nil {
		c.opts.Logger.Warn("current weather failed", zap.Error(err))
		return Conditions{}, err
	}
	zone := time.FixedZone("local", r.Timezone)
	cond := Conditions{
		Location:     r.Name,
		TemperatureF: r.Main.Temp,
		FeelsLikeF:   r.Main.FeelsLike,
		HighF:        r.Main.TempMax,
		LowF:         r.Main.TempMin,
		HumidityPct:  r.Main.Humidity,
		WindMPH:      r.Wind.Speed,
		Sunrise:      time.Unix(r.Sys.Sunrise, 0).In(zone),
		Sunset:       time.Unix(r.Sys.Sunset, 0).In(zone),
	}
	if len(r.Weather) > 0 {
		cond.Description = TitleCase(r.Weather[0].Description)
		cond.Icon = r.Weather[0].Icon
	}
	return cond, nil
}

// Forecast returns the first reading of each of the next ForecastDays days
// after today, where "today" is measured in the forecast location's zone.
func (c *OpenWeatherClient) Forecast(ctx context.Context) ([]ForecastDay, error) {
	var r forecastResponse
	if err := c.get(ctx, "/forecast", &r); err != nil {
		c.opts.Logger.Warn("forecast failed", zap.Error(err))
		return nil, err
	}
	zone := time.FixedZone("local", r.City.Timezone)
	today := dayKey(c.opts.Now().In(zone))

	var days []ForecastDay
	seen := map[string]bool{today: true}
	for _, item := range r.List {
		at := time.Unix(item.Dt, 0).In(zone)
		key := dayKey(at)
		if seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, ForecastDay{Date: at, TemperatureF: item.Main.Temp})
		if len(days) == ForecastDays {
			break
		}
	}
	return days, nil
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// TitleCase upper-cases the first letter of each space-separated word.
func TitleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

// IconURL is the OpenWeatherMap icon for code.
func IconURL(code string) string {
	return fmt.Sprintf("https://openweathermap.org/img/wn/%s@2x.png", code)
}
