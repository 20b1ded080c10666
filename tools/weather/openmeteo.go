package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/casualjim/chatmodel/pkg/slogx"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com"
	DefaultForecastURL  = "https://api.open-meteo.com"
)

// ErrCityNotFound is returned by Geocode when the search has no result.
var ErrCityNotFound = errors.New("city not found")

// Coordinates is a point on the globe in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder turns a city name into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Coordinates, error)
}

// Forecaster fetches the forecast document for a location.
type Forecaster interface {
	Forecast(ctx context.Context, at Coordinates) (Forecast, error)
}

var (
	_ Geocoder   = (*OpenMeteo)(nil)
	_ Forecaster = (*OpenMeteo)(nil)
)

// OpenMeteo talks to the Open-Meteo geocoding and forecast APIs.
type OpenMeteo struct {
	client       *http.Client
	geocodingURL string
	forecastURL  string
}

// NewOpenMeteo creates a client. Empty URLs select the public endpoints and a
// nil client selects http.DefaultClient.
func NewOpenMeteo(client *http.Client, geocodingURL, forecastURL string) *OpenMeteo {
	if client == nil {
		client = http.DefaultClient
	}
	if geocodingURL == "" {
		geocodingURL = DefaultGeocodingURL
	}
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}
	return &OpenMeteo{
		client:       client,
		geocodingURL: strings.TrimSuffix(geocodingURL, "/"),
		forecastURL:  strings.TrimSuffix(forecastURL, "/"),
	}
}

// Geocode returns the coordinates of the best match for city. Only the first
// search result is considered.
func (o *OpenMeteo) Geocode(ctx context.Context, city string) (Coordinates, error) {
	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	body, status, err := o.get(ctx, o.geocodingURL+"/v1/search?"+q.Encode())
	if err != nil {
		return Coordinates{}, err
	}
	if status < 200 || status > 299 {
		return Coordinates{}, fmt.Errorf("geocoding: unexpected status %d", status)
	}
	if !gjson.ValidBytes(body) {
		return Coordinates{}, fmt.Errorf("geocoding: invalid JSON response")
	}

	first := gjson.GetBytes(body, "results.0")
	if !first.Exists() {
		return Coordinates{}, ErrCityNotFound
	}
	lat, lon := first.Get("latitude"), first.Get("longitude")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return Coordinates{}, fmt.Errorf("geocoding: result without coordinates")
	}
	return Coordinates{Latitude: lat.Float(), Longitude: lon.Float()}, nil
}

// Forecast returns the decoded forecast document: the current temperature,
// hourly temperatures and daily sunrise and sunset in the local timezone.
// The document is returned whatever the HTTP status, as long as it is JSON.
func (o *OpenMeteo) Forecast(ctx context.Context, at Coordinates) (Forecast, error) {
	query := strings.Join([]string{
		"latitude=" + formatDegrees(at.Latitude),
		"longitude=" + formatDegrees(at.Longitude),
		"current=temperature_2m",
		"hourly=temperature_2m",
		"daily=sunrise,sunset",
		"timezone=auto",
	}, "&")

	body, status, err := o.get(ctx, o.forecastURL+"/v1/forecast?"+query)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	if status < 200 || status > 299 {
		slog.WarnContext(ctx, "forecast request failed",
			slogx.Component("tools/weather"),
			slog.Int("status", status),
			slogx.Coordinates(at.Latitude, at.Longitude),
		)
	}

	var forecast Forecast
	if err := json.Unmarshal(body, &forecast); err != nil {
		return nil, fmt.Errorf("forecast: decode response: %w", err)
	}
	if forecast == nil {
		return nil, fmt.Errorf("forecast: response is not a JSON object")
	}
	return forecast, nil
}

func (o *OpenMeteo) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
