// Package weather implements the getWeather tool: the current temperature,
// hourly temperatures and daily sunrise and sunset for a city or a pair of
// coordinates, from Open-Meteo.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/casualjim/chatmodel/pkg/slogx"
	"github.com/casualjim/chatmodel/tool"
	"github.com/fogfish/opts"
)

const (
	ToolName        = "getWeather"
	ToolDescription = "Get the current weather at a location. Provide either a city OR both latitude and longitude."

	// CityNameKey is added to a forecast requested by city.
	CityNameKey = "cityName"
)

// Output is the result of a weather request: a Forecast or a LookupFailure.
type Output interface {
	isOutput()
}

// Forecast is the forecast document as returned by the forecast API.
type Forecast map[string]any

func (Forecast) isOutput() {}

// CityName returns the city the forecast was requested for, if any.
func (f Forecast) CityName() (string, bool) {
	name, ok := f[CityNameKey].(string)
	return name, ok
}

// LookupFailure reports a city that could not be geocoded. It is a regular
// result for the model to read, not an error.
type LookupFailure struct {
	Message string `json:"error"`
}

func (LookupFailure) isOutput() {}

func lookupFailure(city string) LookupFailure {
	return LookupFailure{Message: fmt.Sprintf("Could not find coordinates for \"%s\". Please check the city name.", city)}
}

type settings struct {
	client       *http.Client
	geocodingURL string
	forecastURL  string
	geocoder     Geocoder
	forecaster   Forecaster
}

type Option = opts.Option[settings]

// WithHTTPClient sets the client used for Open-Meteo requests.
func WithHTTPClient(client *http.Client) Option {
	return opts.Type[settings](func(s *settings) error {
		s.client = client
		return nil
	})
}

// WithGeocodingURL overrides the geocoding API base URL.
var WithGeocodingURL = opts.ForName[settings, string]("geocodingURL")

// WithForecastURL overrides the forecast API base URL.
var WithForecastURL = opts.ForName[settings, string]("forecastURL")

// WithGeocoder replaces the Open-Meteo geocoder.
func WithGeocoder(g Geocoder) Option {
	return opts.Type[settings](func(s *settings) error {
		s.geocoder = g
		return nil
	})
}

// WithForecaster replaces the Open-Meteo forecaster.
func WithForecaster(f Forecaster) Option {
	return opts.Type[settings](func(s *settings) error {
		s.forecaster = f
		return nil
	})
}

// Tool answers weather requests.
type Tool struct {
	geocoder   Geocoder
	forecaster Forecaster
}

func New(options ...Option) (*Tool, error) {
	var s settings
	if err := opts.Apply(&s, options); err != nil {
		return nil, err
	}

	api := NewOpenMeteo(s.client, s.geocodingURL, s.forecastURL)
	t := &Tool{geocoder: s.geocoder, forecaster: s.forecaster}
	if t.geocoder == nil {
		t.geocoder = api
	}
	if t.forecaster == nil {
		t.forecaster = api
	}
	return t, nil
}

// Execute validates the input, geocodes the city when one is given and
// fetches the forecast. A city that cannot be geocoded yields a LookupFailure;
// a failing forecast request is returned as an error.
func (t *Tool) Execute(ctx context.Context, in Input) (Output, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var at Coordinates
	if in.City != nil {
		coords, err := t.geocoder.Geocode(ctx, *in.City)
		if err != nil {
			slog.WarnContext(ctx, "geocoding failed",
				slogx.Component("tools/weather"),
				slog.String("city", *in.City),
				slogx.Error(err),
			)
			return lookupFailure(*in.City), nil
		}
		at = coords
	} else {
		at = Coordinates{Latitude: *in.Latitude, Longitude: *in.Longitude}
	}

	slog.DebugContext(ctx, "fetching forecast", slogx.Component("tools/weather"), slogx.Coordinates(at.Latitude, at.Longitude))
	forecast, err := t.forecaster.Forecast(ctx, at)
	if err != nil {
		return nil, err
	}

	if forecast == nil {
		forecast = Forecast{}
	}
	if in.City != nil {
		forecast[CityNameKey] = *in.City
	}
	return forecast, nil
}

// Definition exposes Execute to models as the getWeather tool.
func (t *Tool) Definition() tool.Definition {
	return tool.Must(t.Execute,
		tool.Name(ToolName),
		tool.Description(ToolDescription),
	)
}
