package main

import (
	"context"
	"fmt"

	"github.com/casualjim/chatmodel/internal/config"
	"github.com/casualjim/chatmodel/tools/weather"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
)

func newWeatherTool(cfg config.Config) (*weather.Tool, error) {
	return weather.New(
		weather.WithGeocodingURL(cfg.GeocodingBaseURL),
		weather.WithForecastURL(cfg.ForecastBaseURL),
	)
}

func runWeather(ctx context.Context, env *environment, args []string) error {
	city := env.flags.String("city", "", "city name, e.g. 'San Francisco'")
	latitude := env.flags.Float64("latitude", 0, "latitude in decimal degrees")
	longitude := env.flags.Float64("longitude", 0, "longitude in decimal degrees")
	if err := env.load(args); err != nil {
		return err
	}

	var in weather.Input
	if env.flags.Changed("city") {
		in.City = city
	}
	if env.flags.Changed("latitude") {
		in.Latitude = latitude
	}
	if env.flags.Changed("longitude") {
		in.Longitude = longitude
	}

	wt, err := newWeatherTool(env.cfg)
	if err != nil {
		return err
	}
	out, err := wt.Execute(ctx, in)
	if err != nil {
		return err
	}

	if failure, ok := out.(weather.LookupFailure); ok {
		fmt.Fprintln(env.stderr, color.RedString(failure.Message))
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, string(b))
	return nil
}
