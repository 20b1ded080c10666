package weather

import (
	"errors"

	"github.com/invopop/jsonschema"
)

// ErrInvalidInput is returned for inputs that are not exactly one of
// { city } or { latitude, longitude }.
var ErrInvalidInput = errors.New("provide either { city } or both { latitude, longitude } (but not a mix)")

const cityDescription = "City name (e.g., 'San Francisco', 'New York', 'London')"

// Input selects the location to report on. Exactly one form is valid: a
// non-empty City, or both Latitude and Longitude.
type Input struct {
	City      *string  `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ForCity returns the input for a city lookup.
func ForCity(city string) Input {
	return Input{City: &city}
}

// ForCoordinates returns the input for a coordinates lookup.
func ForCoordinates(latitude, longitude float64) Input {
	return Input{Latitude: &latitude, Longitude: &longitude}
}

func (in Input) Validate() error {
	switch {
	case in.City != nil:
		if *in.City == "" || in.Latitude != nil || in.Longitude != nil {
			return ErrInvalidInput
		}
	case in.Latitude == nil || in.Longitude == nil:
		return ErrInvalidInput
	}
	return nil
}

// JSONSchemaExtend documents the city property and states the either/or rule.
func (Input) JSONSchemaExtend(s *jsonschema.Schema) {
	if s.Properties != nil {
		if city, ok := s.Properties.Get("city"); ok {
			city.Description = cityDescription
		}
	}
	s.OneOf = []*jsonschema.Schema{
		{
			Required: []string{"city"},
			Not: &jsonschema.Schema{AnyOf: []*jsonschema.Schema{
				{Required: []string{"latitude"}},
				{Required: []string{"longitude"}},
			}},
		},
		{
			Required: []string{"latitude", "longitude"},
			Not:      &jsonschema.Schema{Required: []string{"city"}},
		},
	}
}
