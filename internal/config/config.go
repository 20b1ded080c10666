// Package config loads process configuration from the environment, a .env
// file (loaded by the command) and command line flags, using viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/chatmodel/provider/openai"
	"github.com/casualjim/chatmodel/tools/weather"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys, as they appear in the environment.
const (
	KeyAPIKey                = "GOOGLE_GENERATIVE_AI_API_KEY"
	KeyGeminiBaseURL         = "GEMINI_BASE_URL"
	KeyGeocodingBaseURL      = "GEOCODING_BASE_URL"
	KeyForecastBaseURL       = "FORECAST_BASE_URL"
	KeyLogLevel              = "LOG_LEVEL"
	KeyTestMode              = "TEST_MODE"
	KeyPlaywrightTestBaseURL = "PLAYWRIGHT_TEST_BASE_URL"
	KeyPlaywright            = "PLAYWRIGHT"
	KeyCIPlaywright          = "CI_PLAYWRIGHT"
)

// ErrMissingAPIKey is returned by Validate when live models are configured without a key.
var ErrMissingAPIKey = errors.New("missing " + KeyAPIKey)

// Config holds the resolved settings.
type Config struct {
	APIKey           string `mapstructure:"google_generative_ai_api_key"`
	GeminiBaseURL    string `mapstructure:"gemini_base_url"`
	GeocodingBaseURL string `mapstructure:"geocoding_base_url"`
	ForecastBaseURL  string `mapstructure:"forecast_base_url"`
	LogLevel         string `mapstructure:"log_level"`

	// TestMode selects the deterministic mock models. It is set by TEST_MODE
	// or by any of the Playwright markers.
	TestMode bool `mapstructure:"-"`
}

// New returns a viper instance with defaults set and the environment bound.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(key(KeyAPIKey), "")
	v.SetDefault(key(KeyGeminiBaseURL), openai.GeminiBaseURL)
	v.SetDefault(key(KeyGeocodingBaseURL), weather.DefaultGeocodingURL)
	v.SetDefault(key(KeyForecastBaseURL), weather.DefaultForecastURL)
	v.SetDefault(key(KeyLogLevel), "info")
	v.SetDefault(key(KeyTestMode), false)
	v.SetDefault(key(KeyPlaywrightTestBaseURL), "")
	v.SetDefault(key(KeyPlaywright), "")
	v.SetDefault(key(KeyCIPlaywright), "")

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags registers the command line flags that override the environment.
// Flag names are the lower-cased keys with dashes, e.g. --log-level.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String(flag(KeyLogLevel), "info", "log level (debug, info, warn, error)")
	flags.Bool(flag(KeyTestMode), false, "use the deterministic mock models")
	flags.String(flag(KeyGeminiBaseURL), openai.GeminiBaseURL, "OpenAI compatible Gemini endpoint")
	flags.String(flag(KeyGeocodingBaseURL), weather.DefaultGeocodingURL, "Open-Meteo geocoding endpoint")
	flags.String(flag(KeyForecastBaseURL), weather.DefaultForecastURL, "Open-Meteo forecast endpoint")

	for _, k := range []string{KeyLogLevel, KeyTestMode, KeyGeminiBaseURL, KeyGeocodingBaseURL, KeyForecastBaseURL} {
		if err := v.BindPFlag(key(k), flags.Lookup(flag(k))); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag(k), err)
		}
	}
	return nil
}

// Load reads the configuration from v. A nil v means New().
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = New()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.TestMode = v.GetBool(key(KeyTestMode)) ||
		v.GetString(key(KeyPlaywrightTestBaseURL)) != "" ||
		v.GetString(key(KeyPlaywright)) != "" ||
		v.GetString(key(KeyCIPlaywright)) != ""

	return cfg, nil
}

// Validate checks the settings needed to reach the live models.
func (c Config) Validate() error {
	if !c.TestMode && strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func key(k string) string {
	return strings.ToLower(k)
}

func flag(k string) string {
	return strings.ReplaceAll(strings.ToLower(k), "_", "-")
}
