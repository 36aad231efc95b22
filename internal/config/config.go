// Package config holds the settings for one climafetch run. The struct tags drive
// both the kong command line (flags with CLIMAFETCH_* environment fallbacks) and
// validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/lox/climafetch/internal/models"
	"github.com/lox/climafetch/internal/units"
)

const (
	appDirName  = "climacell"
	cacheDir    = "cache"
	dbFileName  = "DB.sqlite3"
	logFileName = "log.log"

	// Stdout selects the standard output stream for --output and --log-file.
	Stdout = "-"
)

type Config struct {
	Offline   bool `help:"Read the cached documents instead of calling the API." env:"CLIMAFETCH_OFFLINE"`
	SkipCache bool `name:"skipcache" help:"Neither read nor refresh the cache, and do not archive raw responses." env:"CLIMAFETCH_SKIPCACHE" validate:"excluded_if=Offline true"`
	NoCache   bool `name:"nocache" help:"Do not refresh the cache after a successful fetch." env:"CLIMAFETCH_NOCACHE"`
	NoDB      bool `name:"nodb" help:"Do not record the snapshot in the history database." env:"CLIMAFETCH_NODB"`
	Silent    bool `help:"Suppress the report." env:"CLIMAFETCH_SILENT"`

	APIKey   string `name:"apikey" help:"ClimaCell API key." env:"CLIMAFETCH_APIKEY" validate:"required_unless=Offline true"`
	Location string `help:"Location as lat,lon or a ClimaCell location id." env:"CLIMAFETCH_LOCATION" validate:"required_unless=Offline true"`
	TimeZone string `name:"timezone" help:"IANA time zone for clock times (defaults to the local zone)." env:"CLIMAFETCH_TIMEZONE"`
	BaseURL  string `name:"base-url" hidden:"" help:"Override the timelines endpoint." env:"CLIMAFETCH_BASE_URL" validate:"omitempty,url"`

	TempUnit       string `name:"tempunit" help:"Temperature unit, C or F." default:"C" env:"CLIMAFETCH_TEMPUNIT"`
	SpeedUnit      string `name:"speedunit" help:"Wind speed unit: km/h, mph, knots or m/s." default:"km/h" env:"CLIMAFETCH_SPEEDUNIT"`
	PressureUnit   string `name:"pressureunit" help:"Pressure unit, hpa or inhg." default:"hpa" env:"CLIMAFETCH_PRESSUREUNIT"`
	VisibilityUnit string `name:"visunit" help:"Visibility unit, km or miles." default:"km" env:"CLIMAFETCH_VISUNIT"`

	Output  string `short:"o" help:"Write the report to this file instead of stdout." default:"-" env:"CLIMAFETCH_OUTPUT"`
	DataDir string `name:"data-dir" help:"Directory for the cache, database and log (defaults to ~/.local/share/climacell)." env:"CLIMAFETCH_DATA_DIR"`

	Timeout      time.Duration `help:"HTTP request timeout." default:"30s" env:"CLIMAFETCH_TIMEOUT" validate:"gt=0"`
	RetryWindow  time.Duration `name:"retry-window" help:"Retry rate limited and 5xx responses for up to this long (0 disables)." default:"0s" env:"CLIMAFETCH_RETRY_WINDOW" validate:"gte=0"`
	Rate         float64       `help:"Maximum API requests per second (0 is unlimited)." default:"0" env:"CLIMAFETCH_RATE" validate:"gte=0"`
	RawRetention time.Duration `name:"raw-retention" help:"Delete archived raw responses older than this (0 keeps everything)." default:"720h" env:"CLIMAFETCH_RAW_RETENTION" validate:"gte=0"`

	LogFile     string `name:"log-file" help:"Log file path, or - for stderr (defaults to log.log in the data dir)." env:"CLIMAFETCH_LOG_FILE"`
	LogLevel    string `name:"log-level" help:"Log level: debug, info, warn or error." default:"info" env:"CLIMAFETCH_LOG_LEVEL" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Debug       bool   `help:"Log at debug level to stderr." env:"CLIMAFETCH_DEBUG"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics to this textfile after the run." env:"CLIMAFETCH_METRICS_FILE"`
}

var validate = validator.New()

// Validate checks cross-field rules the command line parser cannot express.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_unless":
		return fmt.Sprintf("%s is required unless running offline", fe.Field())
	case "excluded_if":
		return fmt.Sprintf("%s cannot be combined with Offline", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) Units() models.Units {
	var temp byte = units.Celsius
	if c.TempUnit != "" {
		temp = c.TempUnit[0]
	}
	return models.Units{
		Temperature: temp,
		Speed:       c.SpeedUnit,
		Pressure:    c.PressureUnit,
		Visibility:  c.VisibilityUnit,
	}
}

// LoadLocation resolves TimeZone, falling back to the local zone when unset.
// The returned name is what the report shows: the configured zone, else $TZ, else empty.
func (c *Config) LoadLocation() (*time.Location, string, error) {
	if c.TimeZone == "" {
		return time.Local, os.Getenv("TZ"), nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, "", fmt.Errorf("load timezone %q: %w", c.TimeZone, err)
	}
	return loc, c.TimeZone, nil
}

// DataPath returns the data directory, defaulting to $XDG_DATA_HOME/climacell or
// ~/.local/share/climacell.
func (c *Config) DataPath() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}

func CacheDir(dataDir string) string { return filepath.Join(dataDir, cacheDir) }
func DBPath(dataDir string) string   { return filepath.Join(dataDir, dbFileName) }
func LogPath(dataDir string) string  { return filepath.Join(dataDir, logFileName) }
