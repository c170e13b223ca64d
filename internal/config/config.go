// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/vberezko/azimut/internal/logger"
	"github.com/vberezko/azimut/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server    Server        `group:"Server Options" env-namespace:"AZIMUT"`
	Probe     Probe         `group:"Probe Options" namespace:"probe" env-namespace:"AZIMUT_PROBE"`
	Cache     Cache         `group:"Cache Options" namespace:"cache" env-namespace:"AZIMUT_CACHE"`
	Icons     Icons         `group:"Icon Options" namespace:"icons" env-namespace:"AZIMUT_ICONS"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"AZIMUT_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"AZIMUT_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"AZIMUT_RATE_LIMIT"`
	A2S       A2S           `group:"A2S Options" namespace:"a2s" env-namespace:"AZIMUT_A2S"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"AZIMUT_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address      string   `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken    string   `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token, admin endpoints are disabled when empty"`
	AllowedHosts []string `short:"a" long:"allowed-host" env:"ALLOWED_HOSTS" description:"Restrict probing to these hosts, empty allows any" env-delim:","`
	TrustProxy   bool     `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Probe holds status prober configuration.
type Probe struct {
	// betteralign:ignore

	Timeout time.Duration `long:"timeout" env:"TIMEOUT" description:"Whole probe budget, connect plus response" default:"5s"`
	NoIcons bool          `long:"no-icons" env:"NO_ICONS" description:"Never request server icons"`
}

// Cache holds probe result cache configuration.
type Cache struct {
	// betteralign:ignore

	TTL     time.Duration `long:"ttl" env:"TTL" description:"How long a probe result may be served from cache" default:"60s"`
	Sweep   time.Duration `long:"sweep" env:"SWEEP" description:"Period of the unconditional cache wipe" default:"60s"`
	Disable bool          `long:"disable" env:"DISABLE" description:"Disable the probe result cache"`
}

// Icons holds icon persistence configuration.
type Icons struct {
	// betteralign:ignore

	Dir     string `long:"dir" env:"DIR" description:"Directory for saved server icons" default:"icons"`
	Format  string `long:"format" env:"FORMAT" description:"Icon file format (png or raw)" default:"png"`
	Disable bool   `long:"disable" env:"DISABLE" description:"Do not persist server icons"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path          string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"azimut.db"`
	Prune         time.Duration `long:"prune" description:"Delete probe history older than this age, then exit"`
	CheckAll      bool          `long:"check-all" description:"Re-probe every known server. Update if UP, delete if DOWN. Then exit."`
	GenerateCount int           `long:"gen-fake-data" hidden:"true"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file" default:"azimut.mmdb"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// A2S holds Source Query protocol configuration.
type A2S struct {
	// betteralign:ignore

	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout" default:"3s"`
	BufferSize uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"Response body buffer size" default:"1400"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"8"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	if cfg.Icons.Format != "png" && cfg.Icons.Format != "raw" {
		fmt.Fprintf(os.Stderr, "Unknown icon format %q, expected png or raw\n", cfg.Icons.Format)
		os.Exit(1)
	}

	return &cfg
}
