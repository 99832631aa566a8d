// Package config loads and validates the operational surface that binds
// the Fetcher, Converter, and Renderer workers: remote connection,
// calendar window, directories, volume expectations, and tuning knobs.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fly-io/162719/pkg/catalog"
)

// Config holds all application configuration.
type Config struct {
	// Remote file server connection.
	RemoteHost     string `mapstructure:"remote-host"`
	RemoteUsername string `mapstructure:"remote-username"`
	RemotePassword string `mapstructure:"remote-password"`
	RemoteBucket   string `mapstructure:"remote-bucket"`
	RemoteRegion   string `mapstructure:"remote-region"`
	RemoteBasePath string `mapstructure:"remote-base-path"`

	// Radar selector.
	Radar string `mapstructure:"radar"`

	// FileExtension is the configured extension the walker filters remote
	// listings to (spec: "filter to the configured extension, .BUFR
	// equivalent").
	FileExtension string `mapstructure:"file-extension"`

	// Calendar window. WindowEnd empty means continuous operation.
	WindowStart time.Time  `mapstructure:"-"`
	WindowEnd   *time.Time `mapstructure:"-"`
	WindowStartRaw string  `mapstructure:"window-start"`
	WindowEndRaw   string  `mapstructure:"window-end"`

	// Directories.
	RawDownloadDir string `mapstructure:"raw-download-dir"`
	ContainerDir   string `mapstructure:"container-dir"`
	ProductDir     string `mapstructure:"product-dir"`
	ResourcesDir   string `mapstructure:"resources-dir"`
	StateStorePath string `mapstructure:"state-store-path"`

	// Volume expectation map: volume_code -> volume_number -> [field, ...].
	ExpectedFields catalog.ExpectedSet `mapstructure:"expected-fields"`

	// Tuning.
	PollInterval           time.Duration `mapstructure:"poll-interval"`
	MaxConcurrentDownloads int           `mapstructure:"max-concurrent-downloads"`
	MaxConcurrentDecodes   int           `mapstructure:"max-concurrent-decodes"`
	MaxConcurrentRenders   int           `mapstructure:"max-concurrent-renders"`
	VerifyChecksums        bool          `mapstructure:"verify-checksums"`
	// ResumePartial controls what the Fetcher does with a failed download's
	// temp file (spec.md §4.3 step 5): keep it for the next attempt when
	// true, delete it immediately when false.
	ResumePartial bool `mapstructure:"resume-partial"`
	// ResumeFromLatestObservation seeds the calendar walker's start instant
	// from the latest completed observation on restart, instead of always
	// restarting from window-start. Distinct from ResumePartial, which
	// governs temp-file retention on a failed download, not the walk window.
	ResumeFromLatestObservation bool          `mapstructure:"resume-from-latest-observation"`
	StuckTimeout                time.Duration `mapstructure:"stuck-timeout"`
	// AllowIncomplete never relaxes the is_complete requirement a volume
	// must satisfy to become claimable. It is passed to the Assembler as its
	// allowUndeclared flag: when true, a file whose (vol_code, vol_num) has
	// no expected-fields entry forms a volume expecting only its own field.
	AllowIncomplete bool `mapstructure:"allow-incomplete"`

	// Renderer.
	ProductType string `mapstructure:"product-type"`
	AddColmax   bool   `mapstructure:"add-colmax"`
}

// Load reads configuration from environment, config file, and defaults.
func Load() (*Config, error) {
	viper.SetDefault("remote-bucket", "radar-archive")
	viper.SetDefault("remote-region", "us-east-1")
	viper.SetDefault("remote-base-path", "/")
	viper.SetDefault("file-extension", ".BUFR")
	viper.SetDefault("raw-download-dir", ".artifacts/raw")
	viper.SetDefault("container-dir", ".artifacts/containers")
	viper.SetDefault("product-dir", ".artifacts/products")
	viper.SetDefault("resources-dir", ".artifacts/resources")
	viper.SetDefault("state-store-path", ".artifacts/catalogue.db")
	viper.SetDefault("poll-interval", "30s")
	viper.SetDefault("max-concurrent-downloads", 5)
	viper.SetDefault("max-concurrent-decodes", 2)
	viper.SetDefault("max-concurrent-renders", 2)
	viper.SetDefault("verify-checksums", true)
	viper.SetDefault("resume-partial", true)
	viper.SetDefault("resume-from-latest-observation", true)
	viper.SetDefault("stuck-timeout", "15m")
	viper.SetDefault("allow-incomplete", false)
	viper.SetDefault("product-type", "image")
	viper.SetDefault("add-colmax", true)

	viper.SetEnvPrefix("RADAR")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.radar-ingestd")

	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.resolveWindow(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) resolveWindow() error {
	if c.WindowStartRaw != "" {
		t, err := time.Parse(time.RFC3339, c.WindowStartRaw)
		if err != nil {
			return fmt.Errorf("window-start: %w", err)
		}
		c.WindowStart = t.UTC()
	}
	if c.WindowEndRaw != "" {
		t, err := time.Parse(time.RFC3339, c.WindowEndRaw)
		if err != nil {
			return fmt.Errorf("window-end: %w", err)
		}
		end := t.UTC()
		c.WindowEnd = &end
	}
	return nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.RemoteHost == "" {
		return fmt.Errorf("remote-host cannot be empty")
	}
	if c.Radar == "" {
		return fmt.Errorf("radar cannot be empty")
	}
	if c.WindowStart.IsZero() {
		return fmt.Errorf("window-start must be a valid RFC3339 timestamp")
	}
	if c.WindowEnd != nil && !c.WindowEnd.After(c.WindowStart) {
		return fmt.Errorf("window-end must be after window-start")
	}
	if c.RawDownloadDir == "" || c.ContainerDir == "" || c.ProductDir == "" || c.StateStorePath == "" {
		return fmt.Errorf("raw-download-dir, container-dir, product-dir, and state-store-path must all be set")
	}
	if len(c.ExpectedFields) == 0 {
		return fmt.Errorf("expected-fields volume expectation map must declare at least one volume code")
	}
	if c.MaxConcurrentDownloads <= 0 {
		return fmt.Errorf("max-concurrent-downloads must be positive")
	}
	if c.MaxConcurrentDecodes <= 0 {
		return fmt.Errorf("max-concurrent-decodes must be positive")
	}
	if c.MaxConcurrentRenders <= 0 {
		return fmt.Errorf("max-concurrent-renders must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}
	if c.StuckTimeout <= 0 {
		return fmt.Errorf("stuck-timeout must be positive")
	}
	if c.ProductType == "" {
		return fmt.Errorf("product-type cannot be empty")
	}
	return nil
}
