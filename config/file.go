package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileOverlay is the YAML shape of an overlay file. Every field is a
// pointer so that absent keys leave the env-derived value untouched.
type fileOverlay struct {
	App *struct {
		Name            *string        `yaml:"name"`
		Environment     *string        `yaml:"environment"`
		Debug           *bool          `yaml:"debug"`
		Timezone        *string        `yaml:"timezone"`
		ShutdownTimeout *time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"app"`

	Database *struct {
		URL          *string        `yaml:"url"`
		MaxOpenConns *int           `yaml:"max_open_conns"`
		MaxIdleConns *int           `yaml:"max_idle_conns"`
		QueryTimeout *time.Duration `yaml:"query_timeout"`
	} `yaml:"database"`

	Redis *struct {
		Host     *string `yaml:"host"`
		Port     *int    `yaml:"port"`
		Password *string `yaml:"password"`
		DB       *int    `yaml:"db"`
		Disabled *bool   `yaml:"disabled"`
	} `yaml:"redis"`

	Renderer *struct {
		BaseURL    *string `yaml:"base_url"`
		APIKey     *string `yaml:"api_key"`
		TemplateID *string `yaml:"template_id"`
	} `yaml:"renderer"`

	Mailer *struct {
		BaseURL     *string `yaml:"base_url"`
		APIKey      *string `yaml:"api_key"`
		FromAddress *string `yaml:"from_address"`
		FromName    *string `yaml:"from_name"`
	} `yaml:"mailer"`

	Certificate *struct {
		Prefix        *string `yaml:"prefix"`
		SuffixDigits  *int    `yaml:"suffix_digits"`
		MaxAttempts   *int    `yaml:"max_attempts"`
		AllowFallback *bool   `yaml:"allow_fallback"`
	} `yaml:"certificate"`

	Scheduler *struct {
		Enabled           *bool          `yaml:"enabled"`
		SweepHour         *int           `yaml:"sweep_hour"`
		SweepMinute       *int           `yaml:"sweep_minute"`
		SweepInterval     *time.Duration `yaml:"sweep_interval"`
		ReconcileInterval *time.Duration `yaml:"reconcile_interval"`
	} `yaml:"scheduler"`

	Observability *struct {
		LogLevel  *string `yaml:"log_level"`
		LogFormat *string `yaml:"log_format"`
	} `yaml:"observability"`
}

// applyFile reads a YAML overlay and merges present keys onto c.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if o := overlay.App; o != nil {
		setString(&c.App.Name, o.Name)
		if o.Environment != nil {
			c.App.Environment = Environment(*o.Environment)
		}
		setBool(&c.App.Debug, o.Debug)
		if o.Timezone != nil {
			c.App.Timezone = *o.Timezone
			if loc, err := time.LoadLocation(*o.Timezone); err == nil {
				c.App.Location = loc
			}
		}
		setDuration(&c.App.ShutdownTimeout, o.ShutdownTimeout)
	}

	if o := overlay.Database; o != nil {
		setString(&c.Database.URL, o.URL)
		setInt(&c.Database.MaxOpenConns, o.MaxOpenConns)
		setInt(&c.Database.MaxIdleConns, o.MaxIdleConns)
		setDuration(&c.Database.QueryTimeout, o.QueryTimeout)
	}

	if o := overlay.Redis; o != nil {
		setString(&c.Redis.Host, o.Host)
		setInt(&c.Redis.Port, o.Port)
		setString(&c.Redis.Password, o.Password)
		setInt(&c.Redis.DB, o.DB)
		setBool(&c.Redis.Disabled, o.Disabled)
	}

	if o := overlay.Renderer; o != nil {
		setString(&c.Renderer.BaseURL, o.BaseURL)
		setString(&c.Renderer.APIKey, o.APIKey)
		setString(&c.Renderer.TemplateID, o.TemplateID)
	}

	if o := overlay.Mailer; o != nil {
		setString(&c.Mailer.BaseURL, o.BaseURL)
		setString(&c.Mailer.APIKey, o.APIKey)
		setString(&c.Mailer.FromAddress, o.FromAddress)
		setString(&c.Mailer.FromName, o.FromName)
	}

	if o := overlay.Certificate; o != nil {
		setString(&c.Certificate.Prefix, o.Prefix)
		setInt(&c.Certificate.SuffixDigits, o.SuffixDigits)
		setInt(&c.Certificate.MaxAttempts, o.MaxAttempts)
		setBool(&c.Certificate.AllowFallback, o.AllowFallback)
	}

	if o := overlay.Scheduler; o != nil {
		setBool(&c.Scheduler.Enabled, o.Enabled)
		setInt(&c.Scheduler.SweepHour, o.SweepHour)
		setInt(&c.Scheduler.SweepMinute, o.SweepMinute)
		setDuration(&c.Scheduler.SweepInterval, o.SweepInterval)
		setDuration(&c.Scheduler.ReconcileInterval, o.ReconcileInterval)
	}

	if o := overlay.Observability; o != nil {
		setString(&c.Observability.LogLevel, o.LogLevel)
		setString(&c.Observability.LogFormat, o.LogFormat)
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}
