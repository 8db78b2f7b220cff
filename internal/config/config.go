package config

import (
	"time"

	"github.com/veranemoloko/course-archive/internal/domain"
	"github.com/veranemoloko/course-archive/internal/validation"
)

// Config holds all application configuration settings.
//
// Environment variables are ARCHIVE_ followed by the field name split on
// word boundaries (CourseURL is ARCHIVE_COURSE_URL). Fields carry no
// envconfig tags so that envconfig never falls back to unprefixed names
// such as USER.
type Config struct {
	CourseURL string `yaml:"course_url" split_words:"true" validate:"required,course_url"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`

	Output      string `yaml:"output" validate:"required"`
	Format      string `yaml:"format" validate:"oneof=pdf png"`
	Delay       int    `yaml:"delay" validate:"gte=0"`
	Retries     int    `yaml:"retries" validate:"gte=0"`
	Concurrency int    `yaml:"concurrency" validate:"gte=0"`
	Headless    bool   `yaml:"headless"`
	Debug       bool   `yaml:"debug"`
	Relogin     bool   `yaml:"relogin"`
	BrowserBin  string `yaml:"browser_bin" split_words:"true"`

	BackoffInitial time.Duration `yaml:"backoff_initial" split_words:"true" validate:"gt=0"`
	BackoffMax     time.Duration `yaml:"backoff_max" split_words:"true" validate:"gtefield=BackoffInitial"`
	IdleQuiet      time.Duration `yaml:"idle_quiet" split_words:"true" validate:"gt=0"`
	RenderTimeout  time.Duration `yaml:"render_timeout" split_words:"true" validate:"gt=0"`
	SaveTimeout    time.Duration `yaml:"save_timeout" split_words:"true" validate:"gt=0"`

	StatusAddr string `yaml:"status_addr" split_words:"true"`

	LogLevel  string `yaml:"log_level" split_words:"true" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" split_words:"true" validate:"oneof=text json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Output:         "Archive",
		Format:         string(domain.FormatPDF),
		Delay:          1,
		Retries:        3,
		Headless:       true,
		Relogin:        true,
		BackoffInitial: 5 * time.Second,
		BackoffMax:     60 * time.Second,
		IdleQuiet:      time.Second,
		RenderTimeout:  30 * time.Second,
		SaveTimeout:    30 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	return validation.Struct(c)
}

// DelayDuration is the pause before capture.
func (c *Config) DelayDuration() time.Duration {
	return time.Duration(c.Delay) * time.Second
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.User != "" {
		c.User = "<censored>"
	}
	if c.Password != "" {
		c.Password = "<censored>"
	}
	return c
}
