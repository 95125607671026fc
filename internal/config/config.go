// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all configuration knobs for a migration run.
type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	Download DownloadConfig `mapstructure:"download"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Output   OutputConfig   `mapstructure:"output"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SiteConfig addresses the source site and its login handshake.
type SiteConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	LoginPath string `mapstructure:"login_path"`
	IndexPath string `mapstructure:"index_path"`
	Password  string `mapstructure:"password"`
	UserAgent string `mapstructure:"user_agent"`
	// Login-form markers; both must appear for the page to count as a
	// login form. Overridable because they track third-party markup.
	LoginMarker    string `mapstructure:"login_marker"`
	PasswordMarker string `mapstructure:"password_marker"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DownloadConfig governs the per-event asset download batch.
type DownloadConfig struct {
	MaxParallel    int `mapstructure:"max_parallel"`
	RequestDelayMs int `mapstructure:"request_delay_ms"`
	MaxRetries     int `mapstructure:"max_retries"`
	BackoffBaseMs  int `mapstructure:"backoff_base_ms"`
}

// UploadConfig governs remote asset uploads during publish.
type UploadConfig struct {
	MaxParallel    int `mapstructure:"max_parallel"`
	RequestDelayMs int `mapstructure:"request_delay_ms"`
	MaxRetries     int `mapstructure:"max_retries"`
	BackoffBaseMs  int `mapstructure:"backoff_base_ms"`
}

// OutputConfig locates the local archive.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// StorageConfig selects the remote object store provider.
type StorageConfig struct {
	Provider    string `mapstructure:"provider"`
	EventBucket string `mapstructure:"event_bucket"`
	TeamBucket  string `mapstructure:"team_bucket"`
	BoardBucket string `mapstructure:"board_bucket"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
}

// SupabaseConfig addresses the remote Supabase project.
type SupabaseConfig struct {
	ProjectID      string `mapstructure:"project_id"`
	ServiceRoleKey string `mapstructure:"service_role_key"`
	DatabaseDSN    string `mapstructure:"database_dsn"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from defaults, an optional config file, a .env file
// and the environment. System env always wins over .env values.
func Load(path string) (Config, error) {
	// Ignore a missing .env; godotenv never overrides existing env vars.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FEBIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "https://www.febis.org")
	v.SetDefault("site.login_path", "/members-login")
	v.SetDefault("site.index_path", "/general-assembly")
	v.SetDefault("site.password", "torino")
	v.SetDefault("site.user_agent", "FEBIS-Migration-Crawler/1.0")
	v.SetDefault("site.login_marker", "do_login")
	v.SetDefault("site.password_marker", `id="password"`)
	v.SetDefault("site.timeout_seconds", 30)
	v.SetDefault("download.max_parallel", 5)
	v.SetDefault("download.request_delay_ms", 100)
	v.SetDefault("download.max_retries", 3)
	v.SetDefault("download.backoff_base_ms", 1000)
	v.SetDefault("upload.max_parallel", 3)
	v.SetDefault("upload.request_delay_ms", 200)
	v.SetDefault("upload.max_retries", 3)
	v.SetDefault("upload.backoff_base_ms", 400)
	v.SetDefault("output.dir", "./crawledData")
	v.SetDefault("storage.provider", "supabase")
	v.SetDefault("storage.event_bucket", "event-images")
	v.SetDefault("storage.team_bucket", "team-images")
	v.SetDefault("storage.board_bucket", "board-images")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must be set")
	}
	if c.Site.Password == "" {
		return fmt.Errorf("site.password must be set")
	}
	if c.Site.LoginMarker == "" || c.Site.PasswordMarker == "" {
		return fmt.Errorf("site login markers must be set")
	}
	if c.Download.MaxParallel <= 0 {
		return fmt.Errorf("download.max_parallel must be > 0")
	}
	if c.Download.MaxRetries <= 0 {
		return fmt.Errorf("download.max_retries must be > 0")
	}
	if c.Upload.MaxParallel <= 0 {
		return fmt.Errorf("upload.max_parallel must be > 0")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	switch c.Storage.Provider {
	case "supabase", "gcs", "memory":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	return nil
}

// IndexURL returns the authenticated index page URL.
func (c Config) IndexURL() string {
	return c.Site.BaseURL + c.Site.LoginPath + c.Site.IndexPath + "/"
}

// EventURL returns the authenticated page URL for one event.
func (c Config) EventURL(eventID string) string {
	return c.Site.BaseURL + c.Site.LoginPath + c.Site.IndexPath + "/" + eventID + "/"
}

// TeamPageURL returns the authenticated administration page URL.
func (c Config) TeamPageURL() string {
	return c.Site.BaseURL + c.Site.LoginPath + "/administration/"
}

// BoardPageURL returns the public executive board page URL.
func (c Config) BoardPageURL() string {
	return c.Site.BaseURL + "/about/executive-board/"
}

// BasePath is the login-scoped index path prefix used by the index parser.
func (c Config) BasePath() string {
	return c.Site.LoginPath + c.Site.IndexPath
}

// RequestTimeout converts the configured timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Site.TimeoutSeconds) * time.Second
}

// Delay returns the post-admission pacing delay for downloads.
func (c DownloadConfig) Delay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// BackoffBase returns the linear backoff base for download retries.
func (c DownloadConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}

// Delay returns the post-admission pacing delay for uploads.
func (c UploadConfig) Delay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// BackoffBase returns the linear backoff base for upload retries.
func (c UploadConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}
