package config

import (
	"time"

	"github.com/spf13/viper"

	"anjungan-print-agent/internal/models"
)

// Config holds all agent configuration.
type Config struct {
	Server ServerConfig
	Print  PrintConfig
	Render RenderConfig
	Log    LogConfig
}

// ServerConfig holds the HTTP listener and access-control settings.
type ServerConfig struct {
	Host       string
	Port       string
	APIKey     string // when set, every route requires the x-api-key header
	CORSOrigin string
}

// PrintConfig holds settings for the OS submission paths.
type PrintConfig struct {
	ShareHost    string        // host bare share names are qualified against
	TempDir      string        // empty means the OS default temp dir
	PrintTimeout time.Duration // deadline for shell-outs to copy/lp/powershell
}

// RenderConfig holds the headless-browser settings for HTML printing.
type RenderConfig struct {
	Timeout      time.Duration
	NoSandbox    bool
	DefaultWidth int // CSS px at 96 dpi; 576 covers 80mm thermal paper
	MinHeight    int // floor applied when content measurement is implausible
	ExecPath     string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Load reads configuration from AGENT_* environment variables with sane
// defaults for a kiosk deployment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AGENT")
	v.AutomaticEnv()

	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", models.DefaultPort)
	v.SetDefault("API_KEY", "")
	v.SetDefault("CORS_ORIGIN", "*")

	v.SetDefault("SHARE_HOST", "127.0.0.1")
	v.SetDefault("TEMP_DIR", "")
	v.SetDefault("PRINT_TIMEOUT", "2m")

	v.SetDefault("RENDER_TIMEOUT", "30s")
	v.SetDefault("RENDER_NO_SANDBOX", false)
	v.SetDefault("RENDER_WIDTH", 576)
	v.SetDefault("RENDER_MIN_HEIGHT", 200)
	v.SetDefault("CHROME_PATH", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_OUTPUT", "stdout")

	cfg := &Config{
		Server: ServerConfig{
			Host:       v.GetString("HOST"),
			Port:       v.GetString("PORT"),
			APIKey:     v.GetString("API_KEY"),
			CORSOrigin: v.GetString("CORS_ORIGIN"),
		},
		Print: PrintConfig{
			ShareHost:    v.GetString("SHARE_HOST"),
			TempDir:      v.GetString("TEMP_DIR"),
			PrintTimeout: v.GetDuration("PRINT_TIMEOUT"),
		},
		Render: RenderConfig{
			Timeout:      v.GetDuration("RENDER_TIMEOUT"),
			NoSandbox:    v.GetBool("RENDER_NO_SANDBOX"),
			DefaultWidth: v.GetInt("RENDER_WIDTH"),
			MinHeight:    v.GetInt("RENDER_MIN_HEIGHT"),
			ExecPath:     v.GetString("CHROME_PATH"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
	}
	return cfg, nil
}
