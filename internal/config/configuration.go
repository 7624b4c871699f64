package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort      int      `mapstructure:"WEBSERVER_PORT" validate:"min=1,max=65535"`
	BodyLimit          string   `mapstructure:"BODY_LIMIT" validate:"required"`
	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS" validate:"min=1,dive,required"`

	// Download Configuration
	DownloadsDir    string        `mapstructure:"DOWNLOADS_DIR" validate:"required"`
	TargetContainer string        `mapstructure:"TARGET_CONTAINER" validate:"oneof=mp4 mkv webm"`
	WriteThumbnail  bool          `mapstructure:"WRITE_THUMBNAIL"`
	DownloadTimeout time.Duration `mapstructure:"DOWNLOAD_TIMEOUT" validate:"gte=0"`

	// yt-dlp Configuration
	YtDlpPath      string   `mapstructure:"YTDLP_PATH"`
	YtDlpExtraArgs []string `mapstructure:"YTDLP_EXTRA_ARGS"`
	YtDlpVerbose   bool     `mapstructure:"YTDLP_VERBOSE"`

	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag != "" {
			viper.BindEnv(tag)
		}

		// Handle nested structs
		if field.Type.Kind() == reflect.Struct && tag == "" {
			nestedTyp := fieldVal.Type()
			for j := 0; j < fieldVal.NumField(); j++ {
				nestedField := nestedTyp.Field(j)
				nestedTag := nestedField.Tag.Get("mapstructure")
				if nestedTag != "" {
					viper.BindEnv(nestedTag)
				}
			}
		}
	}
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 5000)
	viper.SetDefault("BODY_LIMIT", "1M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DOWNLOADS_DIR", "downloads")
	viper.SetDefault("TARGET_CONTAINER", "mp4")
	viper.SetDefault("WRITE_THUMBNAIL", false)
	viper.SetDefault("DOWNLOAD_TIMEOUT", time.Duration(0))
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("YTDLP_VERBOSE", false)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Debug("Loaded configuration", "config", cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// SlogLevel maps LogLevel onto a slog.Level. Unknown values yield Info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
