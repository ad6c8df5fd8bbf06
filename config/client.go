package config

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	DevBackendURL  = "http://localhost:8000"
)

var ErrBackendURLRequired = errors.New("CURBD_BACKEND_URL is required outside development")

// Client configures the curbd command line client. It is built once in main
// and handed to client.NewSession; nothing reads it from package state.
type Client struct {
	Env          string  `mapstructure:"env"`
	BackendURL   string  `mapstructure:"backend_url"`
	APIKey       string  `mapstructure:"api_key"`
	MaxImageSize int     `mapstructure:"max_image_size"`
	ScaleFactor  float64 `mapstructure:"scale_factor"`
	Quality      int     `mapstructure:"quality"`
	PreviewDir   string  `mapstructure:"preview_dir"`
	PreviewSize  int     `mapstructure:"preview_size"`
	Debug        bool    `mapstructure:"debug"`
}

// BaseURL is the API origin: a fixed local address in development, the
// supplied backend URL everywhere else.
func (c *Client) BaseURL() string {
	if c.Env == EnvDevelopment {
		return DevBackendURL
	}
	return strings.TrimRight(c.BackendURL, "/")
}

// RegisterClientFlags adds the client flags to fs.
func RegisterClientFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional yaml config file")
	fs.String("env", EnvDevelopment, "environment (development uses "+DevBackendURL+")")
	fs.String("backend-url", "", "generation API origin outside development")
	fs.String("api-key", "", "API key sent as x-api-key")
	fs.Int("max-image-size", 1<<20, "images above this many bytes are compressed before upload")
	fs.Float64("scale-factor", 0.7, "linear scale applied to oversized images")
	fs.Int("quality", 80, "JPEG quality for compressed images")
	fs.String("preview-dir", "", "directory for preview thumbnails (default: system temp)")
	fs.Int("preview-size", 256, "longest side of preview thumbnails")
	fs.Bool("debug", false, "development logging")
}

// InitClientConfig resolves the client config with precedence
// flag > CURBD_* env > config file > default.
func InitClientConfig(fs *pflag.FlagSet) (*Client, error) {
	v := viper.New()
	v.SetEnvPrefix("CURBD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	if filename, _ := fs.GetString("config"); filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Client{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.Env != EnvDevelopment && cfg.BackendURL == "" {
		return nil, ErrBackendURLRequired
	}
	return cfg, nil
}
