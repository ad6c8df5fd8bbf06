package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      Server      `mapstructure:"server"`
	Log         Log         `mapstructure:"log"`
	Postgres    Postgres    `mapstructure:"postgres"`
	RabbitMQ    RabbitMQ    `mapstructure:"rabbitmq"`
	Minio       Minio       `mapstructure:"minio"`
	Email       Email       `mapstructure:"email"`
	HuggingFace HuggingFace `mapstructure:"huggingface"`
	Storage     Storage     `mapstructure:"storage"`
	Generation  Generation  `mapstructure:"generation"`
}

type Server struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	APIKey    string `mapstructure:"api_key"`
	BodyLimit string `mapstructure:"body_limit"`
}

type Log struct {
	Development bool `mapstructure:"development"`
}

type Postgres struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	AutoCreate bool   `mapstructure:"autocreate"`
}

type RabbitMQ struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Queue    string `mapstructure:"queue"`
}

type Minio struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type Email struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

type HuggingFace struct {
	APIKey       string  `mapstructure:"api_key"`
	CaptionURL   string  `mapstructure:"caption_url"`
	TextURL      string  `mapstructure:"text_url"`
	CaptionCost  float64 `mapstructure:"caption_cost"`
	TextCost     float64 `mapstructure:"text_cost"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxNewTokens int     `mapstructure:"max_new_tokens"`
}

type Storage struct {
	TempDir     string `mapstructure:"temp_dir"`
	KeepUploads bool   `mapstructure:"keep_uploads"`
}

type Generation struct {
	MaxImageBytes int `mapstructure:"max_image_bytes"`
}

// InitConfig reads the yaml file at filename (skipped when empty) and applies
// POSTGEN_* environment overrides, e.g. POSTGEN_SERVER_API_KEY.
func InitConfig(filename string) (*Config, error) {
	v := viper.New()
	setServiceDefaults(v)
	v.SetEnvPrefix("POSTGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setServiceDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.body_limit", "64M")
	v.SetDefault("log.development", false)

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.username", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "curbd")
	v.SetDefault("postgres.autocreate", true)

	v.SetDefault("rabbitmq.enabled", false)
	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.username", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.queue", "post_generated")

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "curbd-uploads")
	v.SetDefault("minio.use_ssl", true)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.api_key", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "Curbd")

	v.SetDefault("huggingface.api_key", "")
	v.SetDefault("huggingface.caption_url", "https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-large")
	v.SetDefault("huggingface.text_url", "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.3")
	v.SetDefault("huggingface.caption_cost", 0.0)
	v.SetDefault("huggingface.text_cost", 0.0)
	v.SetDefault("huggingface.temperature", 0.7)
	v.SetDefault("huggingface.max_new_tokens", 512)

	v.SetDefault("storage.temp_dir", "/tmp")
	v.SetDefault("storage.keep_uploads", false)

	v.SetDefault("generation.max_image_bytes", 4<<20)
}
