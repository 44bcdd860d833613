package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"video-library/constant"
)

type Config struct {
	App           App           `yaml:"app"`
	Server        Server        `yaml:"server"`
	Database      Database      `yaml:"database"`
	MinIO         MinIO         `yaml:"minio"`
	Transcription Transcription `yaml:"transcription"`
	Auth          Auth          `yaml:"auth"`
	Queue         *RabbitMQ     `yaml:"rabbitmq"`
	Upload        Upload        `yaml:"upload"`
	Client        Client        `yaml:"client"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type MinIO struct {
	URL             string        `yaml:"url"`
	AccessID        string        `yaml:"access_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	Secure          bool          `yaml:"secure"`
	URLExpiry       time.Duration `yaml:"url_expiry"`
}

type Transcription struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type RabbitMQ struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

type Upload struct {
	MaxBytes        int64         `yaml:"max_bytes"`
	TicketTTL       time.Duration `yaml:"ticket_ttl"`
	DirectTicketTTL time.Duration `yaml:"direct_ticket_ttl"`
}

// Client holds the settings used by the videos CLI to reach a running server.
type Client struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == constant.EnvironmentProduction.String()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", constant.EnvironmentDevelop.String())
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.workers", 2)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "video-library.db")
	v.SetDefault("minio.bucket", "video-library")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.url_expiry", time.Hour)
	v.SetDefault("transcription.base_url", "https://api.openai.com/v1/audio/transcriptions")
	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("auth.issuer", "video-library")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("rabbitmq_port", 5672)
	v.SetDefault("rabbitmq_kind", "topic")
	v.SetDefault("rabbitmq_exchange", "video_lifecycle")
	v.SetDefault("upload.max_bytes", constant.MaxUploadBytes)
	v.SetDefault("upload.ticket_ttl", 10*time.Minute)
	v.SetDefault("upload.direct_ticket_ttl", 2*time.Minute)
	v.SetDefault("client.base_url", "http://localhost:8080")
}

// Load reads config.yaml from path. The file is optional; every key can also come from the
// environment as VIDEOLIB_<SECTION>_<KEY>.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("videolib")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		App: App{
			Environment: v.GetString("app.environment"),
			Host:        v.GetString("app.host"),
			Protocol:    v.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: v.GetString("server.port"),
			Workers:  v.GetInt("server.workers"),
		},
		Database: Database{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		MinIO: MinIO{
			URL:             v.GetString("minio.url"),
			AccessID:        v.GetString("minio.access_id"),
			SecretAccessKey: v.GetString("minio.secret_access_key"),
			Bucket:          v.GetString("minio.bucket"),
			Region:          v.GetString("minio.region"),
			Secure:          v.GetBool("minio.secure"),
			URLExpiry:       v.GetDuration("minio.url_expiry"),
		},
		Transcription: Transcription{
			APIKey:         v.GetString("transcription.api_key"),
			BaseURL:        v.GetString("transcription.base_url"),
			Model:          v.GetString("transcription.model"),
			TimeoutSeconds: v.GetInt("transcription.timeout_seconds"),
		},
		Auth: Auth{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		Queue: &RabbitMQ{
			Enabled:      v.GetBool("rabbitmq_enabled"),
			Host:         v.GetString("rabbitmq_host"),
			Port:         v.GetInt("rabbitmq_port"),
			User:         v.GetString("rabbitmq_user"),
			Pass:         v.GetString("rabbitmq_pass"),
			ExchangeName: v.GetString("rabbitmq_exchange"),
			Kind:         v.GetString("rabbitmq_kind"),
		},
		Upload: Upload{
			MaxBytes:        v.GetInt64("upload.max_bytes"),
			TicketTTL:       v.GetDuration("upload.ticket_ttl"),
			DirectTicketTTL: v.GetDuration("upload.direct_ticket_ttl"),
		},
		Client: Client{
			BaseURL: v.GetString("client.base_url"),
			Token:   v.GetString("client.token"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Upload.MaxBytes <= 0 || c.Upload.MaxBytes > constant.MaxUploadBytes {
		return fmt.Errorf("upload.max_bytes must be in (0, %d]", constant.MaxUploadBytes)
	}
	if c.Server.Workers < 1 {
		c.Server.Workers = 1
	}
	return nil
}
