package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Storage Storage `mapstructure:"storage"`
	Kafka   Kafka   `mapstructure:"kafka"`
	Retry   Retry   `mapstructure:"retry"`
	Batch   Batch   `mapstructure:"batch"`
	Export  Export  `mapstructure:"export"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort     string        `mapstructure:"http_port"` // address to listen on, e.g. ":8080"
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
}

// Storage holds configuration for the MinIO export bucket.
type Storage struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for batch run commands and status events.
type Kafka struct {
	Enabled     bool     `mapstructure:"enabled"`
	GroupID     string   `mapstructure:"group_id"`     // Consumer group ID
	Topic       string   `mapstructure:"topic"`        // batch run commands
	EventsTopic string   `mapstructure:"events_topic"` // item status events
	Brokers     []string `mapstructure:"brokers"`      // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Batch holds the batch studio defaults.
type Batch struct {
	JPEGQuality     int     `mapstructure:"jpeg_quality"`
	ArchiveFolder   string  `mapstructure:"archive_folder"`
	ArchiveName     string  `mapstructure:"archive_name"`
	FilePrefix      string  `mapstructure:"file_prefix"`
	ApplyPortra     bool    `mapstructure:"apply_portra"`
	AutoStraighten  bool    `mapstructure:"auto_straighten"`
	StraightenRange float64 `mapstructure:"straighten_range"`
}

// Export holds the single-image export defaults.
type Export struct {
	Filename        string  `mapstructure:"filename"`
	StraightenRange float64 `mapstructure:"straighten_range"`
	StraightenStep  float64 `mapstructure:"straighten_step"`
}

func setDefaults() {
	viper.SetDefault("server.http_port", ":8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)
	viper.SetDefault("server.max_upload_mb", 32)

	viper.SetDefault("kafka.group_id", "lumina")
	viper.SetDefault("kafka.topic", "lumina.batch.run")
	viper.SetDefault("kafka.events_topic", "lumina.batch.events")

	viper.SetDefault("retry.attempts", 3)
	viper.SetDefault("retry.delay", 100*time.Millisecond)
	viper.SetDefault("retry.backoff", 2.0)

	viper.SetDefault("batch.jpeg_quality", 90)
	viper.SetDefault("batch.archive_folder", "lumina_batch_edit")
	viper.SetDefault("batch.archive_name", "lumina_batch_photos.zip")
	viper.SetDefault("batch.file_prefix", "lumina_edit")
	viper.SetDefault("batch.apply_portra", true)
	viper.SetDefault("batch.auto_straighten", true)
	viper.SetDefault("batch.straighten_range", 1.0)

	viper.SetDefault("export.filename", "lumina-edit.png")
	viper.SetDefault("export.straighten_range", 3.0)
	viper.SetDefault("export.straighten_step", 0.1)
}

// mustBindEnv binds secrets and deployment-specific settings to environment
// variables.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"storage.endpoint":   "MINIO_ENDPOINT",
		"storage.access_key": "MINIO_ACCESS_KEY",
		"storage.secret_key": "MINIO_SECRET_KEY",
		"kafka.brokers":      "KAFKA_BROKERS",
		"server.http_port":   "HTTP_PORT",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
