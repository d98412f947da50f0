package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store backend selectors.
const (
	StoreBackendFile  = "file"
	StoreBackendRedis = "redis"
)

type Config struct {
	Env string

	Server  ServerConfig
	Verify  VerifyConfig
	Capture CaptureConfig
	History HistoryConfig
	Store   StoreConfig
	Redis   RedisConfig
	Probe   ProbeConfig
	Device  DeviceConfig
	Geocode GeocodeConfig
	Status  StatusConfig
	Log     LogConfig
}

// ServerConfig points the client at the remote verification/recording service.
type ServerConfig struct {
	BaseURL string
	Timeout time.Duration
}

// VerifyConfig bounds the face-verification round trip.
type VerifyConfig struct {
	Timeout time.Duration
}

// CaptureConfig tunes the photo acquisition pipeline.
type CaptureConfig struct {
	PhotosRequired int
	MaxPhotoWidth  int
	JPEGQuality    int
}

// HistoryConfig caps the locally retained attendance history.
type HistoryConfig struct {
	Limit int
}

// StoreConfig selects and locates the durable key/value backend.
type StoreConfig struct {
	Backend        string
	DataDir        string
	SealPassphrase string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ProbeConfig drives the connectivity monitor's reachability checks.
type ProbeConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	URL      string
}

// DeviceConfig describes the fixed capture point the agent runs at.
// LocationGranted false reports every submission without coordinates.
type DeviceConfig struct {
	LocationGranted bool
	Latitude        float64
	Longitude       float64
}

// GeocodeConfig controls best-effort reverse geocoding.
type GeocodeConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
}

// StatusConfig gates the daemon-mode status/metrics HTTP server.
type StatusConfig struct {
	Enabled        bool
	Port           int
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Server = ServerConfig{
		BaseURL: strings.TrimRight(v.GetString("SERVER_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("SERVER_TIMEOUT"), 30*time.Second),
	}

	cfg.Verify = VerifyConfig{
		Timeout: parseDuration(v.GetString("VERIFY_TIMEOUT"), 10*time.Second),
	}

	cfg.Capture = CaptureConfig{
		PhotosRequired: v.GetInt("CAPTURE_PHOTOS_REQUIRED"),
		MaxPhotoWidth:  v.GetInt("CAPTURE_MAX_PHOTO_WIDTH"),
		JPEGQuality:    v.GetInt("CAPTURE_JPEG_QUALITY"),
	}

	cfg.History = HistoryConfig{
		Limit: v.GetInt("HISTORY_LIMIT"),
	}

	cfg.Store = StoreConfig{
		Backend:        v.GetString("STORE_BACKEND"),
		DataDir:        v.GetString("STORE_DATA_DIR"),
		SealPassphrase: v.GetString("STORE_SEAL_PASSPHRASE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Probe = ProbeConfig{
		Interval: parseDuration(v.GetString("PROBE_INTERVAL"), 15*time.Second),
		Timeout:  parseDuration(v.GetString("PROBE_TIMEOUT"), 3*time.Second),
		URL:      v.GetString("PROBE_URL"),
	}

	cfg.Device = DeviceConfig{
		LocationGranted: v.GetBool("DEVICE_LOCATION_GRANTED"),
		Latitude:        v.GetFloat64("DEVICE_LATITUDE"),
		Longitude:       v.GetFloat64("DEVICE_LONGITUDE"),
	}

	cfg.Geocode = GeocodeConfig{
		Enabled:  v.GetBool("GEOCODE_ENABLED"),
		Endpoint: v.GetString("GEOCODE_ENDPOINT"),
		Timeout:  parseDuration(v.GetString("GEOCODE_TIMEOUT"), 5*time.Second),
	}

	cfg.Status = StatusConfig{
		Enabled:        v.GetBool("STATUS_SERVER_ENABLED"),
		Port:           v.GetInt("STATUS_SERVER_PORT"),
		AllowedOrigins: splitCSV(v.GetString("STATUS_ALLOWED_ORIGINS")),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("SERVER_BASE_URL", "http://localhost:8000/api")
	v.SetDefault("SERVER_TIMEOUT", "30s")

	v.SetDefault("VERIFY_TIMEOUT", "10s")

	v.SetDefault("CAPTURE_PHOTOS_REQUIRED", 5)
	v.SetDefault("CAPTURE_MAX_PHOTO_WIDTH", 800)
	v.SetDefault("CAPTURE_JPEG_QUALITY", 85)

	v.SetDefault("HISTORY_LIMIT", 20)

	v.SetDefault("STORE_BACKEND", StoreBackendFile)
	v.SetDefault("STORE_DATA_DIR", "./data")
	v.SetDefault("STORE_SEAL_PASSPHRASE", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PROBE_INTERVAL", "15s")
	v.SetDefault("PROBE_TIMEOUT", "3s")
	v.SetDefault("PROBE_URL", "")

	v.SetDefault("DEVICE_LOCATION_GRANTED", true)
	v.SetDefault("DEVICE_LATITUDE", 0)
	v.SetDefault("DEVICE_LONGITUDE", 0)

	v.SetDefault("GEOCODE_ENABLED", true)
	v.SetDefault("GEOCODE_ENDPOINT", "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault("GEOCODE_TIMEOUT", "5s")

	v.SetDefault("STATUS_SERVER_ENABLED", true)
	v.SetDefault("STATUS_SERVER_PORT", 7420)
	v.SetDefault("STATUS_ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
