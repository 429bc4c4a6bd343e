package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage and warehouse backends.
const (
	BackendLocal    = "local"
	BackendGCS      = "gcs"
	BackendSQLite   = "sqlite"
	BackendBigQuery = "bigquery"
)

var (
	defaultImageExtensions = []string{".jpeg", ".jpg", ".png", ".gif", ".raw", ".bmp", ".pdf", ".webp", ".ico", ".tiff"}
	defaultVideoExtensions = []string{".mov", ".mpeg4", ".mp4", ".avi"}
)

type Config struct {
	Port        int
	Password    string
	IngestToken string // Bearer token for the ingestion trigger, empty disables the check
	CORSOrigins []string

	LogDirectory  string
	WorkDirectory string // per-invocation scratch dirs are created below it

	Project          string
	InputBucket      string
	OutputBucket     string
	MetadataObject   string
	StorageBackend   string
	StorageDirectory string // root of the local object store
	WarehouseBackend string
	DatabasePath     string

	NodeRedURL    string
	NotifyTimeout time.Duration
	VideoTimeout  time.Duration

	ConfidenceThreshold float64
	FrameTolerance      float64 // seconds
	PreviewFrame        int

	FFmpegPath  string
	TimeZone    string
	CameraNames []string

	ImageExtensions []string
	VideoExtensions []string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first and never overrides real variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnvAsInt("PORT", 8080),
		Password:    getEnv("PASSWORD", "smartparks"),
		IngestToken: getEnv("INGEST_TOKEN", ""),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),

		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		WorkDirectory: getEnv("WORK_DIR", filepath.Join(os.TempDir(), "smartparks")),

		Project:          getEnv("PROJECT", "smart-parks-cameras"),
		InputBucket:      getEnv("INPUT_BUCKET", "camera-traps-media"),
		OutputBucket:     getEnv("OUTPUT_BUCKET", "models-outputs"),
		MetadataObject:   getEnv("METADATA_OBJECT", "metadata.csv"),
		StorageBackend:   getEnv("STORAGE_BACKEND", BackendLocal),
		StorageDirectory: getEnv("STORAGE_DIR", filepath.Join(".", "buckets")),
		WarehouseBackend: getEnv("WAREHOUSE_BACKEND", BackendSQLite),
		DatabasePath:     getEnv("DATABASE_PATH", filepath.Join(".", "annotations.db")),

		NodeRedURL:    getEnv("NODE_RED_URL", "https://nodered-xgwild.smartparks.org/artefact"),
		NotifyTimeout: getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		VideoTimeout:  getEnvAsDuration("VIDEO_TIMEOUT", 500*time.Second),

		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.6),
		FrameTolerance:      getEnvAsFloat("FRAME_TOLERANCE", 0.05),
		PreviewFrame:        getEnvAsInt("PREVIEW_FRAME", 60),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		TimeZone:    getEnv("TIME_ZONE", "Europe/Paris"),
		CameraNames: getEnvAsList("CAMERA_NAMES", nil),

		ImageExtensions: getEnvAsList("IMAGE_EXTENSIONS", defaultImageExtensions),
		VideoExtensions: getEnvAsList("VIDEO_EXTENSIONS", defaultVideoExtensions),
	}
}

// Location returns the dashboard time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if seconds := getEnvAsInt64(key, -1); seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
