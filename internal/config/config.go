package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all sigflow configuration.
type Config struct {
	Dataset  DatasetConfig
	Render   RenderConfig
	Output   OutputConfig
	Mirror   MirrorConfig
	Classify ClassifyConfig
	LogLevel string
	Seed     uint64 // 0 = seeded from the clock
}

// DatasetConfig locates the reference signatures.
type DatasetConfig struct {
	Root      string
	LabelsCSV string
}

// RenderConfig holds procedural rendering settings.
type RenderConfig struct {
	FontDir   string
	FontCache int
}

// OutputConfig holds artifact and audit log settings.
type OutputConfig struct {
	Dir       string
	URLPrefix string
	LogPath   string
	RequestID string // "millis" or "uuid"
	SQLiteDSN string
	Webhook   string
	EchoAudit bool
}

// MirrorConfig configures the optional object-store copy of artifacts.
type MirrorConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an endpoint was configured.
func (m MirrorConfig) Enabled() bool { return m.Endpoint != "" }

// ClassifyConfig configures the optional signature classifier.
type ClassifyConfig struct {
	ModelPath           string
	ClassesPath         string
	ConfidenceThreshold float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	root := getenv("SIGFLOW_DATASET_ROOT", filepath.Join("assets", "signature_dataset"))
	outDir := getenv("SIGFLOW_OUTPUT_DIR", filepath.Join("static", "output"))
	return Config{
		Dataset: DatasetConfig{
			Root:      root,
			LabelsCSV: getenv("SIGFLOW_LABELS_CSV", filepath.Join(root, "labels.csv")),
		},
		Render: RenderConfig{
			FontDir:   getenv("SIGFLOW_FONT_DIR", filepath.Join("assets", "fonts")),
			FontCache: getenvInt("SIGFLOW_FONT_CACHE", 16),
		},
		Output: OutputConfig{
			Dir:       outDir,
			URLPrefix: getenv("SIGFLOW_URL_PREFIX", "/static/output"),
			LogPath:   getenv("SIGFLOW_LOG_PATH", filepath.Join(outDir, "generation_log.csv")),
			RequestID: strings.ToLower(getenv("SIGFLOW_REQUEST_ID", "millis")),
			SQLiteDSN: os.Getenv("SIGFLOW_SQLITE_DSN"),
			Webhook:   os.Getenv("SIGFLOW_WEBHOOK_URL"),
			EchoAudit: getenvBool("SIGFLOW_ECHO_AUDIT", false),
		},
		Mirror: MirrorConfig{
			Endpoint:  os.Getenv("SIGFLOW_MINIO_ENDPOINT"),
			AccessKey: os.Getenv("SIGFLOW_MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("SIGFLOW_MINIO_SECRET_KEY"),
			Bucket:    os.Getenv("SIGFLOW_MINIO_BUCKET"),
			UseSSL:    getenvBool("SIGFLOW_MINIO_SSL", false),
		},
		Classify: ClassifyConfig{
			ModelPath:           getenv("SIGFLOW_MODEL_PATH", filepath.Join("models", "signature_cnn.onnx")),
			ClassesPath:         getenv("SIGFLOW_CLASSES_PATH", filepath.Join("models", "label_classes.txt")),
			ConfidenceThreshold: getenvFloat("SIGFLOW_CONFIDENCE_THRESHOLD", 0.60),
		},
		LogLevel: getenv("SIGFLOW_LOG_LEVEL", "info"),
		Seed:     getenvUint("SIGFLOW_SEED", 0),
	}
}

// Validate checks the configuration for values that cannot work. All
// problems are reported together.
func (c Config) Validate() error {
	var errs []error
	switch c.Output.RequestID {
	case "millis", "uuid":
	default:
		errs = append(errs, fmt.Errorf("SIGFLOW_REQUEST_ID must be millis or uuid, got %q", c.Output.RequestID))
	}
	if t := c.Classify.ConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold must be in [0,1], got %v", t))
	}
	if c.Mirror.Enabled() && c.Mirror.Bucket == "" {
		errs = append(errs, errors.New("SIGFLOW_MINIO_BUCKET is required when SIGFLOW_MINIO_ENDPOINT is set"))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output dir must not be empty"))
	}
	if c.Render.FontCache < 1 {
		errs = append(errs, fmt.Errorf("font cache size must be positive, got %d", c.Render.FontCache))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvUint(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
