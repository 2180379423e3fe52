package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultCapturesSubDir = "captures"
)

const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"

	InferenceONNX   = "onnx"
	InferenceOpenCV = "opencv"
)

const (
	defaultModelInputSize     = 224
	defaultCaptureJpegQuality = 90
	defaultMaxUploadMB        = 10
)

type Config struct {
	// history storage
	HistoryBackend string
	DatabasePath   string
	BoltPath       string

	// media storage configuration
	MediaStoragePath string // root for generated assets
	CapturesPath     string // full-calculated path for saved classification images

	// model settings
	InferenceBackend   string
	ModelPath          string
	OnnxRuntimeLibPath string // empty uses the platform default lookup
	ModelInputName     string
	ModelOutputName    string
	ModelInputSize     int

	CaptureJpegQuality int
	MaxUploadBytes     int64

	// empty means the dataset bundled into the binary
	NutritionDataPath string

	// 0 disables the periodic orphan sweep
	OrphanSweepIntervalMinutes int

	CORSAllowedOrigins []string
	Port               string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

// getEnvNonNegIntOrDefault is getEnvIntOrDefault but accepts 0
func getEnvNonNegIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	capturesSubDir := getEnvOrDefault("CAPTURES_SUBDIR", DefaultCapturesSubDir)
	absCapturesPath := filepath.Join(absMediaStorage, capturesSubDir)

	var origins []string
	for _, o := range strings.Split(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	cfg := Config{
		HistoryBackend:             strings.ToLower(getEnvOrDefault("HISTORY_BACKEND", BackendSQLite)),
		DatabasePath:               getEnvOrDefault("DATABASE_PATH", "history.db"),
		BoltPath:                   getEnvOrDefault("BOLT_PATH", "history.bolt"),
		MediaStoragePath:           absMediaStorage,
		CapturesPath:               absCapturesPath,
		InferenceBackend:           strings.ToLower(getEnvOrDefault("INFERENCE_BACKEND", InferenceONNX)),
		ModelPath:                  getEnvOrDefault("MODEL_PATH", "./models/fruitveg_classifier.onnx"),
		OnnxRuntimeLibPath:         os.Getenv("ONNXRUNTIME_LIB_PATH"),
		ModelInputName:             getEnvOrDefault("MODEL_INPUT_NAME", "input"),
		ModelOutputName:            getEnvOrDefault("MODEL_OUTPUT_NAME", "output"),
		ModelInputSize:             getEnvIntOrDefault("MODEL_INPUT_SIZE", defaultModelInputSize),
		CaptureJpegQuality:         getEnvIntOrDefault("CAPTURE_JPEG_QUALITY", defaultCaptureJpegQuality),
		MaxUploadBytes:             int64(getEnvIntOrDefault("MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		NutritionDataPath:          os.Getenv("NUTRITION_DATA_PATH"),
		OrphanSweepIntervalMinutes: getEnvNonNegIntOrDefault("ORPHAN_SWEEP_INTERVAL_MINUTES", 0),
		CORSAllowedOrigins:         origins,
		Port:                       getEnvOrDefault("PORT", "8080"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have no safe fallback
func (c Config) Validate() error {
	switch c.HistoryBackend {
	case BackendSQLite, BackendBolt:
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND '%s' (want %s or %s)", c.HistoryBackend, BackendSQLite, BackendBolt)
	}
	switch c.InferenceBackend {
	case InferenceONNX, InferenceOpenCV:
	default:
		return fmt.Errorf("unknown INFERENCE_BACKEND '%s' (want %s or %s)", c.InferenceBackend, InferenceONNX, InferenceOpenCV)
	}
	if c.CaptureJpegQuality < 1 || c.CaptureJpegQuality > 100 {
		return fmt.Errorf("CAPTURE_JPEG_QUALITY must be between 1 and 100, got %d", c.CaptureJpegQuality)
	}
	return nil
}
