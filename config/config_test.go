package config

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"HISTORY_BACKEND", "DATABASE_PATH", "MEDIA_STORAGE_PATH", "CAPTURES_SUBDIR",
		"INFERENCE_BACKEND", "MODEL_INPUT_SIZE", "CAPTURE_JPEG_QUALITY", "MAX_UPLOAD_MB",
		"ORPHAN_SWEEP_INTERVAL_MINUTES", "CORS_ALLOWED_ORIGINS", "PORT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.HistoryBackend != BackendSQLite {
		t.Errorf("expected sqlite backend, got %s", cfg.HistoryBackend)
	}
	if cfg.ModelInputSize != 224 {
		t.Errorf("expected input size 224, got %d", cfg.ModelInputSize)
	}
	if cfg.CaptureJpegQuality != 90 {
		t.Errorf("expected jpeg quality 90, got %d", cfg.CaptureJpegQuality)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("expected 10MB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if filepath.Base(cfg.CapturesPath) != DefaultCapturesSubDir {
		t.Errorf("expected captures dir under media storage, got %s", cfg.CapturesPath)
	}
	if cfg.OrphanSweepIntervalMinutes != 0 {
		t.Errorf("expected sweep disabled by default, got %d", cfg.OrphanSweepIntervalMinutes)
	}
}

func TestLoadConfigInvalidIntFallsBack(t *testing.T) {
	t.Setenv("MODEL_INPUT_SIZE", "-3")
	t.Setenv("HISTORY_BACKEND", "")
	t.Setenv("INFERENCE_BACKEND", "")
	t.Setenv("CAPTURE_JPEG_QUALITY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ModelInputSize != 224 {
		t.Errorf("expected fallback to 224, got %d", cfg.ModelInputSize)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "mongo")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown history backend")
	}
}

func TestValidateQualityRange(t *testing.T) {
	cfg := Config{HistoryBackend: BackendBolt, InferenceBackend: InferenceOpenCV, CaptureJpegQuality: 101}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for quality 101")
	}
	cfg.CaptureJpegQuality = 100
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
