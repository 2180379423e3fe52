package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/melvy13/fruitveg-classifier-app/classifier"
	"github.com/melvy13/fruitveg-classifier-app/config"
	"github.com/melvy13/fruitveg-classifier-app/inference"
	"github.com/melvy13/fruitveg-classifier-app/media"
	"github.com/melvy13/fruitveg-classifier-app/nutrition"
	"github.com/melvy13/fruitveg-classifier-app/repository"
	"github.com/melvy13/fruitveg-classifier-app/services"
)

func main() {
	var in string
	var save bool
	var timeout time.Duration

	flag.StringVar(&in, "in", "", "input image path (jpg/png/webp/bmp/tiff)")
	flag.BoolVar(&save, "save", false, "save the capture and a history record like the server does")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "inference timeout")
	flag.Parse()

	if in == "" {
		log.Fatalf("error: -in is required")
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	table, err := nutrition.Load(cfg.NutritionDataPath)
	if err != nil {
		log.Fatalf("failed to load nutrition data: %v", err)
	}

	spec := classifier.ModelSpec{
		ModelPath:  cfg.ModelPath,
		InputName:  cfg.ModelInputName,
		OutputName: cfg.ModelOutputName,
		InputSize:  cfg.ModelInputSize,
		NumClasses: len(classifier.Labels),
	}
	inferencer, err := inference.Open(cfg.InferenceBackend, spec, cfg.OnnxRuntimeLibPath)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}
	defer inferencer.Close()

	var saver services.ImageSaver
	var history repository.HistoryRepositoryInterface
	if save {
		store, err := media.NewLocalStorage(cfg.MediaStoragePath, map[media.AssetType]string{
			media.AssetTypeCapture: filepath.Base(cfg.CapturesPath),
		})
		if err != nil {
			log.Fatalf("failed to open media store: %v", err)
		}
		saver = media.NewProcessor(store, cfg.CaptureJpegQuality)

		history, err = repository.OpenHistory(cfg, table)
		if err != nil {
			log.Fatalf("failed to open history: %v", err)
		}
		defer history.Close()
	}

	svc := services.NewClassificationService(inferencer, classifier.Labels, table, saver, history, services.Options{
		InputSize: cfg.ModelInputSize,
	})

	f, err := os.Open(in)
	if err != nil {
		log.Fatalf("failed to open %s: %v", in, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	outcome, err := svc.Classify(ctx, f)
	if err != nil {
		log.Fatalf("classification failed: %v", err)
	}
	for _, w := range outcome.Warnings() {
		log.Printf("warning: %s", w)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		log.Fatalf("failed to write result: %v", err)
	}
}
