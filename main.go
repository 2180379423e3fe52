package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/melvy13/fruitveg-classifier-app/classifier"
	"github.com/melvy13/fruitveg-classifier-app/config"
	"github.com/melvy13/fruitveg-classifier-app/handlers"
	"github.com/melvy13/fruitveg-classifier-app/inference"
	"github.com/melvy13/fruitveg-classifier-app/media"
	"github.com/melvy13/fruitveg-classifier-app/nutrition"
	"github.com/melvy13/fruitveg-classifier-app/realtime"
	"github.com/melvy13/fruitveg-classifier-app/repository"
	"github.com/melvy13/fruitveg-classifier-app/services"
	"github.com/melvy13/fruitveg-classifier-app/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	log.Printf("Ensuring storage directory exists: %s", cfg.CapturesPath)
	if err := os.MkdirAll(cfg.CapturesPath, 0755); err != nil {
		log.Fatalf("FATAL: Failed to create storage directory %s: %v", cfg.CapturesPath, err)
	}

	table, err := nutrition.Load(cfg.NutritionDataPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load nutrition data: %v", err)
	}
	for _, label := range classifier.Labels {
		if _, err := table.Lookup(label); err != nil {
			log.Printf("Warning: model label '%s' has no nutrition entry; its classifications will not be saved", label)
		}
	}

	history, err := repository.OpenHistory(cfg, table)
	if err != nil {
		log.Fatalf("FATAL: Failed to open history store: %v", err)
	}
	defer history.Close()

	capturesSubDir := filepath.Base(cfg.CapturesPath)
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, map[media.AssetType]string{
		media.AssetTypeCapture: capturesSubDir,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	mediaProcessor := media.NewProcessor(mediaStore, cfg.CaptureJpegQuality)

	spec := classifier.ModelSpec{
		ModelPath:  cfg.ModelPath,
		InputName:  cfg.ModelInputName,
		OutputName: cfg.ModelOutputName,
		InputSize:  cfg.ModelInputSize,
		NumClasses: len(classifier.Labels),
	}
	inferencer, err := inference.Open(cfg.InferenceBackend, spec, cfg.OnnxRuntimeLibPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load model: %v", err)
	}
	defer inferencer.Close()

	hub := realtime.NewHub()
	go hub.Run()
	defer hub.Stop()

	sweeper := workers.NewOrphanSweeper(mediaStore, history, time.Duration(cfg.OrphanSweepIntervalMinutes)*time.Minute)
	sweeper.Start()
	defer sweeper.Stop()

	classification := services.NewClassificationService(inferencer, classifier.Labels, table, mediaProcessor, history, services.Options{
		InputSize: cfg.ModelInputSize,
		Notifier:  hub,
		Sweeper:   sweeper,
	})

	log.Printf("Using history backend: %s", cfg.HistoryBackend)
	log.Printf("Using inference backend: %s (model %s)", cfg.InferenceBackend, cfg.ModelPath)
	log.Printf("Storing captures in: %s", cfg.CapturesPath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	// websockets are long-lived, keep them out of the request timeout
	r.Get("/ws", hub.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		handlers.RegisterRoutes(r, handlers.Handlers{
			Classify: &handlers.ClassifyHandler{
				Service:        classification,
				MaxUploadBytes: cfg.MaxUploadBytes,
				CaptureURL:     handlers.CaptureURL,
			},
			History: &handlers.HistoryHandler{
				Repo:       history,
				Editor:     classification,
				Location:   time.Local,
				CaptureURL: handlers.CaptureURL,
				Store:      mediaStore,
			},
			Nutrition: &handlers.NutritionHandler{Table: table, Labels: classifier.Labels},
			Captures:  handlers.AssetServer(cfg.MediaStoragePath, capturesSubDir, handlers.CapturesRoute),
		})
	})
	log.Printf("Registered capture server at %s*", handlers.CapturesRoute)

	serverAddr := ":" + cfg.Port
	fmt.Printf("Server starting on http://localhost:%s\n", cfg.Port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}
}
