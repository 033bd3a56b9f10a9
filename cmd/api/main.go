package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bobarin/animator/internal/api"
	"github.com/bobarin/animator/internal/config"
	"github.com/bobarin/animator/internal/export"
	"github.com/bobarin/animator/internal/models"
	"github.com/bobarin/animator/internal/queue"
	"github.com/bobarin/animator/internal/services"
	"github.com/bobarin/animator/internal/storage"
	"github.com/bobarin/animator/internal/store"
	"github.com/bobarin/animator/internal/worker"
)

func main() {
	log.Println("Starting Animator API...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Document store for scenes and export jobs
	st, err := store.New(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	log.Printf("Document store at %s", cfg.StorageDir)

	// Managed artifact store for rendered videos
	videos, err := storage.NewVideoStore(filepath.Join(cfg.StorageDir, "videos"))
	if err != nil {
		log.Fatalf("Failed to initialize video store: %v", err)
	}

	// Scene queue: memory by default, Redis when configured
	var q queue.Queue
	switch cfg.QueueBackend {
	case "redis":
		rq, err := queue.NewRedisQueue(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis queue: %v", err)
		}
		q = rq
		log.Println("Connected to Redis queue")
	default:
		q = queue.NewMemoryQueue()
		log.Println("Using in-memory queue")
	}
	defer q.Close()

	// Video tooling shared by the export engine
	ffmpeg, err := services.NewFFmpegService(cfg.FFmpegBinary, cfg.FFprobeBinary, cfg.TempDir, cfg.FFmpegTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize ffmpeg service: %v", err)
	}

	exports, err := export.New(st, ffmpeg, filepath.Join(cfg.StorageDir, "exports"), cfg.TempDir)
	if err != nil {
		log.Fatalf("Failed to initialize export engine: %v", err)
	}

	handler := api.NewHandler(st, q, exports)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the scene pipeline if enabled
	var pool *worker.Pool
	if cfg.WorkerEnabled {
		var codegen services.CodeGenerator
		var enhancer services.PromptEnhancer
		switch cfg.AIProvider {
		case "gemini":
			g := services.NewGeminiProvider(cfg.GeminiKey, cfg.GeminiModel)
			codegen, enhancer = g, g
			log.Printf("Code generation provider: Gemini (model: %s)", cfg.GeminiModel)
		default:
			o := services.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
			codegen, enhancer = o, o
			if cfg.OpenAIBaseURL != "" {
				log.Printf("Code generation provider: OpenAI-compatible (model: %s, endpoint: %s)", cfg.OpenAIModel, cfg.OpenAIBaseURL)
			} else {
				log.Printf("Code generation provider: OpenAI (model: %s)", cfg.OpenAIModel)
			}
		}

		renderers := map[models.AnimationLibrary]worker.Renderer{
			models.LibraryManim: services.NewManimRenderer(cfg.ManimBinary, cfg.RenderTimeout, videos),
		}

		pool = worker.New(st, q, codegen, enhancer, renderers, cfg.WorkerCount)
		pool.Start(context.Background())
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop accepting requests first, then drain background work.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if pool != nil {
		pool.Stop()
	}
	exports.Wait()

	log.Println("Server exited")
}
