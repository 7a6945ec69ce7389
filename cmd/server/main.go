package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Brownie44l1/digit-api/internal/backend"
	"github.com/Brownie44l1/digit-api/internal/backend/onnx"
	"github.com/Brownie44l1/digit-api/internal/config"
	"github.com/Brownie44l1/digit-api/internal/handlers"
	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/store"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolve anchors relative paths at the project root.
func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	root, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}

	// If running from cmd/server, go up two levels
	if filepath.Base(root) == "server" {
		root = filepath.Join(root, "../..")
	}

	metadata, err := model.LoadMetadata(resolve(root, cfg.MetadataPath))
	if err != nil {
		log.Fatalf("Failed to load metadata: %v", err)
	}

	log.Printf("Starting %s backend", cfg.Backend)

	b, err := backend.Open(backend.Config{
		Kind:        cfg.Backend,
		WeightsPath: resolve(root, cfg.WeightsPath),
		ONNX: onnx.Options{
			ModelPath:   resolve(root, cfg.ONNXPath),
			LibraryPath: cfg.ONNXLibrary,
			Metadata:    metadata,
		},
	})
	if err != nil {
		log.Printf("Backend %s failed to start: %v", cfg.Backend, err)
		b = backend.Unavailable{Kind: cfg.Backend, Reason: err}
	}

	classifier, err := model.NewClassifier(cfg.Backend, b, metadata.Classes)
	if err != nil {
		log.Fatalf("Failed to initialize classifier: %v", err)
	}
	defer classifier.Close()

	opts := []handlers.Option{handlers.WithMaxUploadSide(cfg.MaxUploadSide)}
	if cfg.HistoryDB != "" {
		history, err := store.Open(resolve(root, cfg.HistoryDB))
		if err != nil {
			log.Fatalf("Failed to open history: %v", err)
		}
		defer history.Close()
		opts = append(opts, handlers.WithHistory(history, cfg.HistoryLimit))
	}

	mux := http.NewServeMux()
	handlers.NewHandler(classifier, opts...).Routes(mux)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Printf("Backend: %s", classifier.BackendName())
	log.Printf("Classes: %v", metadata.Classes)
	log.Println("Endpoints:")
	log.Println("  GET  /health          - Health check")
	log.Println("  POST /predict         - Raw 28x28 tensor prediction")
	log.Println("  POST /predict/canvas  - Predict from RGBA canvas snapshot")
	log.Println("  POST /predict/image   - Predict from image upload")
	if cfg.HistoryDB != "" {
		log.Println("  GET  /history         - Recent predictions")
	}
	log.Printf("\n💡 Upload test: curl -X POST -F \"image=@digit.png\" http://localhost:%s/predict/image\n\n", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, enableCORS(mux)); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
