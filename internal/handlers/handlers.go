package handlers

import (
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"strconv"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/preprocess"
	"github.com/Brownie44l1/digit-api/internal/store"
)

type Handler struct {
	classifier    *model.Classifier
	history       *store.Store
	historyLimit  int
	maxUploadSide int
}

type Option func(*Handler)

// WithHistory records every successful prediction in s; GET /history
// returns at most limit records unless the caller asks for fewer.
func WithHistory(s *store.Store, limit int) Option {
	return func(h *Handler) {
		h.history = s
		h.historyLimit = limit
	}
}

// WithMaxUploadSide shrinks uploaded images whose longer side exceeds n.
func WithMaxUploadSide(n int) Option {
	return func(h *Handler) {
		h.maxUploadSide = n
	}
}

func NewHandler(classifier *model.Classifier, opts ...Option) *Handler {
	h := &Handler{
		classifier:    classifier,
		historyLimit:  50,
		maxUploadSide: 512,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/predict", h.Predict)
	mux.HandleFunc("/predict/canvas", h.PredictFromCanvas)
	mux.HandleFunc("/predict/image", h.PredictFromImage)
	mux.HandleFunc("/history", h.History)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"backend": h.classifier.BackendName(),
	})
}

// Predict classifies a raw 28×28 grayscale tensor.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	h.classify(w, "tensor", req.Image)
}

// PredictFromCanvas classifies an RGBA drawing-surface snapshot.
func (h *Handler) PredictFromCanvas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.CanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	raster, err := preprocess.NewRaster(req.Width, req.Height, req.Pixels)
	if err != nil {
		writeError(w, err)
		return
	}

	tensor, err := preprocess.Preprocess(raster)
	if err != nil {
		writeError(w, err)
		return
	}

	h.classify(w, "canvas", tensor)
}

// PredictFromImage classifies an uploaded PNG or JPEG.
func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form (10MB max)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	log.Printf("Received file: %s, size: %d bytes", header.Filename, header.Size)

	img, format, err := image.Decode(file)
	if err != nil {
		http.Error(w, "Invalid image format. Supported: JPEG, PNG", http.StatusBadRequest)
		return
	}

	log.Printf("Image format: %s, dimensions: %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())

	tensor, err := preprocess.Preprocess(h.uploadRaster(img))
	if err != nil {
		writeError(w, err)
		return
	}

	h.classify(w, "upload", tensor)
}

// uploadRaster bounds the image size so preprocessing cost does not depend
// on the uploader. Nearest-neighbour keeps stroke pixels unblended, like the
// 28×28 scale step that follows.
func (h *Handler) uploadRaster(img image.Image) preprocess.Raster {
	side := uint(h.maxUploadSide)
	b := img.Bounds()
	if h.maxUploadSide > 0 && (b.Dx() > h.maxUploadSide || b.Dy() > h.maxUploadSide) {
		img = resize.Thumbnail(side, side, img, resize.NearestNeighbor)
		log.Printf("Resized upload to %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	return preprocess.FromImage(img)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	limit := h.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		if n < limit {
			limit = n
		}
	}

	records, err := h.history.Recent(limit)
	if err != nil {
		log.Printf("History error: %v", err)
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) classify(w http.ResponseWriter, source string, tensor []float32) {
	result, err := h.classifier.Classify(tensor)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := model.NewPredictionResponse(result, h.classifier.BackendName())

	if h.history != nil {
		_, err := h.history.Add(store.Record{
			Source:      source,
			Backend:     resp.Backend,
			Class:       resp.Class,
			Confidence:  resp.Confidence,
			Predictions: resp.Predictions,
		})
		if err != nil {
			log.Printf("History error: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeError maps classification failures to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrShapeMismatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, preprocess.ErrEmptyInput):
		http.Error(w, "Nothing drawn", http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrBackendUnavailable):
		log.Printf("Prediction error: %v", err)
		http.Error(w, "Backend unavailable", http.StatusServiceUnavailable)
	default:
		log.Printf("Prediction error: %v", err)
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encode error: %v", err)
	}
}
