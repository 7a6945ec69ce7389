package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/store"
)

type fixedBackend struct {
	out []float32
	err error
}

func (f fixedBackend) Forward([]float32) ([]float32, error) { return f.out, f.err }
func (f fixedBackend) Name() string                         { return "fixed" }

var reference = []float32{0.1, 0.05, 0.6, 0.05, 0.05, 0.05, 0.02, 0.03, 0.025, 0.025}

func newServer(t *testing.T, b model.Backend, opts ...Option) *httptest.Server {
	t.Helper()

	c, err := model.NewClassifier(model.KindArray, b, model.DefaultMetadata().Classes)
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(c, opts...).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) model.PredictionResponse {
	t.Helper()
	var out model.PredictionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// strokeCanvas returns a transparent w×h RGBA buffer with a white vertical bar.
func strokeCanvas(w, h int) []byte {
	pix := make([]byte, w*h*4)
	for y := h / 4; y < 3*h/4; y++ {
		for x := w/2 - 2; x < w/2+2; x++ {
			i := (y*w + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = 255, 255, 255, 255
		}
	}
	return pix
}

func TestHealth(t *testing.T) {
	srv := newServer(t, fixedBackend{out: reference})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "fixed", body["backend"])
}

func TestPredict(t *testing.T) {
	srv := newServer(t, fixedBackend{out: reference})

	resp := postJSON(t, srv.URL+"/predict", model.PredictionRequest{Image: make([]float32, 784)})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	assert.Equal(t, "2", out.Class)
	assert.InDelta(t, 0.6, out.Confidence, 1e-6)
	assert.Len(t, out.Predictions, model.TopK)
	assert.Equal(t, "fixed", out.Backend)
}

func TestPredict_Errors(t *testing.T) {
	srv := newServer(t, fixedBackend{out: reference})

	resp := postJSON(t, srv.URL+"/predict", model.PredictionRequest{Image: make([]float32, 10)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	r, err := http.Post(srv.URL+"/predict", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)

	r, err = http.Get(srv.URL + "/predict")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, r.StatusCode)
}

func TestPredict_BackendFailures(t *testing.T) {
	unavailable := newServer(t, fixedBackend{err: model.ErrBackendUnavailable})
	resp := postJSON(t, unavailable.URL+"/predict", model.PredictionRequest{Image: make([]float32, 784)})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	crashed := newServer(t, fixedBackend{err: errors.New("session run failed")})
	resp = postJSON(t, crashed.URL+"/predict", model.PredictionRequest{Image: make([]float32, 784)})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	anomalous := newServer(t, fixedBackend{out: reference[:3]})
	resp = postJSON(t, anomalous.URL+"/predict", model.PredictionRequest{Image: make([]float32, 784)})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPredictFromCanvas(t *testing.T) {
	srv := newServer(t, fixedBackend{out: reference})

	resp := postJSON(t, srv.URL+"/predict/canvas", model.CanvasRequest{
		Width: 40, Height: 30, Pixels: strokeCanvas(40, 30),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", decode(t, resp).Class)
}

func TestPredictFromCanvas_Errors(t *testing.T) {
	srv := newServer(t, fixedBackend{out: reference})

	resp := postJSON(t, srv.URL+"/predict/canvas", model.CanvasRequest{
		Width: 40, Height: 30, Pixels: make([]byte, 40*30*4),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/predict/canvas", model.CanvasRequest{
		Width: 40, Height: 30, Pixels: make([]byte, 40*30*4-1),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/predict/canvas", model.CanvasRequest{
		Width: 1 << 31, Height: 1 << 31,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func uploadPNG(t *testing.T, url string, img image.Image) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "digit.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPredictFromImage(t *testing.T) {
	srv := newServer(t, fixedBackend{out: reference}, WithMaxUploadSide(64))

	img := image.NewNRGBA(image.Rect(0, 0, 300, 200))
	for y := 50; y < 150; y++ {
		for x := 140; x < 160; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	resp := uploadPNG(t, srv.URL+"/predict/image", img)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", decode(t, resp).Class)

	empty := uploadPNG(t, srv.URL+"/predict/image", image.NewNRGBA(image.Rect(0, 0, 20, 20)))
	assert.Equal(t, http.StatusUnprocessableEntity, empty.StatusCode)
}

func TestPredictFromImage_BadUpload(t *testing.T) {
	srv := newServer(t, fixedBackend{out: reference})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "digit.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("not an image"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/predict/image", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadRaster_Thumbnail(t *testing.T) {
	h := NewHandler(nil, WithMaxUploadSide(100))

	r := h.uploadRaster(image.NewNRGBA(image.Rect(0, 0, 400, 200)))
	assert.Equal(t, 100, r.Width)
	assert.Equal(t, 50, r.Height)

	r = h.uploadRaster(image.NewNRGBA(image.Rect(0, 0, 80, 60)))
	assert.Equal(t, 80, r.Width)
	assert.Equal(t, 60, r.Height)
}

func TestHistory(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := newServer(t, fixedBackend{out: reference}, WithHistory(s, 2))

	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv.URL+"/predict", model.PredictionRequest{Image: make([]float32, 784)})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := postJSON(t, srv.URL+"/predict/canvas", model.CanvasRequest{
		Width: 10, Height: 10, Pixels: make([]byte, 400),
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	get := func(query string) (*http.Response, []store.Record) {
		r, err := http.Get(srv.URL + "/history" + query)
		require.NoError(t, err)
		defer r.Body.Close()
		var recs []store.Record
		if r.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&recs))
		}
		return r, recs
	}

	r, recs := get("")
	assert.Equal(t, http.StatusOK, r.StatusCode)
	require.Len(t, recs, 2)
	assert.Equal(t, uint64(3), recs[0].ID)
	assert.Equal(t, "tensor", recs[0].Source)
	assert.Equal(t, "2", recs[0].Class)

	_, recs = get("?limit=1")
	assert.Len(t, recs, 1)

	r, _ = get("?limit=zero")
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestHistory_Disabled(t *testing.T) {
	srv := newServer(t, fixedBackend{out: reference})

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
