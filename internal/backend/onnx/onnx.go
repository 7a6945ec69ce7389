// Package onnx runs the digit network through ONNX Runtime.
package onnx

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/digit-api/internal/model"
)

type Options struct {
	ModelPath string
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// loader's default search path.
	LibraryPath string
	InputName   string
	OutputName  string
	Metadata    model.Metadata
}

// Backend owns one session with pre-bound input and output tensors.
// Forward calls are serialized because the bound tensors are reused.
type Backend struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	logits       bool
	modelPath    string
}

var _ model.Backend = (*Backend)(nil)

// New initializes ONNX Runtime and opens the model. Failure to load the
// runtime library is reported as model.ErrBackendUnavailable.
func New(opts Options) (*Backend, error) {
	if opts.InputName == "" {
		opts.InputName = "input"
	}
	if opts.OutputName == "" {
		opts.OutputName = "output"
	}

	if !ort.IsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: failed to initialize ONNX environment: %w", model.ErrBackendUnavailable, err)
		}
	}

	inputShape := ort.NewShape(opts.Metadata.InputShape...)
	outputShape := ort.NewShape(opts.Metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create input tensor: %w", model.ErrBackendUnavailable, err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("%w: failed to create output tensor: %w", model.ErrBackendUnavailable, err)
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{opts.InputName}, []string{opts.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("%w: failed to create ONNX session: %w", model.ErrBackendUnavailable, err)
	}

	return &Backend{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		logits:       opts.Metadata.Logits,
		modelPath:    opts.ModelPath,
	}, nil
}

func (b *Backend) Name() string {
	return "onnx (" + filepath.Base(b.modelPath) + ")"
}

func (b *Backend) Forward(input []float32) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil, fmt.Errorf("%w: onnx session closed", model.ErrBackendUnavailable)
	}

	data := b.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("%w: onnx: expected %d inputs, got %d", model.ErrShapeMismatch, len(data), len(input))
	}
	copy(data, input)

	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: onnx run: %w", model.ErrBackendUnavailable, err)
	}

	out := append([]float32(nil), b.outputTensor.GetData()...)
	if b.logits {
		return model.Softmax(out), nil
	}
	return out, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inputTensor != nil {
		b.inputTensor.Destroy()
		b.inputTensor = nil
	}
	if b.outputTensor != nil {
		b.outputTensor.Destroy()
		b.outputTensor = nil
	}
	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
	return ort.DestroyEnvironment()
}
