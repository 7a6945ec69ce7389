//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/weights"
)

// layer holds one dense layer's resident GPU buffers.
type layer struct {
	in, out int
	weight  *wgpu.Buffer
	bias    *wgpu.Buffer
	params  *wgpu.Buffer
}

// Backend evaluates an MLP on the GPU. Forward calls share one queue and
// are serialized.
type Backend struct {
	mu       sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
	layers   []layer
	name     string
}

var _ model.Backend = (*Backend)(nil)

// New acquires a GPU device and uploads the network's parameters.
func New(mlp *weights.MLP) (backend *Backend, err error) {
	if err := mlp.Validate(mlp.InputSize(), mlp.OutputSize()); err != nil {
		return nil, fmt.Errorf("webgpu: %w", err)
	}

	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("%w: webgpu: native library not available: %v", model.ErrBackendUnavailable, r)
		}
	}()

	if err := wgpu.Init(); err != nil {
		return nil, fmt.Errorf("%w: webgpu: %w", model.ErrBackendUnavailable, err)
	}

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: webgpu: failed to create instance: %w", model.ErrBackendUnavailable, err)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu: failed to request adapter: %w", model.ErrBackendUnavailable, err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu: failed to request device: %w", model.ErrBackendUnavailable, err)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu: failed to get queue", model.ErrBackendUnavailable)
	}

	b := &Backend{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		name:     "webgpu",
	}

	b.shader = device.CreateShaderModuleWGSL(denseShader)
	b.pipeline = device.CreateComputePipelineSimple(nil, b.shader, "main")

	last := len(mlp.Layers) - 1
	for i, l := range mlp.Layers {
		params := make([]byte, 16)
		binary.LittleEndian.PutUint32(params[0:4], uint32(l.In))
		binary.LittleEndian.PutUint32(params[4:8], uint32(l.Out))
		if i != last {
			binary.LittleEndian.PutUint32(params[8:12], 1)
		}

		b.layers = append(b.layers, layer{
			in:     l.In,
			out:    l.Out,
			weight: b.createBuffer(float32Bytes(l.Weight), wgpu.BufferUsageStorage),
			bias:   b.createBuffer(float32Bytes(l.Bias), wgpu.BufferUsageStorage),
			params: b.createBuffer(params, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst),
		})
	}

	return b, nil
}

func (b *Backend) Name() string {
	return b.name
}

// Forward returns class probabilities for a normalized input.
func (b *Backend) Forward(input []float32) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return nil, fmt.Errorf("%w: webgpu backend released", model.ErrBackendUnavailable)
	}
	if len(input) != b.layers[0].in {
		return nil, fmt.Errorf("%w: webgpu: expected %d inputs, got %d", model.ErrShapeMismatch, b.layers[0].in, len(input))
	}

	x := b.createBuffer(float32Bytes(input), wgpu.BufferUsageStorage)
	defer x.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	bindGroupLayout := b.pipeline.GetBindGroupLayout(0)

	var result *wgpu.Buffer
	var resultSize uint64
	for _, l := range b.layers {
		resultSize = uint64(l.out * 4)
		result = b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
			Size:  resultSize,
		})
		defer result.Release()

		bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, []wgpu.BindGroupEntry{
			wgpu.BufferBindingEntry(0, l.weight, 0, uint64(l.in*l.out*4)),
			wgpu.BufferBindingEntry(1, l.bias, 0, resultSize),
			wgpu.BufferBindingEntry(2, x, 0, uint64(l.in*4)),
			wgpu.BufferBindingEntry(3, result, 0, resultSize),
			wgpu.BufferBindingEntry(4, l.params, 0, 16),
		})
		defer bindGroup.Release()

		computePass := encoder.BeginComputePass(nil)
		computePass.SetPipeline(b.pipeline)
		computePass.SetBindGroup(0, bindGroup, nil)
		computePass.DispatchWorkgroups(uint32((l.out+workgroupSize-1)/workgroupSize), 1, 1)
		computePass.End()

		x = result
	}

	b.queue.Submit(encoder.Finish(nil))

	raw, err := b.readBuffer(result, resultSize)
	if err != nil {
		return nil, err
	}

	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return model.Softmax(out), nil
}

// createBuffer creates a GPU buffer holding data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	// Uniform and storage bindings need 4-byte multiples; all data here is
	// float32 or u32 already.
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), data)
	buffer.Unmap()

	return buffer
}

// readBuffer copies a storage buffer back to host memory through a staging
// buffer.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("%w: webgpu: failed to map staging buffer: %w", model.ErrBackendUnavailable, err)
	}

	mappedPtr := staging.GetMappedRange(0, size)
	out := make([]byte, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(out, unsafe.Slice((*byte)(mappedPtr), size))
	staging.Unmap()

	return out, nil
}

// Close releases every GPU resource. Forward fails afterwards.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range b.layers {
		l.weight.Release()
		l.bias.Release()
		l.params.Release()
	}
	b.layers = nil

	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.shader != nil {
		b.shader.Release()
		b.shader = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	return nil
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	if err := wgpu.Init(); err != nil {
		return false
	}
	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

func float32Bytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
