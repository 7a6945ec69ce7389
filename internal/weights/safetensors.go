// Package weights reads and writes network parameters in the safetensors
// container format and assembles them into a dense multi-layer perceptron.
package weights

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// maxHeaderSize bounds the JSON header so a corrupt length prefix cannot
// trigger a huge allocation.
const maxHeaderSize = 100 * 1024 * 1024

const dtypeF32 = "F32"

// Tensor is a named float32 array with its shape.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float32
}

func (t Tensor) numElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

type tensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Open reads every tensor in the safetensors file at path.
func Open(path string) (map[string]Tensor, error) {
	//nolint:gosec // G304: model path comes from configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open weights: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read decodes a safetensors stream. Only F32 tensors are supported.
func Read(r io.Reader) (map[string]Tensor, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	tensors := make(map[string]Tensor, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}

		var info tensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		if info.DType != dtypeF32 {
			return nil, fmt.Errorf("%w: tensor %q has dtype %s", ErrUnsupportedDType, name, info.DType)
		}

		begin, end := info.DataOffsets[0], info.DataOffsets[1]
		if begin < 0 || end < begin || end > int64(len(data)) {
			return nil, fmt.Errorf("%w: tensor %q at [%d, %d) of %d bytes", ErrOutOfBounds, name, begin, end, len(data))
		}

		t := Tensor{Name: name, Shape: info.Shape}
		if int64(t.numElements()*4) != end-begin {
			return nil, fmt.Errorf("%w: tensor %q shape %v does not fit %d bytes", ErrOutOfBounds, name, info.Shape, end-begin)
		}

		t.Data = make([]float32, t.numElements())
		chunk := data[begin:end]
		for i := range t.Data {
			t.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(chunk[i*4:]))
		}
		tensors[name] = t
	}

	return tensors, nil
}

// Write encodes tensors as safetensors, laid out in name order.
func Write(w io.Writer, tensors []Tensor) error {
	sorted := append([]Tensor(nil), tensors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := make(map[string]tensorInfo, len(sorted))
	var data bytes.Buffer
	for _, t := range sorted {
		if len(t.Data) != t.numElements() {
			return fmt.Errorf("tensor %q: shape %v needs %d values, got %d", t.Name, t.Shape, t.numElements(), len(t.Data))
		}

		begin := int64(data.Len())
		buf := make([]byte, 4)
		for _, v := range t.Data {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			data.Write(buf)
		}
		header[t.Name] = tensorInfo{
			DType:       dtypeF32,
			Shape:       t.Shape,
			DataOffsets: [2]int64{begin, int64(data.Len())},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}
