package weights

import (
	"fmt"
)

// Dense is a fully connected layer computing y = W·x + b.
// Weight is row-major [Out, In].
type Dense struct {
	In     int
	Out    int
	Weight []float32
	Bias   []float32
}

// MLP is a stack of Dense layers. ReLU sits between consecutive layers and
// softmax follows the last one.
type MLP struct {
	Layers []Dense
}

func (m *MLP) InputSize() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return m.Layers[0].In
}

func (m *MLP) OutputSize() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return m.Layers[len(m.Layers)-1].Out
}

// Validate checks every layer's buffers and that the layers chain from in
// to out.
func (m *MLP) Validate(in, out int) error {
	if len(m.Layers) == 0 {
		return fmt.Errorf("%w: network has no layers", ErrLayerShape)
	}

	prev := in
	for i, l := range m.Layers {
		if l.In != prev {
			return fmt.Errorf("%w: layer %d takes %d inputs, previous layer produces %d", ErrLayerShape, i, l.In, prev)
		}
		if len(l.Weight) != l.In*l.Out {
			return fmt.Errorf("%w: layer %d weight has %d values, expected %d", ErrLayerShape, i, len(l.Weight), l.In*l.Out)
		}
		if len(l.Bias) != l.Out {
			return fmt.Errorf("%w: layer %d bias has %d values, expected %d", ErrLayerShape, i, len(l.Bias), l.Out)
		}
		prev = l.Out
	}

	if prev != out {
		return fmt.Errorf("%w: network produces %d outputs, expected %d", ErrLayerShape, prev, out)
	}
	return nil
}

// LoadMLP assembles layers.0, layers.1, ... from tensors named
// "layers.N.weight" ([out, in]) and "layers.N.bias" ([out]).
func LoadMLP(tensors map[string]Tensor) (*MLP, error) {
	m := &MLP{}

	for i := 0; ; i++ {
		w, ok := tensors[fmt.Sprintf("layers.%d.weight", i)]
		if !ok {
			break
		}
		b, ok := tensors[fmt.Sprintf("layers.%d.bias", i)]
		if !ok {
			return nil, fmt.Errorf("%w: layers.%d.bias", ErrMissingTensor, i)
		}
		if len(w.Shape) != 2 {
			return nil, fmt.Errorf("%w: layers.%d.weight must be 2D, got %v", ErrLayerShape, i, w.Shape)
		}
		if len(b.Shape) != 1 || b.Shape[0] != w.Shape[0] {
			return nil, fmt.Errorf("%w: layers.%d.bias shape %v does not match weight %v", ErrLayerShape, i, b.Shape, w.Shape)
		}

		m.Layers = append(m.Layers, Dense{
			In:     w.Shape[1],
			Out:    w.Shape[0],
			Weight: w.Data,
			Bias:   b.Data,
		})
	}

	if len(m.Layers) == 0 {
		return nil, fmt.Errorf("%w: layers.0.weight", ErrMissingTensor)
	}
	return m, nil
}

// OpenMLP loads an MLP from a safetensors file and checks it maps in
// inputs to out outputs.
func OpenMLP(path string, in, out int) (*MLP, error) {
	tensors, err := Open(path)
	if err != nil {
		return nil, err
	}

	m, err := LoadMLP(tensors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.Validate(in, out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Tensors flattens m back into named tensors, the inverse of LoadMLP.
func (m *MLP) Tensors() []Tensor {
	out := make([]Tensor, 0, 2*len(m.Layers))
	for i, l := range m.Layers {
		out = append(out,
			Tensor{Name: fmt.Sprintf("layers.%d.weight", i), Shape: []int{l.Out, l.In}, Data: l.Weight},
			Tensor{Name: fmt.Sprintf("layers.%d.bias", i), Shape: []int{l.Out}, Data: l.Bias},
		)
	}
	return out
}
