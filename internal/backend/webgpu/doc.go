// Package webgpu runs the digit network as WebGPU compute shaders through
// go-webgpu. Each dense layer is one dispatch; weights are uploaded once when
// the backend is created.
//
// The native build targets Windows, like the rest of the go-webgpu stack in
// use here. On other platforms, and wherever wgpu-native cannot be loaded,
// New fails with model.ErrBackendUnavailable.
package webgpu
