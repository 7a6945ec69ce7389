//go:build windows

package webgpu

const workgroupSize = 64

// denseShader computes result = W·x + b for one layer, with optional ReLU.
// W is row-major [out_features, in_features].
const denseShader = `
@group(0) @binding(0) var<storage, read> weight: array<f32>;
@group(0) @binding(1) var<storage, read> bias: array<f32>;
@group(0) @binding(2) var<storage, read> x: array<f32>;
@group(0) @binding(3) var<storage, read_write> result: array<f32>;

struct Params {
    in_features: u32,
    out_features: u32,
    relu: u32,
    _pad: u32,
}
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let j = global_id.x;
    if (j >= params.out_features) {
        return;
    }

    var sum: f32 = bias[j];
    let base = j * params.in_features;
    for (var k: u32 = 0u; k < params.in_features; k = k + 1u) {
        sum = sum + weight[base + k] * x[k];
    }

    if (params.relu != 0u) {
        sum = max(sum, 0.0);
    }
    result[j] = sum;
}
`
