// Package webgpu is an accel driver for GPUs reachable through WebGPU.
// It uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO bindings.
//
// Kernels are lowered to WGSL and run in f32. Float64 tensors are narrowed on
// upload and widened on readback.
package webgpu
