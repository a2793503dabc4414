// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gpu declares the native kernels of the GPU runtime.
//
// Unlike the compiled accelerator kernels, these are declared in Go, one signature per instantiation of
// the templated kernel code, and converted with opinfo.FromSignatures.
package gpu

import (
	"github.com/gomlx/opinfo/pkg/core/dtypes"
	"github.com/gomlx/opinfo/pkg/core/layouts"
	"github.com/gomlx/opinfo/pkg/opinfo"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// sameInOut returns the signature of a kernel instantiated for T, with numInputs inputs and one output,
// all of dtype T in the default layout.
func sameInOut[T dtypes.Supported](numInputs int) opinfo.Signature {
	dtype := dtypes.FromGenericsType[T]()
	operand := opinfo.Operand{DType: dtype, Layout: layouts.Default}
	sig := opinfo.Signature{Inputs: make([]opinfo.Operand, numInputs), Outputs: []opinfo.Operand{operand}}
	for ii := range sig.Inputs {
		sig.Inputs[ii] = operand
	}
	return sig
}

// collectives are reduced over the communication group by the collective library. They take any
// number of inputs of the same dtype.
var collectives = []struct{ opName, kernelName string }{
	{"AllReduce", "NcclAllReduce"},
	{"AllGather", "NcclAllGather"},
	{"ReduceScatter", "NcclReduceScatter"},
}

// elementwise kernels and their number of inputs.
var elementwise = []struct {
	opName, kernelName string
	numInputs          int
}{
	{"Neg", "NegGpuKernel", 1},
	{"Sub", "SubGpuKernel", 2},
	{"ZerosLike", "ZerosLikeGpuKernel", 1},
}

// Implementations returns the built-in GPU kernels, in registration order.
func Implementations() ([]*opinfo.Implementation, error) {
	var impls []*opinfo.Implementation
	for _, c := range collectives {
		impl, err := opinfo.FromSignatures(
			opinfo.Implementation{
				OpName:        c.opName,
				Imply:         opinfo.ImplyGPU,
				Fusion:        opinfo.FusionOpaque,
				Async:         true,
				KernelName:    c.kernelName,
				AllSameInputs: true,
			},
			sameInOut[float32](1),
			sameInOut[float16.Float16](1),
		)
		if err != nil {
			return nil, err
		}
		impls = append(impls, impl)
	}
	for _, e := range elementwise {
		impl, err := opinfo.FromSignatures(
			opinfo.Implementation{
				OpName:     e.opName,
				Imply:      opinfo.ImplyGPU,
				Fusion:     opinfo.FusionElemwise,
				KernelName: e.kernelName,
			},
			sameInOut[float32](e.numInputs),
			sameInOut[float16.Float16](e.numInputs),
			sameInOut[int32](e.numInputs),
		)
		if err != nil {
			return nil, err
		}
		impls = append(impls, impl)
	}
	return impls, nil
}

// Register all built-in GPU kernels in table.
func Register(table *opinfo.Table) error {
	impls, err := Implementations()
	if err != nil {
		return errors.WithMessage(err, "building built-in GPU kernels")
	}
	for _, impl := range impls {
		if err := table.Register(impl); err != nil {
			return errors.WithMessage(err, "registering built-in GPU kernels")
		}
	}
	return nil
}
