// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opinfo

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImplyType is the kind of implementation a kernel has: which toolchain/back-end provides it.
type ImplyType int

const (
	ImplyInvalid ImplyType = iota

	// ImplyTBE kernels are compiled for the accelerator by the tensor-boost-engine toolchain.
	ImplyTBE

	// ImplyAiCPU kernels run on the accelerator's control CPU.
	ImplyAiCPU

	// ImplyAKG kernels are generated by the auto kernel generator.
	ImplyAKG

	// ImplyGPU kernels are native compute kernels linked into the GPU runtime.
	ImplyGPU

	// ImplyCPU kernels are native compute kernels on the host.
	ImplyCPU

	implyLast
)

var implyNames = [implyLast]string{"Invalid", "TBE", "AiCPU", "AKG", "GPU", "CPU"}

func (i ImplyType) String() string {
	if i < 0 || i >= implyLast {
		return "ImplyType(" + strconv.Itoa(int(i)) + ")"
	}
	return implyNames[i]
}

// IsNative returns whether the kernel is native compute code, as opposed to being compiled for
// the hardware from a kernel description.
func (i ImplyType) IsNative() bool {
	return i == ImplyGPU || i == ImplyCPU
}

// ImplyTypeString parses the value of the "imply_type" field. Matching is case-insensitive.
func ImplyTypeString(s string) (ImplyType, error) {
	for i := ImplyTBE; i < implyLast; i++ {
		if strings.EqualFold(implyNames[i], s) {
			return i, nil
		}
	}
	return ImplyInvalid, errors.Errorf("unknown imply_type %q", s)
}

// FusionType classifies a kernel for the graph fusion passes.
type FusionType int

const (
	FusionOpaque FusionType = iota
	FusionElemwise
	FusionCommReduce
	FusionSegment
	FusionConvolution
	FusionDynamic
	fusionLast
)

var fusionNames = [fusionLast]string{"OPAQUE", "ELEMWISE", "COMMREDUCE", "SEGMENT", "CONVOLUTION", "DYNAMIC"}

func (f FusionType) String() string {
	if f < 0 || f >= fusionLast {
		return "FusionType(" + strconv.Itoa(int(f)) + ")"
	}
	return fusionNames[f]
}

// FusionTypeString parses the value of the "fusion_type" field. Matching is case-insensitive.
func FusionTypeString(s string) (FusionType, error) {
	for f := FusionOpaque; f < fusionLast; f++ {
		if strings.EqualFold(fusionNames[f], s) {
			return f, nil
		}
	}
	return FusionOpaque, errors.Errorf("unknown fusion_type %q", s)
}

// ShapePolicy tells which shapes an operand slot accepts.
type ShapePolicy int

const (
	// ShapeAll accepts any shape.
	ShapeAll ShapePolicy = iota

	// ShapeScalar accepts only scalars.
	ShapeScalar

	// ShapeSpecial has kernel specific restrictions, checked by the kernel itself.
	ShapeSpecial
	shapeLast
)

var shapeNames = [shapeLast]string{"all", "scalar", "special"}

func (s ShapePolicy) String() string {
	if s < 0 || s >= shapeLast {
		return "ShapePolicy(" + strconv.Itoa(int(s)) + ")"
	}
	return shapeNames[s]
}

// ShapePolicyString parses the value of the "shape" field.
func ShapePolicyString(s string) (ShapePolicy, error) {
	for p := ShapeAll; p < shapeLast; p++ {
		if strings.EqualFold(shapeNames[p], s) {
			return p, nil
		}
	}
	return ShapeAll, errors.Errorf("unknown shape policy %q", s)
}

// ParamType tells how many call-site operands bind to a slot.
type ParamType int

const (
	// ParamRequired slots bind exactly one operand.
	ParamRequired ParamType = iota

	// ParamOptional slots bind zero or one operand. Only trailing slots can be left out.
	ParamOptional

	// ParamDynamic slots bind one or more operands, all matching the slot's variant.
	// At most one input slot can be dynamic.
	ParamDynamic
	paramLast
)

var paramNames = [paramLast]string{"required", "optional", "dynamic"}

func (p ParamType) String() string {
	if p < 0 || p >= paramLast {
		return "ParamType(" + strconv.Itoa(int(p)) + ")"
	}
	return paramNames[p]
}

// ParamTypeString parses the value of the "param_type" field.
func ParamTypeString(s string) (ParamType, error) {
	for p := ParamRequired; p < paramLast; p++ {
		if strings.EqualFold(paramNames[p], s) {
			return p, nil
		}
	}
	return ParamRequired, errors.Errorf("unknown param_type %q", s)
}
