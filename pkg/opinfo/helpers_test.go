package opinfo

import (
	"testing"

	"github.com/gomlx/opinfo/pkg/core/dtypes"
	"github.com/gomlx/opinfo/pkg/core/layouts"
	"github.com/stretchr/testify/require"
)

// slot builds a required operand descriptor from variants given as "dtype:format".
func slot(t testing.TB, index int, name string, variants ...string) *OperandDescriptor {
	return slotWithParam(t, index, name, ParamRequired, variants...)
}

func slotWithParam(t testing.TB, index int, name string, paramType ParamType, variants ...string) *OperandDescriptor {
	t.Helper()
	dts := make([]dtypes.DType, len(variants))
	lts := make([]layouts.Layout, len(variants))
	for k, v := range variants {
		o, err := ParseOperand(v)
		require.NoError(t, err)
		dts[k], lts[k] = o.DType, o.Layout
	}
	d, err := newOperandDescriptor(index, name, dts, lts, paramType, ShapeAll, false)
	require.NoError(t, err)
	return d
}

// op parses an operand, failing the test on error.
func op(t testing.TB, s string) Operand {
	t.Helper()
	o, err := ParseOperand(s)
	require.NoError(t, err)
	return o
}

func ops(t testing.TB, ss ...string) []Operand {
	t.Helper()
	operands := make([]Operand, len(ss))
	for ii, s := range ss {
		operands[ii] = op(t, s)
	}
	return operands
}

// repeat returns n copies of s.
func repeat(s string, n int) []string {
	values := make([]string, n)
	for ii := range values {
		values[ii] = s
	}
	return values
}

// fusedMulAddN mirrors the TBE FusedMulAddN descriptor: 3 inputs, 1 output and 8 variants.
func fusedMulAddN(t testing.TB) *Implementation {
	var first, third []string
	for _, dtype := range []string{"float16", "float"} {
		for _, format := range []string{"NC1HWC0", "C1HWNCoC0", "DefaultFormat", "FracZ"} {
			first = append(first, dtype+":"+format)
			third = append(third, dtype+":DefaultFormat")
		}
	}
	return &Implementation{
		OpName:     "FusedMulAddN",
		Imply:      ImplyTBE,
		Fusion:     FusionOpaque,
		Cost:       10,
		BinaryFile: "fused_mul_add_n.so",
		KernelName: "fused_mul_add_n",
		Partial:    true,
		Inputs: []*OperandDescriptor{
			slot(t, 0, "x1", first...),
			slot(t, 1, "x2", first...),
			slot(t, 2, "x3", third...),
		},
		Outputs: []*OperandDescriptor{slot(t, 0, "y", first...)},
	}
}

// assignLike is a small Assign kernel with two inputs and one output.
func assignLike(t testing.TB, variants ...string) *Implementation {
	return &Implementation{
		OpName:     "Assign",
		Imply:      ImplyTBE,
		Fusion:     FusionOpaque,
		KernelName: "assign",
		Inputs: []*OperandDescriptor{
			slot(t, 0, "resource", variants...),
			slot(t, 1, "value", variants...),
		},
		Outputs: []*OperandDescriptor{slot(t, 0, "y", variants...)},
	}
}
