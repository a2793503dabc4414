package opinfo

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector(t *testing.T, impls ...*Implementation) *Selector {
	t.Helper()
	table := NewTable()
	for _, impl := range impls {
		require.NoError(t, table.Register(impl))
	}
	table.Freeze()
	return NewSelector(table)
}

func TestSelect(t *testing.T) {
	assign := assignLike(t, "float16:DefaultFormat", "float16:NC1HWC0", "float:DefaultFormat", "int32:DefaultFormat")
	selector := newTestSelector(t, assign, fusedMulAddN(t))

	t.Run("first variant", func(t *testing.T) {
		call := CallSite{OpName: "Assign", Inputs: ops(t, "float16:DefaultFormat", "float16:DefaultFormat")}
		got, err := selector.Select(call)
		require.NoError(t, err)
		assert.Same(t, assign, got.Implementation)
		assert.Equal(t, 0, got.VariantIndex)
		assert.Equal(t, call.Inputs, got.Inputs)
		assert.Equal(t, ops(t, "float16:DefaultFormat"), got.Outputs)
	})

	t.Run("later variant", func(t *testing.T) {
		got, err := selector.Select(CallSite{OpName: "FusedMulAddN",
			Inputs: ops(t, "float16:FracZ", "float16:FracZ", "float16:DefaultFormat")})
		require.NoError(t, err)
		assert.Equal(t, 3, got.VariantIndex)
		assert.Equal(t, ops(t, "float16:FracZ"), got.Outputs)

		got, err = selector.Select(CallSite{OpName: "Assign",
			Inputs: ops(t, "int32:DefaultFormat", "int32:DefaultFormat")})
		require.NoError(t, err)
		assert.Equal(t, 3, got.VariantIndex)
	})

	t.Run("no compatible kernel", func(t *testing.T) {
		call := CallSite{OpName: "Assign", Inputs: ops(t, "float:FRACTAL_NZ", "float:DefaultFormat")}
		_, err := selector.Select(call)
		require.ErrorIs(t, err, ErrNoCompatibleKernel)
		var noKernel *NoCompatibleKernelError
		require.True(t, errors.As(err, &noKernel))
		assert.Equal(t, "Assign", noKernel.OpName)
		require.Len(t, noKernel.Attempts, assign.NumVariants())
		for k, attempt := range noKernel.Attempts {
			assert.Equal(t, k, attempt.Variant)
			assert.Equal(t, "input 0 (resource)", attempt.Slot)
			assert.Equal(t, op(t, "float:FRACTAL_NZ"), attempt.Actual)
		}
		assert.Contains(t, err.Error(), "variant #2: input 0 (resource) expected float32/DefaultFormat, got float32/FRACTAL_NZ")
	})

	t.Run("exact match only", func(t *testing.T) {
		// No promotion from int16 to int32, nor from a plain layout to the default one.
		_, err := selector.Select(CallSite{OpName: "Assign", Inputs: ops(t, "int16:DefaultFormat", "int16:DefaultFormat")})
		require.ErrorIs(t, err, ErrNoCompatibleKernel)
		_, err = selector.Select(CallSite{OpName: "Assign", Inputs: ops(t, "float16:ND", "float16:ND")})
		require.ErrorIs(t, err, ErrNoCompatibleKernel)
		// Mixed dtypes across slots match no variant.
		_, err = selector.Select(CallSite{OpName: "Assign", Inputs: ops(t, "float16:DefaultFormat", "float:DefaultFormat")})
		require.ErrorIs(t, err, ErrNoCompatibleKernel)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, err := selector.Select(CallSite{OpName: "NoSuchOp", Inputs: ops(t, "float16:DefaultFormat")})
		require.ErrorIs(t, err, ErrUnknownOperator)
		require.NotErrorIs(t, err, ErrNoCompatibleKernel)

		_, err = selector.Select(CallSite{OpName: "Asign", Inputs: ops(t, "float16:DefaultFormat")})
		var unknown *UnknownOperatorError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, []string{"Assign"}, unknown.Suggestions)
		assert.Contains(t, err.Error(), `did you mean "Assign"?`)
	})

	t.Run("idempotent", func(t *testing.T) {
		call := CallSite{OpName: "FusedMulAddN", Inputs: ops(t, "float:NC1HWC0", "float:NC1HWC0", "float:DefaultFormat")}
		first, err := selector.Select(call)
		require.NoError(t, err)
		for range 3 {
			again, err := selector.Select(call)
			require.NoError(t, err)
			if diff := cmp.Diff(first, again, cmp.AllowUnexported(OperandDescriptor{})); diff != "" {
				t.Errorf("Select not idempotent (-first +again):\n%s", diff)
			}
		}
	})
}

func TestSelectOutputs(t *testing.T) {
	assign := assignLike(t, "float16:DefaultFormat", "float16:NC1HWC0")
	selector := newTestSelector(t, assign)
	inputs := ops(t, "float16:NC1HWC0", "float16:NC1HWC0")

	got, err := selector.Select(CallSite{OpName: "Assign", Inputs: inputs, Outputs: ops(t, "*/*")})
	require.NoError(t, err)
	assert.Equal(t, 1, got.VariantIndex)
	assert.Equal(t, ops(t, "float16:NC1HWC0"), got.Outputs)

	got, err = selector.Select(CallSite{OpName: "Assign", Inputs: inputs, Outputs: ops(t, "float16/*")})
	require.NoError(t, err)
	assert.Equal(t, 1, got.VariantIndex)

	_, err = selector.Select(CallSite{OpName: "Assign", Inputs: inputs, Outputs: ops(t, "float16:DefaultFormat")})
	require.ErrorIs(t, err, ErrNoCompatibleKernel)
	var noKernel *NoCompatibleKernelError
	require.True(t, errors.As(err, &noKernel))
	require.Len(t, noKernel.Attempts, 2)
	assert.Equal(t, "input 0 (resource)", noKernel.Attempts[0].Slot)
	assert.Equal(t, "output 0 (y)", noKernel.Attempts[1].Slot)

	// An empty, non-nil list of outputs accepts any output, like nil.
	got, err = selector.Select(CallSite{OpName: "Assign", Inputs: inputs, Outputs: []Operand{}})
	require.NoError(t, err)
	assert.Equal(t, 1, got.VariantIndex)
	assert.Equal(t, ops(t, "float16:NC1HWC0"), got.Outputs)

	// Wrong number of outputs.
	_, err = selector.Select(CallSite{OpName: "Assign", Inputs: inputs, Outputs: ops(t, "*/*", "*/*")})
	require.True(t, errors.As(err, &noKernel))
	require.Len(t, noKernel.Attempts, 1)
	assert.Equal(t, -1, noKernel.Attempts[0].Variant)
	assert.Contains(t, noKernel.Attempts[0].Reason, "2 outputs")
}

func TestSelectMalformedCallSite(t *testing.T) {
	selector := newTestSelector(t, assignLike(t, "float16:DefaultFormat"))
	_, err := selector.Select(CallSite{OpName: "Assign", Inputs: ops(t, "float16:DefaultFormat", "*:DefaultFormat")})
	require.ErrorIs(t, err, ErrMalformedCallSite)
	var malformed *MalformedCallSiteError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "input 1", malformed.Slot)

	_, err = selector.Select(CallSite{OpName: "Assign", Inputs: ops(t, "float16:*", "float16:DefaultFormat")})
	require.ErrorIs(t, err, ErrMalformedCallSite)

	// Arity is a mismatch, not a malformed call site.
	_, err = selector.Select(CallSite{OpName: "Assign", Inputs: ops(t, "float16:DefaultFormat")})
	require.ErrorIs(t, err, ErrNoCompatibleKernel)
}

func TestSelectRegistrationOrder(t *testing.T) {
	expensive := assignLike(t, "float16:DefaultFormat")
	expensive.Cost = 100
	cheap := assignLike(t, "float:DefaultFormat", "float16:DefaultFormat")
	cheap.Cost = 1
	cheap.KernelName = "assign_cheap"
	selector := newTestSelector(t, expensive, cheap)

	// The first registered wins, regardless of cost.
	got, err := selector.Select(CallSite{OpName: "Assign", Inputs: ops(t, "float16:DefaultFormat", "float16:DefaultFormat")})
	require.NoError(t, err)
	assert.Same(t, expensive, got.Implementation)

	// Falls through to the second implementation.
	got, err = selector.Select(CallSite{OpName: "Assign", Inputs: ops(t, "float:DefaultFormat", "float:DefaultFormat")})
	require.NoError(t, err)
	assert.Same(t, cheap, got.Implementation)
	assert.Equal(t, 0, got.VariantIndex)

	// Failures list the attempts of every implementation, in order.
	_, err = selector.Select(CallSite{OpName: "Assign", Inputs: ops(t, "int8:DefaultFormat", "int8:DefaultFormat")})
	var noKernel *NoCompatibleKernelError
	require.True(t, errors.As(err, &noKernel))
	require.Len(t, noKernel.Attempts, 3)
	assert.Same(t, expensive, noKernel.Attempts[0].Implementation)
	assert.Same(t, cheap, noKernel.Attempts[2].Implementation)
	assert.Equal(t, 1, noKernel.Attempts[2].Variant)
}

func TestSelectBinding(t *testing.T) {
	addN := &Implementation{
		OpName: "AddN",
		Imply:  ImplyTBE,
		Inputs: []*OperandDescriptor{
			slotWithParam(t, 0, "x", ParamDynamic, "float16:DefaultFormat", "float:DefaultFormat"),
		},
		Outputs:    []*OperandDescriptor{slot(t, 0, "y", "float16:DefaultFormat", "float:DefaultFormat")},
		Attributes: []Attribute{{Name: "n", Type: "int"}},
	}
	scatter := &Implementation{
		OpName: "ScatterPack",
		Imply:  ImplyTBE,
		Inputs: []*OperandDescriptor{
			slot(t, 0, "indices", "int32:DefaultFormat"),
			slotWithParam(t, 1, "updates", ParamDynamic, "float:DefaultFormat"),
			slot(t, 2, "shape", "int64:DefaultFormat"),
		},
		Outputs: []*OperandDescriptor{slot(t, 0, "y", "float:DefaultFormat")},
	}
	bias := &Implementation{
		OpName: "BiasAdd",
		Imply:  ImplyTBE,
		Inputs: []*OperandDescriptor{
			slot(t, 0, "x", "float16:DefaultFormat"),
			slotWithParam(t, 1, "bias", ParamOptional, "float16:DefaultFormat"),
		},
		Outputs: []*OperandDescriptor{slot(t, 0, "y", "float16:DefaultFormat")},
	}
	allReduce := &Implementation{
		OpName:        "AllReduce",
		Imply:         ImplyGPU,
		AllSameInputs: true,
		Inputs:        []*OperandDescriptor{slot(t, 0, "x0", "float:DefaultFormat", "float16:DefaultFormat")},
		Outputs:       []*OperandDescriptor{slot(t, 0, "y0", "float:DefaultFormat", "float16:DefaultFormat")},
	}
	selector := newTestSelector(t, addN, scatter, bias, allReduce)

	t.Run("dynamic", func(t *testing.T) {
		got, err := selector.Select(CallSite{OpName: "AddN", Inputs: ops(t, "float", "float", "float")})
		require.NoError(t, err)
		assert.Equal(t, 1, got.VariantIndex)
		assert.Len(t, got.Inputs, 3)

		_, err = selector.Select(CallSite{OpName: "AddN", Inputs: ops(t, "float", "float16", "float")})
		var noKernel *NoCompatibleKernelError
		require.True(t, errors.As(err, &noKernel))
		assert.Equal(t, "input 0 (x), operand #1", noKernel.Attempts[1].Slot)

		_, err = selector.Select(CallSite{OpName: "AddN"})
		require.ErrorIs(t, err, ErrNoCompatibleKernel)
	})

	t.Run("dynamic in the middle", func(t *testing.T) {
		got, err := selector.Select(CallSite{OpName: "ScatterPack", Inputs: ops(t, "int32", "float", "float", "float", "int64")})
		require.NoError(t, err)
		assert.Equal(t, ops(t, "int32", "float", "float", "float", "int64"), got.Inputs)

		_, err = selector.Select(CallSite{OpName: "ScatterPack", Inputs: ops(t, "int32", "float", "float", "int32")})
		require.ErrorIs(t, err, ErrNoCompatibleKernel)
		_, err = selector.Select(CallSite{OpName: "ScatterPack", Inputs: ops(t, "int32", "int64")})
		require.ErrorIs(t, err, ErrNoCompatibleKernel)
	})

	t.Run("optional", func(t *testing.T) {
		_, err := selector.Select(CallSite{OpName: "BiasAdd", Inputs: ops(t, "float16", "float16")})
		require.NoError(t, err)
		got, err := selector.Select(CallSite{OpName: "BiasAdd", Inputs: ops(t, "float16")})
		require.NoError(t, err)
		assert.Len(t, got.Inputs, 1)

		_, err = selector.Select(CallSite{OpName: "BiasAdd", Inputs: ops(t, "float16", "float16", "float16")})
		var noKernel *NoCompatibleKernelError
		require.True(t, errors.As(err, &noKernel))
		assert.Contains(t, noKernel.Attempts[0].Reason, "accepts 1 to 2")
	})

	t.Run("all same", func(t *testing.T) {
		got, err := selector.Select(CallSite{OpName: "AllReduce", Inputs: ops(t, "float16", "float16", "float16", "float16")})
		require.NoError(t, err)
		assert.Equal(t, 1, got.VariantIndex)
		assert.Len(t, got.Inputs, 4)

		_, err = selector.Select(CallSite{OpName: "AllReduce", Inputs: ops(t, "float16", "float")})
		require.ErrorIs(t, err, ErrNoCompatibleKernel)
		_, err = selector.Select(CallSite{OpName: "AllReduce"})
		require.ErrorIs(t, err, ErrNoCompatibleKernel)
	})
}

func TestSelectConcurrent(t *testing.T) {
	selector := newTestSelector(t, fusedMulAddN(t))
	call := CallSite{OpName: "FusedMulAddN", Inputs: ops(t, "float:FracZ", "float:FracZ", "float:DefaultFormat")}
	var wg sync.WaitGroup
	results := make([]int, 16)
	for ii := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := selector.Select(call)
			if err != nil {
				results[ii] = -1
				return
			}
			results[ii] = got.VariantIndex
		}()
	}
	wg.Wait()
	for _, k := range results {
		assert.Equal(t, 7, k)
	}
}

func TestSelectAmong(t *testing.T) {
	assign := assignLike(t, "float16:DefaultFormat")
	selector := newTestSelector(t, assign)
	call := CallSite{OpName: "Assign", Inputs: ops(t, "float16", "float16")}

	_, err := selector.SelectAmong(call, nil)
	var noKernel *NoCompatibleKernelError
	require.True(t, errors.As(err, &noKernel))
	assert.Empty(t, noKernel.Attempts)

	got, err := selector.SelectAmong(call, []*Implementation{assign})
	require.NoError(t, err)
	assert.Same(t, assign, got.Implementation)
}

func TestCallSiteString(t *testing.T) {
	call := CallSite{OpName: "Assign", Inputs: ops(t, "float16", "float16")}
	assert.Equal(t, "Assign(float16/DefaultFormat, float16/DefaultFormat) -> (*)", call.String())
	call.Outputs = []Operand{}
	assert.Equal(t, "Assign(float16/DefaultFormat, float16/DefaultFormat) -> (*)", call.String())
	call.Outputs = ops(t, "*/NC1HWC0")
	assert.Equal(t, "Assign(float16/DefaultFormat, float16/DefaultFormat) -> (*/NC1HWC0)", call.String())
}
