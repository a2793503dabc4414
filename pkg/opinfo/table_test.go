package opinfo

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opinfo/pkg/core/dtypes"
	"github.com/gomlx/opinfo/pkg/core/layouts"
	"github.com/gomlx/opinfo/pkg/support/sets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRegister(t *testing.T) {
	table := NewTable()
	assert.Nil(t, table.Lookup("Assign"))
	assert.False(t, table.Has("Assign"))

	first := assignLike(t, "float16:DefaultFormat")
	second := assignLike(t, "float:DefaultFormat")
	second.KernelName = "assign_v2"
	require.NoError(t, table.Register(first))
	require.NoError(t, table.Register(fusedMulAddN(t)))
	require.NoError(t, table.Register(second))

	// Registration order is kept per operator.
	impls := table.Lookup("Assign")
	require.Len(t, impls, 2)
	assert.Same(t, first, impls[0])
	assert.Same(t, second, impls[1])
	assert.True(t, table.Has("FusedMulAddN"))
	assert.Equal(t, []string{"Assign", "FusedMulAddN"}, table.Operators())
	assert.Equal(t, 2, table.NumOperators())
	assert.Equal(t, 3, table.NumImplementations())

	// ListImplementations returns a copy.
	listed := table.ListImplementations("Assign")
	listed[0] = nil
	assert.Same(t, first, table.Lookup("Assign")[0])
}

func TestTableRegisterFailureLeavesTableUnchanged(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Register(assignLike(t, "float16:DefaultFormat")))

	bad := assignLike(t, "float16:DefaultFormat", "float:DefaultFormat")
	bad.Outputs[0] = slot(t, 0, "y", "float16:DefaultFormat")
	require.ErrorIs(t, table.Register(bad), ErrInconsistentVariantCount)
	assert.Len(t, table.Lookup("Assign"), 1)
	assert.Equal(t, 1, table.NumImplementations())

	bad = &Implementation{OpName: "ZerosLike", Inputs: []*OperandDescriptor{slot(t, 0, "x", "float16:DefaultFormat")},
		Outputs: []*OperandDescriptor{slot(t, 0, "y")}}
	require.Error(t, table.Register(bad))
	assert.False(t, table.Has("ZerosLike"))
	assert.Equal(t, []string{"Assign"}, table.Operators())

	err := exceptions.TryCatch[error](func() { table.MustRegister(bad) })
	require.ErrorContains(t, err, "ZerosLike")
}

func TestTableFreeze(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Register(assignLike(t, "float16:DefaultFormat")))
	assert.False(t, table.IsFrozen())
	table.Freeze()
	table.Freeze()
	assert.True(t, table.IsFrozen())

	err := table.Register(fusedMulAddN(t))
	require.ErrorIs(t, err, ErrTableFrozen)
	assert.ErrorContains(t, err, "FusedMulAddN")
	assert.False(t, table.Has("FusedMulAddN"))

	// Reads still work.
	assert.Len(t, table.Lookup("Assign"), 1)
}

func TestTableSuggest(t *testing.T) {
	table := NewTable()
	for _, name := range []string{"Assign", "AssignAdd", "AssignSub", "ZerosLike", "FusedMulAddN"} {
		impl := assignLike(t, "float16:DefaultFormat")
		impl.OpName = name
		require.NoError(t, table.Register(impl))
	}
	assert.Equal(t, []string{"Assign"}, table.Suggest("assign"))
	assert.Equal(t, []string{"AssignAdd", "Assign"}, table.Suggest("AssignAd"))
	assert.Equal(t, []string{"ZerosLike"}, table.Suggest("ZeroLike"))
	assert.Empty(t, table.Suggest("Assign"), "exact name is not a suggestion")
	assert.Empty(t, table.Suggest("NoSuchOp"))
}

func TestTableCapabilities(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Register(assignLike(t, "float16:DefaultFormat", "int8:NC1HWC0")))
	gpu := assignLike(t, "float64:DefaultFormat")
	gpu.OpName = "Neg"
	gpu.Imply = ImplyGPU
	require.NoError(t, table.Register(gpu))

	all := table.Capabilities(nil)
	assert.Equal(t, []string{"Assign", "Neg"}, sets.Sorted(all.Operators))
	assert.Equal(t, []dtypes.DType{dtypes.Int8, dtypes.Float16, dtypes.Float64}, sets.Sorted(all.DTypes))
	assert.Equal(t, []layouts.Layout{layouts.Default, layouts.NC1HWC0}, sets.Sorted(all.Layouts))

	tbe := table.Capabilities(func(impl *Implementation) bool { return impl.Imply == ImplyTBE })
	assert.Equal(t, sets.MakeWith("Assign"), tbe.Operators)
	assert.False(t, tbe.DTypes.Has(dtypes.Float64))
}
