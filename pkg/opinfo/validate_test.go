package opinfo

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, Validate(fusedMulAddN(t)))
		require.NoError(t, Validate(assignLike(t, "float16:DefaultFormat", "float:NC1HWC0")))
	})

	t.Run("inconsistent output", func(t *testing.T) {
		// ZerosLike with 12 input variants, but only 10 output ones.
		var in, out []string
		for k := range 12 {
			v := "float16:DefaultFormat"
			if k%2 == 1 {
				v = "float16:NC1HWC0"
			}
			in = append(in, v)
			if k < 10 {
				out = append(out, v)
			}
		}
		impl := &Implementation{
			OpName:  "ZerosLike",
			Imply:   ImplyTBE,
			Inputs:  []*OperandDescriptor{slot(t, 0, "x", in...)},
			Outputs: []*OperandDescriptor{slot(t, 0, "y", out...)},
		}
		err := Validate(impl)
		require.ErrorIs(t, err, ErrInconsistentVariantCount)
		var inconsistent *InconsistentVariantCountError
		require.True(t, errors.As(err, &inconsistent))
		assert.Equal(t, "ZerosLike", inconsistent.OpName)
		assert.Equal(t, "output 0 (y)", inconsistent.Slot)
		assert.Equal(t, 10, inconsistent.Length)
		assert.Equal(t, 12, inconsistent.Expected)
	})

	t.Run("inconsistent input", func(t *testing.T) {
		impl := assignLike(t, "float16:DefaultFormat", "float:DefaultFormat")
		impl.Inputs[1] = slot(t, 1, "value", "float16:DefaultFormat")
		var inconsistent *InconsistentVariantCountError
		require.True(t, errors.As(Validate(impl), &inconsistent))
		assert.Equal(t, "input 1 (value)", inconsistent.Slot)
	})

	t.Run("no variants", func(t *testing.T) {
		impl := &Implementation{OpName: "Empty", Inputs: []*OperandDescriptor{slot(t, 0, "x")}}
		require.ErrorIs(t, Validate(impl), ErrInconsistentVariantCount)
		require.ErrorIs(t, Validate(&Implementation{OpName: "NoSlots"}), ErrInconsistentVariantCount)
	})

	t.Run("indices", func(t *testing.T) {
		impl := assignLike(t, "float16:DefaultFormat")
		impl.Inputs[1] = slot(t, 2, "value", "float16:DefaultFormat")
		err := Validate(impl)
		require.ErrorIs(t, err, ErrMalformedDescriptor)
		assert.Contains(t, err.Error(), "contiguous")

		impl.Inputs[1] = slot(t, 0, "value", "float16:DefaultFormat")
		err = Validate(impl)
		require.ErrorIs(t, err, ErrMalformedDescriptor)
		assert.Contains(t, err.Error(), "duplicate index 0")

		// Output indices are checked independently of the inputs.
		impl = assignLike(t, "float16:DefaultFormat")
		impl.Outputs[0] = slot(t, 1, "y", "float16:DefaultFormat")
		require.ErrorIs(t, Validate(impl), ErrMalformedDescriptor)
	})

	t.Run("duplicate attribute", func(t *testing.T) {
		impl := assignLike(t, "float16:DefaultFormat")
		impl.Attributes = []Attribute{{Name: "axis", Type: "int"}, {Name: "keep_dims"}, {Name: "axis"}}
		err := Validate(impl)
		require.ErrorIs(t, err, ErrDuplicateAttribute)
		var dup *DuplicateAttributeError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "axis", dup.Name)
	})

	t.Run("check order", func(t *testing.T) {
		// Variant counts are checked before indices and attributes.
		impl := assignLike(t, "float16:DefaultFormat", "float:DefaultFormat")
		impl.Inputs[1] = slot(t, 3, "value", "float16:DefaultFormat")
		impl.Attributes = []Attribute{{Name: "a"}, {Name: "a"}}
		require.ErrorIs(t, Validate(impl), ErrInconsistentVariantCount)

		impl.Inputs[1] = slot(t, 3, "value", "float16:DefaultFormat", "float:DefaultFormat")
		require.ErrorIs(t, Validate(impl), ErrMalformedDescriptor)
	})

	t.Run("other defects", func(t *testing.T) {
		require.ErrorIs(t, Validate(nil), ErrMalformedDescriptor)

		impl := assignLike(t, "float16:DefaultFormat")
		impl.OpName = ""
		require.ErrorIs(t, Validate(impl), ErrMalformedDescriptor)

		impl = assignLike(t, "float16:DefaultFormat")
		impl.Inputs[1] = nil
		require.ErrorIs(t, Validate(impl), ErrMalformedDescriptor)

		impl = assignLike(t, "float16:DefaultFormat")
		impl.Inputs = []*OperandDescriptor{
			slotWithParam(t, 0, "x", ParamDynamic, "float16:DefaultFormat"),
			slotWithParam(t, 1, "y", ParamDynamic, "float16:DefaultFormat"),
		}
		require.ErrorIs(t, Validate(impl), ErrMalformedDescriptor)

		impl = assignLike(t, "float16:DefaultFormat")
		impl.AllSameInputs = true
		require.ErrorIs(t, Validate(impl), ErrMalformedDescriptor)
	})
}

func TestNewOperandDescriptor(t *testing.T) {
	d, err := NewOperandDescriptor(RawOperand{
		Index:   1,
		Name:    "value",
		DTypes:  []string{"float16", "float", "int32"},
		Layouts: []string{"DefaultFormat", "NC1HWC0", "FRACTAL_NZ"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Index())
	assert.Equal(t, "value", d.Name())
	assert.Equal(t, ParamRequired, d.ParamType())
	assert.Equal(t, ShapeAll, d.Shape())
	assert.Equal(t, 3, d.NumVariants())
	assert.Equal(t, op(t, "float32:NC1HWC0"), d.Variant(1))
	assert.Equal(t, op(t, "int32:FRACTAL_NZ"), d.Variant(2))

	// Accessors return copies.
	dts := d.DTypes()
	dts[0] = dts[2]
	assert.Equal(t, op(t, "float16:DefaultFormat"), d.Variant(0))

	for _, raw := range []RawOperand{
		{Index: 0, DTypes: []string{"float16", "float"}, Layouts: []string{"DefaultFormat"}},
		{Index: 0, DTypes: []string{"float17"}, Layouts: []string{"DefaultFormat"}},
		{Index: 0, DTypes: []string{"float16"}, Layouts: []string{"FunkyFormat"}},
		{Index: -1, DTypes: []string{"float16"}, Layouts: []string{"DefaultFormat"}},
		{Index: 0, DTypes: []string{"float16"}, Layouts: []string{"DefaultFormat"}, ParamType: "sometimes"},
		{Index: 0, DTypes: []string{"float16"}, Layouts: []string{"DefaultFormat"}, Shape: "round"},
	} {
		_, err := NewOperandDescriptor(raw)
		assert.ErrorIs(t, err, ErrMalformedDescriptor, "raw operand %+v", raw)
	}
}

func TestParseOperand(t *testing.T) {
	o, err := ParseOperand("float16:DefaultFormat")
	require.NoError(t, err)
	assert.Equal(t, "float16/DefaultFormat", o.String())
	assert.True(t, o.IsConcrete())

	o, err = ParseOperand("float")
	require.NoError(t, err)
	assert.Equal(t, "float32/DefaultFormat", o.String())

	o, err = ParseOperand("*/*")
	require.NoError(t, err)
	assert.False(t, o.IsConcrete())
	assert.Equal(t, "*/*", o.String())

	o, err = ParseOperand("int8/*")
	require.NoError(t, err)
	assert.True(t, o.accepts(op(t, "int8:NC1HWC0")))
	assert.False(t, o.accepts(op(t, "uint8:NC1HWC0")))

	_, err = ParseOperand("float16:Spiral")
	require.Error(t, err)
	_, err = ParseOperand("half-float")
	require.Error(t, err)
}
