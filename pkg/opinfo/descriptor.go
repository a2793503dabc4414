// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opinfo

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/opinfo/pkg/core/dtypes"
	"github.com/gomlx/opinfo/pkg/core/layouts"
	"github.com/pkg/errors"
)

// Operand is one (data type, memory layout) pair.
//
// In a registered kernel it is the requirement of a slot for one variant and is always concrete.
// At a call site it describes an actual operand: dtypes.InvalidDType and layouts.Any are wildcards,
// only allowed for outputs.
type Operand struct {
	DType  dtypes.DType
	Layout layouts.Layout
}

// String returns "dtype/layout", e.g. "float16/DefaultFormat". Wildcards are rendered as "*".
func (o Operand) String() string {
	return o.DType.RegistryName() + "/" + o.Layout.String()
}

// IsConcrete returns whether both the dtype and the layout are set.
func (o Operand) IsConcrete() bool {
	return o.DType.IsValid() && o.Layout.IsValid()
}

// accepts returns whether the (possibly wildcard) call-site operand o is satisfied by the registered
// requirement want. Concrete values must be equal: there is no implicit promotion.
func (o Operand) accepts(want Operand) bool {
	return (o.DType == dtypes.InvalidDType || o.DType == want.DType) &&
		(o.Layout == layouts.Any || o.Layout == want.Layout)
}

// ParseOperand parses "dtype/layout" or "dtype:layout" (e.g. "float16:DefaultFormat").
// A missing layout defaults to layouts.Default. "*" can be used for either part to build a wildcard.
func ParseOperand(s string) (Operand, error) {
	dtypeName, layoutName, found := strings.Cut(s, ":")
	if !found {
		dtypeName, layoutName, found = strings.Cut(s, "/")
	}
	var o Operand
	if dtypeName != "*" {
		dtype, err := dtypes.FromName(dtypeName)
		if err != nil {
			return o, errors.WithMessagef(err, "parsing operand %q", s)
		}
		o.DType = dtype
	}
	switch {
	case !found:
		o.Layout = layouts.Default
	case layoutName == "*":
		o.Layout = layouts.Any
	default:
		layout, err := layouts.FromName(layoutName)
		if err != nil {
			return o, errors.WithMessagef(err, "parsing operand %q", s)
		}
		o.Layout = layout
	}
	return o, nil
}

// RawOperand holds the fields of one input/output entry of a registration payload, before parsing.
type RawOperand struct {
	Index       int
	Name        string
	DTypes      []string
	Layouts     []string
	ParamType   string
	Shape       string
	NeedCompile bool
}

// OperandDescriptor describes one input or output slot of a kernel implementation: for each variant
// index k, the dtype and layout the slot requires.
//
// It is immutable once constructed.
type OperandDescriptor struct {
	index       int
	name        string
	dtypes      []dtypes.DType
	layouts     []layouts.Layout
	paramType   ParamType
	shape       ShapePolicy
	needCompile bool
}

// NewOperandDescriptor parses and checks a raw operand.
//
// It fails with a *MalformedDescriptorError if the index is negative, if a dtype or layout name is not
// recognized, or if the dtype and layout lists have different lengths.
// An empty ParamType defaults to ParamRequired and an empty Shape to ShapeAll.
func NewOperandDescriptor(raw RawOperand) (*OperandDescriptor, error) {
	paramType := ParamRequired
	if raw.ParamType != "" {
		var err error
		paramType, err = ParamTypeString(raw.ParamType)
		if err != nil {
			return nil, &MalformedDescriptorError{Reason: err.Error()}
		}
	}
	shape := ShapeAll
	if raw.Shape != "" {
		var err error
		shape, err = ShapePolicyString(raw.Shape)
		if err != nil {
			return nil, &MalformedDescriptorError{Reason: err.Error()}
		}
	}
	if len(raw.DTypes) != len(raw.Layouts) {
		return nil, &MalformedDescriptorError{
			Reason: fmt.Sprintf("%d dtypes but %d formats, they must have the same length",
				len(raw.DTypes), len(raw.Layouts))}
	}
	dts := make([]dtypes.DType, len(raw.DTypes))
	for ii, name := range raw.DTypes {
		dtype, err := dtypes.FromName(name)
		if err != nil {
			return nil, &MalformedDescriptorError{Reason: fmt.Sprintf("variant #%d: %v", ii, err)}
		}
		dts[ii] = dtype
	}
	lts := make([]layouts.Layout, len(raw.Layouts))
	for ii, name := range raw.Layouts {
		layout, err := layouts.FromName(name)
		if err != nil {
			return nil, &MalformedDescriptorError{Reason: fmt.Sprintf("variant #%d: %v", ii, err)}
		}
		lts[ii] = layout
	}
	return newOperandDescriptor(raw.Index, raw.Name, dts, lts, paramType, shape, raw.NeedCompile)
}

// newOperandDescriptor builds a descriptor from already parsed values. The slices are owned by the
// descriptor afterward.
func newOperandDescriptor(index int, name string, dts []dtypes.DType, lts []layouts.Layout,
	paramType ParamType, shape ShapePolicy, needCompile bool) (*OperandDescriptor, error) {
	if index < 0 {
		return nil, &MalformedDescriptorError{Reason: fmt.Sprintf("negative index %d", index)}
	}
	if len(dts) != len(lts) {
		return nil, &MalformedDescriptorError{
			Reason: fmt.Sprintf("%d dtypes but %d formats, they must have the same length", len(dts), len(lts))}
	}
	for ii := range dts {
		if !dts[ii].IsValid() {
			return nil, &MalformedDescriptorError{Reason: fmt.Sprintf("variant #%d: invalid dtype %s", ii, dts[ii])}
		}
		if !lts[ii].IsValid() {
			return nil, &MalformedDescriptorError{Reason: fmt.Sprintf("variant #%d: invalid format %s", ii, lts[ii])}
		}
	}
	return &OperandDescriptor{
		index:       index,
		name:        name,
		dtypes:      dts,
		layouts:     lts,
		paramType:   paramType,
		shape:       shape,
		needCompile: needCompile,
	}, nil
}

// Index is the position of the slot among the inputs (or outputs) of the kernel.
func (d *OperandDescriptor) Index() int { return d.index }

// Name of the slot, e.g. "x" or "resource".
func (d *OperandDescriptor) Name() string { return d.name }

// ParamType tells how many call-site operands bind to this slot.
func (d *OperandDescriptor) ParamType() ParamType { return d.paramType }

// Shape is the shape policy of the slot.
func (d *OperandDescriptor) Shape() ShapePolicy { return d.shape }

// NeedCompile returns whether the value of the operand must be known at compile time
// (e.g. a shape or an axis given as a tensor), so the graph compiler must resolve it on the host.
func (d *OperandDescriptor) NeedCompile() bool { return d.needCompile }

// NumVariants is the length of the variant lists of this slot.
func (d *OperandDescriptor) NumVariants() int { return len(d.dtypes) }

// Variant returns the operand requirement of this slot for variant k.
func (d *OperandDescriptor) Variant(k int) Operand {
	return Operand{DType: d.dtypes[k], Layout: d.layouts[k]}
}

// DTypes returns a copy of the dtype list, one per variant.
func (d *OperandDescriptor) DTypes() []dtypes.DType { return slices.Clone(d.dtypes) }

// Layouts returns a copy of the layout list, one per variant.
func (d *OperandDescriptor) Layouts() []layouts.Layout { return slices.Clone(d.layouts) }

// RawAttribute holds the fields of one "attr" entry of a registration payload.
type RawAttribute struct {
	Name      string
	ParamType string
	Type      string
	Value     string
}

// Attribute describes one attribute (a compile-time parameter, e.g. "axis") a kernel accepts.
type Attribute struct {
	Name      string
	ParamType ParamType

	// Type is the attribute value type, e.g. "int", "listInt", "bool".
	Type string

	// Value restricts the accepted values, "all" for no restriction.
	Value string
}

// NewAttribute parses a raw attribute. The name is required.
func NewAttribute(raw RawAttribute) (Attribute, error) {
	if raw.Name == "" {
		return Attribute{}, &MalformedDescriptorError{Slot: "attr", Reason: "attribute with empty name"}
	}
	attr := Attribute{Name: raw.Name, Type: raw.Type, Value: raw.Value}
	if raw.ParamType != "" {
		paramType, err := ParamTypeString(raw.ParamType)
		if err != nil {
			return Attribute{}, &MalformedDescriptorError{Slot: "attr " + raw.Name, Reason: err.Error()}
		}
		attr.ParamType = paramType
	}
	return attr, nil
}
