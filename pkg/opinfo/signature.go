// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opinfo

import (
	"fmt"

	"github.com/gomlx/opinfo/pkg/core/dtypes"
	"github.com/gomlx/opinfo/pkg/core/layouts"
)

// Signature is one variant of a kernel, given as the operand requirement of each input and output.
//
// Native kernels are naturally declared one supported signature at a time, while registration
// payloads list the variants per slot. FromSignatures converts the former into the latter.
type Signature struct {
	Inputs, Outputs []Operand
}

// Sig is a shortcut to build a Signature where all slots use the default layout.
func Sig(inputs []dtypes.DType, outputs ...dtypes.DType) Signature {
	sig := Signature{
		Inputs:  make([]Operand, len(inputs)),
		Outputs: make([]Operand, len(outputs)),
	}
	for ii, dtype := range inputs {
		sig.Inputs[ii] = Operand{DType: dtype, Layout: layouts.Default}
	}
	for ii, dtype := range outputs {
		sig.Outputs[ii] = Operand{DType: dtype, Layout: layouts.Default}
	}
	return sig
}

// FromSignatures builds an Implementation from header (all fields except Inputs and Outputs, which
// must be empty) and its variants, one Signature per variant, in priority order.
//
// All signatures must have the same number of inputs and outputs. Slots are named "x0", "x1", ...
// for inputs and "y0", ... for outputs, and are all required.
// The result still has to be registered (and hence validated) with Table.Register.
func FromSignatures(header Implementation, sigs ...Signature) (*Implementation, error) {
	if len(header.Inputs) > 0 || len(header.Outputs) > 0 {
		return nil, &MalformedDescriptorError{OpName: header.OpName,
			Reason: "header for FromSignatures must not declare inputs or outputs"}
	}
	if len(sigs) == 0 {
		return nil, &InconsistentVariantCountError{OpName: header.OpName, Slot: "all slots (no signatures)", Length: 0, Expected: 1}
	}
	numInputs, numOutputs := len(sigs[0].Inputs), len(sigs[0].Outputs)
	for k, sig := range sigs {
		if len(sig.Inputs) != numInputs || len(sig.Outputs) != numOutputs {
			return nil, &MalformedDescriptorError{OpName: header.OpName,
				Reason: fmt.Sprintf("signature #%d has %d inputs and %d outputs, signature #0 has %d and %d",
					k, len(sig.Inputs), len(sig.Outputs), numInputs, numOutputs)}
		}
	}

	transpose := func(kind, prefix string, slot int, operandAt func(sig Signature) Operand) (*OperandDescriptor, error) {
		dts := make([]dtypes.DType, len(sigs))
		lts := make([]layouts.Layout, len(sigs))
		for k, sig := range sigs {
			o := operandAt(sig)
			dts[k], lts[k] = o.DType, o.Layout
		}
		name := fmt.Sprintf("%s%d", prefix, slot)
		d, err := newOperandDescriptor(slot, name, dts, lts, ParamRequired, ShapeAll, false)
		if err != nil {
			if malformed, ok := err.(*MalformedDescriptorError); ok {
				malformed.OpName = header.OpName
				malformed.Slot = slotName(kind, slot, name)
			}
			return nil, err
		}
		return d, nil
	}

	impl := header
	impl.Inputs = make([]*OperandDescriptor, numInputs)
	impl.Outputs = make([]*OperandDescriptor, numOutputs)
	for ii := range numInputs {
		d, err := transpose("input", "x", ii, func(sig Signature) Operand { return sig.Inputs[ii] })
		if err != nil {
			return nil, err
		}
		impl.Inputs[ii] = d
	}
	for ii := range numOutputs {
		d, err := transpose("output", "y", ii, func(sig Signature) Operand { return sig.Outputs[ii] })
		if err != nil {
			return nil, err
		}
		impl.Outputs[ii] = d
	}
	return &impl, nil
}
