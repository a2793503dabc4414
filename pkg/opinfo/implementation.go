// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opinfo

import "fmt"

// Implementation is one concrete, hardware-targeted realization of an operator: a kernel.
//
// Its Inputs and Outputs enumerate, per slot, the variants the kernel accepts: variant k is the
// combination of Inputs[i].Variant(k) and Outputs[j].Variant(k) for all slots i, j.
//
// An Implementation is created once from a static descriptor (see package payload, or FromSignatures)
// and must not be modified after it is given to Table.Register.
type Implementation struct {
	OpName string
	Imply  ImplyType
	Fusion FusionType

	// Async tells whether the kernel is launched asynchronously.
	Async bool

	// Cost is the relative compute cost, informational for schedulers. It is never used by the Selector.
	Cost int

	// BinaryFile is the name of the hardware binary holding the kernel code, and KernelName the
	// entry point in it.
	BinaryFile string
	KernelName string

	// Partial tells whether partial execution is allowed.
	Partial bool

	Attributes []Attribute
	Inputs     []*OperandDescriptor
	Outputs    []*OperandDescriptor

	// AllSameInputs is set by kernels that accept any number of inputs, all with the same dtype/layout
	// described by the single input slot (e.g. collective kernels).
	AllSameInputs bool
}

// NumVariants returns the number of variants (k_max) declared by the implementation, taken from its
// first slot. It is only meaningful for validated implementations.
func (impl *Implementation) NumVariants() int {
	switch {
	case len(impl.Inputs) > 0 && impl.Inputs[0] != nil:
		return impl.Inputs[0].NumVariants()
	case len(impl.Outputs) > 0 && impl.Outputs[0] != nil:
		return impl.Outputs[0].NumVariants()
	default:
		return 0
	}
}

// Variant returns the operand requirements of every input and output slot for variant k.
func (impl *Implementation) Variant(k int) (inputs, outputs []Operand) {
	inputs = make([]Operand, len(impl.Inputs))
	for ii, d := range impl.Inputs {
		inputs[ii] = d.Variant(k)
	}
	outputs = make([]Operand, len(impl.Outputs))
	for ii, d := range impl.Outputs {
		outputs[ii] = d.Variant(k)
	}
	return
}

// Attribute returns the attribute with the given name, if declared.
func (impl *Implementation) Attribute(name string) (Attribute, bool) {
	for _, attr := range impl.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// String returns a short description, e.g. `TBE kernel "assign" for "Assign" (41 variants)`.
func (impl *Implementation) String() string {
	return fmt.Sprintf("%s kernel %q for %q (%d variants)", impl.Imply, impl.KernelName, impl.OpName, impl.NumVariants())
}

// inputSlot and outputSlot name slots for error messages.
func (impl *Implementation) inputSlot(ii int) string {
	return slotName("input", ii, impl.Inputs[ii].name)
}

func (impl *Implementation) outputSlot(ii int) string {
	return slotName("output", ii, impl.Outputs[ii].name)
}
