// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package payload parses kernel registration payloads: the static JSON records describing a kernel
// implementation, and loads them into an opinfo.Table.
//
// Example payload (abbreviated):
//
//	{
//	  "op_name": "ZerosLike", "imply_type": "TBE", "fusion_type": "ELEMWISE",
//	  "async_flag": false, "binfile_name": "zeros_like.so", "compute_cost": 10,
//	  "kernel_name": "zeros_like", "partial_flag": true, "attr": [],
//	  "inputs": [{"index": 0, "dtype": ["float16", "float"], "format": ["DefaultFormat", "NC1HWC0"],
//	              "name": "x", "need_compile": false, "param_type": "required", "shape": "all"}],
//	  "outputs": [{"index": 0, "dtype": ["float16", "float"], "format": ["DefaultFormat", "NC1HWC0"],
//	               "name": "y", "param_type": "required", "shape": "all"}]
//	}
//
// Parsing is strict: every required field must be present with the right JSON type, otherwise it fails
// with an *opinfo.MalformedDescriptorError naming the field. Unknown fields are ignored.
// Outputs may omit "need_compile", which then defaults to false.
package payload

import (
	"encoding/json"
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opinfo/pkg/opinfo"
)

// Required fields of the top-level record, of each input and output, and of each attribute.
var (
	RequiredFields = []string{
		"op_name", "imply_type", "fusion_type", "async_flag", "binfile_name", "compute_cost",
		"kernel_name", "partial_flag", "attr", "inputs", "outputs",
	}
	RequiredOperandFields   = []string{"index", "dtype", "format", "name", "need_compile", "param_type", "shape"}
	RequiredAttributeFields = []string{"name", "param_type", "type", "value"}
)

// optionalOutputFields are the RequiredOperandFields outputs can omit.
var optionalOutputFields = map[string]bool{"need_compile": true}

type record map[string]json.RawMessage

// Parse a registration payload into an opinfo.Implementation. The result is not validated for
// consistency across slots: that is done by opinfo.Table.Register.
func Parse(data []byte) (*opinfo.Implementation, error) {
	var top record
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &opinfo.MalformedDescriptorError{Reason: fmt.Sprintf("invalid JSON object: %v", err)}
	}
	p := parser{}
	// op_name first, so the following errors can name the operator.
	if raw, found := top["op_name"]; found {
		_ = json.Unmarshal(raw, &p.opName)
	}
	if err := p.requireFields(top, "", RequiredFields, nil); err != nil {
		return nil, err
	}

	impl := &opinfo.Implementation{}
	var implyName, fusionName string
	var attrs, inputs, outputs []record
	for _, err := range []error{
		decode(&p, top, "", "op_name", &impl.OpName),
		decode(&p, top, "", "imply_type", &implyName),
		decode(&p, top, "", "fusion_type", &fusionName),
		decode(&p, top, "", "async_flag", &impl.Async),
		decode(&p, top, "", "binfile_name", &impl.BinaryFile),
		decode(&p, top, "", "compute_cost", &impl.Cost),
		decode(&p, top, "", "kernel_name", &impl.KernelName),
		decode(&p, top, "", "partial_flag", &impl.Partial),
		decode(&p, top, "", "attr", &attrs),
		decode(&p, top, "", "inputs", &inputs),
		decode(&p, top, "", "outputs", &outputs),
	} {
		if err != nil {
			return nil, err
		}
	}
	if _, found := top["all_same"]; found {
		if err := decode(&p, top, "", "all_same", &impl.AllSameInputs); err != nil {
			return nil, err
		}
	}

	var err error
	if impl.Imply, err = opinfo.ImplyTypeString(implyName); err != nil {
		return nil, p.malformed("imply_type", err.Error())
	}
	if impl.Fusion, err = opinfo.FusionTypeString(fusionName); err != nil {
		return nil, p.malformed("fusion_type", err.Error())
	}

	impl.Attributes = make([]opinfo.Attribute, 0, len(attrs))
	for ii, rec := range attrs {
		where := fmt.Sprintf("attr[%d]", ii)
		if err := p.requireFields(rec, where, RequiredAttributeFields, nil); err != nil {
			return nil, err
		}
		var raw opinfo.RawAttribute
		for _, err := range []error{
			decode(&p, rec, where, "name", &raw.Name),
			decode(&p, rec, where, "param_type", &raw.ParamType),
			decode(&p, rec, where, "type", &raw.Type),
			decode(&p, rec, where, "value", &raw.Value),
		} {
			if err != nil {
				return nil, err
			}
		}
		attr, err := opinfo.NewAttribute(raw)
		if err != nil {
			return nil, p.reattribute(err, where)
		}
		impl.Attributes = append(impl.Attributes, attr)
	}

	if impl.Inputs, err = p.operands(inputs, "inputs", nil); err != nil {
		return nil, err
	}
	if impl.Outputs, err = p.operands(outputs, "outputs", optionalOutputFields); err != nil {
		return nil, err
	}
	return impl, nil
}

// MustParse is like Parse, but panics on error. For built-in payloads known at compile time.
func MustParse(data []byte) *opinfo.Implementation {
	impl, err := Parse(data)
	if err != nil {
		exceptions.Panicf("failed to parse kernel registration payload: %+v", err)
	}
	return impl
}

type parser struct {
	opName string
}

func (p *parser) malformed(where, reason string) error {
	return &opinfo.MalformedDescriptorError{OpName: p.opName, Slot: where, Reason: reason}
}

// reattribute fills in the operator name and location of a *MalformedDescriptorError from opinfo.
func (p *parser) reattribute(err error, where string) error {
	if malformed, ok := err.(*opinfo.MalformedDescriptorError); ok {
		malformed.OpName = p.opName
		malformed.Slot = where
		return malformed
	}
	return err
}

func (p *parser) requireFields(rec record, where string, fields []string, optional map[string]bool) error {
	for _, field := range fields {
		if optional[field] {
			continue
		}
		if _, found := rec[field]; !found {
			return p.malformed(joinPath(where, field), "missing required field")
		}
	}
	return nil
}

func (p *parser) operands(records []record, kind string, optional map[string]bool) ([]*opinfo.OperandDescriptor, error) {
	descriptors := make([]*opinfo.OperandDescriptor, 0, len(records))
	for ii, rec := range records {
		where := fmt.Sprintf("%s[%d]", kind, ii)
		if err := p.requireFields(rec, where, RequiredOperandFields, optional); err != nil {
			return nil, err
		}
		var raw opinfo.RawOperand
		for _, err := range []error{
			decode(p, rec, where, "index", &raw.Index),
			decode(p, rec, where, "dtype", &raw.DTypes),
			decode(p, rec, where, "format", &raw.Layouts),
			decode(p, rec, where, "name", &raw.Name),
			decode(p, rec, where, "param_type", &raw.ParamType),
			decode(p, rec, where, "shape", &raw.Shape),
		} {
			if err != nil {
				return nil, err
			}
		}
		if _, found := rec["need_compile"]; found {
			if err := decode(p, rec, where, "need_compile", &raw.NeedCompile); err != nil {
				return nil, err
			}
		}
		d, err := opinfo.NewOperandDescriptor(raw)
		if err != nil {
			return nil, p.reattribute(err, where)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// decode the JSON value of rec[field] into value, reporting type errors as malformed descriptors.
func decode[T any](p *parser, rec record, where, field string, value *T) error {
	raw, found := rec[field]
	if !found {
		return p.malformed(joinPath(where, field), "missing required field")
	}
	if string(raw) == "null" {
		return p.malformed(joinPath(where, field), "null value")
	}
	if err := json.Unmarshal(raw, value); err != nil {
		return p.malformed(joinPath(where, field), fmt.Sprintf("expected %T: %v", *value, err))
	}
	return nil
}

func joinPath(where, field string) string {
	if where == "" {
		return field
	}
	return where + "." + field
}
