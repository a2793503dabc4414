// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import "strconv"

// DType is an enum representing the data type of an operand slot in a kernel descriptor.
//
// The numeric values follow the PJRT buffer type enum, so they can be handed to XLA based backends
// unchanged. Only the types a kernel registry can declare are listed.
type DType int32

const (
	// InvalidDType is the zero value. At a call site it is used as the wildcard "any dtype".
	InvalidDType DType = 0

	// Bool is a two-state boolean.
	Bool DType = 1

	// Int8 and the following are signed integral values of fixed width.
	Int8  DType = 2
	Int16 DType = 3
	Int32 DType = 4
	Int64 DType = 5

	// Uint8 and the following are unsigned integral values of fixed width.
	Uint8  DType = 6
	Uint16 DType = 7
	Uint32 DType = 8
	Uint64 DType = 9

	// Float16 and the following are floating-point values of fixed width.
	Float16 DType = 10
	Float32 DType = 11
	Float64 DType = 12

	// BFloat16 uses 1 bit for the sign, 8 bits for the exponent and 7 bits for the mantissa.
	BFloat16 DType = 13

	// Complex64 is a pair of Float32 (real, imag).
	Complex64 DType = 14

	// Complex128 is a pair of Float64 (real, imag).
	Complex128 DType = 15

	// lastDType is one past the last valid value.
	lastDType DType = 16
)

// Aliases from the PJRT C API.
const (
	PRED = Bool
	S8   = Int8
	S16  = Int16
	S32  = Int32
	S64  = Int64
	U8   = Uint8
	U16  = Uint16
	U32  = Uint32
	U64  = Uint64
	F16  = Float16
	F32  = Float32
	F64  = Float64
	BF16 = BFloat16
	C64  = Complex64
	C128 = Complex128
)

var dtypeNames = [lastDType]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Uint16:       "Uint16",
	Uint32:       "Uint32",
	Uint64:       "Uint64",
	Float16:      "Float16",
	Float32:      "Float32",
	Float64:      "Float64",
	BFloat16:     "BFloat16",
	Complex64:    "Complex64",
	Complex128:   "Complex128",
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if dtype < 0 || dtype >= lastDType {
		return "DType(" + strconv.Itoa(int(dtype)) + ")"
	}
	return dtypeNames[dtype]
}

// MapOfNames to their dtypes. It includes the PJRT aliases and the spellings used by kernel
// registration payloads ("float", "double", ...).
// It is later initialized to include the lower-case version of the names.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"INVALID":      InvalidDType,
	"Bool":         Bool,
	"PRED":         Bool,
	"Int8":         Int8,
	"S8":           Int8,
	"Int16":        Int16,
	"S16":          Int16,
	"Int32":        Int32,
	"S32":          Int32,
	"Int64":        Int64,
	"S64":          Int64,
	"Uint8":        Uint8,
	"U8":           Uint8,
	"Uint16":       Uint16,
	"U16":          Uint16,
	"Uint32":       Uint32,
	"U32":          Uint32,
	"Uint64":       Uint64,
	"U64":          Uint64,
	"Float16":      Float16,
	"F16":          Float16,
	"Half":         Float16,
	"Float32":      Float32,
	"F32":          Float32,
	"Float":        Float32,
	"Float64":      Float64,
	"F64":          Float64,
	"Double":       Float64,
	"BFloat16":     BFloat16,
	"BF16":         BFloat16,
	"Complex64":    Complex64,
	"C64":          Complex64,
	"Complex128":   Complex128,
	"C128":         Complex128,
}

// registryNames are the canonical spellings written in kernel registration payloads.
var registryNames = [lastDType]string{
	Bool:       "bool",
	Int8:       "int8",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	Uint8:      "uint8",
	Uint16:     "uint16",
	Uint32:     "uint32",
	Uint64:     "uint64",
	Float16:    "float16",
	Float32:    "float32",
	Float64:    "float64",
	BFloat16:   "bfloat16",
	Complex64:  "complex64",
	Complex128: "complex128",
}
