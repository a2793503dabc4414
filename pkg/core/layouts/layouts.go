// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package layouts defines the Layout enum: the physical arrangement in memory of an operand.
//
// Besides the row-major Default, accelerators use blocked/tiled layouts (NC1HWC0, FracZ, FracNZ, ...)
// and a kernel usually supports only a few of them for each data type.
package layouts

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Layout of an operand in memory.
type Layout int

const (
	// Any is the zero value, used at call sites as the wildcard "any layout".
	// Registered kernels never declare it.
	Any Layout = iota

	// Default is the framework's default row-major layout ("DefaultFormat").
	Default

	// ND is an explicitly N-dimensional row-major layout.
	ND

	NCHW
	NHWC
	HWCN
	NDHWC

	// NC1HWC0 splits the channel dimension in blocks of C0 elements, stored innermost.
	NC1HWC0

	// NC1HWC0C04 is NC1HWC0 with C0=4.
	NC1HWC0C04

	// FracZ is the fractal layout used for convolution weights ("FracZ" or "FRACTAL_Z").
	FracZ

	// FracZC04 is FracZ with C0=4.
	FracZC04

	// FracNZ is the fractal layout used for matrix multiplication ("FRACTAL_NZ").
	FracNZ

	C1HWNCoC0
	NC1KHKWHWC0

	lastLayout
)

var layoutNames = [lastLayout]string{
	Any:         "Any",
	Default:     "DefaultFormat",
	ND:          "ND",
	NCHW:        "NCHW",
	NHWC:        "NHWC",
	HWCN:        "HWCN",
	NDHWC:       "NDHWC",
	NC1HWC0:     "NC1HWC0",
	NC1HWC0C04:  "NC1HWC0_C04",
	FracZ:       "FracZ",
	FracZC04:    "FRACTAL_Z_C04",
	FracNZ:      "FRACTAL_NZ",
	C1HWNCoC0:   "C1HWNCoC0",
	NC1KHKWHWC0: "NC1KHKWHWC0",
}

// aliases maps alternative spellings (always in lower-case) to a Layout.
var aliases = map[string]Layout{
	"default":   Default,
	"fractal_z": FracZ,
	"frac_z":    FracZ,
	"fracnz":    FracNZ,
	"frac_nz":   FracNZ,
	"fraczc04":  FracZC04,
}

// mapOfNames indexes canonical names and aliases, all lower-cased.
var mapOfNames = make(map[string]Layout, 2*int(lastLayout))

func init() {
	for layout := Default; layout < lastLayout; layout++ {
		mapOfNames[strings.ToLower(layoutNames[layout])] = layout
	}
	for alias, layout := range aliases {
		mapOfNames[alias] = layout
	}
}

// String returns the name used in registration payloads, e.g. "DefaultFormat" or "FRACTAL_NZ".
// The wildcard Any is rendered as "*".
func (l Layout) String() string {
	if l == Any {
		return "*"
	}
	if l < 0 || l >= lastLayout {
		return "Layout(" + strconv.Itoa(int(l)) + ")"
	}
	return layoutNames[l]
}

// IsValid returns whether l is a concrete enumerated layout (Any excluded).
func (l Layout) IsValid() bool {
	return l > Any && l < lastLayout
}

// FromName parses a layout name. Matching is case-insensitive and accepts the usual aliases
// (e.g. "FRACTAL_Z" for FracZ). The wildcard Any can't be parsed: it is never declared by kernels.
func FromName(name string) (Layout, error) {
	layout, found := mapOfNames[strings.ToLower(name)]
	if !found {
		return Any, errors.Errorf("unknown memory layout %q", name)
	}
	return layout, nil
}

// All returns all concrete layouts, in enum order.
func All() []Layout {
	all := make([]Layout, 0, lastLayout-1)
	for l := Default; l < lastLayout; l++ {
		all = append(all, l)
	}
	return all
}

// IsBlocked returns whether the layout splits some axis in blocks, as opposed to a plain
// permutation of the axes.
func (l Layout) IsBlocked() bool {
	switch l {
	case NC1HWC0, NC1HWC0C04, FracZ, FracZC04, FracNZ, C1HWNCoC0, NC1KHKWHWC0:
		return true
	default:
		return false
	}
}
