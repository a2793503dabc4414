// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package report renders the contents of a registration table, and the results of kernel selection,
// as terminal tables.
package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/opinfo/pkg/core/dtypes"
	"github.com/gomlx/opinfo/pkg/core/layouts"
	"github.com/gomlx/opinfo/pkg/opinfo"
	"github.com/gomlx/opinfo/pkg/support/sets"
	"github.com/gomlx/opinfo/pkg/support/xslices"
	"github.com/muesli/termenv"
)

// Reporter writes tables to a writer, with colors if the writer supports them.
type Reporter struct {
	w        io.Writer
	renderer *lipgloss.Renderer

	headerRowStyle, oddRowStyle, evenRowStyle, redRowStyle, titleStyle lipgloss.Style
}

// New creates a Reporter writing to w. If noColor is set, no ANSI codes are emitted,
// otherwise the color profile is detected from w.
func New(w io.Writer, noColor bool) *Reporter {
	renderer := lipgloss.NewRenderer(w)
	if noColor {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return &Reporter{
		w:        w,
		renderer: renderer,
		headerRowStyle: renderer.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center),
		oddRowStyle: renderer.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1),
		evenRowStyle: renderer.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1),
		redRowStyle: renderer.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Bold(true).
			PaddingLeft(1).PaddingRight(1),
		titleStyle: renderer.NewStyle().Bold(true).Padding(1, 4, 1, 4),
	}
}

// tableWithReds is a table where some rows are highlighted in red.
type tableWithReds struct {
	table *lgtable.Table
	count int
	reds  sets.Set[int]
}

func (t *tableWithReds) Row(isRed bool, row ...string) {
	if isRed {
		t.reds.Insert(t.count)
	}
	t.table.Row(row...)
	t.count++
}

// newTable with the given headers. The alignment of the last given column is used for the
// remaining ones.
func (r *Reporter) newTable(headers []string, alignments ...lipgloss.Position) *tableWithReds {
	t := &tableWithReds{reds: sets.Make[int]()}
	t.table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.renderer.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				return r.headerRowStyle
			}
			switch {
			case t.reds.Has(row):
				s = r.redRowStyle
			case row%2 == 0:
				s = r.oddRowStyle
			default:
				s = r.evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
	if len(headers) > 0 {
		t.table.Headers(headers...)
	}
	return t
}

func (r *Reporter) title(title string) {
	_, _ = fmt.Fprintln(r.w, r.titleStyle.Render(title))
}

func (r *Reporter) print(t *tableWithReds) {
	_, _ = fmt.Fprintln(r.w, t.table.Render())
}

// Summary prints the number of operators and kernels of table whose implementations are accepted by
// keep (all if keep is nil).
func (r *Reporter) Summary(table *opinfo.Table, keep func(*opinfo.Implementation) bool) {
	var numOps, numImpls, numVariants int
	for _, opName := range table.Operators() {
		var found bool
		for _, impl := range table.Lookup(opName) {
			if keep != nil && !keep(impl) {
				continue
			}
			found = true
			numImpls++
			numVariants += impl.NumVariants()
		}
		if found {
			numOps++
		}
	}
	capabilities := table.Capabilities(keep)
	r.title("Summary")
	t := r.newTable(nil, lipgloss.Right, lipgloss.Left)
	t.Row(false, "# operators", humanize.Comma(int64(numOps)))
	t.Row(false, "# kernels", humanize.Comma(int64(numImpls)))
	t.Row(false, "# variants", humanize.Comma(int64(numVariants)))
	t.Row(false, "frozen", strconv.FormatBool(table.IsFrozen()))
	r.print(t)

	t = r.newTable([]string{"DType", "Class", "Bits"}, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	for _, dtype := range dtypes.All() {
		if capabilities.DTypes.Has(dtype) {
			t.Row(false, dtype.RegistryName(), dtypeClass(dtype), strconv.Itoa(dtype.Bits()))
		}
	}
	r.print(t)

	// Blocked formats first.
	t = r.newTable([]string{"Format", "Blocked"})
	for _, blocked := range []bool{true, false} {
		for _, layout := range layouts.All() {
			if capabilities.Layouts.Has(layout) && layout.IsBlocked() == blocked {
				t.Row(false, layout.String(), strconv.FormatBool(blocked))
			}
		}
	}
	r.print(t)
}

func dtypeClass(dtype dtypes.DType) string {
	switch {
	case dtype.IsFloat():
		return "float"
	case dtype.IsComplex():
		return "complex"
	case dtype.IsUnsigned():
		return "unsigned"
	case dtype.IsInt():
		return "int"
	default:
		return "bool"
	}
}

// Operators lists the operators of table, in registration order, with their kernels.
// Only implementations accepted by keep are listed (all if keep is nil).
func (r *Reporter) Operators(table *opinfo.Table, keep func(*opinfo.Implementation) bool) {
	r.title("Operators")
	t := r.newTable([]string{"Operator", "Kernels", "Kinds", "Variants"}, lipgloss.Left, lipgloss.Right, lipgloss.Left, lipgloss.Right)
	for _, opName := range table.Operators() {
		var kinds []string
		var numImpls, numVariants int
		for _, impl := range table.Lookup(opName) {
			if keep != nil && !keep(impl) {
				continue
			}
			numImpls++
			numVariants += impl.NumVariants()
			if kind := impl.Imply.String(); !slices.Contains(kinds, kind) {
				kinds = append(kinds, kind)
			}
		}
		if numImpls == 0 {
			continue
		}
		t.Row(false, opName, humanize.Comma(int64(numImpls)), strings.Join(kinds, ", "), humanize.Comma(int64(numVariants)))
	}
	r.print(t)
}

// Implementation prints the attributes of impl and a table of its variants, one row per variant.
func (r *Reporter) Implementation(impl *opinfo.Implementation) {
	r.title(impl.String())
	props := r.newTable(nil, lipgloss.Right, lipgloss.Left)
	props.Row(false, "kernel", impl.KernelName)
	props.Row(false, "binary", impl.BinaryFile)
	props.Row(false, "fusion", impl.Fusion.String())
	props.Row(false, "async", strconv.FormatBool(impl.Async))
	props.Row(false, "partial", strconv.FormatBool(impl.Partial))
	props.Row(false, "cost", strconv.Itoa(impl.Cost))
	if impl.AllSameInputs {
		props.Row(false, "inputs", "any number, all the same")
	}
	for _, attr := range impl.Attributes {
		props.Row(false, "attr "+attr.Name, fmt.Sprintf("%s, %s, %s", attr.Type, attr.ParamType, attr.Value))
	}
	r.print(props)
	r.variants(impl, -1)
}

// variants prints the variant table of impl, with the given variant highlighted (none if < 0).
func (r *Reporter) variants(impl *opinfo.Implementation, highlight int) {
	headers := []string{"#"}
	for _, d := range impl.Inputs {
		headers = append(headers, slotHeader(d))
	}
	for _, d := range impl.Outputs {
		headers = append(headers, "→ "+slotHeader(d))
	}
	t := r.newTable(headers, lipgloss.Right, lipgloss.Left)
	for k := range impl.NumVariants() {
		inputs, outputs := impl.Variant(k)
		row := append([]string{strconv.Itoa(k)}, xslices.Map(slices.Concat(inputs, outputs), opinfo.Operand.String)...)
		t.Row(k == highlight, row...)
	}
	r.print(t)
}

func slotHeader(d *opinfo.OperandDescriptor) string {
	header := d.Name()
	if header == "" {
		header = strconv.Itoa(d.Index())
	}
	if d.ParamType() != opinfo.ParamRequired {
		header += " (" + d.ParamType().String() + ")"
	}
	return header
}

// Selection prints the result of a selection for call, highlighting the chosen variant.
func (r *Reporter) Selection(call opinfo.CallSite, selection opinfo.Selection) {
	r.title("Selected for " + call.String())
	t := r.newTable(nil, lipgloss.Right, lipgloss.Left)
	impl := selection.Implementation
	t.Row(false, "kernel", fmt.Sprintf("%s %q", impl.Imply, impl.KernelName))
	t.Row(false, "variant", strconv.Itoa(selection.VariantIndex))
	t.Row(false, "inputs", joinOperands(selection.Inputs))
	t.Row(false, "outputs", joinOperands(selection.Outputs))
	r.print(t)
	r.variants(impl, selection.VariantIndex)
}

func joinOperands(operands []opinfo.Operand) string {
	return strings.Join(xslices.Map(operands, opinfo.Operand.String), ", ")
}

// Mismatches prints every attempt of a failed selection, one per row.
func (r *Reporter) Mismatches(err *opinfo.NoCompatibleKernelError) {
	r.title("No compatible kernel for " + err.Call.String())
	t := r.newTable([]string{"Kernel", "Variant", "Slot", "Expected", "Got"}, lipgloss.Left, lipgloss.Right, lipgloss.Left)
	for _, m := range err.Attempts {
		kernel := fmt.Sprintf("%s %q", m.Implementation.Imply, m.Implementation.KernelName)
		if m.Variant < 0 {
			t.Row(true, kernel, "-", m.Reason, "", "")
			continue
		}
		t.Row(false, kernel, strconv.Itoa(m.Variant), m.Slot, m.Expected.String(), m.Actual.String())
	}
	r.print(t)
}
