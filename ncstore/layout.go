/*
Copyright © 2026 the csvnc authors.
This file is part of csvnc.

csvnc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

csvnc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with csvnc.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package ncstore is the narrow NetCDF capability the converter needs:
// declare variables, write one cell or one vector slice at a time index,
// and seal the file. It is backed by the pure Go NetCDF classic
// implementation in github.com/ctessum/cdf.
package ncstore

import (
	"fmt"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/csvnc/schema"
)

// Dimension names.
const (
	TimeDim   = "time"
	SampleDim = "sample"
)

// DefaultSampleWidth is the default length of the sample dimension.
const DefaultSampleWidth = 7200

type varDef struct {
	name    string
	dims    []string
	storage schema.StorageType
}

type attrDef struct {
	variable, name string
	value          interface{}
}

// Layout describes the dimensions, variables and attributes of a container
// before it is created. The time dimension is unlimited.
type Layout struct {
	sampleWidth int
	vars        []varDef
	attrs       []attrDef
}

// NewLayout returns an empty layout with a sample dimension of width
// sampleWidth.
func NewLayout(sampleWidth int) *Layout {
	return &Layout{sampleWidth: sampleWidth}
}

// SampleWidth returns the length of the sample dimension.
func (l *Layout) SampleWidth() int { return l.sampleWidth }

// AddVariable declares a variable over dims, which must start with
// TimeDim.
func (l *Layout) AddVariable(name string, dims []string, t schema.StorageType) error {
	if l.HasVariable(name) {
		return fmt.Errorf("ncstore: variable %q declared twice", name)
	}
	if len(dims) == 0 || dims[0] != TimeDim {
		return fmt.Errorf("ncstore: variable %q must be indexed by %s first", name, TimeDim)
	}
	for _, d := range dims[1:] {
		if d != SampleDim {
			return fmt.Errorf("ncstore: variable %q uses unknown dimension %q", name, d)
		}
	}
	if _, err := template(t); err != nil {
		return fmt.Errorf("ncstore: variable %q: %v", name, err)
	}
	l.vars = append(l.vars, varDef{name: name, dims: dims, storage: t})
	return nil
}

// HasVariable reports whether name has been declared.
func (l *Layout) HasVariable(name string) bool {
	for _, v := range l.vars {
		if v.name == name {
			return true
		}
	}
	return false
}

// AddAttribute attaches an attribute to variable, or a global attribute
// when variable is "". Values may be string, int, int32, float64 or a
// slice of int32 or float64.
func (l *Layout) AddAttribute(variable, name string, value interface{}) error {
	if variable != "" && !l.HasVariable(variable) {
		return fmt.Errorf("ncstore: attribute %q on unknown variable %q", name, variable)
	}
	if l.HasAttribute(variable, name) {
		return fmt.Errorf("ncstore: attribute %s:%s set twice", variable, name)
	}
	v, err := attrValue(value)
	if err != nil {
		return fmt.Errorf("ncstore: attribute %s:%s: %v", variable, name, err)
	}
	l.attrs = append(l.attrs, attrDef{variable: variable, name: name, value: v})
	return nil
}

// HasAttribute reports whether the attribute has been set.
func (l *Layout) HasAttribute(variable, name string) bool {
	for _, a := range l.attrs {
		if a.variable == variable && a.name == name {
			return true
		}
	}
	return false
}

// header builds the immutable cdf header. cdf reports misuse by
// panicking; those panics are returned as errors.
func (l *Layout) header() (h *cdf.Header, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("ncstore: defining header: %v", r)
		}
	}()
	if len(l.vars) == 0 {
		return nil, fmt.Errorf("ncstore: layout has no variables")
	}
	if l.sampleWidth <= 0 {
		return nil, fmt.Errorf("ncstore: invalid sample width %d", l.sampleWidth)
	}

	h = cdf.NewHeader([]string{TimeDim, SampleDim}, []int{0, l.sampleWidth})
	for _, v := range l.vars {
		tmpl, _ := template(v.storage)
		h.AddVariable(v.name, v.dims, tmpl)
	}
	for _, a := range l.attrs {
		h.AddAttribute(a.variable, a.name, a.value)
	}
	h.Define()

	for _, err := range h.Check() {
		return nil, fmt.Errorf("ncstore: checking header: %v", err)
	}
	return h, nil
}

// template returns the value cdf uses to infer a variable's type.
func template(t schema.StorageType) (interface{}, error) {
	switch t {
	case schema.Byte:
		return []uint8{0}, nil
	case schema.Short:
		return []int16{0}, nil
	case schema.Integer:
		return []int32{0}, nil
	case schema.Real:
		return []float32{0}, nil
	case schema.Double:
		return []float64{0}, nil
	}
	return nil, fmt.Errorf("unsupported storage type %v", t)
}

func attrValue(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return []int32{int32(x)}, nil
	case int32:
		return []int32{x}, nil
	case float64:
		return []float64{x}, nil
	case []int32:
		return x, nil
	case []float64:
		return x, nil
	}
	return nil, fmt.Errorf("unsupported attribute type %T", v)
}
