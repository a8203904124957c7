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

package ncstore

import (
	"fmt"
	"strings"
)

// Structure is the header of a container without its data: the parts
// that must match for two containers to be interchangeable.
type Structure struct {
	Dimensions []Dimension
	Variables  []Variable
	Attributes []Attribute
}

// Dimension is a named axis. A Length of 0 marks the unlimited axis.
type Dimension struct {
	Name   string
	Length int
}

// Variable is a declared variable.
type Variable struct {
	Name       string
	Type       string
	Dimensions []string
	Attributes []Attribute
}

// Attribute is a name/value pair with the value rendered as text.
type Attribute struct {
	Name, Value string
}

// Structure returns the structure of the container.
func (r *Reader) Structure() Structure {
	h := r.nc.Header
	var s Structure
	lengths := h.Lengths("")
	for i, d := range h.Dimensions("") {
		s.Dimensions = append(s.Dimensions, Dimension{Name: d, Length: lengths[i]})
	}
	for _, v := range h.Variables() {
		s.Variables = append(s.Variables, Variable{
			Name:       v,
			Type:       typeName(h.ZeroValue(v, 1)),
			Dimensions: h.Dimensions(v),
			Attributes: r.attributes(v),
		})
	}
	s.Attributes = r.attributes("")
	return s
}

func (r *Reader) attributes(v string) []Attribute {
	var out []Attribute
	for _, a := range r.nc.Header.Attributes(v) {
		out = append(out, Attribute{Name: a, Value: fmt.Sprint(r.nc.Header.GetAttribute(v, a))})
	}
	return out
}

// String renders s in a CDL-like form.
func (s Structure) String() string {
	var b strings.Builder
	b.WriteString("dimensions:\n")
	for _, d := range s.Dimensions {
		if d.Length == 0 {
			fmt.Fprintf(&b, "\t%s = UNLIMITED ;\n", d.Name)
		} else {
			fmt.Fprintf(&b, "\t%s = %d ;\n", d.Name, d.Length)
		}
	}
	b.WriteString("variables:\n")
	for _, v := range s.Variables {
		fmt.Fprintf(&b, "\t%s %s(%s) ;\n", v.Type, v.Name, strings.Join(v.Dimensions, ", "))
		for _, a := range v.Attributes {
			fmt.Fprintf(&b, "\t\t%s:%s = %q ;\n", v.Name, a.Name, a.Value)
		}
	}
	if len(s.Attributes) > 0 {
		b.WriteString("global attributes:\n")
		for _, a := range s.Attributes {
			fmt.Fprintf(&b, "\t\t:%s = %q ;\n", a.Name, a.Value)
		}
	}
	return b.String()
}

// Keyed is a Structure with dimensions, variables and attributes indexed
// by name, so that two structures compare name by name rather than by
// position.
type Keyed struct {
	Dimensions map[string]int
	Variables  map[string]KeyedVariable
	Attributes map[string]string
}

// KeyedVariable is a Variable within a Keyed structure.
type KeyedVariable struct {
	Type       string
	Dimensions []string
	Attributes map[string]string
}

// Keyed returns s indexed by name.
func (s Structure) Keyed() Keyed {
	k := Keyed{
		Dimensions: make(map[string]int, len(s.Dimensions)),
		Variables:  make(map[string]KeyedVariable, len(s.Variables)),
		Attributes: attributeMap(s.Attributes),
	}
	for _, d := range s.Dimensions {
		k.Dimensions[d.Name] = d.Length
	}
	for _, v := range s.Variables {
		k.Variables[v.Name] = KeyedVariable{
			Type:       v.Type,
			Dimensions: v.Dimensions,
			Attributes: attributeMap(v.Attributes),
		}
	}
	return k
}

func attributeMap(attrs []Attribute) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name] = a.Value
	}
	return m
}

func typeName(zero interface{}) string {
	switch zero.(type) {
	case []uint8:
		return "byte"
	case string:
		return "char"
	case []int16:
		return "short"
	case []int32:
		return "int"
	case []float32:
		return "float"
	case []float64:
		return "double"
	}
	return "unknown"
}
