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

package record

import (
	"fmt"

	"github.com/spatialmodel/csvnc/schema"
)

// Value is a decoded column value. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Value struct {
	Kind schema.LogicalType

	i  int64
	f  float64
	b  bool
	s  string
	is []int32
}

// IntValue returns an integer Value.
func IntValue(v int64) Value { return Value{Kind: schema.Int, i: v} }

// FloatValue returns a floating point Value.
func FloatValue(v float64) Value { return Value{Kind: schema.Float, f: v} }

// BoolValue returns a boolean Value.
func BoolValue(v bool) Value { return Value{Kind: schema.Bool, b: v} }

// StringValue returns a string Value.
func StringValue(v string) Value { return Value{Kind: schema.String, s: v} }

// SamplesValue returns an integer sequence Value.
func SamplesValue(v []int32) Value { return Value{Kind: schema.IntSequence, is: v} }

// Int returns the integer payload. It panics if v is not an integer.
func (v Value) Int() int64 {
	v.must(schema.Int)
	return v.i
}

// Float returns the floating point payload. It panics if v is not a float.
func (v Value) Float() float64 {
	v.must(schema.Float)
	return v.f
}

// Bool returns the boolean payload. It panics if v is not a boolean.
func (v Value) Bool() bool {
	v.must(schema.Bool)
	return v.b
}

// Str returns the string payload. It panics if v is not a string.
func (v Value) Str() string {
	v.must(schema.String)
	return v.s
}

// Samples returns the integer sequence payload. It panics if v is not a
// sequence.
func (v Value) Samples() []int32 {
	v.must(schema.IntSequence)
	return v.is
}

func (v Value) must(k schema.LogicalType) {
	if v.Kind != k {
		panic(fmt.Sprintf("record: value is %v, not %v", v.Kind, k))
	}
}

func (v Value) String() string {
	switch v.Kind {
	case schema.Int:
		return fmt.Sprint(v.i)
	case schema.Float:
		return fmt.Sprint(v.f)
	case schema.Bool:
		return fmt.Sprint(v.b)
	case schema.String:
		return v.s
	case schema.IntSequence:
		return fmt.Sprint(v.is)
	}
	return "<invalid>"
}
