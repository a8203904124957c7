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

// Package record decodes single capture log lines into typed records
// according to a schema, verifying each line's checksum.
package record

import (
	"github.com/spatialmodel/csvnc/schema"
)

// CountColumn is the optional column declaring a record's sample count.
const CountColumn = "count_samples"

// Record is one decoded line. Values is parallel to Schema.Columns.
type Record struct {
	Schema   *schema.Schema
	Values   []Value
	Checksum int64
}

// Get returns the value of the named column.
func (r *Record) Get(name string) (Value, bool) {
	i := r.Schema.Index(name)
	if i < 0 {
		return Value{}, false
	}
	return r.Values[i], true
}

// Samples returns the sample vector, or nil if the schema has none.
func (r *Record) Samples() []int32 {
	i := r.Schema.VectorIndex()
	if i < 0 {
		return nil
	}
	return r.Values[i].Samples()
}

// SampleCount is the number of samples the record carries.
func (r *Record) SampleCount() int { return len(r.Samples()) }

// Sum adds up samples. The sum is accumulated in 64 bits, so it cannot
// overflow for any sequence shorter than 2^32 samples and no wraparound
// or saturation ever happens.
func Sum(samples []int32) int64 {
	var s int64
	for _, v := range samples {
		s += int64(v)
	}
	return s
}
