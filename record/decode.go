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
	"math"
	"strconv"
	"strings"

	"github.com/spatialmodel/csvnc/schema"
)

type flagStep struct {
	char byte
	col  int
}

// step decodes one leading token.
type step struct {
	name    string
	kind    schema.TokenKind
	col     int
	logical schema.LogicalType
	bits    int
	flags   []flagStep
}

// Decoder turns lines into Records for one schema. The schema is compiled
// into column indices once, so decoding does no name lookups.
type Decoder struct {
	s          *schema.Schema
	steps      []step
	vector     int
	count      int
	sampleMin  int64
	sampleMax  int64
	maxSamples int
}

// NewDecoder compiles s. If sampleWidth is positive, records with more
// samples than sampleWidth are rejected.
func NewDecoder(s *schema.Schema, sampleWidth int) *Decoder {
	d := &Decoder{
		s:          s,
		vector:     s.VectorIndex(),
		count:      s.Index(CountColumn),
		maxSamples: sampleWidth,
		sampleMin:  math.MinInt32,
		sampleMax:  math.MaxInt32,
	}
	if d.vector >= 0 {
		bits := s.Columns[d.vector].Storage.IntBits()
		d.sampleMin = -1 << (bits - 1)
		d.sampleMax = 1<<(bits-1) - 1
	}
	for _, t := range s.Tokens {
		switch t.Kind {
		case schema.ColumnToken:
			i := s.Index(t.Column)
			c := s.Columns[i]
			d.steps = append(d.steps, step{
				name:    c.Name,
				kind:    t.Kind,
				col:     i,
				logical: c.Logical,
				bits:    c.Storage.IntBits(),
			})
		case schema.FlagsToken:
			st := step{name: "flags", kind: t.Kind}
			for _, f := range t.Flags {
				st.flags = append(st.flags, flagStep{char: f.Char, col: s.Index(f.Column)})
			}
			d.steps = append(d.steps, st)
		}
	}
	return d
}

// Decode parses one data line. Every failure is a *DecodeError.
func (d *Decoder) Decode(line string) (*Record, error) {
	tokens := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	r := &Record{Schema: d.s, Values: make([]Value, len(d.s.Columns))}

	pos := 0
	for _, st := range d.steps {
		if pos >= len(tokens) {
			return nil, &DecodeError{Reason: ErrUnderflow, Column: st.name,
				Detail: fmt.Sprintf("line has %d tokens", len(tokens))}
		}
		tok := tokens[pos]
		pos++

		if st.kind == schema.FlagsToken {
			for _, f := range st.flags {
				r.Values[f.col] = BoolValue(strings.IndexByte(tok, f.char) >= 0)
			}
			continue
		}
		v, err := coerce(strings.TrimSpace(tok), st.logical, st.bits)
		if err != nil {
			return nil, &DecodeError{Reason: ErrCoercion, Column: st.name, Token: tok, Err: err}
		}
		r.Values[st.col] = v
	}

	rest := tokens[pos:]
	if len(rest) == 0 {
		return nil, &DecodeError{Reason: ErrUnderflow, Column: "checksum",
			Detail: fmt.Sprintf("line has %d tokens", len(tokens))}
	}
	if d.vector < 0 && len(rest) > 1 {
		return nil, &DecodeError{Reason: ErrSampleCount,
			Detail: fmt.Sprintf("%d trailing tokens but schema v%d has no sample column", len(rest)-1, d.s.Version)}
	}

	samples := make([]int32, len(rest)-1)
	for i, tok := range rest[:len(rest)-1] {
		n, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			return nil, &DecodeError{Reason: ErrCoercion, Column: fmt.Sprintf("%s[%d]", schema.VectorName, i), Token: tok, Err: err}
		}
		if n < d.sampleMin || n > d.sampleMax {
			return nil, &DecodeError{Reason: ErrSampleRange, Column: fmt.Sprintf("%s[%d]", schema.VectorName, i), Token: tok}
		}
		samples[i] = int32(n)
	}

	last := rest[len(rest)-1]
	checksum, err := strconv.ParseInt(strings.TrimSpace(last), 10, 64)
	if err != nil {
		return nil, &DecodeError{Reason: ErrCoercion, Column: "checksum", Token: last, Err: err}
	}
	if sum := Sum(samples); sum != checksum {
		return nil, &DecodeError{Reason: ErrChecksum,
			Detail: fmt.Sprintf("samples sum to %d, checksum is %d", sum, checksum)}
	}
	r.Checksum = checksum

	if d.count >= 0 {
		if declared := r.Values[d.count].Int(); declared != int64(len(samples)) {
			return nil, &DecodeError{Reason: ErrSampleCount,
				Detail: fmt.Sprintf("%s is %d but line has %d samples", CountColumn, declared, len(samples))}
		}
	}
	if d.maxSamples > 0 && len(samples) > d.maxSamples {
		return nil, &DecodeError{Reason: ErrSampleCount,
			Detail: fmt.Sprintf("%d samples exceed the sample width %d", len(samples), d.maxSamples)}
	}
	if d.vector >= 0 {
		r.Values[d.vector] = SamplesValue(samples)
	}
	return r, nil
}

// coerce converts a trimmed token to the logical type of its column.
// Integers must fit the column's storage width.
func coerce(tok string, t schema.LogicalType, bits int) (Value, error) {
	switch t {
	case schema.Int:
		if bits == 0 {
			bits = 64
		}
		n, err := strconv.ParseInt(tok, 10, bits)
		if err != nil {
			return Value{}, err
		}
		return IntValue(n), nil
	case schema.Float:
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	case schema.Bool:
		b, err := strconv.ParseBool(tok)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case schema.String:
		return StringValue(tok), nil
	}
	return Value{}, fmt.Errorf("unsupported logical type %v", t)
}
