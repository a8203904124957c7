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

package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	for _, v := range []int{1, 2, 3} {
		s, err := Resolve(v)
		require.NoError(t, err)
		assert.Equal(t, v, s.Version)
		assert.NoError(t, s.Validate())
		assert.Equal(t, len(s.Columns)-1, s.VectorIndex(), "vector column must be last")
	}

	_, err := Resolve(4)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
	_, err = Resolve(0)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestVersions(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, Versions())
	assert.Equal(t, 3, Latest())
}

func TestColumnOrder(t *testing.T) {
	names := func(s *Schema) []string {
		var o []string
		for _, c := range s.Columns {
			o = append(o, c.Name)
		}
		return o
	}
	v1, _ := Resolve(1)
	assert.Equal(t, []string{"computer_time", "samples"}, names(v1))

	v2, _ := Resolve(2)
	assert.Equal(t, []string{"gps_time", "has_gps", "clipping", "sample_rate",
		"latitude", "longitude", "elevation", "satellite_count", "speed",
		"heading", "count_samples", "samples"}, names(v2))

	v3, _ := Resolve(3)
	assert.Equal(t, append([]string{"computer_time"}, names(v2)...), names(v3))
}

func TestTokens(t *testing.T) {
	v2, _ := Resolve(2)
	require.Len(t, v2.Tokens, 10)
	assert.Equal(t, FlagsToken, v2.Tokens[1].Kind)
	assert.Equal(t, []Flag{{'G', "has_gps"}, {'C', "clipping"}}, v2.Tokens[1].Flags)

	v1, _ := Resolve(1)
	require.Len(t, v1.Tokens, 1)
	assert.Equal(t, "computer_time", v1.Tokens[0].Column)
}

func TestUnits(t *testing.T) {
	v3, _ := Resolve(3)
	for name, unit := range map[string]string{
		"computer_time": "s",
		"gps_time":      "s",
		"sample_rate":   "Hz",
		"latitude":      "degrees",
		"elevation":     "m",
		"speed":         "m/s",
		"has_gps":       "",
	} {
		c, ok := v3.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, unit, c.Unit, name)
	}
}

func TestScalarColumns(t *testing.T) {
	v2, _ := Resolve(2)
	sc := v2.ScalarColumns()
	assert.Len(t, sc, len(v2.Columns)-1)
	for _, c := range sc {
		assert.False(t, c.IsVector())
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		s    Schema
	}{
		{"empty", Schema{Version: 1}},
		{"zero version", Schema{Version: 0, Columns: []Column{samples}}},
		{"vector not last", Schema{Version: 9,
			Columns: []Column{samples, computerTime},
			Tokens:  []Token{ScalarToken("computer_time")}}},
		{"duplicate", Schema{Version: 9,
			Columns: []Column{computerTime, computerTime, samples},
			Tokens:  []Token{ScalarToken("computer_time")}}},
		{"unfed column", Schema{Version: 9,
			Columns: []Column{computerTime, gpsTime, samples},
			Tokens:  []Token{ScalarToken("computer_time")}}},
		{"unknown token target", Schema{Version: 9,
			Columns: []Column{computerTime, samples},
			Tokens:  []Token{ScalarToken("computer_time"), ScalarToken("nope")}}},
		{"flag on non-bool", Schema{Version: 9,
			Columns: []Column{computerTime, samples},
			Tokens:  []Token{FlagToken(Flag{'G', "computer_time"})}}},
		{"misnamed vector", Schema{Version: 9,
			Columns: []Column{computerTime, {Name: "raw", Logical: IntSequence, Storage: Integer}},
			Tokens:  []Token{ScalarToken("computer_time")}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.s.Validate()
			assert.True(t, errors.Is(err, ErrInvalid), "%v", err)
		})
	}
}

func TestStorageBits(t *testing.T) {
	assert.Equal(t, 8, Byte.IntBits())
	assert.Equal(t, 16, Short.IntBits())
	assert.Equal(t, 32, Integer.IntBits())
	assert.Equal(t, 0, Double.IntBits())
	assert.Equal(t, "double", Double.String())
	assert.Equal(t, "int[]", IntSequence.String())
}
