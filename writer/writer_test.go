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

package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/csvnc/metadata"
	"github.com/spatialmodel/csvnc/ncstore"
	"github.com/spatialmodel/csvnc/record"
	"github.com/spatialmodel/csvnc/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioLine = "100,GC,50.0,1.0,2.0,3.0,4,5.0,6.0,2,1,1,2"

func decode(t *testing.T, s *schema.Schema, line string) *record.Record {
	r, err := record.NewDecoder(s, 8).Decode(line)
	require.NoError(t, err)
	return r
}

func quiet() Options {
	log, _ := test.NewNullLogger()
	return Options{SampleWidth: 8, Logger: log}
}

func TestWriteRoundTrip(t *testing.T) {
	s, err := schema.Resolve(2)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out.nc")
	md := metadata.Metadata{"version": "2", "site": "north ridge"}

	h, err := Open(path, s, md, quiet())
	require.NoError(t, err)
	h.NoteError()
	h.NoteError()
	require.NoError(t, h.Write(decode(t, s, scenarioLine), 0))
	require.NoError(t, h.Write(decode(t, s, "200,,50.0,1.0,2.0,3.0,4,5.0,6.0,3,4,5,6,15"), 1))
	assert.Equal(t, 2, h.Records())
	assert.Equal(t, 5, h.samples)
	require.NoError(t, h.Finalize())

	r, err := ncstore.Open(h.Path())
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 2, r.NumRecords())
	assert.Equal(t, 8, r.SampleWidth())

	cell := func(name string, ti int) interface{} {
		v, err := r.ReadCell(name, ti)
		require.NoError(t, err, name)
		return v
	}
	assert.Equal(t, []int32{100}, cell("gps_time", 0))
	assert.Equal(t, []uint8{1}, cell("has_gps", 0))
	assert.Equal(t, []uint8{1}, cell("clipping", 0))
	assert.Equal(t, []uint8{0}, cell("has_gps", 1))
	assert.Equal(t, []float64{50}, cell("sample_rate", 0))
	assert.Equal(t, []float64{6}, cell("heading", 0))
	assert.Equal(t, []int32{4}, cell("satellite_count", 0))
	assert.Equal(t, []int32{2}, cell(ErrorsVariable, 0))
	assert.Equal(t, []int32{0}, cell(ErrorsVariable, 1))

	samples, err := r.ReadSlice("samples", 0, 8)
	require.NoError(t, err)
	f := ncstore.FillInt
	assert.Equal(t, []int32{1, 1, f, f, f, f, f, f}, samples)
	samples, err = r.ReadSlice("samples", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 5, 6}, samples)

	assert.Equal(t, []int32{2}, r.Attribute("", VersionAttribute))
	assert.Equal(t, []int32{8}, r.Attribute("", WidthAttribute))
	assert.Equal(t, "north ridge", r.Attribute("", "site"))
	assert.Equal(t, "2", r.Attribute("", "version"))
	assert.Equal(t, "degrees", r.Attribute("latitude", "units"))
	assert.Equal(t, "Latitude", r.Attribute("latitude", "long_name"))
	assert.Nil(t, r.Attribute("has_gps", "units"))

	want := make([]string, 0, len(s.Columns)+1)
	for _, c := range s.Columns {
		want = append(want, c.Name)
	}
	assert.Equal(t, append(want, ErrorsVariable), r.Variables())
}

func TestFinalizeTwice(t *testing.T) {
	s, _ := schema.Resolve(1)
	h, err := Open(filepath.Join(t.TempDir(), "out.nc"), s, nil, quiet())
	require.NoError(t, err)
	require.NoError(t, h.Finalize())
	assert.True(t, errors.Is(h.Finalize(), ErrFinalized))
	assert.True(t, errors.Is(h.Write(decode(t, s, "1.0,1,1"), 0), ErrFinalized))
}

func TestWriteOrder(t *testing.T) {
	s, _ := schema.Resolve(1)
	h, err := Open(filepath.Join(t.TempDir(), "out.nc"), s, nil, quiet())
	require.NoError(t, err)
	defer h.Finalize()
	rec := decode(t, s, "1.0,1,1")
	assert.Error(t, h.Write(rec, 1))
	require.NoError(t, h.Write(rec, 0))
	assert.Error(t, h.Write(rec, 0), "time step reused")

	v2, _ := schema.Resolve(2)
	assert.Error(t, h.Write(decode(t, v2, scenarioLine), 1), "schema mismatch")
}

func TestScaffoldIdempotent(t *testing.T) {
	s, _ := schema.Resolve(3)
	md := metadata.Metadata{"version": "3", "operator": "kim"}
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.nc"), filepath.Join(dir, "b.nc")
	require.NoError(t, Scaffold(a, s, md, quiet()))
	require.NoError(t, Scaffold(b, s, md, quiet()))

	ab, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, ab, bb)

	r, err := ncstore.Open(a)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.NumRecords())
	assert.Equal(t, "kim", r.Attribute("", "operator"))
}

func TestReservedMetadataKey(t *testing.T) {
	s, _ := schema.Resolve(1)
	log, hook := test.NewNullLogger()
	l, err := Layout(s, metadata.Metadata{WidthAttribute: "3"}, Options{SampleWidth: 8, Logger: log})
	require.NoError(t, err)
	assert.True(t, l.HasAttribute("", WidthAttribute))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLayoutDefaults(t *testing.T) {
	s, _ := schema.Resolve(1)
	log, _ := test.NewNullLogger()
	l, err := Layout(s, nil, Options{Logger: log})
	require.NoError(t, err)
	assert.Equal(t, ncstore.DefaultSampleWidth, l.SampleWidth())
	assert.True(t, l.HasVariable(ErrorsVariable))
}

func TestCompressed(t *testing.T) {
	s, _ := schema.Resolve(1)
	opts := quiet()
	opts.CompressionLevel = 4
	h, err := Open(filepath.Join(t.TempDir(), "out.nc"), s, nil, opts)
	require.NoError(t, err)
	require.NoError(t, h.Write(decode(t, s, "1.0,1,2,3"), 0))
	require.NoError(t, h.Finalize())
	assert.True(t, strings.HasSuffix(h.Path(), ".nc.gz"))

	r, err := ncstore.Open(h.Path())
	require.NoError(t, err)
	assert.Equal(t, 1, r.NumRecords())
	v, err := r.ReadSlice("samples", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, v)
}

type failingStore struct {
	fail   string
	closed int
}

func (f *failingStore) BeginRecord(t int) error {
	if f.fail == "begin" {
		return fmt.Errorf("disk full")
	}
	return nil
}

func (f *failingStore) WriteCell(variable string, t int, value interface{}) error {
	if f.fail == variable {
		return fmt.Errorf("disk full")
	}
	return nil
}

func (f *failingStore) WriteSlice(variable string, t int, values []int32) error {
	if f.fail == variable {
		return fmt.Errorf("disk full")
	}
	return nil
}

func (f *failingStore) Close() error {
	f.closed++
	if f.fail == "close" {
		return fmt.Errorf("disk full")
	}
	return nil
}

func TestStoreFailures(t *testing.T) {
	s, _ := schema.Resolve(1)
	rec := decode(t, s, "1.0,1,1")
	log, _ := test.NewNullLogger()
	for _, fail := range []string{"begin", "computer_time", "samples", ErrorsVariable} {
		t.Run(fail, func(t *testing.T) {
			st := &failingStore{fail: fail}
			h := newHandle(st, func() string { return "mem" }, s, log)
			err := h.Write(rec, 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "disk full")
			assert.Equal(t, 0, h.Records())
		})
	}
	st := &failingStore{fail: "close"}
	h := newHandle(st, func() string { return "mem" }, s, log)
	assert.Error(t, h.Finalize())
	assert.True(t, errors.Is(h.Finalize(), ErrFinalized))
	assert.Equal(t, 1, st.closed)
}
