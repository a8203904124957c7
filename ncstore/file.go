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
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"

	"github.com/ctessum/cdf"
	"github.com/klauspost/compress/gzip"
	"github.com/spatialmodel/csvnc/schema"
)

// ErrClosed is returned by operations on a sealed store.
var ErrClosed = errors.New("ncstore: store is closed")

// Store is the write capability the time-series writer depends on.
type Store interface {
	// BeginRecord sets every variable of time step t to its fill value.
	BeginRecord(t int) error
	// WriteCell writes one scalar at time step t.
	WriteCell(variable string, t int, value interface{}) error
	// WriteSlice writes values to [t, 0:len(values)] of a time×sample
	// variable.
	WriteSlice(variable string, t int, values []int32) error
	// Close seals the store.
	Close() error
}

// Option configures Create.
type Option func(*File)

// Compression gzips the sealed container at level (1-9) when it is closed.
// A level of 0 disables compression.
func Compression(level int) Option {
	return func(f *File) { f.level = level }
}

// File is a NetCDF classic container open for appending records.
type File struct {
	path   string
	level  int
	width  int
	ff     *os.File
	nc     *cdf.File
	vars   map[string]varDef
	fills  map[string]interface{}
	closed bool
}

// Create creates (or truncates) the container at path with layout l and
// writes its header.
func Create(path string, l *Layout, opts ...Option) (*File, error) {
	f := &File{
		path:  path,
		width: l.sampleWidth,
		vars:  make(map[string]varDef, len(l.vars)),
		fills: make(map[string]interface{}, len(l.vars)),
	}
	for _, o := range opts {
		o(f)
	}
	if f.level < 0 || f.level > 9 {
		return nil, fmt.Errorf("ncstore: compression level %d is not in 0-9", f.level)
	}

	h, err := l.header()
	if err != nil {
		return nil, err
	}
	for _, v := range l.vars {
		f.vars[v.name] = v
		n := 1
		for _, d := range v.dims[1:] {
			if d == SampleDim {
				n *= l.sampleWidth
			}
		}
		fill, err := fillSlice(h, v.name, n)
		if err != nil {
			return nil, err
		}
		f.fills[v.name] = fill
	}

	ff, err := createFile(path)
	if err != nil {
		return nil, fmt.Errorf("ncstore: creating %s: %v", path, err)
	}
	nc, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		os.Remove(path)
		return nil, fmt.Errorf("ncstore: writing header of %s: %v", path, err)
	}
	f.ff = ff
	f.nc = nc
	return f, nil
}

// createFile opens a new container file.
var createFile = os.Create

// Path returns the location of the finished container. After Close with
// compression enabled this is the gzipped file.
func (f *File) Path() string {
	if f.closed && f.level > 0 {
		return f.path + ".gz"
	}
	return f.path
}

func (f *File) lookup(variable string, t int) (varDef, error) {
	if f.closed {
		return varDef{}, ErrClosed
	}
	v, ok := f.vars[variable]
	if !ok {
		return varDef{}, fmt.Errorf("ncstore: no variable %q", variable)
	}
	if t < 0 {
		return varDef{}, fmt.Errorf("ncstore: negative time index %d", t)
	}
	return v, nil
}

func (f *File) write(v varDef, t int, data interface{}) error {
	begin := make([]int, len(v.dims))
	begin[0] = t
	// A nil end lets a record variable grow past the current end of file.
	w := f.nc.Writer(v.name, begin, nil)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("ncstore: writing %s[%d]: %v", v.name, t, err)
	}
	return nil
}

// BeginRecord implements Store.
func (f *File) BeginRecord(t int) error {
	if f.closed {
		return ErrClosed
	}
	for name, v := range f.vars {
		if err := f.write(v, t, f.fills[name]); err != nil {
			return err
		}
	}
	return nil
}

// WriteCell implements Store. value may be an int64, int32, int, float64
// or bool; it is converted to the variable's storage type.
func (f *File) WriteCell(variable string, t int, value interface{}) error {
	v, err := f.lookup(variable, t)
	if err != nil {
		return err
	}
	if len(v.dims) != 1 {
		return fmt.Errorf("ncstore: %s is not a scalar variable", variable)
	}
	data, err := cell(v.storage, value)
	if err != nil {
		return fmt.Errorf("ncstore: %s[%d]: %v", variable, t, err)
	}
	return f.write(v, t, data)
}

// WriteSlice implements Store.
func (f *File) WriteSlice(variable string, t int, values []int32) error {
	v, err := f.lookup(variable, t)
	if err != nil {
		return err
	}
	if len(v.dims) != 2 {
		return fmt.Errorf("ncstore: %s is not a vector variable", variable)
	}
	if len(values) > f.width {
		return fmt.Errorf("ncstore: %d values exceed the %s width %d", len(values), SampleDim, f.width)
	}
	if len(values) == 0 {
		return nil
	}
	data, err := vector(v.storage, values)
	if err != nil {
		return fmt.Errorf("ncstore: %s[%d]: %v", variable, t, err)
	}
	return f.write(v, t, data)
}

// Close implements Store. It records the number of time steps in the
// header, closes the file and, if requested, compresses it. Close may only
// be called once.
func (f *File) Close() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true

	if err := cdf.UpdateNumRecs(f.ff); err != nil {
		f.ff.Close()
		return fmt.Errorf("ncstore: finalizing %s: %v", f.path, err)
	}
	if err := f.ff.Close(); err != nil {
		return fmt.Errorf("ncstore: closing %s: %v", f.path, err)
	}
	if f.level == 0 {
		return nil
	}
	return compressFile(f.path, f.path+".gz", f.level)
}

// compressFile gzips src into dst and removes src.
func compressFile(src, dst string, level int) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("ncstore: compressing %s: %v", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("ncstore: compressing %s: %v", src, err)
	}
	zw, err := gzip.NewWriterLevel(out, level)
	if err != nil {
		out.Close()
		return fmt.Errorf("ncstore: compressing %s: %v", src, err)
	}
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		return fmt.Errorf("ncstore: compressing %s: %v", src, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("ncstore: compressing %s: %v", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("ncstore: compressing %s: %v", src, err)
	}
	in.Close()
	return os.Remove(src)
}

// NetCDF default fill values, as stored. The byte fill is -127.
const (
	FillByte   = uint8(0x81)
	FillShort  = int16(-32767)
	FillInt    = int32(-2147483647)
	FillFloat  = float32(9.9692099683868690e+36)
	FillDouble = float64(9.9692099683868690e+36)
)

// fillSlice returns n copies of the fill value cdf assigns to variable.
// BeginRecord writes these with one call per variable; cdf's FillRecord
// writes one element at a time.
func fillSlice(h *cdf.Header, variable string, n int) (interface{}, error) {
	s := h.ZeroValue(variable, n)
	fv := h.FillValue(variable)
	if s == nil || fv == nil {
		return nil, fmt.Errorf("ncstore: no fill value for %q", variable)
	}
	rs := reflect.ValueOf(s)
	x := reflect.ValueOf(fv)
	if !x.Type().ConvertibleTo(rs.Type().Elem()) {
		return nil, fmt.Errorf("ncstore: fill value %T does not fit %q", fv, variable)
	}
	x = x.Convert(rs.Type().Elem())
	for i := 0; i < n; i++ {
		rs.Index(i).Set(x)
	}
	return s, nil
}

// cell converts a scalar to a one element slice of the storage type.
func cell(t schema.StorageType, value interface{}) (interface{}, error) {
	var (
		i       int64
		fl      float64
		isFloat bool
	)
	switch x := value.(type) {
	case bool:
		if x {
			i = 1
		}
	case int:
		i = int64(x)
	case int32:
		i = int64(x)
	case int64:
		i = x
	case float64:
		fl, isFloat = x, true
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}

	if isFloat {
		switch t {
		case schema.Real:
			return []float32{float32(fl)}, nil
		case schema.Double:
			return []float64{fl}, nil
		}
		return nil, fmt.Errorf("cannot store float in %v", t)
	}
	switch t {
	case schema.Byte:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return nil, fmt.Errorf("%d overflows %v", i, t)
		}
		return []uint8{uint8(int8(i))}, nil
	case schema.Short:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return nil, fmt.Errorf("%d overflows %v", i, t)
		}
		return []int16{int16(i)}, nil
	case schema.Integer:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, fmt.Errorf("%d overflows %v", i, t)
		}
		return []int32{int32(i)}, nil
	case schema.Real:
		return []float32{float32(i)}, nil
	case schema.Double:
		return []float64{float64(i)}, nil
	}
	return nil, fmt.Errorf("unsupported storage type %v", t)
}

func vector(t schema.StorageType, values []int32) (interface{}, error) {
	switch t {
	case schema.Integer:
		return values, nil
	case schema.Short:
		out := make([]int16, len(values))
		for i, v := range values {
			if v < math.MinInt16 || v > math.MaxInt16 {
				return nil, fmt.Errorf("sample %d overflows %v", v, t)
			}
			out[i] = int16(v)
		}
		return out, nil
	case schema.Double:
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = float64(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported sample storage type %v", t)
}
