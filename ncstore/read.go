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
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/klauspost/compress/gzip"
)

// Reader gives read access to a finished container.
type Reader struct {
	path string
	nc   *cdf.File
	size int64
	c    io.Closer
}

// Open opens the container at path for reading. Paths ending in ".gz"
// are decompressed into memory first.
func Open(path string) (*Reader, error) {
	if strings.HasSuffix(path, ".gz") {
		return openGzip(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncstore: opening %s: %v", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncstore: opening %s: %v", path, err)
	}
	nc, err := cdf.Open(readOnly{f})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncstore: reading header of %s: %v", path, err)
	}
	return &Reader{path: path, nc: nc, size: fi.Size(), c: f}, nil
}

func openGzip(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncstore: opening %s: %v", path, err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("ncstore: opening %s: %v", path, err)
	}
	defer zr.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, fmt.Errorf("ncstore: decompressing %s: %v", path, err)
	}
	m := &memFile{b: buf.Bytes()}
	nc, err := cdf.Open(m)
	if err != nil {
		return nil, fmt.Errorf("ncstore: reading header of %s: %v", path, err)
	}
	return &Reader{path: path, nc: nc, size: int64(len(m.b))}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// NumRecords returns the length of the time dimension.
func (r *Reader) NumRecords() int { return int(r.nc.Header.NumRecs(r.size)) }

// SampleWidth returns the length of the sample dimension.
func (r *Reader) SampleWidth() int {
	for _, v := range r.nc.Header.Variables() {
		dims := r.nc.Header.Dimensions(v)
		if len(dims) == 2 && dims[1] == SampleDim {
			return r.nc.Header.Lengths(v)[1]
		}
	}
	return 0
}

// Variables lists the variable names in declaration order.
func (r *Reader) Variables() []string { return r.nc.Header.Variables() }

// Attribute returns the value of attribute name on variable, or the global
// attribute when variable is "". It is nil if the attribute is not set.
func (r *Reader) Attribute(variable, name string) interface{} {
	return r.nc.Header.GetAttribute(variable, name)
}

// Describe returns a CDL-like dump of the header.
func (r *Reader) Describe() string { return r.nc.Header.String() }

func (r *Reader) check(variable string, t, dims int) error {
	if r.nc.Header.Dimensions(variable) == nil {
		return fmt.Errorf("ncstore: no variable %q in %s", variable, r.path)
	}
	if n := len(r.nc.Header.Dimensions(variable)); n != dims {
		return fmt.Errorf("ncstore: %s has %d dimensions, not %d", variable, n, dims)
	}
	if t < 0 || t >= r.NumRecords() {
		return fmt.Errorf("ncstore: time index %d out of range [0, %d)", t, r.NumRecords())
	}
	return nil
}

// ReadCell reads the scalar variable at time step t. The result is a one
// element slice of the variable's storage type.
func (r *Reader) ReadCell(variable string, t int) (interface{}, error) {
	if err := r.check(variable, t, 1); err != nil {
		return nil, err
	}
	rd := r.nc.Reader(variable, []int{t}, nil)
	buf := rd.Zero(1)
	if _, err := rd.Read(buf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("ncstore: reading %s[%d]: %v", variable, t, err)
	}
	return buf, nil
}

// ReadSlice reads the first n elements of row t of a time×sample variable.
func (r *Reader) ReadSlice(variable string, t, n int) (interface{}, error) {
	if err := r.check(variable, t, 2); err != nil {
		return nil, err
	}
	if w := r.nc.Header.Lengths(variable)[1]; n < 0 || n > w {
		return nil, fmt.Errorf("ncstore: %d elements out of range [0, %d]", n, w)
	}
	rd := r.nc.Reader(variable, []int{t, 0}, nil)
	buf := rd.Zero(n)
	if n == 0 {
		return buf, nil
	}
	if _, err := rd.Read(buf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("ncstore: reading %s[%d]: %v", variable, t, err)
	}
	return buf, nil
}

// readOnly adapts a read-only file to cdf's storage interface.
type readOnly struct{ *os.File }

func (readOnly) WriteAt([]byte, int64) (int, error) {
	return 0, fmt.Errorf("ncstore: container is open read-only")
}
