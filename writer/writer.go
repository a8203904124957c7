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

// Package writer maps decoded records onto time steps of a NetCDF
// container: one variable per schema column, the sample vector over
// time×sample, and a per time step count of rejected lines.
package writer

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/csvnc/metadata"
	"github.com/spatialmodel/csvnc/ncstore"
	"github.com/spatialmodel/csvnc/record"
	"github.com/spatialmodel/csvnc/schema"
)

// Names of the variables and global attributes the writer adds on top of
// the schema columns.
const (
	ErrorsVariable   = "parsing_errors"
	VersionAttribute = "original_schema_version"
	WidthAttribute   = "sample_width"
)

// ErrFinalized is returned when a sealed handle is used again.
var ErrFinalized = errors.New("writer: handle already finalized")

// Options configure Open.
type Options struct {
	// SampleWidth is the length of the sample dimension. It defaults to
	// ncstore.DefaultSampleWidth.
	SampleWidth int

	// CompressionLevel is 0 for none or 1-9.
	CompressionLevel int

	Logger logrus.FieldLogger
}

func (o *Options) defaults() {
	if o.SampleWidth == 0 {
		o.SampleWidth = ncstore.DefaultSampleWidth
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// Handle is an open output container. It is not safe for concurrent use.
type Handle struct {
	store     ncstore.Store
	path      func() string
	schema    *schema.Schema
	scalars   []int
	vector    int
	next      int
	pending   int
	samples   int
	finalized bool
	log       logrus.FieldLogger
}

// Open creates the container at path with one variable per column of s
// and the metadata md as global attributes.
func Open(path string, s *schema.Schema, md metadata.Metadata, opts Options) (*Handle, error) {
	opts.defaults()
	l, err := Layout(s, md, opts)
	if err != nil {
		return nil, err
	}
	var o []ncstore.Option
	if opts.CompressionLevel != 0 {
		o = append(o, ncstore.Compression(opts.CompressionLevel))
	}
	f, err := ncstore.Create(path, l, o...)
	if err != nil {
		return nil, fmt.Errorf("writer: %v", err)
	}
	opts.Logger.WithFields(logrus.Fields{
		"path":           path,
		"schema_version": s.Version,
		"sample_width":   opts.SampleWidth,
		"compression":    opts.CompressionLevel,
	}).Info("created output container")
	return newHandle(f, f.Path, s, opts.Logger), nil
}

func newHandle(st ncstore.Store, path func() string, s *schema.Schema, log logrus.FieldLogger) *Handle {
	h := &Handle{
		store:  st,
		path:   path,
		schema: s,
		vector: s.VectorIndex(),
		log:    log,
	}
	for i, c := range s.Columns {
		if !c.IsVector() {
			h.scalars = append(h.scalars, i)
		}
	}
	return h
}

// Layout returns the container layout for s and md.
func Layout(s *schema.Schema, md metadata.Metadata, opts Options) (*ncstore.Layout, error) {
	opts.defaults()
	if opts.SampleWidth < 0 {
		return nil, fmt.Errorf("writer: invalid sample width %d", opts.SampleWidth)
	}
	l := ncstore.NewLayout(opts.SampleWidth)
	for _, c := range s.Columns {
		dims := []string{ncstore.TimeDim}
		if c.IsVector() {
			dims = append(dims, ncstore.SampleDim)
		}
		if err := l.AddVariable(c.Name, dims, c.Storage); err != nil {
			return nil, fmt.Errorf("writer: %v", err)
		}
		if c.Unit != "" {
			if err := l.AddAttribute(c.Name, "units", c.Unit); err != nil {
				return nil, fmt.Errorf("writer: %v", err)
			}
		}
		if c.Description != "" {
			if err := l.AddAttribute(c.Name, "long_name", c.Description); err != nil {
				return nil, fmt.Errorf("writer: %v", err)
			}
		}
	}
	// Declared last: it is 4-byte aligned, so the record count derived
	// from the file size is exact.
	if err := l.AddVariable(ErrorsVariable, []string{ncstore.TimeDim}, schema.Integer); err != nil {
		return nil, fmt.Errorf("writer: %v", err)
	}
	if err := l.AddAttribute(ErrorsVariable, "long_name", "lines rejected since the previous record"); err != nil {
		return nil, fmt.Errorf("writer: %v", err)
	}

	if err := l.AddAttribute("", VersionAttribute, s.Version); err != nil {
		return nil, fmt.Errorf("writer: %v", err)
	}
	if err := l.AddAttribute("", WidthAttribute, opts.SampleWidth); err != nil {
		return nil, fmt.Errorf("writer: %v", err)
	}
	for _, k := range md.Keys() {
		if l.HasAttribute("", k) {
			opts.Logger.WithField("key", k).Warn("metadata key shadows a reserved attribute; skipping")
			continue
		}
		if err := l.AddAttribute("", k, md[k]); err != nil {
			return nil, fmt.Errorf("writer: %v", err)
		}
	}
	return l, nil
}

// Scaffold writes a container holding the structure for s and md but no
// records.
func Scaffold(path string, s *schema.Schema, md metadata.Metadata, opts Options) error {
	h, err := Open(path, s, md, opts)
	if err != nil {
		return err
	}
	return h.Finalize()
}

// Path returns where the container is, or will be once finalized.
func (h *Handle) Path() string { return h.path() }

// Records returns the number of records written.
func (h *Handle) Records() int { return h.next }

// NoteError counts a rejected line against the next record.
func (h *Handle) NoteError() { h.pending++ }

// Write stores rec at time step t. Time steps must be written in order
// starting from zero. Sample rows shorter than the sample width keep the
// fill value in the remaining cells.
func (h *Handle) Write(rec *record.Record, t int) error {
	if h.finalized {
		return ErrFinalized
	}
	if t != h.next {
		return fmt.Errorf("writer: time step %d written out of order, expected %d", t, h.next)
	}
	if rec.Schema.Version != h.schema.Version {
		return fmt.Errorf("writer: record has schema version %d, container has %d",
			rec.Schema.Version, h.schema.Version)
	}

	if err := h.store.BeginRecord(t); err != nil {
		return fmt.Errorf("writer: %v", err)
	}
	for _, i := range h.scalars {
		c := h.schema.Columns[i]
		v := rec.Values[i]
		var cell interface{}
		switch v.Kind {
		case schema.Int:
			cell = v.Int()
		case schema.Float:
			cell = v.Float()
		case schema.Bool:
			cell = v.Bool()
		default:
			return fmt.Errorf("writer: column %s has unstorable kind %v", c.Name, v.Kind)
		}
		if err := h.store.WriteCell(c.Name, t, cell); err != nil {
			return fmt.Errorf("writer: %v", err)
		}
	}
	if h.vector >= 0 {
		name := h.schema.Columns[h.vector].Name
		if err := h.store.WriteSlice(name, t, rec.Values[h.vector].Samples()); err != nil {
			return fmt.Errorf("writer: %v", err)
		}
	}
	if err := h.store.WriteCell(ErrorsVariable, t, h.pending); err != nil {
		return fmt.Errorf("writer: %v", err)
	}
	h.pending = 0
	h.samples += rec.SampleCount()
	h.next++
	return nil
}

// Finalize seals the container. It may only be called once. Errors noted
// after the last record are not stored; they remain in the caller's total.
func (h *Handle) Finalize() error {
	if h.finalized {
		return ErrFinalized
	}
	h.finalized = true
	if err := h.store.Close(); err != nil {
		return fmt.Errorf("writer: sealing container: %v", err)
	}
	h.log.WithFields(logrus.Fields{
		"path":    h.path(),
		"records": h.next,
		"samples": h.samples,
	}).Info("sealed output container")
	return nil
}
