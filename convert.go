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

package csvnc

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/csvnc/metadata"
	"github.com/spatialmodel/csvnc/ncstore"
	"github.com/spatialmodel/csvnc/record"
	"github.com/spatialmodel/csvnc/schema"
	"github.com/spatialmodel/csvnc/writer"
)

// excerptLen is the number of characters of a rejected line that are
// logged.
const excerptLen = 40

// converter holds the state of one run of Convert.
type converter struct {
	cfg    Config
	log    logrus.FieldLogger
	stage  Stage
	schema *schema.Schema
	md     metadata.Metadata
	starts []int
	total  int
	done   int
	h      *writer.Handle
	res    Result
}

// Convert runs the conversion described by cfg. Lines that cannot be
// decoded are counted and skipped; any other problem is fatal. Nothing is
// written until every input has been validated and scanned. Once the
// output exists it is always sealed, even if a later step fails.
func Convert(cfg *Config) (res *Result, err error) {
	c := &converter{cfg: *cfg}
	c.setDefaults()

	for _, s := range []struct {
		stage Stage
		f     func() error
	}{
		{Validate, c.validate},
		{Preprocess, c.preprocess},
		{PrepareStore, c.prepareStore},
	} {
		if err := c.enter(s.stage, s.f); err != nil {
			return nil, err
		}
	}

	defer func() {
		if ferr := c.enter(Finalize, c.finalize); ferr != nil && err == nil {
			res, err = nil, ferr
			return
		}
		c.stage = Done
	}()

	if c.cfg.Scaffold {
		c.log.Info("scaffold mode: no records will be written")
		return &c.res, nil
	}
	if err := c.enter(StreamConvert, c.streamConvert); err != nil {
		return nil, err
	}
	return &c.res, nil
}

func (c *converter) setDefaults() {
	if c.cfg.Log == nil {
		c.cfg.Log = logrus.StandardLogger()
	}
	if c.cfg.Extension == "" {
		c.cfg.Extension = DefaultExtension
	}
	if c.cfg.SampleWidth == 0 {
		c.cfg.SampleWidth = ncstore.DefaultSampleWidth
	}
	if c.cfg.Output == "" && len(c.cfg.Inputs) > 0 {
		c.cfg.Output = c.cfg.Inputs[0] + OutputSuffix
	}
	c.log = c.cfg.Log
}

func (c *converter) enter(s Stage, f func() error) error {
	c.stage = s
	c.log.WithField("stage", s).Debug("entering stage")
	return f()
}

func (c *converter) validate() error {
	if len(c.cfg.Inputs) == 0 {
		return ErrNoInputs
	}
	for _, p := range c.cfg.Inputs {
		fi, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("%w: %s is not a regular file", ErrInvalidInput, p)
		}
		if !strings.HasSuffix(p, c.cfg.Extension) {
			return fmt.Errorf("%w: %s does not have extension %s", ErrInvalidInput, p, c.cfg.Extension)
		}
	}
	if c.cfg.CompressionLevel < 0 || c.cfg.CompressionLevel > 9 {
		return fmt.Errorf("csvnc: compression level %d is not in 0-9", c.cfg.CompressionLevel)
	}
	if c.cfg.SampleWidth < 0 {
		return fmt.Errorf("csvnc: invalid sample width %d", c.cfg.SampleWidth)
	}
	if c.cfg.SchemaVersion < 0 {
		return fmt.Errorf("csvnc: invalid schema version %d", c.cfg.SchemaVersion)
	}
	return nil
}

// preprocess scans the metadata of every input, fixes the schema and
// counts lines for progress reporting.
func (c *converter) preprocess() error {
	scanner := &metadata.Scanner{Log: c.log}
	detected := 0
	for i, p := range c.cfg.Inputs {
		h, err := scanner.ReadHeaderFile(p)
		if errors.Is(err, metadata.ErrNoHeader) && !c.cfg.RequireHeader {
			c.log.WithField("file", p).Debug("no metadata section")
			h, err = metadata.Header{Metadata: metadata.Metadata{}}, nil
		}
		if err != nil {
			return fmt.Errorf("csvnc: %w", err)
		}
		v, err := metadata.InferVersion(h.Metadata)
		if err != nil {
			return fmt.Errorf("csvnc: %s: %w", p, err)
		}
		switch {
		case i == 0:
			detected, c.md = v, h.Metadata
		case v != detected:
			return fmt.Errorf("%w: %s is version %d, %s is version %d",
				ErrVersionMismatch, c.cfg.Inputs[0], detected, p, v)
		case !h.Metadata.Equal(c.md):
			c.log.WithFields(logrus.Fields{
				"file":  p,
				"first": c.cfg.Inputs[0],
			}).Warn("metadata differs from the first input; only the first input's metadata is stored")
		}
		c.starts = append(c.starts, h.End)

		n, err := countLines(p)
		if err != nil {
			return err
		}
		c.total += n
		c.log.WithFields(logrus.Fields{
			"file":    p,
			"version": v,
			"lines":   n,
		}).Debug("scanned input")
	}

	version := detected
	if c.cfg.SchemaVersion != 0 {
		if c.cfg.SchemaVersion != detected {
			c.log.WithFields(logrus.Fields{
				"detected": detected,
				"forced":   c.cfg.SchemaVersion,
			}).Warn("schema version overridden")
		}
		version = c.cfg.SchemaVersion
	}
	s, err := schema.Resolve(version)
	if err != nil {
		return fmt.Errorf("csvnc: %w", err)
	}
	c.schema = s
	c.res.Version = s.Version
	return nil
}

func (c *converter) prepareStore() error {
	h, err := writer.Open(c.cfg.Output, c.schema, c.md, writer.Options{
		SampleWidth:      c.cfg.SampleWidth,
		CompressionLevel: c.cfg.CompressionLevel,
		Logger:           c.log,
	})
	if err != nil {
		return fmt.Errorf("csvnc: %w", err)
	}
	c.h = h
	return nil
}

func (c *converter) streamConvert() error {
	dec := record.NewDecoder(c.schema, c.cfg.SampleWidth)
	for i, p := range c.cfg.Inputs {
		if err := c.convertFile(dec, p, c.starts[i]); err != nil {
			return err
		}
	}
	return nil
}

// convertFile decodes the lines of path that follow line start.
func (c *converter) convertFile(dec *record.Decoder, path string, start int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("csvnc: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), metadata.MaxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		c.done++
		if c.cfg.Progress != nil {
			c.cfg.Progress(c.done, c.total)
		}

		if lineNo <= start {
			continue
		}
		line := sc.Text()
		if t := strings.TrimSpace(line); t == "" || t[0] == '#' {
			continue
		}
		c.res.Lines++

		rec, err := dec.Decode(line)
		if err != nil {
			c.res.Errors++
			c.h.NoteError()
			c.log.WithFields(logrus.Fields{
				"file":    path,
				"line":    lineNo,
				"excerpt": excerpt(line),
				"error":   err,
			}).Debug("rejected line")
			if c.cfg.Strict {
				return fmt.Errorf("%w: %s:%d: %v", ErrStrict, path, lineNo, err)
			}
			continue
		}
		if err := c.h.Write(rec, c.res.Records); err != nil {
			return fmt.Errorf("csvnc: %s:%d: %w", path, lineNo, err)
		}
		c.res.Records++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("csvnc: reading %s: %v", path, err)
	}
	return nil
}

func (c *converter) finalize() error {
	err := c.h.Finalize()
	c.res.Output = c.h.Path()
	if err != nil {
		return fmt.Errorf("csvnc: %w", err)
	}
	fields := logrus.Fields{
		"output":  c.res.Output,
		"records": c.res.Records,
		"errors":  c.res.Errors,
	}
	if c.res.Errors > 0 {
		c.log.WithFields(fields).Warn("some lines could not be decoded")
	} else {
		c.log.WithFields(fields).Info("conversion complete")
	}
	return nil
}

func excerpt(line string) string {
	r := []rune(line)
	if len(r) <= excerptLen {
		return line
	}
	return string(r[:excerptLen]) + "..."
}

// countLines returns the number of lines in the file at path.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("csvnc: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), metadata.MaxLineSize)
	n := 0
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("csvnc: counting lines of %s: %v", path, err)
	}
	return n, nil
}
