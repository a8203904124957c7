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

// Package csvnc converts line-oriented capture logs into NetCDF
// containers. Each data line of a log is a comma-separated record of
// scalar fields, a run of integer samples and a trailing checksum; each
// accepted line becomes one step along the container's unlimited time
// dimension.
package csvnc

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Version is the version of this software.
const Version = "1.0.0"

// Fatal conditions reported by Convert.
var (
	ErrNoInputs        = errors.New("csvnc: no input files")
	ErrInvalidInput    = errors.New("csvnc: invalid input file")
	ErrVersionMismatch = errors.New("csvnc: input files have different schema versions")
	ErrStrict          = errors.New("csvnc: rejected line in strict mode")
)

// DefaultExtension is the extension input files must carry by default.
const DefaultExtension = ".csv"

// OutputSuffix is appended to the first input path to form the default
// output path.
const OutputSuffix = ".nc"

// Config holds the settings for one conversion.
type Config struct {
	// Inputs are the capture logs, converted in order into one container.
	Inputs []string

	// Output is the container path. It defaults to the first input with
	// OutputSuffix appended. With compression enabled the finished
	// container is written to Output + ".gz".
	Output string

	// SchemaVersion forces a schema. If zero, the version is detected
	// from the metadata of the first input.
	SchemaVersion int

	// CompressionLevel is 0 for none or 1-9.
	CompressionLevel int

	// SampleWidth is the length of the sample dimension.
	SampleWidth int

	// Scaffold writes the container structure without any records.
	Scaffold bool

	// Strict stops the conversion at the first rejected line.
	Strict bool

	// RequireHeader makes a missing metadata section fatal. Otherwise a
	// file without one is read as having empty metadata.
	RequireHeader bool

	// Extension is the required input file extension.
	Extension string

	Log logrus.FieldLogger

	// Progress, if set, is called after every line with the number of
	// lines read so far and the total number of lines in all inputs.
	Progress func(done, total int)
}

// Result summarizes a finished conversion.
type Result struct {
	// Output is the path of the sealed container.
	Output string

	// Version is the schema version the records were decoded with.
	Version int

	// Lines is the number of data lines read, Records the number stored
	// and Errors the number rejected. Records == Lines - Errors.
	Lines, Records, Errors int
}

// Stage is a step of a conversion.
type Stage int

// The stages of a conversion, in order.
const (
	Validate Stage = iota
	Preprocess
	PrepareStore
	StreamConvert
	Finalize
	Done
)

func (s Stage) String() string {
	switch s {
	case Validate:
		return "validate"
	case Preprocess:
		return "preprocess"
	case PrepareStore:
		return "prepare store"
	case StreamConvert:
		return "stream convert"
	case Finalize:
		return "finalize"
	case Done:
		return "done"
	}
	return "unknown"
}
