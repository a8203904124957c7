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

// Package metadata reads the session header block at the top of a
// capture file and infers the record schema version from it.
package metadata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Header block markers.
const (
	BeginMarker = "## BEGIN METADATA ##"
	EndMarker   = "END METADATA"
)

// VersionKey is the metadata key that states the schema version explicitly.
const VersionKey = "version"

// MaxLineSize bounds the length of a single line in a capture file.
// A record carries at most a few thousand samples, so 4 MiB is generous.
const MaxLineSize = 4 << 20

var (
	// ErrNoHeader is returned when the stream ends before the begin marker.
	ErrNoHeader = errors.New("metadata: no metadata header found")
	// ErrUnexpectedEnd is returned when an end marker appears outside of
	// the metadata section.
	ErrUnexpectedEnd = errors.New("metadata: unexpected end of metadata section")
	// ErrUnterminated is returned when the stream ends inside the section.
	ErrUnterminated = errors.New("metadata: metadata section is not terminated")
)

var lineRE = regexp.MustCompile(`^\s*([A-Z_]+)\s+(.*)$`)

// Metadata maps lower-cased header keys to their values.
type Metadata map[string]string

// Keys returns the keys of m in sorted order.
func (m Metadata) Keys() []string {
	k := make([]string, 0, len(m))
	for key := range m {
		k = append(k, key)
	}
	sort.Strings(k)
	return k
}

// Equal reports whether m and o hold the same pairs.
func (m Metadata) Equal(o Metadata) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Header is a scanned metadata section.
type Header struct {
	Metadata Metadata
	// End is the line number of the end marker. Data lines follow it.
	End int
}

// Scanner reads metadata headers.
type Scanner struct {
	// Log receives diagnostics about skipped lines. It defaults to the
	// logrus standard logger.
	Log logrus.FieldLogger
}

// Scan reads r up to and including the end of the metadata section.
func Scan(r io.Reader) (Metadata, error) {
	return (&Scanner{}).Scan(r)
}

// ScanFile opens path and scans its header.
func ScanFile(path string) (Metadata, error) {
	return (&Scanner{}).ScanFile(path)
}

// ScanFile opens path and scans its header.
func (s *Scanner) ScanFile(path string) (Metadata, error) {
	h, err := s.ReadHeaderFile(path)
	return h.Metadata, err
}

// Scan reads r up to and including the end of the metadata section.
func (s *Scanner) Scan(r io.Reader) (Metadata, error) {
	h, err := s.ReadHeader(r)
	return h.Metadata, err
}

// ReadHeaderFile opens path and reads its header.
func (s *Scanner) ReadHeaderFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("metadata: opening %s: %w", path, err)
	}
	defer f.Close()
	h, err := s.ReadHeader(f)
	if err != nil {
		return Header{}, fmt.Errorf("%w (in %s)", err, path)
	}
	return h, nil
}

// ReadHeader reads r up to and including the end of the metadata section
// and reports the line the section ends on. Lines before the begin marker
// are ignored.
func (s *Scanner) ReadHeader(r io.Reader) (Header, error) {
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	md := make(Metadata)
	inside := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")

		if line == BeginMarker {
			inside = true
			continue
		}
		if strings.Contains(line, EndMarker) {
			if !inside {
				return Header{}, fmt.Errorf("%w at line %d", ErrUnexpectedEnd, lineNo)
			}
			return Header{Metadata: md, End: lineNo}, nil
		}
		if !inside || len(line) <= 1 {
			continue
		}
		if line[0] != '#' {
			log.WithField("line", lineNo).Debug("metadata: skipping line without leading #")
			continue
		}
		m := lineRE.FindStringSubmatch(line[1:])
		if m == nil {
			log.WithFields(logrus.Fields{
				"line": lineNo,
				"text": line,
			}).Debug("metadata: skipping malformed metadata line")
			continue
		}
		md[strings.ToLower(m[1])] = m[2]
	}
	if err := sc.Err(); err != nil {
		return Header{}, fmt.Errorf("metadata: reading header: %w", err)
	}
	if inside {
		return Header{}, ErrUnterminated
	}
	return Header{}, ErrNoHeader
}

// InferVersion determines the schema version implied by md: no metadata
// means version 1, an explicit version key gives its value, and any other
// metadata means version 2.
func InferVersion(md Metadata) (int, error) {
	if len(md) == 0 {
		return 1, nil
	}
	if v, ok := md[VersionKey]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("metadata: invalid %s value %q", VersionKey, v)
		}
		return n, nil
	}
	return 2, nil
}
