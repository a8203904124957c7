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

// Package schema holds the versioned record layouts of capture logs.
// A Schema fixes both the order in which CSV tokens are decoded and the
// NetCDF storage type of every resulting column, so the decoder and the
// writer never disagree about a column.
package schema

import (
	"errors"
	"fmt"
)

// VectorName is the name of the column holding the per-record sample run.
const VectorName = "samples"

// LogicalType is the in-memory type a token is coerced to.
type LogicalType int

// These are the logical types a column can take.
const (
	Int LogicalType = iota + 1
	Float
	Bool
	String
	IntSequence
)

var logicalNames = [...]string{"", "int", "float", "bool", "string", "int[]"}

func (t LogicalType) String() string {
	if t < Int || t > IntSequence {
		return fmt.Sprintf("LogicalType(%d)", int(t))
	}
	return logicalNames[t]
}

// StorageType is the NetCDF classic data type a column is stored as.
type StorageType int

// These are the storage types supported by the output container.
const (
	Byte StorageType = iota + 1
	Short
	Integer
	Real
	Double
)

var storageNames = [...]string{"", "byte", "short", "int", "float", "double"}

func (t StorageType) String() string {
	if t < Byte || t > Double {
		return fmt.Sprintf("StorageType(%d)", int(t))
	}
	return storageNames[t]
}

// IntBits returns the width in bits of an integral storage type, or 0 for
// floating point types.
func (t StorageType) IntBits() int {
	switch t {
	case Byte:
		return 8
	case Short:
		return 16
	case Integer:
		return 32
	}
	return 0
}

// Column describes one stored variable.
type Column struct {
	Name        string
	Unit        string
	Description string
	Logical     LogicalType
	Storage     StorageType
}

// IsVector reports whether c is the sample vector column.
func (c Column) IsVector() bool { return c.Logical == IntSequence }

// TokenKind distinguishes the ways a leading CSV token maps onto columns.
type TokenKind int

const (
	// ColumnToken is decoded directly into one column.
	ColumnToken TokenKind = iota
	// FlagsToken is a combined flag string expanded into boolean columns
	// by character membership.
	FlagsToken
)

// Flag maps a flag character onto a derived boolean column.
type Flag struct {
	Char   byte
	Column string
}

// Token describes one leading (non-sample) token of a data line.
type Token struct {
	Kind   TokenKind
	Column string // ColumnToken only
	Flags  []Flag // FlagsToken only
}

// Schema is an immutable record layout. Columns are in storage order;
// Tokens are in CSV order and stop before the sample run.
type Schema struct {
	Version int
	Columns []Column
	Tokens  []Token

	index map[string]int
}

// Sentinel errors returned by the registry and by Validate.
var (
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	ErrInvalid            = errors.New("invalid schema")
)

// Index returns the position of the named column, or -1.
func (s *Schema) Index(name string) int {
	if s.index == nil {
		for i, c := range s.Columns {
			if c.Name == name {
				return i
			}
		}
		return -1
	}
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Column returns the named column.
func (s *Schema) Column(name string) (Column, bool) {
	i := s.Index(name)
	if i < 0 {
		return Column{}, false
	}
	return s.Columns[i], true
}

// VectorIndex returns the index of the sample vector column, or -1 if the
// schema has none.
func (s *Schema) VectorIndex() int { return s.Index(VectorName) }

// ScalarColumns returns every column except the vector column, in order.
func (s *Schema) ScalarColumns() []Column {
	out := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if !c.IsVector() {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks the structural invariants of s.
func (s *Schema) Validate() error {
	if s.Version <= 0 {
		return fmt.Errorf("%w: version %d is not positive", ErrInvalid, s.Version)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: v%d has no columns", ErrInvalid, s.Version)
	}
	seen := make(map[string]bool, len(s.Columns))
	vectors := 0
	for i, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("%w: v%d column %d has no name", ErrInvalid, s.Version, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: v%d repeats column %q", ErrInvalid, s.Version, c.Name)
		}
		seen[c.Name] = true
		if c.Storage < Byte || c.Storage > Double {
			return fmt.Errorf("%w: v%d column %q has storage %v", ErrInvalid, s.Version, c.Name, c.Storage)
		}
		if c.IsVector() {
			vectors++
			if c.Name != VectorName {
				return fmt.Errorf("%w: v%d vector column must be named %q, not %q", ErrInvalid, s.Version, VectorName, c.Name)
			}
			if i != len(s.Columns)-1 {
				return fmt.Errorf("%w: v%d vector column is not last", ErrInvalid, s.Version)
			}
			if c.Storage.IntBits() == 0 {
				return fmt.Errorf("%w: v%d vector column needs integral storage", ErrInvalid, s.Version)
			}
		}
	}
	if vectors > 1 {
		return fmt.Errorf("%w: v%d has %d vector columns", ErrInvalid, s.Version, vectors)
	}

	// Every scalar column must be fed by exactly one token.
	fed := make(map[string]int, len(s.Columns))
	for _, t := range s.Tokens {
		switch t.Kind {
		case ColumnToken:
			fed[t.Column]++
		case FlagsToken:
			if len(t.Flags) == 0 {
				return fmt.Errorf("%w: v%d flags token expands to nothing", ErrInvalid, s.Version)
			}
			for _, f := range t.Flags {
				c, ok := s.Column(f.Column)
				if ok && c.Logical != Bool {
					return fmt.Errorf("%w: v%d flag %q targets non-boolean column %q", ErrInvalid, s.Version, f.Char, f.Column)
				}
				fed[f.Column]++
			}
		default:
			return fmt.Errorf("%w: v%d token kind %d", ErrInvalid, s.Version, t.Kind)
		}
	}
	for name, n := range fed {
		if !seen[name] {
			return fmt.Errorf("%w: v%d token targets unknown column %q", ErrInvalid, s.Version, name)
		}
		if n != 1 {
			return fmt.Errorf("%w: v%d column %q is fed by %d tokens", ErrInvalid, s.Version, name, n)
		}
	}
	for _, c := range s.Columns {
		if !c.IsVector() && fed[c.Name] == 0 {
			return fmt.Errorf("%w: v%d column %q is not fed by any token", ErrInvalid, s.Version, c.Name)
		}
		if c.IsVector() && fed[c.Name] != 0 {
			return fmt.Errorf("%w: v%d vector column is fed by a leading token", ErrInvalid, s.Version)
		}
	}
	return nil
}

// newSchema builds the column index and panics if the definition is
// malformed. It is only called on the static registry.
func newSchema(version int, columns []Column, tokens []Token) *Schema {
	s := &Schema{
		Version: version,
		Columns: columns,
		Tokens:  tokens,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		s.index[c.Name] = i
	}
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

// ScalarToken is shorthand for a ColumnToken.
func ScalarToken(column string) Token { return Token{Kind: ColumnToken, Column: column} }

// FlagToken is shorthand for a FlagsToken.
func FlagToken(flags ...Flag) Token { return Token{Kind: FlagsToken, Flags: flags} }
