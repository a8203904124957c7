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
	"errors"
	"fmt"
)

// ErrDecode is matched by every DecodeError.
var ErrDecode = errors.New("record: decode failed")

// Reasons a line can fail to decode. They are diagnostics only; callers
// treat every DecodeError the same way.
var (
	ErrUnderflow   = errors.New("too few tokens")
	ErrCoercion    = errors.New("invalid token")
	ErrChecksum    = errors.New("checksum mismatch")
	ErrSampleCount = errors.New("sample count mismatch")
	ErrSampleRange = errors.New("sample out of range")
)

// DecodeError describes why one line was rejected.
type DecodeError struct {
	Reason error  // one of the Err* reasons above
	Column string // column or token being decoded, if any
	Token  string // offending token, if any
	Err    error  // underlying parse error, if any
	Detail string
}

func (e *DecodeError) Error() string {
	msg := "record: " + e.Reason.Error()
	if e.Column != "" {
		msg += fmt.Sprintf(" for %s", e.Column)
	}
	if e.Token != "" {
		msg += fmt.Sprintf(" (token %q)", e.Token)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is match both ErrDecode and the specific reason.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode || target == e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }
