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
	"fmt"
	"sort"
)

// Flag characters used in the combined flags token of v2 and v3 lines.
const (
	GPSFixFlag   = 'G'
	ClippingFlag = 'C'
)

// Column definitions shared between versions.
var (
	computerTime = Column{Name: "computer_time", Unit: "s", Description: "Host computer clock time", Logical: Float, Storage: Double}
	gpsTime      = Column{Name: "gps_time", Unit: "s", Description: "GPS time", Logical: Int, Storage: Integer}
	hasGPS       = Column{Name: "has_gps", Description: "GPS fix acquired", Logical: Bool, Storage: Byte}
	clipping     = Column{Name: "clipping", Description: "Input clipping detected", Logical: Bool, Storage: Byte}
	sampleRate   = Column{Name: "sample_rate", Unit: "Hz", Description: "Sampling rate", Logical: Float, Storage: Double}
	latitude     = Column{Name: "latitude", Unit: "degrees", Description: "Latitude", Logical: Float, Storage: Double}
	longitude    = Column{Name: "longitude", Unit: "degrees", Description: "Longitude", Logical: Float, Storage: Double}
	elevation    = Column{Name: "elevation", Unit: "m", Description: "Elevation", Logical: Float, Storage: Double}
	satellites   = Column{Name: "satellite_count", Description: "Number of satellites in view", Logical: Int, Storage: Integer}
	speed        = Column{Name: "speed", Unit: "m/s", Description: "Ground speed", Logical: Float, Storage: Double}
	heading      = Column{Name: "heading", Unit: "degrees", Description: "Heading", Logical: Float, Storage: Double}
	countSamples = Column{Name: "count_samples", Description: "Number of samples in the record", Logical: Int, Storage: Integer}

	// Samples are unsigned 16 bit ADC counts, which do not fit NC_SHORT.
	samples = Column{Name: VectorName, Description: "Raw samples", Logical: IntSequence, Storage: Integer}
)

var flagsToken = FlagToken(
	Flag{Char: GPSFixFlag, Column: hasGPS.Name},
	Flag{Char: ClippingFlag, Column: clipping.Name},
)

// gpsColumns are the columns common to v2 and v3, in order.
var gpsColumns = []Column{gpsTime, hasGPS, clipping, sampleRate, latitude, longitude,
	elevation, satellites, speed, heading, countSamples, samples}

var gpsTokens = []Token{
	ScalarToken(gpsTime.Name),
	flagsToken,
	ScalarToken(sampleRate.Name),
	ScalarToken(latitude.Name),
	ScalarToken(longitude.Name),
	ScalarToken(elevation.Name),
	ScalarToken(satellites.Name),
	ScalarToken(speed.Name),
	ScalarToken(heading.Name),
	ScalarToken(countSamples.Name),
}

// registry is the closed set of supported layouts. Adding a version means
// adding an entry here and a rule to metadata.InferVersion.
var registry = map[int]*Schema{
	1: newSchema(1,
		[]Column{computerTime, samples},
		[]Token{ScalarToken(computerTime.Name)},
	),
	2: newSchema(2, gpsColumns, gpsTokens),
	3: newSchema(3,
		append([]Column{computerTime}, gpsColumns...),
		append([]Token{ScalarToken(computerTime.Name)}, gpsTokens...),
	),
}

// Resolve returns the schema registered for version.
func Resolve(version int) (*Schema, error) {
	s, ok := registry[version]
	if !ok {
		return nil, fmt.Errorf("schema: %w: %d (supported: %v)", ErrUnsupportedVersion, version, Versions())
	}
	return s, nil
}

// Versions returns the registered versions in ascending order.
func Versions() []int {
	v := make([]int, 0, len(registry))
	for k := range registry {
		v = append(v, k)
	}
	sort.Ints(v)
	return v
}

// Latest returns the highest registered version.
func Latest() int {
	v := Versions()
	return v[len(v)-1]
}
