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

// Command csvnc is a command-line interface for converting capture logs
// to NetCDF.
package main

import (
	"os"

	"github.com/spatialmodel/csvnc/csvncutil"
)

func main() {
	if err := csvncutil.Root.Execute(); err != nil {
		os.Exit(1)
	}
}
