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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/csvnc/metadata"
	"github.com/spatialmodel/csvnc/ncstore"
	"github.com/spatialmodel/csvnc/schema"
	"github.com/spatialmodel/csvnc/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, inputs ...string) (*Config, *test.Hook) {
	log, hook := test.NewNullLogger()
	for i, in := range inputs {
		inputs[i] = filepath.Join("testdata", in)
	}
	return &Config{
		Inputs:      inputs,
		Output:      filepath.Join(t.TempDir(), "out.nc"),
		SampleWidth: 16,
		Log:         log,
	}, hook
}

func openOutput(t *testing.T, path string) *ncstore.Reader {
	r, err := ncstore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestConvertV2(t *testing.T) {
	cfg, hook := testConfig(t, "v2.csv")
	res, err := Convert(cfg)
	require.NoError(t, err)

	assert.Equal(t, &Result{Output: cfg.Output, Version: 2, Lines: 5, Records: 3, Errors: 2}, res)
	assert.Equal(t, res.Lines-res.Errors, res.Records)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	r := openOutput(t, res.Output)
	assert.Equal(t, 3, r.NumRecords())
	assert.Equal(t, "north ridge", r.Attribute("", "site"))
	assert.Equal(t, "kim", r.Attribute("", "operator"))
	assert.Equal(t, []int32{2}, r.Attribute("", writer.VersionAttribute))

	cell := func(name string, ti int) interface{} {
		v, err := r.ReadCell(name, ti)
		require.NoError(t, err)
		return v
	}
	// The line with the bad checksum did not take a time step.
	assert.Equal(t, []int32{100}, cell("gps_time", 0))
	assert.Equal(t, []int32{102}, cell("gps_time", 1))
	assert.Equal(t, []int32{103}, cell("gps_time", 2))
	assert.Equal(t, []uint8{1}, cell("has_gps", 0))
	assert.Equal(t, []uint8{1}, cell("clipping", 0))
	assert.Equal(t, []uint8{0}, cell("clipping", 1))
	assert.Equal(t, []float64{90}, cell("heading", 1))

	assert.Equal(t, []int32{0}, cell(writer.ErrorsVariable, 0))
	assert.Equal(t, []int32{1}, cell(writer.ErrorsVariable, 1))
	assert.Equal(t, []int32{1}, cell(writer.ErrorsVariable, 2))

	s, err := r.ReadSlice("samples", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 1}, s)
	s, err = r.ReadSlice("samples", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 20, 30, ncstore.FillInt}, s)
	s, err = r.ReadSlice("samples", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{ncstore.FillInt}, s)
}

func TestConvertHeaderless(t *testing.T) {
	cfg, hook := testConfig(t, "v1_noheader.csv")
	res, err := Convert(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.Equal(t, 3, res.Lines)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	r := openOutput(t, res.Output)
	v, err := r.ReadCell("computer_time", 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1718000000.5}, v)
	s, err := r.ReadSlice("samples", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 4, 5}, s)
}

func TestConvertRequireHeader(t *testing.T) {
	cfg, _ := testConfig(t, "v1_noheader.csv")
	cfg.RequireHeader = true
	_, err := Convert(cfg)
	assert.True(t, errors.Is(err, metadata.ErrNoHeader), "%v", err)
	assert.NoFileExists(t, cfg.Output)
}

func TestConvertV3CRLF(t *testing.T) {
	cfg, hook := testConfig(t, "v3.csv")
	res, err := Convert(cfg)
	require.NoError(t, err)
	assert.Equal(t, &Result{Output: cfg.Output, Version: 3, Lines: 2, Records: 2}, res)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

	r := openOutput(t, res.Output)
	v, err := r.ReadCell("computer_time", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{12.5}, v)
	s, err := r.ReadSlice("samples", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{-5}, s)
}

func TestConvertVersionMismatch(t *testing.T) {
	cfg, _ := testConfig(t, "v2.csv", "v3.csv")
	res, err := Convert(cfg)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrVersionMismatch), "%v", err)
	assert.NoFileExists(t, cfg.Output)
}

func TestConvertMultipleFiles(t *testing.T) {
	files, err := ReadFileList(filepath.Join("testdata", "files.txt"))
	require.NoError(t, err)
	log, hook := test.NewNullLogger()
	cfg := &Config{Inputs: files, Output: filepath.Join(t.TempDir(), "out.nc"), SampleWidth: 16, Log: log}
	res, err := Convert(cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Records)
	assert.Equal(t, 2, res.Errors)

	var drift *logrus.Entry
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "metadata differs") {
			drift = e
		}
	}
	require.NotNil(t, drift)
	assert.Equal(t, logrus.WarnLevel, drift.Level)
	assert.Equal(t, files[1], drift.Data["file"])

	r := openOutput(t, res.Output)
	assert.Equal(t, 4, r.NumRecords())
	v, err := r.ReadCell("gps_time", 3)
	require.NoError(t, err)
	assert.Equal(t, []int32{200}, v)
	// Metadata comes from the first file.
	assert.Equal(t, "north ridge", r.Attribute("", "site"))
}

func TestConvertSkipsHeaderText(t *testing.T) {
	const data = "100,GC,50.0,1.0,2.0,3.0,4,5.0,6.0,2,1,1,2\n"
	cases := map[string]string{
		"note inside header": "## BEGIN METADATA ##\n#VERSION 2\noperator note without hash\n## END METADATA ##\n",
		"preamble":           "capture tool v1.2\n## BEGIN METADATA ##\n#VERSION 2\n## END METADATA ##\n",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, "capture.csv")
			require.NoError(t, os.WriteFile(in, []byte(header+data), 0644))
			log, _ := test.NewNullLogger()
			var calls int
			res, err := Convert(&Config{
				Inputs:      []string{in},
				Output:      filepath.Join(dir, "out.nc"),
				SampleWidth: 16,
				Log:         log,
				Progress:    func(done, total int) { calls++ },
			})
			require.NoError(t, err)
			assert.Equal(t, 2, res.Version)
			assert.Equal(t, 1, res.Lines)
			assert.Equal(t, 1, res.Records)
			assert.Equal(t, 0, res.Errors)
			assert.Equal(t, strings.Count(header+data, "\n"), calls)

			r := openOutput(t, res.Output)
			v, err := r.ReadCell(writer.ErrorsVariable, 0)
			require.NoError(t, err)
			assert.Equal(t, []int32{0}, v)
		})
	}
}

func TestConvertStrict(t *testing.T) {
	cfg, _ := testConfig(t, "v2.csv")
	cfg.Strict = true
	res, err := Convert(cfg)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrStrict), "%v", err)

	// The container is sealed with the records written before the failure.
	r := openOutput(t, cfg.Output)
	assert.Equal(t, 1, r.NumRecords())
}

func TestConvertScaffold(t *testing.T) {
	cfg, _ := testConfig(t, "v2.csv")
	cfg.Scaffold = true
	res, err := Convert(cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Records)
	assert.Equal(t, 0, res.Lines)

	r := openOutput(t, res.Output)
	assert.Equal(t, 0, r.NumRecords())
	assert.Equal(t, "north ridge", r.Attribute("", "site"))
	s, err := schema.Resolve(2)
	require.NoError(t, err)
	assert.Len(t, r.Variables(), len(s.Columns)+1)
}

func TestConvertScaffoldIdempotent(t *testing.T) {
	a, _ := testConfig(t, "v2.csv")
	a.Scaffold = true
	b, _ := testConfig(t, "v2.csv")
	b.Scaffold = true
	b.Output = a.Output + ".2.nc"
	_, err := Convert(a)
	require.NoError(t, err)
	_, err = Convert(b)
	require.NoError(t, err)

	ab, err := os.ReadFile(a.Output)
	require.NoError(t, err)
	bb, err := os.ReadFile(b.Output)
	require.NoError(t, err)
	assert.Equal(t, ab, bb)
}

func TestConvertCompressed(t *testing.T) {
	cfg, _ := testConfig(t, "v2.csv")
	cfg.CompressionLevel = 9
	res, err := Convert(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Output+".gz", res.Output)
	assert.NoFileExists(t, cfg.Output)
	assert.Equal(t, 3, openOutput(t, res.Output).NumRecords())
}

func TestConvertProgress(t *testing.T) {
	cfg, _ := testConfig(t, "v2.csv")
	var calls, last, total int
	cfg.Progress = func(done, tot int) {
		calls++
		last, total = done, tot
	}
	_, err := Convert(cfg)
	require.NoError(t, err)
	assert.Equal(t, 12, calls)
	assert.Equal(t, 12, last)
	assert.Equal(t, 12, total)
}

func TestConvertForcedVersion(t *testing.T) {
	cfg, hook := testConfig(t, "v1_noheader.csv")
	cfg.SchemaVersion = 99
	_, err := Convert(cfg)
	assert.True(t, errors.Is(err, schema.ErrUnsupportedVersion), "%v", err)
	assert.NoFileExists(t, cfg.Output)

	cfg.SchemaVersion = 2
	res, err := Convert(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Version)
	// Every v1 line is rejected under the v2 layout.
	assert.Equal(t, 0, res.Records)
	assert.Equal(t, 3, res.Errors)
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "schema version overridden" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "log.txt")
	require.NoError(t, os.WriteFile(txt, []byte("1.0,0\n"), 0644))
	csvDir := filepath.Join(dir, "dir.csv")
	require.NoError(t, os.Mkdir(csvDir, 0755))

	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no inputs", Config{}, ErrNoInputs},
		{"missing", Config{Inputs: []string{filepath.Join(dir, "missing.csv")}}, ErrInvalidInput},
		{"extension", Config{Inputs: []string{txt}}, ErrInvalidInput},
		{"directory", Config{Inputs: []string{csvDir}}, ErrInvalidInput},
		{"compression", Config{Inputs: []string{"testdata/v2.csv"}, CompressionLevel: 10}, nil},
		{"sample width", Config{Inputs: []string{"testdata/v2.csv"}, SampleWidth: -1}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			log, _ := test.NewNullLogger()
			c.cfg.Log = log
			c.cfg.Output = filepath.Join(dir, "out.nc")
			_, err := Convert(&c.cfg)
			require.Error(t, err)
			if c.want != nil {
				assert.True(t, errors.Is(err, c.want), "%v", err)
			}
			assert.NoFileExists(t, c.cfg.Output)
		})
	}

	// A custom extension accepts the .txt file.
	log, _ := test.NewNullLogger()
	res, err := Convert(&Config{Inputs: []string{txt}, Extension: ".txt", Log: log})
	require.NoError(t, err)
	assert.Equal(t, txt+OutputSuffix, res.Output)
	assert.Equal(t, 1, res.Records)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short"))
	long := strings.Repeat("é", 50)
	assert.Equal(t, strings.Repeat("é", excerptLen)+"...", excerpt(long))
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "validate", Validate.String())
	assert.Equal(t, "stream convert", StreamConvert.String())
	assert.Equal(t, "unknown", Stage(42).String())
}
