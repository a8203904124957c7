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

package csvncutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/csvnc"
	"github.com/spf13/cast"
)

// expandString expands the environment variables in s.
func expandString(s string) string { return os.ExpandEnv(s) }

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile expands any environment variables in the output path
// and makes sure its directory exists. An empty path is allowed; the
// default is derived from the first input.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", nil
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("csvnc: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile expands any environment variables in the log file path.
func checkLogFile(logFile string) string {
	return os.ExpandEnv(logFile)
}

// inputFiles combines the configured inputs with args and, if file-list
// is set, replaces each list file with the files it names.
func inputFiles(args []string) ([]string, error) {
	in, err := cast.ToStringSliceE(Cfg.Get("input"))
	if err != nil {
		return nil, fmt.Errorf("csvnc: invalid input: %v", err)
	}
	files := expandStringSlice(append(append([]string{}, in...), args...))
	if !Cfg.GetBool("file-list") {
		return files, nil
	}
	var out []string
	for _, list := range files {
		f, err := csvnc.ReadFileList(list)
		if err != nil {
			return nil, err
		}
		out = append(out, f...)
	}
	return out, nil
}

// convertConfig builds a conversion configuration from Cfg and args.
func convertConfig(args []string, log logrus.FieldLogger) (*csvnc.Config, error) {
	inputs, err := inputFiles(args)
	if err != nil {
		return nil, err
	}
	output, err := checkOutputFile(Cfg.GetString("output"))
	if err != nil {
		return nil, err
	}
	ints := make(map[string]int)
	for _, name := range []string{"schema-version", "compression", "sample-width"} {
		v, err := cast.ToIntE(Cfg.Get(name))
		if err != nil {
			return nil, fmt.Errorf("csvnc: invalid %s: %v", name, err)
		}
		ints[name] = v
	}
	return &csvnc.Config{
		Inputs:           inputs,
		Output:           output,
		SchemaVersion:    ints["schema-version"],
		CompressionLevel: ints["compression"],
		SampleWidth:      ints["sample-width"],
		Scaffold:         Cfg.GetBool("scaffold"),
		Strict:           Cfg.GetBool("strict"),
		RequireHeader:    Cfg.GetBool("require-header"),
		Extension:        os.ExpandEnv(Cfg.GetString("extension")),
		Log:              log,
		Progress:         progressLogger(log),
	}, nil
}

// progressLogger returns a function that logs every tenth of the way
// through the input.
func progressLogger(log logrus.FieldLogger) func(done, total int) {
	next := 1
	return func(done, total int) {
		if total == 0 || done*10 < next*total {
			return
		}
		log.WithFields(logrus.Fields{
			"lines":   done,
			"percent": 100 * done / total,
		}).Info("progress")
		for done*10 >= next*total {
			next++
		}
	}
}

// newLogger returns a logger writing to w and, if LogFile is set, to
// that file as well. The returned function closes the log file.
func newLogger(w io.Writer) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetLevel(logrus.InfoLevel)
	if Cfg.GetBool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetOutput(w)

	path := checkLogFile(Cfg.GetString("LogFile"))
	if path == "" {
		return log, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csvnc: creating log file: %v", err)
	}
	log.SetOutput(io.MultiWriter(w, f))
	return log, f.Close, nil
}
