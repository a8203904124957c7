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

// Package csvncutil is the command-line interface to csvnc. Every option
// can be set with a flag, an environment variable or a configuration
// file.
package csvncutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kr/pretty"
	"github.com/spatialmodel/csvnc"
	"github.com/spatialmodel/csvnc/internal/hash"
	"github.com/spatialmodel/csvnc/ncstore"
	"github.com/spatialmodel/csvnc/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(convertCmd)
	Root.AddCommand(scaffoldCmd)
	Root.AddCommand(inspectCmd)
	Root.AddCommand(schemasCmd)

	options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "verbose",
			usage: `
              verbose turns on debug logging, including a message for
              every rejected line.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to a file that log messages are copied
              to. If it is empty, messages are only written to standard
              error. It can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "input",
			usage: `
              input is a list of capture log files to convert, in order.
              Files given as arguments are appended to it. Paths can
              include environment variables.`,
			shorthand:  "i",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scaffoldCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the path of the NetCDF file to create. By default
              it is the first input file with ".nc" appended. With
              compression enabled, ".gz" is appended to it.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scaffoldCmd.Flags()},
		},
		{
			name: "schema-version",
			usage: `
              schema-version forces the record layout. If it is 0, the
              version is detected from the metadata of the first input.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scaffoldCmd.Flags()},
		},
		{
			name: "compression",
			usage: `
              compression is the gzip compression level (1-9) of the
              finished file. 0 means no compression.`,
			shorthand:  "c",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scaffoldCmd.Flags()},
		},
		{
			name: "sample-width",
			usage: `
              sample-width is the length of the sample dimension: the
              largest number of samples a single record can hold.`,
			defaultVal: ncstore.DefaultSampleWidth,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scaffoldCmd.Flags()},
		},
		{
			name: "extension",
			usage: `
              extension is the extension every input file must have.`,
			defaultVal: csvnc.DefaultExtension,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scaffoldCmd.Flags()},
		},
		{
			name: "file-list",
			usage: `
              file-list specifies that each input is a text file listing
              capture logs, one per line, rather than a capture log.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scaffoldCmd.Flags()},
		},
		{
			name: "require-header",
			usage: `
              require-header makes an input without a metadata section
              an error. Otherwise such a file is read as schema version 1.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scaffoldCmd.Flags()},
		},
		{
			name: "strict",
			usage: `
              strict stops the conversion with an error at the first line
              that cannot be decoded. The output written so far is kept.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "scaffold",
			usage: `
              scaffold writes the structure of the output file without
              any records.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CSVNC")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("csvnc: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "csvnc",
	Short: "Convert capture logs to NetCDF.",
	Long: `csvnc converts comma-separated capture logs into NetCDF files with one
time step per record. Use the subcommands specified below to access its
functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CSVNC_var' where 'var' is the
name of the variable to be set, with dashes replaced by underscores.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of csvnc.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("csvnc v%s\n", csvnc.Version)
	},
	DisableAutoGenTag: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert [input files...]",
	Short: "Convert capture logs",
	Long: `convert reads one or more capture logs, in order, and writes their
records to a single NetCDF file. Lines that cannot be decoded are counted
and skipped, and a warning with the total is printed at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd, args, Cfg.GetBool("scaffold"))
	},
	DisableAutoGenTag: true,
}

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold [input files...]",
	Short: "Write an empty output file",
	Long: `scaffold writes the dimensions, variables and attributes that convert
would write for the given inputs, but no records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd, args, true)
	},
	DisableAutoGenTag: true,
}

func runConvert(cmd *cobra.Command, args []string, scaffold bool) error {
	log, closeLog, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := convertConfig(args, log)
	if err != nil {
		return err
	}
	cfg.Scaffold = cfg.Scaffold || scaffold
	res, err := csvnc.Convert(cfg)
	if err != nil {
		return err
	}
	cmd.Printf("wrote %d records to %s (%d of %d lines rejected)\n",
		res.Records, res.Output, res.Errors, res.Lines)
	return nil
}

var inspectCmd = &cobra.Command{
	Use:   "inspect file [other file]",
	Short: "Describe an output file",
	Long: `inspect prints the dimensions, variables and attributes of a NetCDF file
written by convert, together with the number of records and a fingerprint of
its structure. Two files with the same fingerprint have identical structure.
If a second file is given, the differences between the two structures are
printed instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var structures []ncstore.Structure
		for _, a := range args {
			r, err := ncstore.Open(expandString(a))
			if err != nil {
				return err
			}
			structures = append(structures, r.Structure())
			if len(args) == 1 {
				cmd.Print(structures[0].String())
				cmd.Printf("records: %d\n", r.NumRecords())
				cmd.Printf("sample width: %d\n", r.SampleWidth())
				cmd.Printf("fingerprint: %s\n", hash.Fingerprint(structures[0]))
			}
			r.Close()
		}
		if len(args) == 1 {
			return nil
		}
		diff := pretty.Diff(structures[0].Keyed(), structures[1].Keyed())
		sort.Strings(diff)
		if len(diff) == 0 {
			cmd.Println("structures are identical")
			return nil
		}
		for _, d := range diff {
			cmd.Println(d)
		}
		return fmt.Errorf("csvnc: %s and %s differ in %d places", args[0], args[1], len(diff))
	},
	DisableAutoGenTag: true,
}

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the supported record layouts",
	Long:  "schemas prints every supported schema version and its columns as TOML.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(registryDoc())
	},
	DisableAutoGenTag: true,
}

type columnDoc struct {
	Name        string `toml:"name"`
	Type        string `toml:"type"`
	Storage     string `toml:"storage"`
	Unit        string `toml:"unit,omitempty"`
	Description string `toml:"description,omitempty"`
}

type registryDocument struct {
	Latest  int         `toml:"latest"`
	Schemas []schemaDoc `toml:"schema"`
}

type schemaDoc struct {
	Version int         `toml:"version"`
	Columns []columnDoc `toml:"column"`
}

func registryDoc() registryDocument {
	var docs []schemaDoc
	for _, v := range schema.Versions() {
		s, err := schema.Resolve(v)
		if err != nil {
			panic(err)
		}
		d := schemaDoc{Version: v}
		for _, c := range s.Columns {
			d.Columns = append(d.Columns, columnDoc{
				Name:        c.Name,
				Type:        c.Logical.String(),
				Storage:     c.Storage.String(),
				Unit:        c.Unit,
				Description: c.Description,
			})
		}
		docs = append(docs, d)
	}
	return registryDocument{Latest: schema.Latest(), Schemas: docs}
}
