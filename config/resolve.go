package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

// DefaultFile is read when present and no other config file is named.
const DefaultFile = ".llmtest.yaml"

type kind int

const (
	kindString kind = iota
	kindBool
	kindFloat
)

// option describes one setting. Its key is the flag name and the YAML key;
// env is the environment variable that sets it.
type option struct {
	key   string
	short string
	env   string
	kind  kind
	def   string
	usage string
	apply func(c *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", v)
		}
		*dst(c) = b
		return nil
	}
}

var options = []option{
	{key: "input", short: "f", env: "LLMTEST_INPUT", usage: "read go test -json output from `file` instead of stdin",
		apply: str(func(c *Config) *string { return &c.Input })},
	{key: "output", short: "o", env: "LLMTEST_OUTPUT", usage: "write the report to `file` instead of stdout",
		apply: str(func(c *Config) *string { return &c.Output })},
	{key: "color", env: "LLMTEST_COLOR", def: string(ColorAuto), usage: "colorize the report: auto, always or never",
		apply: func(c *Config, v string) error {
			m, err := ParseColorMode(v)
			c.Color = m
			return err
		}},
	{key: "hyperlinks", env: "LLMTEST_HYPERLINKS", kind: kindBool, def: "false", usage: "link locations to source files on a terminal",
		apply: boolean(func(c *Config) *bool { return &c.Hyperlinks })},
	{key: "timing", env: "LLMTEST_TIMING", kind: kindBool, def: "false", usage: "report the run duration and every passing test's time",
		apply: boolean(func(c *Config) *bool { return &c.Timing })},
	{key: "coverprofile", env: "LLMTEST_COVERPROFILE", usage: "add a coverage section from the profile in `file`",
		apply: str(func(c *Config) *string { return &c.CoverProfile })},
	{key: "coverage-verbose", env: "LLMTEST_COVERAGE_VERBOSE", kind: kindBool, def: "false", usage: "list every covered file with its percentages",
		apply: boolean(func(c *Config) *bool { return &c.CoverageVerbose })},
	{key: "run", env: "LLMTEST_RUN", usage: "only report tests whose name matches `regexp`",
		apply: func(c *Config, v string) error {
			c.Run = v
			if v == "" {
				c.Filter = nil
				return nil
			}
			re, err := regexp.Compile(v)
			c.Filter = re
			return err
		}},
	{key: "root", env: "LLMTEST_ROOT", def: ".", usage: "`dir` inside the module under test",
		apply: func(c *Config, v string) error {
			abs, err := filepath.Abs(v)
			c.Root = abs
			return err
		}},
	{key: "progress", env: "LLMTEST_PROGRESS", kind: kindBool, def: "false", usage: "show live progress on stderr when it is a terminal",
		apply: boolean(func(c *Config) *bool { return &c.Progress })},
	{key: "log-level", env: "LLMTEST_LOG_LEVEL", def: "warn", usage: "diagnostics written to stderr: debug, info, warn or error",
		apply: func(c *Config, v string) error {
			lvl, err := zapcore.ParseLevel(v)
			c.LogLevel = lvl
			return err
		}},
	{key: "jsonfile", env: "LLMTEST_JSONFILE", usage: "also copy the test events to `file`",
		apply: str(func(c *Config) *string { return &c.JSONFile })},
	{key: "outfile", env: "LLMTEST_OUTFILE", usage: "also copy the raw input to `file`",
		apply: str(func(c *Config) *string { return &c.OutFile })},
	{key: "replay", env: "LLMTEST_REPLAY", kind: kindBool, def: "false", usage: "replay a recorded stream at the pace it was recorded",
		apply: boolean(func(c *Config) *bool { return &c.Replay })},
	{key: "rate", env: "LLMTEST_RATE", kind: kindFloat, def: "1", usage: "replay speed multiplier",
		apply: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("not a number: %q", v)
			}
			if f <= 0 {
				return errors.New("must be positive")
			}
			c.Rate = f
			return nil
		}},
}

// Flags registers every option on fs, plus --config and --env-file.
func Flags(fs *pflag.FlagSet) {
	for _, o := range options {
		switch o.kind {
		case kindBool:
			def, _ := strconv.ParseBool(o.def)
			fs.BoolP(o.key, o.short, def, o.usage)
		case kindFloat:
			def, _ := strconv.ParseFloat(o.def, 64)
			fs.Float64P(o.key, o.short, def, o.usage)
		default:
			fs.StringP(o.key, o.short, o.def, o.usage)
		}
	}
	fs.String("config", "", "read options from YAML `file` (default "+DefaultFile+" when present)")
	fs.String("env-file", "", "read LLMTEST_* variables from dotenv `file`")
}

// LookupEnv reads one environment variable.
type LookupEnv func(key string) (string, bool)

// Resolve builds a Config from the flags in fs, the environment and the
// config file. fs must have been set up with Flags and parsed.
func Resolve(fs *pflag.FlagSet, lookup LookupEnv) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	envFile, _ := fs.GetString("env-file")
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return nil, &Error{Key: "env-file", Err: err}
		}
		lookup = withFallback(lookup, vars)
	}

	file, fileValues, err := loadFile(fs, lookup)
	if err != nil {
		return nil, err
	}

	c := &Config{File: file, Sources: make(map[string]Source, len(options))}
	c.CI = truthy(lookup, "CI")
	for _, o := range options {
		v, src, err := value(o, fs, lookup, fileValues)
		if err != nil {
			return nil, err
		}
		if err := o.apply(c, v); err != nil {
			return nil, &Error{Key: o.key, Err: err}
		}
		c.Sources[o.key] = src
	}
	return c, nil
}

// value picks an option's raw value by precedence.
func value(o option, fs *pflag.FlagSet, lookup LookupEnv, file map[string]any) (string, Source, error) {
	if fs.Changed(o.key) {
		f := fs.Lookup(o.key)
		return f.Value.String(), SourceFlag, nil
	}
	if v, ok := lookup(o.env); ok && v != "" {
		return v, SourceEnv, nil
	}
	if o.key == "color" {
		switch {
		case present(lookup, "NO_COLOR"):
			return string(ColorNever), SourceEnv, nil
		case truthy(lookup, "FORCE_COLOR"), truthy(lookup, "CLICOLOR_FORCE"):
			return string(ColorAlways), SourceEnv, nil
		}
	}
	if v, ok := file[o.key]; ok {
		return fmt.Sprint(v), SourceFile, nil
	}
	return o.def, SourceDefault, nil
}

// loadFile finds and reads the config file: the --config flag, then
// LLMTEST_CONFIG, then DefaultFile when it exists.
func loadFile(fs *pflag.FlagSet, lookup LookupEnv) (string, map[string]any, error) {
	path, _ := fs.GetString("config")
	if path == "" {
		path, _ = lookup("LLMTEST_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return "", nil, nil
		}
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, &Error{Key: "config", Err: err}
	}
	values, err := parseFile(data)
	if err != nil {
		return "", nil, &Error{Key: "config", Err: fmt.Errorf("%s: %w", path, err)}
	}
	return path, values, nil
}

func present(lookup LookupEnv, key string) bool {
	v, ok := lookup(key)
	return ok && v != ""
}

// truthy reports whether a flag-like variable is set to something other
// than a false value.
func truthy(lookup LookupEnv, key string) bool {
	v, ok := lookup(key)
	if !ok || v == "" {
		return false
	}
	if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
		return b
	}
	return true
}

// withFallback consults vars for keys the real environment does not set.
func withFallback(lookup LookupEnv, vars map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}
}
