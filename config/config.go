// Package config resolves llmtest's options from command-line flags, the
// environment, an optional YAML file and built-in defaults, in that order
// of precedence.
package config

import (
	"fmt"
	"regexp"

	"go.uber.org/zap/zapcore"
)

// Source tells where the value of an option came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// ColorMode is the value of the color option.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a color option value.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	}
	return "", fmt.Errorf("must be one of auto, always, never; got %q", s)
}

// Config is the resolved set of options.
type Config struct {
	Input           string
	Output          string
	Color           ColorMode
	Hyperlinks      bool
	Timing          bool
	CoverProfile    string
	CoverageVerbose bool
	Run             string
	Root            string
	Progress        bool
	LogLevel        zapcore.Level
	JSONFile        string
	OutFile         string
	Replay          bool
	Rate            float64

	// Filter is Run compiled, or nil.
	Filter *regexp.Regexp

	// CI is set when the CI environment variable says so.
	CI bool

	// File is the config file that was read, if any.
	File string

	// Sources maps each option key to where its value came from.
	Sources map[string]Source
}

// UseColor decides whether the report is colorized. Reports written to a
// file never are.
func (c *Config) UseColor(stdoutIsTTY bool) bool {
	if c.Output != "" {
		return false
	}
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return stdoutIsTTY && !c.CI
}

// Error is an invalid option. The CLI exits with status 2 for it.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
