// Package config loads station and course-set configuration from YAML,
// the same library (gopkg.in/yaml.v3) the reference driver uses for its own
// auxiliary data files: a flat read, unmarshal-into-tagged-structs, validate
// pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sireader/core/course"
)

// Station holds the serial connection settings for one master station.
type Station struct {
	Device       string `yaml:"device"`
	InitialBaud  int    `yaml:"initial_baud"`
	FallbackBaud int    `yaml:"fallback_baud"`
}

// CourseDef is one course as written in YAML: a list of control codes, a
// display name, and Inline, which selects ordered (true) or score (false)
// validation.
type CourseDef struct {
	Name     string   `yaml:"name"`
	Controls []uint16 `yaml:"controls"`
	Inline   bool     `yaml:"inline"`
}

// Config is the top-level shape of a sireader YAML config file.
type Config struct {
	Station  Station     `yaml:"station"`
	ZeroHour string      `yaml:"zero_hour"`
	Courses  []CourseDef `yaml:"courses"`
}

// DefaultConfig mirrors the conservative defaults a fresh install ships
// with: auto-fallback from 38400 to 4800 baud, midnight of the current day
// as the zero hour, and no courses (auto-detect has nothing to pick from
// until the operator adds some).
func DefaultConfig() Config {
	return Config{
		Station: Station{
			InitialBaud:  38400,
			FallbackBaud: 4800,
		},
	}
}

// Load reads and validates a YAML config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the config is internally consistent enough to run with.
func (c Config) Validate() error {
	if c.Station.Device == "" {
		return fmt.Errorf("station.device is required")
	}
	seen := make(map[string]bool, len(c.Courses))
	for _, cd := range c.Courses {
		if cd.Name == "" {
			return fmt.Errorf("course with empty name")
		}
		if seen[cd.Name] {
			return fmt.Errorf("duplicate course name %q", cd.Name)
		}
		seen[cd.Name] = true
		if len(cd.Controls) == 0 {
			return fmt.Errorf("course %q has no controls", cd.Name)
		}
	}
	return nil
}

// CourseSet converts the config's course definitions into course.Course values.
func (c Config) CourseSet() []course.Course {
	out := make([]course.Course, len(c.Courses))
	for i, cd := range c.Courses {
		out[i] = course.Course{Name: cd.Name, Controls: cd.Controls, Inline: cd.Inline}
	}
	return out
}

// ZeroHourMillis parses ZeroHour ("15:04:05" local time) into milliseconds
// since local midnight — the same timebase the card decoders' raw
// start/finish/check/punch words are in — or returns 0 (midnight itself)
// if it is unset. now is only consulted for its location, never its date:
// card.AdvancePastReference compares this against card-relative offsets,
// not wall-clock time, so an absolute (epoch or date-bearing) timestamp
// here would desynchronize every decoded time from the card's own clock.
func (c Config) ZeroHourMillis(now time.Time) (int64, error) {
	if c.ZeroHour == "" {
		return 0, nil
	}

	t, err := time.ParseInLocation("15:04:05", c.ZeroHour, now.Location())
	if err != nil {
		return 0, fmt.Errorf("config: invalid zero_hour %q: %w", c.ZeroHour, err)
	}
	return int64(t.Hour())*3_600_000 + int64(t.Minute())*60_000 + int64(t.Second())*1_000, nil
}
