// Package config reads timeline scripts: YAML files describing a timeline
// that the timeflow CLI builds and runs.
//
//	name: heartbeat
//	loop: 3
//	log:
//	  level: debug
//	steps:
//	  - after: 500ms
//	    say: "connecting"
//	  - label: poll
//	  - every: 1s
//	    times: 5
//	    say: "poll {tick}"
//	    while: { env: POLLING }
//	  - after: 2s
//	    jump: poll
//	    if: { pass_below: 2 }
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petrijr/timeflow/pkg/duration"
	"github.com/petrijr/timeflow/pkg/logx"
)

// LoopForever as a script's loop value repeats the timeline until it is
// cancelled.
const LoopForever = -1

// Script is the top-level script document.
type Script struct {
	Name string `yaml:"name"`
	// Loop is the number of passes. 0 runs the steps once without looping,
	// LoopForever repeats until cancelled.
	Loop int `yaml:"loop"`
	// StartAt names the label the first pass starts from.
	StartAt string    `yaml:"start_at"`
	Log     LogConfig `yaml:"log"`
	Steps   []Step    `yaml:"steps"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

// Step is one script entry. Exactly one of After, Every, At or Label is set.
type Step struct {
	After string `yaml:"after"`
	Every string `yaml:"every"`
	Times int    `yaml:"times"`
	At    string `yaml:"at"`
	Label string `yaml:"label"`

	Say  string `yaml:"say"`
	Jump string `yaml:"jump"`

	If      *Condition `yaml:"if"`
	Unless  *Condition `yaml:"unless"`
	While   *Condition `yaml:"while"`
	DoWhile *Condition `yaml:"do_while"`
}

// Condition holds when every field that is set holds.
type Condition struct {
	// PassBelow holds while fewer than N loop passes have completed.
	PassBelow *int `yaml:"pass_below"`
	// TicksBelow holds while the repeat step has run fewer than N actions
	// since it was dispatched. Only valid in while and do_while.
	TicksBelow *int `yaml:"ticks_below"`
	// Env holds when the named environment variable is non-empty.
	Env string `yaml:"env"`
}

// Kind reports which kind of step s is: "after", "every", "at", "label", or
// "" when none or several are set.
func (s Step) Kind() string {
	kind := ""
	for _, k := range []struct {
		name string
		set  bool
	}{
		{"after", s.After != ""},
		{"every", s.Every != ""},
		{"at", s.At != ""},
		{"label", s.Label != ""},
	} {
		if !k.set {
			continue
		}
		if kind != "" {
			return ""
		}
		kind = k.name
	}
	return kind
}

// Logx converts the script's log settings into a logx configuration.
func (l LogConfig) Logx() logx.Config {
	level := l.Level
	if level == "" {
		level = "info"
	}
	return logx.Config{
		Level:   level,
		Console: l.Console || l.File == "",
		File: logx.FileConfig{
			Enabled: l.File != "",
			Path:    l.File,
		},
	}
}

// Load reads and validates the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a script. Unknown keys are rejected.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("yaml decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every problem found in the script.
func (s *Script) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(s.Steps) == 0 {
		fail("steps: at least one step is required")
	}
	if s.Loop < LoopForever {
		fail("loop: must be >= %d, got %d", LoopForever, s.Loop)
	}
	if s.Log.Level != "" && !validLevel(s.Log.Level) {
		fail("log.level: unknown level %q", s.Log.Level)
	}

	labels := make(map[string]bool)
	for _, st := range s.Steps {
		if st.Label == "" {
			continue
		}
		if labels[st.Label] {
			fail("label %q declared twice", st.Label)
		}
		labels[st.Label] = true
	}

	if s.StartAt != "" && !labels[s.StartAt] {
		fail("start_at: unknown label %q", s.StartAt)
	}

	for i, st := range s.Steps {
		at := func(format string, args ...any) {
			fail("steps[%d]: "+format, append([]any{i}, args...)...)
		}

		kind := st.Kind()
		switch kind {
		case "":
			at("exactly one of after, every, at or label is required")
			continue
		case "after":
			if _, err := Descriptor(st.After); err != nil {
				at("after: %v", err)
			}
		case "every":
			if _, err := Descriptor(st.Every); err != nil {
				at("every: %v", err)
			}
		case "at":
			if _, err := duration.Cron(st.At).Resolve(time.Now()); err != nil {
				at("at: %v", err)
			}
		case "label":
			if st.Say != "" || st.Jump != "" {
				at("label steps take no say or jump")
			}
		}

		if st.Times < 0 {
			at("times: must be >= 0")
		}
		if st.Times != 0 && kind != "every" {
			at("times: only valid on every steps")
		}
		if (st.While != nil || st.DoWhile != nil) && kind != "every" {
			at("while and do_while are only valid on every steps")
		}
		if st.Jump != "" && !labels[st.Jump] {
			at("jump: unknown label %q", st.Jump)
		}

		for _, c := range []struct {
			name  string
			cond  *Condition
			ticks bool
		}{
			{"if", st.If, false},
			{"unless", st.Unless, false},
			{"while", st.While, true},
			{"do_while", st.DoWhile, true},
		} {
			if c.cond == nil {
				continue
			}
			if err := c.cond.validate(c.ticks); err != nil {
				at("%s: %v", c.name, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Condition) validate(ticks bool) error {
	if c.PassBelow == nil && c.TicksBelow == nil && c.Env == "" {
		return errors.New("empty condition")
	}
	if c.TicksBelow != nil && !ticks {
		return errors.New("ticks_below is only valid in while and do_while")
	}
	if c.PassBelow != nil && *c.PassBelow < 0 {
		return errors.New("pass_below must be >= 0")
	}
	if c.TicksBelow != nil && *c.TicksBelow < 0 {
		return errors.New("ticks_below must be >= 0")
	}
	return nil
}

// Descriptor converts a script duration into a duration descriptor. Bare
// numbers are milliseconds; everything else goes through duration.Parse.
func Descriptor(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseFloat(raw, 64); err == nil {
		if _, err := duration.Parse(ms); err != nil {
			return nil, err
		}
		return ms, nil
	}
	if _, err := duration.Parse(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func validLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
