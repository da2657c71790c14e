package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/petrijr/timeflow"
	"github.com/petrijr/timeflow/pkg/duration"
)

// BuildOption configures Build.
type BuildOption func(*builder)

// WithSay receives the expanded say text of every action that has one.
// "{tick}" and "{pass}" in the text are replaced with the repeat tick and
// the number of completed passes.
func WithSay(fn func(msg string)) BuildOption {
	return func(b *builder) { b.say = fn }
}

// WithGetenv replaces os.Getenv for env conditions.
func WithGetenv(fn func(string) string) BuildOption {
	return func(b *builder) { b.getenv = fn }
}

type builder struct {
	tl     *timeflow.Timeline
	say    func(string)
	getenv func(string) string
}

// Build validates s and appends its steps to tl. tl should be freshly
// created; its loop and start label are taken from the script.
func Build(s *Script, tl *timeflow.Timeline, opts ...BuildOption) error {
	if err := s.Validate(); err != nil {
		return err
	}

	b := &builder{tl: tl, say: func(string) {}, getenv: os.Getenv}
	for _, opt := range opts {
		opt(b)
	}

	for _, st := range s.Steps {
		b.step(st)
	}

	if s.Loop != 0 {
		tl.Loop(s.Loop)
	}
	if s.StartAt != "" {
		tl.JumpTo(s.StartAt)
	}
	return nil
}

func (b *builder) step(st Step) {
	tl := b.tl

	if st.Label != "" {
		tl.Label(st.Label)
		return
	}

	if st.If != nil {
		tl.If(b.cond(st.If))
	}
	if st.Unless != nil {
		tl.Unless(b.cond(st.Unless))
	}

	act := func(tick int) {
		if st.Say != "" {
			b.say(b.expand(st.Say, tick))
		}
		if st.Jump != "" {
			tl.JumpTo(st.Jump)
		}
	}

	switch st.Kind() {
	case "after":
		d, _ := Descriptor(st.After)
		tl.After(d, func() { act(0) })
	case "at":
		tl.After(duration.Cron(st.At), func() { act(0) })
	case "every":
		if st.While != nil {
			tl.While(b.cond(st.While))
		}
		if st.DoWhile != nil {
			tl.DoWhile(b.cond(st.DoWhile))
		}
		d, _ := Descriptor(st.Every)
		tl.EveryN(d, act, st.Times)
	}
}

// cond evaluates c against the timeline's pass and the active repeat step's
// tick count.
func (b *builder) cond(c *Condition) timeflow.Condition {
	return func() bool {
		if c.PassBelow != nil && b.tl.Pass() >= *c.PassBelow {
			return false
		}
		if c.TicksBelow != nil && b.tl.Ticks() >= *c.TicksBelow {
			return false
		}
		if c.Env != "" && b.getenv(c.Env) == "" {
			return false
		}
		return true
	}
}

func (b *builder) expand(msg string, tick int) string {
	return strings.NewReplacer(
		"{tick}", strconv.Itoa(tick),
		"{pass}", strconv.Itoa(b.tl.Pass()),
	).Replace(msg)
}
