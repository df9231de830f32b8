// Package trace replays recorded key sequences through a processor without a
// keyboard, which makes layer behaviour reproducible from a file.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"keylayers/internal/linux"
	"keylayers/internal/stream"
)

// Trace is the on-disk form:
//
//	name: hold s
//	steps:
//	  - {at_ms: 0, key: j, kind: down}
//	  - {at_ms: 250, key: s, kind: down}
type Trace struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

type Step struct {
	AtMs int64  `yaml:"at_ms"`
	Key  string `yaml:"key"`
	Kind string `yaml:"kind"`
}

// Origin is the timestamp of at_ms 0.
var Origin = time.Unix(0, 0)

func Load(path string) (Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Trace{}, fmt.Errorf("trace: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Trace, error) {
	var tr Trace
	if err := yaml.Unmarshal(data, &tr); err != nil {
		return Trace{}, fmt.Errorf("trace: parse YAML: %w", err)
	}
	if err := tr.Validate(); err != nil {
		return Trace{}, err
	}
	return tr, nil
}

func (tr Trace) Validate() error {
	if len(tr.Steps) == 0 {
		return errors.New("trace: no steps")
	}
	var last int64
	for i, step := range tr.Steps {
		if step.AtMs < last {
			return fmt.Errorf("trace: step %d goes back in time (%dms after %dms)", i+1, step.AtMs, last)
		}
		last = step.AtMs
		if _, err := linux.KeycodeByName(step.Key); err != nil {
			return fmt.Errorf("trace: step %d: %w", i+1, err)
		}
		if _, err := ParseKind(step.Kind); err != nil {
			return fmt.Errorf("trace: step %d: %w", i+1, err)
		}
	}
	return nil
}

func ParseKind(s string) (stream.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down", "press":
		return stream.KeyDown, nil
	case "up", "release":
		return stream.KeyUp, nil
	default:
		return stream.KeyDown, fmt.Errorf("unknown key kind %q", s)
	}
}

// Emitted is one event that reached the output.
type Emitted struct {
	Code uint16
	Kind stream.Kind
}

func (e Emitted) String() string {
	return linux.KeyName(e.Code) + "-" + e.Kind.String()
}

// Outcome is what a single delivered event produced.
type Outcome struct {
	Step     Step
	Decision string
	Output   []Emitted
}

// Replay delivers every step to p in order. The processor should be fresh:
// replaying the same trace into equal processors gives equal outcomes.
func Replay(p stream.Processor, tr Trace) ([]Outcome, error) {
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	outcomes := make([]Outcome, 0, len(tr.Steps))
	for _, step := range tr.Steps {
		code, _ := linux.KeycodeByName(step.Key)
		kind, _ := ParseKind(step.Kind)
		at := Origin.Add(time.Duration(step.AtMs) * time.Millisecond)

		decision, out, err := Deliver(p, at, kind, code)
		if err != nil {
			return outcomes, fmt.Errorf("trace: step at %dms: %w", step.AtMs, err)
		}
		outcomes = append(outcomes, Outcome{Step: step, Decision: decision.String(), Output: out})
	}
	return outcomes, nil
}

// Deliver runs one event through p and returns the decision together with
// everything that reached the output: posted events first, then the current
// event or its replacement.
func Deliver(p stream.Processor, at time.Time, kind stream.Kind, code uint16) (stream.Decision, []Emitted, error) {
	rec := &Recorder{}
	current := &Key{Code: code, Kind: kind}
	handle := stream.NewHandle(rec, current)
	decision := p.Process(at, kind, current, handle)
	if !handle.Consumed() {
		return decision, rec.Events, errors.New("processor returned without a decision")
	}
	if err := handle.Err(); err != nil {
		return decision, rec.Events, err
	}

	switch decision.Action {
	case stream.Pass:
		rec.Events = append(rec.Events, current.emitted())
	case stream.Override:
		replacement, ok := decision.Replacement.(*Key)
		if !ok {
			return decision, rec.Events, errForeign
		}
		rec.Events = append(rec.Events, replacement.emitted())
	}
	return decision, rec.Events, nil
}

// Format writes one line per outcome.
func Format(w io.Writer, name string, outcomes []Outcome) error {
	if name != "" {
		if _, err := fmt.Fprintf(w, "# %s\n", name); err != nil {
			return err
		}
	}
	for _, o := range outcomes {
		out := make([]string, len(o.Output))
		for i, ev := range o.Output {
			out[i] = ev.String()
		}
		emitted := strings.Join(out, " ")
		if emitted == "" {
			emitted = "-"
		}
		if _, err := fmt.Fprintf(w, "%6dms  %-6s %-4s  %-5s -> %s\n",
			o.Step.AtMs, strings.ToLower(o.Step.Key), strings.ToLower(o.Step.Kind), o.Decision, emitted); err != nil {
			return err
		}
	}
	return nil
}
