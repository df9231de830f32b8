// Package console drives a processor from the terminal so layer behaviour
// can be tried without a grabbed keyboard.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eiannone/keyboard"

	"keylayers/internal/linux"
	"keylayers/internal/stream"
	"keylayers/internal/trace"
)

// Terminals report characters, not key transitions, so each typed key flips
// between down and up: type "j" once to press it and again to release it.
type Simulator struct {
	processor stream.Processor
	out       io.Writer
	held      map[uint16]bool
}

func New(p stream.Processor, out io.Writer) *Simulator {
	return &Simulator{processor: p, out: out, held: make(map[uint16]bool)}
}

// Run reads the terminal until Esc, Ctrl-C or ctx cancellation, then reports
// the keys still toggled down.
func (s *Simulator) Run(ctx context.Context) error {
	keys, err := keyboard.GetKeys(16)
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer keyboard.Close()

	fmt.Fprintln(s.out, "Type a key to press it, type it again to release it. Esc quits.")
	err = s.loop(ctx, keys)
	if rerr := s.report(); err == nil {
		err = rerr
	}
	return err
}

func (s *Simulator) loop(ctx context.Context, keys <-chan keyboard.KeyEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-keys:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return fmt.Errorf("read terminal: %w", ev.Err)
			}
			switch ev.Key {
			case keyboard.KeyEsc, keyboard.KeyCtrlC:
				return nil
			case keyboard.KeySpace:
				ev.Rune = ' '
			}
			if err := s.Feed(ev.Rune, time.Now()); err != nil {
				return err
			}
		}
	}
}

// report names the keys left down, since their releases were never sent.
func (s *Simulator) report() error {
	held := s.Held()
	if len(held) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(s.out, "still down: %s\r\n", strings.Join(held, " "))
	return err
}

// Feed toggles the key behind r and delivers the transition at the given time.
func (s *Simulator) Feed(r rune, at time.Time) error {
	code, ok := linux.KeycodeForRune(r)
	if !ok {
		_, err := fmt.Fprintf(s.out, "%q is not simulated\r\n", r)
		return err
	}

	kind := stream.KeyDown
	if s.held[code] {
		kind = stream.KeyUp
	}
	s.held[code] = kind == stream.KeyDown

	decision, out, err := trace.Deliver(s.processor, at, kind, code)
	if err != nil {
		return err
	}

	emitted := make([]string, len(out))
	for i, ev := range out {
		emitted[i] = ev.String()
	}
	line := strings.Join(emitted, " ")
	if line == "" {
		line = "-"
	}
	// The terminal is in raw mode, so lines need an explicit carriage return.
	_, err = fmt.Fprintf(s.out, "%-6s %-4s %-5s -> %s\r\n", linux.KeyName(code), kind, decision, line)
	return err
}

// Held lists the keys currently toggled down, in keycode order.
func (s *Simulator) Held() []string {
	var names []string
	for code := uint16(0); code <= linux.KeyMax; code++ {
		if s.held[code] {
			names = append(names, linux.KeyName(code))
		}
	}
	return names
}
