// Package ocrtest provides a scripted ocr.Runner for tests.
package ocrtest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// PNGHeader is written as the content of fake rendered pages.
var PNGHeader = []byte("\x89PNG\r\n\x1a\n")

// Handler answers one command invocation.
type Handler func(ctx context.Context, args []string) (stdout, stderr []byte, err error)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// FakeRunner dispatches commands to handlers by binary name and records every
// call. Commands without a handler fail like a missing binary.
type FakeRunner struct {
	Handlers map[string]Handler

	mu    sync.Mutex
	calls []Call
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Handlers: map[string]Handler{}}
}

// Handle registers h for name and returns the runner.
func (f *FakeRunner) Handle(name string, h Handler) *FakeRunner {
	f.Handlers[name] = h
	return f
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	h, ok := f.Handlers[name]
	if !ok {
		return nil, nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return h(ctx, args)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many times name was invoked.
func (f *FakeRunner) CallCount(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Pdftoppm renders a fake PNG at "<prefix>.png", prefix being the last argument.
func Pdftoppm() Handler {
	return func(_ context.Context, args []string) ([]byte, []byte, error) {
		if len(args) == 0 {
			return nil, []byte("missing prefix"), fmt.Errorf("pdftoppm: no arguments")
		}
		prefix := args[len(args)-1]
		if err := os.WriteFile(prefix+".png", PNGHeader, 0o644); err != nil {
			return nil, []byte(err.Error()), err
		}
		return nil, nil, nil
	}
}

// Tesseract answers text for plain runs and tsv when the last argument is "tsv".
func Tesseract(text, tsv string) Handler {
	return func(_ context.Context, args []string) ([]byte, []byte, error) {
		if len(args) > 0 && args[len(args)-1] == "tsv" {
			return []byte(tsv), nil, nil
		}
		return []byte(text), nil, nil
	}
}

// Blocking waits for ctx to end, like a hung engine.
func Blocking() Handler {
	return func(ctx context.Context, _ []string) ([]byte, []byte, error) {
		<-ctx.Done()
		return nil, []byte("killed"), ctx.Err()
	}
}

// Failing exits with err and stderr.
func Failing(stderr string, err error) Handler {
	return func(context.Context, []string) ([]byte, []byte, error) {
		return nil, []byte(stderr), err
	}
}

// TSV builds tesseract TSV output with one word row per confidence.
func TSV(confs ...float64) string {
	var b strings.Builder
	b.WriteString("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n")
	b.WriteString("1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n")
	for i, c := range confs {
		fmt.Fprintf(&b, "5\t1\t1\t1\t1\t%d\t10\t10\t20\t10\t%g\tword%d\n", i+1, c, i)
	}
	return b.String()
}
