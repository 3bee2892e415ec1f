package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpetrov/marvin/pkg/automation"
)

// fakeController records every automation call as a readable string.
type fakeController struct {
	calls []string
	fail  bool
}

func (f *fakeController) record(call string) error {
	if f.fail {
		return errors.New("automation offline")
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeController) PressKey(_ context.Context, name string) error {
	return f.record("press:" + name)
}

func (f *fakeController) Hotkey(_ context.Context, names ...string) error {
	call := "hotkey:"
	for i, n := range names {
		if i > 0 {
			call += "+"
		}
		call += n
	}
	return f.record(call)
}

func (f *fakeController) MoveTo(_ context.Context, x, y int) error {
	return f.record(fmt.Sprintf("move:%d,%d", x, y))
}

func (f *fakeController) Click(_ context.Context, button automation.Button, count int) error {
	return f.record(fmt.Sprintf("click:%s,%d", button, count))
}

func (f *fakeController) TypeText(_ context.Context, text string) error {
	return f.record("type:" + text)
}

func (f *fakeController) OpenApplication(_ context.Context, name string) error {
	return f.record("open:" + name)
}

func (f *fakeController) CloseApplication(_ context.Context, name string) error {
	return f.record("close:" + name)
}

func (f *fakeController) TakeScreenshot(_ context.Context, path string) error {
	return f.record("screenshot:" + path)
}

func (f *fakeController) SearchWeb(_ context.Context, query string) error {
	return f.record("search:" + query)
}

// fakeSolver counts calls and returns a canned answer or error.
type fakeSolver struct {
	answer string
	err    error
	calls  int
}

func (f *fakeSolver) Ask(context.Context, string) (string, error) {
	f.calls++
	return f.answer, f.err
}
