// Package resolve is the adaptive command-resolution engine: the pipeline
// that decides what to do when a command does not match any built-in. It
// checks the knowledge store for a learned answer, falls back to substring
// similarity, tries rule-based heuristics, and finally asks the external
// solver gateway and persists whatever it learns.
//
// Solver answers are never evaluated as live code. Fenced fragments are
// parsed into the closed Action set below; anything unmappable stays
// text-only and is reported back to the user instead of executed.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/mpetrov/marvin/pkg/automation"
)

// Action is one executable automation step.
type Action interface {
	Do(ctx context.Context, auto automation.Controller) error
	String() string
}

// KeyChord presses a single key, or a modifier chord when Keys has more
// than one entry.
type KeyChord struct {
	Keys []string
}

func (a KeyChord) Do(ctx context.Context, auto automation.Controller) error {
	if len(a.Keys) == 1 {
		return auto.PressKey(ctx, a.Keys[0])
	}
	return auto.Hotkey(ctx, a.Keys...)
}

func (a KeyChord) String() string {
	return "key " + strings.Join(a.Keys, "+")
}

type PointerMove struct {
	X, Y int
}

func (a PointerMove) Do(ctx context.Context, auto automation.Controller) error {
	return auto.MoveTo(ctx, a.X, a.Y)
}

func (a PointerMove) String() string {
	return fmt.Sprintf("move to %d,%d", a.X, a.Y)
}

type ClickAction struct {
	Button automation.Button
	Count  int
}

func (a ClickAction) Do(ctx context.Context, auto automation.Controller) error {
	return auto.Click(ctx, a.Button, a.Count)
}

func (a ClickAction) String() string {
	return fmt.Sprintf("%s click x%d", a.Button, a.Count)
}

type TypeText struct {
	Text string
}

func (a TypeText) Do(ctx context.Context, auto automation.Controller) error {
	return auto.TypeText(ctx, a.Text)
}

func (a TypeText) String() string {
	return fmt.Sprintf("type %q", a.Text)
}

type OpenApp struct {
	Name string
}

func (a OpenApp) Do(ctx context.Context, auto automation.Controller) error {
	return auto.OpenApplication(ctx, a.Name)
}

func (a OpenApp) String() string {
	return "open " + a.Name
}

type CloseApp struct {
	Name string
}

func (a CloseApp) Do(ctx context.Context, auto automation.Controller) error {
	return auto.CloseApplication(ctx, a.Name)
}

func (a CloseApp) String() string {
	return "close " + a.Name
}

type Search struct {
	Query string
}

func (a Search) Do(ctx context.Context, auto automation.Controller) error {
	return auto.SearchWeb(ctx, a.Query)
}

func (a Search) String() string {
	return fmt.Sprintf("search %q", a.Query)
}

type Screenshot struct {
	Path string
}

func (a Screenshot) Do(ctx context.Context, auto automation.Controller) error {
	return auto.TakeScreenshot(ctx, a.Path)
}

func (a Screenshot) String() string {
	return "screenshot " + a.Path
}
