// Package automation is the GUI-automation capability consumed by the
// resolution engine: keyboard, pointer, application and browser primitives.
// The engine only ever talks to the Controller interface; failures are
// always treated as non-fatal by callers and logged, never propagated.
package automation

import "context"

type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Controller is the automation capability interface. Each call either
// performs its side effect or returns an implementation-defined error.
type Controller interface {
	PressKey(ctx context.Context, name string) error
	Hotkey(ctx context.Context, names ...string) error
	MoveTo(ctx context.Context, x, y int) error
	Click(ctx context.Context, button Button, count int) error
	TypeText(ctx context.Context, text string) error
	OpenApplication(ctx context.Context, name string) error
	CloseApplication(ctx context.Context, name string) error
	TakeScreenshot(ctx context.Context, path string) error
	SearchWeb(ctx context.Context, query string) error
}

// Searcher performs a web search in a real browser. The Desktop controller
// uses one when configured, falling back to the system URL opener.
type Searcher interface {
	Search(ctx context.Context, url string) error
}
