package automation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type recordedCommand struct {
	name string
	args []string
}

func newRecordedDesktop(goos string) (*Desktop, *[]recordedCommand) {
	d := NewDesktop(DesktopOptions{
		Applications: map[string]string{"notepad": "gedit"},
	})
	d.goos = goos

	var calls []recordedCommand
	d.run = func(_ context.Context, name string, args ...string) error {
		calls = append(calls, recordedCommand{name: name, args: args})
		return nil
	}
	return d, &calls
}

func TestDesktopLinuxKeys(t *testing.T) {
	d, calls := newRecordedDesktop("linux")
	ctx := context.Background()

	if err := d.PressKey(ctx, "enter"); err != nil {
		t.Fatal(err)
	}
	if err := d.Hotkey(ctx, "ctrl", "alt", "t"); err != nil {
		t.Fatal(err)
	}

	got := *calls
	if len(got) != 2 {
		t.Fatalf("calls = %+v", got)
	}
	if got[0].name != "xdotool" || got[0].args[1] != "Return" {
		t.Errorf("press = %+v", got[0])
	}
	if got[1].args[1] != "ctrl+alt+t" {
		t.Errorf("hotkey = %+v", got[1])
	}
}

func TestDesktopKeysymMapping(t *testing.T) {
	cases := map[string]string{
		"pageup":    "Prior",
		"pagedown":  "Next",
		"backspace": "BackSpace",
		"win":       "super",
		"a":         "a",
		"f5":        "f5",
	}
	for name, want := range cases {
		if got := keysym(name); got != want {
			t.Errorf("keysym(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestDesktopLinuxPointer(t *testing.T) {
	d, calls := newRecordedDesktop("linux")
	ctx := context.Background()

	d.MoveTo(ctx, 100, 250)
	d.Click(ctx, ButtonRight, 1)
	d.Click(ctx, ButtonLeft, 2)

	got := *calls
	if len(got) != 3 {
		t.Fatalf("calls = %+v", got)
	}
	if strings.Join(got[0].args, " ") != "mousemove 100 250" {
		t.Errorf("move = %+v", got[0])
	}
	if strings.Join(got[1].args, " ") != "click --repeat 1 3" {
		t.Errorf("right click = %+v", got[1])
	}
	if strings.Join(got[2].args, " ") != "click --repeat 2 1" {
		t.Errorf("double click = %+v", got[2])
	}
}

func TestDesktopApplicationTable(t *testing.T) {
	d, calls := newRecordedDesktop("linux")

	d.OpenApplication(context.Background(), "Notepad")

	got := *calls
	if len(got) != 1 || got[0].name != "sh" {
		t.Fatalf("calls = %+v", got)
	}
	if !strings.Contains(got[0].args[1], "gedit") {
		t.Errorf("launch table not applied: %+v", got[0])
	}
}

func TestDesktopSearchWebEscapesQuery(t *testing.T) {
	d, calls := newRecordedDesktop("linux")

	d.SearchWeb(context.Background(), "go testing & more")

	got := *calls
	if len(got) != 1 || got[0].name != "xdg-open" {
		t.Fatalf("calls = %+v", got)
	}
	target := got[0].args[0]
	if !strings.HasPrefix(target, "https://duckduckgo.com/?q=") {
		t.Errorf("target = %q", target)
	}
	if strings.Contains(target, " ") || strings.Contains(target, "&m") {
		t.Errorf("query not escaped: %q", target)
	}
}

type stubSearcher struct {
	urls []string
}

func (s *stubSearcher) Search(_ context.Context, url string) error {
	s.urls = append(s.urls, url)
	return nil
}

func TestDesktopSearchWebPrefersSearcher(t *testing.T) {
	searcher := &stubSearcher{}
	d := NewDesktop(DesktopOptions{Searcher: searcher})
	d.goos = "linux"
	d.run = func(context.Context, string, ...string) error {
		return errors.New("should not shell out")
	}

	if err := d.SearchWeb(context.Background(), "cats"); err != nil {
		t.Fatal(err)
	}
	if len(searcher.urls) != 1 || !strings.Contains(searcher.urls[0], "cats") {
		t.Errorf("urls = %v", searcher.urls)
	}
}

func TestDesktopUnsupportedPlatform(t *testing.T) {
	d, calls := newRecordedDesktop("plan9")

	if err := d.PressKey(context.Background(), "enter"); err == nil {
		t.Error("expected an error on unsupported platforms")
	}
	if len(*calls) != 0 {
		t.Errorf("calls = %+v", *calls)
	}
}

func TestWindowsKeyTokens(t *testing.T) {
	if got := windowsKeyToken("enter"); got != "{ENTER}" {
		t.Errorf("enter = %q", got)
	}
	if got := windowsKeyToken("a"); got != "a" {
		t.Errorf("a = %q", got)
	}
	if got := sendKeysEscape("50%+"); got != "50{%}{+}" {
		t.Errorf("escape = %q", got)
	}
}

func TestDesktopDefaults(t *testing.T) {
	d := NewDesktop(DesktopOptions{})
	if d.searchEngine == "" || d.timeout != 15*time.Second {
		t.Errorf("defaults not applied: %q %v", d.searchEngine, d.timeout)
	}
}
