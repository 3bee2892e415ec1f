package automation

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/mpetrov/marvin/pkg/logger"
)

// runFunc executes an external command. Injected so tests can capture the
// command lines without touching a display server.
type runFunc func(ctx context.Context, name string, args ...string) error

// Desktop drives the local desktop through OS tooling: xdotool and scrot on
// Linux, osascript/cliclick and screencapture on macOS, a SendKeys shim on
// Windows. It is the default Controller implementation.
type Desktop struct {
	apps         map[string]string
	searchEngine string
	timeout      time.Duration
	goos         string
	run          runFunc
	searcher     Searcher
}

type DesktopOptions struct {
	// Applications maps spoken names to launch commands.
	Applications map[string]string
	// SearchEngine is a URL prefix the query is appended to.
	SearchEngine string
	// CommandTimeout bounds each external tool invocation.
	CommandTimeout time.Duration
	// Searcher, when set, handles SearchWeb instead of the system opener.
	Searcher Searcher
}

func NewDesktop(opts DesktopOptions) *Desktop {
	if opts.SearchEngine == "" {
		opts.SearchEngine = "https://duckduckgo.com/?q="
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 15 * time.Second
	}
	d := &Desktop{
		apps:         opts.Applications,
		searchEngine: opts.SearchEngine,
		timeout:      opts.CommandTimeout,
		goos:         runtime.GOOS,
		searcher:     opts.Searcher,
	}
	d.run = d.execRun
	return d
}

func (d *Desktop) execRun(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// keysyms maps engine key names to X11 keysyms. Names not listed pass
// through unchanged, which covers letters, digits and f-keys.
var keysyms = map[string]string{
	"enter":     "Return",
	"esc":       "Escape",
	"escape":    "Escape",
	"space":     "space",
	"tab":       "Tab",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"win":       "super",
	"ctrl":      "ctrl",
	"alt":       "alt",
	"shift":     "shift",
}

func keysym(name string) string {
	if sym, ok := keysyms[strings.ToLower(name)]; ok {
		return sym
	}
	return name
}

// macKeycodes covers the named keys osascript's `key code` needs; letters go
// through `keystroke` instead.
var macKeycodes = map[string]int{
	"enter":     36,
	"esc":       53,
	"escape":    53,
	"space":     49,
	"tab":       48,
	"backspace": 51,
	"delete":    117,
	"up":        126,
	"down":      125,
	"left":      123,
	"right":     124,
	"home":      115,
	"end":       119,
	"pageup":    116,
	"pagedown":  121,
}

func (d *Desktop) PressKey(ctx context.Context, name string) error {
	switch d.goos {
	case "linux":
		return d.run(ctx, "xdotool", "key", keysym(name))
	case "darwin":
		if code, ok := macKeycodes[strings.ToLower(name)]; ok {
			return d.run(ctx, "osascript", "-e",
				fmt.Sprintf(`tell application "System Events" to key code %d`, code))
		}
		return d.run(ctx, "osascript", "-e",
			fmt.Sprintf(`tell application "System Events" to keystroke %q`, name))
	case "windows":
		return d.sendKeys(ctx, windowsKeyToken(name))
	default:
		return fmt.Errorf("key press not supported on %s", d.goos)
	}
}

func (d *Desktop) Hotkey(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return fmt.Errorf("empty hotkey")
	}
	switch d.goos {
	case "linux":
		syms := make([]string, len(names))
		for i, n := range names {
			syms[i] = keysym(n)
		}
		return d.run(ctx, "xdotool", "key", strings.Join(syms, "+"))
	case "darwin":
		key := names[len(names)-1]
		var mods []string
		for _, n := range names[:len(names)-1] {
			switch strings.ToLower(n) {
			case "ctrl", "control":
				mods = append(mods, "control down")
			case "alt", "option":
				mods = append(mods, "option down")
			case "shift":
				mods = append(mods, "shift down")
			case "win", "cmd", "command":
				mods = append(mods, "command down")
			}
		}
		script := fmt.Sprintf(`tell application "System Events" to keystroke %q using {%s}`,
			key, strings.Join(mods, ", "))
		return d.run(ctx, "osascript", "-e", script)
	case "windows":
		var b strings.Builder
		for _, n := range names[:len(names)-1] {
			switch strings.ToLower(n) {
			case "ctrl", "control":
				b.WriteString("^")
			case "alt":
				b.WriteString("%")
			case "shift":
				b.WriteString("+")
			}
		}
		b.WriteString(windowsKeyToken(names[len(names)-1]))
		return d.sendKeys(ctx, b.String())
	default:
		return fmt.Errorf("hotkey not supported on %s", d.goos)
	}
}

func (d *Desktop) MoveTo(ctx context.Context, x, y int) error {
	switch d.goos {
	case "linux":
		return d.run(ctx, "xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y))
	case "darwin":
		return d.run(ctx, "cliclick", fmt.Sprintf("m:%d,%d", x, y))
	default:
		return fmt.Errorf("pointer move not supported on %s", d.goos)
	}
}

func (d *Desktop) Click(ctx context.Context, button Button, count int) error {
	if count < 1 {
		count = 1
	}
	switch d.goos {
	case "linux":
		btn := "1"
		switch button {
		case ButtonRight:
			btn = "3"
		case ButtonMiddle:
			btn = "2"
		}
		return d.run(ctx, "xdotool", "click", "--repeat", strconv.Itoa(count), btn)
	case "darwin":
		op := "c"
		if button == ButtonRight {
			op = "rc"
		} else if count > 1 {
			op = "dc"
			count = 1
		}
		args := make([]string, count)
		for i := range args {
			args[i] = op + ":."
		}
		return d.run(ctx, "cliclick", args...)
	default:
		return fmt.Errorf("click not supported on %s", d.goos)
	}
}

func (d *Desktop) TypeText(ctx context.Context, text string) error {
	switch d.goos {
	case "linux":
		return d.run(ctx, "xdotool", "type", "--delay", "40", text)
	case "darwin":
		return d.run(ctx, "osascript", "-e",
			fmt.Sprintf(`tell application "System Events" to keystroke %q`, text))
	case "windows":
		return d.sendKeys(ctx, sendKeysEscape(text))
	default:
		return fmt.Errorf("typing not supported on %s", d.goos)
	}
}

// resolveApp maps a spoken name to its launch command; unmapped names launch
// as said, which works for anything on PATH.
func (d *Desktop) resolveApp(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if cmd, ok := d.apps[key]; ok {
		return cmd
	}
	return key
}

func (d *Desktop) OpenApplication(ctx context.Context, name string) error {
	cmd := d.resolveApp(name)
	logger.DebugCF("automation", "Launching application", map[string]interface{}{
		"name":    name,
		"command": cmd,
	})
	switch d.goos {
	case "linux":
		return d.run(ctx, "sh", "-c", cmd+" >/dev/null 2>&1 &")
	case "darwin":
		return d.run(ctx, "open", "-a", cmd)
	case "windows":
		return d.run(ctx, "cmd", "/c", "start", "", cmd)
	default:
		return fmt.Errorf("launching not supported on %s", d.goos)
	}
}

func (d *Desktop) CloseApplication(ctx context.Context, name string) error {
	cmd := d.resolveApp(name)
	switch d.goos {
	case "linux":
		return d.run(ctx, "pkill", "-f", cmd)
	case "darwin":
		return d.run(ctx, "osascript", "-e", fmt.Sprintf(`tell application %q to quit`, cmd))
	case "windows":
		return d.run(ctx, "taskkill", "/IM", cmd+".exe", "/F")
	default:
		return fmt.Errorf("closing not supported on %s", d.goos)
	}
}

func (d *Desktop) TakeScreenshot(ctx context.Context, path string) error {
	switch d.goos {
	case "linux":
		return d.run(ctx, "scrot", path)
	case "darwin":
		return d.run(ctx, "screencapture", "-x", path)
	default:
		return fmt.Errorf("screenshots not supported on %s", d.goos)
	}
}

func (d *Desktop) SearchWeb(ctx context.Context, query string) error {
	target := d.searchEngine + url.QueryEscape(query)
	if d.searcher != nil {
		return d.searcher.Search(ctx, target)
	}
	return d.OpenURL(ctx, target)
}

// OpenURL opens the URL in the system default browser.
func (d *Desktop) OpenURL(ctx context.Context, target string) error {
	switch d.goos {
	case "linux":
		return d.run(ctx, "xdg-open", target)
	case "darwin":
		return d.run(ctx, "open", target)
	case "windows":
		return d.run(ctx, "rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return fmt.Errorf("opening URLs not supported on %s", d.goos)
	}
}

func (d *Desktop) sendKeys(ctx context.Context, keys string) error {
	script := fmt.Sprintf(
		`$w = New-Object -ComObject WScript.Shell; $w.SendKeys(%q)`, keys)
	return d.run(ctx, "powershell", "-NoProfile", "-Command", script)
}

// windowsKeyToken converts an engine key name to SendKeys notation.
func windowsKeyToken(name string) string {
	switch strings.ToLower(name) {
	case "enter":
		return "{ENTER}"
	case "esc", "escape":
		return "{ESC}"
	case "tab":
		return "{TAB}"
	case "space":
		return " "
	case "backspace":
		return "{BACKSPACE}"
	case "delete":
		return "{DELETE}"
	case "up":
		return "{UP}"
	case "down":
		return "{DOWN}"
	case "left":
		return "{LEFT}"
	case "right":
		return "{RIGHT}"
	case "home":
		return "{HOME}"
	case "end":
		return "{END}"
	case "pageup":
		return "{PGUP}"
	case "pagedown":
		return "{PGDN}"
	default:
		return sendKeysEscape(name)
	}
}

// sendKeysEscape quotes characters SendKeys treats as operators.
func sendKeysEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '+', '^', '%', '~', '(', ')', '{', '}', '[', ']':
			b.WriteString("{" + string(r) + "}")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
