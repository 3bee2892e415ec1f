package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/mpetrov/marvin/pkg/automation"
	"github.com/mpetrov/marvin/pkg/logger"
	"github.com/mpetrov/marvin/pkg/memory"
)

// urlOpener is satisfied by the desktop controller; built-ins use it for
// "open website" without widening the automation interface.
type urlOpener interface {
	OpenURL(ctx context.Context, target string) error
}

// Builtins is the fixed command table tried before the resolution engine.
// A hit returns the spoken response; a miss hands the command to the
// engine untouched.
type Builtins struct {
	auto          automation.Controller
	events        *memory.EventLog
	name          string
	screenshotDir string
	now           func() time.Time
}

func NewBuiltins(auto automation.Controller, events *memory.EventLog, name, screenshotDir string) *Builtins {
	if name == "" {
		name = "marvin"
	}
	return &Builtins{
		auto:          auto,
		events:        events,
		name:          name,
		screenshotDir: screenshotDir,
		now:           time.Now,
	}
}

var (
	openWebsiteRe = regexp.MustCompile(`^open website\s+(.+)$`)
	openAppRe     = regexp.MustCompile(`^open\s+(.+)$`)
	closeAppRe    = regexp.MustCompile(`^close\s+(.+)$`)
	searchForRe   = regexp.MustCompile(`^search for\s+(.+)$`)
	typeRe        = regexp.MustCompile(`^type\s+(.+)$`)
	moveMouseRe   = regexp.MustCompile(`^move (?:the )?mouse to\s+(\d+)\s*[, ]\s*(\d+)$`)
	minutesAgoRe  = regexp.MustCompile(`what did i say (\d+) minutes? ago`)
)

var greetings = map[string]bool{
	"hello": true, "hi": true, "hey": true,
	"good morning": true, "good afternoon": true, "good evening": true,
}

// TryHandle runs the command against the built-in table. The returned text
// is the assistant's spoken reply; false means no built-in matched.
func (b *Builtins) TryHandle(ctx context.Context, command string) (string, bool) {
	cmd := strings.ToLower(strings.TrimSpace(command))
	cmd = strings.TrimRight(cmd, ".!?")

	if greetings[cmd] {
		return fmt.Sprintf("Hello. I'm %s, at your service.", b.name), true
	}

	switch cmd {
	case "what time is it", "what's the time", "time":
		return "The current time is " + b.now().Format("3:04 PM"), true
	case "what's the date", "what is the date", "what day is it", "date":
		return "Today is " + b.now().Format("Monday, January 2, 2006"), true
	case "system info", "system information":
		return b.systemInfo(), true
	case "take a screenshot", "screenshot", "capture screen":
		return b.do(ctx, "I've taken a screenshot.",
			func() error { return b.auto.TakeScreenshot(ctx, b.screenshotPath()) })
	case "click":
		return b.do(ctx, "Clicked.",
			func() error { return b.auto.Click(ctx, automation.ButtonLeft, 1) })
	case "double click":
		return b.do(ctx, "Double clicked.",
			func() error { return b.auto.Click(ctx, automation.ButtonLeft, 2) })
	case "right click":
		return b.do(ctx, "Right clicked.",
			func() error { return b.auto.Click(ctx, automation.ButtonRight, 1) })
	}

	if m := minutesAgoRe.FindStringSubmatch(cmd); m != nil {
		return b.recallMinutes(m[1]), true
	}

	if m := moveMouseRe.FindStringSubmatch(cmd); m != nil {
		x, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return b.do(ctx, fmt.Sprintf("Moved the mouse to %d, %d.", x, y),
			func() error { return b.auto.MoveTo(ctx, x, y) })
	}

	if m := searchForRe.FindStringSubmatch(cmd); m != nil {
		query := m[1]
		return b.do(ctx, fmt.Sprintf("Searching for %s.", query),
			func() error { return b.auto.SearchWeb(ctx, query) })
	}

	if m := openWebsiteRe.FindStringSubmatch(cmd); m != nil {
		site := m[1]
		opener, ok := b.auto.(urlOpener)
		if !ok {
			return "", false
		}
		return b.do(ctx, fmt.Sprintf("Opening %s.", site),
			func() error { return opener.OpenURL(ctx, normalizeURL(site)) })
	}

	if m := typeRe.FindStringSubmatch(cmd); m != nil {
		text := strings.Trim(m[1], `'"`)
		return b.do(ctx, "Done typing.",
			func() error { return b.auto.TypeText(ctx, text) })
	}

	if m := openAppRe.FindStringSubmatch(cmd); m != nil {
		app := m[1]
		return b.do(ctx, fmt.Sprintf("Opening %s.", app),
			func() error { return b.auto.OpenApplication(ctx, app) })
	}

	if m := closeAppRe.FindStringSubmatch(cmd); m != nil {
		app := m[1]
		return b.do(ctx, fmt.Sprintf("Closing %s.", app),
			func() error { return b.auto.CloseApplication(ctx, app) })
	}

	return "", false
}

// do runs one automation call and turns failure into an apology instead of
// an error. Built-ins always answer.
func (b *Builtins) do(ctx context.Context, success string, fn func() error) (string, bool) {
	if err := fn(); err != nil {
		logger.WarnCF("agent", "Built-in action failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "I couldn't do that: " + err.Error(), true
	}
	return success, true
}

func (b *Builtins) recallMinutes(arg string) string {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 || b.events == nil {
		return "I don't have anything from back then."
	}
	lines := b.events.ByTimeframe(time.Duration(n) * time.Minute)
	var said []string
	for _, line := range lines {
		if strings.Contains(line, "("+memory.EventUserCommand+")") {
			said = append(said, line)
		}
	}
	if len(said) == 0 {
		return fmt.Sprintf("You didn't say anything in the last %d minutes.", n)
	}
	return "Here's what you said:\n" + strings.Join(said, "\n")
}

func (b *Builtins) systemInfo() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("Running on %s (%s/%s) with %d CPUs.",
		host, runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
}

func (b *Builtins) screenshotPath() string {
	name := fmt.Sprintf("screenshot_%s.png", b.now().Format("20060102_150405"))
	return filepath.Join(b.screenshotDir, name)
}

func normalizeURL(site string) string {
	if strings.HasPrefix(site, "http://") || strings.HasPrefix(site, "https://") {
		return site
	}
	if !strings.Contains(site, ".") {
		site += ".com"
	}
	return "https://" + strings.ReplaceAll(site, " ", "")
}
