package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mpetrov/marvin/pkg/automation"
	"github.com/mpetrov/marvin/pkg/logger"
)

// Synthesizer maps keyword categories in a command onto automation
// primitives with arguments extracted from the command text. The dispatch
// table is an ordered slice; the first category whose keywords match wins,
// and a match with missing arguments falls through without partial
// execution.
type Synthesizer struct {
	auto          automation.Controller
	screenshotDir string
	now           func() time.Time
}

func NewSynthesizer(auto automation.Controller, screenshotDir string) *Synthesizer {
	return &Synthesizer{
		auto:          auto,
		screenshotDir: screenshotDir,
		now:           time.Now,
	}
}

type category struct {
	name     string
	keywords []string
	build    func(s *Synthesizer, command string) (Action, bool)
}

var (
	openArgRe   = regexp.MustCompile(`(?:open|launch|start)\s+(?:the\s+)?(.+)`)
	closeArgRe  = regexp.MustCompile(`(?:close|exit|quit)\s+(?:the\s+)?(.+)`)
	searchArgRe = regexp.MustCompile(`(?:search(?:\s+for)?|look up|find)\s+(.+)`)
	quotedRe    = regexp.MustCompile(`['"](.+?)['"]`)
	typeArgRe   = regexp.MustCompile(`(?:type|write|input)\s+(.+)`)
	dragArgRe   = regexp.MustCompile(`(?:to|at)\s+(\d+)\s*[, ]\s*(\d+)`)
)

// categories is the fixed dispatch table. Order is the tie-break: an
// ambiguous command resolves to the first matching row.
var categories = []category{
	{
		name:     "open",
		keywords: []string{"open", "launch", "start"},
		build: func(s *Synthesizer, command string) (Action, bool) {
			name, ok := firstGroup(openArgRe, command)
			if !ok {
				return nil, false
			}
			return OpenApp{Name: name}, true
		},
	},
	{
		name:     "close",
		keywords: []string{"close", "exit", "quit"},
		build: func(s *Synthesizer, command string) (Action, bool) {
			name, ok := firstGroup(closeArgRe, command)
			if !ok {
				return nil, false
			}
			return CloseApp{Name: name}, true
		},
	},
	{
		name:     "search",
		keywords: []string{"search", "look up", "find"},
		build: func(s *Synthesizer, command string) (Action, bool) {
			query, ok := firstGroup(searchArgRe, command)
			if !ok {
				return nil, false
			}
			return Search{Query: query}, true
		},
	},
	{
		name:     "type",
		keywords: []string{"type", "write", "input"},
		build: func(s *Synthesizer, command string) (Action, bool) {
			if m := quotedRe.FindStringSubmatch(command); m != nil {
				return TypeText{Text: m[1]}, true
			}
			text, ok := firstGroup(typeArgRe, command)
			if !ok {
				return nil, false
			}
			return TypeText{Text: text}, true
		},
	},
	{
		name:     "click",
		keywords: []string{"click", "press", "select"},
		build: func(s *Synthesizer, command string) (Action, bool) {
			return clickFromPhrase(command), true
		},
	},
	{
		name:     "drag",
		keywords: []string{"drag", "move to"},
		build: func(s *Synthesizer, command string) (Action, bool) {
			m := dragArgRe.FindStringSubmatch(command)
			if m == nil {
				return nil, false
			}
			x, _ := strconv.Atoi(m[1])
			y, _ := strconv.Atoi(m[2])
			return PointerMove{X: x, Y: y}, true
		},
	},
	{
		name:     "screenshot",
		keywords: []string{"screenshot", "capture screen"},
		build: func(s *Synthesizer, command string) (Action, bool) {
			return Screenshot{Path: s.screenshotPath()}, true
		},
	},
}

// TrySynthesize matches the command against the category table and invokes
// the primitive when every required argument could be extracted. The
// solution text is carried only for logging; arguments come from the
// command itself.
func (s *Synthesizer) TrySynthesize(ctx context.Context, command, solution string) bool {
	cmd := strings.ToLower(strings.TrimSpace(command))

	for _, cat := range categories {
		if !mentionsAny(cmd, cat.keywords) {
			continue
		}
		action, ok := cat.build(s, cmd)
		if !ok {
			logger.DebugCF("resolve", "Category matched but arguments missing", map[string]interface{}{
				"category": cat.name,
				"command":  command,
			})
			return false
		}
		if err := action.Do(ctx, s.auto); err != nil {
			logger.WarnCF("resolve", "Synthesized action failed", map[string]interface{}{
				"category": cat.name,
				"action":   action.String(),
				"error":    err.Error(),
			})
			return false
		}
		logger.InfoCF("resolve", "Synthesized action executed", map[string]interface{}{
			"category": cat.name,
			"action":   action.String(),
		})
		return true
	}
	return false
}

func (s *Synthesizer) screenshotPath() string {
	name := fmt.Sprintf("screenshot_%s.png", s.now().Format("20060102_150405"))
	return filepath.Join(s.screenshotDir, name)
}

func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	arg := strings.Trim(strings.TrimSpace(m[1]), ".!?")
	if arg == "" {
		return "", false
	}
	return arg, true
}
