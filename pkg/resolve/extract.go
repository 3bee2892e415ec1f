package resolve

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/mpetrov/marvin/pkg/automation"
	"github.com/mpetrov/marvin/pkg/knowledge"
	"github.com/mpetrov/marvin/pkg/logger"
)

// Extractor turns a stored solution into executed effects. Solutions are
// free text from the solver and may embed keyboard-shortcut phrases,
// pyautogui-style calls, or fenced code fragments; the extractor maps them
// onto Action values and never evaluates anything as code.
type Extractor struct {
	auto  automation.Controller
	store knowledge.Store
	synth *Synthesizer
}

func NewExtractor(auto automation.Controller, store knowledge.Store, synth *Synthesizer) *Extractor {
	return &Extractor{auto: auto, store: store, synth: synth}
}

var (
	fencedRe = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9]*)\\n?(.*?)```")

	pressCallRe  = regexp.MustCompile(`(?:press|keyDown|keyUp|keyPress)\(\s*['"]([^'"]+)['"]\s*\)`)
	hotkeyCallRe = regexp.MustCompile(`hotkey\(([^)]*)\)`)
	hotkeyArgRe  = regexp.MustCompile(`['"]([^'"]+)['"]`)
	// plain ctrl+shift+esc style notation
	chordRe = regexp.MustCompile(`(?i)\b(ctrl|control|alt|shift|win)((?:\s*\+\s*[a-z0-9]+)+)`)

	moveCallRe   = regexp.MustCompile(`moveTo\(\s*(\d+)\s*,\s*(\d+)`)
	clickCallRe  = regexp.MustCompile(`\b(click|doubleClick|rightClick)\(`)
	writeCallRe  = regexp.MustCompile(`(?:write|typewrite)\(\s*['"]([^'"]*)['"]`)
	shotCallRe   = regexp.MustCompile(`screenshot\(`)
	keyboardHint = []string{"key", "press", "alt", "ctrl", "tab", "shift"}
)

// Execute resolves a solution for the task and attempts to act on it.
// Missing solutions fall through to the similarity matcher; the matched
// key becomes the effective task for everything downstream.
func (e *Extractor) Execute(ctx context.Context, task string) bool {
	solution, ok := e.store.GetSolution(task)
	if !ok {
		key, found := e.store.FindSimilar(task)
		if !found {
			return false
		}
		solution, ok = e.store.GetSolution(key)
		if !ok {
			return false
		}
		task = key
	}

	fragments := fencedRe.FindAllStringSubmatch(solution, -1)

	if mentionsAny(task, keyboardHint) {
		if handled := e.executeKeyboard(ctx, task, solution); handled {
			return true
		}
	}

	if len(fragments) > 0 {
		actions := parseActions(fragments[0][1], e.synth.screenshotPath)
		if len(actions) == 0 {
			logger.DebugCF("resolve", "Fragment has no recognizable actions, reporting as text", map[string]interface{}{
				"task": task,
			})
			return false
		}
		return e.runAll(ctx, actions)
	}

	return e.synth.TrySynthesize(ctx, task, solution)
}

// executeKeyboard handles the keyboard path, which takes priority over
// fragment execution when the command itself suggests a key action.
func (e *Extractor) executeKeyboard(ctx context.Context, task, solution string) bool {
	if strings.Contains(task, "alt tab") || strings.Contains(task, "alter tab") {
		return e.runAll(ctx, []Action{KeyChord{Keys: []string{"alt", "tab"}}})
	}

	actions := parseKeyActions(solution)
	if len(actions) == 0 {
		return false
	}
	e.runAll(ctx, actions)
	return true
}

func (e *Extractor) runAll(ctx context.Context, actions []Action) bool {
	succeeded := false
	for _, a := range actions {
		if err := a.Do(ctx, e.auto); err != nil {
			logger.WarnCF("resolve", "Action failed", map[string]interface{}{
				"action": a.String(),
				"error":  err.Error(),
			})
			continue
		}
		logger.DebugCF("resolve", "Action executed", map[string]interface{}{
			"action": a.String(),
		})
		succeeded = true
	}
	return succeeded
}

// parseKeyActions finds key-combination patterns in free text: pyautogui
// press/keyDown/keyUp/keyPress and hotkey calls, plus plain ctrl+key
// notation.
func parseKeyActions(text string) []Action {
	var actions []Action

	for _, m := range hotkeyCallRe.FindAllStringSubmatch(text, -1) {
		var keys []string
		for _, arg := range hotkeyArgRe.FindAllStringSubmatch(m[1], -1) {
			keys = append(keys, strings.ToLower(arg[1]))
		}
		if len(keys) > 0 {
			actions = append(actions, KeyChord{Keys: keys})
		}
	}

	for _, m := range pressCallRe.FindAllStringSubmatch(text, -1) {
		actions = append(actions, KeyChord{Keys: []string{strings.ToLower(m[1])}})
	}

	if len(actions) == 0 {
		for _, m := range chordRe.FindAllStringSubmatch(text, -1) {
			keys := []string{strings.ToLower(m[1])}
			for _, part := range strings.Split(m[2], "+") {
				part = strings.ToLower(strings.TrimSpace(part))
				if part != "" {
					keys = append(keys, part)
				}
			}
			actions = append(actions, KeyChord{Keys: keys})
		}
	}

	return actions
}

// parseActions maps one fenced fragment onto the closed Action set. An
// empty result means the fragment is unmappable and must stay text-only.
func parseActions(fragment string, shotPath func() string) []Action {
	var actions []Action

	actions = append(actions, parseKeyActions(fragment)...)

	for _, m := range moveCallRe.FindAllStringSubmatch(fragment, -1) {
		x, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		actions = append(actions, PointerMove{X: x, Y: y})
	}
	for _, m := range clickCallRe.FindAllStringSubmatch(fragment, -1) {
		switch m[1] {
		case "doubleClick":
			actions = append(actions, ClickAction{Button: automation.ButtonLeft, Count: 2})
		case "rightClick":
			actions = append(actions, ClickAction{Button: automation.ButtonRight, Count: 1})
		default:
			actions = append(actions, ClickAction{Button: automation.ButtonLeft, Count: 1})
		}
	}
	for _, m := range writeCallRe.FindAllStringSubmatch(fragment, -1) {
		actions = append(actions, TypeText{Text: m[1]})
	}
	if shotCallRe.MatchString(fragment) {
		actions = append(actions, Screenshot{Path: shotPath()})
	}

	return actions
}

func mentionsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
