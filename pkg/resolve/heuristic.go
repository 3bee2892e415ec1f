package resolve

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/mpetrov/marvin/pkg/automation"
	"github.com/mpetrov/marvin/pkg/logger"
)

// Heuristic is the rule-based resolver tried before any learning occurs.
// It never touches the knowledge store and never queries the solver; it
// either dispatches a primitive directly or declines.
type Heuristic struct {
	auto automation.Controller
}

func NewHeuristic(auto automation.Controller) *Heuristic {
	return &Heuristic{auto: auto}
}

// modifierNames maps every accepted modifier spelling to its canonical name.
var modifierNames = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"shift":   "shift",
	"win":     "win",
	"windows": "win",
}

// namedKeys are matched as whole words against the command, two-word names
// first so "page up" never resolves to "up".
var namedKeys = []struct {
	phrase string
	key    string
}{
	{"page up", "pageup"},
	{"page down", "pagedown"},
	{"escape", "escape"},
	{"enter", "enter"},
	{"space", "space"},
	{"spacebar", "space"},
	{"backspace", "backspace"},
	{"delete", "delete"},
	{"tab", "tab"},
	{"up", "up"},
	{"down", "down"},
	{"left", "left"},
	{"right", "right"},
	{"home", "home"},
	{"end", "end"},
}

// fillerTokens are dropped before single-character key extraction. Single
// letters are never filler, so "press the letter a" still yields "a".
var fillerTokens = map[string]bool{
	"press": true, "push": true, "hit": true, "the": true,
	"key": true, "keys": true, "letter": true, "button": true,
}

var (
	singleKeyRe = regexp.MustCompile(`^[a-z0-9]$|^f[0-9]{1,2}$`)
	mouseToRe   = regexp.MustCompile(`move (?:the )?mouse to (\d+)\s*[, ]\s*(\d+)`)
)

// TryDirect attempts to map the command straight onto a primitive. True
// means an action was dispatched; any capability failure is logged and
// reported as "did not apply".
func (h *Heuristic) TryDirect(ctx context.Context, command string) bool {
	cmd := strings.ToLower(strings.TrimSpace(command))

	if strings.Contains(cmd, "press") || strings.Contains(cmd, "key") {
		if handled := h.tryKeyboard(ctx, cmd); handled {
			return true
		}
		return false
	}

	if strings.Contains(cmd, "click") {
		return h.dispatch(ctx, clickFromPhrase(cmd))
	}

	if m := mouseToRe.FindStringSubmatch(cmd); m != nil {
		x, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return h.dispatch(ctx, PointerMove{X: x, Y: y})
	}

	return false
}

func (h *Heuristic) tryKeyboard(ctx context.Context, cmd string) bool {
	tokens := splitKeyTokens(cmd)

	var mods []string
	seen := map[string]bool{}
	for _, tok := range tokens {
		if canon, ok := modifierNames[tok]; ok && !seen[canon] {
			mods = append(mods, canon)
			seen[canon] = true
		}
	}

	key := findNamedKey(tokens)
	if key == "" {
		for _, tok := range tokens {
			if fillerTokens[tok] || modifierNames[tok] != "" {
				continue
			}
			if singleKeyRe.MatchString(tok) {
				key = tok
				break
			}
		}
	}
	if key == "" {
		return false
	}

	if len(mods) > 0 {
		return h.dispatch(ctx, KeyChord{Keys: append(mods, key)})
	}
	return h.dispatch(ctx, KeyChord{Keys: []string{key}})
}

func (h *Heuristic) dispatch(ctx context.Context, action Action) bool {
	if err := action.Do(ctx, h.auto); err != nil {
		logger.WarnCF("resolve", "Heuristic dispatch failed", map[string]interface{}{
			"action": action.String(),
			"error":  err.Error(),
		})
		return false
	}
	logger.DebugCF("resolve", "Heuristic dispatched", map[string]interface{}{
		"action": action.String(),
	})
	return true
}

// splitKeyTokens tokenizes on whitespace and '+' so "ctrl+alt+t" separates
// into its parts. Quote characters split too, so "press the letter 'a'"
// yields a bare "a" token.
func splitKeyTokens(cmd string) []string {
	return strings.FieldsFunc(cmd, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '+' || r == '\'' || r == '"' || r == '`'
	})
}

func findNamedKey(tokens []string) string {
	for _, nk := range namedKeys {
		parts := strings.Fields(nk.phrase)
		if len(parts) == 2 {
			for i := 0; i+1 < len(tokens); i++ {
				if tokens[i] == parts[0] && tokens[i+1] == parts[1] {
					return nk.key
				}
			}
			continue
		}
		for _, tok := range tokens {
			if tok == nk.phrase {
				return nk.key
			}
		}
	}
	return ""
}

func clickFromPhrase(cmd string) ClickAction {
	switch {
	case strings.Contains(cmd, "double"):
		return ClickAction{Button: automation.ButtonLeft, Count: 2}
	case strings.Contains(cmd, "right"):
		return ClickAction{Button: automation.ButtonRight, Count: 1}
	default:
		return ClickAction{Button: automation.ButtonLeft, Count: 1}
	}
}
