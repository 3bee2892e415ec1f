// Package memory is marvin's append-only event log. Every user command,
// action, solver query and error lands here as one timestamped line, and
// recent lines are fed back into solver prompts as conversational context.
//
// Recording is fire-and-forget: a failed write is logged and swallowed,
// never surfaced to the caller.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mpetrov/marvin/pkg/logger"
)

const timeLayout = "2006-01-02 15:04:05"

// Event types used across the codebase. Free-form strings are accepted;
// these are the conventional ones.
const (
	EventSystem         = "SYSTEM"
	EventUserCommand    = "USER_COMMAND"
	EventAction         = "ACTION"
	EventActionExecuted = "ACTION_EXECUTED"
	EventLearning       = "LEARNING"
	EventSolverQuery    = "SOLVER_QUERY"
	EventSolverResponse = "SOLVER_RESPONSE"
	EventError          = "ERROR"
)

type EventLog struct {
	path string
	mu   sync.Mutex
}

// DaySummary aggregates one day's activity by event type.
type DaySummary struct {
	Counts   map[string]int
	Examples map[string][]string
	Total    int
}

func NewEventLog(path string) *EventLog {
	el := &EventLog{path: path}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.WarnCF("memory", "Event log directory unavailable", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
	return el
}

// Record appends one event. Never returns an error to the caller.
func (el *EventLog) Record(eventType, content string) {
	el.mu.Lock()
	defer el.mu.Unlock()

	f, err := os.OpenFile(el.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.WarnCF("memory", "Event log write skipped", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] (%s) %s\n",
		time.Now().Format(timeLayout), eventType, strings.ReplaceAll(content, "\n", " "))
	if _, err := f.WriteString(line); err != nil {
		logger.WarnCF("memory", "Event log write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (el *EventLog) readLines() []string {
	el.mu.Lock()
	defer el.mu.Unlock()

	data, err := os.ReadFile(el.path)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}

// LastN returns the newest n events, oldest first, joined into one block
// suitable for prompt context.
func (el *EventLog) LastN(n int) string {
	lines := el.readLines()
	if len(lines) == 0 || n <= 0 {
		return ""
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// ByTimeframe returns events recorded within the past window.
func (el *EventLog) ByTimeframe(window time.Duration) []string {
	cutoff := time.Now().Add(-window)

	var out []string
	for _, line := range el.readLines() {
		ts, ok := parseTimestamp(line)
		if !ok {
			continue
		}
		if !ts.Before(cutoff) {
			out = append(out, line)
		}
	}
	return out
}

// ByType returns up to limit event contents of one type, newest first.
func (el *EventLog) ByType(eventType string, limit int) []string {
	marker := "(" + eventType + ")"

	var out []string
	lines := el.readLines()
	for i := len(lines) - 1; i >= 0 && len(out) < limit; i-- {
		if !strings.Contains(lines[i], marker) {
			continue
		}
		if _, content, ok := strings.Cut(lines[i], ") "); ok {
			out = append(out, content)
		}
	}
	return out
}

// Search returns up to limit log lines containing the query, newest first.
func (el *EventLog) Search(query string, limit int) []string {
	q := strings.ToLower(query)

	var out []string
	lines := el.readLines()
	for i := len(lines) - 1; i >= 0 && len(out) < limit; i-- {
		if strings.Contains(strings.ToLower(lines[i]), q) {
			out = append(out, strings.TrimSpace(lines[i]))
		}
	}
	return out
}

// SummarizeDay counts events per type for one calendar day (today when the
// zero time is given) and keeps a few examples of commands and actions.
func (el *EventLog) SummarizeDay(day time.Time) DaySummary {
	if day.IsZero() {
		day = time.Now()
	}
	dayStr := day.Format("2006-01-02")

	summary := DaySummary{
		Counts:   make(map[string]int),
		Examples: make(map[string][]string),
	}
	for _, line := range el.readLines() {
		if !strings.Contains(line, dayStr) {
			continue
		}
		summary.Total++
		typ, content, ok := parseEvent(line)
		if !ok {
			continue
		}
		summary.Counts[typ]++
		if typ == EventUserCommand || typ == EventAction {
			if len(summary.Examples[typ]) < 3 {
				summary.Examples[typ] = append(summary.Examples[typ], content)
			}
		}
	}
	return summary
}

func parseTimestamp(line string) (time.Time, bool) {
	start := strings.Index(line, "[")
	end := strings.Index(line, "]")
	if start != 0 || end < 0 {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(timeLayout, line[1:end], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func parseEvent(line string) (eventType, content string, ok bool) {
	open := strings.Index(line, "(")
	end := strings.Index(line, ")")
	if open < 0 || end < open {
		return "", "", false
	}
	return line[open+1 : end], strings.TrimSpace(line[end+1:]), true
}
