// Package state persists runtime counters across restarts: how many
// commands marvin has handled, how many tasks it has learned, and when it
// was last spoken to. The status subcommand reads this file.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mpetrov/marvin/pkg/logger"
)

type State struct {
	CommandsHandled int       `json:"commands_handled"`
	TasksLearned    int       `json:"tasks_learned"`
	LastChannel     string    `json:"last_channel,omitempty"`
	LastCommandAt   time.Time `json:"last_command_at,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Manager manages persistent state with atomic saves.
type Manager struct {
	stateFile string
	state     *State
	mu        sync.RWMutex
}

func NewManager(workspace string) *Manager {
	stateDir := filepath.Join(workspace, "state")
	os.MkdirAll(stateDir, 0755)

	m := &Manager{
		stateFile: filepath.Join(stateDir, "state.json"),
		state:     &State{},
	}

	if loaded, err := loadStateFromPath(m.stateFile); err != nil {
		logger.WarnCF("state", "State load failed, starting fresh", map[string]interface{}{
			"path":  m.stateFile,
			"error": err.Error(),
		})
	} else if loaded != nil {
		m.state = loaded
	}

	return m
}

// RecordCommand bumps the handled counter and last-activity markers.
func (m *Manager) RecordCommand(channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.CommandsHandled++
	m.state.LastChannel = channel
	m.state.LastCommandAt = time.Now()
	m.state.Timestamp = time.Now()
	return m.saveAtomic()
}

// RecordLearned bumps the learned-task counter.
func (m *Manager) RecordLearned() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.TasksLearned++
	m.state.Timestamp = time.Now()
	return m.saveAtomic()
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.state
}

// saveAtomic writes through a temp file and rename so the state file is
// never left half-written. Must be called with the lock held.
func (m *Manager) saveAtomic() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmp := m.stateFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing state temp file: %w", err)
	}
	if err := os.Rename(tmp, m.stateFile); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

func loadStateFromPath(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file %s: %w", path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshaling state %s: %w", path, err)
	}
	return &st, nil
}
