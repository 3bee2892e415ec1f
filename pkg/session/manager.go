// Package session keeps bounded per-channel conversation history so direct
// chat with the solver gateway has context across turns.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mpetrov/marvin/pkg/logger"
	"github.com/mpetrov/marvin/pkg/providers"
)

type Session struct {
	Key      string              `json:"key"`
	Messages []providers.Message `json:"messages"`
	Created  time.Time           `json:"created"`
	Updated  time.Time           `json:"updated"`
}

type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	storage  string
	// maxMessages bounds history per session; older messages are dropped
	// on append. Zero means unbounded.
	maxMessages int
}

var (
	// Keep startup responsive even if cloud-backed folders stall.
	sessionLoadTimeout  = 750 * time.Millisecond
	errSessionLoadTimed = errors.New("session load timed out")
)

func NewManager(storage string, maxMessages int) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		storage:     storage,
		maxMessages: maxMessages,
	}

	if storage != "" {
		os.MkdirAll(storage, 0755)
		if err := m.loadWithTimeout(sessionLoadTimeout); err != nil {
			logger.WarnCF("session", "Session preload skipped", map[string]interface{}{
				"storage": storage,
				"error":   err.Error(),
			})
		}
	}

	return m
}

func (m *Manager) AddMessage(key, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[key]
	if !ok {
		session = &Session{Key: key, Created: time.Now()}
		m.sessions[key] = session
	}

	session.Messages = append(session.Messages, providers.Message{
		Role:    role,
		Content: content,
	})
	if m.maxMessages > 0 && len(session.Messages) > m.maxMessages {
		session.Messages = session.Messages[len(session.Messages)-m.maxMessages:]
	}
	session.Updated = time.Now()
}

func (m *Manager) GetHistory(key string) []providers.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[key]
	if !ok {
		return []providers.Message{}
	}

	history := make([]providers.Message, len(session.Messages))
	copy(history, session.Messages)
	return history
}

func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[key]; ok {
		session.Messages = nil
		session.Updated = time.Now()
	}
}

// ListKeys returns all known session keys in stable order.
func (m *Manager) ListKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.sessions))
	for key := range m.sessions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (m *Manager) Save(key string) error {
	if m.storage == "" {
		return nil
	}

	// Validate key to avoid invalid filenames and path traversal.
	if key == "" || key == "." || key == ".." || key != filepath.Base(key) ||
		strings.ContainsAny(key, `/\`) {
		return os.ErrInvalid
	}

	m.mu.RLock()
	stored, ok := m.sessions[key]
	if !ok {
		m.mu.RUnlock()
		return nil
	}
	snapshot := Session{
		Key:     stored.Key,
		Created: stored.Created,
		Updated: stored.Updated,
	}
	snapshot.Messages = make([]providers.Message, len(stored.Messages))
	copy(snapshot.Messages, stored.Messages)
	m.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(m.storage, key+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (m *Manager) load() error {
	files, err := os.ReadDir(m.storage)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.storage, file.Name()))
		if err != nil {
			continue
		}

		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}

		m.mu.Lock()
		m.sessions[session.Key] = &session
		m.mu.Unlock()
	}

	return nil
}

func (m *Manager) loadWithTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return m.load()
	}

	done := make(chan error, 1)
	go func() {
		done <- m.load()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return errSessionLoadTimed
	}
}
