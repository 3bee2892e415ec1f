package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mpetrov/marvin/pkg/logger"
)

// FileStore keeps every record in one JSON document, serialized as an
// insertion-ordered array. Writes replace the whole document atomically
// (temp file + rename), so a crash never leaves a torn store behind.
//
// The file backend assumes a single writer process. In-process access is
// serialized by a mutex; cross-process safety requires the sqlite backend
// or the external-change watcher plus disciplined deployment.
type FileStore struct {
	path string

	mu      sync.RWMutex
	records []LearningRecord
	index   map[string]int

	now func() time.Time
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:  path,
		index: make(map[string]int),
		now:   time.Now,
	}
}

// Ensure creates the containing directory and an empty store document if
// absent, then loads whatever is on disk.
func (fs *FileStore) Ensure() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrStorageUnavailable, filepath.Dir(fs.path), err)
	}
	if _, err := os.Stat(fs.path); os.IsNotExist(err) {
		if err := fs.saveLocked(); err != nil {
			return err
		}
		return nil
	}
	return fs.loadLocked()
}

func (fs *FileStore) GetSolution(task string) (string, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	i, ok := fs.index[task]
	if !ok {
		return "", false
	}
	rec := fs.records[i]
	if !rec.Learned() {
		return "", false
	}
	return rec.Solution, true
}

func (fs *FileStore) SaveUnknown(task string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if i, ok := fs.index[task]; ok {
		fs.records[i].Attempts++
	} else {
		fs.index[task] = len(fs.records)
		fs.records = append(fs.records, LearningRecord{
			Task:      task,
			Status:    StatusUnknown,
			FirstSeen: fs.now(),
			Attempts:  0,
		})
	}
	return fs.saveLocked()
}

func (fs *FileStore) RecordSolution(task, solution string) error {
	if solution == "" {
		return fmt.Errorf("refusing to record empty solution for %q", task)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	learnedAt := fs.now()
	if i, ok := fs.index[task]; ok {
		fs.records[i].Status = StatusLearned
		fs.records[i].Solution = solution
		fs.records[i].LearnedAt = &learnedAt
	} else {
		fs.index[task] = len(fs.records)
		fs.records = append(fs.records, LearningRecord{
			Task:      task,
			Status:    StatusLearned,
			FirstSeen: learnedAt,
			LearnedAt: &learnedAt,
			Solution:  solution,
		})
	}
	return fs.saveLocked()
}

func (fs *FileStore) FindSimilar(task string) (string, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	keys := make([]string, len(fs.records))
	for i, rec := range fs.records {
		keys[i] = rec.Task
	}
	return firstContainment(task, keys)
}

func (fs *FileStore) Get(task string) (LearningRecord, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	i, ok := fs.index[task]
	if !ok {
		return LearningRecord{}, false
	}
	return fs.records[i], true
}

func (fs *FileStore) List() []LearningRecord {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]LearningRecord, len(fs.records))
	copy(out, fs.records)
	return out
}

func (fs *FileStore) Close() error { return nil }

// Reload re-reads the document from disk, dropping in-memory state. Used by
// the external-change watcher when another process rewrites the store.
func (fs *FileStore) Reload() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.loadLocked()
}

// Path returns the backing document location, for the watcher.
func (fs *FileStore) Path() string { return fs.path }

func (fs *FileStore) loadLocked() error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.records = nil
			fs.index = make(map[string]int)
			return nil
		}
		return fmt.Errorf("%w: reading %s: %v", ErrStorageUnavailable, fs.path, err)
	}

	var records []LearningRecord
	if err := json.Unmarshal(data, &records); err != nil {
		// A corrupt document is treated as empty rather than fatal; the
		// next write replaces it wholesale.
		logger.WarnCF("knowledge", "Store document unreadable, starting empty", map[string]interface{}{
			"path":  fs.path,
			"error": err.Error(),
		})
		records = nil
	}

	fs.records = records
	fs.index = make(map[string]int, len(records))
	for i, rec := range records {
		fs.index[rec.Task] = i
	}
	return nil
}

// saveLocked writes the whole document through a temp file and rename.
// Must be called with the write lock held.
func (fs *FileStore) saveLocked() error {
	records := fs.records
	if records == nil {
		records = []LearningRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling knowledge store: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorageUnavailable, tmp, err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replacing %s: %v", ErrStorageUnavailable, fs.path, err)
	}
	return nil
}
