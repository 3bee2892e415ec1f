// Package knowledge is the durable task-to-solution store behind the
// command-resolution engine. Two backends exist: a single-writer JSON
// document (the default) and an embedded sqlite database for deployments
// where another process, such as the configuration panel, writes the store
// concurrently.
package knowledge

import (
	"errors"
	"strings"
)

// ErrStorageUnavailable is returned when the backing location cannot be
// created or opened. Callers treat it as "the store has nothing for you";
// it never propagates as a crash.
var ErrStorageUnavailable = errors.New("knowledge storage unavailable")

// Store is the Knowledge Store contract. Task arguments are expected to be
// pre-normalized with Normalize.
type Store interface {
	// Ensure idempotently creates the backing store.
	Ensure() error

	// GetSolution returns the stored solution when the task is learned.
	// Missing keys and unlearned records report false, never an error.
	GetSolution(task string) (string, bool)

	// SaveUnknown inserts a new record with zero attempts, or increments
	// the attempt counter when the task is already present.
	SaveUnknown(task string) error

	// RecordSolution upserts a learned record, preserving first-seen time
	// and attempt count if the record pre-existed.
	RecordSolution(task, solution string) error

	// FindSimilar returns the first stored key, in insertion order, where
	// either key or task contains the other. This is a deliberate cheap
	// heuristic, not semantic matching.
	FindSimilar(task string) (string, bool)

	// Get returns a copy of one record.
	Get(task string) (LearningRecord, bool)

	// List returns copies of all records in insertion order.
	List() []LearningRecord

	Close() error
}

// firstContainment is the shared similarity scan used by both backends.
// Keys must be in insertion order so results stay deterministic.
func firstContainment(task string, keys []string) (string, bool) {
	if task == "" {
		return "", false
	}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if strings.Contains(task, k) || strings.Contains(k, task) {
			return k, true
		}
	}
	return "", false
}
