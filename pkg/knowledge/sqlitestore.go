package knowledge

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the transactional backend for deployments where more than
// one process writes the store (assistant loop plus configuration panel).
// Row order follows rowid, so List and FindSimilar see insertion order just
// like the file backend.
type SQLiteStore struct {
	path string
	db   *sql.DB
	now  func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS learning_records (
    task       TEXT PRIMARY KEY,
    status     TEXT NOT NULL DEFAULT 'unknown',
    first_seen TIMESTAMP NOT NULL,
    learned_at TIMESTAMP,
    attempts   INTEGER NOT NULL DEFAULT 0,
    solution   TEXT
);
`

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path, now: time.Now}
}

func (ss *SQLiteStore) Ensure() error {
	if ss.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(ss.path), 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrStorageUnavailable, filepath.Dir(ss.path), err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", ss.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrStorageUnavailable, ss.path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return fmt.Errorf("%w: initializing schema: %v", ErrStorageUnavailable, err)
	}

	ss.db = db
	return nil
}

func (ss *SQLiteStore) GetSolution(task string) (string, bool) {
	if err := ss.Ensure(); err != nil {
		return "", false
	}

	var status string
	var solution sql.NullString
	err := ss.db.QueryRow(
		`SELECT status, solution FROM learning_records WHERE task = ?`, task,
	).Scan(&status, &solution)
	if err != nil {
		return "", false
	}
	if Status(status) != StatusLearned || !solution.Valid || solution.String == "" {
		return "", false
	}
	return solution.String, true
}

func (ss *SQLiteStore) SaveUnknown(task string) error {
	if err := ss.Ensure(); err != nil {
		return err
	}

	_, err := ss.db.Exec(`
		INSERT INTO learning_records (task, status, first_seen, attempts)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(task) DO UPDATE SET attempts = attempts + 1`,
		task, string(StatusUnknown), ss.now().UTC())
	if err != nil {
		return fmt.Errorf("saving unknown task %q: %w", task, err)
	}
	return nil
}

func (ss *SQLiteStore) RecordSolution(task, solution string) error {
	if solution == "" {
		return fmt.Errorf("refusing to record empty solution for %q", task)
	}
	if err := ss.Ensure(); err != nil {
		return err
	}

	now := ss.now().UTC()
	_, err := ss.db.Exec(`
		INSERT INTO learning_records (task, status, first_seen, learned_at, attempts, solution)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(task) DO UPDATE SET
			status     = excluded.status,
			learned_at = excluded.learned_at,
			solution   = excluded.solution`,
		task, string(StatusLearned), now, now, solution)
	if err != nil {
		return fmt.Errorf("recording solution for %q: %w", task, err)
	}
	return nil
}

func (ss *SQLiteStore) FindSimilar(task string) (string, bool) {
	if err := ss.Ensure(); err != nil {
		return "", false
	}

	rows, err := ss.db.Query(`SELECT task FROM learning_records ORDER BY rowid`)
	if err != nil {
		return "", false
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return "", false
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return "", false
	}
	return firstContainment(task, keys)
}

func (ss *SQLiteStore) Get(task string) (LearningRecord, bool) {
	if err := ss.Ensure(); err != nil {
		return LearningRecord{}, false
	}

	rec, err := scanRecord(ss.db.QueryRow(`
		SELECT task, status, first_seen, learned_at, attempts, solution
		FROM learning_records WHERE task = ?`, task))
	if err != nil {
		return LearningRecord{}, false
	}
	return rec, true
}

func (ss *SQLiteStore) List() []LearningRecord {
	if err := ss.Ensure(); err != nil {
		return nil
	}

	rows, err := ss.db.Query(`
		SELECT task, status, first_seen, learned_at, attempts, solution
		FROM learning_records ORDER BY rowid`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []LearningRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return out
		}
		out = append(out, rec)
	}
	return out
}

func (ss *SQLiteStore) Close() error {
	if ss.db == nil {
		return nil
	}
	err := ss.db.Close()
	ss.db = nil
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (LearningRecord, error) {
	var rec LearningRecord
	var status string
	var learnedAt sql.NullTime
	var solution sql.NullString

	if err := row.Scan(&rec.Task, &status, &rec.FirstSeen, &learnedAt, &rec.Attempts, &solution); err != nil {
		return LearningRecord{}, err
	}
	rec.Status = Status(status)
	if learnedAt.Valid {
		t := learnedAt.Time
		rec.LearnedAt = &t
	}
	if solution.Valid {
		rec.Solution = solution.String
	}
	return rec, nil
}
