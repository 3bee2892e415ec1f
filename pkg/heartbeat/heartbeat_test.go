package heartbeat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mpetrov/marvin/pkg/knowledge"
)

type fakeRelearner struct {
	tasks []string
	err   error
}

func (f *fakeRelearner) Relearn(_ context.Context, task string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.tasks = append(f.tasks, task)
	return true, nil
}

func newSweepStore(t *testing.T) knowledge.Store {
	t.Helper()
	store := knowledge.NewFileStore(filepath.Join(t.TempDir(), "knowledge.json"))
	if err := store.Ensure(); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSweepRetriesOnlyRepeatedUnknowns(t *testing.T) {
	store := newSweepStore(t)
	// Seen once: not retried. Seen twice: retried. Learned: never touched.
	if err := store.SaveUnknown("seen once"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := store.SaveUnknown("seen twice"); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.RecordSolution("already learned", "done"); err != nil {
		t.Fatal(err)
	}

	relearner := &fakeRelearner{}
	h := New(store, relearner, "* * * * *", 5, &sync.Mutex{})
	h.Sweep(context.Background())

	if len(relearner.tasks) != 1 || relearner.tasks[0] != "seen twice" {
		t.Errorf("retried tasks = %v", relearner.tasks)
	}
}

func TestSweepHonorsBudget(t *testing.T) {
	store := newSweepStore(t)
	for _, task := range []string{"a task", "b task", "c task"} {
		for i := 0; i < 2; i++ {
			if err := store.SaveUnknown(task); err != nil {
				t.Fatal(err)
			}
		}
	}

	relearner := &fakeRelearner{}
	h := New(store, relearner, "* * * * *", 2, &sync.Mutex{})
	h.Sweep(context.Background())

	if len(relearner.tasks) != 2 {
		t.Errorf("retried %d tasks, want 2", len(relearner.tasks))
	}
}

func TestSweepToleratesSolverFailure(t *testing.T) {
	store := newSweepStore(t)
	for i := 0; i < 2; i++ {
		if err := store.SaveUnknown("stubborn task"); err != nil {
			t.Fatal(err)
		}
	}

	relearner := &fakeRelearner{err: errors.New("providers down")}
	h := New(store, relearner, "* * * * *", 5, &sync.Mutex{})
	h.Sweep(context.Background())

	rec, ok := store.Get("stubborn task")
	if !ok || rec.Status != knowledge.StatusUnknown {
		t.Errorf("record = %+v ok=%v", rec, ok)
	}
}

func TestSweepSharesTurnLock(t *testing.T) {
	store := newSweepStore(t)
	for i := 0; i < 2; i++ {
		if err := store.SaveUnknown("some task"); err != nil {
			t.Fatal(err)
		}
	}

	var turn sync.Mutex
	turn.Lock()
	done := make(chan struct{})

	h := New(store, &fakeRelearner{}, "* * * * *", 5, &turn)
	go func() {
		h.Sweep(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("sweep ran while the turn lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	turn.Unlock()
	<-done
}
