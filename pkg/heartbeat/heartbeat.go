// Package heartbeat retries unresolved tasks on a cron schedule. Tasks
// that stayed unknown after at least one failed attempt get another solver
// round trip while the assistant is idle.
package heartbeat

import (
	"context"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/mpetrov/marvin/pkg/knowledge"
	"github.com/mpetrov/marvin/pkg/logger"
)

// Relearner retries the solver for one still-unknown task. The resolution
// engine satisfies it.
type Relearner interface {
	Relearn(ctx context.Context, task string) (bool, error)
}

type Heartbeat struct {
	store       knowledge.Store
	relearner   Relearner
	schedule    string
	maxPerSweep int
	// turn serializes sweeps with the agent's command processing so the
	// store keeps a single writer.
	turn sync.Locker
	gron *gronx.Gronx
}

func New(store knowledge.Store, relearner Relearner, schedule string, maxPerSweep int, turn sync.Locker) *Heartbeat {
	if maxPerSweep <= 0 {
		maxPerSweep = 5
	}
	return &Heartbeat{
		store:       store,
		relearner:   relearner,
		schedule:    schedule,
		maxPerSweep: maxPerSweep,
		turn:        turn,
		gron:        gronx.New(),
	}
}

// Run checks the schedule once a minute and sweeps when it fires. Blocks
// until the context ends.
func (h *Heartbeat) Run(ctx context.Context) {
	if !h.gron.IsValid(h.schedule) {
		logger.ErrorCF("heartbeat", "Invalid schedule, heartbeat disabled", map[string]interface{}{
			"schedule": h.schedule,
		})
		return
	}
	logger.InfoCF("heartbeat", "Heartbeat started", map[string]interface{}{
		"schedule": h.schedule,
	})

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := h.gron.IsDue(h.schedule)
			if err != nil || !due {
				continue
			}
			h.Sweep(ctx)
		}
	}
}

// Sweep retries up to maxPerSweep unresolved tasks. Exported so the status
// subcommand can trigger one manually.
func (h *Heartbeat) Sweep(ctx context.Context) {
	h.turn.Lock()
	defer h.turn.Unlock()

	var candidates []string
	for _, rec := range h.store.List() {
		if rec.Status == knowledge.StatusUnknown && rec.Attempts >= 1 {
			candidates = append(candidates, rec.Task)
		}
		if len(candidates) == h.maxPerSweep {
			break
		}
	}
	if len(candidates) == 0 {
		return
	}

	logger.InfoCF("heartbeat", "Relearn sweep", map[string]interface{}{
		"tasks": len(candidates),
	})
	for _, task := range candidates {
		if ctx.Err() != nil {
			return
		}
		learned, err := h.relearner.Relearn(ctx, task)
		if err != nil {
			logger.DebugCF("heartbeat", "Relearn attempt failed", map[string]interface{}{
				"task":  task,
				"error": err.Error(),
			})
			continue
		}
		if learned {
			logger.InfoCF("heartbeat", "Task learned in background", map[string]interface{}{
				"task": task,
			})
		}
	}
}
