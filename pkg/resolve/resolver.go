package resolve

import (
	"context"
	"fmt"

	"github.com/mpetrov/marvin/pkg/automation"
	"github.com/mpetrov/marvin/pkg/knowledge"
	"github.com/mpetrov/marvin/pkg/logger"
	"github.com/mpetrov/marvin/pkg/memory"
)

// Solver is the external solver gateway as seen by the engine: one call,
// unstructured answer, ErrSolverUnavailable semantics behind it.
type Solver interface {
	Ask(ctx context.Context, task string) (string, error)
}

// EventSink is the observability capability. Recording is fire-and-forget.
type EventSink interface {
	Record(eventType, content string)
}

// Outcome is what one resolution produced. Report is always set, even on
// total failure.
type Outcome struct {
	Report string
	// Executed means an automation side effect happened.
	Executed bool
	// Learned means a new solution was persisted during this call.
	Learned bool
	// Resolved is false only when every stage fell through.
	Resolved bool
}

// Engine sequences the resolution pipeline: exact store hit, similarity,
// heuristic rules, then solver learning, in that fixed order.
type Engine struct {
	store     knowledge.Store
	solver    Solver
	heuristic *Heuristic
	extractor *Extractor
	events    EventSink
}

type EngineOptions struct {
	Store         knowledge.Store
	Solver        Solver
	Automation    automation.Controller
	Events        EventSink
	ScreenshotDir string
}

func NewEngine(opts EngineOptions) *Engine {
	synth := NewSynthesizer(opts.Automation, opts.ScreenshotDir)
	return &Engine{
		store:     opts.Store,
		solver:    opts.Solver,
		heuristic: NewHeuristic(opts.Automation),
		extractor: NewExtractor(opts.Automation, opts.Store, synth),
		events:    opts.Events,
	}
}

// Resolve runs one command through the pipeline. It always returns a
// textual report; no stage failure propagates as an error.
func (e *Engine) Resolve(ctx context.Context, command string) Outcome {
	task := knowledge.Normalize(command)
	if task == "" {
		return Outcome{Report: "I didn't catch that."}
	}

	// Exact hit: we already know this one.
	if solution, ok := e.store.GetSolution(task); ok {
		if e.extractor.Execute(ctx, task) {
			e.record(memory.EventActionExecuted, task)
			return Outcome{
				Report:   fmt.Sprintf("I've executed the command: %s", command),
				Executed: true,
				Resolved: true,
			}
		}
		return Outcome{
			Report:   fmt.Sprintf("I know how to handle this: %s", solution),
			Resolved: true,
		}
	}

	// Similar hit: try the original phrasing first, then the matched key.
	if key, ok := e.store.FindSimilar(task); ok {
		if e.extractor.Execute(ctx, task) || e.extractor.Execute(ctx, key) {
			e.record(memory.EventActionExecuted, key)
			return Outcome{
				Report:   fmt.Sprintf("I've executed a similar command: %s", key),
				Executed: true,
				Resolved: true,
			}
		}
		if rec, found := e.store.Get(key); found && rec.Learned() {
			return Outcome{
				Report:   fmt.Sprintf("I know something similar: %s", rec.Solution),
				Resolved: true,
			}
		}
	}

	// Rule-based resolution costs nothing and persists nothing.
	if e.heuristic.TryDirect(ctx, command) {
		e.record(memory.EventActionExecuted, task)
		return Outcome{
			Report:   fmt.Sprintf("I've figured out how to execute: %s", command),
			Executed: true,
			Resolved: true,
		}
	}

	// Unknown: record it, then pay for a solver round trip.
	if err := e.store.SaveUnknown(task); err != nil {
		logger.WarnCF("engine", "Could not record unknown task", map[string]interface{}{
			"task":  task,
			"error": err.Error(),
		})
	}
	e.record(memory.EventLearning, "unknown task: "+task)

	answer, err := e.solver.Ask(ctx, task)
	if err != nil {
		logger.InfoCF("engine", "Solver could not help", map[string]interface{}{
			"task":  task,
			"error": err.Error(),
		})
		return Outcome{Report: "I don't know how to do that yet."}
	}

	if err := e.store.RecordSolution(task, answer); err != nil {
		logger.WarnCF("engine", "Could not persist solution", map[string]interface{}{
			"task":  task,
			"error": err.Error(),
		})
	}
	e.record(memory.EventLearning, "learned: "+task)

	if e.extractor.Execute(ctx, task) {
		return Outcome{
			Report:   fmt.Sprintf("I just learned and executed this command: %s", command),
			Executed: true,
			Learned:  true,
			Resolved: true,
		}
	}
	return Outcome{
		Report:   fmt.Sprintf("I just learned how to do this: %s", answer),
		Learned:  true,
		Resolved: true,
	}
}

// Relearn retries the solver for a task that is still unknown, persisting
// the answer on success. Used by the heartbeat sweep; it never executes.
func (e *Engine) Relearn(ctx context.Context, task string) (bool, error) {
	answer, err := e.solver.Ask(ctx, task)
	if err != nil {
		return false, err
	}
	if err := e.store.RecordSolution(task, answer); err != nil {
		return false, err
	}
	e.record(memory.EventLearning, "relearned: "+task)
	return true, nil
}

func (e *Engine) record(eventType, content string) {
	if e.events != nil {
		e.events.Record(eventType, content)
	}
}
