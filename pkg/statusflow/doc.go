/*
Package statusflow coordinates the lifecycle of long-running, fallible
entities (agents, tasks, workflows, messages, feedback items, and model
sessions) inside a multi-agent orchestration runtime.

# Overview

Three tightly coupled pieces make up the core:

  - A generic status coordinator (package status) that drives validated
    transitions for heterogeneous entity kinds.
  - A typed publish/subscribe dispatcher (package event) that gates
    delivery on a two-phase validate-then-handle protocol.
  - An error recovery engine (package recovery) layering retry with
    exponential backoff and per-key circuit breaking on top of
    transition failures, with process-wide error aggregation.

Every transition is validated, emitted, and metered. Failures are
routed through the recovery engine by the error coordinator.

# Basic Usage

Build a Runtime and drive transitions through its coordinator:

	rt, err := statusflow.New(
	    statusflow.WithValidator(status.AllowAll()),
	    statusflow.WithLogger(slog.Default()),
	)
	if err != nil {
	    log.Fatal(err)
	}

	err = rt.Coordinator().Transition(ctx, &status.TransitionContext{
	    EntityKind:   entity.KindTask,
	    EntityID:     "task-1",
	    TargetStatus: entity.TaskDoing,
	    Operation:    "start",
	    StartTime:    time.Now(),
	})

Unhandled failures route through the error coordinator, which marks the
entity as errored, attempts recovery, and either suppresses the error
(recovery succeeded) or returns it:

	if err := doWork(ctx); err != nil {
	    err = rt.Errors().Recover(ctx, entity.KindTask, "task-1", "worker", "doWork", err)
	}

# Design

Managers are explicitly constructed, dependency-injected instances owned
by the Runtime composition root; there is no hidden global state. All
configuration is validated at construction time.
*/
package statusflow
