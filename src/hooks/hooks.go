package hooks

import (
	"context"
	"sync"

	"git.thicket.social/thicket/thicket/src/logging"
	"git.thicket.social/thicket/thicket/src/models"
)

// This package is the extension surface of the ingestion pipeline. Observers
// register against named stages and are invoked in registration order while
// an item moves through the pipeline. The pipeline itself knows nothing about
// what is listening.

type Stage string

const (
	// Before the item row is written. Observers may still mutate the item
	// and its content.
	StagePreInsert Stage = "pre-insert"
	// After the row exists and has an id, inside the ingestion sequence.
	StagePostInsert Stage = "post-insert"
	// After tag associations for the item were recorded.
	StageTagged Stage = "tagged"
	// After the item is fully committed, threaded and fanned out.
	StagePostCommit Stage = "post-commit"
)

// Event is what observers receive. Item and Content are always set. Only
// StagePreInsert sees them before persistence; edits made at later stages
// never reach the database.
type Event struct {
	Stage   Stage
	Item    *models.Item
	Content *models.ItemContent
}

type Observer func(ctx context.Context, ev *Event)

type Registry struct {
	mu        sync.RWMutex
	observers map[Stage][]registeredObserver
}

type registeredObserver struct {
	name string
	fn   Observer
}

func NewRegistry() *Registry {
	return &Registry{
		observers: make(map[Stage][]registeredObserver),
	}
}

// Observe registers fn for a stage. The name only shows up in logs when the
// observer misbehaves.
func (r *Registry) Observe(stage Stage, name string, fn Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers[stage] = append(r.observers[stage], registeredObserver{name: name, fn: fn})
}

// Publish runs all observers for a stage in registration order. A panicking
// observer is logged and skipped; it never takes down ingestion.
func (r *Registry) Publish(ctx context.Context, stage Stage, ev *Event) {
	r.mu.RLock()
	obs := r.observers[stage]
	r.mu.RUnlock()

	ev.Stage = stage
	for _, o := range obs {
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					logging.ExtractLogger(ctx).Error().
						Str("observer", o.name).
						Str("stage", string(stage)).
						Interface("recovered", recovered).
						Msg("observer panicked")
				}
			}()
			o.fn(ctx, ev)
		}()
	}
}
