// Package worker holds the background jobs that keep a long-running
// saldo instance in step with the backend: cache invalidation driven by
// change events, and the periodic ledger export.
package worker

import (
	"context"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/query"
)

// entityMutations maps the entity names the backend publishes to the
// local mutation kinds. Unknown entities are dropped, not requeued.
var entityMutations = map[string]query.Mutation{
	"transaction":  query.MutationTransaction,
	"budget":       query.MutationBudget,
	"category":     query.MutationCategory,
	"account":      query.MutationAccount,
	"transfer":     query.MutationTransfer,
	"notification": query.MutationNotification,
}

// InvalidationWorker applies backend change events to the local cache.
// A change made from another device reaches this instance as an event,
// and the affected entity groups are refetched on next read.
type InvalidationWorker struct {
	cache *query.Cache
}

func NewInvalidationWorker(cache *query.Cache) *InvalidationWorker {
	return &InvalidationWorker{cache: cache}
}

// HandleChangeEvent invalidates the cache groups derived from a single
// change event. It never returns an error for unknown entities so the
// delivery is acked instead of cycling through the queue.
func (w *InvalidationWorker) HandleChangeEvent(ctx context.Context, event *amqp.ChangeEvent) error {
	mutation, ok := entityMutations[event.Entity]
	if !ok {
		slog.WarnContext(ctx, "Ignoring change event for unknown entity",
			"entity", event.Entity,
			"action", event.Action)
		return nil
	}

	w.cache.InvalidateAfter(mutation)

	slog.InfoContext(ctx, "Invalidated cache from change event",
		"entity", event.Entity,
		"action", event.Action,
		"entity_id", event.EntityID,
		"groups", query.GroupsFor(mutation))

	return nil
}
