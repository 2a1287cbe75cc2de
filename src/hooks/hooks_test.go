package hooks

import (
	"context"
	"testing"

	"git.thicket.social/thicket/thicket/src/models"
	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("observers run in registration order", func(t *testing.T) {
		r := NewRegistry()
		var order []string
		r.Observe(StagePreInsert, "first", func(ctx context.Context, ev *Event) {
			order = append(order, "first")
		})
		r.Observe(StagePreInsert, "second", func(ctx context.Context, ev *Event) {
			order = append(order, "second")
		})

		r.Publish(ctx, StagePreInsert, &Event{Item: &models.Item{}})
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("observers only fire for their stage", func(t *testing.T) {
		r := NewRegistry()
		fired := false
		r.Observe(StagePostCommit, "later", func(ctx context.Context, ev *Event) {
			fired = true
		})

		r.Publish(ctx, StagePreInsert, &Event{Item: &models.Item{}})
		assert.False(t, fired)
		r.Publish(ctx, StagePostCommit, &Event{Item: &models.Item{}})
		assert.True(t, fired)
	})

	t.Run("pre-insert observers can mutate the item", func(t *testing.T) {
		r := NewRegistry()
		r.Observe(StagePreInsert, "star everything", func(ctx context.Context, ev *Event) {
			ev.Item.Starred = true
		})

		item := &models.Item{}
		r.Publish(ctx, StagePreInsert, &Event{Item: item})
		assert.True(t, item.Starred)
	})

	t.Run("a panicking observer does not stop the rest", func(t *testing.T) {
		r := NewRegistry()
		survived := false
		r.Observe(StagePostInsert, "broken", func(ctx context.Context, ev *Event) {
			panic("oh no")
		})
		r.Observe(StagePostInsert, "fine", func(ctx context.Context, ev *Event) {
			survived = true
		})

		assert.NotPanics(t, func() {
			r.Publish(ctx, StagePostInsert, &Event{Item: &models.Item{}})
		})
		assert.True(t, survived)
	})
}
