package queue

import (
	"context"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/logging"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
)

// Job names understood by the external delivery worker.
const (
	JobNotifyPost   = "notify-post"
	JobNotifyDelete = "notify-delete"
	JobNotifyPoke   = "notify-poke"
)

// Enqueue hands a delivery job to the external worker queue. Execution
// semantics (retry, ordering) are the worker's problem; ours ends at the row.
func Enqueue(ctx context.Context, conn db.ConnOrTx, name string, priority models.JobPriority, itemID int) error {
	_, err := conn.Exec(ctx,
		`
		---- enqueue worker job
		INSERT INTO worker_job (name, priority, item_id, created, done)
		VALUES ($1, $2, $3, NOW(), FALSE)
		`,
		name, priority, itemID,
	)
	if err != nil {
		return oops.New(err, "failed to enqueue %s job for item %d", name, itemID)
	}

	logging.ExtractLogger(ctx).Debug().
		Str("job", name).
		Int("item", itemID).
		Msg("enqueued delivery job")
	return nil
}
